package router

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

const (
	// AllFailedMessage is the text returned when every model failed
	AllFailedMessage = "Error: All AI models are currently unavailable. Please check your API keys and try again."
	// NoModelsMessage is the text returned when the catalog is empty
	NoModelsMessage = "Error: No AI models configured. Please run setup first."
	// InterruptedMessage is the text returned when the call was cancelled
	InterruptedMessage = "Interrupted before a model could answer."

	// FailedModel is what LastSelectedModel reports after a total failure
	FailedModel = "failed"

	// ModelAuto lets the selector pick the model
	ModelAuto = "auto"

	contextSkipPrefix = "Based on this request:"
)

// Dispatcher sends a prompt to a specific model
type Dispatcher interface {
	Dispatch(ctx context.Context, model Model, prompt string) (string, error)
}

// Attempt records one dispatch in the fallback chain
type Attempt struct {
	Model string
	Err   error
}

// Result is the outcome of RouteAndProcess. Text is always set: the model's
// answer on success, a user-facing explanation otherwise.
type Result struct {
	Text     string
	Model    string
	Err      error
	Attempts []Attempt
}

// OK reports whether a model answered
func (r Result) OK() bool {
	return r.Err == nil
}

// Interrupted reports whether the call was cancelled
func (r Result) Interrupted() bool {
	return errors.Is(r.Err, ErrInterrupted)
}

func (r Result) String() string {
	return r.Text
}

// Router picks the best model for a prompt and falls back through the
// catalog when dispatch fails
type Router struct {
	catalog    Catalog
	dispatcher Dispatcher
	logger     zerolog.Logger

	mu               sync.RWMutex
	developerContext string
	preferredModel   string
	lastSelected     string
}

// Option configures a Router
type Option func(*Router)

// WithDeveloperContext prepends context to every prompt
func WithDeveloperContext(s string) Option {
	return func(r *Router) { r.developerContext = s }
}

// WithPreferredModel tries the named model first instead of the selector's pick.
// "auto", empty or unknown names keep automatic selection.
func WithPreferredModel(name string) Option {
	return func(r *Router) { r.preferredModel = name }
}

// New creates a Router over catalog
func New(catalog Catalog, dispatcher Dispatcher, logger zerolog.Logger, opts ...Option) *Router {
	r := &Router{
		catalog:    catalog,
		dispatcher: dispatcher,
		logger:     logger.With().Str("component", "router").Logger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Catalog returns the models this router selects from
func (r *Router) Catalog() Catalog {
	return r.catalog
}

// SetDeveloperContext replaces the context prepended to prompts
func (r *Router) SetDeveloperContext(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.developerContext = s
}

// LastSelectedModel returns the model that produced the most recent answer,
// or "failed" if the last call exhausted the catalog. Concurrent callers
// should prefer Result.Model.
func (r *Router) LastSelectedModel() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastSelected
}

func (r *Router) setLastSelected(name string) {
	r.mu.Lock()
	r.lastSelected = name
	r.mu.Unlock()
}

// Enhance applies the developer context to a prompt
func (r *Router) Enhance(prompt string) string {
	r.mu.RLock()
	dc := r.developerContext
	r.mu.RUnlock()

	if dc == "" || strings.HasPrefix(prompt, contextSkipPrefix) {
		return prompt
	}
	return fmt.Sprintf("%s\n\nUser request: %s", dc, prompt)
}

// SelectModel returns the model the router would try first for prompt
func (r *Router) SelectModel(prompt string) (Model, error) {
	if r.preferredModel != "" && r.preferredModel != ModelAuto {
		if m, ok := r.catalog.Find(r.preferredModel); ok {
			return m, nil
		}
		r.logger.Warn().Str("model", r.preferredModel).Msg("preferred model not in catalog, selecting automatically")
	}
	return Select(r.catalog, Analyze(prompt))
}

// RouteAndProcess sends prompt to the best model, falling back through the
// rest of the catalog in order. It never returns an error: failures are
// reported through Result.Err with a user-facing Result.Text.
func (r *Router) RouteAndProcess(ctx context.Context, prompt, todoContext string) Result {
	enhanced := r.Enhance(prompt)

	first, err := r.SelectModel(enhanced)
	if err != nil {
		r.logger.Error().Err(err).Msg("model selection failed")
		return Result{Text: NoModelsMessage, Err: err}
	}

	ev := r.logger.Info().Str("model", first.Name)
	if todoContext != "" {
		ev = ev.Str("todo", todoContext)
	}
	ev.Msg("selected model")

	chain := make([]Model, 0, len(r.catalog))
	chain = append(chain, first)
	for _, m := range r.catalog {
		if m.Name != first.Name {
			chain = append(chain, m)
		}
	}

	var attempts []Attempt
	for i, m := range chain {
		if err := ctx.Err(); err != nil {
			return interrupted(attempts, err)
		}
		if i > 0 {
			r.logger.Info().Str("model", m.Name).Msg("trying fallback model")
		}

		text, err := r.dispatcher.Dispatch(ctx, m, enhanced)
		if err == nil {
			r.setLastSelected(m.Name)
			return Result{Text: text, Model: m.Name, Attempts: append(attempts, Attempt{Model: m.Name})}
		}

		attempts = append(attempts, Attempt{Model: m.Name, Err: err})
		if ctxErr := ctx.Err(); ctxErr != nil {
			return interrupted(attempts, ctxErr)
		}
		r.logger.Warn().Err(err).Str("model", m.Name).Msg("model failed")
	}

	r.setLastSelected(FailedModel)
	r.logger.Error().Int("attempts", len(attempts)).Msg("all models failed")
	return Result{
		Text:     AllFailedMessage,
		Model:    FailedModel,
		Err:      fmt.Errorf("%w: last error: %w", ErrAllModelsFailed, attempts[len(attempts)-1].Err),
		Attempts: attempts,
	}
}

func interrupted(attempts []Attempt, cause error) Result {
	return Result{
		Text:     InterruptedMessage,
		Err:      fmt.Errorf("%w: %w", ErrInterrupted, cause),
		Attempts: attempts,
	}
}
