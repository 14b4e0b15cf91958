// Package multitask processes todos concurrently against the AI router.
package multitask

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hochfrequenz/twodo/internal/domain"
	"github.com/hochfrequenz/twodo/internal/prompts"
	"github.com/hochfrequenz/twodo/internal/router"
	"github.com/hochfrequenz/twodo/internal/todostore"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

const (
	// DefaultMaxWorkers bounds how many todos are in flight at once
	DefaultMaxWorkers = 5

	// InterruptedNote is stored on todos reset to pending by cancellation
	InterruptedNote = "Interrupted before completion; will retry on next run"

	noTodosMessage = "No todos to process"
	todoContextLen = 50
)

// AI answers prompts; *router.Router implements it
type AI interface {
	RouteAndProcess(ctx context.Context, prompt, todoContext string) router.Result
}

// TodoStore persists status transitions; *todostore.Store implements it
type TodoStore interface {
	UpdateStatus(ctx context.Context, id string, status domain.TodoStatus, upd todostore.StatusUpdate) error
}

// Mode selects flat or parent-then-children processing
type Mode int

const (
	// ModeFlat processes every todo as one batch
	ModeFlat Mode = iota
	// ModeHierarchical finishes all parents before any sub-task starts
	ModeHierarchical
)

func (m Mode) String() string {
	if m == ModeHierarchical {
		return "hierarchical"
	}
	return "flat"
}

// TodoResult is the outcome for one todo
type TodoResult struct {
	TodoID   string
	Title    string
	Status   domain.TodoStatus
	Model    string
	Output   string
	Err      error
	Started  bool
	Duration time.Duration
}

// Report summarizes a batch
type Report struct {
	Success     bool
	Message     string
	Mode        Mode
	Results     []TodoResult
	Interrupted bool
	Completed   int
	Failed      int
	Pending     int
	Metrics     Metrics
}

// Multitasker fans todos out to the router with bounded concurrency
type Multitasker struct {
	ai         AI
	store      TodoStore
	logger     zerolog.Logger
	maxWorkers int
	observer   *Observer
	prompts    *prompts.Loader
}

// Option configures a Multitasker
type Option func(*Multitasker)

// WithMaxWorkers overrides DefaultMaxWorkers
func WithMaxWorkers(n int) Option {
	return func(m *Multitasker) {
		if n > 0 {
			m.maxWorkers = n
		}
	}
}

// WithObserver shares an observer across Multitaskers
func WithObserver(o *Observer) Option {
	return func(m *Multitasker) { m.observer = o }
}

// WithPrompts renders todo prompts through l, picking up template overrides
func WithPrompts(l *prompts.Loader) Option {
	return func(m *Multitasker) {
		if l != nil {
			m.prompts = l
		}
	}
}

// New creates a Multitasker
func New(ai AI, store TodoStore, logger zerolog.Logger, opts ...Option) *Multitasker {
	m := &Multitasker{
		ai:         ai,
		store:      store,
		logger:     logger.With().Str("component", "multitask").Logger(),
		maxWorkers: DefaultMaxWorkers,
		observer:   NewObserver(),
		prompts:    prompts.Embedded(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// MaxWorkers returns the concurrency bound
func (m *Multitasker) MaxWorkers() int {
	return m.maxWorkers
}

// Start processes todos and blocks until they finish or ctx is cancelled.
// Cancelling ctx stops admission of new todos; admitted todos that have not
// produced an answer are reset to pending.
func (m *Multitasker) Start(ctx context.Context, todos []*domain.Todo, mode Mode) Report {
	if len(todos) == 0 {
		return Report{Success: false, Message: noTodosMessage, Mode: mode}
	}

	var parents, children []*domain.Todo
	for _, td := range todos {
		if td.IsSubTask() {
			children = append(children, td)
		} else {
			parents = append(parents, td)
		}
	}

	var results []TodoResult
	if mode == ModeHierarchical && len(parents) > 0 && len(children) > 0 {
		m.logger.Info().Int("parents", len(parents)).Int("children", len(children)).Msg("processing parents first")
		results = m.runBatch(ctx, parents)
		m.logger.Info().Msg("processing sub-tasks")
		results = append(results, m.runBatch(ctx, children)...)
	} else {
		mode = ModeFlat
		results = m.runBatch(ctx, todos)
	}

	rep := Report{Mode: mode, Results: results, Metrics: m.observer.Metrics()}
	for _, r := range results {
		switch r.Status {
		case domain.StatusCompleted:
			rep.Completed++
		case domain.StatusFailed:
			rep.Failed++
		default:
			rep.Pending++
		}
		if errors.Is(r.Err, router.ErrInterrupted) {
			rep.Interrupted = true
		}
	}

	rep.Success = !rep.Interrupted
	if rep.Interrupted {
		rep.Message = fmt.Sprintf("Interrupted: %d completed, %d failed, %d left pending", rep.Completed, rep.Failed, rep.Pending)
	} else {
		rep.Message = fmt.Sprintf("Processed %d todos: %d completed, %d failed", len(results), rep.Completed, rep.Failed)
	}
	m.logger.Info().
		Int("completed", rep.Completed).
		Int("failed", rep.Failed).
		Int("pending", rep.Pending).
		Bool("interrupted", rep.Interrupted).
		Msg("batch finished")
	return rep
}

// runBatch processes todos with at most maxWorkers in flight
func (m *Multitasker) runBatch(ctx context.Context, todos []*domain.Todo) []TodoResult {
	results := make([]TodoResult, len(todos))
	sem := semaphore.NewWeighted(int64(m.maxWorkers))
	var g errgroup.Group

	for i, td := range todos {
		// Acquire may succeed on a done context, so check first.
		err := ctx.Err()
		if err == nil {
			err = sem.Acquire(ctx, 1)
		}
		if err != nil {
			for j := i; j < len(todos); j++ {
				results[j] = notStarted(todos[j], err)
			}
			break
		}

		g.Go(func() error {
			defer sem.Release(1)
			results[i] = m.process(ctx, td)
			return nil
		})
	}

	_ = g.Wait()
	return results
}

func notStarted(td *domain.Todo, cause error) TodoResult {
	return TodoResult{
		TodoID: td.ID,
		Title:  td.Title,
		Status: td.Status,
		Err:    fmt.Errorf("%w: %w", router.ErrInterrupted, cause),
	}
}

// process runs the unit of work for one todo. It never panics and never
// leaves the todo in progress.
func (m *Multitasker) process(ctx context.Context, td *domain.Todo) (res TodoResult) {
	start := time.Now()
	res = TodoResult{TodoID: td.ID, Title: td.Title, Started: true}
	log := m.logger.With().Str("todo", td.ID).Logger()

	// Status writes must land even after ctx is cancelled.
	persistCtx := context.WithoutCancel(ctx)

	defer func() {
		if p := recover(); p != nil {
			res = m.fail(persistCtx, td, res, fmt.Errorf("panic: %v", p))
		}
		res.Duration = time.Since(start)
		m.observer.Record(td.ID, res.Model, res.Status, res.Duration)
	}()

	if err := m.store.UpdateStatus(persistCtx, td.ID, domain.StatusInProgress, todostore.StatusUpdate{}); err != nil {
		return m.fail(persistCtx, td, res, fmt.Errorf("marking in progress: %w", err))
	}
	td.Status = domain.StatusInProgress
	log.Debug().Msg("in progress")

	prompt, err := m.prompts.BuildTodoPrompt(PromptData(td))
	if err != nil {
		return m.fail(persistCtx, td, res, fmt.Errorf("building prompt: %w", err))
	}

	if err := ctx.Err(); err != nil {
		return m.reset(persistCtx, td, res, err)
	}

	out := m.ai.RouteAndProcess(ctx, prompt, domain.Truncate(td.Title, todoContextLen))
	if out.Interrupted() {
		return m.reset(persistCtx, td, res, out.Err)
	}

	// A router that exhausted every model still yields text; the todo is
	// completed with that explanation.
	upd := todostore.StatusUpdate{Result: out.Text, AssignedModel: out.Model}
	if err := m.store.UpdateStatus(persistCtx, td.ID, domain.StatusCompleted, upd); err != nil {
		return m.fail(persistCtx, td, res, fmt.Errorf("saving result: %w", err))
	}

	td.Status = domain.StatusCompleted
	td.Result = out.Text
	td.AssignedModel = out.Model
	td.UpdatedAt = time.Now()

	res.Status = domain.StatusCompleted
	res.Model = out.Model
	res.Output = out.Text
	res.Err = out.Err
	log.Info().Str("model", out.Model).Bool("ok", out.OK()).Msg("completed")
	return res
}

// reset returns an interrupted todo to pending
func (m *Multitasker) reset(ctx context.Context, td *domain.Todo, res TodoResult, cause error) TodoResult {
	if !errors.Is(cause, router.ErrInterrupted) {
		cause = fmt.Errorf("%w: %w", router.ErrInterrupted, cause)
	}
	if err := m.store.UpdateStatus(ctx, td.ID, domain.StatusPending, todostore.StatusUpdate{Result: InterruptedNote}); err != nil {
		m.logger.Warn().Err(err).Str("todo", td.ID).Msg("failed to reset interrupted todo")
	}
	td.Status = domain.StatusPending
	td.Result = InterruptedNote

	res.Status = domain.StatusPending
	res.Output = InterruptedNote
	res.Err = cause
	m.logger.Info().Str("todo", td.ID).Msg("interrupted, reset to pending")
	return res
}

// fail marks a todo failed. If that cannot be persisted, only the
// in-memory todo is updated so the original error is not masked.
func (m *Multitasker) fail(ctx context.Context, td *domain.Todo, res TodoResult, cause error) TodoResult {
	msg := cause.Error()
	if err := m.store.UpdateStatus(ctx, td.ID, domain.StatusFailed, todostore.StatusUpdate{Result: msg}); err != nil {
		m.logger.Error().Err(err).Str("todo", td.ID).Msg("failed to persist failure, updating in memory only")
	}
	td.Status = domain.StatusFailed
	td.Result = msg
	td.UpdatedAt = time.Now()

	res.Status = domain.StatusFailed
	res.Output = msg
	res.Err = cause
	m.logger.Error().Err(cause).Str("todo", td.ID).Msg("failed")
	return res
}
