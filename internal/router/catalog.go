package router

// Provider identifies an AI vendor
type Provider string

const (
	ProviderOpenAI     Provider = "openai"
	ProviderAnthropic  Provider = "anthropic"
	ProviderGoogle     Provider = "google"
	ProviderXAI        Provider = "xai"
	ProviderDeepSeek   Provider = "deepseek"
	ProviderMistral    Provider = "mistral"
	ProviderCohere     Provider = "cohere"
	ProviderPerplexity Provider = "perplexity"
)

// AllProviders lists every provider in catalog order
var AllProviders = []Provider{
	ProviderOpenAI, ProviderAnthropic, ProviderGoogle, ProviderXAI,
	ProviderDeepSeek, ProviderMistral, ProviderCohere, ProviderPerplexity,
}

// Model describes a model the router can dispatch to
type Model struct {
	Name          string
	Provider      Provider
	Strengths     []string
	ContextLength int
	CostPerToken  float64
	SpeedRating   int // 1-10
	Free          bool
}

// HasStrength reports whether the model lists the given strength tag
func (m Model) HasStrength(s string) bool {
	for _, st := range m.Strengths {
		if st == s {
			return true
		}
	}
	return false
}

// Catalog is the ordered list of selectable models. Order is significant:
// it breaks score ties and drives the fallback chain.
type Catalog []Model

// Find returns the model with the given name
func (c Catalog) Find(name string) (Model, bool) {
	for _, m := range c {
		if m.Name == name {
			return m, true
		}
	}
	return Model{}, false
}

// Names returns the model names in catalog order
func (c Catalog) Names() []string {
	names := make([]string, len(c))
	for i, m := range c {
		names[i] = m.Name
	}
	return names
}

// NewCatalog builds the catalog from the built-in model table, keeping models
// whose provider is available. With onlyFree set, paid models are skipped.
func NewCatalog(available []Provider, onlyFree bool) Catalog {
	ok := make(map[Provider]bool, len(available))
	for _, p := range available {
		ok[p] = true
	}

	var c Catalog
	for _, m := range BuiltinModels() {
		if !ok[m.Provider] {
			continue
		}
		if onlyFree && !m.Free {
			continue
		}
		c = append(c, m)
	}
	return c
}

// BuiltinModels returns the full model table in catalog order
func BuiltinModels() []Model {
	return []Model{
		{Name: "gpt-4o", Provider: ProviderOpenAI, Strengths: []string{"reasoning", "complex_tasks", "code_analysis", "multimodal", "general"}, ContextLength: 128000, CostPerToken: 0.005, SpeedRating: 8},
		{Name: "gpt-4o-mini", Provider: ProviderOpenAI, Strengths: []string{"speed", "general", "simple_tasks", "cost_effective"}, ContextLength: 128000, CostPerToken: 0.0002, SpeedRating: 9, Free: true},
		{Name: "gpt-4", Provider: ProviderOpenAI, Strengths: []string{"reasoning", "complex_tasks", "code_analysis", "general"}, ContextLength: 8192, CostPerToken: 0.03, SpeedRating: 6},
		{Name: "gpt-3.5-turbo", Provider: ProviderOpenAI, Strengths: []string{"speed", "general", "simple_tasks"}, ContextLength: 4096, CostPerToken: 0.002, SpeedRating: 9, Free: true},
		{Name: "gpt-4-turbo", Provider: ProviderOpenAI, Strengths: []string{"code", "reasoning", "large_context", "analysis"}, ContextLength: 128000, CostPerToken: 0.01, SpeedRating: 7},

		{Name: "claude-opus-4-20250514", Provider: ProviderAnthropic, Strengths: []string{"reasoning", "creative", "complex_analysis", "research", "writing"}, ContextLength: 200000, CostPerToken: 0.015, SpeedRating: 6},
		{Name: "claude-sonnet-4-20250514", Provider: ProviderAnthropic, Strengths: []string{"reasoning", "code", "balanced", "general", "analysis"}, ContextLength: 200000, CostPerToken: 0.003, SpeedRating: 8},
		{Name: "claude-3-7-sonnet-20250219", Provider: ProviderAnthropic, Strengths: []string{"reasoning", "code", "balanced", "general"}, ContextLength: 200000, CostPerToken: 0.003, SpeedRating: 8},
		{Name: "claude-3-5-sonnet-20241022", Provider: ProviderAnthropic, Strengths: []string{"reasoning", "creative", "complex_analysis", "code", "balanced"}, ContextLength: 200000, CostPerToken: 0.003, SpeedRating: 8},
		{Name: "claude-3-5-haiku-20241022", Provider: ProviderAnthropic, Strengths: []string{"speed", "simple_tasks", "quick_answers"}, ContextLength: 200000, CostPerToken: 0.00025, SpeedRating: 10, Free: true},
		{Name: "claude-3-opus-20240229", Provider: ProviderAnthropic, Strengths: []string{"reasoning", "creative", "complex_analysis"}, ContextLength: 200000, CostPerToken: 0.015, SpeedRating: 5},

		{Name: "gemini-1.5-pro", Provider: ProviderGoogle, Strengths: []string{"reasoning", "complex_tasks", "multimodal", "large_context", "analysis"}, ContextLength: 2000000, CostPerToken: 0.0035, SpeedRating: 7},
		{Name: "gemini-1.5-flash", Provider: ProviderGoogle, Strengths: []string{"speed", "general", "multimodal", "balanced"}, ContextLength: 1000000, CostPerToken: 0.00015, SpeedRating: 9, Free: true},
		{Name: "gemini-1.0-pro", Provider: ProviderGoogle, Strengths: []string{"general", "reasoning", "balanced"}, ContextLength: 32000, CostPerToken: 0.0005, SpeedRating: 8, Free: true},

		{Name: "grok-4", Provider: ProviderXAI, Strengths: []string{"reasoning", "general", "conversational"}, ContextLength: 32000, CostPerToken: 0.01, SpeedRating: 7},
		{Name: "deepseek-v3", Provider: ProviderDeepSeek, Strengths: []string{"code", "reasoning", "analysis"}, ContextLength: 64000, CostPerToken: 0.002, SpeedRating: 6},
		{Name: "deepseek-r1", Provider: ProviderDeepSeek, Strengths: []string{"reasoning", "analysis", "research"}, ContextLength: 64000, CostPerToken: 0.003, SpeedRating: 5},
		{Name: "mistral-large-2", Provider: ProviderMistral, Strengths: []string{"reasoning", "code", "general", "multilingual"}, ContextLength: 128000, CostPerToken: 0.006, SpeedRating: 7},
		{Name: "command-r-plus", Provider: ProviderCohere, Strengths: []string{"general", "reasoning", "commands", "retrieval"}, ContextLength: 128000, CostPerToken: 0.005, SpeedRating: 6},
		{Name: "pplx-70b-online", Provider: ProviderPerplexity, Strengths: []string{"search", "general", "realtime", "web_access"}, ContextLength: 4000, CostPerToken: 0.001, SpeedRating: 8},
	}
}
