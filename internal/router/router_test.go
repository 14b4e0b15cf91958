package router

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDispatcher struct {
	mu      sync.Mutex
	answers map[string]string // model -> answer; missing models fail
	calls   []string
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, m Model, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, m.Name)
	if ans, ok := f.answers[m.Name]; ok {
		return ans, nil
	}
	return "", NewDispatchError(m.Provider, m.Name, 500, errors.New("boom"))
}

func testCatalog() Catalog {
	return Catalog{
		{Name: "coder", Provider: ProviderOpenAI, Strengths: []string{"code"}, ContextLength: 8000, CostPerToken: 0.01, SpeedRating: 5},
		{Name: "writer", Provider: ProviderAnthropic, Strengths: []string{"creative"}, ContextLength: 8000, CostPerToken: 0.01, SpeedRating: 5},
		{Name: "backup", Provider: ProviderGoogle, Strengths: []string{"general"}, ContextLength: 8000, CostPerToken: 0.01, SpeedRating: 5},
	}
}

func TestRouteAndProcess_FirstChoiceSucceeds(t *testing.T) {
	d := &fakeDispatcher{answers: map[string]string{"coder": "fixed it"}}
	r := New(testCatalog(), d, zerolog.Nop())

	res := r.RouteAndProcess(context.Background(), "Fix this Python function that's throwing an error", "")

	require.True(t, res.OK())
	assert.Equal(t, "fixed it", res.Text)
	assert.Equal(t, "coder", res.Model)
	assert.Equal(t, "coder", r.LastSelectedModel())
	assert.Equal(t, []string{"coder"}, d.calls)
}

func TestRouteAndProcess_FallbackUpdatesLastSelected(t *testing.T) {
	d := &fakeDispatcher{answers: map[string]string{"backup": "from backup"}}
	r := New(testCatalog(), d, zerolog.Nop())

	res := r.RouteAndProcess(context.Background(), "Fix this Python function that's throwing an error", "todo-1")

	require.True(t, res.OK())
	assert.Equal(t, "from backup", res.Text)
	assert.Equal(t, "backup", res.Model)
	assert.Equal(t, "backup", r.LastSelectedModel())
	assert.Equal(t, []string{"coder", "writer", "backup"}, d.calls)
	assert.Len(t, res.Attempts, 3)
}

func TestRouteAndProcess_AllFail(t *testing.T) {
	d := &fakeDispatcher{}
	r := New(testCatalog(), d, zerolog.Nop())

	res := r.RouteAndProcess(context.Background(), "hello", "")

	assert.False(t, res.OK())
	assert.Equal(t, AllFailedMessage, res.Text)
	assert.Contains(t, res.String(), "unavailable")
	assert.ErrorIs(t, res.Err, ErrAllModelsFailed)
	assert.ErrorIs(t, res.Err, ErrProvider)
	assert.Equal(t, FailedModel, r.LastSelectedModel())
	assert.Len(t, d.calls, 3)
}

func TestRouteAndProcess_EmptyCatalog(t *testing.T) {
	r := New(nil, &fakeDispatcher{}, zerolog.Nop())

	res := r.RouteAndProcess(context.Background(), "hello", "")

	assert.ErrorIs(t, res.Err, ErrEmptyCatalog)
	assert.Equal(t, NoModelsMessage, res.Text)
}

func TestRouteAndProcess_CancelledContext(t *testing.T) {
	d := &fakeDispatcher{answers: map[string]string{"coder": "x"}}
	r := New(testCatalog(), d, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := r.RouteAndProcess(ctx, "write code", "")

	assert.True(t, res.Interrupted())
	assert.Empty(t, d.calls)
}

func TestRouteAndProcess_PreferredModel(t *testing.T) {
	d := &fakeDispatcher{answers: map[string]string{"writer": "poem", "coder": "code"}}
	r := New(testCatalog(), d, zerolog.Nop(), WithPreferredModel("writer"))

	res := r.RouteAndProcess(context.Background(), "Fix this Python function", "")
	assert.Equal(t, "writer", res.Model)

	r = New(testCatalog(), d, zerolog.Nop(), WithPreferredModel("unknown"))
	res = r.RouteAndProcess(context.Background(), "Fix this Python function", "")
	assert.Equal(t, "coder", res.Model)
}

func TestEnhance(t *testing.T) {
	r := New(testCatalog(), &fakeDispatcher{}, zerolog.Nop(), WithDeveloperContext("Go developer"))

	assert.Equal(t, "Go developer\n\nUser request: hi", r.Enhance("hi"))
	assert.Equal(t, "Based on this request: hi", r.Enhance("Based on this request: hi"))

	r.SetDeveloperContext("")
	assert.Equal(t, "hi", r.Enhance("hi"))
}

func TestAnalyze_AllKeysNonNegative(t *testing.T) {
	prompts := []string{
		"",
		"   ",
		"quick question",
		"Write a comprehensive, detailed analysis of this algorithm and explain why it works",
		strings.Repeat("long prompt ", 200),
	}
	for _, p := range prompts {
		f := Analyze(p)
		assert.Len(t, f, len(AllFeatures))
		for _, feat := range AllFeatures {
			v, ok := f[feat]
			assert.True(t, ok, "missing %s", feat)
			assert.GreaterOrEqual(t, v, 0.0)
		}
	}
}

func TestAnalyze_Weights(t *testing.T) {
	f := Analyze("debug this function")
	assert.InDelta(t, 0.8, f[FeatureCode], 1e-9)
	assert.InDelta(t, 0.5, f[FeatureSimpleTasks], 1e-9)
	assert.InDelta(t, 0.3, f[FeatureSpeed], 1e-9)

	long := Analyze(strings.Repeat("x", 1001))
	assert.InDelta(t, 0.7, long[FeatureLargeContext], 1e-9)
	assert.InDelta(t, 0.4, long[FeatureComplexTasks], 1e-9)

	empty := Analyze("")
	for _, v := range empty {
		assert.Zero(t, v)
	}
}

func TestSelect_EmptyCatalog(t *testing.T) {
	_, err := Select(nil, Analyze("hi"))
	assert.ErrorIs(t, err, ErrEmptyCatalog)
}

func TestSelect_ReturnsCatalogMember(t *testing.T) {
	catalog := NewCatalog(AllProviders, false)
	names := map[string]bool{}
	for _, m := range catalog {
		names[m.Name] = true
	}

	for _, p := range []string{"", "quick", "write a story", "debug the repository", strings.Repeat("analyze ", 300)} {
		m, err := Select(catalog, Analyze(p))
		require.NoError(t, err)
		assert.True(t, names[m.Name], "selected %s not in catalog", m.Name)
	}
}

func TestSelect_PrefersCodeModelForCodePrompt(t *testing.T) {
	catalog := Catalog{
		{Name: "creative-only", Strengths: []string{"creative"}, CostPerToken: 0.01, SpeedRating: 5, ContextLength: 1000},
		{Name: "code-capable", Strengths: []string{"code"}, CostPerToken: 0.01, SpeedRating: 5, ContextLength: 1000},
	}

	m, err := Select(catalog, Analyze("Fix this Python function that's throwing an error"))
	require.NoError(t, err)
	assert.Equal(t, "code-capable", m.Name)
}

func TestSelect_TiesGoToFirst(t *testing.T) {
	catalog := Catalog{
		{Name: "first", Strengths: []string{"general"}, CostPerToken: 0.01},
		{Name: "second", Strengths: []string{"general"}, CostPerToken: 0.01},
	}
	m, err := Select(catalog, Analyze(""))
	require.NoError(t, err)
	assert.Equal(t, "first", m.Name)

	ranked := Rank(catalog, Analyze(""))
	assert.Equal(t, "first", ranked[0].Model.Name)
}

func TestNewCatalog(t *testing.T) {
	free := NewCatalog([]Provider{ProviderOpenAI}, true)
	assert.Equal(t, []string{"gpt-4o-mini", "gpt-3.5-turbo"}, free.Names())

	all := NewCatalog([]Provider{ProviderOpenAI}, false)
	assert.Len(t, all, 5)
	assert.Equal(t, "gpt-4o", all[0].Name)

	assert.Empty(t, NewCatalog(nil, false))

	m, ok := all.Find("gpt-4-turbo")
	require.True(t, ok)
	assert.True(t, m.HasStrength("large_context"))
}

func TestKindForStatus(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{404, ErrModelNotFound},
		{401, ErrAuthentication},
		{403, ErrAuthentication},
		{429, ErrRateLimit},
		{500, ErrProvider},
		{0, ErrProvider},
	}
	for _, tt := range tests {
		err := NewDispatchError(ProviderOpenAI, "m", tt.status, errors.New("x"))
		assert.ErrorIs(t, err, tt.want, "status %d", tt.status)
	}
}
