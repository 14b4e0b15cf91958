package router

import "strings"

// Feature is one dimension of a prompt's requirements
type Feature string

const (
	FeatureCode         Feature = "code"
	FeatureReasoning    Feature = "reasoning"
	FeatureCreative     Feature = "creative"
	FeatureSpeed        Feature = "speed"
	FeatureAnalysis     Feature = "analysis"
	FeatureSimpleTasks  Feature = "simple_tasks"
	FeatureComplexTasks Feature = "complex_tasks"
	FeatureLargeContext Feature = "large_context"
)

// AllFeatures is the closed set of features every analysis carries
var AllFeatures = []Feature{
	FeatureCode, FeatureReasoning, FeatureCreative, FeatureSpeed,
	FeatureAnalysis, FeatureSimpleTasks, FeatureComplexTasks, FeatureLargeContext,
}

// Features maps each feature to a non-negative weight
type Features map[Feature]float64

type keywordRule struct {
	feature  Feature
	weight   float64
	keywords []string
}

var keywordRules = []keywordRule{
	{FeatureCode, 0.8, []string{"code", "programming", "function", "class", "debug", "script", "algorithm", "git", "repository"}},
	{FeatureReasoning, 0.7, []string{"analyze", "explain", "why", "how", "compare", "evaluate", "reason", "logic"}},
	{FeatureCreative, 0.6, []string{"create", "write", "story", "creative", "generate", "design", "idea"}},
	{FeatureSpeed, 0.9, []string{"quick", "fast", "simple", "brief", "short"}},
	{FeatureComplexTasks, 0.8, []string{"complex", "detailed", "comprehensive", "thorough", "deep"}},
	{FeatureAnalysis, 0.6, []string{"analysis", "review", "audit", "inspect", "assess"}},
}

const (
	shortPromptLen = 100
	longPromptLen  = 1000
)

// Analyze scores a prompt against the keyword rules and its length.
// It is pure and never fails; blank input yields all zeros.
func Analyze(prompt string) Features {
	f := make(Features, len(AllFeatures))
	for _, feat := range AllFeatures {
		f[feat] = 0
	}
	if strings.TrimSpace(prompt) == "" {
		return f
	}

	lower := strings.ToLower(prompt)
	for _, rule := range keywordRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				f[rule.feature] += rule.weight
				break
			}
		}
	}

	switch n := len([]rune(prompt)); {
	case n < shortPromptLen:
		f[FeatureSimpleTasks] += 0.5
		f[FeatureSpeed] += 0.3
	case n > longPromptLen:
		f[FeatureLargeContext] += 0.7
		f[FeatureComplexTasks] += 0.4
	}
	return f
}
