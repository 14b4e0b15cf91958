package router

import "sort"

// Scored pairs a model with its score for a prompt
type Scored struct {
	Model Model
	Score float64
}

// Score rates how well a model fits the analyzed prompt
func Score(m Model, f Features) float64 {
	var score float64
	for _, s := range m.Strengths {
		if w, ok := f[Feature(s)]; ok {
			score += w * 10
		}
	}
	if f[FeatureSpeed] > 0.5 {
		score += float64(m.SpeedRating) * f[FeatureSpeed]
	}
	if f[FeatureSimpleTasks] > 0.5 && m.CostPerToken > 0 {
		score += (1 / m.CostPerToken) * 0.1
	}
	if f[FeatureLargeContext] > 0.5 {
		score += float64(m.ContextLength) / 10000 * f[FeatureLargeContext]
	}
	return score
}

// Select returns the highest scoring model. Ties go to the earlier catalog entry.
func Select(c Catalog, f Features) (Model, error) {
	if len(c) == 0 {
		return Model{}, ErrEmptyCatalog
	}
	best, bestScore := c[0], Score(c[0], f)
	for _, m := range c[1:] {
		if s := Score(m, f); s > bestScore {
			best, bestScore = m, s
		}
	}
	return best, nil
}

// Rank scores every model, best first, keeping catalog order among equals
func Rank(c Catalog, f Features) []Scored {
	ranked := make([]Scored, len(c))
	for i, m := range c {
		ranked[i] = Scored{Model: m, Score: Score(m, f)}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked
}
