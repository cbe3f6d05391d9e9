package scoring

import (
	"fmt"
)

// Weights are the contributions of each factor to the final score.
type Weights struct {
	CosineSimilarity float64 `mapstructure:"cosine_similarity" json:"cosine_similarity"`
	SkillMatch       float64 `mapstructure:"skill_match" json:"skill_match"`
	ExperienceMatch  float64 `mapstructure:"experience_match" json:"experience_match"`
	EducationMatch   float64 `mapstructure:"education_match" json:"education_match"`
}

// Thresholds are the lower bounds of the recommendation tiers.
type Thresholds struct {
	StrongMatch float64 `mapstructure:"strong_match" json:"strong_match"`
	GoodMatch   float64 `mapstructure:"good_match" json:"good_match"`
	WeakMatch   float64 `mapstructure:"weak_match" json:"weak_match"`
}

type Config struct {
	Weights    Weights    `mapstructure:"weights" json:"weights"`
	Thresholds Thresholds `mapstructure:"thresholds" json:"thresholds"`
}

func DefaultConfig() Config {
	return Config{
		Weights: Weights{
			CosineSimilarity: 0.4,
			SkillMatch:       0.3,
			ExperienceMatch:  0.2,
			EducationMatch:   0.1,
		},
		Thresholds: Thresholds{
			StrongMatch: 0.8,
			GoodMatch:   0.6,
			WeakMatch:   0.4,
		},
	}
}

// Validate requires non-negative weights with a positive sum and thresholds
// strictly descending inside [0, 1].
func (c Config) Validate() error {
	w := c.Weights
	named := map[string]float64{
		"cosine_similarity": w.CosineSimilarity,
		"skill_match":       w.SkillMatch,
		"experience_match":  w.ExperienceMatch,
		"education_match":   w.EducationMatch,
	}
	for name, v := range named {
		if v < 0 {
			return fmt.Errorf("weight %s must be non-negative, got %v", name, v)
		}
	}
	if w.CosineSimilarity+w.SkillMatch+w.ExperienceMatch+w.EducationMatch <= 0 {
		return fmt.Errorf("weights must not all be zero")
	}

	t := c.Thresholds
	if t.StrongMatch > 1 || t.WeakMatch < 0 {
		return fmt.Errorf("thresholds must lie in [0, 1]")
	}
	if !(t.StrongMatch > t.GoodMatch && t.GoodMatch > t.WeakMatch) {
		return fmt.Errorf("thresholds must be strictly descending: strong=%v good=%v weak=%v",
			t.StrongMatch, t.GoodMatch, t.WeakMatch)
	}
	return nil
}

// FeatureImportances echoes the configured weights keyed by factor name.
func (w Weights) FeatureImportances() map[string]float64 {
	return map[string]float64{
		"cosine_similarity": w.CosineSimilarity,
		"skill_match":       w.SkillMatch,
		"experience_match":  w.ExperienceMatch,
		"education_match":   w.EducationMatch,
	}
}
