package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"alfredoptarigan/resume-matcher/internal/scoring"
)

// LoadScoring builds the scoring weights and thresholds. Defaults come first,
// then the optional file at path (yaml, json or toml), then SCORING_* env
// vars such as SCORING_WEIGHTS_SKILL_MATCH. The result is validated.
func LoadScoring(path string) (scoring.Config, error) {
	v := viper.New()

	def := scoring.DefaultConfig()
	v.SetDefault("weights.cosine_similarity", def.Weights.CosineSimilarity)
	v.SetDefault("weights.skill_match", def.Weights.SkillMatch)
	v.SetDefault("weights.experience_match", def.Weights.ExperienceMatch)
	v.SetDefault("weights.education_match", def.Weights.EducationMatch)
	v.SetDefault("thresholds.strong_match", def.Thresholds.StrongMatch)
	v.SetDefault("thresholds.good_match", def.Thresholds.GoodMatch)
	v.SetDefault("thresholds.weak_match", def.Thresholds.WeakMatch)

	v.SetEnvPrefix("SCORING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return scoring.Config{}, fmt.Errorf("failed to read scoring config %s: %w", path, err)
		}
	}

	var cfg scoring.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return scoring.Config{}, fmt.Errorf("failed to decode scoring config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return scoring.Config{}, fmt.Errorf("invalid scoring config: %w", err)
	}
	return cfg, nil
}
