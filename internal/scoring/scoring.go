// Package scoring fuses extracted entities, job-required skills and
// similarity scores into match ratios, a final score and a recommendation.
package scoring

import (
	"math"

	"alfredoptarigan/resume-matcher/internal/extraction"
	"alfredoptarigan/resume-matcher/internal/similarity"
)

type Recommendation string

const (
	StrongMatch Recommendation = "Strong Match"
	GoodMatch   Recommendation = "Good Match"
	WeakMatch   Recommendation = "Weak Match"
	PoorMatch   Recommendation = "Poor Match"
)

const (
	experienceNormalizationYears = 5.0
	educationPresentRatio        = 0.8
	educationAbsentRatio         = 0.3
)

type MatchRatios struct {
	SkillMatchRatio      float64 `json:"skill_match_ratio"`
	ExperienceMatchRatio float64 `json:"experience_match_ratio"`
	EducationMatchRatio  float64 `json:"education_match_ratio"`
}

type EvaluationResult struct {
	ID                    string                    `json:"id,omitempty"`
	ParsedEntities        extraction.ParsedEntities `json:"parsed_entities"`
	SimilarityScores      map[string]float64        `json:"similarity_scores"`
	SimilarityDiagnostics map[string]string         `json:"similarity_diagnostics,omitempty"`
	MatchRatios
	FinalScore         float64            `json:"final_score"`
	BestModelName      string             `json:"best_model_name"`
	MatchedSkills      []string           `json:"matched_skills"`
	MissingSkills      []string           `json:"missing_skills"`
	Recommendation     Recommendation     `json:"recommendation"`
	FeatureImportances map[string]float64 `json:"feature_importances"`
}

// Engine is stateless apart from its validated configuration.
type Engine struct {
	cfg Config
}

func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg}, nil
}

func (e *Engine) Config() Config {
	return e.cfg
}

// Score builds the result for one evaluation. BestModelName is left empty
// for the caller to fill from the domain registry.
func (e *Engine) Score(entities extraction.ParsedEntities, jobText string, scores similarity.ScoreSet) EvaluationResult {
	jobSkills := extraction.MatchSkills(jobText, extraction.JobSkillVocabulary)
	matched, missing := PartitionSkills(entities.Skills, jobSkills)

	ratios := MatchRatios{
		SkillMatchRatio:      SkillMatchRatio(entities.Skills, jobSkills),
		ExperienceMatchRatio: ExperienceMatchRatio(float64(entities.ExperienceYears)),
		EducationMatchRatio:  EducationMatchRatio(entities.Education),
	}

	final := FinalScore(e.cfg.Weights, scores.Best(), ratios)

	return EvaluationResult{
		ParsedEntities:        entities,
		SimilarityScores:      scores.Values(),
		SimilarityDiagnostics: scores.Diagnostics(),
		MatchRatios:           ratios,
		FinalScore:            final,
		MatchedSkills:         matched,
		MissingSkills:         missing,
		Recommendation:        Recommend(e.cfg.Thresholds, final),
		FeatureImportances:    e.cfg.Weights.FeatureImportances(),
	}
}

// SkillMatchRatio is the share of job skills contained in some resume skill.
// It is 0 when the job requires no skills.
func SkillMatchRatio(resumeSkills, jobSkills []string) float64 {
	if len(jobSkills) == 0 {
		return 0
	}
	matched, _ := PartitionSkills(resumeSkills, jobSkills)
	return float64(len(matched)) / float64(len(jobSkills))
}

// PartitionSkills splits job skills into those found in the resume skills
// and those missing. The two slices are disjoint and cover jobSkills.
func PartitionSkills(resumeSkills, jobSkills []string) (matched, missing []string) {
	matched, missing = []string{}, []string{}
	for _, skill := range jobSkills {
		if extraction.HasSkill(resumeSkills, skill) {
			matched = append(matched, skill)
		} else {
			missing = append(missing, skill)
		}
	}
	return matched, missing
}

func ExperienceMatchRatio(years float64) float64 {
	if years <= 0 {
		return 0
	}
	return math.Min(1, years/experienceNormalizationYears)
}

func EducationMatchRatio(education []string) float64 {
	if len(education) > 0 {
		return educationPresentRatio
	}
	return educationAbsentRatio
}

// FinalScore is the weighted sum of the factors, clamped into [0, 1].
func FinalScore(w Weights, bestSimilarity float64, r MatchRatios) float64 {
	score := w.CosineSimilarity*bestSimilarity +
		w.SkillMatch*r.SkillMatchRatio +
		w.ExperienceMatch*r.ExperienceMatchRatio +
		w.EducationMatch*r.EducationMatchRatio

	if math.IsNaN(score) {
		return 0
	}
	return math.Min(1, math.Max(0, score))
}

// Recommend returns the first tier whose threshold the score meets.
func Recommend(t Thresholds, score float64) Recommendation {
	switch {
	case score >= t.StrongMatch:
		return StrongMatch
	case score >= t.GoodMatch:
		return GoodMatch
	case score >= t.WeakMatch:
		return WeakMatch
	default:
		return PoorMatch
	}
}
