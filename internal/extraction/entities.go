// Package extraction turns raw resume text into structured candidate
// attributes: skills, job titles, companies, education and years of experience.
package extraction

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"alfredoptarigan/resume-matcher/internal/logger"
)

// ParsedEntities is built once per evaluation and not modified afterwards.
type ParsedEntities struct {
	Skills          []string `json:"skills"`
	JobTitles       []string `json:"job_titles"`
	Companies       []string `json:"companies"`
	Education       []string `json:"education"`
	ExperienceYears int      `json:"experience_years"`
	RawText         string   `json:"raw_text"`
}

type Category int

const (
	CategoryIgnore Category = iota
	CategoryJobTitle
	CategoryCompany
	CategoryEducation
)

// EntityRule maps an entity to a category when Match returns true.
type EntityRule struct {
	Name     string
	Match    func(Entity) bool
	Category Category
}

var (
	jobTitleCues  = []string{"engineer", "developer"}
	educationCues = []string{"university", "college", "bachelor", "degree", "phd"}
)

// EntityRules is evaluated in order for every entity; the first match wins.
// Entities matching no rule are dropped.
var EntityRules = []EntityRule{
	{
		Name:     "person",
		Match:    func(e Entity) bool { return e.Label == LabelPerson },
		Category: CategoryIgnore,
	},
	{
		Name:     "job_title_cue",
		Match:    func(e Entity) bool { return containsAny(e.Text, jobTitleCues) },
		Category: CategoryJobTitle,
	},
	{
		Name:     "organization",
		Match:    func(e Entity) bool { return e.Label == LabelOrg },
		Category: CategoryCompany,
	},
	{
		Name:     "education_cue",
		Match:    func(e Entity) bool { return e.Label == LabelEducation || containsAny(e.Text, educationCues) },
		Category: CategoryEducation,
	},
}

// Classify returns the category of the first rule matching e.
func Classify(e Entity) (Category, bool) {
	for _, rule := range EntityRules {
		if rule.Match(e) {
			return rule.Category, true
		}
	}
	return CategoryIgnore, false
}

type Extractor struct {
	recognizer Recognizer
	logger     *zap.Logger
}

func NewExtractor(recognizer Recognizer, log *zap.Logger) *Extractor {
	if recognizer == nil {
		recognizer = NewRuleRecognizer()
	}
	return &Extractor{
		recognizer: recognizer,
		logger:     logger.Component(log, "extraction"),
	}
}

// Extract never fails. A recognizer error is logged and treated as "no
// entities"; skills and experience are still extracted.
func (x *Extractor) Extract(ctx context.Context, text string) ParsedEntities {
	parsed := ParsedEntities{
		Skills:          MatchSkills(text, ResumeSkillVocabulary),
		JobTitles:       []string{},
		Companies:       []string{},
		Education:       []string{},
		ExperienceYears: ExtractExperienceYears(text),
		RawText:         text,
	}
	if parsed.Skills == nil {
		parsed.Skills = []string{}
	}

	if strings.TrimSpace(text) == "" {
		return parsed
	}

	entities, err := x.recognizer.Recognize(ctx, text)
	if err != nil {
		x.logger.Warn("entity recognition unavailable, continuing without entities", zap.Error(err))
		return parsed
	}

	for _, e := range entities {
		category, _ := Classify(e)
		switch category {
		case CategoryJobTitle:
			parsed.JobTitles = append(parsed.JobTitles, e.Text)
		case CategoryCompany:
			parsed.Companies = append(parsed.Companies, e.Text)
		case CategoryEducation:
			parsed.Education = append(parsed.Education, e.Text)
		}
	}

	return parsed
}

func containsAny(text string, cues []string) bool {
	lower := strings.ToLower(text)
	for _, cue := range cues {
		if strings.Contains(lower, cue) {
			return true
		}
	}
	return false
}
