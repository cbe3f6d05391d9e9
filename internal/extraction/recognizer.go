package extraction

import (
	"context"
	"regexp"
	"strings"
)

// Entity labels produced by recognizers. They follow the usual NER naming so
// model-backed recognizers can return their native labels unchanged.
const (
	LabelPerson    = "PERSON"
	LabelOrg       = "ORG"
	LabelTitle     = "TITLE"
	LabelEducation = "EDUCATION"
	LabelProduct   = "PRODUCT"
	LabelMisc      = "MISC"
)

type Entity struct {
	Text  string `json:"text"`
	Label string `json:"label"`
}

// Recognizer finds named entities in free text.
type Recognizer interface {
	Recognize(ctx context.Context, text string) ([]Entity, error)
}

// spanWord allows inner dots (Node.js) but never a trailing one.
const spanWord = `[A-Z][A-Za-z0-9+#&'-]*(?:\.[A-Za-z0-9+#&'-]+)*`

const (
	degreeWord  = `\s+(?i:degree)`
	degreeField = `\s+(?:of|in)(?:\s+[A-Z][A-Za-z&]*)+`
)

var (
	// A bare "master" is only a degree when a possessive, "degree" or a field
	// follows it; "Scrum Master" and "master branch" are not.
	degreePattern = regexp.MustCompile(
		`\b(?:(?:(?i:bachelor|associate)(?:'s|’s|s)?|(?i:ph\.?d))\b(?:` + degreeWord + `)?(?:` + degreeField + `)?` +
			`|(?i:master)(?:(?:'s|’s)\b(?:` + degreeWord + `)?(?:` + degreeField + `)?` +
			`|s?` + degreeWord + `(?:` + degreeField + `)?` +
			`|s?` + degreeField + `))`)
	capitalizedSpan = regexp.MustCompile(
		`\b` + spanWord + `(?:[ \t]+(?:(?:of|for|and|&)[ \t]+)?` + spanWord + `)*`)
)

var titleCues = []string{"engineer", "developer", "manager", "architect", "scientist", "analyst", "designer", "consultant"}

var orgSuffixes = map[string]bool{
	"inc": true, "inc.": true, "corp": true, "corp.": true, "corporation": true,
	"llc": true, "ltd": true, "ltd.": true, "limited": true, "gmbh": true,
	"technologies": true, "labs": true, "systems": true, "solutions": true,
	"group": true, "university": true, "college": true, "institute": true,
	"bank": true, "software": true,
}

// RuleRecognizer is a deterministic recognizer built from capitalisation,
// degree phrases and organisation cues. It needs no model and never fails.
type RuleRecognizer struct{}

func NewRuleRecognizer() *RuleRecognizer {
	return &RuleRecognizer{}
}

func (r *RuleRecognizer) Recognize(_ context.Context, text string) ([]Entity, error) {
	var entities []Entity

	degrees := degreePattern.FindAllStringIndex(text, -1)
	for _, loc := range degrees {
		entities = append(entities, Entity{Text: strings.TrimSpace(text[loc[0]:loc[1]]), Label: LabelEducation})
	}

	firstLineEnd := strings.IndexByte(text, '\n')
	if firstLineEnd < 0 {
		firstLineEnd = len(text)
	}

	for _, loc := range capitalizedSpan.FindAllStringIndex(text, -1) {
		if overlaps(loc, degrees) {
			continue
		}
		span := strings.TrimRight(text[loc[0]:loc[1]], ".,'")
		if span == "" {
			continue
		}

		label := classifySpan(span, text[:loc[0]], loc[0] < firstLineEnd)
		if label == "" {
			continue
		}
		entities = append(entities, Entity{Text: span, Label: label})
	}

	return entities, nil
}

func classifySpan(span, before string, onFirstLine bool) string {
	lower := strings.ToLower(span)
	words := strings.Fields(span)

	for _, cue := range titleCues {
		if strings.Contains(lower, cue) {
			return LabelTitle
		}
	}

	last := strings.ToLower(words[len(words)-1])
	prev := strings.ToLower(strings.TrimSpace(before))
	if orgSuffixes[last] || strings.HasSuffix(prev, " at") || prev == "at" || strings.HasSuffix(prev, "@") {
		return LabelOrg
	}

	if len(MatchSkills(lower, ResumeSkillVocabulary)) > 0 && len(words) <= 2 {
		return LabelProduct
	}

	if onFirstLine && len(words) >= 2 && len(words) <= 3 {
		return LabelPerson
	}

	// Lone sentence-initial words ("We", "Experience") carry no signal.
	if len(words) == 1 && sentenceStart(before) {
		return ""
	}

	return LabelMisc
}

func sentenceStart(before string) bool {
	trimmed := strings.TrimRight(before, " \t")
	if trimmed == "" {
		return true
	}
	switch trimmed[len(trimmed)-1] {
	case '.', '!', '?', '\n', ':', ';', '-':
		return true
	}
	return false
}

func overlaps(loc []int, spans [][]int) bool {
	for _, s := range spans {
		if loc[0] < s[1] && s[0] < loc[1] {
			return true
		}
	}
	return false
}
