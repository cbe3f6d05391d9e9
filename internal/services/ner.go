package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"alfredoptarigan/resume-matcher/internal/extraction"
)

// maxNERChars bounds the resume text sent for entity tagging.
const maxNERChars = 20000

var knownLabels = map[string]bool{
	extraction.LabelPerson:    true,
	extraction.LabelOrg:       true,
	extraction.LabelTitle:     true,
	extraction.LabelEducation: true,
	extraction.LabelProduct:   true,
	extraction.LabelMisc:      true,
}

// GeminiRecognizer tags entities by prompting Gemini for a JSON entity list.
type GeminiRecognizer struct {
	gemini     GeminiService
	prompts    *PromptBuilder
	maxRetries int
}

func NewGeminiRecognizer(gemini GeminiService, maxRetries int) *GeminiRecognizer {
	return &GeminiRecognizer{gemini: gemini, prompts: NewPromptBuilder(), maxRetries: maxRetries}
}

type geminiEntity struct {
	Text  string `json:"text"`
	Label string `json:"label"`
}

// Recognize implements extraction.Recognizer.
func (r *GeminiRecognizer) Recognize(ctx context.Context, text string) ([]extraction.Entity, error) {
	text = truncateRunes(strings.TrimSpace(text), maxNERChars)
	if text == "" {
		return nil, nil
	}

	response, err := r.gemini.GenerateTextWithRetry(ctx, r.prompts.BuildEntityExtractionPrompt(text), 0, r.maxRetries)
	if err != nil {
		return nil, fmt.Errorf("failed to run entity recognition: %w", err)
	}

	var raw []geminiEntity
	if err := json.Unmarshal([]byte(extractJSON(response)), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse entity response: %w", err)
	}

	entities := make([]extraction.Entity, 0, len(raw))
	for _, e := range raw {
		label := strings.ToUpper(strings.TrimSpace(e.Label))
		value := strings.TrimSpace(e.Text)
		if value == "" || !knownLabels[label] {
			continue
		}
		entities = append(entities, extraction.Entity{Text: value, Label: label})
	}
	return entities, nil
}
