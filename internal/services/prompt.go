package services

import (
	"fmt"
	"strings"
)

type PromptBuilder struct{}

func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{}
}

// BuildEntityExtractionPrompt asks the model to tag named entities in a resume.
func (pb *PromptBuilder) BuildEntityExtractionPrompt(resumeText string) string {
	return fmt.Sprintf(`You are a named-entity recognizer for resumes.

Tag every entity in the resume below with exactly one of these labels:
- PERSON: a person's name
- ORG: a company, university or other organization
- TITLE: a job title such as "Software Engineer"
- EDUCATION: a degree or qualification such as "Bachelor of Science"
- PRODUCT: a technology, language, framework or tool
- MISC: anything else worth tagging

Copy each entity's text exactly as it appears. Do not invent entities.

Return ONLY a JSON array in this format:
[
  {"text": "<entity text>", "label": "<LABEL>"}
]

RESUME:
%s`, strings.TrimSpace(resumeText))
}

// extractJSON tries to extract JSON from text that might contain markdown or other formatting
func extractJSON(text string) string {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")

	startObj := strings.Index(text, "{")
	startArr := strings.Index(text, "[")
	endObj := strings.LastIndex(text, "}")
	endArr := strings.LastIndex(text, "]")

	// An array wins when it opens before the first object.
	if startArr != -1 && endArr > startArr && (startObj == -1 || startArr < startObj) {
		return text[startArr : endArr+1]
	}
	if startObj != -1 && endObj > startObj {
		return text[startObj : endObj+1]
	}

	return strings.TrimSpace(text)
}
