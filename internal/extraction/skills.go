package extraction

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ResumeSkillVocabulary is the fixed keyword list scanned in resume text.
// Matching is a case-insensitive substring test, so short keywords also match
// inside longer ones ("java" inside "javascript", "sql" inside "postgresql").
var ResumeSkillVocabulary = []string{
	"python", "java", "javascript", "react", "angular", "vue", "node.js",
	"spring boot", "django", "flask", "fastapi", "express", "mongodb",
	"postgresql", "mysql", "redis", "docker", "kubernetes", "aws", "azure",
	"gcp", "terraform", "jenkins", "git", "linux", "sql", "nosql",
	"machine learning", "deep learning", "tensorflow", "pytorch",
	"pandas", "numpy", "scikit-learn", "data analysis", "statistics",
	"agile", "scrum", "devops", "ci/cd", "microservices", "rest api",
	"graphql", "typescript", "html", "css", "bootstrap", "tailwind",
}

// JobSkillVocabulary is the reduced list used to derive job-required skills:
// the first twenty entries of ResumeSkillVocabulary.
var JobSkillVocabulary = ResumeSkillVocabulary[:20]

// MatchSkills returns every vocabulary entry contained in text, title-cased,
// in vocabulary order.
func MatchSkills(text string, vocabulary []string) []string {
	lower := strings.ToLower(text)
	caser := cases.Title(language.English)

	var skills []string
	for _, keyword := range vocabulary {
		if strings.Contains(lower, keyword) {
			skills = append(skills, caser.String(keyword))
		}
	}
	return skills
}

// HasSkill reports whether any of skills contains required as a
// case-insensitive substring.
func HasSkill(skills []string, required string) bool {
	required = strings.ToLower(required)
	for _, s := range skills {
		if strings.Contains(strings.ToLower(s), required) {
			return true
		}
	}
	return false
}
