package extraction

import (
	"regexp"
	"strconv"
	"strings"
)

// experiencePatterns are tried in order against lowercased text. The first
// pattern with any match decides the result; later patterns are not consulted.
var experiencePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(\d+)\+?\s*years?\s*(?:of\s*)?experience`),
	regexp.MustCompile(`experience\s*:\s*(\d+)\+?\s*years?`),
	regexp.MustCompile(`(\d+)\+?\s*years?\s*in\s*software`),
}

// ExtractExperienceYears returns the largest figure captured by the first
// matching pattern, or 0.
func ExtractExperienceYears(text string) int {
	lower := strings.ToLower(text)

	for _, pattern := range experiencePatterns {
		matches := pattern.FindAllStringSubmatch(lower, -1)
		if len(matches) == 0 {
			continue
		}

		years := 0
		for _, m := range matches {
			n, err := strconv.Atoi(m[1])
			if err != nil {
				continue
			}
			if n > years {
				years = n
			}
		}
		return years
	}

	return 0
}
