package retrieval

import (
	"regexp"
	"strings"
)

// Comparison phrasings, tried in order.
var comparisonPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)compare\s+(?:the\s+)?(.+?)\s+and\s+(?:the\s+)?(.+?)(?:\.|$|\?)`),
	regexp.MustCompile(`(?i)(.+?)\s+vs\.?\s+(.+?)(?:\.|$|\?)`),
	regexp.MustCompile(`(?i)(.+?)\s+versus\s+(.+?)(?:\.|$|\?)`),
	regexp.MustCompile(`(?i)differences?\s+between\s+(?:the\s+)?(.+?)\s+and\s+(?:the\s+)?(.+?)(?:\.|$|\?)`),
	regexp.MustCompile(`(?i)(?:the\s+)?(.+?)\s+and\s+(?:the\s+)?(.+?)\s+differ`),
}

// Follow-up instructions that trail the second entity.
var trailingInstructions = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\s+summarize.*$`),
	regexp.MustCompile(`(?i)\s+what are.*$`),
	regexp.MustCompile(`(?i)\s+how do.*$`),
	regexp.MustCompile(`(?i)\s+explain.*$`),
}

// DetectEntities extracts the two compared entities from a comparison
// question, lower-cased. Returns nil when the question is not a comparison.
func DetectEntities(question string) []string {
	q := strings.ToLower(question)
	for _, re := range comparisonPatterns {
		m := re.FindStringSubmatch(q)
		if m == nil {
			continue
		}
		first := strings.TrimSpace(m[1])
		second := strings.TrimSpace(m[2])
		for _, tail := range trailingInstructions {
			second = tail.ReplaceAllString(second, "")
		}
		second = strings.TrimSpace(second)
		if first == "" || second == "" {
			return nil
		}
		return []string{first, second}
	}
	return nil
}

// matchQuality ranks how well a hit name matches an entity.
type matchQuality int

const (
	matchNone matchQuality = iota
	matchSubstring
	matchExact
)

// bestMatch returns the index of the hit whose name best matches entity, or -1.
// Exact matches compare the name without its trailing parenthetical.
func bestMatch(names []string, entity string) int {
	best, quality := -1, matchNone
	for i, name := range names {
		if name == "" {
			continue
		}
		base := strings.TrimSpace(strings.SplitN(name, "(", 2)[0])
		switch {
		case base == entity:
			if quality < matchExact {
				best, quality = i, matchExact
			}
		case quality < matchSubstring && (strings.Contains(name, entity) || strings.Contains(entity, name)):
			best, quality = i, matchSubstring
		}
	}
	return best
}
