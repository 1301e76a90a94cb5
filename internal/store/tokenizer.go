package store

import (
	"regexp"
	"strings"
)

// tokenRegex matches alphanumeric runs; everything else is a separator.
var tokenRegex = regexp.MustCompile(`[a-zA-Z0-9]+`)

// Tokenize splits text into lowercase alphanumeric tokens, dropping tokens
// shorter than minLen runes. The lexical index applies this at build time
// and the search engine applies it at query time; the two must never
// diverge or recall degrades silently.
func Tokenize(text string, minLen int) []string {
	words := tokenRegex.FindAllString(text, -1)
	tokens := make([]string, 0, len(words))
	for _, w := range words {
		lower := strings.ToLower(w)
		if len(lower) >= minLen {
			tokens = append(tokens, lower)
		}
	}
	return tokens
}
