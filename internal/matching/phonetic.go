package matching

import (
	"strings"

	"github.com/dotcypress/phonetics"
)

// phoneticKey returns the space-joined Metaphone codes of every token that
// has an ASCII letter. Tokens without one carry no sound and are skipped.
func phoneticKey(tokens []string) string {
	codes := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if !strings.ContainsFunc(t, isASCIILetter) {
			continue
		}
		if c := phonetics.EncodeMetaphone(t); c != "" {
			codes = append(codes, c)
		}
	}
	return strings.Join(codes, " ")
}

func isASCIILetter(r rune) bool {
	return ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z')
}
