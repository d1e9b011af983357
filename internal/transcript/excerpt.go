package transcript

import (
	"strings"
	"unicode"
)

// DefaultMaxExcerptChars bounds how much of each transcript a reconciler
// looks at when no limit is configured.
const DefaultMaxExcerptChars = 24000

// SplitExcerpt cuts s after at most limit runes, backing off to the last
// space so no word is split. Both halves are trimmed. A non-positive limit
// returns s whole.
func SplitExcerpt(s string, limit int) (head, tail string) {
	runes := []rune(s)
	if limit <= 0 || len(runes) <= limit {
		return s, ""
	}
	cut := limit
	for i := limit; i > 0; i-- {
		if unicode.IsSpace(runes[i]) {
			cut = i
			break
		}
	}
	return strings.TrimSpace(string(runes[:cut])), strings.TrimSpace(string(runes[cut:]))
}
