package pattern

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"
)

// Normalize reduces a pattern statement to its canonical textual form:
// lowercased, punctuation stripped at word boundaries, whitespace collapsed.
// Two statements that normalize identically are the same pattern.
func Normalize(content string) string {
	content = strings.ToLower(strings.TrimSpace(content))

	var b strings.Builder
	b.Grow(len(content))
	lastSpace := false
	for _, r := range content {
		switch {
		case unicode.IsSpace(r):
			if !lastSpace && b.Len() > 0 {
				b.WriteByte(' ')
				lastSpace = true
			}
		case unicode.IsPunct(r):
			// Keep intra-word apostrophes ("doesn't") so negations survive.
			if r == '\'' {
				b.WriteRune(r)
				lastSpace = false
			}
		default:
			b.WriteRune(r)
			lastSpace = false
		}
	}
	return strings.TrimSpace(b.String())
}

// CanonicalHash returns the stable hash of normalized content, used for
// exact-duplicate detection.
func CanonicalHash(content string) string {
	h := sha256.Sum256([]byte(Normalize(content)))
	return hex.EncodeToString(h[:])
}
