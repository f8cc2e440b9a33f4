package pattern

import (
	"strings"

	"github.com/orsinium-labs/stopwords"
)

// englishStopwords filters function words out of the polarity comparison so
// "the user does not like running" and "user likes running" reduce to the
// same content terms.
var englishStopwords = stopwords.MustGet("en")

// negationTerms mark a statement as negated. Contractions survive
// normalization because apostrophes are kept.
var negationTerms = map[string]bool{
	"not": true, "never": true, "no": true, "stopped": true, "quit": true,
	"don't": true, "doesn't": true, "didn't": true, "won't": true,
	"can't": true, "isn't": true, "aren't": true, "wasn't": true,
	"dislikes": true, "hates": true, "avoids": true,
}

// Opposes reports whether two statements talk about the same thing with
// opposite polarity: high content-word overlap, differing negation parity.
// It is a cheap heuristic backstop for when the extraction step did not flag
// the contradiction itself.
func Opposes(a, b string) bool {
	wordsA := strings.Fields(Normalize(a))
	wordsB := strings.Fields(Normalize(b))

	contentA, negA := splitPolarity(wordsA)
	contentB, negB := splitPolarity(wordsB)
	if negA == negB {
		return false
	}
	if len(contentA) == 0 || len(contentB) == 0 {
		return false
	}

	shared := 0
	for w := range contentA {
		if contentB[w] {
			shared++
		}
	}
	smaller := len(contentA)
	if len(contentB) < smaller {
		smaller = len(contentB)
	}
	return float64(shared)/float64(smaller) >= 0.5
}

// splitPolarity separates content words from negation markers and stopwords.
// Returns the content-word set and whether the statement is negated.
func splitPolarity(words []string) (map[string]bool, bool) {
	content := make(map[string]bool, len(words))
	negated := false
	for _, w := range words {
		if negationTerms[w] {
			negated = !negated // double negation flips back
			continue
		}
		if englishStopwords != nil && englishStopwords.Contains(w) {
			continue
		}
		content[stem(w)] = true
	}
	return content, negated
}

// stem strips common verb/plural suffixes so "likes"/"like"/"liked" compare
// equal. Deliberately crude; the similarity gate already did the heavy
// lifting.
func stem(w string) string {
	for _, suffix := range []string{"ing", "ed", "es", "s"} {
		if strings.HasSuffix(w, suffix) && len(w)-len(suffix) >= 3 {
			return w[:len(w)-len(suffix)]
		}
	}
	return w
}
