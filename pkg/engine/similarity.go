package engine

import (
	"github.com/pmezard/go-difflib/difflib"
)

// SimilarityFunc scores two strings in [0, 1].
type SimilarityFunc func(a, b string) float64

// Similarity is the gestalt pattern matching ratio of a and b compared rune
// by rune: twice the number of matching runes divided by the total length.
// Block selection depends on argument order, so the ratio is taken in both
// directions and the larger value returned.
//
// Two empty strings score 1.
func Similarity(a, b string) float64 {
	ra, rb := runes(a), runes(b)
	ratio := matcher(ra, rb).Ratio()
	if rev := matcher(rb, ra).Ratio(); rev > ratio {
		ratio = rev
	}
	return ratio
}

// matcher compares rune sequences with automatic junk detection disabled,
// which would otherwise drop frequent runes from inputs of 200 runes or more.
func matcher(a, b []string) *difflib.SequenceMatcher {
	return difflib.NewMatcherWithJunk(a, b, false, nil)
}

func runes(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}
