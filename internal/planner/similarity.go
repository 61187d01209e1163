package planner

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// DefaultSimilarityThreshold is the ratio above which two DocType names are
// reported as suspiciously similar.
const DefaultSimilarityThreshold = 0.80

// SimilarityRatio returns 1 - editDistance/maxLen over the lower-cased
// names, in [0, 1]. Two empty names are identical.
func SimilarityRatio(a, b string) float64 {
	a = strings.ToLower(a)
	b = strings.ToLower(b)

	maxLen := utf8.RuneCountInString(a)
	if n := utf8.RuneCountInString(b); n > maxLen {
		maxLen = n
	}
	if maxLen == 0 {
		return 1
	}

	dist := levenshtein.ComputeDistance(a, b)
	return 1 - float64(dist)/float64(maxLen)
}

// SimilarityPercent rounds a ratio to a whole percentage.
func SimilarityPercent(ratio float64) int {
	return int(math.Round(ratio * 100))
}
