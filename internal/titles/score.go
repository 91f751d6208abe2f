package titles

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/hbollon/go-edlib"
)

// Component weights of the final score; they sum to 100.
const (
	baseWeight       = 60
	seriesWeight     = 25
	similarityWeight = 15

	// Base titles closer than this are treated as spelling variants of the
	// same franchise; anything further is halved.
	basePenaltyCutoff = 90.0
)

// Levenshtein returns the unit-cost edit distance between a and b, compared
// case-insensitively rune by rune.
func Levenshtein(a, b string) int {
	return edlib.LevenshteinDistance(strings.ToLower(a), strings.ToLower(b))
}

// Similarity returns 100 - 100*distance/maxLen, clamped at 0. Two empty strings
// are fully similar.
func Similarity(a, b string) float64 {
	longest := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if longest == 0 {
		return 100
	}
	return math.Max(0, 100-100*float64(Levenshtein(a, b))/float64(longest))
}

// Breakdown exposes the sub-scores behind a Score result.
type Breakdown struct {
	NormalizedA string
	NormalizedB string
	Base        float64
	Series      float64
	Similarity  float64
	Penalized   bool
	Total       int
}

// Score returns a symmetric 0..100 similarity between two titles.
func Score(a, b string) int {
	return Explain(a, b).Total
}

// Explain computes Score and returns every intermediate value.
func Explain(a, b string) Breakdown {
	na, nb := Normalize(a), Normalize(b)
	out := Breakdown{NormalizedA: na, NormalizedB: nb}
	if na == nb {
		out.Base, out.Series, out.Similarity, out.Total = 100, 100, 100, 100
		return out
	}

	baseA, baseB := BaseName(na), BaseName(nb)
	if baseA == baseB {
		out.Base = 100
	} else {
		out.Base = Similarity(baseA, baseB)
		if out.Base < basePenaltyCutoff {
			out.Base /= 2
			out.Penalized = true
		}
	}

	// Series only counts when the base titles escaped the penalty.
	if !out.Penalized && SeriesIndicator(na) == SeriesIndicator(nb) {
		out.Series = 100
	}

	out.Similarity = Similarity(na, nb)

	weighted := baseWeight*out.Base + seriesWeight*out.Series + similarityWeight*out.Similarity
	out.Total = int(math.Round(weighted / 100))
	out.Total = min(max(out.Total, 0), 100)
	return out
}
