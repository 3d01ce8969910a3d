package matching

import (
	"math"
	"regexp"
	"sort"
	"strings"
)

const (
	topOverlapTerms = 30
	normEpsilon     = 1e-9
)

var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}_+#.\-]+`)

// Tokenize returns the case-folded tokens of text: runs of letters, digits
// and the characters _ + # . -
func Tokenize(text string) []string {
	return tokenPattern.FindAllString(strings.ToLower(text), -1)
}

func frequencies(tokens []string) map[string]int {
	counts := make(map[string]int, len(tokens))
	for _, tok := range tokens {
		counts[tok]++
	}
	return counts
}

// Lexical returns the cosine similarity of the token frequency vectors of a
// and b, in [0,1], and up to 30 shared tokens ordered by shared frequency.
func Lexical(a, b string) (float64, []string) {
	countA := frequencies(Tokenize(a))
	countB := frequencies(Tokenize(b))

	var dot, sumA, sumB float64
	for tok, ca := range countA {
		sumA += float64(ca * ca)
		if cb, ok := countB[tok]; ok {
			dot += float64(ca * cb)
		}
	}
	for _, cb := range countB {
		sumB += float64(cb * cb)
	}

	normA := math.Max(math.Sqrt(sumA), normEpsilon)
	normB := math.Max(math.Sqrt(sumB), normEpsilon)

	similarity := dot / (normA * normB)
	if math.IsNaN(similarity) || similarity < 0 {
		similarity = 0
	}
	if similarity > 1 {
		similarity = 1
	}

	return similarity, overlap(countA, countB)
}

func overlap(countA, countB map[string]int) []string {
	type shared struct {
		token string
		count int
	}

	common := make([]shared, 0)
	for tok, ca := range countA {
		if cb, ok := countB[tok]; ok {
			common = append(common, shared{token: tok, count: min(ca, cb)})
		}
	}

	sort.Slice(common, func(i, j int) bool {
		if common[i].count != common[j].count {
			return common[i].count > common[j].count
		}
		return common[i].token < common[j].token
	})

	if len(common) > topOverlapTerms {
		common = common[:topOverlapTerms]
	}

	terms := make([]string, len(common))
	for i, c := range common {
		terms[i] = c.token
	}
	return terms
}

// toPercent maps a similarity in [0,1] onto the 0-100 scale used by every
// Result, rounded to two decimals.
func toPercent(similarity float64) float64 {
	return round2(clampScore(similarity * 100))
}

func clampScore(score float64) float64 {
	switch {
	case math.IsNaN(score) || score < 0:
		return 0
	case score > 100:
		return 100
	default:
		return score
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
