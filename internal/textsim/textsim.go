// Package textsim provides the lexical similarity primitives shared by the
// evaluation, control, and deliberation packages: token sets, Jaccard
// similarity, softmax sampling, and clamping.
package textsim

import (
	"math"
	"math/rand"
	"regexp"
	"strings"
)

var (
	digitsRe    = regexp.MustCompile(`[0-9]+`)
	nonLetterRe = regexp.MustCompile(`[^\p{L}_]+`)
)

// TokenSet converts text to a bag of lowercase tokens. Digits and punctuation
// are dropped; single-rune tokens are ignored. The same normalization is used
// for every similarity computation so KPI values stay comparable.
func TokenSet(text string) map[string]struct{} {
	t := strings.ToLower(text)
	t = digitsRe.ReplaceAllString(t, " ")
	t = nonLetterRe.ReplaceAllString(t, " ")
	set := make(map[string]struct{})
	for _, tok := range strings.Fields(t) {
		if len([]rune(tok)) > 1 {
			set[tok] = struct{}{}
		}
	}
	return set
}

// Jaccard returns |a∩b| / |a∪b|, or 0 when either set is empty.
func Jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for tok := range a {
		if _, ok := b[tok]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// Similarity is Jaccard over the token sets of two texts.
func Similarity(a, b string) float64 {
	return Jaccard(TokenSet(a), TokenSet(b))
}

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// ScoredName pairs a candidate name with its score for softmax sampling.
type ScoredName struct {
	Name  string
	Score float64
}

// SoftmaxPick samples one name from the candidates with probability
// proportional to exp(score/temp). Lower temperature is greedier. The RNG is
// injected so deterministic test mode can fix the draw.
func SoftmaxPick(candidates []ScoredName, temp float64, rng *rand.Rand) string {
	if len(candidates) == 0 {
		return ""
	}
	maxScore := candidates[0].Score
	for _, c := range candidates[1:] {
		if c.Score > maxScore {
			maxScore = c.Score
		}
	}
	if temp < 1e-6 {
		temp = 1e-6
	}
	exps := make([]float64, len(candidates))
	var sum float64
	for i, c := range candidates {
		exps[i] = math.Exp((c.Score - maxScore) / temp)
		sum += exps[i]
	}
	r := rng.Float64()
	var acc float64
	for i, c := range candidates {
		acc += exps[i] / sum
		if r <= acc {
			return c.Name
		}
	}
	return candidates[0].Name
}
