package thinking

import (
	"github.com/harunnryd/cogproc/internal/optimizer"
)

// computeCoherence is the mean Jaccard overlap of a step's key terms
// against every previous step's key terms; 1.0 with no previous step
// (spec §4.6 step e, §8 invariant 2).
func computeCoherence(reasoning string, previous []*Step) float64 {
	if len(previous) == 0 {
		return 1.0
	}
	terms := optimizer.KeyTerms(reasoning)
	var sum float64
	for _, p := range previous {
		sum += optimizer.Jaccard(terms, optimizer.KeyTerms(p.Reasoning))
	}
	return sum / float64(len(previous))
}

// computeSignificance weighs a step's term overlap with the original
// problem against its reasoning length (spec §4.6 step e).
func computeSignificance(reasoning, problem string) float64 {
	overlap := optimizer.Jaccard(optimizer.KeyTerms(reasoning), optimizer.KeyTerms(problem))
	lengthComponent := min1(float64(len(reasoning)) / 500.0)
	return clamp01(0.7*overlap + 0.3*lengthComponent)
}

// computeComplexity averages reasoning length, challenge/concept counts,
// and uncertainty (spec §4.6 step e).
func computeComplexity(reasoning string, challenges, concepts []string, confidence float64) float64 {
	lengthComponent := min1(float64(len(reasoning)) / 100.0)
	challengeComponent := min1(0.2 * float64(len(challenges)))
	conceptComponent := min1(0.1 * float64(len(concepts)))
	uncertainty := clamp01(1 - confidence)
	return clamp01((lengthComponent + challengeComponent + conceptComponent + uncertainty) / 4.0)
}

// baselineConfidence implements the strategy-shared default formula
// (spec §4.5): progress*0.7 + complexityBonus, clamped to [0, 0.95].
func baselineConfidence(progress float64, remainingComplexity string) float64 {
	bonus := 0.0
	switch remainingComplexity {
	case "low":
		bonus = 0.3
	case "medium":
		bonus = 0.2
	case "high":
		bonus = 0.1
	}
	return clamp(progress*0.7+bonus, 0, 0.95)
}

// tokenEfficiency is progress / (tokens spent / 1000), guarding the
// empty-denominator case the spec flags as a latent division hazard
// (spec §9 Open Question #1): zero tokens contributes zero, never NaN/Inf.
func tokenEfficiency(progress float64, tokensSpent int) float64 {
	if tokensSpent <= 0 {
		return 0
	}
	return progress / (float64(tokensSpent) / 1000.0)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clamp01(v float64) float64 { return clamp(v, 0, 1) }

func min1(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < 0 {
		return 0
	}
	return v
}
