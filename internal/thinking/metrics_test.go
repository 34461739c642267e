package thinking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeCoherence_NoPreviousSteps(t *testing.T) {
	assert.Equal(t, 1.0, computeCoherence("anything", nil))
}

func TestComputeCoherence_OverlappingTerms(t *testing.T) {
	previous := []*Step{{Reasoning: "the cache stores tokens"}}
	got := computeCoherence("the cache evicts tokens", previous)
	assert.Greater(t, got, 0.0)
	assert.LessOrEqual(t, got, 1.0)
}

func TestComputeSignificance_Bounds(t *testing.T) {
	got := computeSignificance("short", "a completely unrelated problem about something else")
	assert.GreaterOrEqual(t, got, 0.0)
	assert.LessOrEqual(t, got, 1.0)
}

func TestComputeComplexity_Bounds(t *testing.T) {
	got := computeComplexity("some reasoning text", []string{"c1", "c2"}, []string{"concept"}, 0.5)
	assert.GreaterOrEqual(t, got, 0.0)
	assert.LessOrEqual(t, got, 1.0)
}

func TestBaselineConfidence_ClampedTo95(t *testing.T) {
	got := baselineConfidence(1.0, "low")
	assert.LessOrEqual(t, got, 0.95)
}

func TestBaselineConfidence_NeverNegative(t *testing.T) {
	got := baselineConfidence(0, "high")
	assert.GreaterOrEqual(t, got, 0.0)
}

func TestTokenEfficiency_ZeroTokensNeverDividesByZero(t *testing.T) {
	assert.Equal(t, 0.0, tokenEfficiency(0.5, 0))
	assert.Equal(t, 0.0, tokenEfficiency(0.5, -10))
}

func TestTokenEfficiency_Positive(t *testing.T) {
	got := tokenEfficiency(1.0, 500)
	assert.InDelta(t, 2.0, got, 0.001)
}
