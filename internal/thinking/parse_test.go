package thinking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStepResponse_JSONObject(t *testing.T) {
	raw := `{"description":"analyze","reasoning":"breaking the problem down","confidence":0.8}`
	analysis, mode, ok := parseStepResponse(raw)
	require.True(t, ok)
	assert.Equal(t, parseModeJSONObject, mode)
	assert.Equal(t, "analyze", analysis.Description)
	require.NotNil(t, analysis.Confidence)
	assert.Equal(t, 0.8, *analysis.Confidence)
	require.NotNil(t, analysis.ShouldContinue)
	assert.True(t, *analysis.ShouldContinue)
}

func TestParseStepResponse_FencedJSON(t *testing.T) {
	raw := "```json\n{\"description\":\"plan\",\"reasoning\":\"lay out the approach\"}\n```"
	analysis, mode, ok := parseStepResponse(raw)
	require.True(t, ok)
	assert.Equal(t, parseModeJSONObject, mode)
	assert.Equal(t, "plan", analysis.Description)
}

func TestParseStepResponse_ExtractedJSON(t *testing.T) {
	raw := "Sure thing, here you go: {\"description\":\"extract\",\"reasoning\":\"found it buried in prose\"} thanks!"
	analysis, mode, ok := parseStepResponse(raw)
	require.True(t, ok)
	assert.Equal(t, parseModeExtracted, mode)
	assert.Equal(t, "extract", analysis.Description)
}

func TestParseStepResponse_HeuristicFallback(t *testing.T) {
	raw := "This is just plain prose with no JSON in it at all."
	analysis, mode, ok := parseStepResponse(raw)
	require.True(t, ok)
	assert.Equal(t, parseModeHeuristic, mode)
	assert.Equal(t, raw, analysis.Reasoning)
	require.NotNil(t, analysis.Confidence)
	assert.Equal(t, 0.7, *analysis.Confidence)
}

func TestParseStepResponse_EmptyInput(t *testing.T) {
	analysis, mode, ok := parseStepResponse("   ")
	assert.False(t, ok)
	assert.Equal(t, parseModeHeuristic, mode)
	assert.Equal(t, StepAnalysis{}, analysis)
}

func TestExtractFirstBalancedJSON_IgnoresBracesInStrings(t *testing.T) {
	input := `prefix {"a": "value with } inside"} suffix`
	got := extractFirstBalancedJSON(input, '{', '}')
	assert.Equal(t, `{"a": "value with } inside"}`, got)
}
