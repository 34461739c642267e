package thinking

import (
	"encoding/json"
	"strings"
)

// parseMode records which fallback stage produced a StepAnalysis, mostly
// useful for debugging a provider's drift from the expected shape.
type parseMode string

const (
	parseModeJSONObject parseMode = "json_object"
	parseModeExtracted  parseMode = "json_extracted"
	parseModeHeuristic  parseMode = "heuristic_fallback"
)

// StepAnalysis is the expected structured response for one engine step
// (spec §4.6 step d).
type StepAnalysis struct {
	Description   string   `json:"description"`
	Reasoning     string   `json:"reasoning"`
	Insights      []string `json:"insights"`
	ShouldContinue *bool   `json:"shouldContinue"`
	Confidence    *float64 `json:"confidence"`
	Alternatives  []string `json:"alternatives"`
	Challenges    []string `json:"challenges"`
	Concepts      []string `json:"concepts"`
}

// parseStepResponse parses raw into a StepAnalysis, defaulting missing
// fields conservatively (shouldContinue=true, confidence=0.7) per spec
// §4.6. It never errors: a response that cannot be parsed at all yields
// ok=false so the caller can synthesize an error step.
func parseStepResponse(raw string) (StepAnalysis, parseMode, bool) {
	normalized := cleanModelJSON(raw)

	var payload StepAnalysis
	if err := json.Unmarshal([]byte(normalized), &payload); err == nil && (payload.Description != "" || payload.Reasoning != "") {
		return withDefaults(payload), parseModeJSONObject, true
	}

	if extracted := extractFirstBalancedJSON(normalized, '{', '}'); extracted != "" {
		var fromExtracted StepAnalysis
		if err := json.Unmarshal([]byte(extracted), &fromExtracted); err == nil && (fromExtracted.Description != "" || fromExtracted.Reasoning != "") {
			return withDefaults(fromExtracted), parseModeExtracted, true
		}
	}

	if trimmed := strings.TrimSpace(normalized); trimmed != "" {
		heuristic := StepAnalysis{Description: firstLine(trimmed), Reasoning: trimmed}
		return withDefaults(heuristic), parseModeHeuristic, true
	}

	return StepAnalysis{}, parseModeHeuristic, false
}

func withDefaults(p StepAnalysis) StepAnalysis {
	if p.ShouldContinue == nil {
		cont := true
		p.ShouldContinue = &cont
	}
	if p.Confidence == nil {
		conf := 0.7
		p.Confidence = &conf
	}
	if p.Reasoning == "" && len(p.Insights) > 0 {
		p.Reasoning = strings.Join(p.Insights, " ")
	}
	return p
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return strings.TrimSpace(s[:idx])
	}
	if len(s) > 120 {
		return strings.TrimSpace(s[:120])
	}
	return s
}

// cleanModelJSON strips a markdown code fence a model commonly wraps its
// JSON output in, mirroring the teacher's structured_response.go idiom.
func cleanModelJSON(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// extractFirstBalancedJSON scans input for the first balanced {..}/[..]
// span, honoring quoted strings and escapes, mirroring the teacher's
// bracket-matching extractor.
func extractFirstBalancedJSON(input string, open, close byte) string {
	start := -1
	depth := 0
	inString := false
	escaped := false

	for i := 0; i < len(input); i++ {
		ch := input[i]
		if inString {
			if escaped {
				escaped = false
				continue
			}
			if ch == '\\' {
				escaped = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}

		switch ch {
		case '"':
			inString = true
		case open:
			if depth == 0 {
				start = i
			}
			depth++
		case close:
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 && start >= 0 {
				return strings.TrimSpace(input[start : i+1])
			}
		}
	}
	return ""
}
