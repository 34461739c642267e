package thinking

import "time"

// strategicPhases is the five-phase cycle (spec §4.5 strategic).
var strategicPhases = []string{"analyze", "decompose", "plan", "execute", "validate"}

type strategic struct {
	idGen   func() string
	problem string
	cursor  int
	done    bool
	last    *Step
}

func newStrategic(idGen func() string) *strategic {
	return &strategic{idGen: idGen}
}

func (s *strategic) Kind() string { return "strategic" }

func (s *strategic) Initialize(problem string) {
	s.problem = problem
}

func (s *strategic) NextStep() *Step {
	if s.cursor >= len(strategicPhases) {
		return s.last
	}
	phase := strategicPhases[s.cursor]
	s.cursor++

	step := &Step{
		ID:          s.idGen(),
		Description: phase,
		Reasoning:   phase + " phase for: " + s.problem,
		Status:      StepActive,
		Timestamp:   time.Now(),
		Confidence:  baselineConfidence(s.Progress(), s.remainingComplexity()),
	}
	if phase == "validate" {
		step.Status = StepCompleted
		step.ShouldStop = true
		s.done = true
	}
	s.last = step
	return step
}

func (s *strategic) ShouldContinue() bool { return !s.done }

func (s *strategic) Progress() float64 {
	return float64(s.cursor) / float64(len(strategicPhases))
}

func (s *strategic) remainingComplexity() string {
	remaining := len(strategicPhases) - s.cursor
	switch {
	case remaining <= 1:
		return "low"
	case remaining <= 3:
		return "medium"
	default:
		return "high"
	}
}

func (s *strategic) ComputeMetrics() Metrics {
	progress := s.Progress()
	return Metrics{
		Confidence:      baselineConfidence(progress, s.remainingComplexity()),
		Reasoning:       "strategic cycle phase " + itoa(s.cursor) + "/" + itoa(len(strategicPhases)),
		TokenEfficiency: tokenEfficiency(progress, estimateStepTokens(s.last)),
		ComplexityScore: complexityScoreFor(s.remainingComplexity()),
	}
}
