package thinking

import "time"

// standardSteps is the fixed 5-step linear sequence (spec §4.5 standard).
var standardSteps = []string{"analysis", "components", "approaches", "architecture", "implementation"}

// minimalSteps is the fixed 3-step linear sequence (spec §4.5 minimal).
var minimalSteps = []string{"analysis", "approach", "implementation"}

// linear drives a fixed, named sequence of steps, one per call to
// NextStep, terminating once every named step has been consumed.
type linear struct {
	kind    string
	names   []string
	idGen   func() string
	problem string
	cursor  int
	last    *Step
}

func newLinear(kind string, names []string, idGen func() string) *linear {
	return &linear{kind: kind, names: names, idGen: idGen}
}

func (l *linear) Kind() string { return l.kind }

func (l *linear) Initialize(problem string) {
	l.problem = problem
}

func (l *linear) NextStep() *Step {
	if l.cursor >= len(l.names) {
		return l.last
	}
	name := l.names[l.cursor]
	l.cursor++

	step := &Step{
		ID:          l.idGen(),
		Description: name,
		Reasoning:   name + " of: " + l.problem,
		Status:      StepActive,
		Timestamp:   time.Now(),
		Confidence:  baselineConfidence(l.Progress(), l.remainingComplexity()),
	}
	if l.cursor >= len(l.names) {
		step.Status = StepCompleted
		step.ShouldStop = true
	}
	l.last = step
	return step
}

func (l *linear) ShouldContinue() bool {
	return l.cursor < len(l.names)
}

func (l *linear) Progress() float64 {
	if len(l.names) == 0 {
		return 1
	}
	return float64(l.cursor) / float64(len(l.names))
}

func (l *linear) remainingComplexity() string {
	remaining := len(l.names) - l.cursor
	switch {
	case remaining <= 1:
		return "low"
	case remaining <= len(l.names)/2:
		return "medium"
	default:
		return "high"
	}
}

func (l *linear) ComputeMetrics() Metrics {
	progress := l.Progress()
	return Metrics{
		Confidence:      baselineConfidence(progress, l.remainingComplexity()),
		Reasoning:       l.kind + " sequence at step " + itoa(l.cursor) + "/" + itoa(len(l.names)),
		TokenEfficiency: tokenEfficiency(progress, estimateStepTokens(l.last)),
		ComplexityScore: complexityScoreFor(l.remainingComplexity()),
	}
}
