package thinking

import "time"

// chainOfThought generates a bounded number of intermediate thoughts
// (4-8, scaled by problem size) followed by one conclusion step (spec
// §4.5 chain_of_thought).
type chainOfThought struct {
	idGen      func() string
	problem    string
	maxThoughts int
	cursor     int
	concluded  bool
	last       *Step
}

func newChainOfThought(idGen func() string) *chainOfThought {
	return &chainOfThought{idGen: idGen, maxThoughts: 4}
}

func (c *chainOfThought) Kind() string { return "chain_of_thought" }

func (c *chainOfThought) Initialize(problem string) {
	c.problem = problem
	tokenCount := len(problem) / 4
	switch {
	case tokenCount > 400:
		c.maxThoughts = 8
	case tokenCount > 150:
		c.maxThoughts = 6
	default:
		c.maxThoughts = 4
	}
}

func (c *chainOfThought) NextStep() *Step {
	if c.concluded {
		return c.last
	}

	step := &Step{
		ID:        c.idGen(),
		Timestamp: time.Now(),
		Status:    StepActive,
	}

	if c.cursor < c.maxThoughts {
		c.cursor++
		step.Description = "thought " + itoa(c.cursor)
		step.Reasoning = "intermediate thought " + itoa(c.cursor) + " on: " + c.problem
		step.Confidence = baselineConfidence(c.Progress(), c.remainingComplexity())
	} else {
		step.Description = "conclusion"
		step.Reasoning = "conclusion for: " + c.problem
		step.Status = StepCompleted
		step.ShouldStop = true
		step.Confidence = baselineConfidence(1.0, "low")
		c.concluded = true
	}

	c.last = step
	return step
}

func (c *chainOfThought) ShouldContinue() bool { return !c.concluded }

func (c *chainOfThought) Progress() float64 {
	total := float64(c.maxThoughts + 1)
	done := float64(c.cursor)
	if c.concluded {
		done = total
	}
	return done / total
}

func (c *chainOfThought) remainingComplexity() string {
	remaining := c.maxThoughts - c.cursor
	switch {
	case remaining <= 1:
		return "low"
	case remaining <= c.maxThoughts/2:
		return "medium"
	default:
		return "high"
	}
}

func (c *chainOfThought) ComputeMetrics() Metrics {
	progress := c.Progress()
	return Metrics{
		Confidence:      baselineConfidence(progress, c.remainingComplexity()),
		Reasoning:       "chain of thought at " + itoa(c.cursor) + "/" + itoa(c.maxThoughts),
		TokenEfficiency: tokenEfficiency(progress, estimateStepTokens(c.last)),
		ComplexityScore: complexityScoreFor(c.remainingComplexity()),
	}
}
