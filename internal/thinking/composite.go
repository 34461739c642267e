package thinking

import (
	"hash/fnv"
	"sort"
)

// CompositeMode selects how a composite strategy dispatches across its
// child strategies (spec §4.5 composite, a supplemented variant not
// named by the distilled strategy list but present in the richer
// original behavior).
type CompositeMode string

const (
	CompositeSequential CompositeMode = "sequential"
	CompositeParallel   CompositeMode = "parallel"
	CompositeWeighted   CompositeMode = "weighted"
)

type compositeChild struct {
	strategy Strategy
	weight   float64
	attempts float64
	successes float64
}

// composite drives several child strategies as one, combining their
// candidate steps according to mode. Weights are fixed at construction
// and never mutated by selection; a running success-rate ledger is kept
// separately and only consulted, never written back into weight, when
// feedback is enabled (resolves the spec's Open Question on whether
// weighted selection may self-adjust).
type composite struct {
	mode     CompositeMode
	children []*compositeChild
	idGen    func() string
	problem  string
	feedback bool
	cursor   int
	draws    int
	last     *Step
	lastPick *compositeChild
}

// NewComposite builds a composite strategy over children, each given an
// initial selection weight (normalized internally). feedbackEnabled
// turns on success-rate-weighted drawing for CompositeWeighted.
func NewComposite(mode CompositeMode, children []Strategy, weights []float64, idGen func() string, feedbackEnabled bool) Strategy {
	c := &composite{mode: mode, idGen: idGen, feedback: feedbackEnabled}
	for i, ch := range children {
		w := 1.0
		if i < len(weights) && weights[i] > 0 {
			w = weights[i]
		}
		c.children = append(c.children, &compositeChild{strategy: ch, weight: w})
	}
	return c
}

func (c *composite) Kind() string { return "composite:" + string(c.mode) }

func (c *composite) Initialize(problem string) {
	c.problem = problem
	for _, ch := range c.children {
		ch.strategy.Initialize(problem)
	}
}

func (c *composite) activeChildren() []*compositeChild {
	var active []*compositeChild
	for _, ch := range c.children {
		if ch.strategy.ShouldContinue() {
			active = append(active, ch)
		}
	}
	return active
}

func (c *composite) NextStep() *Step {
	active := c.activeChildren()
	if len(active) == 0 {
		return c.last
	}

	var picked *compositeChild
	var step *Step

	switch c.mode {
	case CompositeSequential:
		picked = active[0]
		step = picked.strategy.NextStep()

	case CompositeParallel:
		var best *compositeChild
		var bestStep *Step
		for _, ch := range active {
			s := ch.strategy.NextStep()
			if bestStep == nil || s.Confidence > bestStep.Confidence {
				best, bestStep = ch, s
			}
		}
		picked, step = best, bestStep

	default: // CompositeWeighted
		picked = c.drawWeighted(active)
		step = picked.strategy.NextStep()
	}

	c.lastPick = picked
	picked.attempts++
	if step.Confidence >= 0.6 {
		picked.successes++
	}

	c.last = step
	return step
}

// drawWeighted performs a deterministic weighted draw over active
// children, scaling each child's configured weight by its observed
// success rate when feedback is enabled.
func (c *composite) drawWeighted(active []*compositeChild) *compositeChild {
	c.draws++
	total := 0.0
	effective := make([]float64, len(active))
	for i, ch := range active {
		w := ch.weight
		if c.feedback && ch.attempts > 0 {
			w *= ch.successes / ch.attempts
			if w <= 0 {
				w = ch.weight * 0.05
			}
		}
		effective[i] = w
		total += w
	}
	if total <= 0 {
		return active[0]
	}

	h := fnv.New32a()
	h.Write([]byte(c.problem + "|" + itoa(c.draws)))
	point := (float64(h.Sum32()%10000) / 10000.0) * total

	running := 0.0
	for i, w := range effective {
		running += w
		if point <= running {
			return active[i]
		}
	}
	return active[len(active)-1]
}

func (c *composite) ShouldContinue() bool {
	return len(c.activeChildren()) > 0
}

func (c *composite) Progress() float64 {
	if len(c.children) == 0 {
		return 1
	}
	total := 0.0
	for _, ch := range c.children {
		total += ch.strategy.Progress()
	}
	return total / float64(len(c.children))
}

// ComputeMetrics aggregates the picked child's metrics and folds every
// other child's metrics (finished or not) in as alternatives, regardless
// of mode.
func (c *composite) ComputeMetrics() Metrics {
	if c.lastPick == nil {
		return Metrics{Reasoning: "composite " + string(c.mode) + " not yet started"}
	}

	picked := c.lastPick.strategy.ComputeMetrics()

	var alternatives []Alternative
	for _, ch := range c.children {
		if ch == c.lastPick {
			continue
		}
		m := ch.strategy.ComputeMetrics()
		alternatives = append(alternatives, Alternative{
			Description: ch.strategy.Kind() + ": " + m.Reasoning,
			Confidence:  m.Confidence,
		})
	}
	sort.Slice(alternatives, func(i, j int) bool {
		return alternatives[i].Confidence > alternatives[j].Confidence
	})
	picked.Alternatives = append(picked.Alternatives, alternatives...)
	picked.Reasoning = "composite " + string(c.mode) + " via " + c.lastPick.strategy.Kind() + ": " + picked.Reasoning
	return picked
}
