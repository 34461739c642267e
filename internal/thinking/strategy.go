package thinking

// Metrics is a strategy's self-reported progress summary (spec §4.5
// metrics() operation).
type Metrics struct {
	Confidence      float64
	Reasoning       string
	Alternatives    []Alternative
	TokenEfficiency float64
	ComplexityScore float64
}

// Alternative is one lazily generated alternative path (spec §4.5
// composite enhancement): a reordering/rewording of the primary step
// list with an independent confidence estimate.
type Alternative struct {
	Description string
	Confidence  float64
}

// Strategy is the narrow operation set every reasoning-step generator
// implements (spec §4.5), reproduced as a tagged variant per component
// rather than a class hierarchy (spec §9 design note).
type Strategy interface {
	// Kind names the strategy variant, used for EngineState.Strategy and
	// for composite mode's per-child bookkeeping.
	Kind() string
	// Initialize is idempotent setup; it may precompress the problem.
	Initialize(problem string)
	// NextStep returns a step with status Active or Completed.
	NextStep() *Step
	// ShouldContinue is false once the strategy has produced its
	// terminal step.
	ShouldContinue() bool
	// Progress reports completion in [0,1].
	Progress() float64
	// ComputeMetrics reports the strategy's self-assessed metrics.
	ComputeMetrics() Metrics
}

// Factory builds a Strategy by name. Unknown names resolve to
// chain_of_thought, the spec's declared default fallback (spec §4.6
// step 1).
func Factory(kind string, idGen func() string) Strategy {
	switch kind {
	case "standard":
		return newLinear("standard", standardSteps, idGen)
	case "minimal":
		return newLinear("minimal", minimalSteps, idGen)
	case "strategic":
		return newStrategic(idGen)
	case "tree_of_thoughts":
		return newTreeOfThoughts(idGen)
	case "composite":
		return defaultComposite(idGen)
	case "chain_of_thought":
		return newChainOfThought(idGen)
	default:
		return newChainOfThought(idGen)
	}
}

// defaultComposite builds the composite strategy a caller reaches by
// naming "composite" alone, without its own child/mode configuration:
// a weighted draw over chain_of_thought (favored, for its bounded
// depth) and tree_of_thoughts (for its branch exploration), so
// composite is reachable end to end through the engine and tool
// surface rather than only via the explicit NewComposite constructor.
func defaultComposite(idGen func() string) Strategy {
	return NewComposite(
		CompositeWeighted,
		[]Strategy{newChainOfThought(idGen), newTreeOfThoughts(idGen)},
		[]float64{0.6, 0.4},
		idGen,
		false,
	)
}
