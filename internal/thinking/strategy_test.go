package thinking

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func drainSteps(t *testing.T, s Strategy, problem string, limit int) []*Step {
	t.Helper()
	s.Initialize(problem)
	var steps []*Step
	for i := 0; s.ShouldContinue() && i < limit; i++ {
		step := s.NextStep()
		require.NotNil(t, step)
		steps = append(steps, step)
	}
	return steps
}

func TestFactory_UnknownKindFallsBackToChainOfThought(t *testing.T) {
	s := Factory("not-a-real-strategy", sequentialIDs())
	assert.Equal(t, "chain_of_thought", s.Kind())
}

func TestFactory_Composite_ResolvesToWorkingStrategy(t *testing.T) {
	s := Factory("composite", sequentialIDs())
	require.NotNil(t, s)
	assert.Contains(t, s.Kind(), "composite:")

	steps := drainSteps(t, s, "evaluate a migration plan", 50)
	assert.NotEmpty(t, steps)
	assert.False(t, s.ShouldContinue())
}

func TestLinear_StandardSequence(t *testing.T) {
	s := Factory("standard", sequentialIDs())
	steps := drainSteps(t, s, "build a cache", 10)
	require.Len(t, steps, len(standardSteps))
	assert.Equal(t, StepCompleted, steps[len(steps)-1].Status)
	assert.True(t, steps[len(steps)-1].ShouldStop)
	assert.False(t, s.ShouldContinue())
}

func TestLinear_MinimalSequence(t *testing.T) {
	s := Factory("minimal", sequentialIDs())
	steps := drainSteps(t, s, "quick fix", 10)
	require.Len(t, steps, len(minimalSteps))
}

func TestStrategic_FivePhaseCycle(t *testing.T) {
	s := Factory("strategic", sequentialIDs())
	steps := drainSteps(t, s, "plan a rollout", 10)
	require.Len(t, steps, len(strategicPhases))
	assert.Equal(t, "validate", steps[len(steps)-1].Description)
	assert.Equal(t, StepCompleted, steps[len(steps)-1].Status)
}

func TestChainOfThought_ScalesThoughtCountWithProblemSize(t *testing.T) {
	small := newChainOfThought(sequentialIDs())
	small.Initialize("short problem")
	assert.Equal(t, 4, small.maxThoughts)

	large := newChainOfThought(sequentialIDs())
	large.Initialize(fmt.Sprintf("%02000s", "x"))
	assert.Equal(t, 8, large.maxThoughts)
}

func TestChainOfThought_EndsWithConclusion(t *testing.T) {
	s := Factory("chain_of_thought", sequentialIDs())
	steps := drainSteps(t, s, "design a system", 20)
	last := steps[len(steps)-1]
	assert.Equal(t, "conclusion", last.Description)
	assert.Equal(t, StepCompleted, last.Status)
	assert.True(t, last.ShouldStop)
}

func TestTreeOfThoughts_DepthAndBranchingScaleWithProblemSize(t *testing.T) {
	small := newTreeOfThoughts(sequentialIDs())
	small.Initialize("short")
	assert.Equal(t, 3, small.maxDepth)
	assert.Equal(t, 2, small.branching)

	large := newTreeOfThoughts(sequentialIDs())
	large.Initialize(fmt.Sprintf("%02000s", "x"))
	assert.Equal(t, 5, large.maxDepth)
	assert.Equal(t, 3, large.branching)
}

func TestTreeOfThoughts_BranchIDEncodesDepthByUnderscoreCount(t *testing.T) {
	assert.Equal(t, 1, branchDepth("2"))
	assert.Equal(t, 2, branchDepth("2_1"))
	assert.Equal(t, 3, branchDepth("2_1_3"))
}

func TestTreeOfThoughts_TerminatesWithSynthesis(t *testing.T) {
	s := newTreeOfThoughts(sequentialIDs())
	steps := drainSteps(t, s, "compare two architectural alternatives", 200)
	require.NotEmpty(t, steps)
	last := steps[len(steps)-1]
	assert.Equal(t, "synthesis", last.Description)
	assert.Equal(t, StepCompleted, last.Status)
	assert.False(t, s.ShouldContinue())
}

func TestTreeOfThoughts_Deterministic(t *testing.T) {
	a := newTreeOfThoughts(sequentialIDs())
	b := newTreeOfThoughts(sequentialIDs())
	stepsA := drainSteps(t, a, "explore alternatives for caching", 200)
	stepsB := drainSteps(t, b, "explore alternatives for caching", 200)
	require.Equal(t, len(stepsA), len(stepsB))
	for i := range stepsA {
		assert.Equal(t, stepsA[i].Description, stepsB[i].Description)
	}
}

func TestComposite_SequentialDispatchesFirstActiveChild(t *testing.T) {
	children := []Strategy{
		Factory("minimal", sequentialIDs()),
		Factory("strategic", sequentialIDs()),
	}
	c := NewComposite(CompositeSequential, children, nil, sequentialIDs(), false)
	c.Initialize("ship the feature")

	step := c.NextStep()
	require.NotNil(t, step)
	assert.Equal(t, minimalSteps[0], step.Description)
}

func TestComposite_ParallelPicksHighestConfidence(t *testing.T) {
	children := []Strategy{
		Factory("minimal", sequentialIDs()),
		Factory("standard", sequentialIDs()),
	}
	c := NewComposite(CompositeParallel, children, nil, sequentialIDs(), false)
	c.Initialize("ship the feature")

	step := c.NextStep()
	require.NotNil(t, step)
	// minimal's first step (1/3 done, 0.33) outscores standard's (1/5 done, 0.24).
	assert.Contains(t, c.ComputeMetrics().Reasoning, "via minimal")
}

func TestComposite_WeightedRunsToCompletion(t *testing.T) {
	children := []Strategy{
		Factory("minimal", sequentialIDs()),
		Factory("strategic", sequentialIDs()),
	}
	c := NewComposite(CompositeWeighted, children, []float64{2, 1}, sequentialIDs(), true)
	steps := drainSteps(t, c, "evaluate rollout plan", 50)
	assert.NotEmpty(t, steps)
	assert.False(t, c.ShouldContinue())
}

func TestComposite_MetricsFoldsRemainingChildrenAsAlternatives(t *testing.T) {
	children := []Strategy{
		Factory("minimal", sequentialIDs()),
		Factory("strategic", sequentialIDs()),
	}
	c := NewComposite(CompositeSequential, children, nil, sequentialIDs(), false)
	c.Initialize("evaluate options")
	_ = c.NextStep()

	metrics := c.ComputeMetrics()
	assert.NotEmpty(t, metrics.Alternatives)
}
