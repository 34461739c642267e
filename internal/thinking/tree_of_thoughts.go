package thinking

import (
	"fmt"
	"hash/fnv"
	"sort"
	"strings"
	"time"
)

// totBranch is one node in the exploration tree. Id encodes depth via
// its underscore count (spec §4.5 tree_of_thoughts: "Branch id encodes
// depth via underscore count").
type totBranch struct {
	id         string
	depth      int
	evaluation float64
	explored   bool
	deadEnd    bool
}

func branchDepth(id string) int {
	return strings.Count(id, "_") + 1
}

// deterministicEvaluation scores a branch in [0,1] from its id and the
// problem text, standing in for the model-driven evaluation a real call
// would supply; kept deterministic so a run is reproducible.
func deterministicEvaluation(id, problem string) float64 {
	h := fnv.New32a()
	h.Write([]byte(id + "|" + problem))
	sum := h.Sum32()
	return float64(sum%1000) / 1000.0
}

// treeOfThoughts explores branching reasoning paths to a bounded depth,
// backtracking when a depth's frontier is exhausted before expanding the
// next depth's children from the best unexplored branches (spec §4.5
// tree_of_thoughts).
type treeOfThoughts struct {
	idGen     func() string
	problem   string
	maxDepth  int
	branching int

	frontier  []*totBranch
	explored  []*totBranch
	synthesized bool
	last      *Step
}

func newTreeOfThoughts(idGen func() string) *treeOfThoughts {
	return &treeOfThoughts{idGen: idGen, maxDepth: 3, branching: 2}
}

func (t *treeOfThoughts) Kind() string { return "tree_of_thoughts" }

func (t *treeOfThoughts) Initialize(problem string) {
	t.problem = problem
	tokenCount := len(problem) / 4
	switch {
	case tokenCount > 400:
		t.maxDepth, t.branching = 5, 3
	case tokenCount > 150:
		t.maxDepth, t.branching = 4, 3
	default:
		t.maxDepth, t.branching = 3, 2
	}

	t.frontier = nil
	for i := 1; i <= t.branching; i++ {
		id := fmt.Sprintf("%d", i)
		t.frontier = append(t.frontier, &totBranch{id: id, depth: 1, evaluation: deterministicEvaluation(id, problem)})
	}
}

func (t *treeOfThoughts) bestUnexplored() *totBranch {
	var best *totBranch
	for _, b := range t.frontier {
		if b.explored {
			continue
		}
		if best == nil || b.evaluation > best.evaluation {
			best = b
		}
	}
	return best
}

func (t *treeOfThoughts) expandChildren(parent *totBranch) {
	if parent.depth >= t.maxDepth {
		parent.deadEnd = true
		return
	}
	for i := 1; i <= t.branching; i++ {
		id := fmt.Sprintf("%s_%d", parent.id, i)
		t.frontier = append(t.frontier, &totBranch{id: id, depth: parent.depth + 1, evaluation: deterministicEvaluation(id, t.problem)})
	}
}

func (t *treeOfThoughts) NextStep() *Step {
	if t.synthesized {
		return t.last
	}

	next := t.bestUnexplored()
	if next == nil {
		// Backtrack: expand the best already-explored, non-dead-end branch
		// to generate a fresh unexplored frontier. An expanded branch is
		// marked deadEnd so it is never expanded a second time.
		sort.SliceStable(t.explored, func(i, j int) bool { return t.explored[i].evaluation > t.explored[j].evaluation })
		var parent *totBranch
		for _, b := range t.explored {
			if !b.deadEnd {
				parent = b
				break
			}
		}
		if parent == nil {
			return t.synthesize()
		}
		t.expandChildren(parent)
		parent.deadEnd = true
		next = t.bestUnexplored()
		if next == nil {
			return t.synthesize()
		}
	}

	next.explored = true
	t.explored = append(t.explored, next)
	t.frontier = removeBranch(t.frontier, next)

	if next.depth >= t.maxDepth {
		return t.synthesize()
	}

	step := &Step{
		ID:          t.idGen(),
		Description: "explore branch " + next.id,
		Reasoning:   fmt.Sprintf("exploring branch %s at depth %d for: %s", next.id, next.depth, t.problem),
		Status:      StepActive,
		Timestamp:   time.Now(),
		Confidence:  baselineConfidence(t.Progress(), t.remainingComplexity()),
	}
	t.last = step
	return step
}

func (t *treeOfThoughts) synthesize() *Step {
	best := t.bestAtMaxDepth()
	desc := "synthesis"
	reasoning := "no branch reached target depth; synthesizing from best available path"
	if best != nil {
		reasoning = fmt.Sprintf("synthesis from best path %s (evaluation %.2f) for: %s", best.id, best.evaluation, t.problem)
	}
	step := &Step{
		ID:          t.idGen(),
		Description: desc,
		Reasoning:   reasoning,
		Status:      StepCompleted,
		ShouldStop:  true,
		Timestamp:   time.Now(),
		Confidence:  baselineConfidence(1.0, "low"),
	}
	t.synthesized = true
	t.last = step
	return step
}

func (t *treeOfThoughts) bestAtMaxDepth() *totBranch {
	var best *totBranch
	for _, b := range t.explored {
		if b.depth != t.maxDepth {
			continue
		}
		if best == nil || b.evaluation > best.evaluation {
			best = b
		}
	}
	return best
}

func removeBranch(branches []*totBranch, target *totBranch) []*totBranch {
	out := branches[:0]
	for _, b := range branches {
		if b != target {
			out = append(out, b)
		}
	}
	return out
}

func (t *treeOfThoughts) ShouldContinue() bool { return !t.synthesized }

func (t *treeOfThoughts) Progress() float64 {
	if t.synthesized {
		return 1
	}
	maxExplored := 0
	for _, b := range t.explored {
		if b.depth > maxExplored {
			maxExplored = b.depth
		}
	}
	return float64(maxExplored) / float64(t.maxDepth)
}

func (t *treeOfThoughts) remainingComplexity() string {
	remaining := t.maxDepth - int(t.Progress()*float64(t.maxDepth))
	switch {
	case remaining <= 1:
		return "low"
	case remaining <= t.maxDepth/2+1:
		return "medium"
	default:
		return "high"
	}
}

func (t *treeOfThoughts) ComputeMetrics() Metrics {
	progress := t.Progress()
	return Metrics{
		Confidence:      baselineConfidence(progress, t.remainingComplexity()),
		Reasoning:       fmt.Sprintf("tree of thoughts depth %d/%d, %d branches explored", int(progress*float64(t.maxDepth)), t.maxDepth, len(t.explored)),
		TokenEfficiency: tokenEfficiency(progress, estimateStepTokens(t.last)),
		ComplexityScore: complexityScoreFor(t.remainingComplexity()),
	}
}
