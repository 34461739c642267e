// Package thinking implements the Thinking Strategies, the Thinking
// Engine, and the per-problem Engine State (spec §4.5, §4.6, §3),
// grounded on the teacher's cognitive.DefaultCognitiveEngine OODA-loop
// shape but restructured around a tagged-variant strategy instead of the
// teacher's Planner/Thinker/Actor/Reflector interface quartet.
package thinking

import (
	"time"
)

// StepStatus is a ThinkingStep's lifecycle status.
type StepStatus string

const (
	StepPending   StepStatus = "pending"
	StepActive    StepStatus = "active"
	StepCompleted StepStatus = "completed"
	StepError     StepStatus = "error"
)

// StepMetrics is a step's sub-record of [0,1]-bounded scores (spec §3).
type StepMetrics struct {
	Coherence    float64 `json:"coherence"`
	Complexity   float64 `json:"complexity"`
	Significance float64 `json:"significance"`
}

// Step is one unit of reasoning (spec ThinkingStep). Once Status is
// Completed or Error it must never be mutated again.
type Step struct {
	ID          string      `json:"id"`
	Description string      `json:"description"`
	Reasoning   string      `json:"reasoning"`
	Tokens      int         `json:"tokens"`
	Status      StepStatus  `json:"status"`
	Timestamp   time.Time   `json:"timestamp"`
	Confidence  float64     `json:"confidence"`
	Metrics     StepMetrics `json:"metrics"`

	// Carried through from the strategy/provider response so the engine
	// can decide continuation and compute the next step's metrics.
	Alternatives []string `json:"alternatives,omitempty"`
	Challenges   []string `json:"challenges,omitempty"`
	Concepts     []string `json:"concepts,omitempty"`
	ShouldStop   bool     `json:"-"`
}

// Phase is an EngineState's lifecycle phase (spec §3). Transitions are
// monotonic except that Error is terminal: Error->Completed is forbidden.
type Phase string

const (
	PhaseInitializing     Phase = "Initializing"
	PhaseProblemAnalysis  Phase = "ProblemAnalysis"
	PhaseStrategySelection Phase = "StrategySelection"
	PhaseExecution        Phase = "Execution"
	PhaseConclusion       Phase = "Conclusion"
	PhaseError            Phase = "Error"
	PhaseCompleted        Phase = "Completed"
)

// AdjustmentKind names a dynamic change recorded in the state's ledger.
type AdjustmentKind string

const (
	AdjustmentRaiseBudget      AdjustmentKind = "raise_budget"
	AdjustmentStrategySwitch   AdjustmentKind = "strategy_switch"
	AdjustmentProgressOverride AdjustmentKind = "progress_override"
)

// Adjustment is one append-only ledger entry (spec EngineState).
type Adjustment struct {
	Timestamp time.Time      `json:"timestamp"`
	Kind      AdjustmentKind `json:"kind"`
	Trigger   string         `json:"trigger"`
	Details   string         `json:"details"`
}

// ProgressMetrics is the engine's rolling summary across all steps so far.
type ProgressMetrics struct {
	AverageConfidence float64 `json:"averageConfidence"`
	AverageCoherence  float64 `json:"averageCoherence"`
	TokenEfficiency   float64 `json:"tokenEfficiency"`
}

// State is the per-problem mutable record (spec EngineState). It is
// owned exclusively by one Engine.Process call; it is never shared
// across requests (spec §9 Open Question resolution #3).
type State struct {
	ProblemID        string
	OriginalProblem  string
	ProcessedProblem string
	ProblemType      string
	Phase            Phase
	Steps            []*Step
	CurrentStepIndex int
	InitialTokenBudget int
	TokenBudget      int
	TokensUsed       int
	MaxSteps         int
	Strategy         string
	Model            string
	Progress         ProgressMetrics
	Adjustments      []Adjustment
}

// NewState constructs a fresh State for one problem run.
func NewState(problemID, problem, model, strategy string, tokenBudget, maxSteps int) *State {
	return &State{
		ProblemID:          problemID,
		OriginalProblem:    problem,
		ProcessedProblem:   problem,
		Phase:              PhaseInitializing,
		InitialTokenBudget: tokenBudget,
		TokenBudget:        tokenBudget,
		MaxSteps:           maxSteps,
		Strategy:           strategy,
		Model:              model,
	}
}

// AppendStep records a completed/error step, enforcing steps.length <=
// maxSteps (spec §8 invariant 4).
func (s *State) AppendStep(step *Step) {
	if len(s.Steps) >= s.MaxSteps {
		return
	}
	s.Steps = append(s.Steps, step)
	s.TokensUsed += step.Tokens
	s.CurrentStepIndex = len(s.Steps)
}

// RaiseBudget records a budget increase and applies it, the only way
// TokensUsed may legitimately exceed the original budget (spec §8
// invariant 1).
func (s *State) RaiseBudget(newBudget int, trigger, details string) {
	if newBudget <= s.TokenBudget {
		return
	}
	s.TokenBudget = newBudget
	s.Adjustments = append(s.Adjustments, Adjustment{
		Timestamp: time.Now(),
		Kind:      AdjustmentRaiseBudget,
		Trigger:   trigger,
		Details:   details,
	})
}

// SetPhase transitions state's phase, refusing the forbidden
// Error->Completed transition (spec §3 invariant).
func (s *State) SetPhase(p Phase) {
	if s.Phase == PhaseError && p == PhaseCompleted {
		return
	}
	s.Phase = p
}

// UpdateProgress recomputes the rolling progress summary from the steps
// recorded so far.
func (s *State) UpdateProgress() {
	if len(s.Steps) == 0 {
		return
	}
	var confSum, cohSum float64
	for _, st := range s.Steps {
		confSum += st.Confidence
		cohSum += st.Metrics.Coherence
	}
	n := float64(len(s.Steps))
	s.Progress.AverageConfidence = confSum / n
	s.Progress.AverageCoherence = cohSum / n
	if s.TokensUsed > 0 {
		s.Progress.TokenEfficiency = n / (float64(s.TokensUsed) / 1000.0)
	}
}
