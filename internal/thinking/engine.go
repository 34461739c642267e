package thinking

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/harunnryd/cogproc/internal/cache"
	"github.com/harunnryd/cogproc/internal/contract"
	cogerrors "github.com/harunnryd/cogproc/internal/errors"
	"github.com/harunnryd/cogproc/internal/optimizer"
)

// Querier is the narrow operation the engine needs from whatever sits
// downstream of it; satisfied by *fallback.Provider and by any single
// *provider.Wrapped, so tests can substitute a stub.
type Querier interface {
	Query(ctx context.Context, req contract.CompletionRequest) (*contract.CompletionResponse, error)
}

// Options tunes one Process call (spec §4.6 step 1/ProcessingOptions).
type Options struct {
	Strategy            string
	Model               string
	TokenBudget         int
	MaxSteps            int
	ContextWindowSteps  int
	PerStepTokenCap     int
	StepDeadline        time.Duration
	EnableOptimization  bool
	OptimizationThreshold float64
}

// Result is the engine's terminal output (spec §4.6 Process() operation).
type Result struct {
	ProblemID     string
	Steps         []*Step
	Reasoning     []string
	TokenUsage    contract.TokenUsage
	ExecutionTime time.Duration
	StateMetrics  ProgressMetrics
	Optimization  *optimizer.Result
	Phase         Phase
	Partial       bool
	Err           error
}

// Engine runs the step loop: build context, optionally optimize it,
// dispatch through a Querier, parse and score the response, append to
// State, and repeat until the strategy says stop or MaxSteps is reached;
// an exhausted token budget is raised rather than ending the loop (spec
// §4.6), grounded on the teacher's cognitive.DefaultCognitiveEngine.Run
// OODA loop shape.
type Engine struct {
	querier   Querier
	optimizer *optimizer.Optimizer
	cache     *cache.Cache

	maxStepsDefault       int
	perStepTokenCapDefault int
	contextWindowDefault  int
	stepDeadlineDefault   time.Duration
}

// NewEngine constructs a Thinking Engine. cacheStore may be nil. Process
// neither reads from nor writes to it: every step queries the Querier,
// and a non-nil cacheStore only enables one debug log line at the end.
func NewEngine(querier Querier, opt *optimizer.Optimizer, cacheStore *cache.Cache, maxSteps, perStepTokenCap, contextWindowSteps int, stepDeadline time.Duration) *Engine {
	return &Engine{
		querier:                querier,
		optimizer:              opt,
		cache:                  cacheStore,
		maxStepsDefault:        maxSteps,
		perStepTokenCapDefault: perStepTokenCap,
		contextWindowDefault:   contextWindowSteps,
		stepDeadlineDefault:    stepDeadline,
	}
}

// selectStrategyKind resolves a strategy name from a simple keyword
// scan over the problem text when the caller did not pin one, defaulting
// to chain_of_thought (spec §4.6 step 1).
func selectStrategyKind(problem string) string {
	lower := strings.ToLower(problem)
	switch {
	case strings.Contains(lower, "strategy") || strings.Contains(lower, "plan"):
		return "strategic"
	case strings.Contains(lower, "compare") || strings.Contains(lower, "explore") || strings.Contains(lower, "alternative"):
		return "tree_of_thoughts"
	case strings.Contains(lower, "quick") || strings.Contains(lower, "brief") || strings.Contains(lower, "simple"):
		return "minimal"
	case strings.Contains(lower, "design") || strings.Contains(lower, "architecture") || strings.Contains(lower, "implement"):
		return "standard"
	default:
		return "chain_of_thought"
	}
}

func newProblemID() string { return ulid.Make().String() }

// Process runs one problem to completion (or to a recorded partial
// failure) and never panics or returns a bare error to the caller; a
// downstream failure is folded into Result.Err/Partial so the tool
// surface can still report whatever steps were produced (spec §4.6/§7).
func (e *Engine) Process(ctx context.Context, problem string, opts Options) *Result {
	start := time.Now()
	problemID := newProblemID()

	result := &Result{ProblemID: problemID, Phase: PhaseInitializing}
	defer func() { result.ExecutionTime = time.Since(start) }()

	if strings.TrimSpace(problem) == "" {
		result.Phase = PhaseCompleted
		result.Steps = []*Step{}
		return result
	}

	strategyKind := opts.Strategy
	if strategyKind == "" {
		strategyKind = selectStrategyKind(problem)
	}
	maxSteps := opts.MaxSteps
	if maxSteps <= 0 {
		maxSteps = e.maxStepsDefault
	}
	tokenBudget := opts.TokenBudget
	if tokenBudget <= 0 {
		tokenBudget = 8192
	}
	perStepCap := opts.PerStepTokenCap
	if perStepCap <= 0 {
		perStepCap = e.perStepTokenCapDefault
	}
	contextWindow := opts.ContextWindowSteps
	if contextWindow <= 0 {
		contextWindow = e.contextWindowDefault
	}
	stepDeadline := opts.StepDeadline
	if stepDeadline <= 0 {
		stepDeadline = e.stepDeadlineDefault
	}

	state := NewState(problemID, problem, opts.Model, strategyKind, tokenBudget, maxSteps)
	state.SetPhase(PhaseProblemAnalysis)

	if e.optimizer != nil && opts.EnableOptimization {
		opt := e.optimizer.Optimize(problem, optimizer.Context{AvailableTokens: tokenBudget, ModelName: opts.Model})
		threshold := opts.OptimizationThreshold
		if threshold <= 0 {
			threshold = 0.7
		}
		originalEstimate := e.estimateTokens(problem, opts.Model)
		reductionRatio := 0.0
		if originalEstimate > 0 {
			reductionRatio = float64(opt.Savings) / float64(originalEstimate)
		}
		if reductionRatio >= (1 - threshold) {
			state.ProcessedProblem = opt.OptimizedText
		}
		result.Optimization = &opt
	}

	state.SetPhase(PhaseStrategySelection)
	strategy := Factory(strategyKind, func() string { return ulid.Make().String() })
	if strategy == nil {
		strategy = newChainOfThought(func() string { return ulid.Make().String() })
	}
	strategy.Initialize(state.ProcessedProblem)

	state.SetPhase(PhaseExecution)

	for strategy.ShouldContinue() && len(state.Steps) < state.MaxSteps {
		if ctx.Err() != nil {
			result.Partial = true
			result.Err = cogerrors.Wrap(cogerrors.KindCanceled, "processing canceled", ctx.Err())
			break
		}
		if state.TokensUsed >= state.TokenBudget {
			state.RaiseBudget(state.TokenBudget+perStepCap*2, "budget_exhausted", "raised to allow a closing step")
		}

		proposed := strategy.NextStep()
		if proposed == nil {
			break
		}

		stepCtx, cancel := context.WithTimeout(ctx, stepDeadline)
		req := e.buildRequest(state, proposed, contextWindow, perStepCap, opts.Model)
		resp, err := e.querier.Query(stepCtx, req)
		cancel()

		if err != nil {
			proposed.Status = StepError
			proposed.Reasoning = "provider call failed: " + err.Error()
			state.AppendStep(proposed)
			result.Partial = true
			result.Err = err
			break
		}

		analysis, _, parsed := parseStepResponse(resp.Text())
		if !parsed {
			proposed.Status = StepError
			proposed.Confidence = 0
			proposed.ShouldStop = true
			proposed.Challenges = append(proposed.Challenges, "model response was not well-formed JSON")
			proposed.Tokens = resp.Usage.Total
			state.AppendStep(proposed)
			result.TokenUsage.Prompt += resp.Usage.Prompt
			result.TokenUsage.Completion += resp.Usage.Completion
			result.TokenUsage.Total += resp.Usage.Total
			result.Partial = true
			result.Err = cogerrors.New(cogerrors.KindParse, "model response was not well-formed JSON")
			break
		}
		applyAnalysis(proposed, analysis)

		proposed.Tokens = resp.Usage.Total
		if proposed.Tokens == 0 {
			proposed.Tokens = e.estimateTokens(resp.Text(), opts.Model)
		}
		proposed.Metrics = StepMetrics{
			Coherence:    computeCoherence(proposed.Reasoning, state.Steps),
			Significance: computeSignificance(proposed.Reasoning, state.OriginalProblem),
			Complexity:   computeComplexity(proposed.Reasoning, proposed.Challenges, proposed.Concepts, proposed.Confidence),
		}

		state.AppendStep(proposed)
		state.UpdateProgress()

		result.TokenUsage.Prompt += resp.Usage.Prompt
		result.TokenUsage.Completion += resp.Usage.Completion
		result.TokenUsage.Total += resp.Usage.Total

		if proposed.ShouldStop || proposed.Status == StepCompleted {
			break
		}
	}

	if result.Err == nil {
		state.SetPhase(PhaseConclusion)
		state.SetPhase(PhaseCompleted)
	} else {
		state.SetPhase(PhaseError)
	}

	result.Steps = state.Steps
	result.StateMetrics = state.Progress
	result.Phase = state.Phase
	for _, s := range state.Steps {
		result.Reasoning = append(result.Reasoning, s.Reasoning)
	}

	if e.cache != nil {
		slog.Debug("thinking process complete", "problem_id", problemID, "steps", len(state.Steps), "phase", state.Phase)
	}

	return result
}

// buildRequest constructs the next provider call from the last
// contextWindow steps, trimming to perStepCap via the Token Optimizer
// when the assembled context runs long (spec §4.6 step c).
func (e *Engine) buildRequest(state *State, proposed *Step, contextWindow, perStepCap int, model string) contract.CompletionRequest {
	var sb strings.Builder
	sb.WriteString("Problem: ")
	sb.WriteString(state.OriginalProblem)
	sb.WriteString("\n\n")

	start := len(state.Steps) - contextWindow
	if start < 0 {
		start = 0
	}
	for _, prior := range state.Steps[start:] {
		sb.WriteString("Step ")
		sb.WriteString(prior.Description)
		sb.WriteString(": ")
		sb.WriteString(prior.Reasoning)
		sb.WriteString("\n")
	}
	sb.WriteString("\nNext, produce: ")
	sb.WriteString(proposed.Description)

	content := sb.String()
	if e.optimizer != nil {
		if est := e.optimizer.EstimateTokens(content, model); est > perStepCap {
			opt := e.optimizer.Optimize(content, optimizer.Context{AvailableTokens: perStepCap, ModelName: model})
			content = opt.OptimizedText
		}
	}

	return contract.CompletionRequest{
		ModelID: model,
		Messages: []contract.Message{
			{Role: "system", Content: "Respond with a single JSON object describing this reasoning step."},
			{Role: "user", Content: content},
		},
		MaxTokens: perStepCap,
	}
}

func (e *Engine) estimateTokens(text, model string) int {
	if e.optimizer == nil {
		return len(text) / 4
	}
	return e.optimizer.EstimateTokens(text, model)
}

// applyAnalysis folds a successfully parsed model response into the
// proposed step (spec §4.6 step d); a parse failure is handled upstream
// in Process and never reaches this function.
func applyAnalysis(step *Step, analysis StepAnalysis) {
	if analysis.Reasoning != "" {
		step.Reasoning = analysis.Reasoning
	}
	if analysis.Description != "" {
		step.Description = analysis.Description
	}
	if analysis.Confidence != nil {
		step.Confidence = clamp01(*analysis.Confidence)
	}
	step.Challenges = analysis.Challenges
	step.Concepts = analysis.Concepts
	if len(analysis.Alternatives) > 0 {
		step.Alternatives = analysis.Alternatives
	}
	if analysis.ShouldContinue != nil && !*analysis.ShouldContinue {
		step.ShouldStop = true
		step.Status = StepCompleted
	}
}
