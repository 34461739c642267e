// Package pipeline implements the Pipeline Orchestrator: a strictly
// sequential sequence of named stages, each stage's output becoming the
// next stage's input (spec §4.7), grounded on the teacher's
// orchestrator/task/coordinator.go retry-with-backoff idiom, adapted
// from its parallel dependency-batch execution to a strict chain.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"

	cogerrors "github.com/harunnryd/cogproc/internal/errors"
)

// Stage is one named unit of pipeline work. Run receives the previous
// stage's output (or the pipeline's original input for the first stage)
// and returns its own output plus the tokens it consumed.
type Stage interface {
	Name() string
	Run(ctx context.Context, input string) (output string, tokensUsed int, err error)
}

// StageRecord is one stage's execution outcome, kept even on failure so
// a caller can see how far the pipeline progressed (spec §4.7/§7).
type StageRecord struct {
	ID         string
	StageName  string
	Input      string
	Output     string
	TokensUsed int
	Duration   time.Duration
	Attempts   int
	Err        error
}

// Result is the orchestrator's terminal output.
type Result struct {
	FinalResult  string
	TotalTokens  int
	StageRecords []StageRecord
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithRetry bounds the number of attempts (including the first) and the
// linear backoff between them for each stage (spec §4.7/§8).
func WithRetry(maxAttempts int, backoff time.Duration) Option {
	return func(o *Orchestrator) {
		if maxAttempts > 0 {
			o.retryMax = maxAttempts
		}
		if backoff > 0 {
			o.retryBackoff = backoff
		}
	}
}

// WithStageTimeout bounds a single stage attempt's execution time.
func WithStageTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.stageTimeout = d
		}
	}
}

// Orchestrator runs stages[0..n) in strict order, threading each
// output into the next input (spec §9 Open Question resolution #2: one
// constructor shape, no separate parallel-DAG mode here).
type Orchestrator struct {
	stages       []Stage
	retryMax     int
	retryBackoff time.Duration
	stageTimeout time.Duration
}

// NewOrchestrator builds an Orchestrator over stages, in the order given.
func NewOrchestrator(stages []Stage, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		stages:       stages,
		retryMax:     1,
		retryBackoff: time.Second,
		stageTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes every stage in order. On a stage's terminal failure
// (retries exhausted), it returns the records accumulated so far
// alongside a cogerrors.PipelineFailed wrapping the stage's last error
// (spec §4.7 "accumulated prior records returned").
func (o *Orchestrator) Run(ctx context.Context, input string) (*Result, error) {
	result := &Result{}
	current := input

	for i, stage := range o.stages {
		if ctx.Err() != nil {
			return result, cogerrors.Wrap(cogerrors.KindCanceled, "pipeline canceled", ctx.Err())
		}

		record, err := o.runStage(ctx, i, stage, current)
		result.StageRecords = append(result.StageRecords, record)

		if err != nil {
			return result, cogerrors.PipelineFailed(i+1, err)
		}

		result.TotalTokens += record.TokensUsed
		current = record.Output
	}

	result.FinalResult = current
	return result, nil
}

func (o *Orchestrator) runStage(ctx context.Context, index int, stage Stage, input string) (StageRecord, error) {
	record := StageRecord{
		ID:        ulid.Make().String(),
		StageName: stage.Name(),
		Input:     input,
	}

	start := time.Now()
	var lastErr error

	for attempt := 1; attempt <= o.retryMax; attempt++ {
		record.Attempts = attempt

		if ctx.Err() != nil {
			lastErr = ctx.Err()
			break
		}

		stageCtx, cancel := context.WithTimeout(ctx, o.stageTimeout)
		output, tokens, err := o.attempt(stageCtx, stage, input)
		cancel()

		if err == nil {
			record.Output = output
			record.TokensUsed = tokens
			record.Duration = time.Since(start)
			return record, nil
		}

		lastErr = err
		slog.Warn("pipeline stage attempt failed", "stage", stage.Name(), "index", index, "attempt", attempt, "error", err)

		if attempt < o.retryMax {
			select {
			case <-ctx.Done():
				lastErr = ctx.Err()
				attempt = o.retryMax
			case <-time.After(o.retryBackoff * time.Duration(attempt)):
			}
		}
	}

	record.Duration = time.Since(start)
	record.Err = lastErr
	return record, fmt.Errorf("stage %q: %w", stage.Name(), lastErr)
}

// attempt runs one stage call inside an errgroup so a parent
// cancellation aborts the in-flight call instead of waiting for it to
// return on its own (spec §5 cancellation propagation).
func (o *Orchestrator) attempt(ctx context.Context, stage Stage, input string) (string, int, error) {
	g, gctx := errgroup.WithContext(ctx)

	var output string
	var tokens int
	g.Go(func() error {
		out, tok, err := stage.Run(gctx, input)
		output, tokens = out, tok
		return err
	})

	if err := g.Wait(); err != nil {
		return "", 0, err
	}
	return output, tokens, nil
}
