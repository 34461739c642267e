// Package provider implements the Model Provider layer: a uniform
// query(req) -> resp operation over a single remote endpoint with
// timeout, retry, adaptive timeout, and health tracking (spec §4.3),
// grounded on the teacher's model/router.go dispatch shape but
// restructured so each concern is an explicit, composable wrapper rather
// than bundled into the router.
package provider

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	cogerrors "github.com/harunnryd/cogproc/internal/errors"
	"github.com/harunnryd/cogproc/internal/contract"
)

// Health is a provider's three-state status (spec ProviderDescriptor).
type Health string

const (
	HealthHealthy   Health = "healthy"
	HealthDegraded  Health = "degraded"
	HealthUnhealthy Health = "unhealthy"
)

// RawProvider is the minimal SDK-backed operation every concrete
// provider (openai, anthropic, gemini; zai goes through openai) implements, with none of the
// timeout/retry/health policy baked in.
type RawProvider interface {
	Name() string
	Query(ctx context.Context, req contract.CompletionRequest) (*contract.CompletionResponse, error)
}

// Config tunes the shared timeout/retry/health wrapper.
type Config struct {
	Timeout          time.Duration
	OverallTimeout   time.Duration
	RetryMax         int
	RetryBaseBackoff time.Duration
	RetryMaxBackoff  time.Duration
	Concurrency      int
	AdaptiveTimeout  bool
}

// DefaultConfig matches spec §4.3/§5's stated defaults.
func DefaultConfig() Config {
	return Config{
		Timeout:          30 * time.Second,
		OverallTimeout:   60 * time.Second,
		RetryMax:         3,
		RetryBaseBackoff: 1 * time.Second,
		RetryMaxBackoff:  2 * time.Second,
		Concurrency:      8,
		AdaptiveTimeout:  true,
	}
}

type healthState struct {
	mu                sync.Mutex
	status            Health
	consecutiveFails  int
	windowStart       time.Time
	lastFailure       time.Time
}

func newHealthState() *healthState {
	return &healthState{status: HealthHealthy}
}

func (h *healthState) recordSuccess() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.consecutiveFails = 0
	h.status = HealthHealthy
}

func (h *healthState) recordFailure() {
	h.recordFailures(1)
}

// recordFailures advances the consecutive-failure count by weight in one
// update, used so one Query call that exhausted its own internal retries
// registers as more than a single plain failure without scaling with the
// configured retry count (spec §8 scenario 4: one fallback call whose
// retries are all exhausted degrades the provider, it does not make it
// unhealthy outright).
func (h *healthState) recordFailures(weight int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	now := time.Now()
	if h.windowStart.IsZero() || now.Sub(h.windowStart) > 60*time.Second {
		h.windowStart = now
		h.consecutiveFails = 0
	}
	h.consecutiveFails += weight
	h.lastFailure = now

	switch {
	case h.consecutiveFails >= 4:
		h.status = HealthUnhealthy
	case h.consecutiveFails >= 2:
		h.status = HealthDegraded
	}
}

func (h *healthState) get() Health {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.status
}

// Wrapped adds timeout, retry-with-backoff, adaptive timeout, health
// tracking, and a bounded-concurrency backpressure limiter around a
// RawProvider (spec §4.3, §5).
type Wrapped struct {
	raw    RawProvider
	cfg    Config
	health *healthState
	sem    chan struct{}

	timeoutMu sync.Mutex
	timeout   time.Duration
	ceiling   time.Duration
}

// Wrap builds a policy-enforcing provider around raw.
func Wrap(raw RawProvider, cfg Config) *Wrapped {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConfig().Concurrency
	}
	return &Wrapped{
		raw:     raw,
		cfg:     cfg,
		health:  newHealthState(),
		sem:     make(chan struct{}, cfg.Concurrency),
		timeout: cfg.Timeout,
		ceiling: cfg.Timeout * 4,
	}
}

// Name returns the underlying provider's name.
func (w *Wrapped) Name() string { return w.raw.Name() }

// Health reports the provider's current status.
func (w *Wrapped) Health() Health { return w.health.get() }

func (w *Wrapped) currentTimeout() time.Duration {
	w.timeoutMu.Lock()
	defer w.timeoutMu.Unlock()
	return w.timeout
}

func (w *Wrapped) adaptTimeout(elapsed time.Duration) {
	if !w.cfg.AdaptiveTimeout {
		return
	}
	w.timeoutMu.Lock()
	defer w.timeoutMu.Unlock()

	if elapsed > w.timeout/2 {
		relaxed := time.Duration(float64(w.timeout) * 1.25)
		if relaxed > w.ceiling {
			relaxed = w.ceiling
		}
		w.timeout = relaxed
		return
	}
	if elapsed < w.timeout/4 && w.timeout > w.cfg.Timeout {
		decayed := time.Duration(float64(w.timeout) / 1.25)
		if decayed < w.cfg.Timeout {
			decayed = w.cfg.Timeout
		}
		w.timeout = decayed
	}
}

// Query dispatches req against the wrapped provider, enforcing a
// bounded-concurrency limiter, a per-call timeout (adaptive when
// configured) inside an overall deadline, and a retry-with-backoff
// policy over transient error categories (spec §4.3).
func (w *Wrapped) Query(ctx context.Context, req contract.CompletionRequest) (*contract.CompletionResponse, error) {
	select {
	case w.sem <- struct{}{}:
		defer func() { <-w.sem }()
	default:
		return nil, cogerrors.New(cogerrors.KindRateLimited, w.raw.Name()+" at capacity")
	}

	overallCtx, cancel := context.WithTimeout(ctx, w.cfg.OverallTimeout)
	defer cancel()

	mapper := cogerrors.NewDefaultErrorMapper()
	var lastErr error

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = w.cfg.RetryBaseBackoff
	policy.MaxInterval = w.cfg.RetryMaxBackoff
	policy.Multiplier = 2
	policy.RandomizationFactor = 0.3

	for attempt := 0; attempt <= w.cfg.RetryMax; attempt++ {
		if overallCtx.Err() != nil {
			return nil, cogerrors.Wrap(cogerrors.KindCanceled, "overall deadline exceeded", overallCtx.Err())
		}

		attemptCtx, attemptCancel := context.WithTimeout(overallCtx, w.currentTimeout())
		start := time.Now()
		resp, err := w.raw.Query(attemptCtx, req)
		elapsed := time.Since(start)
		attemptCancel()

		if err == nil {
			w.health.recordSuccess()
			w.adaptTimeout(elapsed)
			resp.LatencyMs = elapsed.Milliseconds()
			return resp, nil
		}

		mapped := mapper.MapError(err)
		lastErr = mapped
		if !cogerrors.IsRetryable(mapped) {
			w.health.recordFailure()
			return nil, mapped
		}
		if attempt == w.cfg.RetryMax {
			if attempt > 0 {
				// retries were actually exhausted: this call is worse than
				// one plain failure, but must not alone tip a healthy
				// provider past degraded (spec §8 scenario 4).
				w.health.recordFailures(2)
			} else {
				w.health.recordFailure()
			}
			return nil, mapped
		}

		wait := policy.NextBackOff()
		jittered := wait + time.Duration(rand.Int63n(int64(wait)/4+1))
		select {
		case <-time.After(jittered):
		case <-overallCtx.Done():
			w.health.recordFailures(2)
			return nil, cogerrors.Wrap(cogerrors.KindCanceled, "canceled during retry backoff", overallCtx.Err())
		}
	}

	return nil, lastErr
}
