// Package fallback implements the Fallback Provider: a priority/weight
// ordered multiplexer over Model Providers with health-driven failover
// (spec §4.4), grounded on the teacher's model/router.go registry and
// resolution idiom (sync.RWMutex-guarded map, slog trace-id logging).
package fallback

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	cogerrors "github.com/harunnryd/cogproc/internal/errors"
	"github.com/harunnryd/cogproc/internal/contract"
	"github.com/harunnryd/cogproc/internal/provider"
)

// Entry describes one registered provider's selection weight.
type Entry struct {
	Name     string
	Provider *provider.Wrapped
	Priority int
	Weight   float64
}

// Provider is the Fallback Provider registry.
type Provider struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

// New constructs an empty registry.
func New() *Provider {
	return &Provider{entries: make(map[string]*Entry)}
}

// Register adds or replaces a provider under name (idempotent on name,
// spec §4.4/§8).
func (f *Provider) Register(name string, p *provider.Wrapped, priority int, weight float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[name] = &Entry{Name: name, Provider: p, Priority: priority, Weight: weight}
}

func (f *Provider) orderedCandidates() []*Entry {
	f.mu.RLock()
	defer f.mu.RUnlock()

	candidates := make([]*Entry, 0, len(f.entries))
	for _, e := range f.entries {
		if e.Provider.Health() == provider.HealthUnhealthy {
			continue
		}
		candidates = append(candidates, e)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Priority != candidates[j].Priority {
			return candidates[i].Priority > candidates[j].Priority
		}
		return candidates[i].Weight > candidates[j].Weight
	})
	return candidates
}

// Query attempts providers in priority/weight order, advancing to the
// next on a provider's terminal failure, and returns AllProvidersFailed
// once the candidate list is exhausted (spec §4.4). Cancellation aborts
// the in-flight attempt and prevents any subsequent fallback (spec §5).
func (f *Provider) Query(ctx context.Context, req contract.CompletionRequest) (*contract.CompletionResponse, error) {
	candidates := f.orderedCandidates()
	if len(candidates) == 0 {
		return nil, cogerrors.AllProvidersFailed(nil)
	}

	var causes []error
	for _, entry := range candidates {
		select {
		case <-ctx.Done():
			return nil, cogerrors.Wrap(cogerrors.KindCanceled, "canceled before provider attempt", ctx.Err())
		default:
		}

		resp, err := entry.Provider.Query(ctx, req)
		if err == nil {
			return resp, nil
		}

		slog.Warn("provider attempt failed, advancing to next", "provider", entry.Name, "error", err)
		causes = append(causes, err)

		if cogerrors.KindOf(err) == cogerrors.KindCanceled {
			return nil, err
		}
	}

	return nil, cogerrors.AllProvidersFailed(causes)
}

// Health reports the health of every registered provider, keyed by name.
func (f *Provider) Health() map[string]provider.Health {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make(map[string]provider.Health, len(f.entries))
	for name, e := range f.entries {
		out[name] = e.Provider.Health()
	}
	return out
}

// Probe issues a minimal completion against every registered provider
// concurrently, feeding their health trackers without routing a real
// request through the priority-ordered selection path. Intended for a
// periodic background sweep rather than the request path (spec §5 notes
// health timers must run on a separate cadence).
func (f *Provider) Probe(ctx context.Context, probeReq contract.CompletionRequest) error {
	candidates := func() []*Entry {
		f.mu.RLock()
		defer f.mu.RUnlock()
		out := make([]*Entry, 0, len(f.entries))
		for _, e := range f.entries {
			out = append(out, e)
		}
		return out
	}()

	g, gctx := errgroup.WithContext(ctx)
	for _, entry := range candidates {
		entry := entry
		req := probeReq
		req.ModelID = entry.Name
		g.Go(func() error {
			_, _ = entry.Provider.Query(gctx, req)
			return nil
		})
	}
	return g.Wait()
}
