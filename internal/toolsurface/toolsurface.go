// Package toolsurface composes the Pipeline Orchestrator, Thinking
// Engine, Model Provider/Fallback layer, Token Optimizer, Ephemeral
// Cache, and the optional memory adapter into the eight abstract tool
// operations the spec's transport-agnostic surface exposes: generate,
// thinking_process, store_memory, retrieve_memory, check_cache,
// store_cache, perform_maintenance, and estimate_tokens (spec §6).
package toolsurface

import (
	"context"
	"fmt"
	"time"

	"github.com/harunnryd/cogproc/internal/cache"
	"github.com/harunnryd/cogproc/internal/concurrency"
	"github.com/harunnryd/cogproc/internal/contract"
	cogerrors "github.com/harunnryd/cogproc/internal/errors"
	"github.com/harunnryd/cogproc/internal/memoryadapter"
	"github.com/harunnryd/cogproc/internal/optimizer"
	"github.com/harunnryd/cogproc/internal/thinking"
)

// Querier is the narrow operation the generate operation dispatches
// through, satisfied by *fallback.Provider.
type Querier interface {
	Query(ctx context.Context, req contract.CompletionRequest) (*contract.CompletionResponse, error)
}

// Surface wires every subsystem the tool operations need. Memory is
// optional: a nil *memoryadapter.Adapter makes store_memory/
// retrieve_memory return cogerrors.KindInternal rather than panic.
type Surface struct {
	querier    Querier
	engine     *thinking.Engine
	optimizer  *optimizer.Optimizer
	cache      *cache.Cache
	memory     *memoryadapter.Adapter
	namespace  string
	generation *concurrency.SimpleSessionLockManager
}

// New builds a Surface over its already-constructed subsystems.
func New(querier Querier, engine *thinking.Engine, opt *optimizer.Optimizer, cacheStore *cache.Cache, memory *memoryadapter.Adapter, namespace string) *Surface {
	if namespace == "" {
		namespace = "default"
	}
	return &Surface{
		querier:    querier,
		engine:     engine,
		optimizer:  opt,
		cache:      cacheStore,
		memory:     memory,
		namespace:  namespace,
		generation: concurrency.NewSimpleSessionLockManager(),
	}
}

// GenerateRequest is the generate operation's input (spec §6 generate).
type GenerateRequest struct {
	ModelID      string
	SystemPrompt string
	UserContent  string
	Temperature  float64
	MaxTokens    int
	UseCache     bool
	CacheTTL     time.Duration
}

// GenerateResult is the generate operation's output.
type GenerateResult struct {
	Text      string
	Usage     contract.TokenUsage
	CacheHit  bool
	LatencyMs int64
}

// Generate dispatches one completion through the Fallback Provider,
// optionally short-circuiting through the Ephemeral Cache (spec §6
// generate / §4.2 check-then-store idiom).
func (s *Surface) Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	var cacheKey string
	if req.UseCache && s.cache != nil {
		cacheKey = cache.Key(s.namespace, req.ModelID, req.SystemPrompt, req.UserContent, req.Temperature, req.MaxTokens)

		// Serialize concurrent callers racing on the same cache key so only
		// one of them dials the provider; the rest wait and read its result
		// back out of the cache instead of each firing their own request.
		s.generation.Lock(cacheKey)
		defer s.generation.Unlock(cacheKey)

		if entry, ok := s.cache.Get(s.namespace, cacheKey); ok {
			return &GenerateResult{Text: entry.Value, CacheHit: true}, nil
		}
	}

	ccReq := contract.CompletionRequest{
		ModelID:     req.ModelID,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Messages: []contract.Message{
			{Role: "system", Content: req.SystemPrompt},
			{Role: "user", Content: req.UserContent},
		},
	}

	resp, err := s.querier.Query(ctx, ccReq)
	if err != nil {
		return nil, err
	}

	result := &GenerateResult{Text: resp.Text(), Usage: resp.Usage, LatencyMs: resp.LatencyMs}

	if req.UseCache && s.cache != nil && cacheKey != "" {
		ttl := req.CacheTTL
		if ttl <= 0 {
			ttl = 15 * time.Minute
		}
		s.cache.Put(s.namespace, cacheKey, result.Text, ttl)
	}

	return result, nil
}

// ThinkingProcess runs the Thinking Engine to completion for problem
// (spec §6 thinking_process).
func (s *Surface) ThinkingProcess(ctx context.Context, problem string, opts thinking.Options) *thinking.Result {
	return s.engine.Process(ctx, problem, opts)
}

// StoreMemory persists one embedded memory record (spec §6 store_memory).
func (s *Surface) StoreMemory(ctx context.Context, collection, id string, embedding []float32, content string, metadata map[string]string) error {
	if s.memory == nil {
		return cogerrors.New(cogerrors.KindInternal, "memory adapter is not configured")
	}
	return s.memory.StoreMemory(ctx, collection, id, embedding, content, metadata)
}

// RetrieveMemory finds the limit nearest memory records to embedding
// (spec §6 retrieve_memory).
func (s *Surface) RetrieveMemory(ctx context.Context, collection string, embedding []float32, limit int) ([]memoryadapter.Item, error) {
	if s.memory == nil {
		return nil, cogerrors.New(cogerrors.KindInternal, "memory adapter is not configured")
	}
	return s.memory.RetrieveMemory(ctx, collection, embedding, limit)
}

// CheckCache reads one entry from the Ephemeral Cache (spec §6 check_cache).
func (s *Surface) CheckCache(namespace, key string) (cache.Entry, bool) {
	if s.cache == nil {
		return cache.Entry{}, false
	}
	return s.cache.Get(namespace, key)
}

// StoreCache writes one entry into the Ephemeral Cache (spec §6 store_cache).
func (s *Surface) StoreCache(namespace, key, value string, ttl time.Duration) error {
	if s.cache == nil {
		return cogerrors.New(cogerrors.KindInternal, "cache is not configured")
	}
	s.cache.Put(namespace, key, value, ttl)
	return nil
}

// MaintenanceResult reports what perform_maintenance swept away.
type MaintenanceResult struct {
	CacheEntriesEvicted int
	OptimizerHistoryLen int
}

// PerformMaintenance sweeps expired cache entries and reports the
// optimizer's accumulated history size (spec §6 perform_maintenance).
func (s *Surface) PerformMaintenance() MaintenanceResult {
	var result MaintenanceResult
	if s.cache != nil {
		result.CacheEntriesEvicted = s.cache.Maintenance()
	}
	if s.optimizer != nil {
		result.OptimizerHistoryLen = len(s.optimizer.History())
	}
	return result
}

// EstimateTokens estimates text's token count for model (spec §6
// estimate_tokens).
func (s *Surface) EstimateTokens(text, model string) (int, error) {
	if s.optimizer == nil {
		return 0, fmt.Errorf("optimizer is not configured")
	}
	return s.optimizer.EstimateTokens(text, model), nil
}
