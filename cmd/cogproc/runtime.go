package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/harunnryd/cogproc/internal/cache"
	"github.com/harunnryd/cogproc/internal/config"
	"github.com/harunnryd/cogproc/internal/memoryadapter"
	"github.com/harunnryd/cogproc/internal/optimizer"
	"github.com/harunnryd/cogproc/internal/pipeline"
	"github.com/harunnryd/cogproc/internal/provider"
	"github.com/harunnryd/cogproc/internal/provider/anthropic"
	"github.com/harunnryd/cogproc/internal/provider/fallback"
	"github.com/harunnryd/cogproc/internal/provider/gemini"
	"github.com/harunnryd/cogproc/internal/provider/openai"
	"github.com/harunnryd/cogproc/internal/thinking"
	"github.com/harunnryd/cogproc/internal/toolsurface"
)

// runtime bundles the constructed subsystems one command invocation
// needs, built fresh from cfg on every CLI run (no shared singleton
// across requests).
type runtime struct {
	cfg      *config.Config
	surface  *toolsurface.Surface
	memory   *memoryadapter.Adapter
	cache    *cache.Cache
	opt      *optimizer.Optimizer
	fallback *fallback.Provider
}

// buildRuntime constructs every subsystem from cfg: the per-model
// registry of providers feeding one Fallback Provider, the Token
// Optimizer, the Ephemeral Cache (restored from its snapshot file when
// present), the optional memory adapter, and the Thinking Engine built
// atop all of it.
func buildRuntime(cfg *config.Config) (*runtime, error) {
	layout := cfg.Layout()
	for _, dir := range []string{layout.CacheDir, layout.MemoryDir, layout.ThinkingDir, layout.OptimizationDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("prepare data directory %s: %w", dir, err)
		}
	}

	providerCfg := provider.Config{
		Timeout:         mustDuration(cfg.Provider.Timeout, config.DefaultProviderTimeout),
		OverallTimeout:  mustDuration(cfg.Provider.OverallTimeout, config.DefaultProviderOverallTimeout),
		RetryMax:        cfg.Provider.RetryMax,
		RetryBaseBackoff: mustDuration(cfg.Provider.RetryBaseBackoff, config.DefaultProviderRetryBaseBackoff),
		RetryMaxBackoff: mustDuration(cfg.Provider.RetryMaxBackoff, config.DefaultProviderRetryMaxBackoff),
		Concurrency:     cfg.Provider.Concurrency,
		AdaptiveTimeout: cfg.Provider.AdaptiveTimeout,
	}

	fb := fallback.New()
	for _, m := range cfg.Models {
		raw, err := buildRawProvider(m)
		if err != nil {
			return nil, fmt.Errorf("build provider %q: %w", m.Name, err)
		}
		fb.Register(m.Name, provider.Wrap(raw, providerCfg), m.Priority, m.Weight)
	}

	opt := optimizer.New()
	if snapshot, err := optimizer.LoadSnapshot(layout.TokenHistoryPath); err == nil {
		for _, rec := range snapshot.Metrics {
			opt.UpdateRatio(rec.ModelID, rec.OptimizedTokens, rec.OriginalTokens)
		}
	}

	cacheStore := cache.New(cfg.Cache.MaxEntries)
	cacheSnapshotPath := filepath.Join(layout.CacheDir, "snapshot.json")
	_ = cacheStore.Restore(cacheSnapshotPath)

	var memory *memoryadapter.Adapter
	if mem, err := memoryadapter.New(layout.MemoryDir); err == nil {
		memory = mem
	}

	engine := thinking.NewEngine(
		fb,
		opt,
		cacheStore,
		cfg.Engine.MaxStepsPerStrategy,
		cfg.Engine.PerStepTokenCap,
		cfg.Engine.ContextWindowSteps,
		mustDuration(cfg.Engine.StepDeadline, config.DefaultEngineStepDeadline),
	)

	surface := toolsurface.New(fb, engine, opt, cacheStore, memory, "cogproc")

	return &runtime{cfg: cfg, surface: surface, memory: memory, cache: cacheStore, opt: opt, fallback: fb}, nil
}

// buildPipeline constructs a Pipeline Orchestrator from the configured
// preprocessing pipeline steps, one ModelStage per step (spec §4.7/§6).
func (r *runtime) buildPipeline() *pipeline.Orchestrator {
	stages := make([]pipeline.Stage, 0, len(r.cfg.PreprocessingPipeline.PipelineSteps))
	for _, step := range r.cfg.PreprocessingPipeline.PipelineSteps {
		svc, ok := r.cfg.Services[step.Service]
		if !ok {
			svc = r.cfg.Services["default"]
		}
		prompt := fmt.Sprintf("You are the %q stage of a preprocessing pipeline. Transform the input accordingly.", step.Name)
		stages = append(stages, pipeline.NewModelStage(step.Name, r.fallback, svc.Model, prompt, svc.Temperature, svc.MaxTokens))
	}
	return pipeline.NewOrchestrator(stages,
		pipeline.WithRetry(r.cfg.Provider.RetryMax+1, mustDuration(r.cfg.Provider.RetryBaseBackoff, config.DefaultProviderRetryBaseBackoff)),
		pipeline.WithStageTimeout(mustDuration(r.cfg.Provider.Timeout, config.DefaultProviderTimeout)),
	)
}

func buildRawProvider(m config.ModelRegistryEntry) (provider.RawProvider, error) {
	switch m.Provider {
	case "anthropic":
		return anthropic.New(m.APIKey), nil
	case "gemini":
		return gemini.New(context.Background(), m.APIKey)
	case "openai", "zai", "":
		return openai.New(m.Name, m.APIKey, m.BaseURL), nil
	default:
		return nil, fmt.Errorf("unsupported provider kind %q for model %q", m.Provider, m.Name)
	}
}

func mustDuration(value, fallback string) time.Duration {
	d, err := config.DurationOrDefault(value, fallback)
	if err != nil {
		d, _ = config.DurationOrDefault("", fallback)
	}
	return d
}

// persist flushes the cache and optimizer snapshots back to disk; called
// from PersistentPostRunE so every subcommand leaves the on-disk state
// consistent with spec §6's persisted layout.
func (r *runtime) persist() error {
	layout := r.cfg.Layout()

	if r.cache != nil {
		if err := r.cache.Persist(filepath.Join(layout.CacheDir, "snapshot.json")); err != nil {
			return fmt.Errorf("persist cache: %w", err)
		}
	}
	if r.opt != nil {
		if err := r.opt.Persist(layout.TokenHistoryPath); err != nil {
			return fmt.Errorf("persist token history: %w", err)
		}
	}
	if r.memory != nil {
		r.memory.Stop()
	}
	return nil
}
