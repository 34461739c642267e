// Package config loads the cognitive processor's configuration from
// defaults, an optional YAML file, environment variables, and CLI flags,
// in that ascending order of precedence.
package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/harunnryd/cogproc/internal/pathutil"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/cobra"
)

// Default values, named so the defaults map and docs stay in sync.
const (
	DefaultModel                   = "gpt-4o-mini"
	DefaultMaxStepsPerStrategy      = 10
	DefaultTokenBudget              = 8192
	DefaultOptimizationThreshold    = 0.7
	DefaultPerStepTokenCap          = 1000
	DefaultContextWindowSteps       = 3
	DefaultProviderTimeout          = "30s"
	DefaultProviderOverallTimeout   = "60s"
	DefaultProviderRetryMax         = 3
	DefaultProviderRetryBaseBackoff = "1s"
	DefaultProviderRetryMaxBackoff  = "2s"
	DefaultProviderConcurrency      = 8
	DefaultEngineStepDeadline       = "60s"
	DefaultCacheTTL                 = "15m"
	DefaultCacheMaxEntries          = 10000
)

// ModelRegistryEntry describes one Model Provider endpoint (spec
// ProviderDescriptor, plus its provider-kind and credentials).
type ModelRegistryEntry struct {
	Name     string `koanf:"name"`
	Provider string `koanf:"provider"`
	BaseURL  string `koanf:"base_url"`
	APIKey   string `koanf:"api_key"`
	AuthFile string `koanf:"auth_file"`
	Priority int    `koanf:"priority"`
	Weight   float64 `koanf:"weight"`
}

// ServiceConfig is the per-service model tuning block referenced by
// pipeline stages and the thinking engine (spec §6).
type ServiceConfig struct {
	Model       string  `koanf:"model"`
	Temperature float64 `koanf:"temperature"`
	MaxTokens   int     `koanf:"max_tokens"`
	TopP        float64 `koanf:"top_p"`
}

// PipelineStepConfig is one configured stage of the preprocessing pipeline.
type PipelineStepConfig struct {
	Name     string `koanf:"name"`
	Service  string `koanf:"service"`
	Priority int    `koanf:"priority"`
}

// PreprocessingPipelineConfig configures the Pipeline Orchestrator's stage list.
type PreprocessingPipelineConfig struct {
	Enabled       bool                  `koanf:"enabled"`
	PipelineSteps []PipelineStepConfig  `koanf:"pipeline_steps"`
}

// ProviderConfig tunes the shared Model Provider timeout/retry/health wrapper.
type ProviderConfig struct {
	Timeout          string `koanf:"timeout"`
	OverallTimeout   string `koanf:"overall_timeout"`
	RetryMax         int    `koanf:"retry_max"`
	RetryBaseBackoff string `koanf:"retry_base_backoff"`
	RetryMaxBackoff  string `koanf:"retry_max_backoff"`
	Concurrency      int    `koanf:"concurrency"`
	AdaptiveTimeout  bool   `koanf:"adaptive_timeout"`
}

// EngineConfig tunes the Thinking Engine's step loop.
type EngineConfig struct {
	MaxStepsPerStrategy int    `koanf:"max_steps_per_strategy"`
	PerStepTokenCap     int    `koanf:"per_step_token_cap"`
	ContextWindowSteps  int    `koanf:"context_window_steps"`
	StepDeadline        string `koanf:"step_deadline"`
}

// CacheConfig tunes the Ephemeral Cache.
type CacheConfig struct {
	DefaultTTL  string `koanf:"default_ttl"`
	MaxEntries  int    `koanf:"max_entries"`
}

// StrategyConfig holds the loaded STRATEGY_FEEDBACK_ENABLED flag. Nothing
// passes it on to the thinking engine: the composite strategy that
// Factory builds always runs with feedback off.
type StrategyConfig struct {
	FeedbackEnabled bool `koanf:"feedback_enabled"`
}

// Config is the top-level, fully-resolved configuration object.
type Config struct {
	DefaultModel           string                       `koanf:"default_model"`
	TokenBudget            int                          `koanf:"token_budget"`
	OptimizationThreshold  float64                      `koanf:"optimization_threshold"`
	LogLevel               string                       `koanf:"log_level"`
	DataRoot               string                       `koanf:"data_root"`
	Models                 []ModelRegistryEntry         `koanf:"models"`
	Services               map[string]ServiceConfig     `koanf:"services"`
	PreprocessingPipeline  PreprocessingPipelineConfig  `koanf:"preprocessing_pipeline"`
	Provider               ProviderConfig               `koanf:"provider"`
	Engine                 EngineConfig                 `koanf:"engine"`
	Cache                  CacheConfig                  `koanf:"cache"`
	Strategy               StrategyConfig               `koanf:"strategy"`
}

// DataLayout resolves the on-disk subdirectories under DataRoot (spec §6
// persisted layout).
type DataLayout struct {
	Root              string
	CacheDir          string
	MemoryDir         string
	TokenHistoryPath  string
	ThinkingDir       string
	OptimizationDir   string
}

// Layout computes the persisted directory/file layout rooted at DataRoot,
// honoring MCP_TOKEN_HISTORY_PATH when set.
func (c *Config) Layout() DataLayout {
	root := c.DataRoot
	layout := DataLayout{
		Root:             root,
		CacheDir:         filepath.Join(root, "cache"),
		MemoryDir:        filepath.Join(root, "memory"),
		TokenHistoryPath: filepath.Join(root, "token_history", "token_metrics.json"),
		ThinkingDir:      filepath.Join(root, "thinking"),
		OptimizationDir:  filepath.Join(root, "optimization"),
	}
	if override := os.Getenv("MCP_TOKEN_HISTORY_PATH"); override != "" {
		layout.TokenHistoryPath = override
	}
	return layout
}

// Load resolves configuration from hardcoded defaults, an optional YAML
// file, environment variables (COGPROC_ prefixed, plus the recognized
// OPENROUTER_API_KEY/STRATEGY_FEEDBACK_ENABLED/MCP_DB_DIR), and CLI flags,
// in that order.
func Load(cmd *cobra.Command) (*Config, error) {
	k := koanf.New(".")

	dataRoot := os.Getenv("MCP_DB_DIR")
	if dataRoot == "" {
		home, _ := os.UserHomeDir()
		dataRoot = filepath.Join(home, ".cogproc")
	}

	defaults := map[string]interface{}{
		"default_model":                      DefaultModel,
		"token_budget":                       DefaultTokenBudget,
		"optimization_threshold":             DefaultOptimizationThreshold,
		"log_level":                          "info",
		"data_root":                          dataRoot,
		"models": []ModelRegistryEntry{
			{Name: DefaultModel, Provider: "openai", Priority: 2, Weight: 1.0},
			{Name: "claude-3-5-sonnet", Provider: "anthropic", Priority: 1, Weight: 0.8},
		},
		"services": map[string]ServiceConfig{
			"default": {Model: DefaultModel, Temperature: 0.7, MaxTokens: 2048, TopP: 1.0},
		},
		"preprocessing_pipeline.enabled":        false,
		"provider.timeout":                      DefaultProviderTimeout,
		"provider.overall_timeout":               DefaultProviderOverallTimeout,
		"provider.retry_max":                     DefaultProviderRetryMax,
		"provider.retry_base_backoff":            DefaultProviderRetryBaseBackoff,
		"provider.retry_max_backoff":             DefaultProviderRetryMaxBackoff,
		"provider.concurrency":                   DefaultProviderConcurrency,
		"provider.adaptive_timeout":              true,
		"engine.max_steps_per_strategy":          DefaultMaxStepsPerStrategy,
		"engine.per_step_token_cap":              DefaultPerStepTokenCap,
		"engine.context_window_steps":            DefaultContextWindowSteps,
		"engine.step_deadline":                   DefaultEngineStepDeadline,
		"cache.default_ttl":                      DefaultCacheTTL,
		"cache.max_entries":                       DefaultCacheMaxEntries,
		"strategy.feedback_enabled":               false,
	}
	for key, value := range defaults {
		k.Set(key, value)
	}

	configPath := ""
	if cmd != nil {
		if flag := cmd.Flags().Lookup("config"); flag != nil {
			configPath = strings.TrimSpace(flag.Value.String())
		}
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, err
		}
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			globalPath := filepath.Join(home, ".cogproc", "config.yaml")
			if err := k.Load(file.Provider(globalPath), yaml.Parser()); err != nil {
				slog.Debug("global config not found or invalid", "path", globalPath, "error", err)
			}
		}
	}

	k.Load(env.Provider("COGPROC_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "COGPROC_")), "_", ".", -1)
	}), nil)

	if cmd != nil {
		k.Load(posflag.Provider(cmd.Flags(), ".", k), nil)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	for i, m := range cfg.Models {
		if m.Provider == "" {
			cfg.Models[i].Provider = "openai"
		}
	}

	if err := normalizePathFields(&cfg); err != nil {
		return nil, err
	}

	if v := os.Getenv("STRATEGY_FEEDBACK_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.Strategy.FeedbackEnabled = enabled
		}
	}

	// Post-process: inject the recognized remote-call credential if missing.
	if key := os.Getenv("OPENROUTER_API_KEY"); key != "" {
		for i := range cfg.Models {
			if cfg.Models[i].APIKey == "" {
				cfg.Models[i].APIKey = key
			}
		}
	}

	return &cfg, nil
}

func normalizePathFields(cfg *Config) error {
	if cfg == nil {
		return nil
	}

	dataRoot, err := expandConfiguredPath(cfg.DataRoot)
	if err != nil {
		return err
	}
	if dataRoot != "" {
		cfg.DataRoot = dataRoot
	}

	for i := range cfg.Models {
		authFile, err := expandConfiguredPath(cfg.Models[i].AuthFile)
		if err != nil {
			return err
		}
		if authFile != "" {
			cfg.Models[i].AuthFile = authFile
		}
	}

	return nil
}

func expandConfiguredPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", nil
	}
	expanded, err := pathutil.Expand(trimmed)
	if err != nil {
		return "", err
	}
	return expanded, nil
}
