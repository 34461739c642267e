// Command cogproc is the cognitive processor's CLI: one subcommand per
// tool-surface operation (spec §6), grounded on the teacher's
// cmd/heike/root.go PersistentPreRunE config/logger wiring.
package main

import (
	"fmt"
	"os"

	"github.com/harunnryd/cogproc/internal/config"
	"github.com/harunnryd/cogproc/internal/logger"

	"github.com/spf13/cobra"
)

// Exit codes (spec §7).
const (
	exitOK               = 0
	exitConfigError      = 2
	exitMissingRequiredEnv = 3
	exitInternalError    = 4
)

var (
	cfgFile string
	cfg     *config.Config
	rt      *runtime
)

var rootCmd = &cobra.Command{
	Use:   "cogproc",
	Short: "Cognitive processing orchestration engine",
	Long:  `cogproc coordinates multiple LLM providers behind a pipeline orchestrator, a thinking engine, and a token-optimizing cache.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cmd)
		if err != nil {
			return configError{err}
		}

		logger.Setup(cfg.LogLevel)

		if requiresModelCredentials(cmd) {
			if missing := missingCredentials(cfg); missing != "" {
				return missingEnvError{missing}
			}
		}

		rt, err = buildRuntime(cfg)
		if err != nil {
			return internalError{err}
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if rt == nil {
			return nil
		}
		if err := rt.persist(); err != nil {
			return internalError{err}
		}
		return nil
	},
}

// requiresModelCredentials is false for the cache/estimate-tokens
// subcommands, which never dial a provider.
func requiresModelCredentials(cmd *cobra.Command) bool {
	switch cmd.Name() {
	case "check-cache", "store-cache", "estimate-tokens", "maintenance", "store-memory", "retrieve-memory":
		return false
	default:
		return true
	}
}

func missingCredentials(c *config.Config) string {
	for _, m := range c.Models {
		if m.Provider != "gemini" && m.APIKey == "" && m.AuthFile == "" {
			return m.Name
		}
	}
	return ""
}

// configError/missingEnvError/internalError carry the exit code a
// cobra.Command error should map to (spec §7 exit codes).
type configError struct{ err error }

func (e configError) Error() string { return e.err.Error() }

type missingEnvError struct{ modelName string }

func (e missingEnvError) Error() string {
	return fmt.Sprintf("missing credentials for model %q: set its api_key or auth_file", e.modelName)
}

type internalError struct{ err error }

func (e internalError) Error() string { return e.err.Error() }

// Execute runs the root command and exits with the spec's documented
// exit codes (0 success, 2 config error, 3 missing required env, 4
// unhandled internal error).
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		switch err.(type) {
		case configError:
			os.Exit(exitConfigError)
		case missingEnvError:
			os.Exit(exitMissingRequiredEnv)
		case internalError:
			os.Exit(exitInternalError)
		default:
			os.Exit(exitInternalError)
		}
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.cogproc/config.yaml)")
	rootCmd.PersistentFlags().String("log_level", "info", "log level (debug, info, warn, error)")
}
