package main

import (
	"encoding/json"
	"os"

	"github.com/harunnryd/cogproc/internal/config"
	"github.com/harunnryd/cogproc/internal/thinking"

	"github.com/spf13/cobra"
)

var thinkingCmd = &cobra.Command{
	Use:   "thinking-process [problem]",
	Short: "Run the thinking engine end to end on one problem",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		strategy, _ := cmd.Flags().GetString("strategy")
		model, _ := cmd.Flags().GetString("model")
		tokenBudget, _ := cmd.Flags().GetInt("token-budget")
		maxSteps, _ := cmd.Flags().GetInt("max-steps")
		optimize, _ := cmd.Flags().GetBool("optimize")

		if model == "" {
			model = cfg.DefaultModel
		}
		if tokenBudget <= 0 {
			tokenBudget = cfg.TokenBudget
		}

		result := rt.surface.ThinkingProcess(cmd.Context(), args[0], thinking.Options{
			Strategy:              strategy,
			Model:                 model,
			TokenBudget:           tokenBudget,
			MaxSteps:              maxSteps,
			ContextWindowSteps:    cfg.Engine.ContextWindowSteps,
			PerStepTokenCap:       cfg.Engine.PerStepTokenCap,
			StepDeadline:          mustDuration(cfg.Engine.StepDeadline, "60s"),
			EnableOptimization:    optimize,
			OptimizationThreshold: cfg.OptimizationThreshold,
		})

		if result.Err != nil && !result.Partial {
			return internalError{result.Err}
		}

		return json.NewEncoder(os.Stdout).Encode(result)
	},
}

func init() {
	rootCmd.AddCommand(thinkingCmd)
	thinkingCmd.Flags().String("strategy", "", "thinking strategy (defaults to keyword-based selection)")
	thinkingCmd.Flags().String("model", "", "model id")
	thinkingCmd.Flags().Int("token-budget", 0, "token budget (defaults to config's token_budget)")
	thinkingCmd.Flags().Int("max-steps", config.DefaultMaxStepsPerStrategy, "maximum steps")
	thinkingCmd.Flags().Bool("optimize", true, "run the token optimizer over the problem before processing")
}
