package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/harunnryd/cogproc/internal/toolsurface"

	"github.com/spf13/cobra"
)

var generateCmd = &cobra.Command{
	Use:   "generate [prompt]",
	Short: "Run one completion through the fallback provider chain",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		model, _ := cmd.Flags().GetString("model")
		system, _ := cmd.Flags().GetString("system")
		temperature, _ := cmd.Flags().GetFloat64("temperature")
		maxTokens, _ := cmd.Flags().GetInt("max-tokens")
		useCache, _ := cmd.Flags().GetBool("cache")

		if model == "" {
			model = cfg.DefaultModel
		}

		result, err := rt.surface.Generate(cmd.Context(), toolsurface.GenerateRequest{
			ModelID:      model,
			SystemPrompt: system,
			UserContent:  args[0],
			Temperature:  temperature,
			MaxTokens:    maxTokens,
			UseCache:     useCache,
			CacheTTL:     15 * time.Minute,
		})
		if err != nil {
			return internalError{fmt.Errorf("generate: %w", err)}
		}

		return json.NewEncoder(os.Stdout).Encode(result)
	},
}

func init() {
	rootCmd.AddCommand(generateCmd)
	generateCmd.Flags().String("model", "", "model id (defaults to default_model)")
	generateCmd.Flags().String("system", "", "system prompt")
	generateCmd.Flags().Float64("temperature", 0.7, "sampling temperature")
	generateCmd.Flags().Int("max-tokens", 1024, "max completion tokens")
	generateCmd.Flags().Bool("cache", true, "check/store the ephemeral cache")
}
