package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var pipelineCmd = &cobra.Command{
	Use:   "pipeline [input]",
	Short: "Run the configured preprocessing pipeline over input",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cfg.PreprocessingPipeline.Enabled {
			return internalError{fmt.Errorf("preprocessing_pipeline is disabled in config")}
		}

		orchestrator := rt.buildPipeline()
		result, err := orchestrator.Run(cmd.Context(), args[0])
		if err != nil {
			if result != nil {
				_ = json.NewEncoder(os.Stderr).Encode(result.StageRecords)
			}
			return internalError{fmt.Errorf("pipeline: %w", err)}
		}
		return json.NewEncoder(os.Stdout).Encode(result)
	},
}

func init() {
	rootCmd.AddCommand(pipelineCmd)
}
