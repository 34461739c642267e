package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var estimateTokensCmd = &cobra.Command{
	Use:   "estimate-tokens [text]",
	Short: "Estimate a text's token count for a model",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		model, _ := cmd.Flags().GetString("model")
		if model == "" {
			model = cfg.DefaultModel
		}

		count, err := rt.surface.EstimateTokens(args[0], model)
		if err != nil {
			return internalError{err}
		}
		fmt.Println(count)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(estimateTokensCmd)
	estimateTokensCmd.Flags().String("model", "", "model id")
}
