package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var storeMemoryCmd = &cobra.Command{
	Use:   "store-memory [collection] [id] [content]",
	Short: "Upsert one embedded memory record",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		embedding, err := parseEmbeddingFlag(cmd)
		if err != nil {
			return internalError{err}
		}
		if err := rt.surface.StoreMemory(cmd.Context(), args[0], args[1], embedding, args[2], nil); err != nil {
			return internalError{fmt.Errorf("store-memory: %w", err)}
		}
		fmt.Fprintln(os.Stdout, "ok")
		return nil
	},
}

var retrieveMemoryCmd = &cobra.Command{
	Use:   "retrieve-memory [collection]",
	Short: "Find the nearest memory records to an embedding",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		embedding, err := parseEmbeddingFlag(cmd)
		if err != nil {
			return internalError{err}
		}
		limit, _ := cmd.Flags().GetInt("limit")

		items, err := rt.surface.RetrieveMemory(cmd.Context(), args[0], embedding, limit)
		if err != nil {
			return internalError{fmt.Errorf("retrieve-memory: %w", err)}
		}
		return json.NewEncoder(os.Stdout).Encode(items)
	},
}

func parseEmbeddingFlag(cmd *cobra.Command) ([]float32, error) {
	raw, _ := cmd.Flags().GetString("embedding")
	if raw == "" {
		return nil, fmt.Errorf("--embedding is required (JSON array of floats)")
	}
	var values []float32
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return nil, fmt.Errorf("parse --embedding: %w", err)
	}
	return values, nil
}

func init() {
	rootCmd.AddCommand(storeMemoryCmd, retrieveMemoryCmd)
	storeMemoryCmd.Flags().String("embedding", "", "JSON array of floats")
	retrieveMemoryCmd.Flags().String("embedding", "", "JSON array of floats")
	retrieveMemoryCmd.Flags().Int("limit", 5, "max results")
}
