package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/harunnryd/cogproc/internal/contract"

	"github.com/spf13/cobra"
)

// probeRequest is the minimal completion the health sweep sends every
// registered provider; providers never see this leak into a real result
// because Probe discards the response and keeps only the health signal.
var probeRequest = contract.CompletionRequest{
	Messages:  []contract.Message{{Role: "user", Content: "ping"}},
	MaxTokens: 1,
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Probe every registered provider and report health",
	Long: `health issues one minimal completion against every registered provider
concurrently and prints the resulting health map. With --watch it repeats the
sweep on that cadence until interrupted, the way a process supervisor would
run it as a sidecar health monitor (spec §5's health timers, kept off the
request path).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		watch, _ := cmd.Flags().GetDuration("watch")
		if watch <= 0 {
			if err := rt.fallback.Probe(cmd.Context(), probeRequest); err != nil {
				return internalError{err}
			}
			return json.NewEncoder(os.Stdout).Encode(rt.fallback.Health())
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		ticker := time.NewTicker(watch)
		defer ticker.Stop()

		for {
			if err := rt.fallback.Probe(ctx, probeRequest); err != nil {
				fmt.Fprintln(os.Stderr, "probe sweep failed:", err)
			}
			if err := json.NewEncoder(os.Stdout).Encode(rt.fallback.Health()); err != nil {
				return internalError{err}
			}

			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
	healthCmd.Flags().Duration("watch", 0, "repeat the probe sweep on this interval instead of running once")
}
