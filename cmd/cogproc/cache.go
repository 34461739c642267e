package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var checkCacheCmd = &cobra.Command{
	Use:   "check-cache [namespace] [key]",
	Short: "Look up one entry in the ephemeral cache",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		entry, ok := rt.surface.CheckCache(args[0], args[1])
		if !ok {
			fmt.Fprintln(os.Stdout, "miss")
			return nil
		}
		return json.NewEncoder(os.Stdout).Encode(entry)
	},
}

var storeCacheCmd = &cobra.Command{
	Use:   "store-cache [namespace] [key] [value]",
	Short: "Write one entry into the ephemeral cache",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		ttlFlag, _ := cmd.Flags().GetDuration("ttl")
		if ttlFlag <= 0 {
			ttlFlag = 15 * time.Minute
		}
		if err := rt.surface.StoreCache(args[0], args[1], args[2], ttlFlag); err != nil {
			return internalError{err}
		}
		fmt.Fprintln(os.Stdout, "ok")
		return nil
	},
}

var maintenanceCmd = &cobra.Command{
	Use:   "maintenance",
	Short: "Sweep expired cache entries and report optimizer history size",
	RunE: func(cmd *cobra.Command, args []string) error {
		return json.NewEncoder(os.Stdout).Encode(rt.surface.PerformMaintenance())
	},
}

func init() {
	rootCmd.AddCommand(checkCacheCmd, storeCacheCmd, maintenanceCmd)
	storeCacheCmd.Flags().Duration("ttl", 15*time.Minute, "entry time-to-live")
}
