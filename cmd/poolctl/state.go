package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"poolkit/pool"
)

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Build the configured pools, prewarm them, print each pool's state as JSON, and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		pools, err := buildPools(loadedConfig)
		if err != nil {
			return err
		}
		defer closeAll(pools)

		ctx := cmd.Context()
		report := make(map[string]pool.State, len(pools))
		for _, p := range pools {
			if err := p.pool.StartConnections(ctx); err != nil {
				return fmt.Errorf("prewarm pool %q: %w", p.name, err)
			}
			report[p.name] = p.pool.State()
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	},
}

func init() {
	rootCmd.AddCommand(stateCmd)
}
