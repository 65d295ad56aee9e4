package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"poolkit/pkg/logger"
)

var statePollInterval time.Duration

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Build the configured pools, prewarm them, and log periodic state until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		pools, err := buildPools(loadedConfig)
		if err != nil {
			return err
		}
		defer closeAll(pools)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		for _, p := range pools {
			if err := p.pool.StartConnections(ctx); err != nil {
				logger.Warn("prewarm failed", "pool", p.name, "error", err)
			} else {
				logger.Info("pool prewarmed", "pool", p.name, "state", p.pool.State())
			}
		}

		ticker := time.NewTicker(statePollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				logger.Info("poolctl serve: shutting down")
				return nil
			case <-ticker.C:
				for _, p := range pools {
					logger.Info("pool state", "pool", p.name, "state", p.pool.State())
				}
			}
		}
	},
}

func init() {
	serveCmd.Flags().DurationVar(&statePollInterval, "poll-interval", 10*time.Second, "how often to log each pool's state")
	rootCmd.AddCommand(serveCmd)
}
