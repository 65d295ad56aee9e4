// Command poolctl is a demo CLI wiring pkg/config, pkg/logger, and the
// pool/redismanager packages together, the way the teacher's cmd/streamnzb
// wires config+logger+nntp.ClientPool — generalised from one Usenet
// provider pool per endpoint to one Redis pool per configured endpoint.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"poolkit/pkg/config"
	"poolkit/pkg/logger"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "poolctl",
	Short: "Build and operate pool.Pool instances against configured Redis endpoints",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(); err != nil {
			fmt.Fprintln(os.Stderr, "poolctl: no .env file found, using environment variables")
		}

		cfg, err := config.Load(afero.NewOsFs(), cmd.Flags(), configPath)
		if err != nil {
			return fmt.Errorf("poolctl: load config: %w", err)
		}
		logger.Init(cfg.LogLevel)
		loadedConfig = cfg
		return nil
	},
}

// loadedConfig is set by PersistentPreRunE before any subcommand's RunE
// runs.
var loadedConfig *config.Config

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a poolctl config file (YAML/JSON/TOML)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
