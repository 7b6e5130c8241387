package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/osm-wrangler/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:          "osm-wrangler",
	Short:        "Shape, audit and clean OpenStreetMap address data",
	Long:         "Converts an OSM XML export into JSON-lines records, audits their address fields and applies corrections for the Vancouver dataset.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
