package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/sells-group/osm-wrangler/internal/fetcher"
	"github.com/sells-group/osm-wrangler/internal/model"
)

var (
	runInput  string
	runOutput string
	runPretty bool
	runStore  bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Shape and clean an OSM XML export in one pass",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		output := runOutput
		if output == "" {
			output = cleanedName(shapedName(runInput))
		}

		p, cleanup, err := newPipeline(ctx, runStore, runPretty)
		if err != nil {
			return err
		}
		defer cleanup()

		_, err = p.Track(ctx, "run", runInput, func(ctx context.Context, runID string) (model.RunStats, error) {
			in, err := fetcher.Open(runInput)
			if err != nil {
				return model.RunStats{}, err
			}
			defer in.Close() //nolint:errcheck

			out, err := fetcher.Create(output)
			if err != nil {
				return model.RunStats{}, err
			}
			defer out.Close() //nolint:errcheck

			return p.ShapeAndClean(ctx, in, out, runID)
		})
		return err
	},
}

func init() {
	runCmd.Flags().StringVar(&runInput, "input", "", "OSM XML export")
	runCmd.Flags().StringVar(&runOutput, "output", "", "cleaned output (default <input>_cleaned.osm.json)")
	runCmd.Flags().BoolVar(&runPretty, "pretty", false, "indent each record")
	runCmd.Flags().BoolVar(&runStore, "store", false, "persist the run and every record to the configured store")
	_ = runCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(runCmd)
}
