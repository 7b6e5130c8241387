package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/sells-group/osm-wrangler/internal/fetcher"
	"github.com/sells-group/osm-wrangler/internal/model"
)

var (
	cleanInput  string
	cleanOutput string
	cleanPretty bool
	cleanStore  bool
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Normalize address fields of shaped records and drop the unfixable ones",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		output := cleanOutput
		if output == "" {
			output = cleanedName(cleanInput)
		}

		p, cleanup, err := newPipeline(ctx, cleanStore, cleanPretty)
		if err != nil {
			return err
		}
		defer cleanup()

		_, err = p.Track(ctx, "clean", cleanInput, func(ctx context.Context, runID string) (model.RunStats, error) {
			in, err := fetcher.Open(cleanInput)
			if err != nil {
				return model.RunStats{}, err
			}
			defer in.Close() //nolint:errcheck

			out, err := fetcher.Create(output)
			if err != nil {
				return model.RunStats{}, err
			}
			defer out.Close() //nolint:errcheck

			return p.Clean(ctx, in, out, runID)
		})
		return err
	},
}

func init() {
	cleanCmd.Flags().StringVar(&cleanInput, "input", "", "JSON-lines records written by shape")
	cleanCmd.Flags().StringVar(&cleanOutput, "output", "", "cleaned output (default <base>_cleaned.osm.json)")
	cleanCmd.Flags().BoolVar(&cleanPretty, "pretty", false, "indent each record")
	cleanCmd.Flags().BoolVar(&cleanStore, "store", false, "persist the run and every record to the configured store")
	_ = cleanCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(cleanCmd)
}
