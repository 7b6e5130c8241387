package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/sells-group/osm-wrangler/internal/fetcher"
	"github.com/sells-group/osm-wrangler/internal/model"
)

var (
	shapeInput  string
	shapeOutput string
	shapePretty bool
)

var shapeCmd = &cobra.Command{
	Use:   "shape",
	Short: "Convert an OSM XML export into JSON-lines records",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		output := shapeOutput
		if output == "" {
			output = shapedName(shapeInput)
		}

		p, cleanup, err := newPipeline(ctx, false, shapePretty)
		if err != nil {
			return err
		}
		defer cleanup()

		_, err = p.Track(ctx, "shape", shapeInput, func(ctx context.Context, _ string) (model.RunStats, error) {
			in, err := fetcher.Open(shapeInput)
			if err != nil {
				return model.RunStats{}, err
			}
			defer in.Close() //nolint:errcheck

			out, err := fetcher.Create(output)
			if err != nil {
				return model.RunStats{}, err
			}
			defer out.Close() //nolint:errcheck

			return p.Shape(ctx, in, out)
		})
		return err
	},
}

func init() {
	shapeCmd.Flags().StringVar(&shapeInput, "input", "", "OSM XML export (.osm, .gz, .bz2 or single-file .zip)")
	shapeCmd.Flags().StringVar(&shapeOutput, "output", "", "JSON-lines output (default <input>.json)")
	shapeCmd.Flags().BoolVar(&shapePretty, "pretty", false, "indent each record")
	_ = shapeCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(shapeCmd)
}
