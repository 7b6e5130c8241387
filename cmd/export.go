package main

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/osm-wrangler/internal/fetcher"
	"github.com/sells-group/osm-wrangler/internal/model"
)

var (
	exportInput  string
	exportOutput string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export records to GIS formats",
}

var exportShpCmd = &cobra.Command{
	Use:   "shp",
	Short: "Write positioned records as a point shapefile",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		p, cleanup, err := newPipeline(ctx, false, false)
		if err != nil {
			return err
		}
		defer cleanup()

		stats, err := p.Track(ctx, "export shp", exportInput, func(ctx context.Context, _ string) (model.RunStats, error) {
			in, err := fetcher.Open(exportInput)
			if err != nil {
				return model.RunStats{}, err
			}
			defer in.Close() //nolint:errcheck

			return p.ExportShapefile(ctx, in, exportOutput)
		})
		if err != nil {
			return eris.Wrap(err, "export shp")
		}

		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "wrote %d points to %s (%d records without a position)\n",
			stats.Kept, exportOutput, stats.Discarded)
		return nil
	},
}

func init() {
	exportShpCmd.Flags().StringVar(&exportInput, "input", "", "JSON-lines records")
	exportShpCmd.Flags().StringVar(&exportOutput, "output", "", "shapefile path ending in .shp")
	_ = exportShpCmd.MarkFlagRequired("input")
	_ = exportShpCmd.MarkFlagRequired("output")

	exportCmd.AddCommand(exportShpCmd)
	rootCmd.AddCommand(exportCmd)
}
