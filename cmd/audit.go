package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/sells-group/osm-wrangler/internal/audit"
	"github.com/sells-group/osm-wrangler/internal/fetcher"
	"github.com/sells-group/osm-wrangler/internal/model"
	"github.com/sells-group/osm-wrangler/internal/pipeline"
	"github.com/sells-group/osm-wrangler/internal/report"
)

var (
	auditInput  string
	auditFormat string
	auditOut    string
	auditStore  bool

	lookupField   string
	lookupPattern string
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Report on the quality of shaped records",
	Long:  "Read-only passes over a JSON-lines record file (or, for elements, the raw OSM export) that print what they find.",
}

var auditAddressCmd = &cobra.Command{
	Use:   "address",
	Short: "Count and flag unexpected address values",
	RunE: func(cmd *cobra.Command, _ []string) error {
		r, err := loadRules()
		if err != nil {
			return err
		}
		return runRecordAudit(cmd, audit.NewAddress(r))
	},
}

var auditProfileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Count values and uniques per address field",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runRecordAudit(cmd, audit.NewProfile())
	},
}

var auditKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List every top-level key used by the records",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runRecordAudit(cmd, audit.NewKeys())
	},
}

var auditCreatedByCmd = &cobra.Command{
	Use:   "created-by",
	Short: "Summarize the created_by editor tag",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runRecordAudit(cmd, audit.NewCreatedBy())
	},
}

var auditEmptyCmd = &cobra.Command{
	Use:   "empty",
	Short: "Find fields holding empty or NULL placeholder values",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runRecordAudit(cmd, audit.NewEmptyValues())
	},
}

var auditLookupCmd = &cobra.Command{
	Use:   "lookup",
	Short: "Print records whose address field matches a pattern",
	RunE: func(cmd *cobra.Command, _ []string) error {
		l, err := audit.NewLookup(lookupField, lookupPattern)
		if err != nil {
			return err
		}
		return runRecordAudit(cmd, l)
	},
}

var auditElementsCmd = &cobra.Command{
	Use:   "elements",
	Short: "Count the XML elements of an OSM export",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runAudit(cmd, audit.KindElements, func(ctx context.Context, p *pipeline.Pipeline) (model.RunStats, any, error) {
			in, err := fetcher.Open(auditInput)
			if err != nil {
				return model.RunStats{}, nil, err
			}
			defer in.Close() //nolint:errcheck

			census, err := audit.Census(ctx, in)
			var stats model.RunStats
			for _, s := range census {
				stats.Elements += s.Count
			}
			return stats, census, err
		})
	},
}

// runRecordAudit folds the records of --input through a.
func runRecordAudit(cmd *cobra.Command, a audit.Audit) error {
	return runAudit(cmd, a.Kind(), func(ctx context.Context, p *pipeline.Pipeline) (model.RunStats, any, error) {
		in, err := fetcher.Open(auditInput)
		if err != nil {
			return model.RunStats{}, nil, err
		}
		defer in.Close() //nolint:errcheck

		stats, err := p.Audit(ctx, in, a)
		return stats, a.Result(), err
	})
}

// runAudit tracks one audit pass, stores its result when --store is set
// and renders it in --format.
func runAudit(cmd *cobra.Command, kind string, pass func(context.Context, *pipeline.Pipeline) (model.RunStats, any, error)) error {
	ctx := cmd.Context()

	format, err := report.ParseFormat(auditFormat)
	if err != nil {
		return err
	}

	p, cleanup, err := newPipeline(ctx, auditStore, false)
	if err != nil {
		return err
	}
	defer cleanup()

	_, err = p.Track(ctx, "audit "+kind, auditInput, func(ctx context.Context, runID string) (model.RunStats, error) {
		stats, result, err := pass(ctx, p)
		if err != nil {
			return stats, err
		}
		if err := p.SaveReport(ctx, runID, kind, result); err != nil {
			return stats, err
		}
		return stats, report.Render(format, cmd.OutOrStdout(), auditOut, result, cfg.Report.CellWidth)
	})
	return err
}

func init() {
	auditCmd.PersistentFlags().StringVar(&auditInput, "input", "", "records file (OSM export for elements)")
	auditCmd.PersistentFlags().StringVar(&auditFormat, "format", "text", "output format: text, json or xlsx")
	auditCmd.PersistentFlags().StringVar(&auditOut, "out", "", "xlsx output path")
	auditCmd.PersistentFlags().BoolVar(&auditStore, "store", false, "save the report to the configured store")
	_ = auditCmd.MarkPersistentFlagRequired("input")

	auditLookupCmd.Flags().StringVar(&lookupField, "field", "street", "address field to match")
	auditLookupCmd.Flags().StringVar(&lookupPattern, "pattern", "", "regular expression to search for")
	_ = auditLookupCmd.MarkFlagRequired("pattern")

	auditCmd.AddCommand(
		auditAddressCmd,
		auditProfileCmd,
		auditKeysCmd,
		auditCreatedByCmd,
		auditEmptyCmd,
		auditLookupCmd,
		auditElementsCmd,
	)
	rootCmd.AddCommand(auditCmd)
}
