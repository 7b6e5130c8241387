package main

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/osm-wrangler/internal/fetcher"
	"github.com/sells-group/osm-wrangler/internal/model"
)

var headLimit int

var headCmd = &cobra.Command{
	Use:   "head <file>",
	Short: "Pretty-print the first records of a JSON-lines file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if headLimit <= 0 {
			return eris.Errorf("head: -n must be positive, got %d", headLimit)
		}

		in, err := fetcher.Open(args[0])
		if err != nil {
			return eris.Wrap(err, "head")
		}
		defer in.Close() //nolint:errcheck

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		records, errs := fetcher.DecodeJSONLines[*model.Record](ctx, in)
		out := fetcher.NewJSONLinesWriter(cmd.OutOrStdout(), true)
		for rec := range records {
			if err := out.Write(rec); err != nil {
				return eris.Wrap(err, "head")
			}
			if out.Count() >= int64(headLimit) {
				break
			}
		}
		if out.Count() < int64(headLimit) {
			if err := <-errs; err != nil {
				return eris.Wrap(err, "head")
			}
		}
		if err := out.Flush(); err != nil {
			return eris.Wrap(err, "head")
		}

		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "%d record(s) from %s\n", out.Count(), args[0])
		return nil
	},
}

func init() {
	headCmd.Flags().IntVarP(&headLimit, "lines", "n", 5, "number of records to print")
	rootCmd.AddCommand(headCmd)
}
