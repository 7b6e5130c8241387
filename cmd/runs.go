package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/osm-wrangler/internal/fetcher"
	"github.com/sells-group/osm-wrangler/internal/model"
	"github.com/sells-group/osm-wrangler/internal/monitoring"
	"github.com/sells-group/osm-wrangler/internal/report"
	"github.com/sells-group/osm-wrangler/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect stored pipeline runs",
	Long:  "Commands for listing runs and viewing the records and reports they saved.",
}

// -- runs list --

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		command, _ := cmd.Flags().GetString("command")
		status, _ := cmd.Flags().GetString("status")
		limit, _ := cmd.Flags().GetInt("limit")

		runs, err := st.ListRuns(ctx, store.RunFilter{
			Command: command,
			Status:  model.RunStatus(status),
			Limit:   limit,
		})
		if err != nil {
			return eris.Wrap(err, "runs list")
		}

		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No runs found.")
			return nil
		}

		formatRunsList(cmd.OutOrStdout(), runs)
		return nil
	},
}

// -- runs show --

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show a run with its stats",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		run, err := st.GetRun(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "runs show")
		}
		return report.WriteJSON(cmd.OutOrStdout(), run)
	},
}

// -- runs records --

var runsRecordsCmd = &cobra.Command{
	Use:   "records <run-id>",
	Short: "Print the records a run stored, as JSON lines",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		keptOnly, _ := cmd.Flags().GetBool("kept")
		recs, err := st.ListRecords(ctx, args[0], keptOnly)
		if err != nil {
			return eris.Wrap(err, "runs records")
		}
		return writeRecords(cmd.OutOrStdout(), recs)
	},
}

// -- runs report --

var runsReportCmd = &cobra.Command{
	Use:   "report <run-id> <kind>",
	Short: "Print an audit report saved by a run",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		raw, err := st.GetAuditReport(ctx, args[0], args[1])
		if err != nil {
			return eris.Wrap(err, "runs report")
		}
		return report.WriteJSON(cmd.OutOrStdout(), raw)
	},
}

// -- runs health --

var runsHealthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check recent runs against the failure and discard thresholds",
	Long:  "Summarizes runs within monitoring.lookback_hours, posts any alerts to monitoring.webhook_url and exits non-zero when an alert fired. With --watch it keeps checking until interrupted.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		checker := monitoring.NewChecker(
			monitoring.NewCollector(st),
			monitoring.NewAlerter(cfg.Monitor),
			cfg.Monitor,
		)

		watch, _ := cmd.Flags().GetDuration("watch")
		if watch > 0 {
			checker.Run(ctx, watch)
			return nil
		}

		snap, alerts, err := checker.Check(ctx)
		if err != nil {
			return eris.Wrap(err, "runs health")
		}
		formatHealth(cmd.OutOrStdout(), snap, alerts)
		if len(alerts) > 0 {
			return eris.Errorf("runs health: %d alert(s) triggered", len(alerts))
		}
		return nil
	},
}

func init() {
	runsHealthCmd.Flags().Duration("watch", 0, "repeat the check at this interval (e.g. 5m)")

	runsListCmd.Flags().String("command", "", "filter by command (shape, clean, run, audit address, ...)")
	runsListCmd.Flags().String("status", "", "filter by run status (running, complete, failed)")
	runsListCmd.Flags().Int("limit", 50, "max number of runs to display")

	runsRecordsCmd.Flags().Bool("kept", false, "only records the cleaner kept")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	runsCmd.AddCommand(runsRecordsCmd)
	runsCmd.AddCommand(runsReportCmd)
	runsCmd.AddCommand(runsHealthCmd)
	rootCmd.AddCommand(runsCmd)
}

// formatRunsList writes a tabular list of runs to w.
func formatRunsList(out io.Writer, runs []model.Run) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tCOMMAND\tSTATUS\tKEPT\tDISCARDED\tCREATED\tDURATION")
	_, _ = fmt.Fprintln(w, "--\t-------\t------\t----\t---------\t-------\t--------")

	for _, r := range runs {
		dur := r.UpdatedAt.Sub(r.CreatedAt).Round(time.Second).String()
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
			truncateID(r.ID),
			r.Command,
			r.Status,
			r.Stats.Kept,
			r.Stats.Discarded,
			r.CreatedAt.Format("2006-01-02 15:04"),
			dur,
		)
	}
	_ = w.Flush()
}

// formatHealth writes a snapshot and its alerts to w.
func formatHealth(out io.Writer, snap *monitoring.Snapshot, alerts []monitoring.Alert) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Window:\t%dh\n", snap.LookbackHours)
	_, _ = fmt.Fprintf(w, "Total runs:\t%d\n", snap.Total)
	_, _ = fmt.Fprintf(w, "Complete:\t%d\n", snap.Complete)
	_, _ = fmt.Fprintf(w, "Failed:\t%d\n", snap.Failed)
	_, _ = fmt.Fprintf(w, "Running:\t%d\n", snap.Running)
	_, _ = fmt.Fprintf(w, "Failure rate:\t%.1f%%\n", snap.FailRate*100)
	_, _ = fmt.Fprintf(w, "Cleaned records:\t%d\n", snap.Records)
	_, _ = fmt.Fprintf(w, "Discard rate:\t%.1f%%\n", snap.DiscardRate*100)
	_ = w.Flush()

	for _, a := range alerts {
		_, _ = fmt.Fprintf(out, "ALERT [%s] %s\n", a.Severity, a.Message)
	}
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func writeRecords(out io.Writer, recs []*model.Record) error {
	w := fetcher.NewJSONLinesWriter(out, false)
	for _, rec := range recs {
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	return w.Flush()
}
