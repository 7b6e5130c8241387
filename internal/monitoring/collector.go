package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/osm-wrangler/internal/model"
	"github.com/sells-group/osm-wrangler/internal/store"
)

// Snapshot holds a point-in-time view of recent runs.
type Snapshot struct {
	Total       int     `json:"total"`
	Complete    int     `json:"complete"`
	Failed      int     `json:"failed"`
	Running     int     `json:"running"`
	FailRate    float64 `json:"fail_rate"`
	Records     int64   `json:"records"`
	Kept        int64   `json:"kept"`
	Discarded   int64   `json:"discarded"`
	DiscardRate float64 `json:"discard_rate"`

	LookbackHours int       `json:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at"`
}

// RunLister is the part of store.Store the collector reads.
type RunLister interface {
	ListRuns(ctx context.Context, filter store.RunFilter) ([]model.Run, error)
}

// Collector summarizes the runs of a store.
type Collector struct {
	runs RunLister
}

// NewCollector creates a collector over st.
func NewCollector(st RunLister) *Collector {
	return &Collector{runs: st}
}

// Collect summarizes the runs created in the last lookbackHours. Only
// finished clean and run commands count towards the discard rate.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*Snapshot, error) {
	snap := &Snapshot{
		LookbackHours: lookbackHours,
		CollectedAt:   time.Now().UTC(),
	}

	runs, err := c.runs.ListRuns(ctx, store.RunFilter{
		CreatedAfter: snap.CollectedAt.Add(-time.Duration(lookbackHours) * time.Hour),
		Limit:        10000,
	})
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list runs")
	}

	snap.Total = len(runs)
	for _, r := range runs {
		switch r.Status {
		case model.RunStatusComplete:
			snap.Complete++
		case model.RunStatusFailed:
			snap.Failed++
		case model.RunStatusRunning:
			snap.Running++
		}
		if r.Status == model.RunStatusComplete && (r.Command == "clean" || r.Command == "run") {
			snap.Records += r.Stats.Kept + r.Stats.Discarded
			snap.Kept += r.Stats.Kept
			snap.Discarded += r.Stats.Discarded
		}
	}

	if finished := snap.Complete + snap.Failed; finished > 0 {
		snap.FailRate = float64(snap.Failed) / float64(finished)
	}
	if snap.Records > 0 {
		snap.DiscardRate = float64(snap.Discarded) / float64(snap.Records)
	}
	return snap, nil
}
