// Package store persists pipeline runs, the records they produced and the
// audit reports they computed.
package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/osm-wrangler/internal/model"
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Command      string          `json:"command,omitempty"`
	Status       model.RunStatus `json:"status,omitempty"`
	CreatedAfter time.Time       `json:"created_after,omitempty"`
	Limit        int             `json:"limit,omitempty"`
}

// Entry is one record as it left the pipeline. Seq is its position in the
// input stream.
type Entry struct {
	Seq        int64
	Record     *model.Record
	Keep       bool
	Rejections []string
}

// Store defines the persistence interface for pipeline runs.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, command, input string) (*model.Run, error)
	FinishRun(ctx context.Context, runID string, stats model.RunStats, runErr error) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Records
	SaveEntries(ctx context.Context, runID string, entries []Entry) error
	ListRecords(ctx context.Context, runID string, keptOnly bool) ([]*model.Record, error)

	// Audit reports
	SaveAuditReport(ctx context.Context, runID, kind string, report any) error
	GetAuditReport(ctx context.Context, runID, kind string) (json.RawMessage, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// finishState maps a run outcome onto its final status and error text.
func finishState(runErr error) (model.RunStatus, string) {
	if runErr != nil {
		return model.RunStatusFailed, runErr.Error()
	}
	return model.RunStatusComplete, ""
}

// rejectionRows flattens the rejection rules of entries for bulk insert.
func rejectionRows(runID string, entries []Entry) [][]any {
	var rows [][]any
	for _, e := range entries {
		for _, rule := range e.Rejections {
			rows = append(rows, []any{runID, e.Seq, e.Record.IDString(), rule})
		}
	}
	return rows
}

func marshalRecord(rec *model.Record) ([]byte, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, eris.Wrapf(err, "store: marshal record %s", rec.IDString())
	}
	return data, nil
}

func unmarshalRecord(data []byte) (*model.Record, error) {
	var rec model.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, eris.Wrap(err, "store: unmarshal record")
	}
	return &rec, nil
}
