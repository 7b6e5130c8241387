package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/osm-wrangler/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	command    TEXT NOT NULL,
	input      TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'running',
	stats      TEXT,
	error      TEXT,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS records (
	run_id TEXT NOT NULL REFERENCES runs(id),
	seq    INTEGER NOT NULL,
	kind   TEXT NOT NULL,
	osm_id TEXT,
	keep   INTEGER NOT NULL,
	lat    REAL,
	lon    REAL,
	data   TEXT NOT NULL,
	PRIMARY KEY (run_id, seq)
);

CREATE TABLE IF NOT EXISTS rejections (
	run_id TEXT NOT NULL REFERENCES runs(id),
	seq    INTEGER NOT NULL,
	osm_id TEXT,
	rule   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS audit_reports (
	run_id     TEXT NOT NULL REFERENCES runs(id),
	kind       TEXT NOT NULL,
	report     TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (run_id, kind)
);

CREATE INDEX IF NOT EXISTS idx_runs_command ON runs(command);
CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_records_osm_id ON records(osm_id);
CREATE INDEX IF NOT EXISTS idx_rejections_run_rule ON rejections(run_id, rule);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, command, input string) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, command, input, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, command, input, string(model.RunStatusRunning), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}

	return &model.Run{
		ID:        id,
		Command:   command,
		Input:     input,
		Status:    model.RunStatusRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *SQLiteStore) FinishRun(ctx context.Context, runID string, stats model.RunStats, runErr error) error {
	statsJSON, err := json.Marshal(stats)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal stats")
	}
	status, msg := finishState(runErr)

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, stats = ?, error = ?, updated_at = ? WHERE id = ?`,
		string(status), string(statsJSON), nullString(msg), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: finish run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, command, input, status, stats, error, created_at, updated_at FROM runs WHERE id = ?`,
		runID,
	)
	return scanRun(row)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, command, input, status, stats, error, created_at, updated_at FROM runs WHERE 1=1`
	var args []any

	if filter.Command != "" {
		query += ` AND command = ?`
		args = append(args, filter.Command)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if !filter.CreatedAfter.IsZero() {
		query += ` AND created_at >= ?`
		args = append(args, filter.CreatedAfter.UTC())
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limitOrDefault(filter.Limit))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close() //nolint:errcheck

	var runs []model.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

// SaveEntries writes entries and their rejections in one transaction.
// Re-saving a sequence number replaces the earlier row.
func (s *SQLiteStore) SaveEntries(ctx context.Context, runID string, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin save entries")
	}
	defer func() { _ = tx.Rollback() }()

	recStmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO records (run_id, seq, kind, osm_id, keep, lat, lon, data) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare record insert")
	}
	defer recStmt.Close() //nolint:errcheck

	for _, e := range entries {
		data, err := marshalRecord(e.Record)
		if err != nil {
			return err
		}
		var lat, lon sql.NullFloat64
		if p := e.Record.Position; p != nil {
			lat = sql.NullFloat64{Float64: p.Lat, Valid: true}
			lon = sql.NullFloat64{Float64: p.Lon, Valid: true}
		}
		if _, err := recStmt.ExecContext(ctx,
			runID, e.Seq, string(e.Record.Kind), nullString(e.Record.IDString()), e.Keep, lat, lon, string(data),
		); err != nil {
			return eris.Wrapf(err, "sqlite: insert record %d", e.Seq)
		}
	}

	for _, row := range rejectionRows(runID, entries) {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO rejections (run_id, seq, osm_id, rule) VALUES (?, ?, ?, ?)`, row...,
		); err != nil {
			return eris.Wrap(err, "sqlite: insert rejection")
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit save entries")
}

func (s *SQLiteStore) ListRecords(ctx context.Context, runID string, keptOnly bool) ([]*model.Record, error) {
	query := `SELECT data FROM records WHERE run_id = ?`
	if keptOnly {
		query += ` AND keep = 1`
	}
	query += ` ORDER BY seq`

	rows, err := s.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list records")
	}
	defer rows.Close() //nolint:errcheck

	var out []*model.Record
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan record")
		}
		rec, err := unmarshalRecord([]byte(data))
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list records iterate")
}

func (s *SQLiteStore) SaveAuditReport(ctx context.Context, runID, kind string, report any) error {
	data, err := json.Marshal(report)
	if err != nil {
		return eris.Wrapf(err, "sqlite: marshal %s report", kind)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO audit_reports (run_id, kind, report, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (run_id, kind) DO UPDATE SET report = excluded.report, created_at = excluded.created_at`,
		runID, kind, string(data), time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: save %s report", kind)
}

func (s *SQLiteStore) GetAuditReport(ctx context.Context, runID, kind string) (json.RawMessage, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT report FROM audit_reports WHERE run_id = ? AND kind = ?`, runID, kind,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Errorf("%s report not found for run %s", kind, runID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get %s report", kind)
	}
	return json.RawMessage(data), nil
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func limitOrDefault(n int) int {
	if n <= 0 {
		return 100
	}
	return n
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*model.Run, error) {
	var r model.Run
	var statsJSON, errMsg sql.NullString

	err := row.Scan(&r.ID, &r.Command, &r.Input, &r.Status, &statsJSON, &errMsg, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.New("run not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}

	if statsJSON.Valid {
		if err := json.Unmarshal([]byte(statsJSON.String), &r.Stats); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal stats")
		}
	}
	r.Error = errMsg.String
	return &r, nil
}
