package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/sells-group/osm-wrangler/internal/db"
	"github.com/sells-group/osm-wrangler/internal/geo"
	"github.com/sells-group/osm-wrangler/internal/model"
)

var recordColumns = []string{"run_id", "seq", "kind", "osm_id", "keep", "geom", "data"}

var rejectionColumns = []string{"run_id", "seq", "osm_id", "rule"}

// PostgresStore implements Store on PostGIS. Record positions are kept in
// a geometry(Point, 4326) column.
type PostgresStore struct {
	pool db.Pool
}

// NewPostgres connects to connString and returns a store over the pool.
func NewPostgres(ctx context.Context, connString string, poolCfg db.PoolConfig) (*PostgresStore, error) {
	pool, err := db.Connect(ctx, connString, poolCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresWithPool wraps an existing pool.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE EXTENSION IF NOT EXISTS postgis;

CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	command    TEXT NOT NULL,
	input      TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'running',
	stats      JSONB,
	error      TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS records (
	run_id TEXT NOT NULL REFERENCES runs(id),
	seq    BIGINT NOT NULL,
	kind   TEXT NOT NULL,
	osm_id TEXT,
	keep   BOOLEAN NOT NULL,
	geom   geometry(Point, 4326),
	data   JSONB NOT NULL,
	PRIMARY KEY (run_id, seq)
);

CREATE TABLE IF NOT EXISTS rejections (
	run_id TEXT NOT NULL REFERENCES runs(id),
	seq    BIGINT NOT NULL,
	osm_id TEXT,
	rule   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS audit_reports (
	run_id     TEXT NOT NULL REFERENCES runs(id),
	kind       TEXT NOT NULL,
	report     JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (run_id, kind)
);

CREATE INDEX IF NOT EXISTS idx_runs_command ON runs(command);
CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_records_osm_id ON records(osm_id);
CREATE INDEX IF NOT EXISTS idx_records_geom ON records USING GIST (geom);
CREATE INDEX IF NOT EXISTS idx_rejections_run_rule ON rejections(run_id, rule);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, command, input string) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO runs (id, command, input, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		id, command, input, string(model.RunStatusRunning), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
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

func (s *PostgresStore) FinishRun(ctx context.Context, runID string, stats model.RunStats, runErr error) error {
	statsJSON, err := json.Marshal(stats)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal stats")
	}
	status, msg := finishState(runErr)
	var errText *string
	if msg != "" {
		errText = &msg
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, stats = $2, error = $3, updated_at = $4 WHERE id = $5`,
		string(status), statsJSON, errText, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: finish run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, command, input, status, stats, error, created_at, updated_at FROM runs WHERE id = $1`,
		runID,
	)
	r, err := scanPgRun(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Errorf("postgres: get run: run not found: %s", runID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}
	return r, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, command, input, status, stats, error, created_at, updated_at FROM runs
		 WHERE ($1::text = '' OR command = $1) AND ($2::text = '' OR status = $2) AND created_at >= $3
		 ORDER BY created_at DESC LIMIT $4`,
		filter.Command, string(filter.Status), filter.CreatedAfter, limitOrDefault(filter.Limit),
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanPgRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

// SaveEntries upserts entries keyed by (run_id, seq) and appends their
// rejections with COPY.
func (s *PostgresStore) SaveEntries(ctx context.Context, runID string, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	rows := make([][]any, 0, len(entries))
	for _, e := range entries {
		data, err := marshalRecord(e.Record)
		if err != nil {
			return err
		}
		g, err := geo.PointEWKB(e.Record.Position)
		if err != nil {
			return eris.Wrapf(err, "postgres: encode position of record %d", e.Seq)
		}
		rows = append(rows, []any{runID, e.Seq, string(e.Record.Kind), e.Record.ID, e.Keep, g, data})
	}

	if _, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "records",
		Columns:      recordColumns,
		ConflictKeys: []string{"run_id", "seq"},
	}, rows); err != nil {
		return eris.Wrap(err, "postgres: save records")
	}

	if _, err := db.CopyFrom(ctx, s.pool, "rejections", rejectionColumns, rejectionRows(runID, entries)); err != nil {
		return eris.Wrap(err, "postgres: save rejections")
	}
	return nil
}

func (s *PostgresStore) ListRecords(ctx context.Context, runID string, keptOnly bool) ([]*model.Record, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT data FROM records WHERE run_id = $1 AND (keep OR NOT $2) ORDER BY seq`,
		runID, keptOnly,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list records")
	}
	defer rows.Close()

	var out []*model.Record
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, eris.Wrap(err, "postgres: scan record")
		}
		rec, err := unmarshalRecord(data)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list records iterate")
}

func (s *PostgresStore) SaveAuditReport(ctx context.Context, runID, kind string, report any) error {
	data, err := json.Marshal(report)
	if err != nil {
		return eris.Wrapf(err, "postgres: marshal %s report", kind)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO audit_reports (run_id, kind, report) VALUES ($1, $2, $3)
		 ON CONFLICT (run_id, kind) DO UPDATE SET report = EXCLUDED.report, created_at = now()`,
		runID, kind, data,
	)
	return eris.Wrapf(err, "postgres: save %s report", kind)
}

func (s *PostgresStore) GetAuditReport(ctx context.Context, runID, kind string) (json.RawMessage, error) {
	var data []byte
	err := s.pool.QueryRow(ctx,
		`SELECT report FROM audit_reports WHERE run_id = $1 AND kind = $2`, runID, kind,
	).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Errorf("%s report not found for run %s", kind, runID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get %s report", kind)
	}
	return json.RawMessage(data), nil
}

func scanPgRun(row pgx.Row) (*model.Run, error) {
	var r model.Run
	var status string
	var statsJSON []byte
	var errText *string

	if err := row.Scan(&r.ID, &r.Command, &r.Input, &status, &statsJSON, &errText, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	r.Status = model.RunStatus(status)
	if len(statsJSON) > 0 {
		if err := json.Unmarshal(statsJSON, &r.Stats); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal stats")
		}
	}
	if errText != nil {
		r.Error = *errText
	}
	return &r, nil
}
