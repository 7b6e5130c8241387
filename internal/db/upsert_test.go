package db

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var recordsUpsert = UpsertConfig{
	Table:        "records",
	Columns:      []string{"run_id", "seq", "osm_id", "data"},
	ConflictKeys: []string{"run_id", "seq"},
}

func TestBulkUpsert_EmptyRows(t *testing.T) {
	n, err := BulkUpsert(context.TODO(), nil, recordsUpsert, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestBulkUpsert_Validation(t *testing.T) {
	tests := []struct {
		name string
		cfg  UpsertConfig
		want string
	}{
		{"no columns", UpsertConfig{Table: "records", ConflictKeys: []string{"seq"}}, "no columns specified"},
		{"no conflict keys", UpsertConfig{Table: "records", Columns: []string{"seq"}}, "no conflict keys specified"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BulkUpsert(context.TODO(), nil, tt.cfg, [][]any{{1}})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestBulkUpsert_Success(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE "_stage_records"`).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_stage_records"}, recordsUpsert.Columns).WillReturnResult(2)
	mock.ExpectExec(`INSERT INTO "records"`).WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()

	rows := [][]any{
		{"run-1", int64(0), "261114295", []byte(`{}`)},
		{"run-1", int64(1), "8133608", []byte(`{}`)},
	}
	n, err := BulkUpsert(context.Background(), mock, recordsUpsert, rows)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkUpsert_CopyError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE`).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_stage_records"}, recordsUpsert.Columns).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, err = BulkUpsert(context.Background(), mock, recordsUpsert, [][]any{{"run-1", int64(0), "1", []byte(`{}`)}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "COPY into temp table for records")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertSQL(t *testing.T) {
	assert.Equal(t,
		`INSERT INTO "records" ("run_id", "seq", "osm_id", "data") SELECT "run_id", "seq", "osm_id", "data" FROM "_stage_records" ON CONFLICT ("run_id", "seq") DO UPDATE SET "osm_id" = EXCLUDED."osm_id", "data" = EXCLUDED."data"`,
		recordsUpsert.insertSQL())

	keysOnly := UpsertConfig{Table: "osm.seen", Columns: []string{"id"}, ConflictKeys: []string{"id"}}
	assert.Equal(t,
		`INSERT INTO "osm"."seen" ("id") SELECT "id" FROM "_stage_osm_seen" ON CONFLICT ("id") DO NOTHING`,
		keysOnly.insertSQL())
}

func TestQuoteAndJoin(t *testing.T) {
	assert.Equal(t, `"run_id", "seq"`, quoteAndJoin([]string{"run_id", "seq"}))
}
