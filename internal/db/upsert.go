package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// UpsertConfig describes a bulk upsert target.
type UpsertConfig struct {
	Table        string   // target table, optionally schema-qualified
	Columns      []string // columns present in every row
	ConflictKeys []string // columns of the unique constraint
	UpdateCols   []string // nil updates every non-key column
}

// updateColumns resolves the columns rewritten on conflict.
func (c UpsertConfig) updateColumns() []string {
	if c.UpdateCols != nil {
		return c.UpdateCols
	}
	keys := make(map[string]bool, len(c.ConflictKeys))
	for _, k := range c.ConflictKeys {
		keys[k] = true
	}
	var out []string
	for _, col := range c.Columns {
		if !keys[col] {
			out = append(out, col)
		}
	}
	return out
}

// tempTable is the per-transaction staging table for c.Table.
func (c UpsertConfig) tempTable() string {
	return "_stage_" + strings.ReplaceAll(c.Table, ".", "_")
}

// insertSQL moves the staged rows into the target table.
func (c UpsertConfig) insertSQL() string {
	cols := quoteAndJoin(c.Columns)
	sql := fmt.Sprintf(
		"INSERT INTO %s (%s) SELECT %s FROM %s ON CONFLICT (%s)",
		identifier(c.Table).Sanitize(), cols, cols,
		pgx.Identifier{c.tempTable()}.Sanitize(),
		quoteAndJoin(c.ConflictKeys),
	)

	update := c.updateColumns()
	if len(update) == 0 {
		return sql + " DO NOTHING"
	}
	sets := make([]string, len(update))
	for i, col := range update {
		q := pgx.Identifier{col}.Sanitize()
		sets[i] = q + " = EXCLUDED." + q
	}
	return sql + " DO UPDATE SET " + strings.Join(sets, ", ")
}

// BulkUpsert stages rows in a temp table with COPY, then merges them into
// the target with INSERT ... ON CONFLICT inside one transaction. It returns
// the number of rows inserted or updated.
func BulkUpsert(ctx context.Context, pool Pool, cfg UpsertConfig, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if len(cfg.Columns) == 0 {
		return 0, eris.New("db: upsert: no columns specified")
	}
	if len(cfg.ConflictKeys) == 0 {
		return 0, eris.New("db: upsert: no conflict keys specified")
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "db: upsert: begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	stage := cfg.tempTable()
	createSQL := fmt.Sprintf(
		"CREATE TEMP TABLE %s (LIKE %s INCLUDING DEFAULTS) ON COMMIT DROP",
		pgx.Identifier{stage}.Sanitize(),
		identifier(cfg.Table).Sanitize(),
	)
	if _, err := tx.Exec(ctx, createSQL); err != nil {
		return 0, eris.Wrapf(err, "db: upsert: create temp table for %s", cfg.Table)
	}

	if _, err := tx.CopyFrom(ctx, pgx.Identifier{stage}, cfg.Columns, pgx.CopyFromRows(rows)); err != nil {
		return 0, eris.Wrapf(err, "db: upsert: COPY into temp table for %s", cfg.Table)
	}

	tag, err := tx.Exec(ctx, cfg.insertSQL())
	if err != nil {
		return 0, eris.Wrapf(err, "db: upsert: INSERT ON CONFLICT for %s", cfg.Table)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "db: upsert: commit tx")
	}
	return tag.RowsAffected(), nil
}

func quoteAndJoin(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = pgx.Identifier{c}.Sanitize()
	}
	return strings.Join(quoted, ", ")
}
