package store

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/osm-wrangler/internal/model"
)

func newTestSQLite(t *testing.T) Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() }) //nolint:errcheck
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func sampleEntries() []Entry {
	return []Entry{
		{
			Seq: 0,
			Record: &model.Record{
				Kind:     model.KindNode,
				ID:       model.Ptr("261114295"),
				Position: &model.Position{Lat: 49.2839, Lon: -123.1103},
				Address:  model.Address{"street": "Main Street", "postcode": "V6A 2S5"},
			},
			Keep: true,
		},
		{
			Seq: 1,
			Record: &model.Record{
				Kind:    model.KindWay,
				ID:      model.Ptr("8133608"),
				Address: model.Address{"postcode": "98225"},
			},
			Keep:       false,
			Rejections: []string{"postcode"},
		},
	}
}

func storeTestSuite(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("CreateAndGetRun", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		run, err := s.CreateRun(ctx, "clean", "map.osm.json")
		require.NoError(t, err)
		assert.NotEmpty(t, run.ID)
		assert.Equal(t, model.RunStatusRunning, run.Status)

		got, err := s.GetRun(ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, run.ID, got.ID)
		assert.Equal(t, "clean", got.Command)
		assert.Equal(t, "map.osm.json", got.Input)
		assert.Equal(t, model.RunStatusRunning, got.Status)
	})

	t.Run("FinishRun", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		run, err := s.CreateRun(ctx, "shape", "map.osm")
		require.NoError(t, err)

		stats := model.RunStats{Elements: 10, Shaped: 8}
		require.NoError(t, s.FinishRun(ctx, run.ID, stats, nil))

		got, err := s.GetRun(ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, model.RunStatusComplete, got.Status)
		assert.Equal(t, stats, got.Stats)
		assert.Empty(t, got.Error)
	})

	t.Run("FinishRunFailed", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		run, err := s.CreateRun(ctx, "shape", "map.osm")
		require.NoError(t, err)
		require.NoError(t, s.FinishRun(ctx, run.ID, model.RunStats{}, errors.New("shape: parse lat of node 1")))

		got, err := s.GetRun(ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, model.RunStatusFailed, got.Status)
		assert.Equal(t, "shape: parse lat of node 1", got.Error)
	})

	t.Run("FinishRunNotFound", func(t *testing.T) {
		s := newStore(t)
		err := s.FinishRun(context.Background(), "nonexistent", model.RunStats{}, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not found")
	})

	t.Run("GetRun_NotFound", func(t *testing.T) {
		s := newStore(t)
		_, err := s.GetRun(context.Background(), "nonexistent")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not found")
	})

	t.Run("ListRuns", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		a, err := s.CreateRun(ctx, "shape", "a.osm")
		require.NoError(t, err)
		_, err = s.CreateRun(ctx, "clean", "a.osm.json")
		require.NoError(t, err)
		require.NoError(t, s.FinishRun(ctx, a.ID, model.RunStats{}, nil))

		all, err := s.ListRuns(ctx, RunFilter{})
		require.NoError(t, err)
		assert.Len(t, all, 2)

		shapes, err := s.ListRuns(ctx, RunFilter{Command: "shape"})
		require.NoError(t, err)
		require.Len(t, shapes, 1)
		assert.Equal(t, a.ID, shapes[0].ID)

		running, err := s.ListRuns(ctx, RunFilter{Status: model.RunStatusRunning})
		require.NoError(t, err)
		require.Len(t, running, 1)
		assert.Equal(t, "clean", running[0].Command)

		limited, err := s.ListRuns(ctx, RunFilter{Limit: 1})
		require.NoError(t, err)
		assert.Len(t, limited, 1)

		recent, err := s.ListRuns(ctx, RunFilter{CreatedAfter: time.Now().Add(-time.Hour)})
		require.NoError(t, err)
		assert.Len(t, recent, 2)

		future, err := s.ListRuns(ctx, RunFilter{CreatedAfter: time.Now().Add(time.Hour)})
		require.NoError(t, err)
		assert.Empty(t, future)
	})

	t.Run("SaveAndListRecords", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		run, err := s.CreateRun(ctx, "clean", "map.osm.json")
		require.NoError(t, err)
		require.NoError(t, s.SaveEntries(ctx, run.ID, sampleEntries()))

		all, err := s.ListRecords(ctx, run.ID, false)
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, "261114295", all[0].IDString())
		assert.Equal(t, &model.Position{Lat: 49.2839, Lon: -123.1103}, all[0].Position)
		assert.Equal(t, "8133608", all[1].IDString())

		kept, err := s.ListRecords(ctx, run.ID, true)
		require.NoError(t, err)
		require.Len(t, kept, 1)
		assert.Equal(t, "Main Street", kept[0].Address["street"])
	})

	t.Run("SaveEntriesReplacesSeq", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		run, err := s.CreateRun(ctx, "clean", "map.osm.json")
		require.NoError(t, err)
		require.NoError(t, s.SaveEntries(ctx, run.ID, sampleEntries()))

		again := sampleEntries()[:1]
		again[0].Record.Address["street"] = "Main St"
		require.NoError(t, s.SaveEntries(ctx, run.ID, again))

		all, err := s.ListRecords(ctx, run.ID, false)
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, "Main St", all[0].Address["street"])
	})

	t.Run("SaveEntriesEmpty", func(t *testing.T) {
		s := newStore(t)
		assert.NoError(t, s.SaveEntries(context.Background(), "any", nil))
	})

	t.Run("AuditReport", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		run, err := s.CreateRun(ctx, "audit address", "map.osm.json")
		require.NoError(t, err)

		require.NoError(t, s.SaveAuditReport(ctx, run.ID, "address", map[string]int{"total": 3}))
		require.NoError(t, s.SaveAuditReport(ctx, run.ID, "address", map[string]int{"total": 4}))

		raw, err := s.GetAuditReport(ctx, run.ID, "address")
		require.NoError(t, err)
		var got map[string]int
		require.NoError(t, json.Unmarshal(raw, &got))
		assert.Equal(t, 4, got["total"])

		_, err = s.GetAuditReport(ctx, run.ID, "profile")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not found")
	})
}

func TestSQLiteStore(t *testing.T) {
	storeTestSuite(t, newTestSQLite)
}
