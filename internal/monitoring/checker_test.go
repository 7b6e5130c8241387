package monitoring

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/osm-wrangler/internal/config"
	"github.com/sells-group/osm-wrangler/internal/model"
)

func TestChecker_Check(t *testing.T) {
	var received atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		received.Add(1)
	}))
	defer ts.Close()

	now := time.Now().UTC()
	st := &mockRuns{runs: []model.Run{
		{Command: "clean", Status: model.RunStatusComplete, CreatedAt: now, Stats: model.RunStats{Kept: 1, Discarded: 9}},
	}}

	cfg := testMonitoringConfig()
	cfg.WebhookURL = ts.URL
	cfg.LookbackHours = 24

	snap, alerts, err := NewChecker(NewCollector(st), NewAlerter(cfg), cfg).Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Total)
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertDiscardRate, alerts[0].Type)
	assert.Equal(t, int32(1), received.Load())
}

func TestChecker_Check_Healthy(t *testing.T) {
	cfg := testMonitoringConfig()
	snap, alerts, err := NewChecker(NewCollector(&mockRuns{}), NewAlerter(cfg), cfg).Check(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, snap)
	assert.Empty(t, alerts)
}

func TestChecker_RunStopsOnCancel(t *testing.T) {
	cfg := config.MonitoringConfig{LookbackHours: 24, FailureRateThreshold: 0.10}
	checker := NewChecker(NewCollector(&mockRuns{}), NewAlerter(cfg), cfg)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		checker.Run(ctx, 10*time.Millisecond)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Checker.Run did not stop after context cancellation")
	}
}
