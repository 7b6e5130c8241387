package monitoring

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/osm-wrangler/internal/config"
)

func testMonitoringConfig() config.MonitoringConfig {
	return config.MonitoringConfig{
		FailureRateThreshold: 0.10,
		DiscardRateThreshold: 0.50,
		MinFinishedRuns:      5,
	}
}

func TestAlerter_Evaluate(t *testing.T) {
	tests := []struct {
		name  string
		snap  Snapshot
		types []AlertType
	}{
		{
			name: "healthy",
			snap: Snapshot{Complete: 95, Failed: 5, FailRate: 0.05, Records: 100, Discarded: 10, DiscardRate: 0.1},
		},
		{
			name:  "failure rate",
			snap:  Snapshot{Complete: 12, Failed: 8, FailRate: 0.4},
			types: []AlertType{AlertFailureRate},
		},
		{
			name: "too few finished runs",
			snap: Snapshot{Complete: 1, Failed: 2, FailRate: 0.666},
		},
		{
			name:  "discard rate",
			snap:  Snapshot{Complete: 3, Records: 100, Discarded: 70, DiscardRate: 0.7},
			types: []AlertType{AlertDiscardRate},
		},
		{
			name:  "both",
			snap:  Snapshot{Complete: 5, Failed: 5, FailRate: 0.5, Records: 10, Discarded: 9, DiscardRate: 0.9},
			types: []AlertType{AlertFailureRate, AlertDiscardRate},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := tt.snap
			snap.LookbackHours = 24

			alerts := NewAlerter(testMonitoringConfig()).Evaluate(&snap)
			var got []AlertType
			for _, a := range alerts {
				got = append(got, a.Type)
			}
			assert.Equal(t, tt.types, got)
		})
	}
}

func TestAlerter_Evaluate_Message(t *testing.T) {
	alerts := NewAlerter(testMonitoringConfig()).Evaluate(&Snapshot{
		Complete: 12, Failed: 8, FailRate: 0.4, LookbackHours: 24,
	})
	require.Len(t, alerts, 1)
	assert.Equal(t, "high", alerts[0].Severity)
	assert.Contains(t, alerts[0].Message, "40.0%")
	assert.Contains(t, alerts[0].Message, "last 24h")
}

func TestAlerter_Evaluate_ZeroThresholds(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{})

	alerts := a.Evaluate(&Snapshot{Complete: 1, Failed: 9, FailRate: 0.9, Records: 10, Discarded: 10, DiscardRate: 1})
	assert.Empty(t, alerts)
}

func TestAlerter_SendAlerts_Webhook(t *testing.T) {
	var received atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var alert Alert
		err := json.NewDecoder(r.Body).Decode(&alert)
		assert.NoError(t, err)
		assert.NotEmpty(t, alert.Type)
		received.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	a := NewAlerter(config.MonitoringConfig{WebhookURL: ts.URL})

	sent := a.SendAlerts(context.Background(), []Alert{
		{Type: AlertFailureRate, Severity: "high", Message: "test alert 1"},
		{Type: AlertDiscardRate, Severity: "medium", Message: "test alert 2"},
	})
	assert.Equal(t, 2, sent)
	assert.Equal(t, int32(2), received.Load())
}

func TestAlerter_SendAlerts_Skipped(t *testing.T) {
	assert.Equal(t, 0, NewAlerter(config.MonitoringConfig{}).SendAlerts(context.Background(), []Alert{
		{Type: AlertFailureRate, Message: "test"},
	}))
	assert.Equal(t, 0, NewAlerter(config.MonitoringConfig{WebhookURL: "http://example.com"}).SendAlerts(context.Background(), nil))
}

func newFastAlerter(url string) *Alerter {
	a := NewAlerter(config.MonitoringConfig{WebhookURL: url})
	a.retryInterval = time.Millisecond
	return a
}

func TestAlerter_SendAlerts_WebhookError(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	sent := newFastAlerter(ts.URL).SendAlerts(context.Background(), []Alert{{Type: AlertFailureRate, Message: "test"}})
	assert.Equal(t, 0, sent)
	assert.Equal(t, int32(3), calls.Load())
}

func TestAlerter_SendAlerts_RetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	sent := newFastAlerter(ts.URL).SendAlerts(context.Background(), []Alert{{Type: AlertDiscardRate, Message: "test"}})
	assert.Equal(t, 1, sent)
	assert.Equal(t, int32(2), calls.Load())
}

func TestAlerter_SendAlerts_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer ts.Close()

	sent := newFastAlerter(ts.URL).SendAlerts(context.Background(), []Alert{{Type: AlertDiscardRate, Message: "test"}})
	assert.Equal(t, 0, sent)
	assert.Equal(t, int32(1), calls.Load())
}
