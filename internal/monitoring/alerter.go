package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/osm-wrangler/internal/config"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertFailureRate AlertType = "run_failure_rate"
	AlertDiscardRate AlertType = "discard_rate"
)

// Alert represents a single alert to be sent.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Alerter evaluates a Snapshot against configured thresholds and sends
// alerts via webhook when thresholds are breached.
type Alerter struct {
	cfg    config.MonitoringConfig
	client *http.Client

	maxTries      uint
	retryInterval time.Duration
}

// NewAlerter creates a new Alerter with the given monitoring config.
func NewAlerter(cfg config.MonitoringConfig) *Alerter {
	return &Alerter{
		cfg:           cfg,
		client:        &http.Client{Timeout: 10 * time.Second},
		maxTries:      3,
		retryInterval: 500 * time.Millisecond,
	}
}

// Evaluate checks the snapshot against thresholds and returns any alerts.
// A zero threshold disables its check.
func (a *Alerter) Evaluate(snap *Snapshot) []Alert {
	var alerts []Alert
	now := time.Now().UTC()

	finished := snap.Complete + snap.Failed
	if a.cfg.FailureRateThreshold > 0 && finished >= a.cfg.MinFinishedRuns && snap.FailRate > a.cfg.FailureRateThreshold {
		alerts = append(alerts, Alert{
			Type:     AlertFailureRate,
			Severity: "high",
			Message: fmt.Sprintf(
				"Run failure rate %.1f%% exceeds threshold %.1f%% (%d failed / %d finished in last %dh)",
				snap.FailRate*100, a.cfg.FailureRateThreshold*100,
				snap.Failed, finished, snap.LookbackHours,
			),
			Details: map[string]any{
				"failure_rate": snap.FailRate,
				"threshold":    a.cfg.FailureRateThreshold,
				"failed":       snap.Failed,
				"finished":     finished,
			},
			Timestamp: now,
		})
	}

	// A jump in discards usually means a rule table no longer matches the
	// export.
	if a.cfg.DiscardRateThreshold > 0 && snap.Records > 0 && snap.DiscardRate > a.cfg.DiscardRateThreshold {
		alerts = append(alerts, Alert{
			Type:     AlertDiscardRate,
			Severity: "medium",
			Message: fmt.Sprintf(
				"Cleaner discarded %.1f%% of records, above threshold %.1f%% (%d of %d in last %dh)",
				snap.DiscardRate*100, a.cfg.DiscardRateThreshold*100,
				snap.Discarded, snap.Records, snap.LookbackHours,
			),
			Details: map[string]any{
				"discard_rate": snap.DiscardRate,
				"threshold":    a.cfg.DiscardRateThreshold,
				"discarded":    snap.Discarded,
				"records":      snap.Records,
			},
			Timestamp: now,
		})
	}

	return alerts
}

// SendAlerts delivers alerts to the configured webhook URL.
// Returns the number of alerts successfully sent.
func (a *Alerter) SendAlerts(ctx context.Context, alerts []Alert) int {
	if a.cfg.WebhookURL == "" || len(alerts) == 0 {
		return 0
	}

	sent := 0
	for _, alert := range alerts {
		if err := a.sendWebhook(ctx, alert); err != nil {
			zap.L().Error("monitoring: failed to send alert",
				zap.String("type", string(alert.Type)),
				zap.Error(err),
			)
			continue
		}
		zap.L().Info("monitoring: alert sent",
			zap.String("type", string(alert.Type)),
			zap.String("severity", alert.Severity),
		)
		sent++
	}
	return sent
}

// sendWebhook posts one alert, retrying network errors, 429 and 5xx
// responses with exponential backoff.
func (a *Alerter) sendWebhook(ctx context.Context, alert Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return eris.Wrap(err, "monitoring: marshal alert")
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = a.retryInterval

	_, err = backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, a.post(ctx, payload)
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(a.maxTries),
		backoff.WithNotify(func(err error, next time.Duration) {
			zap.L().Warn("monitoring: retrying webhook",
				zap.String("type", string(alert.Type)),
				zap.Duration("backoff", next),
				zap.Error(err),
			)
		}),
	)
	return err
}

func (a *Alerter) post(ctx context.Context, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return backoff.Permanent(eris.Wrap(err, "monitoring: create webhook request"))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "monitoring: webhook request")
	}
	defer resp.Body.Close() //nolint:errcheck

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return eris.Errorf("monitoring: webhook returned status %d", resp.StatusCode)
	case resp.StatusCode >= 400:
		return backoff.Permanent(eris.Errorf("monitoring: webhook returned status %d", resp.StatusCode))
	}
	return nil
}
