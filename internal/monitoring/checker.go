package monitoring

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/osm-wrangler/internal/config"
)

// Checker collects a snapshot, evaluates it and sends the alerts.
type Checker struct {
	collector *Collector
	alerter   *Alerter
	cfg       config.MonitoringConfig
}

// NewChecker creates an alert checker.
func NewChecker(collector *Collector, alerter *Alerter, cfg config.MonitoringConfig) *Checker {
	return &Checker{
		collector: collector,
		alerter:   alerter,
		cfg:       cfg,
	}
}

// Check runs one collect, evaluate and send cycle.
func (c *Checker) Check(ctx context.Context) (*Snapshot, []Alert, error) {
	snap, err := c.collector.Collect(ctx, c.cfg.LookbackHours)
	if err != nil {
		return nil, nil, err
	}

	alerts := c.alerter.Evaluate(snap)
	if len(alerts) == 0 {
		zap.L().Debug("monitoring: no alerts triggered")
		return snap, nil, nil
	}

	sent := c.alerter.SendAlerts(ctx, alerts)
	zap.L().Info("monitoring: alert check complete",
		zap.Int("alerts_triggered", len(alerts)),
		zap.Int("alerts_sent", sent),
	)
	return snap, alerts, nil
}

// Run repeats Check every interval until ctx is cancelled.
func (c *Checker) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	log := zap.L().With(zap.String("component", "monitoring.checker"))
	log.Info("starting alert checker",
		zap.Duration("interval", interval),
		zap.Int("lookback_hours", c.cfg.LookbackHours),
	)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("alert checker stopped")
			return
		case <-ticker.C:
			if _, _, err := c.Check(ctx); err != nil {
				log.Error("monitoring: check failed", zap.Error(err))
			}
		}
	}
}
