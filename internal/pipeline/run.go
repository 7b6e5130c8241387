package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/osm-wrangler/internal/model"
)

// Step is the body of a tracked command. runID is empty when no store is
// configured.
type Step func(ctx context.Context, runID string) (model.RunStats, error)

// Track runs step as command over input. With a store the run is recorded
// and finished with its stats or error; either way the duration and
// outcome land in the metrics.
func (p *Pipeline) Track(ctx context.Context, command, input string, step Step) (model.RunStats, error) {
	log := zap.L().With(zap.String("command", command), zap.String("input", input))
	start := time.Now()

	var runID string
	if p.store != nil {
		run, err := p.store.CreateRun(ctx, command, input)
		if err != nil {
			return model.RunStats{}, err
		}
		runID = run.ID
		log = log.With(zap.String("run_id", runID))
	}

	log.Info("pipeline: starting")
	stats, err := step(ctx, runID)
	elapsed := time.Since(start)
	p.metrics.RecordRun(command, elapsed, err)

	if p.store != nil {
		// A cancelled ctx must not stop the failure from being recorded.
		if ferr := p.store.FinishRun(context.WithoutCancel(ctx), runID, stats, err); ferr != nil {
			log.Error("pipeline: finish run", zap.Error(ferr))
			if err == nil {
				err = ferr
			}
		}
	}

	if err != nil {
		log.Error("pipeline: failed", zap.Error(err), zap.Duration("elapsed", elapsed))
		return stats, err
	}
	log.Info("pipeline: complete",
		zap.Int64("elements", stats.Elements),
		zap.Int64("shaped", stats.Shaped),
		zap.Int64("records", stats.Records),
		zap.Int64("kept", stats.Kept),
		zap.Int64("discarded", stats.Discarded),
		zap.Duration("elapsed", elapsed),
	)
	return stats, nil
}

// SaveReport persists an audit result under runID. It is a no-op without
// a store.
func (p *Pipeline) SaveReport(ctx context.Context, runID, kind string, result any) error {
	if p.store == nil || runID == "" {
		return nil
	}
	return p.store.SaveAuditReport(ctx, runID, kind, result)
}
