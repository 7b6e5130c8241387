package pipeline

import (
	"context"
	"io"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/osm-wrangler/internal/fetcher"
	"github.com/sells-group/osm-wrangler/internal/geo"
	"github.com/sells-group/osm-wrangler/internal/model"
)

type pointWriter interface {
	Write(rec *model.Record) (bool, error)
}

// ExportShapefile writes every positioned record in r to a point shapefile
// at path and returns how many records were written and skipped.
func (p *Pipeline) ExportShapefile(ctx context.Context, r io.Reader, path string) (model.RunStats, error) {
	var stats model.RunStats

	w, err := geo.CreateShapefile(path)
	if err != nil {
		return stats, err
	}

	if err := exportPoints(ctx, r, w, &stats); err != nil {
		_ = w.Close()
		return stats, err
	}

	if err := w.Close(); err != nil {
		return stats, err
	}
	zap.L().Info("export: wrote shapefile",
		zap.String("path", path),
		zap.Int("points", w.Count()),
		zap.Int64("skipped", stats.Discarded),
	)
	return stats, nil
}

// exportPoints feeds decoded records to w. The decoder has stopped by the
// time it returns, including on a write error.
func exportPoints(ctx context.Context, r io.Reader, w pointWriter, stats *model.RunStats) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	records, errs := fetcher.DecodeJSONLines[*model.Record](ctx, r)
	for rec := range records {
		stats.Records++
		ok, err := w.Write(rec)
		if err != nil {
			cancel()
			<-errs
			return err
		}
		if ok {
			stats.Kept++
		} else {
			stats.Discarded++
		}
	}
	if err := <-errs; err != nil {
		return eris.Wrap(err, "pipeline: read records for export")
	}
	return nil
}
