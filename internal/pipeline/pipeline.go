// Package pipeline wires readers, the shaper, the normalizer and the
// output sinks into the shape, clean and audit commands.
package pipeline

import (
	"context"
	"io"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/osm-wrangler/internal/audit"
	"github.com/sells-group/osm-wrangler/internal/fetcher"
	"github.com/sells-group/osm-wrangler/internal/model"
	"github.com/sells-group/osm-wrangler/internal/monitoring"
	"github.com/sells-group/osm-wrangler/internal/normalize"
	"github.com/sells-group/osm-wrangler/internal/osm"
	"github.com/sells-group/osm-wrangler/internal/rules"
	"github.com/sells-group/osm-wrangler/internal/shape"
	"github.com/sells-group/osm-wrangler/internal/store"
)

const chanSize = 64

// Options holds the optional collaborators of a Pipeline.
type Options struct {
	Store     store.Store         // nil disables persistence
	Metrics   *monitoring.Metrics // nil gets a private instance
	BatchSize int                 // records per store write
	CacheSize int                 // extractor memo entries
	Pretty    bool                // indent JSON output
}

// Pipeline runs the record stages of one command.
type Pipeline struct {
	shaper     *shape.Shaper
	normalizer *normalize.Normalizer
	metrics    *monitoring.Metrics
	store      store.Store
	batchSize  int
	pretty     bool
}

// New builds a pipeline over the given lookup tables.
func New(r *rules.Rules, opts Options) (*Pipeline, error) {
	ex, err := normalize.NewExtractor(r, opts.CacheSize)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: build extractor")
	}

	m := opts.Metrics
	if m == nil {
		m = monitoring.New()
	}
	batch := opts.BatchSize
	if batch <= 0 {
		batch = 500
	}

	p := &Pipeline{
		normalizer: normalize.New(r, ex),
		metrics:    m,
		store:      opts.Store,
		batchSize:  batch,
		pretty:     opts.Pretty,
	}
	p.shaper = shape.New(func(reason shape.DropReason, key string) {
		m.RecordDroppedKey(string(reason))
		zap.L().Debug("shape: dropped key", zap.String("reason", string(reason)), zap.String("key", key))
	})
	return p, nil
}

// Metrics returns the counters the pipeline updates.
func (p *Pipeline) Metrics() *monitoring.Metrics { return p.metrics }

// Shape converts the OSM XML in r into shaped records written to w as
// JSON lines.
func (p *Pipeline) Shape(ctx context.Context, r io.Reader, w io.Writer) (model.RunStats, error) {
	var stats model.RunStats
	g, gCtx := errgroup.WithContext(ctx)
	records := make(chan *model.Record, chanSize)

	g.Go(func() error {
		defer close(records)
		return p.shapeInto(gCtx, r, records, &stats)
	})
	g.Go(func() error {
		out := fetcher.NewJSONLinesWriter(w, p.pretty)
		for rec := range records {
			if err := out.Write(rec); err != nil {
				return err
			}
		}
		if err := out.Flush(); err != nil {
			return err
		}
		zap.L().Debug("shape: wrote records", zap.Int64("written", out.Count()))
		return nil
	})

	err := g.Wait()
	return stats, err
}

// Clean normalizes the JSON-lines records in r and writes the kept ones
// to w. When a store is configured every record is persisted under runID
// along with the rules that rejected it.
func (p *Pipeline) Clean(ctx context.Context, r io.Reader, w io.Writer, runID string) (model.RunStats, error) {
	var stats model.RunStats
	g, gCtx := errgroup.WithContext(ctx)
	records := make(chan *model.Record, chanSize)
	entries := make(chan store.Entry, chanSize)

	g.Go(func() error {
		defer close(records)
		return p.decodeInto(gCtx, r, records, &stats)
	})
	g.Go(func() error {
		defer close(entries)
		return p.cleanInto(gCtx, records, entries, &stats)
	})
	g.Go(func() error {
		return p.sink(gCtx, w, runID, entries)
	})

	err := g.Wait()
	return stats, err
}

// ShapeAndClean chains Shape and Clean without an intermediate file.
func (p *Pipeline) ShapeAndClean(ctx context.Context, r io.Reader, w io.Writer, runID string) (model.RunStats, error) {
	var stats model.RunStats
	g, gCtx := errgroup.WithContext(ctx)
	records := make(chan *model.Record, chanSize)
	entries := make(chan store.Entry, chanSize)

	g.Go(func() error {
		defer close(records)
		return p.shapeInto(gCtx, r, records, &stats)
	})
	g.Go(func() error {
		defer close(entries)
		return p.cleanInto(gCtx, records, entries, &stats)
	})
	g.Go(func() error {
		return p.sink(gCtx, w, runID, entries)
	})

	err := g.Wait()
	return stats, err
}

// Audit feeds the JSON-lines records in r to every audit.
func (p *Pipeline) Audit(ctx context.Context, r io.Reader, audits ...audit.Audit) (model.RunStats, error) {
	var stats model.RunStats
	g, gCtx := errgroup.WithContext(ctx)
	records := make(chan *model.Record, chanSize)

	g.Go(func() error {
		defer close(records)
		return p.decodeInto(gCtx, r, records, &stats)
	})
	g.Go(func() error {
		return audit.Run(gCtx, records, audits...)
	})

	err := g.Wait()
	return stats, err
}

// shapeInto streams elements from r through the shaper.
func (p *Pipeline) shapeInto(ctx context.Context, r io.Reader, out chan<- *model.Record, stats *model.RunStats) error {
	elements, errs := osm.Stream(ctx, r)
	for el := range elements {
		stats.Elements++
		p.metrics.RecordElement(el.Kind)

		rec, err := p.shaper.Shape(&el)
		if err != nil {
			return err
		}
		if rec == nil {
			continue
		}
		stats.Shaped++
		p.metrics.RecordShaped()

		select {
		case out <- rec:
		case <-ctx.Done():
			return eris.Wrap(ctx.Err(), "pipeline: shape cancelled")
		}
	}
	return <-errs
}

// decodeInto streams JSON-lines records from r.
func (p *Pipeline) decodeInto(ctx context.Context, r io.Reader, out chan<- *model.Record, stats *model.RunStats) error {
	records, errs := fetcher.DecodeJSONLines[*model.Record](ctx, r)
	for rec := range records {
		stats.Records++
		select {
		case out <- rec:
		case <-ctx.Done():
			return eris.Wrap(ctx.Err(), "pipeline: decode cancelled")
		}
	}
	return <-errs
}

// cleanInto normalizes every record, numbering them in arrival order.
func (p *Pipeline) cleanInto(ctx context.Context, in <-chan *model.Record, out chan<- store.Entry, stats *model.RunStats) error {
	var seq int64
	for rec := range in {
		res := p.normalizer.Normalize(rec)
		p.metrics.RecordCleaned(res.Keep, res.Rejections, res.Pattern)
		if res.Keep {
			stats.Kept++
		} else {
			stats.Discarded++
			zap.L().Debug("clean: discarded record",
				zap.String("id", rec.IDString()),
				zap.Strings("rules", res.Rejections),
			)
		}

		select {
		case out <- store.Entry{Seq: seq, Record: res.Record, Keep: res.Keep, Rejections: res.Rejections}:
		case <-ctx.Done():
			return eris.Wrap(ctx.Err(), "pipeline: clean cancelled")
		}
		seq++
	}
	return nil
}

// sink writes kept records to w and batches every entry to the store.
func (p *Pipeline) sink(ctx context.Context, w io.Writer, runID string, in <-chan store.Entry) error {
	out := fetcher.NewJSONLinesWriter(w, p.pretty)
	batch := make([]store.Entry, 0, p.batchSize)

	flush := func() error {
		if p.store == nil || len(batch) == 0 {
			return nil
		}
		if err := p.store.SaveEntries(ctx, runID, batch); err != nil {
			return eris.Wrap(err, "pipeline: save entries")
		}
		batch = batch[:0]
		return nil
	}

	for e := range in {
		if e.Keep {
			if err := out.Write(e.Record); err != nil {
				return err
			}
		}
		if p.store == nil {
			continue
		}
		batch = append(batch, e)
		if len(batch) >= p.batchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}

	if err := flush(); err != nil {
		return err
	}
	if err := out.Flush(); err != nil {
		return err
	}
	zap.L().Debug("clean: wrote records", zap.Int64("written", out.Count()))
	return nil
}
