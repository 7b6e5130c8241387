package main

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/osm-wrangler/internal/config"
	"github.com/sells-group/osm-wrangler/internal/db"
	"github.com/sells-group/osm-wrangler/internal/pipeline"
	"github.com/sells-group/osm-wrangler/internal/rules"
	"github.com/sells-group/osm-wrangler/internal/store"
)

// initStore opens the configured store. The none driver yields nil.
func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case config.DriverNone, "":
		return nil, nil
	case config.DriverSQLite:
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "osm-wrangler.db"
		}
		return store.NewSQLite(dsn)
	case config.DriverPostgres:
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, db.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// openStore is initStore for commands that cannot run without a store.
func openStore(ctx context.Context) (store.Store, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, eris.New("store.driver must be sqlite or postgres (OSMWRANGLE_STORE_DRIVER)")
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, err
	}
	return st, nil
}

// loadRules returns the built-in tables, merged with rules.path when set.
func loadRules() (*rules.Rules, error) {
	if cfg.Rules.Path == "" {
		return rules.Default(), nil
	}
	r, err := rules.Load(cfg.Rules.Path)
	if err != nil {
		return nil, err
	}
	zap.L().Info("loaded rule overrides", zap.String("path", cfg.Rules.Path))
	return r, nil
}

// newPipeline builds a pipeline, with a store only when withStore is set.
// The returned func writes the metrics textfile and releases the store.
func newPipeline(ctx context.Context, withStore, pretty bool) (*pipeline.Pipeline, func(), error) {
	r, err := loadRules()
	if err != nil {
		return nil, nil, err
	}

	var st store.Store
	if withStore {
		if st, err = openStore(ctx); err != nil {
			return nil, nil, err
		}
	}

	p, err := pipeline.New(r, pipeline.Options{
		Store:     st,
		BatchSize: cfg.Store.BatchSize,
		CacheSize: cfg.Extract.CacheSize,
		Pretty:    pretty,
	})
	if err != nil {
		if st != nil {
			_ = st.Close()
		}
		return nil, nil, err
	}

	cleanup := func() {
		if err := p.Metrics().WriteTextfile(cfg.Metrics.Textfile); err != nil {
			zap.L().Warn("write metrics textfile", zap.Error(err))
		}
		if st != nil {
			_ = st.Close()
		}
	}
	return p, cleanup, nil
}

// shapedName is the default output of shape: the input name plus .json.
func shapedName(input string) string {
	return input + ".json"
}

// cleanedName inserts "_cleaned" before the .osm.json suffix of input, or
// before its extension when the suffix is missing.
func cleanedName(input string) string {
	const suffix = ".osm.json"
	if strings.HasSuffix(input, suffix) {
		return strings.TrimSuffix(input, suffix) + "_cleaned" + suffix
	}
	ext := filepath.Ext(input)
	return strings.TrimSuffix(input, ext) + "_cleaned" + ext
}
