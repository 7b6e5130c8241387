// Package audit folds shaped records into read-only reports about the
// quality of their fields.
package audit

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/osm-wrangler/internal/model"
)

// Report kinds, used as the name of an audit when it is stored or printed.
const (
	KindAddress   = "address"
	KindProfile   = "profile"
	KindKeys      = "keys"
	KindCreatedBy = "created_by"
	KindEmpty     = "empty"
	KindLookup    = "lookup"
	KindElements  = "elements"
)

// Audit is a fold over a record stream. Observe must not keep or modify
// the record it is given unless the audit exists to collect records.
type Audit interface {
	Kind() string
	Observe(rec *model.Record)
	Result() any
}

// Run feeds every record from records to each audit until the channel is
// closed or ctx is done.
func Run(ctx context.Context, records <-chan *model.Record, audits ...Audit) error {
	for {
		select {
		case <-ctx.Done():
			return eris.Wrap(ctx.Err(), "audit: context cancelled")
		case rec, ok := <-records:
			if !ok {
				return nil
			}
			for _, a := range audits {
				a.Observe(rec)
			}
		}
	}
}
