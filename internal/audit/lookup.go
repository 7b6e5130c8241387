package audit

import (
	"regexp"

	"github.com/rotisserie/eris"

	"github.com/sells-group/osm-wrangler/internal/model"
)

// Lookup collects the records whose address field matches a pattern.
type Lookup struct {
	field   string
	re      *regexp.Regexp
	matches []*model.Record
}

// NewLookup compiles pattern and returns a lookup over address[field].
func NewLookup(field, pattern string) (*Lookup, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, eris.Wrapf(err, "audit: compile lookup pattern %q", pattern)
	}
	return &Lookup{field: field, re: re}, nil
}

func (l *Lookup) Kind() string { return KindLookup }
func (l *Lookup) Result() any  { return l.Matches() }

// Matches returns the matching records in arrival order.
func (l *Lookup) Matches() []*model.Record {
	if l.matches == nil {
		return []*model.Record{}
	}
	return l.matches
}

func (l *Lookup) Observe(rec *model.Record) {
	v, ok := rec.Address.Get(l.field)
	if ok && l.re.MatchString(v) {
		l.matches = append(l.matches, rec)
	}
}
