package audit

import (
	"github.com/sells-group/osm-wrangler/internal/model"
)

// Keys collects the top-level keys seen across records.
type Keys struct {
	keys StringSet
}

func NewKeys() *Keys { return &Keys{keys: StringSet{}} }

func (k *Keys) Kind() string { return KindKeys }
func (k *Keys) Result() any  { return k.keys }

// Keys returns the keys seen so far.
func (k *Keys) Keys() StringSet { return k.keys }

func (k *Keys) Observe(rec *model.Record) {
	for _, key := range rec.Keys() {
		k.keys.Add(key)
	}
}

const createdByKey = "created_by"

// CreatedByReport describes the legacy created_by tag.
type CreatedByReport struct {
	Total  int64     `json:"total"`
	With   int64     `json:"with_created_by"`
	Values StringSet `json:"values"`
	Kinds  StringSet `json:"kinds"`
}

// CreatedBy reports how many records still carry created_by, with which
// values and on which kinds.
type CreatedBy struct {
	report CreatedByReport
}

func NewCreatedBy() *CreatedBy {
	return &CreatedBy{report: CreatedByReport{Values: StringSet{}, Kinds: StringSet{}}}
}

func (c *CreatedBy) Kind() string { return KindCreatedBy }
func (c *CreatedBy) Result() any  { return c.Report() }

func (c *CreatedBy) Report() *CreatedByReport { return &c.report }

func (c *CreatedBy) Observe(rec *model.Record) {
	c.report.Total++
	v, ok := rec.Tags[createdByKey]
	if !ok {
		return
	}
	c.report.With++
	c.report.Values.Add(v)
	c.report.Kinds.Add(string(rec.Kind))
}

// EmptyCase is one top-level field holding a placeholder value.
type EmptyCase struct {
	ID    string `json:"id"`
	Key   string `json:"key"`
	Value string `json:"value"`
}

// EmptyReport is the result of an empty-value audit.
type EmptyReport struct {
	Count int64       `json:"count"`
	Cases []EmptyCase `json:"cases"`
}

// EmptyValues finds top-level fields whose value is "" or "NULL".
type EmptyValues struct {
	report EmptyReport
}

func NewEmptyValues() *EmptyValues { return &EmptyValues{} }

func (e *EmptyValues) Kind() string { return KindEmpty }
func (e *EmptyValues) Result() any  { return e.Report() }

func (e *EmptyValues) Report() *EmptyReport { return &e.report }

func isPlaceholder(v string) bool { return v == "" || v == "NULL" }

func (e *EmptyValues) Observe(rec *model.Record) {
	check := func(key, v string) {
		if isPlaceholder(v) {
			e.report.Count++
			e.report.Cases = append(e.report.Cases, EmptyCase{ID: rec.IDString(), Key: key, Value: v})
		}
	}

	if rec.ID != nil {
		check("id", *rec.ID)
	}
	if rec.Visible != nil {
		check("visible", *rec.Visible)
	}
	for _, key := range sortedKeys(rec.Tags) {
		check(key, rec.Tags[key])
	}
}

func sortedKeys(m map[string]string) []string {
	s := make(StringSet, len(m))
	for k := range m {
		s.Add(k)
	}
	return s.Sorted()
}
