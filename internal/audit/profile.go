package audit

import (
	"regexp"

	"github.com/sells-group/osm-wrangler/internal/model"
)

var streetEndingRe = regexp.MustCompile(`\S+$`)

// Values counts a field and collects its distinct values.
type Values struct {
	Count   int64     `json:"count"`
	Uniques StringSet `json:"uniques"`
}

// ProfileReport is the result of a profile audit.
type ProfileReport struct {
	Total       int64              `json:"total"`
	WithAddress int64              `json:"with_address"`
	Attributes  StringSet          `json:"attributes"`
	Fields      map[string]*Values `json:"fields"`
}

// Profile collects every distinct value of the tracked address fields.
// Streets are profiled by their last word so street types stand out.
type Profile struct {
	report ProfileReport
}

// NewProfile returns an empty profile audit.
func NewProfile() *Profile {
	fields := make(map[string]*Values, len(AddressFields))
	for _, name := range AddressFields {
		fields[name] = &Values{Uniques: StringSet{}}
	}
	return &Profile{report: ProfileReport{Attributes: StringSet{}, Fields: fields}}
}

func (p *Profile) Kind() string { return KindProfile }
func (p *Profile) Result() any  { return p.Report() }

// Report returns the report built so far.
func (p *Profile) Report() *ProfileReport { return &p.report }

func (p *Profile) Observe(rec *model.Record) {
	p.report.Total++
	if rec.Address == nil {
		return
	}
	p.report.WithAddress++

	for name, v := range rec.Address {
		p.report.Attributes.Add(name)
		f, ok := p.report.Fields[name]
		if !ok {
			continue
		}
		f.Count++
		if name == model.AddrStreet {
			if ending := streetEndingRe.FindString(v); ending != "" {
				f.Uniques.Add(ending)
			}
			continue
		}
		f.Uniques.Add(v)
	}
}
