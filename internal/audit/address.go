package audit

import (
	"strings"

	"github.com/sells-group/osm-wrangler/internal/model"
	"github.com/sells-group/osm-wrangler/internal/rules"
)

// AddressFields lists the address fields the address audit tracks, in
// report order.
var AddressFields = []string{
	model.AddrCity,
	model.AddrCountry,
	model.AddrPostcode,
	model.AddrProvince,
	model.AddrState,
	model.AddrStreet,
	model.AddrUnit,
	model.AddrHousename,
	model.AddrHousenumber,
}

// Field summarizes one address field.
type Field struct {
	// Count is the number of records carrying the field.
	Count int64 `json:"count"`
	// Flagged is the number of findings. A value can be flagged by more
	// than one check, and a missing country or province is a finding too.
	Flagged    int64     `json:"flagged"`
	Unexpected StringSet `json:"unexpected"`
}

func (f *Field) flag(v string) {
	f.Flagged++
	f.Unexpected.Add(v)
}

// AddressReport is the result of an address audit.
type AddressReport struct {
	Total       int64             `json:"total"`
	WithAddress int64             `json:"with_address"`
	Attributes  StringSet         `json:"attributes"`
	Fields      map[string]*Field `json:"fields"`
}

// Address flags address values that break the rule set's conventions.
type Address struct {
	rules  *rules.Rules
	report AddressReport
}

// NewAddress returns an empty address audit.
func NewAddress(r *rules.Rules) *Address {
	fields := make(map[string]*Field, len(AddressFields))
	for _, name := range AddressFields {
		fields[name] = &Field{Unexpected: StringSet{}}
	}
	return &Address{
		rules: r,
		report: AddressReport{
			Attributes: StringSet{},
			Fields:     fields,
		},
	}
}

func (a *Address) Kind() string { return KindAddress }
func (a *Address) Result() any  { return a.Report() }

// Report returns the report built so far.
func (a *Address) Report() *AddressReport { return &a.report }

func (a *Address) Observe(rec *model.Record) {
	a.report.Total++
	if rec.Address == nil {
		return
	}
	a.report.WithAddress++

	addr := rec.Address
	for k := range addr {
		a.report.Attributes.Add(k)
	}
	for name, v := range addr {
		if f, ok := a.report.Fields[name]; ok {
			f.Count++
			a.check(name, v, f)
		}
	}

	for _, name := range []string{model.AddrCountry, model.AddrProvince} {
		if !addr.Has(name) {
			a.report.Fields[name].flag("")
		}
	}
}

func (a *Address) check(name, v string, f *Field) {
	switch name {
	case model.AddrCity:
		if strings.Contains(v, ",") {
			f.flag(v)
		}
		if rules.IsLowercase(v) {
			f.flag(v)
		}
	case model.AddrCountry:
		if v != a.rules.Country() {
			f.flag(v)
		}
	case model.AddrPostcode:
		if !rules.IsPostcode(v) {
			f.flag(v)
		}
	case model.AddrProvince:
		if v != a.rules.Province() {
			f.flag(v)
		}
	case model.AddrState:
		f.flag(v)
	case model.AddrStreet:
		if rules.StartsLowercase(v) {
			f.flag(v)
		}
		if suffix, ok := rules.StreetSuffix(v); ok && !a.rules.IsExpectedSuffix(suffix) {
			f.flag(v)
		}
	case model.AddrUnit:
		if strings.Contains(strings.ToLower(v), "suite") {
			f.flag(v)
		}
	case model.AddrHousename:
		if _, ok := rules.FirstDigits(v); ok {
			f.flag(v)
		}
	case model.AddrHousenumber:
		if !rules.IsASCII(v) {
			f.flag(v)
		}
		if !rules.IsDigitsOnly(v) {
			f.flag(v)
		}
	}
}
