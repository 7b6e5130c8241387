// Package report renders audit results as console tables, JSON or XLSX
// workbooks.
package report

import (
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/osm-wrangler/internal/audit"
	"github.com/sells-group/osm-wrangler/internal/model"
)

// Table is one named grid of cells. It maps to a console block or an
// XLSX sheet.
type Table struct {
	Name   string
	Header []string
	Rows   [][]string
}

func (t *Table) add(cells ...string) { t.Rows = append(t.Rows, cells) }

func itoa(n int64) string { return strconv.FormatInt(n, 10) }

// Tables flattens an audit result into tables. It accepts the values
// returned by audit.Audit.Result and by audit.Census.
func Tables(result any) ([]Table, error) {
	switch r := result.(type) {
	case *audit.AddressReport:
		return addressTables(r), nil
	case *audit.ProfileReport:
		return profileTables(r), nil
	case audit.StringSet:
		t := Table{Name: "keys", Header: []string{"key"}}
		for _, k := range r.Sorted() {
			t.add(k)
		}
		return []Table{t}, nil
	case *audit.CreatedByReport:
		return createdByTables(r), nil
	case *audit.EmptyReport:
		return emptyTables(r), nil
	case []*model.Record:
		return []Table{lookupTable(r)}, nil
	case map[string]*audit.ElementStats:
		return []Table{censusTable(r)}, nil
	default:
		return nil, eris.Errorf("report: unsupported result %T", result)
	}
}

func addressTables(r *audit.AddressReport) []Table {
	summary := Table{Name: "summary", Header: []string{"metric", "value"}}
	summary.add("records", itoa(r.Total))
	summary.add("with_address", itoa(r.WithAddress))
	summary.add("attributes", strings.Join(r.Attributes.Sorted(), ", "))

	fields := Table{Name: "fields", Header: []string{"field", "count", "flagged", "distinct"}}
	unexpected := Table{Name: "unexpected", Header: []string{"field", "value"}}
	for _, name := range audit.AddressFields {
		f := r.Fields[name]
		if f == nil {
			continue
		}
		fields.add(name, itoa(f.Count), itoa(f.Flagged), strconv.Itoa(len(f.Unexpected)))
		for _, v := range f.Unexpected.Sorted() {
			unexpected.add(name, v)
		}
	}
	return []Table{summary, fields, unexpected}
}

func profileTables(r *audit.ProfileReport) []Table {
	summary := Table{Name: "summary", Header: []string{"metric", "value"}}
	summary.add("records", itoa(r.Total))
	summary.add("with_address", itoa(r.WithAddress))
	summary.add("attributes", strings.Join(r.Attributes.Sorted(), ", "))

	fields := Table{Name: "fields", Header: []string{"field", "count", "distinct"}}
	values := Table{Name: "values", Header: []string{"field", "value"}}
	for _, name := range audit.AddressFields {
		f := r.Fields[name]
		if f == nil {
			continue
		}
		fields.add(name, itoa(f.Count), strconv.Itoa(len(f.Uniques)))
		for _, v := range f.Uniques.Sorted() {
			values.add(name, v)
		}
	}
	return []Table{summary, fields, values}
}

func createdByTables(r *audit.CreatedByReport) []Table {
	summary := Table{Name: "summary", Header: []string{"metric", "value"}}
	summary.add("records", itoa(r.Total))
	summary.add("with_created_by", itoa(r.With))
	summary.add("kinds", strings.Join(r.Kinds.Sorted(), ", "))

	values := Table{Name: "values", Header: []string{"created_by"}}
	for _, v := range r.Values.Sorted() {
		values.add(v)
	}
	return []Table{summary, values}
}

func emptyTables(r *audit.EmptyReport) []Table {
	summary := Table{Name: "summary", Header: []string{"metric", "value"}}
	summary.add("findings", itoa(r.Count))

	cases := Table{Name: "cases", Header: []string{"id", "key", "value"}}
	for _, c := range r.Cases {
		cases.add(c.ID, c.Key, c.Value)
	}
	return []Table{summary, cases}
}

func lookupTable(records []*model.Record) Table {
	t := Table{Name: "matches", Header: append([]string{"id", "type"}, audit.AddressFields...)}
	for _, rec := range records {
		row := []string{rec.IDString(), string(rec.Kind)}
		for _, name := range audit.AddressFields {
			v, _ := rec.Address.Get(name)
			row = append(row, v)
		}
		t.add(row...)
	}
	return t
}

func censusTable(stats map[string]*audit.ElementStats) Table {
	names := make([]string, 0, len(stats))
	for name := range stats {
		names = append(names, name)
	}
	sort.Strings(names)

	t := Table{Name: "elements", Header: []string{"element", "count", "attributes"}}
	for _, name := range names {
		st := stats[name]
		t.add(name, itoa(st.Count), strings.Join(st.Attributes.Sorted(), ", "))
	}
	return t
}
