package report

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/osm-wrangler/internal/audit"
	"github.com/sells-group/osm-wrangler/internal/model"
	"github.com/sells-group/osm-wrangler/internal/rules"
)

func addressResult(t *testing.T) *audit.AddressReport {
	t.Helper()
	a := audit.NewAddress(rules.Default())
	a.Observe(&model.Record{Kind: model.KindNode, Address: model.Address{"street": "Main St", "city": "vancouver"}})
	a.Observe(&model.Record{Kind: model.KindNode})
	return a.Report()
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatText, false},
		{"text", FormatText, false},
		{"json", FormatJSON, false},
		{"xlsx", FormatXLSX, false},
		{"csv", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTables_Address(t *testing.T) {
	tables, err := Tables(addressResult(t))
	require.NoError(t, err)
	require.Len(t, tables, 3)

	assert.Equal(t, "summary", tables[0].Name)
	assert.Equal(t, []string{"records", "2"}, tables[0].Rows[0])

	fields := tables[1]
	assert.Equal(t, []string{"field", "count", "flagged", "distinct"}, fields.Header)
	require.Len(t, fields.Rows, len(audit.AddressFields))
	assert.Equal(t, []string{"city", "1", "1", "1"}, fields.Rows[0])

	assert.Contains(t, tables[2].Rows, []string{"street", "Main St"})
	assert.Contains(t, tables[2].Rows, []string{"country", ""})
}

func TestTables_Other(t *testing.T) {
	census, err := audit.Census(context.Background(), strings.NewReader(`<osm><node id="1"/><node id="2"/></osm>`))
	require.NoError(t, err)

	tests := []struct {
		name   string
		result any
		first  string
		rows   int
	}{
		{"keys", audit.StringSet{"id": {}, "type": {}}, "keys", 2},
		{"created_by", &audit.CreatedByReport{Values: audit.StringSet{"JOSM": {}}, Kinds: audit.StringSet{}}, "summary", 3},
		{"empty", &audit.EmptyReport{Count: 1, Cases: []audit.EmptyCase{{ID: "1", Key: "name"}}}, "summary", 1},
		{"lookup", []*model.Record{{Kind: model.KindNode, ID: model.Ptr("9")}}, "matches", 1},
		{"elements", census, "elements", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tables, err := Tables(tt.result)
			require.NoError(t, err)
			require.NotEmpty(t, tables)
			assert.Equal(t, tt.first, tables[0].Name)
			assert.Len(t, tables[0].Rows, tt.rows)
		})
	}
}

func TestTables_Unsupported(t *testing.T) {
	_, err := Tables(42)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported result int")
}

func TestWriteText_Alignment(t *testing.T) {
	var buf bytes.Buffer
	err := WriteText(&buf, []Table{{
		Name:   "streets",
		Header: []string{"name", "n"},
		Rows:   [][]string{{"Rue Café", "1"}, {"中山路", "22"}},
	}}, 0)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "STREETS", lines[0])
	assert.Equal(t, "NAME      N", lines[1])
	assert.Equal(t, "--------  --", lines[2])
	assert.Equal(t, "Rue Café  1", lines[3])
	assert.Equal(t, "中山路    22", lines[4])
}

func TestWriteText_Truncates(t *testing.T) {
	var buf bytes.Buffer
	err := WriteText(&buf, []Table{{Name: "t", Header: []string{"v"}, Rows: [][]string{{"abcdefghij"}}}}, 5)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "abcd…")
	assert.NotContains(t, buf.String(), "abcdefghij")
}

func TestRender_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(FormatJSON, &buf, "", addressResult(t), 0))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, float64(2), decoded["total"])
}

func TestRender_XLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.xlsx")
	require.NoError(t, Render(FormatXLSX, nil, path, addressResult(t), 0))

	rows, err := ReadXLSX(path, "fields")
	require.NoError(t, err)
	require.NotEmpty(t, rows)
	assert.Equal(t, []string{"field", "count", "flagged", "distinct"}, rows[0])
	assert.Equal(t, []string{"city", "1", "1", "1"}, rows[1])

	_, err = ReadXLSX(path, "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `sheet "missing" not found`)
}

func TestRender_XLSXNeedsPath(t *testing.T) {
	err := Render(FormatXLSX, nil, "", addressResult(t), 0)
	require.Error(t, err)
}

func TestRender_Text(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(FormatText, &buf, "", addressResult(t), 0))
	assert.Contains(t, buf.String(), "UNEXPECTED")
	assert.Contains(t, buf.String(), "Main St")
}
