package geo

import (
	"os"
	"strings"
	"unicode/utf8"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"

	"github.com/sells-group/osm-wrangler/internal/model"
)

type column struct {
	field shp.Field
	value func(rec *model.Record) string
}

func addrValue(field string) func(*model.Record) string {
	return func(rec *model.Record) string {
		v, _ := rec.Address.Get(field)
		return v
	}
}

// DBF field names are limited to 10 characters.
var columns = []column{
	{shp.StringField("osm_id", 20), (*model.Record).IDString},
	{shp.StringField("name", 80), func(rec *model.Record) string { return rec.Tags["name"] }},
	{shp.StringField("housenum", 20), addrValue(model.AddrHousenumber)},
	{shp.StringField("unit", 20), addrValue(model.AddrUnit)},
	{shp.StringField("street", 80), addrValue(model.AddrStreet)},
	{shp.StringField("city", 40), addrValue(model.AddrCity)},
	{shp.StringField("province", 40), addrValue(model.AddrProvince)},
	{shp.StringField("postcode", 10), addrValue(model.AddrPostcode)},
}

// ColumnNames lists the attribute columns of exported shapefiles.
func ColumnNames() []string {
	out := make([]string, len(columns))
	for i, c := range columns {
		out[i] = strings.TrimRight(c.field.String(), "\x00")
	}
	return out
}

// ShapefileWriter writes positioned records as a point shapefile with
// address attributes.
type ShapefileWriter struct {
	base string
	w    *shp.Writer
	n    int
}

// CreateShapefile creates path (which should end in .shp) along with its
// .shx and .dbf companions.
func CreateShapefile(path string) (*ShapefileWriter, error) {
	base := strings.TrimSuffix(path, ".shp")
	w, err := shp.Create(base+".shp", shp.POINT)
	if err != nil {
		return nil, eris.Wrapf(err, "geo: create shapefile %s", path)
	}

	fields := make([]shp.Field, len(columns))
	for i, c := range columns {
		fields[i] = c.field
	}
	if err := w.SetFields(fields); err != nil {
		w.Close()
		return nil, eris.Wrap(err, "geo: set shapefile fields")
	}
	return &ShapefileWriter{base: base, w: w}, nil
}

// Write adds rec as a point. Records without a position are skipped and
// reported as false.
func (s *ShapefileWriter) Write(rec *model.Record) (bool, error) {
	if rec.Position == nil {
		return false, nil
	}

	row := int(s.w.Write(&shp.Point{X: rec.Position.Lon, Y: rec.Position.Lat}))
	for i, c := range columns {
		v := truncateBytes(c.value(rec), int(c.field.Size))
		if err := s.w.WriteAttribute(row, i, v); err != nil {
			return false, eris.Wrapf(err, "geo: write attribute %d of record %s", i, rec.IDString())
		}
	}
	s.n++
	return true, nil
}

// Count returns the number of points written.
func (s *ShapefileWriter) Count() int { return s.n }

// Close writes the headers. go-shp names the attribute file "<base>dbf";
// it is moved to "<base>.dbf" where readers look for it.
func (s *ShapefileWriter) Close() error {
	s.w.Close()
	if err := os.Rename(s.base+"dbf", s.base+".dbf"); err != nil {
		return eris.Wrap(err, "geo: rename dbf")
	}
	return nil
}

// truncateBytes cuts s to at most n bytes without splitting a rune.
func truncateBytes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	s = s[:n]
	for len(s) > 0 && !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}
	return s
}

// Point is one feature read back from a shapefile.
type Point struct {
	Lat, Lon   float64
	Attributes map[string]string
}

// ReadShapefile returns every point feature of path with its attributes.
func ReadShapefile(path string) ([]Point, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "geo: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	fields := reader.Fields()
	var out []Point
	for reader.Next() {
		_, shape := reader.Shape()
		pt, ok := shape.(*shp.Point)
		if !ok {
			continue
		}
		attrs := make(map[string]string, len(fields))
		for i, f := range fields {
			name := strings.TrimRight(f.String(), "\x00")
			attrs[name] = strings.TrimSpace(strings.TrimRight(reader.Attribute(i), "\x00"))
		}
		out = append(out, Point{Lat: pt.Y, Lon: pt.X, Attributes: attrs})
	}
	return out, nil
}
