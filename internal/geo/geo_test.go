package geo

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"

	"github.com/sells-group/osm-wrangler/internal/model"
)

func TestPointEWKB_RoundTrip(t *testing.T) {
	pos := &model.Position{Lat: 49.2839, Lon: -123.1103}

	data, err := PointEWKB(pos)
	require.NoError(t, err)
	require.NotEmpty(t, data)

	g, err := ewkb.Unmarshal(data)
	require.NoError(t, err)
	pt, ok := g.(*geom.Point)
	require.True(t, ok)
	assert.Equal(t, SRID, pt.SRID())
	assert.InDelta(t, -123.1103, pt.X(), 1e-9)

	back, err := DecodePoint(data)
	require.NoError(t, err)
	assert.Equal(t, pos, back)
}

func TestPointEWKB_Nil(t *testing.T) {
	data, err := PointEWKB(nil)
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestDecodePoint_Errors(t *testing.T) {
	_, err := DecodePoint([]byte{0x01, 0x02})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "geo: decode EWKB")

	line := geom.NewLineStringFlat(geom.XY, []float64{0, 0, 1, 1}).SetSRID(SRID)
	data, err := ewkb.Marshal(line, ewkb.NDR)
	require.NoError(t, err)
	_, err = DecodePoint(data)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected point")
}

func TestShapefile_WriteRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "places.shp")

	w, err := CreateShapefile(path)
	require.NoError(t, err)

	ok, err := w.Write(&model.Record{
		Kind:     model.KindNode,
		ID:       model.Ptr("261114295"),
		Position: &model.Position{Lat: 49.2839, Lon: -123.1103},
		Address:  model.Address{"street": "Main Street", "housenumber": "123", "postcode": "V6A 2S5"},
		Tags:     map[string]string{"name": "Café Deux Soleils"},
	})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = w.Write(&model.Record{Kind: model.KindWay, ID: model.Ptr("8133608")})
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, 1, w.Count())
	require.NoError(t, w.Close())

	for _, ext := range []string{".shp", ".shx", ".dbf"} {
		_, err := os.Stat(filepath.Join(filepath.Dir(path), "places"+ext))
		require.NoError(t, err, ext)
	}

	points, err := ReadShapefile(path)
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.InDelta(t, 49.2839, points[0].Lat, 1e-9)
	assert.InDelta(t, -123.1103, points[0].Lon, 1e-9)
	assert.Equal(t, "261114295", points[0].Attributes["osm_id"])
	assert.Equal(t, "Main Street", points[0].Attributes["street"])
	assert.Equal(t, "V6A 2S5", points[0].Attributes["postcode"])
	assert.Equal(t, "", points[0].Attributes["unit"])
}

func TestShapefile_MissingDir(t *testing.T) {
	_, err := CreateShapefile(filepath.Join(t.TempDir(), "nope", "x.shp"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "geo: create shapefile")
}

func TestColumnNames(t *testing.T) {
	names := ColumnNames()
	assert.Equal(t, "osm_id", names[0])
	for _, n := range names {
		assert.LessOrEqual(t, len(n), 10, n)
	}
}

func TestTruncateBytes(t *testing.T) {
	assert.Equal(t, "abc", truncateBytes("abc", 5))
	assert.Equal(t, "ab", truncateBytes("abcdef", 2))
	assert.Equal(t, "Caf", truncateBytes("Café", 4))
}
