// Package geo encodes record positions for spatial stores and exports.
package geo

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"

	"github.com/sells-group/osm-wrangler/internal/model"
)

// SRID of every geometry written by this package (WGS84).
const SRID = 4326

// PointEWKB encodes pos as an EWKB point with SRID 4326. Coordinates are
// stored x=lon, y=lat. A nil position yields nil bytes.
func PointEWKB(pos *model.Position) ([]byte, error) {
	if pos == nil {
		return nil, nil
	}

	g := geom.NewPointFlat(geom.XY, []float64{pos.Lon, pos.Lat}).SetSRID(SRID)
	data, err := ewkb.Marshal(g, ewkb.NDR)
	if err != nil {
		return nil, eris.Wrap(err, "geo: encode EWKB")
	}
	return data, nil
}

// DecodePoint reverses PointEWKB.
func DecodePoint(data []byte) (*model.Position, error) {
	g, err := ewkb.Unmarshal(data)
	if err != nil {
		return nil, eris.Wrap(err, "geo: decode EWKB")
	}
	pt, ok := g.(*geom.Point)
	if !ok {
		return nil, eris.Errorf("geo: expected point, got %T", g)
	}
	return &model.Position{Lat: pt.Y(), Lon: pt.X()}, nil
}
