// Package shape turns raw OSM elements into flat records.
package shape

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/osm-wrangler/internal/model"
	"github.com/sells-group/osm-wrangler/internal/osm"
	"github.com/sells-group/osm-wrangler/internal/rules"
)

const addrPrefix = "addr"

// DropReason says why a tag key was left off a record.
type DropReason string

const (
	DropProblemChar DropReason = "problem_char"
	DropMalformed   DropReason = "malformed"
)

// DropFunc is called once for every tag key the shaper discards.
type DropFunc func(reason DropReason, key string)

// Shaper converts osm.Element values into model.Record values.
type Shaper struct {
	onDrop DropFunc
}

// New returns a Shaper. onDrop may be nil.
func New(onDrop DropFunc) *Shaper {
	return &Shaper{onDrop: onDrop}
}

func (s *Shaper) drop(reason DropReason, key string) {
	if s.onDrop != nil {
		s.onDrop(reason, key)
	}
}

// Shape builds a record from el. Elements that are neither nodes nor ways
// yield a nil record and no error. Coordinates that fail to parse are
// returned as an error naming the element.
func (s *Shaper) Shape(el *osm.Element) (*model.Record, error) {
	var rec model.Record
	switch el.Kind {
	case osm.KindNode:
		rec.Kind = model.KindNode
	case osm.KindWay:
		rec.Kind = model.KindWay
	default:
		return nil, nil
	}

	if id, ok := el.Attr("id"); ok {
		rec.ID = model.Ptr(id)
	}
	if v, ok := el.Attr("visible"); ok {
		rec.Visible = model.Ptr(v)
	}

	pos, err := position(el)
	if err != nil {
		return nil, err
	}
	rec.Position = pos

	for _, key := range model.ProvenanceKeys {
		if v, ok := el.Attr(key); ok {
			rec.Provenance.Set(key, v)
		}
	}

	for _, c := range el.Tags() {
		s.applyTag(&rec, c.Key, c.Value)
	}
	rec.NodeRefs = el.Refs()

	return &rec, nil
}

func (s *Shaper) applyTag(rec *model.Record, key, value string) {
	switch {
	case rules.HasProblemChar(key):
		s.drop(DropProblemChar, key)
	case rules.IsNamespacedKey(key):
		prefix, field, _ := strings.Cut(key, ":")
		if prefix == addrPrefix {
			rec.SetAddress(field, value)
			return
		}
		rec.SetTag(key, value)
	case rules.IsWellFormedKey(key):
		rec.SetTag(model.TagKey(key), value)
	default:
		s.drop(DropMalformed, key)
	}
}

func position(el *osm.Element) (*model.Position, error) {
	latStr, hasLat := el.Attr("lat")
	lonStr, hasLon := el.Attr("lon")
	if !hasLat || !hasLon {
		return nil, nil
	}

	id, _ := el.Attr("id")
	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return nil, eris.Wrapf(err, "shape: parse lat of %s %s", el.Kind, id)
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		return nil, eris.Wrapf(err, "shape: parse lon of %s %s", el.Kind, id)
	}
	return &model.Position{Lat: lat, Lon: lon}, nil
}
