package shape

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/osm-wrangler/internal/model"
	"github.com/sells-group/osm-wrangler/internal/osm"
)

func tag(k, v string) osm.Child { return osm.Child{Kind: osm.ChildTag, Key: k, Value: v} }
func nd(ref string) osm.Child   { return osm.Child{Kind: osm.ChildRef, Ref: ref} }

func TestShape_Node(t *testing.T) {
	el := &osm.Element{
		Kind: osm.KindNode,
		Attrs: map[string]string{
			"id": "261114295", "visible": "true", "lat": "49.2839", "lon": "-123.1103",
			"version": "7", "changeset": "11129782", "user": "bbmiller", "uid": "451048",
		},
		Children: []osm.Child{
			tag("addr:street", "Main St"),
			tag("addr:housenumber", "123"),
			tag("amenity", "cafe"),
		},
	}

	rec, err := New(nil).Shape(el)
	require.NoError(t, err)
	require.NotNil(t, rec)

	assert.Equal(t, model.KindNode, rec.Kind)
	assert.Equal(t, "261114295", rec.IDString())
	require.NotNil(t, rec.Visible)
	assert.Equal(t, "true", *rec.Visible)
	require.NotNil(t, rec.Position)
	assert.InDelta(t, 49.2839, rec.Position.Lat, 1e-9)
	assert.InDelta(t, -123.1103, rec.Position.Lon, 1e-9)
	assert.Equal(t, model.Address{"street": "Main St", "housenumber": "123"}, rec.Address)
	assert.Equal(t, map[string]string{"amenity": "cafe"}, rec.Tags)
	require.NotNil(t, rec.Provenance.Version)
	assert.Equal(t, "7", *rec.Provenance.Version)
	assert.Nil(t, rec.Provenance.Timestamp)
	assert.Nil(t, rec.NodeRefs)
}

func TestShape_Way(t *testing.T) {
	el := &osm.Element{
		Kind:  osm.KindWay,
		Attrs: map[string]string{"id": "8133608"},
		Children: []osm.Child{
			nd("3"), tag("highway", "residential"), nd("1"), nd("2"),
			tag("type", "multipolygon"),
		},
	}

	rec, err := New(nil).Shape(el)
	require.NoError(t, err)

	assert.Equal(t, model.KindWay, rec.Kind)
	assert.Equal(t, []string{"3", "1", "2"}, rec.NodeRefs)
	assert.Equal(t, "multipolygon", rec.Tags["type_tag"])
	assert.Nil(t, rec.Position)
	assert.Nil(t, rec.Address)

	data, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"way","id":"8133608","created":{},"node_refs":["3","1","2"],"highway":"residential","type_tag":"multipolygon"}`, string(data))
}

func TestShape_OtherKinds(t *testing.T) {
	for _, kind := range []string{osm.KindRelation, "bounds", ""} {
		rec, err := New(nil).Shape(&osm.Element{Kind: kind})
		require.NoError(t, err)
		assert.Nil(t, rec, kind)
	}
}

func TestShape_PositionNeedsBoth(t *testing.T) {
	rec, err := New(nil).Shape(&osm.Element{Kind: osm.KindNode, Attrs: map[string]string{"lat": "49.1"}})
	require.NoError(t, err)
	assert.Nil(t, rec.Position)
}

func TestShape_BadCoordinate(t *testing.T) {
	tests := []struct {
		name  string
		attrs map[string]string
		want  string
	}{
		{"lat", map[string]string{"id": "9", "lat": "north", "lon": "-123"}, "shape: parse lat of node 9"},
		{"lon", map[string]string{"id": "9", "lat": "49", "lon": ""}, "shape: parse lon of node 9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := New(nil).Shape(&osm.Element{Kind: osm.KindNode, Attrs: tt.attrs})
			require.Error(t, err)
			assert.Nil(t, rec)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestShape_KeyClassification(t *testing.T) {
	type drop struct {
		reason DropReason
		key    string
	}
	var drops []drop
	s := New(func(r DropReason, k string) { drops = append(drops, drop{r, k}) })

	rec, err := s.Shape(&osm.Element{
		Kind: osm.KindNode,
		Children: []osm.Child{
			tag("addr:city", "Vancouver"),
			tag("name:en", "Gastown"),
			tag("addr.street", "x"),
			tag("FIXME", "x"),
			tag("addr:street:name", "x"),
			tag("note here", "x"),
			tag("id", "spoof"),
			tag("name", "first"),
			tag("name", "second"),
		},
	})
	require.NoError(t, err)

	assert.Equal(t, model.Address{"city": "Vancouver"}, rec.Address)
	assert.Equal(t, map[string]string{"name:en": "Gastown", "id_tag": "spoof", "name": "second"}, rec.Tags)
	assert.Nil(t, rec.ID)
	assert.Equal(t, []drop{
		{DropProblemChar, "addr.street"},
		{DropMalformed, "FIXME"},
		{DropMalformed, "addr:street:name"},
		{DropProblemChar, "note here"},
	}, drops)
}

func TestShape_AddressLastWins(t *testing.T) {
	rec, err := New(nil).Shape(&osm.Element{
		Kind:     osm.KindNode,
		Children: []osm.Child{tag("addr:postcode", "V5K 1A1"), tag("addr:postcode", "V6B 1A1")},
	})
	require.NoError(t, err)
	assert.Equal(t, "V6B 1A1", rec.Address["postcode"])
}
