// Package model defines the record shapes shared by the shaping, auditing
// and cleaning stages.
package model

import (
	"bytes"
	"encoding/json"
	"sort"

	"github.com/rotisserie/eris"
)

// Kind is the OSM element kind a record was shaped from.
type Kind string

const (
	KindNode Kind = "node"
	KindWay  Kind = "way"
)

// Address sub-field names used by the auditing and cleaning stages.
const (
	AddrCity        = "city"
	AddrCountry     = "country"
	AddrPostcode    = "postcode"
	AddrProvince    = "province"
	AddrState       = "state"
	AddrStreet      = "street"
	AddrUnit        = "unit"
	AddrHousename   = "housename"
	AddrHousenumber = "housenumber"
)

// Top-level JSON keys of the fixed record shape.
const (
	keyType     = "type"
	keyID       = "id"
	keyVisible  = "visible"
	keyPos      = "pos"
	keyCreated  = "created"
	keyAddress  = "address"
	keyNodeRefs = "node_refs"
)

var reservedKeys = map[string]struct{}{
	keyType: {}, keyID: {}, keyVisible: {}, keyPos: {},
	keyCreated: {}, keyAddress: {}, keyNodeRefs: {},
}

// TagKey maps a tag key onto the top-level field it is stored under.
// Keys that would clash with the fixed record shape get a "_tag" suffix,
// so "type" becomes "type_tag".
func TagKey(k string) string {
	if _, ok := reservedKeys[k]; ok {
		return k + "_tag"
	}
	return k
}

// Ptr returns a pointer to s.
func Ptr(s string) *string { return &s }

// Position is a WGS84 coordinate, serialized as [lat, lon].
type Position struct {
	Lat float64
	Lon float64
}

func (p Position) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{p.Lat, p.Lon})
}

func (p *Position) UnmarshalJSON(data []byte) error {
	var pair [2]float64
	if err := json.Unmarshal(data, &pair); err != nil {
		return eris.Wrap(err, "model: decode position")
	}
	p.Lat, p.Lon = pair[0], pair[1]
	return nil
}

// ProvenanceKeys lists the element attributes copied into Provenance.
var ProvenanceKeys = []string{"version", "changeset", "timestamp", "user", "uid"}

// Provenance is the edit history metadata of an element.
type Provenance struct {
	Version   *string `json:"version,omitempty"`
	Changeset *string `json:"changeset,omitempty"`
	Timestamp *string `json:"timestamp,omitempty"`
	User      *string `json:"user,omitempty"`
	UID       *string `json:"uid,omitempty"`
}

// Set stores value under one of ProvenanceKeys. Unknown keys are ignored
// and reported as false.
func (p *Provenance) Set(key, value string) bool {
	switch key {
	case "version":
		p.Version = Ptr(value)
	case "changeset":
		p.Changeset = Ptr(value)
	case "timestamp":
		p.Timestamp = Ptr(value)
	case "user":
		p.User = Ptr(value)
	case "uid":
		p.UID = Ptr(value)
	default:
		return false
	}
	return true
}

func (p Provenance) clone() Provenance {
	cp := func(s *string) *string {
		if s == nil {
			return nil
		}
		return Ptr(*s)
	}
	return Provenance{
		Version:   cp(p.Version),
		Changeset: cp(p.Changeset),
		Timestamp: cp(p.Timestamp),
		User:      cp(p.User),
		UID:       cp(p.UID),
	}
}

// Address holds the addr:* sub-fields of a record, keyed without prefix.
type Address map[string]string

// Get returns the value of field and whether it is present.
func (a Address) Get(field string) (string, bool) {
	v, ok := a[field]
	return v, ok
}

// Has reports whether field is present.
func (a Address) Has(field string) bool {
	_, ok := a[field]
	return ok
}

// Clone returns a copy of a. A nil address stays nil.
func (a Address) Clone() Address {
	if a == nil {
		return nil
	}
	out := make(Address, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Record is one shaped OSM node or way.
type Record struct {
	Kind       Kind
	ID         *string
	Visible    *string
	Position   *Position
	Provenance Provenance
	Address    Address
	NodeRefs   []string
	// Tags holds every other top-level field, already renamed by TagKey.
	Tags map[string]string
}

// SetTag stores a top-level field, creating the map on first use.
func (r *Record) SetTag(key, value string) {
	if r.Tags == nil {
		r.Tags = make(map[string]string)
	}
	r.Tags[key] = value
}

// SetAddress stores an address sub-field, creating the address on first use.
func (r *Record) SetAddress(field, value string) {
	if r.Address == nil {
		r.Address = make(Address)
	}
	r.Address[field] = value
}

// IDString returns the record ID or "" when absent.
func (r *Record) IDString() string {
	if r.ID == nil {
		return ""
	}
	return *r.ID
}

// Clone returns a deep copy of r.
func (r *Record) Clone() *Record {
	out := &Record{
		Kind:       r.Kind,
		Provenance: r.Provenance.clone(),
		Address:    r.Address.Clone(),
	}
	if r.ID != nil {
		out.ID = Ptr(*r.ID)
	}
	if r.Visible != nil {
		out.Visible = Ptr(*r.Visible)
	}
	if r.Position != nil {
		p := *r.Position
		out.Position = &p
	}
	if r.NodeRefs != nil {
		out.NodeRefs = append([]string(nil), r.NodeRefs...)
	}
	if r.Tags != nil {
		out.Tags = make(map[string]string, len(r.Tags))
		for k, v := range r.Tags {
			out.Tags[k] = v
		}
	}
	return out
}

// MarshalJSON writes the fixed fields first, in a stable order, followed by
// the dynamic tags sorted by key. Absent optional fields are omitted.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	n := 0
	field := func(key string, v any) error {
		val, err := json.Marshal(v)
		if err != nil {
			return eris.Wrapf(err, "model: encode %s", key)
		}
		if n > 0 {
			buf.WriteByte(',')
		}
		n++
		k, _ := json.Marshal(key)
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(val)
		return nil
	}

	if err := field(keyType, r.Kind); err != nil {
		return nil, err
	}
	if r.ID != nil {
		if err := field(keyID, *r.ID); err != nil {
			return nil, err
		}
	}
	if r.Visible != nil {
		if err := field(keyVisible, *r.Visible); err != nil {
			return nil, err
		}
	}
	if r.Position != nil {
		if err := field(keyPos, r.Position); err != nil {
			return nil, err
		}
	}
	if err := field(keyCreated, r.Provenance); err != nil {
		return nil, err
	}
	if r.Address != nil {
		if err := field(keyAddress, map[string]string(r.Address)); err != nil {
			return nil, err
		}
	}
	if r.NodeRefs != nil {
		if err := field(keyNodeRefs, r.NodeRefs); err != nil {
			return nil, err
		}
	}

	keys := make([]string, 0, len(r.Tags))
	for k := range r.Tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := field(k, r.Tags[k]); err != nil {
			return nil, err
		}
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a record written by MarshalJSON. Unknown keys must
// hold string values and land in Tags.
func (r *Record) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return eris.Wrap(err, "model: decode record")
	}

	*r = Record{}
	for key, val := range raw {
		var err error
		switch key {
		case keyType:
			err = json.Unmarshal(val, &r.Kind)
		case keyID:
			err = json.Unmarshal(val, &r.ID)
		case keyVisible:
			err = json.Unmarshal(val, &r.Visible)
		case keyPos:
			err = json.Unmarshal(val, &r.Position)
		case keyCreated:
			err = json.Unmarshal(val, &r.Provenance)
		case keyAddress:
			err = json.Unmarshal(val, &r.Address)
		case keyNodeRefs:
			err = json.Unmarshal(val, &r.NodeRefs)
		default:
			var s string
			if err = json.Unmarshal(val, &s); err == nil {
				r.SetTag(key, s)
			}
		}
		if err != nil {
			return eris.Wrapf(err, "model: decode field %q", key)
		}
	}
	return nil
}

// Keys returns every top-level key the record serializes, sorted.
func (r *Record) Keys() []string {
	keys := []string{keyType, keyCreated}
	if r.ID != nil {
		keys = append(keys, keyID)
	}
	if r.Visible != nil {
		keys = append(keys, keyVisible)
	}
	if r.Position != nil {
		keys = append(keys, keyPos)
	}
	if r.Address != nil {
		keys = append(keys, keyAddress)
	}
	if r.NodeRefs != nil {
		keys = append(keys, keyNodeRefs)
	}
	for k := range r.Tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
