// Package osm decodes raw OpenStreetMap XML elements.
package osm

import (
	"context"
	"encoding/xml"
	"io"

	"github.com/rotisserie/eris"

	"github.com/sells-group/osm-wrangler/internal/fetcher"
)

// Element kinds found at the top level of an OSM export.
const (
	KindNode     = "node"
	KindWay      = "way"
	KindRelation = "relation"
)

// ChildKind tells annotation tags apart from node references.
type ChildKind int

const (
	ChildTag ChildKind = iota
	ChildRef
)

// Child is one <tag k="" v=""/> or <nd ref=""/> element.
type Child struct {
	Kind  ChildKind
	Key   string
	Value string
	Ref   string
}

// Element is a raw node, way or relation with its attributes and children
// in document order.
type Element struct {
	Kind     string
	Attrs    map[string]string
	Children []Child
}

// Attr returns the value of attribute name and whether it is present.
func (e *Element) Attr(name string) (string, bool) {
	v, ok := e.Attrs[name]
	return v, ok
}

// Tags returns the tag children in document order.
func (e *Element) Tags() []Child {
	var out []Child
	for _, c := range e.Children {
		if c.Kind == ChildTag {
			out = append(out, c)
		}
	}
	return out
}

// Refs returns the node references in document order.
func (e *Element) Refs() []string {
	var out []string
	for _, c := range e.Children {
		if c.Kind == ChildRef {
			out = append(out, c.Ref)
		}
	}
	return out
}

func attrMap(attrs []xml.Attr) map[string]string {
	m := make(map[string]string, len(attrs))
	for _, a := range attrs {
		m[a.Name.Local] = a.Value
	}
	return m
}

// UnmarshalXML keeps tag and nd children in the order they appear. A tag
// without a k attribute is ignored; other child elements (relation
// members, for instance) are skipped.
func (e *Element) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	e.Kind = start.Name.Local
	e.Attrs = attrMap(start.Attr)
	e.Children = nil

	for {
		tok, err := d.Token()
		if err != nil {
			return eris.Wrapf(err, "osm: decode %s", e.Kind)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			attrs := attrMap(t.Attr)
			switch t.Name.Local {
			case "tag":
				if k, ok := attrs["k"]; ok {
					e.Children = append(e.Children, Child{Kind: ChildTag, Key: k, Value: attrs["v"]})
				}
			case "nd":
				if ref, ok := attrs["ref"]; ok {
					e.Children = append(e.Children, Child{Kind: ChildRef, Ref: ref})
				}
			}
			if err := d.Skip(); err != nil {
				return eris.Wrapf(err, "osm: skip %s child", e.Kind)
			}
		case xml.EndElement:
			return nil
		}
	}
}

// Stream decodes every node, way and relation from r in document order.
// Both channels are closed when the input is exhausted.
func Stream(ctx context.Context, r io.Reader) (<-chan Element, <-chan error) {
	return fetcher.StreamXML[Element](ctx, r, KindNode, KindWay, KindRelation)
}
