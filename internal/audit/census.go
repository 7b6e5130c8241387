package audit

import (
	"context"
	"encoding/xml"
	"io"

	"github.com/rotisserie/eris"

	"github.com/sells-group/osm-wrangler/internal/fetcher"
)

// ElementStats counts one XML element name and the attributes it carried.
type ElementStats struct {
	Count      int64     `json:"count"`
	Attributes StringSet `json:"attributes"`
}

// Census counts every element of a raw OSM XML document by name, nested
// elements included.
func Census(ctx context.Context, r io.Reader) (map[string]*ElementStats, error) {
	out := make(map[string]*ElementStats)
	err := fetcher.ScanXML(ctx, r, func(se xml.StartElement) error {
		st, ok := out[se.Name.Local]
		if !ok {
			st = &ElementStats{Attributes: StringSet{}}
			out[se.Name.Local] = st
		}
		st.Count++
		for _, a := range se.Attr {
			st.Attributes.Add(a.Name.Local)
		}
		return nil
	})
	if err != nil {
		return nil, eris.Wrap(err, "audit: element census")
	}
	return out, nil
}
