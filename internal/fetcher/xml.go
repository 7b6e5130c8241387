// Package fetcher streams OSM XML exports and JSON-lines record files.
package fetcher

import (
	"context"
	"encoding/xml"
	"io"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/htmlindex"
)

func newXMLDecoder(r io.Reader) *xml.Decoder {
	decoder := xml.NewDecoder(r)
	decoder.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		enc, err := htmlindex.Get(charset)
		if err != nil {
			return nil, eris.Wrapf(err, "xml: unsupported charset %q", charset)
		}
		return enc.NewDecoder().Reader(input), nil
	}
	return decoder
}

// StreamXML decodes XML elements whose local name is one of names and sends
// them to a channel in document order. The type parameter T must be a
// struct with appropriate xml tags or implement xml.Unmarshaler.
// Both channels are closed when processing completes.
func StreamXML[T any](ctx context.Context, r io.Reader, names ...string) (<-chan T, <-chan error) {
	outCh := make(chan T, 64)
	errCh := make(chan error, 1)

	wanted := make(map[string]struct{}, len(names))
	for _, n := range names {
		wanted[n] = struct{}{}
	}

	go func() {
		defer close(outCh)
		defer close(errCh)

		decoder := newXMLDecoder(r)

		for {
			if ctx.Err() != nil {
				errCh <- eris.Wrap(ctx.Err(), "xml: context cancelled")
				return
			}

			tok, err := decoder.Token()
			if err == io.EOF {
				return
			}
			if err != nil {
				errCh <- eris.Wrap(err, "xml: read token")
				return
			}

			se, ok := tok.(xml.StartElement)
			if !ok {
				continue
			}

			if _, ok := wanted[se.Name.Local]; !ok {
				continue
			}

			var item T
			if err := decoder.DecodeElement(&item, &se); err != nil {
				errCh <- eris.Wrap(err, "xml: decode element")
				return
			}

			select {
			case outCh <- item:
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "xml: context cancelled")
				return
			}
		}
	}()

	return outCh, errCh
}

// ScanXML calls fn for every start element in the document, nested ones
// included. It stops at the first error returned by fn.
func ScanXML(ctx context.Context, r io.Reader, fn func(xml.StartElement) error) error {
	decoder := newXMLDecoder(r)

	for {
		if ctx.Err() != nil {
			return eris.Wrap(ctx.Err(), "xml: context cancelled")
		}

		tok, err := decoder.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return eris.Wrap(err, "xml: read token")
		}

		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if err := fn(se); err != nil {
			return err
		}
	}
}
