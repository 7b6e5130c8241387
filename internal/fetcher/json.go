package fetcher

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"
)

// DecodeJSONLines decodes one JSON value per line, sending each to a
// channel in file order. Blank lines are skipped.
// Both channels are closed when processing completes.
func DecodeJSONLines[T any](ctx context.Context, r io.Reader) (<-chan T, <-chan error) {
	outCh := make(chan T, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(outCh)
		defer close(errCh)

		br := bufio.NewReader(r)
		lineNo := 0

		for {
			if ctx.Err() != nil {
				errCh <- eris.Wrap(ctx.Err(), "jsonl: context cancelled")
				return
			}

			line, err := br.ReadBytes('\n')
			if err != nil && err != io.EOF {
				errCh <- eris.Wrap(err, "jsonl: read line")
				return
			}
			lineNo++

			if trimmed := bytes.TrimSpace(line); len(trimmed) > 0 {
				var item T
				if uerr := json.Unmarshal(trimmed, &item); uerr != nil {
					errCh <- eris.Wrapf(uerr, "jsonl: decode line %d", lineNo)
					return
				}

				select {
				case outCh <- item:
				case <-ctx.Done():
					errCh <- eris.Wrap(ctx.Err(), "jsonl: context cancelled")
					return
				}
			}

			if err == io.EOF {
				return
			}
		}
	}()

	return outCh, errCh
}

// JSONLinesWriter writes one JSON value per line.
type JSONLinesWriter struct {
	bw  *bufio.Writer
	enc *json.Encoder
	n   int64
}

// NewJSONLinesWriter returns a writer that buffers output to w. With indent
// set, values are pretty-printed with two spaces, which trades
// line-per-record readability for the JSON-lines guarantee.
func NewJSONLinesWriter(w io.Writer, indent bool) *JSONLinesWriter {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	if indent {
		enc.SetIndent("", "  ")
	}
	return &JSONLinesWriter{bw: bw, enc: enc}
}

// Write encodes v followed by a newline.
func (w *JSONLinesWriter) Write(v any) error {
	if err := w.enc.Encode(v); err != nil {
		return eris.Wrap(err, "jsonl: encode")
	}
	w.n++
	return nil
}

// Count returns the number of values written.
func (w *JSONLinesWriter) Count() int64 { return w.n }

// Flush writes any buffered data to the underlying writer.
func (w *JSONLinesWriter) Flush() error {
	return eris.Wrap(w.bw.Flush(), "jsonl: flush")
}
