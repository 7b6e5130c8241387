package report

import (
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"
)

// Format selects how a result is rendered.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatXLSX Format = "xlsx"
)

// ParseFormat validates a --format flag value.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatText, FormatJSON, FormatXLSX:
		return f, nil
	case "":
		return FormatText, nil
	default:
		return "", eris.Errorf("report: unknown format %q (want text, json or xlsx)", s)
	}
}

// WriteJSON writes v as indented JSON followed by a newline.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return eris.Wrap(err, "report: write json")
	}
	return nil
}

// Render writes result in format. Text and JSON go to w; XLSX is saved to
// path, which must be set. cellWidth caps text cells (see WriteText).
func Render(format Format, w io.Writer, path string, result any, cellWidth int) error {
	if format == FormatJSON {
		return WriteJSON(w, result)
	}

	tables, err := Tables(result)
	if err != nil {
		return err
	}

	switch format {
	case FormatXLSX:
		if path == "" {
			return eris.New("report: xlsx output needs a file path")
		}
		return WriteXLSX(path, tables)
	default:
		return WriteText(w, tables, cellWidth)
	}
}
