package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/rotisserie/eris"
)

// DefaultCellWidth caps the display width of a console cell.
const DefaultCellWidth = 60

// WriteText prints tables as aligned columns. Widths are measured in
// display cells, so street names with accents or CJK characters line up.
// Cells wider than maxWidth are truncated with an ellipsis; zero means
// DefaultCellWidth.
func WriteText(w io.Writer, tables []Table, maxWidth int) error {
	if maxWidth <= 0 {
		maxWidth = DefaultCellWidth
	}

	for i, t := range tables {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return eris.Wrap(err, "report: write text")
			}
		}
		if err := writeTable(w, t, maxWidth); err != nil {
			return err
		}
	}
	return nil
}

func writeTable(w io.Writer, t Table, maxWidth int) error {
	fit := func(s string) string { return runewidth.Truncate(s, maxWidth, "…") }

	widths := make([]int, len(t.Header))
	measure := func(row []string) {
		for i := 0; i < len(row) && i < len(widths); i++ {
			if n := runewidth.StringWidth(fit(row[i])); n > widths[i] {
				widths[i] = n
			}
		}
	}
	measure(t.Header)
	for _, row := range t.Rows {
		measure(row)
	}

	line := func(row []string) string {
		cells := make([]string, len(widths))
		for i := range widths {
			v := ""
			if i < len(row) {
				v = fit(row[i])
			}
			cells[i] = runewidth.FillRight(v, widths[i])
		}
		return strings.TrimRight(strings.Join(cells, "  "), " ")
	}

	rules := make([]string, len(widths))
	for i, n := range widths {
		rules[i] = strings.Repeat("-", n)
	}

	var sb strings.Builder
	sb.WriteString(strings.ToUpper(t.Name))
	sb.WriteByte('\n')
	sb.WriteString(line(upper(t.Header)))
	sb.WriteByte('\n')
	sb.WriteString(line(rules))
	sb.WriteByte('\n')
	for _, row := range t.Rows {
		sb.WriteString(line(row))
		sb.WriteByte('\n')
	}

	if _, err := io.WriteString(w, sb.String()); err != nil {
		return eris.Wrap(err, "report: write text")
	}
	return nil
}

func upper(cells []string) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = strings.ToUpper(c)
	}
	return out
}
