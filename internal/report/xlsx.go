package report

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// WriteXLSX saves tables to path, one sheet per table with the header as
// the first row.
func WriteXLSX(path string, tables []Table) error {
	f := xlsx.NewFile()
	for _, t := range tables {
		sheet, err := f.AddSheet(t.Name)
		if err != nil {
			return eris.Wrapf(err, "xlsx: add sheet %q", t.Name)
		}
		addRow(sheet, t.Header)
		for _, row := range t.Rows {
			addRow(sheet, row)
		}
	}

	if err := f.Save(path); err != nil {
		return eris.Wrap(err, "xlsx: save file")
	}
	return nil
}

func addRow(sheet *xlsx.Sheet, cells []string) {
	row := sheet.AddRow()
	for _, v := range cells {
		row.AddCell().SetString(v)
	}
}

// ReadXLSX returns every row of the named sheet, header included.
func ReadXLSX(path, sheetName string) ([][]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: open file")
	}

	sheet, ok := f.Sheet[sheetName]
	if !ok {
		return nil, eris.Errorf("xlsx: sheet %q not found", sheetName)
	}

	rows := make([][]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		rows = append(rows, rowToStrings(row))
	}
	return rows, nil
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}
