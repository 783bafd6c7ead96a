package export

import (
	"io"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"northscrape-engine/internal/domain"
)

const sheetName = "Leads"

// WriteXLSX writes the unique leads to a single-sheet workbook.
func WriteXLSX(w io.Writer, leads []domain.Lead) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(sheetName)
	if err != nil {
		return eris.Wrap(err, "xlsx: add sheet")
	}
	addRow(sheet, Header)
	for _, l := range Unique(leads) {
		addRow(sheet, toRecord(l))
	}
	return eris.Wrap(f.Write(w), "xlsx: write")
}

func addRow(sheet *xlsx.Sheet, cells []string) {
	row := sheet.AddRow()
	for _, v := range cells {
		row.AddCell().SetString(v)
	}
}

// ReadXLSX imports the first sheet of a workbook.
func ReadXLSX(r io.Reader) (Result, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return Result{}, eris.Wrap(err, "xlsx: read")
	}
	f, err := xlsx.OpenBinary(b)
	if err != nil {
		return Result{}, eris.Wrap(err, "xlsx: open")
	}
	if len(f.Sheets) == 0 {
		return Result{}, eris.Wrap(ErrMissingColumn, "xlsx: workbook has no sheets")
	}

	var rows [][]string
	for _, row := range f.Sheets[0].Rows {
		if row == nil {
			rows = append(rows, nil)
			continue
		}
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.String()
		}
		rows = append(rows, cells)
	}
	return fromRows(rows)
}
