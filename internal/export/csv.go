package export

import (
	"encoding/csv"
	"errors"
	"io"

	"github.com/rotisserie/eris"

	"northscrape-engine/internal/domain"
)

// WriteCSV writes the unique leads with the fixed header.
func WriteCSV(w io.Writer, leads []domain.Lead) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return eris.Wrap(err, "csv: write header")
	}
	for _, l := range Unique(leads) {
		if err := cw.Write(toRecord(l)); err != nil {
			return eris.Wrapf(err, "csv: write %q", l.Name)
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "csv: flush")
}

// ReadCSV imports a lead sheet. Rows that cannot be parsed are reported in
// Result.Rejected; only a missing header or an I/O failure is an error.
func ReadCSV(r io.Reader) (Result, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // allow variable fields
	reader.LazyQuotes = true

	var (
		rows     [][]string
		lines    []int
		rejected []*MalformedRowError
	)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		var pe *csv.ParseError
		if errors.As(err, &pe) {
			rejected = append(rejected, &MalformedRowError{Line: pe.StartLine, Reason: pe.Err.Error()})
			continue
		}
		if err != nil {
			return Result{}, eris.Wrap(err, "csv: read row")
		}
		line, _ := reader.FieldPos(0)
		rows = append(rows, record)
		lines = append(lines, line)
	}

	res, err := fromRows(rows)
	if err != nil {
		return Result{}, err
	}
	// report physical line numbers for quoted multi-line records
	for _, bad := range res.Rejected {
		if bad.Line-1 < len(lines) {
			bad.Line = lines[bad.Line-1]
		}
	}
	res.Rejected = append(rejected, res.Rejected...)
	return res, nil
}
