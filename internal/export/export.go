// Package export reads and writes lead sheets as CSV or XLSX.
package export

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rotisserie/eris"

	"northscrape-engine/internal/domain"
	"northscrape-engine/internal/normalize"
	"northscrape-engine/internal/resolve"
)

var (
	ErrMalformedRow  = eris.New("export: malformed row")
	ErrMissingColumn = eris.New("export: missing required column")
)

// Header is the column order of every exported sheet.
var Header = []string{"Name", "Address", "City", "Province", "PostalCode", "Phone", "Website", "Status"}

// MalformedRowError describes one rejected input row. Line is 1-based and
// counts the header.
type MalformedRowError struct {
	Line   int
	Reason string
}

func (e *MalformedRowError) Error() string {
	return fmt.Sprintf("export: line %d: %s", e.Line, e.Reason)
}

func (e *MalformedRowError) Unwrap() error { return ErrMalformedRow }

// Result is an imported sheet. Rejected rows do not stop the import.
type Result struct {
	Leads    []domain.Lead
	Rejected []*MalformedRowError
}

// Unique collapses leads that share a phone number, or an address when
// there is no phone, keeping the last one seen, and sorts by name.
func Unique(leads []domain.Lead) []domain.Lead {
	byKey := make(map[string]domain.Lead, len(leads))
	for _, l := range leads {
		key := "PH:" + l.Phone
		if l.Phone == "" {
			key = "AD:" + strings.ToLower(l.Address.Formatted())
			if l.Address.Formatted() == "" {
				key = "NM:" + strings.ToLower(l.Name)
			}
		}
		byKey[key] = l
	}
	out := make([]domain.Lead, 0, len(byKey))
	for _, l := range byKey {
		out = append(out, l)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Address.Formatted() < out[j].Address.Formatted()
	})
	return out
}

func toRecord(l domain.Lead) []string {
	return []string{
		l.Name,
		l.Address.Street,
		l.Address.City,
		l.Address.Province,
		l.Address.PostalCode,
		l.Phone,
		l.Website,
		string(l.Status),
	}
}

// columns maps header names to positions. Sheets written before the address
// was split carry only Name, Address, Phone and Website.
type columns map[string]int

func parseHeader(row []string) (columns, error) {
	cols := columns{}
	for i, h := range row {
		k := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")), " ", ""))
		if _, dup := cols[k]; !dup {
			cols[k] = i
		}
	}
	for _, required := range Header[:2] {
		if _, ok := cols[strings.ToLower(required)]; !ok {
			return nil, eris.Wrap(ErrMissingColumn, required)
		}
	}
	return cols, nil
}

func (c columns) get(row []string, name string) string {
	i, ok := c[name]
	if !ok || i >= len(row) {
		return ""
	}
	v := normalize.CleanText(row[i])
	if strings.EqualFold(v, "N/A") {
		return ""
	}
	return v
}

// toLead builds a lead from one data row. line is used for error reporting.
func (c columns) toLead(row []string, line int) (domain.Lead, *MalformedRowError) {
	name := c.get(row, "name")
	if name == "" {
		return domain.Lead{}, &MalformedRowError{Line: line, Reason: "empty name"}
	}
	l := domain.Lead{
		Name:   name,
		Status: domain.ParseLeadStatus(c.get(row, "status")),
	}
	if raw := c.get(row, "phone"); raw != "" {
		if p, err := normalize.NormalizePhone(raw); err == nil {
			l.Phone = p
		} else {
			l.FlagReview(domain.ReasonInvalidPhone)
		}
	}
	if raw := c.get(row, "website"); raw != "" {
		if u, err := resolve.Canonicalize(raw); err == nil {
			l.Website = u
		} else {
			l.FlagReview(domain.ReasonInvalidWebsite)
		}
	}

	street := c.get(row, "address")
	postal := c.get(row, "postalcode")
	city := c.get(row, "city")
	if street == "" && city == "" {
		return domain.Lead{}, &MalformedRowError{Line: line, Reason: "empty address"}
	}
	if city == "" {
		// one free-form address column
		l.RawAddress = street
		l.Address = normalize.NormalizeAddress(street, postal)
	} else {
		l.Address = domain.AddressParts{
			Street:     normalize.TitleCase(street),
			City:       city,
			Province:   strings.ToUpper(c.get(row, "province")),
			PostalCode: normalize.FormatPostalCode(postal),
		}
		if strings.EqualFold(city, normalize.UnknownCity) {
			l.Address.City = normalize.UnknownCity
			l.Address.NeedsReview = true
		}
		l.RawAddress = l.Address.Formatted()
	}
	return l, nil
}

func fromRows(rows [][]string) (Result, error) {
	if len(rows) == 0 {
		return Result{}, eris.Wrap(ErrMissingColumn, "empty sheet")
	}
	cols, err := parseHeader(rows[0])
	if err != nil {
		return Result{}, err
	}
	var res Result
	for i, row := range rows[1:] {
		if blank(row) {
			continue
		}
		l, bad := cols.toLead(row, i+2)
		if bad != nil {
			res.Rejected = append(res.Rejected, bad)
			continue
		}
		res.Leads = append(res.Leads, l)
	}
	return res, nil
}

func blank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
