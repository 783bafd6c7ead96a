package normalize

import (
	"regexp"
	"strings"
)

const UnknownCity = "Unknown"

var postalRe = regexp.MustCompile(`(?i)\b([A-Z]\d[A-Z])\s?(\d[A-Z]\d)\b`)

// fsaCity maps a forward sortation area (first three postal characters) to
// the city or region it serves.
var fsaCity = map[string]string{
	"P0A": "Parry Sound",
	"P0B": "Muskoka",
	"P0C": "Mactier",
	"P0E": "Manitoulin",
	"P0G": "Parry Sound",
	"P0H": "Nipissing",
	"P0J": "Timiskaming",
	"P0K": "Cochrane",
	"P0L": "Hearst",
	"P0M": "Sudbury",
	"P0N": "Cochrane",
	"P0P": "Manitoulin",
	"P0R": "Algoma",
	"P0S": "Algoma",
	"P0T": "Nipigon",
	"P0V": "Red Lake",
	"P0W": "Rainy River",
	"P1A": "North Bay",
	"P1B": "North Bay",
	"P1C": "North Bay",
	"P1H": "Huntsville",
	"P2A": "Parry Sound",
	"P2B": "Sturgeon Falls",
	"P2N": "Kirkland Lake",
	"P3A": "Sudbury",
	"P3B": "Sudbury",
	"P3C": "Sudbury",
	"P3E": "Sudbury",
	"P3G": "Sudbury",
	"P3L": "Garson",
	"P3N": "Val Caron",
	"P3P": "Hanmer",
	"P3Y": "Lively",
	"P4N": "Timmins",
	"P4P": "Timmins",
	"P4R": "Timmins",
	"P5A": "Elliot Lake",
	"P5E": "Espanola",
	"P5N": "Kapuskasing",
	"P6A": "Sault Ste. Marie",
	"P6B": "Sault Ste. Marie",
	"P6C": "Sault Ste. Marie",
	"P7A": "Thunder Bay",
	"P7B": "Thunder Bay",
	"P7C": "Thunder Bay",
	"P7E": "Thunder Bay",
	"P8N": "Dryden",
	"P8T": "Sioux Lookout",
	"P9A": "Fort Frances",
	"P9N": "Kenora",
	"K0M": "Central Ontario",
}

// provinceByLetter is the first postal character's province.
var provinceByLetter = map[byte]string{
	'A': "NL", 'B': "NS", 'C': "PE", 'E': "NB",
	'G': "QC", 'H': "QC", 'J': "QC",
	'K': "ON", 'L': "ON", 'M': "ON", 'N': "ON", 'P': "ON",
	'R': "MB", 'S': "SK", 'T': "AB", 'V': "BC",
	'X': "NT", 'Y': "YT",
}

// LookupFSA returns the city for the postal code's prefix. Exact match only.
func LookupFSA(postalCode string) (string, bool) {
	pc := FormatPostalCode(postalCode)
	if len(pc) < 3 {
		return "", false
	}
	city, ok := fsaCity[pc[:3]]
	return city, ok
}

// FormatPostalCode returns "A1A 1A1" or "" when s is not a postal code.
func FormatPostalCode(s string) string {
	m := postalRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil || len(strings.TrimSpace(s)) > 7 {
		return ""
	}
	return strings.ToUpper(m[1]) + " " + strings.ToUpper(m[2])
}

func provinceForPostal(pc string) string {
	if pc == "" {
		return ""
	}
	return provinceByLetter[pc[0]]
}
