package normalize

import (
	"regexp"
	"strings"

	"northscrape-engine/internal/domain"
)

var (
	gluedProvinceRe = regexp.MustCompile(`(?i)\b(Ontario|ON)([A-Z]\d[A-Z])`)
	regionSuffixRe  = regexp.MustCompile(`(?i)\s+(district municipality|regional municipality|district|county|territory)$`)
	regionPrefixRe  = regexp.MustCompile(`(?i)^(regional municipality of|district municipality of|district of|county of|municipality of)\s+`)
	regionOnlyRe    = regexp.MustCompile(`(?i)^(district|regional municipality|district municipality|county|territory)$`)
	unitRe          = regexp.MustCompile(`(?i)^(unit|suite|ste\.?|apt\.?|#)\s*[0-9a-z-]+$`)
)

var provinces = map[string]string{
	"on": "ON", "ontario": "ON",
	"qc": "QC", "quebec": "QC", "québec": "QC",
	"mb": "MB", "manitoba": "MB",
	"sk": "SK", "saskatchewan": "SK",
	"ab": "AB", "alberta": "AB",
	"bc": "BC", "british columbia": "BC",
	"nb": "NB", "new brunswick": "NB",
	"ns": "NS", "nova scotia": "NS",
	"pe": "PE", "pei": "PE", "prince edward island": "PE",
	"nl": "NL", "newfoundland and labrador": "NL",
	"yt": "YT", "yukon": "YT",
	"nt": "NT", "northwest territories": "NT",
	"nu": "NU", "nunavut": "NU",
}

// NormalizeAddress splits a free-form directory address into canonical parts.
// postalCode, when non-empty, wins over any code embedded in raw. The result
// always has a city: when none can be read or inferred it is UnknownCity and
// NeedsReview is set. An ambiguous city that the postal prefix cannot settle
// is also flagged.
func NormalizeAddress(raw, postalCode string) domain.AddressParts {
	s := CleanText(raw)
	s = gluedProvinceRe.ReplaceAllString(s, "$1 $2")

	var out domain.AddressParts
	out.PostalCode = FormatPostalCode(postalCode)
	if m := postalRe.FindStringSubmatchIndex(s); m != nil {
		if out.PostalCode == "" {
			out.PostalCode = strings.ToUpper(s[m[2]:m[3]]) + " " + strings.ToUpper(s[m[4]:m[5]])
		}
		s = s[:m[0]] + s[m[1]:]
	}

	var parts []string
	seen := map[string]bool{}
	for _, p := range strings.Split(s, ",") {
		p = CleanText(p)
		if p == "" {
			continue
		}
		if prov, ok := provinces[strings.ToLower(p)]; ok {
			if out.Province == "" {
				out.Province = prov
			}
			continue
		}
		// "Sudbury ON" without a comma
		if i := strings.LastIndexByte(p, ' '); i > 0 {
			if prov, ok := provinces[strings.ToLower(p[i+1:])]; ok && len(p[i+1:]) == 2 {
				if out.Province == "" {
					out.Province = prov
				}
				p = p[:i]
			}
		}
		p = regionPrefixRe.ReplaceAllString(p, "")
		p = CleanText(regionSuffixRe.ReplaceAllString(p, ""))
		k := strings.ToLower(p)
		if p == "" || seen[k] || regionOnlyRe.MatchString(p) {
			continue
		}
		seen[k] = true
		parts = append(parts, p)
	}

	if len(parts) > 1 && unitRe.MatchString(parts[0]) {
		parts = append([]string{parts[1] + " " + parts[0]}, parts[2:]...)
	}
	if len(parts) > 1 || (len(parts) == 1 && strings.ContainsAny(parts[0], "0123456789")) {
		out.Street = TitleCase(parts[0])
		parts = parts[1:]
	}

	if out.Province == "" {
		out.Province = provinceForPostal(out.PostalCode)
	}

	inferred, known := LookupFSA(out.PostalCode)
	switch {
	case len(parts) == 1:
		out.City = TitleCase(parts[0])
	case len(parts) > 1 && known:
		out.City = inferred
		out.CityInferred = true
		for _, p := range parts {
			if strings.EqualFold(p, inferred) {
				out.City = TitleCase(p)
				out.CityInferred = false
				break
			}
		}
	case len(parts) > 1:
		// several candidates and no prefix to pick by: keep the first, flagged
		out.City = TitleCase(parts[0])
		out.NeedsReview = true
	case known:
		out.City = inferred
		out.CityInferred = true
	default:
		out.City = UnknownCity
		out.NeedsReview = true
	}
	return out
}
