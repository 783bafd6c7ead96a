package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"northscrape-engine/internal/domain"
)

func TestNormalizeAddress(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		postal string
		want   domain.AddressParts
	}{
		{
			name: "full directory line",
			raw:  "123 main st, Sudbury, ON P3A 1B2",
			want: domain.AddressParts{Street: "123 Main St", City: "Sudbury", Province: "ON", PostalCode: "P3A 1B2"},
		},
		{
			name: "province glued to postal code",
			raw:  "45 Elm Ave, Timmins, ONP4N7C5",
			want: domain.AddressParts{Street: "45 Elm Ave", City: "Timmins", Province: "ON", PostalCode: "P4N 7C5"},
		},
		{
			name: "district suffix and duplicate parts",
			raw:  "9 Lake Rd, Sudbury District, sudbury, Ontario, P3E 2B2",
			want: domain.AddressParts{Street: "9 Lake Rd", City: "Sudbury", Province: "ON", PostalCode: "P3E 2B2"},
		},
		{
			name: "regional municipality prefix",
			raw:  "200 Brady St, Regional Municipality of Sudbury, ON",
			want: domain.AddressParts{Street: "200 Brady St", City: "Sudbury", Province: "ON"},
		},
		{
			name: "city inferred from postal prefix",
			raw:  "77 Algonquin Blvd E, ON P4N 1A1",
			want: domain.AddressParts{Street: "77 Algonquin Blvd E", City: "Timmins", Province: "ON", PostalCode: "P4N 1A1", CityInferred: true},
		},
		{
			name:   "separate postal code argument",
			raw:    "5 Queen St E",
			postal: "p6a1y3",
			want:   domain.AddressParts{Street: "5 Queen St E", City: "Sault Ste. Marie", Province: "ON", PostalCode: "P6A 1Y3", CityInferred: true},
		},
		{
			name: "ambiguous city resolved by postal prefix",
			raw:  "12 Front St, Greater Sudbury, Walden, ON P3A 4C4",
			want: domain.AddressParts{Street: "12 Front St", City: "Sudbury", Province: "ON", PostalCode: "P3A 4C4", CityInferred: true},
		},
		{
			name: "unit joined onto street",
			raw:  "Unit 4, 100 Main St W, North Bay, ON P1B 2T6",
			want: domain.AddressParts{Street: "100 Main St W Unit 4", City: "North Bay", Province: "ON", PostalCode: "P1B 2T6"},
		},
		{
			name: "unknown prefix is flagged",
			raw:  "1 King St, ON M5H 1A1",
			want: domain.AddressParts{Street: "1 King St", City: UnknownCity, Province: "ON", PostalCode: "M5H 1A1", NeedsReview: true},
		},
		{
			name: "ambiguous city with unknown prefix keeps the first part",
			raw:  "55 Lorne St, Lively, Greater Sudbury, ON P9Z 1A1",
			want: domain.AddressParts{Street: "55 Lorne St", City: "Lively", Province: "ON", PostalCode: "P9Z 1A1", NeedsReview: true},
		},
		{
			name: "nothing usable",
			raw:  "",
			want: domain.AddressParts{City: UnknownCity, NeedsReview: true},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeAddress(tt.raw, tt.postal))
		})
	}
}

func TestNormalizeAddress_Deterministic(t *testing.T) {
	raw := "Unit 4, 100 MAIN ST W, north bay, on p1b2t6"
	first := NormalizeAddress(raw, "")
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, NormalizeAddress(raw, ""))
	}
}

func TestNormalizeAddress_StableOnFormattedOutput(t *testing.T) {
	a := NormalizeAddress("45 Elm Ave, Timmins, ONP4N7C5", "")
	b := NormalizeAddress(a.Formatted(), "")
	assert.Equal(t, a, b)
}

func TestLookupFSA(t *testing.T) {
	city, ok := LookupFSA("P7B 5E1")
	assert.True(t, ok)
	assert.Equal(t, "Thunder Bay", city)

	city, ok = LookupFSA("k0m1a0")
	assert.True(t, ok)
	assert.Equal(t, "Central Ontario", city)

	_, ok = LookupFSA("M5H 1A1")
	assert.False(t, ok)

	_, ok = LookupFSA("not a code")
	assert.False(t, ok)
}

func TestFormatPostalCode(t *testing.T) {
	assert.Equal(t, "P3A 1B2", FormatPostalCode("p3a1b2"))
	assert.Equal(t, "P3A 1B2", FormatPostalCode(" P3A 1B2 "))
	assert.Equal(t, "", FormatPostalCode("12345"))
	assert.Equal(t, "", FormatPostalCode("ON P3A 1B2"))
}
