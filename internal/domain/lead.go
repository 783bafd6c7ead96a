package domain

import "time"

// Source names the adapter that supplied a field.
type Source string

const (
	SourceNone      Source = ""
	SourceDirectory Source = "directory"
	SourceSearch    Source = "search"
	SourceImport    Source = "import"
)

type LeadStatus string

const (
	LeadPending   LeadStatus = "Pending"
	LeadEnriching LeadStatus = "Enriching"
	LeadEnriched  LeadStatus = "Enriched"
	LeadFailed    LeadStatus = "Failed"
	LeadSkipped   LeadStatus = "Skipped"
)

// Terminal reports whether no further enrichment happens for a lead in this status.
func (s LeadStatus) Terminal() bool {
	return s == LeadEnriched || s == LeadFailed || s == LeadSkipped
}

// ParseLeadStatus maps an exported status column back to a LeadStatus.
// Unknown or blank values come back as Pending.
func ParseLeadStatus(s string) LeadStatus {
	switch LeadStatus(s) {
	case LeadEnriching, LeadEnriched, LeadFailed, LeadSkipped:
		return LeadStatus(s)
	}
	return LeadPending
}

type AddressParts struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	Province   string `json:"province"`
	PostalCode string `json:"postal_code"`

	CityInferred bool `json:"city_inferred,omitempty"` // filled from the postal prefix table
	NeedsReview  bool `json:"needs_review,omitempty"`  // city could not be determined
}

// Formatted renders the parts as a single mailing line.
func (a AddressParts) Formatted() string {
	out := a.Street
	if a.City != "" {
		if out != "" {
			out += ", "
		}
		out += a.City
	}
	tail := a.Province
	if a.PostalCode != "" {
		if tail != "" {
			tail += " "
		}
		tail += a.PostalCode
	}
	if tail != "" {
		if out != "" {
			out += ", "
		}
		out += tail
	}
	return out
}

type Provenance struct {
	Name    Source `json:"name,omitempty"`
	Address Source `json:"address,omitempty"`
	Phone   Source `json:"phone,omitempty"`
	Website Source `json:"website,omitempty"`
}

// Lead is one business record within a run. Key is assigned once at insertion.
type Lead struct {
	Key        string       `json:"key"`
	Name       string       `json:"name"`
	RawAddress string       `json:"raw_address"`
	Address    AddressParts `json:"address"`
	Phone      string       `json:"phone,omitempty"`   // "(XXX) XXX-XXXX" or empty
	Website    string       `json:"website,omitempty"` // canonical URL or empty
	Provenance Provenance   `json:"provenance"`
	Status     LeadStatus   `json:"status"`

	NeedsReview   bool     `json:"needs_review,omitempty"`
	ReviewReasons []string `json:"review_reasons,omitempty"`
	FailureReason string   `json:"failure_reason,omitempty"`

	Category     string    `json:"category,omitempty"`
	Location     string    `json:"location,omitempty"`
	DiscoveredAt time.Time `json:"discovered_at"`
}

// Review reasons for contact values that could not be canonicalised and were
// dropped.
const (
	ReasonInvalidPhone   = "invalid phone"
	ReasonInvalidWebsite = "invalid website"
)

// FlagReview marks the lead for manual review, recording reason once.
func (l *Lead) FlagReview(reason string) {
	l.NeedsReview = true
	for _, r := range l.ReviewReasons {
		if r == reason {
			return
		}
	}
	l.ReviewReasons = append(l.ReviewReasons, reason)
}

// Clone returns a copy that shares no slices with l.
func (l Lead) Clone() Lead {
	if l.ReviewReasons != nil {
		l.ReviewReasons = append([]string(nil), l.ReviewReasons...)
	}
	return l
}

// RawLead is a candidate exactly as a source adapter scraped it.
type RawLead struct {
	Name       string
	Address    string
	PostalCode string
	Phone      string
	Website    string
	Category   string
	Location   string
	Page       int
	Source     Source
}

// EnrichmentCandidate is contact data offered by one source for one lead.
type EnrichmentCandidate struct {
	Phone   string
	Website string
	Source  Source
}
