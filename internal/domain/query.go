package domain

import (
	"strings"

	"github.com/rotisserie/eris"
)

var ErrEmptyQuery = eris.New("query: category and at least one location are required")

// Query is immutable once a run has started with it.
type Query struct {
	Category  string   `json:"category" yaml:"category"`
	Locations []string `json:"locations" yaml:"locations"`
}

// Clean trims the category and drops blank or repeated locations, keeping order.
func (q Query) Clean() Query {
	out := Query{Category: strings.TrimSpace(q.Category)}
	seen := make(map[string]struct{}, len(q.Locations))
	for _, loc := range q.Locations {
		loc = strings.TrimSpace(loc)
		if loc == "" {
			continue
		}
		k := strings.ToLower(loc)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out.Locations = append(out.Locations, loc)
	}
	return out
}

func (q Query) Validate() error {
	c := q.Clean()
	if c.Category == "" || len(c.Locations) == 0 {
		return ErrEmptyQuery
	}
	return nil
}

func (q Query) String() string {
	return q.Category + " in " + strings.Join(q.Locations, "; ")
}
