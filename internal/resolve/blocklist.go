package resolve

import "strings"

// DefaultBlocklist holds aggregator, directory and social domains. A URL on
// one of these is a listing about the business, not the business's own site.
var DefaultBlocklist = []string{
	"yellowpages.ca",
	"yellowpages.com",
	"yp.ca",
	"411.ca",
	"canada411.ca",
	"yelp.ca",
	"yelp.com",
	"canpages.ca",
	"cylex.ca",
	"hotfrog.ca",
	"n49.com",
	"profilecanada.com",
	"bbb.org",
	"mapquest.com",
	"foursquare.com",
	"tripadvisor.ca",
	"tripadvisor.com",
	"facebook.com",
	"instagram.com",
	"linkedin.com",
	"twitter.com",
	"x.com",
	"google.com",
	"google.ca",
	"duckduckgo.com",
	"bing.com",
	"wikipedia.org",
}

type Blocklist []string

// Blocked reports whether host equals or is a subdomain of a listed domain.
func (b Blocklist) Blocked(host string) bool {
	host = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(host)), ".")
	host = strings.TrimPrefix(host, "www.")
	if host == "" {
		return false
	}
	for _, d := range b {
		d = strings.ToLower(d)
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

// BlockedURL is Blocked applied to the host of raw.
func (b Blocklist) BlockedURL(raw string) bool {
	return b.Blocked(HostOf(raw))
}
