package website

import "strings"

// DefaultBlocklist holds URL fragments of sites that are never a company's
// own website: social networks, directories, reference and news sites.
var DefaultBlocklist = []string{
	// social
	"facebook.com", "twitter.com", "linkedin.com", "instagram.com",
	"youtube.com", "tiktok.com", "snapchat.com", "pinterest.com",

	// reference
	"wikipedia.org", "wikimedia.org", "wikidata.org",

	// directories and search engines
	"yellowpages.com", "yelp.com", "foursquare.com", "google.com",
	"bing.com", "yahoo.com", "duckduckgo.com", "startpage.com",

	// news
	"cnn.com", "bbc.com", "reuters.com", "bloomberg.com", "forbes.com",
	"wsj.com", "nytimes.com", "washingtonpost.com",

	// marketplaces and job boards
	"amazon.com", "ebay.com", "alibaba.com", "etsy.com",
	"craigslist.org", "gumtree.com", "indeed.com", "glassdoor.com",

	// file sharing
	"dropbox.com", "drive.google.com", "onedrive.com", "box.com",

	// forums
	"reddit.com", "quora.com", "stackoverflow.com", "stackexchange.com",

	// government and education
	".gov", ".edu", ".ac.uk", ".edu.au",

	// business profiles and press wires
	"crunchbase.com", "owler.com", "zoominfo.com", "dnb.com",
	"manta.com", "spoke.com", "businesswire.com", "prnewswire.com",
}

// Blocklist flags general-purpose websites by case-insensitive substring
// match against the URL.
type Blocklist struct {
	fragments []string
}

// NewBlocklist builds a blocklist from DefaultBlocklist plus extra fragments.
// Blank extras are ignored.
func NewBlocklist(extra ...string) *Blocklist {
	frags := make([]string, 0, len(DefaultBlocklist)+len(extra))
	frags = append(frags, DefaultBlocklist...)
	for _, e := range extra {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" {
			frags = append(frags, e)
		}
	}
	return &Blocklist{fragments: frags}
}

// Match returns the first fragment contained in rawURL. An empty URL is
// treated as general and matches with an empty fragment.
func (b *Blocklist) Match(rawURL string) (string, bool) {
	if rawURL == "" {
		return "", true
	}
	lower := strings.ToLower(rawURL)
	for _, f := range b.fragments {
		if strings.Contains(lower, f) {
			return f, true
		}
	}
	return "", false
}

// Fragments returns a copy of the configured fragments.
func (b *Blocklist) Fragments() []string {
	out := make([]string, len(b.fragments))
	copy(out, b.fragments)
	return out
}

var defaultBlocklist = NewBlocklist()

// IsGeneral reports whether rawURL belongs to a general website according to
// DefaultBlocklist.
func IsGeneral(rawURL string) bool {
	_, ok := defaultBlocklist.Match(rawURL)
	return ok
}
