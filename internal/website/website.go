package website

import (
	"net/url"
	"regexp"
	"strings"
)

// Sentinel values written into the website cell when no site could be found.
const (
	SearchFailed  = "Search failed after retries"
	RequestFailed = "Request failed"
)

// DefaultSearchWords is how many leading words of a company name are searched.
const DefaultSearchWords = 4

var validURL = regexp.MustCompile(`(?i)^(?:http|ftp)s?://` +
	`(?:(?:[A-Z0-9](?:[A-Z0-9-]{0,61}[A-Z0-9])?\.)+(?:[A-Z]{2,6}\.?|[A-Z0-9-]{2,}\.?)|` +
	`localhost|` +
	`\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}|` +
	`\[?[A-F0-9]*:[A-F0-9:]+\]?)` +
	`(?::\d+)?` +
	`(?:/?|[/?]\S+)$`)

// IsValidURL reports whether s is a well-formed http(s) or ftp(s) URL with a
// host name, localhost, or an IP literal.
func IsValidURL(s string) bool {
	return validURL.MatchString(s)
}

// Clean reduces a URL to its scheme and host, dropping userinfo, path,
// query and fragment. Input without a scheme and host is returned unchanged.
func Clean(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return cut(raw)
	}
	if u.Scheme == "" || u.Host == "" {
		return raw
	}
	return (&url.URL{Scheme: u.Scheme, Host: u.Host}).String()
}

// cut trims raw after its authority without decoding it, for URLs whose
// path or query holds escapes url.Parse rejects.
func cut(raw string) string {
	scheme, rest, ok := strings.Cut(raw, "://")
	if !ok || scheme == "" {
		return raw
	}
	if i := strings.IndexAny(rest, "/?#"); i >= 0 {
		rest = rest[:i]
	}
	if i := strings.LastIndex(rest, "@"); i >= 0 {
		rest = rest[i+1:]
	}
	if rest == "" {
		return raw
	}
	return scheme + "://" + rest
}

// SearchTerms returns at most maxWords whitespace separated tokens of name,
// joined by single spaces. maxWords <= 0 means DefaultSearchWords.
func SearchTerms(name string, maxWords int) string {
	if maxWords <= 0 {
		maxWords = DefaultSearchWords
	}
	words := strings.Fields(name)
	if len(words) > maxWords {
		words = words[:maxWords]
	}
	return strings.Join(words, " ")
}
