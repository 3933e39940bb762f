package serp

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Engine describes how to query a search engine and where its result links
// live in the rendered page.
type Engine struct {
	Name    string
	BaseURL string
	// Selector matches result anchors. Fallbacks are tried in order only
	// when Selector matches nothing.
	Selector  string
	Fallbacks []string
	// Unwrap turns a redirect link into its target. Optional.
	Unwrap func(href string) string
}

// Built-in engines.
var (
	DuckDuckGo = Engine{
		Name:      "duckduckgo",
		BaseURL:   "https://duckduckgo.com/?q=",
		Selector:  `a[data-testid="result-title-a"]`,
		Fallbacks: []string{"h2 a"},
	}
	Startpage = Engine{
		Name:     "startpage",
		BaseURL:  "https://www.startpage.com/do/search?q=",
		Selector: "a.w-gl__result-title",
	}
	DuckDuckGoHTML = Engine{
		Name:     "duckduckgo-html",
		BaseURL:  "https://html.duckduckgo.com/html/?q=",
		Selector: "a.result__a",
		Unwrap:   unwrapParam("uddg"),
	}
)

// DefaultEngines is the order engines are tried in.
var DefaultEngines = []string{DuckDuckGo.Name, Startpage.Name}

var registry = map[string]Engine{
	DuckDuckGo.Name:     DuckDuckGo,
	Startpage.Name:      Startpage,
	DuckDuckGoHTML.Name: DuckDuckGoHTML,
}

// EngineByName returns a built-in engine.
func EngineByName(name string) (Engine, bool) {
	e, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	return e, ok
}

// ParseEngines resolves names in order. Empty input yields DefaultEngines.
func ParseEngines(names []string) ([]Engine, error) {
	if len(names) == 0 {
		names = DefaultEngines
	}
	engines := make([]Engine, 0, len(names))
	for _, n := range names {
		e, ok := EngineByName(n)
		if !ok {
			return nil, fmt.Errorf("serp: unknown engine %q", n)
		}
		engines = append(engines, e)
	}
	return engines, nil
}

// WithBase returns a copy of e pointed at another base URL, for mirrors and
// tests.
func (e Engine) WithBase(base string) Engine {
	e.BaseURL = base
	return e
}

// QueryURL builds the results URL for terms.
func (e Engine) QueryURL(terms string) string {
	return e.BaseURL + url.QueryEscape(terms)
}

// ExtractLinks returns up to limit result hrefs from html in page order.
// Relative links are resolved against the engine's base URL.
func ExtractLinks(html string, e Engine, limit int) ([]Domain, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("serp: parse %s results: %w", e.Name, err)
	}

	base, err := url.Parse(e.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("serp: parse base url: %w", err)
	}

	selectors := append([]string{e.Selector}, e.Fallbacks...)
	for _, sel := range selectors {
		if sel == "" {
			continue
		}
		links := collect(doc.Find(sel), base, e.Unwrap, limit)
		if len(links) > 0 {
			return links, nil
		}
	}
	return nil, nil
}

func collect(sel *goquery.Selection, base *url.URL, unwrap func(string) string, limit int) []Domain {
	var out []Domain
	sel.EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if limit > 0 && len(out) >= limit {
			return false
		}
		href, ok := s.Attr("href")
		href = strings.TrimSpace(href)
		if !ok || href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(strings.ToLower(href), "javascript:") {
			return true
		}
		if ref, err := url.Parse(href); err == nil {
			href = base.ResolveReference(ref).String()
		}
		if unwrap != nil {
			href = unwrap(href)
		}
		out = append(out, Domain{URL: href, Title: strings.TrimSpace(s.Text())})
		return true
	})
	return out
}

// unwrapParam extracts the target of a redirect link carried in a query
// parameter. Links without it are returned unchanged.
func unwrapParam(param string) func(string) string {
	return func(href string) string {
		u, err := url.Parse(href)
		if err != nil {
			return href
		}
		if target := u.Query().Get(param); target != "" {
			return target
		}
		return href
	}
}
