package serp

import (
	"testing"
)

const ddgPage = `<html><body>
<article><h2><a data-testid="result-title-a" href="https://www.acme-widgets.com/about?ref=ddg">Acme Widgets</a></h2></article>
<article><h2><a data-testid="result-title-a" href="https://en.wikipedia.org/wiki/Acme">Acme - Wikipedia</a></h2></article>
<article><h2><a data-testid="result-title-a" href="/relative/path">Relative</a></h2></article>
<h2><a href="https://ignored.example.com">fallback only</a></h2>
</body></html>`

const ddgFallbackPage = `<html><body>
<h2><a href="#">skip anchor</a></h2>
<h2><a href="javascript:void(0)">skip script</a></h2>
<h2><a href="https://www.acme-widgets.com">Acme Widgets</a></h2>
</body></html>`

const startpagePage = `<html><body>
<div class="w-gl__result"><a class="w-gl__result-title" href="https://acme.io/">Acme</a></div>
<div class="w-gl__result"><a class="w-gl__result-title" href="https://linkedin.com/company/acme">Acme | LinkedIn</a></div>
</body></html>`

const ddgHTMLPage = `<html><body>
<a class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Facme.example%2Fhome&amp;rut=abc">Acme</a>
<a class="result__a" href="https://direct.example/">Direct</a>
</body></html>`

func TestExtractLinks_PrimarySelector(t *testing.T) {
	links, err := ExtractLinks(ddgPage, DuckDuckGo, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{
		"https://www.acme-widgets.com/about?ref=ddg",
		"https://en.wikipedia.org/wiki/Acme",
		"https://duckduckgo.com/relative/path",
	}
	if len(links) != len(want) {
		t.Fatalf("expected %d links, got %+v", len(want), links)
	}
	for i, w := range want {
		if links[i].URL != w {
			t.Errorf("link %d = %q, want %q", i, links[i].URL, w)
		}
	}
	if links[0].Title != "Acme Widgets" {
		t.Errorf("expected title, got %q", links[0].Title)
	}
}

func TestExtractLinks_Limit(t *testing.T) {
	links, _ := ExtractLinks(ddgPage, DuckDuckGo, 1)
	if len(links) != 1 {
		t.Fatalf("expected limit to cap results, got %d", len(links))
	}
}

func TestExtractLinks_Fallback(t *testing.T) {
	links, err := ExtractLinks(ddgFallbackPage, DuckDuckGo, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(links) != 1 || links[0].URL != "https://www.acme-widgets.com" {
		t.Errorf("expected fallback selector result, got %+v", links)
	}
}

func TestExtractLinks_Startpage(t *testing.T) {
	links, _ := ExtractLinks(startpagePage, Startpage, 5)
	if len(links) != 2 || links[0].URL != "https://acme.io/" {
		t.Errorf("unexpected startpage links %+v", links)
	}

	if links, _ := ExtractLinks(ddgPage, Startpage, 5); len(links) != 0 {
		t.Errorf("startpage selector should not match duckduckgo markup, got %+v", links)
	}
}

func TestExtractLinks_Unwrap(t *testing.T) {
	links, _ := ExtractLinks(ddgHTMLPage, DuckDuckGoHTML, 5)
	if len(links) != 2 {
		t.Fatalf("expected 2 links, got %+v", links)
	}
	if links[0].URL != "https://acme.example/home" {
		t.Errorf("expected uddg target, got %q", links[0].URL)
	}
	if links[1].URL != "https://direct.example/" {
		t.Errorf("expected direct link unchanged, got %q", links[1].URL)
	}
}

func TestQueryURL(t *testing.T) {
	got := DuckDuckGo.QueryURL("Acme & Sons Widgets")
	if got != "https://duckduckgo.com/?q=Acme+%26+Sons+Widgets" {
		t.Errorf("unexpected query url %q", got)
	}

	mirror := Startpage.WithBase("http://127.0.0.1:9999/search?q=")
	if mirror.QueryURL("a b") != "http://127.0.0.1:9999/search?q=a+b" {
		t.Errorf("unexpected mirror url %q", mirror.QueryURL("a b"))
	}
	if Startpage.BaseURL != "https://www.startpage.com/do/search?q=" {
		t.Error("WithBase must not modify the original engine")
	}
}

func TestParseEngines(t *testing.T) {
	engines, err := ParseEngines(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(engines) != 2 || engines[0].Name != "duckduckgo" || engines[1].Name != "startpage" {
		t.Errorf("unexpected default engines %+v", engines)
	}

	engines, err = ParseEngines([]string{"Startpage", "duckduckgo-html"})
	if err != nil || len(engines) != 2 || engines[0].Name != "startpage" {
		t.Errorf("unexpected parse result %+v, %v", engines, err)
	}

	if _, err := ParseEngines([]string{"altavista"}); err == nil {
		t.Error("expected error for unknown engine")
	}
}
