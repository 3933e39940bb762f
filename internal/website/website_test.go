package website

import "testing"

func TestIsValidURL(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"https://acme.com", true},
		{"http://www.acme-industries.co.uk/about", true},
		{"HTTPS://ACME.COM/", true},
		{"https://acme.com:8443/path?q=1", true},
		{"http://localhost", true},
		{"http://127.0.0.1:8080/x", true},
		{"ftp://files.acme.com", true},
		{"acme.com", false},
		{"https://", false},
		{"https://acme", false},
		{"not a url", false},
		{"", false},
		{SearchFailed, false},
		{RequestFailed, false},
		{"https://acme.com/has space", false},
		{"mailto:info@acme.com", false},
	}

	for _, tt := range tests {
		if got := IsValidURL(tt.in); got != tt.want {
			t.Errorf("IsValidURL(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestClean(t *testing.T) {
	tests := map[string]string{
		"https://www.acme.com/products/widgets?ref=ddg#top": "https://www.acme.com",
		"http://acme.com":                  "http://acme.com",
		"https://acme.com:8443/a":          "https://acme.com:8443",
		"not a url":                        "not a url",
		"https://user:pw@acme.com/private": "https://acme.com",
		"https://acme.com/100%-natural":    "https://acme.com",
		"https://acme.com?q=%zz#frag":      "https://acme.com",
		"https://u@acme.com:81/%":          "https://acme.com:81",
	}
	for in, want := range tests {
		if got := Clean(in); got != want {
			t.Errorf("Clean(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSearchTerms(t *testing.T) {
	tests := []struct {
		name string
		max  int
		want string
	}{
		{"Acme", 4, "Acme"},
		{"  Acme   Industrial  Widgets  ", 4, "Acme Industrial Widgets"},
		{"Acme Industrial Widgets Holdings International GmbH", 4, "Acme Industrial Widgets Holdings"},
		{"One Two Three Four Five", 0, "One Two Three Four"},
		{"One Two Three", 2, "One Two"},
		{"", 4, ""},
		{"   ", 4, ""},
		{"Tab\tSeparated\nName", 4, "Tab Separated Name"},
	}
	for _, tt := range tests {
		if got := SearchTerms(tt.name, tt.max); got != tt.want {
			t.Errorf("SearchTerms(%q, %d) = %q, want %q", tt.name, tt.max, got, tt.want)
		}
	}
}

func TestIsGeneral(t *testing.T) {
	general := []string{
		"",
		"https://www.linkedin.com/company/acme",
		"https://en.WIKIPEDIA.org/wiki/Acme",
		"https://www.nasa.gov",
		"https://cs.stanford.edu/",
		"https://www.ox.ac.uk",
		"https://drive.google.com/file/d/1",
		"https://www.crunchbase.com/organization/acme",
	}
	for _, u := range general {
		if !IsGeneral(u) {
			t.Errorf("expected %q to be general", u)
		}
	}

	company := []string{
		"https://acme.com",
		"https://www.acme-widgets.de",
		"https://acme.io/contact",
	}
	for _, u := range company {
		if IsGeneral(u) {
			t.Errorf("expected %q not to be general", u)
		}
	}
}

func TestBlocklist_Extra(t *testing.T) {
	b := NewBlocklist(" Kompass.com ", "")
	frag, ok := b.Match("https://www.kompass.com/c/acme")
	if !ok || frag != "kompass.com" {
		t.Fatalf("expected kompass.com match, got %q %v", frag, ok)
	}
	if len(b.Fragments()) != len(DefaultBlocklist)+1 {
		t.Errorf("expected %d fragments, got %d", len(DefaultBlocklist)+1, len(b.Fragments()))
	}
	if _, ok := b.Match("https://acme.com"); ok {
		t.Errorf("did not expect acme.com to match")
	}
}
