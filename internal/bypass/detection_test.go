package bypass

import (
	"net/http"
	"testing"

	"github.com/FranksOps/sitehunt/internal/render"
)

func page(status int, headers http.Header, body string) *render.Page {
	if headers == nil {
		headers = http.Header{}
	}
	return &render.Page{StatusCode: status, Headers: headers, HTML: body}
}

func TestDetectCloudflare(t *testing.T) {
	if detected, _ := detectCloudflare(page(200, http.Header{"Server": {"nginx"}}, "OK")); detected {
		t.Errorf("expected not detected")
	}

	if detected, src := detectCloudflare(page(403, http.Header{"Server": {"cloudflare"}}, "Access Denied")); !detected || src != "Cloudflare" {
		t.Errorf("expected Cloudflare detection by header")
	}

	if detected, src := detectCloudflare(page(503, nil, "<html>... cf-turnstile ...</html>")); !detected || src != "Cloudflare" {
		t.Errorf("expected Cloudflare detection by body")
	}
}

func TestDetectAkamai(t *testing.T) {
	if detected, src := detectAkamai(page(403, http.Header{"Server": {"AkamaiGHost"}}, "")); !detected || src != "Akamai" {
		t.Errorf("expected Akamai detection by header")
	}
	if detected, src := detectAkamai(page(403, nil, "Access Denied... Reference #123.456")); !detected || src != "Akamai" {
		t.Errorf("expected Akamai detection by body")
	}
}

func TestDetectDataDome(t *testing.T) {
	if detected, src := detectDataDome(page(403, http.Header{"X-Datadome": {"1"}}, "")); !detected || src != "DataDome" {
		t.Errorf("expected DataDome detection by header")
	}
	if detected, src := detectDataDome(page(403, nil, "script src='https://geo.captcha-delivery.com/...'")); !detected || src != "DataDome" {
		t.Errorf("expected DataDome detection by body")
	}
}

func TestDetectPerimeterX(t *testing.T) {
	if detected, src := detectPerimeterX(page(403, http.Header{"X-Px-Captcha": {"required"}}, "")); !detected || src != "PerimeterX" {
		t.Errorf("expected PerimeterX detection by header")
	}
	if detected, src := detectPerimeterX(page(403, nil, "window._pxBlock = true;")); !detected || src != "PerimeterX" {
		t.Errorf("expected PerimeterX detection by body")
	}
}

func TestKeywordDetector(t *testing.T) {
	d := KeywordDetector(DefaultKeywords...)

	tests := []struct {
		name string
		body string
		want bool
	}{
		{"clean results", `<a href="https://acme.com">Acme Corp</a>`, false},
		{"captcha", `<div id="CAPTCHA-form">`, true},
		{"sorry page", `<h1>Sorry, something went wrong</h1>`, true},
		{"unusual traffic", `Our systems have detected Unusual Traffic`, true},
		{"blocked", `You have been blocked`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, src := d(page(200, nil, tt.body))
			if got != tt.want {
				t.Errorf("detected = %v, want %v", got, tt.want)
			}
			if got && src != "Keyword" {
				t.Errorf("expected source Keyword, got %q", src)
			}
		})
	}

	if detected, _ := KeywordDetector("", "  ")(page(200, nil, "anything")); detected {
		t.Error("blank keywords must never match")
	}
}

func TestAnalyze(t *testing.T) {
	detectors := DefaultDetectors()

	v := Analyze(page(403, http.Header{"X-Datadome": {"1"}}, "blocked"), detectors)
	if !v.Blocked || v.Source != "DataDome" {
		t.Errorf("expected vendor detector to win over keywords, got %+v", v)
	}

	v = Analyze(page(200, nil, "Please solve the captcha"), detectors)
	if !v.Blocked || v.Source != "Keyword" {
		t.Errorf("expected keyword detection, got %+v", v)
	}

	if v := Analyze(page(200, nil, "hello"), detectors); v.Blocked || v.Source != "" {
		t.Errorf("expected clean verdict, got %+v", v)
	}

	if v := Analyze(nil, detectors); v.Blocked {
		t.Errorf("nil page must not be blocked")
	}
}
