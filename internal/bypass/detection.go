// Package bypass recognises bot-protection challenges and block pages.
package bypass

import (
	"net/http"
	"strings"

	"github.com/FranksOps/sitehunt/internal/render"
)

// Detector examines a rendered page to determine if a bot protection
// mechanism blocked or challenged the request.
type Detector func(page *render.Page) (detected bool, source string)

// Verdict is the outcome of Analyze.
type Verdict struct {
	Blocked bool
	Source  string
}

// DefaultKeywords are the words whose presence anywhere on a result page
// marks it as a block or CAPTCHA page.
var DefaultKeywords = []string{"captcha", "sorry", "blocked", "unusual traffic"}

// DefaultDetectors returns the vendor detectors followed by the keyword
// detector.
func DefaultDetectors() []Detector {
	return []Detector{
		detectCloudflare,
		detectAkamai,
		detectDataDome,
		detectPerimeterX,
		KeywordDetector(DefaultKeywords...),
	}
}

// Analyze runs the page through detectors and reports the first hit.
func Analyze(page *render.Page, detectors []Detector) Verdict {
	if page == nil {
		return Verdict{}
	}
	for _, d := range detectors {
		if detected, source := d(page); detected {
			return Verdict{Blocked: true, Source: source}
		}
	}
	return Verdict{}
}

// KeywordDetector flags pages containing any of the words,
// case-insensitively, regardless of status code.
func KeywordDetector(words ...string) Detector {
	lowered := make([]string, 0, len(words))
	for _, w := range words {
		if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
			lowered = append(lowered, w)
		}
	}
	return func(page *render.Page) (bool, string) {
		body := strings.ToLower(page.HTML)
		for _, w := range lowered {
			if strings.Contains(body, w) {
				return true, "Keyword"
			}
		}
		return false, ""
	}
}

// detectCloudflare looks for common Cloudflare challenge/block signatures.
func detectCloudflare(page *render.Page) (bool, string) {
	if page.StatusCode != http.StatusForbidden && page.StatusCode != http.StatusServiceUnavailable {
		return false, ""
	}
	if strings.Contains(strings.ToLower(page.Headers.Get("Server")), "cloudflare") {
		return true, "Cloudflare"
	}
	if containsAny(page.HTML,
		"cf-browser-verification",
		"cloudflare-nginx",
		"cf-turnstile",
		"Attention Required! | Cloudflare",
	) {
		return true, "Cloudflare"
	}
	return false, ""
}

// detectAkamai looks for Akamai Bot Manager signatures.
func detectAkamai(page *render.Page) (bool, string) {
	if page.StatusCode != http.StatusForbidden {
		return false, ""
	}
	if strings.Contains(strings.ToLower(page.Headers.Get("Server")), "akamai") {
		return true, "Akamai"
	}
	// generic "Reference #" block page
	if strings.Contains(page.HTML, "Reference #") && strings.Contains(page.HTML, "Access Denied") {
		return true, "Akamai"
	}
	return false, ""
}

// detectDataDome looks for DataDome challenge/block signatures.
func detectDataDome(page *render.Page) (bool, string) {
	if page.StatusCode != http.StatusForbidden {
		return false, ""
	}
	if strings.Contains(strings.ToLower(page.Headers.Get("Server")), "datadome") {
		return true, "DataDome"
	}
	if page.Headers.Get("X-DataDome") != "" || page.Headers.Get("X-DataDome-Response") != "" {
		return true, "DataDome"
	}
	if containsAny(page.HTML, "geo.captcha-delivery.com", "datadome") {
		return true, "DataDome"
	}
	return false, ""
}

// detectPerimeterX looks for PerimeterX (HUMAN) signatures.
func detectPerimeterX(page *render.Page) (bool, string) {
	if page.StatusCode != http.StatusForbidden {
		return false, ""
	}
	if page.Headers.Get("X-Px-Captcha") != "" {
		return true, "PerimeterX"
	}
	if containsAny(page.HTML, "client.perimeterx.net", "px-captcha", "_pxBlock") {
		return true, "PerimeterX"
	}
	return false, ""
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
