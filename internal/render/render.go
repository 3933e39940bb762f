// Package render loads a page and returns its final HTML.
package render

import (
	"context"
	"net/http"
	"net/url"
	"time"
)

// Request describes a single page load.
type Request struct {
	URL       string
	UserAgent string
	// Proxy routes the load through a proxy when set.
	Proxy *url.URL
}

// Page is the outcome of a page load. StatusCode and Headers describe the
// main document response and may be zero when the renderer could not
// observe them.
type Page struct {
	URL        string
	HTML       string
	StatusCode int
	Headers    http.Header
	Duration   time.Duration
}

// Renderer loads pages.
type Renderer interface {
	Render(ctx context.Context, req Request) (*Page, error)
}

// RendererFunc adapts a plain function to Renderer.
type RendererFunc func(ctx context.Context, req Request) (*Page, error)

// Render calls f.
func (f RendererFunc) Render(ctx context.Context, req Request) (*Page, error) {
	return f(ctx, req)
}
