package render

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/FranksOps/sitehunt/internal/fingerprint"
	"github.com/FranksOps/sitehunt/pkg/httpclient"
)

type contextKey string

const proxyKey contextKey = "proxy_url"

// maxBody caps how much of a response is kept.
const maxBody = 8 << 20

// HTTPConfig configures the plain HTTP renderer.
type HTTPConfig struct {
	Timeout      time.Duration
	MaxRedirects int
	UseCookieJar bool
	Fingerprint  fingerprint.Profile
	// InsecureSkipVerify disables certificate checks. Only for tests.
	InsecureSkipVerify bool
}

// HTTP fetches pages without executing scripts. It suits server-rendered
// result pages and is much lighter than a browser.
type HTTP struct {
	client *httpclient.Client
	logger *slog.Logger
}

var _ Renderer = (*HTTP)(nil)

// NewHTTP builds the renderer. A single transport is shared across loads
// so connections and cookies are reused; the proxy is chosen per request.
func NewHTTP(cfg HTTPConfig, logger *slog.Logger) (*HTTP, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Fingerprint == "" {
		cfg.Fingerprint = fingerprint.ProfileChrome
	}
	if logger == nil {
		logger = slog.Default()
	}

	proxyFunc := func(req *http.Request) (*url.URL, error) {
		if u, ok := req.Context().Value(proxyKey).(*url.URL); ok && u != nil {
			return u, nil
		}
		return http.ProxyFromEnvironment(req)
	}

	transport, err := fingerprint.Transport(cfg.Fingerprint, fingerprint.Options{
		Proxy:              proxyFunc,
		InsecureSkipVerify: cfg.InsecureSkipVerify,
	})
	if err != nil {
		return nil, fmt.Errorf("render: transport: %w", err)
	}

	client, err := httpclient.New(httpclient.Config{
		Timeout:      cfg.Timeout,
		MaxRedirects: cfg.MaxRedirects,
		UseCookieJar: cfg.UseCookieJar,
		Transport:    transport,
		Headers: http.Header{
			"Accept":          {"text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"},
			"Accept-Language": {"en-US,en;q=0.5"},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("render: client: %w", err)
	}

	return &HTTP{client: client, logger: logger}, nil
}

// Render performs a GET. Non-2xx responses are returned as pages so block
// pages can be inspected; only transport failures are errors.
func (h *HTTP) Render(ctx context.Context, req Request) (*Page, error) {
	start := time.Now()

	if req.Proxy != nil {
		ctx = context.WithValue(ctx, proxyKey, req.Proxy)
	}

	header := http.Header{}
	if req.UserAgent != "" {
		header.Set("User-Agent", req.UserAgent)
	}

	resp, err := h.client.Get(ctx, req.URL, header)
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", req.URL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("render %s: read body: %w", req.URL, err)
	}

	h.logger.Debug("page fetched", "url", req.URL, "status", resp.StatusCode, "bytes", len(body))

	return &Page{
		URL:        req.URL,
		HTML:       string(body),
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Duration:   time.Since(start),
	}, nil
}
