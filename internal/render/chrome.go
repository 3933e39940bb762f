package render

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/FranksOps/sitehunt/pkg/proxy"
	"github.com/FranksOps/sitehunt/pkg/ratelimit"
)

// ChromeConfig tunes the headless browser.
type ChromeConfig struct {
	// ExecPath points at a Chrome/Chromium binary. Empty uses the default
	// lookup.
	ExecPath string
	// Headful shows the browser window.
	Headful bool
	// NavigationTimeout bounds a whole page load including pauses.
	NavigationTimeout time.Duration
	// PageLoadMin and PageLoadMax bound the pause after navigation.
	PageLoadMin time.Duration
	PageLoadMax time.Duration
	// MouseChance is the probability of a small mouse movement after load.
	MouseChance float64
	// SettleMin and SettleMax bound the pause after a mouse movement.
	SettleMin time.Duration
	SettleMax time.Duration
}

// DefaultChromeConfig returns human-paced defaults.
func DefaultChromeConfig() ChromeConfig {
	return ChromeConfig{
		NavigationTimeout: 60 * time.Second,
		PageLoadMin:       5 * time.Second,
		PageLoadMax:       8 * time.Second,
		MouseChance:       0.3,
		SettleMin:         time.Second,
		SettleMax:         2 * time.Second,
	}
}

// Chrome renders pages with a fresh headless Chrome per load so no cookies
// or fingerprints leak between searches.
type Chrome struct {
	cfg      ChromeConfig
	pageLoad *ratelimit.Pacer
	settle   *ratelimit.Pacer
	logger   *slog.Logger
}

var _ Renderer = (*Chrome)(nil)

// NewChrome creates a Chrome renderer.
func NewChrome(cfg ChromeConfig, logger *slog.Logger) *Chrome {
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = DefaultChromeConfig().NavigationTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Chrome{
		cfg:      cfg,
		pageLoad: ratelimit.NewPacer(cfg.PageLoadMin, cfg.PageLoadMax),
		settle:   ratelimit.NewPacer(cfg.SettleMin, cfg.SettleMax),
		logger:   logger,
	}
}

func (c *Chrome) allocatorOptions(req Request) []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", !c.cfg.Headful),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-infobars", true),
	)
	if req.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(req.UserAgent))
	}
	if req.Proxy != nil {
		opts = append(opts, chromedp.Flag("proxy-server", proxy.ServerFlag(req.Proxy)))
	}
	if c.cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(c.cfg.ExecPath))
	}
	return opts
}

// Render launches a browser, navigates to req.URL, idles like a reader and
// returns the document's outer HTML.
func (c *Chrome) Render(ctx context.Context, req Request) (*Page, error) {
	start := time.Now()

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, c.allocatorOptions(req)...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	runCtx, cancel := context.WithTimeout(browserCtx, c.cfg.NavigationTimeout)
	defer cancel()

	doc := &documentResponse{}
	chromedp.ListenTarget(runCtx, func(ev any) {
		if e, ok := ev.(*network.EventResponseReceived); ok && e.Type == network.ResourceTypeDocument {
			doc.record(e.Response)
		}
	})

	var html string
	err := chromedp.Run(runCtx,
		network.Enable(),
		chromedp.Navigate(req.URL),
		chromedp.ActionFunc(func(ctx context.Context) error {
			return c.pageLoad.Wait(ctx)
		}),
		chromedp.ActionFunc(c.wiggle),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", req.URL, err)
	}

	status, headers := doc.result()
	c.logger.Debug("page rendered", "url", req.URL, "status", status, "bytes", len(html))

	return &Page{
		URL:        req.URL,
		HTML:       html,
		StatusCode: status,
		Headers:    headers,
		Duration:   time.Since(start),
	}, nil
}

// wiggle sometimes nudges the pointer by a small offset and pauses.
func (c *Chrome) wiggle(ctx context.Context) error {
	if !ratelimit.Chance(c.cfg.MouseChance) {
		return nil
	}
	x := float64(ratelimit.IntBetween(10, 50))
	y := float64(ratelimit.IntBetween(10, 50))
	if err := chromedp.MouseEvent(input.MouseMoved, x, y).Do(ctx); err != nil {
		c.logger.Debug("mouse move failed", "error", err)
		return nil
	}
	return c.settle.Wait(ctx)
}

// documentResponse keeps the last main-frame document response; redirects
// overwrite earlier hops.
type documentResponse struct {
	mu      sync.Mutex
	status  int
	headers http.Header
}

func (d *documentResponse) record(resp *network.Response) {
	if resp == nil {
		return
	}
	h := make(http.Header, len(resp.Headers))
	for k, v := range resp.Headers {
		h.Set(k, fmt.Sprint(v))
	}
	d.mu.Lock()
	d.status = int(resp.Status)
	d.headers = h
	d.mu.Unlock()
}

func (d *documentResponse) result() (int, http.Header) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.status, d.headers
}
