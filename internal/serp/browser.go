package serp

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/FranksOps/sitehunt/internal/bypass"
	"github.com/FranksOps/sitehunt/internal/metrics"
	"github.com/FranksOps/sitehunt/internal/render"
	"github.com/FranksOps/sitehunt/pkg/proxy"
	"github.com/FranksOps/sitehunt/pkg/useragent"
)

// BrowserConfig wires optional collaborators into a BrowserSearch.
type BrowserConfig struct {
	Agents    *useragent.Pool
	Proxies   *proxy.Pool
	Detectors []bypass.Detector
	Logger    *slog.Logger
}

// BrowserSearch queries one engine by rendering its results page.
type BrowserSearch struct {
	engine    Engine
	renderer  render.Renderer
	agents    *useragent.Pool
	proxies   *proxy.Pool
	detectors []bypass.Detector
	logger    *slog.Logger
}

var (
	_ SERPProvider = (*BrowserSearch)(nil)
	_ Named        = (*BrowserSearch)(nil)
)

// NewBrowserSearch creates a provider for engine. Nil collaborators get
// defaults: the built-in user agents, no proxy and the default detectors.
func NewBrowserSearch(engine Engine, r render.Renderer, cfg BrowserConfig) *BrowserSearch {
	if cfg.Agents == nil {
		cfg.Agents = useragent.NewPool(nil)
	}
	if cfg.Detectors == nil {
		cfg.Detectors = bypass.DefaultDetectors()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &BrowserSearch{
		engine:    engine,
		renderer:  r,
		agents:    cfg.Agents,
		proxies:   cfg.Proxies,
		detectors: cfg.Detectors,
		logger:    cfg.Logger.With("engine", engine.Name),
	}
}

// Name returns the engine name.
func (b *BrowserSearch) Name() string { return b.engine.Name }

// Search renders the results page for query with a random user agent and
// the next healthy proxy. A challenge page yields a *BlockedError.
func (b *BrowserSearch) Search(ctx context.Context, query string, limit int) ([]Domain, error) {
	if limit < 0 {
		return nil, fmt.Errorf("limit cannot be negative: %d", limit)
	}

	start := time.Now()
	target := b.engine.QueryURL(query)
	prx := b.proxies.Next()

	b.logger.Debug("searching", "url", target, "proxy", proxy.ServerFlag(prx))

	page, err := b.renderer.Render(ctx, render.Request{
		URL:       target,
		UserAgent: b.agents.Random(),
		Proxy:     prx,
	})
	if err != nil {
		b.markProxy(prx, false)
		metrics.RecordSearch(b.engine.Name, metrics.OutcomeError, time.Since(start))
		return nil, fmt.Errorf("%s: %w", b.engine.Name, err)
	}

	if v := bypass.Analyze(page, b.detectors); v.Blocked {
		b.markProxy(prx, false)
		metrics.RecordSearch(b.engine.Name, metrics.OutcomeBlocked, time.Since(start))
		metrics.RecordBlock(b.engine.Name, v.Source)
		return nil, &BlockedError{Engine: b.engine.Name, Source: v.Source}
	}
	b.markProxy(prx, true)

	links, err := ExtractLinks(page.HTML, b.engine, limit)
	if err != nil {
		metrics.RecordSearch(b.engine.Name, metrics.OutcomeError, time.Since(start))
		return nil, err
	}

	outcome := metrics.OutcomeOK
	if len(links) == 0 {
		outcome = metrics.OutcomeEmpty
	}
	metrics.RecordSearch(b.engine.Name, outcome, time.Since(start))
	b.logger.Debug("results extracted", "count", len(links), "status", page.StatusCode)

	return links, nil
}

func (b *BrowserSearch) markProxy(u *url.URL, ok bool) {
	if u == nil {
		return
	}
	if ok {
		_ = b.proxies.MarkSuccess(u)
		return
	}
	_ = b.proxies.MarkFailure(u)
	metrics.ProxyFailures.WithLabelValues(proxy.ServerFlag(u)).Inc()
}
