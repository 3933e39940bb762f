package main

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/FranksOps/sitehunt/internal/config"
	"github.com/FranksOps/sitehunt/internal/export"
	"github.com/FranksOps/sitehunt/internal/fingerprint"
	"github.com/FranksOps/sitehunt/internal/pipeline"
	"github.com/FranksOps/sitehunt/internal/render"
	"github.com/FranksOps/sitehunt/internal/report"
	"github.com/FranksOps/sitehunt/internal/runner"
	"github.com/FranksOps/sitehunt/internal/serp"
	"github.com/FranksOps/sitehunt/internal/sheet"
	"github.com/FranksOps/sitehunt/internal/storage"
	"github.com/FranksOps/sitehunt/internal/storage/csvbackend"
	"github.com/FranksOps/sitehunt/internal/storage/jsonbackend"
	"github.com/FranksOps/sitehunt/internal/storage/postgres"
	"github.com/FranksOps/sitehunt/internal/storage/sqlite"
	"github.com/FranksOps/sitehunt/internal/website"
	"github.com/FranksOps/sitehunt/pkg/proxy"
	"github.com/FranksOps/sitehunt/pkg/ratelimit"
	"github.com/FranksOps/sitehunt/pkg/useragent"
)

func openStore(ctx context.Context, cfg config.StorageConfig) (storage.Backend, error) {
	switch cfg.Type {
	case "", "none":
		return storage.Discard{}, nil
	case "sqlite":
		return sqlite.New(cfg.DSN)
	case "postgres":
		return postgres.New(ctx, cfg.DSN)
	case "csv":
		return csvbackend.New(cfg.DSN)
	case "json":
		return jsonbackend.New(cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
	}
}

func newRenderer(cfg *config.Config, logger *slog.Logger) (render.Renderer, error) {
	if cfg.Search.Renderer == "http" {
		prof, err := fingerprint.ParseProfile(cfg.HTTP.Fingerprint)
		if err != nil {
			return nil, err
		}
		return render.NewHTTP(render.HTTPConfig{
			Timeout:      cfg.HTTP.Timeout,
			MaxRedirects: 10,
			UseCookieJar: true,
			Fingerprint:  prof,
		}, logger)
	}
	return render.NewChrome(render.ChromeConfig{
		ExecPath:          cfg.Chrome.ExecPath,
		Headful:           cfg.Chrome.Headful,
		NavigationTimeout: cfg.Chrome.NavigationTimeout,
		PageLoadMin:       cfg.Chrome.PageLoadMin,
		PageLoadMax:       cfg.Chrome.PageLoadMax,
		MouseChance:       cfg.Chrome.MouseChance,
		SettleMin:         cfg.Chrome.SettleMin,
		SettleMax:         cfg.Chrome.SettleMax,
	}, logger), nil
}

func newProviders(cfg *config.Config, r render.Renderer, logger *slog.Logger) ([]serp.SERPProvider, error) {
	engines, err := serp.ParseEngines(cfg.Search.Engines)
	if err != nil {
		return nil, err
	}

	agents := useragent.NewPool(nil)
	if cfg.Search.UserAgentsFile != "" {
		if agents, err = useragent.LoadFile(cfg.Search.UserAgentsFile); err != nil {
			return nil, err
		}
	}

	var proxies *proxy.Pool
	if len(cfg.Search.Proxies) > 0 || cfg.Search.ProxiesFile != "" {
		proxies = proxy.NewPool(proxy.Config{})
		if err := proxies.Add(cfg.Search.Proxies...); err != nil {
			return nil, err
		}
		if cfg.Search.ProxiesFile != "" {
			if err := proxies.LoadFile(cfg.Search.ProxiesFile); err != nil {
				return nil, err
			}
		}
		logger.Info("proxy rotation enabled", "proxies", proxies.Len())
	}

	providers := make([]serp.SERPProvider, 0, len(engines))
	for _, e := range engines {
		// the JavaScript results page needs a browser
		if cfg.Search.Renderer == "http" && e.Name == serp.DuckDuckGo.Name {
			e = serp.DuckDuckGoHTML
		}
		providers = append(providers, serp.NewBrowserSearch(e, r, serp.BrowserConfig{
			Agents:  agents,
			Proxies: proxies,
			Logger:  logger,
		}))
	}
	return providers, nil
}

func layoutOf(cfg *config.Config) sheet.Layout {
	return sheet.Layout{
		Sheet:         cfg.Workbook.Sheet,
		NameColumn:    cfg.Workbook.NameColumn,
		WebsiteColumn: cfg.Workbook.WebsiteColumn,
		FirstRow:      cfg.Workbook.FirstRow,
	}
}

// newRunner wires the full lookup stack. The caller closes the returned
// history store.
func newRunner(ctx context.Context, cfg *config.Config, logger *slog.Logger, onProgress func(runner.Progress)) (*runner.Runner, storage.Backend, error) {
	r, err := newRenderer(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	providers, err := newProviders(cfg, r, logger)
	if err != nil {
		return nil, nil, err
	}
	store, err := openStore(ctx, cfg.Storage)
	if err != nil {
		return nil, nil, fmt.Errorf("open history store: %w", err)
	}

	p := pipeline.New(pipeline.Config{
		Providers:     providers,
		Blocklist:     website.NewBlocklist(cfg.Search.Blocklist...),
		MaxCandidates: cfg.Search.MaxCandidates,
		SearchWords:   cfg.Search.SearchWords,
		Logger:        logger,
	})

	return runner.New(runner.Config{
		Layout:       layoutOf(cfg),
		MaxCompanies: cfg.Workbook.MaxCompanies,
		SaveEvery:    cfg.Workbook.SaveEvery,
		RowDelay:     ratelimit.NewPacer(cfg.Search.RowDelayMin, cfg.Search.RowDelayMax),
		Looker:       p,
		Store:        store,
		Logger:       logger,
		OnProgress:   onProgress,
	}), store, nil
}

// exportRun uploads the workbook and a JSON summary of the run when an
// export bucket is configured. Failures are logged, never fatal.
func exportRun(ctx context.Context, cfg *config.Config, store storage.Backend, sum runner.Summary, logger *slog.Logger) {
	if cfg.Export.Bucket == "" || sum.RunID == "" {
		return
	}
	exp, err := export.New(ctx, export.Options{
		Bucket:   cfg.Export.Bucket,
		Region:   cfg.Export.Region,
		Prefix:   cfg.Export.Prefix,
		Endpoint: cfg.Export.Endpoint,
	})
	if err != nil {
		logger.Error("export disabled", "error", err)
		return
	}

	key, err := exp.UploadWorkbook(ctx, sum.RunID, sum.Workbook)
	if err != nil {
		logger.Error("workbook upload failed", "error", err)
		return
	}
	logger.Info("workbook uploaded", "bucket", cfg.Export.Bucket, "key", key)

	recs, err := store.Query(ctx, storage.Filter{RunID: sum.RunID})
	if err != nil || len(recs) == 0 {
		return
	}
	var buf bytes.Buffer
	if err := report.WriteJSON(&buf, report.GenerateSummary(recs)); err != nil {
		logger.Error("summary encoding failed", "error", err)
		return
	}
	if key, err := exp.Upload(ctx, sum.RunID, "summary.json", "application/json", buf.Bytes()); err != nil {
		logger.Error("summary upload failed", "error", err)
	} else {
		logger.Info("summary uploaded", "key", key)
	}
}
