// Package pipeline turns a company name into its website by trying search
// engines in order and filtering their results.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/FranksOps/sitehunt/internal/metrics"
	"github.com/FranksOps/sitehunt/internal/serp"
	"github.com/FranksOps/sitehunt/internal/website"
)

// DefaultMaxCandidates is how many results per engine are considered.
const DefaultMaxCandidates = 5

// Attempt records what one engine returned for a lookup.
type Attempt struct {
	Engine   string        `json:"engine"`
	Links    int           `json:"links"`
	Chosen   string        `json:"chosen,omitempty"`
	Blocked  string        `json:"blocked,omitempty"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Result is the outcome of a lookup. Website is always set: either a
// cleaned URL or one of the website sentinels.
type Result struct {
	Company   string
	Query     string
	Website   string
	Engine    string
	Found     bool
	Canceled  bool
	Attempts  []Attempt
	BlockedBy []string
	Duration  time.Duration
}

// Config wires a Pipeline.
type Config struct {
	// Providers are tried in order until one yields an acceptable link.
	Providers     []serp.SERPProvider
	Blocklist     *website.Blocklist
	MaxCandidates int
	SearchWords   int
	Logger        *slog.Logger
}

// Pipeline performs lookups. It holds no per-lookup state and may be
// reused for every row of a run.
type Pipeline struct {
	providers     []serp.SERPProvider
	blocklist     *website.Blocklist
	maxCandidates int
	searchWords   int
	logger        *slog.Logger
}

// New creates a pipeline with defaults for zero config values.
func New(cfg Config) *Pipeline {
	if cfg.Blocklist == nil {
		cfg.Blocklist = website.NewBlocklist()
	}
	if cfg.MaxCandidates <= 0 {
		cfg.MaxCandidates = DefaultMaxCandidates
	}
	if cfg.SearchWords <= 0 {
		cfg.SearchWords = website.DefaultSearchWords
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Pipeline{
		providers:     cfg.Providers,
		blocklist:     cfg.Blocklist,
		maxCandidates: cfg.MaxCandidates,
		searchWords:   cfg.SearchWords,
		logger:        cfg.Logger,
	}
}

// Lookup searches for company's website. It never returns an error: every
// failure is folded into the result's sentinel value.
func (p *Pipeline) Lookup(ctx context.Context, company string) (res Result) {
	start := time.Now()
	res = Result{Company: company, Website: website.SearchFailed}

	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("lookup panicked", "company", company, "panic", fmt.Sprint(r))
			res.Website = website.RequestFailed
			res.Found = false
		}
		res.Duration = time.Since(start)
		if !res.Canceled {
			metrics.RecordLookup(lookupOutcome(res), res.Duration)
		}
	}()

	res.Query = website.SearchTerms(company, p.searchWords)
	if res.Query == "" {
		p.logger.Warn("empty search terms", "company", company)
		res.Website = website.RequestFailed
		return res
	}

	for _, prov := range p.providers {
		if err := ctx.Err(); err != nil {
			res.Canceled = true
			return res
		}

		att, chosen := p.try(ctx, prov, res.Query)
		res.Attempts = append(res.Attempts, att)
		if att.Blocked != "" {
			res.BlockedBy = append(res.BlockedBy, att.Engine)
		}
		if chosen != "" {
			res.Website = chosen
			res.Engine = att.Engine
			res.Found = true
			p.logger.Info("website found", "company", company, "engine", att.Engine, "website", chosen)
			return res
		}
	}

	if ctx.Err() != nil {
		res.Canceled = true
		return res
	}
	p.logger.Info("no website found", "company", company, "engines", len(res.Attempts))
	return res
}

func (p *Pipeline) try(ctx context.Context, prov serp.SERPProvider, query string) (Attempt, string) {
	start := time.Now()
	att := Attempt{Engine: providerName(prov)}

	links, err := prov.Search(ctx, query, p.maxCandidates)
	if err != nil {
		var blocked *serp.BlockedError
		if errors.As(err, &blocked) {
			att.Blocked = blocked.Source
			p.logger.Warn("search blocked", "engine", att.Engine, "source", blocked.Source, "query", query)
		} else {
			att.Error = err.Error()
			p.logger.Warn("search failed", "engine", att.Engine, "query", query, "error", err)
		}
		att.Duration = time.Since(start)
		return att, ""
	}
	att.Links = len(links)

	for i, l := range links {
		if i >= p.maxCandidates {
			break
		}
		if !website.IsValidURL(l.URL) {
			p.logger.Debug("skipping invalid url", "engine", att.Engine, "url", l.URL)
			continue
		}
		if frag, general := p.blocklist.Match(l.URL); general {
			p.logger.Debug("skipping general website", "engine", att.Engine, "url", l.URL, "match", frag)
			continue
		}
		att.Chosen = website.Clean(l.URL)
		att.Duration = time.Since(start)
		return att, att.Chosen
	}
	att.Duration = time.Since(start)
	return att, ""
}

func providerName(prov serp.SERPProvider) string {
	if n, ok := prov.(serp.Named); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", prov)
}

func lookupOutcome(res Result) string {
	switch {
	case res.Found:
		return "found"
	case res.Website == website.RequestFailed:
		return "failed"
	default:
		return "not_found"
	}
}
