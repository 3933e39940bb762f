// Package runner drives a batch over an exhibitor workbook: one lookup per
// pending row, written back as it goes.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/FranksOps/sitehunt/internal/pipeline"
	"github.com/FranksOps/sitehunt/internal/sheet"
	"github.com/FranksOps/sitehunt/internal/storage"
	"github.com/FranksOps/sitehunt/internal/website"
	"github.com/FranksOps/sitehunt/pkg/ratelimit"
)

const (
	// DefaultMaxCompanies caps a workbook's size.
	DefaultMaxCompanies = 300
	// DefaultSaveEvery is how many processed rows trigger an intermediate save.
	DefaultSaveEvery = 5
	// DefaultRowDelayMin and DefaultRowDelayMax bound the pause between rows.
	DefaultRowDelayMin = 15 * time.Second
	DefaultRowDelayMax = 25 * time.Second
)

// ErrTooManyCompanies is matched by every LimitError.
var ErrTooManyCompanies = errors.New("too many companies")

// LimitError reports a workbook over the company limit.
type LimitError struct {
	Count int
	Max   int
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("workbook lists %d companies, the maximum is %d", e.Count, e.Max)
}

func (e *LimitError) Unwrap() error { return ErrTooManyCompanies }

// Looker resolves a company name to a website.
type Looker interface {
	Lookup(ctx context.Context, company string) pipeline.Result
}

var _ Looker = (*pipeline.Pipeline)(nil)

// LookerFunc adapts a function to Looker.
type LookerFunc func(ctx context.Context, company string) pipeline.Result

// Lookup calls f.
func (f LookerFunc) Lookup(ctx context.Context, company string) pipeline.Result {
	return f(ctx, company)
}

// Progress is reported after every processed row.
type Progress struct {
	RunID      string
	Index      int // 1-based position among pending rows
	Total      int
	Row        int
	Company    string
	Website    string
	Found      bool
	Processed  int
	Successful int
	Saved      bool
}

// Summary describes a finished or interrupted run.
type Summary struct {
	RunID      string
	Workbook   string
	Companies  int
	Pending    int
	Processed  int
	Successful int
	Skipped    int
	Canceled   bool
	StartedAt  time.Time
	FinishedAt time.Time
}

// SuccessRate is the share of processed rows that got a valid URL, 0..100.
func (s Summary) SuccessRate() float64 {
	if s.Processed == 0 {
		return 0
	}
	return float64(s.Successful) / float64(s.Processed) * 100
}

// Validation is the outcome of Validate.
type Validation struct {
	Path      string
	Sheet     string
	Companies int
	Pending   int
}

// Config wires a Runner.
type Config struct {
	Layout       sheet.Layout
	MaxCompanies int
	SaveEvery    int
	// RowDelay paces rows. Nil means 15-25 s.
	RowDelay *ratelimit.Pacer
	Looker   Looker
	Store    storage.Backend
	Logger   *slog.Logger
	// OnProgress is called synchronously after every processed row.
	OnProgress func(Progress)
}

// Runner processes workbooks one row at a time.
type Runner struct {
	cfg Config
}

// New creates a Runner.
func New(cfg Config) *Runner {
	if cfg.MaxCompanies <= 0 {
		cfg.MaxCompanies = DefaultMaxCompanies
	}
	if cfg.SaveEvery <= 0 {
		cfg.SaveEvery = DefaultSaveEvery
	}
	if cfg.RowDelay == nil {
		cfg.RowDelay = ratelimit.NewPacer(DefaultRowDelayMin, DefaultRowDelayMax)
	}
	if cfg.Store == nil {
		cfg.Store = storage.Discard{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Runner{cfg: cfg}
}

// Validate checks that path is a readable workbook with the expected sheet
// and at most MaxCompanies companies.
func (r *Runner) Validate(path string) (Validation, error) {
	wb, err := sheet.Open(path, r.cfg.Layout)
	if err != nil {
		return Validation{}, err
	}
	defer wb.Close()

	return r.validate(wb)
}

func (r *Runner) validate(wb *sheet.Workbook) (Validation, error) {
	v := Validation{Path: wb.Path(), Sheet: wb.Layout().Sheet}

	n, err := wb.CountCompanies()
	if err != nil {
		return v, err
	}
	v.Companies = n
	if n > r.cfg.MaxCompanies {
		return v, &LimitError{Count: n, Max: r.cfg.MaxCompanies}
	}

	pending, err := wb.Pending(website.IsValidURL)
	if err != nil {
		return v, err
	}
	v.Pending = len(pending)
	return v, nil
}

// Run looks up every pending row of the workbook at path. Cancelling ctx
// stops the run between rows; the workbook is saved before Run returns
// ctx's error.
func (r *Runner) Run(ctx context.Context, path string) (Summary, error) {
	sum := Summary{
		RunID:     uuid.NewString(),
		Workbook:  path,
		StartedAt: time.Now(),
	}
	logger := r.cfg.Logger.With("run_id", sum.RunID)

	if r.cfg.Looker == nil {
		return sum, errors.New("runner: no looker configured")
	}

	wb, err := sheet.Open(path, r.cfg.Layout)
	if err != nil {
		return sum, err
	}
	defer wb.Close()

	v, err := r.validate(wb)
	sum.Companies = v.Companies
	if err != nil {
		return sum, err
	}

	pending, err := wb.Pending(website.IsValidURL)
	if err != nil {
		return sum, err
	}
	sum.Pending = len(pending)

	if len(pending) == 0 {
		logger.Info("all companies already have valid websites", "companies", sum.Companies)
		sum.FinishedAt = time.Now()
		return sum, nil
	}

	logger.Info("run started", "workbook", path, "companies", sum.Companies, "pending", sum.Pending)

	stop := func(cause error) (Summary, error) {
		sum.Canceled = true
		sum.FinishedAt = time.Now()
		logger.Warn("run stopped, saving progress", "processed", sum.Processed)
		if err := wb.Save(); err != nil {
			return sum, fmt.Errorf("save after stop: %w", err)
		}
		return sum, cause
	}

	lastNamed := -1
	for i, row := range pending {
		if row.Company != "" {
			lastNamed = i
		}
	}

	for i, row := range pending {
		if err := ctx.Err(); err != nil {
			return stop(err)
		}

		if row.Company == "" {
			sum.Skipped++
			continue
		}

		logger.Info("looking up", "row", row.Index, "company", row.Company, "position", i+1, "of", len(pending))
		res := r.cfg.Looker.Lookup(ctx, row.Company)
		if res.Canceled {
			return stop(ctx.Err())
		}

		if err := wb.SetWebsite(row.Index, res.Website); err != nil {
			return sum, fmt.Errorf("write row %d: %w", row.Index, err)
		}
		sum.Processed++
		found := website.IsValidURL(res.Website)
		if found {
			sum.Successful++
		}

		r.persist(ctx, logger, sum.RunID, filepath.Base(path), row, res)

		saved := false
		if sum.Processed%r.cfg.SaveEvery == 0 {
			if err := wb.Save(); err != nil {
				return sum, err
			}
			saved = true
			logger.Debug("workbook saved", "processed", sum.Processed)
		}

		if r.cfg.OnProgress != nil {
			r.cfg.OnProgress(Progress{
				RunID:      sum.RunID,
				Index:      i + 1,
				Total:      len(pending),
				Row:        row.Index,
				Company:    row.Company,
				Website:    res.Website,
				Found:      found,
				Processed:  sum.Processed,
				Successful: sum.Successful,
				Saved:      saved,
			})
		}

		if i < lastNamed {
			if err := r.cfg.RowDelay.Wait(ctx); err != nil {
				return stop(err)
			}
		}
	}

	if err := wb.Save(); err != nil {
		return sum, err
	}
	sum.FinishedAt = time.Now()

	logger.Info("run finished",
		"processed", sum.Processed,
		"successful", sum.Successful,
		"skipped", sum.Skipped,
		"success_rate", fmt.Sprintf("%.1f%%", sum.SuccessRate()),
	)
	return sum, nil
}

func (r *Runner) persist(ctx context.Context, logger *slog.Logger, runID, workbook string, row sheet.Row, res pipeline.Result) {
	rec := &storage.LookupRecord{
		ID:        uuid.NewString(),
		RunID:     runID,
		Workbook:  workbook,
		Row:       row.Index,
		Company:   row.Company,
		Query:     res.Query,
		Website:   res.Website,
		Engine:    res.Engine,
		Found:     res.Found,
		Attempts:  len(res.Attempts),
		BlockedBy: res.BlockedBy,
		Duration:  res.Duration,
		CreatedAt: time.Now().UTC(),
	}
	if !res.Found {
		for _, a := range res.Attempts {
			if a.Error != "" {
				rec.Error = a.Error
			}
		}
	}
	// history is best effort; the workbook is the source of truth
	if err := r.cfg.Store.Save(context.WithoutCancel(ctx), rec); err != nil {
		logger.Error("failed to persist lookup", "row", row.Index, "error", err)
	}
}
