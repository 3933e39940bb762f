package console

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/FranksOps/sitehunt/internal/runner"
)

var (
	// ErrRunning is returned by Start while a run is in progress.
	ErrRunning = errors.New("a run is already in progress")
	// ErrNotRunning is returned by Stop when there is nothing to stop.
	ErrNotRunning = errors.New("no run in progress")
	// ErrNoWorkbook is returned when no workbook path was given.
	ErrNoWorkbook = errors.New("no workbook selected")
)

// State of the controller's single worker.
type State string

const (
	StateIdle     State = "idle"
	StateRunning  State = "running"
	StateStopping State = "stopping"
	StateStopped  State = "stopped"
	StateDone     State = "done"
	StateFailed   State = "failed"
)

// Job is what the controller drives; *runner.Runner satisfies it.
type Job interface {
	Validate(path string) (runner.Validation, error)
	Run(ctx context.Context, path string) (runner.Summary, error)
}

var _ Job = (*runner.Runner)(nil)

// Status is the snapshot served to the page.
type Status struct {
	State       State     `json:"state"`
	Workbook    string    `json:"workbook,omitempty"`
	Valid       bool      `json:"valid"`
	Message     string    `json:"message,omitempty"`
	RunID       string    `json:"run_id,omitempty"`
	Companies   int       `json:"companies"`
	Pending     int       `json:"pending"`
	Processed   int       `json:"processed"`
	Successful  int       `json:"successful"`
	SuccessRate float64   `json:"success_rate"`
	Progress    float64   `json:"progress"`
	Current     string    `json:"current,omitempty"`
	StartedAt   time.Time `json:"started_at,omitzero"`
	FinishedAt  time.Time `json:"finished_at,omitzero"`
}

// ControllerConfig wires a Controller.
type ControllerConfig struct {
	Job    Job
	Logger *slog.Logger
	// AfterRun is called from the worker once a run ends, successfully or not.
	AfterRun func(ctx context.Context, sum runner.Summary, err error)
}

// Controller owns at most one background run at a time.
type Controller struct {
	job      Job
	logger   *slog.Logger
	afterRun func(context.Context, runner.Summary, error)

	mu     sync.Mutex
	status Status
	cancel context.CancelFunc
	done   chan struct{}
}

// NewController creates an idle controller.
func NewController(cfg ControllerConfig) *Controller {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Controller{
		job:      cfg.Job,
		logger:   cfg.Logger,
		afterRun: cfg.AfterRun,
		status:   Status{State: StateIdle},
	}
}

// Status returns the current snapshot.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Validate checks the workbook at path and records the outcome.
func (c *Controller) Validate(path string) (runner.Validation, error) {
	if path == "" {
		return runner.Validation{}, ErrNoWorkbook
	}
	v, err := c.job.Validate(path)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status.State == StateRunning || c.status.State == StateStopping {
		return v, err
	}
	c.status.Workbook = path
	c.status.Companies = v.Companies
	c.status.Pending = v.Pending
	c.status.Valid = err == nil
	if err != nil {
		c.status.Message = runner.Explain(err)
		c.logger.Error("workbook validation failed", "workbook", path, "error", err)
	} else {
		c.status.Message = fmt.Sprintf("valid file with %d companies", v.Companies)
		c.logger.Info("file validated", "workbook", path, "companies", v.Companies, "pending", v.Pending)
	}
	return v, err
}

// Start validates path and launches the worker.
func (c *Controller) Start(path string) error {
	if _, err := c.Validate(path); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done != nil {
		return ErrRunning
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.done = make(chan struct{})
	c.status = Status{
		State:     StateRunning,
		Workbook:  path,
		Valid:     true,
		Companies: c.status.Companies,
		Pending:   c.status.Pending,
		Message:   "starting",
		StartedAt: time.Now(),
	}

	c.logger.Info("starting run", "workbook", path)
	go c.work(ctx, path, c.done)
	return nil
}

func (c *Controller) work(ctx context.Context, path string, done chan struct{}) {
	defer close(done)

	sum, err := c.job.Run(ctx, path)

	c.mu.Lock()
	c.status.RunID = sum.RunID
	c.status.Processed = sum.Processed
	c.status.Successful = sum.Successful
	c.status.SuccessRate = sum.SuccessRate()
	c.status.Current = ""
	c.status.FinishedAt = time.Now()
	switch {
	case errors.Is(err, context.Canceled):
		c.status.State = StateStopped
		c.status.Message = "stopped by user"
	case err != nil:
		c.status.State = StateFailed
		c.status.Message = runner.Explain(err)
	default:
		c.status.State = StateDone
		c.status.Progress = 100
		c.status.Message = fmt.Sprintf("completed: %d/%d websites found", sum.Successful, sum.Processed)
	}
	c.cancel = nil
	c.done = nil
	c.mu.Unlock()

	if err != nil && !errors.Is(err, context.Canceled) {
		c.logger.Error("run failed", "workbook", path, "error", err)
	}
	if c.afterRun != nil {
		c.afterRun(context.WithoutCancel(ctx), sum, err)
	}
}

// Observe records runner progress; pass it as runner.Config.OnProgress.
func (c *Controller) Observe(p runner.Progress) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.status.RunID = p.RunID
	c.status.Processed = p.Processed
	c.status.Successful = p.Successful
	c.status.Current = p.Company
	if p.Processed > 0 {
		c.status.SuccessRate = float64(p.Successful) / float64(p.Processed) * 100
	}
	if p.Total > 0 {
		c.status.Progress = float64(p.Index) / float64(p.Total) * 100
	}
	c.status.Message = fmt.Sprintf("processing %d/%d: %s", p.Index, p.Total, p.Company)
}

// Stop asks the worker to finish after the current row.
func (c *Controller) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel == nil {
		return ErrNotRunning
	}
	c.cancel()
	c.status.State = StateStopping
	c.status.Message = "stopping after the current company"
	c.logger.Warn("stop requested")
	return nil
}

// Wait blocks until the current run, if any, has ended or ctx is done.
func (c *Controller) Wait(ctx context.Context) error {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops any run and waits for the worker to save and exit.
func (c *Controller) Shutdown(ctx context.Context) error {
	if err := c.Stop(); err != nil && !errors.Is(err, ErrNotRunning) {
		return err
	}
	return c.Wait(ctx)
}
