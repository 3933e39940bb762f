package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/FranksOps/sitehunt/internal/console"
	"github.com/FranksOps/sitehunt/internal/logging"
	"github.com/FranksOps/sitehunt/internal/metrics"
	"github.com/FranksOps/sitehunt/internal/runner"
)

const shutdownTimeout = 30 * time.Second

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the local web console",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context())
		},
	}

	f := cmd.Flags()
	f.String("addr", "127.0.0.1:8090", "console listen address")
	f.Int("metrics-port", 0, "serve Prometheus metrics on this port (0 disables)")
	f.String("renderer", "chrome", "page renderer: chrome or http")
	a.bind(cmd, "addr", "console.addr")
	a.bind(cmd, "metrics-port", "metrics.port")
	a.bind(cmd, "renderer", "search.renderer")
	return cmd
}

func (a *app) serve(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := console.NewHub(a.cfg.Console.LogHistory)
	logger, closer, err := a.logger(a.stderr, hub.Handler(logging.ParseLevel(a.cfg.Log.ConsoleLevel)))
	if err != nil {
		return err
	}
	defer closer.Close()

	var ctrl *console.Controller
	r, store, err := newRunner(ctx, a.cfg, logger, func(p runner.Progress) { ctrl.Observe(p) })
	if err != nil {
		return err
	}
	defer store.Close()

	ctrl = console.NewController(console.ControllerConfig{
		Job:    r,
		Logger: logger,
		AfterRun: func(ctx context.Context, sum runner.Summary, err error) {
			if err == nil || errors.Is(err, context.Canceled) {
				exportRun(ctx, a.cfg, store, sum, logger)
			}
		},
	})

	srv := console.NewServer(console.ServerConfig{
		Controller:  ctrl,
		Hub:         hub,
		Logger:      logger,
		Workbook:    a.cfg.Workbook.Path,
		CORSOrigins: a.cfg.Console.CORSOrigins,
	})
	httpSrv := srv.NewHTTPServer(a.cfg.Console.Addr)

	hub.Welcome(a.cfg.Workbook.MaxCompanies, a.cfg.Search.SearchWords, a.cfg.Search.Engines)

	var ms *metrics.Server
	if a.cfg.Metrics.Port > 0 {
		ms = metrics.Start(a.cfg.Metrics.Port, logger)
		logger.Info("metrics enabled", "port", a.cfg.Metrics.Port)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("console listening", "addr", a.cfg.Console.Addr)
		fmt.Fprintf(a.stdout, "Console: http://%s\n", a.cfg.Console.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("console server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down console")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		var errs []error
		if err := ctrl.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("stop run: %w", err))
		}
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("console shutdown: %w", err))
		}
		if err := ms.Stop(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("metrics shutdown: %w", err))
		}
		return errors.Join(errs...)
	})

	return g.Wait()
}
