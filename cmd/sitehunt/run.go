package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/FranksOps/sitehunt/internal/runner"
)

func newRunCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [workbook.xlsx]",
		Short: "Look up websites for every pending company in a workbook",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd.Context(), workbookArg(a, args))
		},
	}

	f := cmd.Flags()
	f.String("renderer", "chrome", "page renderer: chrome or http")
	f.StringSlice("engines", nil, "search engines in order (default duckduckgo,startpage)")
	f.Bool("headful", false, "show the browser window")
	a.bind(cmd, "renderer", "search.renderer")
	a.bind(cmd, "engines", "search.engines")
	a.bind(cmd, "headful", "chrome.headful")
	return cmd
}

func workbookArg(a *app, args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return a.cfg.Workbook.Path
}

func (a *app) run(parent context.Context, path string) error {
	if path == "" {
		return errors.New("no workbook given: pass a path or set workbook.path")
	}
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, closer, err := a.logger(a.stderr)
	if err != nil {
		return err
	}
	defer closer.Close()

	progress := func(p runner.Progress) {
		mark := "x"
		if p.Found {
			mark = "ok"
		}
		fmt.Fprintf(a.stdout, "[%d/%d] %-2s %s -> %s\n", p.Index, p.Total, mark, p.Company, p.Website)
	}

	r, store, err := newRunner(ctx, a.cfg, logger, progress)
	if err != nil {
		return err
	}
	defer store.Close()

	fmt.Fprintf(a.stdout, "Processing %s\n", path)
	sum, err := r.Run(ctx, path)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("run failed", "workbook", path, "error", err)
		fmt.Fprintln(a.stderr, runner.Explain(err))
		return err
	}

	if sum.Pending == 0 && !sum.Canceled {
		fmt.Fprintln(a.stdout, "All companies already have valid websites.")
		return nil
	}

	fmt.Fprintf(a.stdout, "\nProcessed %d companies, found %d websites (%.1f%%).\n",
		sum.Processed, sum.Successful, sum.SuccessRate())
	if sum.Canceled {
		fmt.Fprintln(a.stdout, runner.Explain(context.Canceled))
	}

	exportRun(context.WithoutCancel(ctx), a.cfg, store, sum, logger)
	return nil
}
