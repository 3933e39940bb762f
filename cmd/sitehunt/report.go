package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/FranksOps/sitehunt/internal/report"
	"github.com/FranksOps/sitehunt/internal/storage"
)

func newReportCmd(a *app) *cobra.Command {
	var (
		runID  string
		since  time.Duration
		format string
		output string
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Summarise lookup history from the configured store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.Storage.Type == "" || a.cfg.Storage.Type == "none" {
				return fmt.Errorf("no history store configured: set storage.type and storage.dsn")
			}

			store, err := openStore(cmd.Context(), a.cfg.Storage)
			if err != nil {
				return fmt.Errorf("open history store: %w", err)
			}
			defer store.Close()

			filter := storage.Filter{RunID: runID}
			if since > 0 {
				t := time.Now().Add(-since)
				filter.Since = &t
			}
			recs, err := store.Query(cmd.Context(), filter)
			if err != nil {
				return fmt.Errorf("query history: %w", err)
			}

			var w io.Writer = a.stdout
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("create report: %w", err)
				}
				defer f.Close()
				w = f
			}
			return report.Write(w, format, report.GenerateSummary(recs))
		},
	}

	f := cmd.Flags()
	f.StringVar(&runID, "run", "", "only include this run id")
	f.DurationVar(&since, "since", 0, "only include lookups newer than this, e.g. 24h")
	f.StringVarP(&format, "format", "f", "text", "output format: text, json or html")
	f.StringVarP(&output, "output", "o", "", "write the report to a file instead of stdout")
	return cmd
}
