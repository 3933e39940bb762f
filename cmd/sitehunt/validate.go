package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/FranksOps/sitehunt/internal/runner"
)

func newValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [workbook.xlsx]",
		Short: "Check a workbook without searching",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := workbookArg(a, args)
			if path == "" {
				return errors.New("no workbook given: pass a path or set workbook.path")
			}

			r := runner.New(runner.Config{
				Layout:       layoutOf(a.cfg),
				MaxCompanies: a.cfg.Workbook.MaxCompanies,
			})
			v, err := r.Validate(path)
			if err != nil {
				fmt.Fprintln(a.stderr, runner.Explain(err))
				return err
			}
			fmt.Fprintf(a.stdout, "Valid file with %d companies (%d pending) in sheet %q.\n", v.Companies, v.Pending, v.Sheet)
			return nil
		},
	}
}
