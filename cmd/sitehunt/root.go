package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/FranksOps/sitehunt/internal/config"
	"github.com/FranksOps/sitehunt/internal/logging"
)

// app carries state shared by every subcommand.
type app struct {
	v       *viper.Viper
	cfgFile string
	envFile string
	cfg     *config.Config
	stdout  io.Writer
	stderr  io.Writer

	// flag name -> config key, applied for the command being executed
	bindings map[*cobra.Command]map[string]string
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{
		v:        viper.New(),
		stdout:   stdout,
		stderr:   stderr,
		bindings: map[*cobra.Command]map[string]string{},
	}

	root := &cobra.Command{
		Use:   "sitehunt",
		Short: "Find company websites for an exhibitor workbook",
		Long: `sitehunt reads company names from the "1. Exhibitor List (Input)" sheet,
searches DuckDuckGo and Startpage for each one and writes the first
plausible company website back into the workbook.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return a.load(cmd)
		},
	}
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "YAML config file")
	pf.StringVar(&a.envFile, "env-file", ".env", "dotenv file loaded before reading SITEHUNT_* variables")
	pf.String("log-level", "debug", "debug log file level")
	pf.String("log-file", "debug.log", "debug log file (empty disables it)")
	a.bind(root, "log-level", "log.level")
	a.bind(root, "log-file", "log.file")

	root.AddCommand(
		newRunCmd(a),
		newValidateCmd(a),
		newServeCmd(a),
		newReportCmd(a),
		newVersionCmd(a),
	)
	return root
}

// bind maps cmd's flag onto a config key. Bindings are applied only for the
// command that runs, so two commands may bind the same key. A flag overrides
// file and environment values only when set explicitly.
func (a *app) bind(cmd *cobra.Command, flag, key string) {
	if a.bindings[cmd] == nil {
		a.bindings[cmd] = map[string]string{}
	}
	a.bindings[cmd][flag] = key
}

func (a *app) applyBindings(cmd *cobra.Command) error {
	for c := cmd; c != nil; c = c.Parent() {
		for flag, key := range a.bindings[c] {
			if err := a.v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
				return fmt.Errorf("bind --%s: %w", flag, err)
			}
		}
	}
	return nil
}

func (a *app) load(cmd *cobra.Command) error {
	if err := a.applyBindings(cmd); err != nil {
		return err
	}
	if err := config.LoadDotEnv(a.envFile); err != nil {
		return err
	}
	cfg, err := config.Load(a.v, a.cfgFile)
	if err != nil {
		return err
	}
	a.cfg = cfg
	return nil
}

// logger builds the process logger. console receives records at the
// configured console level; extra handlers receive everything they enable.
func (a *app) logger(console io.Writer, extra ...slog.Handler) (*slog.Logger, io.Closer, error) {
	lc := a.cfg.Logging()
	lc.Output = console
	lc.Extra = extra
	logger, closer, err := logging.New(lc)
	if err != nil {
		return nil, nil, fmt.Errorf("init logging: %w", err)
	}
	return logger, closer, nil
}
