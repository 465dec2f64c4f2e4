package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/njchilds90/liesym/internal/cache"
	"github.com/njchilds90/liesym/internal/config"
	"github.com/njchilds90/liesym/model"
)

// app is the state shared by all commands after flag parsing.
type app struct {
	out, errOut io.Writer

	configPath string
	logLevel   string
	logFormat  string

	cfg    config.Config
	logger *slog.Logger
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	a := &app{out: out, errOut: errOut, cfg: config.Default()}
	root := &cobra.Command{
		Use:   "liesym",
		Short: "Find and check Lie point symmetries of first-order ODE systems",
		Long: `liesym computes the Lie point symmetries of systems of first-order
ODEs x' = f(t, x) with a polynomial or time-function ansatz, and checks
candidate generators against the linearized symmetry condition.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}
	root.SetOut(out)
	root.SetErr(errOut)

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "TOML config file (default "+config.DefaultPath()+" when present)")
	pf.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn or error")
	pf.StringVar(&a.logFormat, "log-format", "", "log format: text or json")

	root.AddCommand(
		newFindCmd(a),
		newCheckCmd(a),
		newModelsCmd(a),
		newServeCmd(a),
	)
	return root
}

// setup loads the config file and applies the logging flags.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	path := a.configPath
	if path == "" {
		if def := config.DefaultPath(); def != "" {
			if _, err := os.Stat(def); err == nil {
				path = def
			}
		}
	}
	if path != "" {
		cfg, err := config.Load(path)
		if err != nil {
			return err
		}
		a.cfg = cfg
	}
	if a.logLevel != "" {
		if err := a.cfg.LogLevel.UnmarshalText([]byte(a.logLevel)); err != nil {
			return fmt.Errorf("--log-level: %w", err)
		}
	}
	if a.logFormat != "" {
		a.cfg.LogFormat = a.logFormat
	}
	if err := a.cfg.Validate(); err != nil {
		return err
	}
	a.logger = a.cfg.Logger(a.errOut)
	a.logger.Debug("configured",
		slog.String("command", cmd.Name()),
		slog.String("config", path),
	)
	return nil
}

// openCache opens the configured cache, or returns nil when caching is
// off.
func (a *app) openCache() (*cache.Cache, error) {
	if a.cfg.CacheDir == "" {
		return nil, nil
	}
	return cache.Open(cache.Config{Dir: a.cfg.CacheDir, TTL: a.cfg.CacheTTL, Logger: a.logger})
}

// loadSystem reads a model file, or a built-in model when no file of that
// name exists.
func loadSystem(arg string) (*model.System, error) {
	_, err := os.Stat(arg)
	switch {
	case err == nil:
		return model.LoadFile(arg)
	case errors.Is(err, fs.ErrNotExist):
		sys, berr := model.Builtin(arg)
		if errors.Is(berr, model.ErrUnknownModel) {
			return nil, fmt.Errorf("%q is neither a model file nor a built-in model (see liesym models)", arg)
		}
		return sys, berr
	default:
		return nil, err
	}
}
