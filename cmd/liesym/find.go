package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/njchilds90/liesym/internal/cache"
	"github.com/njchilds90/liesym/model"
	"github.com/njchilds90/liesym/symmetry"
)

type findOptions struct {
	degree        int
	noTime        bool
	form          string
	dependsOn     []string
	all           bool
	asJSON        bool
	noCache       bool
	cacheDir      string
	timeout       string
	maxIterations int
}

func newFindCmd(a *app) *cobra.Command {
	o := &findOptions{}
	cmd := &cobra.Command{
		Use:   "find [model-file | built-in]...",
		Short: "Compute the symmetries of one or more models",
		Example: `  liesym find saddle
  liesym find gompertz-system --form function
  liesym find model.yaml --no-time --depends-on x=x --json
  liesym find --all`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runFind(cmd, o, args)
		},
	}
	f := cmd.Flags()
	f.IntVar(&o.degree, "degree", 0, "total degree of the ansatz polynomials")
	f.BoolVar(&o.noTime, "no-time", false, "fix xi = 0")
	f.StringVar(&o.form, "form", "", "ansatz form: polynomial or function")
	f.StringArrayVar(&o.dependsOn, "depends-on", nil, "restrict a component, e.g. x=x,t or t= (repeatable)")
	f.BoolVar(&o.all, "all", false, "analyze every built-in model")
	f.BoolVar(&o.asJSON, "json", false, "print JSON reports")
	f.BoolVar(&o.noCache, "no-cache", false, "ignore the report cache")
	f.StringVar(&o.cacheDir, "cache-dir", "", "report cache directory")
	f.StringVar(&o.timeout, "timeout", "", "time limit for the whole run, e.g. 30s")
	f.IntVar(&o.maxIterations, "max-iterations", 0, "solver iteration budget per model")
	return cmd
}

// ansatz applies the flags on top of the configured ansatz.
func (o *findOptions) ansatz(cmd *cobra.Command, base symmetry.AnsatzOptions) (symmetry.AnsatzOptions, error) {
	opts := base
	if cmd.Flags().Changed("degree") {
		if o.degree < 0 {
			return opts, fmt.Errorf("--degree must not be negative")
		}
		opts.Degree = o.degree
	}
	if o.noTime {
		opts.IncludeTime = false
	}
	if o.form != "" {
		f, err := symmetry.ParseAnsatzForm(o.form)
		if err != nil {
			return opts, err
		}
		opts.Form = f
	}
	if len(o.dependsOn) > 0 {
		opts.DependsOn = map[string][]string{}
		for _, spec := range o.dependsOn {
			comp, vars, ok := strings.Cut(spec, "=")
			comp = strings.TrimSpace(comp)
			if !ok || comp == "" {
				return opts, fmt.Errorf("--depends-on %q: want component=var,var", spec)
			}
			deps := []string{}
			for _, v := range strings.Split(vars, ",") {
				if v = strings.TrimSpace(v); v != "" {
					deps = append(deps, v)
				}
			}
			opts.DependsOn[comp] = deps
		}
	}
	return opts, nil
}

func (a *app) runFind(cmd *cobra.Command, o *findOptions, args []string) error {
	names := args
	if o.all {
		names = append(names, model.BuiltinNames()...)
	}
	if len(names) == 0 {
		return errors.New("name a model file or built-in model, or pass --all")
	}
	systems := make([]*model.System, len(names))
	for i, name := range names {
		sys, err := loadSystem(name)
		if err != nil {
			return err
		}
		systems[i] = sys
	}

	opts, err := o.ansatz(cmd, a.cfg.Ansatz)
	if err != nil {
		return err
	}
	if o.cacheDir != "" {
		a.cfg.CacheDir = o.cacheDir
	}
	if o.maxIterations > 0 {
		a.cfg.MaxIterations = o.maxIterations
	}
	timeout := a.cfg.Timeout
	if o.timeout != "" {
		if timeout, err = time.ParseDuration(o.timeout); err != nil {
			return fmt.Errorf("--timeout: %w", err)
		}
	}

	var c *cache.Cache
	if !o.noCache {
		if c, err = a.openCache(); err != nil {
			return err
		}
		if c != nil {
			defer c.Close()
		}
	}

	reports := make([]*symmetry.Report, len(systems))
	var pending []int
	for i, sys := range systems {
		if c != nil {
			r, err := c.Get(cache.Key(sys, opts))
			if err == nil {
				a.logger.Debug("cache hit", slog.String("system", sys.Name))
				reports[i] = r
				continue
			}
			if !errors.Is(err, cache.ErrMiss) {
				a.logger.Warn("cache lookup failed", slog.String("error", err.Error()))
			}
		}
		pending = append(pending, i)
	}

	if len(pending) > 0 {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		todo := make([]*model.System, len(pending))
		for k, i := range pending {
			todo[k] = systems[i]
		}
		analyses, err := symmetry.AnalyzeAll(ctx, todo, opts, a.cfg.WorkspaceOptions(a.logger)...)
		if err != nil {
			return err
		}
		for k, an := range analyses {
			i := pending[k]
			reports[i] = an.Report()
			a.logger.Info("analyzed",
				slog.String("system", an.System.Name),
				slog.String("state", an.State.String()),
				slog.Duration("elapsed", an.Duration),
			)
			if c != nil && !an.Interrupted() {
				if err := c.Put(cache.Key(systems[i], opts), reports[i]); err != nil {
					a.logger.Warn("cache store failed", slog.String("error", err.Error()))
				}
			}
		}
	}
	return a.printReports(reports, o.asJSON)
}

func (a *app) printReports(reports []*symmetry.Report, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		if len(reports) == 1 {
			return enc.Encode(reports[0])
		}
		return enc.Encode(reports)
	}
	for i, r := range reports {
		if i > 0 {
			fmt.Fprintln(a.out)
		}
		if err := r.WriteText(a.out); err != nil {
			return err
		}
	}
	return nil
}
