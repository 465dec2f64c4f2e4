package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/njchilds90/liesym/model"
	"github.com/njchilds90/liesym/symmetry"
)

func newCheckCmd(a *app) *cobra.Command {
	var (
		name   string
		xi     string
		eta    []string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "check <model-file | built-in>",
		Short: "Check candidate generators against a model",
		Long: `check validates the generators listed in the model, or the single
generator given with --xi and --eta (one --eta per state, in order).
It exits non-zero when a generator is not a symmetry.`,
		Example: `  liesym check gompertz-system
  liesym check saddle --eta x --eta 0`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sys, err := loadSystem(args[0])
			if err != nil {
				return err
			}
			candidates := sys.Candidates
			if len(eta) > 0 || xi != "" {
				c, err := sys.ParseCandidate(name, xi, eta)
				if err != nil {
					return err
				}
				candidates = []model.Candidate{c}
			}
			if len(candidates) == 0 {
				return fmt.Errorf("%s lists no generators; pass --xi and --eta", sys.Name)
			}

			ws := symmetry.NewWorkspace(a.cfg.WorkspaceOptions(a.logger)...)
			var results []*symmetry.ValidationResult
			failed := 0
			for _, c := range candidates {
				res, err := symmetry.Validator{}.Validate(ws, sys, symmetry.FromCandidate(sys, c))
				if err != nil {
					return fmt.Errorf("check %s: %w", c.Name, err)
				}
				if !res.OK {
					failed++
				}
				results = append(results, res)
			}

			if asJSON {
				enc := json.NewEncoder(a.out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(symmetry.CheckReports(results)); err != nil {
					return err
				}
			} else {
				r := &symmetry.Report{System: sys.Name, Candidates: symmetry.CheckReports(results)}
				fmt.Fprintf(a.out, "%s\n", sys)
				if err := r.WriteChecks(a.out); err != nil {
					return err
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d generators are not symmetries of %s", failed, len(results), sys.Name)
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&name, "name", "X", "name of the generator given with --xi/--eta")
	f.StringVar(&xi, "xi", "", "time coefficient (default 0)")
	f.StringArrayVar(&eta, "eta", nil, "state coefficient, one per state in order")
	f.BoolVar(&asJSON, "json", false, "print JSON results")
	return cmd
}
