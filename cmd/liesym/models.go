package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/njchilds90/liesym/model"
)

func newModelsCmd(a *app) *cobra.Command {
	var show, format string
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List the built-in models, or print one as a definition file",
		Example: `  liesym models
  liesym models --show gompertz-system > gompertz.yaml
  liesym models --show saddle --format toml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if show != "" {
				sys, err := model.Builtin(show)
				if err != nil {
					return err
				}
				d := sys.Definition()
				d.Description = model.BuiltinDescription(show)
				data, err := model.Encode(d, model.Format(format))
				if err != nil {
					return err
				}
				_, err = a.out.Write(data)
				return err
			}
			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tSTATES\tDESCRIPTION")
			for _, name := range model.BuiltinNames() {
				sys, err := model.Builtin(name)
				if err != nil {
					return err
				}
				fmt.Fprintf(tw, "%s\t%d\t%s\n", name, len(sys.States), model.BuiltinDescription(name))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&show, "show", "", "print the definition of a built-in model")
	cmd.Flags().StringVar(&format, "format", string(model.FormatYAML), "definition format: yaml or toml")
	return cmd
}
