package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cyp0633/librecur/preset"
)

func newMatchCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "match",
		Short: "Print the preset a rule corresponds to",
		Long: `Print the name of the standard preset (does-not-repeat, daily, weekly,
monthly or yearly) that describes the rule, or "custom" when none does.`,
		Args: cobra.NoArgs,
	}
	rf := addRuleFlags(cmd)
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		r, err := a.rule(rf)
		if err != nil {
			return err
		}
		catalog := preset.NewDefaultCatalog(preset.WithLogger(a.logger))
		name := "custom"
		if p, ok := catalog.Match(r).Get(); ok {
			name = p.Name
		}
		fmt.Fprintln(cmd.OutOrStdout(), name)
		return nil
	}
	return cmd
}
