package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cyp0633/librecur/format"
	"github.com/cyp0633/librecur/recurrence"
)

const noRRule = "(does not repeat)"

func newRRuleCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rrule",
		Short: "Print the RRULE form of a rule",
		Args:  cobra.NoArgs,
	}
	rf := addRuleFlags(cmd)
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		r, err := a.rule(rf)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), format.RRule(r).OrElse(noRRule))
		return nil
	}
	return cmd
}

func (a *app) describe(r recurrence.Rule) (string, error) {
	l, err := a.locale()
	if err != nil {
		return "", err
	}
	f, err := format.NewFormatter(l)
	if err != nil {
		return "", err
	}
	return f.Format(r), nil
}

func newDescribeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "describe",
		Short: "Describe a rule in words",
		Long: `Describe a rule in words using the locale table given by --locale, or
English when none is given.`,
		Args: cobra.NoArgs,
	}
	rf := addRuleFlags(cmd)
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		r, err := a.rule(rf)
		if err != nil {
			return err
		}
		text, err := a.describe(r)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), text)
		return nil
	}
	return cmd
}

func newEncodeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "encode",
		Short: "Print the binary record of a rule as hex",
		Args:  cobra.NoArgs,
	}
	rf := addRuleFlags(cmd)
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		r, err := a.rule(rf)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), format.EncodeHex(r))
		return nil
	}
	return cmd
}

func newDecodeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "decode HEX",
		Short: "Decode a hex encoded binary record",
		Long: `Decode a hex encoded binary record. The record does not carry a time
zone, so --timezone must name the zone the rule was encoded in.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loc, err := a.location()
			if err != nil {
				return err
			}
			r, err := format.DecodeHex(args[0], loc)
			if err != nil {
				return err
			}
			text, err := a.describe(r)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, r.String())
			fmt.Fprintln(out, format.RRule(r).OrElse(noRRule))
			fmt.Fprintln(out, text)
			return nil
		},
	}
}
