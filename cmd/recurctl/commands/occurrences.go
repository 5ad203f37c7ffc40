package commands

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
)

const outputLayout = "2006-01-02 15:04 Mon"

func printDates(w io.Writer, dates []time.Time) {
	for _, t := range dates {
		fmt.Fprintln(w, t.Format(outputLayout))
	}
}

func newNextCmd(a *app) *cobra.Command {
	var after string
	cmd := &cobra.Command{
		Use:   "next",
		Short: "List the next occurrences of a rule",
		Long: `List the occurrences of a rule after a date, the start itself excluded.
The number of occurrences comes from --count.`,
		Args: cobra.NoArgs,
	}
	rf := addRuleFlags(cmd)
	cmd.Flags().StringVar(&after, "after", "", "only list occurrences from this date on")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		r, err := a.rule(rf)
		if err != nil {
			return err
		}
		var from time.Time
		if after != "" {
			loc, err := a.location()
			if err != nil {
				return err
			}
			if from, err = parseTime(after, loc); err != nil {
				return err
			}
		}

		dates, err := a.getEngine().Next(r, from, a.v.GetInt("count"))
		if err != nil {
			return err
		}
		printDates(cmd.OutOrStdout(), dates)
		return nil
	}
	return cmd
}

func newBetweenCmd(a *app) *cobra.Command {
	var from, to string
	cmd := &cobra.Command{
		Use:   "between",
		Short: "List the occurrences of a rule within a date range",
		Long:  `List the occurrences in [from, to). The start of the rule is included when in range.`,
		Args:  cobra.NoArgs,
	}
	rf := addRuleFlags(cmd)
	cmd.Flags().StringVar(&from, "from", "", "first date of the range")
	cmd.Flags().StringVar(&to, "to", "", "end of the range, exclusive")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		r, err := a.rule(rf)
		if err != nil {
			return err
		}
		loc, err := a.location()
		if err != nil {
			return err
		}
		fromTime, err := parseTime(from, loc)
		if err != nil {
			return err
		}
		toTime, err := parseTime(to, loc)
		if err != nil {
			return err
		}

		var dates []time.Time
		if !r.Start().Before(fromTime) && r.Start().Before(toTime) {
			dates = append(dates, r.Start())
		}
		more, err := a.getEngine().Between(r, fromTime, toTime)
		if err != nil {
			return err
		}
		printDates(cmd.OutOrStdout(), append(dates, more...))
		return nil
	}
	return cmd
}
