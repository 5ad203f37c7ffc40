package commands

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/cyp0633/librecur/icalendar"
	"github.com/cyp0633/librecur/xcal"
)

func newICalCmd(a *app) *cobra.Command {
	var (
		summary  string
		uid      string
		duration time.Duration
	)
	cmd := &cobra.Command{
		Use:   "ical",
		Short: "Print a rule as an iCalendar event",
		Args:  cobra.NoArgs,
	}
	rf := addRuleFlags(cmd)
	cmd.Flags().StringVar(&summary, "summary", "", "event title")
	cmd.Flags().StringVar(&uid, "uid", "", "event UID (default is a random UUID)")
	cmd.Flags().DurationVar(&duration, "duration", time.Hour, "event duration")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		r, err := a.rule(rf)
		if err != nil {
			return err
		}
		opts := []icalendar.EventOption{icalendar.WithSummary(summary), icalendar.WithDuration(duration)}
		if uid != "" {
			opts = append(opts, icalendar.WithUID(uid))
		}
		return icalendar.Encode(cmd.OutOrStdout(), icalendar.NewCalendar(icalendar.NewEvent(r, opts...)))
	}
	return cmd
}

func newImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Read the rules of the events of an iCalendar file",
		Long:  `Read the rules of the events of an iCalendar file, or standard input when FILE is "-".`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loc, err := a.location()
			if err != nil {
				return err
			}

			var in io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("failed to open calendar: %w", err)
				}
				defer f.Close()
				in = f
			}

			rules, err := icalendar.Decode(in, loc)
			if err != nil {
				return err
			}
			a.logger.Info("calendar imported", "events", len(rules))

			out := cmd.OutOrStdout()
			for _, r := range rules {
				text, err := a.describe(r)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s\t%s\n", r.Start().Format(outputLayout), text)
			}
			return nil
		},
	}
}

func newXCalCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "xcal",
		Short: "Print a rule as an xCal (RFC 6321) document",
		Args:  cobra.NoArgs,
	}
	rf := addRuleFlags(cmd)
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		r, err := a.rule(rf)
		if err != nil {
			return err
		}
		s, err := xcal.Marshal(r)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), s)
		return nil
	}
	return cmd
}
