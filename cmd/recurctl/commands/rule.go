package commands

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/cyp0633/librecur/format"
	"github.com/cyp0633/librecur/recurrence"
)

// ruleFlags are the flags every rule-consuming command accepts.
type ruleFlags struct {
	start     string
	period    string
	frequency int
	days      string
	monthly   string
	until     string
	endCount  int
	text      string
	hex       string
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	time.DateOnly,
}

func addRuleFlags(cmd *cobra.Command) *ruleFlags {
	rf := &ruleFlags{}
	flags := cmd.Flags()
	flags.StringVar(&rf.start, "start", "", "start date (default is now)")
	flags.StringVarP(&rf.period, "period", "p", "none", "none, daily, weekly, monthly or yearly")
	flags.IntVarP(&rf.frequency, "frequency", "f", 1, "repeat every n periods")
	flags.StringVar(&rf.days, "days", "", "weekly days as RFC 5545 codes, e.g. MO,WE,FR")
	flags.StringVar(&rf.monthly, "monthly", "same-day", "monthly day: same-day, same-week or last-day")
	flags.StringVar(&rf.until, "until", "", "end on this date, inclusive")
	flags.IntVar(&rf.endCount, "end-count", 0, "end after this many occurrences")
	flags.StringVar(&rf.text, "rule", "", "read the rule from its RRULE form instead of flags")
	flags.StringVar(&rf.hex, "hex", "", "read the rule from a hex encoded record instead of flags")
	cmd.MarkFlagsMutuallyExclusive("rule", "hex")
	cmd.MarkFlagsMutuallyExclusive("until", "end-count")
	return rf
}

func parseTime(s string, loc *time.Location) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse date %q", s)
}

// rule builds the rule described by the flags and checks it against the
// picker settings.
func (a *app) rule(rf *ruleFlags) (recurrence.Rule, error) {
	loc, err := a.location()
	if err != nil {
		return recurrence.Rule{}, err
	}

	var r recurrence.Rule
	switch {
	case rf.text != "":
		r, err = format.ParseRRule(rf.text, loc)
	case rf.hex != "":
		r, err = format.DecodeHex(rf.hex, loc)
	default:
		r, err = rf.build(loc)
	}
	if err != nil {
		return recurrence.Rule{}, err
	}

	settings, err := a.settings()
	if err != nil {
		return recurrence.Rule{}, err
	}
	if err := settings.Validate(r); err != nil {
		return recurrence.Rule{}, err
	}

	a.logger.Debug("rule built", "rule", r.String())
	return r, nil
}

func (rf *ruleFlags) build(loc *time.Location) (recurrence.Rule, error) {
	start := time.Now().In(loc).Truncate(time.Minute)
	if rf.start != "" {
		t, err := parseTime(rf.start, loc)
		if err != nil {
			return recurrence.Rule{}, err
		}
		start = t
	}

	period, err := recurrence.ParsePeriod(rf.period)
	if err != nil {
		return recurrence.Rule{}, err
	}

	mutations := []recurrence.Mutation{recurrence.WithFrequency(rf.frequency)}
	switch period {
	case recurrence.Weekly:
		if rf.days != "" {
			mask, err := recurrence.ParseWeekdays(rf.days)
			if err != nil {
				return recurrence.Rule{}, err
			}
			mutations = append(mutations, recurrence.WithWeeklyDays(mask))
		}
	case recurrence.Monthly:
		d, err := recurrence.ParseMonthlyDay(rf.monthly)
		if err != nil {
			return recurrence.Rule{}, err
		}
		mutations = append(mutations, recurrence.WithMonthlyDay(d))
	}

	switch {
	case rf.until != "":
		until, err := parseTime(rf.until, loc)
		if err != nil {
			return recurrence.Rule{}, err
		}
		mutations = append(mutations, recurrence.WithEndDate(until))
	case rf.endCount > 0:
		mutations = append(mutations, recurrence.WithEndCount(rf.endCount))
	case rf.endCount < 0:
		return recurrence.Rule{}, errors.New("end count must be positive")
	}

	return recurrence.New(start, period, mutations...)
}
