package preset

import (
	"slices"
	"time"

	"github.com/samber/mo"

	"github.com/cyp0633/librecur/recurrence"
)

// Settings holds the limits and defaults a rule editor applies on top of
// the rule invariants.
type Settings struct {
	MaxFrequency int `mapstructure:"max_frequency"`
	MaxEndCount  int `mapstructure:"max_end_count"`
	// MaxEndDate is the latest end date allowed, if any.
	MaxEndDate mo.Option[time.Time] `mapstructure:"-"`

	DefaultEndCount int `mapstructure:"default_end_count"`
	// DefaultEndDateInterval is how far the default end date is from the
	// start: in periods of the rule when EndDateUsePeriod is set, in days
	// otherwise. Daily rules always count in days.
	DefaultEndDateInterval int  `mapstructure:"default_end_date_interval"`
	EndDateUsePeriod       bool `mapstructure:"end_date_use_period"`

	// Repeating periods a rule may use. None is always allowed.
	EnabledPeriods  []recurrence.Period  `mapstructure:"-"`
	EnabledEndTypes []recurrence.EndType `mapstructure:"-"`
}

// DefaultSettings are the limits of the standard rule editor.
var DefaultSettings = Settings{
	MaxFrequency:           99,
	MaxEndCount:            999,
	DefaultEndCount:        5,
	DefaultEndDateInterval: 3,
	EndDateUsePeriod:       true,
	EnabledPeriods:         []recurrence.Period{recurrence.Daily, recurrence.Weekly, recurrence.Monthly, recurrence.Yearly},
	EnabledEndTypes:        []recurrence.EndType{recurrence.EndNever, recurrence.EndByDate, recurrence.EndByCount},
}

// Check reports settings that cannot produce a valid rule.
func (s Settings) Check() error {
	switch {
	case s.MaxFrequency < 1:
		return newError(ErrInvalidInput, "max frequency must be at least 1, got %d", s.MaxFrequency)
	case s.MaxEndCount < 1:
		return newError(ErrInvalidInput, "max end count must be at least 1, got %d", s.MaxEndCount)
	case s.DefaultEndCount < 1 || s.DefaultEndCount > s.MaxEndCount:
		return newError(ErrInvalidInput, "default end count %d is outside 1..%d", s.DefaultEndCount, s.MaxEndCount)
	case s.DefaultEndDateInterval < 1:
		return newError(ErrInvalidInput, "default end date interval must be at least 1, got %d", s.DefaultEndDateInterval)
	case len(s.EnabledEndTypes) == 0:
		return newError(ErrInvalidInput, "no end type enabled")
	}
	return nil
}

// Validate reports whether r stays within the limits of s.
func (s Settings) Validate(r recurrence.Rule) error {
	if r.Period() == recurrence.None {
		return nil
	}
	if !slices.Contains(s.EnabledPeriods, r.Period()) {
		return newError(ErrNotAllowed, "%s rules are disabled", r.Period())
	}
	if r.Frequency() > s.MaxFrequency {
		return newError(ErrNotAllowed, "frequency %d is above the maximum of %d", r.Frequency(), s.MaxFrequency)
	}
	if !slices.Contains(s.EnabledEndTypes, r.EndType()) {
		return newError(ErrNotAllowed, "ending by %s is disabled", r.EndType())
	}
	if n, ok := r.EndCount().Get(); ok && n > s.MaxEndCount {
		return newError(ErrNotAllowed, "end count %d is above the maximum of %d", n, s.MaxEndCount)
	}
	if end, ok := r.EndDate().Get(); ok {
		if limit, ok := s.MaxEndDate.Get(); ok && end.After(limit) && !sameDay(end, limit) {
			return newError(ErrNotAllowed, "end date %s is after %s",
				end.Format(time.DateOnly), limit.Format(time.DateOnly))
		}
	}
	return nil
}

// DefaultEndDate returns the end date proposed for a rule of period p
// starting at start. It never goes past MaxEndDate.
func (s Settings) DefaultEndDate(start time.Time, p recurrence.Period) time.Time {
	n := s.DefaultEndDateInterval
	var end time.Time
	if !s.EndDateUsePeriod {
		end = start.AddDate(0, 0, n)
	} else {
		switch p {
		case recurrence.Weekly:
			end = start.AddDate(0, 0, 7*n)
		case recurrence.Monthly:
			end = addMonthsClamped(start, n)
		case recurrence.Yearly:
			end = addMonthsClamped(start, 12*n)
		default:
			end = start.AddDate(0, 0, n)
		}
	}
	if limit, ok := s.MaxEndDate.Get(); ok && (end.After(limit) || sameDay(end, limit)) {
		return limit
	}
	return end
}

// WithDefaultEnd makes r end the way t says, using the default end count or
// end date.
func (s Settings) WithDefaultEnd(r recurrence.Rule, t recurrence.EndType) (recurrence.Rule, error) {
	var m recurrence.Mutation
	switch t {
	case recurrence.EndNever:
		m = recurrence.WithEndNever()
	case recurrence.EndByCount:
		m = recurrence.WithEndCount(s.DefaultEndCount)
	case recurrence.EndByDate:
		m = recurrence.WithEndDate(s.DefaultEndDate(r.Start(), r.Period()))
	default:
		return r, newError(ErrInvalidInput, "unknown end type %s", t)
	}
	next, err := recurrence.Apply(r, m)
	if err != nil {
		return r, &Error{Type: ErrInvalidInput, Message: "cannot apply default end", Err: err}
	}
	return next, nil
}

// addMonthsClamped moves t by n months, landing on the last day of the
// target month when it is shorter than t's day.
func addMonthsClamped(t time.Time, n int) time.Time {
	first := time.Date(t.Year(), t.Month(), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	first = first.AddDate(0, n, 0)
	last := first.AddDate(0, 1, -1).Day()
	return first.AddDate(0, 0, min(t.Day(), last)-1)
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
