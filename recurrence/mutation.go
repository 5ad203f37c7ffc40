package recurrence

import (
	"fmt"
	"time"
)

type mutationKind int

const (
	mutatePeriod mutationKind = iota
	mutateFrequency
	mutateWeeklyDays
	mutateMonthlyDay
	mutateEndNever
	mutateEndDate
	mutateEndCount
	mutateStart
)

// Mutation is one change to a rule, applied with Apply or one of the Rule
// setters. Mutations that would break an invariant either fail with
// ErrInvalidArgument or degrade the rule to a simpler valid form.
type Mutation struct {
	kind    mutationKind
	period  Period
	n       int
	monthly MonthlyDay
	date    time.Time
}

// WithPeriod changes the period. Changing to None resets every setting,
// weekly rules start repeating on the start's weekday and monthly rules on
// the start's day of month. Setting the current period is a no-op.
func WithPeriod(p Period) Mutation { return Mutation{kind: mutatePeriod, period: p} }

// WithFrequency sets after how many periods the event repeats.
func WithFrequency(f int) Mutation { return Mutation{kind: mutateFrequency, n: f} }

// WithWeeklyDays sets the weekday mask of a weekly rule. A mask without
// any weekday makes the rule non-repeating, and every weekday with a
// frequency of 1 turns it into a daily rule.
func WithWeeklyDays(mask int) Mutation { return Mutation{kind: mutateWeeklyDays, n: mask} }

// WithMonthlyDay sets the day selection of a monthly rule.
func WithMonthlyDay(d MonthlyDay) Mutation { return Mutation{kind: mutateMonthlyDay, monthly: d} }

// WithEndNever makes the rule repeat forever.
func WithEndNever() Mutation { return Mutation{kind: mutateEndNever} }

// WithEndDate makes the rule stop after the calendar day of t. An end date
// on the start day makes the rule non-repeating.
func WithEndDate(t time.Time) Mutation { return Mutation{kind: mutateEndDate, date: t} }

// WithEndCount makes the rule stop after n occurrences.
func WithEndCount(n int) Mutation { return Mutation{kind: mutateEndCount, n: n} }

// WithStart moves the start date.
func WithStart(t time.Time) Mutation { return Mutation{kind: mutateStart, date: t} }

// Apply returns r with the mutations applied in order. On error r is
// returned unchanged along with the error.
func Apply(r Rule, mutations ...Mutation) (Rule, error) {
	next := r
	for _, m := range mutations {
		if err := next.apply(m); err != nil {
			return r, err
		}
		next.refreshDefault()
	}
	return next, nil
}

func (r *Rule) apply(m Mutation) error {
	switch m.kind {
	case mutatePeriod:
		if !m.period.valid() {
			return fmt.Errorf("%w: unknown period %d", ErrInvalidArgument, int(m.period))
		}
		if m.period != r.period {
			r.resetPeriod(m.period)
		}

	case mutateFrequency:
		if m.n < 1 {
			return fmt.Errorf("%w: frequency must be 1 or greater, got %d", ErrInvalidArgument, m.n)
		}
		if r.period == None {
			return nil
		}
		r.frequency = m.n
		if r.period == Weekly && r.frequency == 1 && r.daySetting == EveryDayOfWeek {
			r.period = Daily
			r.daySetting = 0
		}

	case mutateWeeklyDays:
		mask := m.n
		if mask < 0 || mask > EveryDayOfWeek || (mask&1 == 1 && mask != 1) {
			return fmt.Errorf("%w: weekly day setting %#b", ErrInvalidArgument, mask)
		}
		if r.period != Weekly || mask == r.daySetting {
			return nil
		}
		switch {
		case mask <= 1:
			r.resetPeriod(None)
		case mask == EveryDayOfWeek && r.frequency == 1:
			r.period = Daily
			r.daySetting = 0
		default:
			r.daySetting = mask
		}

	case mutateMonthlyDay:
		if !m.monthly.valid() {
			return fmt.Errorf("%w: unknown monthly day %d", ErrInvalidArgument, int(m.monthly))
		}
		if r.period != Monthly || int(m.monthly) == r.daySetting {
			return nil
		}
		if m.monthly == LastDayOfMonth && !isLastDayOfMonth(r.start) {
			r.daySetting = int(SameDayOfMonth)
		} else {
			r.daySetting = int(m.monthly)
		}

	case mutateEndNever:
		if r.period == None {
			return nil
		}
		r.endType = EndNever
		r.endCount = 0
		r.endDate = time.Time{}

	case mutateEndDate:
		if !sameDay(m.date, r.start) && !onSameDayOrAfter(m.date, r.start) {
			return fmt.Errorf("%w: end date %s is before start date %s", ErrInvalidArgument,
				m.date.Format(time.DateOnly), r.start.Format(time.DateOnly))
		}
		if r.period == None {
			return nil
		}
		if sameDay(m.date, r.start) {
			r.resetPeriod(None)
			return nil
		}
		r.endType = EndByDate
		r.endDate = m.date
		r.endCount = 0

	case mutateEndCount:
		if m.n < 1 {
			return fmt.Errorf("%w: end count must be 1 or greater, got %d", ErrInvalidArgument, m.n)
		}
		if r.period == None {
			return nil
		}
		r.endType = EndByCount
		r.endCount = m.n
		r.endDate = time.Time{}

	case mutateStart:
		wasDefault := r.isDefault
		r.start = m.date
		if r.period == Weekly && wasDefault {
			r.daySetting = WeekdayBit(r.start.Weekday())
		} else if r.period == Monthly && MonthlyDay(r.daySetting) == LastDayOfMonth && !isLastDayOfMonth(r.start) {
			r.daySetting = int(SameDayOfMonth)
		}
		if r.endType == EndByDate && onSameDayOrAfter(r.start, r.endDate) {
			r.resetPeriod(None)
		}

	default:
		return fmt.Errorf("%w: unknown mutation", ErrInvalidArgument)
	}
	return nil
}

func (r *Rule) set(m Mutation) error {
	next, err := Apply(*r, m)
	if err != nil {
		return err
	}
	*r = next
	return nil
}

// SetPeriod is the in-place form of WithPeriod.
func (r *Rule) SetPeriod(p Period) error { return r.set(WithPeriod(p)) }

// SetFrequency is the in-place form of WithFrequency.
func (r *Rule) SetFrequency(f int) error { return r.set(WithFrequency(f)) }

// SetWeeklyDays is the in-place form of WithWeeklyDays.
func (r *Rule) SetWeeklyDays(mask int) error { return r.set(WithWeeklyDays(mask)) }

// SetMonthlyDay is the in-place form of WithMonthlyDay.
func (r *Rule) SetMonthlyDay(d MonthlyDay) error { return r.set(WithMonthlyDay(d)) }

// SetEndNever is the in-place form of WithEndNever.
func (r *Rule) SetEndNever() error { return r.set(WithEndNever()) }

// SetEndByDate is the in-place form of WithEndDate.
func (r *Rule) SetEndByDate(t time.Time) error { return r.set(WithEndDate(t)) }

// SetEndByCount is the in-place form of WithEndCount.
func (r *Rule) SetEndByCount(n int) error { return r.set(WithEndCount(n)) }

// SetStartDate is the in-place form of WithStart.
func (r *Rule) SetStartDate(t time.Time) error { return r.set(WithStart(t)) }
