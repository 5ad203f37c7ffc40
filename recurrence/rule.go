package recurrence

import (
	"fmt"
	"strings"
	"time"

	"github.com/samber/mo"
)

// Rule describes how an event repeats. It is a plain value: copies are
// independent and the zero value is not a valid rule, use New.
type Rule struct {
	start      time.Time
	period     Period
	frequency  int
	daySetting int // weekday mask when weekly, MonthlyDay when monthly

	endType  EndType
	endCount int
	endDate  time.Time

	isDefault bool
}

// New creates a default rule starting at start: it repeats every period,
// never ends, and weekly and monthly rules repeat on start's day. The
// optional mutations are then applied in order.
func New(start time.Time, period Period, mutations ...Mutation) (Rule, error) {
	if !period.valid() {
		return Rule{}, fmt.Errorf("%w: unknown period %d", ErrInvalidArgument, int(period))
	}
	r := Rule{start: start, frequency: 1}
	r.resetPeriod(period)
	r.refreshDefault()
	return Apply(r, mutations...)
}

// MustNew is like New but panics on error. Intended for tests and
// package-level presets.
func MustNew(start time.Time, period Period, mutations ...Mutation) Rule {
	r, err := New(start, period, mutations...)
	if err != nil {
		panic(err)
	}
	return r
}

// Start returns the first occurrence of the rule.
func (r Rule) Start() time.Time { return r.start }

// Period returns the repeat unit.
func (r Rule) Period() Period { return r.period }

// Frequency returns after how many periods the event repeats.
func (r Rule) Frequency() int { return r.frequency }

// DaySetting returns the raw day setting: the weekday mask for weekly rules,
// the MonthlyDay for monthly rules and 0 otherwise.
func (r Rule) DaySetting() int { return r.daySetting }

// WeeklyDays returns the weekday mask, or 0 if the rule is not weekly.
func (r Rule) WeeklyDays() int {
	if r.period != Weekly {
		return 0
	}
	return r.daySetting
}

// MonthlyDay returns the monthly day setting. Only meaningful for monthly rules.
func (r Rule) MonthlyDay() MonthlyDay {
	if r.period != Monthly {
		return SameDayOfMonth
	}
	return MonthlyDay(r.daySetting)
}

// EndType returns how the rule ends.
func (r Rule) EndType() EndType { return r.endType }

// EndDate returns the end date when the rule ends by date.
func (r Rule) EndDate() mo.Option[time.Time] {
	if r.endType != EndByDate {
		return mo.None[time.Time]()
	}
	return mo.Some(r.endDate)
}

// EndCount returns the number of occurrences when the rule ends by count.
func (r Rule) EndCount() mo.Option[int] {
	if r.endType != EndByCount {
		return mo.None[int]()
	}
	return mo.Some(r.endCount)
}

// IsDefault reports whether the rule is the simplest form of its period.
// It only selects a terser phrasing and never affects occurrences.
func (r Rule) IsDefault() bool { return r.isDefault }

// IsRecurringOnDays reports whether the rule is weekly and repeats on all
// weekdays of mask.
func (r Rule) IsRecurringOnDays(mask int) bool {
	return r.period == Weekly && r.daySetting&mask == mask
}

// Equal reports whether both rules are identical, comparing moments exactly.
func (r Rule) Equal(other Rule) bool {
	return r.start.Equal(other.start) && r.EqualIgnoringStart(other)
}

// EqualIgnoringStart compares everything but the start date. Used to match
// a rule against presets regardless of their anchor.
func (r Rule) EqualIgnoringStart(other Rule) bool {
	return r.isDefault == other.isDefault &&
		r.period == other.period &&
		r.frequency == other.frequency &&
		r.daySetting == other.daySetting &&
		r.endType == other.endType &&
		r.endCount == other.endCount &&
		r.endDate.Equal(other.endDate)
}

func (r Rule) String() string {
	var sb strings.Builder
	sb.WriteString("Rule{start=")
	sb.WriteString(r.start.Format("2006-01-02T15:04:05"))
	sb.WriteString(", period=")
	sb.WriteString(r.period.String())
	if r.period != None {
		fmt.Fprintf(&sb, ", frequency=%d", r.frequency)
	}
	switch r.period {
	case Weekly:
		codes := make([]string, 0, 7)
		for _, d := range Weekdays(r.daySetting) {
			codes = append(codes, WeekdayCode(d))
		}
		sb.WriteString(", days=")
		sb.WriteString(strings.Join(codes, ","))
	case Monthly:
		sb.WriteString(", monthly=")
		sb.WriteString(MonthlyDay(r.daySetting).String())
	}
	switch r.endType {
	case EndByDate:
		sb.WriteString(", until=")
		sb.WriteString(r.endDate.Format("2006-01-02"))
	case EndByCount:
		fmt.Fprintf(&sb, ", count=%d", r.endCount)
	}
	if r.isDefault {
		sb.WriteString(", default")
	}
	sb.WriteString("}")
	return sb.String()
}

// computeDefault derives the default flag from the other fields.
func (r Rule) computeDefault() bool {
	if r.period == None {
		return true
	}
	if r.frequency != 1 || r.endType != EndNever {
		return false
	}
	switch r.period {
	case Weekly:
		return r.daySetting == WeekdayBit(r.start.Weekday())
	case Monthly:
		return MonthlyDay(r.daySetting) == SameDayOfMonth
	}
	return true
}

func (r *Rule) refreshDefault() {
	r.isDefault = r.computeDefault()
}

// resetPeriod switches the period and puts the day setting back to its
// default. Switching to None clears every other field.
func (r *Rule) resetPeriod(p Period) {
	r.period = p
	r.daySetting = 0
	switch p {
	case None:
		r.frequency = 1
		r.endType = EndNever
		r.endCount = 0
		r.endDate = time.Time{}
	case Weekly:
		r.daySetting = WeekdayBit(r.start.Weekday())
	case Monthly:
		r.daySetting = int(SameDayOfMonth)
	}
}

// Fields is the flat view of a rule used by codecs.
type Fields struct {
	Start      time.Time
	Period     Period
	Frequency  int
	DaySetting int
	EndType    EndType
	EndCount   int
	EndDate    time.Time // zero unless EndType is EndByDate
	Default    bool
}

// Fields returns the flat view of r.
func (r Rule) Fields() Fields {
	return Fields{
		Start:      r.start,
		Period:     r.period,
		Frequency:  r.frequency,
		DaySetting: r.daySetting,
		EndType:    r.endType,
		EndCount:   r.endCount,
		EndDate:    r.endDate,
		Default:    r.isDefault,
	}
}

// FromFields rebuilds a rule from its flat view. Every invariant a mutation
// would maintain is checked, so a rule that no sequence of mutations could
// produce is rejected with ErrInvalidArgument. The Default field is derived
// again and not trusted.
func FromFields(f Fields) (Rule, error) {
	if !f.Period.valid() {
		return Rule{}, fmt.Errorf("%w: unknown period %d", ErrInvalidArgument, int(f.Period))
	}
	if f.Frequency < 1 {
		return Rule{}, fmt.Errorf("%w: frequency must be 1 or greater, got %d", ErrInvalidArgument, f.Frequency)
	}

	switch f.Period {
	case None:
		if f.Frequency != 1 || f.DaySetting != 0 || f.EndType != EndNever {
			return Rule{}, fmt.Errorf("%w: non-repeating rule with recurrence settings", ErrInvalidArgument)
		}
	case Daily, Yearly:
		if f.DaySetting != 0 {
			return Rule{}, fmt.Errorf("%w: day setting %d on %s rule", ErrInvalidArgument, f.DaySetting, f.Period)
		}
	case Weekly:
		if f.DaySetting&^EveryDayOfWeek != 0 || f.DaySetting == 0 {
			return Rule{}, fmt.Errorf("%w: weekly day setting %#b", ErrInvalidArgument, f.DaySetting)
		}
		if f.DaySetting == EveryDayOfWeek && f.Frequency == 1 {
			return Rule{}, fmt.Errorf("%w: weekly rule on every day should be daily", ErrInvalidArgument)
		}
	case Monthly:
		d := MonthlyDay(f.DaySetting)
		if !d.valid() {
			return Rule{}, fmt.Errorf("%w: monthly day setting %d", ErrInvalidArgument, f.DaySetting)
		}
		if d == LastDayOfMonth && !isLastDayOfMonth(f.Start) {
			return Rule{}, fmt.Errorf("%w: last day of month rule not starting on a month end", ErrInvalidArgument)
		}
	}

	switch f.EndType {
	case EndNever:
		if f.EndCount != 0 || !f.EndDate.IsZero() {
			return Rule{}, fmt.Errorf("%w: never ending rule with end bound", ErrInvalidArgument)
		}
	case EndByDate:
		if f.EndCount != 0 {
			return Rule{}, fmt.Errorf("%w: end by date with end count", ErrInvalidArgument)
		}
		if onSameDayOrAfter(f.Start, f.EndDate) {
			return Rule{}, fmt.Errorf("%w: end date must be after start date", ErrInvalidArgument)
		}
	case EndByCount:
		if f.EndCount < 1 || !f.EndDate.IsZero() {
			return Rule{}, fmt.Errorf("%w: end count %d", ErrInvalidArgument, f.EndCount)
		}
	default:
		return Rule{}, fmt.Errorf("%w: unknown end type %d", ErrInvalidArgument, int(f.EndType))
	}

	r := Rule{
		start:      f.Start,
		period:     f.Period,
		frequency:  f.Frequency,
		daySetting: f.DaySetting,
		endType:    f.EndType,
		endCount:   f.EndCount,
		endDate:    f.EndDate,
	}
	r.refreshDefault()
	return r, nil
}
