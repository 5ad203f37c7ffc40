package icalendar

import (
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/samber/mo"
	"github.com/teambition/rrule-go"

	"github.com/cyp0633/librecur/recurrence"
)

// ErrUnsupported is returned for iCalendar rules that cannot be expressed as
// a recurrence.Rule, and for rules without an iCalendar form.
var ErrUnsupported = errors.New("unsupported recurrence rule")

// rruleWeekdays is indexed by time.Weekday.
var rruleWeekdays = [7]rrule.Weekday{rrule.SU, rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA}

// RRuleWeekday returns the rrule-go weekday of d.
func RRuleWeekday(d time.Weekday) rrule.Weekday {
	return rruleWeekdays[d%7]
}

// TimeWeekday returns the weekday of wd, dropping its ordinal.
func TimeWeekday(wd rrule.Weekday) time.Weekday {
	// rrule counts from Monday.
	return time.Weekday((wd.Day() + 1) % 7)
}

// ROption converts r to RFC 5545 rule options. DTSTART is left unset, as it
// belongs to the event. A rule that does not repeat has no options.
//
// Two details differ from RFC 5545 defaults. COUNT includes the first
// occurrence, so it is one more than the end count. UNTIL is the last
// second of the end date's day, as end dates are inclusive.
func ROption(r recurrence.Rule) mo.Option[rrule.ROption] {
	if r.Period() == recurrence.None {
		return mo.None[rrule.ROption]()
	}

	start := r.Start()
	opt := rrule.ROption{
		Interval: r.Frequency(),
		// Weekly rules walk weeks from Sunday.
		Wkst: rrule.SU,
	}

	switch r.Period() {
	case recurrence.Daily:
		opt.Freq = rrule.DAILY
	case recurrence.Weekly:
		opt.Freq = rrule.WEEKLY
		for _, d := range recurrence.Weekdays(r.WeeklyDays()) {
			opt.Byweekday = append(opt.Byweekday, rruleWeekdays[d])
		}
	case recurrence.Monthly:
		opt.Freq = rrule.MONTHLY
		switch r.MonthlyDay() {
		case recurrence.SameDayOfMonth:
			opt.Bymonthday = []int{start.Day()}
		case recurrence.SameDayOfWeek:
			n := recurrence.WeekOfMonth(start)
			if n == 5 {
				n = -1
			}
			wd := rruleWeekdays[start.Weekday()]
			opt.Byweekday = []rrule.Weekday{wd.Nth(n)}
		case recurrence.LastDayOfMonth:
			opt.Bymonthday = []int{-1}
		}
	case recurrence.Yearly:
		opt.Freq = rrule.YEARLY
	}

	if end, ok := r.EndDate().Get(); ok {
		y, m, d := end.Date()
		opt.Until = time.Date(y, m, d, 23, 59, 59, 0, end.Location())
	} else if count, ok := r.EndCount().Get(); ok {
		opt.Count = count + 1
	}

	return mo.Some(opt)
}

// ToRRule builds an rrule-go expander for r anchored on its start. Its
// sequence includes the start itself. Yearly rules on February 29 only
// repeat in leap years there, while r falls back to February 28.
func ToRRule(r recurrence.Rule) (*rrule.RRule, error) {
	opt, ok := ROption(r).Get()
	if !ok {
		return nil, fmt.Errorf("%w: rule does not repeat", ErrUnsupported)
	}
	opt.Dtstart = r.Start()
	rr, err := rrule.NewRRule(opt)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnsupported, err)
	}
	return rr, nil
}

// RuleFromROption builds a rule starting at start from RFC 5545 rule
// options. Only what a recurrence.Rule can express is accepted: the day of
// monthly and yearly rules comes from start, so BYMONTHDAY and BYDAY only
// select between the start's day, its weekday in the month and the last
// day of the month. Options that would expand differently from the built
// rule are rejected with ErrUnsupported.
func RuleFromROption(start time.Time, opt rrule.ROption) (recurrence.Rule, error) {
	if len(opt.Byyearday) > 0 || len(opt.Byweekno) > 0 || len(opt.Byhour) > 0 ||
		len(opt.Byminute) > 0 || len(opt.Bysecond) > 0 || len(opt.Byeaster) > 0 {
		return recurrence.Rule{}, fmt.Errorf("%w: only day level rule parts are supported", ErrUnsupported)
	}

	var period recurrence.Period
	switch opt.Freq {
	case rrule.DAILY:
		period = recurrence.Daily
	case rrule.WEEKLY:
		period = recurrence.Weekly
	case rrule.MONTHLY:
		period = recurrence.Monthly
	case rrule.YEARLY:
		period = recurrence.Yearly
	default:
		return recurrence.Rule{}, fmt.Errorf("%w: frequency %s", ErrUnsupported, opt.Freq)
	}

	var mutations []recurrence.Mutation
	if opt.Interval > 0 {
		mutations = append(mutations, recurrence.WithFrequency(opt.Interval))
	}

	switch period {
	case recurrence.Weekly:
		if len(opt.Byweekday) > 0 {
			mask := 0
			for _, wd := range opt.Byweekday {
				mask |= recurrence.WeekdayBit(TimeWeekday(wd))
			}
			mutations = append(mutations, recurrence.WithWeeklyDays(mask))
		}
	case recurrence.Monthly:
		switch {
		case len(opt.Bymonthday) == 1 && opt.Bymonthday[0] == -1:
			mutations = append(mutations, recurrence.WithMonthlyDay(recurrence.LastDayOfMonth))
		case len(opt.Byweekday) > 0:
			mutations = append(mutations, recurrence.WithMonthlyDay(recurrence.SameDayOfWeek))
		}
	}

	switch {
	case opt.Count > 0 && !opt.Until.IsZero():
		return recurrence.Rule{}, fmt.Errorf("%w: both COUNT and UNTIL", ErrUnsupported)
	case opt.Count == 1:
		// Only the start itself.
		mutations = append(mutations, recurrence.WithPeriod(recurrence.None))
	case opt.Count > 1:
		mutations = append(mutations, recurrence.WithEndCount(opt.Count-1))
	case !opt.Until.IsZero():
		mutations = append(mutations, recurrence.WithEndDate(opt.Until.In(start.Location())))
	}

	r, err := recurrence.New(start, period, mutations...)
	if err != nil {
		return recurrence.Rule{}, fmt.Errorf("%w: %w", ErrUnsupported, err)
	}

	want, ok := ROption(r).Get()
	if !ok {
		return r, nil
	}
	if !partsOf(start, opt).equal(partsOf(start, want)) {
		return recurrence.Rule{}, fmt.Errorf("%w: %s does not fit a rule starting %s",
			ErrUnsupported, opt.RRuleString(), start.Format("Mon 2006-01-02"))
	}
	if weekStartMatters(start, opt) {
		return recurrence.Rule{}, fmt.Errorf("%w: weekly rule with WKST=%s", ErrUnsupported, opt.Wkst.String())
	}
	return r, nil
}

// ruleParts are the options that decide which days a rule selects, with
// the values RFC 5545 takes from DTSTART filled in.
type ruleParts struct {
	freq       rrule.Frequency
	interval   int
	byweekday  map[rrule.Weekday]bool
	bymonthday map[int]bool
	bymonth    map[int]bool
	bysetpos   map[int]bool
}

func partsOf(start time.Time, opt rrule.ROption) ruleParts {
	p := ruleParts{
		freq:       opt.Freq,
		interval:   max(opt.Interval, 1),
		byweekday:  make(map[rrule.Weekday]bool),
		bymonthday: make(map[int]bool),
		bymonth:    make(map[int]bool),
		bysetpos:   make(map[int]bool),
	}
	for _, wd := range opt.Byweekday {
		p.byweekday[wd] = true
	}
	for _, d := range opt.Bymonthday {
		p.bymonthday[d] = true
	}
	for _, m := range opt.Bymonth {
		p.bymonth[m] = true
	}
	for _, n := range opt.Bysetpos {
		p.bysetpos[n] = true
	}

	switch p.freq {
	case rrule.WEEKLY:
		if len(p.byweekday) == 0 {
			p.byweekday[RRuleWeekday(start.Weekday())] = true
		}
		if p.interval == 1 && p.allPlainWeekdays() {
			p.freq = rrule.DAILY
			clear(p.byweekday)
		}
	case rrule.MONTHLY:
		if len(p.byweekday) == 0 && len(p.bymonthday) == 0 {
			p.bymonthday[start.Day()] = true
		}
	case rrule.YEARLY:
		if len(p.byweekday) == 0 && len(p.bymonthday) == 0 && len(p.bymonth) == 0 {
			p.bymonth[int(start.Month())] = true
			p.bymonthday[start.Day()] = true
		}
	}
	return p
}

func (p ruleParts) allPlainWeekdays() bool {
	if len(p.byweekday) != 7 {
		return false
	}
	for _, wd := range rruleWeekdays {
		if !p.byweekday[wd] {
			return false
		}
	}
	return true
}

func (p ruleParts) equal(o ruleParts) bool {
	return p.freq == o.freq && p.interval == o.interval &&
		maps.Equal(p.byweekday, o.byweekday) &&
		maps.Equal(p.bymonthday, o.bymonthday) &&
		maps.Equal(p.bymonth, o.bymonth) &&
		maps.Equal(p.bysetpos, o.bysetpos)
}

// weekStartMatters reports whether a weekly rule groups its days into
// different weeks than a Sunday based week would. That happens when it
// skips weeks and Sunday shares a week with another selected day.
func weekStartMatters(start time.Time, opt rrule.ROption) bool {
	if opt.Freq != rrule.WEEKLY || opt.Interval <= 1 || opt.Wkst.Day() == rrule.SU.Day() {
		return false
	}
	days := map[time.Weekday]bool{start.Weekday(): true}
	for _, wd := range opt.Byweekday {
		days[TimeWeekday(wd)] = true
	}
	return days[time.Sunday] && len(days) > 1
}
