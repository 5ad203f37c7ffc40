package format

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/samber/mo"

	"github.com/cyp0633/librecur/recurrence"
)

const (
	rruleDateLayout    = "20060102T150405"
	rruleDateLayoutUTC = "20060102T150405Z"
	rrulePrefix        = "RRULE:"
)

// RRule renders r as a single-line RFC 5545 style rule with the keys in a
// fixed order: DTSTART, FREQ, INTERVAL, the period-specific keys, then UNTIL
// or COUNT. Moments are written as local wall clock time in their own
// location. A rule that does not repeat has no text form.
func RRule(r recurrence.Rule) mo.Option[string] {
	if r.Period() == recurrence.None {
		return mo.None[string]()
	}

	start := r.Start()
	parts := make([]string, 0, 6)
	parts = append(parts,
		"DTSTART="+start.Format(rruleDateLayout),
		"FREQ="+strings.ToUpper(r.Period().String()),
		"INTERVAL="+strconv.Itoa(r.Frequency()))

	switch r.Period() {
	case recurrence.Weekly:
		codes := make([]string, 0, 7)
		for _, d := range recurrence.Weekdays(r.WeeklyDays()) {
			codes = append(codes, recurrence.WeekdayCode(d))
		}
		parts = append(parts, "BYDAY="+strings.Join(codes, ","))
	case recurrence.Monthly:
		switch r.MonthlyDay() {
		case recurrence.SameDayOfMonth:
			parts = append(parts, "BYMONTHDAY="+strconv.Itoa(start.Day()))
		case recurrence.SameDayOfWeek:
			pos := recurrence.WeekOfMonth(start)
			if pos == 5 {
				pos = -1
			}
			parts = append(parts,
				"BYSETPOS="+strconv.Itoa(pos),
				"BYDAY="+recurrence.WeekdayCode(start.Weekday()))
		case recurrence.LastDayOfMonth:
			parts = append(parts, "BYMONTHDAY=-1")
		}
	case recurrence.Yearly:
		parts = append(parts,
			"BYMONTH="+strconv.Itoa(int(start.Month())),
			"BYMONTHDAY="+strconv.Itoa(start.Day()))
	}

	if end, ok := r.EndDate().Get(); ok {
		parts = append(parts, "UNTIL="+end.Format(rruleDateLayout))
	} else if count, ok := r.EndCount().Get(); ok {
		parts = append(parts, "COUNT="+strconv.Itoa(count))
	}

	return mo.Some(strings.Join(parts, ";"))
}

// ParseRRule reads a rule written by RRule. An optional "RRULE:" prefix is
// accepted and keys may come in any order. Moments without a trailing Z are
// read as wall clock time in loc.
//
// Only what RRule writes can be represented: the day of a monthly or yearly
// rule always comes from DTSTART, so BYMONTHDAY only selects between the
// start's day and the last day of the month.
func ParseRRule(text string, loc *time.Location) (recurrence.Rule, error) {
	if loc == nil {
		loc = time.Local
	}
	text = strings.TrimSpace(text)
	if len(text) >= len(rrulePrefix) && strings.EqualFold(text[:len(rrulePrefix)], rrulePrefix) {
		text = text[len(rrulePrefix):]
	}

	attrs := make(map[string]string)
	for _, part := range strings.Split(text, ";") {
		if part == "" {
			continue
		}
		key, value, ok := strings.Cut(part, "=")
		if !ok {
			return recurrence.Rule{}, fmt.Errorf("%w: rule part %q is not KEY=VALUE", ErrFormat, part)
		}
		key = strings.ToUpper(strings.TrimSpace(key))
		if _, dup := attrs[key]; dup {
			return recurrence.Rule{}, fmt.Errorf("%w: duplicate rule part %s", ErrFormat, key)
		}
		attrs[key] = strings.TrimSpace(value)
	}

	for key := range attrs {
		switch key {
		case "DTSTART", "FREQ", "INTERVAL", "BYDAY", "BYMONTHDAY", "BYSETPOS", "BYMONTH", "UNTIL", "COUNT":
		default:
			return recurrence.Rule{}, fmt.Errorf("%w: unsupported rule part %s", ErrFormat, key)
		}
	}

	startText, ok := attrs["DTSTART"]
	if !ok {
		return recurrence.Rule{}, fmt.Errorf("%w: rule has no DTSTART", ErrFormat)
	}
	start, err := parseRRuleDate(startText, loc)
	if err != nil {
		return recurrence.Rule{}, err
	}

	freq, ok := attrs["FREQ"]
	if !ok {
		return recurrence.Rule{}, fmt.Errorf("%w: rule has no FREQ", ErrFormat)
	}
	period, err := recurrence.ParsePeriod(freq)
	if err != nil || period == recurrence.None {
		return recurrence.Rule{}, fmt.Errorf("%w: unsupported FREQ %q", ErrFormat, freq)
	}

	var mutations []recurrence.Mutation
	if v, ok := attrs["INTERVAL"]; ok {
		n, err := parseRRuleInt("INTERVAL", v)
		if err != nil {
			return recurrence.Rule{}, err
		}
		mutations = append(mutations, recurrence.WithFrequency(n))
	}

	switch period {
	case recurrence.Weekly:
		byDay, ok := attrs["BYDAY"]
		if !ok {
			return recurrence.Rule{}, fmt.Errorf("%w: weekly rule has no BYDAY", ErrFormat)
		}
		mask, err := recurrence.ParseWeekdays(byDay)
		if err != nil {
			return recurrence.Rule{}, fmt.Errorf("%w: %w", ErrFormat, err)
		}
		mutations = append(mutations, recurrence.WithWeeklyDays(mask))
	case recurrence.Monthly:
		monthly := recurrence.SameDayOfMonth
		if v, ok := attrs["BYMONTHDAY"]; ok {
			day, err := parseRRuleInt("BYMONTHDAY", v)
			if err != nil {
				return recurrence.Rule{}, err
			}
			if day == -1 {
				monthly = recurrence.LastDayOfMonth
			}
		} else if _, ok := attrs["BYDAY"]; ok {
			monthly = recurrence.SameDayOfWeek
		}
		mutations = append(mutations, recurrence.WithMonthlyDay(monthly))
	}

	untilText, hasUntil := attrs["UNTIL"]
	countText, hasCount := attrs["COUNT"]
	switch {
	case hasUntil && hasCount:
		return recurrence.Rule{}, fmt.Errorf("%w: rule has both UNTIL and COUNT", ErrFormat)
	case hasUntil:
		until, err := parseRRuleDate(untilText, loc)
		if err != nil {
			return recurrence.Rule{}, err
		}
		mutations = append(mutations, recurrence.WithEndDate(until))
	case hasCount:
		n, err := parseRRuleInt("COUNT", countText)
		if err != nil {
			return recurrence.Rule{}, err
		}
		mutations = append(mutations, recurrence.WithEndCount(n))
	}

	r, err := recurrence.New(start, period, mutations...)
	if err != nil {
		return recurrence.Rule{}, fmt.Errorf("%w: %w", ErrFormat, err)
	}
	return r, nil
}

func parseRRuleDate(s string, loc *time.Location) (time.Time, error) {
	if strings.HasSuffix(s, "Z") {
		t, err := time.Parse(rruleDateLayoutUTC, s)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: bad date %q", ErrFormat, s)
		}
		return t, nil
	}
	t, err := time.ParseInLocation(rruleDateLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: bad date %q", ErrFormat, s)
	}
	return t, nil
}

func parseRRuleInt(key, s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %s is not a number: %q", ErrFormat, key, s)
	}
	return n, nil
}
