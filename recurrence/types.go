package recurrence

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidArgument is returned when a mutation or query receives a value
// outside of its accepted range. The rule is left in its last valid state.
var ErrInvalidArgument = errors.New("invalid argument")

// Period is the unit a rule repeats in.
type Period int

const (
	// None means the event does not repeat.
	None Period = iota
	Daily
	Weekly
	Monthly
	Yearly
)

// String provides a human-readable representation of the Period.
func (p Period) String() string {
	switch p {
	case None:
		return "none"
	case Daily:
		return "daily"
	case Weekly:
		return "weekly"
	case Monthly:
		return "monthly"
	case Yearly:
		return "yearly"
	default:
		return fmt.Sprintf("Period(%d)", int(p))
	}
}

func (p Period) valid() bool {
	return p >= None && p <= Yearly
}

// ParsePeriod parses the lowercase name returned by Period.String.
func ParsePeriod(s string) (Period, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none", "":
		return None, nil
	case "daily":
		return Daily, nil
	case "weekly":
		return Weekly, nil
	case "monthly":
		return Monthly, nil
	case "yearly":
		return Yearly, nil
	}
	return None, fmt.Errorf("%w: unknown period %q", ErrInvalidArgument, s)
}

// MonthlyDay selects which day of the month a monthly rule lands on.
type MonthlyDay int

const (
	// SameDayOfMonth repeats on the start's day of month, skipping months
	// that are too short.
	SameDayOfMonth MonthlyDay = iota
	// SameDayOfWeek repeats on the start's weekday and week of month,
	// e.g. the third Thursday. A fifth-week start means "last".
	SameDayOfWeek
	// LastDayOfMonth repeats on the last day of every month. Only valid
	// when the start itself is the last day of its month.
	LastDayOfMonth
)

func (d MonthlyDay) String() string {
	switch d {
	case SameDayOfMonth:
		return "same-day"
	case SameDayOfWeek:
		return "same-week"
	case LastDayOfMonth:
		return "last-day"
	default:
		return fmt.Sprintf("MonthlyDay(%d)", int(d))
	}
}

func (d MonthlyDay) valid() bool {
	return d >= SameDayOfMonth && d <= LastDayOfMonth
}

// ParseMonthlyDay parses the name returned by MonthlyDay.String.
func ParseMonthlyDay(s string) (MonthlyDay, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "same-day", "":
		return SameDayOfMonth, nil
	case "same-week":
		return SameDayOfWeek, nil
	case "last-day":
		return LastDayOfMonth, nil
	}
	return SameDayOfMonth, fmt.Errorf("%w: unknown monthly day %q", ErrInvalidArgument, s)
}

// EndType tells how a rule stops producing occurrences.
type EndType int

const (
	EndNever EndType = iota
	EndByDate
	EndByCount
)

func (e EndType) String() string {
	switch e {
	case EndNever:
		return "never"
	case EndByDate:
		return "date"
	case EndByCount:
		return "count"
	default:
		return fmt.Sprintf("EndType(%d)", int(e))
	}
}

// Weekday bits of a weekly day setting. Bit 0 is unused so that the
// layout matches the binary record.
const (
	Sunday = 1 << (iota + 1)
	Monday
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday

	// EveryDayOfWeek is the mask with all seven weekdays set.
	EveryDayOfWeek = 0b11111110
)

// WeekdayBit returns the day setting bit for d.
func WeekdayBit(d time.Weekday) int {
	return 1 << (int(d) + 1)
}

var weekdayCodes = [7]string{"SU", "MO", "TU", "WE", "TH", "FR", "SA"}

// WeekdayCode returns the two-letter RFC 5545 code of d.
func WeekdayCode(d time.Weekday) string {
	return weekdayCodes[d%7]
}

// ParseWeekdayCode parses a two-letter RFC 5545 weekday code.
func ParseWeekdayCode(s string) (time.Weekday, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for i, code := range weekdayCodes {
		if code == s {
			return time.Weekday(i), nil
		}
	}
	return time.Sunday, fmt.Errorf("%w: unknown weekday %q", ErrInvalidArgument, s)
}

// ParseWeekdays parses a comma separated list of weekday codes
// ("MO,WE,FR") into a day setting mask.
func ParseWeekdays(s string) (int, error) {
	mask := 0
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		d, err := ParseWeekdayCode(part)
		if err != nil {
			return 0, err
		}
		mask |= WeekdayBit(d)
	}
	return mask, nil
}

// Weekdays lists the weekdays of mask, Sunday first.
func Weekdays(mask int) []time.Weekday {
	var days []time.Weekday
	for d := time.Sunday; d <= time.Saturday; d++ {
		if mask&WeekdayBit(d) != 0 {
			days = append(days, d)
		}
	}
	return days
}
