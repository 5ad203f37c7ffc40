package recurrence

import "time"

// Calendar helpers. All comparisons use the civil date of each moment in
// its own location.

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// onSameDayOrAfter reports whether a falls on b's calendar day or later.
func onSameDayOrAfter(a, b time.Time) bool {
	if a.Year() != b.Year() {
		return a.Year() > b.Year()
	}
	return a.YearDay() >= b.YearDay()
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func isLastDayOfMonth(t time.Time) bool {
	return t.Day() == daysIn(t.Year(), t.Month())
}

// weekOfMonth returns which occurrence of its weekday t is within its
// month, from 1 to 5.
func weekOfMonth(t time.Time) int {
	return (t.Day()-1)/7 + 1
}

// withDate keeps the wall clock and location of t on another date.
func withDate(t time.Time, year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func addMonths(year int, month time.Month, n int) (int, time.Month) {
	idx := int(month) - 1 + n
	year += idx / 12
	idx %= 12
	if idx < 0 {
		idx += 12
		year--
	}
	return year, time.Month(idx + 1)
}

// nthWeekday returns the day of month of the n-th wd in the month, n in 1..4.
func nthWeekday(year int, month time.Month, wd time.Weekday, n int) int {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).Weekday()
	return 1 + (int(wd)-int(first)+7)%7 + (n-1)*7
}

// lastWeekday returns the day of month of the last wd in the month.
func lastWeekday(year int, month time.Month, wd time.Weekday) int {
	last := daysIn(year, month)
	lw := time.Date(year, month, last, 0, 0, 0, 0, time.UTC).Weekday()
	return last - (int(lw)-int(wd)+7)%7
}

// WeekOfMonth returns the ordinal of t's weekday within its month: 1 to 4,
// or 5 when t is in the fifth week, which rules treat as "last".
func WeekOfMonth(t time.Time) int {
	return weekOfMonth(t)
}
