package recurrence

import (
	"fmt"
	"iter"
	"time"
)

// Generate returns the first count occurrences on or after lowerBound. A
// zero lowerBound means "from the start". The start itself is the first
// event and is never part of the result.
func (r Rule) Generate(lowerBound time.Time, count int) ([]time.Time, error) {
	return r.GenerateFrom(r.start, 0, lowerBound, count)
}

// GenerateFrom computes occurrences from a known one instead of from the
// start. base must be an occurrence of the rule (or its start) and
// baseCount the number of occurrences generated before and including it,
// not counting the start. This avoids walking the whole sequence again when
// the previous occurrence is already known.
//
// The end count applies to every generated occurrence, including those
// skipped because they fall before lowerBound. Fewer than count
// occurrences are returned when the rule ends first.
func (r Rule) GenerateFrom(base time.Time, baseCount int, lowerBound time.Time, count int) ([]time.Time, error) {
	if count < 1 {
		return nil, fmt.Errorf("%w: occurrence count must be 1 or greater, got %d", ErrInvalidArgument, count)
	}
	out, _ := r.generate(base, baseCount, lowerBound, count)
	return out, nil
}

// Between returns all occurrences in [from, to).
func (r Rule) Between(from, to time.Time) []time.Time {
	var out []time.Time
	for t := range r.Occurrences(from) {
		if !t.Before(to) {
			break
		}
		out = append(out, t)
	}
	return out
}

// Occurrences returns the lazy sequence of occurrences on or after
// lowerBound. Each step resumes from the previous occurrence, so iterating
// n items costs O(n) rule steps. The sequence is infinite for rules that
// never end.
func (r Rule) Occurrences(lowerBound time.Time) iter.Seq[time.Time] {
	return func(yield func(time.Time) bool) {
		base, repeats := r.start, 0
		bound := lowerBound
		for {
			next, n := r.generate(base, repeats, bound, 1)
			if len(next) == 0 {
				return
			}
			if !yield(next[0]) {
				return
			}
			// Everything from here on is past the bound already.
			base, repeats, bound = next[0], n, next[0]
		}
	}
}

// generate is the stepping algorithm. It returns the occurrences found and
// the occurrence counter after the last one emitted.
func (r Rule) generate(base time.Time, baseCount int, lowerBound time.Time, count int) ([]time.Time, int) {
	var out []time.Time
	from := lowerBound
	if from.IsZero() {
		from = r.start
	}

	if r.period == None || (r.endType == EndByDate && !onSameDayOrAfter(r.endDate, from)) {
		return out, baseCount
	}

	g := &generation{
		rule:    r,
		current: base,
		repeats: baseCount,
		from:    from,
		count:   count,
	}

	switch r.period {
	case Daily, Yearly:
		g.stepSimple()
	case Weekly:
		g.stepWeekly()
	case Monthly:
		g.stepMonthly()
	}
	return g.out, g.repeats
}

// generation holds the scratch state of one generate call.
type generation struct {
	rule    Rule
	current time.Time
	repeats int
	from    time.Time
	after   bool
	count   int
	out     []time.Time
}

func (g *generation) countReached() bool {
	return g.rule.endType == EndByCount && g.repeats >= g.rule.endCount
}

func (g *generation) pastEnd() bool {
	return g.rule.endType == EndByDate && !onSameDayOrAfter(g.rule.endDate, g.current)
}

// emit records the current occurrence and reports whether generation is
// done.
func (g *generation) emit() bool {
	g.repeats++
	if !g.after && !g.current.Before(g.from) {
		g.after = true
	}
	if g.after {
		g.out = append(g.out, g.current)
	}
	return len(g.out) >= g.count
}

func (g *generation) stepSimple() {
	start := g.rule.start
	for {
		if g.countReached() {
			return
		}
		if g.rule.period == Daily {
			g.current = g.current.AddDate(0, 0, g.rule.frequency)
		} else {
			// Feb 29 anchors land on Feb 28 in common years.
			y := g.current.Year() + g.rule.frequency
			m := start.Month()
			d := min(start.Day(), daysIn(y, m))
			g.current = withDate(g.current, y, m, d)
		}
		if g.pastEnd() {
			return
		}
		if g.emit() {
			return
		}
	}
}

func (g *generation) stepWeekly() {
	skipped := 0
	firstWeek := true
	for {
		for d := time.Sunday; d <= time.Saturday; d++ {
			if firstWeek && g.current.Weekday() >= d {
				continue
			}
			if g.countReached() {
				return
			}
			skipped++
			if g.rule.daySetting&WeekdayBit(d) == 0 {
				continue
			}
			g.current = g.current.AddDate(0, 0, skipped)
			skipped = 0
			if g.pastEnd() {
				return
			}
			if g.emit() {
				return
			}
		}
		if g.rule.frequency > 1 {
			g.current = g.current.AddDate(0, 0, 7*(g.rule.frequency-1))
		}
		firstWeek = false
	}
}

func (g *generation) stepMonthly() {
	anchor := g.rule.start
	anchorDay := anchor.Day()
	anchorWeekday := anchor.Weekday()
	anchorWeek := weekOfMonth(anchor)
	setting := MonthlyDay(g.rule.daySetting)

	year, month := g.current.Year(), g.current.Month()
	for {
		if g.countReached() {
			return
		}
		year, month = addMonths(year, month, g.rule.frequency)

		var day int
		switch setting {
		case LastDayOfMonth:
			day = daysIn(year, month)
		case SameDayOfWeek:
			if anchorWeek == 5 {
				day = lastWeekday(year, month, anchorWeekday)
			} else {
				day = nthWeekday(year, month, anchorWeekday, anchorWeek)
			}
		default:
			if anchorDay > daysIn(year, month) {
				// Month too short for the anchor day: skip it.
				continue
			}
			day = anchorDay
		}
		g.current = withDate(g.current, year, month, day)

		if g.pastEnd() {
			return
		}
		if g.emit() {
			return
		}
	}
}
