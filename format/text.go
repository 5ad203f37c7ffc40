package format

import (
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/feature/plural"
	"golang.org/x/text/language"

	"github.com/cyp0633/librecur/recurrence"
)

// DefaultDateLayout is the layout used for end dates when no DateFormatter
// is given.
const DefaultDateLayout = "Jan 2, 2006"

// DateFormatter renders the end date of a rule.
type DateFormatter func(time.Time) string

// PluralRule selects the plural form for a count.
type PluralRule func(n int) plural.Form

// Formatter renders rules as human-readable phrases like
// "Every 2 weeks on Mon, Fri; for 10 events". It is safe for concurrent use.
type Formatter struct {
	locale Locale
	date   DateFormatter
	plural PluralRule
}

// FormatterOption configures a Formatter.
type FormatterOption func(*Formatter)

// WithDateFormatter sets how end dates are rendered.
func WithDateFormatter(f DateFormatter) FormatterOption {
	return func(fm *Formatter) {
		if f != nil {
			fm.date = f
		}
	}
}

// WithDateLayout renders end dates with a time layout.
func WithDateLayout(layout string) FormatterOption {
	return WithDateFormatter(func(t time.Time) string { return t.Format(layout) })
}

// WithPluralRule replaces the CLDR plural rules of the locale language.
func WithPluralRule(rule PluralRule) FormatterOption {
	return func(fm *Formatter) {
		if rule != nil {
			fm.plural = rule
		}
	}
}

// NewFormatter creates a Formatter for a validated locale.
func NewFormatter(locale Locale, opts ...FormatterOption) (*Formatter, error) {
	if err := locale.Validate(); err != nil {
		return nil, err
	}
	tag := language.MustParse(locale.Language)

	f := &Formatter{
		locale: locale,
		date:   func(t time.Time) string { return t.Format(DefaultDateLayout) },
		plural: func(n int) plural.Form {
			return plural.Cardinal.MatchPlural(tag, n, 0, 0, 0, 0)
		},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Format renders r with a one-off Formatter.
func Format(r recurrence.Rule, locale Locale, date DateFormatter) (string, error) {
	f, err := NewFormatter(locale, WithDateFormatter(date))
	if err != nil {
		return "", err
	}
	return f.Format(r), nil
}

// Format renders r. The phrase is the period clause, a qualifier when the
// rule is not in its default form, then the end clause.
func (f *Formatter) Format(r recurrence.Rule) string {
	l := f.locale
	var sb strings.Builder

	switch r.Period() {
	case recurrence.None:
		sb.WriteString(l.None)
	case recurrence.Daily:
		sb.WriteString(f.quantity(l.Daily, r.Frequency()))
	case recurrence.Weekly:
		sb.WriteString(f.quantity(l.Weekly, r.Frequency()))
	case recurrence.Monthly:
		sb.WriteString(f.quantity(l.Monthly, r.Frequency()))
	case recurrence.Yearly:
		sb.WriteString(f.quantity(l.Yearly, r.Frequency()))
	}

	if !r.IsDefault() {
		switch r.Period() {
		case recurrence.Weekly:
			sb.WriteByte(' ')
			sb.WriteString(strings.ReplaceAll(l.WeeklyOption, "{days}", f.dayList(r.WeeklyDays())))
		case recurrence.Monthly:
			sb.WriteString(" (")
			sb.WriteString(f.monthlyQualifier(r))
			sb.WriteString(")")
		}
	}

	if end, ok := r.EndDate().Get(); ok {
		sb.WriteString(l.EndSeparator)
		sb.WriteString(strings.ReplaceAll(l.EndDate, "{date}", f.date(end)))
	} else if count, ok := r.EndCount().Get(); ok {
		sb.WriteString(l.EndSeparator)
		sb.WriteString(f.quantity(l.EndCount, count))
	}

	return sb.String()
}

func (f *Formatter) quantity(q Quantity, n int) string {
	return strings.ReplaceAll(q.pick(f.plural(n)), "{n}", strconv.Itoa(n))
}

func (f *Formatter) dayList(mask int) string {
	if mask == recurrence.EveryDayOfWeek {
		return f.locale.WeeklyAllDays
	}
	names := make([]string, 0, 7)
	for _, d := range recurrence.Weekdays(mask) {
		names = append(names, f.locale.WeekdaysShort[d])
	}
	return strings.Join(names, f.locale.DaySeparator)
}

func (f *Formatter) monthlyQualifier(r recurrence.Rule) string {
	switch r.MonthlyDay() {
	case recurrence.SameDayOfWeek:
		start := r.Start()
		return strings.NewReplacer(
			"{ordinal}", f.locale.Ordinals[recurrence.WeekOfMonth(start)-1],
			"{weekday}", f.locale.Weekdays[start.Weekday()],
		).Replace(f.locale.MonthlySameWeek)
	case recurrence.LastDayOfMonth:
		return f.locale.MonthlyLastDay
	default:
		return f.locale.MonthlySameDay
	}
}
