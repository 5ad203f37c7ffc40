package format

import (
	"errors"
	"fmt"
	"io"

	"golang.org/x/text/feature/plural"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// ErrInvalidLocale is returned when a locale table is incomplete.
var ErrInvalidLocale = errors.New("invalid locale")

// Quantity holds the variants of a pluralized string keyed by CLDR plural
// form: zero, one, two, few, many and other. Only other is required.
//
// Variants may use the {n} placeholder.
type Quantity map[string]string

var pluralFormNames = map[plural.Form]string{
	plural.Zero:  "zero",
	plural.One:   "one",
	plural.Two:   "two",
	plural.Few:   "few",
	plural.Many:  "many",
	plural.Other: "other",
}

func (q Quantity) pick(form plural.Form) string {
	if s, ok := q[pluralFormNames[form]]; ok {
		return s
	}
	return q["other"]
}

// Locale is the table of strings a Formatter composes phrases from.
//
// Placeholders: {n} in quantities, {days} in WeeklyOption, {ordinal} and
// {weekday} in MonthlySameWeek, {date} in EndDate.
type Locale struct {
	// Language is a BCP 47 tag selecting the plural rules.
	Language string `yaml:"language"`

	None    string   `yaml:"none"`
	Daily   Quantity `yaml:"daily"`
	Weekly  Quantity `yaml:"weekly"`
	Monthly Quantity `yaml:"monthly"`
	Yearly  Quantity `yaml:"yearly"`

	WeeklyOption  string `yaml:"weekly_option"`
	WeeklyAllDays string `yaml:"weekly_all_days"`
	DaySeparator  string `yaml:"day_separator"`

	MonthlySameDay  string `yaml:"monthly_same_day"`
	MonthlySameWeek string `yaml:"monthly_same_week"`
	MonthlyLastDay  string `yaml:"monthly_last_day"`

	// WeekdaysShort and Weekdays are indexed by time.Weekday, Sunday first.
	WeekdaysShort []string `yaml:"weekdays_short"`
	Weekdays      []string `yaml:"weekdays"`
	// Ordinals names the week of month: first to fourth, then last.
	Ordinals []string `yaml:"ordinals"`

	EndDate      string   `yaml:"end_date"`
	EndCount     Quantity `yaml:"end_count"`
	EndSeparator string   `yaml:"end_separator"`
}

// English returns the built-in English table.
func English() Locale {
	return Locale{
		Language: "en",
		None:     "Does not repeat",
		Daily:    Quantity{"one": "Every day", "other": "Every {n} days"},
		Weekly:   Quantity{"one": "Every week", "other": "Every {n} weeks"},
		Monthly:  Quantity{"one": "Every month", "other": "Every {n} months"},
		Yearly:   Quantity{"one": "Every year", "other": "Every {n} years"},

		WeeklyOption:  "on {days}",
		WeeklyAllDays: "every day of the week",
		DaySeparator:  ", ",

		MonthlySameDay:  "on the same day each month",
		MonthlySameWeek: "on every {ordinal} {weekday}",
		MonthlyLastDay:  "on the last day of the month",

		WeekdaysShort: []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"},
		Weekdays:      []string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"},
		Ordinals:      []string{"first", "second", "third", "fourth", "last"},

		EndDate:      "until {date}",
		EndCount:     Quantity{"one": "for {n} event", "other": "for {n} events"},
		EndSeparator: "; ",
	}
}

// LoadLocale reads a YAML locale table. Keys missing from the document
// keep their English value.
func LoadLocale(r io.Reader) (Locale, error) {
	var l Locale
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&l); err != nil {
		return Locale{}, fmt.Errorf("%w: %w", ErrInvalidLocale, err)
	}
	l.fillFrom(English())
	if err := l.Validate(); err != nil {
		return Locale{}, err
	}
	return l, nil
}

// fillFrom copies every unset entry of l from def. Quantities are replaced
// as a whole so that plural variants of two languages never mix.
func (l *Locale) fillFrom(def Locale) {
	str := func(dst *string, src string) {
		if *dst == "" {
			*dst = src
		}
	}
	qty := func(dst *Quantity, src Quantity) {
		if len(*dst) == 0 {
			*dst = src
		}
	}
	list := func(dst *[]string, src []string) {
		if len(*dst) == 0 {
			*dst = src
		}
	}

	str(&l.Language, def.Language)
	str(&l.None, def.None)
	qty(&l.Daily, def.Daily)
	qty(&l.Weekly, def.Weekly)
	qty(&l.Monthly, def.Monthly)
	qty(&l.Yearly, def.Yearly)
	str(&l.WeeklyOption, def.WeeklyOption)
	str(&l.WeeklyAllDays, def.WeeklyAllDays)
	str(&l.DaySeparator, def.DaySeparator)
	str(&l.MonthlySameDay, def.MonthlySameDay)
	str(&l.MonthlySameWeek, def.MonthlySameWeek)
	str(&l.MonthlyLastDay, def.MonthlyLastDay)
	list(&l.WeekdaysShort, def.WeekdaysShort)
	list(&l.Weekdays, def.Weekdays)
	list(&l.Ordinals, def.Ordinals)
	str(&l.EndDate, def.EndDate)
	qty(&l.EndCount, def.EndCount)
	str(&l.EndSeparator, def.EndSeparator)
}

// Validate checks that every table has the expected size and that every
// quantity has an other variant.
func (l Locale) Validate() error {
	if _, err := language.Parse(l.Language); err != nil {
		return fmt.Errorf("%w: language %q: %w", ErrInvalidLocale, l.Language, err)
	}
	quantities := map[string]Quantity{
		"daily":     l.Daily,
		"weekly":    l.Weekly,
		"monthly":   l.Monthly,
		"yearly":    l.Yearly,
		"end_count": l.EndCount,
	}
	for name, q := range quantities {
		if _, ok := q["other"]; !ok {
			return fmt.Errorf("%w: %s has no other variant", ErrInvalidLocale, name)
		}
	}
	if len(l.WeekdaysShort) != 7 || len(l.Weekdays) != 7 {
		return fmt.Errorf("%w: weekday tables need 7 names", ErrInvalidLocale)
	}
	if len(l.Ordinals) != 5 {
		return fmt.Errorf("%w: ordinals need 5 names, got %d", ErrInvalidLocale, len(l.Ordinals))
	}
	return nil
}
