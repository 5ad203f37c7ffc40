package icalendar

import (
	"fmt"
	"io"
	"time"

	"github.com/emersion/go-ical"
	"github.com/google/uuid"
	"github.com/teambition/rrule-go"

	"github.com/cyp0633/librecur/recurrence"
)

// ProductID is the PRODID of calendars created by NewCalendar.
const ProductID = "-//cyp0633//librecur//EN"

type eventConfig struct {
	uid      string
	summary  string
	duration time.Duration
	stamp    time.Time
}

// EventOption configures NewEvent.
type EventOption func(*eventConfig)

// WithUID sets the event UID instead of a random one.
func WithUID(uid string) EventOption {
	return func(c *eventConfig) { c.uid = uid }
}

// WithSummary sets the event title.
func WithSummary(summary string) EventOption {
	return func(c *eventConfig) { c.summary = summary }
}

// WithDuration adds a DTEND this long after the start.
func WithDuration(d time.Duration) EventOption {
	return func(c *eventConfig) { c.duration = d }
}

// WithTimestamp sets DTSTAMP. The default is the current time.
func WithTimestamp(t time.Time) EventOption {
	return func(c *eventConfig) { c.stamp = t }
}

// NewEvent creates a VEVENT starting at the rule's start. Repeating rules
// get an RRULE property.
func NewEvent(r recurrence.Rule, opts ...EventOption) *ical.Event {
	cfg := eventConfig{
		uid:   uuid.NewString(),
		stamp: time.Now(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	event := ical.NewEvent()
	event.Props.SetText(ical.PropUID, cfg.uid)
	event.Props.SetDateTime(ical.PropDateTimeStamp, cfg.stamp.UTC())
	event.Props.SetDateTime(ical.PropDateTimeStart, r.Start())
	if cfg.duration > 0 {
		event.Props.SetDateTime(ical.PropDateTimeEnd, r.Start().Add(cfg.duration))
	}
	if cfg.summary != "" {
		event.Props.SetText(ical.PropSummary, cfg.summary)
	}

	if opt, ok := ROption(r).Get(); ok {
		// Set directly: SetText would escape the separators.
		prop := ical.NewProp(ical.PropRecurrenceRule)
		prop.Value = opt.RRuleString()
		event.Props.Set(prop)
	}
	return event
}

// NewCalendar wraps events in a VCALENDAR.
func NewCalendar(events ...*ical.Event) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, ProductID)
	for _, event := range events {
		cal.Children = append(cal.Children, event.Component)
	}
	return cal
}

// Encode writes cal in iCalendar format.
func Encode(w io.Writer, cal *ical.Calendar) error {
	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("failed to encode calendar: %w", err)
	}
	return nil
}

// RuleFromComponent reads the rule of a VEVENT or VTODO from its DTSTART
// and RRULE. A component without RRULE yields a non-repeating rule. Floating
// times are read in loc.
func RuleFromComponent(comp *ical.Component, loc *time.Location) (recurrence.Rule, error) {
	start, err := comp.Props.DateTime(ical.PropDateTimeStart, loc)
	if err != nil {
		return recurrence.Rule{}, fmt.Errorf("failed to read DTSTART: %w", err)
	}
	if start.IsZero() {
		return recurrence.Rule{}, fmt.Errorf("%w: component has no DTSTART", ErrUnsupported)
	}

	prop := comp.Props.Get(ical.PropRecurrenceRule)
	if prop == nil || prop.Value == "" {
		return recurrence.New(start, recurrence.None)
	}
	if len(comp.Props.Values(ical.PropRecurrenceRule)) > 1 {
		return recurrence.Rule{}, fmt.Errorf("%w: more than one RRULE", ErrUnsupported)
	}

	opt, err := rrule.StrToROption(prop.Value)
	if err != nil {
		return recurrence.Rule{}, fmt.Errorf("%w: %w", ErrUnsupported, err)
	}
	return RuleFromROption(start, *opt)
}

// Decode reads a calendar and returns the rule of each of its events.
func Decode(r io.Reader, loc *time.Location) ([]recurrence.Rule, error) {
	cal, err := ical.NewDecoder(r).Decode()
	if err != nil {
		return nil, fmt.Errorf("failed to decode calendar: %w", err)
	}

	var rules []recurrence.Rule
	for _, event := range cal.Events() {
		rule, err := RuleFromComponent(event.Component, loc)
		if err != nil {
			uid, _ := event.Props.Text(ical.PropUID)
			return nil, fmt.Errorf("event %q: %w", uid, err)
		}
		rules = append(rules, rule)
	}
	return rules, nil
}
