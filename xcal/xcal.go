package xcal

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/teambition/rrule-go"

	"github.com/cyp0633/librecur/icalendar"
	"github.com/cyp0633/librecur/recurrence"
)

// Namespace is the xCal namespace of RFC 6321.
const Namespace = "urn:ietf:params:xml:ns:icalendar-2.0"

// Element names
const (
	TagICalendar  = "icalendar"
	TagVCalendar  = "vcalendar"
	TagVEvent     = "vevent"
	TagProperties = "properties"
	TagComponents = "components"
	TagParameters = "parameters"
	TagDTStart    = "dtstart"
	TagRRule      = "rrule"
	TagRecur      = "recur"
	TagDateTime   = "date-time"
	TagText       = "text"
	TagTZID       = "tzid"
)

const (
	utcLayout   = "2006-01-02T15:04:05Z"
	localLayout = "2006-01-02T15:04:05"
)

// ErrFormat is returned for documents that are not valid xCal or hold rules
// that cannot be read back.
var ErrFormat = errors.New("invalid xCal document")

// Encode renders r as a vevent element holding its DTSTART and, for
// repeating rules, its RRULE.
func Encode(r recurrence.Rule) *etree.Element {
	event := etree.NewElement(TagVEvent)
	props := event.CreateElement(TagProperties)
	writeDateTime(props.CreateElement(TagDTStart), r.Start())

	if opt, ok := icalendar.ROption(r).Get(); ok {
		props.CreateElement(TagRRule).AddChild(encodeRecur(opt))
	}
	return event
}

func writeDateTime(prop *etree.Element, t time.Time) {
	if t.Location() == time.UTC {
		prop.CreateElement(TagDateTime).SetText(t.Format(utcLayout))
		return
	}
	params := prop.CreateElement(TagParameters)
	params.CreateElement(TagTZID).CreateElement(TagText).SetText(t.Location().String())
	prop.CreateElement(TagDateTime).SetText(t.Format(localLayout))
}

// encodeRecur follows the element order of the RFC 6321 schema.
func encodeRecur(opt rrule.ROption) *etree.Element {
	recur := etree.NewElement(TagRecur)
	recur.CreateElement("freq").SetText(opt.Freq.String())
	if !opt.Until.IsZero() {
		recur.CreateElement("until").SetText(opt.Until.UTC().Format(utcLayout))
	} else if opt.Count > 0 {
		recur.CreateElement("count").SetText(strconv.Itoa(opt.Count))
	}
	if opt.Interval > 1 {
		recur.CreateElement("interval").SetText(strconv.Itoa(opt.Interval))
	}
	for _, wd := range opt.Byweekday {
		code := recurrence.WeekdayCode(icalendar.TimeWeekday(wd))
		if n := wd.N(); n != 0 {
			code = strconv.Itoa(n) + code
		}
		recur.CreateElement("byday").SetText(code)
	}
	for _, d := range opt.Bymonthday {
		recur.CreateElement("bymonthday").SetText(strconv.Itoa(d))
	}
	recur.CreateElement("wkst").SetText(opt.Wkst.String())
	return recur
}

// Document wraps the events of rules in an icalendar root.
func Document(rules ...recurrence.Rule) *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement(TagICalendar)
	root.CreateAttr("xmlns", Namespace)
	cal := root.CreateElement(TagVCalendar)

	props := cal.CreateElement(TagProperties)
	props.CreateElement("prodid").CreateElement(TagText).SetText(icalendar.ProductID)
	props.CreateElement("version").CreateElement(TagText).SetText("2.0")

	components := cal.CreateElement(TagComponents)
	for _, r := range rules {
		components.AddChild(Encode(r))
	}
	return doc
}

// Marshal renders rules as an indented xCal document.
func Marshal(rules ...recurrence.Rule) (string, error) {
	doc := Document(rules...)
	doc.Indent(2)
	s, err := doc.WriteToString()
	if err != nil {
		return "", fmt.Errorf("failed to write xCal document: %w", err)
	}
	return s, nil
}

// Decode reads the rule of a vevent element. Times without a time zone are
// read in loc, as is a TZID naming loc itself.
func Decode(event *etree.Element, loc *time.Location) (recurrence.Rule, error) {
	props := event.SelectElement(TagProperties)
	if props == nil {
		return recurrence.Rule{}, fmt.Errorf("%w: %s has no properties", ErrFormat, event.Tag)
	}
	dtstart := props.SelectElement(TagDTStart)
	if dtstart == nil {
		return recurrence.Rule{}, fmt.Errorf("%w: missing dtstart", ErrFormat)
	}
	start, err := readDateTime(dtstart, loc)
	if err != nil {
		return recurrence.Rule{}, err
	}

	rrules := props.SelectElements(TagRRule)
	switch len(rrules) {
	case 0:
		return recurrence.New(start, recurrence.None)
	case 1:
	default:
		return recurrence.Rule{}, fmt.Errorf("%w: more than one rrule", ErrFormat)
	}

	recur := rrules[0].SelectElement(TagRecur)
	if recur == nil {
		return recurrence.Rule{}, fmt.Errorf("%w: rrule without recur", ErrFormat)
	}
	opt, err := decodeRecur(recur)
	if err != nil {
		return recurrence.Rule{}, err
	}
	r, err := icalendar.RuleFromROption(start, opt)
	if err != nil {
		return recurrence.Rule{}, fmt.Errorf("%w: %w", ErrFormat, err)
	}
	return r, nil
}

func readDateTime(prop *etree.Element, loc *time.Location) (time.Time, error) {
	elem := prop.SelectElement(TagDateTime)
	if elem == nil {
		return time.Time{}, fmt.Errorf("%w: %s without date-time", ErrFormat, prop.Tag)
	}
	text := strings.TrimSpace(elem.Text())
	if strings.HasSuffix(text, "Z") {
		t, err := time.Parse(utcLayout, text)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %w", ErrFormat, err)
		}
		return t, nil
	}

	if loc == nil {
		loc = time.Local
	}
	if tzid := prop.FindElement("./parameters/tzid/text"); tzid != nil {
		name := tzid.Text()
		if name != loc.String() {
			l, err := time.LoadLocation(name)
			if err != nil {
				return time.Time{}, fmt.Errorf("%w: unknown time zone %q", ErrFormat, name)
			}
			loc = l
		}
	}
	t, err := time.ParseInLocation(localLayout, text, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %w", ErrFormat, err)
	}
	return t, nil
}

func decodeRecur(recur *etree.Element) (rrule.ROption, error) {
	var opt rrule.ROption
	seenFreq := false
	for _, child := range recur.ChildElements() {
		value := strings.TrimSpace(child.Text())
		var err error
		switch child.Tag {
		case "freq":
			seenFreq = true
			opt.Freq, err = parseFreq(value)
		case "interval":
			opt.Interval, err = strconv.Atoi(value)
		case "count":
			opt.Count, err = strconv.Atoi(value)
		case "until":
			opt.Until, err = time.Parse(utcLayout, value)
			if err != nil {
				// A date-only until covers its whole day.
				var d time.Time
				d, err = time.Parse(time.DateOnly, value)
				opt.Until = d.Add(24*time.Hour - time.Second)
			}
		case "byday":
			var wd rrule.Weekday
			wd, err = parseByDay(value)
			opt.Byweekday = append(opt.Byweekday, wd)
		case "bymonthday":
			var d int
			d, err = strconv.Atoi(value)
			opt.Bymonthday = append(opt.Bymonthday, d)
		case "wkst":
			var wd rrule.Weekday
			wd, err = parseByDay(value)
			opt.Wkst = wd
		default:
			return opt, fmt.Errorf("%w: unsupported recur part %q", ErrFormat, child.Tag)
		}
		if err != nil {
			return opt, fmt.Errorf("%w: %s: %w", ErrFormat, child.Tag, err)
		}
	}
	if !seenFreq {
		return opt, fmt.Errorf("%w: recur without freq", ErrFormat)
	}
	return opt, nil
}

func parseFreq(s string) (rrule.Frequency, error) {
	switch strings.ToUpper(s) {
	case "YEARLY":
		return rrule.YEARLY, nil
	case "MONTHLY":
		return rrule.MONTHLY, nil
	case "WEEKLY":
		return rrule.WEEKLY, nil
	case "DAILY":
		return rrule.DAILY, nil
	}
	return 0, fmt.Errorf("unsupported frequency %q", s)
}

func parseByDay(s string) (rrule.Weekday, error) {
	if len(s) < 2 {
		return rrule.Weekday{}, fmt.Errorf("invalid weekday %q", s)
	}
	d, err := recurrence.ParseWeekdayCode(s[len(s)-2:])
	if err != nil {
		return rrule.Weekday{}, err
	}
	wd := icalendar.RRuleWeekday(d)
	if prefix := s[:len(s)-2]; prefix != "" {
		n, err := strconv.Atoi(prefix)
		if err != nil || n == 0 || n < -5 || n > 5 {
			return rrule.Weekday{}, fmt.Errorf("invalid weekday ordinal %q", s)
		}
		wd = wd.Nth(n)
	}
	return wd, nil
}

// Unmarshal reads the rules of every vevent in an xCal document.
func Unmarshal(data string, loc *time.Location) ([]recurrence.Rule, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromString(data); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFormat, err)
	}
	root := doc.Root()
	if root == nil || root.Tag != TagICalendar {
		return nil, fmt.Errorf("%w: root element is not %s", ErrFormat, TagICalendar)
	}

	var rules []recurrence.Rule
	for _, event := range root.FindElements("./vcalendar/components/vevent") {
		r, err := Decode(event, loc)
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return rules, nil
}
