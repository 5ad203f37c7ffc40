package xcal

import (
	"testing"
	"time"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyp0633/librecur/recurrence"
)

var start = time.Date(2018, time.January, 18, 9, 30, 0, 0, time.UTC) // third Thursday

func recurParts(t *testing.T, event *etree.Element) map[string][]string {
	t.Helper()
	recur := event.FindElement("./properties/rrule/recur")
	require.NotNil(t, recur)
	parts := make(map[string][]string)
	for _, child := range recur.ChildElements() {
		parts[child.Tag] = append(parts[child.Tag], child.Text())
	}
	return parts
}

func TestEncode(t *testing.T) {
	tests := []struct {
		name     string
		rule     recurrence.Rule
		expected map[string][]string
	}{
		{
			name: "daily",
			rule: recurrence.MustNew(start, recurrence.Daily, recurrence.WithFrequency(2), recurrence.WithEndCount(3)),
			expected: map[string][]string{
				"freq":     {"DAILY"},
				"count":    {"4"},
				"interval": {"2"},
				"wkst":     {"SU"},
			},
		},
		{
			name: "weekly",
			rule: recurrence.MustNew(start, recurrence.Weekly,
				recurrence.WithWeeklyDays(recurrence.Monday|recurrence.Thursday)),
			expected: map[string][]string{
				"freq":  {"WEEKLY"},
				"byday": {"MO", "TH"},
				"wkst":  {"SU"},
			},
		},
		{
			name: "monthly by weekday",
			rule: recurrence.MustNew(start, recurrence.Monthly, recurrence.WithMonthlyDay(recurrence.SameDayOfWeek),
				recurrence.WithEndDate(time.Date(2018, time.June, 1, 0, 0, 0, 0, time.UTC))),
			expected: map[string][]string{
				"freq":  {"MONTHLY"},
				"until": {"2018-06-01T23:59:59Z"},
				"byday": {"3TH"},
				"wkst":  {"SU"},
			},
		},
		{
			name: "monthly same day",
			rule: recurrence.MustNew(start, recurrence.Monthly),
			expected: map[string][]string{
				"freq":       {"MONTHLY"},
				"bymonthday": {"18"},
				"wkst":       {"SU"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event := Encode(tt.rule)
			assert.Equal(t, TagVEvent, event.Tag)
			dt := event.FindElement("./properties/dtstart/date-time")
			require.NotNil(t, dt)
			assert.Equal(t, "2018-01-18T09:30:00Z", dt.Text())
			assert.Equal(t, tt.expected, recurParts(t, event))
		})
	}
}

func TestEncode_None(t *testing.T) {
	event := Encode(recurrence.MustNew(start, recurrence.None))
	assert.Nil(t, event.FindElement("./properties/rrule"))
	assert.NotNil(t, event.FindElement("./properties/dtstart"))
}

func TestEncode_TimeZone(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*3600)
	r := recurrence.MustNew(time.Date(2018, time.January, 18, 9, 30, 0, 0, loc), recurrence.Daily)

	event := Encode(r)
	tzid := event.FindElement("./properties/dtstart/parameters/tzid/text")
	require.NotNil(t, tzid)
	assert.Equal(t, "UTC+2", tzid.Text())
	assert.Equal(t, "2018-01-18T09:30:00", event.FindElement("./properties/dtstart/date-time").Text())

	got, err := Decode(event, loc)
	require.NoError(t, err)
	assert.True(t, r.Equal(got))

	_, err = Decode(event, time.UTC)
	assert.ErrorIs(t, err, ErrFormat)
}

func TestMarshalUnmarshal_RoundTrip(t *testing.T) {
	jan31 := time.Date(2018, time.January, 31, 9, 30, 0, 0, time.UTC)
	rules := []recurrence.Rule{
		recurrence.MustNew(start, recurrence.None),
		recurrence.MustNew(start, recurrence.Daily, recurrence.WithFrequency(5)),
		recurrence.MustNew(start, recurrence.Weekly, recurrence.WithFrequency(2),
			recurrence.WithWeeklyDays(recurrence.Sunday|recurrence.Thursday), recurrence.WithEndCount(8)),
		recurrence.MustNew(jan31, recurrence.Monthly, recurrence.WithMonthlyDay(recurrence.SameDayOfWeek)),
		recurrence.MustNew(jan31, recurrence.Monthly, recurrence.WithMonthlyDay(recurrence.LastDayOfMonth)),
		recurrence.MustNew(start, recurrence.Yearly, recurrence.WithEndCount(2)),
	}

	s, err := Marshal(rules...)
	require.NoError(t, err)
	assert.Contains(t, s, `<icalendar xmlns="`+Namespace+`">`)

	got, err := Unmarshal(s, time.UTC)
	require.NoError(t, err)
	require.Len(t, got, len(rules))
	for i, r := range rules {
		assert.True(t, r.Equal(got[i]), "%s != %s", r, got[i])
	}
}

func TestUnmarshal_Errors(t *testing.T) {
	wrap := func(recur string) string {
		return `<icalendar xmlns="` + Namespace + `"><vcalendar><components><vevent><properties>` +
			`<dtstart><date-time>2018-01-18T09:30:00Z</date-time></dtstart>` +
			`<rrule><recur>` + recur + `</recur></rrule>` +
			`</properties></vevent></components></vcalendar></icalendar>`
	}

	_, err := Unmarshal(wrap("<freq>WEEKLY</freq><byday>TU</byday>"), time.UTC)
	require.NoError(t, err)

	tests := []struct {
		name string
		data string
	}{
		{"not xml", "<icalendar"},
		{"wrong root", "<vcalendar/>"},
		{"missing freq", wrap("<interval>2</interval>")},
		{"hourly", wrap("<freq>HOURLY</freq>")},
		{"bad interval", wrap("<freq>DAILY</freq><interval>x</interval>")},
		{"bad weekday", wrap("<freq>WEEKLY</freq><byday>XX</byday>")},
		{"bad ordinal", wrap("<freq>MONTHLY</freq><byday>9TH</byday>")},
		{"unsupported part", wrap("<freq>DAILY</freq><byhour>3</byhour>")},
		{"count and until", wrap("<freq>DAILY</freq><until>2018-03-01T00:00:00Z</until><count>3</count>")},
		{"other day of month", wrap("<freq>MONTHLY</freq><bymonthday>15</bymonthday>")},
		{"ordinal weekday on weekly", wrap("<freq>WEEKLY</freq><byday>1MO</byday>")},
		{
			"missing dtstart",
			`<icalendar><vcalendar><components><vevent><properties/></vevent></components></vcalendar></icalendar>`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Unmarshal(tt.data, time.UTC)
			assert.ErrorIs(t, err, ErrFormat)
		})
	}
}

func TestUnmarshal_DateOnlyUntil(t *testing.T) {
	data := `<icalendar><vcalendar><components><vevent><properties>` +
		`<dtstart><date-time>2018-01-18T09:30:00Z</date-time></dtstart>` +
		`<rrule><recur><freq>DAILY</freq><until>2018-01-20</until></recur></rrule>` +
		`</properties></vevent></components></vcalendar></icalendar>`

	rules, err := Unmarshal(data, time.UTC)
	require.NoError(t, err)
	require.Len(t, rules, 1)

	got, err := rules[0].Generate(time.Time{}, 10)
	require.NoError(t, err)
	assert.Equal(t, []time.Time{
		time.Date(2018, time.January, 19, 9, 30, 0, 0, time.UTC),
		time.Date(2018, time.January, 20, 9, 30, 0, 0, time.UTC),
	}, got)
}
