package preset

import (
	"bytes"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyp0633/librecur/recurrence"
)

var (
	monday = time.Date(2018, time.January, 1, 9, 0, 0, 0, time.UTC)
	friday = time.Date(2018, time.January, 5, 9, 0, 0, 0, time.UTC)
)

func TestCatalog_Match(t *testing.T) {
	c := NewCatalog()
	for _, p := range DefaultPresets(monday) {
		require.NoError(t, c.Add(p))
	}
	require.NoError(t, c.Add(Preset{
		Name: "weekdays",
		Rule: recurrence.MustNew(monday, recurrence.Weekly, recurrence.WithWeeklyDays(
			recurrence.Monday|recurrence.Tuesday|recurrence.Wednesday|recurrence.Thursday|recurrence.Friday)),
	}))
	require.NoError(t, c.Add(Preset{
		Name: "ten days",
		Rule: recurrence.MustNew(monday, recurrence.Daily, recurrence.WithEndCount(10)),
	}))

	tests := []struct {
		name     string
		rule     recurrence.Rule
		expected string
	}{
		{"does not repeat", recurrence.MustNew(friday, recurrence.None), "does-not-repeat"},
		{"daily", recurrence.MustNew(friday, recurrence.Daily), "daily"},
		{"weekly on another weekday", recurrence.MustNew(friday, recurrence.Weekly), "weekly"},
		{"monthly", recurrence.MustNew(friday, recurrence.Monthly), "monthly"},
		{"yearly", recurrence.MustNew(friday, recurrence.Yearly), "yearly"},
		{
			"weekdays",
			recurrence.MustNew(friday, recurrence.Weekly, recurrence.WithWeeklyDays(
				recurrence.Monday|recurrence.Tuesday|recurrence.Wednesday|recurrence.Thursday|recurrence.Friday)),
			"weekdays",
		},
		{"end count", recurrence.MustNew(friday, recurrence.Daily, recurrence.WithEndCount(10)), "ten days"},
		{"no match", recurrence.MustNew(friday, recurrence.Daily, recurrence.WithFrequency(2)), ""},
		{
			"explicit day is not the default weekly",
			recurrence.MustNew(friday, recurrence.Weekly, recurrence.WithWeeklyDays(recurrence.Monday)),
			"",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Match(tt.rule)
			if tt.expected == "" {
				assert.True(t, got.IsAbsent(), "matched %v", got.OrEmpty().Name)
				return
			}
			p, ok := got.Get()
			require.True(t, ok)
			assert.Equal(t, tt.expected, p.Name)
			assert.True(t, p.Rule.Equal(tt.rule), "%s != %s", p.Rule, tt.rule)
		})
	}
}

func TestCatalog_MatchSkipsPresetsPastTheirEnd(t *testing.T) {
	c := NewCatalog()
	require.NoError(t, c.Add(Preset{
		Name: "january",
		Rule: recurrence.MustNew(monday, recurrence.Daily,
			recurrence.WithEndDate(time.Date(2018, time.January, 31, 0, 0, 0, 0, time.UTC))),
	}))

	r := recurrence.MustNew(time.Date(2018, time.March, 1, 9, 0, 0, 0, time.UTC), recurrence.None)
	assert.True(t, c.Match(r).IsAbsent())
}

func TestCatalog_AddRemoveGet(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	c := NewCatalog(WithLogger(logger))

	daily := Preset{Name: "Daily", Rule: recurrence.MustNew(monday, recurrence.Daily)}
	require.NoError(t, c.Add(daily))
	assert.Contains(t, buf.String(), "preset added")

	err := c.Add(Preset{Name: " daily ", Rule: recurrence.MustNew(monday, recurrence.Daily)})
	assert.True(t, IsType(err, ErrAlreadyExists))

	err = c.Add(Preset{Name: "  ", Rule: recurrence.MustNew(monday, recurrence.Daily)})
	assert.True(t, IsType(err, ErrInvalidInput))

	err = c.Add(Preset{Name: "empty"})
	assert.True(t, IsType(err, ErrInvalidInput))

	got, ok := c.Get("DAILY").Get()
	require.True(t, ok)
	assert.Equal(t, "Daily", got.Name)
	assert.Equal(t, mo.None[Preset](), c.Get("weekly"))

	require.NoError(t, c.Add(Preset{Name: "weekly", Rule: recurrence.MustNew(monday, recurrence.Weekly)}))
	names := func() []string {
		var out []string
		for _, p := range c.List() {
			out = append(out, p.Name)
		}
		return out
	}
	assert.Equal(t, []string{"Daily", "weekly"}, names())

	require.NoError(t, c.Remove("daily"))
	assert.Equal(t, []string{"weekly"}, names())
	assert.Equal(t, 1, c.Len())

	err = c.Remove("daily")
	assert.True(t, IsType(err, ErrNotFound))
	var pe *Error
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, `not_found: preset "daily" not found`, pe.Error())
}

func TestCatalog_ListIsACopy(t *testing.T) {
	c := NewDefaultCatalog()
	list := c.List()
	require.Len(t, list, 5)
	list[0].Name = "changed"
	assert.Equal(t, "does-not-repeat", c.List()[0].Name)
}

func TestCatalog_Concurrent(t *testing.T) {
	c := NewDefaultCatalog()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				assert.True(t, c.Match(recurrence.MustNew(friday, recurrence.Weekly)).IsPresent())
				_ = c.List()
			}
		}()
	}
	wg.Wait()
}

func TestSettings_Check(t *testing.T) {
	require.NoError(t, DefaultSettings.Check())

	tests := []struct {
		name   string
		modify func(s *Settings)
	}{
		{"zero max frequency", func(s *Settings) { s.MaxFrequency = 0 }},
		{"zero max end count", func(s *Settings) { s.MaxEndCount = 0 }},
		{"default end count above max", func(s *Settings) { s.DefaultEndCount = 1000 }},
		{"zero end date interval", func(s *Settings) { s.DefaultEndDateInterval = 0 }},
		{"no end types", func(s *Settings) { s.EnabledEndTypes = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings
			tt.modify(&s)
			assert.True(t, IsType(s.Check(), ErrInvalidInput))
		})
	}
}

func TestSettings_Validate(t *testing.T) {
	limited := DefaultSettings
	limited.EnabledPeriods = []recurrence.Period{recurrence.Daily, recurrence.Weekly}
	limited.EnabledEndTypes = []recurrence.EndType{recurrence.EndNever, recurrence.EndByCount}
	limited.MaxEndDate = mo.Some(time.Date(2018, time.June, 30, 0, 0, 0, 0, time.UTC))

	withDates := DefaultSettings
	withDates.MaxEndDate = limited.MaxEndDate

	tests := []struct {
		name     string
		settings Settings
		rule     recurrence.Rule
		wantErr  bool
	}{
		{"none always allowed", limited, recurrence.MustNew(monday, recurrence.None), false},
		{"default daily", DefaultSettings, recurrence.MustNew(monday, recurrence.Daily), false},
		{"max frequency", DefaultSettings, recurrence.MustNew(monday, recurrence.Daily, recurrence.WithFrequency(99)), false},
		{"frequency too high", DefaultSettings, recurrence.MustNew(monday, recurrence.Daily, recurrence.WithFrequency(100)), true},
		{"end count too high", DefaultSettings, recurrence.MustNew(monday, recurrence.Daily, recurrence.WithEndCount(1000)), true},
		{"disabled period", limited, recurrence.MustNew(monday, recurrence.Monthly), true},
		{
			"disabled end type", limited,
			recurrence.MustNew(monday, recurrence.Daily, recurrence.WithEndDate(time.Date(2018, time.March, 1, 0, 0, 0, 0, time.UTC))),
			true,
		},
		{
			"end date on the limit", withDates,
			recurrence.MustNew(monday, recurrence.Daily, recurrence.WithEndDate(time.Date(2018, time.June, 30, 20, 0, 0, 0, time.UTC))),
			false,
		},
		{
			"end date past the limit", withDates,
			recurrence.MustNew(monday, recurrence.Daily, recurrence.WithEndDate(time.Date(2018, time.July, 1, 0, 0, 0, 0, time.UTC))),
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.settings.Validate(tt.rule)
			if tt.wantErr {
				assert.True(t, IsType(err, ErrNotAllowed), "got %v", err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSettings_DefaultEndDate(t *testing.T) {
	jan31 := time.Date(2018, time.January, 31, 9, 0, 0, 0, time.UTC)
	byDays := DefaultSettings
	byDays.EndDateUsePeriod = false
	capped := DefaultSettings
	capped.MaxEndDate = mo.Some(time.Date(2018, time.March, 1, 0, 0, 0, 0, time.UTC))

	tests := []struct {
		name     string
		settings Settings
		start    time.Time
		period   recurrence.Period
		expected time.Time
	}{
		{"daily", DefaultSettings, monday, recurrence.Daily, time.Date(2018, time.January, 4, 9, 0, 0, 0, time.UTC)},
		{"weekly", DefaultSettings, monday, recurrence.Weekly, time.Date(2018, time.January, 22, 9, 0, 0, 0, time.UTC)},
		{"monthly", DefaultSettings, monday, recurrence.Monthly, time.Date(2018, time.April, 1, 9, 0, 0, 0, time.UTC)},
		{"monthly clamps to month end", DefaultSettings, jan31, recurrence.Monthly, time.Date(2018, time.April, 30, 9, 0, 0, 0, time.UTC)},
		{"yearly", DefaultSettings, monday, recurrence.Yearly, time.Date(2021, time.January, 1, 9, 0, 0, 0, time.UTC)},
		{"days only", byDays, monday, recurrence.Yearly, time.Date(2018, time.January, 4, 9, 0, 0, 0, time.UTC)},
		{"capped", capped, jan31, recurrence.Monthly, time.Date(2018, time.March, 1, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.settings.DefaultEndDate(tt.start, tt.period))
		})
	}
}

func TestSettings_WithDefaultEnd(t *testing.T) {
	r := recurrence.MustNew(monday, recurrence.Weekly)

	got, err := DefaultSettings.WithDefaultEnd(r, recurrence.EndByCount)
	require.NoError(t, err)
	assert.Equal(t, 5, got.EndCount().MustGet())

	got, err = DefaultSettings.WithDefaultEnd(got, recurrence.EndByDate)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2018, time.January, 22, 9, 0, 0, 0, time.UTC), got.EndDate().MustGet())

	got, err = DefaultSettings.WithDefaultEnd(got, recurrence.EndNever)
	require.NoError(t, err)
	assert.Equal(t, recurrence.EndNever, got.EndType())

	_, err = DefaultSettings.WithDefaultEnd(r, recurrence.EndType(9))
	assert.True(t, IsType(err, ErrInvalidInput))
}
