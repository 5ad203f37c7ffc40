package recurrence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func days(dates ...time.Time) []time.Time { return dates }

// assertDates compares the calendar dates of got and want.
func assertDates(t *testing.T, want, got []time.Time) {
	t.Helper()
	format := func(ts []time.Time) []string {
		out := make([]string, len(ts))
		for i, v := range ts {
			out[i] = v.Format(time.DateOnly)
		}
		return out
	}
	assert.Equal(t, format(want), format(got))
}

func TestGenerate(t *testing.T) {
	tests := []struct {
		name     string
		rule     Rule
		count    int
		expected []time.Time
	}{
		{
			name:  "daily",
			rule:  MustNew(day(2018, time.January, 1), Daily),
			count: 5,
			expected: days(
				day(2018, time.January, 2), day(2018, time.January, 3), day(2018, time.January, 4),
				day(2018, time.January, 5), day(2018, time.January, 6)),
		},
		{
			name:  "daily every 3 days",
			rule:  MustNew(day(2018, time.January, 27), Daily, WithFrequency(3)),
			count: 4,
			expected: days(
				day(2018, time.January, 30), day(2018, time.February, 2),
				day(2018, time.February, 5), day(2018, time.February, 8)),
		},
		{
			name:  "weekly on start day",
			rule:  MustNew(day(2018, time.January, 1), Weekly),
			count: 3,
			expected: days(
				day(2018, time.January, 8), day(2018, time.January, 15), day(2018, time.January, 22)),
		},
		{
			name:  "weekly on several days",
			rule:  MustNew(day(2018, time.January, 3), Weekly, WithWeeklyDays(Monday|Wednesday|Saturday)),
			count: 5,
			expected: days(
				day(2018, time.January, 6), day(2018, time.January, 8), day(2018, time.January, 10),
				day(2018, time.January, 13), day(2018, time.January, 15)),
		},
		{
			name:  "weekly every 2 weeks",
			rule:  MustNew(day(2018, time.January, 1), Weekly, WithFrequency(2), WithWeeklyDays(Monday|Friday)),
			count: 4,
			expected: days(
				day(2018, time.January, 5), day(2018, time.January, 15),
				day(2018, time.January, 19), day(2018, time.January, 29)),
		},
		{
			name:  "weekly on sunday from a sunday",
			rule:  MustNew(day(2018, time.January, 7), Weekly, WithWeeklyDays(Sunday|Saturday)),
			count: 3,
			expected: days(
				day(2018, time.January, 13), day(2018, time.January, 14), day(2018, time.January, 20)),
		},
		{
			name:  "monthly same day skips short months",
			rule:  MustNew(day(2018, time.January, 31), Monthly),
			count: 4,
			expected: days(
				day(2018, time.March, 31), day(2018, time.May, 31),
				day(2018, time.July, 31), day(2018, time.August, 31)),
		},
		{
			name:  "monthly last day",
			rule:  MustNew(day(2018, time.January, 31), Monthly, WithMonthlyDay(LastDayOfMonth)),
			count: 5,
			expected: days(
				day(2018, time.February, 28), day(2018, time.March, 31), day(2018, time.April, 30),
				day(2018, time.May, 31), day(2018, time.June, 30)),
		},
		{
			name:  "monthly third thursday",
			rule:  MustNew(day(2018, time.January, 18), Monthly, WithMonthlyDay(SameDayOfWeek)),
			count: 3,
			expected: days(
				day(2018, time.February, 15), day(2018, time.March, 15), day(2018, time.April, 19)),
		},
		{
			name:  "monthly fifth monday means last monday",
			rule:  MustNew(day(2018, time.January, 29), Monthly, WithMonthlyDay(SameDayOfWeek)),
			count: 3,
			expected: days(
				day(2018, time.February, 26), day(2018, time.March, 26), day(2018, time.April, 30)),
		},
		{
			name:  "monthly every 2 months",
			rule:  MustNew(day(2018, time.January, 15), Monthly, WithFrequency(2)),
			count: 3,
			expected: days(
				day(2018, time.March, 15), day(2018, time.May, 15), day(2018, time.July, 15)),
		},
		{
			name:  "monthly across year end",
			rule:  MustNew(day(2018, time.November, 10), Monthly, WithFrequency(5)),
			count: 2,
			expected: days(
				day(2019, time.April, 10), day(2019, time.September, 10)),
		},
		{
			name:  "yearly",
			rule:  MustNew(day(2018, time.March, 12), Yearly),
			count: 3,
			expected: days(
				day(2019, time.March, 12), day(2020, time.March, 12), day(2021, time.March, 12)),
		},
		{
			name:  "yearly on february 29",
			rule:  MustNew(day(2016, time.February, 29), Yearly),
			count: 4,
			expected: days(
				day(2017, time.February, 28), day(2018, time.February, 28),
				day(2019, time.February, 28), day(2020, time.February, 29)),
		},
		{
			name:     "end by count",
			rule:     MustNew(day(2018, time.January, 1), Daily, WithEndCount(3)),
			count:    100,
			expected: days(day(2018, time.January, 2), day(2018, time.January, 3), day(2018, time.January, 4)),
		},
		{
			name:  "end by date is inclusive of its day",
			rule:  MustNew(day(2018, time.January, 1), Daily, WithEndDate(time.Date(2018, time.January, 5, 0, 0, 0, 0, time.UTC))),
			count: 100,
			expected: days(
				day(2018, time.January, 2), day(2018, time.January, 3),
				day(2018, time.January, 4), day(2018, time.January, 5)),
		},
		{
			name:     "weekly end by date",
			rule:     MustNew(day(2018, time.January, 1), Weekly, WithWeeklyDays(Monday|Thursday), WithEndDate(day(2018, time.January, 11))),
			count:    100,
			expected: days(day(2018, time.January, 4), day(2018, time.January, 8), day(2018, time.January, 11)),
		},
		{
			name:     "none",
			rule:     MustNew(day(2018, time.January, 1), None),
			count:    10,
			expected: days(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.rule.Generate(time.Time{}, tt.count)
			require.NoError(t, err)
			assertDates(t, tt.expected, got)
		})
	}
}

func TestGenerate_KeepsWallClock(t *testing.T) {
	start := time.Date(2018, time.January, 31, 13, 25, 36, 0, time.UTC)
	r := MustNew(start, Monthly, WithMonthlyDay(LastDayOfMonth))

	got, err := r.Generate(time.Time{}, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, time.Date(2018, time.February, 28, 13, 25, 36, 0, time.UTC), got[0])
}

func TestGenerate_LowerBound(t *testing.T) {
	r := MustNew(day(2018, time.January, 1), Daily)

	t.Run("compared exactly", func(t *testing.T) {
		got, err := r.Generate(time.Date(2018, time.January, 3, 12, 0, 0, 0, time.UTC), 2)
		require.NoError(t, err)
		assertDates(t, days(day(2018, time.January, 4), day(2018, time.January, 5)), got)
	})

	t.Run("occurrence on the bound is included", func(t *testing.T) {
		got, err := r.Generate(day(2018, time.January, 3), 1)
		require.NoError(t, err)
		assertDates(t, days(day(2018, time.January, 3)), got)
	})

	t.Run("count consumed before the bound", func(t *testing.T) {
		limited := MustNew(day(2018, time.January, 1), Daily, WithEndCount(5))
		got, err := limited.Generate(day(2018, time.January, 4), 10)
		require.NoError(t, err)
		assertDates(t, days(day(2018, time.January, 4), day(2018, time.January, 5), day(2018, time.January, 6)), got)
	})

	t.Run("bound past the end date", func(t *testing.T) {
		ended := MustNew(day(2018, time.January, 1), Daily, WithEndDate(day(2018, time.January, 5)))
		got, err := ended.Generate(day(2018, time.January, 6), 10)
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestGenerate_InvalidCount(t *testing.T) {
	r := MustNew(day(2018, time.January, 1), Daily)
	_, err := r.Generate(time.Time{}, 0)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = r.GenerateFrom(r.Start(), 0, time.Time{}, -1)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestGenerateFrom_ResumesSequence(t *testing.T) {
	r := MustNew(day(2018, time.January, 1), Weekly, WithWeeklyDays(Tuesday|Friday), WithEndCount(6))

	all, err := r.Generate(time.Time{}, 10)
	require.NoError(t, err)
	require.Len(t, all, 6)

	rest, err := r.GenerateFrom(all[2], 3, time.Time{}, 10)
	require.NoError(t, err)
	assert.Equal(t, all[3:], rest)
}

func TestGenerate_Properties(t *testing.T) {
	start := day(2018, time.January, 31)
	rules := []Rule{
		MustNew(start, Daily, WithFrequency(4)),
		MustNew(start, Weekly, WithWeeklyDays(Sunday|Tuesday|Saturday)),
		MustNew(start, Weekly, WithFrequency(3), WithWeeklyDays(EveryDayOfWeek)),
		MustNew(start, Monthly),
		MustNew(start, Monthly, WithMonthlyDay(SameDayOfWeek), WithFrequency(2)),
		MustNew(start, Monthly, WithMonthlyDay(LastDayOfMonth)),
		MustNew(start, Yearly, WithEndCount(3)),
	}
	bound := day(2018, time.June, 1)

	for _, r := range rules {
		t.Run(r.String(), func(t *testing.T) {
			got, err := r.Generate(bound, 20)
			require.NoError(t, err)
			assert.LessOrEqual(t, len(got), 20)
			for i, occ := range got {
				assert.False(t, occ.Before(bound), "occurrence %s before bound", occ)
				if i > 0 {
					assert.True(t, occ.After(got[i-1]), "occurrences not increasing at %d", i)
				}
				switch r.Period() {
				case Weekly:
					assert.NotZero(t, r.WeeklyDays()&WeekdayBit(occ.Weekday()))
				case Monthly:
					if r.MonthlyDay() == LastDayOfMonth {
						assert.True(t, isLastDayOfMonth(occ))
					}
				}
			}
		})
	}
}

func TestBetween(t *testing.T) {
	r := MustNew(day(2018, time.January, 1), Daily)

	got := r.Between(time.Date(2018, time.January, 3, 0, 0, 0, 0, time.UTC), time.Date(2018, time.January, 6, 0, 0, 0, 0, time.UTC))
	assertDates(t, days(day(2018, time.January, 3), day(2018, time.January, 4), day(2018, time.January, 5)), got)

	t.Run("end is exclusive", func(t *testing.T) {
		got := r.Between(day(2018, time.January, 3), day(2018, time.January, 5))
		assertDates(t, days(day(2018, time.January, 3), day(2018, time.January, 4)), got)
	})

	t.Run("stops at end count", func(t *testing.T) {
		limited := MustNew(day(2018, time.January, 1), Daily, WithEndCount(3))
		got := limited.Between(day(2018, time.January, 1), day(2018, time.February, 1))
		assertDates(t, days(day(2018, time.January, 2), day(2018, time.January, 3), day(2018, time.January, 4)), got)
	})

	t.Run("nothing in range", func(t *testing.T) {
		limited := MustNew(day(2018, time.January, 1), Daily, WithEndCount(3))
		assert.Empty(t, limited.Between(day(2018, time.March, 1), day(2018, time.April, 1)))
		assert.Empty(t, MustNew(day(2018, time.January, 1), None).Between(day(2018, time.January, 1), day(2019, time.January, 1)))
	})

	t.Run("matches generate", func(t *testing.T) {
		monthly := MustNew(day(2018, time.January, 29), Monthly, WithMonthlyDay(SameDayOfWeek))
		want, err := monthly.Generate(time.Time{}, 12)
		require.NoError(t, err)
		got := monthly.Between(monthly.Start(), want[len(want)-1].Add(time.Second))
		assert.Equal(t, want, got)
	})
}

func TestOccurrences(t *testing.T) {
	r := MustNew(day(2018, time.January, 1), Weekly, WithWeeklyDays(Monday|Thursday))

	var got []time.Time
	for occ := range r.Occurrences(day(2018, time.January, 9)) {
		got = append(got, occ)
		if len(got) == 4 {
			break
		}
	}
	assertDates(t, days(
		day(2018, time.January, 11), day(2018, time.January, 15),
		day(2018, time.January, 18), day(2018, time.January, 22)), got)
}
