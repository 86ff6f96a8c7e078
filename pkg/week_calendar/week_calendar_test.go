package week_calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tppms/tppms/internal/rest"
	"github.com/tppms/tppms/internal/utils"
)

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func TestFirstMondayOfYear(t *testing.T) {
	tests := []struct {
		year   int
		expect time.Time
	}{
		{2024, date(2024, time.January, 1)},
		{2025, date(2025, time.January, 6)},
		{2026, date(2026, time.January, 5)},
		{2023, date(2023, time.January, 2)},
	}
	for _, tt := range tests {
		got, err := FirstMondayOfYear(tt.year)
		require.NoError(t, err)
		assert.Equal(t, tt.expect, got, "year %d", tt.year)
		assert.Equal(t, time.Monday, got.Weekday())
	}

	_, err := FirstMondayOfYear(-4)
	require.ErrorIs(t, err, ErrInvalidPeriod)
	assert.True(t, rest.IsValidationError(err))
}

func TestWeekNumberOf(t *testing.T) {
	tests := []struct {
		name   string
		date   time.Time
		expect int
	}{
		{"first monday", date(2025, time.January, 6), 1},
		{"friday of week 1", date(2025, time.January, 10), 1},
		{"second monday", date(2025, time.January, 13), 2},
		{"days before first monday fold into week 1", date(2025, time.January, 1), 1},
		{"mid year", date(2026, time.October, 15), 41},
		{"last days of a 53 week year", date(2024, time.December, 31), 53},
		{"time of day is ignored", time.Date(2025, time.January, 12, 23, 59, 0, 0, time.UTC), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, WeekNumberOf(tt.date))
		})
	}
}

func TestWeekNumberOfFirstMondayIsAlwaysOne(t *testing.T) {
	for year := 1970; year <= 2100; year++ {
		monday, err := FirstMondayOfYear(year)
		require.NoError(t, err)
		require.Equal(t, 1, WeekNumberOf(monday), "year %d", year)
	}
}

func TestWeekDateRange(t *testing.T) {
	t.Run("range within a month", func(t *testing.T) {
		r, err := WeekDateRange(1, 2025)

		require.NoError(t, err)
		assert.Equal(t, date(2025, time.January, 6), r.StartDate)
		assert.Equal(t, date(2025, time.January, 10), r.EndDate)
		assert.Equal(t, "Jan 6-10", r.Label)
	})

	t.Run("range crossing a month boundary", func(t *testing.T) {
		r, err := WeekDateRange(26, 2025)

		require.NoError(t, err)
		assert.Equal(t, date(2025, time.June, 30), r.StartDate)
		assert.Equal(t, date(2025, time.July, 4), r.EndDate)
		assert.Equal(t, "Jun 30-Jul 4", r.Label)
	})

	t.Run("monday to friday for every week", func(t *testing.T) {
		for year := 2020; year <= 2030; year++ {
			for week := 1; week <= 52; week++ {
				r, err := WeekDateRange(week, year)
				require.NoError(t, err)
				require.Equal(t, 4*24*time.Hour, r.EndDate.Sub(r.StartDate))
				require.Equal(t, time.Monday, r.StartDate.Weekday())
				require.Equal(t, week, WeekNumberOf(r.StartDate))
			}
		}
	})

	t.Run("rejects invalid week and year", func(t *testing.T) {
		_, err := WeekDateRange(0, 2025)
		require.ErrorIs(t, err, ErrInvalidPeriod)

		_, err = WeekDateRange(54, 2025)
		require.ErrorIs(t, err, ErrInvalidPeriod)

		_, err = WeekDateRange(3, 0)
		require.ErrorIs(t, err, ErrInvalidPeriod)
	})
}

func TestWeeksOverlappingMonth(t *testing.T) {
	t.Run("january folds the leading days into week 1", func(t *testing.T) {
		weeks, err := WeeksOverlappingMonth(2025, 1)

		require.NoError(t, err)
		assert.Equal(t, []int{1, 2, 3, 4}, weeks)
	})

	t.Run("a week spanning two months appears in both", func(t *testing.T) {
		january, err := WeeksOverlappingMonth(2025, 1)
		require.NoError(t, err)
		february, err := WeeksOverlappingMonth(2025, 2)
		require.NoError(t, err)

		assert.Equal(t, []int{4, 5, 6, 7, 8}, february)
		assert.Contains(t, january, 4)
	})

	t.Run("ascending without duplicates for every month", func(t *testing.T) {
		for year := 2023; year <= 2027; year++ {
			for month := 1; month <= 12; month++ {
				weeks, err := WeeksOverlappingMonth(year, month)
				require.NoError(t, err)
				require.NotEmpty(t, weeks)
				for i := 1; i < len(weeks); i++ {
					require.Less(t, weeks[i-1], weeks[i], "%d-%02d: %v", year, month, weeks)
				}
			}
		}
	})

	t.Run("rejects invalid month", func(t *testing.T) {
		_, err := WeeksOverlappingMonth(2025, 13)
		require.ErrorIs(t, err, ErrInvalidPeriod)
	})
}

func TestCurrentWeekNumber(t *testing.T) {
	clock := &utils.MockClock{FixedNow: time.Date(2026, time.October, 15, 16, 30, 0, 0, time.UTC)}

	assert.Equal(t, 41, CurrentWeekNumber(clock))
	assert.Equal(t, Period{Year: 2026, Month: 10, Week: 41}, CurrentPeriod(clock))
}

func TestPeriodValidate(t *testing.T) {
	assert.NoError(t, Period{Year: 2025, Month: 8, Week: 32}.Validate())
	assert.ErrorIs(t, Period{Year: 2025, Month: 0, Week: 32}.Validate(), ErrInvalidPeriod)
	assert.ErrorIs(t, Period{Year: 2025, Month: 8, Week: -1}.Validate(), ErrInvalidPeriod)
	assert.ErrorIs(t, Period{Year: -2025, Month: 8, Week: 1}.Validate(), ErrInvalidPeriod)
}
