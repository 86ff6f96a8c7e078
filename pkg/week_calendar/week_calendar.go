package week_calendar

import (
	"errors"
	"fmt"
	"time"

	"github.com/tppms/tppms/internal/rest"
	"github.com/tppms/tppms/internal/utils"
)

var ErrInvalidPeriod = errors.New("invalid period")

const (
	MinYear = 1
	MaxYear = 9999
	// MaxWeek is the highest corporate week number any year can produce.
	MaxWeek = 53
)

var monthAbbrevs = [...]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

// Period selects a corporate week inside a year and month.
type Period struct {
	Year  int
	Month int
	Week  int
}

// Range is the Monday to Friday span of a corporate week.
type Range struct {
	Week      int
	Year      int
	StartDate time.Time
	EndDate   time.Time
	Label     string
}

func (p Period) Validate() error {
	if err := ValidateYear(p.Year); err != nil {
		return err
	}
	if p.Month < 1 || p.Month > 12 {
		return invalid("month", fmt.Sprintf("month %d is outside 1-12", p.Month))
	}
	return ValidateWeek(p.Week)
}

func ValidateYear(year int) error {
	if year < MinYear || year > MaxYear {
		return invalid("year", fmt.Sprintf("year %d is outside %d-%d", year, MinYear, MaxYear))
	}
	return nil
}

func ValidateWeek(week int) error {
	if week < 1 || week > MaxWeek {
		return invalid("week", fmt.Sprintf("week %d is outside 1-%d", week, MaxWeek))
	}
	return nil
}

func invalid(field, message string) error {
	return fmt.Errorf("%w: %w", ErrInvalidPeriod, rest.NewValidationError(field, message))
}

// FirstMondayOfYear returns the first date in year that falls on a Monday.
func FirstMondayOfYear(year int) (time.Time, error) {
	if err := ValidateYear(year); err != nil {
		return time.Time{}, err
	}
	return firstMonday(year), nil
}

func firstMonday(year int) time.Time {
	jan1 := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	offset := (int(time.Monday) - int(jan1.Weekday()) + 7) % 7
	return jan1.AddDate(0, 0, offset)
}

// WeekNumberOf maps a calendar date to its corporate week. Dates before the
// first Monday of their year belong to week 1.
func WeekNumberOf(date time.Time) int {
	day := toDate(date)
	days := daysBetween(firstMonday(day.Year()), day)
	if days < 0 {
		return 1
	}
	return days/7 + 1
}

// WeeksOverlappingMonth lists, in ascending order, every corporate week that has at least one day in the month.
func WeeksOverlappingMonth(year int, month int) ([]int, error) {
	if err := (Period{Year: year, Month: month, Week: 1}).Validate(); err != nil {
		return nil, err
	}
	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	next := first.AddDate(0, 1, 0)

	var weeks []int
	for day := first; day.Before(next); day = day.AddDate(0, 0, 1) {
		week := WeekNumberOf(day)
		// days are visited in order, so week numbers never decrease
		if len(weeks) == 0 || weeks[len(weeks)-1] != week {
			weeks = append(weeks, week)
		}
	}
	return weeks, nil
}

// WeekDateRange returns the Monday-Friday range of week in year.
func WeekDateRange(week int, year int) (Range, error) {
	if err := ValidateYear(year); err != nil {
		return Range{}, err
	}
	if err := ValidateWeek(week); err != nil {
		return Range{}, err
	}
	start := firstMonday(year).AddDate(0, 0, (week-1)*7)
	end := start.AddDate(0, 0, 4)
	return Range{
		Week:      week,
		Year:      year,
		StartDate: start,
		EndDate:   end,
		Label:     label(start, end),
	}, nil
}

func label(start, end time.Time) string {
	startMonth := monthAbbrevs[start.Month()-1]
	if start.Month() == end.Month() {
		return fmt.Sprintf("%s %d-%d", startMonth, start.Day(), end.Day())
	}
	return fmt.Sprintf("%s %d-%s %d", startMonth, start.Day(), monthAbbrevs[end.Month()-1], end.Day())
}

// CurrentWeekNumber returns the corporate week of the clock's current date.
func CurrentWeekNumber(clock utils.Clock) int {
	return WeekNumberOf(utils.Today(clock))
}

// CurrentPeriod returns the clock's current year, month and corporate week.
func CurrentPeriod(clock utils.Clock) Period {
	today := utils.Today(clock)
	return Period{Year: today.Year(), Month: int(today.Month()), Week: WeekNumberOf(today)}
}

func toDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}
