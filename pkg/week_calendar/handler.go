package week_calendar

import (
	"net/http"

	log "github.com/sirupsen/logrus"
	"github.com/tppms/tppms/internal/rest"
	"github.com/tppms/tppms/internal/utils"
)

type WeekRangeDTO struct {
	Week      int    `json:"week"`
	Year      int    `json:"year"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Label     string `json:"label"`
}

type MonthWeeksDTO struct {
	Year  int            `json:"year"`
	Month int            `json:"month"`
	Weeks []WeekRangeDTO `json:"weeks"`
}

type CurrentDTO struct {
	Year  int          `json:"year"`
	Month int          `json:"month"`
	Week  int          `json:"week"`
	Range WeekRangeDTO `json:"range"`
}

type DisplayWeeksDTO struct {
	SelectedWeek int   `json:"selected_week"`
	CurrentWeek  int   `json:"current_week"`
	Weeks        []int `json:"weeks"`
}

// DisplayWindow picks the weeks shown for a selected week given the current one.
type DisplayWindow func(selectedWeek, currentWeek int) []int

type Handler struct {
	clock         utils.Clock
	displayWindow DisplayWindow
}

func NewHandler(clock utils.Clock, displayWindow DisplayWindow) *Handler {
	return &Handler{clock: clock, displayWindow: displayWindow}
}

// Weeks godoc
// @Summary List the corporate weeks overlapping a month
// @Tags Calendar
// @Produce json
// @Param year query int true "Year"
// @Param month query int true "Month 1-12"
// @Success 200 {object} MonthWeeksDTO
// @Failure 400 {object} rest.ErrorResponse
// @Router /api/calendar/weeks [get]
// @Security XSessionId
func (h *Handler) Weeks(w http.ResponseWriter, r *http.Request) {
	year, err := rest.QueryInt(r, "year")
	if rest.WriteValidationError(w, err) {
		return
	}
	month, err := rest.QueryInt(r, "month")
	if rest.WriteValidationError(w, err) {
		return
	}
	weeks, err := WeeksOverlappingMonth(year, month)
	if rest.WriteValidationError(w, err) {
		return
	}

	ranges := make([]WeekRangeDTO, 0, len(weeks))
	for _, week := range weeks {
		weekRange, err := WeekDateRange(week, year)
		if err != nil {
			log.Errorf("failed to compute range of week %d/%d: %v", week, year, err)
			rest.WriteError(w, http.StatusInternalServerError, "Failed to compute weeks", "")
			return
		}
		ranges = append(ranges, ToDTO(weekRange))
	}
	rest.WriteJSON(w, http.StatusOK, MonthWeeksDTO{Year: year, Month: month, Weeks: ranges})
}

// Week godoc
// @Summary Get the Monday to Friday range of a week
// @Tags Calendar
// @Produce json
// @Param year query int true "Year"
// @Param week query int true "Week number"
// @Success 200 {object} WeekRangeDTO
// @Router /api/calendar/week [get]
// @Security XSessionId
func (h *Handler) Week(w http.ResponseWriter, r *http.Request) {
	year, err := rest.QueryInt(r, "year")
	if rest.WriteValidationError(w, err) {
		return
	}
	week, err := rest.QueryInt(r, "week")
	if rest.WriteValidationError(w, err) {
		return
	}
	weekRange, err := WeekDateRange(week, year)
	if rest.WriteValidationError(w, err) {
		return
	}
	rest.WriteJSON(w, http.StatusOK, ToDTO(weekRange))
}

// Current godoc
// @Summary Get the current corporate week
// @Tags Calendar
// @Produce json
// @Success 200 {object} CurrentDTO
// @Router /api/calendar/current [get]
// @Security XSessionId
func (h *Handler) Current(w http.ResponseWriter, r *http.Request) {
	period := CurrentPeriod(h.clock)
	weekRange, err := WeekDateRange(period.Week, period.Year)
	if err != nil {
		log.Errorf("failed to compute current week: %v", err)
		rest.WriteError(w, http.StatusInternalServerError, "Failed to compute current week", "")
		return
	}
	rest.WriteJSON(w, http.StatusOK, CurrentDTO{
		Year:  period.Year,
		Month: period.Month,
		Week:  period.Week,
		Range: ToDTO(weekRange),
	})
}

// DisplayWeeks godoc
// @Summary Get the weeks shown for a selected week
// @Tags Calendar
// @Produce json
// @Param selected query int false "Selected week, defaults to the current week"
// @Success 200 {object} DisplayWeeksDTO
// @Router /api/calendar/display-weeks [get]
// @Security XSessionId
func (h *Handler) DisplayWeeks(w http.ResponseWriter, r *http.Request) {
	current := CurrentWeekNumber(h.clock)
	selected, err := rest.QueryIntOr(r, "selected", current)
	if rest.WriteValidationError(w, err) {
		return
	}
	if err := ValidateWeek(selected); rest.WriteValidationError(w, err) {
		return
	}
	rest.WriteJSON(w, http.StatusOK, DisplayWeeksDTO{
		SelectedWeek: selected,
		CurrentWeek:  current,
		Weeks:        h.displayWindow(selected, current),
	})
}

func ToDTO(r Range) WeekRangeDTO {
	return WeekRangeDTO{
		Week:      r.Week,
		Year:      r.Year,
		StartDate: r.StartDate.Format("2006-01-02"),
		EndDate:   r.EndDate.Format("2006-01-02"),
		Label:     r.Label,
	}
}
