package bench

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"github.com/tppms/tppms/internal/rest"
)

type SummaryDTO struct {
	FullyBenched   int `json:"fully_benched"`
	PartialBenched int `json:"partial_benched"`
	NonBillable    int `json:"non_billable"`
	OverUtilised   int `json:"over_utilised"`
	ActualYear     int `json:"actual_year"`
	ActualWeek     int `json:"actual_week"`
}

type UserWeekDTO struct {
	UserId         int     `json:"user_id"`
	Name           string  `json:"name"`
	ProjectName    string  `json:"project_name"`
	Since          string  `json:"since,omitempty"`
	UpdatedBy      string  `json:"project_owner"`
	BillableHrs    float64 `json:"billable_hrs"`
	NonBillableHrs float64 `json:"non_billable_hrs"`
	LeaveHrs       float64 `json:"leave_hrs"`
	TotalHrs       float64 `json:"total_hrs"`
	Remark         string  `json:"reason_for_non_billability,omitempty"`
	Skills         string  `json:"skills"`
}

type ReportDTO struct {
	Category   string        `json:"category"`
	Users      []UserWeekDTO `json:"users"`
	ActualYear int           `json:"actual_year"`
	ActualWeek int           `json:"actual_week"`
}

type RemarkRequest struct {
	Remark string `json:"remark"`
}

type RemarkDTO struct {
	UserId int    `json:"user_id"`
	Week   int    `json:"week"`
	Remark string `json:"remark"`
}

type Handler struct {
	service  Service
	renderer Renderer
}

func NewHandler(service Service, renderer Renderer) *Handler {
	return &Handler{service: service, renderer: renderer}
}

// Summary godoc
// @Summary Count users per bench category
// @Description Falls back to the most recent week with allocations when the requested week has none
// @Tags Bench
// @Produce json
// @Param year query int true "Year"
// @Param week query int true "Week number"
// @Success 200 {object} SummaryDTO
// @Failure 403 {object} rest.ErrorResponse "Admin access required"
// @Router /api/bench/summary [get]
// @Security XSessionId
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	year, week, err := yearWeek(r)
	if rest.WriteValidationError(w, err) {
		return
	}
	summary, err := h.service.Summary(r.Context(), year, week)
	if err != nil {
		writeServiceError(w, err, "Failed to get bench summary")
		return
	}
	rest.WriteJSON(w, http.StatusOK, SummaryDTO{
		FullyBenched:   summary.FullyBenched,
		PartialBenched: summary.PartialBenched,
		NonBillable:    summary.NonBillable,
		OverUtilised:   summary.OverUtilised,
		ActualYear:     summary.ActualYear,
		ActualWeek:     summary.ActualWeek,
	})
}

// Users godoc
// @Summary List the users of a bench category
// @Tags Bench
// @Produce json
// @Param category path string true "fully-benched, partial-benched, non-billable or over-utilised"
// @Param year query int true "Year"
// @Param week query int true "Week number"
// @Success 200 {object} ReportDTO
// @Router /api/bench/{category} [get]
// @Security XSessionId
func (h *Handler) Users(w http.ResponseWriter, r *http.Request) {
	report, ok := h.report(w, r)
	if !ok {
		return
	}
	rest.WriteJSON(w, http.StatusOK, ReportToDTO(report))
}

// Export godoc
// @Summary Export the users of a bench category as CSV
// @Tags Bench
// @Produce text/csv
// @Param category path string true "Bench category"
// @Param year query int true "Year"
// @Param week query int true "Week number"
// @Success 200 {string} string "CSV"
// @Router /api/bench/{category}/export [get]
// @Security XSessionId
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	report, ok := h.report(w, r)
	if !ok {
		return
	}
	csv, err := h.renderer.Render(report)
	if err != nil {
		rest.WriteError(w, http.StatusInternalServerError, "Failed to render CSV", "")
		return
	}
	filename := fmt.Sprintf("%s-%d-week-%d.csv", report.Category, report.ActualYear, report.ActualWeek)
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(csv)); err != nil {
		log.Errorf("failed to write CSV: %v", err)
	}
}

// SaveRemark godoc
// @Summary Set the non-billability reason of a user for a week
// @Tags Bench
// @Accept json
// @Produce json
// @Param userId path int true "User ID"
// @Param week path int true "Week number"
// @Param request body RemarkRequest true "Remark"
// @Success 200 {object} RemarkDTO
// @Failure 400 {object} rest.ErrorResponse "Remark too long or week invalid"
// @Router /api/weekly-remark/{userId}/{week} [put]
// @Security XSessionId
func (h *Handler) SaveRemark(w http.ResponseWriter, r *http.Request) {
	userId, err := rest.PathInt(r, "userId")
	if rest.WriteValidationError(w, err) {
		return
	}
	week, err := rest.PathInt(r, "week")
	if rest.WriteValidationError(w, err) {
		return
	}
	var req RemarkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	remark, err := h.service.SaveRemark(r.Context(), Remark{UserId: userId, Week: week, Remark: req.Remark})
	if err != nil {
		writeServiceError(w, err, "Failed to update weekly remark")
		return
	}
	rest.WriteMessage(w, http.StatusOK, "Weekly remark updated successfully", RemarkDTO{
		UserId: remark.UserId,
		Week:   remark.Week,
		Remark: remark.Remark,
	})
}

func (h *Handler) report(w http.ResponseWriter, r *http.Request) (Report, bool) {
	category, err := ParseCategory(mux.Vars(r)["category"])
	if err != nil {
		rest.WriteError(w, http.StatusNotFound, "Unknown bench category", mux.Vars(r)["category"])
		return Report{}, false
	}
	year, week, err := yearWeek(r)
	if rest.WriteValidationError(w, err) {
		return Report{}, false
	}
	report, err := h.service.Users(r.Context(), category, year, week)
	if err != nil {
		writeServiceError(w, err, "Failed to get bench users")
		return Report{}, false
	}
	return report, true
}

func yearWeek(r *http.Request) (int, int, error) {
	year, err := rest.QueryInt(r, "year")
	if err != nil {
		return 0, 0, err
	}
	week, err := rest.QueryInt(r, "week")
	if err != nil {
		return 0, 0, err
	}
	return year, week, nil
}

func writeServiceError(w http.ResponseWriter, err error, message string) {
	if rest.WriteValidationError(w, err) {
		return
	}
	if errors.Is(err, ErrAccessDenied) {
		rest.WriteError(w, http.StatusForbidden, "Admin access required", "")
		return
	}
	log.Errorf("%s: %v", message, err)
	rest.WriteError(w, http.StatusInternalServerError, message, "")
}

func ReportToDTO(report Report) ReportDTO {
	users := make([]UserWeekDTO, 0, len(report.Users))
	for _, u := range report.Users {
		dto := UserWeekDTO{
			UserId:         u.UserId,
			Name:           u.Name,
			ProjectName:    strings.Join(u.Projects, ", "),
			UpdatedBy:      orNA(u.UpdatedBy),
			BillableHrs:    u.Billable.InexactFloat64(),
			NonBillableHrs: u.NonBillable.InexactFloat64(),
			LeaveHrs:       u.Leave.InexactFloat64(),
			TotalHrs:       u.Total.InexactFloat64(),
			Remark:         u.Remark,
			Skills:         orNA(u.Skill),
		}
		if !u.WeekStart.IsZero() {
			dto.Since = u.WeekStart.Format("2006-01-02")
		}
		if report.Category == CategoryNonBillable {
			dto.Remark = orNA(u.Remark)
		}
		users = append(users, dto)
	}
	return ReportDTO{
		Category:   string(report.Category),
		Users:      users,
		ActualYear: report.ActualYear,
		ActualWeek: report.ActualWeek,
	}
}
