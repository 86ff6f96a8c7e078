package allocation

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"github.com/tppms/tppms/internal/rest"
	"github.com/tppms/tppms/pkg/project"
	"github.com/tppms/tppms/pkg/user"
	"github.com/tppms/tppms/pkg/week_calendar"
)

type HoursDTO struct {
	Billable    float64 `json:"billable"`
	NonBillable float64 `json:"non_billable"`
	Leave       float64 `json:"leave"`
	Total       float64 `json:"total"`
}

type EntryDTO struct {
	Id             int     `json:"id,omitempty"`
	UserId         int     `json:"user_id"`
	ProjectId      int     `json:"project_id"`
	ProjectName    string  `json:"project_name,omitempty"`
	Week           int     `json:"week"`
	Year           int     `json:"year"`
	WeekStart      string  `json:"week_start,omitempty"`
	BillableHrs    float64 `json:"billable_hrs"`
	NonBillableHrs float64 `json:"non_billable_hrs"`
	LeaveHrs       float64 `json:"leave_hrs"`
	TotalHours     float64 `json:"total_hours"`
	UpdatedBy      string  `json:"updated_by,omitempty"`
	UpdatedAt      string  `json:"updated_at,omitempty"`
}

type MemberWeeksDTO struct {
	UserId   int              `json:"user_id"`
	UserName string           `json:"user_name"`
	UserRole string           `json:"user_role"`
	Weeks    map[int]HoursDTO `json:"weeks"`
	Totals   HoursDTO         `json:"totals"`
}

type WeeklyAllocationsDTO struct {
	Project    project.ProjectDTO `json:"project"`
	Year       int                `json:"year"`
	Weeks      []int              `json:"weeks"`
	Users      []MemberWeeksDTO   `json:"users"`
	WeekTotals map[int]HoursDTO   `json:"week_totals"`
	Totals     HoursDTO           `json:"totals"`
}

type InsightsDTO struct {
	Project     project.ProjectDTO `json:"project"`
	Year        int                `json:"year"`
	Weeks       []int              `json:"weeks"`
	MemberCount int                `json:"member_count"`
	Totals      HoursDTO           `json:"totals"`
}

type CopyWeekRequest struct {
	SourceWeek int  `json:"source_week"`
	TargetWeek int  `json:"target_week"`
	Year       int  `json:"year"`
	Confirmed  bool `json:"confirmed"`
}

type CopyResultDTO struct {
	SuccessCount int `json:"success_count"`
	ErrorCount   int `json:"error_count"`
}

type EditableAllocationsDTO struct {
	Project       project.ProjectDTO           `json:"project"`
	CurrentWeek   int                          `json:"current_week"`
	EditableWeeks []week_calendar.WeekRangeDTO `json:"editable_weeks"`
	Allocations   []EntryDTO                   `json:"allocations"`
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// WeeklyAllocations godoc
// @Summary Get the allocation grid of a project
// @Description Role-filtered members with week-keyed hours, week totals and grand totals
// @Tags Allocation
// @Produce json
// @Param projectId path int true "Project ID"
// @Param year query int true "Year"
// @Param weeks query string false "Comma separated week numbers"
// @Success 200 {object} WeeklyAllocationsDTO
// @Failure 400 {object} rest.ErrorResponse
// @Failure 403 {object} rest.ErrorResponse
// @Router /api/projects/{projectId}/weekly-allocations [get]
// @Security XSessionId
func (h *Handler) WeeklyAllocations(w http.ResponseWriter, r *http.Request) {
	projectId, err := rest.PathInt(r, "projectId")
	if rest.WriteValidationError(w, err) {
		return
	}
	year, err := rest.QueryInt(r, "year")
	if rest.WriteValidationError(w, err) {
		return
	}
	weeks, err := rest.QueryIntList(r, "weeks")
	if rest.WriteValidationError(w, err) {
		return
	}
	log.Debugf("Getting weekly allocations of project %d for %d weeks %v", projectId, year, weeks)

	view, err := h.service.ProjectWeeklyAllocations(r.Context(), projectId, year, weeks)
	if err != nil {
		WriteServiceError(w, err, "Failed to get weekly allocations")
		return
	}
	rest.WriteJSON(w, http.StatusOK, weeklyAllocationsToDTO(view))
}

// Insights godoc
// @Summary Get project totals over the display window
// @Tags Allocation
// @Produce json
// @Param projectId path int true "Project ID"
// @Param year query int true "Year"
// @Param week query int true "Selected week"
// @Success 200 {object} InsightsDTO
// @Router /api/projects/{projectId}/insights [get]
// @Security XSessionId
func (h *Handler) Insights(w http.ResponseWriter, r *http.Request) {
	projectId, err := rest.PathInt(r, "projectId")
	if rest.WriteValidationError(w, err) {
		return
	}
	year, err := rest.QueryInt(r, "year")
	if rest.WriteValidationError(w, err) {
		return
	}
	week, err := rest.QueryInt(r, "week")
	if rest.WriteValidationError(w, err) {
		return
	}
	insights, err := h.service.ProjectInsights(r.Context(), projectId, year, week)
	if err != nil {
		WriteServiceError(w, err, "Failed to get project insights")
		return
	}
	rest.WriteJSON(w, http.StatusOK, InsightsDTO{
		Project:     project.ToDTO(insights.Project),
		Year:        insights.Year,
		Weeks:       insights.Weeks,
		MemberCount: insights.MemberCount,
		Totals:      TotalsToDTO(insights.Totals),
	})
}

// MyAllocations godoc
// @Summary List the current user's allocations
// @Tags Allocation
// @Produce json
// @Param year query int true "Year"
// @Param weeks query string false "Comma separated week numbers"
// @Success 200 {object} map[string][]EntryDTO
// @Router /api/allocation [get]
// @Security XSessionId
func (h *Handler) MyAllocations(w http.ResponseWriter, r *http.Request) {
	year, err := rest.QueryInt(r, "year")
	if rest.WriteValidationError(w, err) {
		return
	}
	weeks, err := rest.QueryIntList(r, "weeks")
	if rest.WriteValidationError(w, err) {
		return
	}
	entries, err := h.service.MyAllocations(r.Context(), year, weeks)
	if err != nil {
		WriteServiceError(w, err, "Failed to get allocations")
		return
	}
	dtos := make([]EntryDTO, 0, len(entries))
	for _, entry := range entries {
		dtos = append(dtos, EntryToDTO(entry))
	}
	rest.WriteJSON(w, http.StatusOK, map[string]any{"allocations": dtos})
}

// CopyWeek godoc
// @Summary Copy a week's allocations of all team members into another week
// @Description Overwrites the target week. Requires confirmed=true. Individual failures are counted.
// @Tags Allocation
// @Accept json
// @Produce json
// @Param projectId path int true "Project ID"
// @Param request body CopyWeekRequest true "Copy request"
// @Success 200 {object} CopyResultDTO
// @Failure 400 {object} rest.ErrorResponse
// @Failure 403 {object} rest.ErrorResponse
// @Failure 428 {object} rest.ErrorResponse "Confirmation required"
// @Router /api/projects/{projectId}/copy-week [post]
// @Security XSessionId
func (h *Handler) CopyWeek(w http.ResponseWriter, r *http.Request) {
	projectId, err := rest.PathInt(r, "projectId")
	if rest.WriteValidationError(w, err) {
		return
	}
	var req CopyWeekRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	result, err := h.service.CopyWeek(r.Context(), projectId, req.SourceWeek, req.TargetWeek, req.Year, req.Confirmed)
	if err != nil {
		WriteServiceError(w, err, "Failed to copy week")
		return
	}
	message := fmt.Sprintf("Copied %d allocations", result.SuccessCount)
	if result.ErrorCount > 0 {
		message = fmt.Sprintf("Copied %d allocations with %d failures", result.SuccessCount, result.ErrorCount)
	}
	rest.WriteMessage(w, http.StatusOK, message, CopyResultDTO{
		SuccessCount: result.SuccessCount,
		ErrorCount:   result.ErrorCount,
	})
}

// EditableAllocations godoc
// @Summary Get the project's allocations in the weeks the caller may edit
// @Tags Allocation
// @Produce json
// @Param projectId path int true "Project ID"
// @Success 200 {object} EditableAllocationsDTO
// @Failure 403 {object} rest.ErrorResponse
// @Failure 404 {object} rest.ErrorResponse
// @Router /api/projects/{projectId}/editable-allocations [get]
// @Security XSessionId
func (h *Handler) EditableAllocations(w http.ResponseWriter, r *http.Request) {
	projectId, err := rest.PathInt(r, "projectId")
	if rest.WriteValidationError(w, err) {
		return
	}
	editable, err := h.service.EditableAllocations(r.Context(), projectId)
	if err != nil {
		WriteServiceError(w, err, "Failed to get editable allocations")
		return
	}
	weeks := make([]week_calendar.WeekRangeDTO, 0, len(editable.Weeks))
	for _, week := range editable.Weeks {
		weeks = append(weeks, week_calendar.ToDTO(week))
	}
	entries := make([]EntryDTO, 0, len(editable.Entries))
	for _, entry := range editable.Entries {
		entries = append(entries, EntryToDTO(entry))
	}
	rest.WriteJSON(w, http.StatusOK, EditableAllocationsDTO{
		Project:       project.ToDTO(editable.Project),
		CurrentWeek:   editable.CurrentWeek,
		EditableWeeks: weeks,
		Allocations:   entries,
	})
}

// WriteServiceError maps allocation and project errors to HTTP statuses.
func WriteServiceError(w http.ResponseWriter, err error, message string) {
	if rest.WriteValidationError(w, err) {
		return
	}
	switch {
	case errors.Is(err, user.ErrNoUser):
		rest.WriteError(w, http.StatusUnauthorized, "Invalid session", "")
	case errors.Is(err, ErrEditNotAllowed), errors.Is(err, ErrReadNotAllowed), errors.Is(err, project.ErrAccessDenied):
		rest.WriteError(w, http.StatusForbidden, err.Error(), "")
	case errors.Is(err, ErrWeekLocked):
		rest.WriteError(w, http.StatusForbidden, "Past weeks are read-only", "")
	case errors.Is(err, ErrConfirmationRequired):
		rest.WriteError(w, http.StatusPreconditionRequired, err.Error(), "")
	case errors.Is(err, project.ErrProjectNotFound):
		rest.WriteError(w, http.StatusNotFound, "Project not found", "")
	case errors.Is(err, user.ErrUserNotFound):
		rest.WriteError(w, http.StatusNotFound, "User not found", "")
	case errors.Is(err, ErrEntryNotFound):
		rest.WriteError(w, http.StatusNotFound, "Allocation not found", "")
	default:
		log.Errorf("%s: %v", message, err)
		rest.WriteError(w, http.StatusInternalServerError, message, err.Error())
	}
}

func HoursToDTO(h Hours) HoursDTO {
	return TotalsToDTO(Totals{}.Add(h))
}

func TotalsToDTO(t Totals) HoursDTO {
	return HoursDTO{
		Billable:    t.Billable.InexactFloat64(),
		NonBillable: t.NonBillable.InexactFloat64(),
		Leave:       t.Leave.InexactFloat64(),
		Total:       t.Total.InexactFloat64(),
	}
}

func EntryToDTO(e HourEntry) EntryDTO {
	dto := EntryDTO{
		Id:             e.Id,
		UserId:         e.UserId,
		ProjectId:      e.ProjectId,
		ProjectName:    e.ProjectName,
		Week:           e.Week,
		Year:           e.Year,
		BillableHrs:    e.Billable.InexactFloat64(),
		NonBillableHrs: e.NonBillable.InexactFloat64(),
		LeaveHrs:       e.Leave.InexactFloat64(),
		TotalHours:     e.Total().InexactFloat64(),
		UpdatedBy:      e.UpdatedBy,
	}
	if !e.WeekStart.IsZero() {
		dto.WeekStart = e.WeekStart.Format(time.DateOnly)
	}
	if !e.UpdatedAt.IsZero() {
		dto.UpdatedAt = e.UpdatedAt.Format(time.RFC3339)
	}
	return dto
}

// ParseHours converts request floats, rejecting values that are not finite.
func ParseHours(billable, nonBillable, leave float64) (Hours, error) {
	for name, v := range map[string]float64{"billable_hrs": billable, "non_billable_hrs": nonBillable, "leave_hrs": leave} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Hours{}, rest.NewValidationError(name, "Hours must be a number")
		}
	}
	return Hours{
		Billable:    decimal.NewFromFloat(billable).Round(2),
		NonBillable: decimal.NewFromFloat(nonBillable).Round(2),
		Leave:       decimal.NewFromFloat(leave).Round(2),
	}, nil
}

func weeklyAllocationsToDTO(view ProjectWeeklyView) WeeklyAllocationsDTO {
	users := make([]MemberWeeksDTO, 0, len(view.Members))
	for _, member := range view.Members {
		weeks := make(map[int]HoursDTO, len(view.Weeks))
		for _, week := range view.Weeks {
			weeks[week] = TotalsToDTO(AggregateUserWeek(member, week))
		}
		users = append(users, MemberWeeksDTO{
			UserId:   member.UserId,
			UserName: user.User{Firstname: member.Firstname, Lastname: member.Lastname}.FullName(),
			UserRole: project.Member{Roles: member.Roles}.RoleName(),
			Weeks:    weeks,
			Totals:   TotalsToDTO(AggregateProjectTotals([]TeamMember{member}, view.Weeks)),
		})
	}
	weekTotals := make(map[int]HoursDTO, len(view.WeekTotals))
	for week, totals := range view.WeekTotals {
		weekTotals[week] = TotalsToDTO(totals)
	}
	return WeeklyAllocationsDTO{
		Project:    project.ToDTO(view.Project),
		Year:       view.Year,
		Weeks:      view.Weeks,
		Users:      users,
		WeekTotals: weekTotals,
		Totals:     TotalsToDTO(view.Totals),
	}
}
