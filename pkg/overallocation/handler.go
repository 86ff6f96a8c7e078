package overallocation

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	log "github.com/sirupsen/logrus"
	"github.com/tppms/tppms/internal/rest"
	"github.com/tppms/tppms/pkg/allocation"
)

type RowDTO struct {
	ProjectId        int     `json:"project_id"`
	ProjectName      string  `json:"project_name"`
	BillableHrs      float64 `json:"billable_hrs"`
	NonBillableHrs   float64 `json:"non_billable_hrs"`
	LeaveHrs         float64 `json:"leave_hrs"`
	TotalHours       float64 `json:"total_hours"`
	IsCurrentProject bool    `json:"isCurrentProject"`
	RoleName         string  `json:"role_name,omitempty"`
}

type CheckResultDTO struct {
	UserId              int      `json:"user_id"`
	Week                int      `json:"week"`
	Year                int      `json:"year"`
	CurrentProjectId    int      `json:"current_project_id"`
	CurrentTotal        float64  `json:"current_total"`
	NewTotal            float64  `json:"new_total"`
	IsOverallocated     bool     `json:"is_overallocated"`
	OverBy              float64  `json:"over_by"`
	Limit               float64  `json:"limit"`
	CurrentProjectHours float64  `json:"current_project_hours"`
	NewProjectHours     float64  `json:"new_project_hours"`
	Degraded            bool     `json:"degraded"`
	Allocations         []RowDTO `json:"allocations"`
}

type BreakdownDTO struct {
	UserId           int      `json:"user_id"`
	UserName         string   `json:"user_name"`
	Week             int      `json:"week"`
	Year             int      `json:"year"`
	TotalBillable    float64  `json:"total_billable"`
	TotalNonBillable float64  `json:"total_non_billable"`
	TotalLeave       float64  `json:"total_leave"`
	TotalHours       float64  `json:"total_hours"`
	IsOverallocated  bool     `json:"is_overallocated"`
	OverBy           float64  `json:"over_by"`
	Limit            float64  `json:"limit"`
	Allocations      []RowDTO `json:"allocations"`
}

type SaveRequest struct {
	UserId         int     `json:"user_id"`
	Week           int     `json:"week"`
	Year           int     `json:"year"`
	BillableHrs    float64 `json:"billable_hrs"`
	NonBillableHrs float64 `json:"non_billable_hrs"`
	LeaveHrs       float64 `json:"leave_hrs"`
	KeepOverLimit  bool    `json:"keep_over_limit"`
}

type UpdateRequest struct {
	BillableHrs    float64 `json:"billable_hrs"`
	NonBillableHrs float64 `json:"non_billable_hrs"`
	LeaveHrs       float64 `json:"leave_hrs"`
	KeepOverLimit  bool    `json:"keep_over_limit"`
}

type SaveResponseDTO struct {
	State      string              `json:"state"`
	Allocation allocation.EntryDTO `json:"allocation"`
	Check      CheckResultDTO      `json:"check"`
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// CheckOverallocation godoc
// @Summary Check whether an edit would overallocate a user
// @Description Sums the user's hours across all projects with the proposed hours replacing the current project
// @Tags Overallocation
// @Produce json
// @Param user_id query int true "User ID"
// @Param week query int true "Week number"
// @Param year query int true "Year"
// @Param current_project_id query int true "Edited project"
// @Param new_billable query number false "Proposed billable hours"
// @Param new_non_billable query number false "Proposed non-billable hours"
// @Param new_leave query number false "Proposed leave hours"
// @Success 200 {object} CheckResultDTO
// @Failure 400 {object} rest.ErrorResponse
// @Router /api/allocation/check-overallocation [get]
// @Security XSessionId
func (h *Handler) CheckOverallocation(w http.ResponseWriter, r *http.Request) {
	proposal, err := proposalFromQuery(r)
	if rest.WriteValidationError(w, err) {
		return
	}
	log.Debugf("Checking overallocation for user %d week %d/%d project %d",
		proposal.UserId, proposal.Week, proposal.Year, proposal.ProjectId)

	result, err := h.service.CheckOverallocation(r.Context(), proposal)
	if err != nil {
		writeServiceError(w, err, "Failed to check overallocation")
		return
	}
	rest.WriteJSON(w, http.StatusOK, CheckResultToDTO(result))
}

// UserWeekBreakdown godoc
// @Summary Get a user's allocations across all projects for a week
// @Tags Overallocation
// @Produce json
// @Param user_id query int true "User ID"
// @Param week query int true "Week number"
// @Param year query int true "Year"
// @Success 200 {object} BreakdownDTO
// @Failure 404 {object} rest.ErrorResponse "User not found"
// @Router /api/allocation/user-week-breakdown [get]
// @Security XSessionId
func (h *Handler) UserWeekBreakdown(w http.ResponseWriter, r *http.Request) {
	userId, err := rest.QueryInt(r, "user_id")
	if rest.WriteValidationError(w, err) {
		return
	}
	week, err := rest.QueryInt(r, "week")
	if rest.WriteValidationError(w, err) {
		return
	}
	year, err := rest.QueryInt(r, "year")
	if rest.WriteValidationError(w, err) {
		return
	}
	breakdown, err := h.service.UserWeekBreakdown(r.Context(), userId, week, year)
	if err != nil {
		writeServiceError(w, err, "Failed to get user week breakdown")
		return
	}
	rest.WriteJSON(w, http.StatusOK, BreakdownToDTO(breakdown))
}

// SaveAllocation godoc
// @Summary Create or update an allocation
// @Description Saves right away within the weekly limit. Over the limit responds 409 with the check
// @Description unless keep_over_limit is set.
// @Tags Overallocation
// @Accept json
// @Produce json
// @Param projectId path int true "Project ID"
// @Param request body SaveRequest true "Allocation"
// @Success 200 {object} SaveResponseDTO
// @Failure 400 {object} rest.ErrorResponse
// @Failure 403 {object} rest.ErrorResponse "Not allowed or week locked"
// @Failure 409 {object} SaveResponseDTO "User would be overallocated"
// @Router /api/projects/{projectId}/allocations [post]
// @Security XSessionId
func (h *Handler) SaveAllocation(w http.ResponseWriter, r *http.Request) {
	projectId, err := rest.PathInt(r, "projectId")
	if rest.WriteValidationError(w, err) {
		return
	}
	var req SaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	hours, err := allocation.ParseHours(req.BillableHrs, req.NonBillableHrs, req.LeaveHrs)
	if rest.WriteValidationError(w, err) {
		return
	}

	outcome, err := h.service.Save(r.Context(), allocation.HourEntry{
		UserId:    req.UserId,
		ProjectId: projectId,
		Week:      req.Week,
		Year:      req.Year,
		Hours:     hours,
	}, req.KeepOverLimit)
	if err != nil {
		writeServiceError(w, err, "Failed to save allocation")
		return
	}

	writeOutcome(w, outcome)
}

// UpdateAllocation godoc
// @Summary Update the hours of a stored allocation
// @Description Same limit handling as saving: 409 with the check when over the limit unless keep_over_limit is set.
// @Tags Overallocation
// @Accept json
// @Produce json
// @Param id path int true "Allocation ID"
// @Param request body UpdateRequest true "Hours"
// @Success 200 {object} SaveResponseDTO
// @Failure 400 {object} rest.ErrorResponse
// @Failure 403 {object} rest.ErrorResponse "Not allowed or week locked"
// @Failure 404 {object} rest.ErrorResponse "Allocation not found"
// @Failure 409 {object} SaveResponseDTO "User would be overallocated"
// @Router /api/allocations/{id} [put]
// @Security XSessionId
func (h *Handler) UpdateAllocation(w http.ResponseWriter, r *http.Request) {
	id, err := rest.PathInt(r, "id")
	if rest.WriteValidationError(w, err) {
		return
	}
	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	hours, err := allocation.ParseHours(req.BillableHrs, req.NonBillableHrs, req.LeaveHrs)
	if rest.WriteValidationError(w, err) {
		return
	}
	log.Debugf("Updating allocation %d", id)

	outcome, err := h.service.Update(r.Context(), id, hours, req.KeepOverLimit)
	if err != nil {
		writeServiceError(w, err, "Failed to update allocation")
		return
	}
	writeOutcome(w, outcome)
}

func writeOutcome(w http.ResponseWriter, outcome SaveOutcome) {
	response := SaveResponseDTO{
		State:      outcome.State.String(),
		Allocation: allocation.EntryToDTO(outcome.Entry),
		Check:      CheckResultToDTO(outcome.Check),
	}
	switch outcome.State {
	case StateAwaitingUserDecision:
		rest.WriteMessage(w, http.StatusConflict, "User would be overallocated", response)
	case StateKeptAnyway:
		rest.WriteMessage(w, http.StatusOK, "Allocation saved over the weekly limit", response)
	default:
		rest.WriteMessage(w, http.StatusOK, "Allocation saved", response)
	}
}

func writeServiceError(w http.ResponseWriter, err error, message string) {
	switch {
	case errors.Is(err, ErrMalformedResponse), errors.Is(err, ErrRemoteRejected):
		log.Errorf("%s: %v", message, err)
		rest.WriteError(w, http.StatusBadGateway, message, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		rest.WriteError(w, http.StatusGatewayTimeout, message, err.Error())
	case IsTransient(err):
		rest.WriteError(w, http.StatusBadGateway, message, err.Error())
	default:
		allocation.WriteServiceError(w, err, message)
	}
}

func proposalFromQuery(r *http.Request) (Proposal, error) {
	var (
		p   Proposal
		err error
	)
	if p.UserId, err = rest.QueryInt(r, "user_id"); err != nil {
		return Proposal{}, err
	}
	if p.Week, err = rest.QueryInt(r, "week"); err != nil {
		return Proposal{}, err
	}
	if p.Year, err = rest.QueryInt(r, "year"); err != nil {
		return Proposal{}, err
	}
	if p.ProjectId, err = rest.QueryInt(r, "current_project_id"); err != nil {
		return Proposal{}, err
	}
	billable, err := rest.QueryFloatOr(r, "new_billable", 0)
	if err != nil {
		return Proposal{}, err
	}
	nonBillable, err := rest.QueryFloatOr(r, "new_non_billable", 0)
	if err != nil {
		return Proposal{}, err
	}
	leave, err := rest.QueryFloatOr(r, "new_leave", 0)
	if err != nil {
		return Proposal{}, err
	}
	p.Hours, err = allocation.ParseHours(billable, nonBillable, leave)
	return p, err
}

func CheckResultToDTO(result CheckResult) CheckResultDTO {
	rows := make([]RowDTO, 0, len(result.Allocations))
	for _, row := range result.Allocations {
		dto := rowToDTO(row.ProjectId, row.ProjectName, row.Hours)
		dto.IsCurrentProject = row.IsCurrentProject
		rows = append(rows, dto)
	}
	return CheckResultDTO{
		UserId:              result.UserId,
		Week:                result.Week,
		Year:                result.Year,
		CurrentProjectId:    result.CurrentProjectId,
		CurrentTotal:        result.CurrentTotal.InexactFloat64(),
		NewTotal:            result.NewTotal.InexactFloat64(),
		IsOverallocated:     result.IsOverallocated,
		OverBy:              result.OverBy.InexactFloat64(),
		Limit:               result.Limit.InexactFloat64(),
		CurrentProjectHours: result.CurrentProjectHours.InexactFloat64(),
		NewProjectHours:     result.NewProjectHours.InexactFloat64(),
		Degraded:            result.Degraded,
		Allocations:         rows,
	}
}

func BreakdownToDTO(b Breakdown) BreakdownDTO {
	rows := make([]RowDTO, 0, len(b.Allocations))
	for _, a := range b.Allocations {
		dto := rowToDTO(a.ProjectId, a.ProjectName, a.Hours)
		dto.RoleName = a.RoleName
		rows = append(rows, dto)
	}
	return BreakdownDTO{
		UserId:           b.UserId,
		UserName:         b.UserName,
		Week:             b.Week,
		Year:             b.Year,
		TotalBillable:    b.Totals.Billable.InexactFloat64(),
		TotalNonBillable: b.Totals.NonBillable.InexactFloat64(),
		TotalLeave:       b.Totals.Leave.InexactFloat64(),
		TotalHours:       b.Totals.Total.InexactFloat64(),
		IsOverallocated:  b.IsOverallocated,
		OverBy:           b.OverBy.InexactFloat64(),
		Limit:            b.Limit.InexactFloat64(),
		Allocations:      rows,
	}
}

func rowToDTO(projectId int, projectName string, h allocation.Hours) RowDTO {
	return RowDTO{
		ProjectId:      projectId,
		ProjectName:    projectName,
		BillableHrs:    h.Billable.InexactFloat64(),
		NonBillableHrs: h.NonBillable.InexactFloat64(),
		LeaveHrs:       h.Leave.InexactFloat64(),
		TotalHours:     h.Total().InexactFloat64(),
	}
}
