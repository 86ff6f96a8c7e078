package dashboard

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"github.com/tppms/tppms/internal/rest"
	"github.com/tppms/tppms/internal/utils"
	"github.com/tppms/tppms/pkg/allocation"
	"github.com/tppms/tppms/pkg/project"
	"github.com/tppms/tppms/pkg/user"
	"github.com/tppms/tppms/pkg/week_calendar"
)

type CountDTO struct {
	Count       int    `json:"count"`
	Description string `json:"description"`
}

type SummaryDTO struct {
	UserManagement struct {
		ActiveUsers   CountDTO `json:"active_users"`
		NewUsers      CountDTO `json:"new_users"`
		InactiveUsers CountDTO `json:"inactive_users"`
	} `json:"user_management"`
	ProjectManagement struct {
		ActiveProjects    CountDTO `json:"active_projects"`
		OnHoldProjects    CountDTO `json:"on_hold_projects"`
		CompletedProjects CountDTO `json:"completed_projects"`
	} `json:"project_management"`
}

type UserCountsDTO struct {
	ActiveUsers   int `json:"active_users"`
	NewUsers      int `json:"new_users"`
	InactiveUsers int `json:"inactive_users"`
}

type AdminPaginationDTO struct {
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
	Total   int `json:"total"`
	Pages   int `json:"pages"`
}

type UserRowDTO struct {
	Id        int    `json:"id"`
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
	Email     string `json:"email"`
	Status    int    `json:"status"`
	Admin     bool   `json:"admin"`
	CreatedAt string `json:"created_at,omitempty"`
}

type UserListDTO struct {
	Users      []UserRowDTO       `json:"users"`
	Pagination AdminPaginationDTO `json:"pagination"`
}

type ProjectRowDTO struct {
	Id          int     `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Status      int     `json:"status"`
	StatusLabel string  `json:"status_label"`
	MemberCount int     `json:"member_count"`
	TotalHours  float64 `json:"total_hours"`
}

type ProjectListDTO struct {
	Projects   []ProjectRowDTO    `json:"projects"`
	Pagination AdminPaginationDTO `json:"pagination"`
}

type OwnerProjectDTO struct {
	Id                     int     `json:"id"`
	Name                   string  `json:"name"`
	Description            string  `json:"description"`
	Status                 int     `json:"status"`
	StatusLabel            string  `json:"status_label"`
	RoleName               string  `json:"role_name"`
	MemberCount            int     `json:"member_count"`
	TotalBillable          float64 `json:"total_billable"`
	TotalNonBillable       float64 `json:"total_non_billable"`
	TotalLeave             float64 `json:"total_leave"`
	TotalHours             float64 `json:"total_hours"`
	CapacityHours          float64 `json:"capacity_hours"`
	AllocatedPercentage    float64 `json:"allocated_percentage"`
	NotAllocatedPercentage float64 `json:"not_allocated_percentage"`
}

type OwnerPaginationDTO struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

type OwnerFiltersDTO struct {
	Year      int    `json:"year"`
	Month     int    `json:"month,omitempty"`
	Weeks     []int  `json:"weeks,omitempty"`
	Search    string `json:"search,omitempty"`
	Status    string `json:"status"`
	SortBy    string `json:"sort_by"`
	SortOrder string `json:"sort_order"`
}

type OwnerDashboardDTO struct {
	Projects   []OwnerProjectDTO  `json:"projects"`
	Weeks      []int              `json:"weeks"`
	Pagination OwnerPaginationDTO `json:"pagination"`
	Filters    OwnerFiltersDTO    `json:"filters"`
}

type Handler struct {
	service Service
	clock   utils.Clock
}

func NewHandler(service Service, clock utils.Clock) *Handler {
	return &Handler{service: service, clock: clock}
}

// AdminSummary godoc
// @Summary Count users and projects per status
// @Tags Dashboard
// @Produce json
// @Success 200 {object} SummaryDTO
// @Failure 403 {object} rest.ErrorResponse "Admin access required"
// @Router /api/admin/dashboard-summary [get]
// @Security XSessionId
func (h *Handler) AdminSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.AdminSummary(r.Context())
	if err != nil {
		writeServiceError(w, err, "Failed to get dashboard summary")
		return
	}
	var dto SummaryDTO
	dto.UserManagement.ActiveUsers = CountDTO{Count: summary.Users.Active, Description: "users"}
	dto.UserManagement.NewUsers = CountDTO{Count: summary.Users.New, Description: "pending approval"}
	dto.UserManagement.InactiveUsers = CountDTO{Count: summary.Users.Inactive, Description: "users"}
	dto.ProjectManagement.ActiveProjects = CountDTO{Count: summary.Projects.Active, Description: "projects"}
	dto.ProjectManagement.OnHoldProjects = CountDTO{Count: summary.Projects.OnHold, Description: "projects"}
	dto.ProjectManagement.CompletedProjects = CountDTO{Count: summary.Projects.Completed, Description: "projects"}
	rest.WriteJSON(w, http.StatusOK, dto)
}

// UserCounts godoc
// @Summary Count users per status
// @Tags Dashboard
// @Produce json
// @Success 200 {object} UserCountsDTO
// @Failure 403 {object} rest.ErrorResponse "Admin access required"
// @Router /api/admin/user-counts [get]
// @Security XSessionId
func (h *Handler) UserCounts(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.AdminSummary(r.Context())
	if err != nil {
		writeServiceError(w, err, "Failed to get user counts")
		return
	}
	rest.WriteJSON(w, http.StatusOK, UserCountsDTO{
		ActiveUsers:   summary.Users.Active,
		NewUsers:      summary.Users.New,
		InactiveUsers: summary.Users.Inactive,
	})
}

// Users godoc
// @Summary List users of a status
// @Tags Dashboard
// @Produce json
// @Param status path string true "active, new or inactive"
// @Param page query int false "Page, default 1"
// @Param per_page query int false "Page size, default 20"
// @Param search query string false "Matches name or login"
// @Success 200 {object} UserListDTO
// @Failure 400 {object} rest.ErrorResponse
// @Failure 403 {object} rest.ErrorResponse "Admin access required"
// @Router /api/admin/users/{status} [get]
// @Security XSessionId
func (h *Handler) Users(w http.ResponseWriter, r *http.Request) {
	status, err := ParseUserStatus(mux.Vars(r)["status"])
	if rest.WriteValidationError(w, err) {
		return
	}
	page, err := pageFrom(r, "per_page", DefaultAdminPageSize)
	if rest.WriteValidationError(w, err) {
		return
	}
	listing, err := h.service.UsersByStatus(r.Context(), status, r.URL.Query().Get("search"), page)
	if err != nil {
		writeServiceError(w, err, "Failed to get users")
		return
	}
	rows := make([]UserRowDTO, 0, len(listing.Items))
	for _, u := range listing.Items {
		row := UserRowDTO{
			Id:        u.Id,
			Firstname: u.Firstname,
			Lastname:  u.Lastname,
			Email:     u.Login,
			Status:    u.Status,
			Admin:     u.Admin,
		}
		if !u.CreatedOn.IsZero() {
			row.CreatedAt = u.CreatedOn.Format(time.RFC3339)
		}
		rows = append(rows, row)
	}
	rest.WriteJSON(w, http.StatusOK, UserListDTO{Users: rows, Pagination: adminPagination(listing.Pagination)})
}

// Projects godoc
// @Summary List projects of a status with member counts and booked hours
// @Tags Dashboard
// @Produce json
// @Param status path string true "active, on-hold or completed"
// @Param page query int false "Page, default 1"
// @Param per_page query int false "Page size, default 20"
// @Param search query string false "Matches name or description"
// @Success 200 {object} ProjectListDTO
// @Failure 400 {object} rest.ErrorResponse
// @Failure 403 {object} rest.ErrorResponse "Admin access required"
// @Router /api/admin/projects/{status} [get]
// @Security XSessionId
func (h *Handler) Projects(w http.ResponseWriter, r *http.Request) {
	status, err := ParseProjectStatus(mux.Vars(r)["status"])
	if rest.WriteValidationError(w, err) {
		return
	}
	page, err := pageFrom(r, "per_page", DefaultAdminPageSize)
	if rest.WriteValidationError(w, err) {
		return
	}
	listing, err := h.service.ProjectsByStatus(r.Context(), status, r.URL.Query().Get("search"), page)
	if err != nil {
		writeServiceError(w, err, "Failed to get projects")
		return
	}
	rows := make([]ProjectRowDTO, 0, len(listing.Items))
	for _, s := range listing.Items {
		rows = append(rows, ProjectRowDTO{
			Id:          s.Id,
			Name:        s.Name,
			Description: s.Description,
			Status:      s.Status,
			StatusLabel: project.StatusLabel(s.Status),
			MemberCount: s.MemberCount,
			TotalHours:  s.TotalHours.InexactFloat64(),
		})
	}
	rest.WriteJSON(w, http.StatusOK, ProjectListDTO{Projects: rows, Pagination: adminPagination(listing.Pagination)})
}

// OwnerDashboard godoc
// @Summary Totals and utilisation of the caller's owned projects
// @Description The period is the given weeks, else the weeks of the month, else the display window of the current week.
// @Tags Dashboard
// @Produce json
// @Param year query int false "Year, default the current year"
// @Param month query int false "Month 1-12"
// @Param weeks query string false "Comma separated week numbers"
// @Param search query string false "Matches name or description"
// @Param status query string false "all, active, onhold or completed"
// @Param sort_by query string false "name, allocated, not_allocated or status"
// @Param sort_order query string false "asc or desc"
// @Param page query int false "Page, default 1"
// @Param page_size query int false "Page size, default 10"
// @Success 200 {object} OwnerDashboardDTO
// @Failure 400 {object} rest.ErrorResponse
// @Failure 403 {object} rest.ErrorResponse
// @Router /api/projects/my-po-dashboard [get]
// @Security XSessionId
func (h *Handler) OwnerDashboard(w http.ResponseWriter, r *http.Request) {
	query, err := h.ownerQuery(r)
	if rest.WriteValidationError(w, err) {
		return
	}
	log.Debugf("Getting owner dashboard for %+v", query)

	dashboard, err := h.service.OwnerDashboard(r.Context(), query)
	if err != nil {
		writeServiceError(w, err, "Failed to get owner dashboard")
		return
	}
	rows := make([]OwnerProjectDTO, 0, len(dashboard.Projects.Items))
	for _, row := range dashboard.Projects.Items {
		rows = append(rows, OwnerProjectDTO{
			Id:                     row.Project.Id,
			Name:                   row.Project.Name,
			Description:            row.Project.Description,
			Status:                 row.Project.Status,
			StatusLabel:            project.StatusLabel(row.Project.Status),
			RoleName:               row.Project.RoleName,
			MemberCount:            row.MemberCount,
			TotalBillable:          row.Totals.Billable.InexactFloat64(),
			TotalNonBillable:       row.Totals.NonBillable.InexactFloat64(),
			TotalLeave:             row.Totals.Leave.InexactFloat64(),
			TotalHours:             row.Totals.Total.InexactFloat64(),
			CapacityHours:          row.Capacity.InexactFloat64(),
			AllocatedPercentage:    row.AllocatedPercentage.InexactFloat64(),
			NotAllocatedPercentage: row.NotAllocatedPercentage.InexactFloat64(),
		})
	}
	sortOrder := "asc"
	if query.Descending {
		sortOrder = "desc"
	}
	p := dashboard.Projects.Pagination
	rest.WriteJSON(w, http.StatusOK, OwnerDashboardDTO{
		Projects: rows,
		Weeks:    dashboard.Weeks,
		Pagination: OwnerPaginationDTO{
			Page:       p.Page,
			PageSize:   p.Size,
			Total:      p.Total,
			TotalPages: p.Pages,
		},
		Filters: OwnerFiltersDTO{
			Year:      query.Year,
			Month:     query.Month,
			Weeks:     query.Weeks,
			Search:    query.Search,
			Status:    query.Status,
			SortBy:    query.SortBy,
			SortOrder: sortOrder,
		},
	})
}

func (h *Handler) ownerQuery(r *http.Request) (OwnerQuery, error) {
	values := r.URL.Query()
	q := OwnerQuery{
		Search: strings.TrimSpace(values.Get("search")),
		Status: FilterAll,
		SortBy: SortByName,
	}
	var err error
	if q.Year, err = rest.QueryIntOr(r, "year", week_calendar.CurrentPeriod(h.clock).Year); err != nil {
		return OwnerQuery{}, err
	}
	if q.Month, err = rest.QueryIntOr(r, "month", 0); err != nil {
		return OwnerQuery{}, err
	}
	if q.Weeks, err = rest.QueryIntList(r, "weeks"); err != nil {
		return OwnerQuery{}, err
	}
	if status := values.Get("status"); status != "" {
		q.Status = status
	}
	if sortBy := values.Get("sort_by"); sortBy != "" {
		q.SortBy = sortBy
	}
	switch values.Get("sort_order") {
	case "", "asc":
	case "desc":
		q.Descending = true
	default:
		return OwnerQuery{}, rest.NewValidationError("sort_order", "Sort order must be asc or desc")
	}
	if q.Page, err = pageFrom(r, "page_size", DefaultOwnerPageSize); err != nil {
		return OwnerQuery{}, err
	}
	return q, nil
}

func pageFrom(r *http.Request, sizeParam string, defaultSize int) (Page, error) {
	number, err := rest.QueryIntOr(r, "page", 1)
	if err != nil {
		return Page{}, err
	}
	size, err := rest.QueryIntOr(r, sizeParam, defaultSize)
	if err != nil {
		return Page{}, err
	}
	return Page{Number: number, Size: size}, nil
}

func adminPagination(p Pagination) AdminPaginationDTO {
	return AdminPaginationDTO{Page: p.Page, PerPage: p.Size, Total: p.Total, Pages: p.Pages}
}

func writeServiceError(w http.ResponseWriter, err error, message string) {
	if rest.WriteValidationError(w, err) {
		return
	}
	switch {
	case errors.Is(err, ErrAccessDenied):
		rest.WriteError(w, http.StatusForbidden, "Admin access required", "")
	case errors.Is(err, user.ErrNoUser):
		rest.WriteError(w, http.StatusUnauthorized, "Invalid session", "")
	case errors.Is(err, project.ErrAccessDenied), errors.Is(err, allocation.ErrReadNotAllowed):
		rest.WriteError(w, http.StatusForbidden, err.Error(), "")
	default:
		log.Errorf("%s: %v", message, err)
		rest.WriteError(w, http.StatusInternalServerError, message, "")
	}
}
