package project

import (
	"errors"
	"net/http"

	log "github.com/sirupsen/logrus"
	"github.com/tppms/tppms/internal/rest"
	"github.com/tppms/tppms/pkg/user"
)

type ProjectDTO struct {
	Id          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Status      int    `json:"status"`
	RoleName    string `json:"role_name,omitempty"`
}

type MemberDTO struct {
	Id        int      `json:"id"`
	Login     string   `json:"login"`
	Firstname string   `json:"firstname"`
	Lastname  string   `json:"lastname"`
	RoleName  string   `json:"role_name"`
	Roles     []string `json:"roles"`
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// ListAll godoc
// @Summary List all active projects
// @Tags Project
// @Produce json
// @Success 200 {array} ProjectDTO
// @Failure 403 {object} rest.ErrorResponse
// @Router /api/projects [get]
// @Security XSessionId
func (h *Handler) ListAll(w http.ResponseWriter, r *http.Request) {
	log.Debug("Listing all projects")
	projects, err := h.service.ListAll(r.Context())
	if err != nil {
		writeServiceError(w, err, "Failed to get projects")
		return
	}
	rest.WriteJSON(w, http.StatusOK, toDTOs(projects))
}

// MyProjects godoc
// @Summary List projects of the current user
// @Tags Project
// @Produce json
// @Success 200 {object} map[string][]ProjectDTO
// @Router /api/projects/my-projects [get]
// @Security XSessionId
func (h *Handler) MyProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.service.MyProjects(r.Context())
	if err != nil {
		writeServiceError(w, err, "Failed to get projects")
		return
	}
	rest.WriteJSON(w, http.StatusOK, map[string]any{"projects": toDTOs(projects)})
}

// MyOwnedProjects godoc
// @Summary List projects owned by the current user
// @Tags Project
// @Produce json
// @Success 200 {object} map[string][]ProjectDTO
// @Router /api/projects/my-po-projects [get]
// @Security XSessionId
func (h *Handler) MyOwnedProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.service.MyOwnedProjects(r.Context())
	if err != nil {
		writeServiceError(w, err, "Failed to get PO projects")
		return
	}
	rest.WriteJSON(w, http.StatusOK, map[string]any{"projects": toDTOs(projects)})
}

// Members godoc
// @Summary List active members of a project
// @Tags Project
// @Produce json
// @Param projectId path int true "Project ID"
// @Success 200 {object} map[string]any
// @Failure 403 {object} rest.ErrorResponse
// @Failure 404 {object} rest.ErrorResponse
// @Router /api/projects/{projectId}/users [get]
// @Security XSessionId
func (h *Handler) Members(w http.ResponseWriter, r *http.Request) {
	projectId, err := rest.PathInt(r, "projectId")
	if rest.WriteValidationError(w, err) {
		return
	}
	p, members, err := h.service.Members(r.Context(), projectId)
	if err != nil {
		writeServiceError(w, err, "Failed to get project users")
		return
	}
	users := make([]MemberDTO, 0, len(members))
	for _, m := range members {
		users = append(users, MemberDTO{
			Id:        m.UserId,
			Login:     m.Login,
			Firstname: m.Firstname,
			Lastname:  m.Lastname,
			RoleName:  m.RoleName(),
			Roles:     m.Roles,
		})
	}
	rest.WriteJSON(w, http.StatusOK, map[string]any{"project": ToDTO(p), "users": users})
}

// writeServiceError maps project errors to HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error, message string) {
	switch {
	case errors.Is(err, user.ErrNoUser):
		rest.WriteError(w, http.StatusUnauthorized, "Invalid session", "")
	case errors.Is(err, ErrAccessDenied):
		rest.WriteError(w, http.StatusForbidden, err.Error(), "")
	case errors.Is(err, ErrProjectNotFound):
		rest.WriteError(w, http.StatusNotFound, "Project not found", "")
	default:
		log.Errorf("%s: %v", message, err)
		rest.WriteError(w, http.StatusInternalServerError, message, err.Error())
	}
}

func ToDTO(p Project) ProjectDTO {
	return ProjectDTO{
		Id:          p.Id,
		Name:        p.Name,
		Description: p.Description,
		Status:      p.Status,
		RoleName:    p.RoleName,
	}
}

func toDTOs(projects []Project) []ProjectDTO {
	dtos := make([]ProjectDTO, 0, len(projects))
	for _, p := range projects {
		dtos = append(dtos, ToDTO(p))
	}
	return dtos
}
