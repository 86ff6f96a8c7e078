package user

import (
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/tppms/tppms/internal/rest"
)

type UserDTO struct {
	Id        int    `json:"id"`
	Login     string `json:"login"`
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
	Admin     bool   `json:"admin"`
	Status    int    `json:"status"`
	CreatedOn string `json:"created_on,omitempty"`
}

type Handler struct {
	userService Service
}

func NewHandler(userService Service) *Handler {
	return &Handler{
		userService: userService,
	}
}

// CurrentUser godoc
// @Summary Get the authenticated user
// @Tags User
// @Produce json
// @Success 200 {object} UserDTO
// @Failure 401 {object} rest.ErrorResponse "Invalid session"
// @Router /api/auth/me [get]
// @Security XSessionId
func (h *Handler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	log.Debug("Getting current user")
	currentUser, err := h.userService.GetCurrentUser(r.Context())
	if err != nil {
		rest.WriteError(w, http.StatusUnauthorized, "Invalid session", "")
		return
	}
	rest.WriteJSON(w, http.StatusOK, map[string]any{"user": ToDTO(currentUser)})
}

func ToDTO(u User) UserDTO {
	dto := UserDTO{
		Id:        u.Id,
		Login:     u.Login,
		Firstname: u.Firstname,
		Lastname:  u.Lastname,
		Admin:     u.Admin,
		Status:    u.Status,
	}
	if !u.CreatedOn.IsZero() {
		dto.CreatedOn = u.CreatedOn.Format(time.RFC3339)
	}
	return dto
}
