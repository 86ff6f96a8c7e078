package session

import (
	"encoding/json"
	"errors"
	"net/http"

	log "github.com/sirupsen/logrus"
	"github.com/tppms/tppms/internal/rest"
	"github.com/tppms/tppms/pkg/user"
)

type LoginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

type LoginResponse struct {
	SessionId string       `json:"session_id"`
	ExpiresAt string       `json:"expires_at"`
	User      user.UserDTO `json:"user"`
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Login godoc
// @Summary Log in with login and password
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Credentials"
// @Success 200 {object} LoginResponse
// @Failure 401 {object} rest.ErrorResponse "Invalid credentials"
// @Router /api/auth/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	session, u, err := h.service.Login(r.Context(), req.Login, req.Password)
	if rest.WriteValidationError(w, err) {
		return
	}
	if errors.Is(err, ErrInvalidCredentials) || errors.Is(err, ErrInactiveUser) {
		rest.WriteError(w, http.StatusUnauthorized, "Invalid login or password", "")
		return
	}
	if err != nil {
		log.Errorf("login failed: %v", err)
		rest.WriteError(w, http.StatusInternalServerError, "Login failed", "")
		return
	}
	rest.WriteMessage(w, http.StatusOK, "Login successful", LoginResponse{
		SessionId: session.Id.String(),
		ExpiresAt: session.ExpiresAt.UTC().Format("2006-01-02T15:04:05Z"),
		User:      user.ToDTO(u),
	})
}

// Logout godoc
// @Summary End the current session
// @Tags Auth
// @Success 200
// @Router /api/auth/logout [post]
// @Security XSessionId
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Logout(r.Context(), r.Header.Get(Header)); err != nil && !errors.Is(err, ErrSessionNotFound) {
		log.Errorf("logout failed: %v", err)
		rest.WriteError(w, http.StatusInternalServerError, "Logout failed", "")
		return
	}
	rest.WriteMessage(w, http.StatusOK, "Logged out", nil)
}
