package google

import (
	"errors"
	"net/http"
	"net/url"

	log "github.com/sirupsen/logrus"
	"github.com/tppms/tppms/internal/rest"
)

type googleAuthRedirect struct {
	RedirectUrl string `json:"redirectUrl"`
}

type Handler struct {
	service Service
}

func NewHandler(s Service) *Handler {
	return &Handler{s}
}

// Login godoc
// @Summary Start a Google login
// @Tags Auth
// @Produce json
// @Param finalUrl query string false "Frontend url to return to"
// @Success 200 {object} googleAuthRedirect
// @Failure 400 {object} rest.ErrorResponse "Final url is not a known frontend"
// @Failure 503 {object} rest.ErrorResponse "Google login not configured"
// @Router /api/auth/google/login [get]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	redirectUrl, err := h.service.LoginURL(r.Context(), r.URL.Query().Get("finalUrl"))
	if errors.Is(err, ErrNotConfigured) {
		rest.WriteError(w, http.StatusServiceUnavailable, "Google login is not configured", "")
		return
	}
	if rest.WriteValidationError(w, err) {
		return
	}
	if err != nil {
		log.Errorf("failed to start Google login: %v", err)
		rest.WriteError(w, http.StatusInternalServerError, "Failed to handle Google authentication", "")
		return
	}
	rest.WriteJSON(w, http.StatusOK, googleAuthRedirect{RedirectUrl: redirectUrl})
}

// Callback godoc
// @Summary Finish a Google login
// @Description Redirects to the final url with success and, on success, the session id in the fragment
// @Tags Auth
// @Param code query string true "Authorization code"
// @Param state query string true "Login nonce"
// @Success 302
// @Router /api/auth/google/callback [get]
func (h *Handler) Callback(w http.ResponseWriter, r *http.Request) {
	finalUrl, sess, err := h.service.CompleteLogin(r.Context(), r.FormValue("code"), r.FormValue("state"))
	if errors.Is(err, ErrInvalidState) {
		rest.WriteError(w, http.StatusBadRequest, "Invalid login state", "")
		return
	}
	if err != nil {
		log.Errorf("Google login failed: %v", err)
		http.Redirect(w, r, finalUrl+"?success=false", http.StatusFound)
		return
	}
	fragment := url.Values{"session_id": {sess.Id.String()}}.Encode()
	http.Redirect(w, r, finalUrl+"?success=true#"+fragment, http.StatusFound)
}
