package app

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"github.com/tppms/tppms/internal/authz"
	"github.com/tppms/tppms/internal/metrics"
	"github.com/tppms/tppms/internal/rest"
	"github.com/tppms/tppms/pkg/session"
	"github.com/tppms/tppms/pkg/user"
)

// SetupMiddleware wires all HTTP middlewares for the application.
func SetupMiddleware(r *mux.Router, deps *Dependencies) {
	r.Use(metrics.Middleware)
	r.Use(sessionMiddleware(deps))
}

// sessionMiddleware resolves the X-Session-ID header into the request's user and role.
func sessionMiddleware(deps *Dependencies) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			sessionId := req.Header.Get(session.Header)
			if sessionId == "" {
				next.ServeHTTP(w, req)
				return
			}

			ctx := req.Context()
			u, err := deps.SessionService.Resolve(ctx, sessionId)
			if err != nil {
				if errors.Is(err, session.ErrSessionNotFound) || errors.Is(err, session.ErrSessionExpired) ||
					errors.Is(err, session.ErrInactiveUser) || errors.Is(err, user.ErrUserNotFound) {
					log.Debugf("rejecting session: %v", err)
					rest.WriteError(w, http.StatusUnauthorized, "Invalid session", "")
					return
				}
				log.Errorf("failed to resolve session: %v", err)
				rest.WriteError(w, http.StatusInternalServerError, "Failed to resolve session", "")
				return
			}

			isOwner := false
			if !u.Admin {
				isOwner, err = deps.ProjectService.IsProjectOwner(ctx, u.Id)
				if err != nil {
					log.Errorf("failed to resolve role of user %d: %v", u.Id, err)
					rest.WriteError(w, http.StatusInternalServerError, "Failed to resolve session", "")
					return
				}
			}
			role := authz.RoleOf(u, isOwner)
			log.Tracef("request by %s as %s", u.Login, role)

			ctx = authz.WithRole(user.WithUser(ctx, u), role)
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	}
}

// requireUser rejects requests that carry no valid session.
func requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if _, err := user.CurrentUser(req.Context()); err != nil {
			rest.WriteError(w, http.StatusUnauthorized, "Authentication required", "")
			return
		}
		next.ServeHTTP(w, req)
	})
}

type authorizer interface {
	Allowed(ctx context.Context, object, action string) bool
}

// requireCapability rejects callers whose role lacks action on object.
func requireCapability(authorizer authorizer, object, action string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if !authorizer.Allowed(req.Context(), object, action) {
				log.Debugf("denied %s on %s to %s", action, object, authz.RoleFrom(req.Context()))
				rest.WriteError(w, http.StatusForbidden, "Access denied", "")
				return
			}
			next.ServeHTTP(w, req)
		})
	}
}
