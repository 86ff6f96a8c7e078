package metrics

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// unmatchedRoute labels requests served outside a mux route.
const unmatchedRoute = "unmatched"

type routeKey struct{}

var pathLabel = promhttp.WithLabelFromCtx("path", func(ctx context.Context) string {
	if template, ok := ctx.Value(routeKey{}).(string); ok {
		return template
	}
	return unmatchedRoute
})

// Middleware records request count and duration labelled by the matched route template,
// so "/api/projects/12/users" is counted as "/api/projects/{projectId}/users".
func Middleware(next http.Handler) http.Handler {
	instrumented := promhttp.InstrumentHandlerDuration(RequestDuration,
		promhttp.InstrumentHandlerCounter(RequestTotal, next, pathLabel),
		pathLabel,
	)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), routeKey{}, routeTemplate(r))
		instrumented.ServeHTTP(w, r.WithContext(ctx))
	})
}

func routeTemplate(r *http.Request) string {
	route := mux.CurrentRoute(r)
	if route == nil {
		return unmatchedRoute
	}
	template, err := route.GetPathTemplate()
	if err != nil {
		return unmatchedRoute
	}
	return template
}
