package rest

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
)

// PathInt parses a numeric mux path variable.
func PathInt(r *http.Request, name string) (int, error) {
	value, err := strconv.Atoi(mux.Vars(r)[name])
	if err != nil {
		return 0, NewValidationError(name, "Parameter "+name+" must be a number")
	}
	return value, nil
}

// QueryInt parses a required numeric query parameter.
func QueryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, NewValidationError(name, "Parameter "+name+" is required")
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, NewValidationError(name, "Parameter "+name+" must be a number")
	}
	return value, nil
}

// QueryIntOr parses an optional numeric query parameter.
func QueryIntOr(r *http.Request, name string, fallback int) (int, error) {
	if r.URL.Query().Get(name) == "" {
		return fallback, nil
	}
	return QueryInt(r, name)
}

// QueryIntList parses a comma separated list such as "29,30,31".
func QueryIntList(r *http.Request, name string) ([]int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	values := make([]int, 0, len(parts))
	for _, part := range parts {
		value, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, NewValidationError(name, "Parameter "+name+" must be a comma separated list of numbers")
		}
		values = append(values, value)
	}
	return values, nil
}

// QueryFloatOr parses an optional decimal query parameter.
func QueryFloatOr(r *http.Request, name string, fallback float64) (float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, NewValidationError(name, "Parameter "+name+" must be a number")
	}
	return value, nil
}
