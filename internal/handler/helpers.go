package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"warbler/internal/transport/http/middleware"
)

const (
	defaultListLimit = 20
	maxListLimit     = 50
)

// pathID parses a numeric URL parameter.
func pathID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}

// viewerID returns the authenticated user's id as a pointer, nil when the
// request is anonymous.
func viewerID(r *http.Request) *int64 {
	if id, ok := middleware.GetUserIDFromContext(r.Context()); ok {
		return &id
	}
	return nil
}

// queryLimit parses the "limit" query parameter, clamped to maxListLimit.
func queryLimit(r *http.Request) int {
	limit := defaultListLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	return limit
}

// queryCursor returns the "cursor" query parameter, nil when absent.
func queryCursor(r *http.Request) *string {
	if s := r.URL.Query().Get("cursor"); s != "" {
		return &s
	}
	return nil
}
