package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
)

// ErrMessageInternal is the generic message for 500 responses. Do not expose internal details to clients.
const ErrMessageInternal = "internal server error"

// ErrMessageUnauthorized is the uniform 401 body. Authentication failures are
// deliberately indistinguishable to clients; the reason lives in the logs.
const ErrMessageUnauthorized = "invalid authentication credentials"

// writeJSON sends v as a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// JSONError sends a JSON error response with a single "error" field.
func JSONError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}

// JSONValidationError sends a JSON error response with "error" and optional "fields" for field-level details.
// status is typically http.StatusUnprocessableEntity (422).
func JSONValidationError(w http.ResponseWriter, message string, fields map[string]string, status int) {
	out := map[string]interface{}{"error": message}
	if len(fields) > 0 {
		out["fields"] = fields
	}
	writeJSON(w, status, out)
}

// parsePagination reads page and page_size query params with the API defaults
// (page 1, page_size 10, capped at 100) and returns them with the row offset.
func parsePagination(r *http.Request) (page, pageSize, offset int) {
	page = 1
	pageSize = 10
	if p := r.URL.Query().Get("page"); p != "" {
		if n, err := strconv.Atoi(p); err == nil && n >= 1 {
			page = n
		}
	}
	if s := r.URL.Query().Get("page_size"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n >= 1 && n <= 100 {
			pageSize = n
		}
	}
	return page, pageSize, (page - 1) * pageSize
}
