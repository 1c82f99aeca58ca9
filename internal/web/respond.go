package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/worklog/importer/internal/importer"
	"github.com/worklog/importer/internal/logging"
	"github.com/worklog/importer/internal/store"
)

type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON encodes v and writes it with the given status.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.FromContext(r.Context()).Error("json encode failed", "error", err)
	}
}

// writeError writes a JSON error response and logs the message.
func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	logging.FromContext(r.Context()).Warn("request failed", "status", status, "error", message)
	writeJSON(w, r, status, errorResponse{Error: message})
}

// writeServiceError maps pipeline errors onto HTTP statuses. Parse failures
// and unknown kinds are the caller's fault; everything else is a 500 with
// the detail kept server-side.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var pe *importer.ParseError
	switch {
	case errors.As(err, &pe):
		writeError(w, r, http.StatusBadRequest, pe.Error())
	case errors.Is(err, store.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "not found")
	default:
		logging.FromContext(r.Context()).Error("import request failed", "error", err)
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
