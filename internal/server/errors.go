package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dtnitsch/layout-editor/pkg/catalog"
	"github.com/dtnitsch/layout-editor/pkg/db"
	"github.com/dtnitsch/layout-editor/pkg/editor"
)

var (
	errBadRequest      = errors.New("bad request")
	errSessionNotFound = errors.New("session not found")
)

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps an error to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, editor.ErrPersistence):
		return http.StatusInternalServerError
	case errors.Is(err, editor.ErrInvalidInput),
		errors.Is(err, catalog.ErrInvalidUpload),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, errSessionNotFound),
		errors.Is(err, editor.ErrNotFound),
		errors.Is(err, catalog.ErrNotFound),
		errors.Is(err, db.ErrPageNotFound):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	} else {
		s.logger.Debug("request rejected", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
