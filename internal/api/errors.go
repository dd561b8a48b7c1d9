package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/neosqlite/internal/sqlitedb"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes.
const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeNotFound     = "not_found"
	ErrCodeUnauthorized = "unauthorised"
	ErrCodeInternal     = "internal_error"
	ErrCodeValidation   = "validation_error"

	// Database error codes mirror sqlitedb.Kind.
	ErrCodeTableDoesNotExist = "table_does_not_exist"
	ErrCodeExecution         = "execution"
	ErrCodeClosed            = "closed"
)

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

// writeDBError maps a handle error onto an HTTP status.
//
//	ErrTableDoesNotExist → 404
//	ErrExecution         → 400 (SQLite rejected the statement)
//	ErrClosed            → 503
func writeDBError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, sqlitedb.ErrTableDoesNotExist):
		writeError(w, http.StatusNotFound, ErrCodeTableDoesNotExist, err.Error())
	case errors.Is(err, sqlitedb.ErrClosed):
		writeError(w, http.StatusServiceUnavailable, ErrCodeClosed, err.Error())
	case errors.Is(err, sqlitedb.ErrExecution):
		writeError(w, http.StatusBadRequest, ErrCodeExecution, err.Error())
	default:
		writeInternalError(w, "database error")
	}
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// writeValidationError writes a 400 error response for rejected input.
func writeValidationError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeValidation, message)
}

// writeUnauthorized writes a 401 error response.
func writeUnauthorized(w http.ResponseWriter, message string) {
	writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}
