package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/adamancini/sn2n/internal/metrics"
	"github.com/adamancini/sn2n/internal/notion"
)

// Stable error codes surfaced to callers.
const (
	codeValidation   = "validation_error"
	codeNotFound     = "not_found"
	codeUnauthorized = "unauthorized"
	codeRateLimited  = "rate_limited"
	codeInternal     = "internal_error"

	// codePageArchived is distinct from codeValidation so callers can
	// unarchive the page and retry.
	codePageArchived = "page_archived"
)

// Request bodies are capped well above the largest documentation page.
const maxBodyBytes = 20 << 20

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type envelope struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *errorBody `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to write JSON response", slog.Any("error", err))
	}
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	writeJSON(w, status, envelope{Success: false, Error: &errorBody{
		Code:    code,
		Message: message,
		Details: details,
	}})
}

// writeNotionError classifies a Notion failure into the error taxonomy
// and records it.
func writeNotionError(w http.ResponseWriter, err error) {
	switch {
	case notion.IsNotFound(err):
		metrics.RecordNotionError("not_found")
		writeError(w, http.StatusNotFound, codeNotFound, err.Error(), nil)
	case notion.IsUnauthorized(err):
		metrics.RecordNotionError("unauthorized")
		writeError(w, http.StatusUnauthorized, codeUnauthorized, err.Error(), nil)
	case notion.IsRateLimited(err):
		metrics.RecordNotionError("rate_limited")
		writeError(w, http.StatusTooManyRequests, codeRateLimited, err.Error(), nil)
	case notion.IsArchived(err):
		metrics.RecordNotionError("archived")
		writeError(w, http.StatusBadRequest, codePageArchived, err.Error(), nil)
	case notion.IsValidation(err):
		metrics.RecordNotionError("validation")
		writeError(w, http.StatusBadRequest, codeValidation, err.Error(), nil)
	default:
		metrics.RecordNotionError("internal")
		writeError(w, http.StatusInternalServerError, codeInternal, err.Error(), nil)
	}
}

// decodeJSON decodes the request body into dst, rejecting unknown
// oversized bodies and trailing garbage.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}
