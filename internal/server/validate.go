package server

import (
	"net/http"
	"strings"

	"github.com/adamancini/sn2n/internal/validate"
)

type validatePayload struct {
	PageID      string `json:"pageId"`
	Content     string `json:"content"`
	ContentHTML string `json:"contentHtml"`
}

func (p *validatePayload) html() string {
	if p.ContentHTML != "" {
		return p.ContentHTML
	}
	return p.Content
}

// handleValidate scores a page against its source without modifying it.
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var payload validatePayload
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, err.Error(), nil)
		return
	}
	if payload.PageID == "" {
		writeError(w, http.StatusBadRequest, codeValidation, "pageId is required", nil)
		return
	}
	if strings.TrimSpace(payload.html()) == "" {
		writeError(w, http.StatusBadRequest, codeValidation, "content or contentHtml is required", nil)
		return
	}

	rep, err := s.comparator.Validate(r.Context(), payload.PageID, payload.html())
	if err != nil {
		writeNotionError(w, err)
		return
	}
	writeData(w, http.StatusOK, reportData(rep))
}

// handleCompare scores a page and writes the outcome back as page
// properties.
func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	pageID := r.PathValue("pageId")

	var payload validatePayload
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, err.Error(), nil)
		return
	}
	if strings.TrimSpace(payload.html()) == "" {
		writeError(w, http.StatusBadRequest, codeValidation, "content or contentHtml is required", nil)
		return
	}

	rep, err := s.comparator.ComparePage(r.Context(), pageID, payload.html())
	if err != nil {
		// A property write failure still produced a usable report.
		if rep == nil {
			writeNotionError(w, err)
			return
		}
		data := reportData(rep)
		data["warnings"] = []string{err.Error()}
		writeData(w, http.StatusOK, data)
		return
	}
	writeData(w, http.StatusOK, reportData(rep))
}

func reportData(rep *validate.Report) map[string]any {
	return map[string]any{
		"coverage":     rep.Coverage,
		"missingCount": rep.MissingCount,
		"missingSpans": rep.MissingSpans,
		"method":       string(rep.Method),
		"status":       rep.Status,
		"runId":        rep.RunID,
		"lastChecked":  rep.CheckedAt,
	}
}
