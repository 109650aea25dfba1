package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/jomei/notionapi"

	"github.com/adamancini/sn2n/internal/convert"
	"github.com/adamancini/sn2n/internal/log"
	"github.com/adamancini/sn2n/internal/pipeline"
)

// uploadPayload is the body of POST /api/W2N and PATCH /api/W2N/{pageId}.
// Content and ContentHTML are aliases; ContentHTML wins when both are
// set.
type uploadPayload struct {
	Title       string         `json:"title"`
	Content     string         `json:"content"`
	ContentHTML string         `json:"contentHtml"`
	DatabaseID  string         `json:"databaseId"`
	URL         string         `json:"url"`
	Properties  map[string]any `json:"properties"`
	Icon        *filePayload   `json:"icon"`
	Cover       *filePayload   `json:"cover"`
	DryRun      bool           `json:"dryRun"`
}

// filePayload carries an icon or cover reference.
type filePayload struct {
	Type     string `json:"type"`
	Emoji    string `json:"emoji,omitempty"`
	URL      string `json:"url,omitempty"`
	External *struct {
		URL string `json:"url"`
	} `json:"external,omitempty"`
}

func (p *uploadPayload) html() string {
	if p.ContentHTML != "" {
		return p.ContentHTML
	}
	return p.Content
}

func (p *uploadPayload) validateCreate() (code, message string) {
	if strings.TrimSpace(p.Title) == "" {
		return codeValidation, "title is required"
	}
	if strings.TrimSpace(p.html()) == "" {
		return codeValidation, "content or contentHtml is required"
	}
	if p.DatabaseID == "" && !p.DryRun {
		return codeValidation, "databaseId is required unless dryRun is set"
	}
	return "", ""
}

func (p *uploadPayload) toPipelineRequest() pipeline.Request {
	req := pipeline.Request{
		Title:       p.Title,
		URL:         p.URL,
		DatabaseID:  p.DatabaseID,
		ContentHTML: p.html(),
		DryRun:      p.DryRun,
		Icon:        p.Icon.toIcon(),
		Cover:       p.Cover.toCover(),
	}
	if len(p.Properties) > 0 {
		req.Properties = make(map[string]string, len(p.Properties))
		for name, value := range p.Properties {
			if value == nil {
				continue
			}
			req.Properties[name] = fmt.Sprint(value)
		}
	}
	return req
}

func (p *filePayload) externalURL() string {
	if p.External != nil && p.External.URL != "" {
		return p.External.URL
	}
	return p.URL
}

func (p *filePayload) toIcon() *notionapi.Icon {
	if p == nil {
		return nil
	}
	if p.Emoji != "" {
		emoji := notionapi.Emoji(p.Emoji)
		return &notionapi.Icon{Type: "emoji", Emoji: &emoji}
	}
	if url := p.externalURL(); url != "" {
		return &notionapi.Icon{
			Type:     "external",
			External: &notionapi.FileObject{URL: url},
		}
	}
	return nil
}

func (p *filePayload) toCover() *notionapi.Image {
	if p == nil {
		return nil
	}
	url := p.externalURL()
	if url == "" {
		return nil
	}
	return &notionapi.Image{
		Type:     "external",
		External: &notionapi.FileObject{URL: url},
	}
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var payload uploadPayload
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, err.Error(), nil)
		return
	}
	if code, message := payload.validateCreate(); code != "" {
		writeError(w, http.StatusBadRequest, code, message, nil)
		return
	}

	res, err := s.uploader.Upload(r.Context(), payload.toPipelineRequest())
	if err != nil {
		log.FromContext(r.Context()).Error("upload failed", "title", payload.Title, "error", err)
		writeNotionError(w, err)
		return
	}

	if res.DryRun {
		writeData(w, http.StatusOK, map[string]any{
			"dryRun":    true,
			"children":  res.Children,
			"hasVideos": res.HasVideos,
			"markers":   res.Markers,
		})
		return
	}

	data := uploadResponse(payload.Title, res)

	// Post-upload validation is best effort; a comparator failure never
	// fails a request whose page already exists.
	if rep, err := s.comparator.ComparePage(r.Context(), res.PageID, payload.html()); rep != nil {
		data["validationResult"] = reportData(rep)
		if err != nil {
			log.FromContext(r.Context()).Warn("validation write-back failed", "page_id", res.PageID, "error", err)
		}
	} else if err != nil {
		log.FromContext(r.Context()).Warn("validation failed", "page_id", res.PageID, "error", err)
	}

	writeData(w, http.StatusOK, data)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	pageID := r.PathValue("pageId")

	var payload uploadPayload
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, err.Error(), nil)
		return
	}
	if strings.TrimSpace(payload.html()) == "" {
		writeError(w, http.StatusBadRequest, codeValidation, "content or contentHtml is required", nil)
		return
	}

	res, err := s.uploader.Update(r.Context(), pageID, payload.toPipelineRequest())
	if err != nil {
		log.FromContext(r.Context()).Error("update failed", "page_id", pageID, "error", err)
		writeNotionError(w, err)
		return
	}

	writeData(w, http.StatusOK, uploadResponse(payload.Title, res))
}

func uploadResponse(title string, res *pipeline.Result) map[string]any {
	data := map[string]any{
		"pageUrl": res.PageURL,
		"page": map[string]any{
			"id":    res.PageID,
			"url":   res.PageURL,
			"title": title,
		},
		"stats": map[string]any{
			"blocks":           res.Blocks,
			"appended":         res.Appended,
			"markers":          res.Markers,
			"resolved":         res.Resolved,
			"orphaned":         res.Orphaned,
			"dedupedBlocks":    res.Deduped,
			"filteredCallouts": res.Filtered,
		},
		"hasVideos": res.HasVideos,
	}
	if len(res.Warnings) > 0 {
		data["warnings"] = res.Warnings
	}
	return data
}

func (s *Server) handleDatabase(w http.ResponseWriter, r *http.Request) {
	databaseID := r.PathValue("id")

	db, err := s.notion.GetDatabase(r.Context(), databaseID)
	if err != nil {
		writeNotionError(w, err)
		return
	}

	properties := make(map[string]any, len(db.Properties))
	for name, cfg := range db.Properties {
		prop := map[string]any{"type": string(cfg.GetType())}
		if options := selectOptions(cfg); len(options) > 0 {
			prop["options"] = options
		}
		properties[name] = prop
	}

	writeData(w, http.StatusOK, map[string]any{
		"id":         string(db.ID),
		"title":      convert.PlainText(db.Title),
		"properties": properties,
	})
}

func selectOptions(cfg notionapi.PropertyConfig) []string {
	var opts []notionapi.Option
	switch c := cfg.(type) {
	case *notionapi.SelectPropertyConfig:
		opts = c.Select.Options
	case *notionapi.MultiSelectPropertyConfig:
		opts = c.MultiSelect.Options
	default:
		return nil
	}
	names := make([]string, 0, len(opts))
	for _, opt := range opts {
		names = append(names, opt.Name)
	}
	return names
}

// handleCleanup strips marker tokens from a page that a failed or
// cancelled run left behind.
func (s *Server) handleCleanup(w http.ResponseWriter, r *http.Request) {
	pageID := r.PathValue("pageId")
	logger := log.FromContext(r.Context())

	refs, err := s.notion.Descendants(r.Context(), pageID)
	if err != nil {
		writeNotionError(w, err)
		return
	}

	swept := 0
	var warnings []string
	for _, ref := range refs {
		if !convert.HasAnyToken(ref.RichText) {
			continue
		}
		if err := s.notion.UpdateRichText(r.Context(), ref, convert.StripAllTokens(ref.RichText)); err != nil {
			warnings = append(warnings, fmt.Sprintf("block %s: %v", ref.ID, err))
			continue
		}
		swept++
	}

	logger.Info("cleanup complete", "page_id", pageID, "swept", swept, "failures", len(warnings))
	data := map[string]any{"sweptBlocks": swept}
	if len(warnings) > 0 {
		data["warnings"] = warnings
	}
	writeData(w, http.StatusOK, data)
}
