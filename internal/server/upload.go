package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"
)

// fetchClient downloads source images; documentation CDNs can be slow.
var fetchClient = &http.Client{Timeout: 60 * time.Second}

const maxFetchBytes = 50 << 20

// fetchURL downloads a remote file and reports its content type.
func fetchURL(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("fetch %s: %w", url, err)
	}

	resp, err := fetchClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
	if err != nil {
		return nil, "", fmt.Errorf("fetch %s: %w", url, err)
	}
	return data, resp.Header.Get("Content-Type"), nil
}

type fetchAndUploadPayload struct {
	URL      string `json:"url"`
	FileName string `json:"fileName"`
}

// handleFetchAndUpload downloads a file from a URL and pushes it
// through Notion's file-upload flow.
func (s *Server) handleFetchAndUpload(w http.ResponseWriter, r *http.Request) {
	var payload fetchAndUploadPayload
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, err.Error(), nil)
		return
	}
	if payload.URL == "" {
		writeError(w, http.StatusBadRequest, codeValidation, "url is required", nil)
		return
	}

	data, contentType, err := s.fetchURL(r.Context(), payload.URL)
	if err != nil {
		writeError(w, http.StatusBadGateway, codeInternal, err.Error(), nil)
		return
	}

	filename := payload.FileName
	if filename == "" {
		filename = fileNameFromURL(payload.URL)
	}

	upload, err := s.notion.UploadFile(r.Context(), filename, contentType, bytes.NewReader(data))
	if err != nil {
		writeNotionError(w, err)
		return
	}

	writeData(w, http.StatusOK, map[string]any{
		"fileUploadId": upload.ID,
		"fileName":     filename,
	})
}

type uploadToNotionPayload struct {
	FileName    string `json:"fileName"`
	Data        string `json:"data"`
	ContentType string `json:"contentType"`
}

// handleUploadToNotion accepts base64 or data-URI content and pushes it
// through Notion's file-upload flow.
func (s *Server) handleUploadToNotion(w http.ResponseWriter, r *http.Request) {
	var payload uploadToNotionPayload
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, err.Error(), nil)
		return
	}
	if payload.FileName == "" {
		writeError(w, http.StatusBadRequest, codeValidation, "fileName is required", nil)
		return
	}
	if payload.Data == "" {
		writeError(w, http.StatusBadRequest, codeValidation, "data is required", nil)
		return
	}

	data, contentType, err := decodeFileData(payload.Data)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, err.Error(), nil)
		return
	}
	if payload.ContentType != "" {
		contentType = payload.ContentType
	}

	upload, err := s.notion.UploadFile(r.Context(), payload.FileName, contentType, bytes.NewReader(data))
	if err != nil {
		writeNotionError(w, err)
		return
	}

	writeData(w, http.StatusOK, map[string]any{
		"fileUploadId": upload.ID,
		"fileName":     payload.FileName,
	})
}

// decodeFileData decodes raw base64 or a data URI
// (data:image/png;base64,...), returning the bytes and any content type
// carried by the URI.
func decodeFileData(data string) ([]byte, string, error) {
	contentType := ""
	if strings.HasPrefix(data, "data:") {
		meta, encoded, found := strings.Cut(data[len("data:"):], ",")
		if !found {
			return nil, "", fmt.Errorf("malformed data URI")
		}
		contentType = strings.TrimSuffix(meta, ";base64")
		data = encoded
	}

	decoded, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, "", fmt.Errorf("decode base64 content: %w", err)
	}
	return decoded, contentType, nil
}

func fileNameFromURL(url string) string {
	trimmed := url
	if i := strings.IndexAny(trimmed, "?#"); i >= 0 {
		trimmed = trimmed[:i]
	}
	name := path.Base(trimmed)
	if name == "." || name == "/" || name == "" {
		return "download"
	}
	return name
}
