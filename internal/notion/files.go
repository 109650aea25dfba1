package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
)

// FileUpload is a Notion file upload object from the raw REST API, which
// the SDK does not cover.
type FileUpload struct {
	Object      string `json:"object"`
	ID          string `json:"id"`
	CreatedTime string `json:"created_time"`
	ExpiryTime  string `json:"expiry_time"`
	FileName    string `json:"file_name,omitempty"`
	MimeType    string `json:"mime_type,omitempty"`
	Size        int64  `json:"size,omitempty"`
	Status      string `json:"status"`
	UploadURL   string `json:"upload_url,omitempty"`
}

type createFileUploadRequest struct {
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type,omitempty"`
}

// CreateFileUpload registers a new single-part file upload and returns
// the object carrying the upload URL.
func (c *Client) CreateFileUpload(ctx context.Context, filename, contentType string) (*FileUpload, error) {
	if filename == "" {
		return nil, fmt.Errorf("create file upload: file name is required")
	}

	body, err := json.Marshal(createFileUploadRequest{FileName: filename, ContentType: contentType})
	if err != nil {
		return nil, fmt.Errorf("create file upload: %w", err)
	}

	if err := c.wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/file_uploads", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create file upload: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.setAuthHeaders(req)

	var upload FileUpload
	if err := c.doJSON(req, &upload); err != nil {
		return nil, fmt.Errorf("create file upload: %w", err)
	}
	return &upload, nil
}

// SendFileUpload posts the file content to the upload URL as multipart
// form data.
func (c *Client) SendFileUpload(ctx context.Context, upload *FileUpload, content io.Reader) (*FileUpload, error) {
	if upload == nil || upload.UploadURL == "" {
		return nil, fmt.Errorf("send file upload: no upload URL")
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", upload.FileName)
	if err != nil {
		return nil, fmt.Errorf("send file upload: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, fmt.Errorf("send file upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("send file upload: %w", err)
	}

	if err := c.wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, upload.UploadURL, &buf)
	if err != nil {
		return nil, fmt.Errorf("send file upload: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	c.setAuthHeaders(req)

	var sent FileUpload
	if err := c.doJSON(req, &sent); err != nil {
		return nil, fmt.Errorf("send file upload: %w", err)
	}
	return &sent, nil
}

// UploadFile runs the single-part upload flow: register, then send.
func (c *Client) UploadFile(ctx context.Context, filename, contentType string, content io.Reader) (*FileUpload, error) {
	upload, err := c.CreateFileUpload(ctx, filename, contentType)
	if err != nil {
		return nil, err
	}
	return c.SendFileUpload(ctx, upload, content)
}

func (c *Client) setAuthHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Notion-Version", c.version)
}

// doJSON executes the request and decodes the JSON response, translating
// non-2xx responses into an error carrying the Notion error body.
func (c *Client) doJSON(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		if apiErr.Message != "" {
			return fmt.Errorf("notion API %d (%s): %s", resp.StatusCode, apiErr.Code, apiErr.Message)
		}
		return fmt.Errorf("notion API %d", resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
