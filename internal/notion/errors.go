package notion

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/jomei/notionapi"
)

// ChunkError reports a failed append chunk. Earlier chunks were already
// written, so the caller decides whether the partial page is kept or
// surfaced as a partial success.
type ChunkError struct {
	Chunk  int // zero-based index of the failed chunk
	Chunks int // total chunks in the request
	Err    error
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("append chunk %d of %d: %v", e.Chunk+1, e.Chunks, e.Err)
}

func (e *ChunkError) Unwrap() error {
	return e.Err
}

// apiError extracts the Notion API error from an error chain.
func apiError(err error) (*notionapi.Error, bool) {
	var apiErr *notionapi.Error
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// IsNotFound reports whether the error is an object_not_found response.
func IsNotFound(err error) bool {
	if apiErr, ok := apiError(err); ok {
		return apiErr.Status == http.StatusNotFound || apiErr.Code == "object_not_found"
	}
	return false
}

// IsUnauthorized reports whether the error is an auth failure.
func IsUnauthorized(err error) bool {
	if apiErr, ok := apiError(err); ok {
		return apiErr.Status == http.StatusUnauthorized || apiErr.Code == "unauthorized"
	}
	return false
}

// IsRateLimited reports whether the error is a 429 from Notion.
func IsRateLimited(err error) bool {
	if apiErr, ok := apiError(err); ok {
		return apiErr.Status == http.StatusTooManyRequests || apiErr.Code == "rate_limited"
	}
	return false
}

// IsValidation reports whether Notion rejected the request body.
func IsValidation(err error) bool {
	if apiErr, ok := apiError(err); ok {
		return apiErr.Status == http.StatusBadRequest || apiErr.Code == "validation_error"
	}
	return false
}

// IsArchived reports whether Notion rejected a write because the target
// page or block is archived. Notion surfaces this as a validation_error
// whose message names the archived state, so the message is the only
// signal. Callers get a distinct code so they can unarchive and retry.
func IsArchived(err error) bool {
	apiErr, ok := apiError(err)
	if !ok || !IsValidation(err) {
		return false
	}
	return strings.Contains(strings.ToLower(apiErr.Message), "archived")
}
