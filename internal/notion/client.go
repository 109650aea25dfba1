// Package notion wraps the Notion API with rate limiting, chunked block
// operations, and the file-upload endpoints the SDK does not cover.
package notion

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jomei/notionapi"
	"golang.org/x/time/rate"
)

const (
	// DefaultRateLimit is the default requests per second (Notion's limit is 3/sec).
	DefaultRateLimit = 3

	// DefaultBatchSize is the max blocks per append request.
	DefaultBatchSize = 100

	// DefaultNotionVersion is sent with raw REST requests.
	DefaultNotionVersion = "2022-06-28"

	// restBaseURL is the base for endpoints the SDK does not expose.
	restBaseURL = "https://api.notion.com/v1"
)

// Client wraps the Notion API client with rate limiting and helper methods.
type Client struct {
	api       *notionapi.Client
	limiter   *rate.Limiter
	batchSize int
	logger    *slog.Logger

	// Raw REST access for the file-upload endpoints.
	token      string
	version    string
	httpClient *http.Client
	baseURL    string
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithRateLimit sets a custom rate limit.
func WithRateLimit(requestsPerSecond float64) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), 1)
	}
}

// WithBatchSize sets a custom batch size for block operations.
func WithBatchSize(size int) ClientOption {
	return func(c *Client) {
		c.batchSize = size
	}
}

// WithLogger sets the structured logger. The default discards.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithNotionVersion overrides the API version header on raw REST calls.
func WithNotionVersion(version string) ClientOption {
	return func(c *Client) {
		c.version = version
	}
}

// WithHTTPClient sets the HTTP client used for raw REST calls.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithBaseURL overrides the REST base URL. Tests point this at a local
// server.
func WithBaseURL(base string) ClientOption {
	return func(c *Client) {
		c.baseURL = base
	}
}

// New creates a new Notion API client with rate limiting.
func New(token string, opts ...ClientOption) *Client {
	c := &Client{
		api:        notionapi.NewClient(notionapi.Token(token)),
		limiter:    rate.NewLimiter(rate.Every(time.Second/DefaultRateLimit), 1),
		batchSize:  DefaultBatchSize,
		logger:     slog.New(slog.DiscardHandler),
		token:      token,
		version:    DefaultNotionVersion,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		baseURL:    restBaseURL,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// wait blocks until the rate limiter allows a request.
func (c *Client) wait(ctx context.Context) error {
	return c.limiter.Wait(ctx)
}

// GetDatabase retrieves a database by ID.
func (c *Client) GetDatabase(ctx context.Context, databaseID string) (*notionapi.Database, error) {
	if err := c.wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	db, err := c.api.Database.Get(ctx, notionapi.DatabaseID(databaseID))
	if err != nil {
		return nil, fmt.Errorf("get database: %w", err)
	}

	return db, nil
}

// API returns the underlying notionapi.Client for advanced operations.
func (c *Client) API() *notionapi.Client {
	return c.api
}
