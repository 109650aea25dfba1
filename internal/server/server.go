// Package server exposes the conversion service over HTTP: page create
// and update, database schema lookup, file uploads, validation, and
// health.
package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jomei/notionapi"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/adamancini/sn2n/internal/log"
	"github.com/adamancini/sn2n/internal/notion"
	"github.com/adamancini/sn2n/internal/pipeline"
	"github.com/adamancini/sn2n/internal/validate"
)

// UploadService runs the conversion pipeline. *pipeline.Uploader
// satisfies it.
type UploadService interface {
	Upload(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
	Update(ctx context.Context, pageID string, req pipeline.Request) (*pipeline.Result, error)
}

// ValidateService scores uploaded pages. *validate.Comparator satisfies
// it.
type ValidateService interface {
	Validate(ctx context.Context, pageID, sourceHTML string) (*validate.Report, error)
	ComparePage(ctx context.Context, pageID, sourceHTML string) (*validate.Report, error)
}

// NotionService is the slice of the Notion client the handlers use
// directly, outside the pipeline.
type NotionService interface {
	GetDatabase(ctx context.Context, databaseID string) (*notionapi.Database, error)
	UploadFile(ctx context.Context, filename, contentType string, content io.Reader) (*notion.FileUpload, error)
	Descendants(ctx context.Context, pageID string) ([]notion.BlockRef, error)
	UpdateRichText(ctx context.Context, ref notion.BlockRef, rt []notionapi.RichText) error
}

// Config holds server configuration.
type Config struct {
	Addr    string
	Version string
	Logger  *slog.Logger
}

// Server routes HTTP requests to the conversion service.
type Server struct {
	mux        *http.ServeMux
	uploader   UploadService
	comparator ValidateService
	notion     NotionService
	logger     *slog.Logger
	version    string
	addr       string

	// fetchURL downloads a remote file for /api/fetch-and-upload.
	// Swapped out in tests.
	fetchURL func(ctx context.Context, url string) ([]byte, string, error)
}

// New creates a Server and registers all routes.
func New(cfg Config, uploader UploadService, comparator ValidateService, api NotionService) *Server {
	s := &Server{
		mux:        http.NewServeMux(),
		uploader:   uploader,
		comparator: comparator,
		notion:     api,
		logger:     cfg.Logger,
		version:    cfg.Version,
		addr:       cfg.Addr,
		fetchURL:   fetchURL,
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}

	s.mux.HandleFunc("POST /api/W2N", s.handleCreate)
	s.mux.HandleFunc("PATCH /api/W2N/{pageId}", s.handleUpdate)
	s.mux.HandleFunc("GET /api/databases/{id}", s.handleDatabase)
	s.mux.HandleFunc("GET /api/health", s.handleHealth)
	s.mux.HandleFunc("GET /health", s.handleLegacyHealth)
	s.mux.HandleFunc("POST /api/fetch-and-upload", s.handleFetchAndUpload)
	s.mux.HandleFunc("POST /api/upload-to-notion", s.handleUploadToNotion)
	s.mux.HandleFunc("POST /api/validate", s.handleValidate)
	s.mux.HandleFunc("POST /api/compare/{pageId}", s.handleCompare)
	s.mux.HandleFunc("POST /api/cleanup/{pageId}", s.handleCleanup)
	s.mux.Handle("GET /metrics", promhttp.Handler())

	return s
}

// ServeHTTP implements http.Handler, wrapping the mux with request-id
// assignment and request logging.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	requestID := r.Header.Get("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	w.Header().Set("X-Request-ID", requestID)

	logger := log.WithRequestID(s.logger, requestID)
	r = r.WithContext(log.IntoContext(r.Context(), logger))

	defer func() {
		logger.Info("request completed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
	}()

	s.mux.ServeHTTP(w, r)
}

// ListenAndServe runs the server until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", s.addr, "version", s.version)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}

// handleLegacyHealth serves the pre-envelope shape older callers poll.
func (s *Server) handleLegacyHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
