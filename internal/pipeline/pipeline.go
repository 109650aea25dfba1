// Package pipeline drives the conversion and upload of one document into
// Notion: convert to blocks, create the page, append the remainder in
// chunks, then resolve deferred-block markers and sweep leftover tokens.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jomei/notionapi"

	"github.com/adamancini/sn2n/internal/convert"
	"github.com/adamancini/sn2n/internal/metrics"
	"github.com/adamancini/sn2n/internal/notion"
)

// NotionAPI is the client surface the pipeline needs. *notion.Client
// satisfies it; tests substitute an in-memory fake.
type NotionAPI interface {
	CreatePage(ctx context.Context, spec notion.PageSpec) (*notion.PageResult, error)
	AppendChildren(ctx context.Context, parentID string, blocks []notionapi.Block) (int, error)
	Descendants(ctx context.Context, pageID string) ([]notion.BlockRef, error)
	UpdateRichText(ctx context.Context, ref notion.BlockRef, rt []notionapi.RichText) error
	ClearChildren(ctx context.Context, parentID string) (int, error)
}

// Request describes one document to convert and upload.
type Request struct {
	Title       string
	URL         string
	DatabaseID  string
	ContentHTML string

	// Extra select/text properties to set on the created page.
	Properties map[string]string

	Icon  *notionapi.Icon
	Cover *notionapi.Image

	// DryRun converts and reports counts without touching Notion.
	DryRun bool
}

// Result reports the outcome of an upload. Warnings carry non-fatal
// failures (a failed append chunk, an orphaned marker); their presence
// marks the result as a partial success.
type Result struct {
	PageID    string
	PageURL   string
	Blocks    int
	Appended  int
	Markers   int
	Resolved  int
	Orphaned  int
	HasVideos bool
	Deduped   int
	Filtered  int
	DryRun    bool
	Warnings  []string

	// Children holds the computed blocks on a dry run so callers can
	// inspect what would be uploaded.
	Children []notionapi.Block
}

// Uploader owns the upload pipeline.
type Uploader struct {
	api    NotionAPI
	logger *slog.Logger

	// sweepDelay is the pause before the token sweep, giving Notion time
	// to settle freshly appended children.
	sweepDelay time.Duration

	strictOrder bool
}

// Option configures the Uploader.
type Option func(*Uploader)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(u *Uploader) { u.logger = logger }
}

// WithSweepDelay overrides the pause before the token sweep.
func WithSweepDelay(d time.Duration) Option {
	return func(u *Uploader) { u.sweepDelay = d }
}

// WithStrictOrder forces strict DOM traversal order during conversion.
func WithStrictOrder(strict bool) Option {
	return func(u *Uploader) { u.strictOrder = strict }
}

// New creates an Uploader backed by the given client.
func New(api NotionAPI, opts ...Option) *Uploader {
	u := &Uploader{
		api:        api,
		logger:     slog.New(slog.DiscardHandler),
		sweepDelay: time.Second,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Upload converts the document and creates a page in the target
// database. A returned Result with warnings is a partial success; a nil
// Result means nothing was created.
func (u *Uploader) Upload(ctx context.Context, req Request) (*Result, error) {
	started := time.Now()

	conv, err := u.convert(req)
	if err != nil {
		metrics.RecordConversion("error", time.Since(started).Seconds())
		return nil, fmt.Errorf("convert: %w", err)
	}
	metrics.RecordConversion("ok", time.Since(started).Seconds())

	res := &Result{
		Blocks:    len(conv.Blocks),
		Markers:   conv.Markers.Len(),
		HasVideos: conv.HasVideos,
		Deduped:   conv.DedupedBlocks,
		Filtered:  conv.FilteredCallouts,
		DryRun:    req.DryRun,
	}
	if req.DryRun {
		res.Children = conv.Blocks
		u.logger.Info("dry run complete", "blocks", res.Blocks, "markers", res.Markers)
		return res, nil
	}

	chunks := convert.ChunkBlocks(conv.Blocks, convert.MaxChildrenPerRequest)
	var first []notionapi.Block
	var rest [][]notionapi.Block
	if len(chunks) > 0 {
		first = chunks[0]
		rest = chunks[1:]
	}

	u.logger.Info("STEP 1/5 creating page", "title", req.Title, "blocks", res.Blocks)
	page, err := u.api.CreatePage(ctx, notion.PageSpec{
		DatabaseID: req.DatabaseID,
		Properties: buildProperties(req),
		Icon:       req.Icon,
		Cover:      req.Cover,
		Children:   first,
	})
	if err != nil {
		metrics.RecordUpload("error", 0)
		return nil, fmt.Errorf("create page: %w", err)
	}
	res.PageID = page.PageID
	res.PageURL = page.URL
	res.Appended = len(first)

	u.logger.Info("STEP 2/5 appending remaining chunks", "chunks", len(rest))
	for i, batch := range rest {
		n, err := u.api.AppendChildren(ctx, page.PageID, batch)
		res.Appended += n
		if err != nil {
			warn := fmt.Sprintf("append chunk %d of %d failed: %v", i+2, len(chunks), err)
			res.Warnings = append(res.Warnings, warn)
			u.logger.Warn("partial upload", "warning", warn)
			break
		}
	}

	u.orchestrate(ctx, page.PageID, conv.Markers, res)
	u.sweep(ctx, page.PageID, res)

	outcome := "ok"
	if len(res.Warnings) > 0 {
		outcome = "partial"
	}
	metrics.RecordUpload(outcome, res.Appended)
	metrics.RecordMarkers(res.Resolved, res.Orphaned)

	u.logger.Info("upload complete",
		"page_id", res.PageID, "blocks", res.Appended,
		"markers", res.Markers, "resolved", res.Resolved,
		"warnings", len(res.Warnings), "duration", time.Since(started))
	return res, nil
}

// Update replaces the content of an existing page with the converted
// document, keeping the page and its properties.
func (u *Uploader) Update(ctx context.Context, pageID string, req Request) (*Result, error) {
	conv, err := u.convert(req)
	if err != nil {
		return nil, fmt.Errorf("convert: %w", err)
	}

	res := &Result{
		PageID:    pageID,
		Blocks:    len(conv.Blocks),
		Markers:   conv.Markers.Len(),
		HasVideos: conv.HasVideos,
		Deduped:   conv.DedupedBlocks,
		Filtered:  conv.FilteredCallouts,
		DryRun:    req.DryRun,
	}
	if req.DryRun {
		res.Children = conv.Blocks
		return res, nil
	}

	// [PATCH-PROGRESS] markers let external watchers diagnose a hung
	// update from the server log alone.
	u.logger.Info("[PATCH-PROGRESS] STEP 1/5 clearing page", "page_id", pageID)
	cleared, err := u.api.ClearChildren(ctx, pageID)
	if err != nil {
		return nil, fmt.Errorf("clear page: %w", err)
	}
	u.logger.Debug("cleared existing blocks", "count", cleared)

	u.logger.Info("[PATCH-PROGRESS] STEP 2/5 appending content", "blocks", res.Blocks)
	for i, batch := range convert.ChunkBlocks(conv.Blocks, convert.MaxChildrenPerRequest) {
		n, err := u.api.AppendChildren(ctx, pageID, batch)
		res.Appended += n
		if err != nil {
			warn := fmt.Sprintf("append chunk %d failed: %v", i+1, err)
			res.Warnings = append(res.Warnings, warn)
			u.logger.Warn("partial update", "warning", warn)
			break
		}
	}

	u.orchestrate(ctx, pageID, conv.Markers, res)
	u.sweep(ctx, pageID, res)

	metrics.RecordMarkers(res.Resolved, res.Orphaned)
	return res, nil
}

func (u *Uploader) convert(req Request) (*convert.Result, error) {
	c := convert.New(convert.Options{
		BaseURL:     req.URL,
		StrictOrder: u.strictOrder,
		Logger:      u.logger,
	})
	return c.Convert(req.ContentHTML)
}

// buildProperties assembles the database properties for a new page: the
// title, the source URL, and any extra rich-text properties from the
// request.
func buildProperties(req Request) notionapi.Properties {
	props := notionapi.Properties{
		"Name": notionapi.TitleProperty{
			Title: []notionapi.RichText{{
				Type: notionapi.ObjectTypeText,
				Text: &notionapi.Text{Content: req.Title},
			}},
		},
	}
	if req.URL != "" {
		props["URL"] = notionapi.URLProperty{URL: req.URL}
	}
	for name, value := range req.Properties {
		props[name] = notionapi.RichTextProperty{
			RichText: []notionapi.RichText{{
				Type: notionapi.ObjectTypeText,
				Text: &notionapi.Text{Content: value},
			}},
		}
	}
	return props
}
