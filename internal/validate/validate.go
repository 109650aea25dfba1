package validate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jomei/notionapi"

	"github.com/adamancini/sn2n/internal/metrics"
	"github.com/adamancini/sn2n/internal/notion"
)

const (
	defaultCoverageThreshold = 0.97
	defaultMaxMissing        = 0
)

// NotionAPI is the client surface the comparator needs. *notion.Client
// satisfies it.
type NotionAPI interface {
	Descendants(ctx context.Context, pageID string) ([]notion.BlockRef, error)
	UpdatePageProperties(ctx context.Context, pageID string, props notionapi.Properties) error
}

// Options configures a Comparator. Zero values take the policy
// defaults: LCS at a 0.97 coverage threshold with no missing spans
// allowed.
type Options struct {
	Method            Method
	CoverageThreshold float64
	MaxMissing        int
	Logger            *slog.Logger
}

// Comparator validates uploaded pages against their source text.
type Comparator struct {
	api       NotionAPI
	method    Method
	threshold float64
	maxMiss   int
	logger    *slog.Logger
}

// New creates a Comparator backed by the given client.
func New(api NotionAPI, opts Options) *Comparator {
	c := &Comparator{
		api:       api,
		method:    opts.Method,
		threshold: opts.CoverageThreshold,
		maxMiss:   opts.MaxMissing,
		logger:    opts.Logger,
	}
	if c.method == "" {
		c.method = MethodLCS
	}
	if c.threshold == 0 {
		c.threshold = defaultCoverageThreshold
	}
	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}
	return c
}

// Validate fetches the page text and scores it against the source HTML
// without touching the page.
func (c *Comparator) Validate(ctx context.Context, pageID, sourceHTML string) (*Report, error) {
	refs, err := c.api.Descendants(ctx, pageID)
	if err != nil {
		return nil, fmt.Errorf("fetch page blocks: %w", err)
	}

	rep := Compare(CanonicalizeSource(sourceHTML), CanonicalizePage(refs), c.method)
	rep.RunID = uuid.NewString()
	rep.Status = c.statusFor(rep)

	metrics.RecordValidation(strings.ToLower(rep.Status))
	c.logger.Info("validation complete",
		"page_id", pageID, "method", rep.Method,
		"coverage", fmt.Sprintf("%.4f", rep.Coverage),
		"missing", rep.MissingCount, "status", rep.Status)
	return rep, nil
}

// ComparePage validates the page and writes the outcome back as page
// properties. A property write failure does not discard the report.
func (c *Comparator) ComparePage(ctx context.Context, pageID, sourceHTML string) (*Report, error) {
	rep, err := c.Validate(ctx, pageID, sourceHTML)
	if err != nil {
		return nil, err
	}

	if err := c.api.UpdatePageProperties(ctx, pageID, reportProperties(rep)); err != nil {
		c.logger.Warn("validation property write failed", "page_id", pageID, "error", err)
		return rep, fmt.Errorf("write validation properties: %w", err)
	}
	return rep, nil
}

func (c *Comparator) statusFor(rep *Report) string {
	if rep.Coverage >= c.threshold && rep.MissingCount <= c.maxMiss {
		return StatusComplete
	}
	return StatusAttention
}

// reportProperties maps a report onto the validation properties of the
// target database.
func reportProperties(rep *Report) notionapi.Properties {
	checked := notionapi.Date(rep.CheckedAt)
	return notionapi.Properties{
		"Coverage":     notionapi.NumberProperty{Number: rep.Coverage},
		"MissingCount": notionapi.NumberProperty{Number: float64(rep.MissingCount)},
		"Method":       notionapi.SelectProperty{Select: notionapi.Option{Name: string(rep.Method)}},
		"Status":       notionapi.SelectProperty{Select: notionapi.Option{Name: rep.Status}},
		"LastChecked":  notionapi.DateProperty{Date: &notionapi.DateObject{Start: &checked}},
		"RunId":        textProperty(rep.RunID),
		"MissingSpans": textProperty(strings.Join(rep.MissingSpans, " | ")),
	}
}

func textProperty(value string) notionapi.RichTextProperty {
	return notionapi.RichTextProperty{
		RichText: []notionapi.RichText{{
			Type: notionapi.ObjectTypeText,
			Text: &notionapi.Text{Content: value},
		}},
	}
}
