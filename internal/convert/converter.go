// Package convert turns ServiceNow documentation HTML into Notion blocks.
//
// The converter walks the source DOM in document order and maps each
// element onto Notion's constrained block model: headings flatten to three
// levels, note-style divs become callouts, tables carry their media as
// sibling blocks, and content that Notion forbids as a list-item child is
// held aside in a marker sidecar for post-create placement.
package convert

import (
	"log/slog"
	"strings"

	"github.com/jomei/notionapi"
	"golang.org/x/net/html"

	"github.com/adamancini/sn2n/internal/htmltext"
)

// Options configures a single conversion.
type Options struct {
	// BaseURL is the source page URL, used to absolutize relative links
	// and media references.
	BaseURL string

	// StrictOrder pins strict DOM-order block emission. Conversion
	// always emits in source order, so the flag is accepted but selects
	// no alternative policy.
	StrictOrder bool

	// Logger receives per-fragment diagnostics. Nil disables logging.
	Logger *slog.Logger
}

// Result is the output of one conversion: the primary block stream plus
// the marker sidecar of deferred blocks.
type Result struct {
	Blocks    []notionapi.Block
	Markers   *Markers
	HasVideos bool

	// FilteredCallouts and DedupedBlocks count blocks removed by the
	// dedupe & filter pass.
	FilteredCallouts int
	DedupedBlocks    int
}

// Converter holds the per-conversion state: options, the marker sidecar,
// and removal counters. A Converter is used for exactly one document and
// is not safe for concurrent use.
type Converter struct {
	opts    Options
	markers *Markers
	logger  *slog.Logger

	hasVideos bool
}

// New creates a Converter for a single document conversion.
func New(opts Options) *Converter {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Converter{
		opts:    opts,
		markers: NewMarkers(),
		logger:  logger,
	}
}

// Convert parses the HTML document and produces the ordered block stream.
// Malformed fragments are skipped rather than failing the conversion; the
// only error conditions are catastrophic parser failures.
func (c *Converter) Convert(doc string) (*Result, error) {
	root, err := html.Parse(strings.NewReader(doc))
	if err != nil {
		return nil, err
	}

	content := findContentRoot(root)
	blocks := c.walkChildren(content)

	res := &Result{
		Markers:   c.markers,
		HasVideos: c.hasVideos,
	}
	blocks, res.DedupedBlocks, res.FilteredCallouts = dedupeAndFilter(blocks, c.logger)
	res.Blocks = EnforceTextLimits(blocks)

	c.logger.Debug("conversion complete",
		slog.Int("blocks", len(res.Blocks)),
		slog.Int("markers", len(c.markers.IDs())),
		slog.Int("deduped", res.DedupedBlocks),
		slog.Int("filtered_callouts", res.FilteredCallouts),
	)
	return res, nil
}

// contentRootSelectors are checked in priority order to find the element
// holding the article body. ServiceNow doc exports wrap the content in one
// of these containers; a bare fragment falls through to <body>.
var contentRootSelectors = []struct {
	tag   string
	class string
}{
	{"div", "zDocsTopicPageBody"},
	{"div", "conbody"},
	{"div", "taskbody"},
	{"article", ""},
	{"main", ""},
	{"div", "body"},
}

// findContentRoot locates the first matching content container, or the
// document body when none match.
func findContentRoot(root *html.Node) *html.Node {
	for _, sel := range contentRootSelectors {
		if n := findElement(root, sel.tag, sel.class); n != nil {
			return n
		}
	}
	if body := findElement(root, "body", ""); body != nil {
		return body
	}
	return root
}

// nodeText returns the cleaned plain text of a node.
func nodeText(n *html.Node) string {
	return htmltext.CleanText(textContent(n))
}
