package convert

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/jomei/notionapi"
	"golang.org/x/net/html"

	"github.com/adamancini/sn2n/internal/htmltext"
)

// bulletGlyph stands in for media that Notion cannot host inside a table
// cell. The original media is emitted as a sibling block after the table.
const bulletGlyph = "•"

var (
	liOpenRe  = regexp.MustCompile(`(?is)<li\b[^>]*>`)
	listTagRe = regexp.MustCompile(`(?is)</?(?:ul|ol|li)\b[^>]*>`)
)

// convertTable converts a <table> subtree into a table block with row
// children, followed by any media extracted from the table body. Two
// passes are required because Notion refuses media inside cells: figures
// are first replaced by "See ..." placeholders, then each extracted image
// is emitted after the table with its caption preserved.
func (c *Converter) convertTable(n *html.Node) []notionapi.Block {
	var after []notionapi.Block

	// Pre-walk: figures with images become caption placeholders.
	for _, fig := range findAll(n, "figure") {
		img := findElement(fig, "img", "")
		if img == nil {
			removeNode(fig)
			continue
		}
		caption := ""
		if figcap := findElement(fig, "figcaption", ""); figcap != nil {
			caption = htmltext.CleanText(textContent(figcap))
		}
		placeholder := `See image below`
		if caption != "" {
			placeholder = `See "` + caption + `"`
		}
		after = append(after, c.imageBlock(attr(img, "src"), caption))
		replaceWithText(fig, placeholder)
	}

	// SVG decorations reduce to the bullet glyph.
	for _, svg := range findAll(n, "svg") {
		replaceWithText(svg, bulletGlyph)
	}

	rows, hasHeader := tableRows(n)
	if len(rows) == 0 {
		return after
	}

	width := 0
	for _, row := range rows {
		if len(cellNodes(row)) > width {
			width = len(cellNodes(row))
		}
	}

	rowBlocks := make([]notionapi.Block, 0, len(rows))
	for _, row := range rows {
		cells := make([][]notionapi.RichText, 0, width)
		for _, cell := range cellNodes(row) {
			rt, media := c.convertCell(cell)
			cells = append(cells, rt)
			after = append(after, media...)
		}
		for len(cells) < width {
			cells = append(cells, []notionapi.RichText{})
		}
		rowBlocks = append(rowBlocks, &notionapi.TableRowBlock{
			BasicBlock: basicBlock(notionapi.BlockTypeTableRowBlock),
			TableRow:   notionapi.TableRow{Cells: cells},
		})
	}

	table := &notionapi.TableBlock{
		BasicBlock: basicBlock(notionapi.BlockTypeTableBlock),
		Table: notionapi.Table{
			TableWidth:      width,
			HasColumnHeader: hasHeader,
			HasRowHeader:    false,
			Children:        rowBlocks,
		},
	}

	return append([]notionapi.Block{table}, after...)
}

// convertCell parses one cell's inner HTML into rich text. Images and
// iframes in the cell are replaced by the bullet glyph and returned as
// media for emission after the table. Lists inside cells flatten into
// bullet lines because a cell holds only rich text.
func (c *Converter) convertCell(cell *html.Node) ([]notionapi.RichText, []notionapi.Block) {
	raw := innerHTML(cell)
	raw = liOpenRe.ReplaceAllString(raw, "\n"+bulletGlyph+" ")
	raw = listTagRe.ReplaceAllString(raw, "")

	frag := c.ParseFragment(raw)
	rt := frag.RichText
	if len(rt) == 1 && rt[0].Text != nil && rt[0].Text.Content == "" {
		rt = nil
	}

	media := append([]notionapi.Block{}, frag.Images...)
	media = append(media, frag.Videos...)
	for range media {
		rt = append(rt, textRun(bulletGlyph, nil))
	}
	if rt == nil {
		rt = []notionapi.RichText{}
	}
	return rt, media
}

// tableRows collects the <tr> elements of a table in source order and
// reports whether the first row came from a <thead>.
func tableRows(n *html.Node) ([]*html.Node, bool) {
	var rows []*html.Node
	hasHeader := false
	if thead := findElement(n, "thead", ""); thead != nil {
		headRows := findAll(thead, "tr")
		if len(headRows) > 0 {
			hasHeader = true
			rows = append(rows, headRows...)
		}
	}
	for _, tr := range findAll(n, "tr") {
		if inThead(tr) {
			continue
		}
		rows = append(rows, tr)
	}
	return rows, hasHeader
}

func inThead(n *html.Node) bool {
	for p := n.Parent; p != nil; p = p.Parent {
		if isElement(p, "thead") {
			return true
		}
		if isElement(p, "table") {
			return false
		}
	}
	return false
}

// cellNodes returns the th/td children of a row.
func cellNodes(row *html.Node) []*html.Node {
	var cells []*html.Node
	for c := row.FirstChild; c != nil; c = c.NextSibling {
		if isElement(c, "td") || isElement(c, "th") {
			cells = append(cells, c)
		}
	}
	return cells
}

// replaceWithText swaps a node for a plain text node.
func replaceWithText(n *html.Node, text string) {
	if n.Parent == nil {
		return
	}
	n.Parent.InsertBefore(&html.Node{Type: html.TextNode, Data: text}, n)
	removeNode(n)
}

// tableKey builds the dedupe key for a table: width, row count, and the
// first three rows' cell texts normalized.
func tableKey(t *notionapi.TableBlock) string {
	var b strings.Builder
	fmt.Fprintf(&b, "table:%dx%d", t.Table.TableWidth, len(t.Table.Children))
	for i, child := range t.Table.Children {
		if i >= 3 {
			break
		}
		row, ok := child.(*notionapi.TableRowBlock)
		if !ok {
			continue
		}
		for _, cell := range row.TableRow.Cells {
			b.WriteString("|")
			b.WriteString(strings.TrimSpace(strings.ToLower(PlainText(cell))))
		}
		b.WriteString(";")
	}
	return b.String()
}
