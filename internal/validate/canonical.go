// Package validate measures how much of a source document's text made
// it onto the created Notion page and writes the result back as page
// properties.
package validate

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/adamancini/sn2n/internal/convert"
	"github.com/adamancini/sn2n/internal/htmltext"
	"github.com/adamancini/sn2n/internal/notion"
)

// Elements whose text is page chrome rather than document content.
var chromeTags = map[string]bool{
	"script":   true,
	"style":    true,
	"nav":      true,
	"footer":   true,
	"header":   true,
	"noscript": true,
	"button":   true,
	"iframe":   true,
}

// Class fragments marking ServiceNow chrome containers: navigation
// rails, breadcrumbs, feedback widgets, marketing banners.
var chromeClassFragments = []string{
	"breadcrumb",
	"zdocsnav",
	"zdocssidebar",
	"zdocstopicactions",
	"feedback",
	"banner",
	"related-content",
}

// CanonicalizeSource reduces source HTML to comparable plain text:
// chrome elements are dropped, tags stripped, entities decoded, and
// whitespace normalized.
func CanonicalizeSource(raw string) string {
	doc, err := html.Parse(strings.NewReader(raw))
	if err != nil {
		// Tag stripping still yields usable text for comparison.
		return htmltext.CleanText(htmltext.StripTags(raw))
	}

	var sb strings.Builder
	collectText(doc, &sb)
	return htmltext.CleanText(sb.String())
}

// CanonicalizePage flattens a page's descendant blocks into plain text
// in document order, with the same normalization as the source side.
func CanonicalizePage(refs []notion.BlockRef) string {
	var sb strings.Builder
	for _, ref := range refs {
		text := convert.PlainText(ref.RichText)
		if strings.TrimSpace(text) == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(text)
	}
	return htmltext.CleanText(sb.String())
}

func collectText(n *html.Node, sb *strings.Builder) {
	switch n.Type {
	case html.TextNode:
		sb.WriteString(n.Data)
		return
	case html.ElementNode:
		if chromeTags[n.Data] || isChromeClass(n) {
			return
		}
		if blockLevel[n.Data] && sb.Len() > 0 {
			sb.WriteByte('\n')
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, sb)
	}
}

func isChromeClass(n *html.Node) bool {
	for _, attr := range n.Attr {
		if attr.Key != "class" {
			continue
		}
		class := strings.ToLower(attr.Val)
		for _, fragment := range chromeClassFragments {
			if strings.Contains(class, fragment) {
				return true
			}
		}
	}
	return false
}

var blockLevel = map[string]bool{
	"p": true, "div": true, "li": true, "tr": true, "td": true,
	"th": true, "h1": true, "h2": true, "h3": true, "h4": true,
	"h5": true, "h6": true, "pre": true, "section": true,
	"article": true, "aside": true, "dt": true, "dd": true,
	"figcaption": true, "br": true,
}

// tokenize lowercases and splits canonical text into comparison tokens,
// trimming surrounding punctuation so "record," and "record" compare
// equal.
func tokenize(s string) []string {
	fields := strings.Fields(strings.ToLower(s))
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, ".,;:!?()[]{}\"'`•")
		if f != "" {
			tokens = append(tokens, f)
		}
	}
	return tokens
}
