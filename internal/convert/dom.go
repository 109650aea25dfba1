package convert

import (
	"strings"

	"golang.org/x/net/html"
)

// attr returns the value of the named attribute, or "".
func attr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

// classTokens splits a class attribute into lowercase word tokens.
// Underscore- and dash-joined compounds contribute their parts as well,
// so class="note_note" matches the word "note".
func classTokens(n *html.Node) []string {
	raw := strings.Fields(strings.ToLower(attr(n, "class")))
	tokens := make([]string, 0, len(raw))
	for _, t := range raw {
		tokens = append(tokens, t)
		for _, part := range strings.FieldsFunc(t, func(r rune) bool {
			return r == '_' || r == '-'
		}) {
			if part != t {
				tokens = append(tokens, part)
			}
		}
	}
	return tokens
}

// hasClassWord reports whether the element's class attribute contains the
// word, matching compound classes like note_note.
func hasClassWord(n *html.Node, word string) bool {
	for _, t := range classTokens(n) {
		if t == word {
			return true
		}
	}
	return false
}

// isElement reports whether n is an element with the given tag name.
func isElement(n *html.Node, tag string) bool {
	return n.Type == html.ElementNode && n.Data == tag
}

// findElement returns the first descendant matching tag (and class word,
// when non-empty) in document order.
func findElement(n *html.Node, tag, class string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		if class == "" || hasClassWord(n, class) {
			return n
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, tag, class); found != nil {
			return found
		}
	}
	return nil
}

// findAll collects all descendants matching tag in document order.
func findAll(n *html.Node, tag string) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(m *html.Node) {
		if m.Type == html.ElementNode && m.Data == tag {
			out = append(out, m)
		}
		for c := m.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

// innerHTML renders the children of n back to an HTML string so fragments
// can be fed to the rich-text parser.
func innerHTML(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		// Render never fails on a strings.Builder.
		_ = html.Render(&b, c)
	}
	return b.String()
}

// outerHTML renders the node itself.
func outerHTML(n *html.Node) string {
	var b strings.Builder
	_ = html.Render(&b, n)
	return b.String()
}

// textContent concatenates all descendant text nodes.
func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(m *html.Node) {
		if m.Type == html.TextNode {
			b.WriteString(m.Data)
		}
		for c := m.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

// blockLevelTags are elements the walker treats as block-level: they end
// the current inline run and are dispatched on their own.
var blockLevelTags = map[string]bool{
	"p": true, "div": true, "section": true, "aside": true,
	"ul": true, "ol": true, "dl": true, "dt": true, "dd": true,
	"table": true, "figure": true, "iframe": true, "pre": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"blockquote": true, "nav": true, "footer": true, "header": true,
}

// isBlockLevel reports whether n starts a new block in the output.
func isBlockLevel(n *html.Node) bool {
	return n.Type == html.ElementNode && blockLevelTags[n.Data]
}

// hasBlockDescendant reports whether any descendant of n is block-level.
func hasBlockDescendant(n *html.Node) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if isBlockLevel(c) || hasBlockDescendant(c) {
			return true
		}
	}
	return false
}

// removeNode detaches n from its parent. Safe to call mid-iteration as
// long as the caller captured NextSibling first.
func removeNode(n *html.Node) {
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}
