package convert

import (
	"strings"

	"github.com/jomei/notionapi"
	"golang.org/x/net/html"
)

// calloutStyle is the icon and color pair derived from a note container's
// class vocabulary or leading label.
type calloutStyle struct {
	emoji string
	color string
}

// calloutStyles maps the class/label vocabulary to Notion presentation.
// Order matters: the most severe vocabulary wins when several words match.
var calloutStyles = []struct {
	words []string
	style calloutStyle
}{
	{[]string{"important", "critical"}, calloutStyle{"⚠", "red_background"}},
	{[]string{"warning"}, calloutStyle{"⚠", "orange_background"}},
	{[]string{"caution"}, calloutStyle{"⚠", "yellow_background"}},
	{[]string{"tip"}, calloutStyle{"💡", "green_background"}},
	{[]string{"info", "note"}, calloutStyle{"ℹ", "blue_background"}},
}

// calloutLabels are leading paragraph labels that promote a paragraph to
// a callout.
var calloutLabels = []string{"Note:", "Info:", "Warning:", "Important:", "Caution:", "Tip:"}

// isCalloutContainer reports whether a div or aside should become a
// callout: any <aside>, or a div whose class words include the note
// vocabulary.
func isCalloutContainer(n *html.Node) bool {
	if isElement(n, "aside") {
		return true
	}
	if !isElement(n, "div") {
		return false
	}
	for _, group := range calloutStyles {
		for _, w := range group.words {
			if hasClassWord(n, w) {
				return true
			}
		}
	}
	return false
}

// styleForClasses derives icon and color from an element's class words,
// falling back to the info style.
func styleForClasses(n *html.Node) calloutStyle {
	for _, group := range calloutStyles {
		for _, w := range group.words {
			if hasClassWord(n, w) {
				return group.style
			}
		}
	}
	return calloutStyle{"ℹ", "blue_background"}
}

// styleForLabel derives icon and color from a leading text label such as
// "Warning:". Returns false when the text carries no label.
func styleForLabel(text string) (calloutStyle, bool) {
	for _, label := range calloutLabels {
		if strings.HasPrefix(text, label) {
			word := strings.ToLower(strings.TrimSuffix(label, ":"))
			for _, group := range calloutStyles {
				for _, w := range group.words {
					if w == word {
						return group.style, true
					}
				}
			}
		}
	}
	return calloutStyle{}, false
}

// isGrayStyled reports whether an element is presented gray, either via
// class or inline style. Gray info callouts are decorative chrome in the
// source and are dropped by the filter pass.
func isGrayStyled(n *html.Node) bool {
	style := strings.ToLower(attr(n, "style"))
	if strings.Contains(style, "gray") || strings.Contains(style, "grey") {
		return true
	}
	return hasClassWord(n, "gray") || hasClassWord(n, "grey")
}

// convertCallout turns a note container into a callout block. Media found
// inside the container is emitted as trailing sibling blocks. A gray
// info container yields a gray_background callout that the filter pass
// removes.
func (c *Converter) convertCallout(n *html.Node) []notionapi.Block {
	style := styleForClasses(n)
	if isGrayStyled(n) && style.emoji == "ℹ" {
		style.color = "gray_background"
	}

	frag := c.ParseFragment(innerHTML(n))
	text := normalizeCalloutText(frag.RichText)
	if PlainText(text) == "" && len(frag.Images) == 0 && len(frag.Videos) == 0 {
		return nil
	}

	blocks := []notionapi.Block{calloutBlock(text, style)}
	blocks = append(blocks, frag.Images...)
	blocks = append(blocks, frag.Videos...)
	return blocks
}

// convertPrereq renders a section.prereq as a pushpin callout with the
// ServiceNow text shaping: a soft newline after "Before you begin" and a
// break before "Role required:" unless those two lines are the whole
// content.
func (c *Converter) convertPrereq(n *html.Node) []notionapi.Block {
	frag := c.ParseFragment(innerHTML(n))
	text := normalizeCalloutText(frag.RichText)
	text = shapePrereqText(text)
	if PlainText(text) == "" {
		return nil
	}
	return []notionapi.Block{calloutBlock(text, calloutStyle{"📍", "default"})}
}

// shapePrereqText inserts the prereq line structure into the first run
// that carries the known phrases.
func shapePrereqText(rt []notionapi.RichText) []notionapi.RichText {
	plain := PlainText(rt)
	simple := strings.Count(plain, "Role required:") == 1 &&
		strings.HasPrefix(plain, "Before you begin") &&
		len(plain) < len("Before you begin")+len("Role required:")+120

	out := make([]notionapi.RichText, len(rt))
	copy(out, rt)
	for i, run := range out {
		if run.Text == nil {
			continue
		}
		content := run.Text.Content
		content = strings.Replace(content, "Before you begin", "Before you begin\n", 1)
		content = strings.ReplaceAll(content, "\n ", "\n")
		if idx := strings.Index(content, "Role required:"); idx > 0 && content[idx-1] != '\n' {
			sep := "\n"
			if !simple {
				sep = "\n\n"
			}
			content = content[:idx] + sep + content[idx:]
		}
		content = strings.ReplaceAll(content, " \n", "\n")
		if content != run.Text.Content {
			text := *run.Text
			text.Content = content
			out[i].Text = &text
		}
	}
	return out
}

// normalizeCalloutText trims a leading empty run left by title spans.
func normalizeCalloutText(rt []notionapi.RichText) []notionapi.RichText {
	var out []notionapi.RichText
	for _, run := range rt {
		if run.Text != nil && strings.TrimSpace(run.Text.Content) == "" && run.Text.Link == nil {
			continue
		}
		out = append(out, run)
	}
	return out
}

// calloutBlock builds a callout with an emoji icon.
func calloutBlock(rt []notionapi.RichText, style calloutStyle) notionapi.Block {
	emoji := notionapi.Emoji(style.emoji)
	return &notionapi.CalloutBlock{
		BasicBlock: basicBlock("callout"),
		Callout: notionapi.Callout{
			RichText: rt,
			Icon:     &notionapi.Icon{Type: "emoji", Emoji: &emoji},
			Color:    style.color,
		},
	}
}
