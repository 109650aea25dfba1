package convert

import (
	"strings"

	"github.com/jomei/notionapi"
	"golang.org/x/net/html"

	"github.com/adamancini/sn2n/internal/htmltext"
)

// permittedListChildTypes are the block types Notion accepts as direct
// children of a list item. Everything else is stripped into the marker
// sidecar and spliced back by the orchestrator after page creation.
var permittedListChildTypes = map[notionapi.BlockType]bool{
	notionapi.BlockTypeParagraph:        true,
	notionapi.BlockTypeBulletedListItem: true,
	notionapi.BlockTypeNumberedListItem: true,
	notionapi.BlockTypeToDo:             true,
	"toggle":                            true,
	notionapi.BlockTypeImage:            true,
}

// skippedTags never contribute content: scripts, styles, and page chrome.
var skippedTags = map[string]bool{
	"script": true, "style": true, "nav": true, "footer": true, "header": true,
	"noscript": true, "button": true,
}

// walkChildren walks a container's children in source order, buffering
// inline content and flushing it as a paragraph whenever a block-level
// child interrupts the run. This single loop covers plain containers,
// mixed paragraphs, and unknown wrappers alike.
func (c *Converter) walkChildren(n *html.Node) []notionapi.Block {
	var blocks []notionapi.Block
	var inline strings.Builder

	flush := func() {
		if inline.Len() == 0 {
			return
		}
		blocks = append(blocks, c.emitInline(inline.String())...)
		inline.Reset()
	}

	for child := n.FirstChild; child != nil; child = child.NextSibling {
		switch {
		case child.Type == html.TextNode:
			inline.WriteString(child.Data)
		case child.Type != html.ElementNode:
			// Comments and doctypes carry nothing.
		case skippedTags[child.Data]:
			// Chrome and scripts are dropped.
		case isBlockLevel(child):
			flush()
			blocks = append(blocks, c.dispatch(child)...)
		default:
			inline.WriteString(outerHTML(child))
		}
	}
	flush()
	return blocks
}

// emitInline converts buffered inline HTML into a paragraph block, or a
// callout when the text opens with a recognized label. Media extracted
// from the fragment follows the text block as siblings.
func (c *Converter) emitInline(fragment string) []notionapi.Block {
	frag := c.ParseFragment(fragment)
	text := frag.RichText
	plain := PlainText(text)

	var blocks []notionapi.Block
	switch {
	case strings.TrimSpace(plain) == "":
		// Whitespace-only fragments produce nothing.
	default:
		if style, ok := styleForLabel(plain); ok {
			blocks = append(blocks, calloutBlock(text, style))
		} else {
			blocks = append(blocks, paragraphBlock(text))
		}
	}
	blocks = append(blocks, frag.Images...)
	blocks = append(blocks, frag.Videos...)
	return blocks
}

// dispatch maps one block-level element onto Notion blocks.
func (c *Converter) dispatch(n *html.Node) []notionapi.Block {
	switch n.Data {
	case "h1":
		return c.convertHeading(n, 1)
	case "h2":
		return c.convertHeading(n, 2)
	case "h3", "h4", "h5", "h6":
		// Notion has no levels below three.
		return c.convertHeading(n, 3)
	case "p":
		return c.convertParagraph(n)
	case "pre":
		return c.convertPre(n)
	case "iframe":
		src := attr(n, "src")
		if src == "" {
			return nil
		}
		return []notionapi.Block{c.mediaBlockForIframe(src)}
	case "figure":
		return c.convertFigure(n)
	case "table":
		return c.convertTable(n)
	case "ul":
		return c.convertList(n, false)
	case "ol":
		return c.convertList(n, true)
	case "dl":
		return c.convertDefinitionList(n)
	case "dt":
		return c.convertTerm(n)
	case "dd":
		return c.containerBlocks(n)
	case "aside":
		return c.convertCallout(n)
	case "section":
		if hasClassWord(n, "prereq") {
			return c.convertPrereq(n)
		}
		return c.containerBlocks(n)
	case "div":
		if isCalloutContainer(n) {
			return c.convertCallout(n)
		}
		return c.containerBlocks(n)
	case "blockquote":
		return c.containerBlocks(n)
	default:
		return c.containerBlocks(n)
	}
}

// containerBlocks handles an unknown or generic container: inline-only
// content becomes one paragraph, mixed content is walked recursively.
func (c *Converter) containerBlocks(n *html.Node) []notionapi.Block {
	if !hasBlockDescendant(n) {
		return c.emitInline(innerHTML(n))
	}
	return c.walkChildren(n)
}

func (c *Converter) convertHeading(n *html.Node, level int) []notionapi.Block {
	frag := c.ParseFragment(innerHTML(n))
	if strings.TrimSpace(PlainText(frag.RichText)) == "" {
		return nil
	}
	var block notionapi.Block
	switch level {
	case 1:
		block = &notionapi.Heading1Block{
			BasicBlock: basicBlock(notionapi.BlockTypeHeading1),
			Heading1:   notionapi.Heading{RichText: frag.RichText},
		}
	case 2:
		block = &notionapi.Heading2Block{
			BasicBlock: basicBlock(notionapi.BlockTypeHeading2),
			Heading2:   notionapi.Heading{RichText: frag.RichText},
		}
	default:
		block = &notionapi.Heading3Block{
			BasicBlock: basicBlock(notionapi.BlockTypeHeading3),
			Heading3:   notionapi.Heading{RichText: frag.RichText},
		}
	}
	return []notionapi.Block{block}
}

// convertParagraph handles <p>. Paragraphs without block-level
// descendants become one block; mixed paragraphs emit their leading text,
// then each block child, then any trailing text, all as siblings.
func (c *Converter) convertParagraph(n *html.Node) []notionapi.Block {
	if !hasBlockDescendant(n) {
		return c.emitInline(innerHTML(n))
	}
	return c.walkChildren(n)
}

// convertPre emits a code block. Content whitespace is preserved
// byte-for-byte; the x/net/html parser has already decoded entities in
// the text nodes.
func (c *Converter) convertPre(n *html.Node) []notionapi.Block {
	content := strings.TrimRight(textContent(n), "\n")
	if strings.TrimSpace(content) == "" {
		return nil
	}
	return []notionapi.Block{&notionapi.CodeBlock{
		BasicBlock: basicBlock(notionapi.BlockTypeCode),
		Code: notionapi.Code{
			RichText: []notionapi.RichText{textRun(content, nil)},
			Language: detectLanguage(n),
		},
	}}
}

// detectLanguage reads a language-* class or data-language attribute from
// the pre element or a nested code element, normalized to Notion's
// vocabulary.
func detectLanguage(n *html.Node) string {
	candidates := []*html.Node{n}
	if code := findElement(n, "code", ""); code != nil {
		candidates = append(candidates, code)
	}
	for _, el := range candidates {
		if lang := attr(el, "data-language"); lang != "" {
			return normalizeLanguage(lang)
		}
		for _, cls := range strings.Fields(attr(el, "class")) {
			if rest, ok := strings.CutPrefix(strings.ToLower(cls), "language-"); ok {
				return normalizeLanguage(rest)
			}
		}
	}
	return "plain text"
}

var languageAliases = map[string]string{
	"js": "javascript", "jsx": "javascript", "javascript": "javascript",
	"ts": "typescript", "tsx": "typescript", "typescript": "typescript",
	"py": "python", "python": "python",
	"sh": "shell", "bash": "bash", "shell": "shell", "zsh": "shell",
	"yml": "yaml", "yaml": "yaml",
	"json": "json", "xml": "xml", "html": "html", "css": "css",
	"sql": "sql", "java": "java", "go": "go", "ruby": "ruby",
	"powershell": "powershell", "ps1": "powershell",
}

func normalizeLanguage(lang string) string {
	if norm, ok := languageAliases[strings.ToLower(strings.TrimSpace(lang))]; ok {
		return norm
	}
	return "plain text"
}

// convertFigure emits an image block with the figcaption as caption.
// Figures inside tables never reach here; the table converter claims
// them first.
func (c *Converter) convertFigure(n *html.Node) []notionapi.Block {
	img := findElement(n, "img", "")
	if img == nil {
		if iframe := findElement(n, "iframe", ""); iframe != nil {
			if src := attr(iframe, "src"); src != "" {
				return []notionapi.Block{c.mediaBlockForIframe(src)}
			}
		}
		return nil
	}
	src := attr(img, "src")
	if src == "" {
		return nil
	}
	caption := htmltext.DecodeEntities(attr(img, "alt"))
	if figcap := findElement(n, "figcaption", ""); figcap != nil {
		if t := htmltext.CleanText(textContent(figcap)); t != "" {
			caption = t
		}
	}
	return []notionapi.Block{c.imageBlock(src, caption)}
}

// convertTerm renders a <dt> as a bold paragraph.
func (c *Converter) convertTerm(n *html.Node) []notionapi.Block {
	frag := c.ParseFragment(innerHTML(n))
	text := frag.RichText
	if strings.TrimSpace(PlainText(text)) == "" {
		return nil
	}
	for i, run := range text {
		ann := run.Annotations
		if ann == nil {
			ann = &notionapi.Annotations{Color: notionapi.ColorDefault}
		} else {
			cp := *ann
			ann = &cp
		}
		ann.Bold = true
		text[i].Annotations = ann
	}
	return []notionapi.Block{paragraphBlock(text)}
}

func (c *Converter) convertDefinitionList(n *html.Node) []notionapi.Block {
	var blocks []notionapi.Block
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if child.Type != html.ElementNode {
			continue
		}
		switch child.Data {
		case "dt":
			blocks = append(blocks, c.convertTerm(child)...)
		case "dd":
			blocks = append(blocks, c.containerBlocks(child)...)
		}
	}
	return blocks
}

func paragraphBlock(rt []notionapi.RichText) notionapi.Block {
	return &notionapi.ParagraphBlock{
		BasicBlock: basicBlock(notionapi.BlockTypeParagraph),
		Paragraph:  notionapi.Paragraph{RichText: rt},
	}
}
