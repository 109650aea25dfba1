package convert

import (
	"strings"

	"github.com/jomei/notionapi"
	"golang.org/x/net/html"
)

// convertList converts a <ul> or <ol> into list item blocks. Notion
// rejects lists deeper than two levels and allows only a small set of
// block types under a list item, so anything outside those bounds is
// stripped into the marker sidecar: the offending blocks are deferred
// under a fresh marker id and a token run is appended to the host item's
// rich text for the orchestrator to resolve after page creation.
func (c *Converter) convertList(n *html.Node, ordered bool) []notionapi.Block {
	var blocks []notionapi.Block
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if !isElement(child, "li") {
			continue
		}
		blocks = append(blocks, c.convertListItem(child, ordered)...)
	}
	return blocks
}

// convertListItem converts one top-level <li>. The item's inline content
// becomes its rich text; permitted block children nest under it, nested
// lists become second-level items, and everything else is deferred.
func (c *Converter) convertListItem(li *html.Node, ordered bool) []notionapi.Block {
	inline, blockNodes := partitionListItem(li)

	frag := c.ParseFragment(inline)
	rt := meaningfulRuns(frag.RichText)

	var children []notionapi.Block
	var deferred []notionapi.Block

	// Images extracted from the inline fragment are legal children;
	// videos are not and join the deferred set.
	children = append(children, frag.Images...)
	deferred = append(deferred, frag.Videos...)

	for _, node := range blockNodes {
		switch node.Data {
		case "ul", "ol":
			nested, overflow := c.convertNestedList(node, node.Data == "ol")
			children = append(children, nested...)
			deferred = append(deferred, overflow...)
		default:
			for _, b := range c.dispatch(node) {
				if permittedListChildTypes[b.GetType()] {
					children = append(children, b)
				} else {
					deferred = append(deferred, b)
				}
			}
		}
	}

	if len(deferred) > 0 {
		id := c.markers.Mint()
		token := Token(id)
		if len(rt) > 0 {
			token = " " + token
		}
		rt = append(rt, textRun(token, nil))
		c.markers.Defer(id, deferred...)
	}

	if strings.TrimSpace(PlainText(rt)) == "" && len(children) == 0 {
		return nil
	}

	return []notionapi.Block{listItemBlock(rt, children, ordered)}
}

// convertNestedList converts a second-level list. A nested item whose
// block children are all paragraphs or images stays in place: paragraph
// text is folded into the item's rich text on new lines and images become
// its children. A nested item with any other block content, including a
// third-level list, cannot be represented at this depth and is returned
// as overflow for the caller to defer.
func (c *Converter) convertNestedList(n *html.Node, ordered bool) (items, overflow []notionapi.Block) {
	for li := n.FirstChild; li != nil; li = li.NextSibling {
		if !isElement(li, "li") {
			continue
		}
		inline, blockNodes := partitionListItem(li)
		frag := c.ParseFragment(inline)
		rt := meaningfulRuns(frag.RichText)
		children := append([]notionapi.Block{}, frag.Images...)

		flattenable := true
		var converted []notionapi.Block
		for _, node := range blockNodes {
			if node.Data == "ul" || node.Data == "ol" {
				flattenable = false
				break
			}
			converted = append(converted, c.dispatch(node)...)
		}
		if flattenable {
			for _, b := range converted {
				switch blk := b.(type) {
				case *notionapi.ParagraphBlock:
					if len(rt) > 0 {
						rt = append(rt, textRun("\n", nil))
					}
					rt = append(rt, blk.Paragraph.RichText...)
				case *notionapi.ImageBlock:
					children = append(children, b)
				default:
					flattenable = false
				}
				if !flattenable {
					break
				}
			}
		}

		if !flattenable {
			// The whole item moves to the sidecar so its structure
			// survives intact.
			overflow = append(overflow, c.deferredListItem(li, ordered))
			continue
		}
		if strings.TrimSpace(PlainText(rt)) == "" && len(children) == 0 {
			continue
		}
		items = append(items, listItemBlock(rt, children, ordered))
	}
	return items, overflow
}

// deferredListItem rebuilds a nested item for the sidecar, where depth
// limits no longer apply because the orchestrator appends it at the top
// level of the host item.
func (c *Converter) deferredListItem(li *html.Node, ordered bool) notionapi.Block {
	inline, blockNodes := partitionListItem(li)
	frag := c.ParseFragment(inline)
	rt := meaningfulRuns(frag.RichText)
	var children []notionapi.Block
	children = append(children, frag.Images...)
	for _, node := range blockNodes {
		children = append(children, c.dispatch(node)...)
	}
	return listItemBlock(rt, children, ordered)
}

// partitionListItem splits an <li> into its inline HTML prefix and the
// block-level child elements, preserving source order for the latter.
func partitionListItem(li *html.Node) (inline string, blocks []*html.Node) {
	var b strings.Builder
	for child := li.FirstChild; child != nil; child = child.NextSibling {
		switch {
		case child.Type == html.TextNode:
			b.WriteString(child.Data)
		case child.Type != html.ElementNode:
		case skippedTags[child.Data]:
		case isBlockLevel(child):
			blocks = append(blocks, child)
		default:
			b.WriteString(outerHTML(child))
		}
	}
	return b.String(), blocks
}

// meaningfulRuns drops the empty-run sentinel an empty fragment yields,
// so list items distinguish "no inline text" from real content.
func meaningfulRuns(rt []notionapi.RichText) []notionapi.RichText {
	if strings.TrimSpace(PlainText(rt)) == "" {
		return nil
	}
	return rt
}

func listItemBlock(rt []notionapi.RichText, children []notionapi.Block, ordered bool) notionapi.Block {
	if rt == nil {
		rt = []notionapi.RichText{}
	}
	if ordered {
		return &notionapi.NumberedListItemBlock{
			BasicBlock: basicBlock(notionapi.BlockTypeNumberedListItem),
			NumberedListItem: notionapi.ListItem{
				RichText: rt,
				Children: children,
			},
		}
	}
	return &notionapi.BulletedListItemBlock{
		BasicBlock: basicBlock(notionapi.BlockTypeBulletedListItem),
		BulletedListItem: notionapi.ListItem{
			RichText: rt,
			Children: children,
		},
	}
}
