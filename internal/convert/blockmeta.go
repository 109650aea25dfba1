package convert

import (
	"github.com/jomei/notionapi"
)

// blockRichText returns the primary rich-text array of a block, or nil
// for types without one.
func blockRichText(b notionapi.Block) []notionapi.RichText {
	switch blk := b.(type) {
	case *notionapi.ParagraphBlock:
		return blk.Paragraph.RichText
	case *notionapi.Heading1Block:
		return blk.Heading1.RichText
	case *notionapi.Heading2Block:
		return blk.Heading2.RichText
	case *notionapi.Heading3Block:
		return blk.Heading3.RichText
	case *notionapi.BulletedListItemBlock:
		return blk.BulletedListItem.RichText
	case *notionapi.NumberedListItemBlock:
		return blk.NumberedListItem.RichText
	case *notionapi.CalloutBlock:
		return blk.Callout.RichText
	case *notionapi.CodeBlock:
		return blk.Code.RichText
	case *notionapi.QuoteBlock:
		return blk.Quote.RichText
	case *notionapi.ToDoBlock:
		return blk.ToDo.RichText
	default:
		return nil
	}
}

// setBlockRichText replaces the primary rich-text array in place.
func setBlockRichText(b notionapi.Block, rt []notionapi.RichText) {
	switch blk := b.(type) {
	case *notionapi.ParagraphBlock:
		blk.Paragraph.RichText = rt
	case *notionapi.Heading1Block:
		blk.Heading1.RichText = rt
	case *notionapi.Heading2Block:
		blk.Heading2.RichText = rt
	case *notionapi.Heading3Block:
		blk.Heading3.RichText = rt
	case *notionapi.BulletedListItemBlock:
		blk.BulletedListItem.RichText = rt
	case *notionapi.NumberedListItemBlock:
		blk.NumberedListItem.RichText = rt
	case *notionapi.CalloutBlock:
		blk.Callout.RichText = rt
	case *notionapi.CodeBlock:
		blk.Code.RichText = rt
	case *notionapi.QuoteBlock:
		blk.Quote.RichText = rt
	case *notionapi.ToDoBlock:
		blk.ToDo.RichText = rt
	}
}

// blockChildren returns the children of a block that can carry them.
func blockChildren(b notionapi.Block) []notionapi.Block {
	switch blk := b.(type) {
	case *notionapi.BulletedListItemBlock:
		return blk.BulletedListItem.Children
	case *notionapi.NumberedListItemBlock:
		return blk.NumberedListItem.Children
	case *notionapi.CalloutBlock:
		return blk.Callout.Children
	case *notionapi.ToggleBlock:
		return blk.Toggle.Children
	case *notionapi.ParagraphBlock:
		return blk.Paragraph.Children
	case *notionapi.TableBlock:
		return blk.Table.Children
	default:
		return nil
	}
}

// setBlockChildren replaces the children of a block in place.
func setBlockChildren(b notionapi.Block, children []notionapi.Block) {
	switch blk := b.(type) {
	case *notionapi.BulletedListItemBlock:
		blk.BulletedListItem.Children = children
	case *notionapi.NumberedListItemBlock:
		blk.NumberedListItem.Children = children
	case *notionapi.CalloutBlock:
		blk.Callout.Children = children
	case *notionapi.ToggleBlock:
		blk.Toggle.Children = children
	case *notionapi.ParagraphBlock:
		blk.Paragraph.Children = children
	case *notionapi.TableBlock:
		blk.Table.Children = children
	}
}

// continuationBlock creates an empty block of the same textual type as b,
// used when rich text overflows Notion's per-block limits.
func continuationBlock(b notionapi.Block, rt []notionapi.RichText) notionapi.Block {
	switch b.(type) {
	case *notionapi.Heading1Block:
		return &notionapi.Heading1Block{
			BasicBlock: basicBlock(notionapi.BlockTypeHeading1),
			Heading1:   notionapi.Heading{RichText: rt},
		}
	case *notionapi.Heading2Block:
		return &notionapi.Heading2Block{
			BasicBlock: basicBlock(notionapi.BlockTypeHeading2),
			Heading2:   notionapi.Heading{RichText: rt},
		}
	case *notionapi.Heading3Block:
		return &notionapi.Heading3Block{
			BasicBlock: basicBlock(notionapi.BlockTypeHeading3),
			Heading3:   notionapi.Heading{RichText: rt},
		}
	case *notionapi.BulletedListItemBlock:
		return &notionapi.BulletedListItemBlock{
			BasicBlock:       basicBlock(notionapi.BlockTypeBulletedListItem),
			BulletedListItem: notionapi.ListItem{RichText: rt},
		}
	case *notionapi.NumberedListItemBlock:
		return &notionapi.NumberedListItemBlock{
			BasicBlock:       basicBlock(notionapi.BlockTypeNumberedListItem),
			NumberedListItem: notionapi.ListItem{RichText: rt},
		}
	case *notionapi.CalloutBlock:
		orig := b.(*notionapi.CalloutBlock)
		return &notionapi.CalloutBlock{
			BasicBlock: basicBlock("callout"),
			Callout: notionapi.Callout{
				RichText: rt,
				Icon:     orig.Callout.Icon,
				Color:    orig.Callout.Color,
			},
		}
	default:
		return &notionapi.ParagraphBlock{
			BasicBlock: basicBlock(notionapi.BlockTypeParagraph),
			Paragraph:  notionapi.Paragraph{RichText: rt},
		}
	}
}

// basicBlock fills the shared object/type header.
func basicBlock(t notionapi.BlockType) notionapi.BasicBlock {
	return notionapi.BasicBlock{
		Object: notionapi.ObjectTypeBlock,
		Type:   t,
	}
}

// BlockPlainText concatenates the plain text of a block including table
// rows, without descending into children.
func BlockPlainText(b notionapi.Block) string {
	if row, ok := b.(*notionapi.TableRowBlock); ok {
		var s string
		for _, cell := range row.TableRow.Cells {
			s += PlainText(cell)
		}
		return s
	}
	return PlainText(blockRichText(b))
}
