package notion

import (
	"context"
	"fmt"

	"github.com/jomei/notionapi"
)

// BlockRef is a lightweight view of an existing block: enough to search
// its text for marker tokens and to write the text back.
type BlockRef struct {
	ID       string
	Type     notionapi.BlockType
	RichText []notionapi.RichText
	HasChild bool
}

// Children retrieves the direct children of a block or page, handling
// pagination.
func (c *Client) Children(ctx context.Context, parentID string) ([]notionapi.Block, error) {
	var all []notionapi.Block
	var cursor notionapi.Cursor

	for {
		if err := c.wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}

		resp, err := c.api.Block.GetChildren(ctx, notionapi.BlockID(parentID), &notionapi.Pagination{
			StartCursor: cursor,
			PageSize:    100,
		})
		if err != nil {
			return nil, fmt.Errorf("get children: %w", err)
		}

		all = append(all, resp.Results...)

		if !resp.HasMore {
			break
		}
		cursor = notionapi.Cursor(resp.NextCursor)
	}

	return all, nil
}

// Descendants walks the whole block tree under a page and returns refs in
// document order. Only blocks carrying rich text produce refs, but the
// walk descends through every container so nothing below a table or
// callout is missed.
func (c *Client) Descendants(ctx context.Context, pageID string) ([]BlockRef, error) {
	var refs []BlockRef
	if err := c.collectDescendants(ctx, pageID, &refs); err != nil {
		return nil, err
	}
	return refs, nil
}

func (c *Client) collectDescendants(ctx context.Context, parentID string, refs *[]BlockRef) error {
	children, err := c.Children(ctx, parentID)
	if err != nil {
		return err
	}

	for _, block := range children {
		ref := BlockRef{
			ID:       string(block.GetID()),
			Type:     block.GetType(),
			RichText: richTextOf(block),
			HasChild: block.GetHasChildren(),
		}
		if ref.RichText != nil || ref.HasChild {
			*refs = append(*refs, ref)
		}
		if ref.HasChild {
			if err := c.collectDescendants(ctx, ref.ID, refs); err != nil {
				return fmt.Errorf("descend into %s: %w", ref.ID, err)
			}
		}
	}
	return nil
}

// AppendChildren appends blocks under a parent in chunks of at most the
// batch size. It returns the number of blocks successfully appended; on
// failure the error is a ChunkError identifying which chunk failed, so
// callers can report partial success.
func (c *Client) AppendChildren(ctx context.Context, parentID string, blocks []notionapi.Block) (int, error) {
	if len(blocks) == 0 {
		return 0, nil
	}

	chunks := chunk(blocks, c.batchSize)
	appended := 0
	for i, batch := range chunks {
		if err := c.wait(ctx); err != nil {
			return appended, &ChunkError{Chunk: i, Chunks: len(chunks), Err: err}
		}

		_, err := c.api.Block.AppendChildren(ctx, notionapi.BlockID(parentID), &notionapi.AppendBlockChildrenRequest{
			Children: batch,
		})
		if err != nil {
			return appended, &ChunkError{Chunk: i, Chunks: len(chunks), Err: err}
		}

		appended += len(batch)
		c.logger.Debug("appended block chunk",
			"parent", parentID, "chunk", i+1, "chunks", len(chunks), "blocks", len(batch))
	}
	return appended, nil
}

// UpdateRichText replaces the rich text of an existing block, preserving
// the rest of its payload.
func (c *Client) UpdateRichText(ctx context.Context, ref BlockRef, rt []notionapi.RichText) error {
	req, err := richTextUpdateRequest(ref.Type, rt)
	if err != nil {
		return err
	}

	if err := c.wait(ctx); err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}

	if _, err := c.api.Block.Update(ctx, notionapi.BlockID(ref.ID), req); err != nil {
		return fmt.Errorf("update block %s: %w", ref.ID, err)
	}
	return nil
}

// DeleteBlock deletes a single block.
func (c *Client) DeleteBlock(ctx context.Context, blockID string) error {
	if err := c.wait(ctx); err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}

	if _, err := c.api.Block.Delete(ctx, notionapi.BlockID(blockID)); err != nil {
		return fmt.Errorf("delete block %s: %w", blockID, err)
	}
	return nil
}

// ClearChildren deletes every direct child of a page or block.
func (c *Client) ClearChildren(ctx context.Context, parentID string) (int, error) {
	children, err := c.Children(ctx, parentID)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, block := range children {
		if err := c.DeleteBlock(ctx, string(block.GetID())); err != nil {
			return deleted, err
		}
		deleted++
	}
	return deleted, nil
}

// richTextUpdateRequest builds a type-specific update request carrying
// only the rich text.
func richTextUpdateRequest(t notionapi.BlockType, rt []notionapi.RichText) (*notionapi.BlockUpdateRequest, error) {
	switch t {
	case notionapi.BlockTypeParagraph:
		return &notionapi.BlockUpdateRequest{Paragraph: &notionapi.Paragraph{RichText: rt}}, nil
	case notionapi.BlockTypeHeading1:
		return &notionapi.BlockUpdateRequest{Heading1: &notionapi.Heading{RichText: rt}}, nil
	case notionapi.BlockTypeHeading2:
		return &notionapi.BlockUpdateRequest{Heading2: &notionapi.Heading{RichText: rt}}, nil
	case notionapi.BlockTypeHeading3:
		return &notionapi.BlockUpdateRequest{Heading3: &notionapi.Heading{RichText: rt}}, nil
	case notionapi.BlockTypeBulletedListItem:
		return &notionapi.BlockUpdateRequest{BulletedListItem: &notionapi.ListItem{RichText: rt}}, nil
	case notionapi.BlockTypeNumberedListItem:
		return &notionapi.BlockUpdateRequest{NumberedListItem: &notionapi.ListItem{RichText: rt}}, nil
	case notionapi.BlockTypeToDo:
		return &notionapi.BlockUpdateRequest{ToDo: &notionapi.ToDo{RichText: rt}}, nil
	case "toggle":
		return &notionapi.BlockUpdateRequest{Toggle: &notionapi.Toggle{RichText: rt}}, nil
	case "quote":
		return &notionapi.BlockUpdateRequest{Quote: &notionapi.Quote{RichText: rt}}, nil
	case "callout":
		return &notionapi.BlockUpdateRequest{Callout: &notionapi.Callout{RichText: rt}}, nil
	case notionapi.BlockTypeCode:
		return &notionapi.BlockUpdateRequest{Code: &notionapi.Code{RichText: rt}}, nil
	default:
		return nil, fmt.Errorf("block type %s does not carry updatable rich text", t)
	}
}

// richTextOf extracts the primary rich text of a fetched block.
func richTextOf(block notionapi.Block) []notionapi.RichText {
	switch b := block.(type) {
	case *notionapi.ParagraphBlock:
		return b.Paragraph.RichText
	case *notionapi.Heading1Block:
		return b.Heading1.RichText
	case *notionapi.Heading2Block:
		return b.Heading2.RichText
	case *notionapi.Heading3Block:
		return b.Heading3.RichText
	case *notionapi.BulletedListItemBlock:
		return b.BulletedListItem.RichText
	case *notionapi.NumberedListItemBlock:
		return b.NumberedListItem.RichText
	case *notionapi.ToDoBlock:
		return b.ToDo.RichText
	case *notionapi.ToggleBlock:
		return b.Toggle.RichText
	case *notionapi.QuoteBlock:
		return b.Quote.RichText
	case *notionapi.CalloutBlock:
		return b.Callout.RichText
	case *notionapi.CodeBlock:
		return b.Code.RichText
	default:
		return nil
	}
}

// chunk splits blocks into batches of at most size.
func chunk(blocks []notionapi.Block, size int) [][]notionapi.Block {
	var out [][]notionapi.Block
	for start := 0; start < len(blocks); start += size {
		end := min(start+size, len(blocks))
		out = append(out, blocks[start:end])
	}
	return out
}
