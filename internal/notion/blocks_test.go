package notion

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jomei/notionapi"
)

func testRichText(content string) []notionapi.RichText {
	return []notionapi.RichText{
		{
			Type: notionapi.ObjectTypeText,
			Text: &notionapi.Text{Content: content},
		},
	}
}

func TestRichTextUpdateRequest_TextualTypes(t *testing.T) {
	rt := testRichText("updated")

	tests := []struct {
		blockType notionapi.BlockType
		check     func(*notionapi.BlockUpdateRequest) bool
	}{
		{notionapi.BlockTypeParagraph, func(r *notionapi.BlockUpdateRequest) bool {
			return r.Paragraph != nil && len(r.Paragraph.RichText) == 1
		}},
		{notionapi.BlockTypeHeading1, func(r *notionapi.BlockUpdateRequest) bool {
			return r.Heading1 != nil && len(r.Heading1.RichText) == 1
		}},
		{notionapi.BlockTypeHeading2, func(r *notionapi.BlockUpdateRequest) bool {
			return r.Heading2 != nil
		}},
		{notionapi.BlockTypeHeading3, func(r *notionapi.BlockUpdateRequest) bool {
			return r.Heading3 != nil
		}},
		{notionapi.BlockTypeBulletedListItem, func(r *notionapi.BlockUpdateRequest) bool {
			return r.BulletedListItem != nil && len(r.BulletedListItem.RichText) == 1
		}},
		{notionapi.BlockTypeNumberedListItem, func(r *notionapi.BlockUpdateRequest) bool {
			return r.NumberedListItem != nil
		}},
		{notionapi.BlockTypeToDo, func(r *notionapi.BlockUpdateRequest) bool {
			return r.ToDo != nil
		}},
		{"toggle", func(r *notionapi.BlockUpdateRequest) bool {
			return r.Toggle != nil
		}},
		{"quote", func(r *notionapi.BlockUpdateRequest) bool {
			return r.Quote != nil
		}},
		{"callout", func(r *notionapi.BlockUpdateRequest) bool {
			return r.Callout != nil
		}},
		{notionapi.BlockTypeCode, func(r *notionapi.BlockUpdateRequest) bool {
			return r.Code != nil
		}},
	}

	for _, tt := range tests {
		t.Run(string(tt.blockType), func(t *testing.T) {
			req, err := richTextUpdateRequest(tt.blockType, rt)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tt.check(req) {
				t.Errorf("request for %s does not carry the rich text", tt.blockType)
			}
		})
	}
}

func TestRichTextUpdateRequest_UnsupportedType(t *testing.T) {
	_, err := richTextUpdateRequest(notionapi.BlockTypeTableBlock, testRichText("x"))
	if err == nil {
		t.Error("expected error for non-textual block type")
	}
}

func TestRichTextOf(t *testing.T) {
	tests := []struct {
		name  string
		block notionapi.Block
		want  string
	}{
		{
			name: "paragraph",
			block: &notionapi.ParagraphBlock{
				Paragraph: notionapi.Paragraph{RichText: testRichText("para")},
			},
			want: "para",
		},
		{
			name: "bulleted list item",
			block: &notionapi.BulletedListItemBlock{
				BulletedListItem: notionapi.ListItem{RichText: testRichText("item")},
			},
			want: "item",
		},
		{
			name: "callout",
			block: &notionapi.CalloutBlock{
				Callout: notionapi.Callout{RichText: testRichText("note")},
			},
			want: "note",
		},
		{
			name:  "divider has none",
			block: &notionapi.DividerBlock{},
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt := richTextOf(tt.block)
			got := ""
			for _, r := range rt {
				if r.Text != nil {
					got += r.Text.Content
				}
			}
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestChunk(t *testing.T) {
	mk := func(n int) []notionapi.Block {
		blocks := make([]notionapi.Block, n)
		for i := range blocks {
			blocks[i] = &notionapi.ParagraphBlock{}
		}
		return blocks
	}

	tests := []struct {
		name      string
		blocks    int
		size      int
		wantSizes []int
	}{
		{"empty", 0, 100, nil},
		{"single chunk", 42, 100, []int{42}},
		{"exact multiple", 200, 100, []int{100, 100}},
		{"remainder", 201, 100, []int{100, 100, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := chunk(mk(tt.blocks), tt.size)
			if len(chunks) != len(tt.wantSizes) {
				t.Fatalf("expected %d chunks, got %d", len(tt.wantSizes), len(chunks))
			}
			for i, want := range tt.wantSizes {
				if len(chunks[i]) != want {
					t.Errorf("chunk %d: expected %d blocks, got %d", i, want, len(chunks[i]))
				}
			}
		})
	}
}

func TestChunkError(t *testing.T) {
	inner := errors.New("boom")
	err := &ChunkError{Chunk: 1, Chunks: 3, Err: inner}

	if !errors.Is(err, inner) {
		t.Error("expected Unwrap to reach the inner error")
	}
	want := "append chunk 2 of 3: boom"
	if err.Error() != want {
		t.Errorf("expected %q, got %q", want, err.Error())
	}
}

func TestErrorClassification(t *testing.T) {
	wrap := func(status int, code notionapi.ErrorCode) error {
		return fmt.Errorf("call: %w", &notionapi.Error{Status: status, Code: code})
	}
	wrapMsg := func(status int, code notionapi.ErrorCode, message string) error {
		return fmt.Errorf("call: %w", &notionapi.Error{Status: status, Code: code, Message: message})
	}

	tests := []struct {
		name  string
		err   error
		check func(error) bool
		want  bool
	}{
		{"not found by status", wrap(404, ""), IsNotFound, true},
		{"not found by code", wrap(0, "object_not_found"), IsNotFound, true},
		{"unauthorized", wrap(401, "unauthorized"), IsUnauthorized, true},
		{"rate limited", wrap(429, "rate_limited"), IsRateLimited, true},
		{"validation", wrap(400, "validation_error"), IsValidation, true},
		{"archived page", wrapMsg(400, "validation_error", "Can't update a page that is archived. You must unarchive the page before updating."), IsArchived, true},
		{"archived block", wrapMsg(400, "validation_error", "Can't edit block that is archived. You must unarchive the block before editing."), IsArchived, true},
		{"validation without archived message", wrap(400, "validation_error"), IsArchived, false},
		{"archived wording on a non-validation error", wrapMsg(404, "object_not_found", "page archived"), IsArchived, false},
		{"plain error is none of them", errors.New("dial tcp"), IsNotFound, false},
		{"mismatched class", wrap(404, ""), IsRateLimited, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.check(tt.err); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}
