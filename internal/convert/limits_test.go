package convert

import (
	"strings"
	"testing"

	"github.com/jomei/notionapi"
)

func TestEnforceTextLimits_LongParagraphSplits(t *testing.T) {
	long := strings.Repeat("x", 2100)
	blocks := []notionapi.Block{
		paragraphBlock([]notionapi.RichText{textRun(long, nil)}),
	}

	out := EnforceTextLimits(blocks)
	if len(out) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(out))
	}
	first := out[0].(*notionapi.ParagraphBlock)
	second := out[1].(*notionapi.ParagraphBlock)
	if got := len(PlainText(first.Paragraph.RichText)); got != 2000 {
		t.Errorf("expected first block to carry 2000 chars, got %d", got)
	}
	if got := len(PlainText(second.Paragraph.RichText)); got != 100 {
		t.Errorf("expected continuation to carry 100 chars, got %d", got)
	}
}

func TestEnforceTextLimits_SplitKeepsAnnotations(t *testing.T) {
	bold := &notionapi.Annotations{Bold: true, Color: notionapi.ColorDefault}
	blocks := []notionapi.Block{
		paragraphBlock([]notionapi.RichText{textRun(strings.Repeat("y", 2500), bold)}),
	}

	out := EnforceTextLimits(blocks)
	if len(out) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(out))
	}
	cont := out[1].(*notionapi.ParagraphBlock)
	if ann := cont.Paragraph.RichText[0].Annotations; ann == nil || !ann.Bold {
		t.Errorf("expected bold preserved on continuation, got %+v", ann)
	}
}

func TestEnforceTextLimits_TooManyRunsSpill(t *testing.T) {
	runs := make([]notionapi.RichText, 150)
	for i := range runs {
		runs[i] = textRun("r", nil)
	}
	out := EnforceTextLimits([]notionapi.Block{paragraphBlock(runs)})

	if len(out) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(out))
	}
	if got := len(out[0].(*notionapi.ParagraphBlock).Paragraph.RichText); got != MaxRunsPerBlock {
		t.Errorf("expected %d runs in first block, got %d", MaxRunsPerBlock, got)
	}
	if got := len(out[1].(*notionapi.ParagraphBlock).Paragraph.RichText); got != 50 {
		t.Errorf("expected 50 runs in continuation, got %d", got)
	}
}

func TestEnforceTextLimits_CodeSplitsInPlace(t *testing.T) {
	content := strings.Repeat("z", 4500)
	blocks := []notionapi.Block{&notionapi.CodeBlock{
		BasicBlock: basicBlock(notionapi.BlockTypeCode),
		Code: notionapi.Code{
			RichText: []notionapi.RichText{textRun(content, nil)},
			Language: "shell",
		},
	}}

	out := EnforceTextLimits(blocks)
	if len(out) != 1 {
		t.Fatalf("expected code to stay one block, got %d", len(out))
	}
	code := out[0].(*notionapi.CodeBlock)
	if len(code.Code.RichText) != 3 {
		t.Fatalf("expected 3 runs, got %d", len(code.Code.RichText))
	}
	if got := PlainText(code.Code.RichText); got != content {
		t.Error("expected code content preserved across splits")
	}
}

func TestEnforceTextLimits_TableCellSplitsInPlace(t *testing.T) {
	long := strings.Repeat("c", 2100)
	row := &notionapi.TableRowBlock{
		BasicBlock: basicBlock(notionapi.BlockTypeTableRowBlock),
		TableRow: notionapi.TableRow{
			Cells: [][]notionapi.RichText{{textRun(long, nil)}},
		},
	}

	out := EnforceTextLimits([]notionapi.Block{row})
	if len(out) != 1 {
		t.Fatalf("expected row to stay one block, got %d", len(out))
	}
	cell := out[0].(*notionapi.TableRowBlock).TableRow.Cells[0]
	if len(cell) != 2 {
		t.Fatalf("expected cell split into 2 runs, got %d", len(cell))
	}
	if got := PlainText(cell); got != long {
		t.Error("expected cell content preserved")
	}
}

func TestEnforceTextLimits_RecursesIntoChildren(t *testing.T) {
	long := strings.Repeat("n", 2100)
	item := listItemBlock(
		[]notionapi.RichText{textRun("host", nil)},
		[]notionapi.Block{paragraphBlock([]notionapi.RichText{textRun(long, nil)})},
		false,
	)

	out := EnforceTextLimits([]notionapi.Block{item})
	if len(out) != 1 {
		t.Fatalf("expected 1 block, got %d", len(out))
	}
	children := out[0].(*notionapi.BulletedListItemBlock).BulletedListItem.Children
	if len(children) != 2 {
		t.Errorf("expected child paragraph split into 2, got %d", len(children))
	}
}

func TestChunkBlocks(t *testing.T) {
	blocks := make([]notionapi.Block, 201)
	for i := range blocks {
		blocks[i] = paragraphBlock([]notionapi.RichText{textRun("p", nil)})
	}

	chunks := ChunkBlocks(blocks, MaxChildrenPerRequest)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	wantSizes := []int{100, 100, 1}
	for i, want := range wantSizes {
		if len(chunks[i]) != want {
			t.Errorf("chunk %d: expected %d blocks, got %d", i, want, len(chunks[i]))
		}
	}

	if got := ChunkBlocks(nil, 100); got != nil {
		t.Errorf("expected nil chunks for empty input, got %v", got)
	}
}
