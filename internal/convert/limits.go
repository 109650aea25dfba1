package convert

import (
	"github.com/jomei/notionapi"
)

// Notion API limits enforced before upload.
const (
	// MaxRunLength is the maximum characters in a single rich-text run.
	MaxRunLength = 2000

	// MaxRunsPerBlock is the maximum rich-text elements per array.
	MaxRunsPerBlock = 100

	// MaxChildrenPerRequest is the ceiling on children in one create or
	// append request.
	MaxChildrenPerRequest = 100
)

// EnforceTextLimits rewrites the block stream so no run exceeds
// MaxRunLength and no rich-text array exceeds MaxRunsPerBlock. Overflow
// from a textual block spills into continuation blocks of the same type,
// preserving annotation state. Code blocks and table cells keep their
// content in place, split across additional runs, because a continuation
// block would change their semantics.
func EnforceTextLimits(blocks []notionapi.Block) []notionapi.Block {
	var out []notionapi.Block
	for _, b := range blocks {
		out = append(out, enforceOnBlock(b)...)
	}
	return out
}

func enforceOnBlock(b notionapi.Block) []notionapi.Block {
	// Children first so list items and callouts are already in shape
	// before their own rich text is examined.
	if children := blockChildren(b); len(children) > 0 {
		setBlockChildren(b, EnforceTextLimits(children))
	}

	switch blk := b.(type) {
	case *notionapi.CodeBlock:
		blk.Code.RichText = splitRunsInPlace(blk.Code.RichText)
		return []notionapi.Block{b}
	case *notionapi.TableRowBlock:
		for i, cell := range blk.TableRow.Cells {
			blk.TableRow.Cells[i] = splitRunsInPlace(cell)
		}
		return []notionapi.Block{b}
	}

	rt := blockRichText(b)
	if rt == nil {
		return []notionapi.Block{b}
	}

	arrays := partitionRuns(rt)
	setBlockRichText(b, arrays[0])
	out := []notionapi.Block{b}
	for _, extra := range arrays[1:] {
		out = append(out, continuationBlock(b, extra))
	}
	return out
}

// partitionRuns splits over-long runs at MaxRunLength and packs the
// pieces into arrays of at most MaxRunsPerBlock runs. A split run's
// continuation always opens a new array, so a 2100-character paragraph
// becomes one 2000-character block plus one 100-character continuation.
func partitionRuns(rt []notionapi.RichText) [][]notionapi.RichText {
	arrays := [][]notionapi.RichText{nil}
	cur := 0

	push := func(run notionapi.RichText, newArray bool) {
		if newArray || len(arrays[cur]) >= MaxRunsPerBlock {
			arrays = append(arrays, nil)
			cur++
		}
		arrays[cur] = append(arrays[cur], run)
	}

	for _, run := range rt {
		if run.Text == nil || len([]rune(run.Text.Content)) <= MaxRunLength {
			push(run, false)
			continue
		}
		pieces := splitRun(run)
		for i, piece := range pieces {
			push(piece, i > 0)
		}
	}

	if len(arrays[0]) == 0 && len(arrays) == 1 {
		return [][]notionapi.RichText{rt}
	}
	return arrays
}

// splitRunsInPlace splits over-long runs but keeps every piece in the
// same array, capped at MaxRunsPerBlock.
func splitRunsInPlace(rt []notionapi.RichText) []notionapi.RichText {
	var out []notionapi.RichText
	for _, run := range rt {
		if run.Text == nil || len([]rune(run.Text.Content)) <= MaxRunLength {
			out = append(out, run)
			continue
		}
		out = append(out, splitRun(run)...)
	}
	if len(out) > MaxRunsPerBlock {
		out = out[:MaxRunsPerBlock]
	}
	return out
}

// splitRun slices a run's content into MaxRunLength-rune pieces carrying
// the same annotations and link.
func splitRun(run notionapi.RichText) []notionapi.RichText {
	content := []rune(run.Text.Content)
	var pieces []notionapi.RichText
	for start := 0; start < len(content); start += MaxRunLength {
		end := min(start+MaxRunLength, len(content))
		text := *run.Text
		text.Content = string(content[start:end])
		piece := run
		piece.Text = &text
		piece.PlainText = ""
		pieces = append(pieces, piece)
	}
	return pieces
}

// ChunkBlocks partitions blocks into request-sized chunks of at most
// MaxChildrenPerRequest.
func ChunkBlocks(blocks []notionapi.Block, size int) [][]notionapi.Block {
	if size <= 0 {
		size = MaxChildrenPerRequest
	}
	var chunks [][]notionapi.Block
	for start := 0; start < len(blocks); start += size {
		end := min(start+size, len(blocks))
		chunks = append(chunks, blocks[start:end])
	}
	return chunks
}
