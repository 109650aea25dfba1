package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/jomei/notionapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adamancini/sn2n/internal/convert"
	"github.com/adamancini/sn2n/internal/notion"
)

// fakeNotion is an in-memory NotionAPI double. Appended blocks get
// sequential ids; Descendants walks the stored tree in insertion order.
type fakeNotion struct {
	seq      int
	pages    int
	children map[string][]string                   // parent id -> child block ids
	blocks   map[string]notionapi.Block            // block id -> block
	richText map[string][]notionapi.RichText       // overrides from UpdateRichText
	specs    []notion.PageSpec

	failAppendOnCall int // 1-based count of AppendChildren calls to fail, 0 disables
	appendCalls      int
	clearCalls       int
	hideRichText     bool // Descendants returns refs without text
}

func newFakeNotion() *fakeNotion {
	return &fakeNotion{
		children: make(map[string][]string),
		blocks:   make(map[string]notionapi.Block),
		richText: make(map[string][]notionapi.RichText),
	}
}

func (f *fakeNotion) CreatePage(_ context.Context, spec notion.PageSpec) (*notion.PageResult, error) {
	f.pages++
	f.specs = append(f.specs, spec)
	pageID := fmt.Sprintf("page-%d", f.pages)
	f.store(pageID, spec.Children)
	return &notion.PageResult{PageID: pageID, URL: "https://notion.so/" + pageID}, nil
}

func (f *fakeNotion) AppendChildren(_ context.Context, parentID string, blocks []notionapi.Block) (int, error) {
	f.appendCalls++
	if f.failAppendOnCall > 0 && f.appendCalls == f.failAppendOnCall {
		return 0, errors.New("service unavailable")
	}
	f.store(parentID, blocks)
	return len(blocks), nil
}

func (f *fakeNotion) Descendants(_ context.Context, pageID string) ([]notion.BlockRef, error) {
	var refs []notion.BlockRef
	f.collect(pageID, &refs)
	return refs, nil
}

func (f *fakeNotion) UpdateRichText(_ context.Context, ref notion.BlockRef, rt []notionapi.RichText) error {
	f.richText[ref.ID] = rt
	return nil
}

func (f *fakeNotion) ClearChildren(_ context.Context, parentID string) (int, error) {
	f.clearCalls++
	n := len(f.children[parentID])
	f.children[parentID] = nil
	return n, nil
}

func (f *fakeNotion) store(parentID string, blocks []notionapi.Block) {
	for _, b := range blocks {
		f.seq++
		id := fmt.Sprintf("blk-%d", f.seq)
		f.children[parentID] = append(f.children[parentID], id)
		f.blocks[id] = b
	}
}

func (f *fakeNotion) collect(parentID string, refs *[]notion.BlockRef) {
	for _, id := range f.children[parentID] {
		block := f.blocks[id]
		rt, ok := f.richText[id]
		if !ok {
			rt = fakeRichTextOf(block)
		}
		if f.hideRichText {
			rt = nil
		}
		*refs = append(*refs, notion.BlockRef{
			ID:       id,
			Type:     block.GetType(),
			RichText: rt,
			HasChild: len(f.children[id]) > 0,
		})
		f.collect(id, refs)
	}
}

func fakeRichTextOf(block notionapi.Block) []notionapi.RichText {
	switch b := block.(type) {
	case *notionapi.ParagraphBlock:
		return b.Paragraph.RichText
	case *notionapi.BulletedListItemBlock:
		return b.BulletedListItem.RichText
	case *notionapi.NumberedListItemBlock:
		return b.NumberedListItem.RichText
	case *notionapi.CalloutBlock:
		return b.Callout.RichText
	case *notionapi.Heading2Block:
		return b.Heading2.RichText
	default:
		return nil
	}
}

func newTestUploader(f *fakeNotion) *Uploader {
	return New(f, WithSweepDelay(0))
}

const listWithTableHTML = `<article><ol>` +
	`<li>Configure the mapping:<table><tbody><tr><td>key</td><td>value</td></tr></tbody></table></li>` +
	`<li>Save the record.</li>` +
	`</ol></article>`

func TestUpload_DryRunTouchesNothing(t *testing.T) {
	f := newFakeNotion()
	u := newTestUploader(f)

	res, err := u.Upload(context.Background(), Request{
		Title:       "Doc",
		DatabaseID:  "db-1",
		ContentHTML: listWithTableHTML,
		DryRun:      true,
	})
	require.NoError(t, err)

	assert.True(t, res.DryRun)
	assert.Equal(t, 2, res.Blocks)
	assert.Equal(t, 1, res.Markers)
	assert.Zero(t, f.pages, "dry run must not create pages")
	assert.Zero(t, f.appendCalls, "dry run must not append blocks")
}

func TestUpload_ResolvesMarkers(t *testing.T) {
	f := newFakeNotion()
	u := newTestUploader(f)

	res, err := u.Upload(context.Background(), Request{
		Title:       "Doc",
		URL:         "https://www.servicenow.com/docs/page.html",
		DatabaseID:  "db-1",
		ContentHTML: listWithTableHTML,
	})
	require.NoError(t, err)

	assert.Equal(t, "page-1", res.PageID)
	assert.Equal(t, 1, res.Resolved)
	assert.Zero(t, res.Orphaned)
	assert.Empty(t, res.Warnings)

	// The page holds the two list items; the table hangs under the first.
	require.Len(t, f.children["page-1"], 2)
	hostID := f.children["page-1"][0]
	require.Len(t, f.children[hostID], 1)
	assert.Equal(t, notionapi.BlockTypeTableBlock, f.blocks[f.children[hostID][0]].GetType())

	// The token was stripped from the host text.
	stripped, ok := f.richText[hostID]
	require.True(t, ok, "expected host rich text to be rewritten")
	assert.False(t, convert.HasAnyToken(stripped))
	assert.Contains(t, convert.PlainText(stripped), "Configure the mapping:")
}

func TestUpload_OrphanedMarkerFallsBackToPageLevel(t *testing.T) {
	f := newFakeNotion()
	f.hideRichText = true
	u := newTestUploader(f)

	res, err := u.Upload(context.Background(), Request{
		Title:       "Doc",
		DatabaseID:  "db-1",
		ContentHTML: listWithTableHTML,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Orphaned)
	assert.Zero(t, res.Resolved)
	require.NotEmpty(t, res.Warnings)
	assert.Contains(t, res.Warnings[0], "host block not found")

	// Deferred table landed at the page level instead of being lost.
	pageBlocks := f.children["page-1"]
	require.Len(t, pageBlocks, 3)
	assert.Equal(t, notionapi.BlockTypeTableBlock, f.blocks[pageBlocks[2]].GetType())
}

func TestUpload_ChunkFailureIsPartialSuccess(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("<article>")
	for i := 0; i < 150; i++ {
		fmt.Fprintf(&sb, "<p>Paragraph number %d with unique text.</p>", i)
	}
	sb.WriteString("</article>")

	f := newFakeNotion()
	f.failAppendOnCall = 1 // the post-create chunk
	u := newTestUploader(f)

	res, err := u.Upload(context.Background(), Request{
		Title:       "Doc",
		DatabaseID:  "db-1",
		ContentHTML: sb.String(),
	})
	require.NoError(t, err)

	assert.Equal(t, 150, res.Blocks)
	assert.Equal(t, 100, res.Appended, "only the create-time chunk landed")
	require.NotEmpty(t, res.Warnings)
	assert.Contains(t, res.Warnings[0], "append chunk 2 of 2 failed")
}

func TestUpload_FirstChunkGoesWithCreate(t *testing.T) {
	f := newFakeNotion()
	u := newTestUploader(f)

	_, err := u.Upload(context.Background(), Request{
		Title:       "Doc",
		DatabaseID:  "db-1",
		ContentHTML: `<article><p>Only paragraph.</p></article>`,
	})
	require.NoError(t, err)

	require.Len(t, f.specs, 1)
	assert.Len(t, f.specs[0].Children, 1)
	assert.Equal(t, "db-1", f.specs[0].DatabaseID)
	assert.Zero(t, f.appendCalls, "single chunk needs no separate append")
}

func TestUpload_BuildsTitleAndURLProperties(t *testing.T) {
	f := newFakeNotion()
	u := newTestUploader(f)

	_, err := u.Upload(context.Background(), Request{
		Title:       "Install Guide",
		URL:         "https://www.servicenow.com/docs/install.html",
		DatabaseID:  "db-1",
		ContentHTML: `<article><p>Body.</p></article>`,
		Properties:  map[string]string{"Version": "Yokohama"},
	})
	require.NoError(t, err)

	props := f.specs[0].Properties
	title, ok := props["Name"].(notionapi.TitleProperty)
	require.True(t, ok, "expected a title property")
	assert.Equal(t, "Install Guide", title.Title[0].Text.Content)

	url, ok := props["URL"].(notionapi.URLProperty)
	require.True(t, ok, "expected a URL property")
	assert.Equal(t, "https://www.servicenow.com/docs/install.html", url.URL)

	version, ok := props["Version"].(notionapi.RichTextProperty)
	require.True(t, ok, "expected the extra property")
	assert.Equal(t, "Yokohama", version.RichText[0].Text.Content)
}

func TestUpdate_ClearsThenAppends(t *testing.T) {
	f := newFakeNotion()
	// Pre-existing content on the page.
	f.store("page-9", []notionapi.Block{&notionapi.ParagraphBlock{
		BasicBlock: notionapi.BasicBlock{Object: notionapi.ObjectTypeBlock, Type: notionapi.BlockTypeParagraph},
	}})
	u := newTestUploader(f)

	res, err := u.Update(context.Background(), "page-9", Request{
		Title:       "Doc",
		ContentHTML: `<article><p>Fresh content.</p></article>`,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, f.clearCalls)
	assert.Equal(t, 1, res.Appended)
	require.Len(t, f.children["page-9"], 1)
	rt := fakeRichTextOf(f.blocks[f.children["page-9"][0]])
	assert.Equal(t, "Fresh content.", convert.PlainText(rt))
}

func TestUpload_SweepRemovesLeftoverTokens(t *testing.T) {
	f := newFakeNotion()
	u := newTestUploader(f)

	res, err := u.Upload(context.Background(), Request{
		Title:       "Doc",
		DatabaseID:  "db-1",
		ContentHTML: listWithTableHTML,
	})
	require.NoError(t, err)
	require.Equal(t, 1, res.Resolved)

	// After the full pipeline no block on the page carries a token.
	refs, err := f.Descendants(context.Background(), "page-1")
	require.NoError(t, err)
	for _, ref := range refs {
		assert.False(t, convert.HasAnyToken(ref.RichText),
			"block %s still carries a token", ref.ID)
	}
}
