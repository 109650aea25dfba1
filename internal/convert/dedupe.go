package convert

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/jomei/notionapi"
)

// dedupeKeyPrefix is how much block text participates in the dedupe key.
// Long blocks differing only deep in the text are distinct documents, not
// duplicates, so a prefix is enough.
const dedupeKeyPrefix = 200

// dedupeAndFilter removes adjacent duplicate blocks and drops gray info
// callouts, which the source renders as decorative chrome. Duplicates
// must be adjacent: ServiceNow pages repeat a table or note directly
// after itself in print view, but legitimate repetition elsewhere in the
// document is kept. Returns the surviving blocks plus the deduped and
// filtered counts.
func dedupeAndFilter(blocks []notionapi.Block, logger *slog.Logger) ([]notionapi.Block, int, int) {
	var out []notionapi.Block
	deduped, filtered := 0, 0
	prevKey := ""

	for _, b := range blocks {
		if isFilteredCallout(b) {
			filtered++
			logger.Debug("filtered gray info callout", "text", truncate(BlockPlainText(b), 80))
			continue
		}

		key := dedupeKey(b)
		if key != "" && key == prevKey {
			deduped++
			logger.Debug("dropped adjacent duplicate", "key", truncate(key, 80))
			continue
		}
		prevKey = key
		out = append(out, b)
	}
	return out, deduped, filtered
}

// isFilteredCallout reports whether a block is a gray-background info
// callout.
func isFilteredCallout(b notionapi.Block) bool {
	callout, ok := b.(*notionapi.CalloutBlock)
	if !ok {
		return false
	}
	if callout.Callout.Color != "gray_background" {
		return false
	}
	icon := callout.Callout.Icon
	return icon != nil && icon.Emoji != nil && string(*icon.Emoji) == "ℹ"
}

// dedupeKey derives a comparison key per block type. An empty key means
// the block never participates in deduplication.
func dedupeKey(b notionapi.Block) string {
	switch blk := b.(type) {
	case *notionapi.CalloutBlock:
		emoji := ""
		if blk.Callout.Icon != nil && blk.Callout.Icon.Emoji != nil {
			emoji = string(*blk.Callout.Icon.Emoji)
		}
		return fmt.Sprintf("callout:%s:%s:%s", emoji, blk.Callout.Color,
			normalizeKeyText(PlainText(blk.Callout.RichText)))
	case *notionapi.TableBlock:
		return tableKey(blk)
	case *notionapi.CodeBlock:
		return "code:" + blk.Code.Language + ":" + normalizeKeyText(PlainText(blk.Code.RichText))
	case *notionapi.ParagraphBlock:
		return "paragraph:" + normalizeKeyText(PlainText(blk.Paragraph.RichText))
	case *notionapi.BulletedListItemBlock:
		return "bulleted_list_item:" + normalizeKeyText(PlainText(blk.BulletedListItem.RichText))
	case *notionapi.NumberedListItemBlock:
		return "numbered_list_item:" + normalizeKeyText(PlainText(blk.NumberedListItem.RichText))
	default:
		return ""
	}
}

// normalizeKeyText lowercases, collapses whitespace, and truncates key
// text to the prefix length.
func normalizeKeyText(s string) string {
	s = strings.Join(strings.Fields(strings.ToLower(s)), " ")
	return truncate(s, dedupeKeyPrefix)
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
