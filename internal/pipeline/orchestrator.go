package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/adamancini/sn2n/internal/convert"
	"github.com/adamancini/sn2n/internal/notion"
)

// orchestrate places deferred blocks under their host list items. For
// each marker in mint order it locates the block carrying the token,
// appends the parked blocks as that block's children, and strips the
// token from the host's rich text. A marker whose host cannot be found
// is orphaned: its blocks are appended at the page level so no content
// is lost, and the result carries a warning.
func (u *Uploader) orchestrate(ctx context.Context, pageID string, markers *convert.Markers, res *Result) {
	ids := markers.IDs()
	if len(ids) == 0 {
		return
	}

	u.logger.Info("STEP 3/5 resolving markers", "markers", len(ids))
	refs, err := u.api.Descendants(ctx, pageID)
	if err != nil {
		warn := fmt.Sprintf("marker resolution skipped: %v", err)
		res.Warnings = append(res.Warnings, warn)
		u.logger.Warn("orchestration failed", "warning", warn)
		return
	}

	for _, id := range ids {
		host, found := findHost(refs, id)
		if !found {
			res.Orphaned++
			warn := fmt.Sprintf("marker %s: host block not found, content appended at page level", id)
			res.Warnings = append(res.Warnings, warn)
			u.logger.Warn("orphaned marker", "marker", id)
			if _, err := u.api.AppendChildren(ctx, pageID, markers.Blocks(id)); err != nil {
				res.Warnings = append(res.Warnings, fmt.Sprintf("marker %s: fallback append failed: %v", id, err))
			}
			continue
		}

		if _, err := u.api.AppendChildren(ctx, host.ID, markers.Blocks(id)); err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("marker %s: append failed: %v", id, err))
			u.logger.Warn("marker append failed", "marker", id, "host", host.ID, "error", err)
			continue
		}

		stripped := convert.StripToken(host.RichText, id)
		if err := u.api.UpdateRichText(ctx, host, stripped); err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("marker %s: token strip failed: %v", id, err))
			u.logger.Warn("token strip failed", "marker", id, "host", host.ID, "error", err)
			continue
		}
		host.RichText = stripped
		res.Resolved++
		u.logger.Debug("marker resolved", "marker", id, "host", host.ID,
			"blocks", len(markers.Blocks(id)))
	}
}

// sweep removes any tokens still present on the page after
// orchestration, such as those left by a failed strip or a crashed
// earlier run. It runs only when the page had markers or an earlier
// warning suggests leftovers.
func (u *Uploader) sweep(ctx context.Context, pageID string, res *Result) {
	if res.Markers == 0 && len(res.Warnings) == 0 {
		return
	}

	u.logger.Info("STEP 4/5 sweeping leftover tokens", "delay", u.sweepDelay)
	if u.sweepDelay > 0 {
		select {
		case <-ctx.Done():
			return
		case <-time.After(u.sweepDelay):
		}
	}

	refs, err := u.api.Descendants(ctx, pageID)
	if err != nil {
		res.Warnings = append(res.Warnings, fmt.Sprintf("sweep skipped: %v", err))
		return
	}

	swept := 0
	for _, ref := range refs {
		if !convert.HasAnyToken(ref.RichText) {
			continue
		}
		if err := u.api.UpdateRichText(ctx, ref, convert.StripAllTokens(ref.RichText)); err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("sweep: block %s: %v", ref.ID, err))
			continue
		}
		swept++
	}
	u.logger.Info("STEP 5/5 sweep complete", "blocks_swept", swept)
}

// findHost returns the ref whose plain text carries the marker token.
// Tokens can span run boundaries, so the concatenated text is searched.
func findHost(refs []notion.BlockRef, id string) (notion.BlockRef, bool) {
	token := convert.Token(id)
	for _, ref := range refs {
		if strings.Contains(convert.PlainText(ref.RichText), token) {
			return ref, true
		}
	}
	return notion.BlockRef{}, false
}
