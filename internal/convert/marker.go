package convert

import (
	"fmt"
	"regexp"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jomei/notionapi"
)

// Markers manages the deferred-block sidecar for one conversion. Blocks
// that Notion forbids as direct children of a list item are parked here
// under an opaque id; the host list item carries the literal token
// "(sn2n:<id>)" in its rich text so the orchestrator can find it after
// the page exists.
type Markers struct {
	ids      []string
	deferred map[string][]notionapi.Block
}

// markerSeq disambiguates markers minted within the same millisecond.
var markerSeq atomic.Int64

// TokenPattern matches any marker token, including ones left behind by a
// partially failed orchestration.
var TokenPattern = regexp.MustCompile(`\(sn2n:[A-Za-z0-9-]+\)`)

// NewMarkers creates an empty sidecar.
func NewMarkers() *Markers {
	return &Markers{deferred: make(map[string][]notionapi.Block)}
}

// Mint returns a fresh marker id, unique within the process: a monotonic
// time component plus a random suffix.
func (m *Markers) Mint() string {
	id := fmt.Sprintf("%d%03d-%s",
		time.Now().UnixMilli(),
		markerSeq.Add(1)%1000,
		uuid.NewString()[:8],
	)
	m.ids = append(m.ids, id)
	return id
}

// Token returns the in-text token form of a marker id.
func Token(id string) string {
	return "(sn2n:" + id + ")"
}

// Defer parks blocks under the marker id, appending to any blocks already
// held for it. Order within a marker is preserved.
func (m *Markers) Defer(id string, blocks ...notionapi.Block) {
	m.deferred[id] = append(m.deferred[id], blocks...)
}

// IDs returns marker ids in mint order. Ids minted but never deferred to
// are excluded.
func (m *Markers) IDs() []string {
	out := make([]string, 0, len(m.ids))
	for _, id := range m.ids {
		if len(m.deferred[id]) > 0 {
			out = append(out, id)
		}
	}
	return out
}

// Blocks returns the deferred blocks for a marker id in collected order.
func (m *Markers) Blocks(id string) []notionapi.Block {
	return m.deferred[id]
}

// Len returns the number of markers holding deferred blocks.
func (m *Markers) Len() int {
	return len(m.IDs())
}

// PlainText concatenates the plain content of a rich-text array.
func PlainText(rt []notionapi.RichText) string {
	var b strings.Builder
	for _, r := range rt {
		if r.Text != nil {
			b.WriteString(r.Text.Content)
		} else if r.PlainText != "" {
			b.WriteString(r.PlainText)
		}
	}
	return b.String()
}

// ContainsToken reports whether the rich text contains the token for the
// given marker id, even when the token spans run boundaries.
func ContainsToken(rt []notionapi.RichText, id string) bool {
	return strings.Contains(PlainText(rt), Token(id))
}

// HasAnyToken reports whether the rich text contains any marker token.
func HasAnyToken(rt []notionapi.RichText) bool {
	return TokenPattern.MatchString(PlainText(rt))
}

// StripToken removes every occurrence of the marker token from the rich
// text, preserving the annotations of surrounding content. The token may
// span run boundaries: the concatenated text is scanned and each
// surviving byte is attributed back to the run that originally held it.
// Runs left empty are dropped.
func StripToken(rt []notionapi.RichText, id string) []notionapi.RichText {
	return stripPattern(rt, regexp.MustCompile(regexp.QuoteMeta(Token(id))))
}

// StripAllTokens removes every marker token regardless of id. Used by the
// post-orchestration sweep.
func StripAllTokens(rt []notionapi.RichText) []notionapi.RichText {
	return stripPattern(rt, TokenPattern)
}

func stripPattern(rt []notionapi.RichText, re *regexp.Regexp) []notionapi.RichText {
	full := PlainText(rt)
	matches := re.FindAllStringIndex(full, -1)
	if len(matches) == 0 {
		return rt
	}

	// keep[i] is false for bytes inside a token occurrence.
	keep := make([]bool, len(full))
	for i := range keep {
		keep[i] = true
	}
	for _, m := range matches {
		for i := m[0]; i < m[1]; i++ {
			keep[i] = false
		}
	}

	var out []notionapi.RichText
	offset := 0
	for _, run := range rt {
		content := ""
		if run.Text != nil {
			content = run.Text.Content
		} else if run.PlainText != "" {
			// Non-text runs (mentions) carry no token bytes; keep as-is.
			out = append(out, run)
			offset += len(run.PlainText)
			continue
		}

		var b strings.Builder
		for i := 0; i < len(content); i++ {
			if keep[offset+i] {
				b.WriteByte(content[i])
			}
		}
		offset += len(content)

		if b.Len() == 0 {
			continue
		}
		kept := run
		text := *run.Text
		text.Content = b.String()
		kept.Text = &text
		kept.PlainText = ""
		out = append(out, kept)
	}
	return out
}
