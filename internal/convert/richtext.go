package convert

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/jomei/notionapi"

	"github.com/adamancini/sn2n/internal/htmltext"
)

// Fragment is the output of parsing one HTML fragment: the annotated text
// runs plus media blocks extracted from the fragment. The caller emits the
// media as siblings of the containing block.
type Fragment struct {
	RichText []notionapi.RichText
	Images   []notionapi.Block
	Videos   []notionapi.Block
}

// Delimiter alphabet for the formatting phase. Private-use runes cannot
// occur in documentation text, so paired tags can be rewritten into the
// string and tokenized in a single pass.
const (
	dBoldOn   = '\uE001'
	dBoldOff  = '\uE002'
	dItalOn   = '\uE003'
	dItalOff  = '\uE004'
	dCodeOn   = '\uE005'
	dCodeOff  = '\uE006'
	dBlueOn   = '\uE007'
	dBlueOff  = '\uE008'
	dLinkOpen = '\uE00A'
	dLinkEnd  = '\uE00B'
)

var (
	iframeRe = regexp.MustCompile(`(?is)<iframe\b[^>]*>(?:.*?</iframe\s*>)?`)
	imgRe    = regexp.MustCompile(`(?is)<img\b[^>]*/?>`)
	linkRe   = regexp.MustCompile(`(?is)<a\b[^>]*>(.*?)</a\s*>`)
	srcRe    = regexp.MustCompile(`(?is)\bsrc\s*=\s*(?:"([^"]*)"|'([^']*)')`)
	altRe    = regexp.MustCompile(`(?is)\balt\s*=\s*(?:"([^"]*)"|'([^']*)')`)
	hrefRe   = regexp.MustCompile(`(?is)\bhref\s*=\s*(?:"([^"]*)"|'([^']*)')`)
	classRe  = regexp.MustCompile(`(?is)\bclass\s*=\s*(?:"([^"]*)"|'([^']*)')`)

	linkParaRe = regexp.MustCompile(`(?is)(</a\s*>)\s*<p\b[^>]*>`)
	spanRe     = regexp.MustCompile(`(?is)<span\b([^>]*)>([^<]*)</span\s*>`)
	brRe       = regexp.MustCompile(`(?is)<br\s*/?>`)
	pTagRe     = regexp.MustCompile(`(?is)</?(?:p|div)\b[^>]*>`)

	spaceRunRe = regexp.MustCompile(`[ \t\f\r]+`)

	boldOnRe  = regexp.MustCompile(`(?i)<(?:b|strong)\b[^>]*>`)
	boldOffRe = regexp.MustCompile(`(?i)</(?:b|strong)\s*>`)
	italOnRe  = regexp.MustCompile(`(?i)<(?:i|em)\b[^>]*>`)
	italOffRe = regexp.MustCompile(`(?i)</(?:i|em)\s*>`)
	codeOnRe  = regexp.MustCompile(`(?i)<code\b[^>]*>`)
	codeOffRe = regexp.MustCompile(`(?i)</code\s*>`)

	// techIDRe matches dotted or underscored technical identifiers such as
	// com.snc.change or sys_user. Tokens whose letters are entirely
	// uppercase (acronyms like KPI_API) are exempted by the tokenizer.
	techIDRe = regexp.MustCompile(`[A-Za-z0-9][A-Za-z0-9._-]*[._][A-Za-z0-9._-]+`)

	// codeSpanClasses are span class words that mark inline technical
	// identifiers in ServiceNow markup.
	codeSpanClasses = map[string]bool{
		"ph": true, "keyword": true, "parmname": true, "codeph": true,
	}
)

type extractedLink struct {
	url  string
	text string
}

// ParseFragment converts an HTML fragment into rich-text runs plus media
// sidecars. The parser substitutes delimiter runes for paired formatting
// tags and then tokenizes the result with a small annotation state
// machine; unbalanced tags degrade to no-ops instead of failing.
func (c *Converter) ParseFragment(fragment string) Fragment {
	var out Fragment

	// Extraction phase: iframes, then images, then links.
	fragment = iframeRe.ReplaceAllStringFunc(fragment, func(m string) string {
		src := firstSubmatch(srcRe, m)
		if src == "" {
			return ""
		}
		out.Videos = append(out.Videos, c.mediaBlockForIframe(src))
		return ""
	})

	fragment = imgRe.ReplaceAllStringFunc(fragment, func(m string) string {
		src := firstSubmatch(srcRe, m)
		if src == "" {
			return ""
		}
		alt := htmltext.DecodeEntities(firstSubmatch(altRe, m))
		out.Images = append(out.Images, c.imageBlock(src, alt))
		return ""
	})

	// A paragraph opening directly after a link closes is a soft break in
	// the source markup.
	fragment = linkParaRe.ReplaceAllString(fragment, "$1\n")

	var links []extractedLink
	fragment = linkRe.ReplaceAllStringFunc(fragment, func(m string) string {
		sub := linkRe.FindStringSubmatch(m)
		href := htmltext.AbsoluteURL(htmltext.DecodeEntities(firstSubmatch(hrefRe, m)), c.opts.BaseURL)
		text := htmltext.CollapseInline(htmltext.StripTags(sub[1]))
		if text == "" {
			text = href
		}
		if href == "" {
			return text
		}
		idx := len(links)
		links = append(links, extractedLink{url: href, text: text})
		return string(dLinkOpen) + strconv.Itoa(idx) + string(dLinkEnd)
	})

	// Formatting phase: innermost spans first so nesting resolves
	// bottom-up, then the simple paired tags.
	for range [32]int{} {
		replaced := false
		fragment = spanRe.ReplaceAllStringFunc(fragment, func(m string) string {
			replaced = true
			sub := spanRe.FindStringSubmatch(m)
			return rewriteSpan(sub[1], sub[2])
		})
		if !replaced {
			break
		}
	}

	fragment = boldOnRe.ReplaceAllString(fragment, string(dBoldOn))
	fragment = boldOffRe.ReplaceAllString(fragment, string(dBoldOff))
	fragment = italOnRe.ReplaceAllString(fragment, string(dItalOn))
	fragment = italOffRe.ReplaceAllString(fragment, string(dItalOff))
	fragment = codeOnRe.ReplaceAllString(fragment, string(dCodeOn))
	fragment = codeOffRe.ReplaceAllString(fragment, string(dCodeOff))
	fragment = brRe.ReplaceAllString(fragment, "\n")
	fragment = pTagRe.ReplaceAllString(fragment, " ")

	fragment = htmltext.StripTags(fragment)
	fragment = htmltext.DecodeEntities(fragment)

	out.RichText = tokenize(fragment, links)
	return out
}

// rewriteSpan maps a span's class vocabulary onto delimiters.
func rewriteSpan(attrs, inner string) string {
	classes := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(firstSubmatch(classRe, attrs))) {
		classes[w] = true
		for _, part := range strings.FieldsFunc(w, func(r rune) bool { return r == '_' || r == '-' }) {
			classes[part] = true
		}
	}

	switch {
	case classes["uicontrol"]:
		return string(dBoldOn) + string(dBlueOn) + inner + string(dBlueOff) + string(dBoldOff)
	case classes["sectiontitle"] && classes["tasklabel"]:
		return string(dBoldOn) + inner + string(dBoldOff)
	default:
		for w := range classes {
			if codeSpanClasses[w] && techIDRe.MatchString(inner) {
				return string(dCodeOn) + inner + string(dCodeOff)
			}
		}
		return inner
	}
}

// annotationState tracks the active annotations during tokenization.
// Entering code saves the current color and overrides it to red; leaving
// code restores the saved color.
type annotationState struct {
	bold, italic, code bool
	color              notionapi.Color
	savedColor         notionapi.Color
}

func tokenize(s string, links []extractedLink) []notionapi.RichText {
	var runs []notionapi.RichText
	var buf strings.Builder
	state := annotationState{}

	flush := func() {
		if buf.Len() == 0 {
			return
		}
		runs = append(runs, emitText(buf.String(), state)...)
		buf.Reset()
	}

	rs := []rune(s)
	for i := 0; i < len(rs); i++ {
		switch rs[i] {
		case dBoldOn:
			flush()
			state.bold = true
		case dBoldOff:
			flush()
			state.bold = false
		case dItalOn:
			flush()
			state.italic = true
		case dItalOff:
			flush()
			state.italic = false
		case dCodeOn:
			flush()
			if !state.code {
				state.savedColor = state.color
				state.color = notionapi.ColorRed
			}
			state.code = true
		case dCodeOff:
			flush()
			if state.code {
				state.color = state.savedColor
			}
			state.code = false
		case dBlueOn:
			flush()
			state.color = notionapi.ColorBlue
		case dBlueOff:
			flush()
			state.color = ""
		case dLinkOpen:
			flush()
			j := i + 1
			for j < len(rs) && rs[j] != dLinkEnd {
				j++
			}
			idx, err := strconv.Atoi(string(rs[i+1 : j]))
			if err == nil && idx < len(links) {
				runs = append(runs, linkRun(links[idx], state))
			}
			i = j
		default:
			buf.WriteRune(rs[i])
		}
	}
	flush()

	runs = trimEdges(joinAdjacentWords(runs))

	// An empty fragment still yields one empty run so callers always have
	// a rich-text array to attach.
	if len(runs) == 0 {
		return []notionapi.RichText{textRun("", nil)}
	}
	return runs
}

// trimEdges removes leading and trailing whitespace from the run
// sequence as a whole, dropping runs left empty. Interior whitespace is
// untouched so boundaries like "Set " survive.
func trimEdges(runs []notionapi.RichText) []notionapi.RichText {
	for len(runs) > 0 {
		first := runs[0]
		if first.Text == nil {
			break
		}
		trimmed := strings.TrimLeft(first.Text.Content, " \t\n")
		if trimmed == first.Text.Content {
			break
		}
		if trimmed == "" && first.Text.Link == nil {
			runs = runs[1:]
			continue
		}
		text := *first.Text
		text.Content = trimmed
		runs[0].Text = &text
		break
	}
	for len(runs) > 0 {
		last := runs[len(runs)-1]
		if last.Text == nil {
			break
		}
		trimmed := strings.TrimRight(last.Text.Content, " \t\n")
		if trimmed == last.Text.Content {
			break
		}
		if trimmed == "" && last.Text.Link == nil {
			runs = runs[:len(runs)-1]
			continue
		}
		text := *last.Text
		text.Content = trimmed
		runs[len(runs)-1].Text = &text
		break
	}
	return runs
}

// emitText produces runs for a plain text segment, wrapping technical
// identifiers in code annotations unless they are all-caps acronyms.
func emitText(text string, state annotationState) []notionapi.RichText {
	ann := state.annotations()
	if state.code {
		return []notionapi.RichText{textRun(text, ann)}
	}
	text = spaceRunRe.ReplaceAllString(text, " ")

	var runs []notionapi.RichText
	last := 0
	for _, m := range techIDRe.FindAllStringIndex(text, -1) {
		token := text[m[0]:m[1]]
		if isAcronym(token) {
			continue
		}
		if m[0] > last {
			runs = append(runs, textRun(text[last:m[0]], ann))
		}
		code := state
		code.code = true
		code.savedColor = code.color
		code.color = notionapi.ColorRed
		runs = append(runs, textRun(token, code.annotations()))
		last = m[1]
	}
	if last < len(text) || len(runs) == 0 {
		runs = append(runs, textRun(text[last:], ann))
	}
	return runs
}

// isAcronym reports whether the token's letter-only projection is
// entirely uppercase, e.g. KPI_API. Tokens with no letters are not
// acronyms.
func isAcronym(token string) bool {
	sawLetter := false
	for _, r := range token {
		if unicode.IsLetter(r) {
			sawLetter = true
			if !unicode.IsUpper(r) {
				return false
			}
		}
	}
	return sawLetter
}

// joinAdjacentWords inserts a separating space between adjacent runs
// whose boundary would otherwise glue two words together. Punctuation
// boundaries are left alone.
func joinAdjacentWords(runs []notionapi.RichText) []notionapi.RichText {
	for i := 1; i < len(runs); i++ {
		prev, cur := runs[i-1], runs[i]
		if prev.Text == nil || cur.Text == nil || prev.Text.Content == "" || cur.Text.Content == "" {
			continue
		}
		prevRunes := []rune(prev.Text.Content)
		curRunes := []rune(cur.Text.Content)
		lastR := prevRunes[len(prevRunes)-1]
		firstR := curRunes[0]
		if isWordRune(lastR) && isWordRune(firstR) {
			text := *prev.Text
			text.Content += " "
			runs[i-1].Text = &text
		}
	}
	return runs
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func (s annotationState) annotations() *notionapi.Annotations {
	if !s.bold && !s.italic && !s.code && s.color == "" {
		return nil
	}
	color := s.color
	if color == "" {
		color = notionapi.ColorDefault
	}
	return &notionapi.Annotations{
		Bold:   s.bold,
		Italic: s.italic,
		Code:   s.code,
		Color:  color,
	}
}

func textRun(content string, ann *notionapi.Annotations) notionapi.RichText {
	return notionapi.RichText{
		Type:        notionapi.ObjectTypeText,
		Text:        &notionapi.Text{Content: content},
		Annotations: ann,
	}
}

func linkRun(l extractedLink, state annotationState) notionapi.RichText {
	return notionapi.RichText{
		Type: notionapi.ObjectTypeText,
		Text: &notionapi.Text{
			Content: l.text,
			Link:    &notionapi.Link{Url: l.url},
		},
		Annotations: state.annotations(),
	}
}

// firstSubmatch returns the first non-empty capture group of re in s.
func firstSubmatch(re *regexp.Regexp, s string) string {
	sub := re.FindStringSubmatch(s)
	for i := 1; i < len(sub); i++ {
		if sub[i] != "" {
			return sub[i]
		}
	}
	return ""
}

// mediaBlockForIframe classifies an iframe source: YouTube becomes a
// native video block, every other source becomes an embed.
func (c *Converter) mediaBlockForIframe(src string) notionapi.Block {
	src = htmltext.AbsoluteURL(htmltext.DecodeEntities(src), c.opts.BaseURL)
	c.hasVideos = true
	if htmltext.IsYouTubeURL(src) {
		return videoBlock(src)
	}
	return embedBlock(src)
}

// imageBlock builds an external image block with an optional caption.
func (c *Converter) imageBlock(src, caption string) notionapi.Block {
	src = htmltext.AbsoluteURL(htmltext.DecodeEntities(src), c.opts.BaseURL)
	var cap []notionapi.RichText
	if caption != "" {
		cap = []notionapi.RichText{textRun(caption, nil)}
	}
	return &notionapi.ImageBlock{
		BasicBlock: notionapi.BasicBlock{
			Object: notionapi.ObjectTypeBlock,
			Type:   notionapi.BlockTypeImage,
		},
		Image: notionapi.Image{
			Type:     "external",
			External: &notionapi.FileObject{URL: src},
			Caption:  cap,
		},
	}
}

func videoBlock(src string) notionapi.Block {
	return &notionapi.VideoBlock{
		BasicBlock: notionapi.BasicBlock{
			Object: notionapi.ObjectTypeBlock,
			Type:   "video",
		},
		Video: notionapi.Video{
			Type:     "external",
			External: &notionapi.FileObject{URL: src},
		},
	}
}

func embedBlock(src string) notionapi.Block {
	return &notionapi.EmbedBlock{
		BasicBlock: notionapi.BasicBlock{
			Object: notionapi.ObjectTypeBlock,
			Type:   "embed",
		},
		Embed: notionapi.Embed{URL: src},
	}
}
