// Package htmltext provides URL and text utilities for converting
// ServiceNow documentation HTML into Notion content.
package htmltext

import (
	"html"
	"regexp"
	"strings"
)

var (
	// Runs of spaces and tabs collapse to a single space; newlines survive
	// so <br> conversions keep their line structure.
	spaceRunRe   = regexp.MustCompile(`[ \t\f\r]+`)
	newlinePadRe = regexp.MustCompile(` ?\n ?`)
	newlineRunRe = regexp.MustCompile(`\n{3,}`)
)

// DecodeEntities decodes named and numeric HTML entity references
// (&amp;, &#78;, &#x4e;). Invalid references pass through literally.
func DecodeEntities(s string) string {
	return html.UnescapeString(s)
}

// CleanText decodes entities and normalizes whitespace. Runs of spaces
// collapse to one space; newlines are preserved but trimmed of the
// spaces around them. Leading and trailing whitespace is removed.
func CleanText(s string) string {
	s = DecodeEntities(s)
	s = strings.ReplaceAll(s, " ", " ")
	s = spaceRunRe.ReplaceAllString(s, " ")
	s = newlinePadRe.ReplaceAllString(s, "\n")
	s = newlineRunRe.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// CollapseInline normalizes whitespace for inline contexts where the
// source's newlines are formatting artifacts rather than content.
func CollapseInline(s string) string {
	s = DecodeEntities(s)
	s = strings.ReplaceAll(s, " ", " ")
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}

// StripTags removes all HTML tags from a fragment without touching the
// text between them. Content of <script> and <style> elements is dropped
// entirely.
func StripTags(s string) string {
	s = scriptStyleRe.ReplaceAllString(s, "")
	return tagRe.ReplaceAllString(s, "")
}

var (
	tagRe         = regexp.MustCompile(`(?s)<[^>]*>`)
	scriptStyleRe = regexp.MustCompile(`(?is)<(script|style)\b[^>]*>.*?</\s*(script|style)\s*>`)
)
