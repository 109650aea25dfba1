package htmltext

import (
	"net/url"
	"strings"
)

// DefaultDocsOrigin is the origin used to absolutize relative links in
// ServiceNow documentation exports.
const DefaultDocsOrigin = "https://www.servicenow.com"

// videoHosts are substrings identifying iframe sources that Notion can
// play as video or that deserve a dedicated embed.
var videoHosts = []string{
	"youtube.com/embed",
	"youtube.com/watch",
	"youtu.be/",
	"player.vimeo.com",
	"vimeo.com/video",
	"wistia.com",
	"wistia.net",
	"loom.com/embed",
	"vidyard.com",
	"players.brightcove.net",
	"brightcove.com",
}

// AbsoluteURL resolves href against base, defaulting to the ServiceNow
// docs origin when base is empty. Already-absolute URLs are returned
// unchanged; unparseable inputs are returned as-is rather than failing
// the conversion.
func AbsoluteURL(href, base string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "//") {
		return "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if u.IsAbs() {
		return href
	}
	if base == "" {
		base = DefaultDocsOrigin
	}
	b, err := url.Parse(base)
	if err != nil {
		return href
	}
	return b.ResolveReference(u).String()
}

// IsVideoURL reports whether src points at a known video host.
func IsVideoURL(src string) bool {
	s := strings.ToLower(src)
	for _, host := range videoHosts {
		if strings.Contains(s, host) {
			return true
		}
	}
	return false
}

// IsYouTubeURL reports whether src is a YouTube embed or watch URL.
// Notion renders these natively as video blocks; other hosts fall back
// to generic embeds.
func IsYouTubeURL(src string) bool {
	s := strings.ToLower(src)
	return strings.Contains(s, "youtube.com/") || strings.Contains(s, "youtu.be/")
}
