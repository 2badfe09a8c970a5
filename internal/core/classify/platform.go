// Package classify holds the pure classifiers used by the orchestrator:
// platform detection for raw inputs and plausibility checks for artifact references.
package classify

import (
	"strings"

	"github.com/vietddude/mediafetch/internal/core/domain"
)

type platformRule struct {
	category  domain.Category
	fragments []string
}

// Table order is match order.
var platformTable = []platformRule{
	{domain.CategoryYouTube, []string{"youtube.com", "youtu.be"}},
	{domain.CategoryInstagram, []string{"instagram.com"}},
	{domain.CategoryFacebook, []string{"facebook.com", "fb.watch"}},
	{domain.CategoryTikTok, []string{"tiktok.com"}},
	{domain.CategoryTwitter, []string{"twitter.com", "x.com"}},
	{domain.CategoryLinkedIn, []string{"linkedin.com"}},
	{domain.CategoryPinterest, []string{"pinterest.com", "pin.it"}},
	{domain.CategorySoundCloud, []string{"soundcloud.com"}},
	{domain.CategoryVimeo, []string{"vimeo.com"}},
	{domain.CategoryDailymotion, []string{"dailymotion.com"}},
	{domain.CategoryReddit, []string{"reddit.com"}},
	{domain.Category9GAG, []string{"9gag.com"}},
}

// Platform maps a raw input to its category. It never fails; anything it
// does not recognize is CategoryUnknown.
func Platform(raw string) domain.Category {
	host := hostOf(raw)
	if host == "" {
		return domain.CategoryUnknown
	}
	for _, rule := range platformTable {
		for _, frag := range rule.fragments {
			if host == frag || strings.HasSuffix(host, "."+frag) {
				return rule.category
			}
		}
	}
	return domain.CategoryUnknown
}

// Categories lists every known category in table order.
func Categories() []domain.Category {
	out := make([]domain.Category, len(platformTable))
	for i, rule := range platformTable {
		out[i] = rule.category
	}
	return out
}

// Normalize drops the query string, fragment and trailing slash and lowercases
// the scheme and host. The path keeps its case, since video IDs are case-sensitive.
func Normalize(raw string) string {
	s := strings.TrimSpace(raw)
	if i := strings.IndexAny(s, "?#"); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimRight(s, "/")

	hostStart := 0
	if i := strings.Index(s, "://"); i >= 0 {
		hostStart = i + 3
	}
	hostEnd := len(s)
	if i := strings.IndexByte(s[hostStart:], '/'); i >= 0 {
		hostEnd = hostStart + i
	}
	return strings.ToLower(s[:hostEnd]) + s[hostEnd:]
}

// hostOf extracts the host portion of raw without requiring a scheme.
func hostOf(raw string) string {
	s := Normalize(raw)
	if i := strings.Index(s, "://"); i >= 0 {
		s = s[i+3:]
	}
	if i := strings.IndexByte(s, '/'); i >= 0 {
		s = s[:i]
	}
	if i := strings.LastIndexByte(s, '@'); i >= 0 {
		s = s[i+1:]
	}
	if i := strings.IndexByte(s, ':'); i >= 0 {
		s = s[:i]
	}
	return s
}
