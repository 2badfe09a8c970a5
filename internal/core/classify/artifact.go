package classify

import (
	"net/url"
	"strings"
)

var (
	mediaSuffixes = []string{".mp4", ".webm", ".m4v", ".mov", ".mp3", ".m4a", ".ogg", ".wav", ".m3u8"}

	deliveryHosts = []string{
		"googlevideo", "cdninstagram", "fbcdn", "tiktokcdn",
		"twimg", "sndcdn", "vimeocdn", "redd.it",
	}

	// Donation and support links that scrapers tend to pick up as "download" buttons.
	exclusionPatterns = []string{"ko-fi", "support", "donate", "paypal", "patreon", "buymeacoffee"}
)

// Signals lists which heuristics matched a candidate reference.
type Signals struct {
	Parsed          bool
	HTTPS           bool
	Blob            bool
	MediaSuffix     bool
	DeliveryHost    bool
	MediaType       bool
	DownloadKeyword bool
	Excluded        bool
}

// Plausible reports whether the signals amount to a plausible artifact.
func (s Signals) Plausible() bool {
	if s.Excluded {
		return false
	}
	return s.Blob || s.MediaSuffix || s.DeliveryHost || s.MediaType || s.DownloadKeyword
}

// IsPlausibleArtifact is a permissive check that candidate points at a media artifact.
// contentType may be empty.
func IsPlausibleArtifact(candidate, contentType string) bool {
	if strings.TrimSpace(candidate) == "" {
		return false
	}
	return ArtifactSignals(candidate, contentType).Plausible()
}

// ArtifactSignals evaluates every heuristic against candidate.
func ArtifactSignals(candidate, contentType string) Signals {
	var sig Signals
	ref := strings.ToLower(strings.TrimSpace(candidate))
	if ref == "" {
		return sig
	}

	for _, p := range exclusionPatterns {
		if strings.Contains(ref, p) {
			sig.Excluded = true
			break
		}
	}

	sig.Blob = strings.HasPrefix(ref, "blob:")
	if u, err := url.Parse(ref); err == nil {
		switch u.Scheme {
		case "http", "https", "blob":
			sig.Parsed = true
		}
		sig.HTTPS = u.Scheme == "https"
		path := u.Path
		if sig.Blob {
			path = ref
		}
		for _, suf := range mediaSuffixes {
			if strings.HasSuffix(path, suf) {
				sig.MediaSuffix = true
				break
			}
		}
		host := u.Host
		for _, h := range deliveryHosts {
			if strings.Contains(host, h) {
				sig.DeliveryHost = true
				break
			}
		}
	}
	if !sig.MediaSuffix {
		// Suffix may sit before a query string that url.Parse could not split.
		bare := ref
		if i := strings.IndexAny(bare, "?#"); i >= 0 {
			bare = bare[:i]
		}
		for _, suf := range mediaSuffixes {
			if strings.HasSuffix(bare, suf) {
				sig.MediaSuffix = true
				break
			}
		}
	}
	if !sig.DeliveryHost {
		for _, h := range deliveryHosts {
			if strings.Contains(ref, h) {
				sig.DeliveryHost = true
				break
			}
		}
	}

	ct := strings.ToLower(contentType)
	sig.MediaType = strings.HasPrefix(ct, "video/") || strings.HasPrefix(ct, "audio/")
	sig.DownloadKeyword = strings.Contains(ref, "download")
	return sig
}
