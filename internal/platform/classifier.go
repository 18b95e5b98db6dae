package platform

import (
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/ytget/media-bot/internal/model"
)

// platformPattern binds a platform tag to the URL pattern that identifies it
type platformPattern struct {
	tag     string
	pattern *regexp.Regexp
}

// Platform patterns, matched in order
var platformPatterns = []platformPattern{
	{model.PlatformYouTube, regexp.MustCompile(`(?i)(?:youtu\.be/|youtube\.com/)`)},
	{model.PlatformInstagram, regexp.MustCompile(`(?i)instagram\.com/`)},
	{model.PlatformTikTok, regexp.MustCompile(`(?i)tiktok\.com/`)},
	{model.PlatformTwitter, regexp.MustCompile(`(?i)(?:twitter|x)\.com/`)},
	{model.PlatformPinterest, regexp.MustCompile(`(?i)pinterest\.(?:com|ru)/`)},
}

var urlInText = regexp.MustCompile(`https?://[^\s<>"']+`)

// Extension sets
var (
	MediaExtensions = []string{".mp4", ".webm", ".mkv", ".mov", ".jpg", ".jpeg", ".png", ".gif", ".webp", ".mp3", ".m4a", ".wav", ".ogg", ".flac"}
	ImageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp"}
	VideoExtensions = []string{".mp4", ".webm", ".mov", ".avi", ".mkv"}
	AudioExtensions = []string{".mp3", ".m4a", ".wav", ".ogg", ".flac"}
)

// IsValid reports whether raw is an absolute HTTP(S) URL that either points at a
// known media file or belongs to a supported platform.
func IsValid(raw string) bool {
	if !isHTTPURL(raw) {
		return false
	}
	if hasExtension(raw, MediaExtensions) {
		return true
	}
	return matchPlatform(raw) != ""
}

// DetectPlatform returns the first matching platform tag, "direct" for any other
// absolute HTTP(S) URL, and "" when raw is not a URL at all.
func DetectPlatform(raw string) string {
	if tag := matchPlatform(raw); tag != "" {
		return tag
	}
	if isHTTPURL(raw) {
		return model.PlatformDirect
	}
	return ""
}

// IsImage reports whether the URL path ends in an image extension
func IsImage(raw string) bool {
	return hasExtension(raw, ImageExtensions)
}

// IsAudio reports whether the URL path ends in an audio extension
func IsAudio(raw string) bool {
	return hasExtension(raw, AudioExtensions)
}

// IsVideo reports whether the URL path ends in a video extension
func IsVideo(raw string) bool {
	return hasExtension(raw, VideoExtensions)
}

// ExtractURLs returns every http(s) token found in free text, in order
func ExtractURLs(text string) []string {
	return urlInText.FindAllString(text, -1)
}

// NewMediaRequest classifies the first valid URL in text.
// Platform URLs always get the video hint; the extraction engine decides the real type.
func NewMediaRequest(text string) (model.MediaRequest, bool) {
	for _, candidate := range ExtractURLs(text) {
		if !IsValid(candidate) {
			continue
		}

		req := model.MediaRequest{
			Raw:       candidate,
			Platform:  DetectPlatform(candidate),
			MediaType: model.MediaTypeVideo,
		}
		if req.IsDirect() {
			switch {
			case IsImage(candidate):
				req.MediaType = model.MediaTypeImage
			case IsAudio(candidate):
				req.MediaType = model.MediaTypeAudio
			case IsVideo(candidate):
				req.MediaType = model.MediaTypeVideo
			default:
				req.MediaType = model.MediaTypeUnknown
			}
		}
		return req, true
	}
	return model.MediaRequest{}, false
}

func matchPlatform(raw string) string {
	for _, p := range platformPatterns {
		if p.pattern.MatchString(raw) {
			return p.tag
		}
	}
	return ""
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// hasExtension checks the URL path suffix, ignoring query string and fragment
func hasExtension(raw string, exts []string) bool {
	p := raw
	if u, err := url.Parse(raw); err == nil && u.Path != "" {
		p = u.Path
	}
	ext := strings.ToLower(path.Ext(p))
	if ext == "" {
		return false
	}
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}
