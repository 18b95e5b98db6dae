package model

import (
	"fmt"
	"path/filepath"
	"strings"
)

// MediaType is the coarse content hint derived from a URL suffix
type MediaType string

const (
	MediaTypeUnknown MediaType = ""
	MediaTypeVideo   MediaType = "video"
	MediaTypeAudio   MediaType = "audio"
	MediaTypeImage   MediaType = "image"
)

// Platform tags produced by the URL classifier
const (
	PlatformYouTube   = "youtube"
	PlatformInstagram = "instagram"
	PlatformTikTok    = "tiktok"
	PlatformTwitter   = "twitter"
	PlatformPinterest = "pinterest"
	PlatformDirect    = "direct"
)

// MediaRequest is created per inbound message and discarded after dispatch.
type MediaRequest struct {
	Raw       string
	Platform  string
	MediaType MediaType
}

// IsDirect reports whether the request targets a plain file URL rather than a platform page
func (r MediaRequest) IsDirect() bool {
	return r.Platform == PlatformDirect
}

// QualityOption is one selectable video height produced by probing.
type QualityOption struct {
	Height    int     `json:"height"`
	FormatID  string  `json:"format_id"`
	Extension string  `json:"ext"`
	SizeBytes int64   `json:"filesize"` // 0 if unknown
	FrameRate float64 `json:"fps"`
}

// Label returns the conventional "720p" form
func (q QualityOption) Label() string {
	return fmt.Sprintf("%dp", q.Height)
}

// Thumbnail is a single preview image advertised by the extraction engine
type Thumbnail struct {
	URL    string
	Width  int
	Height int
}

// Format is a single stream description from the extraction engine. Pointer-free;
// missing numeric fields are zero and a missing codec is the empty string.
type Format struct {
	FormatID   string
	Extension  string
	Height     int
	VideoCodec string
	HasVCodec  bool // false when the engine omitted the vcodec key entirely
	FileSize   int64
	FrameRate  float64
	Note       string
}

// HasVideo reports whether the format carries a video component. A format without
// an explicit codec marker is treated as video.
func (f Format) HasVideo() bool {
	if !f.HasVCodec {
		return true
	}
	return f.VideoCodec != "none"
}

// MediaInfo is the metadata-only view of a URL as reported by the extraction engine
type MediaInfo struct {
	ID         string
	Title      string
	Uploader   string
	Duration   int // seconds
	WebpageURL string
	Thumbnail  string
	Thumbnails []Thumbnail
	Formats    []Format
	Extractor  string
	Raw        []byte // engine JSON, kept for lookups the typed view does not cover
}

// DownloadResult is exclusively owned by the caller once returned.
type DownloadResult struct {
	Path      string
	Extension string
	SizeBytes int64
}

// FileName returns the base name of the downloaded file
func (r *DownloadResult) FileName() string {
	return filepath.Base(r.Path)
}

// NewDownloadResult builds a result from a resolved path
func NewDownloadResult(path string, size int64) *DownloadResult {
	return &DownloadResult{
		Path:      path,
		Extension: strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), "."),
		SizeBytes: size,
	}
}

// DownloadProgress is a snapshot delivered to an optional progress sink
type DownloadProgress struct {
	Status          DownloadStatus
	Percent         int // 0 to 100
	DownloadedBytes int64
	TotalBytes      int64
	ETASec          int // -1 if unknown
	Title           string
}

// GetETAString returns ETA formatted as hh:mm:ss, or "—" if unknown
func (p DownloadProgress) GetETAString() string {
	if p.ETASec <= 0 {
		return "—"
	}

	hours := p.ETASec / 3600
	minutes := (p.ETASec % 3600) / 60
	seconds := p.ETASec % 60

	if hours > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}
