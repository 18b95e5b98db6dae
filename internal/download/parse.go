package download

import (
	"errors"
	"regexp"
	"strconv"

	"github.com/tidwall/gjson"
	"github.com/ytget/media-bot/internal/model"
)

var (
	errInvalidMetadata = errors.New("extraction engine returned malformed metadata")
	errEmptyContainer  = errors.New("playlist container has no non-empty entries")
)

// heightInLabel recovers a height from labels such as "720p", "1080p60", "144P" or "4320p"
var heightInLabel = regexp.MustCompile(`(?i)(\d+)p`)

// ParseMediaInfo flattens the engine's JSON document into a MediaInfo. A playlist-like
// container resolves to its first non-empty entry; an all-empty container is an error.
func ParseMediaInfo(raw []byte) (*model.MediaInfo, error) {
	if !gjson.ValidBytes(raw) {
		return nil, errInvalidMetadata
	}

	doc := gjson.ParseBytes(raw)
	if !doc.IsObject() {
		return nil, errInvalidMetadata
	}

	if entries := doc.Get("entries"); entries.Exists() {
		picked, ok := firstNonEmptyEntry(entries)
		if !ok {
			return nil, errEmptyContainer
		}
		doc = picked
	}

	info := &model.MediaInfo{
		ID:         doc.Get("id").String(),
		Title:      doc.Get("title").String(),
		Uploader:   firstString(doc, "uploader", "channel", "creator"),
		Duration:   int(doc.Get("duration").Float()),
		WebpageURL: firstString(doc, "webpage_url", "original_url", "url"),
		Thumbnail:  doc.Get("thumbnail").String(),
		Extractor:  firstString(doc, "extractor_key", "extractor"),
		Raw:        []byte(doc.Raw),
	}

	doc.Get("thumbnails").ForEach(func(_, t gjson.Result) bool {
		if u := t.Get("url").String(); u != "" {
			info.Thumbnails = append(info.Thumbnails, model.Thumbnail{
				URL:    u,
				Width:  int(t.Get("width").Int()),
				Height: int(t.Get("height").Int()),
			})
		}
		return true
	})

	doc.Get("formats").ForEach(func(_, f gjson.Result) bool {
		info.Formats = append(info.Formats, parseFormat(f))
		return true
	})

	return info, nil
}

func parseFormat(f gjson.Result) model.Format {
	vcodec := f.Get("vcodec")
	format := model.Format{
		FormatID:   f.Get("format_id").String(),
		Extension:  f.Get("ext").String(),
		Height:     int(f.Get("height").Int()),
		VideoCodec: vcodec.String(),
		HasVCodec:  vcodec.Exists() && vcodec.Type != gjson.Null,
		FileSize:   f.Get("filesize").Int(),
		FrameRate:  f.Get("fps").Float(),
		Note:       f.Get("format_note").String(),
	}

	if format.FileSize == 0 {
		format.FileSize = f.Get("filesize_approx").Int()
	}

	if format.Height == 0 {
		format.Height = heightFromLabel(format.Note)
	}
	if format.Height == 0 {
		format.Height = heightFromLabel(f.Get("format").String())
	}
	return format
}

func heightFromLabel(label string) int {
	m := heightInLabel.FindStringSubmatch(label)
	if m == nil {
		return 0
	}
	h, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return h
}

func firstNonEmptyEntry(entries gjson.Result) (gjson.Result, bool) {
	var picked gjson.Result
	found := false
	entries.ForEach(func(_, e gjson.Result) bool {
		if e.IsObject() && len(e.Map()) > 0 {
			picked = e
			found = true
			return false
		}
		return true
	})
	return picked, found
}

func firstString(doc gjson.Result, keys ...string) string {
	for _, k := range keys {
		if v := doc.Get(k).String(); v != "" {
			return v
		}
	}
	return ""
}
