package audio

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/bogem/id3v2"
	"github.com/ytget/media-bot/internal/logger"
	"github.com/ytget/media-bot/internal/model"
	mp4tag "github.com/zhaarey/go-mp4tag"
)

// Default values
const (
	DefaultCoverTimeout = 15 * time.Second
	MaxCoverSize        = 10 * 1024 * 1024
	CoverDescription    = "Cover"
	MimeJPEG            = "image/jpeg"
	MimePNG             = "image/png"
	FrameRecordingTime  = "TDRC"
)

// Supported containers
const (
	ExtMP3 = ".mp3"
	ExtM4A = ".m4a"
)

var log = logger.Get("Tagger")

// Tagger writes tags into downloaded audio files
type Tagger struct {
	client       *http.Client
	coverTimeout time.Duration
}

// NewTagger creates a tagger that fetches covers under coverTimeout
func NewTagger(coverTimeout time.Duration) *Tagger {
	if coverTimeout <= 0 {
		coverTimeout = DefaultCoverTimeout
	}
	return &Tagger{
		client:       &http.Client{},
		coverTimeout: coverTimeout,
	}
}

// IsSupported reports whether path has a taggable extension
func IsSupported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ExtMP3, ExtM4A:
		return true
	}
	return false
}

// AddMetadata writes the non-empty fields of tags into path and embeds the cover if
// coverURL can be fetched. Unsupported extensions are left untouched and return false.
// A false result means the file is usable but untagged.
func (t *Tagger) AddMetadata(ctx context.Context, path string, tags model.AudioTags, coverURL string) (ok bool) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ExtMP3 && ext != ExtM4A {
		log.Emit(logger.DEBUG, "Skipping tags for unsupported file %s\n", path)
		return false
	}

	var cover []byte
	if coverURL != "" {
		var err error
		if cover, err = t.fetchCover(ctx, coverURL); err != nil {
			log.Emit(logger.WARNING, "Cover for %s omitted: %v\n", filepath.Base(path), err)
			cover = nil
		}
	}

	if tags.IsEmpty() && cover == nil {
		log.Emit(logger.DEBUG, "Nothing to tag in %s\n", filepath.Base(path))
		return true
	}

	// malformed containers can panic inside the tag writers
	defer func() {
		if r := recover(); r != nil {
			log.Emit(logger.ERROR, "Tag writer panicked on %s: %v\n", filepath.Base(path), r)
			ok = false
		}
	}()

	if err := tagWriters[ext](path, tags, cover); err != nil {
		log.Emit(logger.WARNING, "Failed to tag %s: %v\n", filepath.Base(path), err)
		return false
	}

	log.Emit(logger.SUCCESS, "Tagged %s (%s - %s)\n", filepath.Base(path), tags.Artist, tags.Title)
	return true
}

// tagWriters holds the writer per supported extension
var tagWriters = map[string]func(path string, tags model.AudioTags, cover []byte) error{
	ExtMP3: writeID3,
	ExtM4A: writeMP4,
}

// ReadTags reads title, artist, album and date back from an mp3 or m4a file
func ReadTags(path string) (model.AudioTags, bool) {
	var (
		tags model.AudioTags
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ExtMP3:
		tags, err = readID3(path)
	case ExtM4A:
		tags, err = readMP4(path)
	default:
		return model.AudioTags{}, false
	}
	if err != nil {
		log.Emit(logger.DEBUG, "Failed to read tags from %s: %v\n", path, err)
		return model.AudioTags{}, false
	}
	return tags, true
}

func writeID3(path string, tags model.AudioTags, cover []byte) (err error) {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return fmt.Errorf("id3 open error: %w", err)
	}
	defer func() {
		if closeErr := tag.Close(); err == nil && closeErr != nil {
			err = closeErr
		}
	}()

	tag.SetVersion(4)
	tag.SetDefaultEncoding(id3v2.EncodingUTF8)

	if tags.Title != "" {
		tag.SetTitle(tags.Title)
	}
	if tags.Artist != "" {
		tag.SetArtist(tags.Artist)
	}
	if tags.Album != "" {
		tag.SetAlbum(tags.Album)
	}
	if tags.ReleaseDate != "" {
		tag.DeleteFrames(FrameRecordingTime)
		tag.AddTextFrame(FrameRecordingTime, tag.DefaultEncoding(), tags.ReleaseDate)
	}

	if len(cover) > 0 {
		tag.AddAttachedPicture(id3v2.PictureFrame{
			Encoding:    id3v2.EncodingUTF8,
			MimeType:    sniffImageType(cover),
			PictureType: id3v2.PTFrontCover,
			Description: CoverDescription,
			Picture:     cover,
		})
	}

	return tag.Save()
}

func readID3(path string) (model.AudioTags, error) {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return model.AudioTags{}, fmt.Errorf("id3 open error: %w", err)
	}
	defer tag.Close()

	return model.AudioTags{
		Title:       tag.Title(),
		Artist:      tag.Artist(),
		Album:       tag.Album(),
		ReleaseDate: tag.GetTextFrame(FrameRecordingTime).Text,
	}, nil
}

func writeMP4(path string, tags model.AudioTags, cover []byte) error {
	mp4, err := mp4tag.Open(path)
	if err != nil {
		return fmt.Errorf("mp4 open error: %w", err)
	}
	defer mp4.Close()

	t := &mp4tag.MP4Tags{
		Title:  tags.Title,
		Artist: tags.Artist,
		Album:  tags.Album,
		Date:   tags.ReleaseDate,
	}
	if current, err := mp4.Read(); err == nil && current != nil {
		keepMP4Fields(t, current)
	}

	if len(cover) > 0 {
		format := mp4tag.ImageTypeJPEG
		if sniffImageType(cover) == MimePNG {
			format = mp4tag.ImageTypePNG
		}
		t.Pictures = []*mp4tag.MP4Picture{{Format: format, Data: cover}}
	}

	return mp4.Write(t, []string{})
}

// keepMP4Fields fills the fields absent from t with the values already in the file
func keepMP4Fields(t, current *mp4tag.MP4Tags) {
	if t.Title == "" {
		t.Title = current.Title
	}
	if t.Artist == "" {
		t.Artist = current.Artist
	}
	if t.Album == "" {
		t.Album = current.Album
	}
	if t.Date == "" {
		t.Date = current.Date
	}
}

func readMP4(path string) (model.AudioTags, error) {
	mp4, err := mp4tag.Open(path)
	if err != nil {
		return model.AudioTags{}, fmt.Errorf("mp4 open error: %w", err)
	}
	defer mp4.Close()

	t, err := mp4.Read()
	if err != nil {
		return model.AudioTags{}, fmt.Errorf("mp4 read error: %w", err)
	}

	return model.AudioTags{
		Title:       t.Title,
		Artist:      t.Artist,
		Album:       t.Album,
		ReleaseDate: t.Date,
	}, nil
}

// fetchCover downloads cover art under the cover timeout
func (t *Tagger) fetchCover(ctx context.Context, coverURL string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, t.coverTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, coverURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build cover request: %w", err)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cover request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cover request returned %s", resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxCoverSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read cover: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("cover is empty")
	}
	return data, nil
}

// sniffImageType returns image/png for PNG data and image/jpeg otherwise
func sniffImageType(data []byte) string {
	if http.DetectContentType(data) == MimePNG {
		return MimePNG
	}
	return MimeJPEG
}
