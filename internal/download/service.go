package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	neturl "net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ytget/media-bot/internal/logger"
	"github.com/ytget/media-bot/internal/model"
	"github.com/ytget/media-bot/internal/platform"
)

// Default values
const (
	DefaultTimeout       = 15 * time.Minute
	DefaultDirectTimeout = 60 * time.Second
	DefaultAudioFormat   = "mp3"
	DefaultAudioQuality  = "320"
	DefaultExtension     = ".bin"
	SearchPrefix         = "ytsearch1:"
)

// contentTypeExtensions maps response content types to file extensions for direct downloads
var contentTypeExtensions = map[string]string{
	"video/mp4":  ".mp4",
	"video/webm": ".webm",
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"audio/mpeg": ".mp3",
	"audio/mp4":  ".m4a",
}

var (
	errNoOutput = errors.New("no output file found after download")
	errTooLarge = errors.New("file exceeds the maximum accepted size")
)

var log = logger.Get("Downloader")

// Config holds orchestrator tunables
type Config struct {
	TempDir       string
	Timeout       time.Duration
	DirectTimeout time.Duration
	MaxFileSize   int64 // 0 disables the check
	AudioFormat   string
	AudioQuality  string
	UserAgent     string
}

// Service is the download orchestrator. It holds no state beyond its scratch directory.
type Service struct {
	cfg    Config
	engine Engine
	client *http.Client
}

// NewService creates a new download orchestrator
func NewService(cfg Config, engine Engine) *Service {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.DirectTimeout <= 0 {
		cfg.DirectTimeout = DefaultDirectTimeout
	}
	if cfg.AudioFormat == "" {
		cfg.AudioFormat = DefaultAudioFormat
	}
	if cfg.AudioQuality == "" {
		cfg.AudioQuality = DefaultAudioQuality
	}
	return &Service{
		cfg:    cfg,
		engine: engine,
		client: &http.Client{},
	}
}

// TempDir returns the scratch directory
func (s *Service) TempDir() string {
	return s.cfg.TempDir
}

// Probe fetches metadata for url without downloading.
func (s *Service) Probe(ctx context.Context, url string) (*model.MediaInfo, bool) {
	var raw []byte
	err := s.withDeadline(ctx, "probe", func(ctx context.Context) error {
		var err error
		raw, err = s.engine.Extract(ctx, url)
		return err
	})
	if err != nil {
		log.Emit(logger.WARNING, "Probe of %s failed: %v\n", url, err)
		return nil, false
	}

	info, err := ParseMediaInfo(raw)
	if err != nil {
		log.Emit(logger.WARNING, "Probe of %s failed: %v\n", url, err)
		return nil, false
	}
	return info, true
}

// ListQualities returns the distinct video heights available for url, ascending.
// The first-seen format is kept for each height.
func (s *Service) ListQualities(ctx context.Context, url string) []model.QualityOption {
	info, ok := s.Probe(ctx, url)
	if !ok {
		return []model.QualityOption{}
	}
	return QualitiesFromFormats(info.Formats)
}

// QualitiesFromFormats filters formats to those carrying video, de-duplicates by height
// and sorts ascending.
func QualitiesFromFormats(formats []model.Format) []model.QualityOption {
	seen := make(map[int]bool)
	qualities := make([]model.QualityOption, 0)

	for _, f := range formats {
		if !f.HasVideo() || f.Height <= 0 || seen[f.Height] {
			continue
		}
		seen[f.Height] = true
		qualities = append(qualities, model.QualityOption{
			Height:    f.Height,
			FormatID:  f.FormatID,
			Extension: f.Extension,
			SizeBytes: f.FileSize,
			FrameRate: f.FrameRate,
		})
	}

	sort.Slice(qualities, func(i, j int) bool {
		return qualities[i].Height < qualities[j].Height
	})
	return qualities
}

// Download fetches url through the extraction engine.
// quality is "best", "" or a height ceiling such as "720"/"720p"; it is ignored for audio.
func (s *Service) Download(ctx context.Context, url, quality string, audioOnly bool, progress func(model.DownloadProgress)) (*model.DownloadResult, bool) {
	opts := Options{
		MergeFormat: MergeContainer,
		Progress:    safeProgress(progress),
	}

	if audioOnly {
		opts.Selector = AudioSelector()
		opts.MergeFormat = ""
		opts.ExtractAudio = true
		opts.AudioFormat = s.cfg.AudioFormat
		opts.AudioQuality = s.cfg.AudioQuality
	} else {
		height, err := ParseQuality(quality)
		if err != nil {
			log.Emit(logger.WARNING, "Download of %s rejected: %v\n", url, err)
			return nil, false
		}
		opts.Selector = VideoSelector(height)
	}

	return s.run(ctx, url, opts)
}

// DownloadImage fetches an image post from a social platform, letting the engine pick the format.
func (s *Service) DownloadImage(ctx context.Context, url string) (*model.DownloadResult, bool) {
	return s.run(ctx, url, Options{})
}

// SearchAudio downloads the audio of the first search hit for query
func (s *Service) SearchAudio(ctx context.Context, query string) (*model.DownloadResult, bool) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, false
	}
	return s.Download(ctx, SearchPrefix+query, "", true, nil)
}

// GetThumbnail returns the best thumbnail URL from probe metadata, or "".
func (s *Service) GetThumbnail(ctx context.Context, url string) string {
	info, ok := s.Probe(ctx, url)
	if !ok {
		return ""
	}
	return BestThumbnail(info)
}

// BestThumbnail prefers the primary thumbnail, then the widest listed one
func BestThumbnail(info *model.MediaInfo) string {
	if info == nil {
		return ""
	}
	if info.Thumbnail != "" {
		return info.Thumbnail
	}

	best := ""
	bestWidth := -1
	for _, t := range info.Thumbnails {
		if t.Width >= bestWidth {
			best = t.URL
			bestWidth = t.Width
		}
	}
	return best
}

// run executes one engine download under the deadline and resolves the produced file
func (s *Service) run(ctx context.Context, url string, opts Options) (*model.DownloadResult, bool) {
	base := filepath.Join(s.cfg.TempDir, platform.GenerateBaseName())
	opts.OutputTemplate = base + ".%(ext)s"

	notify(opts.Progress, model.DownloadProgress{Status: model.DownloadStatusStarting, ETASec: -1})

	err := s.withDeadline(ctx, "download", func(ctx context.Context) error {
		return s.engine.Download(ctx, url, opts)
	})
	if err != nil {
		log.Emit(logger.WARNING, "Download of %s failed: %v\n", url, err)
		notify(opts.Progress, model.DownloadProgress{Status: model.DownloadStatusError, ETASec: -1})
		return nil, false
	}

	result, err := s.finalize(base)
	if err != nil {
		log.Emit(logger.WARNING, "Download of %s failed: %v\n", url, err)
		notify(opts.Progress, model.DownloadProgress{Status: model.DownloadStatusError, ETASec: -1})
		return nil, false
	}

	notify(opts.Progress, model.DownloadProgress{
		Status:          model.DownloadStatusFinished,
		Percent:         100,
		DownloadedBytes: result.SizeBytes,
		TotalBytes:      result.SizeBytes,
		ETASec:          -1,
	})
	log.Emit(logger.SUCCESS, "Downloaded %s to %s (%d bytes)\n", url, result.FileName(), result.SizeBytes)
	return result, true
}

// finalize resolves the engine output and enforces the size limit
func (s *Service) finalize(base string) (*model.DownloadResult, error) {
	path, err := platform.ResolveOutputFile(base)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errNoOutput, err)
	}
	return s.checkSize(path)
}

func (s *Service) checkSize(path string) (*model.DownloadResult, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	if s.cfg.MaxFileSize > 0 && info.Size() > s.cfg.MaxFileSize {
		if rmErr := platform.RemoveIfExists(path); rmErr != nil {
			log.Emit(logger.WARNING, "Failed to remove oversize file %s: %v\n", path, rmErr)
		}
		return nil, fmt.Errorf("%w: %d > %d bytes", errTooLarge, info.Size(), s.cfg.MaxFileSize)
	}

	return model.NewDownloadResult(path, info.Size()), nil
}

// DownloadDirect fetches a plain file URL over HTTP under the direct-download timeout.
func (s *Service) DownloadDirect(ctx context.Context, url string) (*model.DownloadResult, bool) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.DirectTimeout)
	defer cancel()

	result, err := s.fetchDirect(ctx, url)
	if err != nil {
		log.Emit(logger.WARNING, "Direct download of %s failed: %v\n", RedactURL(url), err)
		return nil, false
	}

	log.Emit(logger.SUCCESS, "Downloaded %s to %s (%d bytes)\n", RedactURL(url), result.FileName(), result.SizeBytes)
	return result, true
}

func (s *Service) fetchDirect(ctx context.Context, url string) (*model.DownloadResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if s.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", s.cfg.UserAgent)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		var urlErr *neturl.Error
		if errors.As(err, &urlErr) {
			urlErr.URL = RedactURL(urlErr.URL)
		}
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}

	ext := DirectExtension(resp.Header.Get("Content-Type"), url)
	path := filepath.Join(s.cfg.TempDir, platform.GenerateBaseName()+ext)

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", path, err)
	}

	var body io.Reader = resp.Body
	if s.cfg.MaxFileSize > 0 {
		body = io.LimitReader(resp.Body, s.cfg.MaxFileSize+1)
	}

	_, copyErr := io.Copy(f, body)
	closeErr := f.Close()
	if copyErr != nil || closeErr != nil {
		_ = platform.RemoveIfExists(path)
		return nil, fmt.Errorf("failed to write %s: %w", path, errors.Join(copyErr, closeErr))
	}

	return s.checkSize(path)
}

// RedactURL keeps the host and file name of a URL for logging. Telegram file
// links carry the bot token in their path.
func RedactURL(rawURL string) string {
	u, err := neturl.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "<invalid url>"
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" {
		return u.Scheme + "://" + u.Host
	}
	return u.Scheme + "://" + u.Host + "/.../" + name
}

// DirectExtension infers a file extension from the response content type, then the URL suffix.
func DirectExtension(contentType, rawURL string) string {
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		if ext, ok := contentTypeExtensions[strings.ToLower(mediaType)]; ok {
			return ext
		}
	}

	if u, err := neturl.Parse(rawURL); err == nil {
		if ext := strings.ToLower(path.Ext(u.Path)); ext != "" && len(ext) <= 5 {
			return ext
		}
	}
	return DefaultExtension
}

// withDeadline runs fn in its own goroutine and waits for it or the configured timeout,
// whichever comes first. Panics in fn are reported as errors.
func (s *Service) withDeadline(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("%s: extraction engine panicked: %v", op, r)
			}
		}()
		done <- fn(ctx)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("%s timed out after %s: %w", op, s.cfg.Timeout, ctx.Err())
	}
}

// safeProgress wraps sink so a panicking sink cannot fail the download
func safeProgress(sink func(model.DownloadProgress)) func(model.DownloadProgress) {
	if sink == nil {
		return nil
	}
	return func(p model.DownloadProgress) {
		defer func() {
			if r := recover(); r != nil {
				log.Emit(logger.WARNING, "Progress sink panicked: %v\n", r)
			}
		}()
		sink(p)
	}
}

func notify(sink func(model.DownloadProgress), p model.DownloadProgress) {
	if sink != nil {
		sink(p)
	}
}
