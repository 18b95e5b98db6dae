package recognize

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/ytget/media-bot/internal/logger"
	"github.com/ytget/media-bot/internal/model"
)

// Default values
const (
	DefaultTimeout     = 40 * time.Second
	DefaultSearchLimit = 10
	TempAudioDelay     = 5 * time.Second
)

var log = logger.Get("Recognizer")

// AudioFetcher downloads the audio track of a URL
type AudioFetcher interface {
	Download(ctx context.Context, url, quality string, audioOnly bool, progress func(model.DownloadProgress)) (*model.DownloadResult, bool)
}

// Deleter schedules removal of a temp file
type Deleter interface {
	DeleteAfter(path string, delay time.Duration)
}

// Service identifies tracks from audio clips and text queries
type Service struct {
	engine      Engine
	fetcher     AudioFetcher
	deleter     Deleter
	timeout     time.Duration
	searchLimit int
}

// NewService creates a recognition service. fetcher and deleter are only needed by RecognizeFromURL.
func NewService(engine Engine, fetcher AudioFetcher, deleter Deleter, timeout time.Duration, searchLimit int) *Service {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if searchLimit <= 0 {
		searchLimit = DefaultSearchLimit
	}
	return &Service{
		engine:      engine,
		fetcher:     fetcher,
		deleter:     deleter,
		timeout:     timeout,
		searchLimit: searchLimit,
	}
}

// WithDeleter returns a copy of the service that hands temp audio to deleter
func (s *Service) WithDeleter(deleter Deleter) *Service {
	clone := *s
	clone.deleter = deleter
	return &clone
}

// Recognize identifies the track in the audio file at path. No match, timeout and
// engine errors all return false.
func (s *Service) Recognize(ctx context.Context, path string) (*model.TrackRecord, bool) {
	raw, err := s.call(ctx, func(ctx context.Context) ([]byte, error) {
		return s.engine.RecognizeFile(ctx, path)
	})
	if err != nil {
		log.Emit(logger.WARNING, "Recognition of %s failed: %v\n", path, err)
		return nil, false
	}

	track, ok := ParseRecognition(raw)
	if !ok {
		log.Emit(logger.INFO, "No match for %s\n", path)
		return nil, false
	}

	log.Emit(logger.SUCCESS, "Recognized %s - %s\n", track.Artist, track.Title)
	return &track, true
}

// Search runs a text query; limit <= 0 uses the configured default. Failures return an empty slice.
func (s *Service) Search(ctx context.Context, query string, limit int) []model.TrackRecord {
	if limit <= 0 {
		limit = s.searchLimit
	}

	query = strings.TrimSpace(query)
	if query == "" {
		return []model.TrackRecord{}
	}

	raw, err := s.call(ctx, func(ctx context.Context) ([]byte, error) {
		return s.engine.SearchTracks(ctx, query, limit)
	})
	if err != nil {
		log.Emit(logger.WARNING, "Search for %q failed: %v\n", query, err)
		return []model.TrackRecord{}
	}

	tracks := ParseSearch(raw)
	if len(tracks) > limit {
		tracks = tracks[:limit]
	}
	return tracks
}

// RecognizeFromURL downloads the audio of url and identifies it. The temp audio
// is scheduled for deletion exactly once whatever the outcome.
func (s *Service) RecognizeFromURL(ctx context.Context, url string) (*model.TrackRecord, bool) {
	if s.fetcher == nil {
		log.Emit(logger.ERROR, "Recognition from URL is not configured\n")
		return nil, false
	}

	result, ok := s.fetcher.Download(ctx, url, "", true, nil)
	if !ok || result == nil {
		log.Emit(logger.WARNING, "No audio could be fetched from %s\n", url)
		return nil, false
	}
	defer s.scheduleDelete(result.Path)

	return s.Recognize(ctx, result.Path)
}

func (s *Service) scheduleDelete(path string) {
	if s.deleter == nil {
		return
	}
	s.deleter.DeleteAfter(path, TempAudioDelay)
}

// call runs one engine call under the recognition deadline, recovering panics
func (s *Service) call(ctx context.Context, fn func(ctx context.Context) ([]byte, error)) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	type outcome struct {
		raw []byte
		err error
	}
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("recognition engine panicked: %v", r)}
			}
		}()
		raw, err := fn(ctx)
		done <- outcome{raw: raw, err: err}
	}()

	select {
	case o := <-done:
		return o.raw, o.err
	case <-ctx.Done():
		return nil, fmt.Errorf("timed out after %s: %w", s.timeout, ctx.Err())
	}
}

// FormatSummary renders a track as HTML: title and artist, then album, genre and
// release date when present, one newline-terminated line each.
func FormatSummary(track model.TrackRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🎵 <b>%s</b>\n", html.EscapeString(track.Title))
	fmt.Fprintf(&b, "👤 %s\n", html.EscapeString(track.Artist))

	if track.Album != "" {
		fmt.Fprintf(&b, "💿 %s\n", html.EscapeString(track.Album))
	}
	if track.Genre != "" {
		fmt.Fprintf(&b, "🎼 %s\n", html.EscapeString(track.Genre))
	}
	if track.ReleaseDate != "" {
		fmt.Fprintf(&b, "📅 %s\n", html.EscapeString(track.ReleaseDate))
	}
	return b.String()
}

// FormatSearchResults renders a numbered list, 1-based, matching selection indexes 0..n-1
func FormatSearchResults(tracks []model.TrackRecord) string {
	if len(tracks) == 0 {
		return "Nothing found"
	}

	var b strings.Builder
	b.WriteString("🔍 <b>Search results</b>\n\n")
	for i, t := range tracks {
		fmt.Fprintf(&b, "%d. %s - %s\n", i+1, html.EscapeString(t.Artist), html.EscapeString(t.Title))
	}
	return b.String()
}
