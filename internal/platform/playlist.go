package platform

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/ytget/media-bot/internal/logger"
	"github.com/ytget/media-bot/internal/model"
	"github.com/ytget/ytdlp/v2"
)

// Timeout constants
const (
	DefaultPlaylistParseTimeout = 60 * time.Second
)

// URL parameters
const (
	PlaylistURLParam = "list"
)

// Default values
const (
	DefaultDuration      = "Unknown"
	DefaultPlaylistTitle = "Unknown Playlist"
)

// URL templates
const (
	YouTubeVideoURLTemplate = "https://www.youtube.com/watch?v=%s"
)

// Playlist title constants
const (
	MinPrefixLength = 10
	PlaylistSuffix  = " Playlist"
)

var playlistLog = logger.Get("Playlist")

// PlaylistItem is one entry as returned by a PlaylistLister
type PlaylistItem struct {
	VideoID string
	Title   string
}

// PlaylistLister fetches every item of a YouTube playlist
type PlaylistLister interface {
	ListItems(ctx context.Context, playlistID string) ([]PlaylistItem, error)
}

// ytdlpLister lists playlist items through the ytget/ytdlp library
type ytdlpLister struct{}

func (ytdlpLister) ListItems(ctx context.Context, playlistID string) ([]PlaylistItem, error) {
	items, err := ytdlp.New().GetPlaylistItemsAll(ctx, playlistID, 0)
	if err != nil {
		return nil, err
	}

	out := make([]PlaylistItem, 0, len(items))
	for _, it := range items {
		out = append(out, PlaylistItem{VideoID: it.VideoID, Title: it.Title})
	}
	return out, nil
}

// PlaylistService expands YouTube playlist URLs into their entries
type PlaylistService struct {
	timeout time.Duration
	lister  PlaylistLister
}

// NewPlaylistService creates a playlist service backed by the ytdlp library
func NewPlaylistService() *PlaylistService {
	return &PlaylistService{
		timeout: DefaultPlaylistParseTimeout,
		lister:  ytdlpLister{},
	}
}

// SetTimeout sets the timeout for playlist parsing
func (p *PlaylistService) SetTimeout(timeout time.Duration) {
	p.timeout = timeout
}

// SetLister replaces the item source
func (p *PlaylistService) SetLister(lister PlaylistLister) {
	p.lister = lister
}

// IsPlaylistURL reports whether rawURL is a YouTube URL carrying a list parameter
func IsPlaylistURL(rawURL string) bool {
	return DetectPlatform(rawURL) == model.PlatformYouTube && ExtractPlaylistID(rawURL) != ""
}

// ExtractPlaylistID extracts the playlist ID from a YouTube URL. Supported forms:
//   - https://www.youtube.com/watch?v=VIDEO_ID&list=PLAYLIST_ID&start_radio=1
//   - https://www.youtube.com/playlist?list=PLAYLIST_ID
func ExtractPlaylistID(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Query().Get(PlaylistURLParam)
}

// ParsePlaylist lists the entries of a playlist URL.
// On failure the returned playlist is in error state and carries the message.
func (p *PlaylistService) ParsePlaylist(ctx context.Context, rawURL string) (*model.Playlist, error) {
	playlist := model.NewPlaylist(rawURL)

	playlistID := ExtractPlaylistID(rawURL)
	if playlistID == "" {
		err := fmt.Errorf("could not extract playlist ID from URL: %s", rawURL)
		playlist.Error = err.Error()
		playlist.UpdateStatus(model.PlaylistStatusError)
		return playlist, err
	}
	playlist.ID = playlistID

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	items, err := p.lister.ListItems(ctx, playlistID)
	if err != nil {
		playlistLog.Emit(logger.WARNING, "Failed to list playlist %s: %v\n", playlistID, err)
		err = fmt.Errorf("failed to get playlist items: %w", err)
		playlist.Error = err.Error()
		playlist.UpdateStatus(model.PlaylistStatusError)
		return playlist, err
	}

	for _, it := range items {
		if it.VideoID == "" {
			continue
		}
		playlist.AddEntry(&model.PlaylistEntry{
			ID:       it.VideoID,
			Title:    it.Title,
			Duration: DefaultDuration,
			URL:      fmt.Sprintf(YouTubeVideoURLTemplate, it.VideoID),
		})
	}

	playlist.Title = extractPlaylistTitle(playlist.Entries)
	playlist.UpdateStatus(model.PlaylistStatusReady)
	playlistLog.Emit(logger.DEBUG, "Expanded playlist %s into %d entries\n", playlistID, playlist.Len())

	return playlist, nil
}

// extractPlaylistTitle generates a title for the playlist based on its entries
func extractPlaylistTitle(entries []*model.PlaylistEntry) string {
	if len(entries) == 0 {
		return DefaultPlaylistTitle
	}
	if len(entries) > 1 {
		commonPrefix := findCommonPrefix(entries[0].Title, entries[1].Title)
		if len(commonPrefix) > MinPrefixLength {
			return strings.TrimSpace(commonPrefix) + PlaylistSuffix
		}
	}
	return entries[0].Title + PlaylistSuffix
}

// findCommonPrefix finds the common prefix between two strings
func findCommonPrefix(s1, s2 string) string {
	minLen := min(len(s1), len(s2))
	for i := 0; i < minLen; i++ {
		if s1[i] != s2[i] {
			return s1[:i]
		}
	}
	return s1[:minLen]
}
