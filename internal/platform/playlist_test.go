package platform

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ytget/media-bot/internal/model"
)

type fakeLister struct {
	items []PlaylistItem
	err   error
	delay time.Duration
	gotID string
}

func (f *fakeLister) ListItems(ctx context.Context, playlistID string) ([]PlaylistItem, error) {
	f.gotID = playlistID
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.items, f.err
}

func TestExtractPlaylistID(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		expected string
	}{
		{
			name:     "should extract from watch URL with radio",
			url:      "https://www.youtube.com/watch?v=VIDEO_ID&list=PLAYLIST_ID&start_radio=1",
			expected: "PLAYLIST_ID",
		},
		{
			name:     "should extract from playlist URL",
			url:      "https://www.youtube.com/playlist?list=PL123",
			expected: "PL123",
		},
		{
			name:     "should return empty without list parameter",
			url:      "https://www.youtube.com/watch?v=VIDEO_ID",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractPlaylistID(tt.url); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestIsPlaylistURL(t *testing.T) {
	if !IsPlaylistURL("https://www.youtube.com/playlist?list=PL123") {
		t.Error("expected playlist URL")
	}
	if IsPlaylistURL("https://example.com/?list=PL123") {
		t.Error("non-youtube URL must not be a playlist")
	}
	if IsPlaylistURL("https://youtu.be/abc") {
		t.Error("single video must not be a playlist")
	}
}

func TestParsePlaylist(t *testing.T) {
	lister := &fakeLister{items: []PlaylistItem{
		{VideoID: "a1", Title: "Rammstein - Live in Paris Part 1"},
		{VideoID: "", Title: "deleted"},
		{VideoID: "b2", Title: "Rammstein - Live in Paris Part 2"},
	}}
	service := NewPlaylistService()
	service.SetLister(lister)

	playlist, err := service.ParsePlaylist(context.Background(), "https://www.youtube.com/watch?v=a1&list=PLX")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if lister.gotID != "PLX" {
		t.Errorf("expected lister to receive PLX, got %q", lister.gotID)
	}
	if playlist.Status != model.PlaylistStatusReady {
		t.Errorf("expected ready status, got %s", playlist.Status)
	}
	if playlist.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", playlist.Len())
	}
	if playlist.Entries[1].URL != "https://www.youtube.com/watch?v=b2" {
		t.Errorf("unexpected entry URL %s", playlist.Entries[1].URL)
	}
	if playlist.Title != "Rammstein - Live in Paris Part Playlist" {
		t.Errorf("unexpected title %q", playlist.Title)
	}
}

func TestParsePlaylist_Errors(t *testing.T) {
	t.Run("should fail without playlist ID", func(t *testing.T) {
		service := NewPlaylistService()
		service.SetLister(&fakeLister{})

		playlist, err := service.ParsePlaylist(context.Background(), "https://youtu.be/abc")
		if err == nil {
			t.Fatal("expected error")
		}
		if playlist.Status != model.PlaylistStatusError || playlist.Error == "" {
			t.Errorf("expected error state, got %+v", playlist)
		}
	})

	t.Run("should propagate lister failure", func(t *testing.T) {
		service := NewPlaylistService()
		service.SetLister(&fakeLister{err: errors.New("boom")})

		playlist, err := service.ParsePlaylist(context.Background(), "https://www.youtube.com/playlist?list=PL1")
		if err == nil {
			t.Fatal("expected error")
		}
		if playlist.Status != model.PlaylistStatusError {
			t.Errorf("expected error status, got %s", playlist.Status)
		}
	})

	t.Run("should honour timeout", func(t *testing.T) {
		service := NewPlaylistService()
		service.SetLister(&fakeLister{delay: time.Second})
		service.SetTimeout(20 * time.Millisecond)

		start := time.Now()
		if _, err := service.ParsePlaylist(context.Background(), "https://www.youtube.com/playlist?list=PL1"); err == nil {
			t.Fatal("expected timeout error")
		}
		if time.Since(start) > 500*time.Millisecond {
			t.Error("timeout was not honoured")
		}
	})
}

func TestExtractPlaylistTitle(t *testing.T) {
	tests := []struct {
		name     string
		entries  []*model.PlaylistEntry
		expected string
	}{
		{
			name:     "should use default for empty playlist",
			entries:  nil,
			expected: DefaultPlaylistTitle,
		},
		{
			name:     "should use first title when prefix is short",
			entries:  []*model.PlaylistEntry{{Title: "Song A"}, {Title: "Song B"}},
			expected: "Song A Playlist",
		},
		{
			name:     "should use first title for single entry",
			entries:  []*model.PlaylistEntry{{Title: "Only One"}},
			expected: "Only One Playlist",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractPlaylistTitle(tt.entries); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}
