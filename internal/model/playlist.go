package model

import (
	"time"
)

// PlaylistStatus represents the current status of a playlist expansion
type PlaylistStatus string

const (
	PlaylistStatusParsing PlaylistStatus = "parsing"
	PlaylistStatusReady   PlaylistStatus = "ready"
	PlaylistStatusError   PlaylistStatus = "error"
)

// PlaylistEntry represents a single video in a playlist
type PlaylistEntry struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Duration string `json:"duration"`
	URL      string `json:"url"`
}

// Playlist represents an expanded playlist
type Playlist struct {
	ID        string           `json:"id"`
	Title     string           `json:"title"`
	URL       string           `json:"url"`
	Entries   []*PlaylistEntry `json:"entries"`
	Status    PlaylistStatus   `json:"status"`
	Error     string           `json:"error,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// NewPlaylist creates a new playlist instance
func NewPlaylist(url string) *Playlist {
	now := time.Now()
	return &Playlist{
		URL:       url,
		Status:    PlaylistStatusParsing,
		Entries:   make([]*PlaylistEntry, 0),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// AddEntry appends an entry to the playlist
func (p *Playlist) AddEntry(entry *PlaylistEntry) {
	p.Entries = append(p.Entries, entry)
	p.UpdatedAt = time.Now()
}

// UpdateStatus updates the playlist status
func (p *Playlist) UpdateStatus(status PlaylistStatus) {
	p.Status = status
	p.UpdatedAt = time.Now()
}

// Len returns the number of entries
func (p *Playlist) Len() int {
	return len(p.Entries)
}
