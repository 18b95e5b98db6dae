package model

import "testing"

func TestDownloadProgress_GetETAString(t *testing.T) {
	tests := []struct {
		etaSec   int
		expected string
	}{
		{-1, "—"},
		{0, "—"},
		{30, "00:30"},
		{90, "01:30"},
		{3600, "01:00:00"},
		{3661, "01:01:01"},
	}

	for _, test := range tests {
		p := DownloadProgress{ETASec: test.etaSec}
		if result := p.GetETAString(); result != test.expected {
			t.Errorf("GetETAString() with ETASec=%d = %s, expected %s", test.etaSec, result, test.expected)
		}
	}
}

func TestDownloadStatus(t *testing.T) {
	tests := []struct {
		status   DownloadStatus
		active   bool
		finished bool
	}{
		{DownloadStatusStarting, true, false},
		{DownloadStatusDownloading, true, false},
		{DownloadStatusPostProcessing, true, false},
		{DownloadStatusFinished, false, true},
		{DownloadStatusError, false, true},
	}

	for _, test := range tests {
		if got := test.status.IsActive(); got != test.active {
			t.Errorf("DownloadStatus(%s).IsActive() = %v, expected %v", test.status, got, test.active)
		}
		if got := test.status.IsFinished(); got != test.finished {
			t.Errorf("DownloadStatus(%s).IsFinished() = %v, expected %v", test.status, got, test.finished)
		}
	}
}

func TestFormat_HasVideo(t *testing.T) {
	tests := []struct {
		name     string
		format   Format
		expected bool
	}{
		{"should treat missing codec marker as video", Format{}, true},
		{"should accept explicit codec", Format{HasVCodec: true, VideoCodec: "avc1"}, true},
		{"should reject audio-only format", Format{HasVCodec: true, VideoCodec: "none"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.format.HasVideo(); got != tt.expected {
				t.Errorf("HasVideo() = %v, expected %v", got, tt.expected)
			}
		})
	}
}

func TestNewDownloadResult(t *testing.T) {
	r := NewDownloadResult("/tmp/media_1_ab.MP4", 42)
	if r.Extension != "mp4" {
		t.Errorf("expected extension mp4, got %q", r.Extension)
	}
	if r.FileName() != "media_1_ab.MP4" {
		t.Errorf("unexpected file name %q", r.FileName())
	}
	if r.SizeBytes != 42 {
		t.Errorf("expected size 42, got %d", r.SizeBytes)
	}
}

func TestPlaylist_AddEntry(t *testing.T) {
	p := NewPlaylist("https://www.youtube.com/playlist?list=PL1")
	if p.Status != PlaylistStatusParsing {
		t.Errorf("expected parsing status, got %s", p.Status)
	}
	p.AddEntry(&PlaylistEntry{ID: "a"})
	p.AddEntry(&PlaylistEntry{ID: "b"})
	if p.Len() != 2 {
		t.Errorf("expected 2 entries, got %d", p.Len())
	}
	p.UpdateStatus(PlaylistStatusReady)
	if p.Status != PlaylistStatusReady {
		t.Errorf("expected ready status, got %s", p.Status)
	}
}

func TestTagsFromTrack(t *testing.T) {
	tags := TagsFromTrack(TrackRecord{Title: "Song", Artist: "Band", Genre: "Rock"})
	if tags.Title != "Song" || tags.Artist != "Band" || tags.Album != "" {
		t.Errorf("unexpected tags %+v", tags)
	}
	if tags.IsEmpty() {
		t.Error("expected non-empty tags")
	}
	if !(AudioTags{}).IsEmpty() {
		t.Error("expected zero tags to be empty")
	}
}
