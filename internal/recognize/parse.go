package recognize

import (
	"strings"

	"github.com/tidwall/gjson"
	"github.com/ytget/media-bot/internal/model"
)

// Defaults for missing fields
const (
	UnknownTitle  = "Unknown"
	UnknownArtist = "Unknown Artist"
)

var coverKeys = []string{"images.coverarthq", "images.coverart", "images.background"}

// ParseRecognition flattens a recognition payload. A payload without a track is no match.
func ParseRecognition(raw []byte) (model.TrackRecord, bool) {
	if !gjson.ValidBytes(raw) {
		return model.TrackRecord{}, false
	}

	track := gjson.GetBytes(raw, "track")
	if !track.IsObject() {
		return model.TrackRecord{}, false
	}
	return parseTrack(track), true
}

// ParseSearch flattens every tracks.hits[].track of a search payload
func ParseSearch(raw []byte) []model.TrackRecord {
	tracks := make([]model.TrackRecord, 0)
	if !gjson.ValidBytes(raw) {
		return tracks
	}

	gjson.GetBytes(raw, "tracks.hits").ForEach(func(_, hit gjson.Result) bool {
		if track := hit.Get("track"); track.IsObject() {
			tracks = append(tracks, parseTrack(track))
		}
		return true
	})
	return tracks
}

func parseTrack(track gjson.Result) model.TrackRecord {
	return model.TrackRecord{
		Title:       stringOr(track.Get("title"), UnknownTitle),
		Artist:      stringOr(track.Get("subtitle"), UnknownArtist),
		Album:       track.Get("sections.0.metadata.0.text").String(),
		Genre:       track.Get("genres.primary").String(),
		ReleaseDate: releaseDate(track),
		CoverURL:    coverURL(track),
		Links: model.ExternalLinks{
			Shazam:     track.Get("url").String(),
			AppleMusic: appleMusicURL(track),
			YouTube:    youTubeURL(track),
		},
		ISRC: track.Get("isrc").String(),
		Key:  track.Get("key").String(),
	}
}

func stringOr(v gjson.Result, fallback string) string {
	if s := v.String(); s != "" {
		return s
	}
	return fallback
}

func releaseDate(track gjson.Result) string {
	var date string
	track.Get("sections").ForEach(func(_, section gjson.Result) bool {
		section.Get("metadata").ForEach(func(_, meta gjson.Result) bool {
			if meta.Get("title").String() == "Released" {
				date = meta.Get("text").String()
				return false
			}
			return true
		})
		return date == ""
	})
	return date
}

func coverURL(track gjson.Result) string {
	for _, key := range coverKeys {
		if u := track.Get(key).String(); u != "" {
			return u
		}
	}
	return ""
}

func appleMusicURL(track gjson.Result) string {
	var uri string
	track.Get("hub.providers").ForEach(func(_, provider gjson.Result) bool {
		if strings.Contains(strings.ToLower(provider.Get("type").String()), "applemusic") {
			uri = provider.Get("actions.0.uri").String()
			return uri == ""
		}
		return true
	})
	return uri
}

func youTubeURL(track gjson.Result) string {
	var uri string
	track.Get("sections").ForEach(func(_, section gjson.Result) bool {
		if section.Get("type").String() == "VIDEO" && len(section.Get("items").Array()) > 0 {
			uri = section.Get("items.0.actions.0.uri").String()
			return false
		}
		return true
	})
	return uri
}
