package model

// ExternalLinks groups the optional per-service links of a recognised track
type ExternalLinks struct {
	Shazam     string `json:"shazam,omitempty"`
	AppleMusic string `json:"apple_music,omitempty"`
	YouTube    string `json:"youtube,omitempty"`
}

// TrackRecord is a flattened recognition or search hit. It lives in process memory
// only (or in the session store) and is never mutated after construction.
type TrackRecord struct {
	Title       string        `json:"title"`
	Artist      string        `json:"artist"`
	Album       string        `json:"album,omitempty"`
	Genre       string        `json:"genre,omitempty"`
	ReleaseDate string        `json:"release_date,omitempty"`
	CoverURL    string        `json:"cover_url,omitempty"`
	Links       ExternalLinks `json:"links"`
	ISRC        string        `json:"isrc,omitempty"`
	Key         string        `json:"key,omitempty"`
}

// SearchQuery returns the free-text query used to fetch this track's audio
func (t TrackRecord) SearchQuery() string {
	return t.Artist + " " + t.Title + " audio"
}

// AudioTags is the subset of tag fields the tagger writes. Empty fields are left untouched.
type AudioTags struct {
	Title       string
	Artist      string
	Album       string
	ReleaseDate string
}

// IsEmpty reports whether no field is set
func (a AudioTags) IsEmpty() bool {
	return a.Title == "" && a.Artist == "" && a.Album == "" && a.ReleaseDate == ""
}

// TagsFromTrack maps a track record onto writable tags
func TagsFromTrack(t TrackRecord) AudioTags {
	return AudioTags{
		Title:       t.Title,
		Artist:      t.Artist,
		Album:       t.Album,
		ReleaseDate: t.ReleaseDate,
	}
}
