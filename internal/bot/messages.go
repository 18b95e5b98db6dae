package bot

import (
	"fmt"
	"html"
	"strings"

	"github.com/ytget/media-bot/internal/model"
)

const startText = `🎬 <b>Welcome!</b>

I download media in the best available quality:

📹 <b>Video:</b> YouTube (including Shorts), Instagram, TikTok, Twitter / X, Pinterest and direct links
🎵 <b>Audio:</b> extraction from video, search by name, music recognition with tags and covers
🖼 <b>Images:</b> original quality, no Telegram compression

Send a link and pick a quality, or type a song name to search 🎶`

const helpText = `📖 <b>How to use</b>

<b>1. Video</b>
Send a link and choose a quality (144p to 4K).

<b>2. Audio</b>
Send a video link and choose "Audio only", or type a query like <code>Imagine Dragons Believer</code> and pick a track.

<b>3. Recognition</b>
Send an audio file, a voice message or a video and I will try to identify the music.

<b>4. Playlists</b>
Send a YouTube playlist link to list its videos.`

// User-facing replies
const (
	msgUnsupported    = "❌ Unsupported link.\n\nSupported: YouTube, Instagram, TikTok, Twitter/X, Pinterest and direct links."
	msgAnalyzing      = "⏳ Analyzing link..."
	msgNoInfo         = "❌ Could not get video information."
	msgDownloading    = "⏳ Downloading..."
	msgDownloadFailed = "❌ Download failed."
	msgImageFailed    = "❌ Could not download the image."
	msgAudioFailed    = "❌ Could not download the audio."
	msgLinkExpired    = "❌ Link expired, send it again"
	msgSearching      = "🔍 Searching..."
	msgResultsExpired = "❌ Results expired, search again"
	msgTrackFailed    = "❌ Could not download the track"
	msgRecognizing    = "🎵 Recognizing..."
	msgFetchFailed    = "❌ Could not download the file"
	msgNotRecognized  = "❌ Could not recognize the track.\nTry a longer or cleaner fragment."
	msgSlowDown       = "🐢 Too many requests, slow down a little."
	msgPlaylistFailed = "❌ Could not read the playlist."
	msgSomethingWrong = "❌ Something went wrong"
)

const (
	maxPlaylistListed = 25
	maxTitleDisplay   = 100
)

func nothingFoundText(query string) string {
	return fmt.Sprintf("❌ Nothing found for <b>%s</b>\n\nTry a different query.", html.EscapeString(query))
}

// videoSummary renders the probe result shown above the quality keyboard
func videoSummary(info *model.MediaInfo) string {
	title := info.Title
	if title == "" {
		title = "Untitled"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📹 <b>%s</b>\n", html.EscapeString(truncate(title, maxTitleDisplay)))
	if info.Duration > 0 {
		fmt.Fprintf(&b, "⏱ %s\n", FormatDuration(info.Duration))
	}
	b.WriteString("\n📊 Choose quality:")
	return b.String()
}

// playlistSummary lists the first entries of an expanded playlist
func playlistSummary(p *model.Playlist) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📃 <b>%s</b> (%d videos)\n\n", html.EscapeString(p.Title), len(p.Entries))
	for i, e := range p.Entries {
		if i == maxPlaylistListed {
			fmt.Fprintf(&b, "... and %d more\n", len(p.Entries)-maxPlaylistListed)
			break
		}
		fmt.Fprintf(&b, "%d. <a href=\"%s\">%s</a>\n", i+1, html.EscapeString(e.URL), html.EscapeString(e.Title))
	}
	b.WriteString("\nSend any video link to download it.")
	return b.String()
}

// FormatDuration renders seconds as m:ss or h:mm:ss
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	h, m, s := seconds/3600, (seconds%3600)/60, seconds%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
