package download

// Package download orchestrates the external extraction engine (yt-dlp, driven
// through github.com/lrstanley/go-ytdlp): metadata probing, quality negotiation,
// format selection, deadline-bounded downloads and resolution of the file the
// engine actually produced. Every failure collapses to "no result" plus one log line.
