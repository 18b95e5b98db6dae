package audio

// Package audio post-processes acquired audio: ID3v2 (mp3) and MP4 atom (m4a)
// tagging with embedded cover art, plus ffmpeg-backed transcoding and duration
// probing through github.com/floostack/transcoder.
