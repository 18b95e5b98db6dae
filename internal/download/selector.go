package download

import (
	"fmt"
	"strconv"
	"strings"
)

// Quality keywords
const (
	QualityBest  = "best"
	QualityAudio = "audio"
)

// ParseQuality converts "best", "", "720" or "720p" into a height ceiling; 0 means no ceiling.
func ParseQuality(quality string) (int, error) {
	q := strings.ToLower(strings.TrimSpace(quality))
	if q == "" || q == QualityBest {
		return 0, nil
	}

	height, err := strconv.Atoi(strings.TrimSuffix(q, "p"))
	if err != nil || height <= 0 {
		return 0, fmt.Errorf("unsupported quality %q", quality)
	}
	return height, nil
}

// VideoSelector builds the format selector for a height ceiling. The selector grammar
// belongs to yt-dlp and changes between releases; callers depend only on the ceiling:
// with height > 0 no stream taller than height is requested, and when none exists the
// engine falls back to its best overall format.
func VideoSelector(height int) string {
	if height <= 0 {
		return "bestvideo[ext=mp4]+bestaudio[ext=m4a]/best[ext=mp4]/best"
	}
	return fmt.Sprintf("bestvideo[height<=%[1]d][ext=mp4]+bestaudio[ext=m4a]/best[height<=%[1]d][ext=mp4]/best", height)
}

// AudioSelector returns the selector for audio-only downloads
func AudioSelector() string {
	return "bestaudio/best"
}
