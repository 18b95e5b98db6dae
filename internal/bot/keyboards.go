package bot

import (
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/ytget/media-bot/internal/model"
)

// Callback data prefixes
const (
	QualityPrefix = "q:"
	TrackPrefix   = "t:"

	QualityBest  = "best"
	QualityAudio = "audio"
)

// Button label limits
const (
	maxButtonTitle  = 30
	maxButtonArtist = 20
	qualityPerRow   = 2
)

// QualityLabel renders a height the way the keyboard shows it
func QualityLabel(height int) string {
	switch {
	case height >= 2160:
		return "4K"
	case height >= 1440:
		return "1440p"
	default:
		return fmt.Sprintf("%dp", height)
	}
}

// QualityKeyboard lists the heights two per row, then audio-only and best quality
func QualityKeyboard(qualities []model.QualityOption) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton

	for _, q := range qualities {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(
			"📹 "+QualityLabel(q.Height),
			QualityPrefix+strconv.Itoa(q.Height),
		))
		if len(row) == qualityPerRow {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}

	rows = append(rows,
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("🎵 Audio only", QualityPrefix+QualityAudio)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("⭐ Best quality", QualityPrefix+QualityBest)),
	)
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// SearchKeyboard offers one button per search hit, indexed from 0
func SearchKeyboard(tracks []model.TrackRecord) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(tracks))
	for i, t := range tracks {
		label := fmt.Sprintf("%d. %s - %s", i+1, truncate(t.Title, maxButtonTitle), truncate(t.Artist, maxButtonArtist))
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, TrackPrefix+strconv.Itoa(i)),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// RecognizedKeyboard offers the download of a recognised track (stored as result 0)
// followed by whichever streaming links are known.
func RecognizedKeyboard(track model.TrackRecord) tgbotapi.InlineKeyboardMarkup {
	rows := [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("⬇️ Download track", TrackPrefix+"0")),
	}

	links := []struct {
		label string
		url   string
	}{
		{"🍎 Apple Music", track.Links.AppleMusic},
		{"▶️ YouTube", track.Links.YouTube},
		{"🔵 Shazam", track.Links.Shazam},
	}
	for _, l := range links {
		if l.url != "" {
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonURL(l.label, l.url)))
		}
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// ParseCallback splits callback data into its prefix and value
func ParseCallback(data string) (prefix, value string, ok bool) {
	for _, p := range []string{QualityPrefix, TrackPrefix} {
		if strings.HasPrefix(data, p) {
			value = strings.TrimPrefix(data, p)
			return p, value, value != ""
		}
	}
	return "", "", false
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
