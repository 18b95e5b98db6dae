package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/ytget/media-bot/internal/download"
	"github.com/ytget/media-bot/internal/logger"
	"github.com/ytget/media-bot/internal/model"
	"github.com/ytget/media-bot/internal/platform"
	"github.com/ytget/media-bot/internal/recognize"
)

// MinSearchLength is the shortest free text treated as a search query
const MinSearchLength = 4

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil || msg.Chat == nil {
		return
	}
	if !b.IsAllowed(msg.From.ID) {
		log.Emit(logger.WARNING, "Message from disallowed user %d\n", msg.From.ID)
		return
	}
	if !b.flood.Allow(msg.From.ID) {
		log.Emit(logger.DEBUG, "Flood limit hit by user %d\n", msg.From.ID)
		b.send(msg.Chat.ID, msgSlowDown)
		return
	}

	if msg.IsCommand() {
		switch msg.Command() {
		case "start":
			b.send(msg.Chat.ID, startText)
		case "help":
			b.send(msg.Chat.ID, helpText)
		}
		return
	}

	if fileID, video, ok := recognizableFile(msg); ok {
		b.handleRecognition(ctx, msg, fileID, video)
		return
	}

	if msg.Text != "" {
		b.handleText(ctx, msg)
	}
}

// recognizableFile picks the attachment to recognise. Documents qualify only with
// an audio or video extension.
func recognizableFile(msg *tgbotapi.Message) (fileID string, video bool, ok bool) {
	switch {
	case msg.Voice != nil:
		return msg.Voice.FileID, false, true
	case msg.Audio != nil:
		return msg.Audio.FileID, false, true
	case msg.Video != nil:
		return msg.Video.FileID, true, true
	case msg.VideoNote != nil:
		return msg.VideoNote.FileID, true, true
	case msg.Document != nil:
		name := strings.ToLower(msg.Document.FileName)
		switch {
		case platform.IsAudio(name):
			return msg.Document.FileID, false, true
		case platform.IsVideo(name):
			return msg.Document.FileID, true, true
		}
	}
	return "", false, false
}

func (b *Bot) handleText(ctx context.Context, msg *tgbotapi.Message) {
	text := strings.TrimSpace(msg.Text)

	if urls := platform.ExtractURLs(text); len(urls) > 0 {
		b.handleURL(ctx, msg, urls[0])
		return
	}

	if len([]rune(text)) >= MinSearchLength && !strings.HasPrefix(text, "/") {
		b.handleSearch(ctx, msg, text)
	}
}

func (b *Bot) handleURL(ctx context.Context, msg *tgbotapi.Message, url string) {
	chatID := msg.Chat.ID

	req, ok := platform.NewMediaRequest(url)
	if !ok {
		b.send(chatID, msgUnsupported)
		return
	}

	if platform.IsPlaylistURL(req.Raw) && b.deps.Playlists != nil {
		b.handlePlaylist(ctx, chatID, req.Raw)
		return
	}

	status := b.send(chatID, msgAnalyzing)
	log.Emit(logger.INFO, "User %d requested %s (%s)\n", msg.From.ID, req.Raw, req.Platform)

	if req.IsDirect() {
		switch req.MediaType {
		case model.MediaTypeImage:
			b.handleImage(ctx, chatID, status, req.Raw)
			return
		case model.MediaTypeAudio:
			b.handleDirectAudio(ctx, chatID, status, req.Raw)
			return
		}
	}

	b.offerQualities(ctx, chatID, status, req.Raw)
}

// offerQualities shows the quality keyboard for url. The link is remembered under
// the keyboard's own message, so older keyboards keep pointing at their URL.
func (b *Bot) offerQualities(ctx context.Context, chatID int64, status int, url string) {
	info, ok := b.deps.Downloader.Probe(ctx, url)
	if !ok {
		b.edit(chatID, status, msgNoInfo, nil)
		return
	}

	keyboard := QualityKeyboard(download.QualitiesFromFormats(info.Formats))
	shown := b.edit(chatID, status, videoSummary(info), &keyboard)
	b.rememberLink(chatID, shown, pendingLink{URL: url, Title: info.Title, Uploader: info.Uploader})
}

func (b *Bot) handleImage(ctx context.Context, chatID int64, status int, url string) {
	b.edit(chatID, status, msgDownloading, nil)

	result, ok := b.deps.Downloader.DownloadImage(ctx, url)
	if !ok {
		result, ok = b.deps.Downloader.DownloadDirect(ctx, url)
	}
	if !ok {
		b.edit(chatID, status, msgImageFailed, nil)
		return
	}
	defer b.scheduleDelete(result.Path, DirectFileDelay)

	if b.deliver(chatID, result, "🖼 Original image", nil) {
		b.remove(chatID, status)
	}
}

func (b *Bot) handleDirectAudio(ctx context.Context, chatID int64, status int, url string) {
	b.edit(chatID, status, msgDownloading, nil)

	result, ok := b.deps.Downloader.DownloadDirect(ctx, url)
	if !ok {
		result, ok = b.deps.Downloader.Download(ctx, url, "", true, nil)
	}
	if !ok {
		b.edit(chatID, status, msgAudioFailed, nil)
		return
	}
	defer b.scheduleDelete(result.Path, DirectFileDelay)

	if b.deliver(chatID, result, "🎵 Audio file", nil) {
		b.remove(chatID, status)
	}
}

func (b *Bot) handlePlaylist(ctx context.Context, chatID int64, url string) {
	status := b.send(chatID, msgAnalyzing)

	playlist, err := b.deps.Playlists.ParsePlaylist(ctx, url)
	if err != nil || playlist == nil || len(playlist.Entries) == 0 {
		log.Emit(logger.WARNING, "Playlist %s could not be expanded: %v\n", url, err)
		b.edit(chatID, status, msgPlaylistFailed, nil)
		return
	}
	b.edit(chatID, status, playlistSummary(playlist), nil)
}

func (b *Bot) handleSearch(ctx context.Context, msg *tgbotapi.Message, query string) {
	chatID := msg.Chat.ID
	status := b.send(chatID, msgSearching)

	tracks := b.deps.Recognizer.Search(ctx, query, 0)
	if len(tracks) == 0 {
		b.edit(chatID, status, nothingFoundText(query), nil)
		return
	}

	if err := b.deps.Sessions.Remember(ctx, msg.From.ID, tracks); err != nil {
		log.Emit(logger.ERROR, "%v\n", err)
		b.edit(chatID, status, msgSomethingWrong, nil)
		return
	}

	keyboard := SearchKeyboard(tracks)
	b.edit(chatID, status, recognize.FormatSearchResults(tracks), &keyboard)
}

func (b *Bot) handleRecognition(ctx context.Context, msg *tgbotapi.Message, fileID string, video bool) {
	chatID := msg.Chat.ID
	status := b.send(chatID, msgRecognizing)

	fileURL, err := b.client.GetFileDirectURL(fileID)
	if err != nil {
		log.Emit(logger.WARNING, "Failed to resolve telegram file: %v\n", err)
		b.edit(chatID, status, msgFetchFailed, nil)
		return
	}

	result, ok := b.deps.Downloader.DownloadDirect(ctx, fileURL)
	if !ok {
		b.edit(chatID, status, msgFetchFailed, nil)
		return
	}
	defer b.scheduleDelete(result.Path, recognize.TempAudioDelay)

	clip := result.Path
	if video && b.deps.Extractor != nil {
		if audioPath, ok := b.deps.Extractor.ExtractAudio(ctx, result.Path); ok {
			defer b.scheduleDelete(audioPath, recognize.TempAudioDelay)
			clip = audioPath
		}
	}

	track, ok := b.deps.Recognizer.Recognize(ctx, clip)
	if !ok {
		b.edit(chatID, status, msgNotRecognized, nil)
		return
	}

	// the download button resolves against a one-entry result set
	if err := b.deps.Sessions.Remember(ctx, msg.From.ID, []model.TrackRecord{*track}); err != nil {
		log.Emit(logger.ERROR, "%v\n", err)
	}

	keyboard := RecognizedKeyboard(*track)
	b.edit(chatID, status, recognize.FormatSummary(*track), &keyboard)
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if cb.From == nil || cb.Message == nil || cb.Message.Chat == nil {
		return
	}
	if !b.IsAllowed(cb.From.ID) {
		log.Emit(logger.WARNING, "Callback from disallowed user %d\n", cb.From.ID)
		return
	}

	prefix, value, ok := ParseCallback(cb.Data)
	if !ok {
		b.answer(cb.ID, "", false)
		return
	}

	switch prefix {
	case QualityPrefix:
		b.handleQualityChoice(ctx, cb, value)
	case TrackPrefix:
		b.handleTrackChoice(ctx, cb, value)
	}
}

func (b *Bot) handleQualityChoice(ctx context.Context, cb *tgbotapi.CallbackQuery, choice string) {
	chatID, status := cb.Message.Chat.ID, cb.Message.MessageID

	link, ok := b.takeLink(chatID, status)
	if !ok {
		b.answer(cb.ID, msgLinkExpired, true)
		return
	}
	b.answer(cb.ID, "", false)
	b.edit(chatID, status, msgDownloading, nil)

	audioOnly := choice == QualityAudio
	quality := choice
	if audioOnly {
		quality = ""
	}

	result, ok := b.deps.Downloader.Download(ctx, link.URL, quality, audioOnly, nil)
	if !ok {
		b.edit(chatID, status, msgDownloadFailed, nil)
		return
	}
	defer b.scheduleDelete(result.Path, DeliveredFileDelay)

	caption := qualityCaption(choice)
	if audioOnly && b.deps.Tagger != nil {
		b.deps.Tagger.AddMetadata(ctx, result.Path, model.AudioTags{Title: link.Title, Artist: link.Uploader}, "")
	}

	if b.deliver(chatID, result, caption, nil) {
		b.remove(chatID, status)
	} else {
		b.edit(chatID, status, msgDownloadFailed, nil)
	}
}

func qualityCaption(choice string) string {
	switch choice {
	case QualityAudio:
		return "🎵 Audio"
	case QualityBest, "":
		return "📹 Best quality"
	default:
		return fmt.Sprintf("📹 %sp", strings.TrimSuffix(choice, "p"))
	}
}

func (b *Bot) handleTrackChoice(ctx context.Context, cb *tgbotapi.CallbackQuery, value string) {
	chatID, status := cb.Message.Chat.ID, cb.Message.MessageID

	index, err := strconv.Atoi(value)
	if err != nil {
		b.answer(cb.ID, msgResultsExpired, true)
		return
	}

	track, err := b.deps.Sessions.Resolve(ctx, cb.From.ID, index)
	if errors.Is(err, recognize.ErrStale) {
		b.answer(cb.ID, msgResultsExpired, true)
		return
	}
	if err != nil {
		log.Emit(logger.ERROR, "%v\n", err)
		b.answer(cb.ID, msgSomethingWrong, true)
		return
	}

	b.answer(cb.ID, "", false)
	b.edit(chatID, status, fmt.Sprintf("⏳ Downloading:\n<b>%s</b> - %s",
		html.EscapeString(track.Title), html.EscapeString(track.Artist)), nil)

	result, ok := b.deps.Downloader.SearchAudio(ctx, track.SearchQuery())
	if !ok {
		b.edit(chatID, status, msgTrackFailed, nil)
		return
	}
	defer b.scheduleDelete(result.Path, DeliveredFileDelay)

	if b.deps.Tagger != nil {
		b.deps.Tagger.AddMetadata(ctx, result.Path, model.TagsFromTrack(track), track.CoverURL)
	}

	caption := fmt.Sprintf("🎵 <b>%s</b>\n👤 %s", html.EscapeString(track.Title), html.EscapeString(track.Artist))
	if b.deliver(chatID, result, caption, &track) {
		b.remove(chatID, status)
	} else {
		b.edit(chatID, status, msgTrackFailed, nil)
	}
}
