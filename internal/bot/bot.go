package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/ytget/media-bot/internal/download"
	"github.com/ytget/media-bot/internal/logger"
	"github.com/ytget/media-bot/internal/model"
	"github.com/ytget/media-bot/internal/recognize"
)

// Retention of delivered files
const (
	DeliveredFileDelay = 30 * time.Second
	DirectFileDelay    = 15 * time.Second
)

// UpdateTimeout is the long-polling timeout in seconds
const UpdateTimeout = 60

// MaxPendingLinks caps the quality keyboards awaiting a choice. The oldest is
// forgotten first.
const MaxPendingLinks = 512

var log = logger.Get("Bot")

// Client is the subset of the Telegram API the bot uses. *tgbotapi.BotAPI satisfies it.
type Client interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

// Recognizer identifies tracks from clips and text
type Recognizer interface {
	Recognize(ctx context.Context, path string) (*model.TrackRecord, bool)
	Search(ctx context.Context, query string, limit int) []model.TrackRecord
}

// Tagger writes tags and cover art into audio files
type Tagger interface {
	AddMetadata(ctx context.Context, path string, tags model.AudioTags, coverURL string) bool
}

// AudioExtractor pulls the audio track out of a video file
type AudioExtractor interface {
	ExtractAudio(ctx context.Context, video string) (string, bool)
}

// Deleter schedules removal of delivered and scratch files
type Deleter interface {
	DeleteAfter(path string, delay time.Duration)
}

// PlaylistParser expands playlist URLs
type PlaylistParser interface {
	ParsePlaylist(ctx context.Context, url string) (*model.Playlist, error)
}

// Deps are the services the bot delegates to. Extractor and Playlists are optional.
type Deps struct {
	Downloader download.Downloader
	Recognizer Recognizer
	Sessions   *recognize.SessionCache
	Tagger     Tagger
	Extractor  AudioExtractor
	Deleter    Deleter
	Playlists  PlaylistParser
}

// Options tune access control
type Options struct {
	AllowedUsers []string
	FloodLimit   int
}

// pendingLink is a probed URL waiting for the user's quality choice
type pendingLink struct {
	URL      string
	Title    string
	Uploader string
}

// linkKey identifies the keyboard message a pending link belongs to
type linkKey struct {
	ChatID    int64
	MessageID int
}

// Bot routes Telegram updates to the media services
type Bot struct {
	api     *tgbotapi.BotAPI
	client  Client
	deps    Deps
	allowed map[string]bool
	flood   *FloodGuard

	mu      sync.Mutex
	pending map[linkKey]pendingLink
	order   []linkKey

	wg       sync.WaitGroup
	stopCh   chan struct{}
	stopOnce sync.Once
}

// New connects to Telegram with token
func New(token string, deps Deps, opts Options) (*Bot, error) {
	if token == "" {
		return nil, errors.New("telegram token is empty")
	}
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	b := NewWithClient(api, deps, opts)
	b.api = api
	log.Emit(logger.INFO, "Authorized as @%s\n", api.Self.UserName)
	return b, nil
}

// NewWithClient creates a bot around an existing client. Start needs a real API,
// HandleUpdate works with any client.
func NewWithClient(client Client, deps Deps, opts Options) *Bot {
	allowed := make(map[string]bool, len(opts.AllowedUsers))
	for _, u := range opts.AllowedUsers {
		allowed[u] = true
	}
	return &Bot{
		client:  client,
		deps:    deps,
		allowed: allowed,
		flood:   NewFloodGuard(opts.FloodLimit, FloodWindow),
		pending: make(map[linkKey]pendingLink),
		stopCh:  make(chan struct{}),
	}
}

// Start polls for updates until ctx is cancelled or Stop is called. Each update
// is handled on its own goroutine.
func (b *Bot) Start(ctx context.Context) error {
	if b.api == nil {
		return errors.New("bot has no telegram connection")
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = UpdateTimeout
	updates := b.api.GetUpdatesChan(u)

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer b.api.StopReceivingUpdates()

		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				b.wg.Add(1)
				go func() {
					defer b.wg.Done()
					b.HandleUpdate(ctx, update)
				}()
			case <-ctx.Done():
				return
			case <-b.stopCh:
				return
			}
		}
	}()

	log.Emit(logger.NEW, "Polling for updates\n")
	return nil
}

// Stop ends polling and waits for in-flight handlers
func (b *Bot) Stop() {
	b.stopOnce.Do(func() { close(b.stopCh) })
	b.wg.Wait()
	log.Emit(logger.STOP, "Bot stopped\n")
}

// IsAllowed reports whether senderID may use the bot. An empty allow list admits everyone.
func (b *Bot) IsAllowed(senderID int64) bool {
	if len(b.allowed) == 0 {
		return true
	}
	return b.allowed[strconv.FormatInt(senderID, 10)]
}

// HandleUpdate dispatches one update. Panics are logged and swallowed.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			log.Emit(logger.ERROR, "Handler panicked: %v\n", r)
		}
	}()

	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	}
}

// rememberLink stores link for the keyboard shown in message messageID
func (b *Bot) rememberLink(chatID int64, messageID int, link pendingLink) {
	if messageID == 0 {
		return
	}
	key := linkKey{ChatID: chatID, MessageID: messageID}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.pending[key]; !ok {
		b.order = append(b.order, key)
	}
	b.pending[key] = link

	for len(b.order) > MaxPendingLinks {
		delete(b.pending, b.order[0])
		b.order = b.order[1:]
	}
}

// takeLink returns and forgets the link behind a keyboard message
func (b *Bot) takeLink(chatID int64, messageID int) (pendingLink, bool) {
	key := linkKey{ChatID: chatID, MessageID: messageID}

	b.mu.Lock()
	defer b.mu.Unlock()
	link, ok := b.pending[key]
	if !ok {
		return pendingLink{}, false
	}
	delete(b.pending, key)
	for i, k := range b.order {
		if k == key {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
	return link, true
}

func (b *Bot) pendingCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

func (b *Bot) scheduleDelete(path string, delay time.Duration) {
	if b.deps.Deleter == nil || path == "" {
		return
	}
	b.deps.Deleter.DeleteAfter(path, delay)
}

// send posts an HTML message and returns its ID, 0 on failure
func (b *Bot) send(chatID int64, text string) int {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true

	sent, err := b.client.Send(msg)
	if err != nil {
		log.Emit(logger.WARNING, "Failed to send message to %d: %v\n", chatID, err)
		return 0
	}
	return sent.MessageID
}

// edit replaces the text of a status message, falling back to a new message.
// It returns the ID of the message now showing text, 0 on failure.
func (b *Bot) edit(chatID int64, messageID int, text string, markup *tgbotapi.InlineKeyboardMarkup) int {
	if messageID == 0 {
		msg := tgbotapi.NewMessage(chatID, text)
		msg.ParseMode = tgbotapi.ModeHTML
		msg.DisableWebPagePreview = true
		if markup != nil {
			msg.ReplyMarkup = *markup
		}
		sent, err := b.client.Send(msg)
		if err != nil {
			log.Emit(logger.WARNING, "Failed to send message to %d: %v\n", chatID, err)
			return 0
		}
		return sent.MessageID
	}

	cfg := tgbotapi.NewEditMessageText(chatID, messageID, text)
	cfg.ParseMode = tgbotapi.ModeHTML
	cfg.DisableWebPagePreview = true
	cfg.ReplyMarkup = markup
	if _, err := b.client.Request(cfg); err != nil {
		log.Emit(logger.WARNING, "Failed to edit message %d: %v\n", messageID, err)
		return 0
	}
	return messageID
}

func (b *Bot) remove(chatID int64, messageID int) {
	if messageID == 0 {
		return
	}
	if _, err := b.client.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		log.Emit(logger.DEBUG, "Failed to delete message %d: %v\n", messageID, err)
	}
}

func (b *Bot) answer(callbackID, text string, alert bool) {
	cfg := tgbotapi.NewCallback(callbackID, text)
	cfg.ShowAlert = alert
	if _, err := b.client.Request(cfg); err != nil {
		log.Emit(logger.DEBUG, "Failed to answer callback: %v\n", err)
	}
}

// deliver uploads a file. Audio goes out as an audio message, everything else as a
// document so Telegram does not recompress it.
func (b *Bot) deliver(chatID int64, result *model.DownloadResult, caption string, track *model.TrackRecord) bool {
	file := tgbotapi.FilePath(result.Path)

	var upload tgbotapi.Chattable
	switch {
	case track != nil || result.Extension == "mp3" || result.Extension == "m4a":
		audio := tgbotapi.NewAudio(chatID, file)
		audio.Caption = caption
		audio.ParseMode = tgbotapi.ModeHTML
		if track != nil {
			audio.Title = track.Title
			audio.Performer = track.Artist
		}
		upload = audio
	default:
		doc := tgbotapi.NewDocument(chatID, file)
		doc.Caption = caption
		doc.ParseMode = tgbotapi.ModeHTML
		upload = doc
	}

	if _, err := b.client.Send(upload); err != nil {
		log.Emit(logger.WARNING, "Failed to deliver %s to %d: %v\n", result.FileName(), chatID, err)
		return false
	}
	log.Emit(logger.SUCCESS, "Delivered %s to %d\n", result.FileName(), chatID)
	return true
}
