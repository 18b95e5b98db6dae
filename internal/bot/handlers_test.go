package bot

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ytget/media-bot/internal/model"
	"github.com/ytget/media-bot/internal/recognize"
)

const testUser int64 = 42

type fakeClient struct {
	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
	nextID   int
	fileURL  string
	fileErr  error
}

func (c *fakeClient) Send(chattable tgbotapi.Chattable) (tgbotapi.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, chattable)
	c.nextID++
	return tgbotapi.Message{MessageID: 100 + c.nextID}, nil
}

func (c *fakeClient) Request(chattable tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests = append(c.requests, chattable)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (c *fakeClient) GetFileDirectURL(string) (string, error) {
	return c.fileURL, c.fileErr
}

func (c *fakeClient) sentTexts() []string {
	var texts []string
	for _, s := range c.sent {
		if m, ok := s.(tgbotapi.MessageConfig); ok {
			texts = append(texts, m.Text)
		}
	}
	return texts
}

func (c *fakeClient) edits() []tgbotapi.EditMessageTextConfig {
	var edits []tgbotapi.EditMessageTextConfig
	for _, r := range c.requests {
		if e, ok := r.(tgbotapi.EditMessageTextConfig); ok {
			edits = append(edits, e)
		}
	}
	return edits
}

func (c *fakeClient) callbacks() []tgbotapi.CallbackConfig {
	var answers []tgbotapi.CallbackConfig
	for _, r := range c.requests {
		if a, ok := r.(tgbotapi.CallbackConfig); ok {
			answers = append(answers, a)
		}
	}
	return answers
}

func (c *fakeClient) uploads() []tgbotapi.Chattable {
	var files []tgbotapi.Chattable
	for _, s := range c.sent {
		switch s.(type) {
		case tgbotapi.AudioConfig, tgbotapi.DocumentConfig:
			files = append(files, s)
		}
	}
	return files
}

type downloadCall struct {
	URL       string
	Quality   string
	AudioOnly bool
}

type fakeDownloader struct {
	info        *model.MediaInfo
	result      *model.DownloadResult
	ok          bool
	downloads   []downloadCall
	directURLs  []string
	searchQuery string
}

func (f *fakeDownloader) Probe(context.Context, string) (*model.MediaInfo, bool) {
	return f.info, f.info != nil
}

func (f *fakeDownloader) ListQualities(context.Context, string) []model.QualityOption {
	return nil
}

func (f *fakeDownloader) Download(_ context.Context, url, quality string, audioOnly bool, _ func(model.DownloadProgress)) (*model.DownloadResult, bool) {
	f.downloads = append(f.downloads, downloadCall{URL: url, Quality: quality, AudioOnly: audioOnly})
	return f.result, f.ok
}

func (f *fakeDownloader) DownloadDirect(_ context.Context, url string) (*model.DownloadResult, bool) {
	f.directURLs = append(f.directURLs, url)
	return f.result, f.ok
}

func (f *fakeDownloader) DownloadImage(context.Context, string) (*model.DownloadResult, bool) {
	return nil, false
}

func (f *fakeDownloader) GetThumbnail(context.Context, string) string {
	return ""
}

func (f *fakeDownloader) SearchAudio(_ context.Context, query string) (*model.DownloadResult, bool) {
	f.searchQuery = query
	return f.result, f.ok
}

type fakeRecognizer struct {
	track      *model.TrackRecord
	hits       []model.TrackRecord
	clipPath   string
	lastSearch string
}

func (f *fakeRecognizer) Recognize(_ context.Context, path string) (*model.TrackRecord, bool) {
	f.clipPath = path
	return f.track, f.track != nil
}

func (f *fakeRecognizer) Search(_ context.Context, query string, _ int) []model.TrackRecord {
	f.lastSearch = query
	return f.hits
}

type fakeTagger struct {
	tags  []model.AudioTags
	cover string
}

func (f *fakeTagger) AddMetadata(_ context.Context, _ string, tags model.AudioTags, coverURL string) bool {
	f.tags = append(f.tags, tags)
	f.cover = coverURL
	return true
}

type fakeDeleter struct {
	mu     sync.Mutex
	paths  []string
	delays []time.Duration
}

func (f *fakeDeleter) DeleteAfter(path string, delay time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paths = append(f.paths, path)
	f.delays = append(f.delays, delay)
}

type fakePlaylists struct {
	playlist *model.Playlist
	err      error
}

func (f *fakePlaylists) ParsePlaylist(context.Context, string) (*model.Playlist, error) {
	return f.playlist, f.err
}

type harness struct {
	bot        *Bot
	client     *fakeClient
	downloader *fakeDownloader
	recognizer *fakeRecognizer
	tagger     *fakeTagger
	deleter    *fakeDeleter
	playlists  *fakePlaylists
}

func newHarness(opts Options) *harness {
	h := &harness{
		client:     &fakeClient{},
		downloader: &fakeDownloader{},
		recognizer: &fakeRecognizer{},
		tagger:     &fakeTagger{},
		deleter:    &fakeDeleter{},
		playlists:  &fakePlaylists{},
	}
	h.bot = NewWithClient(h.client, Deps{
		Downloader: h.downloader,
		Recognizer: h.recognizer,
		Sessions:   recognize.NewSessionCache(recognize.NewMemoryStore()),
		Tagger:     h.tagger,
		Deleter:    h.deleter,
		Playlists:  h.playlists,
	}, opts)
	return h
}

func textUpdate(text string) tgbotapi.Update {
	msg := &tgbotapi.Message{
		MessageID: 1,
		From:      &tgbotapi.User{ID: testUser},
		Chat:      &tgbotapi.Chat{ID: testUser},
		Text:      text,
	}
	if len(text) > 0 && text[0] == '/' {
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(text)}}
	}
	return tgbotapi.Update{Message: msg}
}

func callbackUpdate(data string) tgbotapi.Update {
	return callbackOn(7, data)
}

// callbackOn is a button press on the keyboard attached to message messageID
func callbackOn(messageID int, data string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb",
		From:    &tgbotapi.User{ID: testUser},
		Message: &tgbotapi.Message{MessageID: messageID, Chat: &tgbotapi.Chat{ID: testUser}},
		Data:    data,
	}}
}

// lastKeyboard returns the ID of the most recent message edited to carry a keyboard
func (c *fakeClient) lastKeyboard(t *testing.T) int {
	t.Helper()
	edits := c.edits()
	for i := len(edits) - 1; i >= 0; i-- {
		if edits[i].ReplyMarkup != nil {
			return edits[i].MessageID
		}
	}
	t.Fatal("no keyboard was shown")
	return 0
}

func TestHandleUpdate_Commands(t *testing.T) {
	h := newHarness(Options{})

	h.bot.HandleUpdate(context.Background(), textUpdate("/start"))
	h.bot.HandleUpdate(context.Background(), textUpdate("/help"))
	h.bot.HandleUpdate(context.Background(), textUpdate("/unknown"))

	assert.Equal(t, []string{startText, helpText}, h.client.sentTexts())
}

func TestHandleUpdate_DisallowedUser(t *testing.T) {
	h := newHarness(Options{AllowedUsers: []string{"1"}})

	h.bot.HandleUpdate(context.Background(), textUpdate("/start"))
	h.bot.HandleUpdate(context.Background(), callbackUpdate("t:0"))

	assert.Empty(t, h.client.sent)
	assert.Empty(t, h.client.requests)
}

func TestHandleUpdate_FloodGuard(t *testing.T) {
	h := newHarness(Options{FloodLimit: 1})

	h.bot.HandleUpdate(context.Background(), textUpdate("/start"))
	h.bot.HandleUpdate(context.Background(), textUpdate("/start"))

	assert.Equal(t, []string{startText, msgSlowDown}, h.client.sentTexts())
}

func TestHandleUpdate_ShortTextIgnored(t *testing.T) {
	h := newHarness(Options{})

	h.bot.HandleUpdate(context.Background(), textUpdate("abc"))

	assert.Empty(t, h.client.sent)
	assert.Empty(t, h.recognizer.lastSearch)
}

func TestSearchThenSelect(t *testing.T) {
	h := newHarness(Options{})
	h.recognizer.hits = []model.TrackRecord{
		{Title: "Believer", Artist: "Imagine Dragons", CoverURL: "https://img/c.jpg"},
		{Title: "Thunder", Artist: "Imagine Dragons"},
	}
	h.downloader.result = &model.DownloadResult{Path: "/tmp/track.mp3", Extension: "mp3"}
	h.downloader.ok = true

	h.bot.HandleUpdate(context.Background(), textUpdate("imagine dragons"))

	assert.Equal(t, "imagine dragons", h.recognizer.lastSearch)
	edits := h.client.edits()
	require.NotEmpty(t, edits)
	last := edits[len(edits)-1]
	assert.Contains(t, last.Text, "1. Imagine Dragons - Believer")
	require.NotNil(t, last.ReplyMarkup)
	assert.Len(t, last.ReplyMarkup.InlineKeyboard, 2)

	h.bot.HandleUpdate(context.Background(), callbackUpdate("t:0"))

	assert.Equal(t, "Imagine Dragons Believer audio", h.downloader.searchQuery)
	require.Len(t, h.tagger.tags, 1)
	assert.Equal(t, model.AudioTags{Title: "Believer", Artist: "Imagine Dragons"}, h.tagger.tags[0])
	assert.Equal(t, "https://img/c.jpg", h.tagger.cover)

	uploads := h.client.uploads()
	require.Len(t, uploads, 1)
	audio, ok := uploads[0].(tgbotapi.AudioConfig)
	require.True(t, ok)
	assert.Equal(t, "Believer", audio.Title)
	assert.Equal(t, "Imagine Dragons", audio.Performer)

	assert.Equal(t, []string{"/tmp/track.mp3"}, h.deleter.paths)
	assert.Equal(t, []time.Duration{DeliveredFileDelay}, h.deleter.delays)
}

func TestTrackChoice_Stale(t *testing.T) {
	tests := []struct {
		name string
		data string
		hits []model.TrackRecord
	}{
		{name: "should reject selection before any search", data: "t:0"},
		{name: "should reject out of range index", data: "t:5", hits: []model.TrackRecord{{Title: "Only"}}},
		{name: "should reject malformed index", data: "t:x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(Options{})
			if tt.hits != nil {
				h.recognizer.hits = tt.hits
				h.bot.HandleUpdate(context.Background(), textUpdate("some query"))
			}

			h.bot.HandleUpdate(context.Background(), callbackUpdate(tt.data))

			answers := h.client.callbacks()
			require.NotEmpty(t, answers)
			assert.Equal(t, msgResultsExpired, answers[len(answers)-1].Text)
			assert.Empty(t, h.downloader.searchQuery)
		})
	}
}

func TestSearch_NothingFound(t *testing.T) {
	h := newHarness(Options{})

	h.bot.HandleUpdate(context.Background(), textUpdate("<nothing>"))

	edits := h.client.edits()
	require.Len(t, edits, 1)
	assert.Contains(t, edits[0].Text, "&lt;nothing&gt;")
}

func TestURLThenQuality(t *testing.T) {
	h := newHarness(Options{})
	h.downloader.info = &model.MediaInfo{
		Title:    "Clip",
		Uploader: "Channel",
		Duration: 187,
		Formats: []model.Format{
			{FormatID: "22", Extension: "mp4", Height: 720},
			{FormatID: "18", Extension: "mp4", Height: 360},
		},
	}
	h.downloader.result = &model.DownloadResult{Path: "/tmp/clip.mp4", Extension: "mp4"}
	h.downloader.ok = true

	h.bot.HandleUpdate(context.Background(), textUpdate("look https://youtu.be/abc"))

	edits := h.client.edits()
	require.NotEmpty(t, edits)
	summary := edits[len(edits)-1]
	assert.Contains(t, summary.Text, "<b>Clip</b>")
	assert.Contains(t, summary.Text, "3:07")
	require.NotNil(t, summary.ReplyMarkup)
	assert.Equal(t, "q:360", *summary.ReplyMarkup.InlineKeyboard[0][0].CallbackData)

	h.bot.HandleUpdate(context.Background(), callbackOn(summary.MessageID, "q:720"))

	require.Len(t, h.downloader.downloads, 1)
	assert.Equal(t, downloadCall{URL: "https://youtu.be/abc", Quality: "720"}, h.downloader.downloads[0])

	uploads := h.client.uploads()
	require.Len(t, uploads, 1)
	_, isDoc := uploads[0].(tgbotapi.DocumentConfig)
	assert.True(t, isDoc)
	assert.Equal(t, []time.Duration{DeliveredFileDelay}, h.deleter.delays)
	assert.Empty(t, h.tagger.tags)
}

func TestQualityChoice_AudioIsTagged(t *testing.T) {
	h := newHarness(Options{})
	h.downloader.info = &model.MediaInfo{Title: "Clip", Uploader: "Channel"}
	h.downloader.result = &model.DownloadResult{Path: "/tmp/clip.mp3", Extension: "mp3"}
	h.downloader.ok = true

	h.bot.HandleUpdate(context.Background(), textUpdate("https://youtu.be/abc"))
	h.bot.HandleUpdate(context.Background(), callbackOn(h.client.lastKeyboard(t), "q:audio"))

	require.Len(t, h.downloader.downloads, 1)
	assert.True(t, h.downloader.downloads[0].AudioOnly)
	assert.Empty(t, h.downloader.downloads[0].Quality)
	require.Len(t, h.tagger.tags, 1)
	assert.Equal(t, model.AudioTags{Title: "Clip", Artist: "Channel"}, h.tagger.tags[0])
}

func TestQualityChoice_NoPendingLink(t *testing.T) {
	h := newHarness(Options{})

	h.bot.HandleUpdate(context.Background(), callbackUpdate("q:best"))

	answers := h.client.callbacks()
	require.Len(t, answers, 1)
	assert.Equal(t, msgLinkExpired, answers[0].Text)
	assert.Empty(t, h.downloader.downloads)
}

func TestQualityChoice_OlderKeyboardKeepsItsURL(t *testing.T) {
	h := newHarness(Options{})
	h.downloader.info = &model.MediaInfo{Title: "Clip", Formats: []model.Format{{FormatID: "22", Extension: "mp4", Height: 720}}}
	h.downloader.result = &model.DownloadResult{Path: "/tmp/clip.mp4", Extension: "mp4"}
	h.downloader.ok = true

	h.bot.HandleUpdate(context.Background(), textUpdate("https://youtu.be/first"))
	first := h.client.lastKeyboard(t)
	h.bot.HandleUpdate(context.Background(), textUpdate("https://youtu.be/second"))
	second := h.client.lastKeyboard(t)
	require.NotEqual(t, first, second)

	h.bot.HandleUpdate(context.Background(), callbackOn(first, "q:720"))
	h.bot.HandleUpdate(context.Background(), callbackOn(second, "q:best"))

	require.Len(t, h.downloader.downloads, 2)
	assert.Equal(t, "https://youtu.be/first", h.downloader.downloads[0].URL)
	assert.Equal(t, "720", h.downloader.downloads[0].Quality)
	assert.Equal(t, "https://youtu.be/second", h.downloader.downloads[1].URL)
	assert.Equal(t, "best", h.downloader.downloads[1].Quality)
}

func TestQualityChoice_LinkIsUsedOnce(t *testing.T) {
	h := newHarness(Options{})
	h.downloader.info = &model.MediaInfo{Title: "Clip"}
	h.downloader.result = &model.DownloadResult{Path: "/tmp/clip.mp4", Extension: "mp4"}
	h.downloader.ok = true

	h.bot.HandleUpdate(context.Background(), textUpdate("https://youtu.be/abc"))
	keyboard := h.client.lastKeyboard(t)
	h.bot.HandleUpdate(context.Background(), callbackOn(keyboard, "q:best"))
	h.bot.HandleUpdate(context.Background(), callbackOn(keyboard, "q:best"))

	assert.Len(t, h.downloader.downloads, 1)
	answers := h.client.callbacks()
	require.Len(t, answers, 2)
	assert.Equal(t, msgLinkExpired, answers[1].Text)
	assert.Zero(t, h.bot.pendingCount())
}

func TestPendingLinks_Bounded(t *testing.T) {
	b := NewWithClient(&fakeClient{}, Deps{}, Options{})

	for i := 1; i <= MaxPendingLinks+10; i++ {
		b.rememberLink(testUser, i, pendingLink{URL: "https://youtu.be/x"})
	}

	assert.Equal(t, MaxPendingLinks, b.pendingCount())
	_, ok := b.takeLink(testUser, 1)
	assert.False(t, ok, "oldest link should be forgotten")
	link, ok := b.takeLink(testUser, MaxPendingLinks+10)
	require.True(t, ok)
	assert.Equal(t, "https://youtu.be/x", link.URL)
}

func TestURL_ProbeFailure(t *testing.T) {
	h := newHarness(Options{})

	h.bot.HandleUpdate(context.Background(), textUpdate("https://www.tiktok.com/@u/video/1"))

	edits := h.client.edits()
	require.Len(t, edits, 1)
	assert.Equal(t, msgNoInfo, edits[0].Text)
}

func TestDirectAudio(t *testing.T) {
	h := newHarness(Options{})
	h.downloader.result = &model.DownloadResult{Path: "/tmp/song.mp3", Extension: "mp3"}
	h.downloader.ok = true

	h.bot.HandleUpdate(context.Background(), textUpdate("https://cdn.example.com/song.mp3"))

	assert.Equal(t, []string{"https://cdn.example.com/song.mp3"}, h.downloader.directURLs)
	require.Len(t, h.client.uploads(), 1)
	assert.Equal(t, []time.Duration{DirectFileDelay}, h.deleter.delays)
}

func TestPlaylistListing(t *testing.T) {
	h := newHarness(Options{})
	h.playlists.playlist = &model.Playlist{
		Title: "Mix",
		Entries: []*model.PlaylistEntry{
			{Title: "First", URL: "https://www.youtube.com/watch?v=1"},
			{Title: "Second", URL: "https://www.youtube.com/watch?v=2"},
		},
	}

	h.bot.HandleUpdate(context.Background(), textUpdate("https://www.youtube.com/playlist?list=PL123"))

	edits := h.client.edits()
	require.Len(t, edits, 1)
	assert.Contains(t, edits[0].Text, "<b>Mix</b> (2 videos)")
	assert.Contains(t, edits[0].Text, "2. <a href=\"https://www.youtube.com/watch?v=2\">Second</a>")
	assert.Nil(t, h.downloader.info)
}

func TestPlaylistListing_Failure(t *testing.T) {
	h := newHarness(Options{})
	h.playlists.playlist = &model.Playlist{Status: model.PlaylistStatusError}
	h.playlists.err = errors.New("unavailable")

	h.bot.HandleUpdate(context.Background(), textUpdate("https://www.youtube.com/playlist?list=PL123"))

	edits := h.client.edits()
	require.Len(t, edits, 1)
	assert.Equal(t, msgPlaylistFailed, edits[0].Text)
}

func voiceUpdate() tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: 1,
		From:      &tgbotapi.User{ID: testUser},
		Chat:      &tgbotapi.Chat{ID: testUser},
		Voice:     &tgbotapi.Voice{FileID: "voice-1"},
	}}
}

func TestRecognition(t *testing.T) {
	h := newHarness(Options{})
	h.client.fileURL = "https://api.telegram.org/file/botTOKEN/voice/file_1.oga"
	h.downloader.result = &model.DownloadResult{Path: "/tmp/voice.oga", Extension: "oga"}
	h.downloader.ok = true
	h.recognizer.track = &model.TrackRecord{
		Title:  "Song",
		Artist: "Band",
		Links:  model.ExternalLinks{YouTube: "https://youtu.be/x"},
	}

	h.bot.HandleUpdate(context.Background(), voiceUpdate())

	assert.Equal(t, []string{h.client.fileURL}, h.downloader.directURLs)
	assert.Equal(t, "/tmp/voice.oga", h.recognizer.clipPath)
	assert.Equal(t, []string{"/tmp/voice.oga"}, h.deleter.paths)
	assert.Equal(t, []time.Duration{recognize.TempAudioDelay}, h.deleter.delays)

	edits := h.client.edits()
	require.NotEmpty(t, edits)
	last := edits[len(edits)-1]
	assert.Equal(t, "🎵 <b>Song</b>\n👤 Band\n", last.Text)
	require.NotNil(t, last.ReplyMarkup)
	assert.Len(t, last.ReplyMarkup.InlineKeyboard, 2)

	track, err := h.bot.deps.Sessions.Resolve(context.Background(), testUser, 0)
	require.NoError(t, err)
	assert.Equal(t, "Song", track.Title)
}

func TestRecognition_NoMatchStillDeletes(t *testing.T) {
	h := newHarness(Options{})
	h.client.fileURL = "https://api.telegram.org/file/botTOKEN/voice/file_1.oga"
	h.downloader.result = &model.DownloadResult{Path: "/tmp/voice.oga", Extension: "oga"}
	h.downloader.ok = true

	h.bot.HandleUpdate(context.Background(), voiceUpdate())

	assert.Equal(t, []string{"/tmp/voice.oga"}, h.deleter.paths)
	edits := h.client.edits()
	require.NotEmpty(t, edits)
	assert.Equal(t, msgNotRecognized, edits[len(edits)-1].Text)
}

func TestRecognition_FileLookupFails(t *testing.T) {
	h := newHarness(Options{})
	h.client.fileErr = errors.New("file is too big")

	h.bot.HandleUpdate(context.Background(), voiceUpdate())

	assert.Empty(t, h.downloader.directURLs)
	assert.Empty(t, h.deleter.paths)
}

func TestRecognizableFile(t *testing.T) {
	tests := []struct {
		name      string
		msg       *tgbotapi.Message
		wantID    string
		wantVideo bool
		wantOK    bool
	}{
		{name: "should accept voice", msg: &tgbotapi.Message{Voice: &tgbotapi.Voice{FileID: "v"}}, wantID: "v", wantOK: true},
		{name: "should accept audio", msg: &tgbotapi.Message{Audio: &tgbotapi.Audio{FileID: "a"}}, wantID: "a", wantOK: true},
		{name: "should accept video", msg: &tgbotapi.Message{Video: &tgbotapi.Video{FileID: "m"}}, wantID: "m", wantVideo: true, wantOK: true},
		{name: "should accept audio document", msg: &tgbotapi.Message{Document: &tgbotapi.Document{FileID: "d", FileName: "Song.FLAC"}}, wantID: "d", wantOK: true},
		{name: "should accept video document", msg: &tgbotapi.Message{Document: &tgbotapi.Document{FileID: "d", FileName: "clip.mkv"}}, wantID: "d", wantVideo: true, wantOK: true},
		{name: "should skip other documents", msg: &tgbotapi.Message{Document: &tgbotapi.Document{FileID: "d", FileName: "notes.pdf"}}},
		{name: "should skip plain text", msg: &tgbotapi.Message{Text: "hello"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, video, ok := recognizableFile(tt.msg)
			assert.Equal(t, tt.wantID, id)
			assert.Equal(t, tt.wantVideo, video)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}

func TestHandleUpdate_RecoversPanics(t *testing.T) {
	h := newHarness(Options{})
	h.bot.deps.Recognizer = nil

	assert.NotPanics(t, func() {
		h.bot.HandleUpdate(context.Background(), textUpdate("some query"))
	})
}

func TestStart_WithoutConnection(t *testing.T) {
	h := newHarness(Options{})
	assert.Error(t, h.bot.Start(context.Background()))
}
