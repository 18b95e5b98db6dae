package cli

import (
	"context"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/ytget/media-bot/internal/audio"
	"github.com/ytget/media-bot/internal/cleanup"
	"github.com/ytget/media-bot/internal/config"
	"github.com/ytget/media-bot/internal/download"
	"github.com/ytget/media-bot/internal/logger"
	"github.com/ytget/media-bot/internal/platform"
	"github.com/ytget/media-bot/internal/recognize"
)

// RedisConnectTimeout bounds the initial Redis ping
const RedisConnectTimeout = 5 * time.Second

var log = logger.Get("App")

// App is the wired set of services built from Settings
type App struct {
	Settings   *config.Settings
	TempDir    string
	Downloader *download.Service
	Cleanup    *cleanup.Manager
	Tagger     *audio.Tagger
	Transcoder *audio.Transcoder
	Recognizer *recognize.Service
	Sessions   *recognize.SessionCache
	Playlists  *platform.PlaylistService

	closers []func() error
}

// setupLogging applies the log section of settings to the logger package. Logs go
// to stderr so command output on stdout stays parseable.
func setupLogging(settings *config.Settings) {
	logger.Log.SetOutput(os.Stderr)
	logger.Log.SetMinLevel(logger.ParseLevel(settings.Log.Level))
	color.NoColor = !settings.Log.Color
}

// NewApp wires every service. The session store falls back to memory when Redis
// is configured but unreachable.
func NewApp(ctx context.Context, settings *config.Settings) (*App, error) {
	tempDir, err := settings.EnsureTempDir()
	if err != nil {
		return nil, err
	}

	app := &App{Settings: settings, TempDir: tempDir}

	engine := download.NewYTDLPEngine(download.EngineConfig{
		Executable:      settings.Download.YTDLPPath,
		UserAgent:       settings.Download.UserAgent,
		AcceptLanguage:  settings.Download.AcceptLanguage,
		Retries:         settings.Download.Retries,
		FragmentRetries: settings.Download.FragmentRetries,
		SocketTimeout:   settings.Download.SocketTimeout,
		ForceIPv4:       settings.Download.ForceIPv4,
		CookieFile:      settings.Download.CookieFile,
		Proxy:           settings.Download.Proxy,
	})
	app.Downloader = download.NewService(download.Config{
		TempDir:       tempDir,
		Timeout:       settings.Download.Timeout,
		DirectTimeout: settings.Download.DirectTimeout,
		MaxFileSize:   settings.Download.MaxFileSize,
		AudioFormat:   settings.Audio.Format,
		AudioQuality:  settings.AudioQuality(),
		UserAgent:     settings.Download.UserAgent,
	}, engine)

	app.Cleanup = cleanup.NewManager(tempDir, settings.Cleanup.TTL, settings.Cleanup.SweepInterval)
	app.Tagger = audio.NewTagger(settings.Audio.CoverTimeout)
	app.Transcoder = audio.NewTranscoder(settings.Audio.FfmpegPath, settings.Audio.FfprobePath)
	app.Playlists = platform.NewPlaylistService()

	app.Recognizer = recognize.NewService(
		recognize.NewHTTPEngine(settings.Recognition.URL),
		app.Downloader,
		app.Cleanup,
		settings.Recognition.Timeout,
		settings.Recognition.SearchLimit,
	)
	app.Sessions = recognize.NewSessionCache(app.sessionStore(ctx))

	return app, nil
}

func (a *App) sessionStore(ctx context.Context) recognize.SessionStore {
	if a.Settings.Session.Backend != config.SessionBackendRedis {
		return recognize.NewMemoryStore()
	}

	ctx, cancel := context.WithTimeout(ctx, RedisConnectTimeout)
	defer cancel()

	store, err := recognize.NewRedisStore(ctx, a.Settings.Session.RedisAddr, a.Settings.Session.TTL)
	if err != nil {
		log.Emit(logger.WARNING, "%v, keeping sessions in memory\n", err)
		return recognize.NewMemoryStore()
	}

	log.Emit(logger.INFO, "Sessions stored in Redis at %s\n", a.Settings.Session.RedisAddr)
	a.closers = append(a.closers, store.Close)
	return store
}

// Close stops the sweeper and releases external connections
func (a *App) Close() {
	a.Cleanup.Stop()
	for _, closeFn := range a.closers {
		if err := closeFn(); err != nil {
			log.Emit(logger.WARNING, "Close failed: %v\n", err)
		}
	}
}
