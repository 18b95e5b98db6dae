package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Default values
const (
	DefaultTempDir            = "./temp"
	DefaultDownloadTimeout    = 15 * time.Minute
	DefaultDirectTimeout      = 60 * time.Second
	DefaultCoverTimeout       = 15 * time.Second
	DefaultRecognitionTimeout = 40 * time.Second
	DefaultTempTTL            = 30 * time.Minute
	DefaultSweepInterval      = 5 * time.Minute
	DefaultMaxFileSize        = 2 * 1024 * 1024 * 1024 // Telegram hard limit
	DefaultAudioFormat        = "mp3"
	DefaultAudioBitrate       = "320k"
	DefaultSearchLimit        = 10
	DefaultFloodLimit         = 5
	DefaultRecognizerURL      = "http://127.0.0.1:3737"
	DefaultUserAgent          = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36"
	DefaultAcceptLanguage     = "en-US,en;q=0.9"
)

// Session store backends
const (
	SessionBackendMemory = "memory"
	SessionBackendRedis  = "redis"
)

// Settings is the full process configuration. Values come from an optional YAML
// file and are then overridden by MEDIABOT_* environment variables.
type Settings struct {
	TempDir string `yaml:"temp_dir" env:"MEDIABOT_TEMP_DIR" env-default:"./temp"`

	Download    DownloadConfig    `yaml:"download"`
	Audio       AudioConfig       `yaml:"audio"`
	Recognition RecognitionConfig `yaml:"recognition"`
	Cleanup     CleanupConfig     `yaml:"cleanup"`
	Session     SessionConfig     `yaml:"session"`
	Bot         BotConfig         `yaml:"bot"`
	Log         LogConfig         `yaml:"log"`
}

// DownloadConfig holds extraction engine tunables and network hardening options
type DownloadConfig struct {
	YTDLPPath       string        `yaml:"ytdlp_path" env:"MEDIABOT_YTDLP_PATH" env-default:"yt-dlp"`
	Timeout         time.Duration `yaml:"timeout" env:"MEDIABOT_DOWNLOAD_TIMEOUT" env-default:"15m"`
	DirectTimeout   time.Duration `yaml:"direct_timeout" env:"MEDIABOT_DIRECT_TIMEOUT" env-default:"60s"`
	MaxFileSize     int64         `yaml:"max_file_size" env:"MEDIABOT_MAX_FILE_SIZE" env-default:"2147483648"`
	UserAgent       string        `yaml:"user_agent" env:"MEDIABOT_USER_AGENT"`
	AcceptLanguage  string        `yaml:"accept_language" env:"MEDIABOT_ACCEPT_LANGUAGE"`
	Retries         int           `yaml:"retries" env:"MEDIABOT_RETRIES" env-default:"10"`
	FragmentRetries int           `yaml:"fragment_retries" env:"MEDIABOT_FRAGMENT_RETRIES" env-default:"10"`
	SocketTimeout   time.Duration `yaml:"socket_timeout" env:"MEDIABOT_SOCKET_TIMEOUT" env-default:"60s"`
	ForceIPv4       bool          `yaml:"force_ipv4" env:"MEDIABOT_FORCE_IPV4" env-default:"true"`
	CookieFile      string        `yaml:"cookie_file" env:"MEDIABOT_COOKIE_FILE"`
	Proxy           string        `yaml:"proxy" env:"MEDIABOT_PROXY"`
}

// AudioConfig holds audio post-processing and tagging options
type AudioConfig struct {
	Format       string        `yaml:"format" env:"MEDIABOT_AUDIO_FORMAT" env-default:"mp3"`
	Bitrate      string        `yaml:"bitrate" env:"MEDIABOT_AUDIO_BITRATE" env-default:"320k"`
	CoverTimeout time.Duration `yaml:"cover_timeout" env:"MEDIABOT_COVER_TIMEOUT" env-default:"15s"`
	FfmpegPath   string        `yaml:"ffmpeg_path" env:"MEDIABOT_FFMPEG_PATH" env-default:"ffmpeg"`
	FfprobePath  string        `yaml:"ffprobe_path" env:"MEDIABOT_FFPROBE_PATH" env-default:"ffprobe"`
}

// RecognitionConfig points at the fingerprint recognition sidecar
type RecognitionConfig struct {
	URL         string        `yaml:"url" env:"MEDIABOT_RECOGNIZER_URL" env-default:"http://127.0.0.1:3737"`
	Timeout     time.Duration `yaml:"timeout" env:"MEDIABOT_RECOGNITION_TIMEOUT" env-default:"40s"`
	SearchLimit int           `yaml:"search_limit" env:"MEDIABOT_SEARCH_LIMIT" env-default:"10"`
}

// CleanupConfig controls the scratch directory sweeper
type CleanupConfig struct {
	TTL           time.Duration `yaml:"ttl" env:"MEDIABOT_TEMP_TTL" env-default:"30m"`
	SweepInterval time.Duration `yaml:"sweep_interval" env:"MEDIABOT_SWEEP_INTERVAL" env-default:"5m"`
}

// SessionConfig selects where per-user search results are held
type SessionConfig struct {
	Backend   string        `yaml:"backend" env:"MEDIABOT_SESSION_BACKEND" env-default:"memory"`
	RedisAddr string        `yaml:"redis_addr" env:"MEDIABOT_REDIS_ADDR" env-default:"127.0.0.1:6379"`
	TTL       time.Duration `yaml:"ttl" env:"MEDIABOT_SESSION_TTL"`
}

// BotConfig configures the chat adapter
type BotConfig struct {
	TelegramToken string   `yaml:"telegram_token" env:"MEDIABOT_TELEGRAM_TOKEN"`
	AllowedUsers  []string `yaml:"allowed_users" env:"MEDIABOT_ALLOWED_USERS"`
	FloodLimit    int      `yaml:"flood_limit" env:"MEDIABOT_FLOOD_LIMIT" env-default:"5"`
}

// LogConfig controls the logger package
type LogConfig struct {
	Level string `yaml:"level" env:"MEDIABOT_LOG_LEVEL" env-default:"info"`
	Color bool   `yaml:"color" env:"MEDIABOT_LOG_COLOR" env-default:"true"`
}

// Load reads settings from path (if non-empty) and the environment.
func Load(path string) (*Settings, error) {
	settings := &Settings{}

	var err error
	if path != "" {
		err = cleanenv.ReadConfig(path, settings)
	} else {
		err = cleanenv.ReadEnv(settings)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	settings.applyFallbacks()
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	return settings, nil
}

// applyFallbacks fills values cleanenv leaves empty when a YAML file sets a key to zero
func (s *Settings) applyFallbacks() {
	if s.TempDir == "" {
		s.TempDir = DefaultTempDir
	}
	if s.Download.UserAgent == "" {
		s.Download.UserAgent = DefaultUserAgent
	}
	if s.Download.AcceptLanguage == "" {
		s.Download.AcceptLanguage = DefaultAcceptLanguage
	}
	if s.Audio.Format == "" {
		s.Audio.Format = DefaultAudioFormat
	}
	if s.Audio.Bitrate == "" {
		s.Audio.Bitrate = DefaultAudioBitrate
	}
	if s.Recognition.SearchLimit <= 0 {
		s.Recognition.SearchLimit = DefaultSearchLimit
	}
	if s.Bot.FloodLimit <= 0 {
		s.Bot.FloodLimit = DefaultFloodLimit
	}
	if s.Session.Backend == "" {
		s.Session.Backend = SessionBackendMemory
	}
	s.Session.Backend = strings.ToLower(s.Session.Backend)
}

// Validate checks that every deadline and interval is usable
func (s *Settings) Validate() error {
	durations := map[string]time.Duration{
		"download.timeout":        s.Download.Timeout,
		"download.direct_timeout": s.Download.DirectTimeout,
		"audio.cover_timeout":     s.Audio.CoverTimeout,
		"recognition.timeout":     s.Recognition.Timeout,
		"cleanup.ttl":             s.Cleanup.TTL,
		"cleanup.sweep_interval":  s.Cleanup.SweepInterval,
	}
	for key, d := range durations {
		if d <= 0 {
			return fmt.Errorf("invalid configuration: %s must be positive, got %s", key, d)
		}
	}

	if s.Download.MaxFileSize < 0 {
		return fmt.Errorf("invalid configuration: download.max_file_size must not be negative")
	}

	switch s.Session.Backend {
	case SessionBackendMemory, SessionBackendRedis:
	default:
		return fmt.Errorf("invalid configuration: unknown session backend %q", s.Session.Backend)
	}

	return nil
}

// AudioQuality returns the bitrate in the numeric form the extraction engine expects ("320k" -> "320")
func (s *Settings) AudioQuality() string {
	return strings.TrimSuffix(strings.ToLower(s.Audio.Bitrate), "k")
}

// EnsureTempDir creates the scratch directory and returns its absolute path
func (s *Settings) EnsureTempDir() (string, error) {
	abs, err := filepath.Abs(s.TempDir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve temp dir %s: %w", s.TempDir, err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return "", fmt.Errorf("failed to create temp dir %s: %w", abs, err)
	}
	return abs, nil
}
