package download

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lrstanley/go-ytdlp"
	"github.com/ytget/media-bot/internal/model"
)

// Engine defaults
const (
	DefaultExecutable      = "yt-dlp"
	DefaultRetries         = 10
	DefaultFragmentRetries = 10
	DefaultSocketTimeout   = 60 * time.Second
	ProgressInterval       = 500 * time.Millisecond
	MergeContainer         = "mp4"
)

// Options describe one download invocation of the extraction engine
type Options struct {
	// Selector is the format selector; empty lets the engine choose
	Selector string

	// OutputTemplate is the output path; the engine may append or rewrite the extension
	OutputTemplate string

	// MergeFormat is the container used when video and audio streams are merged
	MergeFormat string

	// ExtractAudio enables the engine's audio post-processor
	ExtractAudio bool
	AudioFormat  string
	AudioQuality string

	// Progress receives progress updates, may be nil
	Progress func(model.DownloadProgress)
}

// EngineConfig holds the network hardening options passed on every invocation
type EngineConfig struct {
	Executable      string
	UserAgent       string
	AcceptLanguage  string
	Retries         int
	FragmentRetries int
	SocketTimeout   time.Duration
	ForceIPv4       bool
	CookieFile      string
	Proxy           string
}

// YTDLPEngine implements Engine on top of the yt-dlp binary
type YTDLPEngine struct {
	cfg EngineConfig
}

// NewYTDLPEngine creates a yt-dlp backed engine
func NewYTDLPEngine(cfg EngineConfig) *YTDLPEngine {
	if cfg.Executable == "" {
		cfg.Executable = DefaultExecutable
	}
	if cfg.Retries <= 0 {
		cfg.Retries = DefaultRetries
	}
	if cfg.FragmentRetries <= 0 {
		cfg.FragmentRetries = DefaultFragmentRetries
	}
	if cfg.SocketTimeout <= 0 {
		cfg.SocketTimeout = DefaultSocketTimeout
	}
	return &YTDLPEngine{cfg: cfg}
}

// newCommand returns a quiet yt-dlp command with the configured executable and proxy
func (e *YTDLPEngine) newCommand() *ytdlp.Command {
	cmd := ytdlp.New().
		Quiet().
		NoWarnings().
		IgnoreConfig().
		NoPlaylist().
		SetExecutable(e.cfg.Executable)

	if e.cfg.Proxy != "" {
		cmd.Proxy(e.cfg.Proxy)
	}
	return cmd
}

// commonArgs returns the network hardening args shared by every invocation
func (e *YTDLPEngine) commonArgs() []string {
	args := []string{
		"--retries", strconv.Itoa(e.cfg.Retries),
		"--fragment-retries", strconv.Itoa(e.cfg.FragmentRetries),
		"--socket-timeout", strconv.Itoa(int(e.cfg.SocketTimeout.Seconds())),
	}
	if e.cfg.ForceIPv4 {
		args = append(args, "--force-ipv4")
	}
	if e.cfg.UserAgent != "" {
		args = append(args, "--user-agent", e.cfg.UserAgent)
	}
	if e.cfg.AcceptLanguage != "" {
		args = append(args, "--add-headers", "Accept-Language:"+e.cfg.AcceptLanguage)
	}
	if e.cfg.CookieFile != "" {
		args = append(args, "--cookies", e.cfg.CookieFile)
	}
	return args
}

// Extract runs the engine in metadata-only mode and returns its JSON document
func (e *YTDLPEngine) Extract(ctx context.Context, url string) ([]byte, error) {
	args := append(e.commonArgs(), "--dump-single-json", "--skip-download", url)

	res, err := e.newCommand().Run(ctx, args...)
	if err != nil {
		return nil, fmt.Errorf("yt-dlp metadata extraction failed: %w", err)
	}

	out := strings.TrimSpace(res.Stdout)
	if out == "" {
		return nil, fmt.Errorf("yt-dlp returned no metadata for %s", url)
	}
	return []byte(out), nil
}

// Download runs the engine with the given options
func (e *YTDLPEngine) Download(ctx context.Context, url string, opts Options) error {
	cmd := e.newCommand().
		NoPart().
		ForceOverwrites().
		Output(opts.OutputTemplate)

	if opts.Selector != "" {
		cmd.Format(opts.Selector)
	}

	if opts.Progress != nil {
		sink := opts.Progress
		cmd.ProgressFunc(ProgressInterval, func(update ytdlp.ProgressUpdate) {
			sink(progressFromUpdate(update))
		})
	}

	args := e.commonArgs()
	if opts.MergeFormat != "" {
		args = append(args, "--merge-output-format", opts.MergeFormat)
	}
	if opts.ExtractAudio {
		args = append(args, "--extract-audio")
		if opts.AudioFormat != "" {
			args = append(args, "--audio-format", opts.AudioFormat)
		}
		if opts.AudioQuality != "" {
			args = append(args, "--audio-quality", opts.AudioQuality)
		}
	}
	args = append(args, url)

	if _, err := cmd.Run(ctx, args...); err != nil {
		return fmt.Errorf("yt-dlp download failed: %w", err)
	}
	return nil
}

// progressFromUpdate maps a yt-dlp progress update onto the model snapshot
func progressFromUpdate(update ytdlp.ProgressUpdate) model.DownloadProgress {
	p := model.DownloadProgress{
		Status:          model.DownloadStatusDownloading,
		DownloadedBytes: int64(update.DownloadedBytes),
		TotalBytes:      int64(update.TotalBytes),
		ETASec:          -1,
	}

	if update.TotalBytes > 0 {
		p.Percent = int(float64(update.DownloadedBytes) / float64(update.TotalBytes) * 100)
		if update.DownloadedBytes >= update.TotalBytes {
			p.Status = model.DownloadStatusPostProcessing
		}
	}

	if eta := update.ETA(); eta > 0 {
		p.ETASec = int(eta.Seconds())
	}

	if update.Info != nil && update.Info.Title != nil {
		p.Title = *update.Info.Title
	}
	return p
}
