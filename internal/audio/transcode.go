package audio

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/floostack/transcoder"
	"github.com/floostack/transcoder/ffmpeg"
	"github.com/ytget/media-bot/internal/logger"
)

// FFmpeg defaults
const (
	DefaultFfmpegPath   = "ffmpeg"
	DefaultFfprobePath  = "ffprobe"
	DefaultAudioCodec   = "mp3"
	DefaultAudioBitrate = "320k"
)

// codecEncoders maps target codecs to the ffmpeg encoder and output extension
var codecEncoders = map[string]struct {
	encoder string
	ext     string
}{
	"mp3":  {"libmp3lame", ".mp3"},
	"m4a":  {"aac", ".m4a"},
	"aac":  {"aac", ".m4a"},
	"opus": {"libopus", ".ogg"},
	"ogg":  {"libvorbis", ".ogg"},
	"flac": {"flac", ".flac"},
	"wav":  {"pcm_s16le", ".wav"},
}

var ffmpegLog = logger.Get("FFmpeg")

// Transcoder runs ffmpeg and ffprobe for audio helpers
type Transcoder struct {
	ffmpegPath  string
	ffprobePath string
}

// NewTranscoder creates a transcoder using the given binaries
func NewTranscoder(ffmpegPath, ffprobePath string) *Transcoder {
	if ffmpegPath == "" {
		ffmpegPath = DefaultFfmpegPath
	}
	if ffprobePath == "" {
		ffprobePath = DefaultFfprobePath
	}
	return &Transcoder{ffmpegPath: ffmpegPath, ffprobePath: ffprobePath}
}

func (t *Transcoder) config(progress bool) *ffmpeg.Config {
	return &ffmpeg.Config{
		ProgressEnabled: progress,
		FfmpegBinPath:   t.ffmpegPath,
		FfprobeBinPath:  t.ffprobePath,
	}
}

// Transcode converts input to codec at bitrate, writing a sibling file with the
// codec's extension. Returns the output path; best-effort.
func (t *Transcoder) Transcode(ctx context.Context, input, codec, bitrate string) (string, bool) {
	if codec == "" {
		codec = DefaultAudioCodec
	}
	if bitrate == "" {
		bitrate = DefaultAudioBitrate
	}

	target, ok := codecEncoders[strings.ToLower(codec)]
	if !ok {
		ffmpegLog.Emit(logger.WARNING, "Unsupported target codec %q\n", codec)
		return "", false
	}

	output := strings.TrimSuffix(input, filepath.Ext(input)) + target.ext
	if output == input {
		output = strings.TrimSuffix(input, filepath.Ext(input)) + "_transcoded" + target.ext
	}

	skipVideo := true
	overwrite := true
	opts := &ffmpeg.Options{
		AudioCodec:   &target.encoder,
		AudioBitrate: &bitrate,
		SkipVideo:    &skipVideo,
		Overwrite:    &overwrite,
	}

	if err := t.run(ctx, input, output, opts); err != nil {
		ffmpegLog.Emit(logger.WARNING, "Transcode of %s failed: %v\n", filepath.Base(input), err)
		return "", false
	}
	return output, true
}

// ExtractAudio pulls the audio track of a video into an mp3 at the default bitrate
func (t *Transcoder) ExtractAudio(ctx context.Context, video string) (string, bool) {
	return t.Transcode(ctx, video, DefaultAudioCodec, DefaultAudioBitrate)
}

// Duration returns the length in whole seconds of an mp3 or m4a file
func (t *Transcoder) Duration(path string) (int, bool) {
	if !IsSupported(path) {
		return 0, false
	}

	metadata, err := ffmpeg.New(t.config(false)).Input(path).GetMetadata()
	if err != nil {
		ffmpegLog.Emit(logger.DEBUG, "ffprobe failed for %s: %v\n", path, err)
		return 0, false
	}

	seconds, err := parseDuration(metadata)
	if err != nil {
		ffmpegLog.Emit(logger.DEBUG, "Invalid duration for %s: %v\n", path, err)
		return 0, false
	}
	return seconds, true
}

func parseDuration(metadata transcoder.Metadata) (int, error) {
	if metadata == nil || metadata.GetFormat() == nil {
		return 0, fmt.Errorf("no format metadata")
	}
	value, err := strconv.ParseFloat(metadata.GetFormat().GetDuration(), 64)
	if err != nil {
		return 0, err
	}
	return int(value), nil
}

// run drives one ffmpeg invocation and drains its progress channel
func (t *Transcoder) run(ctx context.Context, input, output string, opts transcoder.Options) error {
	if _, err := os.Stat(input); err != nil {
		return fmt.Errorf("input file does not exist: %s", input)
	}
	if err := os.Remove(output); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear previous output: %w", err)
	}
	started := time.Now()

	progressChannel, err := ffmpeg.
		New(t.config(true)).
		Input(input).
		Output(output).
		WithContext(&ctx).
		Start(opts)
	if err != nil {
		return fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	for prog := range progressChannel {
		ffmpegLog.Emit(logger.VERBOSE, "Transcoding %s: %.1f%%\n", filepath.Base(input), prog.GetProgress())
	}

	if err := ctx.Err(); err != nil {
		_ = os.Remove(output)
		return fmt.Errorf("transcode cancelled: %w", err)
	}

	return checkOutput(output, started)
}

// checkOutput accepts a non-empty file written no earlier than started. Mtimes are
// compared at second granularity.
func checkOutput(output string, started time.Time) error {
	info, err := os.Stat(output)
	if err != nil || info.Size() == 0 {
		return fmt.Errorf("ffmpeg produced no output at %s", output)
	}
	if info.ModTime().Before(started.Truncate(time.Second)) {
		return fmt.Errorf("output %s predates this run", output)
	}
	return nil
}
