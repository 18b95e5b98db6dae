package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/ytget/media-bot/internal/cleanup"
	"github.com/ytget/media-bot/internal/download"
	"github.com/ytget/media-bot/internal/model"
	"github.com/ytget/media-bot/internal/platform"
)

func newProbeCommand(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "probe <url>",
		Short: "Print metadata and available qualities of a URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := NewApp(cmd.Context(), st.settings)
			if err != nil {
				return err
			}
			defer app.Close()

			info, ok := app.Downloader.Probe(cmd.Context(), args[0])
			if !ok {
				return fmt.Errorf("no metadata for %s", args[0])
			}
			printInfo(cmd.OutOrStdout(), info)
			return nil
		},
	}
}

func printInfo(w io.Writer, info *model.MediaInfo) {
	fmt.Fprintf(w, "Title:     %s\n", info.Title)
	if info.Uploader != "" {
		fmt.Fprintf(w, "Uploader:  %s\n", info.Uploader)
	}
	if info.Duration > 0 {
		fmt.Fprintf(w, "Duration:  %ds\n", info.Duration)
	}
	if info.Extractor != "" {
		fmt.Fprintf(w, "Extractor: %s\n", info.Extractor)
	}
	if thumb := download.BestThumbnail(info); thumb != "" {
		fmt.Fprintf(w, "Thumbnail: %s\n", thumb)
	}
	printQualities(w, download.QualitiesFromFormats(info.Formats))
}

func printQualities(w io.Writer, qualities []model.QualityOption) {
	if len(qualities) == 0 {
		fmt.Fprintln(w, "No video qualities")
		return
	}
	for _, q := range qualities {
		line := fmt.Sprintf("%-6s %-5s format %s", q.Label(), q.Extension, q.FormatID)
		if q.SizeBytes > 0 {
			line += fmt.Sprintf(" %.1f MiB", float64(q.SizeBytes)/(1024*1024))
		}
		fmt.Fprintln(w, line)
	}
}

func newQualitiesCommand(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "qualities <url>",
		Short: "List the distinct video heights of a URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := NewApp(cmd.Context(), st.settings)
			if err != nil {
				return err
			}
			defer app.Close()

			printQualities(cmd.OutOrStdout(), app.Downloader.ListQualities(cmd.Context(), args[0]))
			return nil
		},
	}
}

func newDownloadCommand(st *state) *cobra.Command {
	var (
		quality   string
		audioOnly bool
		direct    bool
	)

	cmd := &cobra.Command{
		Use:   "download <url>",
		Short: "Download a URL into the temp directory and print the file path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := NewApp(cmd.Context(), st.settings)
			if err != nil {
				return err
			}
			defer app.Close()

			url := args[0]
			var (
				result *model.DownloadResult
				ok     bool
			)
			if direct {
				result, ok = app.Downloader.DownloadDirect(cmd.Context(), url)
			} else {
				result, ok = app.Downloader.Download(cmd.Context(), url, quality, audioOnly, progressPrinter(cmd.ErrOrStderr()))
			}
			if !ok {
				return fmt.Errorf("download of %s failed", url)
			}

			if audioOnly {
				if info, ok := app.Downloader.Probe(cmd.Context(), url); ok {
					app.Tagger.AddMetadata(cmd.Context(), result.Path, model.AudioTags{Title: info.Title, Artist: info.Uploader}, download.BestThumbnail(info))
				}
			}

			fmt.Fprintln(cmd.OutOrStdout(), result.Path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&quality, "quality", "q", download.QualityBest, `"best" or a height ceiling such as 720`)
	cmd.Flags().BoolVarP(&audioOnly, "audio", "a", false, "extract audio only")
	cmd.Flags().BoolVar(&direct, "direct", false, "fetch a plain file URL over HTTP")
	return cmd
}

// progressPrinter renders progress on a single terminal line
func progressPrinter(w io.Writer) func(model.DownloadProgress) {
	return func(p model.DownloadProgress) {
		switch {
		case p.Status.IsActive():
			fmt.Fprintf(w, "\r%-14s %3d%% ETA %s", p.Status, p.Percent, p.GetETAString())
		case p.Status.IsFinished():
			fmt.Fprintf(w, "\r%-14s %3d%%\n", p.Status, p.Percent)
		}
	}
}

func newRecognizeCommand(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "recognize <file|url>",
		Short: "Identify the track in an audio file or in the audio of a URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := NewApp(cmd.Context(), st.settings)
			if err != nil {
				return err
			}
			defer app.Close()

			target := args[0]
			var (
				track *model.TrackRecord
				ok    bool
			)
			if platform.IsValid(target) {
				track, ok = app.Recognizer.WithDeleter(cleanup.Immediate{}).RecognizeFromURL(cmd.Context(), target)
			} else {
				track, ok = app.Recognizer.Recognize(cmd.Context(), target)
			}
			if !ok {
				return fmt.Errorf("no match for %s", target)
			}
			printTrack(cmd.OutOrStdout(), *track)
			return nil
		},
	}
}

func printTrack(w io.Writer, t model.TrackRecord) {
	fmt.Fprintf(w, "%s - %s\n", t.Artist, t.Title)
	fields := []struct {
		label string
		value string
	}{
		{"Album", t.Album},
		{"Genre", t.Genre},
		{"Released", t.ReleaseDate},
		{"Cover", t.CoverURL},
		{"Apple Music", t.Links.AppleMusic},
		{"YouTube", t.Links.YouTube},
		{"Shazam", t.Links.Shazam},
	}
	for _, f := range fields {
		if f.value != "" {
			fmt.Fprintf(w, "  %-12s %s\n", f.label+":", f.value)
		}
	}
}

func newSearchCommand(st *state) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search tracks by free text",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := NewApp(cmd.Context(), st.settings)
			if err != nil {
				return err
			}
			defer app.Close()

			tracks := app.Recognizer.Search(cmd.Context(), strings.Join(args, " "), limit)
			if len(tracks) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Nothing found")
				return nil
			}
			for i, t := range tracks {
				fmt.Fprintf(cmd.OutOrStdout(), "%d. %s - %s\n", i+1, t.Artist, t.Title)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "maximum number of results (0 uses the configured limit)")
	return cmd
}

func newSweepCommand(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Delete temp files older than the configured TTL once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := st.settings.EnsureTempDir()
			if err != nil {
				return err
			}

			manager := cleanup.NewManager(dir, st.settings.Cleanup.TTL, st.settings.Cleanup.SweepInterval)
			removed := manager.Sweep()
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d file(s) from %s\n", removed, dir)
			return nil
		},
	}
}
