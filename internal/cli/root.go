package cli

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/ytget/media-bot/internal/config"
)

// state carries what the persistent pre-run loaded to the subcommands
type state struct {
	configPath string
	settings   *config.Settings
}

// NewRootCommand builds the media-bot command tree
func NewRootCommand(version string) *cobra.Command {
	st := &state{}

	root := &cobra.Command{
		Use:           "media-bot",
		Short:         "Media downloader and music recognition bot",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			settings, err := config.Load(st.configPath)
			if err != nil {
				return err
			}
			setupLogging(settings)
			st.settings = settings
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&st.configPath, "config", "c", "", "path to a YAML config file (environment variables override it)")

	root.AddCommand(
		newServeCommand(st),
		newProbeCommand(st),
		newQualitiesCommand(st),
		newDownloadCommand(st),
		newRecognizeCommand(st),
		newSearchCommand(st),
		newSweepCommand(st),
	)
	return root
}

// Execute runs the command tree and exits non-zero on failure
func Execute(version string) {
	if err := NewRootCommand(version).Execute(); err != nil {
		os.Exit(1)
	}
}
