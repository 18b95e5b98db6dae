package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/ytget/media-bot/internal/bot"
	"github.com/ytget/media-bot/internal/logger"
)

func newServeCommand(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the Telegram bot and the temp-file sweeper",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, st)
		},
	}
}

func serve(ctx context.Context, st *state) error {
	app, err := NewApp(ctx, st.settings)
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.Cleanup.Start(); err != nil {
		return err
	}

	b, err := bot.New(st.settings.Bot.TelegramToken, bot.Deps{
		Downloader: app.Downloader,
		Recognizer: app.Recognizer,
		Sessions:   app.Sessions,
		Tagger:     app.Tagger,
		Extractor:  app.Transcoder,
		Deleter:    app.Cleanup,
		Playlists:  app.Playlists,
	}, bot.Options{
		AllowedUsers: st.settings.Bot.AllowedUsers,
		FloodLimit:   st.settings.Bot.FloodLimit,
	})
	if err != nil {
		return err
	}

	if err := b.Start(ctx); err != nil {
		return err
	}
	log.Emit(logger.SUCCESS, "media-bot is running, temp dir %s\n", app.TempDir)

	<-ctx.Done()
	log.Emit(logger.STOP, "Shutting down\n")
	b.Stop()
	return nil
}
