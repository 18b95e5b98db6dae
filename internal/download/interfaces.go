package download

import (
	"context"

	"github.com/ytget/media-bot/internal/model"
)

// Engine is the extraction engine contract. Extract returns the engine's metadata
// document; Download writes a file somewhere near opts.OutputTemplate.
type Engine interface {
	Extract(ctx context.Context, url string) ([]byte, error)
	Download(ctx context.Context, url string, opts Options) error
}

// Downloader is the orchestrator surface used by recognition and the chat adapter.
// Failures are reported as nil/false/empty, never as errors.
type Downloader interface {
	Probe(ctx context.Context, url string) (*model.MediaInfo, bool)
	ListQualities(ctx context.Context, url string) []model.QualityOption
	Download(ctx context.Context, url, quality string, audioOnly bool, progress func(model.DownloadProgress)) (*model.DownloadResult, bool)
	DownloadDirect(ctx context.Context, url string) (*model.DownloadResult, bool)
	DownloadImage(ctx context.Context, url string) (*model.DownloadResult, bool)
	GetThumbnail(ctx context.Context, url string) string
	SearchAudio(ctx context.Context, query string) (*model.DownloadResult, bool)
}
