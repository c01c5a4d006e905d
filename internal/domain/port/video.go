package port

import (
	"context"

	"github.com/ragavsathish/yt-sl/internal/domain/entity"
)

// MetadataFetcher probes a video without downloading its content.
type MetadataFetcher interface {
	FetchMetadata(ctx context.Context, url string) (*entity.VideoMetadata, error)
}

// VideoDownloader fetches the video content to a local path.
type VideoDownloader interface {
	DownloadVideo(ctx context.Context, url string, destPath string) error
}
