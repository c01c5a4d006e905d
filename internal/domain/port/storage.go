package port

import (
	"context"
	"io"
)

// ArtifactStorage persists run outputs in object storage so users can fetch
// them after the worker's scratch directory is gone.
type ArtifactStorage interface {
	UploadArchive(ctx context.Context, objectKey string, reader io.Reader, size int64) error
	UploadReport(ctx context.Context, objectKey string, reader io.Reader, size int64) error
}
