package port

import "context"

// Zipper bundles slide images and the report into a single archive.
type Zipper interface {
	CreateZip(ctx context.Context, filePaths []string, outputPath string) error
}
