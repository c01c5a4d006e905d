package port

import "context"

type FrameSamplingResult struct {
	FramePaths    []string
	FrameCount    int
	VideoDuration float64
}

// FrameSampler extracts still frames from a video at a fixed interval. The
// interval is part of the sampler's configuration; frame files are named by
// 1-based sequence number so timestamps can be rebuilt from filenames alone.
type FrameSampler interface {
	SampleFrames(ctx context.Context, videoPath string, outputDir string) (*FrameSamplingResult, error)
}
