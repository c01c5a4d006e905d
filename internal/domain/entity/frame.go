package entity

import (
	"fmt"
	"math"
)

// FrameRecord ties a sampled frame file to its position in the video.
// Timestamp derives from the 1-based sequence number in the filename:
// frame_0001 is the frame at 0s.
type FrameRecord struct {
	Index        int
	Path         string
	TimestampSec float64
	Fingerprint  string
}

// SlideRecord is one deduplicated slide: the representative frame promoted
// out of its cluster, plus the text recognized on it.
type SlideRecord struct {
	Index        int     `json:"index"`
	FrameIndex   int     `json:"frame_index"`
	TimestampSec float64 `json:"timestamp_seconds"`
	ImageFile    string  `json:"image_file"`

	Text       string  `json:"-"`
	Confidence float64 `json:"-"`
}

// FrameTimestamp converts a 1-based frame sequence number to seconds.
func FrameTimestamp(seq int, intervalSec float64) float64 {
	return float64(seq-1) * intervalSec
}

// ExpectedFrameCount is the number of frames a sampler produces for the
// given duration at one frame per interval: ceil(duration / interval).
func ExpectedFrameCount(durationSec, intervalSec float64) int {
	if durationSec <= 0 || intervalSec <= 0 {
		return 0
	}
	return int(math.Ceil(durationSec / intervalSec))
}

// FrameFilename is the on-disk name of the seq-th sampled frame.
func FrameFilename(seq int, format string) string {
	return fmt.Sprintf("frame_%04d.%s", seq, format)
}

// SlideFilename is the on-disk name of the idx-th slide image (1-based).
func SlideFilename(idx int, format string) string {
	return fmt.Sprintf("slide_%04d.%s", idx, format)
}
