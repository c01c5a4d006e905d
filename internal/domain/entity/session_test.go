package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSessionStartsAtStarting(t *testing.T) {
	t.Parallel()

	s := NewSession("abc123", "https://www.youtube.com/watch?v=abc123")

	assert.Equal(t, StatusStarting, s.Status)
	assert.Equal(t, "abc123", s.ID)
	assert.False(t, s.CreatedAt.IsZero())
	assert.Equal(t, s.CreatedAt, s.UpdatedAt)
}

func TestNextStageWalksThePipeline(t *testing.T) {
	t.Parallel()

	order := []SessionStatus{
		StatusStarting,
		StatusMetadataFetched,
		StatusVideoDownloaded,
		StatusFramesExtracted,
		StatusSlidesIdentified,
		StatusCompleted,
	}

	for i := 0; i < len(order)-1; i++ {
		next, ok := NextStage(order[i])
		require.True(t, ok)
		assert.Equal(t, order[i+1], next)
	}

	_, ok := NextStage(StatusCompleted)
	assert.False(t, ok)
	_, ok = NextStage(StatusFailed)
	assert.False(t, ok)
}

func TestTransitionsAreForwardOnly(t *testing.T) {
	t.Parallel()

	s := NewSession("abc123", "url")
	meta := &VideoMetadata{Title: "Lecture 1", DurationSeconds: 120}

	// Skipping a stage is rejected.
	require.Error(t, s.MarkVideoDownloaded("/tmp/video.mp4"))
	assert.Equal(t, StatusStarting, s.Status)

	require.NoError(t, s.MarkMetadataFetched(meta))
	require.NotNil(t, s.Metadata)
	assert.Equal(t, "Lecture 1", s.Metadata.Title)

	// Repeating a stage is rejected.
	require.Error(t, s.MarkMetadataFetched(meta))

	require.NoError(t, s.MarkVideoDownloaded("/tmp/video.mp4"))
	require.NoError(t, s.MarkFramesExtracted("/tmp/frames", 24, 5))
	require.NoError(t, s.MarkSlidesIdentified("/tmp/slides", []SlideRecord{
		{Index: 1, FrameIndex: 1, TimestampSec: 0, ImageFile: "slide_0001.jpg"},
	}))
	require.NoError(t, s.MarkCompleted("/tmp/report.md"))
	assert.Equal(t, "/tmp/report.md", s.ReportPath)

	// Terminal: nothing follows Completed.
	require.Error(t, s.MarkCompleted("/tmp/report.md"))
}

func TestMarkFailedKeepsReason(t *testing.T) {
	t.Parallel()

	s := NewSession("abc123", "url")
	require.NoError(t, s.MarkMetadataFetched(&VideoMetadata{Title: "t", DurationSeconds: 10}))

	s.MarkFailed("network timeout after 30s")

	assert.Equal(t, StatusFailed, s.Status)
	assert.Equal(t, "network timeout after 30s", s.FailureReason)
}

func TestReached(t *testing.T) {
	t.Parallel()

	s := NewSession("abc123", "url")
	require.NoError(t, s.MarkMetadataFetched(&VideoMetadata{DurationSeconds: 10}))
	require.NoError(t, s.MarkVideoDownloaded("/tmp/v.mp4"))

	assert.True(t, s.Reached(StatusStarting))
	assert.True(t, s.Reached(StatusMetadataFetched))
	assert.True(t, s.Reached(StatusVideoDownloaded))
	assert.False(t, s.Reached(StatusFramesExtracted))
	assert.False(t, s.Reached(StatusCompleted))
}

func TestParseStatus(t *testing.T) {
	t.Parallel()

	st, err := ParseStatus("FRAMES_EXTRACTED")
	require.NoError(t, err)
	assert.Equal(t, StatusFramesExtracted, st)

	_, err = ParseStatus("HALFWAY_DONE")
	assert.Error(t, err)

	// Failed is never a valid on-disk status.
	_, err = ParseStatus("FAILED")
	assert.Error(t, err)
}

func TestExpectedFrameCount(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 13, ExpectedFrameCount(65, 5))
	assert.Equal(t, 12, ExpectedFrameCount(60, 5))
	assert.Equal(t, 1, ExpectedFrameCount(0.5, 5))
	assert.Equal(t, 0, ExpectedFrameCount(0, 5))
	assert.Equal(t, 0, ExpectedFrameCount(60, 0))
}

func TestFrameTimestamp(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0.0, FrameTimestamp(1, 5))
	assert.Equal(t, 5.0, FrameTimestamp(2, 5))
	assert.Equal(t, 30.0, FrameTimestamp(7, 5))
	assert.Equal(t, 1.5, FrameTimestamp(2, 1.5))
}

func TestFilenames(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "frame_0001.jpg", FrameFilename(1, "jpg"))
	assert.Equal(t, "frame_0123.png", FrameFilename(123, "png"))
	assert.Equal(t, "slide_0001.jpg", SlideFilename(1, "jpg"))
	assert.Equal(t, "slide_0042.jpg", SlideFilename(42, "jpg"))
}
