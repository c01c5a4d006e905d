package ffmpeg

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ragavsathish/yt-sl/internal/domain/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func fakeTool(t *testing.T, script string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tool")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0755))
	return path
}

func seedFrames(t *testing.T, dir string, names ...string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0755))
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644))
	}
}

func TestSampleFramesCollectsSortedFrames(t *testing.T) {
	outputDir := filepath.Join(t.TempDir(), "frames")
	seedFrames(t, outputDir, "frame_0002.jpg", "frame_0001.jpg", "frame_0003.jpg")

	s := NewSampler(5, "jpg", 85, zap.NewNop())
	s.ffmpegBin = fakeTool(t, "exit 0")
	s.ffprobeBin = fakeTool(t, `echo "212.500000"`)

	res, err := s.SampleFrames(context.Background(), "video.mp4", outputDir)
	require.NoError(t, err)

	assert.Equal(t, 3, res.FrameCount)
	assert.Equal(t, 212.5, res.VideoDuration)
	require.Len(t, res.FramePaths, 3)
	assert.Equal(t, "frame_0001.jpg", filepath.Base(res.FramePaths[0]))
	assert.Equal(t, "frame_0002.jpg", filepath.Base(res.FramePaths[1]))
	assert.Equal(t, "frame_0003.jpg", filepath.Base(res.FramePaths[2]))
}

func TestSampleFramesCommandArguments(t *testing.T) {
	outputDir := filepath.Join(t.TempDir(), "frames")
	seedFrames(t, outputDir, "frame_0001.jpg")
	argsFile := filepath.Join(t.TempDir(), "args.txt")

	s := NewSampler(2.5, "jpg", 85, zap.NewNop())
	s.ffmpegBin = fakeTool(t, `echo "$@" > "`+argsFile+`"`)
	s.ffprobeBin = fakeTool(t, `echo "60"`)

	_, err := s.SampleFrames(context.Background(), "video.mp4", outputDir)
	require.NoError(t, err)

	args, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	assert.Contains(t, string(args), "-i video.mp4")
	assert.Contains(t, string(args), "-vf fps=1/2.5")
	assert.Contains(t, string(args), "-q:v 1")
	assert.Contains(t, string(args), "-y")
	assert.Contains(t, string(args), "frame_%04d.jpg")
}

func TestSampleFramesPngSkipsQuality(t *testing.T) {
	outputDir := filepath.Join(t.TempDir(), "frames")
	seedFrames(t, outputDir, "frame_0001.png")
	argsFile := filepath.Join(t.TempDir(), "args.txt")

	s := NewSampler(5, "png", 85, zap.NewNop())
	s.ffmpegBin = fakeTool(t, `echo "$@" > "`+argsFile+`"`)
	s.ffprobeBin = fakeTool(t, `echo "60"`)

	_, err := s.SampleFrames(context.Background(), "video.mp4", outputDir)
	require.NoError(t, err)

	args, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	assert.Contains(t, string(args), "fps=1/5")
	assert.NotContains(t, string(args), "-q:v")
	assert.Contains(t, string(args), "frame_%04d.png")
}

func TestSampleFramesNoFramesProduced(t *testing.T) {
	s := NewSampler(5, "jpg", 85, zap.NewNop())
	s.ffmpegBin = fakeTool(t, "exit 0")
	s.ffprobeBin = fakeTool(t, `echo "60"`)

	_, err := s.SampleFrames(context.Background(), "video.mp4", filepath.Join(t.TempDir(), "frames"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no frames extracted")
}

func TestSampleFramesFfmpegFailure(t *testing.T) {
	s := NewSampler(5, "jpg", 85, zap.NewNop())
	s.ffmpegBin = fakeTool(t, `echo "Invalid data found when processing input" >&2; exit 1`)
	s.ffprobeBin = fakeTool(t, `echo "60"`)

	_, err := s.SampleFrames(context.Background(), "video.mp4", filepath.Join(t.TempDir(), "frames"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ffmpeg error")
	assert.Contains(t, err.Error(), "Invalid data")
}

func TestSampleFramesMissingFfmpeg(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope")

	s := NewSampler(5, "jpg", 85, zap.NewNop())
	s.ffmpegBin = missing
	s.ffprobeBin = missing

	_, err := s.SampleFrames(context.Background(), "video.mp4", filepath.Join(t.TempDir(), "frames"))
	require.Error(t, err)
	assert.Equal(t, entity.CategoryExternal, entity.CategoryOf(err))
	assert.Contains(t, entity.AdviceOf(err), "ffmpeg")
}

func TestSampleFramesProbeFailureIsNonFatal(t *testing.T) {
	outputDir := filepath.Join(t.TempDir(), "frames")
	seedFrames(t, outputDir, "frame_0001.jpg")

	s := NewSampler(5, "jpg", 85, zap.NewNop())
	s.ffmpegBin = fakeTool(t, "exit 0")
	s.ffprobeBin = fakeTool(t, "exit 1")

	res, err := s.SampleFrames(context.Background(), "video.mp4", outputDir)
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.VideoDuration)
	assert.Equal(t, 1, res.FrameCount)
}

func TestSortBySequenceIsNumeric(t *testing.T) {
	t.Parallel()

	frames := []string{
		"out/frame_10000.jpg",
		"out/frame_9999.jpg",
		"out/frame_0001.jpg",
	}
	sortBySequence(frames)

	assert.Equal(t, []string{
		"out/frame_0001.jpg",
		"out/frame_9999.jpg",
		"out/frame_10000.jpg",
	}, frames)
}
