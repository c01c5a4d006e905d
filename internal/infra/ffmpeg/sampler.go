package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/ragavsathish/yt-sl/internal/domain/entity"
	"github.com/ragavsathish/yt-sl/internal/domain/port"
	"go.uber.org/zap"
)

// Sampler extracts one still frame every intervalSeconds from a video via
// the ffmpeg CLI, writing frame_0001.<format>, frame_0002.<format>, ... into
// the output directory.
type Sampler struct {
	ffmpegBin       string
	ffprobeBin      string
	intervalSeconds float64
	format          string
	jpegQuality     int
	logger          *zap.Logger
}

func NewSampler(intervalSeconds float64, format string, jpegQuality int, logger *zap.Logger) *Sampler {
	return &Sampler{
		ffmpegBin:       "ffmpeg",
		ffprobeBin:      "ffprobe",
		intervalSeconds: intervalSeconds,
		format:          format,
		jpegQuality:     jpegQuality,
		logger:          logger,
	}
}

func (s *Sampler) SampleFrames(ctx context.Context, videoPath string, outputDir string) (*port.FrameSamplingResult, error) {
	duration, err := s.probeDuration(ctx, videoPath)
	if err != nil {
		s.logger.Warn("could not get video duration", zap.Error(err))
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, entity.ErrFilesystem("create frames directory", err)
	}

	framePattern := filepath.Join(outputDir, fmt.Sprintf("frame_%%04d.%s", s.format))
	args := []string{
		"-i", videoPath,
		"-vf", fmt.Sprintf("fps=1/%g", s.intervalSeconds),
	}
	if s.format == "jpg" {
		args = append(args, "-q:v", strconv.Itoa((100-s.jpegQuality)/10))
	}
	args = append(args, "-y", framePattern)

	cmd := exec.CommandContext(ctx, s.ffmpegBin, args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		var execErr *exec.Error
		if errors.As(err, &execErr) || errors.Is(err, fs.ErrNotExist) {
			return nil, entity.ErrDependencyMissing("ffmpeg",
				"Install it with apt-get install ffmpeg or your system package manager.", err)
		}
		return nil, fmt.Errorf("ffmpeg error: %w, output: %s", err, strings.TrimSpace(string(output)))
	}

	globPattern := filepath.Join(outputDir, fmt.Sprintf("frame_*.%s", s.format))
	frames, err := filepath.Glob(globPattern)
	if err != nil {
		return nil, entity.ErrInternal("glob frames", err)
	}
	if len(frames) == 0 {
		return nil, entity.ErrInternal("no frames extracted from video", nil)
	}
	sortBySequence(frames)

	s.logger.Info("frames extracted",
		zap.Int("count", len(frames)),
		zap.Float64("video_duration", duration),
	)

	return &port.FrameSamplingResult{
		FramePaths:    frames,
		FrameCount:    len(frames),
		VideoDuration: duration,
	}, nil
}

func (s *Sampler) probeDuration(ctx context.Context, videoPath string) (float64, error) {
	cmd := exec.CommandContext(ctx, s.ffprobeBin,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		videoPath,
	)
	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe: %w", err)
	}

	durationStr := strings.TrimSpace(string(output))
	duration, err := strconv.ParseFloat(durationStr, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration: %w", err)
	}
	return duration, nil
}

// filepath.Glob returns lexical order, which goes wrong past frame_9999 when
// ffmpeg widens the number field. Sort on the parsed sequence instead.
func sortBySequence(frames []string) {
	sort.Slice(frames, func(i, j int) bool {
		return frameSequence(frames[i]) < frameSequence(frames[j])
	})
}

func frameSequence(path string) int {
	base := strings.TrimPrefix(filepath.Base(path), "frame_")
	if dot := strings.IndexByte(base, '.'); dot >= 0 {
		base = base[:dot]
	}
	n, _ := strconv.Atoi(base)
	return n
}
