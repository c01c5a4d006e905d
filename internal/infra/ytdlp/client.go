package ytdlp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/ragavsathish/yt-sl/internal/domain/entity"
	"go.uber.org/zap"
)

// downloadFormat prefers an mp4 container so ffmpeg can seek without
// remuxing.
const downloadFormat = "bestvideo[ext=mp4]+bestaudio[ext=m4a]/best[ext=mp4]/best"

// Client shells out to yt-dlp for metadata probes and downloads. Both
// operations run under their own timeout; hitting it surfaces as a
// retryable network timeout.
type Client struct {
	binary          string
	metadataTimeout time.Duration
	downloadTimeout time.Duration
	logger          *zap.Logger
}

func NewClient(metadataTimeout, downloadTimeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		binary:          "yt-dlp",
		metadataTimeout: metadataTimeout,
		downloadTimeout: downloadTimeout,
		logger:          logger,
	}
}

// probeOutput is the slice of yt-dlp's --dump-json output the pipeline cares
// about.
type probeOutput struct {
	Title      string  `json:"title"`
	Duration   float64 `json:"duration"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	Uploader   string  `json:"uploader"`
	UploadDate string  `json:"upload_date"`
	ViewCount  int64   `json:"view_count"`
	AgeLimit   int     `json:"age_limit"`
}

// FetchMetadata probes the video without downloading content.
func (c *Client) FetchMetadata(ctx context.Context, url string) (*entity.VideoMetadata, error) {
	ctx, cancel := context.WithTimeout(ctx, c.metadataTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, c.binary, "--dump-json", "--no-playlist", "--no-warnings", url)
	stdout, err := cmd.Output()
	if err != nil {
		return nil, c.classifyError(ctx, err, c.metadataTimeout)
	}

	var probe probeOutput
	if err := json.Unmarshal(stdout, &probe); err != nil {
		return nil, entity.ErrInternal("parse yt-dlp JSON output", err)
	}

	return &entity.VideoMetadata{
		Title:           probe.Title,
		DurationSeconds: probe.Duration,
		Width:           probe.Width,
		Height:          probe.Height,
		Uploader:        probe.Uploader,
		UploadDate:      probe.UploadDate,
		ViewCount:       probe.ViewCount,
		AgeRestricted:   probe.AgeLimit >= 18,
	}, nil
}

// DownloadVideo fetches the content to destPath.
func (c *Client) DownloadVideo(ctx context.Context, url string, destPath string) error {
	ctx, cancel := context.WithTimeout(ctx, c.downloadTimeout)
	defer cancel()

	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return entity.ErrFilesystem("create download directory", err)
	}

	c.logger.Info("downloading video", zap.String("url", url), zap.String("dest", destPath))

	cmd := exec.CommandContext(ctx, c.binary, "-f", downloadFormat, "-o", destPath, url)
	if output, err := cmd.CombinedOutput(); err != nil {
		return c.classifyError(ctx, fmt.Errorf("%w: %s", err, strings.TrimSpace(string(output))), c.downloadTimeout)
	}
	return nil
}

// classifyError turns a failed yt-dlp invocation into a typed failure. The
// stderr text drives restriction detection; the match order mirrors how
// specific the phrases are.
func (c *Client) classifyError(ctx context.Context, err error, timeout time.Duration) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return entity.ErrNetworkTimeout(timeout, err)
	}

	// PATH lookup failures come back as *exec.Error, a configured absolute
	// path that does not exist as fs.ErrNotExist.
	var execErr *exec.Error
	if errors.As(err, &execErr) || errors.Is(err, fs.ErrNotExist) {
		return entity.ErrDependencyMissing("yt-dlp",
			"Install it with pip install yt-dlp or your system package manager.", err)
	}

	detail := err.Error()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
		detail = strings.TrimSpace(string(exitErr.Stderr))
	}
	return classifyStderr(detail)
}

// classifyStderr maps yt-dlp's error text to a restriction category. Checked
// in order of phrase specificity.
func classifyStderr(detail string) error {
	lower := strings.ToLower(detail)
	switch {
	case strings.Contains(lower, "private video"):
		return entity.ErrAccessRestricted(detail)
	case strings.Contains(lower, "deleted"),
		strings.Contains(lower, "unavailable"),
		strings.Contains(lower, "not found"):
		return entity.ErrContentUnavailable(detail)
	case strings.Contains(lower, "age"),
		strings.Contains(lower, "sign in"),
		strings.Contains(lower, "age-gate"):
		return entity.ErrAccessRestricted(detail)
	case strings.Contains(lower, "region"),
		strings.Contains(lower, "geo"),
		strings.Contains(lower, "country"):
		return entity.ErrGeoRestricted(detail)
	default:
		return entity.ErrContentUnavailable(detail)
	}
}
