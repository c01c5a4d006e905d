package usecase

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"time"

	"github.com/ragavsathish/yt-sl/internal/domain/dedup"
	"github.com/ragavsathish/yt-sl/internal/domain/entity"
	"github.com/ragavsathish/yt-sl/internal/domain/imagehash"
	"github.com/ragavsathish/yt-sl/internal/domain/locator"
	"github.com/ragavsathish/yt-sl/internal/domain/port"
	"github.com/ragavsathish/yt-sl/internal/domain/report"
	"github.com/ragavsathish/yt-sl/internal/infra/memguard"
	"github.com/ragavsathish/yt-sl/internal/infra/metrics"
	"github.com/ragavsathish/yt-sl/pkg/retry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// SlideExtractor runs one resumable extraction session end to end.
type SlideExtractor interface {
	Execute(ctx context.Context, sessionID string, videoURL string) (*entity.Session, error)
}

// ExtractSlidesUseCase drives the extraction pipeline as a checkpointed
// state machine. Each stage is gated on the previous one; a stage whose
// target status the checkpoint already reached is skipped entirely, using
// only the paths recorded there. The checkpoint is persisted after every
// successful transition, so a crash mid-stage re-runs only the incomplete
// stage.
type ExtractSlidesUseCase struct {
	validator   *locator.Validator
	checkpoints port.CheckpointStore
	metadata    port.MetadataFetcher
	downloader  port.VideoDownloader
	sampler     port.FrameSampler
	recognizer  port.TextRecognizer
	hasher      *imagehash.Hasher
	grouper     *dedup.Grouper
	memory      *memguard.Monitor
	backoff     retry.Policy
	logger      *zap.Logger
	cfg         ExtractSlidesConfig
}

type ExtractSlidesConfig struct {
	OutputDir               string
	FrameIntervalSeconds    float64
	FrameFormat             string
	MaxVideoDurationSeconds float64
	MaxCorruptFrames        int
	OCRConfidenceThreshold  float64
	IncludeTimeline         bool
	KeepSourceArtifacts     bool
}

func NewExtractSlidesUseCase(
	validator *locator.Validator,
	checkpoints port.CheckpointStore,
	metadata port.MetadataFetcher,
	downloader port.VideoDownloader,
	sampler port.FrameSampler,
	recognizer port.TextRecognizer,
	hasher *imagehash.Hasher,
	grouper *dedup.Grouper,
	memory *memguard.Monitor,
	backoff retry.Policy,
	logger *zap.Logger,
	cfg ExtractSlidesConfig,
) *ExtractSlidesUseCase {
	return &ExtractSlidesUseCase{
		validator:   validator,
		checkpoints: checkpoints,
		metadata:    metadata,
		downloader:  downloader,
		sampler:     sampler,
		recognizer:  recognizer,
		hasher:      hasher,
		grouper:     grouper,
		memory:      memory,
		backoff:     backoff,
		logger:      logger,
		cfg:         cfg,
	}
}

// Execute runs (or resumes) the session. On a stage failure the returned
// session carries StatusFailed in memory while the checkpoint on disk stays
// at the last successful stage, so a later run resumes cleanly.
func (uc *ExtractSlidesUseCase) Execute(ctx context.Context, sessionID string, videoURL string) (*entity.Session, error) {
	tracer := otel.Tracer("usecase")
	ctx, span := tracer.Start(ctx, "ExtractSlidesUseCase.Execute")
	defer span.End()
	span.SetAttributes(
		attribute.String("session.id", sessionID),
		attribute.String("video.url", videoURL),
	)

	log := uc.logger.With(zap.String("session_id", sessionID))

	if _, err := uc.validator.Validate(videoURL); err != nil {
		return nil, err
	}

	sessionDir := filepath.Join(uc.cfg.OutputDir, sessionID)
	session, found, err := uc.checkpoints.Load(sessionDir)
	if err != nil {
		return nil, err
	}
	if found {
		log.Info("resuming session from checkpoint", zap.String("status", string(session.Status)))
	} else {
		session = entity.NewSession(sessionID, videoURL)
		if err := uc.checkpoints.Save(sessionDir, session); err != nil {
			return nil, err
		}
	}

	for {
		target, ok := entity.NextStage(session.Status)
		if !ok {
			break
		}
		if err := uc.runStage(ctx, session, sessionDir, target, log); err != nil {
			session.MarkFailed(err.Error())
			return session, err
		}
		if err := uc.checkpoints.Save(sessionDir, session); err != nil {
			session.MarkFailed(err.Error())
			return session, err
		}
	}

	if !uc.cfg.KeepSourceArtifacts {
		uc.cleanupArtifacts(session, log)
	}

	usage := uc.memory.Usage()
	metrics.PeakMemoryBytes.Set(float64(usage.PeakBytes))
	log.Info("session completed",
		zap.String("report", session.ReportPath),
		zap.Int("slides", len(session.Slides)),
		zap.Uint64("peak_memory_mb", usage.PeakMB()),
	)
	return session, nil
}

func stageName(target entity.SessionStatus) string {
	switch target {
	case entity.StatusMetadataFetched:
		return "fetch_metadata"
	case entity.StatusVideoDownloaded:
		return "download_video"
	case entity.StatusFramesExtracted:
		return "extract_frames"
	case entity.StatusSlidesIdentified:
		return "identify_slides"
	case entity.StatusCompleted:
		return "generate_report"
	default:
		return string(target)
	}
}

func (uc *ExtractSlidesUseCase) runStage(ctx context.Context, session *entity.Session, sessionDir string, target entity.SessionStatus, log *zap.Logger) error {
	name := stageName(target)
	ctx, span := otel.Tracer("usecase").Start(ctx, name)
	defer span.End()

	start := time.Now()
	defer func() {
		metrics.StageDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	}()

	log.Info("stage starting", zap.String("stage", name))

	var err error
	switch target {
	case entity.StatusMetadataFetched:
		err = uc.fetchMetadata(ctx, session, log)
	case entity.StatusVideoDownloaded:
		err = uc.downloadVideo(ctx, session, sessionDir, log)
	case entity.StatusFramesExtracted:
		err = uc.extractFrames(ctx, session, sessionDir, log)
	case entity.StatusSlidesIdentified:
		err = uc.identifySlides(ctx, session, sessionDir, log)
	case entity.StatusCompleted:
		err = uc.generateReport(ctx, session, sessionDir, log)
	default:
		err = entity.ErrInternal(fmt.Sprintf("no stage produces status %s", target), nil)
	}
	if err != nil {
		log.Error("stage failed", zap.String("stage", name), zap.Error(err))
		return err
	}

	log.Info("stage completed", zap.String("stage", name), zap.Duration("elapsed", time.Since(start)))
	return nil
}

func (uc *ExtractSlidesUseCase) fetchMetadata(ctx context.Context, session *entity.Session, log *zap.Logger) error {
	var meta *entity.VideoMetadata
	err := uc.withRetry(ctx, log, "fetch metadata", func() error {
		var err error
		meta, err = uc.metadata.FetchMetadata(ctx, session.VideoURL)
		return err
	})
	if err != nil {
		return err
	}

	if meta.DurationSeconds > uc.cfg.MaxVideoDurationSeconds {
		return entity.ErrVideoTooLong(meta.DurationSeconds, uc.cfg.MaxVideoDurationSeconds)
	}
	if meta.AgeRestricted {
		return entity.ErrAccessRestricted("video is age-restricted")
	}

	log.Info("metadata fetched",
		zap.String("title", meta.Title),
		zap.Float64("duration_seconds", meta.DurationSeconds),
	)
	return session.MarkMetadataFetched(meta)
}

func (uc *ExtractSlidesUseCase) downloadVideo(ctx context.Context, session *entity.Session, sessionDir string, log *zap.Logger) error {
	if err := uc.memory.Validate(); err != nil {
		return err
	}

	destPath := filepath.Join(sessionDir, "video.mp4")
	err := uc.withRetry(ctx, log, "download video", func() error {
		return uc.downloader.DownloadVideo(ctx, session.VideoURL, destPath)
	})
	if err != nil {
		return err
	}

	info, err := os.Stat(destPath)
	if err != nil || info.Size() == 0 {
		return entity.ErrInternal("downloaded video file is missing or empty", err)
	}

	log.Info("video downloaded", zap.String("path", destPath), zap.Int64("bytes", info.Size()))
	return session.MarkVideoDownloaded(destPath)
}

func (uc *ExtractSlidesUseCase) extractFrames(ctx context.Context, session *entity.Session, sessionDir string, log *zap.Logger) error {
	framesDir := filepath.Join(sessionDir, "frames")
	result, err := uc.sampler.SampleFrames(ctx, session.VideoPath, framesDir)
	if err != nil {
		return err
	}

	if session.Metadata != nil {
		expected := entity.ExpectedFrameCount(session.Metadata.DurationSeconds, uc.cfg.FrameIntervalSeconds)
		if expected < 1 {
			expected = 1
		}
		if result.FrameCount != expected {
			log.Warn("frame count differs from expectation",
				zap.Int("expected", expected),
				zap.Int("actual", result.FrameCount),
			)
		}
	}

	metrics.FramesSampledTotal.Add(float64(result.FrameCount))
	return session.MarkFramesExtracted(framesDir, result.FrameCount, uc.cfg.FrameIntervalSeconds)
}

func (uc *ExtractSlidesUseCase) identifySlides(ctx context.Context, session *entity.Session, sessionDir string, log *zap.Logger) error {
	framePaths, err := uc.listFrames(session.FramesDir)
	if err != nil {
		return err
	}

	interval := session.FrameInterval
	if interval <= 0 {
		interval = uc.cfg.FrameIntervalSeconds
	}

	records, err := uc.hashFrames(ctx, framePaths, interval, log)
	if err != nil {
		return err
	}
	if err := uc.memory.Validate(); err != nil {
		return err
	}
	uc.memory.CheckAndWarn()

	clusters, err := uc.grouper.Group(records)
	if err != nil {
		return err
	}

	slidesDir := filepath.Join(sessionDir, "slides")
	if err := os.MkdirAll(slidesDir, 0755); err != nil {
		return entity.ErrFilesystem("create slides directory", err)
	}

	slides := make([]entity.SlideRecord, 0, len(clusters))
	for i, cluster := range clusters {
		rep := uc.grouper.Representative(cluster)
		name := entity.SlideFilename(i+1, uc.cfg.FrameFormat)
		if err := copyFile(rep.Path, filepath.Join(slidesDir, name)); err != nil {
			return entity.ErrFilesystem("copy slide image", err)
		}
		slides = append(slides, entity.SlideRecord{
			Index:        i + 1,
			FrameIndex:   rep.Index,
			TimestampSec: rep.TimestampSec,
			ImageFile:    name,
		})
	}

	metrics.SlidesExtractedTotal.Add(float64(len(slides)))
	log.Info("unique slides identified",
		zap.Int("frames", len(records)),
		zap.Int("slides", len(slides)),
	)
	return session.MarkSlidesIdentified(slidesDir, slides)
}

// hashFrames fingerprints the frame files in two phases: a bounded-parallel
// hashing pass into an index-addressed slice, then a sequential pass that
// drops corrupt frames while enforcing the skip budget. Grouping depends
// only on input order, so hashing order never affects output.
func (uc *ExtractSlidesUseCase) hashFrames(ctx context.Context, framePaths []string, interval float64, log *zap.Logger) ([]entity.FrameRecord, error) {
	records := make([]entity.FrameRecord, len(framePaths))
	hashErrs := make([]error, len(framePaths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, path := range framePaths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			fingerprint, err := uc.hasher.HashFile(path)
			if err != nil {
				hashErrs[i] = err
				return nil
			}
			records[i] = entity.FrameRecord{
				Index:        i + 1,
				Path:         path,
				TimestampSec: entity.FrameTimestamp(i+1, interval),
				Fingerprint:  fingerprint,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	kept := make([]entity.FrameRecord, 0, len(framePaths))
	corrupt := 0
	for i := range records {
		if hashErrs[i] != nil {
			corrupt++
			frameErr := entity.ErrCorruptFrame(entity.FrameTimestamp(i+1, interval), hashErrs[i])
			log.Warn("skipping corrupt frame", zap.String("frame", framePaths[i]), zap.Error(frameErr))
			if corrupt > uc.cfg.MaxCorruptFrames {
				return nil, entity.ErrTooManyCorruptFrames(corrupt, uc.cfg.MaxCorruptFrames)
			}
			continue
		}
		kept = append(kept, records[i])
	}
	return kept, nil
}

func (uc *ExtractSlidesUseCase) generateReport(ctx context.Context, session *entity.Session, sessionDir string, log *zap.Logger) error {
	slides := make([]entity.SlideRecord, len(session.Slides))
	copy(slides, session.Slides)
	sort.Slice(slides, func(i, j int) bool { return slides[i].Index < slides[j].Index })

	for i := range slides {
		imagePath := filepath.Join(session.SlidesDir, slides[i].ImageFile)
		recognized, err := uc.recognizer.RecognizeText(ctx, imagePath)
		if err != nil {
			return err
		}
		if recognized.Confidence < uc.cfg.OCRConfidenceThreshold {
			log.Warn("low OCR confidence",
				zap.String("image", slides[i].ImageFile),
				zap.Float64("confidence", recognized.Confidence),
				zap.Float64("threshold", uc.cfg.OCRConfidenceThreshold),
			)
		}
		slides[i].Text = recognized.Text
		slides[i].Confidence = recognized.Confidence
	}

	title := "Untitled Video"
	var duration float64
	if session.Metadata != nil {
		if session.Metadata.Title != "" {
			title = session.Metadata.Title
		}
		duration = session.Metadata.DurationSeconds
	}

	reportPath := filepath.Join(sessionDir, "report.md")
	err := report.Write(reportPath, report.Params{
		Title:           title,
		URL:             session.VideoURL,
		DurationSeconds: duration,
		Slides:          slides,
		IncludeTimeline: uc.cfg.IncludeTimeline,
	})
	if err != nil {
		return err
	}

	session.Slides = slides
	return session.MarkCompleted(reportPath)
}

// withRetry re-runs fn on transient failures with policy backoff. Anything
// non-transient, or a transient failure past the attempt budget, surfaces
// unchanged.
func (uc *ExtractSlidesUseCase) withRetry(ctx context.Context, log *zap.Logger, op string, fn func() error) error {
	for attempt := 0; ; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		if !entity.IsTransient(err) || !uc.backoff.ShouldRetry(attempt) {
			return err
		}

		delay := uc.backoff.Backoff(attempt)
		log.Warn("transient failure, retrying",
			zap.String("operation", op),
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", delay),
			zap.Error(err),
		)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// listFrames returns the sampled frame files in temporal order. Filenames
// carry a zero-padded sequence number, so lexical order is temporal order.
func (uc *ExtractSlidesUseCase) listFrames(framesDir string) ([]string, error) {
	pattern := filepath.Join(framesDir, "frame_*."+uc.cfg.FrameFormat)
	paths, err := filepath.Glob(pattern)
	if err != nil {
		return nil, entity.ErrInternal("glob frame files", err)
	}
	if len(paths) == 0 {
		return nil, entity.ErrInternal("no frame files found in "+framesDir, nil)
	}
	sort.Strings(paths)
	return paths, nil
}

// cleanupArtifacts reclaims the downloaded video and raw frames after a
// completed run. Failures are logged, never fatal; the slides, report and
// checkpoint stay on disk.
func (uc *ExtractSlidesUseCase) cleanupArtifacts(session *entity.Session, log *zap.Logger) {
	if session.VideoPath != "" {
		if err := os.Remove(session.VideoPath); err != nil && !os.IsNotExist(err) {
			log.Warn("could not delete source video", zap.String("path", session.VideoPath), zap.Error(err))
		}
	}
	if session.FramesDir != "" {
		if err := os.RemoveAll(session.FramesDir); err != nil {
			log.Warn("could not delete frames directory", zap.String("path", session.FramesDir), zap.Error(err))
		}
	}
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
