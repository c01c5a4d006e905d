package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/ragavsathish/yt-sl/internal/domain/entity"
	"github.com/ragavsathish/yt-sl/internal/domain/port"
	"github.com/ragavsathish/yt-sl/internal/infra/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ProcessRequestUseCase is the queue-facing wrapper around the extraction
// pipeline: it owns the job row, the retry budget, artifact uploads and
// status/DLQ/email fan-out. The job ID doubles as the session ID, so a
// redelivered message resumes the same checkpoint instead of starting over.
type ProcessRequestUseCase struct {
	repo      port.JobRepository
	extractor SlideExtractor
	storage   port.ArtifactStorage
	zipper    port.Zipper
	publisher port.StatusPublisher
	dlq       port.DLQPublisher
	notifier  port.FailureNotifier
	logger    *zap.Logger
	outputDir string
	maxRetry  int
}

type ProcessRequestConfig struct {
	OutputDir  string
	MaxRetries int
}

func NewProcessRequestUseCase(
	repo port.JobRepository,
	extractor SlideExtractor,
	storage port.ArtifactStorage,
	zipper port.Zipper,
	publisher port.StatusPublisher,
	dlq port.DLQPublisher,
	notifier port.FailureNotifier,
	logger *zap.Logger,
	cfg ProcessRequestConfig,
) *ProcessRequestUseCase {
	return &ProcessRequestUseCase{
		repo:      repo,
		extractor: extractor,
		storage:   storage,
		zipper:    zipper,
		publisher: publisher,
		dlq:       dlq,
		notifier:  notifier,
		logger:    logger,
		outputDir: cfg.OutputDir,
		maxRetry:  cfg.MaxRetries,
	}
}

// Execute handles one delivery from the extraction queue. A nil return acks
// the message; an error return nacks it for redelivery with backoff.
func (uc *ProcessRequestUseCase) Execute(ctx context.Context, rawMsg []byte) error {
	tracer := otel.Tracer("usecase")
	ctx, span := tracer.Start(ctx, "ProcessRequestUseCase.Execute")
	defer span.End()

	totalTimer := time.Now()

	var msg entity.ExtractionRequestMessage
	if err := json.Unmarshal(rawMsg, &msg); err != nil {
		uc.logger.Error("failed to unmarshal message", zap.Error(err), zap.ByteString("body", rawMsg))
		_ = uc.dlq.PublishToDLQ(ctx, rawMsg, "unmarshal_error: "+err.Error())
		return nil
	}

	span.SetAttributes(
		attribute.String("job.id", msg.JobID.String()),
		attribute.String("job.video_url", msg.VideoURL),
	)

	log := uc.logger.With(zap.String("job_id", msg.JobID.String()), zap.String("video_url", msg.VideoURL))

	job, err := uc.repo.FindByID(ctx, msg.JobID)
	if err != nil {
		job = entity.NewJob(msg.UserID, msg.VideoURL, uc.maxRetry)
		job.ID = msg.JobID
		if err := uc.repo.Create(ctx, job); err != nil {
			log.Error("failed to create job record", zap.Error(err))
			return fmt.Errorf("create job: %w", err)
		}
	}

	if !job.CanRetry() {
		log.Warn("job exhausted retries, sending to DLQ")
		return uc.handlePermanentFailure(ctx, job, msg, rawMsg, "max retries exceeded")
	}

	job.MarkProcessing()
	if err := uc.repo.Update(ctx, job); err != nil {
		log.Error("failed to update job to PROCESSING", zap.Error(err))
		return fmt.Errorf("update job: %w", err)
	}

	metrics.ActiveWorkers.Inc()
	defer metrics.ActiveWorkers.Dec()

	session, err := uc.extractor.Execute(ctx, job.SessionID(), job.VideoURL)
	if err != nil {
		log.Error("extraction failed", zap.Error(err))
		if entity.IsTransient(err) {
			return uc.handleRetryableFailure(ctx, job, msg, rawMsg, err.Error(), log)
		}
		// Validation, restriction and resource failures will not improve
		// on redelivery.
		return uc.handlePermanentFailure(ctx, job, msg, rawMsg, err.Error())
	}

	if err := uc.publishArtifacts(ctx, job, msg, session, log); err != nil {
		return uc.handleRetryableFailure(ctx, job, msg, rawMsg, "publish_artifacts: "+err.Error(), log)
	}

	var duration float64
	if session.Metadata != nil {
		duration = session.Metadata.DurationSeconds
	}
	job.MarkCompleted(job.ArchiveKey, job.ReportKey, len(session.Slides), duration)
	if err := uc.repo.Update(ctx, job); err != nil {
		log.Error("failed to update job to COMPLETED", zap.Error(err))
		return fmt.Errorf("update job completed: %w", err)
	}

	uc.publishStatus(ctx, job, log)

	metrics.JobsProcessedTotal.WithLabelValues("completed").Inc()
	metrics.StageDuration.WithLabelValues("total").Observe(time.Since(totalTimer).Seconds())

	log.Info("job completed successfully",
		zap.Int("slide_count", len(session.Slides)),
		zap.Float64("duration_secs", duration),
		zap.String("archive_key", job.ArchiveKey),
		zap.String("report_key", job.ReportKey),
	)
	return nil
}

// publishArtifacts bundles the slide images and report into a zip, uploads
// the archive and the standalone report, and records the object keys on the
// job.
func (uc *ProcessRequestUseCase) publishArtifacts(
	ctx context.Context,
	job *entity.Job,
	msg entity.ExtractionRequestMessage,
	session *entity.Session,
	log *zap.Logger,
) error {
	ctx, span := otel.Tracer("usecase").Start(ctx, "publish_artifacts")
	defer span.End()

	files := make([]string, 0, len(session.Slides)+1)
	for _, slide := range session.Slides {
		files = append(files, filepath.Join(session.SlidesDir, slide.ImageFile))
	}
	files = append(files, session.ReportPath)

	sessionDir := filepath.Join(uc.outputDir, session.ID)
	zipPath := filepath.Join(sessionDir, "slides.zip")
	if err := uc.zipper.CreateZip(ctx, files, zipPath); err != nil {
		return fmt.Errorf("create archive: %w", err)
	}

	archiveKey := fmt.Sprintf("%s/slides_%s.zip", msg.UserID, job.ID.String())
	if err := uploadFile(ctx, zipPath, archiveKey, uc.storage.UploadArchive); err != nil {
		return fmt.Errorf("upload archive: %w", err)
	}

	reportKey := fmt.Sprintf("%s/report_%s.md", msg.UserID, job.ID.String())
	if err := uploadFile(ctx, session.ReportPath, reportKey, uc.storage.UploadReport); err != nil {
		return fmt.Errorf("upload report: %w", err)
	}

	job.ArchiveKey = archiveKey
	job.ReportKey = reportKey
	log.Info("artifacts uploaded",
		zap.String("archive_key", archiveKey),
		zap.String("report_key", reportKey),
	)
	return nil
}

func (uc *ProcessRequestUseCase) handleRetryableFailure(
	ctx context.Context,
	job *entity.Job,
	msg entity.ExtractionRequestMessage,
	rawMsg []byte,
	errMsg string,
	log *zap.Logger,
) error {
	job.MarkFailed(errMsg)
	_ = uc.repo.Update(ctx, job)

	if !job.CanRetry() {
		return uc.handlePermanentFailure(ctx, job, msg, rawMsg, errMsg)
	}

	metrics.RetryTotal.WithLabelValues(strconv.Itoa(job.Attempt)).Inc()
	uc.publishStatus(ctx, job, log)

	return fmt.Errorf("retryable failure (attempt %d/%d): %s", job.Attempt, job.MaxAttempts, errMsg)
}

func (uc *ProcessRequestUseCase) handlePermanentFailure(
	ctx context.Context,
	job *entity.Job,
	msg entity.ExtractionRequestMessage,
	rawMsg []byte,
	errMsg string,
) error {
	job.MarkFailed(errMsg)
	_ = uc.repo.Update(ctx, job)

	_ = uc.dlq.PublishToDLQ(ctx, rawMsg, errMsg)

	uc.publishStatus(ctx, job, uc.logger)

	metrics.JobsProcessedTotal.WithLabelValues("dlq").Inc()

	if msg.UserEmail != "" {
		_ = uc.notifier.NotifyFailure(ctx, msg.UserEmail, job.ID.String(), msg.VideoURL, errMsg)
	}

	return nil
}

func (uc *ProcessRequestUseCase) publishStatus(ctx context.Context, job *entity.Job, log *zap.Logger) {
	statusMsg := entity.ExtractionStatusMessage{
		JobID:        job.ID,
		UserID:       job.UserID,
		Status:       job.Status,
		VideoURL:     job.VideoURL,
		ArchiveKey:   job.ArchiveKey,
		ReportKey:    job.ReportKey,
		SlideCount:   job.SlideCount,
		Duration:     job.VideoDuration,
		ErrorMessage: job.ErrorMessage,
		Attempt:      job.Attempt,
		MaxAttempts:  job.MaxAttempts,
	}
	data, _ := json.Marshal(statusMsg)
	if err := uc.publisher.PublishStatus(ctx, data); err != nil {
		log.Error("failed to publish status", zap.Error(err))
	}
}

func uploadFile(ctx context.Context, path, key string, upload func(context.Context, string, io.Reader, int64) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	return upload(ctx, key, f, info.Size())
}
