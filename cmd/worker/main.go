package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ragavsathish/yt-sl/internal/domain/dedup"
	"github.com/ragavsathish/yt-sl/internal/domain/imagehash"
	"github.com/ragavsathish/yt-sl/internal/domain/locator"
	"github.com/ragavsathish/yt-sl/internal/infra/archive"
	"github.com/ragavsathish/yt-sl/internal/infra/checkpoint"
	"github.com/ragavsathish/yt-sl/internal/infra/config"
	"github.com/ragavsathish/yt-sl/internal/infra/email"
	"github.com/ragavsathish/yt-sl/internal/infra/ffmpeg"
	"github.com/ragavsathish/yt-sl/internal/infra/memguard"
	"github.com/ragavsathish/yt-sl/internal/infra/metrics"
	miniostorage "github.com/ragavsathish/yt-sl/internal/infra/minio"
	"github.com/ragavsathish/yt-sl/internal/infra/postgres"
	"github.com/ragavsathish/yt-sl/internal/infra/preflight"
	"github.com/ragavsathish/yt-sl/internal/infra/rabbitmq"
	"github.com/ragavsathish/yt-sl/internal/infra/tesseract"
	"github.com/ragavsathish/yt-sl/internal/infra/tracing"
	"github.com/ragavsathish/yt-sl/internal/infra/ytdlp"
	"github.com/ragavsathish/yt-sl/internal/usecase"
	"github.com/ragavsathish/yt-sl/pkg/logger"
	"github.com/ragavsathish/yt-sl/pkg/retry"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	fatalOnErr(err, "load config")
	fatalOnErr(cfg.Validate(), "validate config")

	log, err := logger.New(cfg.LogLevel)
	fatalOnErr(err, "init logger")
	defer log.Sync()

	log.Info("starting yt-sl worker")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// External tools before anything else: a worker without yt-dlp, ffmpeg
	// or tesseract can only fail jobs.
	fatalOnErr(preflight.NewChecker(log).ValidateAll(ctx), "check external tools")

	// Tracing (non-fatal if the collector is unavailable)
	tp, err := tracing.InitTracer(ctx, cfg.JaegerEndpoint)
	if err != nil {
		log.Warn("tracing init failed, continuing without tracing", zap.Error(err))
	} else {
		defer tp.Shutdown(ctx)
	}

	// Database
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	fatalOnErr(err, "connect to postgres")
	defer pool.Close()

	if err := postgres.RunMigrations(cfg.DatabaseURL, log); err != nil {
		log.Warn("migration warning", zap.Error(err))
	}

	// MinIO
	storage, err := miniostorage.NewStorage(miniostorage.StorageConfig{
		Endpoint:      cfg.MinIOEndpoint,
		AccessKey:     cfg.MinIOAccessKey,
		SecretKey:     cfg.MinIOSecretKey,
		UseSSL:        cfg.MinIOUseSSL,
		ArchiveBucket: cfg.MinIOArchiveBucket,
		ReportBucket:  cfg.MinIOReportBucket,
	})
	fatalOnErr(err, "create minio storage")
	fatalOnErr(storage.EnsureBuckets(ctx), "ensure minio buckets")

	// RabbitMQ publisher connection
	rmqConn, err := amqp.Dial(cfg.RabbitMQURL)
	fatalOnErr(err, "connect to rabbitmq for publisher")
	defer rmqConn.Close()

	pub, err := rabbitmq.NewPublisher(rmqConn, cfg.RabbitMQExchange)
	fatalOnErr(err, "create rabbitmq publisher")

	statusPub := rabbitmq.NewStatusPublisher(pub)
	dlqPub := rabbitmq.NewDLQPublisher(pub, cfg.RabbitMQDLQ)

	// Pipeline collaborators
	hasher, err := imagehash.NewHasher(imagehash.Algorithm(cfg.HashAlgorithm), cfg.HashSize)
	fatalOnErr(err, "create hasher")
	grouper, err := dedup.NewGrouper(cfg.SimilarityThreshold, dedup.Strategy(cfg.Strategy))
	fatalOnErr(err, "create grouper")

	backoff := retry.NewPolicy(cfg.RetryMaxAttempts, cfg.RetryInitialDelay, cfg.RetryMaxDelay)
	ytClient := ytdlp.NewClient(cfg.MetadataTimeout, cfg.DownloadTimeout, log)

	extractor := usecase.NewExtractSlidesUseCase(
		locator.NewValidator(),
		checkpoint.NewStore(log),
		ytClient,
		ytClient,
		ffmpeg.NewSampler(cfg.FrameIntervalSeconds, cfg.FrameFormat, cfg.JPEGQuality, log),
		tesseract.NewRecognizer(cfg.OCRLanguages, log),
		hasher,
		grouper,
		memguard.NewMonitor(cfg.MemoryThresholdMB, cfg.MemoryWarnFraction, log),
		backoff,
		log,
		usecase.ExtractSlidesConfig{
			OutputDir:               cfg.TempDir,
			FrameIntervalSeconds:    cfg.FrameIntervalSeconds,
			FrameFormat:             cfg.FrameFormat,
			MaxVideoDurationSeconds: cfg.MaxVideoDurationSeconds,
			MaxCorruptFrames:        cfg.MaxCorruptFrames,
			OCRConfidenceThreshold:  cfg.OCRConfidenceThreshold,
			IncludeTimeline:         cfg.IncludeTimeline,
			KeepSourceArtifacts:     cfg.KeepSourceArtifacts,
		},
	)

	uc := usecase.NewProcessRequestUseCase(
		postgres.NewJobRepository(pool),
		extractor,
		storage,
		archive.NewZipCreator(),
		statusPub,
		dlqPub,
		email.NewSMTPNotifier(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom, log),
		log,
		usecase.ProcessRequestConfig{
			OutputDir:  cfg.TempDir,
			MaxRetries: cfg.MaxRetries,
		},
	)

	// Metrics server
	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, log)

	// Consumer (worker pool)
	consumer, err := rabbitmq.NewConsumer(rabbitmq.ConsumerConfig{
		URL:          cfg.RabbitMQURL,
		ExtractQueue: cfg.RabbitMQExtractQueue,
		StatusQueue:  cfg.RabbitMQStatusQueue,
		DLQ:          cfg.RabbitMQDLQ,
		Exchange:     cfg.RabbitMQExchange,
		Prefetch:     cfg.RabbitMQPrefetch,
		WorkerCount:  cfg.WorkerCount,
		Backoff:      backoff,
	}, uc.Execute, log)
	fatalOnErr(err, "create consumer")

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Info("received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	}()

	log.Info("yt-sl worker started, consuming messages")

	if err := consumer.Start(ctx); err != nil {
		log.Error("consumer error", zap.Error(err))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	metricsSrv.Shutdown(shutdownCtx)

	consumer.Close()
	log.Info("yt-sl worker stopped")
}

func fatalOnErr(err error, msg string) {
	if err != nil {
		panic(msg + ": " + err.Error())
	}
}
