package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/ragavsathish/yt-sl/internal/domain/dedup"
	"github.com/ragavsathish/yt-sl/internal/domain/entity"
	"github.com/ragavsathish/yt-sl/internal/domain/imagehash"
	"github.com/ragavsathish/yt-sl/internal/domain/locator"
	"github.com/ragavsathish/yt-sl/internal/infra/checkpoint"
	"github.com/ragavsathish/yt-sl/internal/infra/config"
	"github.com/ragavsathish/yt-sl/internal/infra/ffmpeg"
	"github.com/ragavsathish/yt-sl/internal/infra/memguard"
	"github.com/ragavsathish/yt-sl/internal/infra/preflight"
	"github.com/ragavsathish/yt-sl/internal/infra/tesseract"
	"github.com/ragavsathish/yt-sl/internal/infra/ytdlp"
	"github.com/ragavsathish/yt-sl/internal/usecase"
	"github.com/ragavsathish/yt-sl/pkg/logger"
	"github.com/ragavsathish/yt-sl/pkg/retry"
	"github.com/spf13/cobra"
)

type flags struct {
	url             string
	interval        float64
	threshold       float64
	output          string
	languages       string
	algorithm       string
	strategy        string
	memoryThreshold uint64
	noTimeline      bool
	keepArtifacts   bool
	session         string
	logLevel        string
}

func main() {
	var f flags

	rootCmd := &cobra.Command{
		Use:   "yt-sl",
		Short: "Extract deduplicated slides and their text from a video",
		Long: `yt-sl downloads a video, samples frames at a fixed interval, collapses
near-duplicate frames into slides with perceptual hashing, runs OCR over each
slide, and writes a Markdown report.

Progress is checkpointed after every stage: re-running the same video resumes
where the previous run stopped instead of starting over.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, f)
		},
	}

	rootCmd.Flags().StringVarP(&f.url, "url", "u", "", "video URL to extract slides from (required)")
	rootCmd.Flags().Float64VarP(&f.interval, "interval", "i", 5.0, "seconds between sampled frames (0.1-60)")
	rootCmd.Flags().Float64VarP(&f.threshold, "threshold", "t", 0.85, "similarity threshold for deduplication (0-1)")
	rootCmd.Flags().StringVarP(&f.output, "output", "o", ".", "output directory")
	rootCmd.Flags().StringVarP(&f.languages, "languages", "l", "eng", "comma-separated OCR language codes")
	rootCmd.Flags().StringVar(&f.algorithm, "algorithm", "average", "hash algorithm: average, difference or perceptual")
	rootCmd.Flags().StringVar(&f.strategy, "strategy", "middle", "representative frame per cluster: first, middle or last")
	rootCmd.Flags().Uint64VarP(&f.memoryThreshold, "memory-threshold", "m", 500, "memory threshold in MB (minimum 100)")
	rootCmd.Flags().BoolVar(&f.noTimeline, "no-timeline", false, "omit the Mermaid timeline from the report")
	rootCmd.Flags().BoolVar(&f.keepArtifacts, "keep-artifacts", false, "keep the downloaded video and raw frames after completion")
	rootCmd.Flags().StringVar(&f.session, "session", "", "session identifier (defaults to the video ID)")
	rootCmd.Flags().StringVar(&f.logLevel, "log-level", "", "log level: debug, info, warn or error")
	rootCmd.MarkFlagRequired("url")

	if err := rootCmd.Execute(); err != nil {
		color.New(color.FgRed, color.Bold).Fprintf(os.Stderr, "Error: %v\n", err)
		fmt.Fprintf(os.Stderr, "\n%s\n", entity.AdviceOf(err))
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, f flags) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	applyFlags(cmd, f, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := preflight.NewChecker(log).ValidateAll(ctx); err != nil {
		return err
	}
	if err := preflight.EnsureOutputDir(cfg.OutputDir, cfg.MinFreeDiskMB); err != nil {
		return err
	}

	validator := locator.NewValidator()
	videoID, err := validator.Validate(f.url)
	if err != nil {
		return err
	}
	sessionID := f.session
	if sessionID == "" {
		sessionID = videoID
	}

	hasher, err := imagehash.NewHasher(imagehash.Algorithm(cfg.HashAlgorithm), cfg.HashSize)
	if err != nil {
		return err
	}
	grouper, err := dedup.NewGrouper(cfg.SimilarityThreshold, dedup.Strategy(cfg.Strategy))
	if err != nil {
		return err
	}

	ytClient := ytdlp.NewClient(cfg.MetadataTimeout, cfg.DownloadTimeout, log)
	extractor := usecase.NewExtractSlidesUseCase(
		validator,
		checkpoint.NewStore(log),
		ytClient,
		ytClient,
		ffmpeg.NewSampler(cfg.FrameIntervalSeconds, cfg.FrameFormat, cfg.JPEGQuality, log),
		tesseract.NewRecognizer(cfg.OCRLanguages, log),
		hasher,
		grouper,
		memguard.NewMonitor(cfg.MemoryThresholdMB, cfg.MemoryWarnFraction, log),
		retry.NewPolicy(cfg.RetryMaxAttempts, cfg.RetryInitialDelay, cfg.RetryMaxDelay),
		log,
		usecase.ExtractSlidesConfig{
			OutputDir:               cfg.OutputDir,
			FrameIntervalSeconds:    cfg.FrameIntervalSeconds,
			FrameFormat:             cfg.FrameFormat,
			MaxVideoDurationSeconds: cfg.MaxVideoDurationSeconds,
			MaxCorruptFrames:        cfg.MaxCorruptFrames,
			OCRConfidenceThreshold:  cfg.OCRConfidenceThreshold,
			IncludeTimeline:         cfg.IncludeTimeline,
			KeepSourceArtifacts:     cfg.KeepSourceArtifacts,
		},
	)

	session, err := extractor.Execute(ctx, sessionID, f.url)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return fmt.Errorf("interrupted; re-run the same command to resume")
		}
		return err
	}

	title := ""
	if session.Metadata != nil {
		title = session.Metadata.Title
	}
	color.New(color.FgGreen, color.Bold).Printf("Extraction complete: %s\n", title)
	fmt.Printf("  Slides:  %d\n", len(session.Slides))
	fmt.Printf("  Report:  %s\n", session.ReportPath)
	fmt.Printf("  Session: %s\n", filepath.Join(cfg.OutputDir, session.ID))
	return nil
}

// applyFlags overrides environment-derived configuration with any flag the
// user set explicitly.
func applyFlags(cmd *cobra.Command, f flags, cfg *config.Config) {
	set := cmd.Flags().Changed
	if set("interval") {
		cfg.FrameIntervalSeconds = f.interval
	}
	if set("threshold") {
		cfg.SimilarityThreshold = f.threshold
	}
	if set("output") {
		cfg.OutputDir = f.output
	}
	if set("languages") {
		cfg.OCRLanguages = strings.Split(f.languages, ",")
	}
	if set("algorithm") {
		cfg.HashAlgorithm = f.algorithm
	}
	if set("strategy") {
		cfg.Strategy = f.strategy
	}
	if set("memory-threshold") {
		cfg.MemoryThresholdMB = f.memoryThreshold
	}
	if set("no-timeline") {
		cfg.IncludeTimeline = !f.noTimeline
	}
	if set("keep-artifacts") {
		cfg.KeepSourceArtifacts = f.keepArtifacts
	}
	if set("log-level") {
		cfg.LogLevel = f.logLevel
	}
}
