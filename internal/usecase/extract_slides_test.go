package usecase

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ragavsathish/yt-sl/internal/domain/dedup"
	"github.com/ragavsathish/yt-sl/internal/domain/entity"
	"github.com/ragavsathish/yt-sl/internal/domain/imagehash"
	"github.com/ragavsathish/yt-sl/internal/domain/locator"
	"github.com/ragavsathish/yt-sl/internal/domain/port"
	"github.com/ragavsathish/yt-sl/internal/infra/checkpoint"
	"github.com/ragavsathish/yt-sl/internal/infra/memguard"
	"github.com/ragavsathish/yt-sl/pkg/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	testURL       = "https://youtu.be/dQw4w9WgXcQ"
	testSessionID = "dQw4w9WgXcQ"
)

// writeFramePNG writes a 16x16 image that is white on one half and black on
// the other. The two orientations hash to complementary fingerprints, so
// same-pattern frames cluster together and opposite patterns always split.
func writeFramePNG(tb testing.TB, path string, leftWhite bool) {
	tb.Helper()
	img := image.NewGray(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			white := x < 8
			if !leftWhite {
				white = !white
			}
			if white {
				img.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	f, err := os.Create(path)
	require.NoError(tb, err)
	defer f.Close()
	require.NoError(tb, png.Encode(f, img))
}

type fakeMetadataFetcher struct {
	calls int
	meta  *entity.VideoMetadata
	errs  []error
}

func (f *fakeMetadataFetcher) FetchMetadata(_ context.Context, _ string) (*entity.VideoMetadata, error) {
	f.calls++
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return nil, err
	}
	return f.meta, nil
}

type fakeDownloader struct {
	calls int
	err   error
}

func (f *fakeDownloader) DownloadVideo(_ context.Context, _ string, destPath string) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return err
	}
	return os.WriteFile(destPath, []byte("video-bytes"), 0644)
}

// fakeSampler writes one PNG per pattern: "left", "right", or "corrupt"
// (a file that does not decode).
type fakeSampler struct {
	tb       testing.TB
	calls    int
	err      error
	patterns []string
}

func (f *fakeSampler) SampleFrames(_ context.Context, _ string, outputDir string) (*port.FrameSamplingResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	require.NoError(f.tb, os.MkdirAll(outputDir, 0755))

	paths := make([]string, len(f.patterns))
	for i, pattern := range f.patterns {
		path := filepath.Join(outputDir, entity.FrameFilename(i+1, "png"))
		if pattern == "corrupt" {
			require.NoError(f.tb, os.WriteFile(path, []byte("not a png"), 0644))
		} else {
			writeFramePNG(f.tb, path, pattern == "left")
		}
		paths[i] = path
	}
	return &port.FrameSamplingResult{
		FramePaths: paths,
		FrameCount: len(paths),
	}, nil
}

type fakeRecognizer struct {
	calls int
	text  string
	conf  float64
	err   error
}

func (f *fakeRecognizer) RecognizeText(_ context.Context, _ string) (*port.RecognizedText, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &port.RecognizedText{Text: f.text, Confidence: f.conf}, nil
}

type pipelineFixture struct {
	uc         *ExtractSlidesUseCase
	store      *checkpoint.Store
	metadata   *fakeMetadataFetcher
	downloader *fakeDownloader
	sampler    *fakeSampler
	recognizer *fakeRecognizer
	outputDir  string
	sessionDir string
}

func newFixture(t *testing.T, patterns []string) *pipelineFixture {
	t.Helper()

	outputDir := t.TempDir()
	log := zap.NewNop()
	store := checkpoint.NewStore(log)

	hasher, err := imagehash.NewHasher(imagehash.AlgorithmAverage, 8)
	require.NoError(t, err)
	grouper, err := dedup.NewGrouper(0.85, dedup.StrategyMiddle)
	require.NoError(t, err)

	fx := &pipelineFixture{
		store: store,
		metadata: &fakeMetadataFetcher{
			meta: &entity.VideoMetadata{Title: "Lecture", DurationSeconds: 20},
		},
		downloader: &fakeDownloader{},
		sampler:    &fakeSampler{tb: t, patterns: patterns},
		recognizer: &fakeRecognizer{text: "Slide text", conf: 0.9},
		outputDir:  outputDir,
		sessionDir: filepath.Join(outputDir, testSessionID),
	}

	fx.uc = NewExtractSlidesUseCase(
		locator.NewValidator(),
		store,
		fx.metadata,
		fx.downloader,
		fx.sampler,
		fx.recognizer,
		hasher,
		grouper,
		memguard.NewMonitor(1<<20, 0.8, log),
		retry.NewPolicy(2, time.Millisecond, 5*time.Millisecond),
		log,
		ExtractSlidesConfig{
			OutputDir:               outputDir,
			FrameIntervalSeconds:    5,
			FrameFormat:             "png",
			MaxVideoDurationSeconds: 14400,
			MaxCorruptFrames:        2,
			OCRConfidenceThreshold:  0.6,
			IncludeTimeline:         true,
		},
	)
	return fx
}

func TestExecuteFullPipeline(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, []string{"left", "left", "right", "right"})

	session, err := fx.uc.Execute(context.Background(), testSessionID, testURL)
	require.NoError(t, err)

	assert.Equal(t, entity.StatusCompleted, session.Status)
	require.Len(t, session.Slides, 2)

	// Middle strategy on two-frame clusters picks the second frame.
	assert.Equal(t, 2, session.Slides[0].FrameIndex)
	assert.Equal(t, 5.0, session.Slides[0].TimestampSec)
	assert.Equal(t, 4, session.Slides[1].FrameIndex)
	assert.Equal(t, 15.0, session.Slides[1].TimestampSec)
	assert.Equal(t, "Slide text", session.Slides[0].Text)

	content, err := os.ReadFile(session.ReportPath)
	require.NoError(t, err)
	assert.Contains(t, string(content), "# Lecture")
	assert.Contains(t, string(content), "### Slide 1")
	assert.Contains(t, string(content), "- **Timestamp:** 5.00s")
	assert.Contains(t, string(content), "slide_0001.png")

	assert.FileExists(t, filepath.Join(session.SlidesDir, "slide_0001.png"))
	assert.FileExists(t, filepath.Join(session.SlidesDir, "slide_0002.png"))

	// Terminal cleanup removes the video and raw frames but keeps the
	// checkpoint as an audit trail.
	assert.NoFileExists(t, session.VideoPath)
	assert.NoDirExists(t, session.FramesDir)
	assert.FileExists(t, filepath.Join(fx.sessionDir, "session.json"))

	loaded, found, err := fx.store.Load(fx.sessionDir)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, entity.StatusCompleted, loaded.Status)

	assert.Equal(t, 1, fx.metadata.calls)
	assert.Equal(t, 1, fx.downloader.calls)
	assert.Equal(t, 1, fx.sampler.calls)
	assert.Equal(t, 2, fx.recognizer.calls)
}

func TestResumeCompletedSessionSkipsExternalCalls(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, nil)

	reportPath := filepath.Join(fx.sessionDir, "report.md")
	done := &entity.Session{
		ID:         testSessionID,
		VideoURL:   testURL,
		Status:     entity.StatusCompleted,
		ReportPath: reportPath,
	}
	require.NoError(t, fx.store.Save(fx.sessionDir, done))

	session, err := fx.uc.Execute(context.Background(), testSessionID, testURL)
	require.NoError(t, err)

	assert.Equal(t, reportPath, session.ReportPath)
	assert.Zero(t, fx.metadata.calls)
	assert.Zero(t, fx.downloader.calls)
	assert.Zero(t, fx.sampler.calls)
	assert.Zero(t, fx.recognizer.calls)
}

func TestResumeSkipsAlreadyCompletedStages(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, nil)

	// Checkpoint recorded through FramesExtracted: the resumed run must not
	// re-fetch metadata, re-download, or re-sample.
	framesDir := filepath.Join(fx.sessionDir, "frames")
	require.NoError(t, os.MkdirAll(framesDir, 0755))
	writeFramePNG(t, filepath.Join(framesDir, entity.FrameFilename(1, "png")), true)
	writeFramePNG(t, filepath.Join(framesDir, entity.FrameFilename(2, "png")), false)
	videoPath := filepath.Join(fx.sessionDir, "video.mp4")
	require.NoError(t, os.WriteFile(videoPath, []byte("video-bytes"), 0644))

	prior := entity.NewSession(testSessionID, testURL)
	require.NoError(t, prior.MarkMetadataFetched(&entity.VideoMetadata{Title: "Lecture", DurationSeconds: 10}))
	require.NoError(t, prior.MarkVideoDownloaded(videoPath))
	require.NoError(t, prior.MarkFramesExtracted(framesDir, 2, 5))
	require.NoError(t, fx.store.Save(fx.sessionDir, prior))

	session, err := fx.uc.Execute(context.Background(), testSessionID, testURL)
	require.NoError(t, err)

	assert.Equal(t, entity.StatusCompleted, session.Status)
	assert.Len(t, session.Slides, 2)
	assert.Zero(t, fx.metadata.calls)
	assert.Zero(t, fx.downloader.calls)
	assert.Zero(t, fx.sampler.calls)
	assert.Equal(t, 2, fx.recognizer.calls)
}

func TestStageFailureLeavesCheckpointResumable(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, nil)
	fx.sampler.err = entity.ErrInternal("ffmpeg exploded", nil)

	session, err := fx.uc.Execute(context.Background(), testSessionID, testURL)
	require.Error(t, err)

	require.NotNil(t, session)
	assert.Equal(t, entity.StatusFailed, session.Status)
	assert.NotEmpty(t, session.FailureReason)

	// The on-disk checkpoint stays at the last successful stage.
	loaded, found, err := fx.store.Load(fx.sessionDir)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, entity.StatusVideoDownloaded, loaded.Status)
	assert.Empty(t, loaded.ReportPath)
}

func TestTransientFailuresRetriedWithinBudget(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, []string{"left"})
	fx.metadata.errs = []error{
		entity.ErrNetworkTimeout(time.Second, nil),
		entity.ErrNetworkTimeout(time.Second, nil),
	}

	_, err := fx.uc.Execute(context.Background(), testSessionID, testURL)
	require.NoError(t, err)
	assert.Equal(t, 3, fx.metadata.calls)
}

func TestTransientFailuresExhaustBudget(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, nil)
	fx.metadata.errs = []error{
		entity.ErrNetworkTimeout(time.Second, nil),
		entity.ErrNetworkTimeout(time.Second, nil),
		entity.ErrNetworkTimeout(time.Second, nil),
	}

	_, err := fx.uc.Execute(context.Background(), testSessionID, testURL)
	require.Error(t, err)
	assert.True(t, entity.IsTransient(err))
	// Two retries on a budget of two, then the third failure surfaces.
	assert.Equal(t, 3, fx.metadata.calls)
}

func TestNonTransientFailureNotRetried(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, nil)
	fx.metadata.errs = []error{entity.ErrContentUnavailable("video removed")}

	_, err := fx.uc.Execute(context.Background(), testSessionID, testURL)
	require.Error(t, err)
	assert.Equal(t, 1, fx.metadata.calls)
	assert.Zero(t, fx.downloader.calls)
}

func TestRejectsVideoOverDurationLimit(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, nil)
	fx.metadata.meta = &entity.VideoMetadata{Title: "Marathon", DurationSeconds: 20000}

	_, err := fx.uc.Execute(context.Background(), testSessionID, testURL)
	require.Error(t, err)
	assert.Equal(t, entity.CategoryValidation, entity.CategoryOf(err))
	assert.Zero(t, fx.downloader.calls)

	loaded, found, loadErr := fx.store.Load(fx.sessionDir)
	require.NoError(t, loadErr)
	require.True(t, found)
	assert.Equal(t, entity.StatusStarting, loaded.Status)
}

func TestRejectsAgeRestrictedVideo(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, nil)
	fx.metadata.meta = &entity.VideoMetadata{Title: "Gated", DurationSeconds: 10, AgeRestricted: true}

	_, err := fx.uc.Execute(context.Background(), testSessionID, testURL)
	require.Error(t, err)
	assert.Equal(t, entity.CategoryExternal, entity.CategoryOf(err))
	assert.Zero(t, fx.downloader.calls)
}

func TestCorruptFramesSkippedWithinBudget(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, []string{"left", "corrupt", "right"})

	session, err := fx.uc.Execute(context.Background(), testSessionID, testURL)
	require.NoError(t, err)
	assert.Len(t, session.Slides, 2)
}

func TestTooManyCorruptFramesFatal(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, []string{"left", "corrupt", "corrupt", "corrupt"})

	session, err := fx.uc.Execute(context.Background(), testSessionID, testURL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too many corrupt frames")
	assert.Equal(t, entity.StatusFailed, session.Status)
}

func TestInvalidURLRejectedBeforeAnyWork(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, nil)

	_, err := fx.uc.Execute(context.Background(), testSessionID, "https://example.com/watch?v=abc")
	require.Error(t, err)
	assert.Equal(t, entity.CategoryValidation, entity.CategoryOf(err))
	assert.Zero(t, fx.metadata.calls)
	assert.NoFileExists(t, filepath.Join(fx.sessionDir, "session.json"))
}
