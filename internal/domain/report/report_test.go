package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ragavsathish/yt-sl/internal/domain/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleParams() Params {
	return Params{
		Title:           "Intro to Distributed Systems",
		URL:             "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		DurationSeconds: 212,
		IncludeTimeline: true,
		Slides: []entity.SlideRecord{
			{Index: 1, FrameIndex: 1, TimestampSec: 0, ImageFile: "slide_0001.jpg", Text: "Welcome"},
			{Index: 2, FrameIndex: 4, TimestampSec: 15, ImageFile: "slide_0002.jpg", Text: ""},
			{Index: 3, FrameIndex: 9, TimestampSec: 40, ImageFile: "slide_0003.jpg", Text: "  Questions?  "},
		},
	}
}

func TestRenderDocumentShape(t *testing.T) {
	t.Parallel()

	content, err := Render(sampleParams())
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(content, "# Intro to Distributed Systems\n\n"))
	assert.Contains(t, content, "## Video Information\n\n")
	assert.Contains(t, content, "- **URL:** https://www.youtube.com/watch?v=dQw4w9WgXcQ\n")
	assert.Contains(t, content, "- **Duration:** 212 seconds\n")
	assert.Contains(t, content, "- **Extracted Slides:** 3\n")
}

func TestRenderTimeline(t *testing.T) {
	t.Parallel()

	content, err := Render(sampleParams())
	require.NoError(t, err)

	assert.Contains(t, content, "```mermaid\ngraph LR\n")
	assert.Contains(t, content, "    S1[\"Slide 1 (0s)\"]\n")
	assert.Contains(t, content, "    S2[\"Slide 2 (15s)\"]\n")
	assert.Contains(t, content, "    S1 --> S2\n")
	assert.Contains(t, content, "    S2 --> S3\n")
	assert.NotContains(t, content, "S0 --> S1")
}

func TestRenderTimelineDisabled(t *testing.T) {
	t.Parallel()

	p := sampleParams()
	p.IncludeTimeline = false

	content, err := Render(p)
	require.NoError(t, err)

	assert.NotContains(t, content, "## Timeline")
	assert.NotContains(t, content, "mermaid")
}

func TestRenderSlideDetail(t *testing.T) {
	t.Parallel()

	content, err := Render(sampleParams())
	require.NoError(t, err)

	assert.Contains(t, content, "### Slide 1\n\n- **Timestamp:** 0.00s\n\n![Slide 1](slide_0001.jpg)\n\n#### Extracted Text\n\nWelcome\n\n---\n\n")

	// Blank text renders the placeholder; surrounding whitespace is trimmed.
	assert.Contains(t, content, "### Slide 2\n\n- **Timestamp:** 15.00s\n\n![Slide 2](slide_0002.jpg)\n\n#### Extracted Text\n\n*No text detected.*\n\n---\n\n")
	assert.Contains(t, content, "#### Extracted Text\n\nQuestions?\n\n")
}

func TestRenderNoSlidesFails(t *testing.T) {
	t.Parallel()

	p := sampleParams()
	p.Slides = nil

	_, err := Render(p)
	assert.Error(t, err)
}

func TestWriteIsAtomic(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "report.md")

	require.NoError(t, Write(path, sampleParams()))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "# Intro to Distributed Systems")

	// No temp file left behind.
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestWriteNeverClobbersOnRenderFailure(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "report.md")
	require.NoError(t, os.WriteFile(path, []byte("previous run"), 0644))

	p := sampleParams()
	p.Slides = nil
	require.Error(t, Write(path, p))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "previous run", string(content))
}
