package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ragavsathish/yt-sl/internal/domain/entity"
)

// Params carries everything the Markdown document needs. Slides must arrive
// with their recognized text already attached.
type Params struct {
	Title           string
	URL             string
	DurationSeconds float64
	Slides          []entity.SlideRecord
	IncludeTimeline bool
}

// Render produces the full Markdown document: video information, an optional
// Mermaid timeline, and a detail section per slide.
func Render(p Params) (string, error) {
	if len(p.Slides) == 0 {
		return "", entity.ErrInternal("cannot generate document with no slides", nil)
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("# %s\n\n", p.Title))
	sb.WriteString("## Video Information\n\n")
	sb.WriteString(fmt.Sprintf("- **URL:** %s\n", p.URL))
	sb.WriteString(fmt.Sprintf("- **Duration:** %.0f seconds\n", p.DurationSeconds))
	sb.WriteString(fmt.Sprintf("- **Extracted Slides:** %d\n\n", len(p.Slides)))

	if p.IncludeTimeline {
		sb.WriteString("## Timeline\n\n")
		sb.WriteString("```mermaid\ngraph LR\n")
		for _, slide := range p.Slides {
			sb.WriteString(fmt.Sprintf("    S%d[\"Slide %d (%.0fs)\"]\n",
				slide.Index, slide.Index, slide.TimestampSec))
			if slide.Index > 1 {
				sb.WriteString(fmt.Sprintf("    S%d --> S%d\n", slide.Index-1, slide.Index))
			}
		}
		sb.WriteString("```\n\n")
	}

	sb.WriteString("## Slides Detail\n\n")
	for _, slide := range p.Slides {
		sb.WriteString(fmt.Sprintf("### Slide %d\n\n", slide.Index))
		sb.WriteString(fmt.Sprintf("- **Timestamp:** %.2fs\n\n", slide.TimestampSec))
		sb.WriteString(fmt.Sprintf("![Slide %d](%s)\n\n", slide.Index, slide.ImageFile))

		sb.WriteString("#### Extracted Text\n\n")
		if text := strings.TrimSpace(slide.Text); text == "" {
			sb.WriteString("*No text detected.*\n\n")
		} else {
			sb.WriteString(text + "\n\n")
		}
		sb.WriteString("---\n\n")
	}

	return sb.String(), nil
}

// Write renders the document and lands it at path atomically: the content
// goes to a temp file first and is renamed into place, so a crash mid-write
// never leaves a truncated report behind.
func Write(path string, p Params) error {
	content, err := Render(p)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return entity.ErrFilesystem("create report directory", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, []byte(content), 0644); err != nil {
		return entity.ErrFilesystem("write report", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return entity.ErrFilesystem("finalize report", err)
	}
	return nil
}
