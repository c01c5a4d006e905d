package tesseract

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/ragavsathish/yt-sl/internal/domain/entity"
	"github.com/ragavsathish/yt-sl/internal/domain/port"
	"go.uber.org/zap"
)

// Recognizer shells out to the tesseract CLI in TSV mode, which carries a
// per-word confidence column alongside the recognized text.
type Recognizer struct {
	binary    string
	languages []string
	logger    *zap.Logger
}

func NewRecognizer(languages []string, logger *zap.Logger) *Recognizer {
	return &Recognizer{
		binary:    "tesseract",
		languages: languages,
		logger:    logger,
	}
}

func (r *Recognizer) RecognizeText(ctx context.Context, imagePath string) (*port.RecognizedText, error) {
	if _, err := os.Stat(imagePath); err != nil {
		return nil, entity.ErrFilesystem(fmt.Sprintf("slide image not found: %s", imagePath), err)
	}

	// tesseract appends .tsv to the output base name itself.
	tmp, err := os.CreateTemp("", "ytsl-ocr-*")
	if err != nil {
		return nil, entity.ErrFilesystem("create temp file for ocr output", err)
	}
	outBase := tmp.Name()
	tmp.Close()
	defer os.Remove(outBase)
	defer os.Remove(outBase + ".tsv")

	args := []string{imagePath, outBase}
	if len(r.languages) > 0 {
		args = append(args, "-l", strings.Join(r.languages, "+"))
	}
	args = append(args, "tsv")

	cmd := exec.CommandContext(ctx, r.binary, args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		var execErr *exec.Error
		if errors.As(err, &execErr) || errors.Is(err, fs.ErrNotExist) {
			return nil, entity.ErrDependencyMissing("tesseract",
				"Install it with apt-get install tesseract-ocr plus language data packages (e.g. tesseract-ocr-eng).", err)
		}
		return nil, entity.ErrOCRFailure(imagePath, fmt.Errorf("%w: %s", err, strings.TrimSpace(string(output))))
	}

	content, err := os.ReadFile(outBase + ".tsv")
	if err != nil {
		return nil, entity.ErrFilesystem("read tesseract tsv output", err)
	}

	text, confidence := parseTSV(string(content))
	r.logger.Debug("text recognized",
		zap.String("image", imagePath),
		zap.Int("chars", len(text)),
		zap.Float64("confidence", confidence),
	)

	return &port.RecognizedText{Text: text, Confidence: confidence}, nil
}

// parseTSV joins the word-level rows of tesseract's TSV output and averages
// their confidences into [0,1]. Rows with confidence -1 are structural
// (page, block, line) and carry no text.
func parseTSV(content string) (string, float64) {
	var words []string
	var totalConfidence float64

	lines := strings.Split(content, "\n")
	for i, line := range lines {
		if i == 0 {
			continue
		}
		cols := strings.Split(line, "\t")
		if len(cols) < 12 {
			continue
		}
		conf, err := strconv.ParseFloat(cols[10], 64)
		if err != nil || conf < 0 {
			continue
		}
		word := strings.TrimSpace(cols[11])
		if word == "" {
			continue
		}
		words = append(words, word)
		totalConfidence += conf
	}

	if len(words) == 0 {
		return "", 0
	}
	return strings.Join(words, " "), totalConfidence / float64(len(words)) / 100
}
