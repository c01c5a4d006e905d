package port

import "context"

type RecognizedText struct {
	Text       string
	Confidence float64
}

// TextRecognizer runs OCR over a slide image. Confidence is the average
// per-word score in [0,1]; callers decide how to treat low scores.
type TextRecognizer interface {
	RecognizeText(ctx context.Context, imagePath string) (*RecognizedText, error)
}
