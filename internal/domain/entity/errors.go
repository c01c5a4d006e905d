package entity

import (
	"errors"
	"fmt"
	"time"
)

// ErrorCategory classifies extraction failures for reporting and retry
// decisions.
type ErrorCategory string

const (
	// CategoryValidation covers malformed input locators and configuration.
	// Never retried.
	CategoryValidation ErrorCategory = "validation"
	// CategoryExternal covers network timeouts, unavailable or restricted
	// content, and missing external tools.
	CategoryExternal ErrorCategory = "external"
	// CategoryProcessing covers corrupt frames, OCR failures and empty
	// dedup results.
	CategoryProcessing ErrorCategory = "processing"
	// CategoryResource covers memory threshold and disk space failures.
	CategoryResource ErrorCategory = "resource"
)

// ExtractionError is the typed failure returned across every collaborator
// boundary. Message is the short technical description; Advice is the longer
// actionable one (what happened, likely cause, suggested remedy). Transient
// marks failures eligible for bounded retry.
type ExtractionError struct {
	Category  ErrorCategory
	Message   string
	Advice    string
	Transient bool
	Err       error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err wraps a retry-eligible extraction failure.
func IsTransient(err error) bool {
	var ee *ExtractionError
	return errors.As(err, &ee) && ee.Transient
}

// CategoryOf returns the failure category of err, defaulting to processing
// for untyped errors.
func CategoryOf(err error) ErrorCategory {
	var ee *ExtractionError
	if errors.As(err, &ee) {
		return ee.Category
	}
	return CategoryProcessing
}

// AdviceOf returns the actionable message of err, or a generic fallback for
// untyped errors.
func AdviceOf(err error) string {
	var ee *ExtractionError
	if errors.As(err, &ee) && ee.Advice != "" {
		return ee.Advice
	}
	return "An unexpected error occurred. Check the log output for details and retry; " +
		"if the problem persists, report it with the full log."
}

// ErrInvalidLocator reports a video URL that is not a recognized format or
// carries no extractable video identifier.
func ErrInvalidLocator(url, detail string) *ExtractionError {
	return &ExtractionError{
		Category: CategoryValidation,
		Message:  fmt.Sprintf("invalid video URL %q: %s", url, detail),
		Advice: fmt.Sprintf("The URL %q is not a valid YouTube URL (%s). Provide one of the "+
			"supported formats, e.g. https://www.youtube.com/watch?v=VIDEO_ID or "+
			"https://youtu.be/VIDEO_ID.", url, detail),
	}
}

// ErrInvalidConfig reports one or more configuration violations.
func ErrInvalidConfig(detail string) *ExtractionError {
	return &ExtractionError{
		Category: CategoryValidation,
		Message:  fmt.Sprintf("invalid configuration: %s", detail),
		Advice: fmt.Sprintf("Invalid configuration: %s. Check the configuration values and flags, "+
			"then try again.", detail),
	}
}

// ErrVideoTooLong rejects videos above the configured duration ceiling.
func ErrVideoTooLong(durationSec, maxSec float64) *ExtractionError {
	return &ExtractionError{
		Category: CategoryValidation,
		Message:  fmt.Sprintf("video too long: %.0fs (maximum %.0fs)", durationSec, maxSec),
		Advice: fmt.Sprintf("The video runs %.0f seconds but the configured maximum is %.0f seconds. "+
			"Process a shorter video or raise the maximum duration setting.", durationSec, maxSec),
	}
}

// ErrContentUnavailable reports deleted or otherwise missing content.
func ErrContentUnavailable(detail string) *ExtractionError {
	return &ExtractionError{
		Category: CategoryExternal,
		Message:  fmt.Sprintf("content unavailable: %s", detail),
		Advice: "The video is unavailable. It may have been deleted, made private, or removed " +
			"by the uploader. Try a different video.",
	}
}

// ErrAccessRestricted reports private or age-gated content.
func ErrAccessRestricted(detail string) *ExtractionError {
	return &ExtractionError{
		Category: CategoryExternal,
		Message:  fmt.Sprintf("access restricted: %s", detail),
		Advice: "The video is access-restricted (private or age-gated) and cannot be downloaded. " +
			"Restricted content is not supported; try a different video.",
	}
}

// ErrGeoRestricted reports region-locked content.
func ErrGeoRestricted(detail string) *ExtractionError {
	return &ExtractionError{
		Category: CategoryExternal,
		Message:  fmt.Sprintf("geographically restricted: %s", detail),
		Advice: "The video is region-locked and not available from the current location. " +
			"Try a different video.",
	}
}

// ErrNetworkTimeout reports a timed-out external operation. Transient:
// the orchestrator retries it within the configured attempt budget.
func ErrNetworkTimeout(timeout time.Duration, err error) *ExtractionError {
	return &ExtractionError{
		Category:  CategoryExternal,
		Message:   fmt.Sprintf("network timeout after %s", timeout),
		Transient: true,
		Err:       err,
		Advice: fmt.Sprintf("The operation timed out after %s. Check the network connection and "+
			"retry; on a slow connection, increase the timeout setting.", timeout),
	}
}

// ErrDependencyMissing reports an external tool that could not be invoked.
func ErrDependencyMissing(tool, remedy string, err error) *ExtractionError {
	return &ExtractionError{
		Category: CategoryExternal,
		Message:  fmt.Sprintf("external dependency %q unavailable", tool),
		Err:      err,
		Advice: fmt.Sprintf("The external tool %q is not available on PATH. %s", tool, remedy),
	}
}

// ErrCorruptFrame reports a frame file that could not be decoded, carrying
// the frame's timestamp. Callers may skip it up to a configured maximum.
func ErrCorruptFrame(timestampSec float64, err error) *ExtractionError {
	return &ExtractionError{
		Category: CategoryProcessing,
		Message:  fmt.Sprintf("corrupt frame at %.1fs", timestampSec),
		Err:      err,
		Advice: fmt.Sprintf("The frame at %.1fs could not be decoded and was skipped. If many "+
			"frames are corrupt, the downloaded video file may be damaged.", timestampSec),
	}
}

// ErrTooManyCorruptFrames aborts a run whose skip budget is exhausted.
func ErrTooManyCorruptFrames(count, max int) *ExtractionError {
	return &ExtractionError{
		Category: CategoryProcessing,
		Message:  fmt.Sprintf("too many corrupt frames: %d skipped (maximum %d)", count, max),
		Advice: fmt.Sprintf("%d frames could not be decoded (maximum allowed: %d). The video file "+
			"is likely damaged; delete the session directory and retry the download.", count, max),
	}
}

// ErrNoSlidesFound reports an empty dedup result, which signals upstream
// misconfiguration rather than a valid empty outcome.
func ErrNoSlidesFound() *ExtractionError {
	return &ExtractionError{
		Category: CategoryProcessing,
		Message:  "no slides found",
		Advice: "No unique slides were identified. The video may not contain slides, the " +
			"similarity threshold may be too high, or the frame interval too large. Lower the " +
			"threshold or reduce the interval and retry.",
	}
}

// ErrOCRFailure reports a failed text-recognition invocation.
func ErrOCRFailure(imagePath string, err error) *ExtractionError {
	return &ExtractionError{
		Category: CategoryProcessing,
		Message:  fmt.Sprintf("text recognition failed for %s", imagePath),
		Err:      err,
		Advice: "Tesseract failed to process a slide image. Ensure tesseract is installed with " +
			"the required language data (e.g. tesseract-ocr-eng) and retry.",
	}
}

// ErrMemoryExceeded reports a hard memory threshold crossing.
func ErrMemoryExceeded(usedMB, thresholdMB uint64) *ExtractionError {
	return &ExtractionError{
		Category: CategoryResource,
		Message:  fmt.Sprintf("memory threshold exceeded: %dMB used of %dMB limit", usedMB, thresholdMB),
		Advice: fmt.Sprintf("Memory usage (%dMB) exceeded the configured %dMB threshold. Process a "+
			"shorter video, increase the frame interval, or raise the memory threshold.", usedMB, thresholdMB),
	}
}

// ErrInsufficientDisk reports too little free space in the output location.
func ErrInsufficientDisk(availableMB, requiredMB uint64) *ExtractionError {
	return &ExtractionError{
		Category: CategoryResource,
		Message:  fmt.Sprintf("insufficient disk space: %dMB available, %dMB required", availableMB, requiredMB),
		Advice: fmt.Sprintf("Only %dMB of disk space is available but %dMB is required. Free up "+
			"space or choose a different output directory.", availableMB, requiredMB),
	}
}

// ErrFilesystem wraps a failed filesystem operation.
func ErrFilesystem(op string, err error) *ExtractionError {
	return &ExtractionError{
		Category: CategoryResource,
		Message:  fmt.Sprintf("filesystem error: %s", op),
		Err:      err,
		Advice: fmt.Sprintf("A filesystem operation failed (%s). Check permissions and free space "+
			"for the output directory.", op),
	}
}

// ErrInternal wraps an unexpected internal failure.
func ErrInternal(detail string, err error) *ExtractionError {
	return &ExtractionError{
		Category: CategoryProcessing,
		Message:  fmt.Sprintf("internal error: %s", detail),
		Err:      err,
		Advice: fmt.Sprintf("An internal error occurred: %s. This is likely a bug; report it with "+
			"the full log output.", detail),
	}
}
