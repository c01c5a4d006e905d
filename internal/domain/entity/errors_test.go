package entity

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestErrorCategories(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      *ExtractionError
		category ErrorCategory
	}{
		{"invalid locator", ErrInvalidLocator("not-a-url", "missing scheme"), CategoryValidation},
		{"invalid config", ErrInvalidConfig("frame interval out of range"), CategoryValidation},
		{"video too long", ErrVideoTooLong(20000, 14400), CategoryValidation},
		{"content unavailable", ErrContentUnavailable("video removed"), CategoryExternal},
		{"access restricted", ErrAccessRestricted("sign in to confirm your age"), CategoryExternal},
		{"geo restricted", ErrGeoRestricted("not available in your country"), CategoryExternal},
		{"network timeout", ErrNetworkTimeout(30*time.Second, errors.New("deadline exceeded")), CategoryExternal},
		{"dependency missing", ErrDependencyMissing("yt-dlp", "Install it with pip.", errors.New("not found")), CategoryExternal},
		{"corrupt frame", ErrCorruptFrame(15.0, errors.New("invalid JPEG")), CategoryProcessing},
		{"too many corrupt frames", ErrTooManyCorruptFrames(11, 10), CategoryProcessing},
		{"no slides", ErrNoSlidesFound(), CategoryProcessing},
		{"ocr failure", ErrOCRFailure("slide_0001.jpg", errors.New("exit status 1")), CategoryProcessing},
		{"memory exceeded", ErrMemoryExceeded(612, 500), CategoryResource},
		{"insufficient disk", ErrInsufficientDisk(120, 500), CategoryResource},
		{"filesystem", ErrFilesystem("create frames dir", errors.New("permission denied")), CategoryResource},
		{"internal", ErrInternal("nil metadata", nil), CategoryProcessing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.category, tt.err.Category)
			assert.Equal(t, tt.category, CategoryOf(tt.err))
			assert.NotEmpty(t, tt.err.Advice)
		})
	}
}

func TestOnlyNetworkTimeoutIsTransient(t *testing.T) {
	t.Parallel()

	timeout := ErrNetworkTimeout(5*time.Second, errors.New("i/o timeout"))
	assert.True(t, IsTransient(timeout))

	assert.False(t, IsTransient(ErrContentUnavailable("deleted")))
	assert.False(t, IsTransient(ErrAccessRestricted("private")))
	assert.False(t, IsTransient(ErrInvalidLocator("x", "missing scheme")))
	assert.False(t, IsTransient(ErrMemoryExceeded(600, 500)))
	assert.False(t, IsTransient(errors.New("plain")))
}

func TestTransientSurvivesWrapping(t *testing.T) {
	t.Parallel()

	inner := ErrNetworkTimeout(5*time.Second, errors.New("i/o timeout"))
	wrapped := fmt.Errorf("fetch metadata: %w", inner)

	assert.True(t, IsTransient(wrapped))
	assert.Equal(t, CategoryExternal, CategoryOf(wrapped))
	assert.Equal(t, inner.Advice, AdviceOf(wrapped))
}

func TestErrorMessageIncludesCause(t *testing.T) {
	t.Parallel()

	cause := errors.New("connection refused")
	err := ErrNetworkTimeout(10*time.Second, cause)

	assert.Contains(t, err.Error(), "network timeout after 10s")
	assert.Contains(t, err.Error(), "connection refused")
	assert.ErrorIs(t, err, cause)
}

func TestUntypedErrorDefaults(t *testing.T) {
	t.Parallel()

	err := errors.New("something broke")
	assert.Equal(t, CategoryProcessing, CategoryOf(err))
	assert.NotEmpty(t, AdviceOf(err))
}
