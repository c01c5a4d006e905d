package entity

import "github.com/google/uuid"

// ExtractionRequestMessage is the inbound message from the slides.extract queue.
type ExtractionRequestMessage struct {
	JobID     uuid.UUID `json:"job_id"`
	UserID    string    `json:"user_id"`
	VideoURL  string    `json:"video_url"`
	UserEmail string    `json:"user_email"`
}

// ExtractionStatusMessage is the outbound message published to the slides.status queue.
type ExtractionStatusMessage struct {
	JobID        uuid.UUID `json:"job_id"`
	UserID       string    `json:"user_id"`
	Status       JobStatus `json:"status"`
	VideoURL     string    `json:"video_url"`
	ArchiveKey   string    `json:"archive_key,omitempty"`
	ReportKey    string    `json:"report_key,omitempty"`
	SlideCount   int       `json:"slide_count,omitempty"`
	Duration     float64   `json:"duration_seconds,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
	Attempt      int       `json:"attempt"`
	MaxAttempts  int       `json:"max_attempts"`
}
