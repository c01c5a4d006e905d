package entity

import (
	"time"

	"github.com/google/uuid"
)

type JobStatus string

const (
	JobStatusPending    JobStatus = "PENDING"
	JobStatusProcessing JobStatus = "PROCESSING"
	JobStatusCompleted  JobStatus = "COMPLETED"
	JobStatusFailed     JobStatus = "FAILED"
)

// Job tracks one queued extraction request across worker restarts. Its ID
// doubles as the session ID, so a redelivered message resumes the same
// checkpoint instead of starting over.
type Job struct {
	ID            uuid.UUID
	UserID        string
	VideoURL      string
	ArchiveKey    string
	ReportKey     string
	Status        JobStatus
	SlideCount    int
	VideoDuration float64
	Attempt       int
	MaxAttempts   int
	ErrorMessage  string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	CompletedAt   *time.Time
}

func NewJob(userID, videoURL string, maxAttempts int) *Job {
	now := time.Now().UTC()
	return &Job{
		ID:          uuid.New(),
		UserID:      userID,
		VideoURL:    videoURL,
		Status:      JobStatusPending,
		Attempt:     0,
		MaxAttempts: maxAttempts,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (j *Job) MarkProcessing() {
	j.Status = JobStatusProcessing
	j.Attempt++
	j.UpdatedAt = time.Now().UTC()
}

func (j *Job) MarkCompleted(archiveKey, reportKey string, slideCount int, duration float64) {
	now := time.Now().UTC()
	j.Status = JobStatusCompleted
	j.ArchiveKey = archiveKey
	j.ReportKey = reportKey
	j.SlideCount = slideCount
	j.VideoDuration = duration
	j.UpdatedAt = now
	j.CompletedAt = &now
}

func (j *Job) MarkFailed(errMsg string) {
	j.Status = JobStatusFailed
	j.ErrorMessage = errMsg
	j.UpdatedAt = time.Now().UTC()
}

func (j *Job) CanRetry() bool {
	return j.Attempt < j.MaxAttempts
}

// SessionID is the checkpoint directory name used for this job's run.
func (j *Job) SessionID() string {
	return j.ID.String()
}
