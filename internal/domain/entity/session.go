package entity

import (
	"fmt"
	"time"
)

// SessionStatus is the pipeline stage a session has last completed.
type SessionStatus string

const (
	StatusStarting         SessionStatus = "STARTING"
	StatusMetadataFetched  SessionStatus = "METADATA_FETCHED"
	StatusVideoDownloaded  SessionStatus = "VIDEO_DOWNLOADED"
	StatusFramesExtracted  SessionStatus = "FRAMES_EXTRACTED"
	StatusSlidesIdentified SessionStatus = "UNIQUE_SLIDES_IDENTIFIED"
	StatusCompleted        SessionStatus = "COMPLETED"
	// StatusFailed is held in memory and reported downstream; the on-disk
	// checkpoint keeps the last successful status so the session stays
	// resumable.
	StatusFailed SessionStatus = "FAILED"
)

var statusRank = map[SessionStatus]int{
	StatusStarting:         0,
	StatusMetadataFetched:  1,
	StatusVideoDownloaded:  2,
	StatusFramesExtracted:  3,
	StatusSlidesIdentified: 4,
	StatusCompleted:        5,
}

// NextStage returns the status that follows s in the pipeline. ok is false
// for terminal or unknown statuses.
func NextStage(s SessionStatus) (SessionStatus, bool) {
	switch s {
	case StatusStarting:
		return StatusMetadataFetched, true
	case StatusMetadataFetched:
		return StatusVideoDownloaded, true
	case StatusVideoDownloaded:
		return StatusFramesExtracted, true
	case StatusFramesExtracted:
		return StatusSlidesIdentified, true
	case StatusSlidesIdentified:
		return StatusCompleted, true
	default:
		return "", false
	}
}

// ParseStatus validates a status string read from a checkpoint file.
func ParseStatus(s string) (SessionStatus, error) {
	st := SessionStatus(s)
	if _, ok := statusRank[st]; !ok {
		return "", fmt.Errorf("unknown session status %q", s)
	}
	return st, nil
}

// Session is the unit of resumable work: one video extraction run, persisted
// after every completed stage so an interrupted run picks up where it
// stopped. Path fields are populated as stages complete and never cleared.
type Session struct {
	ID        string        `json:"session_id"`
	VideoURL  string        `json:"video_url"`
	Status    SessionStatus `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`

	Metadata   *VideoMetadata `json:"video_metadata,omitempty"`
	VideoPath  string         `json:"video_path,omitempty"`
	FramesDir  string         `json:"frames_dir,omitempty"`
	SlidesDir  string         `json:"slides_dir,omitempty"`
	ReportPath string         `json:"report_path,omitempty"`

	FrameCount    int           `json:"frame_count,omitempty"`
	FrameInterval float64       `json:"frame_interval_seconds,omitempty"`
	Slides        []SlideRecord `json:"slides,omitempty"`

	// FailureReason accompanies StatusFailed in status updates; it is never
	// written to the checkpoint.
	FailureReason string `json:"-"`
}

func NewSession(id, videoURL string) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:        id,
		VideoURL:  videoURL,
		Status:    StatusStarting,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// advance moves the session to the given status when that status is the
// direct successor of the current one. Transitions are forward-only.
func (s *Session) advance(to SessionStatus) error {
	next, ok := NextStage(s.Status)
	if !ok || next != to {
		return fmt.Errorf("invalid transition %s -> %s", s.Status, to)
	}
	s.Status = to
	s.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *Session) MarkMetadataFetched(meta *VideoMetadata) error {
	if err := s.advance(StatusMetadataFetched); err != nil {
		return err
	}
	s.Metadata = meta
	return nil
}

func (s *Session) MarkVideoDownloaded(videoPath string) error {
	if err := s.advance(StatusVideoDownloaded); err != nil {
		return err
	}
	s.VideoPath = videoPath
	return nil
}

func (s *Session) MarkFramesExtracted(framesDir string, frameCount int, frameInterval float64) error {
	if err := s.advance(StatusFramesExtracted); err != nil {
		return err
	}
	s.FramesDir = framesDir
	s.FrameCount = frameCount
	s.FrameInterval = frameInterval
	return nil
}

func (s *Session) MarkSlidesIdentified(slidesDir string, slides []SlideRecord) error {
	if err := s.advance(StatusSlidesIdentified); err != nil {
		return err
	}
	s.SlidesDir = slidesDir
	s.Slides = slides
	return nil
}

func (s *Session) MarkCompleted(reportPath string) error {
	if err := s.advance(StatusCompleted); err != nil {
		return err
	}
	s.ReportPath = reportPath
	return nil
}

// MarkFailed records the failure in memory only. The checkpoint on disk is
// left at the last successful status.
func (s *Session) MarkFailed(reason string) {
	s.Status = StatusFailed
	s.FailureReason = reason
	s.UpdatedAt = time.Now().UTC()
}

// Reached reports whether the session has completed the given stage.
func (s *Session) Reached(status SessionStatus) bool {
	cur, ok := statusRank[s.Status]
	if !ok {
		return false
	}
	want, ok := statusRank[status]
	if !ok {
		return false
	}
	return cur >= want
}
