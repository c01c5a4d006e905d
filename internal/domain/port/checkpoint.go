package port

import "github.com/ragavsathish/yt-sl/internal/domain/entity"

// CheckpointStore persists session state between stages. Load's second
// return is false when no usable checkpoint exists: either none was written
// yet, or the file on disk failed to parse and the run starts fresh.
type CheckpointStore interface {
	Load(sessionDir string) (*entity.Session, bool, error)
	Save(sessionDir string, session *entity.Session) error
}
