package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ragavsathish/yt-sl/internal/domain/entity"
	"go.uber.org/zap"
)

const stateFile = "session.json"

// Store reads and writes session.json under the session directory. Writes
// go through a temp file and rename, so an interrupted run never leaves a
// truncated checkpoint behind.
type Store struct {
	logger *zap.Logger
}

func NewStore(logger *zap.Logger) *Store {
	return &Store{logger: logger}
}

// Load reads the checkpoint for sessionDir. A missing file means a fresh
// run. A file that exists but does not parse also means a fresh run, logged
// as a warning; only an unreadable file is an error.
func (s *Store) Load(sessionDir string) (*entity.Session, bool, error) {
	path := filepath.Join(sessionDir, stateFile)

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, entity.ErrFilesystem("read session state", err)
	}

	var session entity.Session
	if err := json.Unmarshal(data, &session); err != nil {
		s.logger.Warn("failed to parse session state, starting fresh",
			zap.String("path", path), zap.Error(err))
		return nil, false, nil
	}
	if _, err := entity.ParseStatus(string(session.Status)); err != nil {
		s.logger.Warn("session state has unknown status, starting fresh",
			zap.String("path", path), zap.Error(err))
		return nil, false, nil
	}

	return &session, true, nil
}

// Save persists the session atomically, creating the session directory if
// needed.
func (s *Store) Save(sessionDir string, session *entity.Session) error {
	if err := os.MkdirAll(sessionDir, 0755); err != nil {
		return entity.ErrFilesystem("create session directory", err)
	}

	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session state: %w", err)
	}

	path := filepath.Join(sessionDir, stateFile)
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return entity.ErrFilesystem("write session state", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return entity.ErrFilesystem("finalize session state", err)
	}
	return nil
}
