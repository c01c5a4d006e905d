package preflight

import (
	"os"
	"path/filepath"

	"github.com/ragavsathish/yt-sl/internal/domain/entity"
)

// EnsureOutputDir makes sure the output directory exists, is writable, and
// sits on a filesystem with at least minFreeMB available. The write probe
// catches read-only mounts and permission problems before any download
// starts.
func EnsureOutputDir(path string, minFreeMB uint64) error {
	if err := os.MkdirAll(path, 0755); err != nil {
		return entity.ErrFilesystem("create output directory", err)
	}

	probe := filepath.Join(path, ".ytsl-write-probe")
	if err := os.WriteFile(probe, []byte("probe"), 0644); err != nil {
		return entity.ErrFilesystem("write to output directory", err)
	}
	os.Remove(probe)

	return CheckDiskSpace(path, minFreeMB)
}
