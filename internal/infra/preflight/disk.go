package preflight

import (
	"fmt"

	"github.com/ragavsathish/yt-sl/internal/domain/entity"
	"golang.org/x/sys/unix"
)

// CheckDiskSpace verifies the filesystem holding path has at least
// requiredMB available for downloaded video and extracted frames.
func CheckDiskSpace(path string, requiredMB uint64) error {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return entity.ErrFilesystem(fmt.Sprintf("stat filesystem for %s", path), err)
	}

	availableMB := uint64(st.Bavail) * uint64(st.Bsize) / (1024 * 1024)
	if availableMB < requiredMB {
		return entity.ErrInsufficientDisk(availableMB, requiredMB)
	}
	return nil
}
