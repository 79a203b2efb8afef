//go:build windows

package ops

import (
	"os"

	"github.com/cedricdekimpe/MigraineTracker/internal/errors"
)

// openFileNoFollow opens a snapshot temp file for writing.
// Windows has no O_NOFOLLOW; resolveSnapshotFile's Lstat check is the only guard.
func openFileNoFollow(path string, flag int, perm os.FileMode) (*os.File, error) {
	return os.OpenFile(path, flag, perm)
}

// openFileNoFollowRead opens a snapshot file for import.
func openFileNoFollowRead(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewFileNotFound(path)
		}
		return nil, err
	}
	return f, nil
}
