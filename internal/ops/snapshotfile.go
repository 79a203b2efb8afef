package ops

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/cedricdekimpe/MigraineTracker/internal/config"
	"github.com/cedricdekimpe/MigraineTracker/internal/errors"
	"github.com/cedricdekimpe/MigraineTracker/internal/tracker"
)

type snapshotFileMode int

const (
	forImport snapshotFileMode = iota
	forExport
)

// snapshotFile is a snapshot location that passed the file checks.
// Resolved is the path actually opened: the parent directory's symlinks are
// already resolved, so only the final component is left for O_NOFOLLOW.
type snapshotFile struct {
	Path     string
	Resolved string
}

// resolveSnapshotFile checks where a snapshot may be read from or written to.
//
// The name must end in .json and contain no "..". Its parent directory,
// after resolving symlinks, must be the exports directory or an absolute
// allowed_paths entry; allow_unsafe_paths lifts that rule only. The file
// itself may not be a symlink or anything but a regular file. An import
// file must exist and fit in max_import_bytes, which is checked here so an
// oversized file is refused before it is opened.
func resolveSnapshotFile(path string, mode snapshotFileMode, cfg *config.Config) (*snapshotFile, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.NewInvalidRequest("path is required")
	}
	if hasDotDot(path) {
		return nil, errors.NewInvalidRequest("path must not contain directory traversal (..)")
	}
	if !strings.EqualFold(filepath.Ext(path), ".json") {
		return nil, errors.NewInvalidRequest("snapshot files must have a .json extension")
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("invalid path: %v", err))
	}
	parent, err := realDir(filepath.Dir(abs))
	if err != nil {
		return nil, err
	}

	if cfg == nil || !cfg.AllowUnsafePaths {
		dirs, err := snapshotDirs(cfg)
		if err != nil {
			return nil, err
		}
		if !slices.Contains(dirs, parent) {
			return nil, errors.NewInvalidRequest(fmt.Sprintf(
				"snapshot files must sit directly in one of: %s", strings.Join(dirs, ", ")))
		}
	}

	f := &snapshotFile{Path: path, Resolved: filepath.Join(parent, filepath.Base(abs))}

	info, err := os.Lstat(f.Resolved)
	switch {
	case stderrors.Is(err, fs.ErrNotExist):
		if mode == forImport {
			return nil, errors.NewFileNotFound(path)
		}
		return f, nil
	case err != nil:
		return nil, errors.NewInternal(fmt.Errorf("stat snapshot file: %w", err))
	}

	if info.Mode()&os.ModeSymlink != 0 {
		return nil, errors.NewInvalidRequest("snapshot file must not be a symlink")
	}
	if !info.Mode().IsRegular() {
		return nil, errors.NewInvalidRequest("snapshot path is not a regular file")
	}
	if mode == forImport {
		if limit := maxImportBytes(cfg); limit > 0 && info.Size() > limit {
			return nil, errors.NewInvalidRequest(fmt.Sprintf(
				"snapshot file is %d bytes, over max_import_bytes (%d)", info.Size(), limit))
		}
	}
	return f, nil
}

// snapshotDirs lists the directories snapshot files may sit in, resolved.
// Relative allowed_paths entries are ignored.
func snapshotDirs(cfg *config.Config) ([]string, error) {
	exports, err := exportsDir()
	if err != nil {
		return nil, err
	}
	candidates := []string{exports}
	if cfg != nil {
		for _, p := range cfg.AllowedPaths {
			if filepath.IsAbs(p) {
				candidates = append(candidates, p)
			}
		}
	}

	dirs := make([]string, 0, len(candidates))
	for _, c := range candidates {
		d, err := realDir(c)
		if err != nil {
			return nil, err
		}
		if !slices.Contains(dirs, d) {
			dirs = append(dirs, d)
		}
	}
	return dirs, nil
}

// realDir resolves symlinks in dir. A directory that does not exist yet
// (the exports dir before the first export) is returned cleaned.
func realDir(dir string) (string, error) {
	resolved, err := filepath.EvalSymlinks(dir)
	if err == nil {
		return resolved, nil
	}
	if stderrors.Is(err, fs.ErrNotExist) {
		return filepath.Clean(dir), nil
	}
	return "", errors.NewInvalidRequest(fmt.Sprintf("cannot resolve directory %s: %v", dir, err))
}

// exportsDir returns <base>/exports.
func exportsDir() (string, error) {
	base, err := config.BaseDir()
	if err != nil {
		return "", errors.NewInternal(fmt.Errorf("failed to get base directory: %w", err))
	}
	return filepath.Join(base, "exports"), nil
}

// defaultExportPath names a new export after the account and the time:
// <base>/exports/<email>-<UTC timestamp>.json.
func defaultExportPath(email string, now time.Time) (string, error) {
	dir, err := exportsDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, exportFileName(email, now)), nil
}

// exportFileName builds a snapshot file name from an account email. Only
// [a-z0-9@._+-] survive; anything else becomes "-", runs of separators
// collapse, and an email with nothing usable falls back to "export".
func exportFileName(email string, now time.Time) string {
	var b strings.Builder
	prev := '-'
	for _, r := range tracker.NormalizeEmail(email) {
		if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || strings.ContainsRune("@._+-", r)) {
			r = '-'
		}
		if isNameSeparator(r) && isNameSeparator(prev) {
			continue
		}
		b.WriteRune(r)
		prev = r
	}
	stem := strings.TrimRight(b.String(), "-.")
	if stem == "" {
		stem = "export"
	}
	return fmt.Sprintf("%s-%s.json", stem, now.UTC().Format("20060102T150405Z"))
}

func isNameSeparator(r rune) bool { return r == '-' || r == '.' }

func maxImportBytes(cfg *config.Config) int64 {
	if cfg == nil {
		return 0
	}
	return cfg.MaxImportBytes
}

// hasDotDot reports a ".." element under either separator.
func hasDotDot(path string) bool {
	parts := strings.FieldsFunc(path, func(r rune) bool { return r == '/' || r == '\\' })
	return slices.Contains(parts, "..")
}
