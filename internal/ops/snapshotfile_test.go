package ops

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cedricdekimpe/MigraineTracker/internal/config"
	"github.com/cedricdekimpe/MigraineTracker/internal/errors"
)

// snapshotTestDirs points the base dir at a temp dir and returns it with a
// second directory listed in allowed_paths.
func snapshotTestDirs(t *testing.T) (base, allowed string, cfg *config.Config) {
	t.Helper()
	base = t.TempDir()
	t.Setenv("MIGRAINE_HOME", base)
	allowed = t.TempDir()
	cfg = config.DefaultConfig()
	cfg.AllowedPaths = []string{allowed}
	return base, allowed, cfg
}

func realPath(t *testing.T, path string) string {
	t.Helper()
	dir, err := filepath.EvalSymlinks(filepath.Dir(path))
	require.NoError(t, err)
	return filepath.Join(dir, filepath.Base(path))
}

func TestResolveSnapshotFile_RejectedNames(t *testing.T) {
	_, allowed, cfg := snapshotTestDirs(t)
	cfg.AllowUnsafePaths = true

	tests := []struct {
		name string
		path string
	}{
		{"empty", ""},
		{"blank", "  "},
		{"parent traversal", "../backup.json"},
		{"traversal inside allowed dir", allowed + "/../backup.json"},
		{"backslash traversal", `exports\..\..\backup.json`},
		{"no extension", filepath.Join(allowed, "backup")},
		{"other extension", filepath.Join(allowed, "backup.jsonl")},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := resolveSnapshotFile(tc.path, forExport, cfg)
			assert.True(t, errors.Is(err, errors.ErrInvalidRequest), "got %v", err)
		})
	}

	// Extension match ignores case
	_, err := resolveSnapshotFile(filepath.Join(allowed, "BACKUP.JSON"), forExport, cfg)
	assert.NoError(t, err)
}

func TestResolveSnapshotFile_Directories(t *testing.T) {
	base, allowed, cfg := snapshotTestDirs(t)
	elsewhere := t.TempDir()

	t.Run("exports dir before it exists", func(t *testing.T) {
		path := filepath.Join(base, "exports", "backup.json")
		f, err := resolveSnapshotFile(path, forExport, cfg)
		require.NoError(t, err)
		assert.Equal(t, path, f.Path)
		assert.Equal(t, "backup.json", filepath.Base(f.Resolved))
	})

	t.Run("allowed_paths entry", func(t *testing.T) {
		path := filepath.Join(allowed, "backup.json")
		f, err := resolveSnapshotFile(path, forExport, cfg)
		require.NoError(t, err)
		assert.Equal(t, realPath(t, path), f.Resolved)
	})

	t.Run("outside every allowed dir", func(t *testing.T) {
		_, err := resolveSnapshotFile(filepath.Join(elsewhere, "backup.json"), forExport, cfg)
		require.True(t, errors.Is(err, errors.ErrInvalidRequest), "got %v", err)
		assert.Contains(t, errors.As(err).Message, "must sit directly in one of")
	})

	t.Run("subdirectory of an allowed dir", func(t *testing.T) {
		nested := filepath.Join(allowed, "2025")
		require.NoError(t, os.MkdirAll(nested, 0700))
		_, err := resolveSnapshotFile(filepath.Join(nested, "backup.json"), forExport, cfg)
		assert.True(t, errors.Is(err, errors.ErrInvalidRequest), "got %v", err)
	})

	t.Run("relative allowed_paths entries are ignored", func(t *testing.T) {
		relCfg := config.DefaultConfig()
		relCfg.AllowedPaths = []string{"."}
		wd, err := os.Getwd()
		require.NoError(t, err)
		_, err = resolveSnapshotFile(filepath.Join(wd, "backup.json"), forExport, relCfg)
		assert.True(t, errors.Is(err, errors.ErrInvalidRequest), "got %v", err)
	})

	t.Run("allow_unsafe_paths lifts the directory rule", func(t *testing.T) {
		unsafe := config.DefaultConfig()
		unsafe.AllowUnsafePaths = true
		_, err := resolveSnapshotFile(filepath.Join(elsewhere, "backup.json"), forExport, unsafe)
		assert.NoError(t, err)
	})
}

func TestResolveSnapshotFile_Symlinks(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on Windows")
	}
	_, allowed, cfg := snapshotTestDirs(t)
	elsewhere := t.TempDir()

	t.Run("symlinked allowed dir opens through its target", func(t *testing.T) {
		link := filepath.Join(t.TempDir(), "link")
		require.NoError(t, os.Symlink(allowed, link))
		linkCfg := config.DefaultConfig()
		linkCfg.AllowedPaths = []string{link}

		f, err := resolveSnapshotFile(filepath.Join(link, "backup.json"), forExport, linkCfg)
		require.NoError(t, err)
		assert.Equal(t, realPath(t, filepath.Join(allowed, "backup.json")), f.Resolved)
	})

	t.Run("symlinked subdirectory escaping the allowed dir", func(t *testing.T) {
		escape := filepath.Join(allowed, "escape")
		require.NoError(t, os.Symlink(elsewhere, escape))
		_, err := resolveSnapshotFile(filepath.Join(escape, "backup.json"), forExport, cfg)
		assert.True(t, errors.Is(err, errors.ErrInvalidRequest), "got %v", err)
	})

	t.Run("symlinked file", func(t *testing.T) {
		target := filepath.Join(elsewhere, "real.json")
		require.NoError(t, os.WriteFile(target, []byte("{}"), 0600))
		link := filepath.Join(allowed, "backup.json")
		require.NoError(t, os.Symlink(target, link))

		for _, mode := range []snapshotFileMode{forImport, forExport} {
			_, err := resolveSnapshotFile(link, mode, cfg)
			assert.True(t, errors.Is(err, errors.ErrInvalidRequest), "mode %d: got %v", mode, err)
		}

		unsafe := config.DefaultConfig()
		unsafe.AllowUnsafePaths = true
		_, err := resolveSnapshotFile(link, forImport, unsafe)
		assert.True(t, errors.Is(err, errors.ErrInvalidRequest), "unsafe mode: got %v", err)
	})
}

func TestResolveSnapshotFile_Import(t *testing.T) {
	_, allowed, cfg := snapshotTestDirs(t)
	cfg.MaxImportBytes = 64

	_, err := resolveSnapshotFile(filepath.Join(allowed, "missing.json"), forImport, cfg)
	assert.True(t, errors.Is(err, errors.ErrFileNotFound), "got %v", err)

	dir := filepath.Join(allowed, "folder.json")
	require.NoError(t, os.Mkdir(dir, 0700))
	for _, mode := range []snapshotFileMode{forImport, forExport} {
		_, err = resolveSnapshotFile(dir, mode, cfg)
		assert.True(t, errors.Is(err, errors.ErrInvalidRequest), "mode %d: got %v", mode, err)
	}

	small := filepath.Join(allowed, "small.json")
	require.NoError(t, os.WriteFile(small, []byte(`{"medications":[],"migraines":[]}`), 0600))
	_, err = resolveSnapshotFile(small, forImport, cfg)
	assert.NoError(t, err)

	big := filepath.Join(allowed, "big.json")
	require.NoError(t, os.WriteFile(big, []byte(strings.Repeat(" ", 65)), 0600))
	_, err = resolveSnapshotFile(big, forImport, cfg)
	require.True(t, errors.Is(err, errors.ErrInvalidRequest), "got %v", err)
	assert.Contains(t, errors.As(err).Message, "max_import_bytes")

	// The cap applies to reading only; an existing big file can be overwritten
	_, err = resolveSnapshotFile(big, forExport, cfg)
	assert.NoError(t, err)
}

func TestExportFileName(t *testing.T) {
	now := time.Date(2025, time.March, 4, 5, 6, 7, 0, time.FixedZone("CET", 3600))

	tests := []struct {
		email string
		want  string
	}{
		{"a@example.com", "a@example.com-20250304T040607Z.json"},
		{"  First.Last+tag@Example.COM ", "first.last+tag@example.com-20250304T040607Z.json"},
		{"a/../b@x", "a-b@x-20250304T040607Z.json"},
		{`..\..\evil@x`, "evil@x-20250304T040607Z.json"},
		{"tab\there@x", "tab-here@x-20250304T040607Z.json"},
		{"josé@x", "jos-@x-20250304T040607Z.json"},
		{"", "export-20250304T040607Z.json"},
		{"///", "export-20250304T040607Z.json"},
	}
	for _, tc := range tests {
		got := exportFileName(tc.email, now)
		assert.Equal(t, tc.want, got, "email %q", tc.email)
		assert.NotContains(t, got, "..")
		assert.NotContains(t, got, "/")
	}
}

func TestDefaultExportPath(t *testing.T) {
	base, _, cfg := snapshotTestDirs(t)

	path, err := defaultExportPath("a@example.com", time.Date(2025, time.January, 2, 3, 4, 5, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "exports", "a@example.com-20250102T030405Z.json"), path)

	// Default paths pass the same checks as explicit ones
	_, err = resolveSnapshotFile(path, forExport, cfg)
	assert.NoError(t, err)
}
