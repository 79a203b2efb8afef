package ops

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/cedricdekimpe/MigraineTracker/internal/config"
	"github.com/cedricdekimpe/MigraineTracker/internal/db"
	"github.com/cedricdekimpe/MigraineTracker/internal/errors"
	"github.com/cedricdekimpe/MigraineTracker/internal/tracker"
)

// ExportInput contains parameters for the Export operation.
type ExportInput struct {
	Owner Owner // required
}

// Export builds the owner's snapshot: medications by name ascending,
// migraines newest first, each carrying its medication's name.
// Both lists are read in one transaction.
func Export(ctx context.Context, database *sql.DB, input ExportInput) (*tracker.Snapshot, error) {
	if err := validateOwner(input.Owner); err != nil {
		return nil, err
	}
	if err := checkCancelled(ctx, "export"); err != nil {
		return nil, err
	}

	var (
		meds      []tracker.Medication
		migraines []tracker.Migraine
	)
	err := db.WithReadTx(ctx, database, func(tx *sql.Tx) error {
		var err error
		if meds, err = db.ListMedications(ctx, tx, input.Owner.UserID); err != nil {
			return err
		}
		migraines, err = db.ListMigraines(ctx, tx, input.Owner.UserID)
		return err
	})
	if err != nil {
		return nil, err
	}

	snap := &tracker.Snapshot{
		ExportedAt:  time.Now().UTC().Format(time.RFC3339),
		UserEmail:   input.Owner.Email,
		Medications: make([]tracker.SnapshotMedication, 0, len(meds)),
		Migraines:   make([]tracker.SnapshotMigraine, 0, len(migraines)),
	}
	for _, m := range meds {
		snap.Medications = append(snap.Medications, tracker.SnapshotMedication{
			Name:      m.Name,
			CreatedAt: tracker.FormatTimestamp(m.CreatedAt),
		})
	}
	for _, m := range migraines {
		onPeriod := m.OnPeriod
		snap.Migraines = append(snap.Migraines, tracker.SnapshotMigraine{
			OccurredOn:     tracker.FormatDate(m.OccurredOn),
			Nature:         string(m.Nature),
			Intensity:      m.Intensity,
			OnPeriod:       &onPeriod,
			MedicationName: m.MedicationName,
			CreatedAt:      tracker.FormatTimestamp(m.CreatedAt),
		})
	}
	return snap, nil
}

// ExportFileOutput contains the result of writing a snapshot file.
type ExportFileOutput struct {
	Path        string `json:"path"`
	Medications int    `json:"medications"`
	Migraines   int    `json:"migraines"`
	ExportedAt  string `json:"exported_at"`
}

// ExportFile exports the owner's snapshot to path, or to
// <base>/exports/<email>-<timestamp>.json when path is empty.
func ExportFile(ctx context.Context, database *sql.DB, cfg *config.Config, owner Owner, path string) (*ExportFileOutput, error) {
	snap, err := Export(ctx, database, ExportInput{Owner: owner})
	if err != nil {
		return nil, err
	}

	if path == "" {
		path, err = defaultExportPath(owner.Email, time.Now())
		if err != nil {
			return nil, err
		}
	}
	if err := WriteSnapshotFile(snap, path, cfg); err != nil {
		return nil, err
	}

	return &ExportFileOutput{
		Path:        path,
		Medications: len(snap.Medications),
		Migraines:   len(snap.Migraines),
		ExportedAt:  snap.ExportedAt,
	}, nil
}

// WriteSnapshotFile writes snap as indented JSON. The file is written to a
// temp name and renamed into place, so an existing file survives a failure.
func WriteSnapshotFile(snap *tracker.Snapshot, path string, cfg *config.Config) error {
	// Default paths are checked too: they embed the account email
	f, err := resolveSnapshotFile(path, forExport, cfg)
	if err != nil {
		return err
	}
	target := f.Resolved

	if err := os.MkdirAll(filepath.Dir(target), 0700); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to create export directory: %w", err))
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return errors.NewInternal(err)
	}
	data = append(data, '\n')

	randBytes := make([]byte, 8)
	if _, err := rand.Read(randBytes); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to generate temp file name: %w", err))
	}
	tempPath := target + "." + hex.EncodeToString(randBytes) + ".tmp"
	file, err := openFileNoFollow(tempPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return errors.NewInternal(fmt.Errorf("failed to create export file: %w", err))
	}

	success := false
	defer func() {
		if file != nil {
			file.Close()
		}
		if !success {
			os.Remove(tempPath)
		}
	}()

	if _, err := file.Write(data); err != nil {
		return errors.NewInternal(err)
	}
	if err := file.Sync(); err != nil {
		return errors.NewInternal(err)
	}
	// Close before rename (required on Windows)
	if err := file.Close(); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to close export file: %w", err))
	}
	file = nil

	// os.Rename would follow a symlinked destination
	if info, err := os.Lstat(target); err == nil && info.Mode()&os.ModeSymlink != 0 {
		return errors.NewInternal(fmt.Errorf("export path is a symlink"))
	}

	// Windows refuses to rename over an existing file; keep the original
	// rather than delete-then-rename.
	if err := os.Rename(tempPath, target); err != nil {
		if runtime.GOOS == "windows" {
			if _, statErr := os.Stat(target); statErr == nil {
				return errors.NewInvalidRequest("export destination already exists; choose a new path or delete the existing file")
			}
		}
		return errors.NewInternal(fmt.Errorf("failed to finalize export: %w", err))
	}

	success = true
	return nil
}

// ReadSnapshotFile reads and decodes a snapshot file, capped at
// cfg.MaxImportBytes.
func ReadSnapshotFile(path string, cfg *config.Config) (*tracker.Snapshot, error) {
	f, err := resolveSnapshotFile(path, forImport, cfg)
	if err != nil {
		return nil, err
	}

	file, err := openFileNoFollowRead(f.Resolved)
	if err != nil {
		if _, ok := err.(*errors.TrackerError); ok {
			return nil, err
		}
		return nil, errors.NewInternal(fmt.Errorf("failed to open import file: %w", err))
	}
	defer file.Close()

	// The file may have grown since it was checked
	return tracker.DecodeSnapshot(file, maxImportBytes(cfg))
}
