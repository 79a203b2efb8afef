package ops

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cedricdekimpe/MigraineTracker/internal/config"
	"github.com/cedricdekimpe/MigraineTracker/internal/db"
	"github.com/cedricdekimpe/MigraineTracker/internal/errors"
	"github.com/cedricdekimpe/MigraineTracker/internal/tracker"
)

// ImportInput contains parameters for the Import operation.
type ImportInput struct {
	Owner    Owner             // required
	Snapshot *tracker.Snapshot // required
}

// ImportOutput contains the result of the Import operation.
type ImportOutput struct {
	MedicationsImported int    `json:"medications_imported"`
	MigrainesImported   int    `json:"migraines_imported"`
	ImportedAt          string `json:"imported_at"`
}

// Import merges a snapshot into the owner's live records.
//
// Everything runs in one transaction: any error leaves the store exactly as
// it was. Medications are matched by exact name and migraines by calendar
// date; a migraine is skipped whenever the owner already has one on that
// date, so re-importing the same snapshot adds nothing.
func Import(ctx context.Context, database *sql.DB, input ImportInput) (*ImportOutput, error) {
	if err := validateOwner(input.Owner); err != nil {
		return nil, err
	}
	snap := input.Snapshot
	if snap == nil {
		return nil, errors.NewInvalidRequest("snapshot is required")
	}

	// Rejected before any transaction is opened. A blank user_email is absent.
	if email := tracker.NormalizeEmail(snap.UserEmail); email != "" && email != tracker.NormalizeEmail(input.Owner.Email) {
		return nil, errors.NewMismatchedOwner(snap.UserEmail)
	}

	if err := checkCancelled(ctx, "import"); err != nil {
		return nil, err
	}

	now := time.Now()
	out := &ImportOutput{}

	err := db.WithTx(ctx, database, func(tx *sql.Tx) error {
		medIDs, created, err := importMedications(ctx, tx, input.Owner.UserID, snap.Medications, now.Unix())
		if err != nil {
			return err
		}
		out.MedicationsImported = created

		imported, err := importMigraines(ctx, tx, input.Owner.UserID, snap.Migraines, medIDs, now.Unix())
		if err != nil {
			return err
		}
		out.MigrainesImported = imported
		return nil
	})
	if err != nil {
		return nil, err
	}

	out.ImportedAt = now.UTC().Format(time.RFC3339)
	return out, nil
}

// importMedications creates every snapshot medication the owner lacks and
// returns a name→id table covering found and created ones.
func importMedications(ctx context.Context, tx *sql.Tx, userID string, entries []tracker.SnapshotMedication, now int64) (map[string]string, int, error) {
	ids := make(map[string]string, len(entries))
	created := 0

	for i, entry := range entries {
		if err := checkCancelled(ctx, "import"); err != nil {
			return nil, 0, err
		}
		if _, ok := ids[entry.Name]; ok {
			continue
		}

		existing, err := db.GetMedicationByName(ctx, tx, userID, entry.Name)
		if err == nil {
			ids[entry.Name] = existing.ID
			continue
		}
		if !errors.Is(err, errors.ErrNotFound) {
			return nil, 0, err
		}

		m, err := createMedication(ctx, tx, userID, entry.Name, now)
		if err != nil {
			return nil, 0, atEntry(err, "medications", i)
		}
		ids[m.Name] = m.ID
		created++
	}
	return ids, created, nil
}

// importMigraines inserts every snapshot migraine whose date the owner has
// no migraine on yet. Medications named only here are found or created
// without counting toward medications_imported.
func importMigraines(ctx context.Context, tx *sql.Tx, userID string, entries []tracker.SnapshotMigraine, medIDs map[string]string, now int64) (int, error) {
	imported := 0

	for i, entry := range entries {
		if err := checkCancelled(ctx, "import"); err != nil {
			return 0, err
		}

		occurredOn, err := tracker.ParseDate(entry.OccurredOn)
		if err != nil {
			return 0, atEntry(errors.NewMalformedDate(entry.OccurredOn), "migraines", i)
		}

		exists, err := db.MigraineExistsOn(ctx, tx, userID, occurredOn)
		if err != nil {
			return 0, err
		}
		if exists {
			continue
		}

		m := &tracker.Migraine{
			ID:         tracker.NewID(),
			UserID:     userID,
			OccurredOn: occurredOn,
			Nature:     tracker.Nature(entry.Nature),
			Intensity:  entry.Intensity,
			OnPeriod:   tracker.BoolValue(entry.OnPeriod),
			CreatedAt:  now,
			UpdatedAt:  now,
		}

		if entry.MedicationName != nil && namesMedication(*entry.MedicationName) {
			name := *entry.MedicationName
			id, ok := medIDs[name]
			if !ok {
				id, err = findOrCreateMedication(ctx, tx, userID, name, now)
				if err != nil {
					return 0, atEntry(err, "migraines", i)
				}
				medIDs[name] = id
			}
			m.MedicationID = &id
		}

		if err := tracker.ValidateMigraine(m); err != nil {
			return 0, atEntry(err, "migraines", i)
		}
		if err := db.InsertMigraine(ctx, tx, m); err != nil {
			return 0, err
		}
		imported++
	}
	return imported, nil
}

// atEntry prefixes a user-correctable error with the snapshot entry it came from.
func atEntry(err error, list string, index int) error {
	tErr, ok := err.(*errors.TrackerError)
	if !ok || tErr.Status >= 500 {
		return err
	}
	details := make(map[string]any, len(tErr.Details)+1)
	for k, v := range tErr.Details {
		details[k] = v
	}
	details["entry"] = fmt.Sprintf("%s[%d]", list, index)
	return &errors.TrackerError{
		Code:    tErr.Code,
		Status:  tErr.Status,
		Message: fmt.Sprintf("%s[%d]: %s", list, index, tErr.Message),
		Details: details,
	}
}

// ImportFile reads a snapshot file and imports it.
func ImportFile(ctx context.Context, database *sql.DB, cfg *config.Config, owner Owner, path string) (*ImportOutput, error) {
	snap, err := ReadSnapshotFile(path, cfg)
	if err != nil {
		return nil, err
	}
	return Import(ctx, database, ImportInput{Owner: owner, Snapshot: snap})
}
