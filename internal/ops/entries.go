package ops

import (
	"context"
	"database/sql"
	"time"

	"github.com/cedricdekimpe/MigraineTracker/internal/db"
	"github.com/cedricdekimpe/MigraineTracker/internal/errors"
	"github.com/cedricdekimpe/MigraineTracker/internal/tracker"
)

// ResolveOwner finds the user for email, creating it on first sight.
func ResolveOwner(ctx context.Context, database *sql.DB, email string) (Owner, error) {
	email = tracker.NormalizeEmail(email)
	if email == "" {
		return Owner{}, errors.NewInvalidRequest("user email is required")
	}

	u, err := db.GetUserByEmail(ctx, database, email)
	if err == nil {
		return Owner{UserID: u.ID, Email: u.Email}, nil
	}
	if !errors.Is(err, errors.ErrNotFound) {
		return Owner{}, err
	}

	u = &tracker.User{ID: tracker.NewID(), Email: email, CreatedAt: time.Now().Unix()}
	if err := db.InsertUser(ctx, database, u); err != nil {
		if err != db.ErrUniqueConstraint {
			return Owner{}, err
		}
		// Lost a race with a concurrent first sighting
		existing, err := db.GetUserByEmail(ctx, database, email)
		if err != nil {
			return Owner{}, err
		}
		u = existing
	}
	return Owner{UserID: u.ID, Email: u.Email}, nil
}

// AddMedicationInput contains parameters for the AddMedication operation.
type AddMedicationInput struct {
	Owner Owner
	Name  string
}

// MedicationOutput is the presentation shape of a medication.
type MedicationOutput struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
}

func medicationOutput(m tracker.Medication) MedicationOutput {
	return MedicationOutput{ID: m.ID, Name: m.Name, CreatedAt: tracker.FormatTimestamp(m.CreatedAt)}
}

// AddMedication creates a medication. Names are unique per user.
func AddMedication(ctx context.Context, database *sql.DB, input AddMedicationInput) (*MedicationOutput, error) {
	if err := validateOwner(input.Owner); err != nil {
		return nil, err
	}

	now := time.Now().Unix()
	m := &tracker.Medication{
		ID:        tracker.NewID(),
		UserID:    input.Owner.UserID,
		Name:      input.Name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := tracker.ValidateMedication(m); err != nil {
		return nil, err
	}

	if err := db.InsertMedication(ctx, database, m); err != nil {
		if err == db.ErrUniqueConstraint {
			return nil, errors.NewNameAlreadyExists(m.Name)
		}
		return nil, err
	}

	out := medicationOutput(*m)
	return &out, nil
}

// ListMedications returns the owner's medications ordered by name.
func ListMedications(ctx context.Context, database *sql.DB, owner Owner) ([]MedicationOutput, error) {
	if err := validateOwner(owner); err != nil {
		return nil, err
	}

	meds, err := db.ListMedications(ctx, database, owner.UserID)
	if err != nil {
		return nil, err
	}

	out := make([]MedicationOutput, 0, len(meds))
	for _, m := range meds {
		out = append(out, medicationOutput(m))
	}
	return out, nil
}

// DeleteMedication removes a medication by name. Migraines that referenced it
// are kept with no medication.
func DeleteMedication(ctx context.Context, database *sql.DB, owner Owner, name string) error {
	if err := validateOwner(owner); err != nil {
		return err
	}
	return db.DeleteMedication(ctx, database, owner.UserID, name)
}

// LogMigraineInput contains parameters for the LogMigraine operation.
type LogMigraineInput struct {
	Owner          Owner
	OccurredOn     string
	Nature         string
	Intensity      *int
	OnPeriod       bool
	MedicationName string // optional, found or created by name
}

// MigraineOutput is the presentation shape of a migraine.
type MigraineOutput struct {
	ID             string  `json:"id"`
	OccurredOn     string  `json:"occurred_on"`
	Nature         string  `json:"nature"`
	Intensity      *int    `json:"intensity"`
	OnPeriod       bool    `json:"on_period"`
	MedicationName *string `json:"medication_name"`
	CreatedAt      string  `json:"created_at"`
}

// LogMigraine records a migraine directly. Unlike Import it does not dedup
// by date: several migraines may be logged on the same day.
func LogMigraine(ctx context.Context, database *sql.DB, input LogMigraineInput) (*MigraineOutput, error) {
	if err := validateOwner(input.Owner); err != nil {
		return nil, err
	}

	occurredOn, err := tracker.ParseDate(input.OccurredOn)
	if err != nil {
		return nil, errors.NewMalformedDate(input.OccurredOn)
	}

	now := time.Now().Unix()
	m := &tracker.Migraine{
		ID:         tracker.NewID(),
		UserID:     input.Owner.UserID,
		OccurredOn: occurredOn,
		Nature:     tracker.Nature(input.Nature),
		Intensity:  input.Intensity,
		OnPeriod:   input.OnPeriod,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := tracker.ValidateMigraine(m); err != nil {
		return nil, err
	}

	err = db.WithTx(ctx, database, func(tx *sql.Tx) error {
		if namesMedication(input.MedicationName) {
			medID, err := findOrCreateMedication(ctx, tx, input.Owner.UserID, input.MedicationName, now)
			if err != nil {
				return err
			}
			m.MedicationID = &medID
			name := input.MedicationName
			m.MedicationName = &name
		}
		return db.InsertMigraine(ctx, tx, m)
	})
	if err != nil {
		return nil, err
	}

	return &MigraineOutput{
		ID:             m.ID,
		OccurredOn:     tracker.FormatDate(m.OccurredOn),
		Nature:         string(m.Nature),
		Intensity:      m.Intensity,
		OnPeriod:       m.OnPeriod,
		MedicationName: m.MedicationName,
		CreatedAt:      tracker.FormatTimestamp(m.CreatedAt),
	}, nil
}

// findOrCreateMedication looks a medication up by exact name and creates it
// when absent. Both steps run on the caller's transaction.
func findOrCreateMedication(ctx context.Context, tx *sql.Tx, userID, name string, now int64) (string, error) {
	existing, err := db.GetMedicationByName(ctx, tx, userID, name)
	if err == nil {
		return existing.ID, nil
	}
	if !errors.Is(err, errors.ErrNotFound) {
		return "", err
	}

	created, err := createMedication(ctx, tx, userID, name, now)
	if err != nil {
		return "", err
	}
	return created.ID, nil
}

// createMedication validates and inserts a new medication on tx.
func createMedication(ctx context.Context, tx *sql.Tx, userID, name string, now int64) (*tracker.Medication, error) {
	m := &tracker.Medication{
		ID:        tracker.NewID(),
		UserID:    userID,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := tracker.ValidateMedication(m); err != nil {
		return nil, err
	}
	if err := db.InsertMedication(ctx, tx, m); err != nil {
		if err == db.ErrUniqueConstraint {
			return nil, errors.NewNameAlreadyExists(name)
		}
		return nil, err
	}
	return m, nil
}
