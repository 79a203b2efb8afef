package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/cedricdekimpe/MigraineTracker/internal/errors"
	"github.com/cedricdekimpe/MigraineTracker/internal/tracker"
)

// ErrUniqueConstraint is returned when an insert violates a UNIQUE constraint.
var ErrUniqueConstraint = &errors.TrackerError{
	Code:    "UNIQUE_CONSTRAINT",
	Status:  409,
	Message: "unique constraint violation",
}

// --- users ---

// InsertUser stores a new user.
func InsertUser(ctx context.Context, q Querier, u *tracker.User) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO users (id, email, created_at) VALUES (?, ?, ?)`,
		u.ID, u.Email, u.CreatedAt,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrUniqueConstraint
		}
		return storeError(err)
	}
	return nil
}

// GetUserByEmail retrieves a user by normalized email.
func GetUserByEmail(ctx context.Context, q Querier, email string) (*tracker.User, error) {
	var u tracker.User
	err := q.QueryRowContext(ctx,
		`SELECT id, email, created_at FROM users WHERE email = ?`, email,
	).Scan(&u.ID, &u.Email, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(email)
	}
	if err != nil {
		return nil, storeError(err)
	}
	return &u, nil
}

// --- medications ---

// InsertMedication stores a new medication.
// Returns ErrUniqueConstraint when the user already has one with that name.
func InsertMedication(ctx context.Context, q Querier, m *tracker.Medication) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO medications (id, user_id, name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, m.ID, m.UserID, m.Name, m.CreatedAt, m.UpdatedAt)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrUniqueConstraint
		}
		return storeError(err)
	}
	return nil
}

// GetMedicationByName retrieves a user's medication by exact name.
func GetMedicationByName(ctx context.Context, q Querier, userID, name string) (*tracker.Medication, error) {
	var m tracker.Medication
	err := q.QueryRowContext(ctx, `
		SELECT id, user_id, name, created_at, updated_at
		FROM medications
		WHERE user_id = ? AND name = ?
	`, userID, name).Scan(&m.ID, &m.UserID, &m.Name, &m.CreatedAt, &m.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(name)
	}
	if err != nil {
		return nil, storeError(err)
	}
	return &m, nil
}

// ListMedications returns a user's medications ordered by name ascending.
func ListMedications(ctx context.Context, q Querier, userID string) ([]tracker.Medication, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, user_id, name, created_at, updated_at
		FROM medications
		WHERE user_id = ?
		ORDER BY name ASC
	`, userID)
	if err != nil {
		return nil, storeError(err)
	}
	defer rows.Close()

	meds := []tracker.Medication{}
	for rows.Next() {
		var m tracker.Medication
		if err := rows.Scan(&m.ID, &m.UserID, &m.Name, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, storeError(err)
		}
		meds = append(meds, m)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError(err)
	}
	return meds, nil
}

// DeleteMedication removes a user's medication by name.
// Migraines that referenced it keep existing with no medication (ON DELETE SET NULL).
func DeleteMedication(ctx context.Context, q Querier, userID, name string) error {
	res, err := q.ExecContext(ctx,
		`DELETE FROM medications WHERE user_id = ? AND name = ?`, userID, name,
	)
	if err != nil {
		return storeError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storeError(err)
	}
	if n == 0 {
		return errors.NewNotFound(name)
	}
	return nil
}

// --- migraines ---

// InsertMigraine stores a new migraine.
func InsertMigraine(ctx context.Context, q Querier, m *tracker.Migraine) error {
	var intensity sql.NullInt64
	if m.Intensity != nil {
		intensity = sql.NullInt64{Int64: int64(*m.Intensity), Valid: true}
	}

	_, err := q.ExecContext(ctx, `
		INSERT INTO migraines (
			id, user_id, occurred_on, nature, intensity,
			on_period, medication_id, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		m.ID, m.UserID, tracker.FormatDate(m.OccurredOn), string(m.Nature), intensity,
		boolToInt(m.OnPeriod), toNullString(m.MedicationID), m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		return storeError(err)
	}
	return nil
}

// MigraineExistsOn reports whether the user already has a migraine on date.
func MigraineExistsOn(ctx context.Context, q Querier, userID string, date time.Time) (bool, error) {
	var one int
	err := q.QueryRowContext(ctx,
		`SELECT 1 FROM migraines WHERE user_id = ? AND occurred_on = ? LIMIT 1`,
		userID, tracker.FormatDate(date),
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, storeError(err)
	}
	return true, nil
}

// ListMigraines returns a user's migraines joined with their medication name,
// newest date first.
func ListMigraines(ctx context.Context, q Querier, userID string) ([]tracker.Migraine, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT mg.id, mg.user_id, mg.occurred_on, mg.nature, mg.intensity,
			mg.on_period, mg.medication_id, med.name, mg.created_at, mg.updated_at
		FROM migraines mg
		LEFT JOIN medications med ON med.id = mg.medication_id
		WHERE mg.user_id = ?
		ORDER BY mg.occurred_on DESC, mg.created_at DESC, mg.id DESC
	`, userID)
	if err != nil {
		return nil, storeError(err)
	}
	defer rows.Close()

	migraines := []tracker.Migraine{}
	for rows.Next() {
		m, err := scanMigraine(rows)
		if err != nil {
			return nil, storeError(err)
		}
		migraines = append(migraines, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError(err)
	}
	return migraines, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanMigraine(s scanner) (*tracker.Migraine, error) {
	var (
		m              tracker.Migraine
		occurredOn     string
		nature         string
		intensity      sql.NullInt64
		onPeriod       int
		medicationID   sql.NullString
		medicationName sql.NullString
	)
	if err := s.Scan(
		&m.ID, &m.UserID, &occurredOn, &nature, &intensity,
		&onPeriod, &medicationID, &medicationName, &m.CreatedAt, &m.UpdatedAt,
	); err != nil {
		return nil, err
	}

	d, err := tracker.ParseDate(occurredOn)
	if err != nil {
		return nil, err
	}
	m.OccurredOn = d
	m.Nature = tracker.Nature(nature)
	m.OnPeriod = onPeriod != 0
	if intensity.Valid {
		v := int(intensity.Int64)
		m.Intensity = &v
	}
	m.MedicationID = fromNullString(medicationID)
	m.MedicationName = fromNullString(medicationName)
	return &m, nil
}

func toNullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func fromNullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
