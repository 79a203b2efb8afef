package tracker

import "time"

// User is the identity boundary: every medication and migraine belongs to one user.
type User struct {
	// ID is a ULID that uniquely identifies this user
	ID string

	// Email is the normalized account email (unique)
	Email string

	// CreatedAt is the Unix timestamp when the user was first seen
	CreatedAt int64
}

// Medication is a named medication owned by a user.
// (UserID, Name) is unique; names match case-sensitively.
type Medication struct {
	// ID is a ULID that uniquely identifies this medication
	ID string `validate:"required"`

	// UserID is the owning user
	UserID string `validate:"required"`

	// Name is the display name, matched exactly during reconciliation
	Name string `validate:"notblank,max=255"`

	// CreatedAt is the Unix timestamp when the medication was created
	CreatedAt int64

	// UpdatedAt is the Unix timestamp when the medication was last updated
	UpdatedAt int64
}

// Migraine is a single logged event.
type Migraine struct {
	// ID is a ULID that uniquely identifies this migraine
	ID string `validate:"required"`

	// UserID is the owning user
	UserID string `validate:"required"`

	// OccurredOn is the calendar date of the event (UTC midnight)
	OccurredOn time.Time

	// Nature is one of the closed Nature values
	Nature Nature `validate:"nature"`

	// Intensity is the pain level 0..10 (nullable)
	Intensity *int `validate:"omitempty,min=0,max=10"`

	// OnPeriod flags events logged during a menstrual period
	OnPeriod bool

	// MedicationID is a weak reference to a Medication of the same user (nullable)
	MedicationID *string

	// MedicationName is populated on reads that join the medication
	MedicationName *string `validate:"-"`

	// CreatedAt is the Unix timestamp when the migraine was created
	CreatedAt int64

	// UpdatedAt is the Unix timestamp when the migraine was last updated
	UpdatedAt int64
}
