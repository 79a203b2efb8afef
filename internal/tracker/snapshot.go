package tracker

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/cedricdekimpe/MigraineTracker/internal/errors"
)

// Snapshot is the portable export/import payload for one user's data.
// Field names are a compatibility contract with existing export files.
type Snapshot struct {
	ExportedAt  string               `json:"exported_at,omitempty"`
	UserEmail   string               `json:"user_email,omitempty"`
	Medications []SnapshotMedication `json:"medications"`
	Migraines   []SnapshotMigraine   `json:"migraines"`
}

// SnapshotMedication is one medication entry in a snapshot.
type SnapshotMedication struct {
	Name      string `json:"name"`
	CreatedAt string `json:"created_at,omitempty"`
}

// SnapshotMigraine is one migraine entry in a snapshot.
// The medication is carried by name so snapshots move between databases.
type SnapshotMigraine struct {
	OccurredOn     string  `json:"occurred_on"`
	Nature         string  `json:"nature"`
	Intensity      *int    `json:"intensity"`
	OnPeriod       *bool   `json:"on_period"`
	MedicationName *string `json:"medication_name"`
	CreatedAt      string  `json:"created_at,omitempty"`
}

// snapshotEnvelope accepts every shape an export has been written in:
// a bare snapshot, {"data": snapshot}, and {"data": {"attributes": snapshot}}.
type snapshotEnvelope struct {
	Snapshot
	Data *struct {
		Snapshot
		Attributes *Snapshot `json:"attributes"`
	} `json:"data"`
}

// DecodeSnapshot reads a JSON snapshot of at most maxBytes bytes (0 = unlimited).
func DecodeSnapshot(r io.Reader, maxBytes int64) (*Snapshot, error) {
	if maxBytes > 0 {
		r = io.LimitReader(r, maxBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to read snapshot: %w", err))
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("snapshot exceeds maximum size of %d bytes", maxBytes))
	}
	return ParseSnapshot(data)
}

// ParseSnapshot decodes a JSON snapshot from memory.
func ParseSnapshot(data []byte) (*Snapshot, error) {
	var env snapshotEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("invalid import data format: %v", err))
	}

	snap := env.Snapshot
	if env.Data != nil {
		snap = env.Data.Snapshot
		if env.Data.Attributes != nil {
			snap = *env.Data.Attributes
		}
	}
	return &snap, nil
}

// BoolValue returns *b, or false when b is nil.
func BoolValue(b *bool) bool {
	return b != nil && *b
}
