package ops

import (
	"context"
	"strings"

	"github.com/cedricdekimpe/MigraineTracker/internal/errors"
)

// Monthly window limits
const (
	DefaultMonthlyWindow = 12
	MinMonthlyWindow     = 1
	MaxMonthlyWindow     = 24
)

// NoMedicationBucket names the by-medication bucket for migraines logged
// without a medication.
const NoMedicationBucket = "None"

// Owner identifies the account an operation acts for.
// It comes from the identity boundary (CLI flag, proxy header, MCP argument)
// and is trusted as given.
type Owner struct {
	UserID string
	Email  string
}

// validateOwner checks that an owner was resolved.
func validateOwner(o Owner) error {
	if strings.TrimSpace(o.UserID) == "" {
		return errors.NewInvalidRequest("owner user id is required")
	}
	return nil
}

// ClampMonths applies the monthly window default and bounds. Only an unset
// window (nil) gets the default; an explicit 0 clamps to one month.
func ClampMonths(months *int) int {
	if months == nil {
		return DefaultMonthlyWindow
	}
	n := *months
	switch {
	case n < MinMonthlyWindow:
		return MinMonthlyWindow
	case n > MaxMonthlyWindow:
		return MaxMonthlyWindow
	}
	return n
}

// namesMedication reports whether a medication name refers to a medication.
// A blank name means the migraine was taken without one.
func namesMedication(name string) bool {
	return strings.TrimSpace(name) != ""
}

// checkCancelled returns CANCELLED once ctx is done.
func checkCancelled(ctx context.Context, op string) error {
	select {
	case <-ctx.Done():
		return errors.NewCancelled(op)
	default:
		return nil
	}
}
