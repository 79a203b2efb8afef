package tracker

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/cedricdekimpe/MigraineTracker/internal/errors"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = v.RegisterValidation("nature", func(fl validator.FieldLevel) bool {
		return Nature(fl.Field().String()).Valid()
	})
	return v
}

// ValidateMedication checks a medication's field constraints.
func ValidateMedication(m *Medication) error {
	return validateStruct(m)
}

// ValidateMigraine checks a migraine's field constraints.
func ValidateMigraine(m *Migraine) error {
	if m.OccurredOn.IsZero() {
		return errors.NewValidation("occurred_on is required", map[string]any{"occurred_on": ""})
	}
	return validateStruct(m)
}

// validateStruct runs struct tags and converts failures into a VALIDATION error.
func validateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return errors.NewInternal(err)
	}

	msgs := make([]string, 0, len(fieldErrs))
	details := make(map[string]any, len(fieldErrs))
	for _, fe := range fieldErrs {
		field := snakeCase(fe.Field())
		msgs = append(msgs, formatFieldError(field, fe))
		details[field] = fe.Value()
	}
	return errors.NewValidation(strings.Join(msgs, "; "), details)
}

// formatFieldError renders one field failure as a readable sentence.
func formatFieldError(field string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "notblank":
		return fmt.Sprintf("%s must not be empty", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		if fe.Kind().String() == "string" {
			return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "nature":
		return fmt.Sprintf("%s must be one of: %s", field, natureList())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

func natureList() string {
	parts := make([]string, len(natures))
	for i, n := range natures {
		parts[i] = string(n)
	}
	return strings.Join(parts, ", ")
}

// snakeCase converts a Go field name like MedicationID to medication_id.
func snakeCase(s string) string {
	var b strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		upper := r >= 'A' && r <= 'Z'
		if upper && i > 0 {
			prevLower := runes[i-1] >= 'a' && runes[i-1] <= 'z'
			nextLower := i+1 < len(runes) && runes[i+1] >= 'a' && runes[i+1] <= 'z'
			if prevLower || nextLower {
				b.WriteByte('_')
			}
		}
		if upper {
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}
