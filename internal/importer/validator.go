package importer

// validator.go applies each kind's declarative field rules to canonical
// rows. Validation is exhaustive per row: all violations are collected, not
// just the first, so the caller sees every problem at once.

import (
	"fmt"
	"strings"
)

// Validator checks canonical rows against one kind's rule set. The rule set
// is immutable; construct one per kind at startup and pass it in.
type Validator struct {
	def Definition
}

// NewValidator creates a validator for the given kind definition.
func NewValidator(def Definition) *Validator {
	return &Validator{def: def}
}

// ValidateRow returns all rule violations for one row. A row with any
// FieldError is excluded from duplicate detection and from execution.
func (v *Validator) ValidateRow(row CanonicalRow) []FieldError {
	var errs []FieldError

	for _, spec := range v.def.Fields {
		raw := row.Get(spec.Field)

		if raw == "" {
			if spec.Required {
				errs = append(errs, FieldError{
					Row:     row.Line,
					Field:   spec.Field,
					Message: "required field is missing or empty",
					Stage:   StageSchema,
				})
			}
			continue
		}

		if fe := validateValue(raw, spec); fe != nil {
			fe.Row = row.Line
			errs = append(errs, *fe)
		}
	}

	return errs
}

// validateValue checks one non-empty canonical value against its spec.
func validateValue(raw string, spec FieldSpec) *FieldError {
	switch spec.Type {
	case FieldDate:
		// The mapper rewrites every accepted shape to YYYY-MM-DD; anything
		// else is still in its raw form and therefore invalid.
		if _, ok := NormalizeDate(raw); !ok {
			return &FieldError{
				Field:   spec.Field,
				Message: "invalid date (use YYYY-MM-DD or D/M/YYYY)",
				Value:   raw,
				Stage:   StageSchema,
			}
		}

	case FieldNumber:
		n, err := ParseNumber(raw)
		if err != nil {
			return &FieldError{
				Field:   spec.Field,
				Message: "invalid number",
				Value:   raw,
				Stage:   StageSchema,
			}
		}
		if spec.Min != nil && n < *spec.Min {
			return &FieldError{
				Field:   spec.Field,
				Message: fmt.Sprintf("must be at least %g", *spec.Min),
				Value:   raw,
				Stage:   StageSchema,
			}
		}
		if spec.Max != nil && n > *spec.Max {
			return &FieldError{
				Field:   spec.Field,
				Message: fmt.Sprintf("must be at most %g", *spec.Max),
				Value:   raw,
				Stage:   StageSchema,
			}
		}

	case FieldEnum:
		for _, ev := range spec.EnumValues {
			if raw == ev {
				return nil
			}
		}
		return &FieldError{
			Field:   spec.Field,
			Message: "must be one of: " + strings.Join(spec.EnumValues, ", "),
			Value:   raw,
			Stage:   StageSchema,
		}
	}

	return nil
}
