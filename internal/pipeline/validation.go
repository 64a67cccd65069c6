package pipeline

import (
	"fmt"
	"strings"

	"github.com/dvloznov/fraud-screening/internal/domain"
)

// MissingColumnsError reports which required columns an upload lacks.
type MissingColumnsError struct {
	Found    []string
	Required []string
	Missing  []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("file does not contain required columns: missing %s", strings.Join(e.Missing, ", "))
}

// SchemaValidator checks a table against an ordered list of required columns.
type SchemaValidator struct {
	required []string
}

// NewSchemaValidator creates a validator for the given column order.
func NewSchemaValidator(required []string) *SchemaValidator {
	return &SchemaValidator{required: append([]string(nil), required...)}
}

// Required returns the column order the validator projects into.
func (v *SchemaValidator) Required() []string {
	return append([]string(nil), v.required...)
}

// MissingColumns lists the required columns absent from t, in required order.
func (v *SchemaValidator) MissingColumns(t *domain.Table) []string {
	present := make(map[string]struct{}, len(t.Columns))
	for _, c := range t.Columns {
		present[c] = struct{}{}
	}

	var missing []string
	for _, c := range v.required {
		if _, ok := present[c]; !ok {
			missing = append(missing, c)
		}
	}
	return missing
}

// Validate returns the projected batch, or a *MissingColumnsError when any
// required column is absent.
func (v *SchemaValidator) Validate(t *domain.Table) (*domain.Batch, error) {
	if missing := v.MissingColumns(t); len(missing) > 0 {
		return nil, &MissingColumnsError{
			Found:    append([]string(nil), t.Columns...),
			Required: v.Required(),
			Missing:  missing,
		}
	}
	return ProjectColumns(t, v.required)
}
