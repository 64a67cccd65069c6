package pipeline

import (
	"errors"
	"testing"

	"github.com/dvloznov/fraud-screening/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemaValidator_Validate(t *testing.T) {
	v := NewSchemaValidator([]string{"Time", "V1", "Amount"})

	tests := []struct {
		name        string
		columns     []string
		wantMissing []string
	}{
		{name: "all present", columns: []string{"Time", "V1", "Amount"}},
		{name: "shuffled with extra", columns: []string{"Amount", "note", "V1", "Time"}},
		{name: "one missing", columns: []string{"Time", "Amount"}, wantMissing: []string{"V1"}},
		{name: "all missing", columns: []string{"foo"}, wantMissing: []string{"Time", "V1", "Amount"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := make([]string, len(tt.columns))
			for i := range row {
				row[i] = "1"
			}
			table := &domain.Table{Columns: tt.columns, Rows: [][]string{row}}

			batch, err := v.Validate(table)
			if tt.wantMissing == nil {
				require.NoError(t, err)
				assert.Equal(t, []string{"Time", "V1", "Amount"}, batch.Columns)
				return
			}

			var missingErr *MissingColumnsError
			require.True(t, errors.As(err, &missingErr))
			assert.Equal(t, tt.wantMissing, missingErr.Missing)
			assert.Equal(t, tt.columns, missingErr.Found)
			assert.Equal(t, []string{"Time", "V1", "Amount"}, missingErr.Required)
		})
	}
}

func TestMissingColumnsError_Message(t *testing.T) {
	err := &MissingColumnsError{Missing: []string{"V17", "Amount"}}
	assert.Equal(t, "file does not contain required columns: missing V17, Amount", err.Error())
}
