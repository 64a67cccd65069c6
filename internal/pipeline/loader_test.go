package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name        string
		filename    string
		contentType string
		want        Format
		wantErr     bool
	}{
		{name: "csv", filename: "batch.csv", want: FormatCSV},
		{name: "json", filename: "one.json", want: FormatJSON},
		{name: "upper case extension", filename: "BATCH.CSV", want: FormatCSV},
		{name: "content type fallback csv", filename: "upload", contentType: "text/csv; charset=utf-8", want: FormatCSV},
		{name: "content type fallback json", filename: "upload", contentType: "application/json", want: FormatJSON},
		{name: "extension wins over content type", filename: "batch.xlsx", contentType: "text/csv", wantErr: true},
		{name: "no extension no content type", filename: "upload", wantErr: true},
		{name: "excel", filename: "report.xlsx", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DetectFormat(tt.filename, tt.contentType)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsupportedFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadTable_CSV(t *testing.T) {
	data := []byte("\xEF\xBB\xBFTime,Amount\n1,2.5\n3,4\n")

	table, err := LoadTable(data, FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, []string{"Time", "Amount"}, table.Columns)
	assert.Equal(t, [][]string{{"1", "2.5"}, {"3", "4"}}, table.Rows)
}

func TestLoadTable_CSVRaggedRow(t *testing.T) {
	_, err := LoadTable([]byte("Time,Amount\n1,2,3\n"), FormatCSV)
	assert.Error(t, err)
}

func TestLoadTable_NoRows(t *testing.T) {
	tests := []struct {
		name   string
		data   string
		format Format
	}{
		{"empty csv", "", FormatCSV},
		{"header only csv", "Time,Amount\n", FormatCSV},
		{"empty json", "", FormatJSON},
		{"empty json array", "[]", FormatJSON},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadTable([]byte(tt.data), tt.format)
			assert.ErrorIs(t, err, ErrNoRows)
		})
	}
}

func TestLoadTable_JSONObject(t *testing.T) {
	table, err := LoadTable([]byte(`{"Time": 0, "V1": -1.3598071336738, "Amount": 149.62}`), FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, []string{"Time", "V1", "Amount"}, table.Columns)
	assert.Equal(t, [][]string{{"0", "-1.3598071336738", "149.62"}}, table.Rows)
}

func TestLoadTable_JSONArrayKeyOrder(t *testing.T) {
	data := `[
		{"b": 1, "a": "2"},
		{"a": 3, "c": null},
		{"c": 1e-3}
	]`
	table, err := LoadTable([]byte(data), FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a", "c"}, table.Columns)
	assert.Equal(t, [][]string{
		{"1", "2", ""},
		{"", "3", ""},
		{"", "", "1e-3"},
	}, table.Rows)
}

func TestLoadTable_JSONRejected(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"nested object", `{"Time": {"x": 1}}`},
		{"nested array", `[{"Time": [1, 2]}]`},
		{"array of numbers", `[1, 2]`},
		{"bare string", `"hello"`},
		{"trailing data", `{"Time": 1} {"Time": 2}`},
		{"malformed", `{"Time": `},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadTable([]byte(tt.data), FormatJSON)
			assert.Error(t, err)
		})
	}
}

func TestPreview(t *testing.T) {
	data := []byte(" Time ,Amount,Class\n1,2,0\n3,4,1\n5,6,0\n")

	table, err := Preview(Upload{Filename: "batch.csv", Data: data}, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"Time", "Amount", "Class"}, table.Columns)
	assert.Equal(t, [][]string{{"1", "2", "0"}, {"3", "4", "1"}}, table.Rows)

	_, err = Preview(Upload{Filename: "batch.xlsx", Data: data}, 2)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}
