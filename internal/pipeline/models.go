package pipeline

// Upload is one user-submitted file.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Format is the detected file format of an upload.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)
