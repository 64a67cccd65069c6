package pipeline

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dvloznov/fraud-screening/internal/domain"
)

var (
	// ErrUnsupportedFormat is returned for uploads that are neither CSV nor JSON.
	ErrUnsupportedFormat = errors.New("unsupported file type")

	// ErrNoRows is returned when an upload parses but holds no transactions.
	ErrNoRows = errors.New("file contains no transactions")
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// DetectFormat picks the parser from the file extension, falling back to the
// declared content type when the name has no extension.
func DetectFormat(filename, contentType string) (Format, error) {
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".csv":
		return FormatCSV, nil
	case ".json":
		return FormatJSON, nil
	case "":
		mediaType, _, err := mime.ParseMediaType(contentType)
		if err == nil {
			switch mediaType {
			case "text/csv", "application/csv":
				return FormatCSV, nil
			case "application/json":
				return FormatJSON, nil
			}
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filename)
}

// LoadTable parses upload bytes into a raw table.
func LoadTable(data []byte, format Format) (*domain.Table, error) {
	var (
		t   *domain.Table
		err error
	)
	switch format {
	case FormatCSV:
		t, err = parseCSV(data)
	case FormatJSON:
		t, err = parseJSON(data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, err
	}
	if t.NumRows() == 0 {
		return nil, ErrNoRows
	}
	return t, nil
}

// PreviewRows is the number of rows Preview returns.
const PreviewRows = 5

// Preview parses an upload and returns its first n rows with trimmed column
// names. Columns are not validated.
func Preview(upload Upload, n int) (*domain.Table, error) {
	format, err := DetectFormat(upload.Filename, upload.ContentType)
	if err != nil {
		return nil, err
	}
	t, err := LoadTable(upload.Data, format)
	if err != nil {
		return nil, err
	}
	t = CleanColumnNames(t)
	if n >= 0 && len(t.Rows) > n {
		t.Rows = t.Rows[:n]
	}
	return t, nil
}

func parseCSV(data []byte) (*domain.Table, error) {
	data = bytes.TrimPrefix(data, utf8BOM)

	r := csv.NewReader(bytes.NewReader(data))
	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrNoRows
	}
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}

	t := &domain.Table{Columns: header}
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading CSV: %w", err)
		}
		t.Rows = append(t.Rows, record)
	}
	return t, nil
}

// jsonObject keeps the key order of one decoded object.
type jsonObject struct {
	keys   []string
	values map[string]string
}

// parseJSON accepts a single object (one row) or an array of objects. Columns
// appear in the order keys are first seen; keys absent from a row leave an
// empty cell.
func parseJSON(data []byte) (*domain.Table, error) {
	dec := json.NewDecoder(bytes.NewReader(bytes.TrimPrefix(data, utf8BOM)))
	dec.UseNumber()

	tok, err := dec.Token()
	if errors.Is(err, io.EOF) {
		return nil, ErrNoRows
	}
	if err != nil {
		return nil, fmt.Errorf("reading JSON: %w", err)
	}

	var objects []jsonObject
	switch tok {
	case json.Delim('{'):
		obj, err := readJSONObject(dec)
		if err != nil {
			return nil, err
		}
		objects = append(objects, obj)
	case json.Delim('['):
		for i := 0; dec.More(); i++ {
			tok, err := dec.Token()
			if err != nil {
				return nil, fmt.Errorf("reading JSON: %w", err)
			}
			if tok != json.Delim('{') {
				return nil, fmt.Errorf("JSON element %d is not an object", i)
			}
			obj, err := readJSONObject(dec)
			if err != nil {
				return nil, fmt.Errorf("JSON element %d: %w", i, err)
			}
			objects = append(objects, obj)
		}
		if _, err := dec.Token(); err != nil {
			return nil, fmt.Errorf("reading JSON: %w", err)
		}
	default:
		return nil, fmt.Errorf("expected a JSON object or an array of objects")
	}

	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("unexpected data after JSON value")
	}

	return objectsToTable(objects), nil
}

// readJSONObject reads the members of an object whose opening brace has
// already been consumed.
func readJSONObject(dec *json.Decoder) (jsonObject, error) {
	obj := jsonObject{values: make(map[string]string)}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return jsonObject{}, fmt.Errorf("reading JSON key: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return jsonObject{}, fmt.Errorf("unexpected JSON key %v", keyTok)
		}

		valTok, err := dec.Token()
		if err != nil {
			return jsonObject{}, fmt.Errorf("reading value of %q: %w", key, err)
		}

		var cell string
		switch v := valTok.(type) {
		case json.Number:
			cell = v.String()
		case string:
			cell = v
		case bool:
			cell = strconv.FormatBool(v)
		case nil:
			cell = ""
		case json.Delim:
			return jsonObject{}, fmt.Errorf("field %q holds a nested value", key)
		}

		if _, seen := obj.values[key]; !seen {
			obj.keys = append(obj.keys, key)
		}
		obj.values[key] = cell
	}

	// Closing brace.
	if _, err := dec.Token(); err != nil {
		return jsonObject{}, fmt.Errorf("reading JSON: %w", err)
	}
	return obj, nil
}

func objectsToTable(objects []jsonObject) *domain.Table {
	t := &domain.Table{}
	index := make(map[string]int)
	for _, obj := range objects {
		for _, k := range obj.keys {
			if _, ok := index[k]; !ok {
				index[k] = len(t.Columns)
				t.Columns = append(t.Columns, k)
			}
		}
	}

	t.Rows = make([][]string, 0, len(objects))
	for _, obj := range objects {
		row := make([]string, len(t.Columns))
		for k, v := range obj.values {
			row[index[k]] = v
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}
