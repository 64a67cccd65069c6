package pipeline

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/dvloznov/fraud-screening/internal/domain"
)

// CleanColumnNames returns a copy of t with whitespace trimmed from every
// column name. Rows are shared with t.
func CleanColumnNames(t *domain.Table) *domain.Table {
	cols := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		cols[i] = strings.TrimSpace(c)
	}
	return &domain.Table{Columns: cols, Rows: t.Rows}
}

// CheckDuplicateColumns rejects tables where one of the named columns
// appears more than once. Other columns may repeat.
func CheckDuplicateColumns(t *domain.Table, names []string) error {
	counts := make(map[string]int, len(names))
	for _, n := range names {
		counts[n] = 0
	}
	for _, c := range t.Columns {
		n, ok := counts[c]
		if !ok {
			continue
		}
		if n > 0 {
			return fmt.Errorf("duplicate column %q", c)
		}
		counts[c] = n + 1
	}
	return nil
}

// DropLabelColumn returns a copy of t without any Class column. Its values
// are never inspected.
func DropLabelColumn(t *domain.Table) *domain.Table {
	var keep []int
	for i, c := range t.Columns {
		if c != domain.LabelColumn {
			keep = append(keep, i)
		}
	}
	if len(keep) == len(t.Columns) {
		return t
	}

	out := &domain.Table{
		Columns: pick(t.Columns, keep),
		Rows:    make([][]string, len(t.Rows)),
	}
	for i, row := range t.Rows {
		out.Rows[i] = pick(row, keep)
	}
	return out
}

func pick(s []string, idx []int) []string {
	out := make([]string, len(idx))
	for i, j := range idx {
		out[i] = s[j]
	}
	return out
}

// ProjectColumns reorders t into the given column order, dropping extra
// columns, and parses every cell as a float. Every column in order must be
// present in t.
func ProjectColumns(t *domain.Table, order []string) (*domain.Batch, error) {
	positions := make([]int, len(order))
	for i, name := range order {
		idx := t.ColumnIndex(name)
		if idx < 0 {
			return nil, fmt.Errorf("column %q not found", name)
		}
		positions[i] = idx
	}

	batch := &domain.Batch{
		Columns:  append([]string(nil), order...),
		Features: make([][]float64, len(t.Rows)),
	}
	for r, row := range t.Rows {
		features := make([]float64, len(order))
		for i, pos := range positions {
			v, err := parseCell(row[pos])
			if err != nil {
				return nil, fmt.Errorf("row %d, column %q: %w", r+1, order[i], err)
			}
			features[i] = v
		}
		batch.Features[r] = features
	}
	return batch, nil
}

func parseCell(cell string) (float64, error) {
	s := strings.TrimSpace(cell)
	if s == "" {
		return 0, fmt.Errorf("missing value")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("value %q is not a number", cell)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("value %q is not a finite number", cell)
	}
	return v, nil
}
