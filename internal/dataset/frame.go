package dataset

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrColumnNotFound is returned when a named column is absent from a frame.
var ErrColumnNotFound = errors.New("column not found")

// Kind is the inferred type of a column.
type Kind string

const (
	KindNumeric     Kind = "numeric"
	KindCategorical Kind = "categorical"
)

// Frame is an in-memory table of string cells with an ordered header.
// Rows are shared between derived frames and must be treated as read-only.
type Frame struct {
	Name    string
	columns []string
	index   map[string]int
	rows    [][]string
	parse   ParseOptions
}

// NewFrame builds a frame from a header and rows. Short rows are padded.
func NewFrame(name string, header []string, rows [][]string, opt ParseOptions) (*Frame, error) {
	index := make(map[string]int, len(header))
	cols := make([]string, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if _, dup := index[h]; dup {
			return nil, fmt.Errorf("duplicate column %q", h)
		}
		index[h] = i
		cols[i] = h
	}
	norm := make([][]string, len(rows))
	for i, r := range rows {
		if len(r) == len(cols) {
			norm[i] = r
			continue
		}
		row := make([]string, len(cols))
		copy(row, r)
		norm[i] = row
	}
	return &Frame{Name: name, columns: cols, index: index, rows: norm, parse: opt}, nil
}

// Columns returns a copy of the header.
func (f *Frame) Columns() []string {
	out := make([]string, len(f.columns))
	copy(out, f.columns)
	return out
}

// NumRows returns the number of data rows.
func (f *Frame) NumRows() int { return len(f.rows) }

// Shape returns (rows, columns).
func (f *Frame) Shape() (int, int) { return len(f.rows), len(f.columns) }

// Has reports whether the frame has a column with this name.
func (f *Frame) Has(name string) bool {
	_, ok := f.index[name]
	return ok
}

// ParseOptions returns the numeric parsing options the frame was loaded with.
func (f *Frame) ParseOptions() ParseOptions { return f.parse }

// Row returns the raw cells of row i.
func (f *Frame) Row(i int) []string { return f.rows[i] }

// Column returns the raw cells of a column.
func (f *Frame) Column(name string) ([]string, error) {
	j, ok := f.index[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrColumnNotFound, name)
	}
	out := make([]string, len(f.rows))
	for i, r := range f.rows {
		out[i] = r[j]
	}
	return out, nil
}

// Floats returns a numeric column with NaN for missing cells.
func (f *Frame) Floats(name string) ([]float64, error) {
	cells, err := f.Column(name)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(cells))
	for i, c := range cells {
		if IsMissing(c) {
			out[i] = math.NaN()
			continue
		}
		v, ok := ParseNumber(c, f.parse)
		if !ok {
			return nil, fmt.Errorf("column %s row %d: non-numeric value %q", name, i+1, c)
		}
		out[i] = v
	}
	return out, nil
}

// Target returns a fully populated numeric label column.
func (f *Frame) Target(name string) ([]float64, error) {
	y, err := f.Floats(name)
	if err != nil {
		return nil, fmt.Errorf("target: %w", err)
	}
	for i, v := range y {
		if math.IsNaN(v) {
			return nil, fmt.Errorf("target %s: missing value at row %d", name, i+1)
		}
	}
	return y, nil
}

// Kind infers the type of a column: numeric when every non-missing cell parses.
// A fully missing column is numeric.
func (f *Frame) Kind(name string) (Kind, error) {
	j, ok := f.index[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrColumnNotFound, name)
	}
	for _, r := range f.rows {
		c := r[j]
		if IsMissing(c) {
			continue
		}
		if _, ok := ParseNumber(c, f.parse); !ok {
			return KindCategorical, nil
		}
	}
	return KindNumeric, nil
}

// SplitKinds partitions the columns into numeric and categorical, in header order.
func (f *Frame) SplitKinds() (numeric, categorical []string) {
	for _, c := range f.columns {
		k, _ := f.Kind(c)
		if k == KindCategorical {
			categorical = append(categorical, c)
		} else {
			numeric = append(numeric, c)
		}
	}
	return numeric, categorical
}

// MissingCount returns the number of missing cells in a column.
func (f *Frame) MissingCount(name string) (int, error) {
	cells, err := f.Column(name)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, c := range cells {
		if IsMissing(c) {
			n++
		}
	}
	return n, nil
}

// Drop returns a frame without the named columns. Absent names are ignored.
func (f *Frame) Drop(names ...string) *Frame {
	skip := make(map[int]bool, len(names))
	for _, n := range names {
		if j, ok := f.index[n]; ok {
			skip[j] = true
		}
	}
	if len(skip) == 0 {
		return f
	}
	keep := make([]int, 0, len(f.columns)-len(skip))
	header := make([]string, 0, len(f.columns)-len(skip))
	for j, c := range f.columns {
		if !skip[j] {
			keep = append(keep, j)
			header = append(header, c)
		}
	}
	rows := make([][]string, len(f.rows))
	for i, r := range f.rows {
		row := make([]string, len(keep))
		for k, j := range keep {
			row[k] = r[j]
		}
		rows[i] = row
	}
	out, _ := NewFrame(f.Name, header, rows, f.parse)
	return out
}

// Select returns a frame holding the given rows in the given order.
func (f *Frame) Select(rows []int) *Frame {
	sel := make([][]string, len(rows))
	for i, r := range rows {
		sel[i] = f.rows[r]
	}
	return &Frame{Name: f.Name, columns: f.columns, index: f.index, rows: sel, parse: f.parse}
}

// Head returns the first n rows.
func (f *Frame) Head(n int) *Frame {
	if n > len(f.rows) {
		n = len(f.rows)
	}
	if n < 0 {
		n = 0
	}
	return &Frame{Name: f.Name, columns: f.columns, index: f.index, rows: f.rows[:n], parse: f.parse}
}

// DuplicateRows counts rows identical to an earlier row.
func (f *Frame) DuplicateRows() int {
	seen := make(map[string]struct{}, len(f.rows))
	dup := 0
	for _, r := range f.rows {
		key := strings.Join(r, "\x1f")
		if _, ok := seen[key]; ok {
			dup++
			continue
		}
		seen[key] = struct{}{}
	}
	return dup
}

// FindTarget returns columns present in train but absent from test, in train order.
func FindTarget(train, test *Frame) []string {
	var out []string
	for _, c := range train.columns {
		if !test.Has(c) {
			out = append(out, c)
		}
	}
	return out
}
