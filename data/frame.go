package data

import (
	"bytes"
	"encoding/csv"
	"strconv"

	"github.com/pkg/errors"
)

// Frame is a small columnar table. Numeric columns are float64 slices.
// Categorical (factor) columns store level indexes as float64 alongside a
// level-name table, so every column a model touches is numeric.
type Frame struct {
	Name string

	order  []string
	cols   map[string][]float64
	levels map[string][]string
	rows   int
}

// NewFrame creates an empty frame with the given name.
func NewFrame(name string) *Frame {
	return &Frame{
		Name:   name,
		order:  make([]string, 0, 8),
		cols:   make(map[string][]float64),
		levels: make(map[string][]string),
	}
}

// Rows returns the number of rows in the frame.
func (f *Frame) Rows() int {
	return f.rows
}

// Columns returns column names in insertion order.
func (f *Frame) Columns() []string {
	return f.order
}

// Col returns the values for a numeric or factor column. Factor columns come
// back as level indexes.
func (f *Frame) Col(name string) ([]float64, error) {
	vals, ok := f.cols[name]
	if !ok {
		return nil, errors.Errorf("Frame %s has no column %s", f.Name, name)
	}
	return vals, nil
}

// IsFactor is true when the named column is categorical.
func (f *Frame) IsFactor(name string) bool {
	_, ok := f.levels[name]
	return ok
}

// Levels returns the level names of a factor column.
func (f *Frame) Levels(name string) ([]string, error) {
	lv, ok := f.levels[name]
	if !ok {
		return nil, errors.Errorf("Frame %s column %s is not a factor", f.Name, name)
	}
	return lv, nil
}

// AddNumeric appends a numeric column. All columns in a frame must agree on
// row count.
func (f *Frame) AddNumeric(name string, vals []float64) error {
	if err := f.checkAdd(name, len(vals)); err != nil {
		return err
	}

	f.order = append(f.order, name)
	f.cols[name] = vals
	f.rows = len(vals)
	return nil
}

// AddFactor appends a categorical column from string labels. Levels are
// numbered in order of first appearance.
func (f *Frame) AddFactor(name string, labels []string) error {
	if err := f.checkAdd(name, len(labels)); err != nil {
		return err
	}

	seen := make(map[string]int)
	lv := make([]string, 0, 8)
	vals := make([]float64, len(labels))
	for i, lab := range labels {
		idx, ok := seen[lab]
		if !ok {
			idx = len(lv)
			seen[lab] = idx
			lv = append(lv, lab)
		}
		vals[i] = float64(idx)
	}

	f.order = append(f.order, name)
	f.cols[name] = vals
	f.levels[name] = lv
	f.rows = len(labels)
	return nil
}

func (f *Frame) checkAdd(name string, n int) error {
	if name == "" {
		return errors.Errorf("Frame %s: column name may not be empty", f.Name)
	}
	if _, ok := f.cols[name]; ok {
		return errors.Errorf("Frame %s already has a column %s", f.Name, name)
	}
	if n < 1 {
		return errors.Errorf("Frame %s column %s is empty", f.Name, name)
	}
	if f.rows > 0 && n != f.rows {
		return errors.Errorf("Frame %s column %s has %d rows, expected %d", f.Name, name, n, f.rows)
	}
	return nil
}

// FromCSV builds a frame from CSV bytes with a header row. A column where
// every cell parses as a float becomes numeric; everything else becomes a
// factor.
func FromCSV(name string, raw []byte) (*Frame, error) {
	r := csv.NewReader(bytes.NewReader(raw))
	records, err := r.ReadAll()
	if err != nil {
		return nil, errors.Wrapf(err, "Could not PARSE csv for frame %s", name)
	}
	if len(records) < 2 {
		return nil, errors.Errorf("Frame %s needs a header row and at least one data row", name)
	}

	header := records[0]
	body := records[1:]

	f := NewFrame(name)
	for c, colName := range header {
		cells := make([]string, len(body))
		for i, rec := range body {
			if len(rec) != len(header) {
				return nil, errors.Errorf("Frame %s row %d has %d fields, expected %d", name, i+1, len(rec), len(header))
			}
			cells[i] = rec[c]
		}

		numeric := true
		vals := make([]float64, len(cells))
		for i, cell := range cells {
			v, perr := strconv.ParseFloat(cell, 64)
			if perr != nil {
				numeric = false
				break
			}
			vals[i] = v
		}

		if numeric {
			err = f.AddNumeric(colName, vals)
		} else {
			err = f.AddFactor(colName, cells)
		}
		if err != nil {
			return nil, err
		}
	}

	return f, nil
}
