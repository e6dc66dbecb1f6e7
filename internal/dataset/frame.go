// Package dataset loads the raw transfer-ledger and address-feature tables,
// canonicalizes them into a single address-keyed frame, and derives the
// engineered numeric signals used for model fitting.
package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Frame is a small column-oriented table. Columns are either numeric
// (float64, NaN for missing cells) or text. Column order is preserved from
// the source CSV so downstream feature matrices are stable across runs.
type Frame struct {
	order   []string
	numeric map[string][]float64
	text    map[string][]string
	n       int
}

// NewFrame returns an empty frame with n rows.
func NewFrame(n int) *Frame {
	return &Frame{
		numeric: make(map[string][]float64),
		text:    make(map[string][]string),
		n:       n,
	}
}

// ReadCSV parses a CSV table into a Frame. A column is numeric when every
// non-empty cell parses as a float; empty cells in numeric columns become
// NaN. Everything else is kept as text.
func ReadCSV(r io.Reader) (*Frame, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("dataset: read csv header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("dataset: read csv rows: %w", err)
	}

	f := NewFrame(len(records))
	for col, name := range header {
		raw := make([]string, len(records))
		for row, rec := range records {
			if col < len(rec) {
				raw[row] = strings.TrimSpace(rec[col])
			}
		}

		vals := make([]float64, len(raw))
		isNumeric := true
		for row, cell := range raw {
			if cell == "" {
				vals[row] = math.NaN()
				continue
			}
			v, perr := strconv.ParseFloat(cell, 64)
			if perr != nil {
				isNumeric = false
				break
			}
			vals[row] = v
		}

		if isNumeric {
			f.SetNumeric(name, vals)
		} else {
			f.SetText(name, raw)
		}
	}
	return f, nil
}

// Len returns the number of rows.
func (f *Frame) Len() int { return f.n }

// Columns returns all column names in order.
func (f *Frame) Columns() []string {
	out := make([]string, len(f.order))
	copy(out, f.order)
	return out
}

// Has reports whether the frame contains a column with the given name.
func (f *Frame) Has(name string) bool {
	_, okN := f.numeric[name]
	_, okT := f.text[name]
	return okN || okT
}

// Numeric returns a numeric column by name.
func (f *Frame) Numeric(name string) ([]float64, bool) {
	v, ok := f.numeric[name]
	return v, ok
}

// Text returns a text column by name.
func (f *Frame) Text(name string) ([]string, bool) {
	v, ok := f.text[name]
	return v, ok
}

// SetNumeric adds or replaces a numeric column. The slice length must match
// the frame's row count for non-empty frames.
func (f *Frame) SetNumeric(name string, vals []float64) {
	if !f.Has(name) {
		f.order = append(f.order, name)
	}
	delete(f.text, name)
	f.numeric[name] = vals
}

// SetText adds or replaces a text column.
func (f *Frame) SetText(name string, vals []string) {
	if !f.Has(name) {
		f.order = append(f.order, name)
	}
	delete(f.numeric, name)
	f.text[name] = vals
}

// Rename changes a column's name. When the target name already exists the
// rename is skipped, so aliased source columns cannot clobber one another.
func (f *Frame) Rename(from, to string) {
	if !f.Has(from) || f.Has(to) || from == to {
		return
	}
	for i, name := range f.order {
		if name == from {
			f.order[i] = to
			break
		}
	}
	if v, ok := f.numeric[from]; ok {
		delete(f.numeric, from)
		f.numeric[to] = v
	}
	if v, ok := f.text[from]; ok {
		delete(f.text, from)
		f.text[to] = v
	}
}

// NumericColumn returns the column, or a zero-filled slice when the column is
// absent. Formulas over canonical columns treat a missing source as zero.
func (f *Frame) NumericColumn(name string) []float64 {
	if v, ok := f.numeric[name]; ok {
		return v
	}
	return make([]float64, f.n)
}

// FillNaN replaces NaN cells with the given value in every numeric column
// except the listed ones.
func (f *Frame) FillNaN(value float64, except ...string) {
	skip := make(map[string]bool, len(except))
	for _, name := range except {
		skip[name] = true
	}
	for name, vals := range f.numeric {
		if skip[name] {
			continue
		}
		for i, v := range vals {
			if math.IsNaN(v) {
				vals[i] = value
			}
		}
	}
}

// Quantile computes the q-th quantile of vals using linear interpolation
// between order statistics, skipping NaN entries. It returns NaN when no
// finite values are present.
func Quantile(vals []float64, q float64) float64 {
	clean := make([]float64, 0, len(vals))
	for _, v := range vals {
		if !math.IsNaN(v) {
			clean = append(clean, v)
		}
	}
	if len(clean) == 0 {
		return math.NaN()
	}
	sort.Float64s(clean)
	if q <= 0 {
		return clean[0]
	}
	if q >= 1 {
		return clean[len(clean)-1]
	}
	pos := q * float64(len(clean)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return clean[lo]
	}
	frac := pos - float64(lo)
	return clean[lo]*(1-frac) + clean[hi]*frac
}
