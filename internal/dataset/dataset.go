package dataset

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/alanyoungcy/ethsentinel/internal/domain"
)

// Dataset is the numeric feature matrix plus labels and the address index
// carried alongside. Addresses are never part of the matrix used for fitting.
type Dataset struct {
	Features  []string
	X         [][]float64
	Y         []int
	Addresses []string
}

// Len returns the number of rows.
func (d *Dataset) Len() int { return len(d.X) }

// FraudRate returns the fraction of positive labels.
func (d *Dataset) FraudRate() float64 {
	if len(d.Y) == 0 {
		return 0
	}
	pos := 0
	for _, y := range d.Y {
		pos += y
	}
	return float64(pos) / float64(len(d.Y))
}

// FraudCount returns the number of positive labels.
func (d *Dataset) FraudCount() int {
	pos := 0
	for _, y := range d.Y {
		pos += y
	}
	return pos
}

// FromFrame projects a canonical frame into a Dataset: every numeric column
// except the label becomes a feature, the label becomes Y, and the address
// column (or "unknown") rides along as the row index.
func FromFrame(f *Frame) (*Dataset, error) {
	label, ok := f.Numeric("fraud_label")
	if !ok {
		return nil, fmt.Errorf("dataset: %q: %w", "fraud_label", domain.ErrMissingColumn)
	}
	if f.Len() == 0 {
		return nil, domain.ErrEmptyDataset
	}

	features := make([]string, 0, len(f.Columns()))
	for _, name := range f.Columns() {
		if name == "fraud_label" {
			continue
		}
		if _, isNumeric := f.Numeric(name); isNumeric {
			features = append(features, name)
		}
	}

	n := f.Len()
	x := make([][]float64, n)
	for i := range x {
		x[i] = make([]float64, len(features))
	}
	for j, name := range features {
		col, _ := f.Numeric(name)
		for i := 0; i < n; i++ {
			x[i][j] = col[i]
		}
	}

	// The label column is never gap-filled, so an empty cell is still NaN
	// here. Reject it: defaulting would silently mislabel the row.
	y := make([]int, n)
	for i, v := range label {
		if math.IsNaN(v) {
			return nil, fmt.Errorf("dataset: row %d: empty %q cell: %w", i, "fraud_label", domain.ErrMissingLabel)
		}
		if v != 0 {
			y[i] = 1
		}
	}

	addrs := make([]string, n)
	if col, ok := f.Text("address"); ok {
		copy(addrs, col)
	}
	for i, a := range addrs {
		if a == "" {
			addrs[i] = "unknown"
		}
	}

	return &Dataset{Features: features, X: x, Y: y, Addresses: addrs}, nil
}

// Shuffle permutes the rows deterministically for the given seed.
func Shuffle(d *Dataset, seed int64) {
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(d.Len(), func(i, j int) {
		d.X[i], d.X[j] = d.X[j], d.X[i]
		d.Y[i], d.Y[j] = d.Y[j], d.Y[i]
		d.Addresses[i], d.Addresses[j] = d.Addresses[j], d.Addresses[i]
	})
}

// subset builds a new Dataset from the given row indexes, sharing row slices
// with the parent. Callers that mutate rows must copy first.
func (d *Dataset) subset(idx []int) *Dataset {
	out := &Dataset{
		Features:  d.Features,
		X:         make([][]float64, len(idx)),
		Y:         make([]int, len(idx)),
		Addresses: make([]string, len(idx)),
	}
	for i, row := range idx {
		out.X[i] = d.X[row]
		out.Y[i] = d.Y[row]
		out.Addresses[i] = d.Addresses[row]
	}
	return out
}
