package dataset

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadCSVTyping(t *testing.T) {
	csv := "addr,score,note\n0xa,1.5,ok\n0xb,,bad\n0xc,3,\n"
	f, err := ReadCSV(strings.NewReader(csv))
	require.NoError(t, err)
	require.Equal(t, 3, f.Len())
	assert.Equal(t, []string{"addr", "score", "note"}, f.Columns())

	score, ok := f.Numeric("score")
	require.True(t, ok)
	assert.Equal(t, 1.5, score[0])
	assert.True(t, math.IsNaN(score[1]))
	assert.Equal(t, 3.0, score[2])

	// Any unparsable cell makes the whole column text.
	_, isNumeric := f.Numeric("note")
	assert.False(t, isNumeric)
	note, ok := f.Text("note")
	require.True(t, ok)
	assert.Equal(t, []string{"ok", "bad", ""}, note)
}

func TestFrameRename(t *testing.T) {
	f := NewFrame(2)
	f.SetNumeric("flag", []float64{1, 0})
	f.SetNumeric("fraud_label", []float64{0, 1})

	// Renaming onto an existing column is a no-op so aliases cannot clobber.
	f.Rename("flag", "fraud_label")
	label, _ := f.Numeric("fraud_label")
	assert.Equal(t, []float64{0, 1}, label)
	assert.True(t, f.Has("flag"))

	f.Rename("flag", "other")
	assert.False(t, f.Has("flag"))
	other, ok := f.Numeric("other")
	require.True(t, ok)
	assert.Equal(t, []float64{1, 0}, other)
}

func TestFrameFillNaNExcept(t *testing.T) {
	f := NewFrame(2)
	f.SetNumeric("a", []float64{math.NaN(), 1})
	f.SetNumeric("fraud_label", []float64{math.NaN(), 1})

	f.FillNaN(0, "fraud_label")

	a, _ := f.Numeric("a")
	assert.Equal(t, 0.0, a[0])
	label, _ := f.Numeric("fraud_label")
	assert.True(t, math.IsNaN(label[0]))
}

func TestNumericColumnMissing(t *testing.T) {
	f := NewFrame(3)
	col := f.NumericColumn("absent")
	assert.Equal(t, []float64{0, 0, 0}, col)
}

func TestQuantile(t *testing.T) {
	tests := []struct {
		name string
		vals []float64
		q    float64
		want float64
	}{
		{name: "median odd", vals: []float64{3, 1, 2}, q: 0.5, want: 2},
		{name: "median even interpolates", vals: []float64{1, 2, 3, 4}, q: 0.5, want: 2.5},
		{name: "q25", vals: []float64{1, 2, 3, 4, 5}, q: 0.25, want: 2},
		{name: "q0 is min", vals: []float64{5, 1, 3}, q: 0, want: 1},
		{name: "q1 is max", vals: []float64{5, 1, 3}, q: 1, want: 5},
		{name: "skips NaN", vals: []float64{math.NaN(), 1, 3}, q: 0.5, want: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Quantile(tt.vals, tt.q), 1e-12)
		})
	}

	assert.True(t, math.IsNaN(Quantile(nil, 0.5)))
	assert.True(t, math.IsNaN(Quantile([]float64{math.NaN()}, 0.5)))
}
