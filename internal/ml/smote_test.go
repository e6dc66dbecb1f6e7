package ml

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func smoteFixture() ([][]float64, []int) {
	// 10 majority samples around the origin, 3 minority samples around (5, 5).
	x := [][]float64{
		{0, 0}, {0.1, 0}, {0, 0.1}, {0.2, 0.1}, {0.1, 0.2},
		{0.3, 0}, {0, 0.3}, {0.2, 0.2}, {0.1, 0.1}, {0.3, 0.3},
		{5, 5}, {5.2, 5.1}, {4.9, 5.3},
	}
	y := []int{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 1, 1, 1}
	return x, y
}

func TestSMOTEBalancesToTarget(t *testing.T) {
	x, y := smoteFixture()
	s := &SMOTE{K: 5, TargetRatio: 1.0, Seed: 42}

	outX, outY := s.Resample(x, y)

	pos, neg := 0, 0
	for _, label := range outY {
		if label == 1 {
			pos++
		} else {
			neg++
		}
	}
	assert.Equal(t, 10, neg, "majority class untouched")
	assert.Equal(t, 10, pos, "minority oversampled to a 1:1 ratio")
	assert.Len(t, outX, 20)

	// Synthetic rows interpolate between minority samples, so they stay in
	// the minority cluster's bounding box.
	for i := len(x); i < len(outX); i++ {
		require.Equal(t, 1, outY[i])
		assert.GreaterOrEqual(t, outX[i][0], 4.9)
		assert.LessOrEqual(t, outX[i][0], 5.2)
		assert.GreaterOrEqual(t, outX[i][1], 5.0)
		assert.LessOrEqual(t, outX[i][1], 5.3)
	}
}

func TestSMOTEPartialRatio(t *testing.T) {
	x, y := smoteFixture()
	s := &SMOTE{K: 2, TargetRatio: 0.5, Seed: 1}

	_, outY := s.Resample(x, y)

	pos := 0
	for _, label := range outY {
		pos += label
	}
	// round(0.5 * 10) = 5 minority samples after resampling.
	assert.Equal(t, 5, pos)
}

func TestSMOTENoOpWhenBalanced(t *testing.T) {
	x := [][]float64{{0, 0}, {1, 1}, {5, 5}, {6, 6}}
	y := []int{0, 0, 1, 1}
	s := &SMOTE{Seed: 7}

	outX, outY := s.Resample(x, y)
	assert.Len(t, outX, 4)
	assert.Equal(t, y, outY)
}

func TestSMOTENoOpSingleMinoritySample(t *testing.T) {
	x := [][]float64{{0, 0}, {1, 0}, {0, 1}, {5, 5}}
	y := []int{0, 0, 0, 1}
	s := &SMOTE{Seed: 7}

	// One minority sample has no neighbor to interpolate toward.
	outX, outY := s.Resample(x, y)
	assert.Len(t, outX, 4)
	assert.Equal(t, y, outY)
}

func TestSMOTEDeterministic(t *testing.T) {
	x, y := smoteFixture()

	aX, aY := (&SMOTE{K: 2, Seed: 99}).Resample(x, y)
	bX, bY := (&SMOTE{K: 2, Seed: 99}).Resample(x, y)
	assert.Equal(t, aX, bX)
	assert.Equal(t, aY, bY)
}
