package dataset

import (
	"math"
	"strings"
)

// DefaultIQRFactor is the whisker multiplier for outlier bounds.
const DefaultIQRFactor = 1.5

// flagLike marks column names excluded from outlier filtering.
var flagLike = []string{"flag", "label", "binary", "bool"}

func isContinuous(name string) bool {
	lower := strings.ToLower(name)
	for _, substr := range flagLike {
		if strings.Contains(lower, substr) {
			return false
		}
	}
	return true
}

// FilterOutliers removes rows outside [Q1-k*IQR, Q3+k*IQR] on every
// continuous-like column. A row survives only if all such columns are in
// bounds or missing. The filter runs on the full matrix and labels jointly,
// before any split.
func FilterOutliers(d *Dataset, k float64) *Dataset {
	type bound struct {
		col    int
		lo, hi float64
	}

	bounds := make([]bound, 0, len(d.Features))
	colVals := make([]float64, d.Len())
	for j, name := range d.Features {
		if !isContinuous(name) {
			continue
		}
		for i := range d.X {
			colVals[i] = d.X[i][j]
		}
		q1 := Quantile(colVals, 0.25)
		q3 := Quantile(colVals, 0.75)
		if math.IsNaN(q1) || math.IsNaN(q3) {
			continue
		}
		iqr := q3 - q1
		bounds = append(bounds, bound{col: j, lo: q1 - k*iqr, hi: q3 + k*iqr})
	}

	keep := make([]int, 0, d.Len())
	for i := range d.X {
		ok := true
		for _, b := range bounds {
			v := d.X[i][b.col]
			if math.IsNaN(v) {
				continue
			}
			if v < b.lo || v > b.hi {
				ok = false
				break
			}
		}
		if ok {
			keep = append(keep, i)
		}
	}
	return d.subset(keep)
}
