package ml

import (
	"math"
	"math/rand"
	"sort"
)

// DefaultSMOTENeighbors is the neighborhood size for synthetic interpolation.
const DefaultSMOTENeighbors = 5

// SMOTE oversamples the minority class by interpolating between each minority
// sample and one of its k nearest same-class neighbors at a random ratio in
// [0,1). It is applied to the standardized training partition only.
type SMOTE struct {
	K           int     // nearest neighbors considered, default 5
	TargetRatio float64 // minority/majority after resampling, default 1.0
	Seed        int64
}

// Resample returns the input extended with synthetic minority samples until
// the minority count reaches TargetRatio times the majority count. The input
// rows are copied, never mutated. When the minority class has fewer than two
// samples no neighbors exist and the input is returned unchanged.
func (s *SMOTE) Resample(x [][]float64, y []int) ([][]float64, []int) {
	k := s.K
	if k <= 0 {
		k = DefaultSMOTENeighbors
	}
	ratio := s.TargetRatio
	if ratio <= 0 {
		ratio = 1.0
	}

	var minority, majority []int
	for i, label := range y {
		if label == 1 {
			minority = append(minority, i)
		} else {
			majority = append(majority, i)
		}
	}
	minorityLabel := 1
	if len(minority) > len(majority) {
		minority, majority = majority, minority
		minorityLabel = 0
	}

	outX := make([][]float64, len(x), len(x)+len(majority))
	copy(outX, x)
	outY := make([]int, len(y), len(y)+len(majority))
	copy(outY, y)

	target := int(math.Round(ratio * float64(len(majority))))
	need := target - len(minority)
	if need <= 0 || len(minority) < 2 {
		return outX, outY
	}
	if k > len(minority)-1 {
		k = len(minority) - 1
	}

	neighbors := nearestNeighbors(x, minority, k)
	rng := rand.New(rand.NewSource(s.Seed))

	for g := 0; g < need; g++ {
		base := minority[g%len(minority)]
		nb := neighbors[g%len(minority)][rng.Intn(k)]
		gap := rng.Float64()

		row := make([]float64, len(x[base]))
		for j := range row {
			row[j] = x[base][j] + gap*(x[nb][j]-x[base][j])
		}
		outX = append(outX, row)
		outY = append(outY, minorityLabel)
	}
	return outX, outY
}

// nearestNeighbors returns, for each index in members, the k nearest other
// members by Euclidean distance.
func nearestNeighbors(x [][]float64, members []int, k int) [][]int {
	type distIdx struct {
		d   float64
		idx int
	}
	out := make([][]int, len(members))
	for mi, i := range members {
		dists := make([]distIdx, 0, len(members)-1)
		for _, j := range members {
			if i == j {
				continue
			}
			dists = append(dists, distIdx{d: sqDist(x[i], x[j]), idx: j})
		}
		sort.Slice(dists, func(a, b int) bool {
			if dists[a].d != dists[b].d {
				return dists[a].d < dists[b].d
			}
			return dists[a].idx < dists[b].idx
		})
		nn := make([]int, k)
		for n := 0; n < k; n++ {
			nn[n] = dists[n].idx
		}
		out[mi] = nn
	}
	return out
}

func sqDist(a, b []float64) float64 {
	sum := 0.0
	for j := range a {
		d := a[j] - b[j]
		sum += d * d
	}
	return sum
}
