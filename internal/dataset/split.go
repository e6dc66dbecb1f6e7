package dataset

import (
	"math"
	"math/rand"
	"sort"

	"github.com/alanyoungcy/ethsentinel/internal/domain"
)

// DefaultTestFraction is the held-out share of the stratified split.
const DefaultTestFraction = 0.2

// StratifiedSplit partitions the dataset into disjoint train and test sets,
// preserving the class ratio in each partition. The split is deterministic
// for a given seed: each class's indexes are shuffled independently and
// round(testFraction*classSize) rows go to the test fold.
func StratifiedSplit(d *Dataset, testFraction float64, seed int64) (train, test *Dataset, err error) {
	if d.Len() == 0 {
		return nil, nil, domain.ErrEmptyDataset
	}

	byClass := map[int][]int{}
	for i, y := range d.Y {
		byClass[y] = append(byClass[y], i)
	}
	classes := make([]int, 0, len(byClass))
	for c := range byClass {
		classes = append(classes, c)
	}
	sort.Ints(classes)

	rng := rand.New(rand.NewSource(seed))
	var trainIdx, testIdx []int
	for _, c := range classes {
		idx := byClass[c]
		rng.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
		nTest := int(math.Round(testFraction * float64(len(idx))))
		if nTest >= len(idx) && len(idx) > 0 {
			nTest = len(idx) - 1
		}
		testIdx = append(testIdx, idx[:nTest]...)
		trainIdx = append(trainIdx, idx[nTest:]...)
	}

	sort.Ints(trainIdx)
	sort.Ints(testIdx)
	return d.subset(trainIdx), d.subset(testIdx), nil
}
