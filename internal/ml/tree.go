package ml

import (
	"math/rand"
	"sort"
)

// treeNode is one node of a binary decision tree. Leaves carry the positive
// class fraction of the training samples that reached them.
type treeNode struct {
	feature   int
	threshold float64
	left      *treeNode
	right     *treeNode
	proba     float64
	leaf      bool
}

func (n *treeNode) predict(row []float64) float64 {
	for !n.leaf {
		if row[n.feature] <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n.proba
}

// classTreeConfig controls classification tree growth.
type classTreeConfig struct {
	maxDepth        int // 0 means unlimited
	minSamplesSplit int
	minSamplesLeaf  int
	maxFeatures     int // features sampled per split
}

// classTree is a gini-impurity CART classifier. importances accumulates the
// impurity decrease attributed to each feature, weighted by node size.
type classTree struct {
	root        *treeNode
	importances []float64
}

// growClassTree fits a classification tree on the rows named by idx.
func growClassTree(x [][]float64, y []int, idx []int, cfg classTreeConfig, rng *rand.Rand) *classTree {
	t := &classTree{importances: make([]float64, len(x[0]))}
	t.root = t.grow(x, y, idx, cfg, rng, 1, len(idx))
	return t
}

func (t *classTree) grow(x [][]float64, y []int, idx []int, cfg classTreeConfig, rng *rand.Rand, depth, total int) *treeNode {
	pos := 0
	for _, i := range idx {
		pos += y[i]
	}
	node := &treeNode{leaf: true, proba: float64(pos) / float64(len(idx))}

	if pos == 0 || pos == len(idx) {
		return node
	}
	if cfg.maxDepth > 0 && depth > cfg.maxDepth {
		return node
	}
	if len(idx) < cfg.minSamplesSplit {
		return node
	}

	feat, threshold, gain := bestGiniSplit(x, y, idx, cfg, rng)
	if feat < 0 {
		return node
	}

	var left, right []int
	for _, i := range idx {
		if x[i][feat] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	t.importances[feat] += gain * float64(len(idx)) / float64(total)
	node.leaf = false
	node.feature = feat
	node.threshold = threshold
	node.left = t.grow(x, y, left, cfg, rng, depth+1, total)
	node.right = t.grow(x, y, right, cfg, rng, depth+1, total)
	return node
}

// bestGiniSplit scans a random feature subset for the split with the largest
// gini impurity decrease that respects minSamplesLeaf. It returns feature -1
// when no valid split exists.
func bestGiniSplit(x [][]float64, y []int, idx []int, cfg classTreeConfig, rng *rand.Rand) (int, float64, float64) {
	n := len(idx)
	nFeatures := len(x[0])
	candidates := sampleFeatures(nFeatures, cfg.maxFeatures, rng)

	totalPos := 0
	for _, i := range idx {
		totalPos += y[i]
	}
	parentGini := giniOf(totalPos, n)

	bestFeat, bestThreshold, bestGain := -1, 0.0, 0.0
	sorted := make([]int, n)

	for _, feat := range candidates {
		copy(sorted, idx)
		sort.Slice(sorted, func(a, b int) bool { return x[sorted[a]][feat] < x[sorted[b]][feat] })

		leftPos := 0
		for split := 1; split < n; split++ {
			leftPos += y[sorted[split-1]]
			if x[sorted[split-1]][feat] == x[sorted[split]][feat] {
				continue
			}
			if split < cfg.minSamplesLeaf || n-split < cfg.minSamplesLeaf {
				continue
			}
			gLeft := giniOf(leftPos, split)
			gRight := giniOf(totalPos-leftPos, n-split)
			childGini := (float64(split)*gLeft + float64(n-split)*gRight) / float64(n)
			gain := parentGini - childGini
			if gain > bestGain {
				bestGain = gain
				bestFeat = feat
				bestThreshold = (x[sorted[split-1]][feat] + x[sorted[split]][feat]) / 2
			}
		}
	}
	return bestFeat, bestThreshold, bestGain
}

func giniOf(pos, n int) float64 {
	if n == 0 {
		return 0
	}
	p := float64(pos) / float64(n)
	return 2 * p * (1 - p)
}

// sampleFeatures draws count distinct feature indexes, or all of them when
// count <= 0 or exceeds the feature count.
func sampleFeatures(nFeatures, count int, rng *rand.Rand) []int {
	all := make([]int, nFeatures)
	for i := range all {
		all[i] = i
	}
	if count <= 0 || count >= nFeatures {
		return all
	}
	rng.Shuffle(nFeatures, func(i, j int) { all[i], all[j] = all[j], all[i] })
	return all[:count]
}
