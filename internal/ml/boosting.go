package ml

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// GradientBoosting fits an additive ensemble of depth-limited regression
// trees on the logistic loss, second-order (gradient/hessian) style: leaf
// weights are Newton steps with L1/L2 regularization and splits maximize the
// regularized gain.
type GradientBoosting struct {
	NEstimators     int
	LearningRate    float64
	MaxDepth        int
	Subsample       float64
	ColsampleByTree float64
	RegLambda       float64
	RegAlpha        float64
	MinChildWeight  float64
	Seed            int64

	baseScore   float64
	trees       []*gbNode
	importances []float64
}

func newGradientBoosting(p map[string]any, seed int64) *GradientBoosting {
	return &GradientBoosting{
		NEstimators:     paramInt(p, "n_estimators", 400),
		LearningRate:    paramFloat(p, "learning_rate", 0.08),
		MaxDepth:        paramInt(p, "max_depth", 6),
		Subsample:       paramFloat(p, "subsample", 0.9),
		ColsampleByTree: paramFloat(p, "colsample_bytree", 0.9),
		RegLambda:       paramFloat(p, "reg_lambda", 1.0),
		RegAlpha:        paramFloat(p, "reg_alpha", 0.0),
		MinChildWeight:  paramFloat(p, "min_child_weight", 1.0),
		Seed:            seed,
	}
}

// gbNode is one node of a regression tree over gradient statistics.
type gbNode struct {
	feature   int
	threshold float64
	left      *gbNode
	right     *gbNode
	weight    float64
	leaf      bool
}

func (n *gbNode) score(row []float64) float64 {
	for !n.leaf {
		if row[n.feature] <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n.weight
}

// Fit builds the boosted ensemble. Boosting is inherently sequential: each
// tree corrects the residuals of the current ensemble.
func (gb *GradientBoosting) Fit(x [][]float64, y []int) error {
	n := len(x)
	if n == 0 {
		return fmt.Errorf("ml: gradient boosting: empty training set")
	}

	pos := 0
	for _, label := range y {
		pos += label
	}
	p0 := clampProb(float64(pos) / float64(n))
	gb.baseScore = math.Log(p0 / (1 - p0))

	rng := rand.New(rand.NewSource(gb.Seed))
	gb.importances = make([]float64, len(x[0]))
	gb.trees = make([]*gbNode, 0, gb.NEstimators)

	scores := make([]float64, n)
	for i := range scores {
		scores[i] = gb.baseScore
	}
	grad := make([]float64, n)
	hess := make([]float64, n)

	for t := 0; t < gb.NEstimators; t++ {
		for i := range scores {
			p := sigmoid(scores[i])
			grad[i] = p - float64(y[i])
			hess[i] = p * (1 - p)
		}

		idx := subsampleRows(n, gb.Subsample, rng)
		cols := subsampleCols(len(x[0]), gb.ColsampleByTree, rng)

		root := gb.growTree(x, grad, hess, idx, cols, 1)
		gb.trees = append(gb.trees, root)

		for i := range scores {
			scores[i] += gb.LearningRate * root.score(x[i])
		}
	}
	normalize(gb.importances)
	return nil
}

// growTree recursively builds a regression tree over the gradient statistics
// of the rows in idx, considering only the cols feature subset.
func (gb *GradientBoosting) growTree(x [][]float64, grad, hess []float64, idx []int, cols []int, depth int) *gbNode {
	var sumG, sumH float64
	for _, i := range idx {
		sumG += grad[i]
		sumH += hess[i]
	}
	node := &gbNode{leaf: true, weight: leafWeight(sumG, sumH, gb.RegLambda, gb.RegAlpha)}

	if depth > gb.MaxDepth || len(idx) < 2 {
		return node
	}

	bestFeat, bestThreshold, bestGain := -1, 0.0, 0.0
	parentScore := splitScore(sumG, sumH, gb.RegLambda)
	sorted := make([]int, len(idx))

	for _, feat := range cols {
		copy(sorted, idx)
		sort.Slice(sorted, func(a, b int) bool { return x[sorted[a]][feat] < x[sorted[b]][feat] })

		var leftG, leftH float64
		for split := 1; split < len(sorted); split++ {
			leftG += grad[sorted[split-1]]
			leftH += hess[sorted[split-1]]
			if x[sorted[split-1]][feat] == x[sorted[split]][feat] {
				continue
			}
			rightH := sumH - leftH
			if leftH < gb.MinChildWeight || rightH < gb.MinChildWeight {
				continue
			}
			gain := splitScore(leftG, leftH, gb.RegLambda) +
				splitScore(sumG-leftG, rightH, gb.RegLambda) - parentScore
			if gain > bestGain {
				bestGain = gain
				bestFeat = feat
				bestThreshold = (x[sorted[split-1]][feat] + x[sorted[split]][feat]) / 2
			}
		}
	}

	if bestFeat < 0 {
		return node
	}

	var left, right []int
	for _, i := range idx {
		if x[i][bestFeat] <= bestThreshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	gb.importances[bestFeat] += bestGain
	node.leaf = false
	node.feature = bestFeat
	node.threshold = bestThreshold
	node.left = gb.growTree(x, grad, hess, left, cols, depth+1)
	node.right = gb.growTree(x, grad, hess, right, cols, depth+1)
	return node
}

// PredictProba returns the sigmoid of the summed ensemble scores.
func (gb *GradientBoosting) PredictProba(x [][]float64) []float64 {
	out := make([]float64, len(x))
	for i, row := range x {
		score := gb.baseScore
		for _, t := range gb.trees {
			score += gb.LearningRate * t.score(row)
		}
		out[i] = sigmoid(score)
	}
	return out
}

// FeatureImportances returns normalized total split gains.
func (gb *GradientBoosting) FeatureImportances() []float64 {
	return gb.importances
}

// Params reports the effective hyperparameters.
func (gb *GradientBoosting) Params() map[string]any {
	return map[string]any{
		"n_estimators":     gb.NEstimators,
		"learning_rate":    gb.LearningRate,
		"max_depth":        gb.MaxDepth,
		"subsample":        gb.Subsample,
		"colsample_bytree": gb.ColsampleByTree,
		"reg_lambda":       gb.RegLambda,
		"reg_alpha":        gb.RegAlpha,
		"min_child_weight": gb.MinChildWeight,
	}
}

// leafWeight is the regularized Newton step for a leaf: the L1 term shrinks
// the gradient sum toward zero, the L2 term damps the denominator.
func leafWeight(sumG, sumH, lambda, alpha float64) float64 {
	g := softThreshold(sumG, alpha)
	return -g / (sumH + lambda)
}

func splitScore(sumG, sumH, lambda float64) float64 {
	return sumG * sumG / (2 * (sumH + lambda))
}

func softThreshold(g, alpha float64) float64 {
	switch {
	case g > alpha:
		return g - alpha
	case g < -alpha:
		return g + alpha
	default:
		return 0
	}
}

func subsampleRows(n int, fraction float64, rng *rand.Rand) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	if fraction >= 1 {
		return idx
	}
	rng.Shuffle(n, func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
	count := int(math.Max(1, fraction*float64(n)))
	picked := idx[:count]
	sort.Ints(picked)
	return picked
}

func subsampleCols(n int, fraction float64, rng *rand.Rand) []int {
	cols := make([]int, n)
	for i := range cols {
		cols[i] = i
	}
	if fraction >= 1 {
		return cols
	}
	rng.Shuffle(n, func(i, j int) { cols[i], cols[j] = cols[j], cols[i] })
	count := int(math.Max(1, fraction*float64(n)))
	picked := cols[:count]
	sort.Ints(picked)
	return picked
}

func sigmoid(v float64) float64 {
	return 1 / (1 + math.Exp(-v))
}

func clampProb(p float64) float64 {
	const floor = 1e-6
	return math.Min(1-floor, math.Max(floor, p))
}

func normalize(vals []float64) {
	total := 0.0
	for _, v := range vals {
		total += v
	}
	if total == 0 {
		return
	}
	for i := range vals {
		vals[i] /= total
	}
}
