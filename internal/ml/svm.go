package ml

import (
	"fmt"
	"math"
	"math/rand"
)

// SVM is a kernel support vector classifier trained with a simplified SMO
// loop over an RBF kernel. Decision values are mapped to probabilities with a
// sigmoid fit on the training decision values (Platt-style, fixed iterations).
type SVM struct {
	C       float64
	Gamma   float64 // 0 means derive from feature variance ("scale")
	Tol     float64
	MaxIter int
	Seed    int64

	gamma   float64
	alphas  []float64
	bias    float64
	vectors [][]float64
	targets []float64 // labels remapped to -1/+1
	calibA  float64
	calibB  float64
}

func newSVM(p map[string]any, seed int64) *SVM {
	return &SVM{
		C:       paramFloat(p, "C", 1.0),
		Gamma:   paramFloat(p, "gamma", 0),
		Tol:     paramFloat(p, "tol", 1e-3),
		MaxIter: paramInt(p, "max_iter", 100),
		Seed:    seed,
	}
}

// Fit runs the SMO passes until no multiplier changes for a full sweep or the
// iteration cap is hit, then calibrates the probability sigmoid.
func (s *SVM) Fit(x [][]float64, y []int) error {
	// The SMO step pairs each multiplier with a distinct partner, so a
	// single-row set has no valid pair to pick.
	n := len(x)
	if n < 2 {
		return fmt.Errorf("ml: svm: need at least two training rows, got %d", n)
	}

	s.vectors = x
	s.targets = make([]float64, n)
	for i, label := range y {
		if label == 1 {
			s.targets[i] = 1
		} else {
			s.targets[i] = -1
		}
	}
	s.gamma = s.resolveGamma(x)
	s.alphas = make([]float64, n)
	s.bias = 0

	rng := rand.New(rand.NewSource(s.Seed))
	kernel := s.kernelMatrix(x)
	errs := make([]float64, n)
	for i := range errs {
		errs[i] = -s.targets[i]
	}

	for pass, iter := 0, 0; pass < 2 && iter < s.MaxIter; iter++ {
		changed := 0
		for i := 0; i < n; i++ {
			ei := errs[i]
			ti := s.targets[i]
			if (ti*ei < -s.Tol && s.alphas[i] < s.C) || (ti*ei > s.Tol && s.alphas[i] > 0) {
				j := i
				for j == i {
					j = rng.Intn(n)
				}
				if s.updatePair(i, j, kernel, errs) {
					changed++
				}
			}
		}
		if changed == 0 {
			pass++
		} else {
			pass = 0
		}
	}

	s.calibrate(x, y)
	return nil
}

// updatePair performs the SMO step on multipliers i and j, refreshing the
// cached errors when a change sticks.
func (s *SVM) updatePair(i, j int, kernel [][]float64, errs []float64) bool {
	ti, tj := s.targets[i], s.targets[j]
	ai, aj := s.alphas[i], s.alphas[j]

	var lo, hi float64
	if ti == tj {
		lo = math.Max(0, ai+aj-s.C)
		hi = math.Min(s.C, ai+aj)
	} else {
		lo = math.Max(0, aj-ai)
		hi = math.Min(s.C, s.C+aj-ai)
	}
	if lo == hi {
		return false
	}

	eta := 2*kernel[i][j] - kernel[i][i] - kernel[j][j]
	if eta >= 0 {
		return false
	}

	ajNew := aj - tj*(errs[i]-errs[j])/eta
	ajNew = math.Min(hi, math.Max(lo, ajNew))
	if math.Abs(ajNew-aj) < 1e-7 {
		return false
	}
	aiNew := ai + ti*tj*(aj-ajNew)

	b1 := s.bias - errs[i] - ti*(aiNew-ai)*kernel[i][i] - tj*(ajNew-aj)*kernel[i][j]
	b2 := s.bias - errs[j] - ti*(aiNew-ai)*kernel[i][j] - tj*(ajNew-aj)*kernel[j][j]
	switch {
	case aiNew > 0 && aiNew < s.C:
		s.bias = b1
	case ajNew > 0 && ajNew < s.C:
		s.bias = b2
	default:
		s.bias = (b1 + b2) / 2
	}

	dI := ti * (aiNew - ai)
	dJ := tj * (ajNew - aj)
	s.alphas[i] = aiNew
	s.alphas[j] = ajNew
	for k := range errs {
		errs[k] += dI*kernel[i][k] + dJ*kernel[j][k]
	}
	return true
}

// decision returns the raw margin for one row.
func (s *SVM) decision(row []float64) float64 {
	sum := s.bias
	for i, a := range s.alphas {
		if a == 0 {
			continue
		}
		sum += a * s.targets[i] * rbf(s.vectors[i], row, s.gamma)
	}
	return sum
}

// calibrate fits sigmoid(a*d + b) on the training decision values with a few
// gradient steps of logistic loss. A full Platt solver is overkill here; the
// scores only need a monotone squashing into [0, 1].
func (s *SVM) calibrate(x [][]float64, y []int) {
	decisions := make([]float64, len(x))
	for i, row := range x {
		decisions[i] = s.decision(row)
	}

	a, b := 1.0, 0.0
	const lr = 0.01
	for step := 0; step < 200; step++ {
		var gradA, gradB float64
		for i, d := range decisions {
			p := sigmoid(a*d + b)
			diff := p - float64(y[i])
			gradA += diff * d
			gradB += diff
		}
		a -= lr * gradA / float64(len(x))
		b -= lr * gradB / float64(len(x))
	}
	s.calibA, s.calibB = a, b
}

// PredictProba returns calibrated probabilities for the positive class.
func (s *SVM) PredictProba(x [][]float64) []float64 {
	out := make([]float64, len(x))
	for i, row := range x {
		out[i] = sigmoid(s.calibA*s.decision(row) + s.calibB)
	}
	return out
}

// FeatureImportances returns nil: an RBF kernel has no per-feature weights.
func (s *SVM) FeatureImportances() []float64 { return nil }

// Params reports the effective hyperparameters.
func (s *SVM) Params() map[string]any {
	return map[string]any{
		"C":        s.C,
		"gamma":    s.gamma,
		"tol":      s.Tol,
		"max_iter": s.MaxIter,
	}
}

// resolveGamma returns the configured gamma, or 1/(nFeatures*var(X)) when
// unset.
func (s *SVM) resolveGamma(x [][]float64) float64 {
	if s.Gamma > 0 {
		return s.Gamma
	}
	nFeatures := len(x[0])
	var sum, sumSq float64
	count := 0
	for _, row := range x {
		for _, v := range row {
			sum += v
			sumSq += v * v
			count++
		}
	}
	mean := sum / float64(count)
	variance := sumSq/float64(count) - mean*mean
	if variance <= 0 {
		variance = 1
	}
	return 1 / (float64(nFeatures) * variance)
}

func (s *SVM) kernelMatrix(x [][]float64) [][]float64 {
	n := len(x)
	k := make([][]float64, n)
	for i := range k {
		k[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			v := rbf(x[i], x[j], s.gamma)
			k[i][j] = v
			k[j][i] = v
		}
	}
	return k
}

func rbf(a, b []float64, gamma float64) float64 {
	return math.Exp(-gamma * sqDist(a, b))
}
