package ml

import (
	"fmt"
	"math"
	"math/rand"
)

// NeuralNetwork is a single-hidden-layer perceptron with ReLU activations and
// a sigmoid output, trained on binary cross-entropy with mini-batch SGD and
// momentum.
type NeuralNetwork struct {
	HiddenUnits  int
	LearningRate float64
	Alpha        float64 // L2 penalty
	Epochs       int
	BatchSize    int
	Momentum     float64
	Seed         int64

	w1 [][]float64 // hidden x input
	b1 []float64
	w2 []float64 // output weights over hidden units
	b2 float64
}

func newNeuralNetwork(p map[string]any, seed int64) *NeuralNetwork {
	return &NeuralNetwork{
		HiddenUnits:  paramInt(p, "hidden_units", 64),
		LearningRate: paramFloat(p, "learning_rate", 0.001),
		Alpha:        paramFloat(p, "alpha", 1e-4),
		Epochs:       paramInt(p, "epochs", 200),
		BatchSize:    paramInt(p, "batch_size", 32),
		Momentum:     paramFloat(p, "momentum", 0.9),
		Seed:         seed,
	}
}

// Fit trains the network. Weights are initialized with He scaling from the
// model seed, and the sample order is reshuffled every epoch.
func (nn *NeuralNetwork) Fit(x [][]float64, y []int) error {
	n := len(x)
	if n == 0 {
		return fmt.Errorf("ml: neural network: empty training set")
	}
	nIn := len(x[0])
	rng := rand.New(rand.NewSource(nn.Seed))

	scale1 := math.Sqrt(2 / float64(nIn))
	nn.w1 = make([][]float64, nn.HiddenUnits)
	nn.b1 = make([]float64, nn.HiddenUnits)
	for h := range nn.w1 {
		nn.w1[h] = make([]float64, nIn)
		for j := range nn.w1[h] {
			nn.w1[h][j] = rng.NormFloat64() * scale1
		}
	}
	scale2 := math.Sqrt(2 / float64(nn.HiddenUnits))
	nn.w2 = make([]float64, nn.HiddenUnits)
	for h := range nn.w2 {
		nn.w2[h] = rng.NormFloat64() * scale2
	}
	nn.b2 = 0

	vW1 := make([][]float64, nn.HiddenUnits)
	for h := range vW1 {
		vW1[h] = make([]float64, nIn)
	}
	vB1 := make([]float64, nn.HiddenUnits)
	vW2 := make([]float64, nn.HiddenUnits)
	vB2 := 0.0

	batch := nn.BatchSize
	if batch <= 0 || batch > n {
		batch = n
	}
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}

	gW1 := make([][]float64, nn.HiddenUnits)
	for h := range gW1 {
		gW1[h] = make([]float64, nIn)
	}
	gB1 := make([]float64, nn.HiddenUnits)
	gW2 := make([]float64, nn.HiddenUnits)
	hidden := make([]float64, nn.HiddenUnits)

	for epoch := 0; epoch < nn.Epochs; epoch++ {
		rng.Shuffle(n, func(i, j int) { order[i], order[j] = order[j], order[i] })

		for start := 0; start < n; start += batch {
			end := start + batch
			if end > n {
				end = n
			}
			size := float64(end - start)

			for h := range gW1 {
				for j := range gW1[h] {
					gW1[h][j] = 0
				}
				gB1[h] = 0
				gW2[h] = 0
			}
			gB2 := 0.0

			for _, i := range order[start:end] {
				row := x[i]
				out := nn.forward(row, hidden)
				delta := out - float64(y[i])

				gB2 += delta
				for h, a := range hidden {
					gW2[h] += delta * a
					if a > 0 {
						dh := delta * nn.w2[h]
						gB1[h] += dh
						for j, v := range row {
							gW1[h][j] += dh * v
						}
					}
				}
			}

			lr := nn.LearningRate
			for h := range nn.w1 {
				for j := range nn.w1[h] {
					g := gW1[h][j]/size + nn.Alpha*nn.w1[h][j]
					vW1[h][j] = nn.Momentum*vW1[h][j] - lr*g
					nn.w1[h][j] += vW1[h][j]
				}
				g := gB1[h] / size
				vB1[h] = nn.Momentum*vB1[h] - lr*g
				nn.b1[h] += vB1[h]

				g2 := gW2[h]/size + nn.Alpha*nn.w2[h]
				vW2[h] = nn.Momentum*vW2[h] - lr*g2
				nn.w2[h] += vW2[h]
			}
			vB2 = nn.Momentum*vB2 - lr*gB2/size
			nn.b2 += vB2
		}
	}
	return nil
}

// forward computes the network output for one row, writing the hidden
// activations into the provided scratch slice.
func (nn *NeuralNetwork) forward(row, hidden []float64) float64 {
	for h, weights := range nn.w1 {
		sum := nn.b1[h]
		for j, v := range row {
			sum += weights[j] * v
		}
		if sum > 0 {
			hidden[h] = sum
		} else {
			hidden[h] = 0
		}
	}
	out := nn.b2
	for h, a := range hidden {
		out += nn.w2[h] * a
	}
	return sigmoid(out)
}

// PredictProba returns sigmoid outputs per row.
func (nn *NeuralNetwork) PredictProba(x [][]float64) []float64 {
	hidden := make([]float64, nn.HiddenUnits)
	out := make([]float64, len(x))
	for i, row := range x {
		out[i] = nn.forward(row, hidden)
	}
	return out
}

// FeatureImportances returns nil: hidden-layer weights do not decompose into
// per-feature contributions.
func (nn *NeuralNetwork) FeatureImportances() []float64 { return nil }

// Params reports the effective hyperparameters.
func (nn *NeuralNetwork) Params() map[string]any {
	return map[string]any{
		"hidden_units":  nn.HiddenUnits,
		"learning_rate": nn.LearningRate,
		"alpha":         nn.Alpha,
		"epochs":        nn.Epochs,
		"batch_size":    nn.BatchSize,
		"momentum":      nn.Momentum,
	}
}
