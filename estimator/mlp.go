package estimator

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"gonum.org/v1/gonum/mat"
)

// MLPConfig holds the hyperparameters of an MLP.
type MLPConfig struct {
	// HiddenSizes lists the hidden layer widths. Empty means one layer of 64.
	HiddenSizes []int

	// LearningRate for mini-batch SGD (default 0.001).
	LearningRate float64

	// Epochs to train for (default 10).
	Epochs int

	// BatchSize for mini-batch updates (default 8).
	BatchSize int

	// Seed controls weight init and shuffling. Zero means time based.
	Seed int64
}

// MLP is a small ReLU multilayer perceptron regressor trained with
// mini-batch SGD on a mean squared error loss. Inputs and targets are
// standardised internally; predictions are returned in target units.
type MLP struct {
	Config MLPConfig

	// layerSizes includes input size, hidden sizes, then output size.
	layerSizes []int

	// weights[l] has shape [out][in] for layer l -> l+1
	weights [][][]float64
	biases  [][]float64

	xScale, yScale *scaler
	rng            *rand.Rand
}

// NewMLP returns an untrained MLP with defaults filled in.
func NewMLP(cfg MLPConfig) *MLP {
	if len(cfg.HiddenSizes) == 0 {
		cfg.HiddenSizes = []int{64}
	}
	if cfg.LearningRate == 0 {
		cfg.LearningRate = 0.001
	}
	if cfg.Epochs == 0 {
		cfg.Epochs = 10
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 8
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	return &MLP{Config: cfg}
}

// init allocates Glorot-initialised weights for the given widths.
func (m *MLP) init(in, out int) error {
	for _, h := range m.Config.HiddenSizes {
		if h < 1 {
			return fmt.Errorf("estimator: hidden layer size %d", h)
		}
	}
	m.rng = rand.New(rand.NewSource(m.Config.Seed))

	sizes := make([]int, 0, 2+len(m.Config.HiddenSizes))
	sizes = append(sizes, in)
	sizes = append(sizes, m.Config.HiddenSizes...)
	sizes = append(sizes, out)
	m.layerSizes = sizes

	L := len(sizes) - 1
	m.weights = make([][][]float64, L)
	m.biases = make([][]float64, L)
	for l := 0; l < L; l++ {
		fanIn, fanOut := sizes[l], sizes[l+1]
		limit := math.Sqrt(6.0 / float64(fanIn+fanOut))
		w := make([][]float64, fanOut)
		for j := range w {
			row := make([]float64, fanIn)
			for i := range row {
				row[i] = (m.rng.Float64()*2 - 1) * limit
			}
			w[j] = row
		}
		m.weights[l] = w
		m.biases[l] = make([]float64, fanOut)
	}
	return nil
}

func relu(x []float64) {
	for i := range x {
		if x[i] < 0 {
			x[i] = 0
		}
	}
}

// forward returns the pre-activations per layer and the activations per
// layer, acts[0] being the input.
func (m *MLP) forward(input []float64) (preActs, acts [][]float64) {
	L := len(m.weights)
	acts = make([][]float64, L+1)
	acts[0] = input
	preActs = make([][]float64, L)
	for l := 0; l < L; l++ {
		in := acts[l]
		W, b := m.weights[l], m.biases[l]
		pre := make([]float64, len(b))
		for j := range pre {
			sum := b[j]
			for i, v := range W[j] {
				sum += v * in[i]
			}
			pre[j] = sum
		}
		preActs[l] = pre

		act := append([]float64(nil), pre...)
		if l < L-1 {
			relu(act)
		}
		acts[l+1] = act
	}
	return preActs, acts
}

// Fit trains a fresh network on X and Y.
func (m *MLP) Fit(X, Y mat.Matrix) error {
	n, p, o, err := checkXY(X, Y)
	if err != nil {
		return err
	}
	if err := m.init(p, o); err != nil {
		return err
	}
	m.xScale, m.yScale = fitScaler(X), fitScaler(Y)
	xs, ys := m.xScale.transform(X), m.yScale.transform(Y)

	lr := m.Config.LearningRate
	batchSize := max(m.Config.BatchSize, 1)
	L := len(m.weights)

	gradW := make([][][]float64, L)
	gradB := make([][]float64, L)
	for l := 0; l < L; l++ {
		gradW[l] = make([][]float64, len(m.biases[l]))
		for j := range gradW[l] {
			gradW[l][j] = make([]float64, len(m.weights[l][j]))
		}
		gradB[l] = make([]float64, len(m.biases[l]))
	}

	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	for ep := 0; ep < m.Config.Epochs; ep++ {
		m.rng.Shuffle(n, func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})

		for start := 0; start < n; start += batchSize {
			batch := indices[start:min(start+batchSize, n)]
			for l := range gradW {
				clear(gradB[l])
				for j := range gradW[l] {
					clear(gradW[l][j])
				}
			}

			for _, ex := range batch {
				preActs, acts := m.forward(xs[ex])

				// dLoss/dOutput = 2*(pred - label)
				out := acts[L]
				delta := make([]float64, len(out))
				for j := range out {
					delta[j] = 2 * (out[j] - ys[ex][j])
				}

				for l := L - 1; l >= 0; l-- {
					in := acts[l]
					for j, d := range delta {
						gradB[l][j] += d
						gw := gradW[l][j]
						for i, v := range in {
							gw[i] += d * v
						}
					}
					if l == 0 {
						break
					}
					prev := make([]float64, len(in))
					for i := range prev {
						if preActs[l-1][i] <= 0 {
							continue
						}
						var sum float64
						for j, d := range delta {
							sum += m.weights[l][j][i] * d
						}
						prev[i] = sum
					}
					delta = prev
				}
			}

			step := lr / float64(len(batch))
			for l := 0; l < L; l++ {
				for j := range m.biases[l] {
					m.biases[l][j] -= step * gradB[l][j]
					w := m.weights[l][j]
					for i := range w {
						w[i] -= step * gradW[l][j][i]
					}
				}
			}
		}
	}
	return nil
}

// Predict runs a forward pass for every row of X.
func (m *MLP) Predict(X mat.Matrix) (*mat.Dense, error) {
	fitted := m.weights != nil
	p := 0
	if fitted {
		p = m.layerSizes[0]
	}
	r, err := checkPredict(X, fitted, p)
	if err != nil {
		return nil, err
	}
	o := m.layerSizes[len(m.layerSizes)-1]
	out := mat.NewDense(r, o, nil)
	for i, x := range m.xScale.transform(X) {
		_, acts := m.forward(x)
		row := out.RawRowView(i)
		copy(row, acts[len(acts)-1])
		m.yScale.inverse(row)
	}
	return out, nil
}

// Score returns the R² of the predictions for X against Y.
func (m *MLP) Score(X, Y mat.Matrix) (float64, error) {
	return score(m, X, Y)
}
