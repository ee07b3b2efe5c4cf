package nn

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Gradients holds ∂cost/∂W and ∂cost/∂b for every layer.
//
// Weights[i-1] and Biases[i-1] belong to layer i and have the same shapes as
// the corresponding parameters.
type Gradients struct {
	Weights []*mat.Dense
	Biases  []*mat.Dense
}

// Layer returns the gradients of layer i (1-based).
func (g *Gradients) Layer(i int) (dW, db *mat.Dense) {
	return g.Weights[i-1], g.Biases[i-1]
}

// NumLayers returns the number of layers covered by g.
func (g *Gradients) NumLayers() int {
	return len(g.Weights)
}

// Backward runs a forward pass on x, computes the cross-entropy cost against
// the one-hot labels y and backpropagates it through every layer.
//
// Gradient Formula:
//
//	dZ_L    = (softmax(Z_L) - Y) / m
//	dW_i    = dZ_i · A_{i-1}ᵀ
//	db_i    = Σ_cols dZ_i
//	dA_{i-1} = W_iᵀ · dZ_i
//	dZ_{i-1} = dA_{i-1} ⊙ [Z_{i-1} > 0]
//
// Parameters:
//   - p: current parameters (not modified)
//   - x: input features, shape [features, m]
//   - y: one-hot labels, shape [classes, m]
//
// Returns the mean cost and the gradients. Fails with ErrShapeMismatch when
// x or y do not fit the topology or disagree on m.
func Backward(p *ParameterSet, x, y mat.Matrix) (float64, *Gradients, error) {
	logits, tr, err := forward(p, x, true)
	if err != nil {
		return 0, nil, err
	}
	if err := sameDims(logits, y); err != nil {
		return 0, nil, errors.Wrap(err, "backward: logits vs labels")
	}

	logProbs := logSoftmax(logits)
	cost := meanCost(logProbs, y)

	_, m := logits.Dims()
	scale := 1 / float64(m)

	// dZ_L = (softmax - Y) / m
	dZ := logProbs
	dZ.Apply(func(i, j int, lp float64) float64 {
		return (math.Exp(lp) - y.At(i, j)) * scale
	}, dZ)

	n := len(p.layers)
	grads := &Gradients{
		Weights: make([]*mat.Dense, n),
		Biases:  make([]*mat.Dense, n),
	}

	for i := n - 1; i >= 0; i-- {
		var dW mat.Dense
		dW.Mul(dZ, tr.inputs[i].T())
		grads.Weights[i] = &dW
		grads.Biases[i] = rowSums(dZ)

		if i == 0 {
			break
		}

		var dA mat.Dense
		dA.Mul(p.layers[i].Weight.T(), dZ)
		reluBackward(&dA, tr.pre[i-1])
		dZ = &dA
	}

	return cost, grads, nil
}

// rowSums returns the column vector of per-row sums of d.
func rowSums(d *mat.Dense) *mat.Dense {
	r, _ := d.Dims()
	out := mat.NewDense(r, 1, nil)
	for i := 0; i < r; i++ {
		out.Set(i, 0, floats.Sum(d.RawRowView(i)))
	}
	return out
}
