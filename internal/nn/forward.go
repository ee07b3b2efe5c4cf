package nn

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Forward computes the raw output scores (logits) of the network.
//
// x holds one example per column, shape [features, m]. Hidden layers apply
// A = ReLU(W·A + b); the last layer returns Z_L = W_L·A + b_L without an
// activation, shape [classes, m]. Softmax is left to the loss.
//
// Returns ErrShapeMismatch if x does not have topology[0] rows.
func Forward(p *ParameterSet, x mat.Matrix) (*mat.Dense, error) {
	logits, _, err := forward(p, x, false)
	return logits, err
}

// trace keeps the intermediate values backpropagation needs.
//
// For layer i (1-based): inputs[i-1] is A_{i-1} (inputs[0] is x) and
// pre[i-1] is Z_i.
type trace struct {
	inputs []mat.Matrix
	pre    []*mat.Dense
}

func forward(p *ParameterSet, x mat.Matrix, record bool) (*mat.Dense, *trace, error) {
	rows, _ := x.Dims()
	if rows != p.topology[0] {
		return nil, nil, errors.Wrapf(ErrShapeMismatch,
			"input has %d features, network expects %d", rows, p.topology[0])
	}

	var tr *trace
	if record {
		tr = &trace{
			inputs: make([]mat.Matrix, 0, len(p.layers)),
			pre:    make([]*mat.Dense, 0, len(p.layers)),
		}
	}

	last := len(p.layers) - 1
	a := x
	for i, l := range p.layers {
		z := affine(l, a)
		if record {
			tr.inputs = append(tr.inputs, a)
			tr.pre = append(tr.pre, z)
		}
		if i == last {
			return z, tr, nil
		}

		var act mat.Dense
		ReLU(&act, z)
		a = &act
	}

	// unreachable: a valid topology has at least one layer
	return nil, nil, errors.Wrap(ErrInvalidTopology, "no layers")
}

// affine returns W·a + b with b broadcast across columns.
func affine(l *Layer, a mat.Matrix) *mat.Dense {
	var z mat.Dense
	z.Mul(l.Weight, a)
	bias := l.Bias.RawMatrix()
	z.Apply(func(i, _ int, v float64) float64 {
		return v + bias.Data[i*bias.Stride]
	}, &z)
	return &z
}
