package nn

import (
	"github.com/pkg/errors"
)

// Topology is the ordered list of layer widths of a fully connected network.
//
// Index 0 is the number of input features, the last entry is the number of
// output classes and everything in between is a hidden ReLU layer:
//
//	nn.Topology{784, 14, 14, 10} // 784 → 14 → 14 → 10
type Topology []int

// DefaultTopology returns the MNIST layout: 784 inputs, two hidden layers of
// 14 units and 10 classes.
func DefaultTopology() Topology {
	return Topology{784, 14, 14, 10}
}

// LayerShape holds the weight and bias dimensions of one layer.
type LayerShape struct {
	Rows int // units in this layer
	Cols int // units in the previous layer
}

// WeightDims returns the (rows, cols) of the layer weight matrix.
func (s LayerShape) WeightDims() (int, int) { return s.Rows, s.Cols }

// BiasDims returns the (rows, cols) of the layer bias column.
func (s LayerShape) BiasDims() (int, int) { return s.Rows, 1 }

// Validate reports ErrInvalidTopology if t has fewer than two entries or
// any non-positive width.
func (t Topology) Validate() error {
	if len(t) < 2 {
		return errors.Wrapf(ErrInvalidTopology, "need at least 2 widths, got %d", len(t))
	}
	for i, w := range t {
		if w <= 0 {
			return errors.Wrapf(ErrInvalidTopology, "width %d at index %d must be positive", w, i)
		}
	}
	return nil
}

// Shapes derives the per-layer parameter shapes.
//
// Entry i-1 of the result describes layer i: weights (t[i], t[i-1]) and
// bias (t[i], 1). The function is pure.
func (t Topology) Shapes() ([]LayerShape, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	shapes := make([]LayerShape, len(t)-1)
	for i := 1; i < len(t); i++ {
		shapes[i-1] = LayerShape{Rows: t[i], Cols: t[i-1]}
	}
	return shapes, nil
}

// NumLayers returns the number of parameterized layers (len(t) - 1).
func (t Topology) NumLayers() int {
	if len(t) == 0 {
		return 0
	}
	return len(t) - 1
}

// Inputs returns the input feature count.
func (t Topology) Inputs() int { return t[0] }

// Classes returns the output class count.
func (t Topology) Classes() int { return t[len(t)-1] }
