package nn

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Layer holds the trainable tensors of one fully connected layer.
type Layer struct {
	Weight *mat.Dense // [units, prev_units]
	Bias   *mat.Dense // [units, 1]
}

// ParameterSet stores the weights and biases of every layer of a network.
//
// Layers are addressed by 1-based index, matching the usual W1, b1, ... WL, bL
// notation: layer i maps the activations of width topology[i-1] to
// topology[i]. Shapes are fixed at construction. The optimizer mutates the
// tensors in place; everything else treats the set as read-only.
//
// Example:
//
//	params, err := nn.NewParameterSet(nn.Topology{784, 14, 14, 10}, nn.InitConfig{Seed: 1})
//	if err != nil {
//	    return err
//	}
//	w1 := params.MustLayer(1).Weight // 14×784
type ParameterSet struct {
	topology Topology
	layers   []*Layer
}

// NewParameterSet allocates and initializes parameters for t.
//
// Weights are drawn with cfg.Scheme from a source seeded with cfg.Seed,
// layer by layer in order; biases start at zero.
func NewParameterSet(t Topology, cfg InitConfig) (*ParameterSet, error) {
	initWeights, err := initializer(cfg.Scheme)
	if err != nil {
		return nil, err
	}

	p, err := NewZeroParameterSet(t)
	if err != nil {
		return nil, err
	}

	src := newSource(cfg.Seed)
	for _, l := range p.layers {
		initWeights(l.Weight, src)
	}
	return p, nil
}

// NewZeroParameterSet allocates zero-filled parameters for t.
//
// Used when the values are about to be overwritten, e.g. by a checkpoint
// loader.
func NewZeroParameterSet(t Topology) (*ParameterSet, error) {
	shapes, err := t.Shapes()
	if err != nil {
		return nil, err
	}

	layers := make([]*Layer, len(shapes))
	for i, s := range shapes {
		layers[i] = &Layer{
			Weight: mat.NewDense(s.Rows, s.Cols, nil),
			Bias:   mat.NewDense(s.Rows, 1, nil),
		}
	}

	topo := make(Topology, len(t))
	copy(topo, t)
	return &ParameterSet{topology: topo, layers: layers}, nil
}

// Topology returns a copy of the layer widths.
func (p *ParameterSet) Topology() Topology {
	t := make(Topology, len(p.topology))
	copy(t, p.topology)
	return t
}

// NumLayers returns the number of parameterized layers.
func (p *ParameterSet) NumLayers() int {
	return len(p.layers)
}

// Layer returns layer i (1-based).
func (p *ParameterSet) Layer(i int) (*Layer, error) {
	if i < 1 || i > len(p.layers) {
		return nil, errors.Errorf("layer %d out of range [1, %d]", i, len(p.layers))
	}
	return p.layers[i-1], nil
}

// MustLayer is like Layer but panics on an out of range index.
func (p *ParameterSet) MustLayer(i int) *Layer {
	l, err := p.Layer(i)
	if err != nil {
		panic(err)
	}
	return l
}

// ApplyUpdate adds dW and db to the weights and bias of layer i in place.
func (p *ParameterSet) ApplyUpdate(i int, dW, db mat.Matrix) error {
	l, err := p.Layer(i)
	if err != nil {
		return err
	}
	if err := sameDims(l.Weight, dW); err != nil {
		return errors.Wrapf(err, "layer %d weight update", i)
	}
	if err := sameDims(l.Bias, db); err != nil {
		return errors.Wrapf(err, "layer %d bias update", i)
	}
	l.Weight.Add(l.Weight, dW)
	l.Bias.Add(l.Bias, db)
	return nil
}

// NumParams returns the total number of trainable scalars.
func (p *ParameterSet) NumParams() int {
	n := 0
	for _, l := range p.layers {
		r, c := l.Weight.Dims()
		n += r*c + r
	}
	return n
}

// Clone returns a deep copy of p.
func (p *ParameterSet) Clone() *ParameterSet {
	layers := make([]*Layer, len(p.layers))
	for i, l := range p.layers {
		layers[i] = &Layer{
			Weight: mat.DenseCopyOf(l.Weight),
			Bias:   mat.DenseCopyOf(l.Bias),
		}
	}
	return &ParameterSet{topology: p.Topology(), layers: layers}
}

// Equal reports whether p and q have the same topology and identical values.
func (p *ParameterSet) Equal(q *ParameterSet) bool {
	if len(p.layers) != len(q.layers) {
		return false
	}
	for i := range p.layers {
		if !mat.Equal(p.layers[i].Weight, q.layers[i].Weight) ||
			!mat.Equal(p.layers[i].Bias, q.layers[i].Bias) {
			return false
		}
	}
	return true
}

func sameDims(want, got mat.Matrix) error {
	wr, wc := want.Dims()
	gr, gc := got.Dims()
	if wr != gr || wc != gc {
		return errors.Wrapf(ErrShapeMismatch, "expected %dx%d, got %dx%d", wr, wc, gr, gc)
	}
	return nil
}
