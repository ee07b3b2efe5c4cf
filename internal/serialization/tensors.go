package serialization

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/digits/internal/nn"
)

// WeightName returns the weight tensor name of layer i (1-based).
func WeightName(i int) string { return fmt.Sprintf("layer.%d.weight", i) }

// BiasName returns the bias tensor name of layer i (1-based).
func BiasName(i int) string { return fmt.Sprintf("layer.%d.bias", i) }

// namedMatrix is one tensor of the state dictionary.
type namedMatrix struct {
	name string
	m    *mat.Dense
}

// stateDict lists the tensors of p in layer order, weight before bias.
func stateDict(p *nn.ParameterSet) []namedMatrix {
	out := make([]namedMatrix, 0, 2*p.NumLayers())
	for i := 1; i <= p.NumLayers(); i++ {
		l := p.MustLayer(i)
		out = append(out,
			namedMatrix{WeightName(i), l.Weight},
			namedMatrix{BiasName(i), l.Bias},
		)
	}
	return out
}

// appendFloat64s appends m row by row as little-endian float64.
func appendFloat64s(buf []byte, m *mat.Dense) []byte {
	rows, _ := m.Dims()
	for i := 0; i < rows; i++ {
		for _, v := range m.RawRowView(i) {
			buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(v))
		}
	}
	return buf
}

// fillFloat64s decodes little-endian float64 values from b into dst, row by row.
func fillFloat64s(dst *mat.Dense, b []byte) error {
	rows, cols := dst.Dims()
	if len(b) != rows*cols*float64Size {
		return errors.Wrapf(nn.ErrShapeMismatch, "%d bytes for a %dx%d tensor", len(b), rows, cols)
	}
	for i := 0; i < rows; i++ {
		row := dst.RawRowView(i)
		for j := range row {
			row[j] = math.Float64frombits(binary.LittleEndian.Uint64(b))
			b = b[float64Size:]
		}
	}
	return nil
}

// tensorTarget returns the matrix of p that the named tensor loads into.
func tensorTarget(p *nn.ParameterSet) map[string]*mat.Dense {
	targets := make(map[string]*mat.Dense, 2*p.NumLayers())
	for _, t := range stateDict(p) {
		targets[t.name] = t.m
	}
	return targets
}

// checkShape verifies that a stored shape matches the destination matrix.
func checkShape(name string, shape []int, dst *mat.Dense) error {
	rows, cols := dst.Dims()
	if len(shape) != 2 || shape[0] != rows || shape[1] != cols {
		return errors.Wrapf(nn.ErrShapeMismatch, "tensor %s has shape %v, topology needs [%d %d]", name, shape, rows, cols)
	}
	return nil
}

// layerSize is the element count of one layer's weight and bias.
type layerSize struct {
	weight, bias int64
}

// layerSizes returns the element counts topo needs per layer. It fails before
// anything is allocated when the counts add up to more than limit elements.
func layerSizes(topo nn.Topology, limit int64) ([]layerSize, error) {
	if err := topo.Validate(); err != nil {
		return nil, err
	}
	sizes := make([]layerSize, 0, len(topo)-1)
	var total int64
	for i := 1; i < len(topo); i++ {
		in, out := int64(topo[i-1]), int64(topo[i])
		if out > limit || in > limit/out {
			return nil, errors.Wrapf(nn.ErrShapeMismatch, "layer %d (%dx%d) exceeds %d stored values", i, out, in, limit)
		}
		n := in*out + out
		if n > limit-total {
			return nil, errors.Wrapf(nn.ErrShapeMismatch, "topology %v exceeds %d stored values", []int(topo), limit)
		}
		total += n
		sizes = append(sizes, layerSize{weight: in * out, bias: out})
	}
	return sizes, nil
}
