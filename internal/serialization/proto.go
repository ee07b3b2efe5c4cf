package serialization

import (
	"maps"
	"math"
	"slices"

	"github.com/pkg/errors"
	"google.golang.org/protobuf/encoding/protowire"
	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/digits/internal/nn"
)

// Wire layout of the protobuf export:
//
//	message Parameters {
//	  repeated int64 topology = 1;          // packed
//	  repeated Layer layers = 2;
//	  map<string, string> metadata = 3;
//	}
//	message Layer {
//	  int64 rows = 1;
//	  int64 cols = 2;
//	  repeated double weight = 3;           // packed, row-major
//	  repeated double bias = 4;             // packed
//	}
const (
	fieldTopology protowire.Number = 1
	fieldLayers   protowire.Number = 2
	fieldMetadata protowire.Number = 3

	fieldRows   protowire.Number = 1
	fieldCols   protowire.Number = 2
	fieldWeight protowire.Number = 3
	fieldBias   protowire.Number = 4

	fieldKey   protowire.Number = 1
	fieldValue protowire.Number = 2
)

// MarshalProto encodes p and metadata as a Parameters message.
// Map entries are written in key order so the output is deterministic.
func MarshalProto(p *nn.ParameterSet, metadata map[string]string) ([]byte, error) {
	if p == nil {
		return nil, errors.New("marshal proto: nil parameters")
	}

	var b []byte

	var topo []byte
	for _, w := range p.Topology() {
		topo = protowire.AppendVarint(topo, uint64(w))
	}
	b = protowire.AppendTag(b, fieldTopology, protowire.BytesType)
	b = protowire.AppendBytes(b, topo)

	for i := 1; i <= p.NumLayers(); i++ {
		b = protowire.AppendTag(b, fieldLayers, protowire.BytesType)
		b = protowire.AppendBytes(b, marshalLayer(p.MustLayer(i)))
	}

	for _, k := range slices.Sorted(maps.Keys(metadata)) {
		var entry []byte
		entry = protowire.AppendTag(entry, fieldKey, protowire.BytesType)
		entry = protowire.AppendString(entry, k)
		entry = protowire.AppendTag(entry, fieldValue, protowire.BytesType)
		entry = protowire.AppendString(entry, metadata[k])

		b = protowire.AppendTag(b, fieldMetadata, protowire.BytesType)
		b = protowire.AppendBytes(b, entry)
	}
	return b, nil
}

func marshalLayer(l *nn.Layer) []byte {
	rows, cols := l.Weight.Dims()

	var b []byte
	b = protowire.AppendTag(b, fieldRows, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(rows))
	b = protowire.AppendTag(b, fieldCols, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(cols))
	b = protowire.AppendTag(b, fieldWeight, protowire.BytesType)
	b = protowire.AppendBytes(b, packDoubles(l.Weight))
	b = protowire.AppendTag(b, fieldBias, protowire.BytesType)
	b = protowire.AppendBytes(b, packDoubles(l.Bias))
	return b
}

func packDoubles(m *mat.Dense) []byte {
	rows, cols := m.Dims()
	b := make([]byte, 0, rows*cols*float64Size)
	for i := 0; i < rows; i++ {
		for _, v := range m.RawRowView(i) {
			b = protowire.AppendFixed64(b, math.Float64bits(v))
		}
	}
	return b
}

// protoLayer is a decoded Layer message.
type protoLayer struct {
	rows, cols int
	weight     []float64
	bias       []float64
}

// UnmarshalProto decodes a Parameters message produced by MarshalProto.
// Unknown fields are skipped; both packed and unpacked repeated fields are
// accepted.
func UnmarshalProto(b []byte) (*nn.ParameterSet, map[string]string, error) {
	var (
		topo     nn.Topology
		layers   []protoLayer
		metadata = make(map[string]string)
	)

	err := walkFields(b, func(num protowire.Number, typ protowire.Type, v []byte, x uint64) error {
		switch {
		case num == fieldTopology && typ == protowire.BytesType:
			return walkPacked(v, func(x uint64) { topo = append(topo, int(x)) })
		case num == fieldTopology && typ == protowire.VarintType:
			topo = append(topo, int(x))
		case num == fieldLayers && typ == protowire.BytesType:
			l, err := unmarshalLayer(v)
			if err != nil {
				return err
			}
			layers = append(layers, l)
		case num == fieldMetadata && typ == protowire.BytesType:
			k, val, err := unmarshalEntry(v)
			if err != nil {
				return err
			}
			metadata[k] = val
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	var stored int64
	for _, l := range layers {
		stored += int64(len(l.weight) + len(l.bias))
	}
	sizes, err := layerSizes(topo, stored)
	if err != nil {
		return nil, nil, errors.Wrap(err, "proto topology")
	}
	if len(layers) != len(sizes) {
		return nil, nil, errors.Wrapf(nn.ErrShapeMismatch,
			"proto has %d layers, topology %v needs %d", len(layers), topo, len(sizes))
	}
	for i, l := range layers {
		rows, cols := topo[i+1], topo[i]
		if l.rows != rows || l.cols != cols || int64(len(l.weight)) != sizes[i].weight || int64(len(l.bias)) != sizes[i].bias {
			return nil, nil, errors.Wrapf(nn.ErrShapeMismatch,
				"proto layer %d is %dx%d with %d weights and %d biases, topology needs %dx%d",
				i+1, l.rows, l.cols, len(l.weight), len(l.bias), rows, cols)
		}
	}

	params, err := nn.NewZeroParameterSet(topo)
	if err != nil {
		return nil, nil, errors.Wrap(err, "proto topology")
	}
	for i, l := range layers {
		dst := params.MustLayer(i + 1)
		rows, cols := dst.Weight.Dims()
		dst.Weight.Copy(mat.NewDense(rows, cols, l.weight))
		dst.Bias.Copy(mat.NewDense(rows, 1, l.bias))
	}
	return params, metadata, nil
}

func unmarshalLayer(b []byte) (protoLayer, error) {
	var l protoLayer
	double := func(dst *[]float64) func(uint64) {
		return func(x uint64) { *dst = append(*dst, math.Float64frombits(x)) }
	}
	err := walkFields(b, func(num protowire.Number, typ protowire.Type, v []byte, x uint64) error {
		switch {
		case num == fieldRows && typ == protowire.VarintType:
			l.rows = int(x)
		case num == fieldCols && typ == protowire.VarintType:
			l.cols = int(x)
		case num == fieldWeight && typ == protowire.BytesType:
			return walkFixed64(v, double(&l.weight))
		case num == fieldWeight && typ == protowire.Fixed64Type:
			double(&l.weight)(x)
		case num == fieldBias && typ == protowire.BytesType:
			return walkFixed64(v, double(&l.bias))
		case num == fieldBias && typ == protowire.Fixed64Type:
			double(&l.bias)(x)
		}
		return nil
	})
	return l, err
}

func unmarshalEntry(b []byte) (key, value string, err error) {
	err = walkFields(b, func(num protowire.Number, typ protowire.Type, v []byte, _ uint64) error {
		if typ != protowire.BytesType {
			return nil
		}
		switch num {
		case fieldKey:
			key = string(v)
		case fieldValue:
			value = string(v)
		}
		return nil
	})
	return key, value, err
}

// walkFields calls fn for every field of a message. Length-delimited values
// are passed in v, varint and fixed values in x.
func walkFields(b []byte, fn func(num protowire.Number, typ protowire.Type, v []byte, x uint64) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return errors.Wrap(ErrMalformedProto, protowire.ParseError(n).Error())
		}
		b = b[n:]

		var (
			v []byte
			x uint64
		)
		switch typ {
		case protowire.VarintType:
			x, n = protowire.ConsumeVarint(b)
		case protowire.Fixed64Type:
			x, n = protowire.ConsumeFixed64(b)
		case protowire.BytesType:
			v, n = protowire.ConsumeBytes(b)
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return errors.Wrapf(ErrMalformedProto, "field %d: %v", num, protowire.ParseError(n))
		}
		b = b[n:]

		if err := fn(num, typ, v, x); err != nil {
			return err
		}
	}
	return nil
}

func walkPacked(b []byte, fn func(uint64)) error {
	for len(b) > 0 {
		x, n := protowire.ConsumeVarint(b)
		if n < 0 {
			return errors.Wrap(ErrMalformedProto, protowire.ParseError(n).Error())
		}
		fn(x)
		b = b[n:]
	}
	return nil
}

func walkFixed64(b []byte, fn func(uint64)) error {
	for len(b) > 0 {
		x, n := protowire.ConsumeFixed64(b)
		if n < 0 {
			return errors.Wrap(ErrMalformedProto, protowire.ParseError(n).Error())
		}
		fn(x)
		b = b[n:]
	}
	return nil
}
