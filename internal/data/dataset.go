// Package data holds labeled example sets, the train/dev split, mini-batch
// scheduling and the MNIST file loaders.
//
// Examples are stored column-wise: a Dataset with m examples of n features
// has a feature matrix of shape [n, m], which is the layout the nn package
// multiplies against.
package data

import (
	"math"
	"math/rand/v2"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/digits/internal/nn"
)

// Dataset is a set of labeled examples.
type Dataset struct {
	X          *mat.Dense // [features, m], one example per column
	Labels     []int      // [m], values in [0, NumClasses)
	NumClasses int
}

// New validates and wraps a feature matrix and its labels.
//
// Fails with nn.ErrEmptyDataset if there are no examples and
// nn.ErrShapeMismatch if the column count of x differs from len(labels) or a
// label falls outside [0, numClasses).
func New(x *mat.Dense, labels []int, numClasses int) (*Dataset, error) {
	if x == nil || len(labels) == 0 {
		return nil, errors.Wrap(nn.ErrEmptyDataset, "no examples")
	}
	if _, m := x.Dims(); m != len(labels) {
		return nil, errors.Wrapf(nn.ErrShapeMismatch,
			"feature matrix has %d columns, got %d labels", m, len(labels))
	}
	if numClasses <= 0 {
		return nil, errors.Errorf("number of classes must be positive, got %d", numClasses)
	}
	for j, l := range labels {
		if l < 0 || l >= numClasses {
			return nil, errors.Wrapf(nn.ErrShapeMismatch,
				"label %d of example %d outside [0, %d)", l, j, numClasses)
		}
	}
	return &Dataset{X: x, Labels: labels, NumClasses: numClasses}, nil
}

// FromRows builds a Dataset from row-major examples (one slice per example).
func FromRows(rows [][]float64, labels []int, numClasses int) (*Dataset, error) {
	if len(rows) == 0 {
		return nil, errors.Wrap(nn.ErrEmptyDataset, "no examples")
	}
	features := len(rows[0])
	if features == 0 {
		return nil, errors.Wrap(nn.ErrShapeMismatch, "examples have no features")
	}

	x := mat.NewDense(features, len(rows), nil)
	for j, row := range rows {
		if len(row) != features {
			return nil, errors.Wrapf(nn.ErrShapeMismatch,
				"example %d has %d features, want %d", j, len(row), features)
		}
		x.SetCol(j, row)
	}
	return New(x, labels, numClasses)
}

// NumExamples returns m.
func (d *Dataset) NumExamples() int {
	return len(d.Labels)
}

// NumFeatures returns the number of rows of X.
func (d *Dataset) NumFeatures() int {
	r, _ := d.X.Dims()
	return r
}

// OneHot returns the [NumClasses, m] one-hot label matrix.
func (d *Dataset) OneHot() *mat.Dense {
	return OneHot(d.Labels, d.NumClasses)
}

// OneHot encodes labels as a [classes, len(labels)] matrix with a single 1
// per column.
func OneHot(labels []int, classes int) *mat.Dense {
	y := mat.NewDense(classes, len(labels), nil)
	for j, l := range labels {
		y.Set(l, j, 1)
	}
	return y
}

// Subset copies the examples at idx, in that order, into a new Dataset.
func (d *Dataset) Subset(idx []int) (*Dataset, error) {
	if len(idx) == 0 {
		return nil, errors.Wrap(nn.ErrEmptyDataset, "empty subset")
	}
	x := mat.NewDense(d.NumFeatures(), len(idx), nil)
	labels := make([]int, len(idx))
	col := make([]float64, d.NumFeatures())
	for j, src := range idx {
		if src < 0 || src >= d.NumExamples() {
			return nil, errors.Errorf("example index %d out of range [0, %d)", src, d.NumExamples())
		}
		x.SetCol(j, mat.Col(col, src, d.X))
		labels[j] = d.Labels[src]
	}
	return &Dataset{X: x, Labels: labels, NumClasses: d.NumClasses}, nil
}

// Shuffle returns a copy of d with its examples in a random order drawn
// from seed. d is not modified. Fails with nn.ErrEmptyDataset when d holds
// no examples.
func (d *Dataset) Shuffle(seed uint64) (*Dataset, error) {
	rng := rand.New(rand.NewPCG(seed, seed^0x5851f42d4c957f2d))
	out, err := d.Subset(rng.Perm(d.NumExamples()))
	if err != nil {
		return nil, errors.Wrap(err, "shuffle")
	}
	return out, nil
}

// Split cuts d into a training part holding the first ceil(m*ratio)
// examples and a development part holding the rest.
//
// The parts are views of d and do not overlap. dev is nil when ratio leaves
// no examples for it. ratio must lie in (0, 1].
func (d *Dataset) Split(ratio float64) (train, dev *Dataset, err error) {
	if !(ratio > 0 && ratio <= 1) {
		return nil, nil, errors.Errorf("split ratio must be in (0, 1], got %v", ratio)
	}
	m := d.NumExamples()
	mTrain := int(math.Ceil(float64(m) * ratio))
	mTrain = min(mTrain, m)

	train = d.columns(0, mTrain)
	if mTrain < m {
		dev = d.columns(mTrain, m)
	}
	return train, dev, nil
}

// columns returns the examples [i, j) as a view sharing storage with d.
func (d *Dataset) columns(i, j int) *Dataset {
	return &Dataset{
		X:          d.X.Slice(0, d.NumFeatures(), i, j).(*mat.Dense),
		Labels:     d.Labels[i:j:j],
		NumClasses: d.NumClasses,
	}
}

// Scale multiplies every feature by f in place, e.g. 1/255 for raw pixels.
func (d *Dataset) Scale(f float64) {
	d.X.Scale(f, d.X)
}
