// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/digits/internal/nn"
)

// Topology lists layer widths, input features first and classes last.
type Topology = nn.Topology

// LayerShape is the weight shape of one layer.
type LayerShape = nn.LayerShape

// Layer holds the weight and bias of one layer.
type Layer = nn.Layer

// ParameterSet holds every trainable tensor of a network.
type ParameterSet = nn.ParameterSet

// Gradients holds the cost gradients of every layer.
type Gradients = nn.Gradients

// InitConfig controls parameter initialization.
type InitConfig = nn.InitConfig

// InitScheme selects the weight distribution.
type InitScheme = nn.InitScheme

// Initialization schemes.
const (
	GlorotUniform = nn.GlorotUniform
	LeCunNormal   = nn.LeCunNormal
)

// Errors.
var (
	ErrInvalidTopology   = nn.ErrInvalidTopology
	ErrShapeMismatch     = nn.ErrShapeMismatch
	ErrNumericDivergence = nn.ErrNumericDivergence
	ErrEmptyDataset      = nn.ErrEmptyDataset
)

// DefaultTopology returns 784-14-14-10.
func DefaultTopology() Topology {
	return nn.DefaultTopology()
}

// NewParameterSet allocates and initializes the parameters of t.
//
// Example:
//
//	params, err := nn.NewParameterSet(nn.DefaultTopology(), nn.InitConfig{Seed: 1})
func NewParameterSet(t Topology, cfg InitConfig) (*ParameterSet, error) {
	return nn.NewParameterSet(t, cfg)
}

// NewZeroParameterSet allocates parameters of t filled with zeros.
func NewZeroParameterSet(t Topology) (*ParameterSet, error) {
	return nn.NewZeroParameterSet(t)
}

// Forward returns the logits [classes, m] for the examples in x [features, m].
func Forward(p *ParameterSet, x mat.Matrix) (*mat.Dense, error) {
	return nn.Forward(p, x)
}

// Backward returns the mean cross-entropy cost of x against the one-hot
// labels y and its gradients.
func Backward(p *ParameterSet, x, y mat.Matrix) (float64, *Gradients, error) {
	return nn.Backward(p, x, y)
}

// CrossEntropy returns the softmax cross-entropy cost averaged over columns.
func CrossEntropy(logits, labels mat.Matrix) (float64, error) {
	return nn.CrossEntropy(logits, labels)
}

// Softmax returns the column-wise softmax of logits.
func Softmax(logits mat.Matrix) *mat.Dense {
	return nn.Softmax(logits)
}

// ReLU stores max(z, 0) in dst.
func ReLU(dst, z *mat.Dense) {
	nn.ReLU(dst, z)
}
