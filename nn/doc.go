// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides the fully connected ReLU network used by digits.
//
// # Overview
//
// A network is described by its Topology, the widths of every layer from
// the input features to the output classes. Layer i (1-based) owns a weight
// matrix of shape [widths[i], widths[i-1]] and a bias column [widths[i], 1].
// Examples are the columns of the input matrix.
//
// This package contains:
//   - Topology and ParameterSet: shapes and trainable values
//   - Initialization: Glorot uniform (default) and LeCun normal
//   - Forward: ReLU hidden layers, raw logits out
//   - CrossEntropy and Softmax: numerically stable, column-wise
//   - Backward: gradients of the mean cost for every layer
//
// # Basic Usage
//
//	import "github.com/born-ml/digits/nn"
//
//	func main() {
//	    params, err := nn.NewParameterSet(nn.Topology{784, 14, 14, 10}, nn.InitConfig{Seed: 1})
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    logits, err := nn.Forward(params, x) // x: [784, m]
//	    cost, grads, err := nn.Backward(params, x, y)
//	}
//
// # Errors
//
// Shape problems are reported as ErrShapeMismatch, bad widths as
// ErrInvalidTopology. Match them with errors.Is.
package nn
