// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package eval measures how well a trained network classifies a Dataset.
package eval

import (
	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/digits/internal/data"
	"github.com/born-ml/digits/internal/eval"
	"github.com/born-ml/digits/internal/nn"
)

// Result holds predictions, accuracy, mismatch indices and the confusion
// matrix of one evaluation.
type Result = eval.Result

// Evaluate predicts every example of ds and compares with its label.
func Evaluate(params *nn.ParameterSet, ds *data.Dataset) (*Result, error) {
	return eval.Evaluate(params, ds)
}

// Predict returns the most likely class of every column of x.
func Predict(params *nn.ParameterSet, x mat.Matrix) ([]int, error) {
	return eval.Predict(params, x)
}
