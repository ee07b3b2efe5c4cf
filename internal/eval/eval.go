// Package eval scores a trained network against labeled examples.
package eval

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/digits/internal/data"
	"github.com/born-ml/digits/internal/nn"
	"github.com/born-ml/digits/internal/parallel"
)

// Result is the outcome of evaluating a ParameterSet on a Dataset.
type Result struct {
	Predictions []int      // predicted class per example
	Accuracy    float64    // matches / m, in [0, 1]
	Mismatches  []int      // ascending indices where prediction != label
	Confusion   *mat.Dense // [classes, classes]; row = true class, column = predicted
}

// Correct returns the number of correctly classified examples.
func (r *Result) Correct() int {
	return len(r.Predictions) - len(r.Mismatches)
}

// Evaluate predicts every example of ds and compares with its label.
//
// params is only read. Calling Evaluate twice with the same inputs yields
// the same Result.
func Evaluate(params *nn.ParameterSet, ds *data.Dataset) (*Result, error) {
	if ds == nil || ds.NumExamples() == 0 {
		return nil, errors.Wrap(nn.ErrEmptyDataset, "evaluate")
	}
	if classes := params.Topology().Classes(); classes != ds.NumClasses {
		return nil, errors.Wrapf(nn.ErrShapeMismatch,
			"network predicts %d classes, dataset has %d", classes, ds.NumClasses)
	}

	preds, err := Predict(params, ds.X)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Predictions: preds,
		Confusion:   mat.NewDense(ds.NumClasses, ds.NumClasses, nil),
	}
	for j, p := range preds {
		truth := ds.Labels[j]
		res.Confusion.Set(truth, p, res.Confusion.At(truth, p)+1)
		if p != truth {
			res.Mismatches = append(res.Mismatches, j)
		}
	}
	res.Accuracy = float64(res.Correct()) / float64(len(preds))
	return res, nil
}

// Predict returns the arg-max class of every column of x.
//
// Ties go to the lowest class index.
func Predict(params *nn.ParameterSet, x mat.Matrix) ([]int, error) {
	logits, err := nn.Forward(params, x)
	if err != nil {
		return nil, err
	}
	return Argmax(logits), nil
}

// Argmax returns, for each column of scores, the row holding the largest value.
func Argmax(scores mat.Matrix) []int {
	rows, cols := scores.Dims()
	out := make([]int, cols)
	parallel.For(cols, func(j int) {
		col := make([]float64, rows)
		mat.Col(col, j, scores)
		out[j] = floats.MaxIdx(col)
	}, parallel.DefaultConfig())
	return out
}
