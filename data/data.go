// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package data loads labeled digit images and cuts them into mini-batches.
package data

import (
	"iter"

	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/digits/internal/data"
)

// Dataset is a set of labeled examples stored one per column.
type Dataset = data.Dataset

// MiniBatch is one slice of a Dataset with one-hot labels.
type MiniBatch = data.MiniBatch

// CSVOptions configures the CSV loaders.
type CSVOptions = data.CSVOptions

// SchedulerOptions configures batch order.
type SchedulerOptions = data.SchedulerOptions

// New wraps a [features, m] matrix and its labels.
func New(x *mat.Dense, labels []int, numClasses int) (*Dataset, error) {
	return data.New(x, labels, numClasses)
}

// LoadCSV loads a Kaggle-style labeled CSV file.
func LoadCSV(path string, opts CSVOptions) (*Dataset, error) {
	return data.LoadCSV(path, opts)
}

// LoadIDX loads the MNIST IDX image and label files.
func LoadIDX(imagesPath, labelsPath string, maxSamples int) (*Dataset, error) {
	return data.LoadIDX(imagesPath, labelsPath, maxSamples)
}

// Batches returns the mini-batches of one epoch over ds. It fails when ds is
// empty or batchSize is not positive.
//
// Example:
//
//	batches, err := data.Batches(ds, 32)
//	if err != nil {
//	    return err
//	}
//	for b := range batches {
//	    cost, grads, err := nn.Backward(params, b.X, b.Y)
//	    ...
//	}
func Batches(ds *Dataset, batchSize int) (iter.Seq[MiniBatch], error) {
	s, err := data.NewScheduler(ds, batchSize, data.SchedulerOptions{})
	if err != nil {
		return nil, err
	}
	return s.Batches(), nil
}
