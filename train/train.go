// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package train runs mini-batch gradient descent on a network.
//
// Example:
//
//	params, _ := nn.NewParameterSet(nn.DefaultTopology(), nn.InitConfig{Seed: 1})
//	trainer, err := train.New(params, optim.NewAdam(optim.AdamConfig{}), train.Config{
//	    Epochs:    1500,
//	    BatchSize: 32,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	res, err := trainer.Run(ctx, trainSet)
package train

import (
	"log/slog"

	"github.com/born-ml/digits/internal/nn"
	"github.com/born-ml/digits/internal/optim"
	"github.com/born-ml/digits/internal/train"
)

// Trainer drives the epoch loop.
type Trainer = train.Trainer

// Config holds the loop settings.
type Config = train.Config

// Result is the outcome of a run.
type Result = train.Result

// EpochCost is one entry of the cost history.
type EpochCost = train.EpochCost

// Reporter receives recorded epoch costs.
type Reporter = train.Reporter

// ReporterFunc adapts a function to Reporter.
type ReporterFunc = train.ReporterFunc

// Option customizes a Trainer.
type Option = train.Option

// State is the lifecycle stage of a Trainer.
type State = train.State

// Trainer states.
const (
	Uninitialized = train.Uninitialized
	Running       = train.Running
	Completed     = train.Completed
	Failed        = train.Failed
)

// New creates a Trainer.
func New(params *nn.ParameterSet, opt optim.Optimizer, cfg Config, opts ...Option) (*Trainer, error) {
	return train.New(params, opt, cfg, opts...)
}

// WithLogger sets the progress logger.
func WithLogger(l *slog.Logger) Option {
	return train.WithLogger(l)
}

// WithReporter registers a sink for recorded epoch costs.
func WithReporter(r Reporter) Option {
	return train.WithReporter(r)
}
