// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package optim

import (
	"github.com/born-ml/digits/internal/optim"
)

// Optimizer is the common interface of every update rule.
type Optimizer = optim.Optimizer

// Kind names an optimizer.
type Kind = optim.Kind

// Known optimizers.
const (
	KindAdam = optim.KindAdam
	KindSGD  = optim.KindSGD
)

// Config selects and configures an optimizer for New.
type Config = optim.Config

// New builds the optimizer selected by cfg.Kind.
func New(cfg Config) (Optimizer, error) {
	return optim.New(cfg)
}

// SGD (Stochastic Gradient Descent)

// SGD represents the SGD optimizer with optional momentum.
type SGD = optim.SGD

// SGDConfig contains configuration for SGD optimizer.
type SGDConfig = optim.SGDConfig

// NewSGD creates a new SGD optimizer.
//
// Example:
//
//	optimizer := optim.NewSGD(optim.SGDConfig{LR: 0.01, Momentum: 0.9})
func NewSGD(config SGDConfig) *SGD {
	return optim.NewSGD(config)
}

// Adam (Adaptive Moment Estimation)

// Adam represents the Adam optimizer.
type Adam = optim.Adam

// AdamConfig contains configuration for Adam optimizer.
type AdamConfig = optim.AdamConfig

// NewAdam creates a new Adam optimizer.
//
// Example:
//
//	optimizer := optim.NewAdam(optim.AdamConfig{
//	    LR:    1e-4,
//	    Betas: [2]float64{0.9, 0.999},
//	    Eps:   1e-8,
//	})
func NewAdam(config AdamConfig) *Adam {
	return optim.NewAdam(config)
}
