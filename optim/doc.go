// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package optim provides the optimizers that update a ParameterSet from its
// gradients.
//
// Adam is the default; SGD with optional momentum is available for
// comparison. An optimizer keeps per-parameter state and must be used with
// a single ParameterSet.
//
// Example:
//
//	opt := optim.NewAdam(optim.AdamConfig{LR: 1e-4})
//	cost, grads, err := nn.Backward(params, x, y)
//	if err != nil {
//	    return err
//	}
//	if err := opt.Step(params, grads); err != nil {
//	    return err
//	}
package optim
