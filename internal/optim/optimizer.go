// Package optim implements the parameter update rules used by the trainer.
//
// This package provides:
//   - Optimizer interface: Base interface for all optimizers
//   - Adam: Adaptive Moment Estimation (default)
//   - SGD: Stochastic Gradient Descent with optional momentum
//
// Optimizers keep their state (moments, velocities, step counter) private
// and are bound to the ParameterSet of a single training run.
//
// Example usage:
//
//	optimizer := optim.NewAdam(optim.AdamConfig{LR: 1e-4})
//
//	for _, batch := range batches {
//	    cost, grads, err := nn.Backward(params, batch.X, batch.Y)
//	    if err != nil {
//	        return err
//	    }
//	    if err := optimizer.Step(params, grads); err != nil {
//	        return err
//	    }
//	}
package optim

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/digits/internal/nn"
)

// Optimizer is the base interface for all optimization algorithms.
//
// All optimizers must implement:
//   - Step: Apply gradient updates to parameters in place
//   - LR / SetLR: Read or change the learning rate (monitoring/scheduling)
//   - Timestep: Number of Step calls applied so far
type Optimizer interface {
	// Step applies one update to every tensor of params using grads.
	//
	// grads must cover every layer of params with matching shapes,
	// otherwise nothing is updated and ErrShapeMismatch is returned.
	Step(params *nn.ParameterSet, grads *nn.Gradients) error

	// LR returns the current learning rate.
	LR() float64

	// SetLR updates the learning rate.
	SetLR(lr float64)

	// Timestep returns the number of updates applied.
	Timestep() int
}

// Kind names an optimizer for configuration.
type Kind string

// Known optimizers.
const (
	KindAdam Kind = "adam"
	KindSGD  Kind = "sgd"
)

// Config is the union of the settings of every optimizer. Zero values fall
// back to each optimizer's defaults.
type Config struct {
	Kind     Kind
	LR       float64
	Beta1    float64
	Beta2    float64
	Epsilon  float64
	Momentum float64
}

// New builds the optimizer selected by cfg.Kind (Adam when empty).
func New(cfg Config) (Optimizer, error) {
	switch cfg.Kind {
	case "", KindAdam:
		return NewAdam(AdamConfig{
			LR:    cfg.LR,
			Betas: [2]float64{cfg.Beta1, cfg.Beta2},
			Eps:   cfg.Epsilon,
		}), nil
	case KindSGD:
		return NewSGD(SGDConfig{LR: cfg.LR, Momentum: cfg.Momentum}), nil
	default:
		return nil, errors.Errorf("unknown optimizer %q", cfg.Kind)
	}
}

// slot pairs a parameter tensor with its gradient.
type slot struct {
	param *mat.Dense
	grad  *mat.Dense
}

// slots flattens params and grads into W1, b1, W2, b2, ... order and
// validates that every gradient matches its parameter.
func slots(params *nn.ParameterSet, grads *nn.Gradients) ([]slot, error) {
	if grads == nil || grads.NumLayers() != params.NumLayers() {
		n := 0
		if grads != nil {
			n = grads.NumLayers()
		}
		return nil, errors.Wrapf(nn.ErrShapeMismatch,
			"gradients cover %d layers, parameters have %d", n, params.NumLayers())
	}

	out := make([]slot, 0, 2*params.NumLayers())
	for i := 1; i <= params.NumLayers(); i++ {
		l := params.MustLayer(i)
		dW, db := grads.Layer(i)
		if err := sameShape(l.Weight, dW); err != nil {
			return nil, errors.Wrapf(err, "layer %d weight gradient", i)
		}
		if err := sameShape(l.Bias, db); err != nil {
			return nil, errors.Wrapf(err, "layer %d bias gradient", i)
		}
		out = append(out, slot{l.Weight, dW}, slot{l.Bias, db})
	}
	return out, nil
}

func sameShape(a, b *mat.Dense) error {
	if b == nil {
		return errors.Wrap(nn.ErrShapeMismatch, "missing gradient")
	}
	ar, ac := a.Dims()
	br, bc := b.Dims()
	if ar != br || ac != bc {
		return errors.Wrapf(nn.ErrShapeMismatch, "expected %dx%d, got %dx%d", ar, ac, br, bc)
	}
	return nil
}
