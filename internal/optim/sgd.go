package optim

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/digits/internal/nn"
)

// SGD implements Stochastic Gradient Descent optimizer with optional momentum.
//
// Update rule without momentum:
//
//	param = param - lr * gradient
//
// Update rule with momentum:
//
//	velocity = momentum * velocity + gradient
//	param = param - lr * velocity
type SGD struct {
	lr         float64
	momentum   float64
	t          int
	velocities []*mat.Dense
}

// SGDConfig holds configuration for SGD optimizer.
type SGDConfig struct {
	LR       float64 // Learning rate (default: 0.01)
	Momentum float64 // Momentum factor (default: 0.0, range: [0, 1))
}

// NewSGD creates a new SGD optimizer.
//
// Example:
//
//	sgd := optim.NewSGD(optim.SGDConfig{
//	    LR:       0.01,
//	    Momentum: 0.9,
//	})
func NewSGD(config SGDConfig) *SGD {
	if config.LR == 0 {
		config.LR = 0.01
	}

	return &SGD{
		lr:       config.LR,
		momentum: config.Momentum,
	}
}

// Step performs a single optimization step.
//
//   - Without momentum: param -= lr * grad
//   - With momentum: velocity = momentum * velocity + grad, param -= lr * velocity
func (s *SGD) Step(params *nn.ParameterSet, grads *nn.Gradients) error {
	pairs, err := slots(params, grads)
	if err != nil {
		return err
	}

	if s.momentum == 0 {
		for _, p := range pairs {
			p.param.Sub(p.param, scaled(s.lr, p.grad))
		}
		s.t++
		return nil
	}

	if s.velocities == nil {
		s.velocities = make([]*mat.Dense, len(pairs))
		for i, p := range pairs {
			r, c := p.param.Dims()
			s.velocities[i] = mat.NewDense(r, c, nil)
		}
	}
	if len(s.velocities) != len(pairs) {
		return shapeChanged(len(s.velocities), len(pairs))
	}

	for i, p := range pairs {
		vel := s.velocities[i]
		if err := sameShape(vel, p.param); err != nil {
			return err
		}
		vel.Scale(s.momentum, vel)
		vel.Add(vel, p.grad)
		p.param.Sub(p.param, scaled(s.lr, vel))
	}
	s.t++
	return nil
}

// LR returns the current learning rate.
func (s *SGD) LR() float64 {
	return s.lr
}

// SetLR updates the learning rate.
func (s *SGD) SetLR(lr float64) {
	s.lr = lr
}

// Timestep returns the number of updates applied.
func (s *SGD) Timestep() int {
	return s.t
}

func scaled(f float64, m mat.Matrix) *mat.Dense {
	var out mat.Dense
	out.Scale(f, m)
	return &out
}

func shapeChanged(had, got int) error {
	return errors.Wrapf(nn.ErrShapeMismatch,
		"optimizer state tracks %d tensors, got %d", had, got)
}
