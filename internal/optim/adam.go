package optim

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/digits/internal/nn"
)

// Adam implements the Adam (Adaptive Moment Estimation) optimizer.
//
// Adam combines ideas from RMSprop and momentum:
//   - Maintains exponential moving averages of gradients (first moment)
//   - Maintains exponential moving averages of squared gradients (second moment)
//   - Applies bias correction to compensate for initialization at zero
//
// Update rule:
//
//	m_t = beta1 * m_{t-1} + (1-beta1) * gradient       // First moment
//	v_t = beta2 * v_{t-1} + (1-beta2) * gradient²      // Second moment
//	m_hat = m_t / (1 - beta1^t)                        // Bias correction
//	v_hat = v_t / (1 - beta2^t)                        // Bias correction
//	param = param - lr * m_hat / (sqrt(v_hat) + eps)  // Parameter update
//
// Moment buffers are allocated on the first Step and are tied to the shapes
// of that ParameterSet. An Adam value must not be shared between runs.
//
// Reference: "Adam: A Method for Stochastic Optimization" (Kingma & Ba, 2014)
//
// Example:
//
//	optimizer := optim.NewAdam(optim.AdamConfig{
//	    LR:    1e-4,
//	    Betas: [2]float64{0.9, 0.999},
//	    Eps:   1e-8,
//	})
//
//	for _, batch := range batches {
//	    _, grads, _ := nn.Backward(params, batch.X, batch.Y)
//	    optimizer.Step(params, grads)
//	}
type Adam struct {
	lr    float64
	beta1 float64
	beta2 float64
	eps   float64
	t     int          // Timestep for bias correction
	m     []*mat.Dense // First moment estimates, one per tensor (W1, b1, W2, ...)
	v     []*mat.Dense // Second moment estimates
}

// AdamConfig holds configuration for Adam optimizer.
type AdamConfig struct {
	LR    float64    // Learning rate (default: 1e-4)
	Betas [2]float64 // Coefficients for computing running averages (default: [0.9, 0.999])
	Eps   float64    // Term for numerical stability (default: 1e-8)
}

// Default Adam hyperparameters.
const (
	DefaultAdamLR    = 1e-4
	DefaultAdamBeta1 = 0.9
	DefaultAdamBeta2 = 0.999
	DefaultAdamEps   = 1e-8
)

// NewAdam creates a new Adam optimizer.
//
// Zero fields of config take the defaults:
//   - LR: 1e-4
//   - Beta1: 0.9
//   - Beta2: 0.999
//   - Eps: 1e-8
func NewAdam(config AdamConfig) *Adam {
	if config.LR == 0 {
		config.LR = DefaultAdamLR
	}
	if config.Betas[0] == 0 {
		config.Betas[0] = DefaultAdamBeta1
	}
	if config.Betas[1] == 0 {
		config.Betas[1] = DefaultAdamBeta2
	}
	if config.Eps == 0 {
		config.Eps = DefaultAdamEps
	}

	return &Adam{
		lr:    config.LR,
		beta1: config.Betas[0],
		beta2: config.Betas[1],
		eps:   config.Eps,
	}
}

// Step performs a single optimization step using Adam algorithm.
//
// Applies Adam update to all parameters:
//  1. Update biased first moment estimate
//  2. Update biased second moment estimate
//  3. Compute bias-corrected moment estimates
//  4. Update parameters
func (a *Adam) Step(params *nn.ParameterSet, grads *nn.Gradients) error {
	pairs, err := slots(params, grads)
	if err != nil {
		return err
	}

	if a.m == nil {
		a.m = make([]*mat.Dense, len(pairs))
		a.v = make([]*mat.Dense, len(pairs))
		for i, s := range pairs {
			r, c := s.param.Dims()
			a.m[i] = mat.NewDense(r, c, nil)
			a.v[i] = mat.NewDense(r, c, nil)
		}
	}
	if len(a.m) != len(pairs) {
		return shapeChanged(len(a.m), len(pairs))
	}
	for i, s := range pairs {
		if err := sameShape(a.m[i], s.param); err != nil {
			return err
		}
	}

	a.t++

	// bias_correction1 = 1 - beta1^t
	// bias_correction2 = 1 - beta2^t
	biasCorrection1 := 1.0 - math.Pow(a.beta1, float64(a.t))
	biasCorrection2 := 1.0 - math.Pow(a.beta2, float64(a.t))

	for i, s := range pairs {
		a.updateParameter(s, a.m[i], a.v[i], biasCorrection1, biasCorrection2)
	}
	return nil
}

// updateParameter performs Adam update for a single tensor.
func (a *Adam) updateParameter(s slot, m, v *mat.Dense, biasCorrection1, biasCorrection2 float64) {
	rows, _ := s.param.Dims()
	for r := 0; r < rows; r++ {
		paramData := s.param.RawRowView(r)
		gradData := s.grad.RawRowView(r)
		mData := m.RawRowView(r)
		vData := v.RawRowView(r)

		for i, g := range gradData {
			mData[i] = a.beta1*mData[i] + (1.0-a.beta1)*g
			vData[i] = a.beta2*vData[i] + (1.0-a.beta2)*g*g

			mHat := mData[i] / biasCorrection1
			vHat := vData[i] / biasCorrection2

			paramData[i] -= a.lr * mHat / (math.Sqrt(vHat) + a.eps)
		}
	}
}

// LR returns the current learning rate.
func (a *Adam) LR() float64 {
	return a.lr
}

// SetLR updates the learning rate.
//
// Useful for learning rate scheduling during training.
func (a *Adam) SetLR(lr float64) {
	a.lr = lr
}

// Timestep returns the current timestep.
func (a *Adam) Timestep() int {
	return a.t
}

// Betas returns (beta1, beta2).
func (a *Adam) Betas() (float64, float64) {
	return a.beta1, a.beta2
}

// Eps returns the numerical stability term.
func (a *Adam) Eps() float64 {
	return a.eps
}
