package nn

import (
	"gonum.org/v1/gonum/mat"
)

// ReLU writes max(0, z) elementwise into dst.
//
// dst may alias z.
func ReLU(dst, z *mat.Dense) {
	dst.Apply(func(_, _ int, v float64) float64 {
		if v > 0 {
			return v
		}
		return 0
	}, z)
}

// reluBackward zeroes the entries of grad whose pre-activation z is not
// strictly positive. grad is modified in place.
func reluBackward(grad, z *mat.Dense) {
	grad.Apply(func(i, j int, g float64) float64 {
		if z.At(i, j) > 0 {
			return g
		}
		return 0
	}, grad)
}
