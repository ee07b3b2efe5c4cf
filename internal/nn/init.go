package nn

import (
	"math"
	"math/rand/v2"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// InitScheme selects the weight initialization distribution.
type InitScheme string

// Supported weight initialization schemes.
const (
	// GlorotUniform draws from U(-sqrt(6/(fan_in+fan_out)), +sqrt(6/(fan_in+fan_out))).
	GlorotUniform InitScheme = "glorot-uniform"
	// LeCunNormal draws from N(0, 1/fan_in), i.e. unit normals scaled by 1/sqrt(fan_in).
	LeCunNormal InitScheme = "lecun-normal"
)

// InitConfig controls parameter initialization.
//
// Two parameter sets built from the same topology and InitConfig are
// identical element for element.
type InitConfig struct {
	Seed   uint64     // Seed of the PCG source used for every weight draw
	Scheme InitScheme // Weight distribution (default: GlorotUniform)
}

// newSource returns the deterministic random source for seed.
func newSource(seed uint64) rand.Source {
	return rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)
}

// Xavier fills w with Glorot/Xavier uniform values.
//
// Bound: sqrt(6 / (fan_in + fan_out)), the variance-preserving range for
// layers whose fan_in equals the column count of w.
func Xavier(w *mat.Dense, src rand.Source) {
	fanOut, fanIn := w.Dims()
	bound := math.Sqrt(6.0 / float64(fanIn+fanOut))
	dist := distuv.Uniform{Min: -bound, Max: bound, Src: src}
	fill(w, dist.Rand)
}

// LeCun fills w with N(0, 1/fan_in) values.
func LeCun(w *mat.Dense, src rand.Source) {
	_, fanIn := w.Dims()
	dist := distuv.Normal{Mu: 0, Sigma: 1 / math.Sqrt(float64(fanIn)), Src: src}
	fill(w, dist.Rand)
}

func fill(w *mat.Dense, draw func() float64) {
	r, c := w.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			w.Set(i, j, draw())
		}
	}
}

func initializer(scheme InitScheme) (func(*mat.Dense, rand.Source), error) {
	switch scheme {
	case "", GlorotUniform:
		return Xavier, nil
	case LeCunNormal:
		return LeCun, nil
	default:
		return nil, errors.Errorf("unknown init scheme %q", scheme)
	}
}
