package nn

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/digits/internal/parallel"
)

// columnWork is the parallel configuration for per-example (per-column) loops.
var columnWork = parallel.DefaultConfig()

// CrossEntropy computes the softmax cross-entropy cost averaged over examples.
//
// Mathematical Formulation:
//
//	cost_j = -Σ_k labels[k,j] · LogSoftmax(logits[:,j])[k]
//	cost   = mean_j cost_j
//
// For one-hot labels cost_j reduces to -log(softmax(logits_j)[true_j]).
//
// Parameters:
//   - logits: raw scores, shape [classes, m]
//   - labels: one-hot targets, shape [classes, m]
//
// Returns ErrShapeMismatch if the shapes differ.
func CrossEntropy(logits, labels mat.Matrix) (float64, error) {
	if err := sameDims(logits, labels); err != nil {
		return 0, errors.Wrap(err, "cross entropy: logits vs labels")
	}
	return meanCost(logSoftmax(logits), labels), nil
}

// Softmax returns the column-wise softmax of logits.
//
// Each column of the result sums to 1.
func Softmax(logits mat.Matrix) *mat.Dense {
	out := logSoftmax(logits)
	out.Apply(func(_, _ int, v float64) float64 { return math.Exp(v) }, out)
	return out
}

// logSoftmax computes log(softmax(z)) for every column in a numerically
// stable way.
//
// Formula:
//
//	LogSoftmax(z)[i] = z[i] - (max(z) + log(Σ exp(z - max(z))))
//
// The log-sum-exp trick prevents overflow by subtracting max(z) before exponentiating.
func logSoftmax(logits mat.Matrix) *mat.Dense {
	out := mat.DenseCopyOf(logits)
	rows, cols := out.Dims()

	parallel.For(cols, func(j int) {
		col := make([]float64, rows)
		mat.Col(col, j, out)

		maxZ := floats.Max(col)
		sumExp := 0.0
		for _, v := range col {
			sumExp += math.Exp(v - maxZ)
		}
		logSumExp := maxZ + math.Log(sumExp)

		for i, v := range col {
			out.Set(i, j, v-logSumExp)
		}
	}, columnWork)

	return out
}

// meanCost averages -Σ_k labels·logProbs over columns.
//
// Per-column costs are summed in column order so the result does not depend
// on how the columns were scheduled.
func meanCost(logProbs *mat.Dense, labels mat.Matrix) float64 {
	rows, cols := logProbs.Dims()
	costs := make([]float64, cols)

	parallel.For(cols, func(j int) {
		c := 0.0
		for i := 0; i < rows; i++ {
			if y := labels.At(i, j); y != 0 {
				c -= y * logProbs.At(i, j)
			}
		}
		costs[j] = c
	}, columnWork)

	return floats.Sum(costs) / float64(cols)
}
