package nn_test

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/digits/internal/nn"
)

// TestTopology_Shapes checks weight (widths[i], widths[i-1]) and bias (widths[i], 1).
func TestTopology_Shapes(t *testing.T) {
	cases := []nn.Topology{
		{4, 2},
		{4, 3, 2},
		{784, 14, 14, 10},
		{1, 1, 1, 1, 1},
		{7, 300, 2, 9},
	}

	for _, topo := range cases {
		shapes, err := topo.Shapes()
		require.NoError(t, err)
		require.Len(t, shapes, len(topo)-1)

		for i := 1; i < len(topo); i++ {
			wr, wc := shapes[i-1].WeightDims()
			br, bc := shapes[i-1].BiasDims()
			assert.Equal(t, topo[i], wr, "topology %v layer %d weight rows", topo, i)
			assert.Equal(t, topo[i-1], wc, "topology %v layer %d weight cols", topo, i)
			assert.Equal(t, wr, br)
			assert.Equal(t, 1, bc)
		}
	}
}

func TestTopology_Invalid(t *testing.T) {
	cases := map[string]nn.Topology{
		"nil":      nil,
		"single":   {784},
		"zero":     {4, 0, 2},
		"negative": {4, 3, -2},
	}

	for name, topo := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := topo.Shapes()
			require.Error(t, err)
			assert.True(t, errors.Is(err, nn.ErrInvalidTopology), "got %v", err)

			_, err = nn.NewParameterSet(topo, nn.InitConfig{Seed: 1})
			assert.ErrorIs(t, err, nn.ErrInvalidTopology)
		})
	}
}

func TestDefaultTopology(t *testing.T) {
	topo := nn.DefaultTopology()
	assert.Equal(t, nn.Topology{784, 14, 14, 10}, topo)
	assert.Equal(t, 784, topo.Inputs())
	assert.Equal(t, 10, topo.Classes())
	assert.Equal(t, 3, topo.NumLayers())
}

func TestNewParameterSet_Deterministic(t *testing.T) {
	topo := nn.Topology{10, 6, 4, 3}

	a, err := nn.NewParameterSet(topo, nn.InitConfig{Seed: 42})
	require.NoError(t, err)
	b, err := nn.NewParameterSet(topo, nn.InitConfig{Seed: 42})
	require.NoError(t, err)
	c, err := nn.NewParameterSet(topo, nn.InitConfig{Seed: 43})
	require.NoError(t, err)

	assert.True(t, a.Equal(b), "same seed must give identical parameters")
	assert.False(t, a.Equal(c), "different seeds should differ")
}

func TestNewParameterSet_GlorotBoundsAndZeroBias(t *testing.T) {
	topo := nn.Topology{20, 10, 5}
	p, err := nn.NewParameterSet(topo, nn.InitConfig{Seed: 7, Scheme: nn.GlorotUniform})
	require.NoError(t, err)
	require.Equal(t, 2, p.NumLayers())
	assert.Equal(t, 20*10+10+10*5+5, p.NumParams())

	for i := 1; i <= p.NumLayers(); i++ {
		l := p.MustLayer(i)
		rows, cols := l.Weight.Dims()
		assert.Equal(t, topo[i], rows)
		assert.Equal(t, topo[i-1], cols)

		bound := math.Sqrt(6.0 / float64(rows+cols))
		nonZero := 0
		for r := 0; r < rows; r++ {
			for c := 0; c < cols; c++ {
				v := l.Weight.At(r, c)
				assert.LessOrEqual(t, math.Abs(v), bound)
				if v != 0 {
					nonZero++
				}
			}
		}
		assert.Positive(t, nonZero)

		assert.True(t, mat.Equal(l.Bias, mat.NewDense(rows, 1, nil)), "bias of layer %d not zero", i)
	}
}

func TestNewParameterSet_LeCunScale(t *testing.T) {
	fanIn := 400
	p, err := nn.NewParameterSet(nn.Topology{fanIn, 200}, nn.InitConfig{Seed: 3, Scheme: nn.LeCunNormal})
	require.NoError(t, err)

	w := p.MustLayer(1).Weight
	r, c := w.Dims()
	var sum, sumSq float64
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			v := w.At(i, j)
			sum += v
			sumSq += v * v
		}
	}
	n := float64(r * c)
	variance := sumSq/n - (sum/n)*(sum/n)
	assert.InDelta(t, 1.0/float64(fanIn), variance, 0.1/float64(fanIn))
}

func TestNewParameterSet_UnknownScheme(t *testing.T) {
	_, err := nn.NewParameterSet(nn.Topology{2, 2}, nn.InitConfig{Scheme: "he-uniform"})
	assert.Error(t, err)
}

func TestParameterSet_LayerRange(t *testing.T) {
	p, err := nn.NewParameterSet(nn.Topology{3, 2, 2}, nn.InitConfig{Seed: 1})
	require.NoError(t, err)

	_, err = p.Layer(0)
	assert.Error(t, err)
	_, err = p.Layer(3)
	assert.Error(t, err)
	assert.Panics(t, func() { p.MustLayer(5) })

	l, err := p.Layer(2)
	require.NoError(t, err)
	r, c := l.Weight.Dims()
	assert.Equal(t, [2]int{2, 2}, [2]int{r, c})
}

func TestParameterSet_ApplyUpdate(t *testing.T) {
	p, err := nn.NewParameterSet(nn.Topology{2, 2}, nn.InitConfig{Seed: 1})
	require.NoError(t, err)
	before := p.Clone()

	dW := mat.NewDense(2, 2, []float64{1, 2, 3, 4})
	db := mat.NewDense(2, 1, []float64{-1, 1})
	require.NoError(t, p.ApplyUpdate(1, dW, db))

	var want mat.Dense
	want.Add(before.MustLayer(1).Weight, dW)
	assert.True(t, mat.EqualApprox(&want, p.MustLayer(1).Weight, 1e-15))
	assert.Equal(t, []float64{-1, 1}, mat.Col(nil, 0, p.MustLayer(1).Bias))

	// Clone is independent of later updates.
	assert.False(t, before.Equal(p))

	err = p.ApplyUpdate(1, mat.NewDense(2, 3, nil), db)
	assert.ErrorIs(t, err, nn.ErrShapeMismatch)
	err = p.ApplyUpdate(1, dW, mat.NewDense(3, 1, nil))
	assert.ErrorIs(t, err, nn.ErrShapeMismatch)
	err = p.ApplyUpdate(2, dW, db)
	assert.Error(t, err)
}

func TestParameterSet_TopologyIsCopy(t *testing.T) {
	topo := nn.Topology{3, 2}
	p, err := nn.NewParameterSet(topo, nn.InitConfig{Seed: 1})
	require.NoError(t, err)

	topo[0] = 99
	got := p.Topology()
	assert.Equal(t, 3, got[0])
	got[0] = 42
	assert.Equal(t, 3, p.Topology()[0])
}

// TestForward_OutputShape checks [classes, m] output for any m.
func TestForward_OutputShape(t *testing.T) {
	p, err := nn.NewParameterSet(nn.Topology{6, 5, 4, 3}, nn.InitConfig{Seed: 11})
	require.NoError(t, err)

	for _, m := range []int{1, 2, 7, 64, 129} {
		x := randomMatrix(6, m, uint64(m))
		logits, err := nn.Forward(p, x)
		require.NoError(t, err)

		r, c := logits.Dims()
		assert.Equal(t, 3, r)
		assert.Equal(t, m, c)
	}
}

func TestForward_ShapeMismatch(t *testing.T) {
	p, err := nn.NewParameterSet(nn.Topology{4, 3, 2}, nn.InitConfig{Seed: 1})
	require.NoError(t, err)

	_, err = nn.Forward(p, mat.NewDense(5, 2, nil))
	assert.ErrorIs(t, err, nn.ErrShapeMismatch)
}

// TestForward_HandComputed verifies ReLU on hidden layers and raw logits on the last.
func TestForward_HandComputed(t *testing.T) {
	p, err := nn.NewZeroParameterSet(nn.Topology{2, 2, 1})
	require.NoError(t, err)

	l1 := p.MustLayer(1)
	l1.Weight.Copy(mat.NewDense(2, 2, []float64{1, -1, -2, 1}))
	l1.Bias.Copy(mat.NewDense(2, 1, []float64{0, 0.5}))
	l2 := p.MustLayer(2)
	l2.Weight.Copy(mat.NewDense(1, 2, []float64{2, -3}))
	l2.Bias.Copy(mat.NewDense(1, 1, []float64{-1}))

	// Column 0: x = (1, 2)
	//   z1 = (1-2, -2+2+0.5) = (-1, 0.5) -> a1 = (0, 0.5)
	//   z2 = 0 - 1.5 - 1 = -2.5 (not clipped)
	// Column 1: x = (3, 0)
	//   z1 = (3, -6+0.5) -> a1 = (3, 0)
	//   z2 = 6 - 1 = 5
	x := mat.NewDense(2, 2, []float64{
		1, 3,
		2, 0,
	})
	logits, err := nn.Forward(p, x)
	require.NoError(t, err)

	assert.InDelta(t, -2.5, logits.At(0, 0), 1e-12)
	assert.InDelta(t, 5.0, logits.At(0, 1), 1e-12)
}

func TestReLU(t *testing.T) {
	z := mat.NewDense(2, 3, []float64{-1, 0, 2, 3.5, -0.1, math.Inf(1)})
	var a mat.Dense
	nn.ReLU(&a, z)

	assert.Equal(t, []float64{0, 0, 2}, mat.Row(nil, 0, &a))
	assert.Equal(t, []float64{3.5, 0, math.Inf(1)}, mat.Row(nil, 1, &a))
}
