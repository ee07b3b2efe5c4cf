package data

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/digits/internal/nn"
)

// sequential returns a dataset whose feature rows encode the example index:
// X[0, j] = j, X[1, j] = -j.
func sequential(t *testing.T, m, classes int) *Dataset {
	t.Helper()
	x := mat.NewDense(2, m, nil)
	labels := make([]int, m)
	for j := 0; j < m; j++ {
		x.Set(0, j, float64(j))
		x.Set(1, j, -float64(j))
		labels[j] = j % classes
	}
	ds, err := New(x, labels, classes)
	require.NoError(t, err)
	return ds
}

func TestNew_Validation(t *testing.T) {
	_, err := New(nil, nil, 10)
	assert.ErrorIs(t, err, nn.ErrEmptyDataset)

	_, err = New(mat.NewDense(3, 2, nil), []int{}, 10)
	assert.ErrorIs(t, err, nn.ErrEmptyDataset)

	_, err = New(mat.NewDense(3, 2, nil), []int{1, 2, 3}, 10)
	assert.ErrorIs(t, err, nn.ErrShapeMismatch)

	_, err = New(mat.NewDense(3, 2, nil), []int{1, 10}, 10)
	assert.ErrorIs(t, err, nn.ErrShapeMismatch)

	_, err = New(mat.NewDense(3, 2, nil), []int{0, 0}, 0)
	assert.Error(t, err)

	ds, err := New(mat.NewDense(3, 2, nil), []int{0, 9}, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, ds.NumExamples())
	assert.Equal(t, 3, ds.NumFeatures())
}

func TestFromRows(t *testing.T) {
	ds, err := FromRows([][]float64{{1, 2, 3}, {4, 5, 6}}, []int{1, 0}, 2)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 4}, mat.Row(nil, 0, ds.X))
	assert.Equal(t, []float64{4, 5, 6}, mat.Col(nil, 1, ds.X))

	_, err = FromRows([][]float64{{1, 2}, {3}}, []int{0, 1}, 2)
	assert.ErrorIs(t, err, nn.ErrShapeMismatch)

	_, err = FromRows(nil, nil, 2)
	assert.ErrorIs(t, err, nn.ErrEmptyDataset)
}

func TestOneHot(t *testing.T) {
	y := OneHot([]int{2, 0, 1}, 3)
	want := mat.NewDense(3, 3, []float64{
		0, 1, 0,
		0, 0, 1,
		1, 0, 0,
	})
	assert.True(t, mat.Equal(want, y))
}

func TestSplit_CeilAndDisjoint(t *testing.T) {
	ds := sequential(t, 11, 3)

	train, dev, err := ds.Split(0.8)
	require.NoError(t, err)
	// ceil(11 * 0.8) = 9
	assert.Equal(t, 9, train.NumExamples())
	require.NotNil(t, dev)
	assert.Equal(t, 2, dev.NumExamples())

	assert.Equal(t, []float64{0, 1, 2, 3, 4, 5, 6, 7, 8}, mat.Row(nil, 0, train.X))
	assert.Equal(t, []float64{9, 10}, mat.Row(nil, 0, dev.X))
	assert.Equal(t, ds.Labels[9:], dev.Labels)

	all, none, err := ds.Split(1)
	require.NoError(t, err)
	assert.Equal(t, 11, all.NumExamples())
	assert.Nil(t, none)

	for _, bad := range []float64{0, -0.5, 1.5} {
		_, _, err := ds.Split(bad)
		assert.Error(t, err, "ratio %v", bad)
	}
}

func TestShuffle_PermutesWithoutMutating(t *testing.T) {
	ds := sequential(t, 50, 5)
	before := mat.DenseCopyOf(ds.X)

	a, err := ds.Shuffle(7)
	require.NoError(t, err)
	b, err := ds.Shuffle(7)
	require.NoError(t, err)
	c, err := ds.Shuffle(8)
	require.NoError(t, err)

	assert.True(t, mat.Equal(before, ds.X), "source must not change")
	assert.True(t, mat.Equal(a.X, b.X), "same seed, same order")
	assert.False(t, mat.Equal(a.X, c.X))

	// Every example survives and keeps its label.
	seen := make(map[int]bool)
	for j := 0; j < a.NumExamples(); j++ {
		idx := int(a.X.At(0, j))
		assert.Equal(t, -float64(idx), a.X.At(1, j))
		assert.Equal(t, idx%5, a.Labels[j])
		seen[idx] = true
	}
	assert.Len(t, seen, 50)
}

func TestSubset(t *testing.T) {
	ds := sequential(t, 6, 3)
	sub, err := ds.Subset([]int{5, 0, 3})
	require.NoError(t, err)
	assert.Equal(t, []float64{5, 0, 3}, mat.Row(nil, 0, sub.X))
	assert.Equal(t, []int{2, 0, 0}, sub.Labels)

	_, err = ds.Subset([]int{6})
	assert.Error(t, err)
	_, err = ds.Subset(nil)
	assert.ErrorIs(t, err, nn.ErrEmptyDataset)
}

func TestScale(t *testing.T) {
	ds := sequential(t, 3, 2)
	ds.Scale(0.5)
	assert.Equal(t, []float64{0, 0.5, 1}, mat.Row(nil, 0, ds.X))
}

func TestShuffle_Empty(t *testing.T) {
	empty := &Dataset{X: &mat.Dense{}, NumClasses: 3}
	out, err := empty.Shuffle(1)
	assert.ErrorIs(t, err, nn.ErrEmptyDataset)
	assert.Nil(t, out)
}
