package data

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/digits/internal/nn"
)

func collect(s *Scheduler) []MiniBatch {
	return slices.Collect(s.Batches())
}

// TestScheduler_Counts: ceil(m/B) batches, sizes sum to m, last = m mod B (or B).
func TestScheduler_Counts(t *testing.T) {
	cases := []struct{ m, batch int }{
		{10, 3}, {12, 4}, {1, 1}, {7, 7}, {100, 32}, {33, 32}, {5, 1},
	}

	for _, tc := range cases {
		for _, reshuffle := range []bool{false, true} {
			ds := sequential(t, tc.m, 3)
			s, err := NewScheduler(ds, tc.batch, SchedulerOptions{Reshuffle: reshuffle, Seed: 1})
			require.NoError(t, err)

			batches := collect(s)
			wantN := (tc.m + tc.batch - 1) / tc.batch
			require.Len(t, batches, wantN, "m=%d B=%d", tc.m, tc.batch)
			assert.Equal(t, wantN, s.NumBatches())

			total := 0
			for _, b := range batches[:len(batches)-1] {
				assert.Equal(t, tc.batch, b.Size())
				total += b.Size()
			}
			last := batches[len(batches)-1].Size()
			total += last

			wantLast := tc.m % tc.batch
			if wantLast == 0 {
				wantLast = tc.batch
			}
			assert.Equal(t, wantLast, last)
			assert.Equal(t, tc.m, total)
		}
	}
}

func TestScheduler_BatchLargerThanDataset(t *testing.T) {
	ds := sequential(t, 5, 2)
	s, err := NewScheduler(ds, 64, SchedulerOptions{})
	require.NoError(t, err)

	batches := collect(s)
	require.Len(t, batches, 1)
	assert.Equal(t, 5, batches[0].Size())
	assert.True(t, mat.Equal(ds.X, batches[0].X))
}

// TestScheduler_CoversEveryExampleOnce checks contents and one-hot labels.
func TestScheduler_CoversEveryExampleOnce(t *testing.T) {
	for _, reshuffle := range []bool{false, true} {
		ds := sequential(t, 23, 4)
		before := mat.DenseCopyOf(ds.X)

		s, err := NewScheduler(ds, 5, SchedulerOptions{Reshuffle: reshuffle, Seed: 3})
		require.NoError(t, err)

		var seen []int
		for b := range s.Batches() {
			_, cols := b.X.Dims()
			require.Equal(t, len(b.Indices), cols)
			for j, idx := range b.Indices {
				assert.Equal(t, float64(idx), b.X.At(0, j))
				assert.Equal(t, 1.0, b.Y.At(ds.Labels[idx], j))
			}
			seen = append(seen, b.Indices...)
		}

		slices.Sort(seen)
		want := make([]int, 23)
		for i := range want {
			want[i] = i
		}
		assert.Equal(t, want, seen)
		assert.True(t, mat.Equal(before, ds.X), "dataset must not be mutated")
	}
}

func TestScheduler_FixedOrderIsRestartable(t *testing.T) {
	ds := sequential(t, 9, 3)
	s, err := NewScheduler(ds, 4, SchedulerOptions{})
	require.NoError(t, err)

	first := collect(s)
	second := collect(s)
	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].Indices, second[i].Indices)
	}
	assert.Equal(t, []int{0, 1, 2, 3}, first[0].Indices)
}

func TestScheduler_ReshuffleChangesOrder(t *testing.T) {
	ds := sequential(t, 40, 3)
	s, err := NewScheduler(ds, 40, SchedulerOptions{Reshuffle: true, Seed: 11})
	require.NoError(t, err)

	seq := s.Batches()
	a := slices.Collect(seq)
	replay := slices.Collect(seq)
	b := collect(s)

	assert.Equal(t, a[0].Indices, replay[0].Indices, "one sequence replays its order")
	assert.NotEqual(t, a[0].Indices, b[0].Indices, "a new pass draws a new order")
}

func TestScheduler_EarlyBreak(t *testing.T) {
	ds := sequential(t, 10, 2)
	s, err := NewScheduler(ds, 2, SchedulerOptions{})
	require.NoError(t, err)

	n := 0
	for range s.Batches() {
		n++
		if n == 2 {
			break
		}
	}
	assert.Equal(t, 2, n)
}

func TestScheduler_Invalid(t *testing.T) {
	ds := sequential(t, 3, 2)
	_, err := NewScheduler(ds, 0, SchedulerOptions{})
	assert.Error(t, err)

	_, err = NewScheduler(nil, 4, SchedulerOptions{})
	assert.ErrorIs(t, err, nn.ErrEmptyDataset)
}

// TestScheduler_OnSplitView schedules over a view produced by Split.
func TestScheduler_OnSplitView(t *testing.T) {
	ds := sequential(t, 10, 2)
	_, dev, err := ds.Split(0.7)
	require.NoError(t, err)

	s, err := NewScheduler(dev, 2, SchedulerOptions{})
	require.NoError(t, err)
	batches := collect(s)
	require.Len(t, batches, 2)
	assert.Equal(t, []float64{7, 8}, mat.Row(nil, 0, batches[0].X))
	assert.Equal(t, []float64{9}, mat.Row(nil, 0, batches[1].X))
}
