package data

import (
	"iter"
	"math/rand/v2"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/digits/internal/nn"
)

// MiniBatch is a group of training examples used for one update.
type MiniBatch struct {
	X       *mat.Dense // [features, size]
	Y       *mat.Dense // [classes, size], one-hot
	Indices []int      // positions of the examples in the source Dataset
}

// Size returns the number of examples in the batch.
func (b MiniBatch) Size() int {
	return len(b.Indices)
}

// SchedulerOptions configures a Scheduler.
type SchedulerOptions struct {
	// Reshuffle draws a new example order for every pass. When false the
	// dataset order is used as is on every pass, which is the usual setup
	// when the dataset was shuffled once at load time.
	Reshuffle bool
	Seed      uint64 // Seed for Reshuffle
}

// Scheduler partitions a Dataset into mini-batches of a fixed size.
//
// Every pass covers each example exactly once. When m is not a multiple of
// the batch size the final batch holds the remainder; a batch size larger
// than m yields a single batch. The source Dataset is never modified.
//
// A Scheduler is not safe for concurrent use.
//
// Example:
//
//	sched, err := data.NewScheduler(train, 32, data.SchedulerOptions{})
//	if err != nil {
//	    return err
//	}
//	for batch := range sched.Batches() {
//	    // batch.X: [784, ≤32], batch.Y: [10, ≤32]
//	}
type Scheduler struct {
	ds        *Dataset
	y         *mat.Dense
	batchSize int
	opts      SchedulerOptions
	rng       *rand.Rand
}

// NewScheduler creates a Scheduler over ds.
func NewScheduler(ds *Dataset, batchSize int, opts SchedulerOptions) (*Scheduler, error) {
	if ds == nil || ds.NumExamples() == 0 {
		return nil, errors.Wrap(nn.ErrEmptyDataset, "scheduler")
	}
	if batchSize <= 0 {
		return nil, errors.Errorf("batch size must be positive, got %d", batchSize)
	}

	s := &Scheduler{
		ds:        ds,
		y:         ds.OneHot(),
		batchSize: batchSize,
		opts:      opts,
	}
	if opts.Reshuffle {
		s.rng = rand.New(rand.NewPCG(opts.Seed, opts.Seed^0xda942042e4dd58b5))
	}
	return s, nil
}

// NumBatches returns ceil(m / batchSize).
func (s *Scheduler) NumBatches() int {
	m := s.ds.NumExamples()
	return (m + s.batchSize - 1) / s.batchSize
}

// BatchSize returns the configured batch size.
func (s *Scheduler) BatchSize() int {
	return s.batchSize
}

// Batches returns one pass over the dataset.
//
// The sequence is lazy: batches are cut as they are consumed. Ranging over
// the same sequence again replays the same order; with Reshuffle enabled
// each call to Batches draws a fresh order.
func (s *Scheduler) Batches() iter.Seq[MiniBatch] {
	m := s.ds.NumExamples()
	var order []int
	if s.opts.Reshuffle {
		order = s.rng.Perm(m)
	}

	return func(yield func(MiniBatch) bool) {
		for start := 0; start < m; start += s.batchSize {
			end := min(start+s.batchSize, m)

			var b MiniBatch
			if order == nil {
				b = s.contiguous(start, end)
			} else {
				b = s.gather(order[start:end])
			}
			if !yield(b) {
				return
			}
		}
	}
}

// contiguous returns examples [start, end) as views of the dataset.
func (s *Scheduler) contiguous(start, end int) MiniBatch {
	idx := make([]int, end-start)
	for i := range idx {
		idx[i] = start + i
	}
	features, classes := s.ds.NumFeatures(), s.ds.NumClasses
	return MiniBatch{
		X:       s.ds.X.Slice(0, features, start, end).(*mat.Dense),
		Y:       s.y.Slice(0, classes, start, end).(*mat.Dense),
		Indices: idx,
	}
}

// gather copies the examples at idx into a new batch.
func (s *Scheduler) gather(idx []int) MiniBatch {
	features, classes := s.ds.NumFeatures(), s.ds.NumClasses
	x := mat.NewDense(features, len(idx), nil)
	y := mat.NewDense(classes, len(idx), nil)
	col := make([]float64, features)
	for j, src := range idx {
		x.SetCol(j, mat.Col(col, src, s.ds.X))
		y.Set(s.ds.Labels[src], j, 1)
	}
	return MiniBatch{
		X:       x,
		Y:       y,
		Indices: append([]int(nil), idx...),
	}
}
