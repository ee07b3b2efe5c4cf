// Package train drives mini-batch training of a ParameterSet.
package train

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/pkg/errors"

	"github.com/born-ml/digits/internal/data"
	"github.com/born-ml/digits/internal/nn"
	"github.com/born-ml/digits/internal/optim"
)

// State is the lifecycle stage of a Trainer.
type State int

// Trainer states. A Trainer moves Uninitialized → Running → Completed, or
// to Failed when a run aborts.
const (
	Uninitialized State = iota
	Running
	Completed
	Failed
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Running:
		return "running"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Config holds the loop settings of a training run.
type Config struct {
	LearningRate float64 // Overrides the optimizer's rate when > 0
	Epochs       int     // Full passes over the training set (0 = no training)
	BatchSize    int     // Examples per update
	RecordEvery  int     // Append the epoch cost every N epochs (default: 1)
	LogEvery     int     // Log progress every N epochs (0 = never)
	Reshuffle    bool    // Draw a new example order every epoch
	Seed         uint64  // Seed for Reshuffle
}

// Validate reports settings the loop cannot run with.
func (c Config) Validate() error {
	if c.Epochs < 0 {
		return errors.Errorf("epochs must be >= 0 (got %d)", c.Epochs)
	}
	if c.BatchSize <= 0 {
		return errors.Errorf("batch size must be > 0 (got %d)", c.BatchSize)
	}
	if c.RecordEvery < 0 || c.LogEvery < 0 {
		return errors.Errorf("record/log intervals must be >= 0 (got %d/%d)", c.RecordEvery, c.LogEvery)
	}
	if c.LearningRate < 0 {
		return errors.Errorf("learning rate must be >= 0 (got %v)", c.LearningRate)
	}
	return nil
}

// EpochCost is one entry of the cost history.
type EpochCost struct {
	Epoch   int           // 1-based epoch number
	Cost    float64       // example-weighted mean of the batch costs
	Elapsed time.Duration // wall time of the epoch
}

// Result is what a completed run hands back.
type Result struct {
	Params  *nn.ParameterSet // trained parameters (the set passed to New)
	Costs   []EpochCost      // recorded epoch costs, in epoch order
	Epochs  int              // epochs actually run
	Steps   int              // optimizer updates applied
	Stopped bool             // the context ended the run before Config.Epochs
	Elapsed time.Duration
}

// CostValues returns the recorded costs without epoch numbers.
func (r *Result) CostValues() []float64 {
	out := make([]float64, len(r.Costs))
	for i, c := range r.Costs {
		out[i] = c.Cost
	}
	return out
}

// Reporter receives every recorded epoch cost as it is produced.
type Reporter interface {
	ReportEpoch(EpochCost)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(EpochCost)

// ReportEpoch calls f(c).
func (f ReporterFunc) ReportEpoch(c EpochCost) { f(c) }

// Option customizes a Trainer.
type Option func(*Trainer)

// WithLogger sets the logger used for progress lines.
func WithLogger(l *slog.Logger) Option {
	return func(t *Trainer) {
		if l != nil {
			t.logger = l
		}
	}
}

// WithReporter registers a sink for recorded epoch costs.
func WithReporter(r Reporter) Option {
	return func(t *Trainer) { t.reporter = r }
}

// Trainer runs the epoch / mini-batch loop for one ParameterSet and one
// Optimizer. Neither may be shared with another Trainer while it runs.
//
// Example:
//
//	params, _ := nn.NewParameterSet(nn.DefaultTopology(), nn.InitConfig{Seed: 1})
//	trainer, err := train.New(params, optim.NewAdam(optim.AdamConfig{}), train.Config{
//	    Epochs:    1500,
//	    BatchSize: 32,
//	})
//	if err != nil {
//	    return err
//	}
//	res, err := trainer.Run(ctx, trainSet)
type Trainer struct {
	cfg      Config
	params   *nn.ParameterSet
	opt      optim.Optimizer
	logger   *slog.Logger
	reporter Reporter
	state    State
}

// New creates a Trainer in the Uninitialized state.
func New(params *nn.ParameterSet, opt optim.Optimizer, cfg Config, opts ...Option) (*Trainer, error) {
	if params == nil {
		return nil, errors.New("trainer: nil parameters")
	}
	if opt == nil {
		return nil, errors.New("trainer: nil optimizer")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "trainer")
	}
	if cfg.RecordEvery == 0 {
		cfg.RecordEvery = 1
	}

	t := &Trainer{
		cfg:    cfg,
		params: params,
		opt:    opt,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, o := range opts {
		o(t)
	}
	return t, nil
}

// State returns the current lifecycle state.
func (t *Trainer) State() State {
	return t.state
}

// Run trains on ds for Config.Epochs epochs.
//
// ctx is checked between epochs only; when it is done the run ends early
// with Result.Stopped set and no error. A non-finite batch cost aborts the
// run with nn.ErrNumericDivergence. A Trainer runs at most once.
func (t *Trainer) Run(ctx context.Context, ds *data.Dataset) (*Result, error) {
	if t.state != Uninitialized {
		return nil, errors.Errorf("trainer: cannot run from state %s", t.state)
	}
	if err := t.checkDataset(ds); err != nil {
		t.state = Failed
		return nil, err
	}

	sched, err := data.NewScheduler(ds, t.cfg.BatchSize, data.SchedulerOptions{
		Reshuffle: t.cfg.Reshuffle,
		Seed:      t.cfg.Seed,
	})
	if err != nil {
		t.state = Failed
		return nil, err
	}

	if t.cfg.LearningRate > 0 {
		t.opt.SetLR(t.cfg.LearningRate)
	}

	t.state = Running
	t.logger.Info("training started",
		"examples", ds.NumExamples(),
		"batches", sched.NumBatches(),
		"epochs", t.cfg.Epochs,
		"lr", t.opt.LR(),
		"params", t.params.NumParams(),
	)

	res := &Result{Params: t.params, Costs: []EpochCost{}}
	start := time.Now()
	m := float64(ds.NumExamples())

	for epoch := 1; epoch <= t.cfg.Epochs; epoch++ {
		if ctx.Err() != nil {
			res.Stopped = true
			t.logger.Info("training stopped", "epoch", epoch-1, "reason", context.Cause(ctx))
			break
		}

		epochStart := time.Now()
		epochCost := 0.0
		for batch := range sched.Batches() {
			cost, err := t.step(batch)
			if err != nil {
				t.state = Failed
				return nil, errors.Wrapf(err, "epoch %d", epoch)
			}
			epochCost += cost * float64(batch.Size()) / m
			res.Steps++
		}
		res.Epochs = epoch

		entry := EpochCost{Epoch: epoch, Cost: epochCost, Elapsed: time.Since(epochStart)}
		if epoch%t.cfg.RecordEvery == 0 {
			res.Costs = append(res.Costs, entry)
			if t.reporter != nil {
				t.reporter.ReportEpoch(entry)
			}
		}
		if t.cfg.LogEvery > 0 && epoch%t.cfg.LogEvery == 0 {
			t.logger.Info("epoch done",
				"epoch", epoch,
				"cost", entry.Cost,
				"elapsed", entry.Elapsed,
			)
		}
	}

	res.Elapsed = time.Since(start)
	t.state = Completed
	t.logger.Info("training complete", "epochs", res.Epochs, "steps", res.Steps, "elapsed", res.Elapsed)
	return res, nil
}

// step applies one mini-batch update and returns the batch cost.
func (t *Trainer) step(batch data.MiniBatch) (float64, error) {
	cost, grads, err := nn.Backward(t.params, batch.X, batch.Y)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(cost) || math.IsInf(cost, 0) {
		return 0, errors.Wrapf(nn.ErrNumericDivergence, "batch cost %v at step %d", cost, t.opt.Timestep()+1)
	}
	if err := t.opt.Step(t.params, grads); err != nil {
		return 0, err
	}
	return cost, nil
}

func (t *Trainer) checkDataset(ds *data.Dataset) error {
	if ds == nil || ds.NumExamples() == 0 {
		return errors.Wrap(nn.ErrEmptyDataset, "training set")
	}
	topo := t.params.Topology()
	if ds.NumFeatures() != topo.Inputs() {
		return errors.Wrapf(nn.ErrShapeMismatch,
			"training set has %d features, network expects %d", ds.NumFeatures(), topo.Inputs())
	}
	if ds.NumClasses != topo.Classes() {
		return errors.Wrapf(nn.ErrShapeMismatch,
			"training set has %d classes, network predicts %d", ds.NumClasses, topo.Classes())
	}
	return nil
}
