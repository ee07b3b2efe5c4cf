// Package config holds the settings of a training run and loads them from
// YAML.
package config

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/born-ml/digits/internal/nn"
	"github.com/born-ml/digits/internal/optim"
	"github.com/born-ml/digits/internal/train"
)

// Config captures the runtime knobs for a training run.
type Config struct {
	Data      DataConfig      `yaml:"data"`
	Model     ModelConfig     `yaml:"model"`
	Train     TrainConfig     `yaml:"train"`
	Optimizer OptimizerConfig `yaml:"optimizer"`
	Output    OutputConfig    `yaml:"output"`
}

// DataConfig selects the labeled examples. Either TrainCSV or the IDX pair
// is used, not both.
type DataConfig struct {
	TrainCSV   string  `yaml:"train_csv"`
	IDXImages  string  `yaml:"idx_images"`
	IDXLabels  string  `yaml:"idx_labels"`
	MaxSamples int     `yaml:"max_samples"` // 0 = all
	SplitRatio float64 `yaml:"split_ratio"` // fraction kept for training
}

// ModelConfig describes the network.
type ModelConfig struct {
	Inputs  int           `yaml:"inputs"`
	Hidden  []int         `yaml:"hidden"`
	Classes int           `yaml:"classes"`
	Init    nn.InitScheme `yaml:"init"`
}

// TrainConfig drives the epoch loop.
type TrainConfig struct {
	Epochs      int    `yaml:"epochs"`
	BatchSize   int    `yaml:"batch_size"`
	RecordEvery int    `yaml:"record_every"`
	LogEvery    int    `yaml:"log_every"`
	Reshuffle   bool   `yaml:"reshuffle"`
	Seed        uint64 `yaml:"seed"`
}

// OptimizerConfig selects the update rule.
type OptimizerConfig struct {
	Kind         optim.Kind `yaml:"kind"`
	LearningRate float64    `yaml:"learning_rate"`
	Beta1        float64    `yaml:"beta1"`
	Beta2        float64    `yaml:"beta2"`
	Epsilon      float64    `yaml:"epsilon"`
	Momentum     float64    `yaml:"momentum"`
}

// OutputConfig names the files written after training. Empty paths are
// skipped.
type OutputConfig struct {
	ModelPath       string `yaml:"model_path"`
	ProtoPath       string `yaml:"proto_path"`
	SafeTensorsPath string `yaml:"safetensors_path"`
}

// Overrides captures CLI supplied values. Zero values and nil pointers leave
// the config unchanged; the pointer fields distinguish an explicit zero or
// false from an absent flag.
type Overrides struct {
	TrainCSV     string
	IDXImages    string
	IDXLabels    string
	MaxSamples   int
	Hidden       []int
	Epochs       int
	BatchSize    int
	LearningRate float64
	Seed         *uint64
	LogEvery     int
	Reshuffle    *bool
	Optimizer    optim.Kind
	ModelPath    string
}

// Default returns the configuration of the reference run: 784-14-14-10,
// Adam at 1e-4, 1500 epochs of batches of 32 on an 80/20 split.
func Default() *Config {
	return &Config{
		Data: DataConfig{
			SplitRatio: 0.8,
		},
		Model: ModelConfig{
			Inputs:  784,
			Hidden:  []int{14, 14},
			Classes: 10,
			Init:    nn.GlorotUniform,
		},
		Train: TrainConfig{
			Epochs:      1500,
			BatchSize:   32,
			RecordEvery: 1,
			LogEvery:    100,
			Seed:        1,
		},
		Optimizer: OptimizerConfig{
			Kind:         optim.KindAdam,
			LearningRate: optim.DefaultAdamLR,
			Beta1:        optim.DefaultAdamBeta1,
			Beta2:        optim.DefaultAdamBeta2,
			Epsilon:      optim.DefaultAdamEps,
		},
		Output: OutputConfig{
			ModelPath: "digits.born",
		},
	}
}

// Load reads a YAML file over Default and validates the result. Keys absent
// from the file keep their defaults; unknown keys are an error.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open config")
	}
	defer f.Close()

	cfg := Default()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Wrap(err, "parse config")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyOverrides updates c using any non-zero override.
func (c *Config) ApplyOverrides(o Overrides) {
	if o.TrainCSV != "" {
		c.Data.TrainCSV = o.TrainCSV
		c.Data.IDXImages, c.Data.IDXLabels = "", ""
	}
	if o.IDXImages != "" {
		c.Data.IDXImages = o.IDXImages
		c.Data.TrainCSV = ""
	}
	if o.IDXLabels != "" {
		c.Data.IDXLabels = o.IDXLabels
		c.Data.TrainCSV = ""
	}
	if o.MaxSamples > 0 {
		c.Data.MaxSamples = o.MaxSamples
	}
	if len(o.Hidden) > 0 {
		c.Model.Hidden = append([]int(nil), o.Hidden...)
	}
	if o.Epochs > 0 {
		c.Train.Epochs = o.Epochs
	}
	if o.BatchSize > 0 {
		c.Train.BatchSize = o.BatchSize
	}
	if o.LearningRate > 0 {
		c.Optimizer.LearningRate = o.LearningRate
	}
	if o.Seed != nil {
		c.Train.Seed = *o.Seed
	}
	if o.LogEvery > 0 {
		c.Train.LogEvery = o.LogEvery
	}
	if o.Reshuffle != nil {
		c.Train.Reshuffle = *o.Reshuffle
	}
	if o.Optimizer != "" {
		c.Optimizer.Kind = o.Optimizer
	}
	if o.ModelPath != "" {
		c.Output.ModelPath = o.ModelPath
	}
}

// Validate verifies the config is runnable.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if err := c.Topology().Validate(); err != nil {
		return errors.Wrap(err, "model")
	}
	switch c.Model.Init {
	case nn.GlorotUniform, nn.LeCunNormal:
	default:
		return errors.Errorf("model.init must be %q or %q (got %q)", nn.GlorotUniform, nn.LeCunNormal, c.Model.Init)
	}

	if c.Data.TrainCSV != "" && (c.Data.IDXImages != "" || c.Data.IDXLabels != "") {
		return errors.New("data: set either train_csv or idx_images/idx_labels, not both")
	}
	if (c.Data.IDXImages == "") != (c.Data.IDXLabels == "") {
		return errors.New("data: idx_images and idx_labels must be set together")
	}
	if c.Data.MaxSamples < 0 {
		return errors.Errorf("data.max_samples must be >= 0 (got %d)", c.Data.MaxSamples)
	}
	if c.Data.SplitRatio <= 0 || c.Data.SplitRatio > 1 {
		return errors.Errorf("data.split_ratio must be in (0, 1] (got %v)", c.Data.SplitRatio)
	}

	if err := c.TrainConfig().Validate(); err != nil {
		return errors.Wrap(err, "train")
	}

	o := c.Optimizer
	if o.LearningRate <= 0 {
		return errors.Errorf("optimizer.learning_rate must be > 0 (got %v)", o.LearningRate)
	}
	switch o.Kind {
	case optim.KindAdam:
		if o.Beta1 < 0 || o.Beta1 >= 1 || o.Beta2 < 0 || o.Beta2 >= 1 {
			return errors.Errorf("optimizer betas must be in [0, 1) (got %v, %v)", o.Beta1, o.Beta2)
		}
		if o.Epsilon <= 0 {
			return errors.Errorf("optimizer.epsilon must be > 0 (got %v)", o.Epsilon)
		}
	case optim.KindSGD:
		if o.Momentum < 0 || o.Momentum >= 1 {
			return errors.Errorf("optimizer.momentum must be in [0, 1) (got %v)", o.Momentum)
		}
	default:
		return errors.Errorf("optimizer.kind must be %q or %q (got %q)", optim.KindAdam, optim.KindSGD, o.Kind)
	}
	return nil
}

// HasData reports whether a training source is configured.
func (c *Config) HasData() bool {
	return c.Data.TrainCSV != "" || c.Data.IDXImages != ""
}

// Topology returns the layer widths: inputs, hidden..., classes.
func (c *Config) Topology() nn.Topology {
	t := make(nn.Topology, 0, len(c.Model.Hidden)+2)
	t = append(t, c.Model.Inputs)
	t = append(t, c.Model.Hidden...)
	return append(t, c.Model.Classes)
}

// InitConfig returns the parameter initialization settings.
func (c *Config) InitConfig() nn.InitConfig {
	return nn.InitConfig{Seed: c.Train.Seed, Scheme: c.Model.Init}
}

// OptimizerConfig returns the settings for optim.New.
func (c *Config) OptimizerConfig() optim.Config {
	return optim.Config{
		Kind:     c.Optimizer.Kind,
		LR:       c.Optimizer.LearningRate,
		Beta1:    c.Optimizer.Beta1,
		Beta2:    c.Optimizer.Beta2,
		Epsilon:  c.Optimizer.Epsilon,
		Momentum: c.Optimizer.Momentum,
	}
}

// TrainConfig returns the settings for train.New.
func (c *Config) TrainConfig() train.Config {
	return train.Config{
		LearningRate: c.Optimizer.LearningRate,
		Epochs:       c.Train.Epochs,
		BatchSize:    c.Train.BatchSize,
		RecordEvery:  c.Train.RecordEvery,
		LogEvery:     c.Train.LogEvery,
		Reshuffle:    c.Train.Reshuffle,
		Seed:         c.Train.Seed,
	}
}
