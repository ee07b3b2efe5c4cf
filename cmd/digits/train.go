package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/pkg/errors"

	"github.com/born-ml/digits/internal/config"
	"github.com/born-ml/digits/internal/eval"
	"github.com/born-ml/digits/internal/nn"
	"github.com/born-ml/digits/internal/optim"
	"github.com/born-ml/digits/internal/serialization"
	"github.com/born-ml/digits/internal/train"
)

// maxListedMismatches caps the mismatch indices printed per split.
const maxListedMismatches = 20

func runTrain(ctx context.Context, args []string, stdout io.Writer, logger *slog.Logger) error {
	fs := flag.NewFlagSet("train", flag.ContinueOnError)
	fs.SetOutput(stdout)

	configPath := fs.String("config", "", "YAML config file (defaults are used when empty)")
	csvPath := fs.String("csv", "", "Labeled CSV (label,pixel0..pixel783)")
	idxImages := fs.String("idx-images", "", "IDX image file")
	idxLabels := fs.String("idx-labels", "", "IDX label file")
	maxSamples := fs.Int("samples", 0, "Max samples to load (0 = all)")
	hidden := fs.String("hidden", "", "Hidden layer widths, comma separated (e.g. 14,14)")
	epochs := fs.Int("epochs", 0, "Number of training epochs")
	batchSize := fs.Int("batch", 0, "Mini-batch size")
	lr := fs.Float64("lr", 0, "Learning rate")
	seed := fs.Uint64("seed", 0, "Seed for initialization, shuffling and reshuffling")
	logEvery := fs.Int("log-every", 0, "Log the cost every N epochs")
	reshuffle := fs.Bool("reshuffle", false, "Reshuffle the training set every epoch")
	optimizer := fs.String("optimizer", "", "Optimizer: adam or sgd")
	out := fs.String("out", "", "Where to save the trained network (.born)")
	protoOut := fs.String("proto", "", "Also export the network as a protobuf message")
	safeOut := fs.String("safetensors", "", "Also export the network as SafeTensors")
	costsOut := fs.String("costs", "", "Write the cost history as CSV (epoch,cost)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			return err
		}
	}
	widths, err := parseWidths(*hidden)
	if err != nil {
		return errors.Wrap(err, "-hidden")
	}
	o := config.Overrides{
		TrainCSV:     *csvPath,
		IDXImages:    *idxImages,
		IDXLabels:    *idxLabels,
		MaxSamples:   *maxSamples,
		Hidden:       widths,
		Epochs:       *epochs,
		BatchSize:    *batchSize,
		LearningRate: *lr,
		LogEvery:     *logEvery,
		Optimizer:    optim.Kind(*optimizer),
		ModelPath:    *out,
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "seed":
			o.Seed = seed
		case "reshuffle":
			o.Reshuffle = reshuffle
		}
	})
	cfg.ApplyOverrides(o)
	if *protoOut != "" {
		cfg.Output.ProtoPath = *protoOut
	}
	if *safeOut != "" {
		cfg.Output.SafeTensorsPath = *safeOut
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if !cfg.HasData() {
		return errors.New("no data source: pass -csv or -idx-images/-idx-labels, or set data in -config")
	}

	topo := cfg.Topology()
	all, err := loadLabeled(cfg.Data, topo.Classes())
	if err != nil {
		return errors.Wrap(err, "load dataset")
	}
	shuffled, err := all.Shuffle(cfg.Train.Seed)
	if err != nil {
		return err
	}
	trainSet, devSet, err := shuffled.Split(cfg.Data.SplitRatio)
	if err != nil {
		return err
	}
	devSize := 0
	if devSet != nil {
		devSize = devSet.NumExamples()
	}
	logger.Info("dataset loaded", "examples", all.NumExamples(), "train", trainSet.NumExamples(), "dev", devSize)

	params, err := nn.NewParameterSet(topo, cfg.InitConfig())
	if err != nil {
		return err
	}
	opt, err := optim.New(cfg.OptimizerConfig())
	if err != nil {
		return err
	}
	trainer, err := train.New(params, opt, cfg.TrainConfig(), train.WithLogger(logger))
	if err != nil {
		return err
	}

	res, err := trainer.Run(ctx, trainSet)
	if err != nil {
		return err
	}
	if res.Stopped {
		logger.Warn("training interrupted, keeping parameters of the last finished epoch", "epochs", res.Epochs)
	}

	trainEval, err := eval.Evaluate(res.Params, trainSet)
	if err != nil {
		return err
	}
	printEval(stdout, "train", trainEval)
	if devSet != nil {
		devEval, err := eval.Evaluate(res.Params, devSet)
		if err != nil {
			return err
		}
		printEval(stdout, "dev", devEval)
	}

	return saveOutputs(cfg, res, opt, logger, *costsOut)
}

func saveOutputs(cfg *config.Config, res *train.Result, opt optim.Optimizer, logger *slog.Logger, costsPath string) error {
	meta := serialization.Meta{
		Producer: "digits " + version,
		Metadata: map[string]string{"init": string(cfg.Model.Init)},
		Training: &serialization.TrainingMeta{
			Epochs:       res.Epochs,
			Steps:        res.Steps,
			Optimizer:    string(cfg.Optimizer.Kind),
			LearningRate: opt.LR(),
			BatchSize:    cfg.Train.BatchSize,
			Seed:         cfg.Train.Seed,
		},
	}
	if n := len(res.Costs); n > 0 {
		meta.Training.FinalCost = res.Costs[n-1].Cost
	}

	if path := cfg.Output.ModelPath; path != "" {
		if err := serialization.Save(path, res.Params, meta); err != nil {
			return errors.Wrap(err, "save model")
		}
		logger.Info("model saved", "path", path)
	}
	if path := cfg.Output.ProtoPath; path != "" {
		b, err := serialization.MarshalProto(res.Params, meta.Metadata)
		if err != nil {
			return err
		}
		if err := os.WriteFile(path, b, 0o644); err != nil {
			return errors.Wrap(err, "write proto export")
		}
		logger.Info("proto export written", "path", path, "bytes", len(b))
	}
	if path := cfg.Output.SafeTensorsPath; path != "" {
		if err := serialization.SaveSafeTensors(path, res.Params, meta.Metadata); err != nil {
			return errors.Wrap(err, "write safetensors export")
		}
		logger.Info("safetensors export written", "path", path)
	}
	if costsPath != "" {
		if err := writeCosts(costsPath, res.Costs); err != nil {
			return err
		}
	}
	return nil
}

func writeCosts(path string, costs []train.EpochCost) error {
	b := []byte("epoch,cost\n")
	for _, c := range costs {
		b = strconv.AppendInt(b, int64(c.Epoch), 10)
		b = append(b, ',')
		b = strconv.AppendFloat(b, c.Cost, 'g', -1, 64)
		b = append(b, '\n')
	}
	return errors.Wrap(os.WriteFile(path, b, 0o644), "write cost history")
}

func printEval(w io.Writer, name string, r *eval.Result) {
	fmt.Fprintf(w, "%s accuracy: %.4f (%d/%d)\n", name, r.Accuracy, r.Correct(), len(r.Predictions))
	if len(r.Mismatches) == 0 {
		return
	}
	shown := firstN(r.Mismatches, maxListedMismatches)
	fmt.Fprintf(w, "%s mismatches (%d): %v", name, len(r.Mismatches), shown)
	if len(shown) < len(r.Mismatches) {
		fmt.Fprint(w, " ...")
	}
	fmt.Fprintln(w)
}
