package main

import (
	"flag"
	"fmt"
	"io"

	"github.com/pkg/errors"

	"github.com/born-ml/digits/internal/config"
	"github.com/born-ml/digits/internal/eval"
	"github.com/born-ml/digits/internal/serialization"
)

func runEval(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("eval", flag.ContinueOnError)
	fs.SetOutput(stdout)

	modelPath := fs.String("model", "digits.born", "Saved network (.born)")
	csvPath := fs.String("csv", "", "Labeled CSV")
	idxImages := fs.String("idx-images", "", "IDX image file")
	idxLabels := fs.String("idx-labels", "", "IDX label file")
	maxSamples := fs.Int("samples", 0, "Max samples to load (0 = all)")
	confusion := fs.Bool("confusion", false, "Print the confusion matrix")
	if err := fs.Parse(args); err != nil {
		return err
	}

	model, err := serialization.Load(*modelPath)
	if err != nil {
		return err
	}
	topo := model.Params.Topology()

	ds, err := loadLabeled(config.DataConfig{
		TrainCSV:   *csvPath,
		IDXImages:  *idxImages,
		IDXLabels:  *idxLabels,
		MaxSamples: *maxSamples,
	}, topo.Classes())
	if err != nil {
		return errors.Wrap(err, "load dataset")
	}

	res, err := eval.Evaluate(model.Params, ds)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "model: %s topology %v\n", *modelPath, []int(topo))
	printEval(stdout, "eval", res)

	if *confusion {
		printConfusion(stdout, res)
	}
	return nil
}

// printConfusion prints one row per true class, one column per prediction.
func printConfusion(w io.Writer, r *eval.Result) {
	classes, _ := r.Confusion.Dims()
	fmt.Fprint(w, "true\\pred")
	for j := 0; j < classes; j++ {
		fmt.Fprintf(w, "%7d", j)
	}
	fmt.Fprintln(w)
	for i := 0; i < classes; i++ {
		fmt.Fprintf(w, "%9d", i)
		for j := 0; j < classes; j++ {
			fmt.Fprintf(w, "%7d", int(r.Confusion.At(i, j)))
		}
		fmt.Fprintln(w)
	}
}
