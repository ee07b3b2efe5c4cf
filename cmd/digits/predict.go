package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/born-ml/digits/internal/data"
	"github.com/born-ml/digits/internal/eval"
	"github.com/born-ml/digits/internal/serialization"
)

func runPredict(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("predict", flag.ContinueOnError)
	fs.SetOutput(stdout)

	modelPath := fs.String("model", "digits.born", "Saved network (.born)")
	csvPath := fs.String("csv", "", "Unlabeled CSV (pixel0..pixel783)")
	out := fs.String("out", "", "Submission file (ImageId,Label); stdout when empty")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *csvPath == "" {
		return errors.New("predict: -csv is required")
	}

	model, err := serialization.Load(*modelPath)
	if err != nil {
		return err
	}
	x, err := data.LoadCSVFeatures(*csvPath, data.CSVOptions{})
	if err != nil {
		return errors.Wrap(err, "load features")
	}
	preds, err := eval.Predict(model.Params, x)
	if err != nil {
		return err
	}

	if *out == "" {
		return writeSubmission(stdout, preds)
	}
	f, err := os.Create(*out)
	if err != nil {
		return errors.Wrap(err, "create submission")
	}
	defer f.Close()
	if err := writeSubmission(f, preds); err != nil {
		return err
	}
	return errors.Wrap(f.Close(), "close submission")
}

// writeSubmission writes Kaggle's ImageId,Label format with 1-based ids.
func writeSubmission(w io.Writer, preds []int) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "ImageId,Label")
	for i, p := range preds {
		fmt.Fprintf(bw, "%d,%d\n", i+1, p)
	}
	return errors.Wrap(bw.Flush(), "write submission")
}
