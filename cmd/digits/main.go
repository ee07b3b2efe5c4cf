// Package main provides the digits CLI: train, evaluate and run a small
// fully connected network on MNIST-style handwritten digits.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"

	"github.com/born-ml/digits/internal/parallel"
)

const version = "v0.1.0-dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	if err := run(ctx, os.Args[1:], os.Stdout, logger); err != nil && !errors.Is(err, flag.ErrHelp) {
		logger.Error("command failed", "err", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer, logger *slog.Logger) error {
	if len(args) == 0 {
		usage(stdout)
		return nil
	}

	switch args[0] {
	case "train":
		return runTrain(ctx, args[1:], stdout, logger)
	case "eval":
		return runEval(args[1:], stdout)
	case "predict":
		return runPredict(args[1:], stdout)
	case "version":
		fmt.Fprintf(stdout, "digits %s (%s)\n", version, parallel.CPUBrand())
		return nil
	case "help", "-h", "--help":
		usage(stdout)
		return nil
	default:
		usage(stdout)
		return errors.Errorf("unknown command %q", args[0])
	}
}

func usage(w io.Writer) {
	fmt.Fprintf(w, "digits %s - MNIST digit classifier\n\n", version)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  train      Train a network on a labeled CSV or IDX set")
	fmt.Fprintln(w, "  eval       Score a saved network on a labeled set")
	fmt.Fprintln(w, "  predict    Label an unlabeled CSV with a saved network")
	fmt.Fprintln(w, "  version    Show version")
	fmt.Fprintln(w, "\nRun 'digits <command> -h' for the flags of a command.")
}
