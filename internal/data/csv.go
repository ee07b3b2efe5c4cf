package data

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/digits/internal/nn"
)

// PixelScale maps 8-bit pixel intensities to [0, 1].
const PixelScale = 1.0 / 255.0

// CSVOptions configures the CSV loaders.
type CSVOptions struct {
	NumClasses int     // Label range [0, NumClasses) (default: 10)
	MaxSamples int     // Maximum number of rows to load (0 = all)
	Scale      float64 // Multiplier applied to every feature (default: PixelScale)
	Unlabeled  bool    // Rows carry features only (Kaggle test.csv)
}

func (o CSVOptions) withDefaults() CSVOptions {
	if o.NumClasses == 0 {
		o.NumClasses = 10
	}
	if o.Scale == 0 {
		o.Scale = PixelScale
	}
	return o
}

// LoadCSV loads a labeled dataset from a Kaggle-style CSV file.
//
// CSV Format:
//
//	label,pixel0,pixel1,...,pixel783
//	5,0,0,12,...,0
//	0,0,0,0,...,0
//
// The header row is skipped. Features are multiplied by opts.Scale.
func LoadCSV(path string, opts CSVOptions) (*Dataset, error) {
	opts.Unlabeled = false
	x, labels, err := loadCSV(path, opts)
	if err != nil {
		return nil, err
	}
	return New(x, labels, opts.withDefaults().NumClasses)
}

// LoadCSVFeatures loads an unlabeled CSV file (pixel columns only) and
// returns its [features, m] matrix.
func LoadCSVFeatures(path string, opts CSVOptions) (*mat.Dense, error) {
	opts.Unlabeled = true
	x, _, err := loadCSV(path, opts)
	return x, err
}

func loadCSV(path string, opts CSVOptions) (*mat.Dense, []int, error) {
	//nolint:gosec // G304: dataset path is supplied by the user
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to open file")
	}
	defer file.Close()

	return ReadCSV(file, opts)
}

// ReadCSV parses CSV rows from r. Labels are nil when opts.Unlabeled is set.
func ReadCSV(r io.Reader, opts CSVOptions) (*mat.Dense, []int, error) {
	opts = opts.withDefaults()

	reader := csv.NewReader(r)
	reader.ReuseRecord = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil, errors.Wrap(nn.ErrEmptyDataset, "CSV file is empty")
	}
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to read CSV header")
	}

	width := len(header)
	first := 1
	if opts.Unlabeled {
		first = 0
	}
	features := width - first
	if features <= 0 {
		return nil, nil, errors.Wrapf(nn.ErrShapeMismatch, "header has %d columns", width)
	}

	var (
		pixels []float64
		labels []int
	)
	for row := 1; opts.MaxSamples == 0 || row <= opts.MaxSamples; row++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, errors.Wrapf(err, "failed to read CSV row %d", row)
		}
		if len(record) != width {
			return nil, nil, errors.Wrapf(nn.ErrShapeMismatch,
				"invalid record length at row %d: got %d, want %d", row, len(record), width)
		}

		if !opts.Unlabeled {
			label, err := strconv.Atoi(record[0])
			if err != nil {
				return nil, nil, errors.Wrapf(err, "invalid label at row %d", row)
			}
			labels = append(labels, label)
		}

		for col, field := range record[first:] {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, nil, errors.Wrapf(err, "invalid pixel at row %d, column %d", row, col+first)
			}
			pixels = append(pixels, v*opts.Scale)
		}
	}

	m := len(pixels) / features
	if m == 0 {
		return nil, nil, errors.Wrap(nn.ErrEmptyDataset, "CSV file has no rows")
	}

	// pixels is row-major [m, features]; the network wants [features, m].
	var x mat.Dense
	x.CloneFrom(mat.NewDense(m, features, pixels).T())
	return &x, labels, nil
}
