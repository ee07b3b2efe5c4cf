package main

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/born-ml/digits/internal/config"
	"github.com/born-ml/digits/internal/data"
)

// loadLabeled reads the training source named by c.
func loadLabeled(c config.DataConfig, classes int) (*data.Dataset, error) {
	switch {
	case c.TrainCSV != "":
		return data.LoadCSV(c.TrainCSV, data.CSVOptions{NumClasses: classes, MaxSamples: c.MaxSamples})
	case c.IDXImages != "":
		ds, err := data.LoadIDX(c.IDXImages, c.IDXLabels, c.MaxSamples)
		if err != nil {
			return nil, err
		}
		if ds.NumClasses != classes {
			return nil, errors.Errorf("IDX sets have %d classes, network predicts %d", ds.NumClasses, classes)
		}
		return ds, nil
	default:
		return nil, errors.New("no data source: pass -csv or -idx-images/-idx-labels")
	}
}

// parseWidths parses a comma separated list of layer widths ("14,14").
func parseWidths(s string) ([]int, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		w, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, errors.Wrapf(err, "width %q", p)
		}
		if w <= 0 {
			return nil, errors.Errorf("width must be positive (got %d)", w)
		}
		out = append(out, w)
	}
	return out, nil
}

// firstN returns at most n leading elements of s.
func firstN(s []int, n int) []int {
	if len(s) > n {
		return s[:n]
	}
	return s
}
