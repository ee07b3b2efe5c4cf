package data

import (
	"bytes"
	"encoding/binary"
	"io"
	"os"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/digits/internal/nn"
)

// IDX magic numbers.
const (
	idxImagesMagic = 2051
	idxLabelsMagic = 2049
)

// maxIDXImageSize bounds the pixels per image read from an IDX header.
const maxIDXImageSize = 1 << 24

// LoadIDX loads the official MNIST IDX image and label files.
//
// Pixels are scaled to [0, 1]. maxSamples limits the number of examples
// (0 = all).
func LoadIDX(imagesPath, labelsPath string, maxSamples int) (*Dataset, error) {
	images, err := readIDXFile(imagesPath, ReadIDXImages)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load images")
	}
	labels, err := readIDXFile(labelsPath, ReadIDXLabels)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load labels")
	}

	features, m := images.Dims()
	if m != len(labels) {
		return nil, errors.Wrapf(nn.ErrShapeMismatch, "image count (%d) != label count (%d)", m, len(labels))
	}
	if maxSamples > 0 && m > maxSamples {
		images = images.Slice(0, features, 0, maxSamples).(*mat.Dense)
		labels = labels[:maxSamples]
	}
	return New(images, labels, 10)
}

func readIDXFile[T any](path string, read func(io.Reader) (T, error)) (T, error) {
	var zero T
	//nolint:gosec // G304: dataset path is supplied by the user
	file, err := os.Open(path)
	if err != nil {
		return zero, err
	}
	defer file.Close()
	return read(file)
}

// ReadIDXImages reads an MNIST image file in IDX format.
//
// IDX file format for images:
//
//	magic number: 0x00000803 (2051)
//	number of images: 4 bytes
//	number of rows: 4 bytes (28)
//	number of cols: 4 bytes (28)
//	pixel data: unsigned bytes (0-255)
//
// Returns a [rows*cols, images] matrix scaled to [0, 1].
func ReadIDXImages(r io.Reader) (*mat.Dense, error) {
	var hdr struct {
		Magic, Count, Rows, Cols uint32
	}
	if err := binary.Read(r, binary.BigEndian, &hdr); err != nil {
		return nil, errors.Wrap(err, "failed to read header")
	}
	if hdr.Magic != idxImagesMagic {
		return nil, errors.Errorf("invalid magic number: got %d, want %d", hdr.Magic, idxImagesMagic)
	}
	if hdr.Count == 0 {
		return nil, errors.Wrap(nn.ErrEmptyDataset, "IDX file has no images")
	}

	pixels := uint64(hdr.Rows) * uint64(hdr.Cols)
	if pixels == 0 || pixels > maxIDXImageSize {
		return nil, errors.Wrapf(nn.ErrShapeMismatch, "IDX images are %dx%d pixels", hdr.Rows, hdr.Cols)
	}
	imageSize, count := int(pixels), int(hdr.Count)

	// The header count is untrusted; buffer what the file really holds
	// before sizing the matrix.
	raw, err := readExactly(r, int64(count)*int64(imageSize))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read image %d of %d", len(raw)/imageSize, count)
	}

	x := mat.NewDense(imageSize, count, nil)
	col := make([]float64, imageSize)
	for j := 0; j < count; j++ {
		for i, b := range raw[j*imageSize : (j+1)*imageSize] {
			col[i] = float64(b) * PixelScale
		}
		x.SetCol(j, col)
	}
	return x, nil
}

// ReadIDXLabels reads an MNIST label file in IDX format.
//
// IDX file format for labels:
//
//	magic number: 0x00000801 (2049)
//	number of labels: 4 bytes
//	label data: unsigned bytes (0-9)
func ReadIDXLabels(r io.Reader) ([]int, error) {
	var hdr struct {
		Magic, Count uint32
	}
	if err := binary.Read(r, binary.BigEndian, &hdr); err != nil {
		return nil, errors.Wrap(err, "failed to read header")
	}
	if hdr.Magic != idxLabelsMagic {
		return nil, errors.Errorf("invalid magic number: got %d, want %d", hdr.Magic, idxLabelsMagic)
	}

	raw, err := readExactly(r, int64(hdr.Count))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read labels: got %d of %d", len(raw), hdr.Count)
	}

	labels := make([]int, len(raw))
	for i, b := range raw {
		labels[i] = int(b)
	}
	return labels, nil
}

// readExactly reads n bytes from r, growing its buffer only as data arrives.
// It returns what it got and io.ErrUnexpectedEOF when r ends early.
func readExactly(r io.Reader, n int64) ([]byte, error) {
	var buf bytes.Buffer
	got, err := buf.ReadFrom(io.LimitReader(r, n))
	if err != nil {
		return buf.Bytes(), err
	}
	if got < n {
		return buf.Bytes(), io.ErrUnexpectedEOF
	}
	return buf.Bytes(), nil
}
