package data

import (
	"bytes"
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/digits/internal/nn"
)

const smallCSV = `label,pixel0,pixel1,pixel2
5,0,255,51
0,255,0,0
9,102,0,255
`

func TestReadCSV_Labeled(t *testing.T) {
	x, labels, err := ReadCSV(strings.NewReader(smallCSV), CSVOptions{})
	require.NoError(t, err)

	assert.Equal(t, []int{5, 0, 9}, labels)
	r, c := x.Dims()
	assert.Equal(t, 3, r)
	assert.Equal(t, 3, c)
	assert.InDeltaSlice(t, []float64{0, 1, 0.2}, mat.Col(nil, 0, x), 1e-12)
	assert.InDeltaSlice(t, []float64{0.4, 0, 1}, mat.Col(nil, 2, x), 1e-12)
}

func TestReadCSV_MaxSamples(t *testing.T) {
	x, labels, err := ReadCSV(strings.NewReader(smallCSV), CSVOptions{MaxSamples: 2, Scale: 1})
	require.NoError(t, err)
	assert.Equal(t, []int{5, 0}, labels)
	assert.Equal(t, []float64{255, 0, 0}, mat.Col(nil, 1, x))
}

func TestReadCSV_Unlabeled(t *testing.T) {
	in := "pixel0,pixel1\n255,0\n0,51\n"
	x, labels, err := ReadCSV(strings.NewReader(in), CSVOptions{Unlabeled: true})
	require.NoError(t, err)
	assert.Nil(t, labels)
	assert.InDeltaSlice(t, []float64{1, 0}, mat.Col(nil, 0, x), 1e-12)
	assert.InDeltaSlice(t, []float64{0, 0.2}, mat.Col(nil, 1, x), 1e-12)
}

func TestReadCSV_Errors(t *testing.T) {
	cases := map[string]struct {
		in   string
		kind error
	}{
		"empty":       {"", nn.ErrEmptyDataset},
		"header only": {"label,pixel0\n", nn.ErrEmptyDataset},
		"short row":   {"label,pixel0,pixel1\n1,2\n", nn.ErrShapeMismatch},
		"bad label":   {"label,pixel0\nx,2\n", nil},
		"bad pixel":   {"label,pixel0\n1,y\n", nil},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := ReadCSV(strings.NewReader(tc.in), CSVOptions{})
			require.Error(t, err)
			if tc.kind != nil {
				assert.ErrorIs(t, err, tc.kind)
			}
		})
	}
}

func TestLoadCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "train.csv")
	require.NoError(t, os.WriteFile(path, []byte(smallCSV), 0o600))

	ds, err := LoadCSV(path, CSVOptions{})
	require.NoError(t, err)
	assert.Equal(t, 3, ds.NumExamples())
	assert.Equal(t, 10, ds.NumClasses)

	// label 9 does not fit 5 classes
	_, err = LoadCSV(path, CSVOptions{NumClasses: 5})
	assert.ErrorIs(t, err, nn.ErrShapeMismatch)

	_, err = LoadCSV(filepath.Join(t.TempDir(), "missing.csv"), CSVOptions{})
	assert.Error(t, err)

	feats, err := LoadCSVFeatures(path, CSVOptions{})
	require.NoError(t, err)
	r, _ := feats.Dims()
	assert.Equal(t, 4, r, "unlabeled load keeps the first column as a feature")
}

func writeIDX(t *testing.T, dir string, images [][]byte, rows, cols int, labels []byte) (string, string) {
	t.Helper()

	var img bytes.Buffer
	for _, v := range []uint32{idxImagesMagic, uint32(len(images)), uint32(rows), uint32(cols)} {
		require.NoError(t, binary.Write(&img, binary.BigEndian, v))
	}
	for _, im := range images {
		img.Write(im)
	}

	var lbl bytes.Buffer
	for _, v := range []uint32{idxLabelsMagic, uint32(len(labels))} {
		require.NoError(t, binary.Write(&lbl, binary.BigEndian, v))
	}
	lbl.Write(labels)

	imgPath := filepath.Join(dir, "images-idx3-ubyte")
	lblPath := filepath.Join(dir, "labels-idx1-ubyte")
	require.NoError(t, os.WriteFile(imgPath, img.Bytes(), 0o600))
	require.NoError(t, os.WriteFile(lblPath, lbl.Bytes(), 0o600))
	return imgPath, lblPath
}

func TestLoadIDX(t *testing.T) {
	dir := t.TempDir()
	images := [][]byte{
		{0, 255, 51, 0},
		{255, 255, 0, 102},
		{1, 2, 3, 4},
	}
	imgPath, lblPath := writeIDX(t, dir, images, 2, 2, []byte{3, 7, 1})

	ds, err := LoadIDX(imgPath, lblPath, 0)
	require.NoError(t, err)
	assert.Equal(t, 4, ds.NumFeatures())
	assert.Equal(t, []int{3, 7, 1}, ds.Labels)
	assert.InDeltaSlice(t, []float64{0, 1, 0.2, 0}, mat.Col(nil, 0, ds.X), 1e-12)

	limited, err := LoadIDX(imgPath, lblPath, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, limited.NumExamples())
}

func TestLoadIDX_CountMismatch(t *testing.T) {
	dir := t.TempDir()
	imgPath, lblPath := writeIDX(t, dir, [][]byte{{1}, {2}}, 1, 1, []byte{0})

	_, err := LoadIDX(imgPath, lblPath, 0)
	assert.ErrorIs(t, err, nn.ErrShapeMismatch)
}

func TestReadIDX_BadMagic(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, binary.BigEndian, []uint32{1234, 1, 1, 1}))
	_, err := ReadIDXImages(&buf)
	assert.Error(t, err)

	buf.Reset()
	require.NoError(t, binary.Write(&buf, binary.BigEndian, []uint32{idxImagesMagic, 1, 1, 1}))
	_, err = ReadIDXLabels(&buf)
	assert.Error(t, err)
}

// TestReadIDX_TruncatedHugeCount declares far more entries than the stream
// carries; the readers must fail on the short read instead of sizing buffers
// from the header.
func TestReadIDX_TruncatedHugeCount(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, binary.BigEndian, []uint32{idxImagesMagic, 1<<32 - 1, 28, 28}))
	buf.Write(make([]byte, 3*28*28+5))
	_, err := ReadIDXImages(&buf)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.Contains(t, err.Error(), "image 3 of")

	buf.Reset()
	require.NoError(t, binary.Write(&buf, binary.BigEndian, []uint32{idxLabelsMagic, 1<<32 - 1}))
	buf.Write([]byte{1, 2, 3})
	_, err = ReadIDXLabels(&buf)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)

	buf.Reset()
	require.NoError(t, binary.Write(&buf, binary.BigEndian, []uint32{idxImagesMagic, 1, 1 << 16, 1 << 16}))
	_, err = ReadIDXImages(&buf)
	assert.ErrorIs(t, err, nn.ErrShapeMismatch)
}
