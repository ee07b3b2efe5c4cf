package serialization

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/born-ml/digits/internal/nn"
)

// SafeTensorHeader represents a tensor in the SafeTensors header.
type SafeTensorHeader struct {
	DType       string   `json:"dtype"`
	Shape       []int64  `json:"shape"`
	DataOffsets [2]int64 `json:"data_offsets"`
}

// SaveSafeTensors writes p to path in SafeTensors format.
func SaveSafeTensors(path string, p *nn.ParameterSet, metadata map[string]string) (err error) {
	//nolint:gosec // G304: File path comes from user input, which is expected for model saving
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "failed to create file")
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = errors.Wrap(cerr, "failed to close file")
		}
	}()

	w := bufio.NewWriter(file)
	if err := WriteSafeTensors(w, p, metadata); err != nil {
		return err
	}
	return errors.Wrap(w.Flush(), "failed to flush file")
}

// WriteSafeTensors writes p to w in SafeTensors format.
//
// Format:
// [8 bytes: header_size (uint64 LE)]
// [header_size bytes: JSON header]
// [tensor data: F64 little-endian, row-major]
//
// Tensors are written in layer order; readers locate them through the
// data_offsets of the header, so the order carries no meaning.
func WriteSafeTensors(w io.Writer, p *nn.ParameterSet, metadata map[string]string) error {
	if p == nil {
		return errors.New("safetensors: nil parameters")
	}

	header := make(map[string]any)
	if len(metadata) > 0 {
		header["__metadata__"] = metadata
	}

	var data []byte
	for _, t := range stateDict(p) {
		rows, cols := t.m.Dims()
		start := int64(len(data))
		data = appendFloat64s(data, t.m)
		header[t.name] = SafeTensorHeader{
			DType:       "F64",
			Shape:       []int64{int64(rows), int64(cols)},
			DataOffsets: [2]int64{start, int64(len(data))},
		}
	}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return errors.Wrap(err, "failed to marshal header")
	}

	if err := binary.Write(w, binary.LittleEndian, uint64(len(headerJSON))); err != nil {
		return errors.Wrap(err, "failed to write header size")
	}
	if _, err := w.Write(headerJSON); err != nil {
		return errors.Wrap(err, "failed to write header")
	}
	if _, err := w.Write(data); err != nil {
		return errors.Wrap(err, "failed to write tensor data")
	}
	return nil
}
