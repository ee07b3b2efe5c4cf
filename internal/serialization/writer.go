package serialization

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/pkg/errors"

	"github.com/born-ml/digits/internal/nn"
)

const defaultProducer = "digits"

// Save writes p to path in .born format, replacing any existing file.
func Save(path string, p *nn.ParameterSet, meta Meta) (err error) {
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
	if err := Encode(w, p, meta); err != nil {
		return err
	}
	return errors.Wrap(w.Flush(), "failed to flush file")
}

// Encode writes p to w in .born format.
func Encode(w io.Writer, p *nn.ParameterSet, meta Meta) error {
	if p == nil {
		return errors.New("encode: nil parameters")
	}

	header := Header{
		FormatVersion: FormatVersion,
		Producer:      meta.Producer,
		ModelType:     ModelTypeMLP,
		CreatedAt:     time.Now().UTC(),
		Topology:      p.Topology(),
		Metadata:      meta.Metadata,
		Training:      meta.Training,
	}
	if header.Producer == "" {
		header.Producer = defaultProducer
	}
	if header.Metadata == nil {
		header.Metadata = make(map[string]string)
	}

	// Tensor table and data section, in layer order.
	var data []byte
	for _, t := range stateDict(p) {
		rows, cols := t.m.Dims()
		offset := int64(len(data))
		data = appendFloat64s(data, t.m)
		header.Tensors = append(header.Tensors, TensorMeta{
			Name:   t.name,
			DType:  DTypeFloat64,
			Shape:  []int{rows, cols},
			Offset: offset,
			Size:   int64(len(data)) - offset,
		})
	}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return errors.Wrap(err, "failed to marshal header")
	}

	flags := uint32(0)
	if len(header.Metadata) > 0 {
		flags |= FlagHasMetadata
	}
	if header.Training != nil {
		flags |= FlagHasTraining
	}

	fixed := make([]byte, FixedHeaderSize)
	copy(fixed[0:4], MagicBytes)
	binary.LittleEndian.PutUint32(fixed[4:8], FormatVersion)
	binary.LittleEndian.PutUint32(fixed[8:12], flags)
	// 0x0C-0x0F reserved
	binary.LittleEndian.PutUint64(fixed[16:24], uint64(len(headerJSON)))
	binary.LittleEndian.PutUint64(fixed[24:32], uint64(len(data)))
	checksum := ComputeChecksum(data)
	copy(fixed[ChecksumOffset:ChecksumOffset+ChecksumSize], checksum[:])

	if _, err := w.Write(fixed); err != nil {
		return errors.Wrap(err, "failed to write fixed header")
	}
	if _, err := w.Write(headerJSON); err != nil {
		return errors.Wrap(err, "failed to write header JSON")
	}

	headerLen := int64(len(headerJSON))
	padding := alignedOffset(headerLen) - int64(FixedHeaderSize) - headerLen
	if padding > 0 {
		if _, err := w.Write(make([]byte, padding)); err != nil {
			return errors.Wrap(err, "failed to write padding")
		}
	}

	if _, err := w.Write(data); err != nil {
		return errors.Wrap(err, "failed to write tensor data")
	}
	return nil
}
