package serialization

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"encoding/json"
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/born-ml/digits/internal/nn"
)

// Model is a decoded .born file.
type Model struct {
	Header Header
	Flags  uint32
	Params *nn.ParameterSet
}

// ReaderOptions configures decoding.
type ReaderOptions struct {
	SkipChecksumValidation bool            // Skip checksum validation (faster but less safe)
	ValidationLevel        ValidationLevel // Validation strictness level
}

// Load reads a .born file with strict validation.
func Load(path string) (*Model, error) {
	return LoadWithOptions(path, ReaderOptions{ValidationLevel: ValidationStrict})
}

// LoadWithOptions reads a .born file with custom options.
func LoadWithOptions(path string, opts ReaderOptions) (*Model, error) {
	//nolint:gosec // G304: File path comes from user input, which is expected for model loading
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open file")
	}
	defer func() { _ = file.Close() }()

	m, err := Decode(bufio.NewReader(file), opts)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", path)
	}
	return m, nil
}

// Decode reads one .born container from r.
func Decode(r io.Reader, opts ReaderOptions) (*Model, error) {
	fixed := make([]byte, FixedHeaderSize)
	if _, err := io.ReadFull(r, fixed); err != nil {
		return nil, errors.Wrap(err, "failed to read fixed header")
	}
	if string(fixed[0:4]) != MagicBytes {
		return nil, ErrInvalidMagic
	}
	if v := binary.LittleEndian.Uint32(fixed[4:8]); v != FormatVersion {
		return nil, errors.Wrapf(ErrUnsupportedVersion, "got %d, expected %d", v, FormatVersion)
	}
	flags := binary.LittleEndian.Uint32(fixed[8:12])
	headerSize := binary.LittleEndian.Uint64(fixed[16:24])
	dataSize := binary.LittleEndian.Uint64(fixed[24:32])
	var stored [ChecksumSize]byte
	copy(stored[:], fixed[ChecksumOffset:ChecksumOffset+ChecksumSize])

	if headerSize > MaxHeaderSize {
		return nil, ErrHeaderTooLarge
	}
	if dataSize > MaxDataSize {
		return nil, ErrDataTooLarge
	}

	headerBytes := make([]byte, headerSize)
	if _, err := io.ReadFull(r, headerBytes); err != nil {
		return nil, errors.Wrap(err, "failed to read header JSON")
	}
	var header Header
	dec := json.NewDecoder(bytes.NewReader(headerBytes))
	if err := dec.Decode(&header); err != nil {
		return nil, errors.Wrap(err, "failed to parse header JSON")
	}

	//nolint:gosec // G115: headerSize is bounded by MaxHeaderSize
	headerLen := int64(headerSize)
	padding := alignedOffset(headerLen) - int64(FixedHeaderSize) - headerLen
	if _, err := io.CopyN(io.Discard, r, padding); err != nil {
		return nil, errors.Wrap(err, "failed to read padding")
	}

	data := make([]byte, dataSize)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, errors.Wrap(err, "failed to read tensor data")
	}
	if !opts.SkipChecksumValidation {
		if err := ValidateChecksum(ComputeChecksum(data), stored); err != nil {
			return nil, err
		}
	}

	//nolint:gosec // G115: dataSize is bounded by MaxDataSize
	if err := ValidateHeader(&header, int64(dataSize), opts.ValidationLevel); err != nil {
		return nil, errors.Wrap(err, "validation failed")
	}

	params, err := buildParams(&header, data)
	if err != nil {
		return nil, err
	}
	return &Model{Header: header, Flags: flags, Params: params}, nil
}

// buildParams allocates a ParameterSet for the header's topology and fills it
// from the data section.
func buildParams(h *Header, data []byte) (*nn.ParameterSet, error) {
	if h.ModelType != ModelTypeMLP {
		return nil, errors.Errorf("unsupported model type %q", h.ModelType)
	}
	if err := checkTensorSizes(h, int64(len(data))); err != nil {
		return nil, err
	}
	params, err := nn.NewZeroParameterSet(nn.Topology(h.Topology))
	if err != nil {
		return nil, errors.Wrap(err, "stored topology")
	}

	targets := tensorTarget(params)
	for _, meta := range h.Tensors {
		dst, ok := targets[meta.Name]
		if !ok {
			return nil, errors.Wrapf(nn.ErrShapeMismatch, "unexpected tensor %s", meta.Name)
		}
		if meta.DType != DTypeFloat64 {
			return nil, errors.Wrapf(ErrUnsupportedDType, "tensor %s: %s", meta.Name, meta.DType)
		}
		if err := checkShape(meta.Name, meta.Shape, dst); err != nil {
			return nil, err
		}
		if meta.Offset < 0 || meta.Size < 0 || meta.Offset+meta.Size > int64(len(data)) {
			return nil, &ValidationError{Type: "out_of_bounds", Tensor: meta.Name, Details: "tensor outside data section"}
		}
		if err := fillFloat64s(dst, data[meta.Offset:meta.Offset+meta.Size]); err != nil {
			return nil, errors.Wrapf(err, "tensor %s", meta.Name)
		}
		delete(targets, meta.Name)
	}

	for name := range targets {
		return nil, errors.Wrap(ErrMissingTensor, name)
	}
	return params, nil
}

// checkTensorSizes matches the stored topology against the tensor table and
// the data section before any parameter memory is allocated.
func checkTensorSizes(h *Header, dataLen int64) error {
	sizes, err := layerSizes(nn.Topology(h.Topology), dataLen/float64Size)
	if err != nil {
		return errors.Wrap(err, "stored topology")
	}
	stored := make(map[string]int64, len(h.Tensors))
	for _, meta := range h.Tensors {
		stored[meta.Name] = meta.Size
	}
	for i, s := range sizes {
		want := []struct {
			name string
			n    int64
		}{{WeightName(i + 1), s.weight}, {BiasName(i + 1), s.bias}}
		for _, w := range want {
			size, ok := stored[w.name]
			if !ok {
				return errors.Wrap(ErrMissingTensor, w.name)
			}
			if size != w.n*float64Size {
				return errors.Wrapf(nn.ErrShapeMismatch, "tensor %s holds %d bytes, topology needs %d", w.name, size, w.n*float64Size)
			}
		}
	}
	return nil
}
