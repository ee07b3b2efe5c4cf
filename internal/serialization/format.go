package serialization

import (
	"time"
)

// Format constants.
const (
	MagicBytes      = "BORN"
	FormatVersion   = 2    // v2: fixed header with SHA-256 checksum
	HeaderAlignment = 64   // Tensor data starts on a 64-byte boundary
	FixedHeaderSize = 64   // Fixed header size (0x40 bytes)
	ChecksumSize    = 32   // SHA-256 checksum size
	ChecksumOffset  = 0x20 // Checksum offset in the fixed header
	ModelTypeMLP    = "mlp"
	DTypeFloat64    = "float64"
	float64Size     = 8
)

// Flags for the .born format.
const (
	FlagHasTraining uint32 = 1 << 1 // bit 1: training summary included
	FlagHasMetadata uint32 = 1 << 2 // bit 2: custom metadata included
)

// Header represents the JSON header in a .born file.
type Header struct {
	FormatVersion int               `json:"format_version"`     // Version of the .born format
	Producer      string            `json:"producer"`           // Program that wrote the file
	ModelType     string            `json:"model_type"`         // Always "mlp"
	CreatedAt     time.Time         `json:"created_at"`         // When the file was created
	Topology      []int             `json:"topology"`           // Layer widths, input first
	Tensors       []TensorMeta      `json:"tensors"`            // Tensor table, in layer order
	Metadata      map[string]string `json:"metadata"`           // Custom metadata
	Training      *TrainingMeta     `json:"training,omitempty"` // Training summary (optional)
}

// TrainingMeta records how the saved parameters were produced.
type TrainingMeta struct {
	Epochs       int     `json:"epochs"`
	Steps        int     `json:"steps"`
	FinalCost    float64 `json:"final_cost"`
	Optimizer    string  `json:"optimizer"`
	LearningRate float64 `json:"learning_rate"`
	BatchSize    int     `json:"batch_size"`
	Seed         uint64  `json:"seed"`
}

// TensorMeta describes a tensor in the .born file.
type TensorMeta struct {
	Name   string `json:"name"`   // e.g. "layer.1.weight"
	DType  string `json:"dtype"`  // Always "float64"
	Shape  []int  `json:"shape"`  // [rows, cols]
	Offset int64  `json:"offset"` // Bytes from the start of the data section
	Size   int64  `json:"size"`   // Size in bytes
}

// Meta is the caller-supplied part of a header.
type Meta struct {
	Producer string
	Metadata map[string]string
	Training *TrainingMeta
}

// alignedOffset returns the data offset following a header of n bytes.
func alignedOffset(n int64) int64 {
	pos := int64(FixedHeaderSize) + n
	return pos + (HeaderAlignment-pos%HeaderAlignment)%HeaderAlignment
}
