// Package serialization saves and loads trained network parameters.
//
// The native .born container (format version 2) is laid out as:
//
//	Fixed header (64 bytes):
//	  0x00  [4 bytes]  Magic "BORN"
//	  0x04  [4 bytes]  Version (uint32 LE, 2)
//	  0x08  [4 bytes]  Flags (uint32 LE)
//	  0x0C  [4 bytes]  Reserved
//	  0x10  [8 bytes]  Header size (uint64 LE)
//	  0x18  [8 bytes]  Data size (uint64 LE)
//	  0x20  [32 bytes] SHA-256 of the data section
//	[Header: JSON metadata, topology and tensor table]
//	[Padding to a 64-byte boundary]
//	[Tensor data: little-endian float64, row-major]
//
// Each layer i contributes two tensors, "layer.<i>.weight" with shape
// [widths[i], widths[i-1]] and "layer.<i>.bias" with shape [widths[i], 1].
//
// Two export formats sit next to it: SafeTensors (WriteSafeTensors) and a
// protobuf wire message (MarshalProto / UnmarshalProto).
//
// Example usage:
//
//	// Save trained parameters
//	if err := serialization.Save("digits.born", params, serialization.Meta{}); err != nil {
//	    log.Fatal(err)
//	}
//
//	// Load them back
//	model, err := serialization.Load("digits.born")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	preds, err := eval.Predict(model.Params, x)
package serialization
