package nn

import "errors"

// Error kinds surfaced by the training and evaluation pipeline.
//
// Every failure that reaches a caller of the trainer or evaluator wraps one of
// these, so callers can branch with errors.Is regardless of the context added
// along the way.
var (
	ErrInvalidTopology   = errors.New("invalid topology")
	ErrShapeMismatch     = errors.New("shape mismatch")
	ErrNumericDivergence = errors.New("numeric divergence")
	ErrEmptyDataset      = errors.New("empty dataset")
)
