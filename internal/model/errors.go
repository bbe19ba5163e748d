package model

import "errors"

var (
	ErrShapeMismatch = errors.New("input tensor shape mismatch")
	ErrClosed        = errors.New("classifier closed")
)

// InferenceError reports a failed forward pass. It is never retried:
// the same input would fail the same way.
type InferenceError struct {
	Err error
}

func (e *InferenceError) Error() string {
	return "inference failed: " + e.Err.Error()
}

func (e *InferenceError) Unwrap() error {
	return e.Err
}
