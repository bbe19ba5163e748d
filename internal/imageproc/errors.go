package imageproc

import "errors"

var (
	ErrEmptyImage    = errors.New("empty image data")
	ErrImageTooLarge = errors.New("image has too many pixels")
)

// DecodeError reports bytes that could not be interpreted as an image.
type DecodeError struct {
	Source string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Source != "" {
		return "decode image " + e.Source + ": " + e.Err.Error()
	}
	return "decode image: " + e.Err.Error()
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
