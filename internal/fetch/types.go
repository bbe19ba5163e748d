package fetch

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrEmptyBody  = errors.New("empty response body")
	ErrTooLarge   = errors.New("response body too large")
	ErrInvalidURL = errors.New("invalid image URL")
	ErrBadStatus  = errors.New("unexpected status")
)

// Image is raw image bytes together with where they came from.
type Image struct {
	Data        []byte
	Source      string
	ContentType string
}

// FromUpload wraps uploaded file bytes.
func FromUpload(name string, data []byte) *Image {
	return &Image{Data: data, Source: name}
}

type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Image, error)
}

// FetchError reports a URL that could not be retrieved.
type FetchError struct {
	URL    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: status %d: %v", e.URL, e.Status, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
