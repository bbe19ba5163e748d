package classify

import (
	"errors"
	"fmt"

	"github.com/Brownie44l1/imgclass-api/internal/fetch"
	"github.com/Brownie44l1/imgclass-api/internal/imageproc"
	"github.com/Brownie44l1/imgclass-api/internal/model"
)

const NoQualifyingResultsMessage = "No predictions above the threshold. Try lowering it."

// ValidationError reports a classification setting out of range.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + " " + e.Message
}

// UserMessage converts a pipeline error into the text shown to the user.
func UserMessage(err error) string {
	var (
		fetchErr      *fetch.FetchError
		decodeErr     *imageproc.DecodeError
		inferenceErr  *model.InferenceError
		validationErr *ValidationError
	)
	switch {
	case errors.As(err, &fetchErr):
		return fmt.Sprintf("Failed to load from URL: %s", fetchErr.URL)
	case errors.Is(err, imageproc.ErrImageTooLarge):
		return "Image is too large to process"
	case errors.As(err, &decodeErr):
		return "Could not read image"
	case errors.As(err, &inferenceErr):
		return "Classification failed"
	case errors.As(err, &validationErr):
		return "Invalid setting: " + validationErr.Error()
	default:
		return "Something went wrong"
	}
}
