package handlers

import (
	"errors"
	"net/http"

	"github.com/Brownie44l1/imgclass-api/internal/classify"
	"github.com/Brownie44l1/imgclass-api/internal/fetch"
	"github.com/Brownie44l1/imgclass-api/internal/imageproc"
	"github.com/Brownie44l1/imgclass-api/internal/model"
	"github.com/Brownie44l1/imgclass-api/internal/session"
	"github.com/Brownie44l1/imgclass-api/internal/shared"
	"github.com/labstack/echo/v4"
)

// toHTTPError maps pipeline errors onto API errors carrying the message the
// page shows to the user.
func toHTTPError(err error) *echo.HTTPError {
	msg := classify.UserMessage(err)

	var (
		fetchErr      *fetch.FetchError
		decodeErr     *imageproc.DecodeError
		inferenceErr  *model.InferenceError
		validationErr *classify.ValidationError
	)
	switch {
	case errors.As(err, &validationErr):
		return shared.FieldError(validationErr.Field, "invalid_request", msg)
	case errors.As(err, &fetchErr):
		if errors.Is(err, fetch.ErrInvalidURL) {
			return shared.BadRequest("invalid_url", msg)
		}
		return shared.Error(http.StatusBadGateway, "fetch_failed", msg)
	case errors.As(err, &decodeErr):
		return shared.Error(http.StatusUnprocessableEntity, "decode_failed", msg)
	case errors.As(err, &inferenceErr):
		return shared.Error(http.StatusInternalServerError, "inference_failed", msg)
	case errors.Is(err, session.ErrNoImage):
		return shared.Error(http.StatusConflict, "no_image", "Upload a file, or paste a URL and load it first.")
	default:
		return shared.Error(http.StatusInternalServerError, "internal_error", msg)
	}
}
