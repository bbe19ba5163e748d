package shared

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// APIError is the JSON body of every failed API call.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// Error wraps an APIError in the echo error for status. echo's error
// handler writes the APIError as the response body.
func Error(status int, code, message string) *echo.HTTPError {
	return echo.NewHTTPError(status, &APIError{Code: code, Message: message})
}

// FieldError is a 400 naming the request field that was rejected.
func FieldError(field, code, message string) *echo.HTTPError {
	return echo.NewHTTPError(http.StatusBadRequest, &APIError{Code: code, Message: message, Field: field})
}

func BadRequest(code, message string) *echo.HTTPError {
	return Error(http.StatusBadRequest, code, message)
}
