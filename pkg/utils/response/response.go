// Package response contains response utility functions and types
package response

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Response represents the standard API response structure
type Response struct {
	Status    string      `json:"status"`
	Data      interface{} `json:"data,omitempty"`
	ErrorType string      `json:"error_type,omitempty"`
	Message   string      `json:"message,omitempty"`
}

// Error types returned to clients
const (
	ValidationException     = "ValidationException"
	AuthenticationException = "AuthenticationException"
	AuthorizationException  = "AuthorizationException"
	NotFoundException       = "NotFoundException"
	AvatarException         = "AvatarException"
	InputException          = "InputException"
	ServerException         = "ServerException"
)

// APIError is implemented by errors that know how they are presented to clients
type APIError interface {
	error
	HTTPStatus() int
	ErrorType() string
	PublicMessage() string
}

// SuccessResponse sends a successful JSON response
func SuccessResponse(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, Response{
		Status: "success",
		Data:   data,
	})
}

// CreatedResponse sends a 201 JSON response
func CreatedResponse(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusCreated, Response{
		Status: "success",
		Data:   data,
	})
}

// ErrorResponse sends an error JSON response
func ErrorResponse(c echo.Context, httpStatus int, errorType, message string) error {
	return c.JSON(httpStatus, Response{
		Status:    "error",
		ErrorType: errorType,
		Message:   message,
	})
}

// FromError sends the error response matching err.
// Errors that do not implement APIError become a generic 500.
func FromError(c echo.Context, err error) error {
	var apiErr APIError
	if errors.As(err, &apiErr) {
		return ErrorResponse(c, apiErr.HTTPStatus(), apiErr.ErrorType(), apiErr.PublicMessage())
	}
	return ErrorResponse(c, http.StatusInternalServerError, ServerException, "Internal server error")
}
