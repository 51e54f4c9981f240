package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/minpeter/ai-sdk-middleware/pkg/middleware"
)

var (
	ErrInvalidRequest = errors.New("invalid_request")
	ErrModelNotFound  = errors.New("model_not_found")
)

type invalidRequestError struct {
	msg   string
	param string
}

func (e invalidRequestError) Error() string {
	return e.msg
}

func (e invalidRequestError) Unwrap() error {
	return ErrInvalidRequest
}

func newInvalidRequest(msg, param string) error {
	return invalidRequestError{msg: msg, param: param}
}

type modelNotFoundError struct {
	id string
}

func (e modelNotFoundError) Error() string {
	return "model " + e.id + " does not exist"
}

func (e modelNotFoundError) Unwrap() error {
	return ErrModelNotFound
}

// classify maps an error to an HTTP status and an OpenAI error type.
func classify(err error) (status int, errType, param string) {
	var invalid invalidRequestError
	switch {
	case errors.As(err, &invalid):
		return http.StatusBadRequest, "invalid_request_error", invalid.param
	case errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest, "invalid_request_error", ""
	case errors.Is(err, ErrModelNotFound):
		return http.StatusNotFound, "not_found_error", "model"
	case errors.Is(err, middleware.ErrInvalidConfig):
		return http.StatusInternalServerError, "server_error", ""
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout_error", ""
	default:
		return http.StatusBadGateway, "upstream_error", ""
	}
}
