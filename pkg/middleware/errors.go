package middleware

import (
	"errors"
	"fmt"
)

var ErrInvalidConfig = errors.New("invalid_config")

type invalidConfigError struct {
	msg string
}

func (e invalidConfigError) Error() string {
	return e.msg
}

func (e invalidConfigError) Unwrap() error {
	return ErrInvalidConfig
}

func newInvalidConfig(format string, args ...any) error {
	return invalidConfigError{msg: fmt.Sprintf(format, args...)}
}
