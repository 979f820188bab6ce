package domain

import "errors"

var (
	ErrValidation      = errors.New("validation error")
	ErrTransport       = errors.New("transport error")
	ErrProtocol        = errors.New("protocol error")
	ErrEmptyJoin       = errors.New("series have no common dates")
	ErrDerivedColumn   = errors.New("derived column error")
	ErrIO              = errors.New("io error")
	ErrDatasetNotFound = errors.New("dataset not found")
	ErrColumnNotFound  = errors.New("column not found")
	ErrNoValues        = errors.New("column has no values")
)

// IsRetryable reports whether a failed fetch may succeed if simply tried again later.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransport)
}
