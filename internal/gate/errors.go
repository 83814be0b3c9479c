package gate

import "errors"

var (
	// ErrValidation marks malformed input (filename, token) rejected before any side effect.
	ErrValidation = errors.New("validation error")
	// ErrPolicy marks a share constraint violation; never retried.
	ErrPolicy = errors.New("policy violation")
)
