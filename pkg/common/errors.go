// Package common provides shared errors, logging and retry helpers.
package common

import (
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Input errors.
	ErrInvalidHyperparameter = errors.New("invalid hyperparameter")
	ErrInvalidConfig         = errors.New("invalid configuration")

	// Dataset errors.
	ErrDownload        = errors.New("dataset download failed")
	ErrEmptyDataset    = errors.New("dataset has no usable rows")
	ErrMissingColumn   = errors.New("missing column")
	ErrUnknownCategory = errors.New("unknown category value")
	ErrParseValue      = errors.New("unparseable value")

	// Model errors.
	ErrNotFitted       = errors.New("model is not fitted")
	ErrFeatureMismatch = errors.New("feature count mismatch")

	// Tracking errors.
	ErrTracking = errors.New("run tracking failed")
)

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}
