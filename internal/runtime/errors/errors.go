// Package errors holds sentinel errors shared by the runtime packages.
package errors

import (
	sterrors "errors"
	"fmt"
)

var (
	ErrConfigRequired    = sterrors.New("analyticsbase: configuration is required")
	ErrLoggerRequired    = sterrors.New("analyticsbase: logger is required")
	ErrStoreRequired     = sterrors.New("analyticsbase: analytics store is required")
	ErrPublisherRequired = sterrors.New("analyticsbase: publisher is required")
	ErrTopicRequired     = sterrors.New("analyticsbase: topic is required")
	ErrEnvelopeRequired  = sterrors.New("analyticsbase: envelope payload is required")
	ErrBrokerDisabled    = sterrors.New("analyticsbase: broker ingest is disabled")
	ErrAlreadyStarted    = sterrors.New("analyticsbase: service already started")
)

// ConfigValidationError marks a configuration rejected at startup.
type ConfigValidationError struct {
	Err error
}

func (e ConfigValidationError) Error() string {
	return fmt.Sprintf("analyticsbase: invalid configuration: %v", e.Err)
}

func (e ConfigValidationError) Unwrap() error { return e.Err }
