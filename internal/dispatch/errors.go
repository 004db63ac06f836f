package dispatch

import (
	"errors"
	"fmt"

	"github.com/drblury/analyticsbase/internal/analytics"
)

// Stage names the step of Handle that failed.
type Stage string

const (
	StageDecode Stage = "decode"
	StageStore  Stage = "store"
)

// ProcessingError wraps either an analytics.DecodeError or a storage.StoreError.
type ProcessingError struct {
	Stage Stage
	// Kind is set once the envelope header decoded.
	Kind    analytics.MessageKind
	HasKind bool
	Err     error
}

func (e *ProcessingError) Error() string {
	if e.HasKind {
		return fmt.Sprintf("dispatch %s (%s): %v", e.Kind, e.Stage, e.Err)
	}
	return fmt.Sprintf("dispatch (%s): %v", e.Stage, e.Err)
}

func (e *ProcessingError) Unwrap() error { return e.Err }

// IsDecodeError reports whether err was caused by the sender's buffer.
func IsDecodeError(err error) bool {
	var pe *ProcessingError
	if errors.As(err, &pe) {
		return pe.Stage == StageDecode
	}
	var de *analytics.DecodeError
	return errors.As(err, &de)
}

// IsStoreError reports whether err was raised while persisting.
func IsStoreError(err error) bool {
	var pe *ProcessingError
	return errors.As(err, &pe) && pe.Stage == StageStore
}

func decodeFailure(err error) *ProcessingError {
	return &ProcessingError{Stage: StageDecode, Err: err}
}

func kindFailure(stage Stage, kind analytics.MessageKind, err error) *ProcessingError {
	return &ProcessingError{Stage: stage, Kind: kind, HasKind: true, Err: err}
}
