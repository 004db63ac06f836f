package analytics

import (
	"errors"
	"fmt"
)

var (
	ErrTruncated        = errors.New("truncated buffer")
	ErrMalformed        = errors.New("malformed buffer")
	ErrMissingField     = errors.New("required field missing")
	ErrUnknownKind      = errors.New("unknown message kind")
	ErrUnknownEnumValue = errors.New("unknown enum value")
	ErrPayloadMismatch  = errors.New("payload does not match message kind")
	ErrPayloadConflict  = errors.New("more than one payload present")
)

// DecodeError reports a buffer that could not be turned into a typed message.
// It is always caused by the sender.
type DecodeError struct {
	// Field is the dotted path of the offending field, empty for envelope-wide problems.
	Field string
	Err   error
}

func (e *DecodeError) Error() string {
	if e.Field == "" {
		return "decode analytics message: " + e.Err.Error()
	}
	return fmt.Sprintf("decode analytics message: %s: %v", e.Field, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func decodeErr(field string, err error) *DecodeError {
	return &DecodeError{Field: field, Err: err}
}
