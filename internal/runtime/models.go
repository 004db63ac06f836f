package runtime

import "errors"

// UnprocessableEventError wraps a consumed envelope that can never be stored,
// such as one that fails to decode. The poison queue middleware forwards
// messages failing with it.
type UnprocessableEventError struct {
	messageUUID string
	err         error
}

func (e *UnprocessableEventError) Error() string {
	return "unprocessable event " + e.messageUUID + ": " + e.err.Error()
}

func (e *UnprocessableEventError) Unwrap() error { return e.err }

// IsUnprocessable reports whether err is or wraps an UnprocessableEventError.
func IsUnprocessable(err error) bool {
	var target *UnprocessableEventError
	return errors.As(err, &target)
}
