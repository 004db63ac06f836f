// Package ids creates the identifiers attached to requests and broker messages.
package ids

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// CreateULID returns a time-sortable ULID encoded as a 26-character string.
func CreateULID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// RequestID returns candidate when it is a valid ULID, otherwise a new one.
// Incoming request ids are only trusted in ULID form.
func RequestID(candidate string) string {
	if _, err := ulid.ParseStrict(candidate); err == nil {
		return candidate
	}
	return CreateULID()
}
