// Package metadata defines the broker message headers attached to published
// analytics envelopes.
package metadata

import (
	"strconv"

	"github.com/drblury/analyticsbase/internal/analytics"
)

// Reserved header keys.
const (
	// KeyCorrelationID tracks a message across services.
	KeyCorrelationID = "correlation_id"
	// KeyKind carries the envelope kind name, e.g. "page_change".
	KeyKind   = "analytics_kind"
	KeyOrigin = "analytics_origin"
	// KeyTimestamp carries the envelope timestamp in epoch milliseconds.
	KeyTimestamp = "analytics_tmstp"
)

// Metadata represents the headers carried alongside an envelope.
type Metadata map[string]string

// Clone returns a shallow copy of the metadata map.
func (m Metadata) Clone() Metadata {
	cloned := make(Metadata, len(m))
	for k, v := range m {
		cloned[k] = v
	}
	return cloned
}

// With returns a cloned metadata map containing the provided key/value pair.
func (m Metadata) With(key, value string) Metadata {
	cloned := m.Clone()
	cloned[key] = value
	return cloned
}

// ForMessage returns the descriptive headers for an envelope. They are
// informational only; consumers always decode the payload itself.
func ForMessage(meta analytics.Metadata) Metadata {
	return Metadata{
		KeyKind:      meta.Kind.String(),
		KeyOrigin:    meta.Origin,
		KeyTimestamp: strconv.FormatInt(meta.TimestampMillis(), 10),
	}
}
