// Package storage defines the persistence port analytics messages are written through.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/drblury/analyticsbase/internal/analytics"
)

var (
	// ErrAlreadyExists indicates a record with the same timestamp is already stored.
	ErrAlreadyExists = errors.New("record already exists")
	// ErrNotFound indicates a requested record is missing.
	ErrNotFound = errors.New("record not found")
	// ErrUnavailable indicates no connection could be obtained in time or the store is closed.
	ErrUnavailable = errors.New("storage unavailable")
)

// AnalyticsStore persists one analytics message per call. Every operation
// inserts exactly one row and succeeds only once the row is committed.
type AnalyticsStore interface {
	StorePageChange(ctx context.Context, meta analytics.Metadata, change analytics.PageChange) error
	StorePlaybackChange(ctx context.Context, meta analytics.Metadata, playback analytics.PlaybackChange) error
	StoreSongChange(ctx context.Context, meta analytics.Metadata, song analytics.SongChange) error
}

// RecordReader reads stored rows back. It backs verification and tooling, not ingestion.
type RecordReader interface {
	GetRecord(ctx context.Context, tmstp int64) (Record, error)
	CountRecords(ctx context.Context) (int, error)
}

// StoreError wraps every failure of an AnalyticsStore operation.
type StoreError struct {
	Op   string
	Kind analytics.MessageKind
	Err  error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// IsConflict reports whether err is a primary key collision.
func IsConflict(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsUnavailable reports whether err means the store could not be reached.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}

// OpName returns the operation label used in StoreError for kind.
func OpName(kind analytics.MessageKind) string {
	switch kind {
	case analytics.KindPageChange:
		return "store page change"
	case analytics.KindPlaybackChange:
		return "store playback change"
	case analytics.KindSongChange:
		return "store song change"
	default:
		return "store " + kind.String()
	}
}
