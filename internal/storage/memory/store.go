// Package memory provides an in-process AnalyticsStore keyed by timestamp.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/drblury/analyticsbase/internal/analytics"
	"github.com/drblury/analyticsbase/internal/storage"
)

// Store keeps records in a map guarded by a mutex. It enforces the same
// timestamp primary key as the relational store.
type Store struct {
	mu      sync.RWMutex
	records map[int64]storage.Record
	closed  bool
}

var (
	_ storage.AnalyticsStore = (*Store)(nil)
	_ storage.RecordReader   = (*Store)(nil)
)

// New returns an empty store.
func New() *Store {
	return &Store{records: make(map[int64]storage.Record)}
}

func (s *Store) StorePageChange(ctx context.Context, meta analytics.Metadata, change analytics.PageChange) error {
	return s.insert(ctx, storage.PageChangeRecord(meta, change))
}

func (s *Store) StorePlaybackChange(ctx context.Context, meta analytics.Metadata, playback analytics.PlaybackChange) error {
	return s.insert(ctx, storage.PlaybackChangeRecord(meta, playback))
}

func (s *Store) StoreSongChange(ctx context.Context, meta analytics.Metadata, song analytics.SongChange) error {
	return s.insert(ctx, storage.SongChangeRecord(meta, song))
}

func (s *Store) insert(ctx context.Context, rec storage.Record) error {
	op := storage.OpName(rec.Kind)
	if err := ctx.Err(); err != nil {
		return &storage.StoreError{Op: op, Kind: rec.Kind, Err: fmt.Errorf("%w: %w", storage.ErrUnavailable, err)}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return &storage.StoreError{Op: op, Kind: rec.Kind, Err: fmt.Errorf("%w: store closed", storage.ErrUnavailable)}
	}
	if _, exists := s.records[rec.Tmstp]; exists {
		return &storage.StoreError{Op: op, Kind: rec.Kind, Err: fmt.Errorf("%w: tmstp %d", storage.ErrAlreadyExists, rec.Tmstp)}
	}
	s.records[rec.Tmstp] = rec
	return nil
}

// GetRecord returns the record stored under tmstp.
func (s *Store) GetRecord(ctx context.Context, tmstp int64) (storage.Record, error) {
	if err := ctx.Err(); err != nil {
		return storage.Record{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[tmstp]
	if !ok {
		return storage.Record{}, fmt.Errorf("%w: tmstp %d", storage.ErrNotFound, tmstp)
	}
	return rec, nil
}

// CountRecords returns the number of stored records.
func (s *Store) CountRecords(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

// Close rejects further writes. Stored records stay readable.
func (s *Store) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}
