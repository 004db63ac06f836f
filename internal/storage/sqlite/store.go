// Package sqlite provides a SQLite-backed analytics store.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/drblury/analyticsbase/internal/analytics"
	"github.com/drblury/analyticsbase/internal/storage"
)

//go:embed schema.sql
var schemaSQL string

const (
	insertPageChangeSQL = `INSERT INTO analytics (
	   tmstp, origin, kind, transition_src, transition_dst
	 ) VALUES (?, ?, ?, ?, ?)`

	insertPlaybackChangeSQL = `INSERT INTO analytics (
	   tmstp, origin, kind, playback_source, playback_name, playback_started
	 ) VALUES (?, ?, ?, ?, ?, ?)`

	insertSongChangeSQL = `INSERT INTO analytics (
	   tmstp, origin, kind, song_raw, song_title, song_artist, song_album
	 ) VALUES (?, ?, ?, ?, ?, ?, ?)`

	selectSQL = `SELECT
	   tmstp, origin, kind,
	   transition_src, transition_dst,
	   playback_source, playback_name, playback_started,
	   song_raw, song_title, song_artist, song_album
	 FROM analytics WHERE tmstp = ?`

	countSQL = `SELECT COUNT(*) FROM analytics`
)

const dsnPragmas = "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

// ErrInMemoryPath rejects private in-memory databases, which SQLite creates
// once per pooled connection.
var ErrInMemoryPath = errors.New("sqlite: in-memory databases are not shared across pooled connections")

const (
	DefaultPoolSize       = 4
	DefaultAcquireTimeout = 5 * time.Second
)

// Options tunes the connection pool.
type Options struct {
	// PoolSize caps open connections. Zero uses DefaultPoolSize.
	PoolSize int
	// AcquireTimeout bounds how long a write waits for a connection.
	AcquireTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.PoolSize <= 0 {
		o.PoolSize = DefaultPoolSize
	}
	if o.AcquireTimeout <= 0 {
		o.AcquireTimeout = DefaultAcquireTimeout
	}
	return o
}

// Store persists analytics rows in SQLite. It is safe for concurrent use.
type Store struct {
	sqlDB          *sql.DB
	insertPage     *sql.Stmt
	insertPlayback *sql.Stmt
	insertSong     *sql.Stmt
	acquireTimeout time.Duration
	closed         atomic.Bool
}

var (
	_ storage.AnalyticsStore = (*Store)(nil)
	_ storage.RecordReader   = (*Store)(nil)
)

// IsInMemoryPath reports whether path names a private SQLite memory database.
func IsInMemoryPath(path string) bool {
	path = strings.TrimSpace(path)
	return path == ":memory:" || strings.HasPrefix(path, "file::memory:") || strings.Contains(path, "mode=memory")
}

// buildDSN turns a file path into a SQLite URI. Characters with a meaning in
// URIs, such as '?' and '#', are percent-encoded so they stay part of the name.
func buildDSN(path string) (string, error) {
	if IsInMemoryPath(path) {
		return "", ErrInMemoryPath
	}
	u := url.URL{
		Scheme:   "file",
		Path:     filepath.ToSlash(filepath.Clean(path)),
		OmitHost: true,
		RawQuery: dsnPragmas,
	}
	return u.String(), nil
}

// Open opens the database at path, creates the analytics table when missing
// and prepares one insert statement per message kind. Existing rows are kept.
func Open(path string, opts Options) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	opts = opts.withDefaults()

	dsn, err := buildDSN(path)
	if err != nil {
		return nil, err
	}
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	sqlDB.SetMaxOpenConns(opts.PoolSize)
	sqlDB.SetMaxIdleConns(opts.PoolSize)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schemaSQL); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ensure analytics table: %w", err)
	}

	store := &Store{sqlDB: sqlDB, acquireTimeout: opts.AcquireTimeout}
	for _, p := range []struct {
		dst   **sql.Stmt
		query string
		name  string
	}{
		{&store.insertPage, insertPageChangeSQL, "page change"},
		{&store.insertPlayback, insertPlaybackChangeSQL, "playback change"},
		{&store.insertSong, insertSongChangeSQL, "song change"},
	} {
		stmt, err := sqlDB.Prepare(p.query)
		if err != nil {
			_ = store.closeStatements()
			_ = sqlDB.Close()
			return nil, fmt.Errorf("prepare %s insert: %w", p.name, err)
		}
		*p.dst = stmt
	}
	return store, nil
}

// Close releases the prepared statements and the pool.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil || !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	return errors.Join(s.closeStatements(), s.sqlDB.Close())
}

func (s *Store) closeStatements() error {
	var errs []error
	for _, stmt := range []*sql.Stmt{s.insertPage, s.insertPlayback, s.insertSong} {
		if stmt != nil {
			errs = append(errs, stmt.Close())
		}
	}
	return errors.Join(errs...)
}

func (s *Store) StorePageChange(ctx context.Context, meta analytics.Metadata, change analytics.PageChange) error {
	return s.exec(ctx, s.insertPage, analytics.KindPageChange,
		meta.TimestampMillis(), meta.Origin, analytics.KindPageChange.Code(),
		change.Src.Code(), change.Dst.Code(),
	)
}

func (s *Store) StorePlaybackChange(ctx context.Context, meta analytics.Metadata, playback analytics.PlaybackChange) error {
	return s.exec(ctx, s.insertPlayback, analytics.KindPlaybackChange,
		meta.TimestampMillis(), meta.Origin, analytics.KindPlaybackChange.Code(),
		playback.Source.Code(), playback.Name, playback.Started,
	)
}

func (s *Store) StoreSongChange(ctx context.Context, meta analytics.Metadata, song analytics.SongChange) error {
	return s.exec(ctx, s.insertSong, analytics.KindSongChange,
		meta.TimestampMillis(), meta.Origin, analytics.KindSongChange.Code(),
		song.RawMeta, song.Title, song.Artist, song.Album,
	)
}

// exec runs one insert on a pooled connection. Waiting for the connection is
// bounded by the acquire timeout.
func (s *Store) exec(ctx context.Context, stmt *sql.Stmt, kind analytics.MessageKind, args ...any) error {
	op := storage.OpName(kind)
	if s == nil || s.closed.Load() {
		return &storage.StoreError{Op: op, Kind: kind, Err: fmt.Errorf("%w: store closed", storage.ErrUnavailable)}
	}

	ctx, cancel := context.WithTimeout(ctx, s.acquireTimeout)
	defer cancel()

	if _, err := stmt.ExecContext(ctx, args...); err != nil {
		return &storage.StoreError{Op: op, Kind: kind, Err: classify(err)}
	}
	return nil
}

// GetRecord returns the row keyed by tmstp.
func (s *Store) GetRecord(ctx context.Context, tmstp int64) (storage.Record, error) {
	if err := ctx.Err(); err != nil {
		return storage.Record{}, err
	}
	var (
		rec                      storage.Record
		kind                     sql.NullInt64
		src, dst, source         sql.NullInt64
		name, raw, title, artist sql.NullString
		album                    sql.NullString
		started                  sql.NullBool
	)
	err := s.sqlDB.QueryRowContext(ctx, selectSQL, tmstp).Scan(
		&rec.Tmstp, &rec.Origin, &kind,
		&src, &dst,
		&source, &name, &started,
		&raw, &title, &artist, &album,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.Record{}, fmt.Errorf("%w: tmstp %d", storage.ErrNotFound, tmstp)
	}
	if err != nil {
		return storage.Record{}, fmt.Errorf("get record: %w", classify(err))
	}

	rec.Kind = analytics.MessageKind(kind.Int64)
	rec.TransitionSrc = nullUint8(src)
	rec.TransitionDst = nullUint8(dst)
	rec.PlaybackSource = nullUint8(source)
	rec.PlaybackName = nullString(name)
	if started.Valid {
		rec.PlaybackStarted = &started.Bool
	}
	rec.SongRaw = nullString(raw)
	rec.SongTitle = nullString(title)
	rec.SongArtist = nullString(artist)
	rec.SongAlbum = nullString(album)
	return rec, nil
}

// CountRecords returns the number of stored rows.
func (s *Store) CountRecords(ctx context.Context) (int, error) {
	var n int
	if err := s.sqlDB.QueryRowContext(ctx, countSQL).Scan(&n); err != nil {
		return 0, fmt.Errorf("count records: %w", classify(err))
	}
	return n, nil
}

func classify(err error) error {
	switch {
	case isUniqueViolation(err):
		return fmt.Errorf("%w: %w", storage.ErrAlreadyExists, err)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled), errors.Is(err, sql.ErrConnDone):
		return fmt.Errorf("%w: %w", storage.ErrUnavailable, err)
	default:
		return err
	}
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	message := strings.ToLower(err.Error())
	return strings.Contains(message, "unique constraint failed") &&
		strings.Contains(message, "analytics.tmstp")
}

func nullUint8(v sql.NullInt64) *uint8 {
	if !v.Valid {
		return nil
	}
	u := uint8(v.Int64)
	return &u
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	return &v.String
}
