package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drblury/analyticsbase/internal/analytics"
	"github.com/drblury/analyticsbase/internal/storage"
)

func openTempStore(t *testing.T, opts Options) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "analytics.db")
	store, err := Open(path, opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store, path
}

func meta(kind analytics.MessageKind, ms int64, origin string) analytics.Metadata {
	return analytics.Metadata{Timestamp: time.UnixMilli(ms).UTC(), Origin: origin, Kind: kind}
}

func TestBuildDSN(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path string
		want string
	}{
		{"analytics.db", "file:analytics.db?" + dsnPragmas},
		{"/var/lib/analytics/analytics.db", "file:/var/lib/analytics/analytics.db?" + dsnPragmas},
		{"/tmp/run?1#a.db", "file:/tmp/run%3F1%23a.db?" + dsnPragmas},
		{"/tmp/a b/../analytics.db", "file:/tmp/analytics.db?" + dsnPragmas},
	}
	for _, tt := range tests {
		got, err := buildDSN(tt.path)
		require.NoError(t, err, tt.path)
		assert.Equal(t, tt.want, got, tt.path)
	}
}

func TestOpenRejectsInMemoryPath(t *testing.T) {
	t.Parallel()

	for _, path := range []string{":memory:", "file::memory:?cache=shared", "file:analytics?mode=memory"} {
		_, err := Open(path, Options{PoolSize: 2})
		assert.ErrorIs(t, err, ErrInMemoryPath, path)
	}
}

func TestOpenPathWithURIReservedCharacters(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "run?1#a")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	path := filepath.Join(dir, "analytics.db")

	store, err := Open(path, Options{PoolSize: 2})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	err = store.StorePageChange(context.Background(), meta(analytics.KindPageChange, 42, "dash-01"),
		analytics.PageChange{Src: analytics.PageHome, Dst: analytics.PageSettings})
	require.NoError(t, err)

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestOpenRequiresPath(t *testing.T) {
	t.Parallel()

	_, err := Open("  ", Options{})
	require.Error(t, err)
}

func TestStorePageChangeRow(t *testing.T) {
	t.Parallel()

	store, _ := openTempStore(t, Options{})
	ctx := context.Background()

	err := store.StorePageChange(ctx, meta(analytics.KindPageChange, 1700000000000, "dash-01"),
		analytics.PageChange{Src: analytics.PageHome, Dst: analytics.PageRadio})
	require.NoError(t, err)

	rec, err := store.GetRecord(ctx, 1700000000000)
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000000), rec.Tmstp)
	assert.Equal(t, "dash-01", rec.Origin)
	assert.Equal(t, analytics.KindPageChange, rec.Kind)
	require.NotNil(t, rec.TransitionSrc)
	require.NotNil(t, rec.TransitionDst)
	assert.Equal(t, uint8(0), *rec.TransitionSrc)
	assert.Equal(t, uint8(1), *rec.TransitionDst)
	assert.Nil(t, rec.PlaybackSource)
	assert.Nil(t, rec.PlaybackName)
	assert.Nil(t, rec.PlaybackStarted)
	assert.Nil(t, rec.SongRaw)
	assert.Nil(t, rec.SongTitle)
	assert.Nil(t, rec.SongArtist)
	assert.Nil(t, rec.SongAlbum)
}

func TestStorePlaybackChangeRow(t *testing.T) {
	t.Parallel()

	store, _ := openTempStore(t, Options{})
	ctx := context.Background()

	err := store.StorePlaybackChange(ctx, meta(analytics.KindPlaybackChange, 1700000000500, "dash-01"),
		analytics.PlaybackChange{Source: analytics.SourceSpotify, Name: "Daily Mix 1", Started: true})
	require.NoError(t, err)

	rec, err := store.GetRecord(ctx, 1700000000500)
	require.NoError(t, err)
	assert.Equal(t, analytics.KindPlaybackChange, rec.Kind)
	require.NotNil(t, rec.PlaybackSource)
	assert.Equal(t, uint8(1), *rec.PlaybackSource)
	require.NotNil(t, rec.PlaybackName)
	assert.Equal(t, "Daily Mix 1", *rec.PlaybackName)
	require.NotNil(t, rec.PlaybackStarted)
	assert.True(t, *rec.PlaybackStarted)
	assert.Nil(t, rec.TransitionSrc)
	assert.Nil(t, rec.SongTitle)
}

func TestStoreSongChangeKeepsStringsVerbatim(t *testing.T) {
	t.Parallel()

	store, _ := openTempStore(t, Options{})
	ctx := context.Background()

	long := "a title that is well beyond the twenty characters the column declares"
	err := store.StoreSongChange(ctx, meta(analytics.KindSongChange, 99, "dash-01"),
		analytics.SongChange{RawMeta: "Artist - " + long, Title: long, Artist: "Ärtist", Album: ""})
	require.NoError(t, err)

	rec, err := store.GetRecord(ctx, 99)
	require.NoError(t, err)
	assert.Equal(t, long, *rec.SongTitle)
	assert.Equal(t, "Ärtist", *rec.SongArtist)
	require.NotNil(t, rec.SongAlbum)
	assert.Equal(t, "", *rec.SongAlbum)
}

func TestStoreRejectsDuplicateTimestamp(t *testing.T) {
	t.Parallel()

	store, _ := openTempStore(t, Options{})
	ctx := context.Background()

	require.NoError(t, store.StorePageChange(ctx, meta(analytics.KindPageChange, 1700000000000, "dash-01"),
		analytics.PageChange{Src: analytics.PageHome, Dst: analytics.PageRadio}))

	err := store.StoreSongChange(ctx, meta(analytics.KindSongChange, 1700000000000, "dash-02"),
		analytics.SongChange{Title: "t"})
	require.Error(t, err)
	assert.True(t, storage.IsConflict(err))

	var storeErr *storage.StoreError
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, analytics.KindSongChange, storeErr.Kind)

	n, err := store.CountRecords(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	rec, err := store.GetRecord(ctx, 1700000000000)
	require.NoError(t, err)
	assert.Equal(t, "dash-01", rec.Origin)
}

func TestOpenIsIdempotentAndKeepsRows(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "analytics.db")
	first, err := Open(path, Options{})
	require.NoError(t, err)
	require.NoError(t, first.StorePageChange(context.Background(),
		meta(analytics.KindPageChange, 1, "o"), analytics.PageChange{}))
	require.NoError(t, first.Close())

	second, err := Open(path, Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = second.Close() })

	n, err := second.CountRecords(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestGetRecordNotFound(t *testing.T) {
	t.Parallel()

	store, _ := openTempStore(t, Options{})
	_, err := store.GetRecord(context.Background(), 12345)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestWriteTimesOutWhenPoolExhausted(t *testing.T) {
	t.Parallel()

	store, _ := openTempStore(t, Options{PoolSize: 1, AcquireTimeout: 50 * time.Millisecond})
	ctx := context.Background()

	conn, err := store.sqlDB.Conn(ctx)
	require.NoError(t, err)

	err = store.StorePageChange(ctx, meta(analytics.KindPageChange, 1, "o"), analytics.PageChange{})
	require.Error(t, err)
	assert.True(t, storage.IsUnavailable(err))

	require.NoError(t, conn.Close())
	require.NoError(t, store.StorePageChange(ctx, meta(analytics.KindPageChange, 2, "o"), analytics.PageChange{}))
}

func TestWriteAfterCloseIsUnavailable(t *testing.T) {
	t.Parallel()

	store, _ := openTempStore(t, Options{})
	require.NoError(t, store.Close())
	require.NoError(t, store.Close())

	err := store.StorePageChange(context.Background(), meta(analytics.KindPageChange, 1, "o"), analytics.PageChange{})
	assert.True(t, storage.IsUnavailable(err))
}

func TestConcurrentWritesWithDistinctTimestamps(t *testing.T) {
	t.Parallel()

	store, _ := openTempStore(t, Options{PoolSize: 4})
	ctx := context.Background()

	errs := make(chan error, 32)
	for i := range 32 {
		go func(ms int64) {
			errs <- store.StorePlaybackChange(ctx, meta(analytics.KindPlaybackChange, ms, "o"),
				analytics.PlaybackChange{Source: analytics.SourceRadio, Name: "FM4"})
		}(int64(1000 + i))
	}
	for range 32 {
		assert.NoError(t, <-errs)
	}

	n, err := store.CountRecords(ctx)
	require.NoError(t, err)
	assert.Equal(t, 32, n)
}
