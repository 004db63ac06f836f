package runtime

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/drblury/analyticsbase/internal/analytics"
	configpkg "github.com/drblury/analyticsbase/internal/runtime/config"
	loggingpkg "github.com/drblury/analyticsbase/internal/runtime/logging"
	"github.com/drblury/analyticsbase/internal/storage"
)

func newTestConfig(t *testing.T) *configpkg.Config {
	t.Helper()
	return &configpkg.Config{
		ListenAddr:      "127.0.0.1:0",
		MaxBodyBytes:    64 << 10,
		ShutdownTimeout: 5 * time.Second,
		Storage:         configpkg.StorageSQLite,
		DBPath:          filepath.Join(t.TempDir(), "analytics.db"),
		PoolSize:        4,
		AcquireTimeout:  5 * time.Second,
		LogLevel:        "debug",
		LogFormat:       configpkg.LogFormatText,
		MetricsEnabled:  true,
		Topic:           "analytics",
		NATSClientName:  "analyticsbase",
	}
}

func newTestService(t *testing.T, conf *configpkg.Config, deps ServiceDependencies) *Service {
	t.Helper()
	svc, err := NewService(conf, loggingpkg.Discard(), context.Background(), deps)
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })
	return svc
}

func encodeMessage(t *testing.T, origin string, ms int64, payload analytics.Payload) []byte {
	t.Helper()
	buf, err := analytics.Encode(analytics.NewMessage(origin, time.UnixMilli(ms), payload))
	require.NoError(t, err)
	return buf
}

// failingStore fails every write with err.
type failingStore struct {
	err error
}

func (f *failingStore) StorePageChange(context.Context, analytics.Metadata, analytics.PageChange) error {
	return f.err
}

func (f *failingStore) StorePlaybackChange(context.Context, analytics.Metadata, analytics.PlaybackChange) error {
	return f.err
}

func (f *failingStore) StoreSongChange(context.Context, analytics.Metadata, analytics.SongChange) error {
	return f.err
}

func (f *failingStore) GetRecord(context.Context, int64) (storage.Record, error) {
	return storage.Record{}, storage.ErrNotFound
}

func (f *failingStore) CountRecords(context.Context) (int, error) { return 0, nil }

func (f *failingStore) Close() error { return nil }
