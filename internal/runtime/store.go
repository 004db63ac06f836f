package runtime

import (
	"fmt"

	"github.com/drblury/analyticsbase/internal/runtime/config"
	"github.com/drblury/analyticsbase/internal/storage"
	"github.com/drblury/analyticsbase/internal/storage/memory"
	"github.com/drblury/analyticsbase/internal/storage/sqlite"
)

// Store is what the service needs from a storage backend.
type Store interface {
	storage.AnalyticsStore
	storage.RecordReader
	Close() error
}

var (
	_ Store = (*sqlite.Store)(nil)
	_ Store = (*memory.Store)(nil)
)

// OpenStore opens the backend selected by conf.Storage.
func OpenStore(conf *config.Config) (Store, error) {
	switch conf.Storage {
	case config.StorageSQLite:
		st, err := sqlite.Open(conf.DBPath, sqlite.Options{
			PoolSize:       conf.PoolSize,
			AcquireTimeout: conf.AcquireTimeout,
		})
		if err != nil {
			return nil, err
		}
		return st, nil
	case config.StorageMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", conf.Storage)
	}
}
