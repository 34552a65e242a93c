package core

import (
	"fmt"
	"os"

	"cradlecore/internal/infra/persistence/memory"
	"cradlecore/internal/infra/persistence/sqlite"
	"cradlecore/pkg/domain"
)

// StorageDriver identifies a concrete persistent storage implementation.
type StorageDriver string

const (
	StorageMemory StorageDriver = "memory" // in-memory only (tests / ephemeral)
	StorageSQLite StorageDriver = "sqlite" // embedded sqlite file
)

// OpenPersistentStore selects a backend. An empty driver falls back to the
// CRADLECORE_STORAGE_DRIVER environment variable, then to sqlite; an empty
// path falls back to CRADLECORE_SQLITE_PATH. The returned closer releases
// backend handles and is non-nil on success.
func OpenPersistentStore(driver StorageDriver, path string, engine *RulesEngine) (PersistentStore, func() error, error) {
	if driver == "" {
		driver = StorageDriver(os.Getenv("CRADLECORE_STORAGE_DRIVER"))
	}
	if driver == "" {
		driver = StorageSQLite
	}
	switch driver {
	case StorageMemory:
		return memory.NewStore(engine), func() error { return nil }, nil
	case StorageSQLite:
		if path == "" {
			path = os.Getenv("CRADLECORE_SQLITE_PATH")
		}
		st, err := sqlite.NewStore(path, engine)
		if err != nil {
			return nil, nil, err
		}
		return st, st.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}

// DefaultRulesEngine returns the engine with the stock cradlecore rules
// registered: owner-only sharing enforcement and implausible-reading warnings.
func DefaultRulesEngine() *RulesEngine {
	engine := domain.NewRulesEngine()
	engine.Register(ShareOwnershipRule{})
	engine.Register(ImplausibleReadingRule{})
	return engine
}
