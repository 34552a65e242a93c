// Package sqlite persists the application state as a single serialized
// snapshot in an embedded SQLite key-value table, written through on every
// successful transaction.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"cradlecore/internal/infra/persistence/memory"
	"cradlecore/pkg/domain"
)

// Compile-time contract assertion ensuring the store satisfies the domain interface.
var _ domain.PersistentStore = (*Store)(nil)

// Store snapshots the full in-memory state to SQLite after every successful
// transaction. Low write volume makes the whole-state serialization an
// acceptable correctness-over-efficiency trade.
type Store struct {
	*memory.Store
	db   *sql.DB
	mu   sync.Mutex
	path string
	log  *slog.Logger
}

// NewStore constructs a snapshotting SQLite-backed persistent store and
// hydrates it from any existing snapshot. A missing or malformed snapshot
// yields an empty default state; load failures are logged, never fatal.
func NewStore(path string, engine *domain.RulesEngine) (*Store, error) {
	if path == "" {
		path = "cradlecore.db"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS state (
		bucket TEXT PRIMARY KEY,
		payload BLOB NOT NULL
	)`); err != nil {
		return nil, fmt.Errorf("create state table: %w", err)
	}
	s := &Store{
		Store: memory.NewStore(engine),
		db:    db,
		path:  path,
		log:   slog.Default().With("component", "sqlite_store"),
	}
	s.load()
	return s, nil
}

const (
	bucketBabies   = "babies"
	bucketSettings = "settings"
	bucketActive   = "active"
)

var sqliteBuckets = []string{bucketBabies, bucketSettings, bucketActive}

// load hydrates the in-memory state from the snapshot table. Decode failures
// fall back to the empty default state.
func (s *Store) load() {
	rows, err := s.db.Query(`SELECT bucket, payload FROM state`)
	if err != nil {
		s.log.Error("load snapshot", "error", err)
		return
	}
	defer func() { _ = rows.Close() }()

	state := domain.NewState()
	loaded := false
	for rows.Next() {
		var bucket string
		var payload []byte
		if err := rows.Scan(&bucket, &payload); err != nil {
			s.log.Error("scan snapshot row", "error", err)
			return
		}
		switch bucket {
		case bucketBabies:
			if err := json.Unmarshal(payload, &state.Babies); err != nil {
				s.log.Error("decode babies, starting empty", "error", err)
				return
			}
		case bucketSettings:
			if err := json.Unmarshal(payload, &state.Settings); err != nil {
				s.log.Error("decode settings, starting empty", "error", err)
				return
			}
		case bucketActive:
			if err := json.Unmarshal(payload, &state.ActiveBabyID); err != nil {
				s.log.Error("decode active reference, starting empty", "error", err)
				return
			}
		}
		loaded = true
	}
	if err := rows.Err(); err != nil {
		s.log.Error("iterate snapshot", "error", err)
		return
	}
	if !loaded {
		return
	}
	// Hydration happens inside ImportState: dates back to UTC time values,
	// missing ids and collection arrays back-filled.
	s.ImportState(state)
}

func (s *Store) persist() (retErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := s.ExportState()
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	for _, bucket := range sqliteBuckets {
		var data []byte
		switch bucket {
		case bucketBabies:
			data, err = json.Marshal(state.Babies)
		case bucketSettings:
			data, err = json.Marshal(state.Settings)
		case bucketActive:
			data, err = json.Marshal(state.ActiveBabyID)
		}
		if err != nil {
			retErr = err
			return retErr
		}
		if _, err = tx.Exec(`INSERT INTO state(bucket,payload) VALUES(?,?) ON CONFLICT(bucket) DO UPDATE SET payload=excluded.payload`, bucket, data); err != nil {
			retErr = fmt.Errorf("upsert %s: %w", bucket, err)
			return retErr
		}
	}
	return tx.Commit()
}

// RunInTransaction applies fn within a transaction, then snapshots the whole
// state to SQLite if successful (write-through, no batching).
func (s *Store) RunInTransaction(ctx context.Context, fn func(domain.Transaction) error) (domain.Result, error) {
	res, err := s.Store.RunInTransaction(ctx, fn)
	if err != nil {
		return res, err
	}
	if pErr := s.persist(); pErr != nil {
		return res, pErr
	}
	return res, nil
}

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }
