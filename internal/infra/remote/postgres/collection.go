// Package postgres stores baby documents in a Postgres table, one JSONB row per
// baby, with owner and sharing columns kept queryable alongside the payload.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	"cradlecore/internal/remote"
	"cradlecore/pkg/domain"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
)

var _ remote.Collection = (*Collection)(nil)

const (
	defaultDriver = "pgx"
	// Default DSN keeps parity with OpenCollection defaults while allowing overrides via env.
	defaultDSN = "postgres://localhost/cradlecore?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Collection is a remote.Collection backed by a baby_documents table.
type Collection struct {
	db *sql.DB
}

// NewCollection opens a Postgres-backed collection using the provided DSN
// (falls back to defaultDSN) and ensures the documents table exists.
func NewCollection(dsn string) (*Collection, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := ensureDocumentsTable(ctx, db); err != nil {
		return nil, err
	}
	return &Collection{db: db}, nil
}

func ensureDocumentsTable(ctx context.Context, db *sql.DB) error {
	ddl := `CREATE TABLE IF NOT EXISTS baby_documents (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL DEFAULT '',
		shared_with JSONB NOT NULL DEFAULT '[]',
		payload JSONB NOT NULL
	)`
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensure baby_documents table: %w", err)
	}
	return nil
}

// Ready reports whether the database is reachable.
func (c *Collection) Ready(ctx context.Context) error {
	if err := c.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}

// ListOwnedBy returns all documents whose owner column matches uid.
func (c *Collection) ListOwnedBy(ctx context.Context, uid string) ([]domain.Baby, error) {
	return c.list(ctx, `SELECT payload FROM baby_documents WHERE owner_id = $1`, uid)
}

// ListSharedWith returns all documents whose shared_with array contains email.
func (c *Collection) ListSharedWith(ctx context.Context, email string) ([]domain.Baby, error) {
	return c.list(ctx, `SELECT payload FROM baby_documents WHERE shared_with ? $1`, email)
}

func (c *Collection) list(ctx context.Context, query string, arg any) ([]domain.Baby, error) {
	rows, err := c.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("select baby_documents: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []domain.Baby
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan baby_documents: %w", err)
		}
		var baby domain.Baby
		if err := json.Unmarshal(payload, &baby); err != nil {
			return nil, fmt.Errorf("decode baby document: %w", err)
		}
		baby.Normalize()
		out = append(out, baby)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate baby_documents: %w", err)
	}
	return out, nil
}

// Upsert inserts or replaces the document keyed by the baby id.
func (c *Collection) Upsert(ctx context.Context, baby domain.Baby) error {
	payload, err := json.Marshal(baby)
	if err != nil {
		return fmt.Errorf("encode baby document: %w", err)
	}
	shared, err := json.Marshal(baby.SharedWith)
	if err != nil {
		return fmt.Errorf("encode shared list: %w", err)
	}
	const q = `INSERT INTO baby_documents(id, owner_id, shared_with, payload)
		VALUES($1, $2, $3, $4)
		ON CONFLICT(id) DO UPDATE SET
			owner_id = EXCLUDED.owner_id,
			shared_with = EXCLUDED.shared_with,
			payload = EXCLUDED.payload`
	if _, err := c.db.ExecContext(ctx, q, baby.ID, baby.OwnerID, shared, payload); err != nil {
		return fmt.Errorf("upsert baby document: %w", err)
	}
	return nil
}

// Delete removes the document by id, reporting whether a row existed.
func (c *Collection) Delete(ctx context.Context, id string) (bool, error) {
	res, err := c.db.ExecContext(ctx, `DELETE FROM baby_documents WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete baby document: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete baby document: %w", err)
	}
	return affected > 0, nil
}

// Close releases the underlying database handle.
func (c *Collection) Close() error { return c.db.Close() }

// DB exposes the underlying sql.DB for integration testing hooks.
func (c *Collection) DB() *sql.DB { return c.db }

// OverrideSQLOpen swaps the sqlOpen function for tests and returns a restore function.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}
