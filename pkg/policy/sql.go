package policy

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	_ "github.com/glebarez/go-sqlite"
)

// MemoryDSN opens a shared in-memory database.
const MemoryDSN = "file::memory:?cache=shared"

// SQL is a Provider backed by the page_cache_policy table.
type SQL struct {
	db         *sql.DB
	writeMutex sync.Mutex
}

// OpenSQL opens the sqlite database at dsn and creates the policy table if
// needed. An empty dsn selects MemoryDSN.
func OpenSQL(dsn string) (*SQL, error) {
	if dsn == "" {
		dsn = MemoryDSN
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open policy database: %w", err)
	}

	p := NewSQL(db)
	if err := p.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return p, nil
}

// NewSQL wraps an open database. The caller runs Migrate.
func NewSQL(db *sql.DB) *SQL {
	return &SQL{db: db}
}

// Migrate creates the policy table.
func (s *SQL) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS page_cache_policy (
		route TEXT PRIMARY KEY COLLATE NOCASE,
		file_path TEXT NOT NULL,
		cache_expire_seconds INTEGER NOT NULL DEFAULT 0
	)`)
	if err != nil {
		return fmt.Errorf("migrate policy table: %w", err)
	}
	return nil
}

// Put stores the policy of route.
func (s *SQL) Put(ctx context.Context, route string, p Policy) error {
	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()

	_, err := s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO page_cache_policy (route, file_path, cache_expire_seconds) VALUES (?, ?, ?)",
		normalize(route), p.FilePath, p.CacheExpireSeconds)
	if err != nil {
		return fmt.Errorf("put policy %s: %w", route, err)
	}
	return nil
}

// Delete removes the policy of route.
func (s *SQL) Delete(ctx context.Context, route string) error {
	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()

	if _, err := s.db.ExecContext(ctx, "DELETE FROM page_cache_policy WHERE route = ?", normalize(route)); err != nil {
		return fmt.Errorf("delete policy %s: %w", route, err)
	}
	return nil
}

// Lookup implements Provider.
func (s *SQL) Lookup(ctx context.Context, route string) (Policy, bool, error) {
	var p Policy
	err := s.db.QueryRowContext(ctx,
		"SELECT file_path, cache_expire_seconds FROM page_cache_policy WHERE route = ?",
		normalize(route)).Scan(&p.FilePath, &p.CacheExpireSeconds)
	if errors.Is(err, sql.ErrNoRows) {
		return Policy{}, false, nil
	}
	if err != nil {
		return Policy{}, false, fmt.Errorf("lookup policy %s: %w", route, err)
	}
	return p, true, nil
}

// Close closes the database.
func (s *SQL) Close() error {
	return s.db.Close()
}
