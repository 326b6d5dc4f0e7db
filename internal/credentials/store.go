// Package credentials persists the username each bridge issued during pairing.
package credentials

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Store loads and saves bridge usernames. Load returns "" when the bridge
// has never been paired.
type Store interface {
	Load(ctx context.Context, bridgeID string) (string, error)
	Save(ctx context.Context, bridgeID, username string) error
}

// SQLiteStore keeps credentials in the bridge_credentials table.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a store using the provided database connection.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Load returns the username for a bridge.
func (s *SQLiteStore) Load(ctx context.Context, bridgeID string) (string, error) {
	var username string
	err := s.db.QueryRowContext(ctx, `
		SELECT username FROM bridge_credentials WHERE bridge_id = ?
	`, bridgeID).Scan(&username)

	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to load credential: %w", err)
	}
	return username, nil
}

// Save stores the username for a bridge, replacing any previous one.
func (s *SQLiteStore) Save(ctx context.Context, bridgeID, username string) error {
	now := time.Now().UTC().Unix()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO bridge_credentials (bridge_id, username, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(bridge_id) DO UPDATE SET
			username = excluded.username,
			updated_at = excluded.updated_at
	`, bridgeID, username, now, now)
	if err != nil {
		return fmt.Errorf("failed to save credential: %w", err)
	}
	return nil
}

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu        sync.RWMutex
	usernames map[string]string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{usernames: make(map[string]string)}
}

// Load implements Store.
func (s *MemoryStore) Load(_ context.Context, bridgeID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.usernames[bridgeID], nil
}

// Save implements Store.
func (s *MemoryStore) Save(_ context.Context, bridgeID, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.usernames[bridgeID] = username
	return nil
}
