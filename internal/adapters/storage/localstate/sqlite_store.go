package localstate

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"groomdesk/internal/adapters/storage"
	"groomdesk/internal/domain/account"
	"groomdesk/internal/domain/alimtalk"
	"groomdesk/internal/domain/customer"
)

// SQLiteStore implements Store on the local_state table.
type SQLiteStore struct {
	db  storage.SQLDB
	now func() time.Time
}

// NewSQLiteStore creates a store over a migrated database.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db, now: time.Now}
}

// Load decodes the value stored under key into v.
// PRE: v is a non-nil pointer
// POST: ErrNotFound if the key was never saved
func (s *SQLiteStore) Load(ctx context.Context, key string, v any) error {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM local_state WHERE key = ?`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("load %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

// Save encodes v and upserts it under key.
// POST: a later Load of key returns v
func (s *SQLiteStore) Save(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO local_state (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, string(data), s.now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// Delete removes the value under key. Deleting a missing key is not an error.
func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM local_state WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// loadList loads a slice value, treating a missing key as empty.
func loadList[T any](ctx context.Context, s *SQLiteStore, key string) ([]T, error) {
	var list []T
	err := s.Load(ctx, key, &list)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return list, err
}

// Customers returns the cached customer list.
func (s *SQLiteStore) Customers(ctx context.Context) ([]customer.Customer, error) {
	return loadList[customer.Customer](ctx, s, KeyCustomers)
}

// SaveCustomers replaces the cached customer list.
func (s *SQLiteStore) SaveCustomers(ctx context.Context, list []customer.Customer) error {
	return s.Save(ctx, KeyCustomers, list)
}

// Users returns the locally registered accounts.
func (s *SQLiteStore) Users(ctx context.Context) ([]account.Account, error) {
	return loadList[account.Account](ctx, s, KeyUsers)
}

// SaveUsers replaces the locally registered accounts.
func (s *SQLiteStore) SaveUsers(ctx context.Context, list []account.Account) error {
	return s.Save(ctx, KeyUsers, list)
}

// Templates returns the saved alimtalk templates.
func (s *SQLiteStore) Templates(ctx context.Context) ([]alimtalk.Template, error) {
	return loadList[alimtalk.Template](ctx, s, KeyTemplates)
}

// SaveTemplates replaces the saved alimtalk templates.
func (s *SQLiteStore) SaveTemplates(ctx context.Context, list []alimtalk.Template) error {
	return s.Save(ctx, KeyTemplates, list)
}
