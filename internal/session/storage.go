package session

import (
	"database/sql"
	"fmt"
	"sync"

	"github.com/desertthunder/recap/internal/shared"
)

// Fixed keys in durable storage.
const (
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
)

// Credentials is the stored token pair. The zero value means logged out.
type Credentials struct {
	Access  string
	Refresh string
}

// Valid reports whether an access token is present.
func (c Credentials) Valid() bool { return c.Access != "" }

// Storage persists [Credentials].
type Storage interface {
	Load() (Credentials, error)
	Save(Credentials) error
	Erase() error
}

// SQLiteStorage keeps the tokens in the client_storage table.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage wraps an already migrated database.
func NewSQLiteStorage(db *sql.DB) *SQLiteStorage {
	return &SQLiteStorage{db: db}
}

func (s *SQLiteStorage) Load() (Credentials, error) {
	rows, err := s.db.Query(
		"SELECT key, value FROM client_storage WHERE key IN (?, ?)",
		KeyAccessToken, KeyRefreshToken,
	)
	if err != nil {
		return Credentials{}, fmt.Errorf("%w: %w", shared.ErrStorageUnavailable, err)
	}
	defer rows.Close()

	var c Credentials
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return Credentials{}, fmt.Errorf("%w: %w", shared.ErrStorageUnavailable, err)
		}
		switch key {
		case KeyAccessToken:
			c.Access = value
		case KeyRefreshToken:
			c.Refresh = value
		}
	}
	if err := rows.Err(); err != nil {
		return Credentials{}, fmt.Errorf("%w: %w", shared.ErrStorageUnavailable, err)
	}
	return c, nil
}

func (s *SQLiteStorage) Save(c Credentials) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("%w: %w", shared.ErrStorageUnavailable, err)
	}
	defer tx.Rollback()

	const upsert = `INSERT INTO client_storage (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`
	for key, value := range map[string]string{KeyAccessToken: c.Access, KeyRefreshToken: c.Refresh} {
		if _, err := tx.Exec(upsert, key, value); err != nil {
			return fmt.Errorf("%w: failed to write %s: %w", shared.ErrStorageUnavailable, key, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %w", shared.ErrStorageUnavailable, err)
	}
	return nil
}

func (s *SQLiteStorage) Erase() error {
	_, err := s.db.Exec("DELETE FROM client_storage WHERE key IN (?, ?)", KeyAccessToken, KeyRefreshToken)
	if err != nil {
		return fmt.Errorf("%w: %w", shared.ErrStorageUnavailable, err)
	}
	return nil
}

// MemoryStorage is a process-local [Storage].
type MemoryStorage struct {
	mu    sync.Mutex
	creds Credentials
}

func NewMemoryStorage() *MemoryStorage { return &MemoryStorage{} }

func (m *MemoryStorage) Load() (Credentials, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.creds, nil
}

func (m *MemoryStorage) Save(c Credentials) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creds = c
	return nil
}

func (m *MemoryStorage) Erase() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creds = Credentials{}
	return nil
}

// Unavailable is a [Storage] whose every operation fails with Err.
type Unavailable struct {
	Err error
}

func (u Unavailable) Load() (Credentials, error) { return Credentials{}, u.wrap() }
func (u Unavailable) Save(Credentials) error     { return u.wrap() }
func (u Unavailable) Erase() error               { return u.wrap() }

func (u Unavailable) wrap() error {
	if u.Err == nil {
		return shared.ErrStorageUnavailable
	}
	return fmt.Errorf("%w: %w", shared.ErrStorageUnavailable, u.Err)
}
