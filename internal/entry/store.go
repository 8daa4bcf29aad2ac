package entry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Fixed-width so created_at sorts lexically
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store is the SQLite implementation of the config entry registry
type Store struct {
	db      *DB
	secrets SecretStore
}

// NewStore creates a Store; passwords go through secrets
func NewStore(db *DB, secrets SecretStore) *Store {
	return &Store{db: db, secrets: secrets}
}

// HasUniqueID reports whether an entry with uniqueID is registered under domain
func (s *Store) HasUniqueID(ctx context.Context, domain, uniqueID string) (bool, error) {
	const query = `SELECT COUNT(1) FROM config_entries WHERE domain = ? AND unique_id = ?`

	var n int
	if err := s.db.Reader.QueryRowContext(ctx, query, domain, uniqueID).Scan(&n); err != nil {
		return false, fmt.Errorf("check unique id %q: %w", uniqueID, err)
	}
	return n > 0, nil
}

// CreateEntry inserts e. Returns ErrAlreadyConfigured when domain/unique id is taken.
func (s *Store) CreateEntry(ctx context.Context, e *Entry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	sealed, err := s.secrets.Seal(e.EntryID, e.Data.Password)
	if err != nil {
		return fmt.Errorf("seal password for %q: %w", e.UniqueID, err)
	}

	const query = `INSERT INTO config_entries (entry_id, domain, unique_id, title, username, secret, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err = s.db.Writer.ExecContext(ctx, query,
		e.EntryID, e.Domain, e.UniqueID, e.Title, e.Data.Username, sealed, e.CreatedAt.UTC().Format(timeLayout))
	if err != nil {
		_ = s.secrets.Forget(e.EntryID)
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrAlreadyConfigured
		}
		return fmt.Errorf("insert entry %q: %w", e.UniqueID, err)
	}

	return nil
}

// Get returns the entry with entryID, password included
func (s *Store) Get(ctx context.Context, entryID string) (*Entry, error) {
	const query = `SELECT entry_id, domain, unique_id, title, username, secret, created_at
		FROM config_entries WHERE entry_id = ?`

	e, err := s.scan(s.db.Reader.QueryRowContext(ctx, query, entryID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get entry %q: %w", entryID, err)
	}
	return e, nil
}

// List returns every entry of domain ordered by creation time
func (s *Store) List(ctx context.Context, domain string) ([]*Entry, error) {
	const query = `SELECT entry_id, domain, unique_id, title, username, secret, created_at
		FROM config_entries WHERE domain = ? ORDER BY created_at, unique_id`

	rows, err := s.db.Reader.QueryContext(ctx, query, domain)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	entries := make([]*Entry, 0)
	for rows.Next() {
		e, err := s.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}

	return entries, nil
}

// Delete removes the entry and its stored secret
func (s *Store) Delete(ctx context.Context, entryID string) error {
	const query = `DELETE FROM config_entries WHERE entry_id = ?`

	res, err := s.db.Writer.ExecContext(ctx, query, entryID)
	if err != nil {
		return fmt.Errorf("delete entry %q: %w", entryID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}

	return s.secrets.Forget(entryID)
}

type scanner interface {
	Scan(dest ...any) error
}

func (s *Store) scan(row scanner) (*Entry, error) {
	var (
		e         Entry
		sealed    string
		createdAt string
	)
	if err := row.Scan(&e.EntryID, &e.Domain, &e.UniqueID, &e.Title, &e.Data.Username, &sealed, &createdAt); err != nil {
		return nil, err
	}

	password, err := s.secrets.Open(e.EntryID, sealed)
	if err != nil {
		return nil, fmt.Errorf("open password for %q: %w", e.UniqueID, err)
	}
	e.Data.Password = password

	e.CreatedAt, err = time.Parse(timeLayout, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at for %q: %w", e.UniqueID, err)
	}

	return &e, nil
}
