package credstore

import (
	"context"
	"database/sql"
	"errors"
)

// PostgresStore persists identity records in the credential_records table,
// one row per (namespace, account). Intended for server-side deployments
// where the agent shares a database with its host service.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore returns a Store that uses the given db for persistence.
// The schema is managed by the embedded migrations (cmd/migrate).
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Save upserts the value for account. Last write wins.
func (s *PostgresStore) Save(ctx context.Context, account, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO credential_records (namespace, account, value, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (namespace, account)
		DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		Namespace, account, value)
	return err
}

// Load returns the value for account, or ErrNotFound.
// It returns other errors only for database failures, not for missing rows.
func (s *PostgresStore) Load(ctx context.Context, account string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `
		SELECT value FROM credential_records WHERE namespace = $1 AND account = $2`,
		Namespace, account).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

// Delete removes the row for account. Deleting a missing row is not an error.
func (s *PostgresStore) Delete(ctx context.Context, account string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM credential_records WHERE namespace = $1 AND account = $2`,
		Namespace, account)
	return err
}
