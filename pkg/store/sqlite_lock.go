package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Lock claims a table for import. Returns true if successful.
// If the claim is already held by holderID, it is extended.
func (s *Store) Lock(ctx context.Context, name, holderID string, ttl time.Duration) (bool, error) {
	now := time.Now().UTC()
	expiry := now.Add(ttl)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO import_locks (table_name, holder_id, expires_at)
		VALUES (?, ?, ?)
	`, name, holderID, expiry)
	if err == nil {
		return true, nil
	}

	// Already claimed: take over if expired or ours, in one statement.
	res, err := s.db.ExecContext(ctx, `
		UPDATE import_locks
		SET holder_id = ?, expires_at = ?
		WHERE table_name = ? AND (holder_id = ? OR expires_at < ?)
	`, holderID, expiry, name, holderID, now)
	if err != nil {
		return false, fmt.Errorf("failed to update import lock: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check rows affected: %w", err)
	}
	return rows > 0, nil
}

// Unlock releases the claim if held by holderID.
func (s *Store) Unlock(ctx context.Context, name, holderID string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM import_locks WHERE table_name = ? AND holder_id = ?
	`, name, holderID)
	if err != nil {
		return fmt.Errorf("failed to release import lock: %w", err)
	}
	return nil
}

// Holder returns the current claim on a table.
func (s *Store) Holder(ctx context.Context, name string) (*ImportLock, error) {
	var l ImportLock
	err := s.db.QueryRowContext(ctx, `
		SELECT table_name, holder_id, expires_at
		FROM import_locks WHERE table_name = ?
	`, name).Scan(&l.Name, &l.HolderID, &l.ExpiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get import lock: %w", err)
	}
	return &l, nil
}
