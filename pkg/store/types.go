// Package store persists imported topology and report tables so the
// daemon can load a snapshot without the original CSV exports.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/AbdelrahmanEffat/Network-Impact-Analyzer/pkg/table"
)

var (
	// ErrTableNotFound is returned when no table is stored under a name.
	ErrTableNotFound = errors.New("table not found")
	// ErrImportLocked is returned when another importer holds the table.
	ErrImportLocked = errors.New("table import already in progress")
)

// TableInfo describes a stored table.
type TableInfo struct {
	Name       string    `json:"name"`
	Columns    int       `json:"columns"`
	Rows       int       `json:"rows"`
	ImportedAt time.Time `json:"imported_at"`
}

// TableStore saves and loads whole tables. SaveTable replaces any table of
// the same name.
type TableStore interface {
	SaveTable(ctx context.Context, t *table.Table) error
	LoadTable(ctx context.Context, name string) (*table.Table, error)
	ListTables(ctx context.Context) ([]TableInfo, error)
}

// ImportLock is a claim on a table name held by one importer.
type ImportLock struct {
	Name      string    `json:"name"`
	HolderID  string    `json:"holder_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ImportLocker serialises imports of the same table across processes.
type ImportLocker interface {
	// Lock claims the table. Returns true if successful; an existing claim
	// by holderID is extended.
	Lock(ctx context.Context, name, holderID string, ttl time.Duration) (bool, error)

	// Unlock releases the claim if held by holderID.
	Unlock(ctx context.Context, name, holderID string) error

	// Holder returns the current claim, or nil.
	Holder(ctx context.Context, name string) (*ImportLock, error)
}

// Import writes t under the protection of locker. A nil locker saves
// directly.
func Import(ctx context.Context, ts TableStore, locker ImportLocker, t *table.Table, holderID string, ttl time.Duration) error {
	if locker != nil {
		ok, err := locker.Lock(ctx, t.Name(), holderID, ttl)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: %s", ErrImportLocked, t.Name())
		}
		defer locker.Unlock(context.WithoutCancel(ctx), t.Name(), holderID)
	}
	if err := ts.SaveTable(ctx, t); err != nil {
		return fmt.Errorf("failed to save table %s: %w", t.Name(), err)
	}
	return nil
}
