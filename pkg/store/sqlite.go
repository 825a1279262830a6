package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/AbdelrahmanEffat/Network-Impact-Analyzer/pkg/table"
)

// Store manages the SQLite connection and schema.
type Store struct {
	db *sql.DB
}

// NewStore initializes the SQLite database connection.
// It enables WAL mode for concurrency and durability.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping sqlite db: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON;"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("schema migration failed: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the necessary tables if they don't exist.
func (s *Store) migrate() error {
	// Tables are stored cell by cell so any header shape round-trips.
	query := `
	CREATE TABLE IF NOT EXISTS snapshot_tables (
		table_name TEXT PRIMARY KEY,
		row_count INTEGER NOT NULL,
		imported_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS snapshot_columns (
		table_name TEXT NOT NULL REFERENCES snapshot_tables(table_name) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		name TEXT NOT NULL,
		PRIMARY KEY (table_name, position)
	);

	CREATE TABLE IF NOT EXISTS snapshot_cells (
		table_name TEXT NOT NULL REFERENCES snapshot_tables(table_name) ON DELETE CASCADE,
		row_idx INTEGER NOT NULL,
		position INTEGER NOT NULL,
		value TEXT NOT NULL,
		PRIMARY KEY (table_name, row_idx, position)
	);

	CREATE TABLE IF NOT EXISTS import_locks (
		table_name TEXT PRIMARY KEY,
		holder_id TEXT NOT NULL,
		expires_at DATETIME NOT NULL
	);
	`

	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("failed to create snapshot tables: %w", err)
	}
	return nil
}

// SaveTable replaces the stored copy of t in one transaction.
func (s *Store) SaveTable(ctx context.Context, t *table.Table) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM snapshot_tables WHERE table_name = ?`, t.Name()); err != nil {
		return fmt.Errorf("failed to clear table %s: %w", t.Name(), err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO snapshot_tables (table_name, row_count, imported_at) VALUES (?, ?, ?)
	`, t.Name(), t.Len(), time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to register table %s: %w", t.Name(), err)
	}

	colStmt, err := tx.PrepareContext(ctx, `INSERT INTO snapshot_columns (table_name, position, name) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare column insert: %w", err)
	}
	defer colStmt.Close()
	for i, c := range t.Columns() {
		if _, err := colStmt.ExecContext(ctx, t.Name(), i, c); err != nil {
			return fmt.Errorf("failed to insert column %s: %w", c, err)
		}
	}

	cellStmt, err := tx.PrepareContext(ctx, `INSERT INTO snapshot_cells (table_name, row_idx, position, value) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare cell insert: %w", err)
	}
	defer cellStmt.Close()
	for r := 0; r < t.Len(); r++ {
		for c, v := range t.Row(r) {
			if _, err := cellStmt.ExecContext(ctx, t.Name(), r, c, v); err != nil {
				return fmt.Errorf("failed to insert row %d: %w", r, err)
			}
		}
	}

	return tx.Commit()
}

// LoadTable reads a stored table back.
func (s *Store) LoadTable(ctx context.Context, name string) (*table.Table, error) {
	var rowCount int
	err := s.db.QueryRowContext(ctx, `SELECT row_count FROM snapshot_tables WHERE table_name = ?`, name).Scan(&rowCount)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrTableNotFound, name)
		}
		return nil, fmt.Errorf("failed to look up table %s: %w", name, err)
	}

	colRows, err := s.db.QueryContext(ctx, `SELECT name FROM snapshot_columns WHERE table_name = ? ORDER BY position`, name)
	if err != nil {
		return nil, fmt.Errorf("failed to query columns: %w", err)
	}
	defer colRows.Close()
	var columns []string
	for colRows.Next() {
		var c string
		if err := colRows.Scan(&c); err != nil {
			return nil, fmt.Errorf("failed to scan column: %w", err)
		}
		columns = append(columns, c)
	}
	if err := colRows.Err(); err != nil {
		return nil, err
	}

	rows := make([][]string, rowCount)
	for i := range rows {
		rows[i] = make([]string, len(columns))
	}
	cells, err := s.db.QueryContext(ctx, `SELECT row_idx, position, value FROM snapshot_cells WHERE table_name = ?`, name)
	if err != nil {
		return nil, fmt.Errorf("failed to query cells: %w", err)
	}
	defer cells.Close()
	for cells.Next() {
		var r, c int
		var v string
		if err := cells.Scan(&r, &c, &v); err != nil {
			return nil, fmt.Errorf("failed to scan cell: %w", err)
		}
		if r < len(rows) && c < len(columns) {
			rows[r][c] = v
		}
	}
	if err := cells.Err(); err != nil {
		return nil, err
	}

	return table.New(name, columns, rows), nil
}

// ListTables returns every stored table ordered by name.
func (s *Store) ListTables(ctx context.Context) ([]TableInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.table_name, t.row_count, t.imported_at,
			(SELECT COUNT(*) FROM snapshot_columns c WHERE c.table_name = t.table_name)
		FROM snapshot_tables t
		ORDER BY t.table_name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()

	var out []TableInfo
	for rows.Next() {
		var info TableInfo
		if err := rows.Scan(&info.Name, &info.Rows, &info.ImportedAt, &info.Columns); err != nil {
			return nil, fmt.Errorf("failed to scan table info: %w", err)
		}
		out = append(out, info)
	}
	return out, rows.Err()
}
