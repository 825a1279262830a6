// Package postgres stores snapshot tables in PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/AbdelrahmanEffat/Network-Impact-Analyzer/pkg/store"
	"github.com/AbdelrahmanEffat/Network-Impact-Analyzer/pkg/table"
)

// TableStore implements store.TableStore on a pgx pool with the same
// cell-per-row layout as the SQLite store.
type TableStore struct {
	pool *pgxpool.Pool
}

// NewTableStore connects, verifies the connection and migrates.
func NewTableStore(ctx context.Context, databaseURL string) (*TableStore, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}
	config.MaxConns = 8
	config.MaxConnLifetime = 5 * time.Minute
	config.MaxConnIdleTime = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}

	s := &TableStore{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	return s, nil
}

// Close closes the connection pool.
func (s *TableStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *TableStore) migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
	CREATE TABLE IF NOT EXISTS snapshot_tables (
		table_name TEXT PRIMARY KEY,
		row_count INTEGER NOT NULL,
		imported_at TIMESTAMPTZ NOT NULL DEFAULT now()
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
	`)
	return err
}

// SaveTable replaces the stored copy of t, bulk loading cells with COPY.
func (s *TableStore) SaveTable(ctx context.Context, t *table.Table) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	name := t.Name()
	if _, err := tx.Exec(ctx, `DELETE FROM snapshot_tables WHERE table_name = $1`, name); err != nil {
		return fmt.Errorf("failed to clear table %s: %w", name, err)
	}
	if _, err := tx.Exec(ctx, `INSERT INTO snapshot_tables (table_name, row_count) VALUES ($1, $2)`, name, t.Len()); err != nil {
		return fmt.Errorf("failed to register table %s: %w", name, err)
	}

	columns := make([][]any, 0, len(t.Columns()))
	for i, c := range t.Columns() {
		columns = append(columns, []any{name, i, c})
	}
	if _, err := tx.CopyFrom(ctx, pgx.Identifier{"snapshot_columns"}, []string{"table_name", "position", "name"}, pgx.CopyFromRows(columns)); err != nil {
		return fmt.Errorf("failed to copy columns of %s: %w", name, err)
	}

	var cells [][]any
	for r := 0; r < t.Len(); r++ {
		for c, v := range t.Row(r) {
			cells = append(cells, []any{name, r, c, v})
		}
	}
	if _, err := tx.CopyFrom(ctx, pgx.Identifier{"snapshot_cells"}, []string{"table_name", "row_idx", "position", "value"}, pgx.CopyFromRows(cells)); err != nil {
		return fmt.Errorf("failed to copy cells of %s: %w", name, err)
	}

	return tx.Commit(ctx)
}

// LoadTable reads a stored table back.
func (s *TableStore) LoadTable(ctx context.Context, name string) (*table.Table, error) {
	var rowCount int
	err := s.pool.QueryRow(ctx, `SELECT row_count FROM snapshot_tables WHERE table_name = $1`, name).Scan(&rowCount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", store.ErrTableNotFound, name)
		}
		return nil, fmt.Errorf("failed to look up table %s: %w", name, err)
	}

	colRows, err := s.pool.Query(ctx, `SELECT name FROM snapshot_columns WHERE table_name = $1 ORDER BY position`, name)
	if err != nil {
		return nil, fmt.Errorf("failed to query columns: %w", err)
	}
	columns, err := pgx.CollectRows(colRows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan columns: %w", err)
	}

	rows := make([][]string, rowCount)
	for i := range rows {
		rows[i] = make([]string, len(columns))
	}
	cells, err := s.pool.Query(ctx, `SELECT row_idx, position, value FROM snapshot_cells WHERE table_name = $1`, name)
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
func (s *TableStore) ListTables(ctx context.Context) ([]store.TableInfo, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT t.table_name, t.row_count, t.imported_at,
			(SELECT COUNT(*) FROM snapshot_columns c WHERE c.table_name = t.table_name)::int
		FROM snapshot_tables t
		ORDER BY t.table_name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()

	var out []store.TableInfo
	for rows.Next() {
		var info store.TableInfo
		if err := rows.Scan(&info.Name, &info.Rows, &info.ImportedAt, &info.Columns); err != nil {
			return nil, fmt.Errorf("failed to scan table info: %w", err)
		}
		out = append(out, info)
	}
	return out, rows.Err()
}
