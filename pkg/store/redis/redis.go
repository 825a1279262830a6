package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/AbdelrahmanEffat/Network-Impact-Analyzer/pkg/store"
	"github.com/AbdelrahmanEffat/Network-Impact-Analyzer/pkg/table"
)

const tablesSet = "nia:tables"

// TableStore keeps tables in Redis: the header as a JSON array and the
// rows as a list of JSON arrays.
type TableStore struct {
	client *redis.Client
}

func NewTableStore(client *redis.Client) *TableStore {
	return &TableStore{client: client}
}

func (s *TableStore) columnsKey(name string) string {
	return fmt.Sprintf("nia:table:%s:columns", name)
}

func (s *TableStore) rowsKey(name string) string {
	return fmt.Sprintf("nia:table:%s:rows", name)
}

func (s *TableStore) metaKey(name string) string {
	return fmt.Sprintf("nia:table:%s:meta", name)
}

// SaveTable replaces the table atomically in one MULTI/EXEC block.
func (s *TableStore) SaveTable(ctx context.Context, t *table.Table) error {
	name := t.Name()
	header, err := json.Marshal(t.Columns())
	if err != nil {
		return fmt.Errorf("failed to marshal columns: %w", err)
	}
	rows := make([]any, 0, t.Len())
	for r := 0; r < t.Len(); r++ {
		data, err := json.Marshal(t.Row(r))
		if err != nil {
			return fmt.Errorf("failed to marshal row %d: %w", r, err)
		}
		rows = append(rows, data)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.rowsKey(name))
		pipe.Set(ctx, s.columnsKey(name), header, 0)
		if len(rows) > 0 {
			pipe.RPush(ctx, s.rowsKey(name), rows...)
		}
		pipe.HSet(ctx, s.metaKey(name), "imported_at", time.Now().UTC().Format(time.RFC3339Nano))
		pipe.SAdd(ctx, tablesSet, name)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save table %s: %w", name, err)
	}
	return nil
}

// LoadTable reads a table back.
func (s *TableStore) LoadTable(ctx context.Context, name string) (*table.Table, error) {
	header, err := s.client.Get(ctx, s.columnsKey(name)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: %s", store.ErrTableNotFound, name)
		}
		return nil, fmt.Errorf("failed to GET columns of %s: %w", name, err)
	}
	var columns []string
	if err := json.Unmarshal([]byte(header), &columns); err != nil {
		return nil, fmt.Errorf("failed to unmarshal columns of %s: %w", name, err)
	}

	raw, err := s.client.LRange(ctx, s.rowsKey(name), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to LRANGE rows of %s: %w", name, err)
	}
	rows := make([][]string, len(raw))
	for i, r := range raw {
		if err := json.Unmarshal([]byte(r), &rows[i]); err != nil {
			return nil, fmt.Errorf("failed to unmarshal row %d of %s: %w", i, name, err)
		}
	}
	return table.New(name, columns, rows), nil
}

// ListTables returns every stored table ordered by name.
func (s *TableStore) ListTables(ctx context.Context) ([]store.TableInfo, error) {
	names, err := s.client.SMembers(ctx, tablesSet).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to SMEMBERS %s: %w", tablesSet, err)
	}
	sort.Strings(names)

	out := make([]store.TableInfo, 0, len(names))
	for _, name := range names {
		info := store.TableInfo{Name: name}
		header, err := s.client.Get(ctx, s.columnsKey(name)).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return nil, fmt.Errorf("failed to GET columns of %s: %w", name, err)
		}
		var columns []string
		if err := json.Unmarshal([]byte(header), &columns); err == nil {
			info.Columns = len(columns)
		}
		n, err := s.client.LLen(ctx, s.rowsKey(name)).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to LLEN rows of %s: %w", name, err)
		}
		info.Rows = int(n)
		if at, err := s.client.HGet(ctx, s.metaKey(name), "imported_at").Result(); err == nil {
			info.ImportedAt, _ = time.Parse(time.RFC3339Nano, strings.TrimSpace(at))
		}
		out = append(out, info)
	}
	return out, nil
}
