package backend

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AbdelrahmanEffat/Network-Impact-Analyzer/pkg/snapshot"
	"github.com/AbdelrahmanEffat/Network-Impact-Analyzer/pkg/store"
	"github.com/AbdelrahmanEffat/Network-Impact-Analyzer/pkg/table"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		cfg     Config
		wantErr string
	}{
		{Config{Kind: KindDir, DataDir: "."}, ""},
		{Config{Kind: KindDir}, "data-dir"},
		{Config{Kind: KindS3}, "s3-bucket"},
		{Config{Kind: KindSQLite}, "db-path"},
		{Config{Kind: KindRedis}, "redis-addr"},
		{Config{Kind: KindPostgres}, "postgres-dsn"},
		{Config{Kind: "ftp"}, "unsupported"},
	}
	for _, tt := range tests {
		err := tt.cfg.Validate()
		if tt.wantErr == "" {
			assert.NoError(t, err, tt.cfg.Kind)
		} else {
			assert.ErrorContains(t, err, tt.wantErr, tt.cfg.Kind)
		}
	}
}

func TestDefaultNames(t *testing.T) {
	assert.Equal(t, snapshot.BlobNames, Config{Kind: KindDir}.DefaultNames())
	assert.Equal(t, snapshot.TableNames, Config{Kind: KindRedis}.DefaultNames())
}

func TestOpenSource_Dir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "wan.csv"), []byte("from,to\nA,B\n"), 0o644))

	src, closeFn, err := OpenSource(context.Background(), Config{Kind: KindDir, DataDir: dir})
	require.NoError(t, err)
	defer closeFn()

	tb, err := src.LoadTable(context.Background(), "wan.csv")
	require.NoError(t, err)
	assert.Equal(t, 1, tb.Len())
}

func TestOpenTables_SQLite(t *testing.T) {
	ctx := context.Background()
	tables, err := OpenTables(ctx, Config{Kind: KindSQLite, DBPath: filepath.Join(t.TempDir(), "nia.db")})
	require.NoError(t, err)
	defer tables.Close()
	require.NotNil(t, tables.Locker)

	agg := table.New("agg", []string{"from", "to"}, [][]string{{"BNG-1", "AGG-1"}})
	require.NoError(t, store.Import(ctx, tables.Store, tables.Locker, agg, "test", time.Minute))

	src, closeFn, err := OpenSource(ctx, Config{Kind: KindSQLite, DBPath: filepath.Join(t.TempDir(), "other.db")})
	require.NoError(t, err)
	defer closeFn()
	_, err = src.LoadTable(ctx, "agg")
	assert.ErrorIs(t, err, store.ErrTableNotFound)

	got, err := tables.Store.LoadTable(ctx, "agg")
	require.NoError(t, err)
	assert.Equal(t, []string{"BNG-1", "AGG-1"}, got.Row(0))
}

func TestOpenTables_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	tables, err := OpenTables(ctx, Config{Kind: KindRedis, RedisAddr: mr.Addr()})
	require.NoError(t, err)
	defer tables.Close()

	require.NoError(t, store.Import(ctx, tables.Store, tables.Locker, table.New("wan", []string{"from", "to"}, nil), "test", time.Minute))
	infos, err := tables.Store.ListTables(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, "wan", infos[0].Name)
}

func TestOpenTables_RedisUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := OpenTables(context.Background(), Config{Kind: KindRedis, RedisAddr: addr})
	assert.ErrorContains(t, err, "redis unreachable")
}

func TestOpenTables_NotDatabase(t *testing.T) {
	_, err := OpenTables(context.Background(), Config{Kind: KindDir, DataDir: "."})
	assert.Error(t, err)
}
