// Package backend opens the configured snapshot source or table store.
package backend

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/AbdelrahmanEffat/Network-Impact-Analyzer/pkg/blob"
	"github.com/AbdelrahmanEffat/Network-Impact-Analyzer/pkg/snapshot"
	"github.com/AbdelrahmanEffat/Network-Impact-Analyzer/pkg/store"
	"github.com/AbdelrahmanEffat/Network-Impact-Analyzer/pkg/store/postgres"
	storeredis "github.com/AbdelrahmanEffat/Network-Impact-Analyzer/pkg/store/redis"
)

// Kinds of backend.
const (
	KindDir      = "dir"
	KindS3       = "s3"
	KindSQLite   = "sqlite"
	KindRedis    = "redis"
	KindPostgres = "postgres"
)

// Kinds lists every accepted kind.
var Kinds = []string{KindDir, KindS3, KindSQLite, KindRedis, KindPostgres}

// Config selects and locates a backend.
type Config struct {
	Kind        string
	DataDir     string
	S3Bucket    string
	S3Prefix    string
	DBPath      string
	RedisAddr   string
	PostgresDSN string
}

// IsDatabase reports whether the kind stores imported tables rather than
// CSV exports.
func (c Config) IsDatabase() bool {
	switch c.Kind {
	case KindSQLite, KindRedis, KindPostgres:
		return true
	}
	return false
}

// DefaultNames are the table names a kind is read with unless configured.
func (c Config) DefaultNames() snapshot.Names {
	if c.IsDatabase() {
		return snapshot.TableNames
	}
	return snapshot.BlobNames
}

// Validate checks that the selected kind has its location.
func (c Config) Validate() error {
	switch c.Kind {
	case KindDir:
		if c.DataDir == "" {
			return fmt.Errorf("source %s requires data-dir", c.Kind)
		}
	case KindS3:
		if c.S3Bucket == "" {
			return fmt.Errorf("source %s requires s3-bucket", c.Kind)
		}
	case KindSQLite:
		if c.DBPath == "" {
			return fmt.Errorf("source %s requires db-path", c.Kind)
		}
	case KindRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("source %s requires redis-addr", c.Kind)
		}
	case KindPostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("source %s requires postgres-dsn", c.Kind)
		}
	default:
		return fmt.Errorf("unsupported source: %q", c.Kind)
	}
	return nil
}

// Tables is an open database backend. Locker is nil when the backend has
// no import lock.
type Tables struct {
	Store  store.TableStore
	Locker store.ImportLocker
	Close  func() error
}

// OpenTables opens a database backend for imports and reads.
func OpenTables(ctx context.Context, c Config) (*Tables, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	switch c.Kind {
	case KindSQLite:
		st, err := store.NewStore(c.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		return &Tables{Store: st, Locker: st, Close: st.Close}, nil
	case KindRedis:
		client := redis.NewClient(&redis.Options{Addr: c.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("redis unreachable: %w", err)
		}
		return &Tables{
			Store:  storeredis.NewTableStore(client),
			Locker: storeredis.NewImportLocker(client),
			Close:  client.Close,
		}, nil
	case KindPostgres:
		st, err := postgres.NewTableStore(ctx, c.PostgresDSN)
		if err != nil {
			return nil, err
		}
		return &Tables{Store: st, Close: st.Close}, nil
	}
	return nil, fmt.Errorf("source %s is not a database", c.Kind)
}

// OpenSource opens any kind for snapshot loading. The returned close
// function is never nil.
func OpenSource(ctx context.Context, c Config) (snapshot.Source, func() error, error) {
	if err := c.Validate(); err != nil {
		return nil, nil, err
	}
	switch c.Kind {
	case KindDir:
		return snapshot.BlobSource{Store: blob.NewLocalBlobStore(c.DataDir)}, noop, nil
	case KindS3:
		bs, err := blob.NewS3BlobStoreFromEnv(ctx, c.S3Bucket, c.S3Prefix)
		if err != nil {
			return nil, nil, err
		}
		return snapshot.BlobSource{Store: bs}, noop, nil
	}
	t, err := OpenTables(ctx, c)
	if err != nil {
		return nil, nil, err
	}
	return t.Store, t.Close, nil
}

func noop() error { return nil }
