package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/AbdelrahmanEffat/Network-Impact-Analyzer/pkg/store"
)

// ImportLocker implements store.ImportLocker with expiring keys.
type ImportLocker struct {
	client *redis.Client
}

func NewImportLocker(client *redis.Client) *ImportLocker {
	return &ImportLocker{client: client}
}

func (l *ImportLocker) makeKey(name string) string {
	return fmt.Sprintf("nia:import-lock:%s", name)
}

// Lua: extend the key only if the caller still holds it.
const extendScript = `
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("PEXPIRE", KEYS[1], ARGV[2])
	else
		return 0
	end
`

const releaseScript = `
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	else
		return 0
	end
`

func (l *ImportLocker) Lock(ctx context.Context, name, holderID string, ttl time.Duration) (bool, error) {
	key := l.makeKey(name)

	ok, err := l.client.SetNX(ctx, key, holderID, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire import lock: %w", err)
	}
	if ok {
		return true, nil
	}

	res, err := l.client.Eval(ctx, extendScript, []string{key}, holderID, ttl.Milliseconds()).Result()
	if err != nil {
		return false, fmt.Errorf("failed to execute extend script: %w", err)
	}
	extended, ok := res.(int64)
	if !ok {
		return false, fmt.Errorf("unexpected return type from extend script")
	}
	return extended == 1, nil
}

func (l *ImportLocker) Unlock(ctx context.Context, name, holderID string) error {
	// Releasing a claim that already expired or moved on is not an error.
	if _, err := l.client.Eval(ctx, releaseScript, []string{l.makeKey(name)}, holderID).Result(); err != nil {
		return fmt.Errorf("failed to execute release script: %w", err)
	}
	return nil
}

func (l *ImportLocker) Holder(ctx context.Context, name string) (*store.ImportLock, error) {
	key := l.makeKey(name)

	val, err := l.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get import lock: %w", err)
	}

	ttl, err := l.client.PTTL(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get import lock ttl: %w", err)
	}

	return &store.ImportLock{
		Name:      name,
		HolderID:  val,
		ExpiresAt: time.Now().Add(ttl),
	}, nil
}
