// Package lock provides per-key single-flight locks so that at most one
// check runs for a booking at a time, across goroutines or processes.
package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrNotAcquired is returned when the key is already held.
var ErrNotAcquired = errors.New("lock not acquired")

// Locker acquires exclusive, expiring locks on string keys.
type Locker interface {
	// TryLock takes the lock for key without waiting. It returns
	// ErrNotAcquired when another holder owns it. The returned func
	// releases the lock and is safe to call more than once.
	TryLock(ctx context.Context, key string, ttl time.Duration) (release func(), err error)
}

const keyPrefix = "hpt:lock:"

// releaseScript deletes the key only if it still holds our token, so an
// expired lock re-taken by someone else is never released by us.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker implements Locker with SET NX PX and a token-checked release.
type RedisLocker struct {
	client redis.UniversalClient
}

// NewRedisLocker creates a Locker backed by the given Redis client.
func NewRedisLocker(client redis.UniversalClient) *RedisLocker {
	return &RedisLocker{client: client}
}

// TryLock implements Locker.
func (l *RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	token := uuid.NewString()
	k := keyPrefix + key

	ok, err := l.client.SetNX(ctx, k, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquiring lock %s: %w", key, err)
	}
	if !ok {
		return nil, ErrNotAcquired
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// Release must run even when the caller's context is already done.
			ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
			defer cancel()
			_ = releaseScript.Run(ctx, l.client, []string{k}, token).Err()
		})
	}, nil
}

// LocalLocker implements Locker in process memory. It serves single
// instance deployments without Redis.
type LocalLocker struct {
	mu      sync.Mutex
	held    map[string]localEntry
	nowFunc func() time.Time
}

type localEntry struct {
	token     uint64
	expiresAt time.Time
}

// NewLocalLocker creates an in-process Locker.
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{
		held:    make(map[string]localEntry),
		nowFunc: time.Now,
	}
}

var localTokens struct {
	sync.Mutex
	next uint64
}

// TryLock implements Locker.
func (l *LocalLocker) TryLock(_ context.Context, key string, ttl time.Duration) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.nowFunc()
	if e, ok := l.held[key]; ok && now.Before(e.expiresAt) {
		return nil, ErrNotAcquired
	}

	localTokens.Lock()
	localTokens.next++
	token := localTokens.next
	localTokens.Unlock()

	l.held[key] = localEntry{token: token, expiresAt: now.Add(ttl)}

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			if e, ok := l.held[key]; ok && e.token == token {
				delete(l.held, key)
			}
		})
	}, nil
}

// Connect opens a Redis client and verifies it with PING.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", addr, err)
	}
	return client, nil
}
