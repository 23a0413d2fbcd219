package attendance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Locker serializes work per employee. The returned release func must be
// called exactly once.
type Locker interface {
	Lock(ctx context.Context, employeeID int64) (func(), error)
}

// KeyedMutex is an in-process Locker. Entries are dropped once no caller
// holds or waits on them.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[int64]*keyedEntry
}

type keyedEntry struct {
	sem  chan struct{}
	refs int
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[int64]*keyedEntry)}
}

func (k *KeyedMutex) Lock(ctx context.Context, employeeID int64) (func(), error) {
	k.mu.Lock()
	entry, ok := k.locks[employeeID]
	if !ok {
		entry = &keyedEntry{sem: make(chan struct{}, 1)}
		k.locks[employeeID] = entry
	}
	entry.refs++
	k.mu.Unlock()

	select {
	case entry.sem <- struct{}{}:
	case <-ctx.Done():
		k.unref(employeeID, entry)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-entry.sem
			k.unref(employeeID, entry)
		})
	}, nil
}

func (k *KeyedMutex) unref(employeeID int64, entry *keyedEntry) {
	k.mu.Lock()
	defer k.mu.Unlock()
	entry.refs--
	if entry.refs == 0 {
		delete(k.locks, employeeID)
	}
}

// size reports the number of live entries.
func (k *KeyedMutex) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}

// RedisClient is the subset of redis.Cmdable used by RedisLocker.
type RedisClient interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// releaseScript deletes the key only while it still holds our token, so
// an expired lock taken over by another process is left alone.
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`

const (
	DefaultLockTTL   = 30 * time.Second
	defaultRetryWait = 50 * time.Millisecond
)

// RedisLocker is a Locker shared by every process using the same Redis.
type RedisLocker struct {
	client    RedisClient
	ttl       time.Duration
	retryWait time.Duration
	logger    *slog.Logger
}

func NewRedisLocker(client RedisClient, ttl time.Duration, logger *slog.Logger) *RedisLocker {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	return &RedisLocker{
		client:    client,
		ttl:       ttl,
		retryWait: defaultRetryWait,
		logger:    logger.With("component", "redis_locker"),
	}
}

func lockKey(employeeID int64) string {
	return fmt.Sprintf("ponto:attendance-lock:%d", employeeID)
}

// Lock polls SET NX PX until it wins or ctx is done.
func (l *RedisLocker) Lock(ctx context.Context, employeeID int64) (func(), error) {
	key := lockKey(employeeID)
	token := uuid.NewString()

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire %s: %w", key, err)
		}
		if ok {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.retryWait):
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			err := l.client.Eval(releaseCtx, releaseScript, []string{key}, token).Err()
			if err != nil && !errors.Is(err, redis.Nil) {
				l.logger.Warn("release lock failed",
					slog.String("key", key),
					slog.String("error", err.Error()),
				)
			}
		})
	}, nil
}

var (
	_ Locker = (*KeyedMutex)(nil)
	_ Locker = (*RedisLocker)(nil)
)
