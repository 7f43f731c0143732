package lock

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock key only if this holder still owns it, so
// an expired-and-reacquired lock is never released out from under the new
// holder.
const releaseScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`

// RedisLock implements CycleLock with SET NX PX against a shared Redis, for
// deployments where cycles can fire from more than one host.
type RedisLock struct {
	client *redis.Client
	key    string
	ttl    time.Duration
	token  string
}

// NewRedisLock connects to Redis and returns a lock on the given key.
func NewRedisLock(addr, password string, db int, key string, ttl time.Duration) (*RedisLock, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	if ttl <= 0 {
		ttl = 10 * time.Minute
	}

	log.Printf("[Lock] Using Redis cycle lock at %s (key %s)", addr, key)
	return &RedisLock{client: client, key: key, ttl: ttl}, nil
}

// Acquire takes the lock or returns ErrHeld. The TTL bounds how long a
// crashed holder can block other cycles.
func (l *RedisLock) Acquire(ctx context.Context) error {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to acquire Redis lock: %w", err)
	}
	if !ok {
		return ErrHeld
	}
	l.token = token
	return nil
}

// Release gives the lock back if this holder still owns it.
func (l *RedisLock) Release(ctx context.Context) error {
	if l.token == "" {
		return nil
	}
	err := l.client.Eval(ctx, releaseScript, []string{l.key}, l.token).Err()
	l.token = ""
	if err != nil && err != redis.Nil {
		return fmt.Errorf("failed to release Redis lock: %w", err)
	}
	return nil
}

// Close releases the underlying Redis connection.
func (l *RedisLock) Close() error {
	return l.client.Close()
}
