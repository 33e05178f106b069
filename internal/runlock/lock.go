package runlock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// RunKey guards the products table. Imports and marketing sweeps share it so
// only one of them writes at a time.
const RunKey = "dropimator:lock:run"

var (
	ErrLocked   = errors.New("another run holds the lock")
	ErrLockLost = errors.New("run lock no longer held")
)

// release deletes the key only while it still carries our token.
var release = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// refresh resets the TTL only while the key still carries our token.
var refresh = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

type Locker struct {
	Client *redis.Client
}

// New parses a redis:// URL. An empty URL yields a nil Locker, which
// acquires nothing and lets the run proceed unlocked.
func New(redisURL string) (*Locker, error) {
	if redisURL == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	return &Locker{Client: redis.NewClient(opts)}, nil
}

// Lock is a held lock. A nil Lock releases nothing.
type Lock struct {
	client *redis.Client
	key    string
	token  string
}

// Acquire takes key for ttl or returns ErrLocked when someone else holds it.
func (l *Locker) Acquire(ctx context.Context, key string, ttl time.Duration) (*Lock, error) {
	if l == nil {
		log.Debug().Str("key", key).Msg("no redis configured, running unlocked")
		return nil, nil
	}

	token := uuid.New().String()
	ok, err := l.Client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLocked, key)
	}
	log.Info().Str("key", key).Dur("ttl", ttl).Msg("run lock acquired")
	return &Lock{client: l.Client, key: key, token: token}, nil
}

func (l *Locker) Close() error {
	if l == nil {
		return nil
	}
	return l.Client.Close()
}

// Refresh pushes the expiry ttl into the future. It returns ErrLockLost when
// the lock expired or was taken over.
func (lk *Lock) Refresh(ctx context.Context, ttl time.Duration) error {
	if lk == nil {
		return nil
	}
	n, err := refresh.Run(ctx, lk.client, []string{lk.key}, lk.token, ttl.Milliseconds()).Int()
	if err != nil {
		return fmt.Errorf("refresh lock %s: %w", lk.key, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrLockLost, lk.key)
	}
	return nil
}

// KeepAlive refreshes the lock every ttl/3 until the returned stop func is
// called. A lost lock is logged and ends the refreshing.
func (lk *Lock) KeepAlive(ctx context.Context, ttl time.Duration) (stop func()) {
	interval := ttl / 3
	if lk == nil || interval <= 0 {
		return func() {}
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				err := lk.Refresh(ctx, ttl)
				if errors.Is(err, ErrLockLost) {
					log.Error().Err(err).Msg("run lock lost, another run may start")
					return
				}
				if err != nil && ctx.Err() == nil {
					log.Warn().Err(err).Msg("could not refresh run lock")
				}
			}
		}
	}()
	return func() {
		cancel()
		<-done
	}
}

// Release frees the lock if it has not expired and been taken over since.
func (lk *Lock) Release(ctx context.Context) error {
	if lk == nil {
		return nil
	}
	n, err := release.Run(ctx, lk.client, []string{lk.key}, lk.token).Int()
	if err != nil {
		return fmt.Errorf("release lock %s: %w", lk.key, err)
	}
	if n == 0 {
		log.Warn().Str("key", lk.key).Msg("run lock expired before release")
	}
	return nil
}
