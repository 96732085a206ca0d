package redisclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	ErrLockNotAcquired = errors.New("dentist lock not acquired")
)

// Locker guards the check-then-insert critical section for one dentist's
// calendar. Two concurrent booking requests for the same dentist cannot
// both pass the overlap check.
type Locker interface {
	WithDentistLock(ctx context.Context, dentistID uuid.UUID, fn func(ctx context.Context) error) error
}

type redisDentistLocker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisDentistLocker creates a locker that uses a per dentist Redis key
func NewRedisDentistLocker(client *redis.Client, ttl time.Duration) Locker {
	return &redisDentistLocker{
		client: client,
		ttl:    ttl,
	}
}

func (l *redisDentistLocker) WithDentistLock(ctx context.Context, dentistID uuid.UUID, fn func(ctx context.Context) error) error {
	key := fmt.Sprintf("lock:dentist:%s", dentistID.String())
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return fmt.Errorf("acquire dentist lock: %w", err)
	}
	if !ok {
		return ErrLockNotAcquired
	}

	defer func() {
		_ = l.release(ctx, key, token)
	}()

	ctxWithTimeout, cancel := context.WithTimeout(ctx, l.ttl)
	defer cancel()

	return fn(ctxWithTimeout)
}

var unlockScript = redis.NewScript(`
local val = redis.call("GET", KEYS[1])
if val == ARGV[1] then
  return redis.call("DEL", KEYS[1])
else
  return 0
end
`)

func (l *redisDentistLocker) release(ctx context.Context, key, token string) error {
	_, err := unlockScript.Run(ctx, l.client, []string{key}, token).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release dentist lock: %w", err)
	}
	return nil
}
