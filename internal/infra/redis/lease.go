package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

const defaultLeaseTTL = 10 * time.Minute

// releaseScript deletes the lease key only when still held by this owner.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

// SweepLease guarantees single-flight execution of a named periodic sweep
// across all engine instances. Acquire returns false when another holder
// already owns the lease.
type SweepLease struct {
	client *goredis.Client
	ttl    time.Duration
}

func NewSweepLease(client *goredis.Client, ttl time.Duration) (*SweepLease, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if ttl <= 0 {
		ttl = defaultLeaseTTL
	}
	return &SweepLease{client: client, ttl: ttl}, nil
}

// Acquire claims the lease for name. The returned release func is safe to
// call after expiry; it never releases a lease reacquired by someone else.
func (l *SweepLease) Acquire(ctx context.Context, name string) (release func(context.Context) error, acquired bool, err error) {
	if l == nil || l.client == nil {
		return nil, false, fmt.Errorf("sweep lease is not initialized")
	}

	normalized := strings.ToLower(strings.TrimSpace(name))
	if normalized == "" {
		return nil, false, fmt.Errorf("lease name is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	key := fmt.Sprintf("outreach:lease:%s", normalized)
	owner := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, owner, l.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to acquire lease %q: %w", normalized, err)
	}
	if !ok {
		return nil, false, nil
	}

	release = func(releaseCtx context.Context) error {
		if releaseCtx == nil {
			releaseCtx = context.Background()
		}
		err := releaseScript.Run(releaseCtx, l.client, []string{key}, owner).Err()
		if err != nil && !errors.Is(err, goredis.Nil) {
			return fmt.Errorf("failed to release lease %q: %w", normalized, err)
		}
		return nil
	}

	return release, true, nil
}
