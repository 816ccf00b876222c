package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
)

func testClient(t *testing.T) *goredis.Client {
	t.Helper()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRateLimiterAllowEnforcesPerSecondLimit(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	limiter, err := newRateLimiter(testClient(t), 2, func() time.Time { return now }, nil)
	if err != nil {
		t.Fatalf("newRateLimiter() error = %v", err)
	}

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		allowed, err := limiter.Allow(ctx, "whatsapp")
		if err != nil {
			t.Fatalf("Allow() error = %v", err)
		}
		if !allowed {
			t.Fatalf("send %d should be allowed under the limit", i+1)
		}
	}

	allowed, err := limiter.Allow(ctx, "whatsapp")
	if err != nil {
		t.Fatalf("Allow() error = %v", err)
	}
	if allowed {
		t.Fatal("third send in the same second should be rejected")
	}
}

func TestRateLimiterWindowResets(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	limiter, err := newRateLimiter(testClient(t), 1, func() time.Time { return now }, nil)
	if err != nil {
		t.Fatalf("newRateLimiter() error = %v", err)
	}

	ctx := context.Background()
	if allowed, _ := limiter.Allow(ctx, "sms"); !allowed {
		t.Fatal("first send should be allowed")
	}
	if allowed, _ := limiter.Allow(ctx, "sms"); allowed {
		t.Fatal("second send in the window should be rejected")
	}

	now = now.Add(time.Second)
	if allowed, _ := limiter.Allow(ctx, "sms"); !allowed {
		t.Fatal("send in the next second should be allowed")
	}
}

func TestRateLimiterChannelsAreIndependent(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	limiter, err := newRateLimiter(testClient(t), 1, func() time.Time { return now }, nil)
	if err != nil {
		t.Fatalf("newRateLimiter() error = %v", err)
	}

	ctx := context.Background()
	if allowed, _ := limiter.Allow(ctx, "whatsapp"); !allowed {
		t.Fatal("whatsapp send should be allowed")
	}
	if allowed, _ := limiter.Allow(ctx, "email"); !allowed {
		t.Fatal("email budget must not be consumed by whatsapp sends")
	}
}

func TestRateLimiterWaitBlocksUntilNextWindow(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	slept := 0

	// The fake sleep advances the clock instead of blocking.
	sleepFn := func(ctx context.Context, d time.Duration) error {
		slept++
		now = now.Add(time.Second)
		return ctx.Err()
	}
	limiter, err := newRateLimiter(testClient(t), 1, func() time.Time { return now }, sleepFn)
	if err != nil {
		t.Fatalf("newRateLimiter() error = %v", err)
	}

	ctx := context.Background()
	if err := limiter.Wait(ctx, "whatsapp"); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if err := limiter.Wait(ctx, "whatsapp"); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if slept == 0 {
		t.Fatal("second Wait should back off before succeeding")
	}
}

func TestRateLimiterWaitHonorsContext(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	limiter, err := newRateLimiter(testClient(t), 1, func() time.Time { return now }, nil)
	if err != nil {
		t.Fatalf("newRateLimiter() error = %v", err)
	}

	ctx := context.Background()
	if err := limiter.Wait(ctx, "whatsapp"); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if err := limiter.Wait(cancelled, "whatsapp"); err == nil {
		t.Fatal("Wait with a cancelled context should fail")
	}
}

func TestRateLimiterRequiresChannel(t *testing.T) {
	t.Parallel()

	limiter, err := NewRateLimiter(testClient(t), 5)
	if err != nil {
		t.Fatalf("NewRateLimiter() error = %v", err)
	}

	if _, err := limiter.Allow(context.Background(), "  "); err == nil {
		t.Fatal("blank channel should fail")
	}
}
