package redis

import (
	"context"
	"testing"
	"time"
)

func TestSweepLeaseSingleHolder(t *testing.T) {
	t.Parallel()

	client := testClient(t)
	lease, err := NewSweepLease(client, time.Minute)
	if err != nil {
		t.Fatalf("NewSweepLease() error = %v", err)
	}

	ctx := context.Background()
	release, acquired, err := lease.Acquire(ctx, "decay")
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if !acquired {
		t.Fatal("first acquire should succeed")
	}

	_, second, err := lease.Acquire(ctx, "decay")
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if second {
		t.Fatal("held lease must not be acquired twice")
	}

	if err := release(ctx); err != nil {
		t.Fatalf("release error = %v", err)
	}

	_, reacquired, err := lease.Acquire(ctx, "decay")
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if !reacquired {
		t.Fatal("released lease should be acquirable again")
	}
}

func TestSweepLeaseNamesAreIndependent(t *testing.T) {
	t.Parallel()

	lease, err := NewSweepLease(testClient(t), time.Minute)
	if err != nil {
		t.Fatalf("NewSweepLease() error = %v", err)
	}

	ctx := context.Background()
	if _, acquired, _ := lease.Acquire(ctx, "decay"); !acquired {
		t.Fatal("decay lease should be acquirable")
	}
	if _, acquired, _ := lease.Acquire(ctx, "sequence"); !acquired {
		t.Fatal("sequence lease must not be blocked by the decay lease")
	}
}

func TestSweepLeaseReleaseIgnoresStolenLease(t *testing.T) {
	t.Parallel()

	client := testClient(t)
	lease, err := NewSweepLease(client, time.Minute)
	if err != nil {
		t.Fatalf("NewSweepLease() error = %v", err)
	}

	ctx := context.Background()
	release, acquired, err := lease.Acquire(ctx, "decay")
	if err != nil || !acquired {
		t.Fatalf("Acquire() = %v, %v", acquired, err)
	}

	// Simulate expiry plus reacquisition by another instance.
	if err := client.Set(ctx, "outreach:lease:decay", "other-owner", time.Minute).Err(); err != nil {
		t.Fatalf("failed to overwrite lease: %v", err)
	}

	if err := release(ctx); err != nil {
		t.Fatalf("release error = %v", err)
	}

	owner, err := client.Get(ctx, "outreach:lease:decay").Result()
	if err != nil {
		t.Fatalf("failed to read lease: %v", err)
	}
	if owner != "other-owner" {
		t.Fatal("stale release must not evict the new holder")
	}
}

func TestSweepLeaseRequiresName(t *testing.T) {
	t.Parallel()

	lease, err := NewSweepLease(testClient(t), time.Minute)
	if err != nil {
		t.Fatalf("NewSweepLease() error = %v", err)
	}

	if _, _, err := lease.Acquire(context.Background(), "  "); err == nil {
		t.Fatal("blank lease name should fail")
	}
}
