//go:build integration

package deploy_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/confpush-net/confpush/internal/testutil"
	"github.com/confpush-net/confpush/pkg/deploy"
	"github.com/confpush-net/confpush/pkg/util"
)

func TestLocker_AcquireRelease(t *testing.T) {
	testutil.SkipIfNoRedis(t)
	testutil.FlushRedis(t)

	ctx := context.Background()
	locker := deploy.NewLocker(testutil.RedisAddr())
	defer locker.Close()

	if err := locker.Acquire(ctx, "leaf1-ny", "alice", time.Minute); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	holder, acquired, err := locker.Holder(ctx, "leaf1-ny")
	if err != nil {
		t.Fatalf("Holder failed: %v", err)
	}
	if holder != "alice" {
		t.Errorf("holder = %q, want alice", holder)
	}
	if acquired.IsZero() {
		t.Error("acquired time should be set")
	}

	// Second holder is refused while the lock is held.
	err = locker.Acquire(ctx, "leaf1-ny", "bob", time.Minute)
	if !errors.Is(err, util.ErrDeviceLocked) {
		t.Errorf("second Acquire = %v, want ErrDeviceLocked", err)
	}

	// Wrong holder cannot release.
	if err := locker.Release(ctx, "leaf1-ny", "bob"); err == nil {
		t.Error("Release by non-holder should fail")
	}

	if err := locker.Release(ctx, "leaf1-ny", "alice"); err != nil {
		t.Fatalf("Release failed: %v", err)
	}

	// Releasing an already-released lock is not an error.
	if err := locker.Release(ctx, "leaf1-ny", "alice"); err != nil {
		t.Errorf("Release of absent lock = %v, want nil", err)
	}

	// Device is free again.
	if err := locker.Acquire(ctx, "leaf1-ny", "bob", time.Minute); err != nil {
		t.Errorf("Acquire after release failed: %v", err)
	}
}

func TestLocker_TTLExpiry(t *testing.T) {
	testutil.SkipIfNoRedis(t)
	testutil.FlushRedis(t)

	ctx := context.Background()
	locker := deploy.NewLocker(testutil.RedisAddr())
	defer locker.Close()

	if err := locker.Acquire(ctx, "leaf2-ny", "alice", time.Second); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	time.Sleep(1500 * time.Millisecond)

	if err := locker.Acquire(ctx, "leaf2-ny", "bob", time.Minute); err != nil {
		t.Errorf("Acquire after TTL expiry failed: %v", err)
	}
}
