package deploy

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/confpush-net/confpush/pkg/util"
)

// The deployment core itself provides no cross-process mutual exclusion:
// two attempts against the same target from different processes would race
// on the device's single candidate datastore. Locker gives callers a
// Redis-backed lock keyed by device name to serialize per target.

// acquireLockScript atomically acquires a device lock.
// Returns 1 on success, 0 if already held by another holder.
var acquireLockScript = redis.NewScript(`
local key = KEYS[1]
if redis.call("EXISTS", key) == 1 then
	return 0
end
redis.call("HSET", key, "holder", ARGV[1], "acquired", ARGV[2], "ttl", ARGV[3])
redis.call("EXPIRE", key, tonumber(ARGV[3]))
return 1
`)

// releaseLockScript releases a lock after verifying the holder.
// Returns 1 on success, 0 on holder mismatch, -1 if the lock is gone.
var releaseLockScript = redis.NewScript(`
local key = KEYS[1]
if redis.call("EXISTS", key) == 0 then
	return -1
end
local current = redis.call("HGET", key, "holder")
if current ~= ARGV[1] then
	return 0
end
redis.call("DEL", key)
return 1
`)

// Locker serializes deployment attempts per device across processes.
type Locker struct {
	client *redis.Client
}

// NewLocker connects to the Redis instance backing the locks.
func NewLocker(addr string) *Locker {
	return &Locker{
		client: redis.NewClient(&redis.Options{Addr: addr}),
	}
}

func lockKey(device string) string {
	return "CONFPUSH_LOCK|" + device
}

// Acquire takes the deployment lock for a device. The lock expires after
// ttl so a crashed deployer cannot wedge a device forever. Returns
// util.ErrDeviceLocked when another holder owns the lock.
func (l *Locker) Acquire(ctx context.Context, device, holder string, ttl time.Duration) error {
	now := time.Now().UTC().Format(time.RFC3339)
	secs := int(ttl / time.Second)
	if secs < 1 {
		secs = 1
	}

	result, err := acquireLockScript.Run(ctx, l.client, []string{lockKey(device)},
		holder, now, fmt.Sprintf("%d", secs)).Int()
	if err != nil {
		return fmt.Errorf("acquiring deployment lock for %s: %w", device, err)
	}
	if result == 0 {
		return fmt.Errorf("device %s: %w", device, util.ErrDeviceLocked)
	}
	return nil
}

// Release frees the deployment lock. Releasing a lock held by someone else
// is an error; releasing an already-expired lock is not.
func (l *Locker) Release(ctx context.Context, device, holder string) error {
	result, err := releaseLockScript.Run(ctx, l.client, []string{lockKey(device)}, holder).Int()
	if err != nil {
		return fmt.Errorf("releasing deployment lock for %s: %w", device, err)
	}
	if result == 0 {
		return fmt.Errorf("deployment lock holder mismatch for %s", device)
	}
	return nil
}

// Holder returns the current lock holder and acquisition time, or
// ("", zero, nil) when the device is unlocked.
func (l *Locker) Holder(ctx context.Context, device string) (string, time.Time, error) {
	vals, err := l.client.HGetAll(ctx, lockKey(device)).Result()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("reading deployment lock for %s: %w", device, err)
	}
	if len(vals) == 0 {
		return "", time.Time{}, nil
	}

	acquired := time.Time{}
	if ts, ok := vals["acquired"]; ok {
		acquired, _ = time.Parse(time.RFC3339, ts)
	}
	return vals["holder"], acquired, nil
}

// Close releases the Redis connection.
func (l *Locker) Close() error {
	return l.client.Close()
}
