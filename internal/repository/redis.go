package repository

import (
	"context"
	"fmt"
	"time"

	"seatbooking/internal/config"
	"seatbooking/internal/models"

	"github.com/redis/go-redis/v9"
)

const slotLockPrefix = "slot_lock:"

// releaseScript deletes the lock only while it still belongs to the caller.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLockStore keeps slot locks as plain keys holding the holder token.
// Expiry is the key TTL, so expired locks vanish without a sweep.
type RedisLockStore struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedisClient builds a client from configuration.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func NewRedisLockStore(client *redis.Client) *RedisLockStore {
	return &RedisLockStore{client: client, now: time.Now}
}

func lockKey(date, timeSlot string) string {
	return slotLockPrefix + models.SlotKey(date, timeSlot)
}

func (r *RedisLockStore) Acquire(ctx context.Context, lock *models.SlotLock, ttl time.Duration) (bool, error) {
	if r.client == nil {
		return false, fmt.Errorf("redis client is nil")
	}
	ok, err := r.client.SetNX(ctx, lockKey(lock.BookingDate, lock.TimeSlot), lock.HolderToken, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to set slot lock in redis: %w", err)
	}
	if ok {
		lock.ExpiresAt = r.now().Add(ttl)
	}
	return ok, nil
}

func (r *RedisLockStore) Release(ctx context.Context, date, timeSlot, holderToken string) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if err := releaseScript.Run(ctx, r.client, []string{lockKey(date, timeSlot)}, holderToken).Err(); err != nil {
		return fmt.Errorf("failed to release slot lock in redis: %w", err)
	}
	return nil
}

// Get returns the live lock for the slot, or nil when none is held.
func (r *RedisLockStore) Get(ctx context.Context, date, timeSlot string) (*models.SlotLock, error) {
	if r.client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	key := lockKey(date, timeSlot)

	var (
		get  *redis.StringCmd
		pttl *redis.DurationCmd
	)
	_, err := r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		get = p.Get(ctx, key)
		pttl = p.PTTL(ctx, key)
		return nil
	})
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get slot lock from redis: %w", err)
	}

	holder, err := get.Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get slot lock from redis: %w", err)
	}

	lock := &models.SlotLock{BookingDate: date, TimeSlot: timeSlot, HolderToken: holder}
	if ttl := pttl.Val(); ttl > 0 {
		lock.ExpiresAt = r.now().Add(ttl)
	}
	return lock, nil
}

// Ping checks the connection to Redis.
func Ping(ctx context.Context, client *redis.Client) error {
	if _, err := client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

func Close(client *redis.Client) error {
	if client != nil {
		return client.Close()
	}
	return nil
}
