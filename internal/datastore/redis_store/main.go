package redis_store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	IDEMPOTENCY_TTL = 300 * time.Second
	QUOTA_TTL       = 48 * time.Hour
)

func dbKeyFlashQuota(campaignCode string, day string) string {
	return fmt.Sprintf("flash:quota:%s:%s", strings.ToLower(campaignCode), day)
}

func dbKeyIdempotency(key string) string {
	return fmt.Sprintf("idem:%s", key)
}

// InitFlashQuota seeds the day's counter once; concurrent callers race
// harmlessly on SetNX.
func InitFlashQuota(ctx context.Context, cmd redis.Cmdable, campaignCode string, day string, quota int) error {
	return cmd.SetNX(ctx, dbKeyFlashQuota(campaignCode, day), quota, QUOTA_TTL).Err()
}

// DecrFlashQuota atomically takes one unit and returns the remainder. A
// negative result means the caller lost and must restore.
func DecrFlashQuota(ctx context.Context, cmd redis.Cmdable, campaignCode string, day string) (int64, error) {
	return cmd.Decr(ctx, dbKeyFlashQuota(campaignCode, day)).Result()
}

// RestoreFlashQuota gives back a unit taken past zero.
func RestoreFlashQuota(ctx context.Context, cmd redis.Cmdable, campaignCode string, day string) error {
	return cmd.Incr(ctx, dbKeyFlashQuota(campaignCode, day)).Err()
}

func GetFlashQuota(ctx context.Context, cmd redis.Cmdable, campaignCode string, day string) (int64, error) {
	return cmd.Get(ctx, dbKeyFlashQuota(campaignCode, day)).Int64()
}

// CachedResult is the idempotency-cache payload: a retried request observes
// the original outcome without re-executing side effects. Best-effort layer;
// the unique constraint stays authoritative.
type CachedResult struct {
	CouponCode string `msgpack:"coupon_code"`
}

func GetCachedResult(ctx context.Context, cmd redis.Cmdable, key string) (*CachedResult, error) {
	b, err := cmd.Get(ctx, dbKeyIdempotency(key)).Bytes()
	if err != nil {
		return nil, err
	}

	var v *CachedResult
	err = msgpack.Unmarshal(b, &v)
	return v, err
}

func SetCachedResult(ctx context.Context, cmd redis.Cmdable, key string, v *CachedResult) error {
	b, err := msgpack.Marshal(v)
	if err != nil {
		return err
	}

	return cmd.Set(ctx, dbKeyIdempotency(key), b, IDEMPOTENCY_TTL).Err()
}
