package limiter

import (
	"context"
	"errors"

	"github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"
)

var ErrRateLimited = errors.New("rate_limited")

type LimiterRedis struct {
	instance *redis_rate.Limiter
}

func NewLimiter(client redis.UniversalClient) (*LimiterRedis, error) {
	return &LimiterRedis{redis_rate.NewLimiter(client)}, nil
}

func (l *LimiterRedis) Allow(ctx context.Context, key string, limit redis_rate.Limit) error {
	res, err := l.instance.Allow(ctx, key, limit)
	if err != nil {
		return err
	}
	if res.Allowed == 0 {
		return ErrRateLimited
	}
	return nil
}
