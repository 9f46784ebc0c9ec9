package services

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"time"

	"tastyclub/internal/datastore"
	"tastyclub/internal/interfaces"
	"tastyclub/internal/models"
	"tastyclub/internal/pkg/caching"

	"github.com/go-redis/redis_rate/v10"
	"github.com/google/uuid"
	"github.com/hiendaovinh/toolkit/pkg/errorx"
	"github.com/samber/do"
	"github.com/uptrace/bun"
)

// ServiceRestaurant is the affiliate directory collaborator: id enumeration,
// display names, and the merchant PIN secret used by redemption and stamps.
type ServiceRestaurant struct {
	container          *do.Injector
	postgresDB         *bun.DB
	readonlyPostgresDB *bun.DB
	cache              caching.Cache
	readonlyCache      caching.ReadOnlyCache
	limiter            interfaces.Limiter

	rules *Rules
}

func NewServiceRestaurant(container *do.Injector) (*ServiceRestaurant, error) {
	postgresDB, err := do.Invoke[*bun.DB](container)
	if err != nil {
		return nil, err
	}

	readonlyPostgresDB, err := do.InvokeNamed[*bun.DB](container, "db-readonly")
	if err != nil {
		return nil, err
	}

	cache, err := do.Invoke[caching.Cache](container)
	if err != nil {
		return nil, err
	}

	readonlyCache, err := do.Invoke[caching.ReadOnlyCache](container)
	if err != nil {
		return nil, err
	}

	limiter, err := do.Invoke[interfaces.Limiter](container)
	if err != nil {
		return nil, err
	}

	rules, err := do.Invoke[*Rules](container)
	if err != nil {
		return nil, err
	}

	return &ServiceRestaurant{container, postgresDB, readonlyPostgresDB, cache, readonlyCache, limiter, rules}, nil
}

func (service *ServiceRestaurant) ListRestaurantIDs(ctx context.Context) ([]int64, error) {
	callback := func() ([]int64, error) {
		return datastore.ListActiveRestaurantIDs(ctx, service.readonlyPostgresDB)
	}

	return caching.UseCacheWithRO(ctx, service.readonlyCache, service.cache, DBKeyRestaurantIDs(), CACHE_TTL_5_MINS, callback)
}

func (service *ServiceRestaurant) GetRestaurant(ctx context.Context, restaurantID int64) (*models.Restaurant, error) {
	callback := func() (*models.Restaurant, error) {
		return datastore.GetRestaurant(ctx, service.readonlyPostgresDB, restaurantID)
	}

	restaurant, err := caching.UseCacheWithRO(ctx, service.readonlyCache, service.cache, DBKeyRestaurant(restaurantID), CACHE_TTL_15_MINS, callback)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errorx.Wrap(err, errorx.NotExist)
	}
	return restaurant, err
}

func (service *ServiceRestaurant) GetRestaurantName(ctx context.Context, restaurantID int64) (string, error) {
	restaurant, err := service.GetRestaurant(ctx, restaurantID)
	if err != nil {
		return "", err
	}
	return restaurant.Name, nil
}

// VerifyPin checks the supplied merchant code against the restaurant's
// active secret. Attempts are rate limited per restaurant before any secret
// comparison happens.
func (service *ServiceRestaurant) VerifyPin(ctx context.Context, restaurantID int64, pin string) error {
	err := service.limiter.Allow(ctx, LimitKeyMerchantPin(restaurantID), redis_rate.PerMinute(service.rules.PinAttemptsPerMinute))
	if err != nil {
		return errorx.Wrap(err, errorx.RateLimiting)
	}

	record, err := datastore.GetMerchantPin(ctx, service.readonlyPostgresDB, restaurantID)
	if errors.Is(err, sql.ErrNoRows) {
		return errorx.Wrap(ErrInvalidMerchantCode, errorx.Validation)
	}
	if err != nil {
		return errorx.Wrap(err, errorx.Service)
	}

	switch record.Algo {
	case models.PinAlgoStatic:
		if subtle.ConstantTimeCompare([]byte(record.Secret), []byte(pin)) != 1 {
			return errorx.Wrap(ErrInvalidMerchantCode, errorx.Validation)
		}
		return nil
	default:
		// TOTP is a declared extension point, not implemented
		return errorx.Wrap(ErrUnsupportedPinAlgo, errorx.Service)
	}
}

// RotatePin installs a new static secret for the restaurant.
func (service *ServiceRestaurant) RotatePin(ctx context.Context, restaurantID int64, secret string) error {
	now := time.Now()
	pin := &models.MerchantPin{
		RestaurantID: restaurantID,
		Algo:         models.PinAlgoStatic,
		Secret:       secret,
		RotationID:   uuid.NewString(),
		RotatedAt:    &now,
	}
	if err := datastore.UpsertMerchantPin(ctx, service.postgresDB, pin); err != nil {
		return errorx.Wrap(err, errorx.Service)
	}
	return nil
}
