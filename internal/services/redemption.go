package services

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"time"

	"tastyclub/internal/datastore"
	"tastyclub/internal/models"
	"tastyclub/internal/pkg/caching"
	"tastyclub/internal/pkg/locking"

	"github.com/hiendaovinh/toolkit/pkg/errorx"
	"github.com/samber/do"
	"github.com/uptrace/bun"
)

type ServiceRedemption struct {
	container          *do.Injector
	postgresDB         *bun.DB
	readonlyPostgresDB *bun.DB
	cache              caching.Cache
	readonlyCache      caching.ReadOnlyCache
	locker             *locking.Locker

	serviceIssuance   *ServiceIssuance
	serviceRestaurant *ServiceRestaurant
	rules             *Rules
}

func NewServiceRedemption(container *do.Injector) (*ServiceRedemption, error) {
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

	locker, err := do.Invoke[*locking.Locker](container)
	if err != nil {
		return nil, err
	}

	serviceIssuance, err := do.Invoke[*ServiceIssuance](container)
	if err != nil {
		return nil, err
	}

	serviceRestaurant, err := do.Invoke[*ServiceRestaurant](container)
	if err != nil {
		return nil, err
	}

	rules, err := do.Invoke[*Rules](container)
	if err != nil {
		return nil, err
	}

	return &ServiceRedemption{container, postgresDB, readonlyPostgresDB, cache, readonlyCache, locker, serviceIssuance, serviceRestaurant, rules}, nil
}

// redeemable is the transition guard: only an unexpired ISSUED coupon may
// move to REDEEMED.
func redeemable(coupon *models.Coupon, now time.Time) error {
	if coupon.Status != models.CouponStatusIssued {
		return ErrAlreadyUsed
	}
	if coupon.Expired(now) {
		return ErrCouponExpired
	}
	return nil
}

// Redeem moves a coupon to REDEEMED under a merchant PIN. The restaurant
// recorded is the one presented at redemption, which may differ from the one
// allocated at issuance; authorization is the PIN alone.
func (service *ServiceRedemption) Redeem(ctx context.Context, userID int64, code string, restaurantID int64, pin string) (*models.Coupon, error) {
	coupon, err := datastore.GetCouponByCodeAndUser(ctx, service.postgresDB, code, userID, true)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errorx.Wrap(ErrCouponNotFound, errorx.NotExist)
	}
	if err != nil {
		return nil, errorx.Wrap(err, errorx.Service)
	}

	now := time.Now()
	if err := redeemable(coupon, now); err != nil {
		if errors.Is(err, ErrCouponExpired) {
			if dbErr := datastore.MarkCouponExpired(ctx, service.postgresDB, coupon); dbErr != nil {
				log.Println("expire on redeem failed", "code:", code, "err:", dbErr)
			}
		}
		return nil, errorx.Wrap(err, errorx.Validation)
	}

	if err := service.serviceRestaurant.VerifyPin(ctx, restaurantID, pin); err != nil {
		return nil, err
	}

	lease, err := service.locker.Acquire(ctx, LockKeyCoupon(code))
	if err != nil {
		return nil, errorx.Wrap(ErrCouponLock, errorx.RateLimiting)
	}
	defer lease.Release(ctx)

	// re-check under the lock; the pre-lock checks alone leave a
	// check-then-act window
	coupon, err = datastore.GetCouponByCodeAndUser(ctx, service.postgresDB, code, userID, false)
	if err != nil {
		return nil, errorx.Wrap(err, errorx.Service)
	}

	now = time.Now()
	if err := redeemable(coupon, now); err != nil {
		if errors.Is(err, ErrCouponExpired) {
			if dbErr := datastore.MarkCouponExpired(ctx, service.postgresDB, coupon); dbErr != nil {
				log.Println("expire on redeem failed", "code:", code, "err:", dbErr)
			}
		}
		return nil, errorx.Wrap(err, errorx.Validation)
	}

	couponType, err := service.serviceIssuance.GetCouponType(ctx, coupon.CouponType)
	if err != nil {
		return nil, err
	}

	snapshot, err := service.serviceIssuance.BuildSnapshot(ctx, couponType, restaurantID, nil)
	if err != nil {
		return nil, err
	}

	coupon.Status = models.CouponStatusRedeemed
	coupon.RedeemedAt = &now
	coupon.RestaurantID = &restaurantID
	coupon.Snapshot = snapshot

	won, err := datastore.RedeemCoupon(ctx, service.postgresDB, coupon)
	if err != nil {
		return nil, errorx.Wrap(err, errorx.Service)
	}
	if !won {
		return nil, errorx.Wrap(ErrAlreadyUsed, errorx.Validation)
	}

	_ = service.cache.Delete(ctx, DBKeyUserCoupons(userID))
	log.Println("redeemed coupon", "user:", userID, "code:", code, "restaurant:", restaurantID)
	return coupon, nil
}

// CheckAndExpire is the read-side companion: it lazily expires a past-due
// coupon and backfills a missing snapshot, changing nothing else.
func (service *ServiceRedemption) CheckAndExpire(ctx context.Context, userID int64, code string) (*models.Coupon, error) {
	coupon, err := datastore.GetCouponByCodeAndUser(ctx, service.postgresDB, code, userID, false)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errorx.Wrap(ErrCouponNotFound, errorx.NotExist)
	}
	if err != nil {
		return nil, errorx.Wrap(err, errorx.Service)
	}

	now := time.Now()
	if coupon.Status == models.CouponStatusIssued && coupon.Expired(now) {
		if err := datastore.MarkCouponExpired(ctx, service.postgresDB, coupon); err != nil {
			return nil, errorx.Wrap(err, errorx.Service)
		}
		coupon.Status = models.CouponStatusExpired
		_ = service.cache.Delete(ctx, DBKeyUserCoupons(userID))
	}

	if coupon.Snapshot == nil && coupon.RestaurantID != nil {
		couponType, err := service.serviceIssuance.GetCouponType(ctx, coupon.CouponType)
		if err != nil {
			return nil, err
		}
		snapshot, err := service.serviceIssuance.BuildSnapshot(ctx, couponType, *coupon.RestaurantID, nil)
		if err != nil {
			return nil, err
		}
		coupon.Snapshot = snapshot
		if err := datastore.UpdateCouponSnapshot(ctx, service.postgresDB, coupon); err != nil {
			return nil, errorx.Wrap(err, errorx.Service)
		}
	}

	return coupon, nil
}

// SweepExpired is the periodic bulk transition driven by the cron binary.
func (service *ServiceRedemption) SweepExpired(ctx context.Context) (int64, error) {
	n, err := datastore.ExpireDueCoupons(ctx, service.postgresDB, time.Now())
	if err != nil {
		return 0, errorx.Wrap(err, errorx.Service)
	}
	if n > 0 {
		log.Println("expiry sweep", "expired:", n)
	}
	return n, nil
}
