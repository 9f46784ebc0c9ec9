package services

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"time"

	"tastyclub/internal/datastore"
	"tastyclub/internal/datastore/redis_store"
	"tastyclub/internal/models"
	"tastyclub/internal/pkg/caching"
	"tastyclub/internal/pkg/locking"

	"github.com/hiendaovinh/toolkit/pkg/errorx"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"github.com/uptrace/bun"
)

type ServiceFlashDrop struct {
	container          *do.Injector
	redisDB            redis.UniversalClient
	postgresDB         *bun.DB
	readonlyPostgresDB *bun.DB
	cache              caching.Cache
	readonlyCache      caching.ReadOnlyCache
	locker             *locking.Locker

	serviceIssuance *ServiceIssuance
	rules           *Rules
}

func NewServiceFlashDrop(container *do.Injector) (*ServiceFlashDrop, error) {
	redisDB, err := do.InvokeNamed[redis.UniversalClient](container, "redis-db")
	if err != nil {
		return nil, err
	}

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

	rules, err := do.Invoke[*Rules](container)
	if err != nil {
		return nil, err
	}

	return &ServiceFlashDrop{container, redisDB, postgresDB, readonlyPostgresDB, cache, readonlyCache, locker, serviceIssuance, rules}, nil
}

// rewardTypeFromRules reads the coupon type a flash campaign drops, "" when
// the payload is missing it.
func rewardTypeFromRules(campaign *models.Campaign) string {
	if campaign.Rules == nil {
		return ""
	}
	if s, ok := campaign.Rules["coupon_type"].(string); ok {
		return s
	}
	return ""
}

// flashQuotaRefund reports whether the decremented unit goes back to the
// day's counter. Only a freshly created coupon consumes quota.
func flashQuotaRefund(created bool, issueErr error) bool {
	return issueErr != nil || !created
}

// Claim takes one unit of the campaign's daily quota and issues the drop
// coupon. The Redis counter is the fast gate; the issue-key constraint keeps
// one claim per user per day even if the counter misbehaves.
func (service *ServiceFlashDrop) Claim(ctx context.Context, userID int64, campaignCode string, idemKey string) (*models.Coupon, error) {
	if idemKey != "" {
		cached, err := redis_store.GetCachedResult(ctx, service.redisDB, idemKey)
		if err == nil && cached != nil && cached.CouponCode != "" {
			return service.couponByCode(ctx, userID, cached.CouponCode)
		}
		if err != nil && !errors.Is(err, redis.Nil) {
			log.Println("flash idempotency read failed", "key:", idemKey, "err:", err)
		}
	}

	campaign, err := service.GetCampaign(ctx, campaignCode)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if !campaign.Open(now) {
		return nil, errorx.Wrap(ErrCampaignClosed, errorx.Validation)
	}

	quota := campaign.DailyQuota()
	if quota <= 0 {
		return nil, errorx.Wrap(ErrSoldOut, errorx.Validation)
	}

	couponType := rewardTypeFromRules(campaign)
	if couponType == "" {
		return nil, errorx.Wrap(ErrCampaignMisconfig, errorx.Service)
	}

	lease, err := service.locker.Acquire(ctx, LockKeyFlashCampaign(campaignCode))
	if err != nil {
		return nil, errorx.Wrap(ErrCampaignLock, errorx.RateLimiting)
	}
	defer lease.Release(ctx)

	day := dayString(now)
	if err := redis_store.InitFlashQuota(ctx, service.redisDB, campaignCode, day, quota); err != nil {
		return nil, errorx.Wrap(err, errorx.Service)
	}

	remaining, err := redis_store.DecrFlashQuota(ctx, service.redisDB, campaignCode, day)
	if err != nil {
		return nil, errorx.Wrap(err, errorx.Service)
	}
	if remaining < 0 {
		if restoreErr := redis_store.RestoreFlashQuota(ctx, service.redisDB, campaignCode, day); restoreErr != nil {
			log.Println("flash quota restore failed", "campaign:", campaignCode, "err:", restoreErr)
		}
		return nil, errorx.Wrap(ErrSoldOut, errorx.Validation)
	}

	coupon, created, err := service.serviceIssuance.Issue(ctx, IssueParams{
		UserID:       userID,
		CouponType:   couponType,
		CampaignCode: &campaignCode,
		IssueKey:     IssueKeyFlashClaim(campaignCode, day, userID),
	})
	if flashQuotaRefund(created, err) {
		// the unit did not turn into a new coupon: a failed claim, or a
		// repeat claim answered by the issue-key guard; give it back
		if restoreErr := redis_store.RestoreFlashQuota(ctx, service.redisDB, campaignCode, day); restoreErr != nil {
			log.Println("flash quota restore failed", "campaign:", campaignCode, "err:", restoreErr)
		}
	}
	if err != nil {
		return nil, err
	}

	if idemKey != "" {
		if err := redis_store.SetCachedResult(ctx, service.redisDB, idemKey, &redis_store.CachedResult{CouponCode: coupon.Code}); err != nil {
			log.Println("flash idempotency write failed", "key:", idemKey, "err:", err)
		}
	}

	log.Println("flash claim", "user:", userID, "campaign:", campaignCode, "remaining:", remaining)
	return coupon, nil
}

// Remaining reports the live counter for the day, campaign quota when the
// counter has not been seeded yet.
func (service *ServiceFlashDrop) Remaining(ctx context.Context, campaignCode string) (int64, error) {
	campaign, err := service.GetCampaign(ctx, campaignCode)
	if err != nil {
		return 0, err
	}

	remaining, err := redis_store.GetFlashQuota(ctx, service.redisDB, campaignCode, dayString(time.Now()))
	if errors.Is(err, redis.Nil) {
		return int64(campaign.DailyQuota()), nil
	}
	if err != nil {
		return 0, errorx.Wrap(err, errorx.Service)
	}
	if remaining < 0 {
		return 0, nil
	}
	return remaining, nil
}

func (service *ServiceFlashDrop) GetCampaign(ctx context.Context, code string) (*models.Campaign, error) {
	callback := func() (*models.Campaign, error) {
		return datastore.GetCampaignByCode(ctx, service.readonlyPostgresDB, code)
	}

	campaign, err := caching.UseCacheWithRO(ctx, service.readonlyCache, service.cache, DBKeyCampaign(code), CACHE_TTL_1_MIN, callback)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errorx.Wrap(err, errorx.NotExist)
	}
	if err != nil {
		return nil, errorx.Wrap(err, errorx.Service)
	}
	return campaign, nil
}

func (service *ServiceFlashDrop) couponByCode(ctx context.Context, userID int64, code string) (*models.Coupon, error) {
	coupon, err := datastore.GetCouponByCodeAndUser(ctx, service.postgresDB, code, userID, false)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errorx.Wrap(ErrCouponNotFound, errorx.NotExist)
	}
	if err != nil {
		return nil, errorx.Wrap(err, errorx.Service)
	}
	return coupon, nil
}
