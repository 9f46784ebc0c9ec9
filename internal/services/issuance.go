package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"tastyclub/internal/datastore"
	"tastyclub/internal/models"
	"tastyclub/internal/pkg/caching"
	"tastyclub/internal/pkg/codegen"
	"tastyclub/internal/pkg/locking"

	"github.com/hiendaovinh/toolkit/pkg/errorx"
	"github.com/samber/do"
	"github.com/uptrace/bun"
)

// Deterministic issue keys: one logical grant event maps to exactly one key,
// which the unique index turns into at-most-one coupon row.
func IssueKeySignup(userID int64) string {
	return fmt.Sprintf("SIGNUP:%d", userID)
}

func IssueKeyAmbassador(userID, restaurantID int64) string {
	return fmt.Sprintf("AMBASSADOR:%d:%d", userID, restaurantID)
}

func IssueKeyFinalExam(userID, restaurantID int64) string {
	return fmt.Sprintf("FINAL_EXAM:%d:%d", userID, restaurantID)
}

func IssueKeyReferralReferee(refereeID int64) string {
	return fmt.Sprintf("REFERRAL_REFEREE:%d", refereeID)
}

func IssueKeyReferralReferrer(referrerID, refereeID int64) string {
	return fmt.Sprintf("REFERRAL_REFERRER:%d:%d", referrerID, refereeID)
}

func IssueKeyReferralCampaign(campaignCode string, refereeID int64) string {
	return fmt.Sprintf("REFERRAL_CAMPAIGN:%s:%d", campaignCode, refereeID)
}

// The timestamp suffix makes this key unique per call rather than per
// logical event; kept for parity with the observed reward history format.
func IssueKeyStampReward(userID, restaurantID int64, threshold int, at time.Time) string {
	return fmt.Sprintf("STAMP:%d:%d:%d:%d", userID, restaurantID, threshold, at.Unix())
}

func IssueKeyFlashClaim(campaignCode string, day string, userID int64) string {
	return fmt.Sprintf("FLASH:%s:%s:%d", campaignCode, day, userID)
}

type IssueParams struct {
	UserID       int64
	CouponType   string
	CampaignCode *string
	IssueKey     string
	// optional overrides
	Code         string
	ExpiresAt    *time.Time
	RestaurantID *int64 // pinned restaurant, skips allocation
	Extra        map[string]any
}

// BulkIssueResult reports a multi-restaurant issuance: per-restaurant
// failures are recorded and the loop continues, nothing is rolled back.
type BulkIssueResult struct {
	Issued   []*models.Coupon `json:"issued"`
	Failures map[int64]string `json:"failures,omitempty"`
}

type ServiceIssuance struct {
	container          *do.Injector
	postgresDB         *bun.DB
	readonlyPostgresDB *bun.DB
	cache              caching.Cache
	readonlyCache      caching.ReadOnlyCache
	locker             *locking.Locker

	serviceAllocator  *ServiceAllocator
	serviceRestaurant *ServiceRestaurant
	rules             *Rules
}

func NewServiceIssuance(container *do.Injector) (*ServiceIssuance, error) {
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

	serviceAllocator, err := do.Invoke[*ServiceAllocator](container)
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

	return &ServiceIssuance{container, postgresDB, readonlyPostgresDB, cache, readonlyCache, locker, serviceAllocator, serviceRestaurant, rules}, nil
}

// Issue creates one coupon under the coupon-type lock. A repeat call with
// the same (user, type, campaign, issue key) returns the already-issued row
// with created = false; callers that pay for a unit elsewhere (flash quota)
// key their refund off that flag.
func (service *ServiceIssuance) Issue(ctx context.Context, p IssueParams) (*models.Coupon, bool, error) {
	couponType, err := service.GetCouponType(ctx, p.CouponType)
	if err != nil {
		return nil, false, err
	}

	if p.IssueKey != "" {
		existing, err := datastore.GetCouponByIssueKey(ctx, service.postgresDB, p.UserID, p.CouponType, p.CampaignCode, p.IssueKey)
		if err == nil {
			return existing, false, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, false, errorx.Wrap(err, errorx.Service)
		}
	}

	lease, err := service.locker.Acquire(ctx, LockKeyCouponType(p.CouponType))
	if err != nil {
		return nil, false, errorx.Wrap(ErrCouponTypeLock, errorx.RateLimiting)
	}
	defer lease.Release(ctx)

	if couponType.PerUserLimit > 0 {
		issued, err := datastore.CountUserCouponsByType(ctx, service.postgresDB, p.UserID, p.CouponType)
		if err != nil {
			return nil, false, errorx.Wrap(err, errorx.Service)
		}
		if issued >= couponType.PerUserLimit {
			return nil, false, errorx.Wrap(ErrCouponLimit, errorx.Validation)
		}
	}

	restaurantID := int64(0)
	if p.RestaurantID != nil {
		restaurantID = *p.RestaurantID
	} else {
		restaurantID, err = service.serviceAllocator.Allocate(ctx, p.CouponType, nil)
		if err != nil {
			return nil, false, err
		}
	}

	snapshot, err := service.BuildSnapshot(ctx, couponType, restaurantID, p.Extra)
	if err != nil {
		return nil, false, err
	}

	now := time.Now()
	expiresAt := now.Add(service.rules.CouponValidity)
	if p.ExpiresAt != nil {
		expiresAt = *p.ExpiresAt
	}

	code := p.Code
	if code == "" {
		code = codegen.CouponCode()
	}

	coupon := &models.Coupon{
		Code:         code,
		UserID:       p.UserID,
		CouponType:   p.CouponType,
		CampaignCode: p.CampaignCode,
		Status:       models.CouponStatusIssued,
		IssuedAt:     now,
		ExpiresAt:    expiresAt,
		RestaurantID: &restaurantID,
		Snapshot:     snapshot,
	}
	if p.IssueKey != "" {
		key := p.IssueKey
		coupon.IssueKey = &key
	}

	persisted, created, err := datastore.InsertCouponIdempotent(ctx, service.postgresDB, coupon)
	if err != nil {
		return nil, false, errorx.Wrap(err, errorx.Service)
	}
	if created {
		log.Println("issued coupon", "user:", p.UserID, "type:", p.CouponType, "code:", persisted.Code)
		_ = service.cache.Delete(ctx, DBKeyUserCoupons(p.UserID))
	}

	return persisted, created, nil
}

// IssueSignupCoupon is the explicit post-creation grant made by the
// user-creation workflow; safe to call again on retries.
func (service *ServiceIssuance) IssueSignupCoupon(ctx context.Context, userID int64) (*models.Coupon, error) {
	campaign := service.rules.SignupCampaign
	coupon, _, err := service.Issue(ctx, IssueParams{
		UserID:       userID,
		CouponType:   service.rules.SignupRewardType,
		CampaignCode: &campaign,
		IssueKey:     IssueKeySignup(userID),
	})
	return coupon, err
}

// IssueAmbassadorCoupons grants the ambassador reward at each restaurant,
// pinned per restaurant. Empty restaurantIDs means the whole directory.
func (service *ServiceIssuance) IssueAmbassadorCoupons(ctx context.Context, userID int64, restaurantIDs []int64) (*BulkIssueResult, error) {
	campaign := service.rules.AmbassadorCampaign
	return service.issuePerRestaurant(ctx, userID, restaurantIDs, service.rules.AmbassadorRewardType, campaign, IssueKeyAmbassador)
}

// IssueFinalExamCoupons grants the event reward at every restaurant.
func (service *ServiceIssuance) IssueFinalExamCoupons(ctx context.Context, userID int64) (*BulkIssueResult, error) {
	campaign := service.rules.FinalExamCampaign
	return service.issuePerRestaurant(ctx, userID, nil, service.rules.FinalExamRewardType, campaign, IssueKeyFinalExam)
}

func (service *ServiceIssuance) issuePerRestaurant(ctx context.Context, userID int64, restaurantIDs []int64, couponType string, campaignCode string, keyFn func(int64, int64) string) (*BulkIssueResult, error) {
	if len(restaurantIDs) == 0 {
		ids, err := service.serviceRestaurant.ListRestaurantIDs(ctx)
		if err != nil {
			return nil, errorx.Wrap(err, errorx.Service)
		}
		restaurantIDs = ids
	}
	if len(restaurantIDs) == 0 {
		return nil, errorx.Wrap(ErrNoRestaurants, errorx.Validation)
	}

	result := &BulkIssueResult{}
	for _, restaurantID := range restaurantIDs {
		restaurantID := restaurantID
		coupon, _, err := service.Issue(ctx, IssueParams{
			UserID:       userID,
			CouponType:   couponType,
			CampaignCode: &campaignCode,
			IssueKey:     keyFn(userID, restaurantID),
			RestaurantID: &restaurantID,
		})
		if err != nil {
			if result.Failures == nil {
				result.Failures = map[int64]string{}
			}
			result.Failures[restaurantID] = err.Error()
			log.Println("bulk issuance failure", "user:", userID, "restaurant:", restaurantID, "err:", err)
			continue
		}
		result.Issued = append(result.Issued, coupon)
	}

	return result, nil
}

func (service *ServiceIssuance) GetCouponType(ctx context.Context, code string) (*models.CouponType, error) {
	callback := func() (*models.CouponType, error) {
		return datastore.GetCouponTypeByCode(ctx, service.readonlyPostgresDB, code)
	}

	couponType, err := caching.UseCacheWithRO(ctx, service.readonlyCache, service.cache, DBKeyCouponType(code), CACHE_TTL_15_MINS, callback)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errorx.Wrap(err, errorx.NotExist)
	}
	if err != nil {
		return nil, errorx.Wrap(err, errorx.Service)
	}
	return couponType, nil
}

// BuildSnapshot freezes the coupon's displayed content against a restaurant,
// preferring the per-restaurant override and falling back to the type
// defaults. Issuance and redemption both build through here.
func (service *ServiceIssuance) BuildSnapshot(ctx context.Context, couponType *models.CouponType, restaurantID int64, extra map[string]any) (*models.BenefitSnapshot, error) {
	restaurantName, err := service.serviceRestaurant.GetRestaurantName(ctx, restaurantID)
	if err != nil {
		return nil, err
	}

	override, err := datastore.GetActiveBenefitOverride(ctx, service.readonlyPostgresDB, couponType.Code, restaurantID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, errorx.Wrap(err, errorx.Service)
	}

	return makeSnapshot(couponType, override, restaurantName, extra), nil
}

func makeSnapshot(couponType *models.CouponType, override *models.RestaurantCouponBenefit, restaurantName string, extra map[string]any) *models.BenefitSnapshot {
	snapshot := &models.BenefitSnapshot{
		Title:          couponType.Title,
		Subtitle:       couponType.Subtitle,
		Benefit:        map[string]any{},
		RestaurantName: restaurantName,
	}
	for k, v := range couponType.Benefit {
		snapshot.Benefit[k] = v
	}

	if override != nil && override.Active {
		snapshot.Title = override.Title
		if override.Subtitle != "" {
			snapshot.Subtitle = override.Subtitle
		}
		for k, v := range override.Benefit {
			snapshot.Benefit[k] = v
		}
	}

	for k, v := range extra {
		snapshot.Benefit[k] = v
	}

	return snapshot
}

// ListUserCoupons backs the status-check listing; lazy expiry is applied by
// the caller through the redemption service.
func (service *ServiceIssuance) ListUserCoupons(ctx context.Context, userID int64) ([]*models.Coupon, error) {
	callback := func() ([]*models.Coupon, error) {
		return datastore.ListUserCoupons(ctx, service.readonlyPostgresDB, userID)
	}

	return caching.UseCacheWithRO(ctx, service.readonlyCache, service.cache, DBKeyUserCoupons(userID), CACHE_TTL_1_MIN, callback)
}
