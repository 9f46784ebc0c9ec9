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

type ServiceStamp struct {
	container          *do.Injector
	postgresDB         *bun.DB
	readonlyPostgresDB *bun.DB
	cache              caching.Cache
	locker             *locking.Locker

	serviceIssuance   *ServiceIssuance
	serviceRestaurant *ServiceRestaurant
	rules             *Rules
}

func NewServiceStamp(container *do.Injector) (*ServiceStamp, error) {
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

	return &ServiceStamp{container, postgresDB, readonlyPostgresDB, cache, locker, serviceIssuance, serviceRestaurant, rules}, nil
}

// crossedThresholds returns the reward thresholds passed when the counter
// moves from prev to next, ascending. thresholds must be sorted ascending.
func crossedThresholds(prev, next int, thresholds []int) []int {
	var crossed []int
	for _, t := range thresholds {
		if prev < t && next >= t {
			crossed = append(crossed, t)
		}
	}
	return crossed
}

// wrapStamps folds the counter back once the reward cycle completes, keeping
// the overflow. 10 -> 0, 11 -> 1 for a cycle target of 10.
func wrapStamps(next int, cycleTarget int) int {
	if cycleTarget > 0 && next >= cycleTarget {
		return next - cycleTarget
	}
	return next
}

// AddStamp punches the user's card at a restaurant after PIN verification.
// The idempotency key makes delivery retries safe; rewards fire inline when
// a threshold is crossed.
func (service *ServiceStamp) AddStamp(ctx context.Context, userID, restaurantID int64, pin string, idemKey string) (*models.StampStatus, error) {
	if idemKey != "" {
		var cached models.StampStatus
		err := service.cache.Get(ctx, DBKeyStampIdem(idemKey), &cached)
		if err == nil {
			return &cached, nil
		}
		if !caching.IsMiss(err) {
			log.Println("stamp idempotency read failed", "key:", idemKey, "err:", err)
		}
	}

	if err := service.serviceRestaurant.VerifyPin(ctx, restaurantID, pin); err != nil {
		return nil, err
	}

	lease, err := service.locker.Acquire(ctx, LockKeyStampWallet(userID, restaurantID))
	if err != nil {
		return nil, errorx.Wrap(ErrStampLock, errorx.RateLimiting)
	}
	defer lease.Release(ctx)

	now := time.Now()
	earnedToday, err := datastore.CountEarnEventsSince(ctx, service.postgresDB, userID, restaurantID, startOfDay(now))
	if err != nil {
		return nil, errorx.Wrap(err, errorx.Service)
	}
	if earnedToday >= service.rules.StampDailyLimit {
		return nil, errorx.Wrap(ErrStampDailyLimit, errorx.Validation)
	}

	wallet, err := datastore.GetStampWallet(ctx, service.postgresDB, userID, restaurantID)
	if errors.Is(err, sql.ErrNoRows) {
		wallet = &models.StampWallet{UserID: userID, RestaurantID: restaurantID}
	} else if err != nil {
		return nil, errorx.Wrap(err, errorx.Service)
	}

	rule, thresholds := service.resolveRule(ctx, restaurantID)

	prev := wallet.Stamps
	next := prev + 1

	var rewarded []int
	for _, threshold := range crossedThresholds(prev, next, thresholds) {
		couponType := service.rewardTypeFor(rule, threshold)
		if couponType == "" {
			log.Println("no reward type for threshold", "restaurant:", restaurantID, "threshold:", threshold)
			continue
		}
		campaign := service.rules.StampCampaign
		_, _, err := service.serviceIssuance.Issue(ctx, IssueParams{
			UserID:       userID,
			CouponType:   couponType,
			CampaignCode: &campaign,
			IssueKey:     IssueKeyStampReward(userID, restaurantID, threshold, now),
			RestaurantID: &restaurantID,
		})
		if err != nil {
			return nil, err
		}
		rewarded = append(rewarded, threshold)
	}

	cycleTarget := 0
	if len(thresholds) > 0 {
		cycleTarget = thresholds[len(thresholds)-1]
	}
	wallet.Stamps = wrapStamps(next, cycleTarget)

	if err := datastore.UpsertStampWallet(ctx, service.postgresDB, wallet); err != nil {
		return nil, errorx.Wrap(err, errorx.Service)
	}

	if err := datastore.InsertStampEvent(ctx, service.postgresDB, &models.StampEvent{
		UserID:       userID,
		RestaurantID: restaurantID,
		Delta:        1,
		Source:       "MERCHANT_PIN",
		CreatedAt:    now,
	}); err != nil {
		return nil, errorx.Wrap(err, errorx.Service)
	}

	restaurantName, err := service.serviceRestaurant.GetRestaurantName(ctx, restaurantID)
	if err != nil {
		return nil, err
	}

	status := &models.StampStatus{
		UserID:         userID,
		RestaurantID:   restaurantID,
		RestaurantName: restaurantName,
		Stamps:         wallet.Stamps,
		CycleTarget:    cycleTarget,
		EarnedToday:    earnedToday + 1,
		RewardedAt:     rewarded,
	}

	if idemKey != "" {
		if err := service.cache.Set(ctx, DBKeyStampIdem(idemKey), status, IDEMPOTENCY_TTL); err != nil {
			log.Println("stamp idempotency write failed", "key:", idemKey, "err:", err)
		}
	}

	log.Println("stamp added", "user:", userID, "restaurant:", restaurantID, "stamps:", wallet.Stamps)
	return status, nil
}

// GetStampStatus reads one card; a wallet that does not exist yet is a zero
// card, not an error.
func (service *ServiceStamp) GetStampStatus(ctx context.Context, userID, restaurantID int64) (*models.StampStatus, error) {
	wallet, err := datastore.GetStampWallet(ctx, service.readonlyPostgresDB, userID, restaurantID)
	if errors.Is(err, sql.ErrNoRows) {
		wallet = &models.StampWallet{UserID: userID, RestaurantID: restaurantID}
	} else if err != nil {
		return nil, errorx.Wrap(err, errorx.Service)
	}

	return service.buildStatus(ctx, wallet)
}

// GetAllStampStatuses lists a card for every active restaurant, zero cards
// included.
func (service *ServiceStamp) GetAllStampStatuses(ctx context.Context, userID int64) ([]*models.StampStatus, error) {
	ids, err := service.serviceRestaurant.ListRestaurantIDs(ctx)
	if err != nil {
		return nil, err
	}

	wallets, err := datastore.ListStampWallets(ctx, service.readonlyPostgresDB, userID)
	if err != nil {
		return nil, errorx.Wrap(err, errorx.Service)
	}
	byRestaurant := map[int64]*models.StampWallet{}
	for _, w := range wallets {
		byRestaurant[w.RestaurantID] = w
	}

	statuses := make([]*models.StampStatus, 0, len(ids))
	for _, restaurantID := range ids {
		wallet, ok := byRestaurant[restaurantID]
		if !ok {
			wallet = &models.StampWallet{UserID: userID, RestaurantID: restaurantID}
		}
		status, err := service.buildStatus(ctx, wallet)
		if err != nil {
			return nil, err
		}
		statuses = append(statuses, status)
	}

	return statuses, nil
}

func (service *ServiceStamp) buildStatus(ctx context.Context, wallet *models.StampWallet) (*models.StampStatus, error) {
	restaurantName, err := service.serviceRestaurant.GetRestaurantName(ctx, wallet.RestaurantID)
	if err != nil {
		return nil, err
	}

	_, thresholds := service.resolveRule(ctx, wallet.RestaurantID)
	cycleTarget := 0
	if len(thresholds) > 0 {
		cycleTarget = thresholds[len(thresholds)-1]
	}

	earnedToday, err := datastore.CountEarnEventsSince(ctx, service.readonlyPostgresDB, wallet.UserID, wallet.RestaurantID, startOfDay(time.Now()))
	if err != nil {
		return nil, errorx.Wrap(err, errorx.Service)
	}

	return &models.StampStatus{
		UserID:         wallet.UserID,
		RestaurantID:   wallet.RestaurantID,
		RestaurantName: restaurantName,
		Stamps:         wallet.Stamps,
		CycleTarget:    cycleTarget,
		EarnedToday:    earnedToday,
	}, nil
}

// resolveRule loads the restaurant's active rule; without one the defaults
// apply. Thresholds come back sorted ascending either way.
func (service *ServiceStamp) resolveRule(ctx context.Context, restaurantID int64) (*models.StampRewardRule, []int) {
	rule, err := datastore.GetActiveStampRule(ctx, service.readonlyPostgresDB, restaurantID)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			log.Println("stamp rule load failed, using defaults", "restaurant:", restaurantID, "err:", err)
		}
		return nil, service.rules.DefaultStampThresholds
	}
	return rule, ruleThresholds(rule, service.rules.DefaultStampThresholds)
}

// ruleThresholds turns a reward rule into the reward schedule. A VISIT rule
// is a one-threshold cycle: with the wallet wrapping at the last threshold,
// a single threshold of N fires every Nth visit.
func ruleThresholds(rule *models.StampRewardRule, defaults []int) []int {
	if rule == nil {
		return defaults
	}
	if rule.RuleType == models.StampRuleVisit {
		if interval := rule.VisitInterval(); interval > 0 {
			return []int{interval}
		}
		return defaults
	}
	if thresholds := rule.Thresholds(); len(thresholds) > 0 {
		return thresholds
	}
	return defaults
}

func (service *ServiceStamp) rewardTypeFor(rule *models.StampRewardRule, threshold int) string {
	if rule != nil {
		if t := rule.CouponTypeFor(threshold); t != "" {
			return t
		}
	}
	return service.rules.DefaultStampRewardTypes[threshold]
}
