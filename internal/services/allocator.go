package services

import (
	"context"

	"tastyclub/internal/datastore"
	"tastyclub/internal/pkg/caching"

	"github.com/hiendaovinh/toolkit/pkg/errorx"
	"github.com/mroth/weightedrand/v2"
	"github.com/samber/do"
	"github.com/uptrace/bun"
)

// ServiceAllocator spreads coupon issuance across eligible restaurants by
// least load. It re-reads global counts on every call, so it self-corrects
// under concurrent issuance; the issuance engine holds the coupon-type lock
// around it, which bounds cap overshoot to the number of racing issuers
// minus one.
type ServiceAllocator struct {
	container          *do.Injector
	postgresDB         *bun.DB
	readonlyPostgresDB *bun.DB
	cache              caching.Cache
	readonlyCache      caching.ReadOnlyCache

	serviceRestaurant *ServiceRestaurant
	rules             *Rules
}

func NewServiceAllocator(container *do.Injector) (*ServiceAllocator, error) {
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

	serviceRestaurant, err := do.Invoke[*ServiceRestaurant](container)
	if err != nil {
		return nil, err
	}

	rules, err := do.Invoke[*Rules](container)
	if err != nil {
		return nil, err
	}

	return &ServiceAllocator{container, postgresDB, readonlyPostgresDB, cache, readonlyCache, serviceRestaurant, rules}, nil
}

// Allocate picks a restaurant for one coupon of the given type, honoring
// static exclusions plus any extra exclusions supplied by the caller.
func (service *ServiceAllocator) Allocate(ctx context.Context, couponType string, extraExclusions []int64) (int64, error) {
	ids, err := service.serviceRestaurant.ListRestaurantIDs(ctx)
	if err != nil {
		return 0, errorx.Wrap(err, errorx.Service)
	}
	if len(ids) == 0 {
		return 0, errorx.Wrap(ErrNoRestaurants, errorx.Validation)
	}

	staticExclusions, err := datastore.ListExcludedRestaurantIDs(ctx, service.readonlyPostgresDB, couponType)
	if err != nil {
		return 0, errorx.Wrap(err, errorx.Service)
	}

	excluded := make(map[int64]bool, len(staticExclusions)+len(extraExclusions))
	for _, id := range staticExclusions {
		excluded[id] = true
	}
	for _, id := range extraExclusions {
		excluded[id] = true
	}

	// counts come from the primary: allocation runs under the type lock and
	// must not see replica lag
	counts, err := datastore.CountCouponsByTypePerRestaurant(ctx, service.postgresDB, couponType)
	if err != nil {
		return 0, errorx.Wrap(err, errorx.Service)
	}

	id, err := pickLeastLoaded(ids, excluded, counts, service.rules.PerRestaurantCap)
	if err != nil {
		return 0, errorx.Wrap(err, errorx.Validation)
	}
	return id, nil
}

// pickLeastLoaded selects uniformly at random among the restaurants tied at
// the minimum count, skipping excluded restaurants and those at cap.
func pickLeastLoaded(ids []int64, excluded map[int64]bool, counts map[int64]int, perRestaurantCap int) (int64, error) {
	eligible := make([]int64, 0, len(ids))
	for _, id := range ids {
		if excluded[id] {
			continue
		}
		eligible = append(eligible, id)
	}
	if len(eligible) == 0 {
		return 0, ErrCapacityExhausted
	}

	min := -1
	for _, id := range eligible {
		if counts[id] >= perRestaurantCap {
			continue
		}
		if min == -1 || counts[id] < min {
			min = counts[id]
		}
	}
	if min == -1 {
		return 0, ErrCapacityExhausted
	}

	var choices []weightedrand.Choice[int64, int]
	for _, id := range eligible {
		if counts[id] == min {
			choices = append(choices, weightedrand.NewChoice(id, 1))
		}
	}

	chooser, err := weightedrand.NewChooser(choices...)
	if err != nil {
		return 0, err
	}
	return chooser.Pick(), nil
}
