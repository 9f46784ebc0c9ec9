package datastore

import (
	"context"

	"tastyclub/internal/models"

	"github.com/uptrace/bun"
)

func CreateTableCouponType(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.CouponType)(nil)).IfNotExists().Exec(ctx)
	return err
}

func CreateTableRestaurantCouponBenefit(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.RestaurantCouponBenefit)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.RestaurantCouponBenefit)(nil)).Index("uq_restaurant_benefit").Unique().IfNotExists().Column("coupon_type", "restaurant_id").Exec(ctx)
	return err
}

func CreateTableCouponRestaurantExclusion(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.CouponRestaurantExclusion)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.CouponRestaurantExclusion)(nil)).Index("uq_coupon_exclusion").Unique().IfNotExists().Column("coupon_type", "restaurant_id").Exec(ctx)
	return err
}

func GetCouponTypeByCode(ctx context.Context, db *bun.DB, code string) (*models.CouponType, error) {
	var couponType models.CouponType
	err := db.NewSelect().Model(&couponType).Where("code = ?", code).Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &couponType, nil
}

func InsertCouponType(ctx context.Context, db *bun.DB, couponType *models.CouponType) error {
	_, err := db.NewInsert().Model(couponType).On("CONFLICT (code) DO NOTHING").Exec(ctx)
	return err
}

func GetActiveBenefitOverride(ctx context.Context, db *bun.DB, couponType string, restaurantID int64) (*models.RestaurantCouponBenefit, error) {
	var benefit models.RestaurantCouponBenefit
	err := db.NewSelect().Model(&benefit).
		Where("coupon_type = ?", couponType).
		Where("restaurant_id = ?", restaurantID).
		Where("active").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &benefit, nil
}

func ListExcludedRestaurantIDs(ctx context.Context, db *bun.DB, couponType string) ([]int64, error) {
	var ids []int64
	err := db.NewSelect().Model((*models.CouponRestaurantExclusion)(nil)).
		Column("restaurant_id").
		Where("coupon_type = ?", couponType).
		Scan(ctx, &ids)
	if err != nil {
		return nil, err
	}
	return ids, nil
}
