package datastore

import (
	"context"

	"tastyclub/internal/models"

	"github.com/uptrace/bun"
)

func CreateTableRestaurant(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.Restaurant)(nil)).IfNotExists().Exec(ctx)
	return err
}

func CreateTableMerchantPin(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.MerchantPin)(nil)).IfNotExists().Exec(ctx)
	return err
}

func GetRestaurant(ctx context.Context, db *bun.DB, restaurantID int64) (*models.Restaurant, error) {
	var restaurant models.Restaurant
	err := db.NewSelect().Model(&restaurant).Where("id = ?", restaurantID).Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &restaurant, nil
}

func ListActiveRestaurantIDs(ctx context.Context, db *bun.DB) ([]int64, error) {
	var ids []int64
	err := db.NewSelect().Model((*models.Restaurant)(nil)).
		Column("id").
		Where("active").
		Order("id ASC").
		Scan(ctx, &ids)
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func InsertRestaurant(ctx context.Context, db *bun.DB, restaurant *models.Restaurant) (*models.Restaurant, error) {
	_, err := db.NewInsert().Model(restaurant).Exec(ctx)
	if err != nil {
		return nil, err
	}
	return restaurant, nil
}

func GetMerchantPin(ctx context.Context, db *bun.DB, restaurantID int64) (*models.MerchantPin, error) {
	var pin models.MerchantPin
	err := db.NewSelect().Model(&pin).Where("restaurant_id = ?", restaurantID).Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &pin, nil
}

// UpsertMerchantPin replaces the restaurant's active secret; one active
// secret per restaurant.
func UpsertMerchantPin(ctx context.Context, db *bun.DB, pin *models.MerchantPin) error {
	_, err := db.NewInsert().Model(pin).
		On("CONFLICT (restaurant_id) DO UPDATE").
		Set("algo = EXCLUDED.algo").
		Set("secret = EXCLUDED.secret").
		Set("rotation_id = EXCLUDED.rotation_id").
		Set("rotated_at = EXCLUDED.rotated_at").
		Exec(ctx)
	return err
}
