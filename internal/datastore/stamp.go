package datastore

import (
	"context"
	"time"

	"tastyclub/internal/models"

	"github.com/uptrace/bun"
)

func CreateTableStampWallet(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.StampWallet)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.StampWallet)(nil)).Index("uq_stamp_wallet").Unique().IfNotExists().Column("user_id", "restaurant_id").Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

func CreateTableStampEvent(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.StampEvent)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.StampEvent)(nil)).Index("index_stamp_event_wallet_day").IfNotExists().Column("user_id", "restaurant_id", "created_at").Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

func CreateTableStampRewardRule(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.StampRewardRule)(nil)).IfNotExists().Exec(ctx)
	return err
}

func GetStampWallet(ctx context.Context, db *bun.DB, userID, restaurantID int64) (*models.StampWallet, error) {
	var wallet models.StampWallet
	err := db.NewSelect().Model(&wallet).
		Where("user_id = ?", userID).
		Where("restaurant_id = ?", restaurantID).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &wallet, nil
}

func ListStampWallets(ctx context.Context, db *bun.DB, userID int64) ([]*models.StampWallet, error) {
	var wallets []*models.StampWallet
	err := db.NewSelect().Model(&wallets).
		Where("user_id = ?", userID).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return wallets, nil
}

// UpsertStampWallet writes the wrapped counter value.
func UpsertStampWallet(ctx context.Context, db *bun.DB, wallet *models.StampWallet) error {
	wallet.UpdatedAt = time.Now()
	_, err := db.NewInsert().Model(wallet).
		On("CONFLICT (user_id, restaurant_id) DO UPDATE").
		Set("stamps = EXCLUDED.stamps").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}

// CountEarnEventsSince counts only positive deltas; the daily cap ignores
// corrections and resets.
func CountEarnEventsSince(ctx context.Context, db *bun.DB, userID, restaurantID int64, since time.Time) (int, error) {
	return db.NewSelect().Model((*models.StampEvent)(nil)).
		Where("user_id = ?", userID).
		Where("restaurant_id = ?", restaurantID).
		Where("delta > 0").
		Where("created_at >= ?", since).
		Count(ctx)
}

func InsertStampEvent(ctx context.Context, db *bun.DB, event *models.StampEvent) error {
	_, err := db.NewInsert().Model(event).Exec(ctx)
	return err
}

func GetActiveStampRule(ctx context.Context, db *bun.DB, restaurantID int64) (*models.StampRewardRule, error) {
	var rule models.StampRewardRule
	err := db.NewSelect().Model(&rule).
		Where("restaurant_id = ?", restaurantID).
		Where("active").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

func UpsertStampRule(ctx context.Context, db *bun.DB, rule *models.StampRewardRule) error {
	_, err := db.NewInsert().Model(rule).
		On("CONFLICT (restaurant_id) DO UPDATE").
		Set("rule_type = EXCLUDED.rule_type").
		Set("config = EXCLUDED.config").
		Set("active = EXCLUDED.active").
		Exec(ctx)
	return err
}
