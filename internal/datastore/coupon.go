package datastore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"tastyclub/internal/models"

	"github.com/uptrace/bun"
)

func CreateTableCoupon(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.Coupon)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.Coupon)(nil)).Index("uq_coupon_code").Unique().IfNotExists().Column("code").Exec(ctx)
	if err != nil {
		return err
	}

	// the dedup guard: second insert with the same logical issue key fails here
	_, err = db.NewRaw(`
		create unique index if not exists uq_coupon_issue_key
			on coupon (user_id, coupon_type, coalesce(campaign_code, ''), issue_key)
			where issue_key is not null`).Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.Coupon)(nil)).Index("index_coupon_type_restaurant").IfNotExists().Column("coupon_type", "restaurant_id").Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.Coupon)(nil)).Index("index_coupon_user").IfNotExists().Column("user_id").Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.Coupon)(nil)).Index("index_coupon_status_expiry").IfNotExists().Column("status", "expires_at").Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

// InsertCouponIdempotent inserts the coupon; when the issue-key unique index
// already holds a row it fetches and returns that row instead. The second
// return value reports whether a new row was created.
func InsertCouponIdempotent(ctx context.Context, db *bun.DB, coupon *models.Coupon) (*models.Coupon, bool, error) {
	if coupon.IssueKey == nil {
		_, err := db.NewInsert().Model(coupon).Exec(ctx)
		if err != nil {
			return nil, false, err
		}
		return coupon, true, nil
	}

	res, err := db.NewInsert().Model(coupon).On("CONFLICT DO NOTHING").Exec(ctx)
	if err != nil {
		return nil, false, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return nil, false, err
	}
	if n > 0 {
		return coupon, true, nil
	}

	existing, err := GetCouponByIssueKey(ctx, db, coupon.UserID, coupon.CouponType, coupon.CampaignCode, *coupon.IssueKey)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func GetCouponByIssueKey(ctx context.Context, db *bun.DB, userID int64, couponType string, campaignCode *string, issueKey string) (*models.Coupon, error) {
	var coupon models.Coupon
	q := db.NewSelect().Model(&coupon).
		Where("user_id = ?", userID).
		Where("coupon_type = ?", couponType).
		Where("issue_key = ?", issueKey)
	if campaignCode == nil {
		q = q.Where("campaign_code IS NULL")
	} else {
		q = q.Where("campaign_code = ?", *campaignCode)
	}
	err := q.Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &coupon, nil
}

// GetCouponByCodeAndUser reads one coupon row, with SELECT ... FOR UPDATE
// when forUpdate is set. Falls back to an unlocked read if the store
// rejects row locking in the current context.
func GetCouponByCodeAndUser(ctx context.Context, db *bun.DB, code string, userID int64, forUpdate bool) (*models.Coupon, error) {
	var coupon models.Coupon
	q := db.NewSelect().Model(&coupon).
		Where("code = ?", code).
		Where("user_id = ?", userID)
	if forUpdate {
		err := q.For("UPDATE").Scan(ctx)
		if err == nil {
			return &coupon, nil
		}
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return GetCouponByCodeAndUser(ctx, db, code, userID, false)
	}
	err := q.Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &coupon, nil
}

func CountCouponsByTypePerRestaurant(ctx context.Context, db *bun.DB, couponType string) (map[int64]int, error) {
	var rows []struct {
		RestaurantID int64 `bun:"restaurant_id"`
		Count        int   `bun:"count"`
	}
	err := db.NewSelect().Model((*models.Coupon)(nil)).
		ColumnExpr("restaurant_id").
		ColumnExpr("count(*) AS count").
		Where("coupon_type = ?", couponType).
		Where("restaurant_id IS NOT NULL").
		GroupExpr("restaurant_id").
		Scan(ctx, &rows)
	if err != nil {
		return nil, err
	}

	counts := make(map[int64]int, len(rows))
	for _, row := range rows {
		counts[row.RestaurantID] = row.Count
	}
	return counts, nil
}

func CountUserCouponsByType(ctx context.Context, db *bun.DB, userID int64, couponType string) (int, error) {
	return db.NewSelect().Model((*models.Coupon)(nil)).
		Where("user_id = ?", userID).
		Where("coupon_type = ?", couponType).
		Count(ctx)
}

func CountUserCouponsByCampaign(ctx context.Context, db *bun.DB, userID int64, campaignCode string) (int, error) {
	return db.NewSelect().Model((*models.Coupon)(nil)).
		Where("user_id = ?", userID).
		Where("campaign_code = ?", campaignCode).
		Count(ctx)
}

func ListUserCoupons(ctx context.Context, db *bun.DB, userID int64) ([]*models.Coupon, error) {
	var coupons []*models.Coupon
	err := db.NewSelect().Model(&coupons).
		Where("user_id = ?", userID).
		Order("issued_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return coupons, nil
}

// RedeemCoupon persists the REDEEMED transition. The status guard in the
// WHERE clause is the last belt after the lease lock: a lost race updates
// zero rows.
func RedeemCoupon(ctx context.Context, db *bun.DB, coupon *models.Coupon) (bool, error) {
	res, err := db.NewUpdate().Model(coupon).
		Column("status", "redeemed_at", "restaurant_id", "benefit_snapshot").
		WherePK().
		Where("status = ?", models.CouponStatusIssued).
		Exec(ctx)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func MarkCouponExpired(ctx context.Context, db *bun.DB, coupon *models.Coupon) error {
	coupon.Status = models.CouponStatusExpired
	_, err := db.NewUpdate().Model(coupon).
		Column("status").
		WherePK().
		Where("status = ?", models.CouponStatusIssued).
		Exec(ctx)
	return err
}

func UpdateCouponSnapshot(ctx context.Context, db *bun.DB, coupon *models.Coupon) error {
	_, err := db.NewUpdate().Model(coupon).
		Column("benefit_snapshot").
		WherePK().
		Exec(ctx)
	return err
}

// ExpireDueCoupons bulk-transitions ISSUED-but-past-expiry rows, used by the
// periodic sweep.
func ExpireDueCoupons(ctx context.Context, db *bun.DB, now time.Time) (int64, error) {
	res, err := db.NewUpdate().Model((*models.Coupon)(nil)).
		Set("status = ?", models.CouponStatusExpired).
		Where("status = ?", models.CouponStatusIssued).
		Where("expires_at < ?", now).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
