package datastore

import (
	"context"

	"tastyclub/internal/models"

	"github.com/uptrace/bun"
)

func CreateTableReferral(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.Referral)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	// one default-scope referral per referee, one row per (referee, event)
	_, err = db.NewRaw(`
		create unique index if not exists uq_referral_default
			on referral (referee_id)
			where campaign_code is null`).Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewRaw(`
		create unique index if not exists uq_referral_campaign
			on referral (referee_id, campaign_code)
			where campaign_code is not null`).Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.Referral)(nil)).Index("index_referral_referrer").IfNotExists().Column("referrer_id").Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

// InsertReferralIdempotent inserts the referral; a conflict on either scope
// index returns the existing row with created = false.
func InsertReferralIdempotent(ctx context.Context, db *bun.DB, referral *models.Referral) (*models.Referral, bool, error) {
	res, err := db.NewInsert().Model(referral).On("CONFLICT DO NOTHING").Exec(ctx)
	if err != nil {
		return nil, false, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return nil, false, err
	}
	if n > 0 {
		return referral, true, nil
	}

	existing, err := GetReferralByScope(ctx, db, referral.RefereeID, referral.CampaignCode)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// GetReferralByScope resolves the referee's referral in the default scope
// (campaignCode nil) or in one named-event scope.
func GetReferralByScope(ctx context.Context, db *bun.DB, refereeID int64, campaignCode *string) (*models.Referral, error) {
	var referral models.Referral
	q := db.NewSelect().Model(&referral).Where("referee_id = ?", refereeID)
	if campaignCode == nil {
		q = q.Where("campaign_code IS NULL")
	} else {
		q = q.Where("campaign_code = ?", *campaignCode)
	}
	err := q.Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &referral, nil
}

func CountActiveDefaultReferralsByReferrer(ctx context.Context, db *bun.DB, referrerID int64) (int, error) {
	return db.NewSelect().Model((*models.Referral)(nil)).
		Where("referrer_id = ?", referrerID).
		Where("campaign_code IS NULL").
		Where("status != ?", models.ReferralStatusRejected).
		Count(ctx)
}

func CountQualifiedDefaultReferralsByReferrer(ctx context.Context, db *bun.DB, referrerID int64) (int, error) {
	return db.NewSelect().Model((*models.Referral)(nil)).
		Where("referrer_id = ?", referrerID).
		Where("campaign_code IS NULL").
		Where("status = ?", models.ReferralStatusQualified).
		Count(ctx)
}

func ListPendingReferralsByReferee(ctx context.Context, db *bun.DB, refereeID int64) ([]*models.Referral, error) {
	var referrals []*models.Referral
	err := db.NewSelect().Model(&referrals).
		Where("referee_id = ?", refereeID).
		Where("status = ?", models.ReferralStatusPending).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return referrals, nil
}

func UpdateReferralStatus(ctx context.Context, db *bun.DB, referral *models.Referral) error {
	_, err := db.NewUpdate().Model(referral).
		Column("status", "qualified_at").
		WherePK().
		Exec(ctx)
	return err
}

// DeleteReferral removes a stale row whose reward coupons were deleted
// out-of-band, letting the referee re-accept (self-heal).
func DeleteReferral(ctx context.Context, db *bun.DB, referralID int64) error {
	_, err := db.NewDelete().Model((*models.Referral)(nil)).Where("id = ?", referralID).Exec(ctx)
	return err
}
