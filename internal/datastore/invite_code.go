package datastore

import (
	"context"

	"tastyclub/internal/models"

	"github.com/uptrace/bun"
)

func CreateTableInviteCode(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.InviteCode)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewRaw(`
		create unique index if not exists uq_invite_code_scope
			on invite_code (user_id, coalesce(campaign_code, ''))`).Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

func GetInviteCodeByCode(ctx context.Context, db *bun.DB, code string) (*models.InviteCode, error) {
	var invite models.InviteCode
	err := db.NewSelect().Model(&invite).Where("code = ?", code).Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &invite, nil
}

func GetInviteCodeByScope(ctx context.Context, db *bun.DB, userID int64, campaignCode *string) (*models.InviteCode, error) {
	var invite models.InviteCode
	q := db.NewSelect().Model(&invite).Where("user_id = ?", userID)
	if campaignCode == nil {
		q = q.Where("campaign_code IS NULL")
	} else {
		q = q.Where("campaign_code = ?", *campaignCode)
	}
	err := q.Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &invite, nil
}

// InsertInviteCodeIdempotent keeps the lazy get-or-create race harmless: a
// conflict on the (user, scope) index returns the row that won.
func InsertInviteCodeIdempotent(ctx context.Context, db *bun.DB, invite *models.InviteCode) (*models.InviteCode, bool, error) {
	res, err := db.NewInsert().Model(invite).On("CONFLICT DO NOTHING").Exec(ctx)
	if err != nil {
		return nil, false, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return nil, false, err
	}
	if n > 0 {
		return invite, true, nil
	}

	existing, err := GetInviteCodeByScope(ctx, db, invite.UserID, invite.CampaignCode)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}
