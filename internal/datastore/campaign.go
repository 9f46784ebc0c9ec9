package datastore

import (
	"context"

	"tastyclub/internal/models"

	"github.com/uptrace/bun"
)

func CreateTableCampaign(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.Campaign)(nil)).IfNotExists().Exec(ctx)
	return err
}

func GetCampaignByCode(ctx context.Context, db *bun.DB, code string) (*models.Campaign, error) {
	var campaign models.Campaign
	err := db.NewSelect().Model(&campaign).Where("code = ?", code).Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &campaign, nil
}

func InsertCampaign(ctx context.Context, db *bun.DB, campaign *models.Campaign) error {
	_, err := db.NewInsert().Model(campaign).On("CONFLICT (code) DO NOTHING").Exec(ctx)
	return err
}
