package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"

	"tastyclub/internal/datastore"
	"tastyclub/internal/models"
	"tastyclub/internal/services"

	"github.com/joho/godotenv"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/urfave/cli/v2"
)

func init() {
	// for development
	//nolint:errcheck
	godotenv.Load("../../.env")

	// for production
	//nolint:errcheck
	godotenv.Load("./.env")
}

func main() {
	app := &cli.App{
		Name: "migrate",
		Commands: []*cli.Command{
			commandMigration(),
			commandSeed(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func commandMigration() *cli.Command {
	return &cli.Command{
		Name: "migrate",
		Action: func(c *cli.Context) error {
			ctx := context.Background()
			db, err := getDb()
			if err != nil {
				log.Fatal(err)
			}

			err = datastore.CreateTableRestaurant(ctx, db)
			if err != nil {
				log.Fatal(err)
			}

			err = datastore.CreateTableMerchantPin(ctx, db)
			if err != nil {
				log.Fatal(err)
			}

			err = datastore.CreateTableCouponType(ctx, db)
			if err != nil {
				log.Fatal(err)
			}

			err = datastore.CreateTableRestaurantCouponBenefit(ctx, db)
			if err != nil {
				log.Fatal(err)
			}

			err = datastore.CreateTableCouponRestaurantExclusion(ctx, db)
			if err != nil {
				log.Fatal(err)
			}

			err = datastore.CreateTableCampaign(ctx, db)
			if err != nil {
				log.Fatal(err)
			}

			err = datastore.CreateTableCoupon(ctx, db)
			if err != nil {
				log.Fatal(err)
			}

			err = datastore.CreateTableInviteCode(ctx, db)
			if err != nil {
				log.Fatal(err)
			}

			err = datastore.CreateTableReferral(ctx, db)
			if err != nil {
				log.Fatal(err)
			}

			err = datastore.CreateTableStampWallet(ctx, db)
			if err != nil {
				log.Fatal(err)
			}

			err = datastore.CreateTableStampEvent(ctx, db)
			if err != nil {
				log.Fatal(err)
			}

			err = datastore.CreateTableStampRewardRule(ctx, db)
			if err != nil {
				log.Fatal(err)
			}

			fmt.Println("Migration success")

			return nil
		},
	}
}

// commandSeed loads the baseline coupon types and campaigns the rule set
// references, plus a few restaurants for development.
func commandSeed() *cli.Command {
	return &cli.Command{
		Name: "seed",
		Action: func(c *cli.Context) error {
			ctx := context.Background()
			db, err := getDb()
			if err != nil {
				log.Fatal(err)
			}

			rules := services.LoadRules()

			couponTypes := []*models.CouponType{
				{Code: rules.SignupRewardType, Title: "Welcome gift", Subtitle: "3,000 won off", Benefit: map[string]any{"discount_amount": 3000}, PerUserLimit: 1},
				{Code: rules.RefereeRewardType, Title: "Friend invite reward", Subtitle: "3,000 won off", Benefit: map[string]any{"discount_amount": 3000}},
				{Code: rules.FinalExamRewardType, Title: "Final exam cheer", Subtitle: "5,000 won off", Benefit: map[string]any{"discount_amount": 5000}},
				{Code: rules.AmbassadorRewardType, Title: "Ambassador reward", Subtitle: "5,000 won off", Benefit: map[string]any{"discount_amount": 5000}},
				{Code: "STAMP_5", Title: "Stamp reward", Subtitle: "Free side dish", Benefit: map[string]any{"free_item": "side"}},
				{Code: "STAMP_10", Title: "Stamp reward", Subtitle: "Free main dish", Benefit: map[string]any{"free_item": "main"}},
			}
			for _, couponType := range couponTypes {
				if err := datastore.InsertCouponType(ctx, db, couponType); err != nil {
					log.Println(err)
				}
			}

			campaigns := []*models.Campaign{
				{Code: rules.SignupCampaign, Name: "Signup welcome", Active: true},
				{Code: rules.ReferralCampaign, Name: "Friend referral", Active: true},
				{Code: rules.FinalExamCampaign, Name: "Final exam event", Active: true},
				{Code: rules.AmbassadorCampaign, Name: "Campus ambassador", Active: true},
				{Code: rules.StampCampaign, Name: "Stamp rewards", Active: true},
			}
			for _, campaign := range campaigns {
				if err := datastore.InsertCampaign(ctx, db, campaign); err != nil {
					log.Println(err)
				}
			}

			names := []string{"Gogi House", "Noodle Lab", "Kimbap Corner"}
			for i, name := range names {
				restaurant, err := datastore.InsertRestaurant(ctx, db, &models.Restaurant{Name: name, Active: true})
				if err != nil {
					log.Println(err)
					continue
				}

				err = datastore.UpsertMerchantPin(ctx, db, &models.MerchantPin{
					RestaurantID: restaurant.ID,
					Algo:         models.PinAlgoStatic,
					Secret:       fmt.Sprintf("%04d", 1000+i),
				})
				if err != nil {
					log.Println(err)
				}
			}

			fmt.Println("Seed success")

			return nil
		},
	}
}

func getDb() (*bun.DB, error) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(
		pgdriver.WithDSN(os.Getenv("DB_DSN")),
		pgdriver.WithPassword(os.Getenv("DB_PASSWORD")),
	))

	db := bun.NewDB(sqldb, pgdialect.New())
	return db, nil
}
