package main

import (
	"context"
	"log"
	"os"
	"time"

	"tastyclub/internal/datastore"

	"github.com/robfig/cron/v3"
	"github.com/uptrace/bun"
)

// ExpiryJob sweeps coupons past their deadline into EXPIRED. Reads during
// the day already apply expiry lazily; the sweep keeps listings and counts
// honest for rows nobody looked at.
type ExpiryJob struct {
	Db *bun.DB
}

func NewExpiryJob(db *bun.DB) *ExpiryJob {
	return &ExpiryJob{
		Db: db,
	}
}

func (j *ExpiryJob) Start(cronRunner *cron.Cron) {
	schedule := os.Getenv("CRONJOB_TIME_EXPIRY")
	if schedule == "" {
		schedule = "@hourly"
	}

	_, err := cronRunner.AddFunc(schedule, j.runScheduledTask)
	log.Println("Expiry cronjob start at:", time.Now().Format("2006-01-02 15:04:05"), "cron:", schedule, err)
	j.runScheduledTask()
}

func (j *ExpiryJob) runScheduledTask() {
	ctx := context.Background()
	n, err := datastore.ExpireDueCoupons(ctx, j.Db, time.Now())
	if err != nil {
		log.Println(err)
		return
	}
	if n > 0 {
		log.Println("Expired coupons:", n)
	}
}
