package models

import (
	"time"

	"github.com/uptrace/bun"
)

type CouponStatus string

const (
	CouponStatusIssued   CouponStatus = "ISSUED"
	CouponStatusRedeemed CouponStatus = "REDEEMED"
	CouponStatusExpired  CouponStatus = "EXPIRED"
	CouponStatusCanceled CouponStatus = "CANCELED"
)

// Terminal reports whether no further status transition is allowed.
func (s CouponStatus) Terminal() bool {
	return s == CouponStatusRedeemed || s == CouponStatusExpired || s == CouponStatusCanceled
}

// BenefitSnapshot is the frozen display content captured at issuance (and
// rebuilt at redemption against the redeeming restaurant). Later edits to
// CouponType or RestaurantCouponBenefit never change it.
type BenefitSnapshot struct {
	Title          string         `json:"title"`
	Subtitle       string         `json:"subtitle"`
	Benefit        map[string]any `json:"benefit"`
	RestaurantName string         `json:"restaurant_name"`
}

type Coupon struct {
	bun.BaseModel `bun:"table:coupon"`

	ID           int64            `bun:"id,pk,autoincrement" json:"id"`
	Code         string           `bun:"code,notnull" json:"code"`
	UserID       int64            `bun:"user_id,notnull" json:"user_id"`
	CouponType   string           `bun:"coupon_type,notnull" json:"coupon_type"`
	CampaignCode *string          `bun:"campaign_code" json:"campaign_code"`
	Status       CouponStatus     `bun:"status,notnull" json:"status"`
	IssueKey     *string          `bun:"issue_key" json:"-"`
	IssuedAt     time.Time        `bun:"issued_at,notnull" json:"issued_at"`
	ExpiresAt    time.Time        `bun:"expires_at,notnull" json:"expires_at"`
	RedeemedAt   *time.Time       `bun:"redeemed_at" json:"redeemed_at"`
	RestaurantID *int64           `bun:"restaurant_id" json:"restaurant_id"`
	Snapshot     *BenefitSnapshot `bun:"benefit_snapshot,type:jsonb" json:"benefit_snapshot"`
}

// Expired is the lazy-expiry check used by redemption and status reads.
func (c *Coupon) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}
