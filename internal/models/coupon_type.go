package models

import (
	"time"

	"github.com/uptrace/bun"
)

type CouponType struct {
	bun.BaseModel `bun:"table:coupon_type"`

	ID           int64          `bun:"id,pk,autoincrement" json:"id"`
	Code         string         `bun:"code,notnull,unique" json:"code"`
	Title        string         `bun:"title,notnull" json:"title"`
	Subtitle     string         `bun:"subtitle" json:"subtitle"`
	Benefit      map[string]any `bun:"benefit,type:jsonb" json:"benefit"`
	ValidityDays int            `bun:"validity_days" json:"validity_days"`
	PerUserLimit int            `bun:"per_user_limit" json:"per_user_limit"`
	CreatedAt    time.Time      `bun:"created_at,default:current_timestamp" json:"created_at"`
}

// RestaurantCouponBenefit overrides a CouponType's displayed content for one
// restaurant. Falls back to the CouponType defaults when absent or inactive.
type RestaurantCouponBenefit struct {
	bun.BaseModel `bun:"table:restaurant_coupon_benefit"`

	ID           int64          `bun:"id,pk,autoincrement" json:"id"`
	CouponType   string         `bun:"coupon_type,notnull" json:"coupon_type"`
	RestaurantID int64          `bun:"restaurant_id,notnull" json:"restaurant_id"`
	Title        string         `bun:"title,notnull" json:"title"`
	Subtitle     string         `bun:"subtitle" json:"subtitle"`
	Benefit      map[string]any `bun:"benefit,type:jsonb" json:"benefit"`
	Active       bool           `bun:"active,notnull,default:true" json:"active"`
}

// CouponRestaurantExclusion removes a restaurant from allocation for a type.
type CouponRestaurantExclusion struct {
	bun.BaseModel `bun:"table:coupon_restaurant_exclusion"`

	ID           int64  `bun:"id,pk,autoincrement" json:"id"`
	CouponType   string `bun:"coupon_type,notnull" json:"coupon_type"`
	RestaurantID int64  `bun:"restaurant_id,notnull" json:"restaurant_id"`
}
