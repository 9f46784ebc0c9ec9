package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Restaurant struct {
	bun.BaseModel `bun:"table:restaurant"`

	ID        int64     `bun:"id,pk,autoincrement" json:"id"`
	Name      string    `bun:"name,notnull" json:"name"`
	Active    bool      `bun:"active,notnull,default:true" json:"active"`
	CreatedAt time.Time `bun:"created_at,default:current_timestamp" json:"created_at"`
}

const PinAlgoStatic = "STATIC"

// MerchantPin holds a restaurant's active redemption secret. One row per
// restaurant; rotation replaces the secret in place.
type MerchantPin struct {
	bun.BaseModel `bun:"table:merchant_pin"`

	RestaurantID int64      `bun:"restaurant_id,pk" json:"restaurant_id"`
	Algo         string     `bun:"algo,notnull,default:'STATIC'" json:"algo"`
	Secret       string     `bun:"secret,notnull" json:"-"`
	RotationID   string     `bun:"rotation_id" json:"rotation_id"`
	RotatedAt    *time.Time `bun:"rotated_at" json:"rotated_at"`
}
