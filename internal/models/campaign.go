package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Campaign struct {
	bun.BaseModel `bun:"table:campaign"`

	ID        int64          `bun:"id,pk,autoincrement" json:"id"`
	Code      string         `bun:"code,notnull,unique" json:"code"`
	Name      string         `bun:"name,notnull" json:"name"`
	Active    bool           `bun:"active,notnull,default:true" json:"active"`
	StartsAt  *time.Time     `bun:"starts_at" json:"starts_at"`
	EndsAt    *time.Time     `bun:"ends_at" json:"ends_at"`
	Rules     map[string]any `bun:"rules,type:jsonb" json:"rules"`
	CreatedAt time.Time      `bun:"created_at,default:current_timestamp" json:"created_at"`
}

// Open reports whether the campaign accepts operations at t.
func (c *Campaign) Open(t time.Time) bool {
	if !c.Active {
		return false
	}
	if c.StartsAt != nil && t.Before(*c.StartsAt) {
		return false
	}
	if c.EndsAt != nil && t.After(*c.EndsAt) {
		return false
	}
	return true
}

// DailyQuota reads the flash-drop quota from the rule payload, 0 if unset.
func (c *Campaign) DailyQuota() int {
	if c.Rules == nil {
		return 0
	}
	switch v := c.Rules["daily_quota"].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return 0
}
