package models

import (
	"time"

	"github.com/uptrace/bun"
)

type ReferralStatus string

const (
	ReferralStatusPending   ReferralStatus = "PENDING"
	ReferralStatusQualified ReferralStatus = "QUALIFIED"
	ReferralStatusRejected  ReferralStatus = "REJECTED"
)

// Referral records a referrer→referee relationship. CampaignCode nil means
// the default scope; a referee holds at most one default referral and at
// most one per named event (enforced by partial unique indexes).
type Referral struct {
	bun.BaseModel `bun:"table:referral"`

	ID           int64          `bun:"id,pk,autoincrement" json:"id"`
	ReferrerID   int64          `bun:"referrer_id,notnull" json:"referrer_id"`
	RefereeID    int64          `bun:"referee_id,notnull" json:"referee_id"`
	CodeUsed     string         `bun:"code_used,notnull" json:"code_used"`
	CampaignCode *string        `bun:"campaign_code" json:"campaign_code"`
	Status       ReferralStatus `bun:"status,notnull" json:"status"`
	QualifiedAt  *time.Time     `bun:"qualified_at" json:"qualified_at"`
	CreatedAt    time.Time      `bun:"created_at,default:current_timestamp" json:"created_at"`
}

// InviteCode is a user's shareable referral code. The default code
// (CampaignCode nil) is created lazily on first access; event-scoped codes
// are unique per (user, campaign).
type InviteCode struct {
	bun.BaseModel `bun:"table:invite_code"`

	ID           int64     `bun:"id,pk,autoincrement" json:"id"`
	UserID       int64     `bun:"user_id,notnull" json:"user_id"`
	Code         string    `bun:"code,notnull,unique" json:"code"`
	CampaignCode *string   `bun:"campaign_code" json:"campaign_code"`
	CreatedAt    time.Time `bun:"created_at,default:current_timestamp" json:"created_at"`
}
