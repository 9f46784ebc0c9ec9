package models

import (
	"sort"
	"strconv"
	"time"

	"github.com/uptrace/bun"
)

// StampWallet is the per-user-per-restaurant punch counter. The counter
// wraps at the reward cycle target; it is not a monotonic total.
type StampWallet struct {
	bun.BaseModel `bun:"table:stamp_wallet"`

	ID           int64     `bun:"id,pk,autoincrement" json:"id"`
	UserID       int64     `bun:"user_id,notnull" json:"user_id"`
	RestaurantID int64     `bun:"restaurant_id,notnull" json:"restaurant_id"`
	Stamps       int       `bun:"stamps,notnull,default:0" json:"stamps"`
	UpdatedAt    time.Time `bun:"updated_at,notnull" json:"updated_at"`
}

// StampEvent is the append-only ledger of stamp deltas, used to enforce the
// daily earn cap. Rows are never mutated.
type StampEvent struct {
	bun.BaseModel `bun:"table:stamp_event"`

	ID           int64     `bun:"id,pk,autoincrement" json:"id"`
	UserID       int64     `bun:"user_id,notnull" json:"user_id"`
	RestaurantID int64     `bun:"restaurant_id,notnull" json:"restaurant_id"`
	Delta        int       `bun:"delta,notnull" json:"delta"`
	Source       string    `bun:"source" json:"source"`
	CreatedAt    time.Time `bun:"created_at,default:current_timestamp" json:"created_at"`
}

const (
	StampRuleThreshold = "THRESHOLD"
	StampRuleVisit     = "VISIT"
)

// StampRewardRule drives which coupon types fire at which counts for one
// restaurant. Config payload for THRESHOLD rules:
//
//	{"thresholds": [5, 10], "coupon_types": {"5": "STAMP_5", "10": "STAMP_10"}}
//
// and for VISIT rules, which reward every Nth visit:
//
//	{"interval": 3, "coupon_type": "STAMP_VISIT"}
type StampRewardRule struct {
	bun.BaseModel `bun:"table:stamp_reward_rule"`

	ID           int64          `bun:"id,pk,autoincrement" json:"id"`
	RestaurantID int64          `bun:"restaurant_id,notnull,unique" json:"restaurant_id"`
	RuleType     string         `bun:"rule_type,notnull" json:"rule_type"`
	Config       map[string]any `bun:"config,type:jsonb" json:"config"`
	Active       bool           `bun:"active,notnull,default:true" json:"active"`
}

// Thresholds returns the configured reward thresholds in ascending order,
// or nil when the payload carries none.
func (r *StampRewardRule) Thresholds() []int {
	if r == nil || r.Config == nil {
		return nil
	}
	raw, ok := r.Config["thresholds"].([]any)
	if !ok {
		return nil
	}
	var out []int
	for _, v := range raw {
		switch n := v.(type) {
		case float64:
			out = append(out, int(n))
		case int:
			out = append(out, n)
		}
	}
	// the admin tool does not enforce payload order; the cycle target is the
	// last element, so it must be
	sort.Ints(out)
	return out
}

// VisitInterval returns the visit cadence for VISIT rules, 0 when the
// payload carries none.
func (r *StampRewardRule) VisitInterval() int {
	if r == nil || r.Config == nil {
		return 0
	}
	switch n := r.Config["interval"].(type) {
	case float64:
		return int(n)
	case int:
		return n
	}
	return 0
}

// CouponTypeFor resolves the coupon type fired at a threshold, "" if
// unmapped. VISIT rules carry a single top-level "coupon_type" instead of
// the per-threshold map.
func (r *StampRewardRule) CouponTypeFor(threshold int) string {
	if r == nil || r.Config == nil {
		return ""
	}
	if mapping, ok := r.Config["coupon_types"].(map[string]any); ok {
		if s, ok := mapping[strconv.Itoa(threshold)].(string); ok {
			return s
		}
		return ""
	}
	if s, ok := r.Config["coupon_type"].(string); ok {
		return s
	}
	return ""
}

// StampStatus is the read model returned by stamp status queries. Wallets
// that do not exist yet read as zero.
type StampStatus struct {
	UserID         int64  `json:"user_id"`
	RestaurantID   int64  `json:"restaurant_id"`
	RestaurantName string `json:"restaurant_name,omitempty"`
	Stamps         int    `json:"stamps"`
	CycleTarget    int    `json:"cycle_target"`
	EarnedToday    int    `json:"earned_today"`
	RewardedAt     []int  `json:"rewarded_at,omitempty"`
}
