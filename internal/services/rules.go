package services

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Rules is the immutable business configuration, built once at startup and
// passed into each service through the container. Alternate rule sets slot
// straight into tests.
type Rules struct {
	PerRestaurantCap int
	CouponValidity   time.Duration
	ReferralLimit    int
	StampDailyLimit  int

	DefaultStampThresholds  []int
	DefaultStampRewardTypes map[int]string

	BlockedInviteCodes  map[string]bool
	OperationalAccounts map[int64]bool

	SignupCampaign   string
	SignupRewardType string

	ReferralCampaign   string
	RefereeRewardType  string
	ReferrerRewardType string
	// operational accounts may hand out campaign-scoped invite codes that
	// redirect the referee's reward to another coupon type
	CampaignRewardTypes map[string]string

	FinalExamCode       string
	FinalExamCampaign   string
	FinalExamRewardType string

	AmbassadorCampaign   string
	AmbassadorRewardType string

	StampCampaign string

	LockTTL        time.Duration
	LockTries      int
	LockRetryDelay time.Duration

	PinAttemptsPerMinute int
}

func (r *Rules) IsBlockedCode(code string) bool {
	return r.BlockedInviteCodes[strings.ToUpper(code)]
}

func (r *Rules) IsOperationalAccount(userID int64) bool {
	return r.OperationalAccounts[userID]
}

// RewardTypeForCampaign resolves the redirected reward type for an
// operational campaign scope, falling back to the standard referee reward.
func (r *Rules) RewardTypeForCampaign(campaignCode string) string {
	if t, ok := r.CampaignRewardTypes[campaignCode]; ok {
		return t
	}
	return r.RefereeRewardType
}

func DefaultRules() *Rules {
	return &Rules{
		PerRestaurantCap: 200,
		CouponValidity:   90 * 24 * time.Hour,
		ReferralLimit:    5,
		StampDailyLimit:  2,

		DefaultStampThresholds:  []int{5, 10},
		DefaultStampRewardTypes: map[int]string{5: "STAMP_5", 10: "STAMP_10"},

		BlockedInviteCodes:  map[string]bool{},
		OperationalAccounts: map[int64]bool{},

		SignupCampaign:   "SIGNUP_WELCOME",
		SignupRewardType: "WELCOME_3000",

		ReferralCampaign:    "REFERRAL",
		RefereeRewardType:   "REFERRAL_3000",
		ReferrerRewardType:  "REFERRAL_3000",
		CampaignRewardTypes: map[string]string{},

		FinalExamCode:       "FINALEXAM",
		FinalExamCampaign:   "FINAL_EXAM",
		FinalExamRewardType: "FINAL_EXAM_5000",

		AmbassadorCampaign:   "AMBASSADOR",
		AmbassadorRewardType: "AMBASSADOR_5000",

		StampCampaign: "STAMP",

		LockTTL:        8 * time.Second,
		LockTries:      32,
		LockRetryDelay: 250 * time.Millisecond,

		PinAttemptsPerMinute: 10,
	}
}

// LoadRules builds the rule set from environment overrides on top of the
// defaults. Called once per process.
func LoadRules() *Rules {
	r := DefaultRules()

	r.PerRestaurantCap = envInt("RESTAURANT_COUPON_CAP", r.PerRestaurantCap)
	r.ReferralLimit = envInt("REFERRAL_LIMIT", r.ReferralLimit)
	r.StampDailyLimit = envInt("STAMP_DAILY_LIMIT", r.StampDailyLimit)
	if days := envInt("COUPON_VALIDITY_DAYS", 0); days > 0 {
		r.CouponValidity = time.Duration(days) * 24 * time.Hour
	}

	for _, code := range envList("BLOCKED_INVITE_CODES") {
		r.BlockedInviteCodes[strings.ToUpper(code)] = true
	}
	for _, raw := range envList("OPERATIONAL_ACCOUNT_IDS") {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			r.OperationalAccounts[id] = true
		}
	}
	// CAMPAIGN_COUPON_TYPES=SPRING_FEST:SPRING_5000,AUTUMN_FEST:AUTUMN_3000
	for _, pair := range envList("CAMPAIGN_COUPON_TYPES") {
		parts := strings.SplitN(pair, ":", 2)
		if len(parts) == 2 {
			r.CampaignRewardTypes[parts[0]] = parts[1]
		}
	}

	r.SignupRewardType = envString("SIGNUP_COUPON_TYPE", r.SignupRewardType)
	r.RefereeRewardType = envString("REFEREE_COUPON_TYPE", r.RefereeRewardType)
	r.ReferrerRewardType = envString("REFERRER_COUPON_TYPE", r.ReferrerRewardType)
	r.FinalExamCode = envString("FINAL_EXAM_CODE", r.FinalExamCode)
	r.FinalExamRewardType = envString("FINAL_EXAM_COUPON_TYPE", r.FinalExamRewardType)
	r.AmbassadorRewardType = envString("AMBASSADOR_COUPON_TYPE", r.AmbassadorRewardType)

	return r
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
