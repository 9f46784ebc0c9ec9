package services

import (
	"testing"
	"time"
)

func TestDefaultRules(t *testing.T) {
	r := DefaultRules()
	if r.PerRestaurantCap != 200 {
		t.Fatalf("cap %d", r.PerRestaurantCap)
	}
	if r.ReferralLimit != 5 {
		t.Fatalf("referral limit %d", r.ReferralLimit)
	}
	if r.StampDailyLimit != 2 {
		t.Fatalf("stamp daily limit %d", r.StampDailyLimit)
	}
	if r.CouponValidity != 90*24*time.Hour {
		t.Fatalf("validity %v", r.CouponValidity)
	}
	if len(r.DefaultStampThresholds) != 2 {
		t.Fatalf("thresholds %v", r.DefaultStampThresholds)
	}
}

func TestLoadRulesOverrides(t *testing.T) {
	t.Setenv("RESTAURANT_COUPON_CAP", "50")
	t.Setenv("REFERRAL_LIMIT", "3")
	t.Setenv("COUPON_VALIDITY_DAYS", "30")
	t.Setenv("BLOCKED_INVITE_CODES", "abc123, def456")
	t.Setenv("OPERATIONAL_ACCOUNT_IDS", "100,200")
	t.Setenv("CAMPAIGN_COUPON_TYPES", "SPRING_FEST:SPRING_5000,AUTUMN_FEST:AUTUMN_3000")

	r := LoadRules()

	if r.PerRestaurantCap != 50 {
		t.Fatalf("cap %d", r.PerRestaurantCap)
	}
	if r.ReferralLimit != 3 {
		t.Fatalf("referral limit %d", r.ReferralLimit)
	}
	if r.CouponValidity != 30*24*time.Hour {
		t.Fatalf("validity %v", r.CouponValidity)
	}
	if !r.IsBlockedCode("ABC123") || !r.IsBlockedCode("abc123") {
		t.Fatal("blocked codes should match case-insensitively")
	}
	if r.IsBlockedCode("xyz") {
		t.Fatal("unlisted code blocked")
	}
	if !r.IsOperationalAccount(100) || !r.IsOperationalAccount(200) {
		t.Fatal("operational accounts not loaded")
	}
	if r.IsOperationalAccount(300) {
		t.Fatal("unlisted account marked operational")
	}
	if r.RewardTypeForCampaign("SPRING_FEST") != "SPRING_5000" {
		t.Fatalf("campaign reward %q", r.RewardTypeForCampaign("SPRING_FEST"))
	}
	if r.RewardTypeForCampaign("UNKNOWN") != r.RefereeRewardType {
		t.Fatal("unknown campaign should fall back to the referee reward")
	}
}

func TestLoadRulesIgnoresBadValues(t *testing.T) {
	t.Setenv("REFERRAL_LIMIT", "not a number")
	t.Setenv("OPERATIONAL_ACCOUNT_IDS", "abc")

	r := LoadRules()
	if r.ReferralLimit != 5 {
		t.Fatalf("referral limit %d", r.ReferralLimit)
	}
	if len(r.OperationalAccounts) != 0 {
		t.Fatalf("operational accounts %v", r.OperationalAccounts)
	}
}
