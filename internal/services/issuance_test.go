package services

import (
	"testing"
	"time"

	"tastyclub/internal/models"
)

func TestIssueKeys(t *testing.T) {
	at := time.Unix(1756600000, 0)

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"signup", IssueKeySignup(42), "SIGNUP:42"},
		{"ambassador", IssueKeyAmbassador(42, 7), "AMBASSADOR:42:7"},
		{"final exam", IssueKeyFinalExam(42, 7), "FINAL_EXAM:42:7"},
		{"referee", IssueKeyReferralReferee(42), "REFERRAL_REFEREE:42"},
		{"referrer", IssueKeyReferralReferrer(9, 42), "REFERRAL_REFERRER:9:42"},
		{"campaign referee", IssueKeyReferralCampaign("SPRING_FEST", 42), "REFERRAL_CAMPAIGN:SPRING_FEST:42"},
		{"stamp reward", IssueKeyStampReward(42, 7, 10, at), "STAMP:42:7:10:1756600000"},
		{"flash claim", IssueKeyFlashClaim("LUNCH_DROP", "2026-03-01", 42), "FLASH:LUNCH_DROP:2026-03-01:42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Fatalf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestMakeSnapshot(t *testing.T) {
	couponType := &models.CouponType{
		Code:     "WELCOME_3000",
		Title:    "Welcome gift",
		Subtitle: "3,000 won off",
		Benefit:  map[string]any{"discount_amount": 3000},
	}

	t.Run("type defaults", func(t *testing.T) {
		snapshot := makeSnapshot(couponType, nil, "Gogi House", nil)
		if snapshot.Title != "Welcome gift" {
			t.Fatalf("title %q", snapshot.Title)
		}
		if snapshot.RestaurantName != "Gogi House" {
			t.Fatalf("restaurant %q", snapshot.RestaurantName)
		}
		if snapshot.Benefit["discount_amount"] != 3000 {
			t.Fatalf("benefit %v", snapshot.Benefit)
		}
	})

	t.Run("active override wins", func(t *testing.T) {
		override := &models.RestaurantCouponBenefit{
			Title:   "House special welcome",
			Benefit: map[string]any{"discount_amount": 5000},
			Active:  true,
		}
		snapshot := makeSnapshot(couponType, override, "Gogi House", nil)
		if snapshot.Title != "House special welcome" {
			t.Fatalf("title %q", snapshot.Title)
		}
		// empty override subtitle keeps the type subtitle
		if snapshot.Subtitle != "3,000 won off" {
			t.Fatalf("subtitle %q", snapshot.Subtitle)
		}
		if snapshot.Benefit["discount_amount"] != 5000 {
			t.Fatalf("benefit %v", snapshot.Benefit)
		}
	})

	t.Run("inactive override ignored", func(t *testing.T) {
		override := &models.RestaurantCouponBenefit{
			Title:  "Should not appear",
			Active: false,
		}
		snapshot := makeSnapshot(couponType, override, "Gogi House", nil)
		if snapshot.Title != "Welcome gift" {
			t.Fatalf("title %q", snapshot.Title)
		}
	})

	t.Run("extra merges last", func(t *testing.T) {
		snapshot := makeSnapshot(couponType, nil, "Gogi House", map[string]any{"note": "event", "discount_amount": 9000})
		if snapshot.Benefit["note"] != "event" {
			t.Fatalf("benefit %v", snapshot.Benefit)
		}
		if snapshot.Benefit["discount_amount"] != 9000 {
			t.Fatalf("benefit %v", snapshot.Benefit)
		}
	})

	t.Run("source maps untouched", func(t *testing.T) {
		snapshot := makeSnapshot(couponType, nil, "Gogi House", map[string]any{"discount_amount": 9000})
		snapshot.Benefit["mutated"] = true
		if _, ok := couponType.Benefit["mutated"]; ok {
			t.Fatal("snapshot shares the coupon type's benefit map")
		}
		if couponType.Benefit["discount_amount"] != 3000 {
			t.Fatalf("coupon type benefit changed: %v", couponType.Benefit)
		}
	})
}
