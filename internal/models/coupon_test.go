package models

import (
	"testing"
	"time"
)

func TestCouponStatusTerminal(t *testing.T) {
	tests := []struct {
		status CouponStatus
		want   bool
	}{
		{CouponStatusIssued, false},
		{CouponStatusRedeemed, true},
		{CouponStatusExpired, true},
		{CouponStatusCanceled, true},
	}

	for _, tt := range tests {
		if got := tt.status.Terminal(); got != tt.want {
			t.Fatalf("%s.Terminal() = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestCouponExpired(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	c := &Coupon{ExpiresAt: now.Add(time.Minute)}
	if c.Expired(now) {
		t.Fatal("coupon expired before its deadline")
	}

	c = &Coupon{ExpiresAt: now}
	if c.Expired(now) {
		t.Fatal("coupon expiring exactly now should still be valid")
	}

	c = &Coupon{ExpiresAt: now.Add(-time.Second)}
	if !c.Expired(now) {
		t.Fatal("coupon past its deadline should be expired")
	}
}
