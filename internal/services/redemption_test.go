package services

import (
	"errors"
	"testing"
	"time"

	"tastyclub/internal/models"
)

func TestRedeemable(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		status  models.CouponStatus
		expires time.Time
		wantErr error
	}{
		{
			name:    "issued and valid",
			status:  models.CouponStatusIssued,
			expires: now.Add(24 * time.Hour),
		},
		{
			name:    "already redeemed",
			status:  models.CouponStatusRedeemed,
			expires: now.Add(24 * time.Hour),
			wantErr: ErrAlreadyUsed,
		},
		{
			name:    "expired status",
			status:  models.CouponStatusExpired,
			expires: now.Add(24 * time.Hour),
			wantErr: ErrAlreadyUsed,
		},
		{
			name:    "canceled",
			status:  models.CouponStatusCanceled,
			expires: now.Add(24 * time.Hour),
			wantErr: ErrAlreadyUsed,
		},
		{
			name:    "issued but past deadline",
			status:  models.CouponStatusIssued,
			expires: now.Add(-time.Minute),
			wantErr: ErrCouponExpired,
		},
		{
			name:    "expires exactly now",
			status:  models.CouponStatusIssued,
			expires: now,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			coupon := &models.Coupon{Status: tt.status, ExpiresAt: tt.expires}
			err := redeemable(coupon, now)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}
