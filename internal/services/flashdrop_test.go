package services

import (
	"errors"
	"testing"

	"tastyclub/internal/models"
)

func TestFlashQuotaRefund(t *testing.T) {
	issueErr := errors.New("boom")
	tests := []struct {
		name    string
		created bool
		err     error
		want    bool
	}{
		{"new coupon keeps the unit", true, nil, false},
		// the issue-key guard answered a repeat claim; no coupon was minted
		{"repeat claim refunds", false, nil, true},
		{"failed issuance refunds", false, issueErr, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := flashQuotaRefund(tt.created, tt.err); got != tt.want {
				t.Fatalf("flashQuotaRefund(%v, %v) = %v, want %v", tt.created, tt.err, got, tt.want)
			}
		})
	}
}

func TestRewardTypeFromRules(t *testing.T) {
	tests := []struct {
		name     string
		campaign *models.Campaign
		want     string
	}{
		{"nil rules", &models.Campaign{}, ""},
		{"missing key", &models.Campaign{Rules: map[string]any{}}, ""},
		{"configured", &models.Campaign{Rules: map[string]any{"coupon_type": "LUNCH_1000"}}, "LUNCH_1000"},
		{"wrong type", &models.Campaign{Rules: map[string]any{"coupon_type": 7}}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := rewardTypeFromRules(tt.campaign); got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}
