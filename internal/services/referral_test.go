package services

import (
	"testing"

	"tastyclub/internal/models"
)

func TestRefereeRewardScope(t *testing.T) {
	rules := DefaultRules()
	rules.CampaignRewardTypes = map[string]string{"SPRING_FEST": "SPRING_5000"}

	campaign := "SPRING_FEST"
	tests := []struct {
		name         string
		referral     *models.Referral
		wantType     string
		wantCampaign string
		wantKey      string
	}{
		{
			name:     "default scope",
			referral: &models.Referral{ReferrerID: 7, RefereeID: 42},
			wantType: rules.RefereeRewardType,
			// the grant writes the referral campaign, never a nil campaign;
			// the stale-row check must look under the same one
			wantCampaign: rules.ReferralCampaign,
			wantKey:      IssueKeyReferralReferee(42),
		},
		{
			name:         "campaign scope",
			referral:     &models.Referral{ReferrerID: 7, RefereeID: 42, CampaignCode: &campaign},
			wantType:     "SPRING_5000",
			wantCampaign: "SPRING_FEST",
			wantKey:      IssueKeyReferralCampaign("SPRING_FEST", 42),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			couponType, campaignCode, issueKey := refereeRewardScope(tt.referral, rules)
			if couponType != tt.wantType {
				t.Fatalf("coupon type %q, want %q", couponType, tt.wantType)
			}
			if campaignCode == nil {
				t.Fatal("campaign scope must never be nil, the granted coupon carries one")
			}
			if *campaignCode != tt.wantCampaign {
				t.Fatalf("campaign %q, want %q", *campaignCode, tt.wantCampaign)
			}
			if issueKey != tt.wantKey {
				t.Fatalf("issue key %q, want %q", issueKey, tt.wantKey)
			}
		})
	}
}

func TestReferrerUnderCap(t *testing.T) {
	// counts are taken before the row flips to QUALIFIED, so a referrer with
	// limit-1 prior qualifications still earns on this one
	tests := []struct {
		qualifiedBefore int
		limit           int
		want            bool
	}{
		{0, 5, true},
		{4, 5, true},
		{5, 5, false},
		{6, 5, false},
	}

	for _, tt := range tests {
		if got := referrerUnderCap(tt.qualifiedBefore, tt.limit); got != tt.want {
			t.Fatalf("referrerUnderCap(%d, %d) = %v, want %v", tt.qualifiedBefore, tt.limit, got, tt.want)
		}
	}
}
