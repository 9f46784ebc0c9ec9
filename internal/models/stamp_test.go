package models

import "testing"

func TestStampRewardRuleThresholds(t *testing.T) {
	tests := []struct {
		name   string
		config map[string]any
		want   []int
	}{
		{"nil config", nil, nil},
		{"missing key", map[string]any{}, nil},
		// jsonb scans land as []any of float64
		{"json numbers", map[string]any{"thresholds": []any{float64(5), float64(10)}}, []int{5, 10}},
		{"ints", map[string]any{"thresholds": []any{3, 6}}, []int{3, 6}},
		// payload order is whatever the admin saved; the last threshold is
		// the cycle target, so descending input must come back ascending
		{"unsorted payload", map[string]any{"thresholds": []any{float64(10), float64(5)}}, []int{5, 10}},
		{"wrong type", map[string]any{"thresholds": "5,10"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &StampRewardRule{Config: tt.config}
			got := r.Thresholds()
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("got %v, want %v", got, tt.want)
				}
			}
		})
	}

	var nilRule *StampRewardRule
	if nilRule.Thresholds() != nil {
		t.Fatal("nil rule should have no thresholds")
	}
}

func TestStampRewardRuleCouponTypeFor(t *testing.T) {
	r := &StampRewardRule{Config: map[string]any{
		"coupon_types": map[string]any{"5": "STAMP_5", "10": "STAMP_10"},
	}}

	if got := r.CouponTypeFor(5); got != "STAMP_5" {
		t.Fatalf("got %q", got)
	}
	if got := r.CouponTypeFor(10); got != "STAMP_10" {
		t.Fatalf("got %q", got)
	}
	if got := r.CouponTypeFor(7); got != "" {
		t.Fatalf("unmapped threshold returned %q", got)
	}

	empty := &StampRewardRule{}
	if got := empty.CouponTypeFor(5); got != "" {
		t.Fatalf("empty rule returned %q", got)
	}

	visit := &StampRewardRule{Config: map[string]any{"coupon_type": "STAMP_VISIT"}}
	if got := visit.CouponTypeFor(3); got != "STAMP_VISIT" {
		t.Fatalf("visit rule returned %q", got)
	}
}

func TestStampRewardRuleVisitInterval(t *testing.T) {
	tests := []struct {
		name   string
		config map[string]any
		want   int
	}{
		{"nil config", nil, 0},
		{"missing key", map[string]any{}, 0},
		{"json number", map[string]any{"interval": float64(3)}, 3},
		{"int", map[string]any{"interval": 4}, 4},
		{"wrong type", map[string]any{"interval": "3"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &StampRewardRule{Config: tt.config}
			if got := r.VisitInterval(); got != tt.want {
				t.Fatalf("got %d, want %d", got, tt.want)
			}
		})
	}

	var nilRule *StampRewardRule
	if nilRule.VisitInterval() != 0 {
		t.Fatal("nil rule should have no interval")
	}
}
