package services

import (
	"testing"
	"time"

	"tastyclub/internal/models"
)

func TestRuleThresholds(t *testing.T) {
	defaults := []int{5, 10}
	tests := []struct {
		name string
		rule *models.StampRewardRule
		want []int
	}{
		{"no rule", nil, defaults},
		{"empty config", &models.StampRewardRule{RuleType: models.StampRuleThreshold}, defaults},
		{
			name: "threshold rule",
			rule: &models.StampRewardRule{
				RuleType: models.StampRuleThreshold,
				Config:   map[string]any{"thresholds": []any{float64(3), float64(6)}},
			},
			want: []int{3, 6},
		},
		{
			// the cycle target is the last threshold; a descending payload
			// must not shrink it
			name: "unsorted threshold payload",
			rule: &models.StampRewardRule{
				RuleType: models.StampRuleThreshold,
				Config:   map[string]any{"thresholds": []any{float64(10), float64(5)}},
			},
			want: []int{5, 10},
		},
		{
			// a visit rule is a one-threshold cycle: reward every Nth visit
			name: "visit rule",
			rule: &models.StampRewardRule{
				RuleType: models.StampRuleVisit,
				Config:   map[string]any{"interval": float64(3), "coupon_type": "STAMP_VISIT"},
			},
			want: []int{3},
		},
		{"visit rule without interval", &models.StampRewardRule{RuleType: models.StampRuleVisit}, defaults},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ruleThresholds(tt.rule, defaults)
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
}

func TestCrossedThresholds(t *testing.T) {
	tests := []struct {
		name       string
		prev, next int
		thresholds []int
		want       []int
	}{
		{"no crossing", 2, 3, []int{5, 10}, nil},
		{"crosses first", 4, 5, []int{5, 10}, []int{5}},
		{"crosses second", 9, 10, []int{5, 10}, []int{10}},
		{"already past", 5, 6, []int{5, 10}, nil},
		{"crosses both", 4, 10, []int{5, 10}, []int{5, 10}},
		{"no thresholds", 4, 5, nil, nil},
		{"from zero", 0, 1, []int{1}, []int{1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := crossedThresholds(tt.prev, tt.next, tt.thresholds)
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
}

func TestWrapStamps(t *testing.T) {
	tests := []struct {
		name   string
		next   int
		target int
		want   int
	}{
		{"under target", 7, 10, 7},
		{"hits target", 10, 10, 0},
		{"past target", 11, 10, 1},
		{"no target", 7, 0, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := wrapStamps(tt.next, tt.target); got != tt.want {
				t.Fatalf("wrapStamps(%d, %d) = %d, want %d", tt.next, tt.target, got, tt.want)
			}
		})
	}
}

func TestStartOfDay(t *testing.T) {
	at := time.Date(2026, 3, 1, 23, 59, 59, 0, time.UTC)
	got := startOfDay(at)
	want := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("got %v, want %v", got, want)
	}

	// non-UTC input normalizes to the UTC day
	loc := time.FixedZone("KST", 9*60*60)
	at = time.Date(2026, 3, 2, 3, 0, 0, 0, loc) // 2026-03-01T18:00Z
	got = startOfDay(at)
	if !got.Equal(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestDayString(t *testing.T) {
	loc := time.FixedZone("KST", 9*60*60)
	at := time.Date(2026, 3, 2, 3, 0, 0, 0, loc)
	if got := dayString(at); got != "2026-03-01" {
		t.Fatalf("got %q", got)
	}
}
