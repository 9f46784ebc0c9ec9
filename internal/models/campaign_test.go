package models

import (
	"testing"
	"time"
)

func TestCampaignOpen(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	before := now.Add(-time.Hour)
	after := now.Add(time.Hour)

	tests := []struct {
		name     string
		active   bool
		startsAt *time.Time
		endsAt   *time.Time
		want     bool
	}{
		{"active no window", true, nil, nil, true},
		{"inactive", false, nil, nil, false},
		{"inside window", true, &before, &after, true},
		{"not started", true, &after, nil, false},
		{"already ended", true, nil, &before, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Campaign{Active: tt.active, StartsAt: tt.startsAt, EndsAt: tt.endsAt}
			if got := c.Open(now); got != tt.want {
				t.Fatalf("Open = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCampaignDailyQuota(t *testing.T) {
	tests := []struct {
		name  string
		rules map[string]any
		want  int
	}{
		{"nil rules", nil, 0},
		{"missing key", map[string]any{}, 0},
		{"json number", map[string]any{"daily_quota": float64(100)}, 100},
		{"int", map[string]any{"daily_quota": 50}, 50},
		{"wrong type", map[string]any{"daily_quota": "100"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Campaign{Rules: tt.rules}
			if got := c.DailyQuota(); got != tt.want {
				t.Fatalf("DailyQuota = %d, want %d", got, tt.want)
			}
		})
	}
}
