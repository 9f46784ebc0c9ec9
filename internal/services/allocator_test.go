package services

import (
	"errors"
	"testing"
)

func TestPickLeastLoaded(t *testing.T) {
	tests := []struct {
		name     string
		ids      []int64
		excluded map[int64]bool
		counts   map[int64]int
		capacity int
		want     []int64 // acceptable picks
		wantErr  error
	}{
		{
			name:     "single restaurant",
			ids:      []int64{1},
			counts:   map[int64]int{1: 0},
			capacity: 200,
			want:     []int64{1},
		},
		{
			name:     "least loaded wins",
			ids:      []int64{1, 2, 3},
			counts:   map[int64]int{1: 10, 2: 3, 3: 10},
			capacity: 200,
			want:     []int64{2},
		},
		{
			name:     "ties stay eligible",
			ids:      []int64{1, 2, 3},
			counts:   map[int64]int{1: 5, 2: 5, 3: 9},
			capacity: 200,
			want:     []int64{1, 2},
		},
		{
			name:     "excluded restaurant skipped",
			ids:      []int64{1, 2},
			excluded: map[int64]bool{1: true},
			counts:   map[int64]int{1: 0, 2: 100},
			capacity: 200,
			want:     []int64{2},
		},
		{
			name:     "at cap skipped",
			ids:      []int64{1, 2},
			counts:   map[int64]int{1: 200, 2: 150},
			capacity: 200,
			want:     []int64{2},
		},
		{
			name:     "all excluded",
			ids:      []int64{1, 2},
			excluded: map[int64]bool{1: true, 2: true},
			counts:   map[int64]int{},
			capacity: 200,
			wantErr:  ErrCapacityExhausted,
		},
		{
			name:     "all at cap",
			ids:      []int64{1, 2},
			counts:   map[int64]int{1: 200, 2: 201},
			capacity: 200,
			wantErr:  ErrCapacityExhausted,
		},
		{
			name:     "no restaurants",
			ids:      nil,
			counts:   map[int64]int{},
			capacity: 200,
			wantErr:  ErrCapacityExhausted,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := pickLeastLoaded(tt.ids, tt.excluded, tt.counts, tt.capacity)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			for _, id := range tt.want {
				if got == id {
					return
				}
			}
			t.Fatalf("picked %d, want one of %v", got, tt.want)
		})
	}
}

func TestPickLeastLoadedTieDistribution(t *testing.T) {
	// both tied at the minimum; over many picks each side should win at
	// least once
	seen := map[int64]bool{}
	for i := 0; i < 200; i++ {
		got, err := pickLeastLoaded([]int64{1, 2}, nil, map[int64]int{1: 4, 2: 4}, 200)
		if err != nil {
			t.Fatal(err)
		}
		seen[got] = true
	}
	if !seen[1] || !seen[2] {
		t.Fatalf("tie-break never picked both sides: %v", seen)
	}
}
