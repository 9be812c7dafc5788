package repository

import (
	"testing"
	"time"
)

func TestCostForDuration(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	cases := []struct {
		name  string
		end   time.Time
		price float64
		want  float64
	}{
		{"exactly one hour", start.Add(60 * time.Minute), 20, 20},
		{"one minute over bills two hours", start.Add(61 * time.Minute), 20, 40},
		{"half hour bills full hour", start.Add(30 * time.Minute), 10, 10},
		{"zero duration", start, 15, 0},
		{"end before start clamps to zero", start.Add(-time.Hour), 15, 0},
		{"three and a bit hours", start.Add(3*time.Hour + time.Second), 5, 20},
	}
	for _, tc := range cases {
		got := CostForDuration(start, tc.end, tc.price)
		if got != tc.want {
			t.Errorf("%s: got %v, want %v", tc.name, got, tc.want)
		}
	}
}
