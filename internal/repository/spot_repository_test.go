package repository

import "testing"

func TestGrowNumbers(t *testing.T) {
	got := GrowNumbers(0, 3)
	want := []uint32{1, 2, 3}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestGrowNumbersContinuesAfterMax(t *testing.T) {
	// after a shrink removed spots 9 and 10, growing again must not reuse
	// surviving numbers
	got := GrowNumbers(8, 2)
	if len(got) != 2 || got[0] != 9 || got[1] != 10 {
		t.Fatalf("got %v, want [9 10]", got)
	}
}

func TestGrowNumbersZeroCount(t *testing.T) {
	if got := GrowNumbers(5, 0); got != nil {
		t.Fatalf("expected nil for zero count, got %v", got)
	}
	if got := GrowNumbers(5, -1); got != nil {
		t.Fatalf("expected nil for negative count, got %v", got)
	}
}
