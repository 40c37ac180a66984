package units

import "testing"

func TestCalibratedTrimPx_Buckets(t *testing.T) {
	tests := []struct {
		height int
		want   int
	}{
		{0, 72},
		{1038, 72},
		{2219, 72},
		{2220, 78},
		{2959, 78},
		{2960, 104},
		{4439, 104},
		{4440, 156},
		{9000, 156},
	}

	for _, tt := range tests {
		if got := CalibratedTrimPx(tt.height); got != tt.want {
			t.Errorf("CalibratedTrimPx(%d) = %d, want %d", tt.height, got, tt.want)
		}
	}
}

func TestCalibratedTrimPx_NonDecreasing(t *testing.T) {
	prev := 0
	for h := 0; h < 6000; h += 10 {
		got := CalibratedTrimPx(h)
		if got < prev {
			t.Fatalf("trim decreased at height %d: %d -> %d", h, prev, got)
		}
		prev = got
	}
}

func TestCalibratedTrimPx_ExactlyFourValues(t *testing.T) {
	seen := map[int]bool{}
	for h := 0; h < 10000; h++ {
		seen[CalibratedTrimPx(h)] = true
	}
	if len(seen) != 4 {
		t.Errorf("expected exactly 4 trim buckets, got %d: %v", len(seen), seen)
	}
	for _, want := range []int{72, 78, 104, 156} {
		if !seen[want] {
			t.Errorf("missing expected trim value %d", want)
		}
	}
}
