package extraction

import "testing"

func TestHalfWindowClamps(t *testing.T) {
	cases := []struct {
		length int
		want   int
	}{
		{0, 2},
		{10, 2},
		{40, 2},
		{60, 3},
		{100, 5},
		{500, 5},
	}
	for _, tc := range cases {
		if got := halfWindow(tc.length); got != tc.want {
			t.Errorf("halfWindow(%d) = %d, want %d", tc.length, got, tc.want)
		}
	}
}

func TestWindowBoundsKeepsNominalWidth(t *testing.T) {
	// Any center inside a sequence longer than the nominal width must get
	// the full window, with clipping redistributed to the open side.
	for length := 6; length <= 120; length += 7 {
		h := halfWindow(length)
		want := 2*h + 1
		for center := 0; center < length; center++ {
			lo, hi := windowBounds(center, length)
			if lo < 0 || hi > length || lo >= hi {
				t.Fatalf("windowBounds(%d, %d) = [%d, %d) out of range", center, length, lo, hi)
			}
			if hi-lo != want {
				t.Fatalf("windowBounds(%d, %d) width = %d, want %d", center, length, hi-lo, want)
			}
		}
	}
}

func TestWindowBoundsShortSequence(t *testing.T) {
	lo, hi := windowBounds(1, 3)
	if lo != 0 || hi != 3 {
		t.Errorf("windowBounds(1, 3) = [%d, %d), want [0, 3)", lo, hi)
	}

	lo, hi = windowBounds(0, 0)
	if lo != 0 || hi != 0 {
		t.Errorf("windowBounds(0, 0) = [%d, %d), want [0, 0)", lo, hi)
	}
}

func TestWindowBoundsEdges(t *testing.T) {
	// length 30 gives half window 2, nominal width 5.
	lo, hi := windowBounds(0, 30)
	if lo != 0 || hi != 5 {
		t.Errorf("windowBounds(0, 30) = [%d, %d), want [0, 5)", lo, hi)
	}
	lo, hi = windowBounds(29, 30)
	if lo != 25 || hi != 30 {
		t.Errorf("windowBounds(29, 30) = [%d, %d), want [25, 30)", lo, hi)
	}
}
