package extraction

// halfWindow sizes snippet and comparison windows relative to sequence
// length: one twentieth, never below 2 or above 5.
func halfWindow(length int) int {
	h := length / 20
	if h < 2 {
		h = 2
	}
	if h > 5 {
		h = 5
	}
	return h
}

// windowBounds returns the half-open [lo, hi) window of nominal width
// 2*halfWindow+1 centered on center. When the window is clipped at a
// sequence boundary the clipped amount is added back on the open side, so
// the width only shrinks when the sequence itself is shorter.
func windowBounds(center, length int) (int, int) {
	if length <= 0 {
		return 0, 0
	}
	h := halfWindow(length)
	lo := center - h
	hi := center + h + 1
	if lo < 0 {
		hi -= lo
		lo = 0
	}
	if hi > length {
		lo -= hi - length
		hi = length
	}
	if lo < 0 {
		lo = 0
	}
	return lo, hi
}
