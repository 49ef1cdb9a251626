package avsync

// WindowOptions bound the exact DTW solved per step.
type WindowOptions struct {
	Window       int
	WindowMin    int
	WindowShrink int
	HopRatio     float64
}

// WindowedPath approximates DTW over long sequences. Each step solves exact
// DTW on a Window×Window block starting at the current cursors, keeps the
// leading HopRatio share of that local path and moves the cursors to its
// last kept pair. The window shrinks by WindowShrink per step down to
// WindowMin. The walk ends once either cursor reaches its last frame.
// Windows smaller than two frames are raised to two, the smallest block in
// which the cursors can advance.
func WindowedPath(a, b [][]float64, opts WindowOptions) []Pair {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}
	path := []Pair{{A: 0, B: 0}}
	ca, cb := 0, 0
	floor := max(2, opts.WindowMin)
	window := max(floor, opts.Window)
	for ca < len(a)-1 && cb < len(b)-1 {
		local := DTW(a[ca:min(ca+window, len(a))], b[cb:min(cb+window, len(b))])
		keep := min(max(2, int(float64(window)*opts.HopRatio)), len(local))
		for _, p := range local[1:keep] {
			path = append(path, Pair{A: p.A + ca, B: p.B + cb})
		}
		last := path[len(path)-1]
		if last.A == ca && last.B == cb {
			break
		}
		ca, cb = last.A, last.B
		window = max(floor, window-opts.WindowShrink)
	}
	return path
}
