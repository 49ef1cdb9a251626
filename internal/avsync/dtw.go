package avsync

import "math"

// Pair aligns frame A of the first sequence with frame B of the second.
type Pair struct {
	_ struct{} `cbor:",toarray"`
	A int
	B int
}

// DTW returns the minimum-cost monotonic alignment between a and b under
// Euclidean frame distance. The path starts at (0, 0), ends at
// (len(a)-1, len(b)-1) and every step advances a, b or both by one.
func DTW(a, b [][]float64) []Pair {
	n, m := len(a), len(b)
	if n == 0 || m == 0 {
		return nil
	}
	cost := make([]float64, n*m)
	at := func(i, j int) float64 {
		if i < 0 || j < 0 {
			return math.Inf(1)
		}
		return cost[i*m+j]
	}
	for i := 0; i < n; i++ {
		for j := 0; j < m; j++ {
			d := distance(a[i], b[j])
			if i == 0 && j == 0 {
				cost[0] = d
				continue
			}
			cost[i*m+j] = d + math.Min(at(i-1, j-1), math.Min(at(i-1, j), at(i, j-1)))
		}
	}

	path := make([]Pair, 0, n+m)
	i, j := n-1, m-1
	for {
		path = append(path, Pair{A: i, B: j})
		if i == 0 && j == 0 {
			break
		}
		diag, up, left := at(i-1, j-1), at(i-1, j), at(i, j-1)
		switch {
		case diag <= up && diag <= left:
			i, j = i-1, j-1
		case up <= left:
			i--
		default:
			j--
		}
	}
	for l, r := 0, len(path)-1; l < r; l, r = l+1, r-1 {
		path[l], path[r] = path[r], path[l]
	}
	return path
}

func distance(x, y []float64) float64 {
	sum := 0.0
	for k := range x {
		d := x[k] - y[k]
		sum += d * d
	}
	return math.Sqrt(sum)
}
