package avsync

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"talkvid/internal/services"
)

// Stats is the least-squares fit B ≈ Slope·A + Intercept over an alignment
// path, in feature frames.
type Stats struct {
	Slope     float64
	Intercept float64
	R         float64
	// StdErr is the standard error of the slope.
	StdErr  float64
	Samples int
}

// Regress fits a line through the path after dropping the cutoff share of
// pairs at both ends, where DTW is least reliable.
func Regress(path []Pair, cutoff float64) (Stats, error) {
	drop := int(float64(len(path)) * cutoff)
	kept := path[drop : len(path)-drop]
	if len(kept) < 3 {
		return Stats{}, services.Wrap(services.ErrSyncPrecondition, "avsync", "regress",
			fmt.Sprintf("alignment has %d usable pairs, need at least 3", len(kept)), nil)
	}
	x := make([]float64, len(kept))
	y := make([]float64, len(kept))
	for i, p := range kept {
		x[i], y[i] = float64(p.A), float64(p.B)
	}
	vx, vy := stat.Variance(x, nil), stat.Variance(y, nil)
	if vx == 0 || vy == 0 {
		return Stats{}, services.Wrap(services.ErrSyncPrecondition, "avsync", "regress",
			"alignment does not progress through both recordings", nil)
	}

	intercept, slope := stat.LinearRegression(x, y, nil, false)
	r := stat.Correlation(x, y, nil)
	df := float64(len(kept) - 2)
	stderr := math.Sqrt(math.Max(0, 1-r*r) * vy / vx / df)
	return Stats{
		Slope:     slope,
		Intercept: intercept,
		R:         r,
		StdErr:    stderr,
		Samples:   len(kept),
	}, nil
}

// OffsetSeconds converts the intercept to seconds of feature time.
func (s Stats) OffsetSeconds(hopLength, sampleRate int) float64 {
	return s.Intercept * float64(hopLength) / float64(sampleRate)
}
