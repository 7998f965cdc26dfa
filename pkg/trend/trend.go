package trend

import (
	"gonum.org/v1/gonum/stat"

	"github.com/vjranagit/memtrend/pkg/series"
)

// Result holds the fitted line for a series. Slope is the primary
// leak signal, in bytes per second; Intercept is diagnostic only.
type Result struct {
	Slope       float64 `json:"slope"`
	Intercept   float64 `json:"intercept"`
	SampleCount int     `json:"sample_count"`
}

// Fit computes the ordinary least-squares line over a series'
// (elapsed, value) pairs. A series with fewer than two samples yields
// a flat line rather than an error: slope zero, with the sole sample's
// value (or zero) as intercept.
func Fit(s *series.Series) Result {
	n := s.Len()
	if n < 2 {
		var intercept float64
		if n == 1 {
			intercept = s.Samples[0].Value
		}
		return Result{Slope: 0, Intercept: intercept, SampleCount: n}
	}

	xs := make([]float64, n)
	ys := make([]float64, n)
	for i, sample := range s.Samples {
		xs[i] = sample.ElapsedSeconds
		ys[i] = sample.Value
	}

	intercept, slope := stat.LinearRegression(xs, ys, nil, false)
	return Result{Slope: slope, Intercept: intercept, SampleCount: n}
}

// At evaluates the fitted line at elapsed time x
func (r Result) At(x float64) float64 {
	return r.Intercept + r.Slope*x
}
