package bench

import (
	"math"
	"time"
)

func mean(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	var sum float64
	for _, x := range v {
		sum += x
	}
	return sum / float64(len(v))
}

// stdDev returns the sample standard deviation of v.
func stdDev(v []float64) float64 {
	if len(v) < 2 {
		return 0
	}
	m := mean(v)
	var acc float64
	for _, x := range v {
		acc += (x - m) * (x - m)
	}
	return math.Sqrt(acc / float64(len(v)-1))
}

func minMax(v []float64) (float64, float64) {
	if len(v) == 0 {
		return 0, 0
	}
	lo, hi := v[0], v[0]
	for _, x := range v[1:] {
		lo = min(lo, x)
		hi = max(hi, x)
	}
	return lo, hi
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
