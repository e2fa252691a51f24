package ta

import "nifty-meanrev/internal/types"

// SMA is the mean of the last n values. ok is false when fewer than n exist.
func SMA(closes []float64, n int) (float64, bool) {
	if len(closes) < n || n <= 0 {
		return 0, false
	}
	sum := 0.0
	for i := len(closes) - n; i < len(closes); i++ {
		sum += closes[i]
	}
	return sum / float64(n), true
}

// MovingAverage averages the most recent window present values in series at
// or before index upto. Missing cells are skipped, never counted.
func MovingAverage(series []types.NullFloat, upto, window int) (float64, bool) {
	if window <= 0 || upto < 0 {
		return 0, false
	}
	if upto >= len(series) {
		upto = len(series) - 1
	}
	vals := make([]float64, 0, window)
	for i := upto; i >= 0 && len(vals) < window; i-- {
		if v, ok := series[i].Get(); ok {
			vals = append(vals, v)
		}
	}
	return SMA(vals, window)
}

// Deviation is the fractional distance of price from its moving average.
func Deviation(price, ma float64) float64 {
	return (price - ma) / ma
}
