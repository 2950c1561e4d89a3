// Package indicators provides the technical indicator math used by the
// scoring pipeline. All functions are pure and operate on oldest-first series.
package indicators

// MovingAverage returns the running mean of values with the given period.
// Elements before a full window average over what is available, so the
// result has the same length as the input.
func MovingAverage(values []float64, period int) []float64 {
	if len(values) == 0 || period < 1 {
		return nil
	}
	result := make([]float64, 0, len(values))
	var sum float64
	for i, v := range values {
		sum += v
		if i >= period {
			sum -= values[i-period]
		}
		denom := i + 1
		if denom > period {
			denom = period
		}
		result = append(result, sum/float64(denom))
	}
	return result
}

// RSI computes the relative strength index over the given period.
// With fewer than two values every point is the neutral 50.
func RSI(values []float64, period int) []float64 {
	if len(values) < 2 {
		out := make([]float64, len(values))
		for i := range out {
			out[i] = 50.0
		}
		return out
	}
	gains := make([]float64, len(values))
	losses := make([]float64, len(values))
	for i := 1; i < len(values); i++ {
		delta := values[i] - values[i-1]
		if delta > 0 {
			gains[i] = delta
		} else {
			losses[i] = -delta
		}
	}
	avgGains := MovingAverage(gains, period)
	avgLosses := MovingAverage(losses, period)
	out := make([]float64, 0, len(values))
	for i := range avgGains {
		gain, loss := avgGains[i], avgLosses[i]
		if loss == 0 {
			if gain > 0 {
				out = append(out, 100.0)
			} else {
				out = append(out, 50.0)
			}
			continue
		}
		rs := gain / loss
		out = append(out, 100.0-(100.0/(1+rs)))
	}
	return out
}

// Max returns the maximum of values, or 0 for an empty slice.
func Max(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := values[0]
	for _, v := range values[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

// Mean returns the arithmetic mean of values, or 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Tail returns the last n elements of values (the whole slice when shorter).
func Tail(values []float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	if len(values) <= n {
		return values
	}
	return values[len(values)-n:]
}
