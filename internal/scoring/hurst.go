package scoring

import "math"

// hurstMinSamples is the shortest return series the estimator accepts.
const hurstMinSamples = 32

// hurstExponent estimates the Hurst exponent of a return series with the
// aggregated-variance method: block means at growing scales m should have
// variance ~ m^(2H-2), so H falls out of a log-log regression. Returns
// ok=false when the series is too short or degenerate.
func hurstExponent(returns []float64) (float64, bool) {
	if len(returns) < hurstMinSamples {
		return 0, false
	}

	var logM, logVar []float64
	for m := 1; m <= len(returns)/4; m *= 2 {
		blocks := aggregate(returns, m)
		v := variance(blocks)
		if v <= 0 {
			continue
		}
		logM = append(logM, math.Log(float64(m)))
		logVar = append(logVar, math.Log(v))
	}
	if len(logM) < 3 {
		return 0, false
	}

	m, ok := linearSlope(logM, logVar)
	if !ok {
		return 0, false
	}
	h := (m + 2) / 2
	return clamp01(h), true
}

// aggregate returns the means of consecutive blocks of size m.
func aggregate(vals []float64, m int) []float64 {
	nBlocks := len(vals) / m
	out := make([]float64, nBlocks)
	for b := 0; b < nBlocks; b++ {
		sum := 0.0
		for i := b * m; i < (b+1)*m; i++ {
			sum += vals[i]
		}
		out[b] = sum / float64(m)
	}
	return out
}

func variance(vals []float64) float64 {
	if len(vals) < 2 {
		return 0
	}
	m := mean(vals)
	sum := 0.0
	for _, v := range vals {
		d := v - m
		sum += d * d
	}
	return sum / float64(len(vals)-1)
}

// linearSlope is the least-squares slope of y on x.
func linearSlope(x, y []float64) (float64, bool) {
	mx := mean(x)
	my := mean(y)
	num := 0.0
	den := 0.0
	for i := range x {
		num += (x[i] - mx) * (y[i] - my)
		den += (x[i] - mx) * (x[i] - mx)
	}
	if den == 0 {
		return 0, false
	}
	return num / den, true
}
