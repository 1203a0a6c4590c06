package indicators

import "math"

// LeafWestResult carries the series of the dual-period ADX/DMI variant: the
// directional lines are smoothed over their own period while DX is smoothed
// into ADX over a second, independent period.
type LeafWestResult struct {
	PlusDI  []float64
	MinusDI []float64
	ADX     []float64
}

// leafWestADX computes Wilder +DI/-DI at diPeriod and smooths DX over
// adxPeriod. talib's Adx ties both periods together, so this one is built
// from raw true range and directional movement.
func leafWestADX(highs, lows, closes []float64, diPeriod, adxPeriod int) LeafWestResult {
	n := len(closes)
	res := LeafWestResult{
		PlusDI:  nanSeries(n),
		MinusDI: nanSeries(n),
		ADX:     nanSeries(n),
	}
	if diPeriod < 1 || adxPeriod < 1 || n < diPeriod+adxPeriod+1 {
		return res
	}

	tr := make([]float64, n)
	plusDM := make([]float64, n)
	minusDM := make([]float64, n)
	for i := 1; i < n; i++ {
		highDiff := highs[i] - highs[i-1]
		lowDiff := lows[i-1] - lows[i]

		if highDiff > lowDiff && highDiff > 0 {
			plusDM[i] = highDiff
		}
		if lowDiff > highDiff && lowDiff > 0 {
			minusDM[i] = lowDiff
		}

		hl := highs[i] - lows[i]
		hc := math.Abs(highs[i] - closes[i-1])
		lc := math.Abs(lows[i] - closes[i-1])
		tr[i] = math.Max(hl, math.Max(hc, lc))
	}

	// Wilder running sums seeded over the first diPeriod bars.
	var smTR, smPlus, smMinus float64
	for i := 1; i <= diPeriod; i++ {
		smTR += tr[i]
		smPlus += plusDM[i]
		smMinus += minusDM[i]
	}

	dx := nanSeries(n)
	p := float64(diPeriod)
	for i := diPeriod; i < n; i++ {
		if i > diPeriod {
			smTR = smTR - smTR/p + tr[i]
			smPlus = smPlus - smPlus/p + plusDM[i]
			smMinus = smMinus - smMinus/p + minusDM[i]
		}
		if smTR == 0 {
			continue
		}
		pdi := 100 * smPlus / smTR
		mdi := 100 * smMinus / smTR
		res.PlusDI[i] = pdi
		res.MinusDI[i] = mdi
		if pdi+mdi > 0 {
			dx[i] = 100 * math.Abs(pdi-mdi) / (pdi + mdi)
		}
	}

	// ADX: seed with the mean of the first adxPeriod valid DX values, then
	// Wilder-smooth.
	first := diPeriod
	var seed float64
	count := 0
	i := first
	for ; i < n && count < adxPeriod; i++ {
		if math.IsNaN(dx[i]) {
			continue
		}
		seed += dx[i]
		count++
	}
	if count < adxPeriod {
		return res
	}

	q := float64(adxPeriod)
	adxVal := seed / q
	res.ADX[i-1] = adxVal
	for ; i < n; i++ {
		d := dx[i]
		if math.IsNaN(d) {
			d = 0
		}
		adxVal = (adxVal*(q-1) + d) / q
		res.ADX[i] = adxVal
	}
	return res
}
