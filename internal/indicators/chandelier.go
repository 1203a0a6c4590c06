package indicators

import (
	"math"

	talib "github.com/markcheno/go-talib"
)

// ChandelierResult carries the trailing-stop series: long/short stop levels,
// a +1/-1 direction flag, and a 0/1 color-change flag on direction flips.
type ChandelierResult struct {
	LongStop    []float64
	ShortStop   []float64
	Direction   []float64
	ColorChange []float64
}

// chandelier computes chandelier-exit style trailing stops: the long stop
// trails highest(high, period) - mult*ATR, the short stop trails
// lowest(low, period) + mult*ATR. Direction starts long and flips when close
// crosses the opposite stop.
func chandelier(highs, lows, closes []float64, period int, mult float64) ChandelierResult {
	n := len(closes)
	res := ChandelierResult{
		LongStop:    nanSeries(n),
		ShortStop:   nanSeries(n),
		Direction:   nanSeries(n),
		ColorChange: nanSeries(n),
	}
	if period < 1 || n < period+2 {
		return res
	}

	atrVals := maskWarmup(talib.Atr(highs, lows, closes, period), period)
	highest := maskWarmup(talib.Max(highs, period), period-1)
	lowest := maskWarmup(talib.Min(lows, period), period-1)

	dir := 1.0
	started := false
	for i := 0; i < n; i++ {
		if math.IsNaN(atrVals[i]) || math.IsNaN(highest[i]) || math.IsNaN(lowest[i]) {
			continue
		}
		long := highest[i] - mult*atrVals[i]
		short := lowest[i] + mult*atrVals[i]
		res.LongStop[i] = long
		res.ShortStop[i] = short

		if !started {
			started = true
			res.Direction[i] = dir
			res.ColorChange[i] = 0
			continue
		}

		prev := dir
		if dir > 0 && closes[i] < long {
			dir = -1
		} else if dir < 0 && closes[i] > short {
			dir = 1
		}
		res.Direction[i] = dir
		if dir != prev {
			res.ColorChange[i] = 1
		} else {
			res.ColorChange[i] = 0
		}
	}
	return res
}
