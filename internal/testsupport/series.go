package testsupport

import (
	"math"
	"math/rand"
	"time"

	"kairos/internal/domain/market_data"
)

// SeriesEpoch is the open time of the first synthetic candle. A fixed epoch
// keeps generated windows byte-stable across runs and machines.
var SeriesEpoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// Segment describes one leg of a synthetic price path.
type Segment struct {
	Bars       int     // number of candles in the leg
	Drift      float64 // per-bar log-return drift, positive trends up
	Vol        float64 // per-bar log-return noise scale
	MeanRevert float64 // pull toward the leg's opening price, 0 disables
}

// GenerateCandles builds a deterministic candle window by concatenating
// segments into one log-price random walk. The same seed always yields the
// same series, so tests can assert on exact regime boundaries and scores.
func GenerateCandles(seed int64, timeframe string, startPrice float64, segments ...Segment) []market_data.OHLCV {
	rng := rand.New(rand.NewSource(seed))
	step := parseTimeframeDuration(timeframe)

	total := 0
	for _, seg := range segments {
		total += seg.Bars
	}

	candles := make([]market_data.OHLCV, 0, total)
	price := startPrice
	openTime := SeriesEpoch

	for _, seg := range segments {
		anchor := price
		for i := 0; i < seg.Bars; i++ {
			ret := seg.Drift + seg.Vol*rng.NormFloat64()
			if seg.MeanRevert > 0 && anchor > 0 {
				ret -= seg.MeanRevert * math.Log(price/anchor)
			}

			open := price
			close := price * math.Exp(ret)

			wick := math.Abs(rng.NormFloat64()) * seg.Vol * 0.5
			high := math.Max(open, close) * (1 + wick)
			low := math.Min(open, close) * (1 - wick)

			// Volume swells with the size of the move.
			volume := 1000 * (0.5 + rng.Float64()) * (1 + 50*math.Abs(ret))

			candles = append(candles, market_data.OHLCV{
				Exchange:    "binance",
				Symbol:      "SYNTH",
				Timeframe:   timeframe,
				OpenTime:    openTime,
				CloseTime:   openTime.Add(step),
				Open:        open,
				High:        high,
				Low:         low,
				Close:       close,
				Volume:      volume,
				QuoteVolume: volume * (open + close) / 2,
				Trades:      uint64(50 + rng.Intn(200)),
				IsClosed:    true,
			})

			price = close
			openTime = openTime.Add(step)
		}
	}

	return candles
}

// TrendingCandles generates a sustained directional market: a long rally
// followed by a long decline, both with low noise relative to drift.
func TrendingCandles(seed int64, bars int) []market_data.OHLCV {
	half := bars / 2
	return GenerateCandles(seed, "5m", 100,
		Segment{Bars: half, Drift: 0.0015, Vol: 0.004},
		Segment{Bars: bars - half, Drift: -0.0015, Vol: 0.004},
	)
}

// SidewaysCandles generates a driftless mean-reverting market.
func SidewaysCandles(seed int64, bars int) []market_data.OHLCV {
	return GenerateCandles(seed, "5m", 100,
		Segment{Bars: bars, Drift: 0, Vol: 0.003, MeanRevert: 0.05},
	)
}

// RegimeSwitchingCandles generates a market that cycles through distinct
// phases: rally, chop, decline, chop, rally. Roughly 2000 bars of 5m data.
func RegimeSwitchingCandles(seed int64) []market_data.OHLCV {
	return GenerateCandles(seed, "5m", 100,
		Segment{Bars: 500, Drift: 0.0012, Vol: 0.004},
		Segment{Bars: 300, Drift: 0, Vol: 0.003, MeanRevert: 0.05},
		Segment{Bars: 500, Drift: -0.0012, Vol: 0.004},
		Segment{Bars: 300, Drift: 0, Vol: 0.003, MeanRevert: 0.05},
		Segment{Bars: 400, Drift: 0.0012, Vol: 0.004},
	)
}

// parseTimeframeDuration converts a timeframe string to its bar duration.
// Unknown timeframes fall back to one hour.
func parseTimeframeDuration(timeframe string) time.Duration {
	switch timeframe {
	case "1m":
		return time.Minute
	case "5m":
		return 5 * time.Minute
	case "15m":
		return 15 * time.Minute
	case "30m":
		return 30 * time.Minute
	case "1h":
		return time.Hour
	case "4h":
		return 4 * time.Hour
	case "1d":
		return 24 * time.Hour
	default:
		return time.Hour
	}
}

// TrendingSeries wraps TrendingCandles into a columnar series.
func TrendingSeries(seed int64, bars int) *market_data.Series {
	return market_data.NewSeries(TrendingCandles(seed, bars))
}

// SidewaysSeries wraps SidewaysCandles into a columnar series.
func SidewaysSeries(seed int64, bars int) *market_data.Series {
	return market_data.NewSeries(SidewaysCandles(seed, bars))
}

// RegimeSwitchingSeries wraps RegimeSwitchingCandles into a columnar series.
func RegimeSwitchingSeries(seed int64) *market_data.Series {
	return market_data.NewSeries(RegimeSwitchingCandles(seed))
}
