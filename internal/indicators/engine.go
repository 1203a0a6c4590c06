package indicators

import (
	"math"
	"strings"

	talib "github.com/markcheno/go-talib"

	"kairos/internal/domain/market_data"
	"kairos/internal/domain/optimization"
	"kairos/internal/domain/regime"
	"kairos/pkg/logger"
)

// Series names shared by the classifiers.
const (
	SeriesADX            = "ADX"
	SeriesPlusDI         = "PLUS_DI"
	SeriesMinusDI        = "MINUS_DI"
	SeriesDIDiff         = "DI_DIFF"
	SeriesRSI            = "RSI"
	SeriesATR            = "ATR"
	SeriesSMAFast        = "SMA_FAST"
	SeriesSMASlow        = "SMA_SLOW"
	SeriesBBWidth        = "BB_WIDTH"
	SeriesPriceChangePct = "PRICE_CHANGE_PCT"
)

// Derived-name suffixes for JSON-declared indicators.
const (
	SuffixPlusDI      = "_PLUS_DI"
	SuffixMinusDI     = "_MINUS_DI"
	SuffixDIDiff      = "_DI_DIFF"
	SuffixLongStop    = "_LONG_STOP"
	SuffixShortStop   = "_SHORT_STOP"
	SuffixDirection   = "_DIRECTION"
	SuffixColorChange = "_COLOR_CHANGE"
	SuffixUpper       = "_UPPER"
	SuffixMiddle      = "_MIDDLE"
	SuffixLower       = "_LOWER"
	SuffixWidth       = "_WIDTH"
)

// Set holds the named indicator series of one trial, each aligned 1:1 with
// the input bars. Warmup regions are NaN.
type Set map[string][]float64

// Get returns a series by name.
func (s Set) Get(name string) ([]float64, bool) {
	v, ok := s[name]
	return v, ok
}

// Engine computes indicator sets from a candle series and resolved
// parameters. Computation is pure per trial; the engine itself only carries
// a logger.
type Engine struct {
	log *logger.Logger
}

// NewEngine creates an indicator engine.
func NewEngine() *Engine {
	return &Engine{
		log: logger.Get().With("component", "indicators"),
	}
}

// Compute builds the indicator set for one trial. cfg is only consulted in
// JSON mode and may be nil otherwise.
func (e *Engine) Compute(s *market_data.Series, p *optimization.ResolvedParams, cfg *regime.Config) Set {
	set := make(Set)

	if p.Mode == optimization.ModeJSON && cfg != nil {
		e.computeDeclared(set, s, p, cfg)
	} else {
		e.computeADXFamily(set, s, "", p.ADXPeriod)
		set[SeriesRSI] = rsi(s.Close, p.RSIPeriod)

		switch p.Mode {
		case optimization.ModeSimple:
			set[SeriesSMAFast] = sma(s.Close, p.SMAFastPeriod)
			set[SeriesSMASlow] = sma(s.Close, p.SMASlowPeriod)
			if p.BBPeriod > 0 {
				_, _, _, width := bbands(s.Close, p.BBPeriod, p.BBStdDev)
				set[SeriesBBWidth] = width
			}
			if p.ATRPeriod > 0 {
				set[SeriesATR] = atr(s.High, s.Low, s.Close, p.ATRPeriod)
			}
		default:
			set[SeriesATR] = atr(s.High, s.Low, s.Close, p.ATRPeriod)
		}
	}

	set[SeriesPriceChangePct] = priceChangePct(s.Close, p.PriceChangeLookback())
	return set
}

// computeADXFamily publishes ADX, +DI, -DI and their difference under an
// optional name prefix (empty prefix produces the unprefixed legacy names).
func (e *Engine) computeADXFamily(set Set, s *market_data.Series, prefix string, period int) {
	adxVals := adx(s.High, s.Low, s.Close, period)
	plus := plusDI(s.High, s.Low, s.Close, period)
	minus := minusDI(s.High, s.Low, s.Close, period)

	if prefix == "" {
		set[SeriesADX] = adxVals
		set[SeriesPlusDI] = plus
		set[SeriesMinusDI] = minus
		set[SeriesDIDiff] = diff(plus, minus)
		return
	}
	set[prefix] = adxVals
	set[prefix+SuffixPlusDI] = plus
	set[prefix+SuffixMinusDI] = minus
	set[prefix+SuffixDIDiff] = diff(plus, minus)
}

// computeDeclared walks the JSON indicator list and dispatches on declared
// type. Cross-referenced series go under derived names; the first ADX-family
// indicator is additionally aliased unprefixed for older rule sets.
func (e *Engine) computeDeclared(set Set, s *market_data.Series, p *optimization.ResolvedParams, cfg *regime.Config) {
	firstADX := ""

	for _, ind := range cfg.Indicators {
		name := strings.ToUpper(ind.Name)
		param := func(pname string, def float64) float64 {
			fixed := def
			if v, ok := cfg.IndicatorParam(ind.Name, pname); ok {
				fixed = v
			}
			return p.JSONValue(ind.Name+"."+pname, fixed)
		}

		switch strings.ToLower(ind.Type) {
		case "adx", "dmi":
			period := int(param("period", 14))
			e.computeADXFamily(set, s, name, period)
			if firstADX == "" {
				firstADX = name
			}

		case "leafwest_adx":
			diPeriod := int(param("di_period", 14))
			adxPeriod := int(param("adx_period", 14))
			lw := leafWestADX(s.High, s.Low, s.Close, diPeriod, adxPeriod)
			set[name] = lw.ADX
			set[name+SuffixPlusDI] = lw.PlusDI
			set[name+SuffixMinusDI] = lw.MinusDI
			set[name+SuffixDIDiff] = diff(lw.PlusDI, lw.MinusDI)
			if firstADX == "" {
				firstADX = name
			}

		case "chandelier_exit", "chande_kroll_stop":
			period := int(param("period", 22))
			mult := param("multiplier", 3.0)
			ch := chandelier(s.High, s.Low, s.Close, period, mult)
			set[name+SuffixLongStop] = ch.LongStop
			set[name+SuffixShortStop] = ch.ShortStop
			set[name+SuffixDirection] = ch.Direction
			set[name+SuffixColorChange] = ch.ColorChange

		case "rsi":
			set[name] = rsi(s.Close, int(param("period", 14)))

		case "atr":
			set[name] = atr(s.High, s.Low, s.Close, int(param("period", 14)))

		case "sma":
			set[name] = sma(s.Close, int(param("period", 20)))

		case "ema":
			set[name] = ema(s.Close, int(param("period", 20)))

		case "bb", "bollinger", "bollinger_bands":
			period := int(param("period", 20))
			std := param("std_dev", 2.0)
			upper, middle, lower, width := bbands(s.Close, period, std)
			set[name+SuffixUpper] = upper
			set[name+SuffixMiddle] = middle
			set[name+SuffixLower] = lower
			set[name+SuffixWidth] = width

		default:
			e.log.Warnw("Unknown indicator type, series will be empty",
				"indicator", ind.Name,
				"type", ind.Type)
			set[name] = nanSeries(s.Len())
		}
	}

	// Unprefixed aliases keep rule sets written against the legacy names
	// working when exactly these series are meant.
	if firstADX != "" {
		set[SeriesADX] = set[firstADX]
		set[SeriesPlusDI] = set[firstADX+SuffixPlusDI]
		set[SeriesMinusDI] = set[firstADX+SuffixMinusDI]
		set[SeriesDIDiff] = set[firstADX+SuffixDIDiff]
	}
}

// talib wrappers. go-talib fills the warmup region with zeros and panics on
// inputs shorter than the lookback, so every wrapper guards length and masks
// the lookback prefix to NaN.

func sma(closes []float64, period int) []float64 {
	if period < 1 || len(closes) < period+1 {
		return nanSeries(len(closes))
	}
	return maskWarmup(talib.Sma(closes, period), period-1)
}

func ema(closes []float64, period int) []float64 {
	if period < 1 || len(closes) < period+1 {
		return nanSeries(len(closes))
	}
	return maskWarmup(talib.Ema(closes, period), period-1)
}

func rsi(closes []float64, period int) []float64 {
	if period < 1 || len(closes) < period+2 {
		return nanSeries(len(closes))
	}
	return maskWarmup(talib.Rsi(closes, period), period)
}

func atr(highs, lows, closes []float64, period int) []float64 {
	if period < 1 || len(closes) < period+2 {
		return nanSeries(len(closes))
	}
	return maskWarmup(talib.Atr(highs, lows, closes, period), period)
}

func adx(highs, lows, closes []float64, period int) []float64 {
	if period < 1 || len(closes) < period*2+2 {
		return nanSeries(len(closes))
	}
	return maskWarmup(talib.Adx(highs, lows, closes, period), period*2-1)
}

func plusDI(highs, lows, closes []float64, period int) []float64 {
	if period < 1 || len(closes) < period+2 {
		return nanSeries(len(closes))
	}
	return maskWarmup(talib.PlusDI(highs, lows, closes, period), period)
}

func minusDI(highs, lows, closes []float64, period int) []float64 {
	if period < 1 || len(closes) < period+2 {
		return nanSeries(len(closes))
	}
	return maskWarmup(talib.MinusDI(highs, lows, closes, period), period)
}

func bbands(closes []float64, period int, stdDev float64) (upper, middle, lower, width []float64) {
	if period < 2 || len(closes) < period+1 {
		n := len(closes)
		return nanSeries(n), nanSeries(n), nanSeries(n), nanSeries(n)
	}
	upper, middle, lower = talib.BBands(closes, period, stdDev, stdDev, talib.SMA)
	upper = maskWarmup(upper, period-1)
	middle = maskWarmup(middle, period-1)
	lower = maskWarmup(lower, period-1)

	width = make([]float64, len(closes))
	for i := range closes {
		if math.IsNaN(middle[i]) || middle[i] == 0 {
			width[i] = math.NaN()
			continue
		}
		width[i] = (upper[i] - lower[i]) / middle[i] * 100
	}
	return upper, middle, lower, width
}

// priceChangePct is the percent change of close over the lookback window,
// NaN until one full window is available.
func priceChangePct(closes []float64, lookback int) []float64 {
	out := nanSeries(len(closes))
	if lookback < 1 {
		lookback = 14
	}
	for i := lookback; i < len(closes); i++ {
		prev := closes[i-lookback]
		if prev == 0 {
			continue
		}
		out[i] = (closes[i] - prev) / prev * 100
	}
	return out
}

func diff(a, b []float64) []float64 {
	out := make([]float64, len(a))
	for i := range a {
		out[i] = a[i] - b[i]
	}
	return out
}

func nanSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

func maskWarmup(vals []float64, lookback int) []float64 {
	if lookback > len(vals) {
		lookback = len(vals)
	}
	for i := 0; i < lookback; i++ {
		vals[i] = math.NaN()
	}
	return vals
}
