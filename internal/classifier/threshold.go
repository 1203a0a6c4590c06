package classifier

import (
	"math"
	"sort"

	"kairos/internal/domain/market_data"
	"kairos/internal/domain/optimization"
	"kairos/internal/domain/regime"
	"kairos/internal/indicators"
)

// ThresholdClassifier is the simple SMA/ADX variant: a bar is bullish when
// trend strength, price location, and moving-average alignment all agree,
// bearish on the mirror condition, sideways otherwise. Low momentum or a
// narrow Bollinger band re-forces sideways even when the trend conditions
// passed.
type ThresholdClassifier struct{}

// NewThresholdClassifier creates the simple-mode classifier.
func NewThresholdClassifier() *ThresholdClassifier {
	return &ThresholdClassifier{}
}

// Labels implements Classifier.
func (c *ThresholdClassifier) Labels() []regime.Label {
	return []regime.Label{regime.LabelBull, regime.LabelBear, regime.LabelSideways}
}

// Classify implements Classifier. NaN indicator values fail every
// comparison, so warmup bars come out sideways.
func (c *ThresholdClassifier) Classify(s *market_data.Series, ind indicators.Set, p *optimization.ResolvedParams) []regime.Label {
	n := s.Len()
	labels := make([]regime.Label, n)

	adx, _ := ind.Get(indicators.SeriesADX)
	rsi, _ := ind.Get(indicators.SeriesRSI)
	smaFast, _ := ind.Get(indicators.SeriesSMAFast)
	smaSlow, _ := ind.Get(indicators.SeriesSMASlow)
	bbWidth, hasBB := ind.Get(indicators.SeriesBBWidth)

	var widthCutoff float64 = math.NaN()
	if hasBB && p.BBWidthPct > 0 {
		widthCutoff = percentile(bbWidth, p.BBWidthPct)
	}

	useRSIBand := p.RSISidewaysHigh > 0

	for i := 0; i < n; i++ {
		labels[i] = regime.LabelSideways

		bull := adx[i] > p.ADXThreshold &&
			s.Close[i] > smaFast[i] &&
			smaFast[i] > smaSlow[i]
		bear := adx[i] > p.ADXThreshold &&
			s.Close[i] < smaFast[i] &&
			smaFast[i] < smaSlow[i]
		if useRSIBand {
			bull = bull && rsi[i] > p.RSISidewaysHigh
			bear = bear && rsi[i] < p.RSISidewaysLow
		}

		if bull {
			labels[i] = regime.LabelBull
		} else if bear {
			labels[i] = regime.LabelBear
		}

		// Sideways reinforcement overrides the trend read.
		if useRSIBand && rsi[i] >= p.RSISidewaysLow && rsi[i] <= p.RSISidewaysHigh {
			labels[i] = regime.LabelSideways
		}
		if !math.IsNaN(widthCutoff) && bbWidth[i] < widthCutoff {
			labels[i] = regime.LabelSideways
		}
	}
	return labels
}

// percentile returns the pct-th percentile of the valid (non-NaN) values.
func percentile(vals []float64, pct float64) float64 {
	valid := make([]float64, 0, len(vals))
	for _, v := range vals {
		if !math.IsNaN(v) {
			valid = append(valid, v)
		}
	}
	if len(valid) == 0 {
		return math.NaN()
	}
	sort.Float64s(valid)
	if pct <= 0 {
		return valid[0]
	}
	if pct >= 100 {
		return valid[len(valid)-1]
	}
	rank := pct / 100 * float64(len(valid)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return valid[lo]
	}
	frac := rank - float64(lo)
	return valid[lo]*(1-frac) + valid[hi]*frac
}
