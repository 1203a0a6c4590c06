package scoring

import (
	"math"

	"kairos/internal/domain/market_data"
)

const featureDim = 5

// buildFeatures computes one feature vector per scorable bar, describing the
// bar's local price behavior: 1-bar return, rolling return volatility,
// close/SMA momentum ratio, bar range, and a volume z-score. Bars start at
// scoreStart, which must be >= lookback.
func buildFeatures(s *market_data.Series, scoreStart, lookback int) [][]float64 {
	n := s.Len()
	if scoreStart < 1 {
		scoreStart = 1
	}
	features := make([][]float64, 0, n-scoreStart)

	for i := scoreStart; i < n; i++ {
		f := make([]float64, featureDim)

		if s.Close[i-1] != 0 {
			f[0] = (s.Close[i] - s.Close[i-1]) / s.Close[i-1]
		}

		lo := i - lookback
		if lo < 1 {
			lo = 1
		}
		rets := make([]float64, 0, i-lo)
		vols := make([]float64, 0, i-lo+1)
		smaSum := 0.0
		for j := lo; j <= i; j++ {
			if j > lo {
				if prev := s.Close[j-1]; prev != 0 {
					rets = append(rets, (s.Close[j]-prev)/prev)
				}
			}
			vols = append(vols, s.Volume[j])
			smaSum += s.Close[j]
		}
		f[1] = stdDev(rets)

		smaWindow := smaSum / float64(i-lo+1)
		if smaWindow != 0 {
			f[2] = s.Close[i]/smaWindow - 1
		}

		if s.Close[i] != 0 {
			f[3] = (s.High[i] - s.Low[i]) / s.Close[i]
		}

		volMean := mean(vols)
		volStd := stdDev(vols)
		if volStd > 0 {
			f[4] = (s.Volume[i] - volMean) / volStd
		}

		features = append(features, f)
	}
	return features
}

// standardize z-scores each feature column in place. Constant columns are
// left at zero rather than dividing by zero.
func standardize(features [][]float64) {
	if len(features) == 0 {
		return
	}
	for d := 0; d < featureDim; d++ {
		col := make([]float64, len(features))
		for i := range features {
			col[i] = features[i][d]
		}
		m := mean(col)
		sd := stdDev(col)
		for i := range features {
			if sd > 0 {
				features[i][d] = (features[i][d] - m) / sd
			} else {
				features[i][d] = 0
			}
		}
	}
}

// euclidean is the distance between two feature vectors, scaled by
// dimension so jump sizes stay comparable across feature counts.
func euclidean(a, b []float64) float64 {
	sum := 0.0
	for d := range a {
		diff := a[d] - b[d]
		sum += diff * diff
	}
	return math.Sqrt(sum / float64(len(a)))
}
