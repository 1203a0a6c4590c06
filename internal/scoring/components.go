package scoring

import (
	"math"

	"kairos/internal/domain/regime"
)

const neutralScore = 0.5

// separability judges how well the labels partition feature space, blending
// a centroid silhouette, a Calinski-Harabasz style variance ratio, and a
// within/between dispersion ratio. Degenerate groupings score neutral
// instead of failing.
func (e *Engine) separability(features [][]float64, labels []regime.Label) float64 {
	groups := groupIndices(labels)
	if len(groups) < 2 || len(features) < len(groups)+2 {
		return neutralScore
	}

	centroids := make(map[regime.Label][]float64, len(groups))
	for label, idx := range groups {
		centroids[label] = centroid(features, idx)
	}
	overall := centroid(features, allIndices(len(features)))

	// Within/between sums of squares over all points.
	within := 0.0
	between := 0.0
	for label, idx := range groups {
		c := centroids[label]
		for _, i := range idx {
			d := euclidean(features[i], c)
			within += d * d
		}
		db := euclidean(c, overall)
		between += float64(len(idx)) * db * db
	}

	n := float64(len(features))
	k := float64(len(groups))
	if within <= 0 {
		return neutralScore
	}

	// Calinski-Harabasz, squashed into [0,1).
	ch := (between / (k - 1)) / (within / (n - k))
	chScore := ch / (ch + 10)

	// Centroid silhouette: cohesion against the nearest foreign centroid.
	silSum := 0.0
	for label, idx := range groups {
		own := centroids[label]
		for _, i := range idx {
			a := euclidean(features[i], own)
			b := math.Inf(1)
			for other, oc := range centroids {
				if other == label {
					continue
				}
				if d := euclidean(features[i], oc); d < b {
					b = d
				}
			}
			if m := math.Max(a, b); m > 0 {
				silSum += (b - a) / m
			}
		}
	}
	silScore := (silSum/n + 1) / 2

	// Mean within-group point distance vs mean between-centroid distance.
	withinMean := 0.0
	count := 0
	for label, idx := range groups {
		c := centroids[label]
		for _, i := range idx {
			withinMean += euclidean(features[i], c)
			count++
		}
	}
	withinMean /= float64(count)

	betweenMean := 0.0
	pairs := 0
	labelsSeen := make([]regime.Label, 0, len(groups))
	for label := range groups {
		labelsSeen = append(labelsSeen, label)
	}
	for i := 0; i < len(labelsSeen); i++ {
		for j := i + 1; j < len(labelsSeen); j++ {
			betweenMean += euclidean(centroids[labelsSeen[i]], centroids[labelsSeen[j]])
			pairs++
		}
	}
	dispScore := neutralScore
	if pairs > 0 {
		betweenMean /= float64(pairs)
		if withinMean+betweenMean > 0 {
			dispScore = betweenMean / (withinMean + betweenMean)
		}
	}

	return clamp01((silScore + chScore + dispScore) / 3)
}

// coherence rewards stable segmentations: few switches, long segments, and
// a sticky Markov self-transition.
func (e *Engine) coherence(cfg resolved, labels []regime.Label) float64 {
	if len(labels) < 2 {
		return neutralScore
	}

	switches := regime.Switches(labels)
	rate := float64(switches) / float64(len(labels)-1) * 1000
	rateScore := clamp01(1 - rate/cfg.MaxSwitchRate)

	segments := regime.PeriodsFromLabels(labels, nil)
	avgDur := float64(len(labels)) / float64(len(segments))
	durScore := avgDur / (avgDur + 20)

	selfScore := selfTransitionProbability(labels)

	return clamp01((rateScore + durScore + selfScore) / 3)
}

// selfTransitionProbability estimates a first-order Markov matrix from the
// label sequence and returns the frequency-weighted mean of its diagonal.
func selfTransitionProbability(labels []regime.Label) float64 {
	total := make(map[regime.Label]int)
	self := make(map[regime.Label]int)
	for i := 1; i < len(labels); i++ {
		total[labels[i-1]]++
		if labels[i] == labels[i-1] {
			self[labels[i-1]]++
		}
	}
	if len(total) == 0 {
		return neutralScore
	}

	transitions := 0
	weighted := 0.0
	for label, n := range total {
		transitions += n
		weighted += float64(self[label])
	}
	return weighted / float64(transitions)
}

// fidelity checks that each label type behaves as its name promises:
// bull/bear stretches should be trend-persistent (Hurst above one half),
// sideways stretches mean-reverting or random. Short samples contribute a
// neutral score.
func (e *Engine) fidelity(closes []float64, labels []regime.Label) float64 {
	returnsByBase := make(map[regime.BaseType][]float64)
	for i := 1; i < len(labels); i++ {
		if closes[i] <= 0 || closes[i-1] <= 0 {
			continue
		}
		base := labels[i].Base()
		returnsByBase[base] = append(returnsByBase[base], math.Log(closes[i]/closes[i-1]))
	}

	weighted := 0.0
	totalBars := 0
	for base, rets := range returnsByBase {
		score := neutralScore
		if h, ok := hurstExponent(rets); ok {
			switch base {
			case regime.BaseBull, regime.BaseBear:
				score = clamp01(neutralScore + (h-0.5)*2)
			default:
				score = clamp01(neutralScore + (0.5-h)*2)
			}
		}
		weighted += score * float64(len(rets))
		totalBars += len(rets)
	}
	if totalBars == 0 {
		return neutralScore
	}
	return clamp01(weighted / float64(totalBars))
}

// boundary rewards segmentations whose feature jumps concentrate at label
// changes: the mean standardized jump across boundaries is compared with
// the mean drift between consecutive bars inside a segment.
func (e *Engine) boundary(features [][]float64, labels []regime.Label) float64 {
	var jumps, drifts []float64
	for i := 1; i < len(features); i++ {
		d := euclidean(features[i-1], features[i])
		if labels[i] != labels[i-1] {
			jumps = append(jumps, d)
		} else {
			drifts = append(drifts, d)
		}
	}
	if len(jumps) == 0 || len(drifts) == 0 {
		return neutralScore
	}

	jump := mean(jumps)
	drift := mean(drifts)
	if jump+drift <= 0 {
		return neutralScore
	}
	return clamp01(jump / (jump + drift))
}

// coverage is the non-fallback fraction shrunk by how far the base-type
// distribution sits from uniform.
func (e *Engine) coverage(cfg resolved, labels []regime.Label) float64 {
	if len(labels) == 0 {
		return 0
	}

	fallbackBars := 0
	byBase := make(map[regime.BaseType]int)
	for _, l := range labels {
		if l == cfg.FallbackLabel {
			fallbackBars++
		}
		byBase[l.Base()]++
	}
	nonFallback := 1 - float64(fallbackBars)/float64(len(labels))

	k := cfg.LabelTypes
	if k < 2 {
		k = 2
	}
	uniform := 1 / float64(k)
	tv := 0.0
	for _, count := range byBase {
		tv += math.Abs(float64(count)/float64(len(labels)) - uniform)
	}
	// Base types with zero bars still deviate from uniform.
	tv += float64(k-len(byBase)) * uniform
	tv /= 2

	maxTV := 1 - uniform
	balance := 1.0
	if maxTV > 0 {
		balance = clamp01(1 - tv/maxTV)
	}
	return clamp01(nonFallback * balance)
}

func groupIndices(labels []regime.Label) map[regime.Label][]int {
	groups := make(map[regime.Label][]int)
	for i, l := range labels {
		groups[l] = append(groups[l], i)
	}
	return groups
}

func allIndices(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}

func centroid(features [][]float64, idx []int) []float64 {
	c := make([]float64, featureDim)
	if len(idx) == 0 {
		return c
	}
	for _, i := range idx {
		for d := 0; d < featureDim; d++ {
			c[d] += features[i][d]
		}
	}
	for d := range c {
		c[d] /= float64(len(idx))
	}
	return c
}
