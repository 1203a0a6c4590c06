package optimizer

import (
	"math"
)

// TPEConfig configures the tree-structured Parzen estimator sampler.
type TPEConfig struct {
	// NStartupTrials is the number of purely random trials before density
	// estimation kicks in. Default 10.
	NStartupTrials int
	// Gamma is the fraction of observed trials treated as "good". Default 0.25.
	Gamma float64
	// NCandidates is how many candidates are scored per suggestion. Default 24.
	NCandidates int
	// Multivariate samples whole parameter vectors anchored on good trials
	// instead of sampling each parameter independently.
	Multivariate bool
}

// TPESampler suggests values by modeling good and bad completed trials as
// Parzen windows and maximizing the density ratio l(x)/g(x). Candidates are
// drawn from the good distribution, so exploitation concentrates around the
// best observations while the bad density pushes away from known-poor
// regions.
type TPESampler struct {
	cfg TPEConfig
}

// NewTPESampler creates a TPE sampler.
func NewTPESampler(cfg TPEConfig) *TPESampler {
	if cfg.NStartupTrials <= 0 {
		cfg.NStartupTrials = 10
	}
	if cfg.Gamma <= 0 || cfg.Gamma >= 1 {
		cfg.Gamma = 0.25
	}
	if cfg.NCandidates <= 0 {
		cfg.NCandidates = 24
	}
	return &TPESampler{cfg: cfg}
}

// Sample implements Sampler.
func (s *TPESampler) Sample(study *Study, trial *Trial, name string, dist Distribution) float64 {
	completed := study.CompletedTrials()
	observed := observationsFor(completed, name)

	if len(observed) < s.cfg.NStartupTrials {
		return s.randomOnLattice(study, dist)
	}

	if s.cfg.Multivariate {
		if v, ok := s.relativeSample(study, trial, name, dist, completed); ok {
			return v
		}
	}

	good, bad := s.split(observed)
	return s.sampleIndependent(study, dist, values(good), values(bad))
}

// observation pairs a parameter value with its trial's objective value.
type observation struct {
	param float64
	value float64
}

func observationsFor(completed []FrozenTrial, name string) []observation {
	var out []observation
	for _, t := range completed {
		if p, ok := t.Params[name]; ok {
			out = append(out, observation{param: p, value: t.Value})
		}
	}
	return out
}

// split partitions observations into good (top gamma fraction by objective,
// maximize) and bad.
func (s *TPESampler) split(observed []observation) (good, bad []observation) {
	sorted := make([]observation, len(observed))
	copy(sorted, observed)
	// insertion sort by value desc; observation counts stay small
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j].value > sorted[j-1].value; j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}
	nGood := int(math.Ceil(s.cfg.Gamma * float64(len(sorted))))
	if nGood < 1 {
		nGood = 1
	}
	if nGood >= len(sorted) {
		nGood = len(sorted) - 1
	}
	if nGood < 1 {
		return sorted, nil
	}
	return sorted[:nGood], sorted[nGood:]
}

// sampleIndependent draws candidates around good observations and keeps the
// one maximizing l(x)/g(x).
func (s *TPESampler) sampleIndependent(study *Study, dist Distribution, good, bad []float64) float64 {
	if len(good) == 0 {
		return s.randomOnLattice(study, dist)
	}
	bw := bandwidth(dist, len(good))

	bestScore := math.Inf(-1)
	best := good[0]
	for c := 0; c < s.cfg.NCandidates; c++ {
		anchor := good[study.Rand().Intn(len(good))]
		cand := dist.Snap(anchor + study.Rand().NormFloat64()*bw)
		score := logDensity(cand, good, bw) - logDensity(cand, bad, bandwidth(dist, len(bad)))
		if score > bestScore {
			bestScore = score
			best = cand
		}
	}
	return best
}

// relativeSample lazily builds one joint sample for the whole trial: a good
// trial is chosen as anchor, every known parameter is perturbed around it,
// and the best of NCandidates vectors under the summed per-dimension log
// density ratio wins. Parameters outside the anchor's space fall back to
// independent sampling.
func (s *TPESampler) relativeSample(study *Study, trial *Trial, name string, dist Distribution, completed []FrozenTrial) (float64, bool) {
	if trial.relative == nil {
		trial.relative = s.buildRelative(study, completed)
	}
	v, ok := trial.relative[name]
	if !ok {
		return 0, false
	}
	return dist.Snap(v), true
}

func (s *TPESampler) buildRelative(study *Study, completed []FrozenTrial) map[string]float64 {
	// Joint space: parameters present in every completed trial.
	space := make(map[string]Distribution)
	for name, d := range completed[0].Distributions {
		space[name] = d
	}
	for _, t := range completed[1:] {
		for name := range space {
			if _, ok := t.Params[name]; !ok {
				delete(space, name)
			}
		}
	}
	if len(space) == 0 {
		return map[string]float64{}
	}

	sorted := make([]FrozenTrial, len(completed))
	copy(sorted, completed)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j].Value > sorted[j-1].Value; j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}
	nGood := int(math.Ceil(s.cfg.Gamma * float64(len(sorted))))
	if nGood < 1 {
		nGood = 1
	}
	if nGood >= len(sorted) {
		nGood = len(sorted)
	}
	good, bad := sorted[:nGood], sorted[nGood:]

	goodVals := func(name string) []float64 {
		out := make([]float64, 0, len(good))
		for _, t := range good {
			out = append(out, t.Params[name])
		}
		return out
	}
	badVals := func(name string) []float64 {
		out := make([]float64, 0, len(bad))
		for _, t := range bad {
			out = append(out, t.Params[name])
		}
		return out
	}

	bestScore := math.Inf(-1)
	var best map[string]float64
	for c := 0; c < s.cfg.NCandidates; c++ {
		anchor := good[study.Rand().Intn(len(good))]
		cand := make(map[string]float64, len(space))
		score := 0.0
		for name, d := range space {
			bw := bandwidth(d, len(good))
			v := d.Snap(anchor.Params[name] + study.Rand().NormFloat64()*bw)
			cand[name] = v
			score += logDensity(v, goodVals(name), bw) - logDensity(v, badVals(name), bandwidth(d, len(bad)))
		}
		if score > bestScore {
			bestScore = score
			best = cand
		}
	}
	if best == nil {
		best = map[string]float64{}
	}
	return best
}

func (s *TPESampler) randomOnLattice(study *Study, dist Distribution) float64 {
	steps := dist.Steps()
	if steps <= 1 {
		return dist.Low
	}
	return dist.Low + float64(study.Rand().Intn(steps))*dist.Step
}

func values(obs []observation) []float64 {
	out := make([]float64, len(obs))
	for i, o := range obs {
		out[i] = o.param
	}
	return out
}

// bandwidth scales the kernel width to the domain and shrinks with more
// observations.
func bandwidth(dist Distribution, n int) float64 {
	span := dist.High - dist.Low
	if span <= 0 {
		span = dist.Step
	}
	if n < 1 {
		n = 1
	}
	bw := span / math.Sqrt(float64(n)+1)
	if bw < dist.Step/2 {
		bw = dist.Step / 2
	}
	return bw
}

// logDensity evaluates a gaussian Parzen window in log space. An empty
// point set contributes a flat, tiny density so ratios stay finite.
func logDensity(x float64, points []float64, bw float64) float64 {
	if len(points) == 0 || bw <= 0 {
		return math.Log(1e-12)
	}
	sum := 0.0
	norm := 1 / (bw * math.Sqrt(2*math.Pi))
	for _, p := range points {
		z := (x - p) / bw
		sum += norm * math.Exp(-0.5*z*z)
	}
	return math.Log(sum/float64(len(points)) + 1e-12)
}
