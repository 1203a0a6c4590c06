package optimizer

// GridSampler enumerates the cartesian product of every parameter's step
// lattice, in first-seen parameter order. It assumes a static search space:
// the objective must suggest the same parameters in the same order every
// trial. When the trial count exceeds the grid size the enumeration wraps.
type GridSampler struct {
	order []string
	sizes map[string]int
}

// NewGridSampler creates a grid sampler.
func NewGridSampler() *GridSampler {
	return &GridSampler{
		sizes: make(map[string]int),
	}
}

// Sample implements Sampler via mixed-radix decomposition of the trial
// number: the first-seen parameter varies fastest.
func (g *GridSampler) Sample(study *Study, trial *Trial, name string, dist Distribution) float64 {
	if _, ok := g.sizes[name]; !ok {
		g.order = append(g.order, name)
		g.sizes[name] = max(dist.Steps(), 1)
	}

	divisor := 1
	for _, prev := range g.order {
		if prev == name {
			break
		}
		divisor *= g.sizes[prev]
	}
	idx := (trial.Number() / divisor) % g.sizes[name]
	return dist.Low + float64(idx)*dist.Step
}

// GridSize returns the cartesian product size of the space seen so far.
func (g *GridSampler) GridSize() int {
	size := 1
	for _, n := range g.sizes {
		size *= n
	}
	return size
}
