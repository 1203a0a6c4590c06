package regime

import (
	"strings"
	"time"
)

// Label identifies the regime a classifier assigned to a bar. The built-in
// classifiers emit BULL/BEAR/SIDEWAYS; JSON-configured rule sets may declare
// arbitrary ids (TF_BULL, TREND_UP, CHOP, ...).
type Label string

const (
	LabelBull     Label = "BULL"
	LabelBear     Label = "BEAR"
	LabelSideways Label = "SIDEWAYS"
)

// String returns string representation
func (l Label) String() string {
	return string(l)
}

// BaseType groups arbitrary labels into the three market characters the
// scorer reasons about.
type BaseType string

const (
	BaseBull     BaseType = "bull"
	BaseBear     BaseType = "bear"
	BaseSideways BaseType = "sideways"
)

// Valid checks if base type is valid
func (b BaseType) Valid() bool {
	switch b {
	case BaseBull, BaseBear, BaseSideways:
		return true
	}
	return false
}

// String returns string representation
func (b BaseType) String() string {
	return string(b)
}

// Base infers the base type from the label text: anything containing BULL is
// bull-like, anything containing BEAR is bear-like, everything else counts as
// sideways.
func (l Label) Base() BaseType {
	u := strings.ToUpper(string(l))
	switch {
	case strings.Contains(u, "BULL"):
		return BaseBull
	case strings.Contains(u, "BEAR"):
		return BaseBear
	default:
		return BaseSideways
	}
}

// TrendLike reports whether the label names a directionless trend regime
// (TREND/TF prefixed ids that are neither bull nor bear). Threshold rules
// that compare DI difference use absolute comparisons for these.
func (l Label) TrendLike() bool {
	u := strings.ToUpper(string(l))
	if strings.Contains(u, "BULL") || strings.Contains(u, "BEAR") {
		return false
	}
	return strings.HasPrefix(u, "TREND") || strings.HasPrefix(u, "TF")
}

// Period is one maximal run of consecutive bars sharing a label. The ordered
// list of periods for a label series is a lossless partition: periods are
// gapless, non-overlapping, and their bar counts sum to the series length.
type Period struct {
	Label     Label     `ch:"label" json:"label"`
	Base      BaseType  `ch:"base_type" json:"base_type"`
	StartIdx  int       `ch:"start_idx" json:"start_idx"`
	EndIdx    int       `ch:"end_idx" json:"end_idx"`
	StartTime time.Time `ch:"start_time" json:"start_time,omitempty"`
	EndTime   time.Time `ch:"end_time" json:"end_time,omitempty"`
	Bars      int       `ch:"bars" json:"bars"`
}

// PeriodsFromLabels collapses a per-bar label series into consecutive
// periods. times may be nil (timestamps are then left zero) but when given
// must be index-aligned with labels.
func PeriodsFromLabels(labels []Label, times []time.Time) []Period {
	if len(labels) == 0 {
		return nil
	}

	var periods []Period
	start := 0
	for i := 1; i <= len(labels); i++ {
		if i < len(labels) && labels[i] == labels[start] {
			continue
		}
		p := Period{
			Label:    labels[start],
			Base:     labels[start].Base(),
			StartIdx: start,
			EndIdx:   i - 1,
			Bars:     i - start,
		}
		if len(times) == len(labels) {
			p.StartTime = times[start]
			p.EndTime = times[i-1]
		}
		periods = append(periods, p)
		start = i
	}
	return periods
}

// Switches counts label transitions in a series.
func Switches(labels []Label) int {
	n := 0
	for i := 1; i < len(labels); i++ {
		if labels[i] != labels[i-1] {
			n++
		}
	}
	return n
}
