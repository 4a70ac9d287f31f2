package sifting

import (
	"fmt"
	"math"

	"github.com/spotlight-pulseline/pulsift/internal/monitoring"
)

// HarmonicParams configures the harmonic reducer.
type HarmonicParams struct {
	// PeriodTolHarm is the harmonic match tolerance in percent of the
	// longer period.
	PeriodTolHarm float64
	// MaxHarm bounds both terms of the n/m harmonic ratio.
	MaxHarm int

	DMFilteringCut10   float64
	DMFilteringCut1000 float64
}

// Validate checks the harmonic parameters.
func (p HarmonicParams) Validate() error {
	if p.MaxHarm < 1 {
		return fmt.Errorf("%w: max_harm must be at least 1, got %d", ErrConfiguration, p.MaxHarm)
	}
	if p.PeriodTolHarm < 0 {
		return fmt.Errorf("%w: period_tol_harm must be non-negative, got %g", ErrConfiguration, p.PeriodTolHarm)
	}
	return nil
}

// HarmonicReducer groups candidates related by an n/m period ratio and a
// consistent DM, and keeps the strongest member of each group.
type HarmonicReducer struct {
	params HarmonicParams
	dmTol  DMTolerance
}

// NewHarmonicReducer validates params and returns a HarmonicReducer.
func NewHarmonicReducer(params HarmonicParams) (*HarmonicReducer, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &HarmonicReducer{
		params: params,
		dmTol:  NewDMTolerance(params.DMFilteringCut10, params.DMFilteringCut1000),
	}, nil
}

// Related reports whether a and b are harmonics of each other with
// consistent DMs.
func (h *HarmonicReducer) Related(a, b Candidate) bool {
	hi, lo := a.Period, b.Period
	if lo > hi {
		hi, lo = lo, hi
	}
	if math.Abs(a.DM-b.DM) > h.dmTol.At(hi) {
		return false
	}
	if lo <= 0 {
		return false
	}
	tol := hi * h.params.PeriodTolHarm / 100.0
	// lo*n/m falls as m grows, so for each n only the two m bracketing
	// lo*n/hi can come closest to hi.
	for n := 1; n <= h.params.MaxHarm; n++ {
		x := lo * float64(n) / hi
		for _, m := range [2]float64{math.Floor(x), math.Ceil(x)} {
			if m < 1 || m > float64(h.params.MaxHarm) {
				continue
			}
			if math.Abs(lo*float64(n)/m-hi) <= tol {
				return true
			}
		}
	}
	return false
}

// Reduce returns the strongest member of every harmonic family, sorted by
// descending period.
func (h *HarmonicReducer) Reduce(cands []Candidate) []Candidate {
	ds := newDisjointSet(len(cands))
	for i := 0; i < len(cands); i++ {
		for j := i + 1; j < len(cands); j++ {
			if h.Related(cands[i], cands[j]) {
				ds.union(i, j)
			}
		}
	}

	strongest := make(map[int]int, len(cands))
	var roots []int
	for i := range cands {
		r := ds.find(i)
		cur, ok := strongest[r]
		if !ok {
			roots = append(roots, r)
			strongest[r] = i
			continue
		}
		if cands[i].SNR > cands[cur].SNR {
			strongest[r] = i
		}
	}

	out := make([]Candidate, 0, len(roots))
	for _, r := range roots {
		keep := cands[strongest[r]]
		if size := ds.size[r]; size > 1 {
			monitoring.Diag().Debug().
				Float64("period", keep.Period).
				Float64("snr", keep.SNR).
				Int("family_size", size).
				Msg("harmonic family collapsed")
		}
		out = append(out, keep)
	}
	SortByPeriod(out)
	return out
}

// disjointSet is a union-find forest with union by size.
type disjointSet struct {
	parent []int
	size   []int
}

func newDisjointSet(n int) *disjointSet {
	ds := &disjointSet{parent: make([]int, n), size: make([]int, n)}
	for i := range ds.parent {
		ds.parent[i] = i
		ds.size[i] = 1
	}
	return ds
}

func (d *disjointSet) find(i int) int {
	for d.parent[i] != i {
		d.parent[i] = d.parent[d.parent[i]]
		i = d.parent[i]
	}
	return i
}

func (d *disjointSet) union(a, b int) {
	ra, rb := d.find(a), d.find(b)
	if ra == rb {
		return
	}
	if d.size[ra] < d.size[rb] {
		ra, rb = rb, ra
	}
	d.parent[rb] = ra
	d.size[ra] += d.size[rb]
}
