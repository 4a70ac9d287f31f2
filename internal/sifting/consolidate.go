package sifting

import (
	"fmt"
	"math"
	"strconv"

	"github.com/spotlight-pulseline/pulsift/internal/monitoring"
)

// ConsolidationParams configures the DM-trial consolidator.
type ConsolidationParams struct {
	StartDM float64 // pc/cc
	EndDM   float64 // pc/cc
	DMStep  float64 // pc/cc

	LowPeriodMs  float64
	HighPeriodMs float64

	// PeriodTolInitSort is the relative grouping tolerance, in percent, of
	// Fourier bins across trials.
	PeriodTolInitSort float64

	// DM widths, in pc/cc, a real signal is expected to span at 10 ms and
	// at 1000 ms.
	DMFilteringCut10   float64
	DMFilteringCut1000 float64

	SNRCut float64
}

// Validate checks that the parameters describe a usable DM grid and band.
func (p ConsolidationParams) Validate() error {
	if p.DMStep <= 0 {
		return fmt.Errorf("%w: dm_step must be positive, got %g", ErrConfiguration, p.DMStep)
	}
	if p.EndDM <= p.StartDM {
		return fmt.Errorf("%w: end_DM (%g) must exceed start_DM (%g)", ErrConfiguration, p.EndDM, p.StartDM)
	}
	if p.HighPeriodMs < p.LowPeriodMs {
		return fmt.Errorf("%w: high_period (%g) below low_period (%g)", ErrConfiguration, p.HighPeriodMs, p.LowPeriodMs)
	}
	if p.PeriodTolInitSort < 0 {
		return fmt.Errorf("%w: period_tol_init_sort must be non-negative, got %g", ErrConfiguration, p.PeriodTolInitSort)
	}
	return nil
}

// DMGrid returns the trial DMs start + i*step for i in [0, floor((end-start)/step)).
func DMGrid(start, end, step float64) []float64 {
	if step <= 0 || end <= start {
		return nil
	}
	n := int(math.Floor((end - start) / step))
	grid := make([]float64, n)
	for i := range grid {
		grid[i] = start + float64(i)*step
	}
	return grid
}

// TrialLabel formats a trial DM the way trial files are named.
func TrialLabel(dm float64) string {
	return strconv.FormatFloat(dm, 'f', 2, 64)
}

// Consolidator collapses per-DM-trial detections of one beam into sifted
// candidates.
type Consolidator struct {
	params ConsolidationParams
	dmTol  DMTolerance
}

// NewConsolidator validates params and returns a Consolidator.
func NewConsolidator(params ConsolidationParams) (*Consolidator, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Consolidator{
		params: params,
		dmTol:  NewDMTolerance(params.DMFilteringCut10, params.DMFilteringCut1000),
	}, nil
}

// Grid returns the DM grid the consolidator expects trials for.
func (c *Consolidator) Grid() []float64 {
	return DMGrid(c.params.StartDM, c.params.EndDM, c.params.DMStep)
}

// trialEntry is one in-band detection, addressed by trial index and slot.
type trialEntry struct {
	trial  int
	slot   int
	key    float64
	period float64
	pdot   float64
	snr    float64
}

// Consolidate reduces trials, indexed along the DM grid, to candidates
// sorted by descending SNR. It returns ErrNoData when no trial holds a
// single admissible in-band detection.
func (c *Consolidator) Consolidate(trials []DMTrial) ([]Candidate, error) {
	entries := c.collect(trials)
	if len(entries) == 0 {
		return nil, fmt.Errorf("consolidate %d trials: %w", len(trials), ErrNoData)
	}

	keys := make([]float64, len(entries))
	for i, e := range entries {
		keys[i] = e.key
	}
	groups := GroupByTolerance(uniqueSorted(keys), c.params.PeriodTolInitSort)

	buckets := make([][]trialEntry, len(groups))
	for _, e := range entries {
		k := groups.Assign(e.key)
		buckets[k] = append(buckets[k], e)
	}

	var out []Candidate
	for k, bucket := range buckets {
		if len(bucket) == 0 {
			continue
		}
		out = append(out, c.sieveGroup(trials, groups[k], bucket)...)
	}
	return DedupeByPeriod(out), nil
}

// collect flattens admissible in-band detections in trial then slot order.
func (c *Consolidator) collect(trials []DMTrial) []trialEntry {
	var entries []trialEntry
	for i, tr := range trials {
		slot := 0
		for _, d := range tr.Detections {
			if !d.Admissible() {
				continue
			}
			periodMs := 1000.0 / d.Frequency
			if !(periodMs >= c.params.LowPeriodMs && periodMs <= c.params.HighPeriodMs) {
				slot++
				continue
			}
			entries = append(entries, trialEntry{
				trial:  i,
				slot:   slot,
				key:    d.FrequencyBin,
				period: d.Period(),
				pdot:   d.Pdot(),
				snr:    d.SNR,
			})
			slot++
		}
	}
	return entries
}

// FilteringCut returns the minimum number of contiguous trials a detection
// at period must span.
func (c *Consolidator) FilteringCut(period float64) int {
	return int(math.Round(c.dmTol.At(period) / c.params.DMStep))
}

// sieveGroup emits one candidate per sufficiently long run of contiguous
// trials inside a tolerance group.
func (c *Consolidator) sieveGroup(trials []DMTrial, grp ToleranceGroup, bucket []trialEntry) []Candidate {
	cut := c.FilteringCut(bucket[0].period)
	monitoring.Diag().Debug().
		Float64("anchor", grp.Anchor).
		Float64("period", bucket[0].period).
		Float64("dm_tolerance", float64(cut)*c.params.DMStep).
		Int("entries", len(bucket)).
		Msg("dm filtering window")

	byTrial := make(map[int][]trialEntry)
	var touched []int
	for _, e := range bucket {
		if _, ok := byTrial[e.trial]; !ok {
			touched = append(touched, e.trial)
		}
		byTrial[e.trial] = append(byTrial[e.trial], e)
	}

	var out []Candidate
	for _, run := range contiguousRuns(touched) {
		if len(run) < cut {
			continue
		}
		var members []trialEntry
		for _, t := range run {
			members = append(members, byTrial[t]...)
		}
		snrs := make([]float64, len(members))
		for i, m := range members {
			snrs[i] = m.snr
		}
		best := members[argmax(snrs)]
		if best.snr < c.params.SNRCut {
			monitoring.Trace().Trace().Float64("period", best.period).Float64("snr", best.snr).Msg("below snr cut")
			continue
		}
		cand := Candidate{
			Period: best.period,
			Pdot:   best.pdot,
			DM:     trials[best.trial].DM,
			SNR:    best.snr,
		}
		monitoring.Diag().Debug().
			Float64("period", cand.Period).
			Float64("dm", cand.DM).
			Float64("snr", cand.SNR).
			Int("run_length", len(run)).
			Msg("candidate")
		out = append(out, cand)
	}
	return out
}
