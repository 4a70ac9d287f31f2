package sifting

import (
	"fmt"
	"math"

	"github.com/spotlight-pulseline/pulsift/internal/monitoring"
)

// Defaults for the beam sifter when the configuration leaves them unset.
const (
	DefaultPeriodTolBeamSort = 0.1
	DefaultMinBeamCut        = 2
)

// madClipFactor bounds kept DMs from above at median + madClipFactor*MAD.
const madClipFactor = 3.0

// BeamParams configures the beam coherence sifter.
type BeamParams struct {
	// PeriodTolBeamSort is the relative period grouping tolerance across
	// beams, in percent.
	PeriodTolBeamSort float64
	// MinBeamCut is the number of adjacent beams, epicenter included, that
	// must report a period for it to be accepted.
	MinBeamCut int

	StartDM float64
	EndDM   float64

	DMFilteringCut10   float64
	DMFilteringCut1000 float64
}

// Validate checks the beam sifting parameters.
func (p BeamParams) Validate() error {
	if p.MinBeamCut < 1 {
		return fmt.Errorf("%w: min_beam_cut must be at least 1, got %d", ErrConfiguration, p.MinBeamCut)
	}
	if p.PeriodTolBeamSort < 0 {
		return fmt.Errorf("%w: period_tol_beam_sort must be non-negative, got %g", ErrConfiguration, p.PeriodTolBeamSort)
	}
	if p.EndDM <= p.StartDM {
		return fmt.Errorf("%w: end_DM (%g) must exceed start_DM (%g)", ErrConfiguration, p.EndDM, p.StartDM)
	}
	return nil
}

// BeamSifter merges per-beam candidate lists using beam adjacency and DM
// coherence.
type BeamSifter struct {
	params BeamParams
	dmTol  DMTolerance
	layout *BeamLayout
}

// NewBeamSifter validates params and returns a BeamSifter over the given
// beam pointings.
func NewBeamSifter(params BeamParams, beams []BeamInfo) (*BeamSifter, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &BeamSifter{
		params: params,
		dmTol:  NewDMTolerance(params.DMFilteringCut10, params.DMFilteringCut1000),
		layout: NewBeamLayout(beams),
	}, nil
}

// beamEntry is one candidate addressed by beam position and slot.
type beamEntry struct {
	beam int
	slot int
	cand Candidate
}

// Epicenter is a beam accepted as the centre of a spatially coherent
// detection, together with the beams it consumed.
type Epicenter struct {
	BeamID   string
	Consumed []string
}

// ClusteringCut returns the tolerated DM MAD, in pc/cc, for a period.
func (s *BeamSifter) ClusteringCut(period float64) float64 {
	return math.Min(s.dmTol.At(period), s.params.EndDM-s.params.StartDM)
}

// Sift returns the final candidates of every input beam, in input order.
// Beams listed in unusable had no valid input: they are kept out of the
// neighbour ordering so they neither count towards nor break a run.
func (s *BeamSifter) Sift(beams []BeamCandidates, unusable []string) []BeamCandidates {
	exclude := make(map[string]bool, len(unusable))
	for _, id := range unusable {
		exclude[id] = true
	}

	var entries []beamEntry
	for b, bc := range beams {
		for slot, c := range bc.Candidates {
			entries = append(entries, beamEntry{beam: b, slot: slot, cand: c})
		}
	}

	out := make([]BeamCandidates, len(beams))
	position := make(map[string]int, len(beams))
	for i, bc := range beams {
		out[i] = BeamCandidates{BeamID: bc.BeamID}
		position[bc.BeamID] = i
	}
	if len(entries) == 0 {
		return out
	}

	periods := make([]float64, len(entries))
	for i, e := range entries {
		periods[i] = e.cand.Period
	}
	groups := GroupByTolerance(uniqueSorted(periods), s.params.PeriodTolBeamSort)

	buckets := make([][]beamEntry, len(groups))
	for _, e := range entries {
		k := groups.Assign(e.cand.Period)
		buckets[k] = append(buckets[k], e)
	}

	for _, bucket := range buckets {
		if len(bucket) == 0 {
			continue
		}
		for _, ep := range s.epicenters(beams, bucket, exclude) {
			cand, ok := s.coherent(beams, bucket, ep)
			if !ok {
				continue
			}
			i := position[ep.BeamID]
			out[i].Candidates = append(out[i].Candidates, cand)
		}
	}

	for i := range out {
		out[i].Candidates = dedupeKeepFirst(out[i].Candidates)
	}
	return out
}

// epicenters walks the beams of one period group from the strongest down,
// accepting those backed by a long enough run of adjacent beams.
func (s *BeamSifter) epicenters(beams []BeamCandidates, bucket []beamEntry, exclude map[string]bool) []Epicenter {
	pool := make(map[string]bool)
	bestSNR := make(map[string]float64)
	var order []string
	for _, e := range bucket {
		id := beams[e.beam].BeamID
		if !pool[id] {
			pool[id] = true
			order = append(order, id)
			bestSNR[id] = math.Inf(-1)
		}
		if e.cand.SNR > bestSNR[id] {
			bestSNR[id] = e.cand.SNR
		}
	}

	var accepted []Epicenter
	for len(pool) > 0 {
		start := ""
		top := math.Inf(-1)
		for _, id := range order {
			if pool[id] && bestSNR[id] > top {
				start, top = id, bestSNR[id]
			}
		}
		if start == "" {
			break
		}

		neighbours, ok := s.layout.Nearest(start, exclude)
		if !ok {
			monitoring.Ops().Warn().Str("beam", start).Msg("beam has no pointing; dropped from coherence test")
			delete(pool, start)
			continue
		}
		count := 0
		for _, id := range neighbours {
			if !pool[id] {
				break
			}
			count++
		}
		consumed := neighbours[:count]
		if count >= s.params.MinBeamCut {
			accepted = append(accepted, Epicenter{BeamID: start, Consumed: consumed})
		} else {
			monitoring.Trace().Trace().Str("beam", start).Int("adjacent", count).Msg("too few adjacent beams")
		}
		for _, id := range consumed {
			delete(pool, id)
		}
		delete(pool, start)
	}
	return accepted
}

// coherent applies the DM coherence test to the beams consumed by an
// epicenter and returns the strongest DM-consistent candidate.
func (s *BeamSifter) coherent(beams []BeamCandidates, bucket []beamEntry, ep Epicenter) (Candidate, bool) {
	member := make(map[string]bool, len(ep.Consumed))
	for _, id := range ep.Consumed {
		member[id] = true
	}
	var group []Candidate
	for _, e := range bucket {
		if member[beams[e.beam].BeamID] {
			group = append(group, e.cand)
		}
	}
	if len(group) == 0 {
		return Candidate{}, false
	}

	dms := make([]float64, len(group))
	for i, c := range group {
		dms[i] = c.DM
	}
	cut := s.ClusteringCut(bucket[0].cand.Period)
	med, mad := medianAbsDeviation(dms)
	if !(mad < cut) {
		monitoring.Diag().Debug().
			Str("beam", ep.BeamID).
			Float64("dm_median", med).
			Float64("dm_mad", mad).
			Float64("dm_cut", cut).
			Msg("dm incoherent; epicenter discarded")
		return Candidate{}, false
	}

	var kept []Candidate
	var snrs []float64
	for _, c := range group {
		if c.DM <= med+madClipFactor*mad {
			kept = append(kept, c)
			snrs = append(snrs, c.SNR)
		}
	}
	i := argmax(snrs)
	if i < 0 {
		return Candidate{}, false
	}
	best := kept[i]
	monitoring.Diag().Debug().
		Str("beam", ep.BeamID).
		Int("beams", len(ep.Consumed)).
		Float64("period", best.Period).
		Float64("dm", best.DM).
		Float64("snr", best.SNR).
		Float64("dm_cut", cut).
		Msg("coherent candidate")
	return best, true
}
