package sifting

import "sort"

// DedupeByPeriod collapses candidates with an identical written period,
// keeping the highest-SNR entry, and returns them sorted by descending SNR.
// Ties keep their input order.
func DedupeByPeriod(cands []Candidate) []Candidate {
	best := make(map[string]int, len(cands))
	out := make([]Candidate, 0, len(cands))
	for _, c := range cands {
		key := c.PeriodKey()
		if i, ok := best[key]; ok {
			if c.SNR > out[i].SNR {
				out[i] = c
			}
			continue
		}
		best[key] = len(out)
		out = append(out, c)
	}
	SortBySNR(out)
	return out
}

// dedupeKeepFirst drops every candidate whose written period was already
// seen, preserving order.
func dedupeKeepFirst(cands []Candidate) []Candidate {
	seen := make(map[string]struct{}, len(cands))
	out := make([]Candidate, 0, len(cands))
	for _, c := range cands {
		key := c.PeriodKey()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, c)
	}
	return out
}

// SortBySNR orders candidates by descending SNR, stable.
func SortBySNR(cands []Candidate) {
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].SNR > cands[j].SNR })
}

// SortByPeriod orders candidates by descending period, stable.
func SortByPeriod(cands []Candidate) {
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].Period > cands[j].Period })
}
