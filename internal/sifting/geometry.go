package sifting

import (
	"math"
	"sort"
)

// AngularDistance returns the great-circle separation in radians of two
// pointings, using the spherical law of cosines.
func AngularDistance(a, b BeamInfo) float64 {
	cosD := math.Sin(a.Dec)*math.Sin(b.Dec) + math.Cos(a.Dec)*math.Cos(b.Dec)*math.Cos(b.RA-a.RA)
	// Rounding can push nearly coincident pointings past +1.
	cosD = math.Max(-1, math.Min(1, cosD))
	return math.Acos(cosD)
}

// BeamLayout indexes beam pointings for nearest-neighbour queries.
type BeamLayout struct {
	beams []BeamInfo
	byID  map[string]int
}

// NewBeamLayout builds a layout from beam pointings. Later duplicates of a
// beam ID are ignored.
func NewBeamLayout(beams []BeamInfo) *BeamLayout {
	l := &BeamLayout{byID: make(map[string]int, len(beams))}
	for _, b := range beams {
		if _, ok := l.byID[b.ID]; ok {
			continue
		}
		l.byID[b.ID] = len(l.beams)
		l.beams = append(l.beams, b)
	}
	return l
}

// Len returns the number of distinct beams.
func (l *BeamLayout) Len() int { return len(l.beams) }

// Beam returns the pointing of id.
func (l *BeamLayout) Beam(id string) (BeamInfo, bool) {
	i, ok := l.byID[id]
	if !ok {
		return BeamInfo{}, false
	}
	return l.beams[i], true
}

// Nearest returns beam IDs ordered by angular distance from id, nearest
// first and including id itself. Beams in exclude are left out. Equal
// distances keep layout order. ok is false when id has no pointing.
func (l *BeamLayout) Nearest(id string, exclude map[string]bool) (ids []string, ok bool) {
	origin, ok := l.Beam(id)
	if !ok {
		return nil, false
	}
	type ranked struct {
		id   string
		dist float64
	}
	rs := make([]ranked, 0, len(l.beams))
	for _, b := range l.beams {
		if exclude[b.ID] {
			continue
		}
		rs = append(rs, ranked{id: b.ID, dist: AngularDistance(origin, b)})
	}
	sort.SliceStable(rs, func(i, j int) bool { return rs[i].dist < rs[j].dist })

	ids = make([]string, len(rs))
	for i, r := range rs {
		ids[i] = r.id
	}
	return ids, true
}
