package records

import (
	"path/filepath"
	"regexp"
	"strings"
)

const (
	siftedSuffix   = "_all_sifted_candidates.txt"
	harmonicSuffix = "_all_sifted_harmonic_removed_candidates.txt"
	candidatesTail = "candidates.txt"
	beamSortedTail = "beam_sorted_candidates.txt"
	filterbankExt  = ".fil"
)

var beamIDPattern = regexp.MustCompile(`BM\d+`)

// BaseName strips the directory and a .fil extension from a filterbank path.
func BaseName(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filterbankExt)
}

// SiftedName is the consolidator output of name.
func SiftedName(name string) string { return name + siftedSuffix }

// HarmonicName is the harmonic reducer output of name.
func HarmonicName(name string) string { return name + harmonicSuffix }

// StageInputName is the candidate list the beam sifter reads for name.
func StageInputName(name string, harmonicRemoved bool) string {
	if harmonicRemoved {
		return HarmonicName(name)
	}
	return SiftedName(name)
}

// BeamSortedName maps a candidate list name to its beam-sifted counterpart.
func BeamSortedName(candidateFile string) string {
	if !strings.HasSuffix(candidateFile, candidatesTail) {
		return candidateFile + "." + beamSortedTail
	}
	return strings.TrimSuffix(candidateFile, candidatesTail) + beamSortedTail
}

// FinalName is the list the folding stage collects for name.
func FinalName(name string, harmonicRemoved, beamSorted bool) string {
	n := StageInputName(name, harmonicRemoved)
	if beamSorted {
		return BeamSortedName(n)
	}
	return n
}

// ExtractBeamID returns the first BM<digits> token of name.
func ExtractBeamID(name string) (string, bool) {
	id := beamIDPattern.FindString(name)
	return id, id != ""
}
