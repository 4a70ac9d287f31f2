package sifting

import "strconv"

// SpeedOfLight in m/s, used to turn a line-of-sight acceleration into a
// period derivative.
const SpeedOfLight = 3e8

// MaxAdmissibleSNR bounds detections reported by the search; anything at or
// above it is a numerical artefact.
const MaxAdmissibleSNR = 1e8

// SearchType selects the record layout of per-DM-trial detection files.
type SearchType int

const (
	// PeriodicitySearch rows carry [period, pdot, snr].
	PeriodicitySearch SearchType = 0
	// AccelerationSearch rows carry [acceleration_bin, acceleration,
	// frequency_bin, frequency, power, snr].
	AccelerationSearch SearchType = 1
)

// String returns the search type name used in logs and the run ledger.
func (s SearchType) String() string {
	switch s {
	case PeriodicitySearch:
		return "periodicity"
	case AccelerationSearch:
		return "acceleration"
	default:
		return "search-type-" + strconv.Itoa(int(s))
	}
}

// Candidate is a sifted periodicity detection. Values are never mutated once
// a stage has produced them.
type Candidate struct {
	Period float64 // seconds
	Pdot   float64 // s/s
	DM     float64 // pc/cm^3
	SNR    float64
}

// PeriodKey is the textual period used for exact-period de-duplication. Two
// candidates are duplicates when their written periods are identical.
func (c Candidate) PeriodKey() string {
	return strconv.FormatFloat(c.Period, 'f', 10, 64)
}

// RawDetection is one row of a per-DM-trial search output.
//
// Periodicity-search rows have no Fourier bin; readers store the period in
// FrequencyBin so it serves as the grouping key, and fold pdot back into an
// equivalent Acceleration.
type RawDetection struct {
	AccelerationBin float64
	Acceleration    float64 // m/s^2
	FrequencyBin    float64
	Frequency       float64 // Hz
	Power           float64
	SNR             float64
}

// Admissible reports whether the detection can take part in sifting.
func (d RawDetection) Admissible() bool {
	return d.Frequency != 0 && d.SNR > 0 && d.SNR < MaxAdmissibleSNR
}

// Period returns the spin period in seconds.
func (d RawDetection) Period() float64 { return 1.0 / d.Frequency }

// Pdot returns the period derivative implied by the acceleration.
func (d RawDetection) Pdot() float64 {
	return d.Acceleration * d.Period() / SpeedOfLight
}

// DMTrial holds the detections of one trial on the DM grid. A trial whose
// file could not be found keeps its place on the grid with Missing set.
type DMTrial struct {
	DM         float64
	Detections []RawDetection
	Missing    bool
}

// BeamInfo is the pointing of one formed beam.
type BeamInfo struct {
	RA    float64 // radians
	Dec   float64 // radians
	Index int
	ID    string
}

// BeamCandidates is the sifted candidate list of one beam.
type BeamCandidates struct {
	BeamID     string
	Candidates []Candidate
}
