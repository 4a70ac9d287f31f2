// Package sifting owns the candidate reduction algorithms of the pulsar
// search pipeline.
//
// Responsibilities: tolerance grouping of periods and Fourier bins,
// DM-trial consolidation within one beam, harmonic reduction, and
// multi-beam coherence sifting.
// Key types: Candidate, DMTrial, BeamInfo.
//
// Dependency rule: no file or database access is allowed in this package.
// Record formats live in internal/records and orchestration in
// internal/pipeline. Every function here is deterministic for a given
// input and parameter set.
package sifting
