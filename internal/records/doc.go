// Package records reads and writes the on-disk formats of the sifting
// pipeline: per-DM-trial detection tables, sifted candidate lists with their
// "no data" sentinel, beam geometry tables, the binary periodicity-search
// dump, the acceleration-search acc_list outputs and the aggregated folding
// list.
//
// Dependency rule: records may import sifting and fsutil, never pipeline.
package records
