// Package pipeline runs the sifting stages against files: it resolves
// stage inputs and outputs by name, turns missing or empty inputs into the
// no-data sentinel, and records every invocation in the run ledger.
//
// Dependency rule: pipeline is the only package that combines sifting,
// records, config and ledger. cmd/pulsift runs stages through pipeline only.
package pipeline
