// Package monitoring provides the process-wide structured log streams.
//
// Three streams are kept apart so that operators can route them
// independently: ops (actionable warnings and lifecycle events), diag
// (per-group sifting decisions) and trace (per-detection telemetry).
package monitoring

import (
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
)

// LogWriters holds the io.Writers for each logging stream.
type LogWriters struct {
	Ops   io.Writer
	Diag  io.Writer
	Trace io.Writer
}

var (
	mu          sync.RWMutex
	opsLogger   = newLogger("ops", os.Stderr)
	diagLogger  = zerolog.Nop()
	traceLogger = zerolog.Nop()
)

// Streams are switched on and off by their writers, not by level.
func init() {
	zerolog.SetGlobalLevel(zerolog.TraceLevel)
}

// SetLogWriters configures all three logging streams at once.
// Pass nil for any writer to disable that stream.
func SetLogWriters(w LogWriters) {
	mu.Lock()
	defer mu.Unlock()
	opsLogger = newLogger("ops", w.Ops)
	diagLogger = newLogger("diag", w.Diag)
	traceLogger = newLogger("trace", w.Trace)
}

// ConsoleWriters returns writers for interactive use: ops always goes to w,
// diag and trace only when verbose is set. With jsonLines the raw zerolog
// JSON is kept instead of the human-readable console format.
func ConsoleWriters(w io.Writer, verbose, jsonLines bool) LogWriters {
	out := w
	if !jsonLines {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05.000"}
	}
	lw := LogWriters{Ops: out}
	if verbose {
		lw.Diag = out
		lw.Trace = out
	}
	return lw
}

func newLogger(stream string, w io.Writer) zerolog.Logger {
	if w == nil {
		return zerolog.Nop()
	}
	return zerolog.New(w).With().Timestamp().Str("stream", stream).Logger()
}

// Ops returns the ops stream logger.
func Ops() *zerolog.Logger {
	mu.RLock()
	l := opsLogger
	mu.RUnlock()
	return &l
}

// Diag returns the diag stream logger.
func Diag() *zerolog.Logger {
	mu.RLock()
	l := diagLogger
	mu.RUnlock()
	return &l
}

// Trace returns the trace stream logger.
func Trace() *zerolog.Logger {
	mu.RLock()
	l := traceLogger
	mu.RUnlock()
	return &l
}

// Opsf logs a formatted message to the ops stream.
func Opsf(format string, args ...interface{}) {
	Ops().Info().Msgf(format, args...)
}

// Diagf logs a formatted message to the diag stream.
func Diagf(format string, args ...interface{}) {
	Diag().Debug().Msgf(format, args...)
}

// Tracef logs a formatted message to the trace stream.
func Tracef(format string, args ...interface{}) {
	Trace().Trace().Msgf(format, args...)
}
