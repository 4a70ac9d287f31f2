package sifting

import "errors"

var (
	// ErrConfiguration marks a missing or invalid parameter. It is fatal and
	// raised before any file I/O.
	ErrConfiguration = errors.New("invalid sifting configuration")

	// ErrMissingInput marks an absent trial or beam file.
	ErrMissingInput = errors.New("missing input")

	// ErrMalformedRecord marks a line that does not parse into the expected
	// columns.
	ErrMalformedRecord = errors.New("malformed record")

	// ErrNoData marks input with no usable detections. Stages answer it by
	// writing the no-data sentinel.
	ErrNoData = errors.New("no valid data")
)
