// Package testutil provides shared fixtures for the sifting pipeline tests.
//
// This package centralises the file builders and reference configuration
// used by more than one package's tests.
package testutil

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/spotlight-pulseline/pulsift/internal/config"
	"github.com/spotlight-pulseline/pulsift/internal/fsutil"
)

func f64(v float64) *float64 { return &v }
func intp(v int) *int        { return &v }

// SmallGridConfig returns a complete configuration over a five-trial DM grid
// (0..4 pc/cc, step 1) where every tolerance window spans two trials.
func SmallGridConfig() *config.SiftingConfig {
	return &config.SiftingConfig{
		StartDM:            f64(0),
		EndDM:              f64(5),
		DMStep:             f64(1),
		LowPeriod:          f64(1),
		HighPeriod:         f64(10000),
		PeriodTolInitSort:  f64(1),
		PeriodTolBeamSort:  f64(0.1),
		PeriodTolHarm:      f64(0.1),
		MaxHarm:            intp(4),
		DMFilteringCut10:   f64(2),
		DMFilteringCut1000: f64(2),
		SNRCut:             f64(5),
		MinBeamCut:         intp(2),
		HarmonicOptFlag:    intp(0),
		BeamSortFlag:       intp(0),
		SearchType:         intp(1),
	}
}

// AccelerationRow renders one acceleration-search detection row.
func AccelerationRow(freqBin, freq, accel, snr float64) string {
	return fmt.Sprintf("0 %g %g %g 1.0 %g", accel, freqBin, freq, snr)
}

// WriteFiles stores each path → content pair in fsys.
func WriteFiles(t testing.TB, fsys fsutil.FileSystem, files map[string]string) {
	t.Helper()
	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		if err := fsys.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatalf("mkdir for %s: %v", p, err)
		}
		if err := fsys.WriteFile(p, []byte(files[p]), 0o644); err != nil {
			t.Fatalf("write %s: %v", p, err)
		}
	}
}

// ReadLines returns the non-empty lines of path.
func ReadLines(t testing.TB, fsys fsutil.FileSystem, path string) []string {
	t.Helper()
	data, err := fsys.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	var lines []string
	for _, l := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(l) != "" {
			lines = append(lines, l)
		}
	}
	return lines
}
