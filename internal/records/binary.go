package records

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"path/filepath"
	"slices"

	"github.com/spotlight-pulseline/pulsift/internal/fsutil"
	"github.com/spotlight-pulseline/pulsift/internal/monitoring"
)

const (
	// GlobalPeriodsFileName is the binary dump of the periodicity search.
	GlobalPeriodsFileName = "global_periods.dat"
	// InformationFileName receives a note when there is nothing to split.
	InformationFileName = "information.txt"

	globalPeriodRowSize = 4 * 4
)

// GlobalPeriod is one row of the periodicity-search dump.
type GlobalPeriod struct {
	DM     float32
	Period float32
	Pdot   float32
	SNR    float32
}

// ReadGlobalPeriods decodes little-endian rows of four float32 values. A
// trailing partial row is reported as an error.
func ReadGlobalPeriods(r io.Reader) ([]GlobalPeriod, error) {
	br := bufio.NewReader(r)
	var rows []GlobalPeriod
	for {
		var row GlobalPeriod
		err := binary.Read(br, binary.LittleEndian, &row)
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return rows, fmt.Errorf("global periods: truncated row %d", len(rows)+1)
		}
		if err != nil {
			return rows, fmt.Errorf("global periods: %w", err)
		}
		rows = append(rows, row)
	}
}

// SplitResult summarises a SplitGlobalPeriods call.
type SplitResult struct {
	Files []string
	Rows  int
	Note  string // set when information.txt was written instead
}

// roundDM rounds to the 0.01 pc/cc resolution of trial file names.
func roundDM(dm float32) float64 {
	return math.Round(float64(dm)*100) / 100
}

// SplitGlobalPeriods splits dir/global_periods.dat into one periodicity
// trial file per DM under outDir. A missing or empty dump leaves an
// information.txt note in outDir instead.
func SplitGlobalPeriods(fsys fsutil.FileSystem, dir, outDir, name string) (SplitResult, error) {
	if err := fsys.MkdirAll(outDir, 0o755); err != nil {
		return SplitResult{}, fmt.Errorf("create %s: %w", outDir, err)
	}
	note := func(msg string) (SplitResult, error) {
		monitoring.Ops().Warn().Str("dir", dir).Msg(msg)
		err := fsys.WriteFile(filepath.Join(outDir, InformationFileName), []byte(msg), 0o644)
		return SplitResult{Note: msg}, err
	}

	src := filepath.Join(dir, GlobalPeriodsFileName)
	f, err := fsys.Open(src)
	if errors.Is(err, fs.ErrNotExist) {
		return note("No output files found in the input directory.")
	}
	if err != nil {
		return SplitResult{}, fmt.Errorf("open %s: %w", src, err)
	}
	defer f.Close()

	rows, err := ReadGlobalPeriods(f)
	if err != nil && len(rows) == 0 {
		return SplitResult{}, fmt.Errorf("%s: %w", src, err)
	}
	if err != nil {
		monitoring.Ops().Warn().Err(err).Str("file", src).Msg("ignoring trailing bytes")
	}
	if len(rows) == 0 {
		return note("No valid data found in the input directory.")
	}

	byDM := make(map[float64][]GlobalPeriod)
	for _, r := range rows {
		dm := roundDM(r.DM)
		byDM[dm] = append(byDM[dm], r)
	}
	dms := make([]float64, 0, len(byDM))
	for dm := range byDM {
		dms = append(dms, dm)
	}
	slices.Sort(dms)

	res := SplitResult{Rows: len(rows)}
	for _, dm := range dms {
		var buf []byte
		for _, r := range byDM[dm] {
			buf = fmt.Appendf(buf, "%.15f %.15f %.15f\n", r.Period, r.Pdot, r.SNR)
		}
		path := filepath.Join(outDir, TrialFileName(name, dm))
		if err := fsutil.WriteFileAtomic(fsys, path, buf, 0o644); err != nil {
			return res, err
		}
		res.Files = append(res.Files, path)
	}
	monitoring.Ops().Info().Int("rows", res.Rows).Int("files", len(res.Files)).Msg("split global periods")
	return res, nil
}
