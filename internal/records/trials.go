package records

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/spotlight-pulseline/pulsift/internal/fsutil"
	"github.com/spotlight-pulseline/pulsift/internal/monitoring"
	"github.com/spotlight-pulseline/pulsift/internal/sifting"
)

// TrialFileName returns the file holding the detections of one DM trial.
func TrialFileName(name string, dm float64) string {
	return fmt.Sprintf("%s_DM%s.dat", name, sifting.TrialLabel(dm))
}

// ReadTrial parses one DM trial table in the layout of the given search type.
func ReadTrial(r io.Reader, st sifting.SearchType) ([]sifting.RawDetection, error) {
	switch st {
	case sifting.AccelerationSearch:
		return readRows(r, 6, accelerationRow)
	case sifting.PeriodicitySearch:
		return readRows(r, 3, periodicityRow)
	default:
		return nil, fmt.Errorf("%w: unknown search type %d", sifting.ErrConfiguration, int(st))
	}
}

func accelerationRow(v []float64) sifting.RawDetection {
	return sifting.RawDetection{
		AccelerationBin: v[0],
		Acceleration:    v[1],
		FrequencyBin:    v[2],
		Frequency:       v[3],
		Power:           v[4],
		SNR:             v[5],
	}
}

// periodicityRow maps [period, pdot, snr]. The period stands in for the
// Fourier bin and pdot is folded back into an equivalent acceleration.
func periodicityRow(v []float64) sifting.RawDetection {
	period, pdot, snr := v[0], v[1], v[2]
	if period == 0 {
		return sifting.RawDetection{SNR: snr}
	}
	return sifting.RawDetection{
		Acceleration: pdot * sifting.SpeedOfLight / period,
		FrequencyBin: period,
		Frequency:    1 / period,
		SNR:          snr,
	}
}

func readRows(r io.Reader, cols int, conv func([]float64) sifting.RawDetection) ([]sifting.RawDetection, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var (
		out    []sifting.RawDetection
		lineNo int
	)
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		vals, err := parseFloats(line, cols)
		if err != nil {
			monitoring.Ops().Warn().Int("line", lineNo).Err(err).Msg("skipping detection row")
			continue
		}
		out = append(out, conv(vals))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read trial: %w", err)
	}
	return out, nil
}

// LoadTrials reads the trial files of name in dir along grid. A missing
// trial reuses the data of the most recent trial that resolved, so a run of
// missing trials all inherit the same table. Only trials before the first
// resolved one are kept as Missing gaps.
func LoadTrials(fsys fsutil.FileSystem, dir, name string, grid []float64, st sifting.SearchType) ([]sifting.DMTrial, error) {
	trials := make([]sifting.DMTrial, len(grid))
	var (
		last   []byte
		lastDM float64
	)
	for i, dm := range grid {
		trials[i].DM = dm
		path := filepath.Join(dir, TrialFileName(name, dm))
		data, err := fsys.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist) && last != nil:
			monitoring.Ops().Info().
				Str("trial", sifting.TrialLabel(dm)).
				Str("from", sifting.TrialLabel(lastDM)).
				Msg("trial file missing; reusing previous trial")
			data = last
		case errors.Is(err, fs.ErrNotExist):
			monitoring.Ops().Warn().Str("trial", sifting.TrialLabel(dm)).Msg("trial file missing; skipped")
			trials[i].Missing = true
			continue
		case err != nil:
			return nil, fmt.Errorf("read %s: %w", path, err)
		default:
			last, lastDM = data, dm
		}
		dets, err := ReadTrial(bytes.NewReader(data), st)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		trials[i].Detections = dets
	}
	return trials, nil
}
