package records

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strconv"
	"strings"

	"github.com/spotlight-pulseline/pulsift/internal/fsutil"
	"github.com/spotlight-pulseline/pulsift/internal/monitoring"
	"github.com/spotlight-pulseline/pulsift/internal/sifting"
)

const (
	// Header is the first line of every candidate list.
	Header = "Period(sec)   Pdot(s/s)  DM(pc/cc)   SNR"

	// NoDataSentinel is the sole line of a candidate list that has nothing
	// to report. Downstream stages pass it through unchanged.
	NoDataSentinel = "No valid data found to process."
)

// FormatCandidate renders one candidate row.
func FormatCandidate(c sifting.Candidate) string {
	return fmt.Sprintf("%.10f     %.6e     %.2f     %.2f", c.Period, c.Pdot, c.DM, c.SNR)
}

// WriteCandidates writes the header and one row per candidate. An empty list
// is written as the no-data sentinel.
func WriteCandidates(w io.Writer, cands []sifting.Candidate) error {
	if len(cands) == 0 {
		return WriteNoData(w)
	}
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, Header)
	for _, c := range cands {
		fmt.Fprintln(bw, FormatCandidate(c))
	}
	return bw.Flush()
}

// WriteNoData writes the no-data sentinel.
func WriteNoData(w io.Writer) error {
	_, err := io.WriteString(w, NoDataSentinel+"\n")
	return err
}

// ReadCandidates parses a candidate list. It returns sifting.ErrNoData for
// the sentinel, an empty stream or a list without a single valid row.
// Malformed rows are skipped with a warning.
func ReadCandidates(r io.Reader) ([]sifting.Candidate, error) {
	sc := bufio.NewScanner(r)
	var (
		out    []sifting.Candidate
		lineNo int
	)
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if lineNo == 1 {
			if line == NoDataSentinel {
				return nil, sifting.ErrNoData
			}
			if strings.HasPrefix(line, "Period") || strings.HasPrefix(line, "#") {
				continue
			}
		}
		c, err := parseCandidate(line)
		if err != nil {
			monitoring.Ops().Warn().Int("line", lineNo).Err(err).Msg("skipping candidate row")
			continue
		}
		out = append(out, c)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read candidates: %w", err)
	}
	if len(out) == 0 {
		return nil, sifting.ErrNoData
	}
	return out, nil
}

func parseCandidate(line string) (sifting.Candidate, error) {
	vals, err := parseFloats(line, 4)
	if err != nil {
		return sifting.Candidate{}, err
	}
	return sifting.Candidate{Period: vals[0], Pdot: vals[1], DM: vals[2], SNR: vals[3]}, nil
}

// parseFloats splits a whitespace separated row into exactly n floats.
func parseFloats(line string, n int) ([]float64, error) {
	fields := strings.Fields(line)
	if len(fields) != n {
		return nil, fmt.Errorf("%w: want %d columns, got %d", sifting.ErrMalformedRecord, n, len(fields))
	}
	vals := make([]float64, n)
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: column %d: %v", sifting.ErrMalformedRecord, i+1, err)
		}
		vals[i] = v
	}
	return vals, nil
}

// LoadCandidates reads a candidate list from fsys. A missing file is
// reported as sifting.ErrMissingInput.
func LoadCandidates(fsys fsutil.FileSystem, path string) ([]sifting.Candidate, error) {
	data, err := fsys.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", path, sifting.ErrMissingInput)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	cands, err := ReadCandidates(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cands, nil
}

// SaveCandidates writes a candidate list, or the sentinel when cands is
// empty, to path.
func SaveCandidates(fsys fsutil.FileSystem, path string, cands []sifting.Candidate) error {
	var buf bytes.Buffer
	if err := WriteCandidates(&buf, cands); err != nil {
		return err
	}
	return fsutil.WriteFileAtomic(fsys, path, buf.Bytes(), 0o644)
}
