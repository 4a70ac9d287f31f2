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

// GeometryFileName is the beam pointing table written by header extraction.
const GeometryFileName = "Extracted_RA_Dec_beam_index.txt"

// ReadBeamGeometry parses "RA, Dec, beam_index, beam_id" rows. Comment lines
// and the column header are skipped, as are rows that do not parse.
func ReadBeamGeometry(r io.Reader) ([]sifting.BeamInfo, error) {
	sc := bufio.NewScanner(r)
	var (
		beams  []sifting.BeamInfo
		lineNo int
	)
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.Contains(line, "RA (Rad)") {
			continue
		}
		b, err := parseBeam(line)
		if err != nil {
			monitoring.Ops().Warn().Int("line", lineNo).Err(err).Msg("skipping beam geometry row")
			continue
		}
		beams = append(beams, b)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read beam geometry: %w", err)
	}
	return beams, nil
}

func parseBeam(line string) (sifting.BeamInfo, error) {
	parts := strings.Split(line, ",")
	if len(parts) != 4 {
		return sifting.BeamInfo{}, fmt.Errorf("%w: want 4 comma separated fields, got %d", sifting.ErrMalformedRecord, len(parts))
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	ra, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return sifting.BeamInfo{}, fmt.Errorf("%w: ra: %v", sifting.ErrMalformedRecord, err)
	}
	dec, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return sifting.BeamInfo{}, fmt.Errorf("%w: dec: %v", sifting.ErrMalformedRecord, err)
	}
	idx, err := strconv.Atoi(parts[2])
	if err != nil {
		return sifting.BeamInfo{}, fmt.Errorf("%w: beam index: %v", sifting.ErrMalformedRecord, err)
	}
	if parts[3] == "" {
		return sifting.BeamInfo{}, fmt.Errorf("%w: empty beam id", sifting.ErrMalformedRecord)
	}
	return sifting.BeamInfo{RA: ra, Dec: dec, Index: idx, ID: parts[3]}, nil
}

// LoadBeamGeometry reads the geometry table at path.
func LoadBeamGeometry(fsys fsutil.FileSystem, path string) ([]sifting.BeamInfo, error) {
	data, err := fsys.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("beam geometry %s: %w", path, sifting.ErrMissingInput)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return ReadBeamGeometry(bytes.NewReader(data))
}
