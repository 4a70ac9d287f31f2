package pipeline

import (
	"bytes"
	"fmt"

	"github.com/spotlight-pulseline/pulsift/internal/config"
	"github.com/spotlight-pulseline/pulsift/internal/monitoring"
	"github.com/spotlight-pulseline/pulsift/internal/records"
)

// DiscoverSources reads the per-beam parameter files matching pattern and
// returns the filterbank each one names, in file name order. Files without
// a fil_file key are skipped.
func (r *Runner) DiscoverSources(pattern string) ([]FoldSource, error) {
	paths, err := r.fs.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("glob %q: %w", pattern, err)
	}
	var out []FoldSource
	for _, p := range paths {
		data, err := r.fs.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", p, err)
		}
		cfg, err := config.ParseKeyValue(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
		fil := cfg.GetFilFile()
		if fil == "" {
			monitoring.Ops().Warn().Str("file", p).Msg("parameter file has no fil_file; skipped")
			continue
		}
		out = append(out, FoldSource{Name: records.BaseName(fil), FilPath: fil})
	}
	return out, nil
}

// Names returns the beam names of sources.
func Names(sources []FoldSource) []string {
	names := make([]string, len(sources))
	for i, s := range sources {
		names[i] = s.Name
	}
	return names
}
