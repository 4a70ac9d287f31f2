package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spotlight-pulseline/pulsift/internal/monitoring"
	"github.com/spotlight-pulseline/pulsift/internal/records"
	"github.com/spotlight-pulseline/pulsift/internal/security"
	"github.com/spotlight-pulseline/pulsift/internal/sifting"
)

// BeamsRequest describes one beam sifting pass over an observation.
type BeamsRequest struct {
	// Dir holds the per-beam candidate lists.
	Dir string
	// OutDir receives the beam-sorted lists.
	OutDir string
	// GeometryPath is the beam pointing table; Dir/Extracted_RA_Dec_beam_index.txt
	// when empty.
	GeometryPath string
	// Names are the filterbank base names, one per beam. Each must carry a
	// BM<n> beam ID.
	Names []string
}

// BeamsResult reports a beam sifting pass.
type BeamsResult struct {
	Result
	PerBeam []Result
}

// Beams merges the per-beam candidate lists of an observation. Beams whose
// input is missing, unreadable or holds the sentinel are kept out of the
// neighbour ordering; a sentinel input is passed through to the beam's
// output. One bad beam never stops the others.
func (r *Runner) Beams(ctx context.Context, req BeamsRequest) (res BeamsResult, err error) {
	res.Result = Result{Stage: StageBeams, Name: filepath.Base(filepath.Clean(req.Dir)), OutputPath: req.OutDir}
	params, err := r.cfg.BeamParams()
	if err != nil {
		return res, err
	}
	for _, name := range req.Names {
		if err := security.ValidateBeamName(name); err != nil {
			return res, err
		}
	}
	started := r.now()
	defer func() { r.record(ctx, &res.Result, params, started, err) }()

	geomPath := req.GeometryPath
	if geomPath == "" {
		geomPath = filepath.Join(req.Dir, records.GeometryFileName)
	}
	geometry, err := records.LoadBeamGeometry(r.fs, geomPath)
	if err != nil {
		return res, err
	}
	sifter, err := sifting.NewBeamSifter(params, geometry)
	if err != nil {
		return res, err
	}

	harm := r.cfg.GetHarmonicOptFlag()
	var (
		inputs   []sifting.BeamCandidates
		names    []string
		unusable []string
	)
	for _, name := range req.Names {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		id, ok := records.ExtractBeamID(name)
		if !ok {
			monitoring.Ops().Warn().Str("name", name).Msg("no beam id in name; skipped")
			continue
		}
		inName := records.StageInputName(name, harm)
		outPath := filepath.Join(req.OutDir, records.BeamSortedName(inName))
		cands, err := records.LoadCandidates(r.fs, filepath.Join(req.Dir, inName))
		switch {
		case errors.Is(err, sifting.ErrNoData):
			unusable = append(unusable, id)
			if err := records.SaveCandidates(r.fs, outPath, nil); err != nil {
				return res, err
			}
			res.PerBeam = append(res.PerBeam, Result{Stage: StageBeams, Name: name, NoData: true, OutputPath: outPath})
			continue
		case errors.Is(err, sifting.ErrMissingInput):
			monitoring.Ops().Warn().Str("name", name).Str("beam", id).Msg("beam candidate list missing")
			unusable = append(unusable, id)
			continue
		case err != nil:
			monitoring.Ops().Error().Err(err).Str("name", name).Str("beam", id).Msg("beam candidate list unreadable; beam skipped")
			unusable = append(unusable, id)
			continue
		}
		res.Inputs += len(cands)
		inputs = append(inputs, sifting.BeamCandidates{BeamID: id, Candidates: cands})
		names = append(names, name)
	}

	out := sifter.Sift(inputs, unusable)
	for i, bc := range out {
		inName := records.StageInputName(names[i], harm)
		outPath := filepath.Join(req.OutDir, records.BeamSortedName(inName))
		if err := records.SaveCandidates(r.fs, outPath, bc.Candidates); err != nil {
			return res, fmt.Errorf("beam %s: %w", bc.BeamID, err)
		}
		res.Outputs += len(bc.Candidates)
		res.PerBeam = append(res.PerBeam, Result{
			Stage:      StageBeams,
			Name:       names[i],
			Inputs:     len(inputs[i].Candidates),
			Outputs:    len(bc.Candidates),
			NoData:     len(bc.Candidates) == 0,
			OutputPath: outPath,
		})
	}
	res.NoData = res.Outputs == 0
	monitoring.Ops().Info().
		Int("beams", len(inputs)).
		Int("unusable", len(unusable)).
		Int("in", res.Inputs).
		Int("out", res.Outputs).
		Msg("beam sifting done")
	return res, nil
}
