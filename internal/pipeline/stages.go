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

// Consolidate sifts the DM trials of name found in inDir and writes
// <name>_all_sifted_candidates.txt to outDir. No admissible detection in any
// trial yields the sentinel.
func (r *Runner) Consolidate(ctx context.Context, inDir, outDir, name string) (res Result, err error) {
	res = Result{Stage: StageConsolidate, Name: name}
	params, err := r.cfg.ConsolidationParams()
	if err != nil {
		return res, err
	}
	if err := security.ValidateBeamName(name); err != nil {
		return res, err
	}
	started := r.now()
	defer func() { r.record(ctx, &res, params, started, err) }()

	c, err := sifting.NewConsolidator(params)
	if err != nil {
		return res, err
	}
	trials, err := records.LoadTrials(r.fs, inDir, name, c.Grid(), r.cfg.GetSearchType())
	if err != nil {
		return res, err
	}
	for _, tr := range trials {
		res.Inputs += len(tr.Detections)
	}

	cands, err := c.Consolidate(trials)
	if err != nil && !errors.Is(err, sifting.ErrNoData) {
		return res, err
	}
	res.NoData = len(cands) == 0
	res.Outputs = len(cands)
	res.OutputPath = filepath.Join(outDir, records.SiftedName(name))
	if err := records.SaveCandidates(r.fs, res.OutputPath, cands); err != nil {
		return res, err
	}
	monitoring.Ops().Info().
		Str("name", name).
		Int("trials", len(trials)).
		Int("detections", res.Inputs).
		Int("candidates", res.Outputs).
		Msg("consolidated")
	return res, nil
}

// Harmonics removes harmonically related candidates from name's sifted list
// in dir and writes <name>_all_sifted_harmonic_removed_candidates.txt to
// outDir. A sentinel input is passed through.
func (r *Runner) Harmonics(ctx context.Context, dir, outDir, name string) (res Result, err error) {
	res = Result{Stage: StageHarmonics, Name: name}
	params, err := r.cfg.HarmonicParams()
	if err != nil {
		return res, err
	}
	if err := security.ValidateBeamName(name); err != nil {
		return res, err
	}
	started := r.now()
	defer func() { r.record(ctx, &res, params, started, err) }()

	h, err := sifting.NewHarmonicReducer(params)
	if err != nil {
		return res, err
	}
	cands, err := records.LoadCandidates(r.fs, filepath.Join(dir, records.SiftedName(name)))
	if err != nil && !errors.Is(err, sifting.ErrNoData) {
		return res, err
	}
	res.Inputs = len(cands)

	out := h.Reduce(cands)
	res.Outputs = len(out)
	res.NoData = len(out) == 0
	res.OutputPath = filepath.Join(outDir, records.HarmonicName(name))
	if err := records.SaveCandidates(r.fs, res.OutputPath, out); err != nil {
		return res, err
	}
	monitoring.Ops().Info().
		Str("name", name).
		Int("in", res.Inputs).
		Int("out", res.Outputs).
		Msg("harmonics removed")
	return res, nil
}

// Process runs consolidation and, when harmonic_opt_flag is set, harmonic
// removal for one beam, both writing to outDir.
func (r *Runner) Process(ctx context.Context, inDir, outDir, name string) ([]Result, error) {
	res, err := r.Consolidate(ctx, inDir, outDir, name)
	if err != nil {
		return []Result{res}, err
	}
	if !r.cfg.GetHarmonicOptFlag() {
		return []Result{res}, nil
	}
	hres, err := r.Harmonics(ctx, outDir, outDir, name)
	return []Result{res, hres}, err
}

// PrepareTrials turns the raw search output in dir into per-DM trial files
// for name under outDir. A periodicity search splits the binary
// global_periods.dat dump; an acceleration search moves the acc_list files
// (the harmonic-summed ones when harmonic_sum_flag is set).
func (r *Runner) PrepareTrials(ctx context.Context, dir, outDir, name string) (res Result, err error) {
	res = Result{Stage: StagePrepareTrials, Name: name}
	if err := security.ValidateBeamName(name); err != nil {
		return res, err
	}
	st, harmSum := r.cfg.GetSearchType(), r.cfg.GetHarmonicSumFlag()
	started := r.now()
	defer func() {
		r.record(ctx, &res, map[string]any{"dir": dir, "search_type": int(st), "harmonic_sum_flag": harmSum}, started, err)
	}()

	var split records.SplitResult
	switch st {
	case sifting.PeriodicitySearch:
		split, err = records.SplitGlobalPeriods(r.fs, dir, outDir, name)
	case sifting.AccelerationSearch:
		split, err = records.RenameAccelerationLists(r.fs, dir, outDir, name, harmSum)
	default:
		err = fmt.Errorf("%w: unknown search type %d", sifting.ErrConfiguration, int(st))
	}
	if err != nil {
		return res, err
	}
	res.Inputs = split.Rows
	if st == sifting.AccelerationSearch {
		res.Inputs = len(split.Files)
	}
	res.Outputs = len(split.Files)
	res.NoData = split.Note != ""
	res.OutputPath = outDir
	return res, nil
}

// FoldSource names one beam whose final list goes into a folding list.
type FoldSource struct {
	Name    string
	FilPath string
}

// FoldingList collects the final candidate list of every source in dir
// into one folding list at outPath. Sources with a sentinel or missing list
// are skipped.
func (r *Runner) FoldingList(ctx context.Context, dir, outPath string, sources []FoldSource) (res Result, err error) {
	res = Result{Stage: StageFoldingList, Name: filepath.Base(outPath), OutputPath: outPath}
	harm, beams := r.cfg.GetHarmonicOptFlag(), r.cfg.GetBeamSortFlag()
	started := r.now()
	defer func() {
		r.record(ctx, &res, map[string]bool{"harmonic_opt_flag": harm, "beam_sort_flag": beams}, started, err)
	}()

	var folds []records.FoldingSource
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if err := security.ValidateBeamName(src.Name); err != nil {
			monitoring.Ops().Warn().Err(err).Msg("folding source skipped")
			continue
		}
		path := filepath.Join(dir, records.FinalName(src.Name, harm, beams))
		cands, err := records.LoadCandidates(r.fs, path)
		switch {
		case errors.Is(err, sifting.ErrNoData):
			monitoring.Ops().Info().Str("file", path).Msg("no candidates to fold")
			continue
		case errors.Is(err, sifting.ErrMissingInput):
			monitoring.Ops().Warn().Str("file", path).Msg("final candidate list missing")
			continue
		case err != nil:
			return res, err
		}
		res.Inputs++
		folds = append(folds, records.FoldingSource{FilPath: src.FilPath, Candidates: cands})
	}

	if err := r.fs.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return res, fmt.Errorf("create directory for %s: %w", outPath, err)
	}
	w, err := r.fs.Create(outPath)
	if err != nil {
		return res, fmt.Errorf("create %s: %w", outPath, err)
	}
	n, err := records.WriteFoldingList(w, folds)
	if cerr := w.Close(); err == nil {
		err = cerr
	}
	res.Outputs = n
	res.NoData = n == 0
	return res, err
}
