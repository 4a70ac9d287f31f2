package pipeline

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/spotlight-pulseline/pulsift/internal/monitoring"
)

// ProcessAll runs Process for every name with at most jobs invocations in
// flight. A failing beam does not stop its siblings; the failures are joined
// into the returned error. Configuration errors are reported once, before
// any file is touched.
func (r *Runner) ProcessAll(ctx context.Context, inDir, outDir string, names []string, jobs int) ([]Result, error) {
	if _, err := r.cfg.ConsolidationParams(); err != nil {
		return nil, err
	}
	if r.cfg.GetHarmonicOptFlag() {
		if _, err := r.cfg.HarmonicParams(); err != nil {
			return nil, err
		}
	}
	if jobs < 1 {
		jobs = 1
	}

	perName := make([][]Result, len(names))
	errs := make([]error, len(names))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, name := range names {
		g.Go(func() error {
			// Cancellation is honoured between invocations only.
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := r.Process(gctx, inDir, outDir, name)
			perName[i] = res
			if err != nil {
				monitoring.Ops().Error().Err(err).Str("name", name).Msg("beam failed")
				errs[i] = fmt.Errorf("%s: %w", name, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return flatten(perName), err
	}
	return flatten(perName), errors.Join(errs...)
}

func flatten(perName [][]Result) []Result {
	var out []Result
	for _, rs := range perName {
		out = append(out, rs...)
	}
	return out
}
