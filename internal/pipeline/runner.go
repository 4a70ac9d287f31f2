package pipeline

import (
	"context"
	"time"

	"github.com/spotlight-pulseline/pulsift/internal/config"
	"github.com/spotlight-pulseline/pulsift/internal/fsutil"
	"github.com/spotlight-pulseline/pulsift/internal/ledger"
	"github.com/spotlight-pulseline/pulsift/internal/monitoring"
)

// Stage names as recorded in the ledger.
const (
	StageConsolidate   = "consolidate"
	StageHarmonics     = "harmonics"
	StageBeams         = "beams"
	StagePrepareTrials = "prepare-trials"
	StageFoldingList   = "foldlist"
)

// RunRecorder stores stage invocations. *ledger.Ledger implements it.
type RunRecorder interface {
	RecordRun(ctx context.Context, r ledger.Run) (string, error)
}

// Runner executes stages with one configuration.
type Runner struct {
	fs     fsutil.FileSystem
	cfg    *config.SiftingConfig
	ledger RunRecorder
	now    func() time.Time
}

// Option configures a Runner.
type Option func(*Runner)

// WithLedger records every stage invocation in rec.
func WithLedger(rec RunRecorder) Option {
	return func(r *Runner) { r.ledger = rec }
}

// WithClock replaces time.Now for run timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// NewRunner returns a Runner over fsys. A nil fsys means the OS filesystem.
func NewRunner(fsys fsutil.FileSystem, cfg *config.SiftingConfig, opts ...Option) *Runner {
	if fsys == nil {
		fsys = fsutil.OSFileSystem{}
	}
	if cfg == nil {
		cfg = config.EmptySiftingConfig()
	}
	r := &Runner{fs: fsys, cfg: cfg, now: time.Now}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Result describes the outcome of one stage invocation.
type Result struct {
	RunID      string
	Stage      string
	Name       string
	Inputs     int
	Outputs    int
	NoData     bool
	OutputPath string
}

// record stores a finished invocation. Ledger failures are logged and never
// fail the stage.
func (r *Runner) record(ctx context.Context, res *Result, params any, started time.Time, stageErr error) {
	if r.ledger == nil {
		return
	}
	run := ledger.Run{
		Stage:      res.Stage,
		Name:       res.Name,
		ParamsJSON: ledger.EncodeParams(params),
		Inputs:     res.Inputs,
		Outputs:    res.Outputs,
		NoData:     res.NoData,
		OutputPath: res.OutputPath,
		StartedAt:  started,
		FinishedAt: r.now(),
	}
	if stageErr != nil {
		run.Error = stageErr.Error()
	}
	id, err := r.ledger.RecordRun(context.WithoutCancel(ctx), run)
	if err != nil {
		monitoring.Ops().Warn().Err(err).Str("stage", res.Stage).Str("name", res.Name).Msg("failed to record run")
		return
	}
	res.RunID = id
}
