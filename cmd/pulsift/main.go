package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spotlight-pulseline/pulsift/internal/config"
	"github.com/spotlight-pulseline/pulsift/internal/ledger"
	"github.com/spotlight-pulseline/pulsift/internal/monitoring"
	"github.com/spotlight-pulseline/pulsift/internal/pipeline"
	"github.com/spotlight-pulseline/pulsift/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

const usage = `pulsift - pulsar candidate sifting

Usage: pulsift <command> [options] [names...]

Commands:
  consolidate    Sift per-DM-trial detections of each beam into candidates
                 (and remove harmonics when harmonic_opt_flag = 1)
  harmonics      Remove harmonically related candidates of each beam
  beams          Merge per-beam candidate lists of one observation
  prepare-trials Turn raw search output into per-DM trial files (split the
                 periodicity dump, or move the acceleration acc_list files)
  foldlist       Collect final candidate lists into one folding list
  runs           List recorded stage runs
  version        Show version
  help           Show this help message

Common Flags:
  -config <file>      Sifting parameters (.json, .yaml, or key = value .txt)
  -params <file>      key = value overrides applied on top of -config
  -ledger <file>      SQLite run ledger to record invocations in
  -log-json           Log JSON lines instead of console output
  -v                  Include diagnostic and trace logs

Names are filterbank base names such as J0437_BM12. Instead of listing them,
-names-from reads every per-beam parameter file matching a glob and takes
the name from its fil_file key.

Examples:
  pulsift consolidate -config sift.yaml -in trials/ -out sifted/ -jobs 8 J0437_BM1 J0437_BM2
  pulsift beams -config sift.yaml -dir sifted/ -out sifted/ -names-from 'params/PULSELINE*.txt'
  pulsift runs -ledger runs.db -stage beams`

// common holds the flags every stage command accepts.
type common struct {
	configPath string
	paramsPath string
	ledgerPath string
	namesFrom  string
	logJSON    bool
	verbose    bool
}

func (c *common) register(fs *flag.FlagSet) {
	fs.StringVar(&c.configPath, "config", "", "sifting parameter file")
	fs.StringVar(&c.paramsPath, "params", "", "key = value parameter overrides")
	fs.StringVar(&c.ledgerPath, "ledger", "", "SQLite run ledger path")
	fs.StringVar(&c.namesFrom, "names-from", "", "glob of per-beam parameter files naming the beams")
	fs.BoolVar(&c.logJSON, "log-json", false, "log JSON lines")
	fs.BoolVar(&c.verbose, "v", false, "verbose logging")
}

// loadConfig reads -config and applies -params on top.
func (c *common) loadConfig() (*config.SiftingConfig, error) {
	cfg := config.EmptySiftingConfig()
	if c.configPath != "" {
		loaded, err := config.LoadSiftingConfig(c.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if c.paramsPath != "" {
		over, err := config.LoadSiftingConfig(c.paramsPath)
		if err != nil {
			return nil, err
		}
		cfg = cfg.Merge(over)
	}
	return cfg, cfg.Validate()
}

// setup configures logging, loads parameters and opens the ledger. The
// returned cleanup closes the ledger.
func (c *common) setup(stderr io.Writer) (*pipeline.Runner, func(), error) {
	monitoring.SetLogWriters(monitoring.ConsoleWriters(stderr, c.verbose, c.logJSON))

	cfg, err := c.loadConfig()
	if err != nil {
		return nil, nil, err
	}
	var opts []pipeline.Option
	cleanup := func() {}
	if c.ledgerPath != "" {
		l, err := ledger.Open(c.ledgerPath)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, pipeline.WithLedger(l))
		cleanup = func() {
			if err := l.Close(); err != nil {
				monitoring.Ops().Warn().Err(err).Msg("closing ledger")
			}
		}
	}
	return pipeline.NewRunner(nil, cfg, opts...), cleanup, nil
}

// names resolves the beam names from positional arguments and -names-from.
func (c *common) names(r *pipeline.Runner, args []string) ([]pipeline.FoldSource, error) {
	var sources []pipeline.FoldSource
	for _, a := range args {
		sources = append(sources, pipeline.FoldSource{Name: a})
	}
	if c.namesFrom != "" {
		found, err := r.DiscoverSources(c.namesFrom)
		if err != nil {
			return nil, err
		}
		sources = append(sources, found...)
	}
	if len(sources) == 0 {
		return nil, usageError("no beam names given")
	}
	return sources, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		fmt.Fprintln(stderr, usage)
		return 2
	}

	command, rest := args[0], args[1:]
	var err error
	switch command {
	case "consolidate":
		err = handleConsolidate(ctx, rest, stdout, stderr)
	case "harmonics":
		err = handleHarmonics(ctx, rest, stdout, stderr)
	case "beams":
		err = handleBeams(ctx, rest, stdout, stderr)
	case "prepare-trials":
		err = handlePrepareTrials(ctx, rest, stdout, stderr)
	case "foldlist":
		err = handleFoldingList(ctx, rest, stdout, stderr)
	case "runs":
		err = handleRuns(ctx, rest, stdout, stderr)
	case "version":
		fmt.Fprintln(stdout, version.String())
	case "help", "-h", "--help":
		fmt.Fprintln(stdout, usage)
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n\n%s\n", command, usage)
		return 2
	}

	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	var uerr usageError
	if errors.As(err, &uerr) {
		fmt.Fprintf(stderr, "pulsift %s: %v\n", command, err)
		return 2
	}
	if err != nil {
		fmt.Fprintf(stderr, "pulsift %s: %v\n", command, err)
		return 1
	}
	return 0
}

// usageError reports a command line a command cannot act on.
type usageError string

func (e usageError) Error() string { return string(e) }

// parseFlags parses args into fs, reporting bad flags as usage errors.
func parseFlags(fs *flag.FlagSet, args []string) error {
	err := fs.Parse(args)
	if err == nil || errors.Is(err, flag.ErrHelp) {
		return err
	}
	return usageError(err.Error())
}

func newFlagSet(name string, stderr io.Writer) (*flag.FlagSet, *common) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	c := &common{}
	c.register(fs)
	return fs, c
}

func printResults(w io.Writer, results []pipeline.Result) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STAGE\tNAME\tIN\tOUT\tNO DATA\tOUTPUT")
	for _, r := range results {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%t\t%s\n", r.Stage, r.Name, r.Inputs, r.Outputs, r.NoData, r.OutputPath)
	}
	tw.Flush()
}

func handleConsolidate(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs, c := newFlagSet("consolidate", stderr)
	in := fs.String("in", ".", "directory of per-DM-trial files")
	out := fs.String("out", ".", "output directory")
	jobs := fs.Int("jobs", 1, "beams processed concurrently")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	r, cleanup, err := c.setup(stderr)
	if err != nil {
		return err
	}
	defer cleanup()

	sources, err := c.names(r, fs.Args())
	if err != nil {
		return err
	}
	results, err := r.ProcessAll(ctx, *in, *out, pipeline.Names(sources), *jobs)
	printResults(stdout, results)
	return err
}

func handleHarmonics(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs, c := newFlagSet("harmonics", stderr)
	dir := fs.String("dir", ".", "directory of sifted candidate lists")
	out := fs.String("out", "", "output directory (default: -dir)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if *out == "" {
		*out = *dir
	}
	r, cleanup, err := c.setup(stderr)
	if err != nil {
		return err
	}
	defer cleanup()

	sources, err := c.names(r, fs.Args())
	if err != nil {
		return err
	}
	var (
		results []pipeline.Result
		errs    []error
	)
	for _, s := range sources {
		if err := ctx.Err(); err != nil {
			return err
		}
		res, err := r.Harmonics(ctx, *dir, *out, s.Name)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name, err))
			continue
		}
		results = append(results, res)
	}
	printResults(stdout, results)
	return errors.Join(errs...)
}

func handleBeams(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs, c := newFlagSet("beams", stderr)
	dir := fs.String("dir", ".", "directory of per-beam candidate lists")
	out := fs.String("out", "", "output directory (default: -dir)")
	geometry := fs.String("geometry", "", "beam pointing table (default: <dir>/Extracted_RA_Dec_beam_index.txt)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if *out == "" {
		*out = *dir
	}
	r, cleanup, err := c.setup(stderr)
	if err != nil {
		return err
	}
	defer cleanup()

	sources, err := c.names(r, fs.Args())
	if err != nil {
		return err
	}
	res, err := r.Beams(ctx, pipeline.BeamsRequest{
		Dir:          *dir,
		OutDir:       *out,
		GeometryPath: *geometry,
		Names:        pipeline.Names(sources),
	})
	printResults(stdout, res.PerBeam)
	return err
}

func handlePrepareTrials(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs, c := newFlagSet("prepare-trials", stderr)
	dir := fs.String("dir", ".", "directory holding global_periods.dat or acc_list_*.dat")
	out := fs.String("out", ".", "directory for the per-DM trial files")
	name := fs.String("name", "", "filterbank base name of the trial files (required)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if *name == "" {
		return usageError("-name is required")
	}
	r, cleanup, err := c.setup(stderr)
	if err != nil {
		return err
	}
	defer cleanup()

	res, err := r.PrepareTrials(ctx, *dir, *out, *name)
	printResults(stdout, []pipeline.Result{res})
	return err
}

func handleFoldingList(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs, c := newFlagSet("foldlist", stderr)
	dir := fs.String("dir", ".", "directory of final candidate lists")
	out := fs.String("out", "folding_candidates.txt", "folding list to write")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	r, cleanup, err := c.setup(stderr)
	if err != nil {
		return err
	}
	defer cleanup()

	sources, err := c.names(r, fs.Args())
	if err != nil {
		return err
	}
	res, err := r.FoldingList(ctx, *dir, *out, sources)
	printResults(stdout, []pipeline.Result{res})
	return err
}

func handleRuns(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	fs.SetOutput(stderr)
	path := fs.String("ledger", "pulsift-runs.db", "SQLite run ledger path")
	stage := fs.String("stage", "", "only list runs of this stage")
	limit := fs.Int("limit", 20, "maximum number of runs")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	l, err := ledger.Open(*path)
	if err != nil {
		return err
	}
	defer l.Close()

	runs, err := l.ListRuns(ctx, *stage, *limit)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tSTAGE\tNAME\tIN\tOUT\tNO DATA\tTOOK\tERROR")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%t\t%s\t%s\n",
			r.StartedAt.Local().Format(time.DateTime), r.Stage, r.Name, r.Inputs, r.Outputs, r.NoData,
			r.Duration().Round(time.Millisecond), r.Error)
	}
	return tw.Flush()
}
