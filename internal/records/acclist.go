package records

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spotlight-pulseline/pulsift/internal/fsutil"
	"github.com/spotlight-pulseline/pulsift/internal/monitoring"
)

const (
	accListPrefix  = "acc_list_"
	harmonicPrefix = "harm_"
)

// accListDM extracts the DM of an acc_list_<dm>.dat or
// acc_list_harm_<dm>.dat file name.
func accListDM(path string) (float64, error) {
	base := filepath.Base(path)
	_, rest, ok := strings.Cut(base, accListPrefix)
	if !ok {
		return 0, fmt.Errorf("%s: no %s prefix", base, accListPrefix)
	}
	rest = strings.TrimSuffix(rest, ".dat")
	rest = strings.Replace(rest, harmonicPrefix, "", 1)
	dm, err := strconv.ParseFloat(rest, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: dm %q: %w", base, rest, err)
	}
	return dm, nil
}

// RenameAccelerationLists moves the acceleration-search outputs in dir to
// per-DM trial files for name under outDir. harmonicSum selects the
// harmonic-summed acc_list_harm_* files instead of the plain ones. Empty
// files are ignored; when nothing matches an information.txt note is left in
// outDir instead. Files whose DM cannot be parsed are logged and left alone.
func RenameAccelerationLists(fsys fsutil.FileSystem, dir, outDir, name string, harmonicSum bool) (SplitResult, error) {
	if err := fsys.MkdirAll(outDir, 0o755); err != nil {
		return SplitResult{}, fmt.Errorf("create %s: %w", outDir, err)
	}
	note := func(msg string) (SplitResult, error) {
		monitoring.Ops().Warn().Str("dir", dir).Msg(msg)
		err := fsys.WriteFile(filepath.Join(outDir, InformationFileName), []byte(msg), 0o644)
		return SplitResult{Note: msg}, err
	}

	all, err := fsys.Glob(filepath.Join(dir, accListPrefix+"*dat"))
	if err != nil {
		return SplitResult{}, fmt.Errorf("glob %s: %w", dir, err)
	}
	if len(all) == 0 {
		return note("No output files found in the input directory.")
	}

	var files []string
	for _, f := range all {
		if strings.Contains(filepath.Base(f), harmonicPrefix) != harmonicSum {
			continue
		}
		info, err := fsys.Stat(f)
		if err != nil {
			return SplitResult{}, fmt.Errorf("stat %s: %w", f, err)
		}
		if info.Size() > 0 {
			files = append(files, f)
		}
	}
	if len(files) == 0 {
		return note("Matching files not found in the input directory.")
	}

	var res SplitResult
	for _, f := range files {
		dm, err := accListDM(f)
		if err != nil {
			monitoring.Ops().Warn().Err(err).Msg("acceleration list skipped")
			continue
		}
		path := filepath.Join(outDir, TrialFileName(name, dm))
		if err := fsys.Rename(f, path); err != nil {
			return res, fmt.Errorf("move %s: %w", f, err)
		}
		res.Files = append(res.Files, path)
	}
	monitoring.Ops().Info().Int("files", len(res.Files)).Bool("harmonic_sum", harmonicSum).Msg("renamed acceleration lists")
	return res, nil
}
