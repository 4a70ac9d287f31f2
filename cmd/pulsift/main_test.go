package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spotlight-pulseline/pulsift/internal/fsutil"
	"github.com/spotlight-pulseline/pulsift/internal/monitoring"
	"github.com/spotlight-pulseline/pulsift/internal/records"
	"github.com/spotlight-pulseline/pulsift/internal/testutil"
)

const smallGrid = `start_DM: 0
end_DM: 5
dm_step: 1
low_period: 1
high_period: 10000
period_tol_init_sort: 1
period_tol_harm: 0.1
max_harm: 4
DM_filtering_cut_10: 2
DM_filtering_cut_1000: 2
SNR_cut: 5
harmonic_opt_flag: 0
search_type: 1
`

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	t.Cleanup(func() { monitoring.SetLogWriters(monitoring.LogWriters{}) })
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func writeFixture(t *testing.T) (dir string) {
	t.Helper()
	dir = t.TempDir()
	testutil.WriteFiles(t, fsutil.OSFileSystem{}, map[string]string{
		filepath.Join(dir, "sift.yaml"):                   smallGrid,
		filepath.Join(dir, "in", "J_BM1_DM1.00.dat"):      testutil.AccelerationRow(1000, 10, 0, 8) + "\n",
		filepath.Join(dir, "in", "J_BM1_DM2.00.dat"):      testutil.AccelerationRow(1000.2, 10.002, 0, 12) + "\n",
		filepath.Join(dir, "in", "J_BM1_DM3.00.dat"):      testutil.AccelerationRow(999.9, 9.999, 0, 9) + "\n",
		filepath.Join(dir, "params", "PULSELINE_BM1.txt"): "fil_file = /data/J_BM1.fil\n",
	})
	return dir
}

func TestRun_Usage(t *testing.T) {
	code, _, stderr := runCLI(t)
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "Usage: pulsift")

	code, stdout, _ := runCLI(t, "help")
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, "prepare-trials")

	code, _, stderr = runCLI(t, "bogus")
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "Unknown command: bogus")
}

func TestRun_Version(t *testing.T) {
	code, stdout, _ := runCLI(t, "version")
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, "pulsift dev")
}

func TestRun_ConsolidateMissingConfig(t *testing.T) {
	dir := t.TempDir()
	code, _, stderr := runCLI(t, "consolidate", "-in", dir, "-out", dir, "J_BM1")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "invalid sifting configuration")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "nothing written on a configuration error")
}

func TestRun_ConsolidateNeedsNames(t *testing.T) {
	dir := writeFixture(t)
	code, _, stderr := runCLI(t, "consolidate", "-config", filepath.Join(dir, "sift.yaml"))
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "no beam names given")

	code, _, _ = runCLI(t, "consolidate", "-no-such-flag")
	assert.Equal(t, 2, code)
}

func TestRun_ConsolidateAndListRuns(t *testing.T) {
	dir := writeFixture(t)
	db := filepath.Join(dir, "runs.db")
	out := filepath.Join(dir, "out")

	code, stdout, stderr := runCLI(t, "consolidate",
		"-config", filepath.Join(dir, "sift.yaml"),
		"-ledger", db,
		"-in", filepath.Join(dir, "in"),
		"-out", out,
		"-names-from", filepath.Join(dir, "params", "PULSELINE*.txt"),
		"-jobs", "2",
	)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "J_BM1")

	lines := testutil.ReadLines(t, fsutil.OSFileSystem{}, filepath.Join(out, records.SiftedName("J_BM1")))
	require.Len(t, lines, 2)
	assert.Equal(t, records.Header, lines[0])

	code, stdout, stderr = runCLI(t, "runs", "-ledger", db, "-stage", "consolidate")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "consolidate")
	assert.Contains(t, stdout, "J_BM1")
}

func TestRun_ParamsOverride(t *testing.T) {
	dir := writeFixture(t)
	over := filepath.Join(dir, "override.txt")
	require.NoError(t, os.WriteFile(over, []byte("dm_step = -1\n"), 0o644))

	code, _, stderr := runCLI(t, "consolidate",
		"-config", filepath.Join(dir, "sift.yaml"),
		"-params", over,
		"-in", filepath.Join(dir, "in"),
		"-out", dir,
		"J_BM1",
	)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "dm_step must be positive")
}

func TestRun_PrepareTrialsRequiresName(t *testing.T) {
	code, _, stderr := runCLI(t, "prepare-trials", "-dir", t.TempDir())
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "-name is required")
}

func TestRun_PrepareTrialsMovesAccelerationLists(t *testing.T) {
	dir := t.TempDir()
	search := filepath.Join(dir, "search")
	testutil.WriteFiles(t, fsutil.OSFileSystem{}, map[string]string{
		filepath.Join(search, "acc_list_2.5.dat"): testutil.AccelerationRow(1000, 10, 0, 8) + "\n",
	})

	code, stdout, stderr := runCLI(t, "prepare-trials", "-dir", search, "-out", filepath.Join(dir, "trials"), "-name", "J_BM1")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "prepare-trials")

	_, err := os.Stat(filepath.Join(dir, "trials", "J_BM1_DM2.50.dat"))
	assert.NoError(t, err)
}
