package records

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spotlight-pulseline/pulsift/internal/fsutil"
	"github.com/spotlight-pulseline/pulsift/internal/sifting"
)

func TestFormatCandidate(t *testing.T) {
	got := FormatCandidate(sifting.Candidate{Period: 0.5, Pdot: 1.25e-15, DM: 50.004, SNR: 12.346})
	assert.Equal(t, "0.5000000000     1.250000e-15     50.00     12.35", got)
}

func TestWriteCandidates(t *testing.T) {
	var buf bytes.Buffer
	cands := []sifting.Candidate{
		{Period: 0.5, Pdot: 0, DM: 50, SNR: 20},
		{Period: 0.25, Pdot: -3e-14, DM: 12.5, SNR: 9.5},
	}
	require.NoError(t, WriteCandidates(&buf, cands))

	want := Header + "\n" +
		"0.5000000000     0.000000e+00     50.00     20.00\n" +
		"0.2500000000     -3.000000e-14     12.50     9.50\n"
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("WriteCandidates mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteCandidates_EmptyWritesSentinel(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCandidates(&buf, nil))
	assert.Equal(t, NoDataSentinel+"\n", buf.String())
}

func TestReadCandidates(t *testing.T) {
	in := Header + "\n" +
		"0.5000000000     1.000000e-15     50.00     20.00\n" +
		"garbage row\n" +
		"\n" +
		"0.2500000000     0.000000e+00     12.50     9.50\n"
	got, err := ReadCandidates(strings.NewReader(in))
	require.NoError(t, err)

	want := []sifting.Candidate{
		{Period: 0.5, Pdot: 1e-15, DM: 50, SNR: 20},
		{Period: 0.25, Pdot: 0, DM: 12.5, SNR: 9.5},
	}
	if diff := cmp.Diff(want, got, cmpopts.EquateApprox(0, 1e-12)); diff != "" {
		t.Errorf("ReadCandidates mismatch (-want +got):\n%s", diff)
	}
}

func TestReadCandidates_NoData(t *testing.T) {
	for name, in := range map[string]string{
		"sentinel":    NoDataSentinel + "\n",
		"empty":       "",
		"header only": Header + "\n",
		"all garbage": Header + "\nnot a row\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ReadCandidates(strings.NewReader(in))
			assert.ErrorIs(t, err, sifting.ErrNoData)
		})
	}
}

func TestSaveAndLoadCandidates(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()
	cands := []sifting.Candidate{{Period: 0.0123456789, Pdot: 2e-12, DM: 101.25, SNR: 33.3}}

	require.NoError(t, SaveCandidates(mfs, "/out/J0_all_sifted_candidates.txt", cands))
	got, err := LoadCandidates(mfs, "/out/J0_all_sifted_candidates.txt")
	require.NoError(t, err)
	if diff := cmp.Diff(cands, got, cmpopts.EquateApprox(1e-9, 0)); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}

	require.NoError(t, SaveCandidates(mfs, "/out/empty.txt", nil))
	_, err = LoadCandidates(mfs, "/out/empty.txt")
	assert.ErrorIs(t, err, sifting.ErrNoData)

	_, err = LoadCandidates(mfs, "/out/none.txt")
	assert.ErrorIs(t, err, sifting.ErrMissingInput)
}
