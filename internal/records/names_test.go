package records

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spotlight-pulseline/pulsift/internal/sifting"
)

func TestOutputNames(t *testing.T) {
	name := BaseName("/data/scan/J0437_BM12.fil")
	assert.Equal(t, "J0437_BM12", name)

	assert.Equal(t, "J0437_BM12_all_sifted_candidates.txt", SiftedName(name))
	assert.Equal(t, "J0437_BM12_all_sifted_harmonic_removed_candidates.txt", HarmonicName(name))
	assert.Equal(t, "J0437_BM12_all_sifted_beam_sorted_candidates.txt", FinalName(name, false, true))
	assert.Equal(t, "J0437_BM12_all_sifted_harmonic_removed_beam_sorted_candidates.txt", FinalName(name, true, true))
	assert.Equal(t, HarmonicName(name), FinalName(name, true, false))
}

func TestExtractBeamID(t *testing.T) {
	id, ok := ExtractBeamID("scan_2024_BM117_all_sifted_candidates.txt")
	assert.True(t, ok)
	assert.Equal(t, "BM117", id)

	_, ok = ExtractBeamID("scan_2024_all_sifted_candidates.txt")
	assert.False(t, ok)
}

func TestWriteFoldingList(t *testing.T) {
	var buf bytes.Buffer
	n, err := WriteFoldingList(&buf, []FoldingSource{
		{FilPath: "/d/a_BM1.fil", Candidates: []sifting.Candidate{
			{Period: 0.5, Pdot: 0, DM: 50, SNR: 20},
			{Period: 0.25, Pdot: 1e-15, DM: 10, SNR: 9},
		}},
		{FilPath: "/d/a_BM2.fil"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, FoldingHeader+"\n"+
		"0.2500000000 1.000000e-15 10.00 /d/a_BM1.fil\n"+
		"0.5000000000 0.000000e+00 50.00 /d/a_BM1.fil\n", buf.String())
}
