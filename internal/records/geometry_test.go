package records

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spotlight-pulseline/pulsift/internal/fsutil"
	"github.com/spotlight-pulseline/pulsift/internal/sifting"
)

func TestReadBeamGeometry(t *testing.T) {
	in := "# extracted from raw headers\n" +
		"RA (Rad), Dec (Rad), Beam Index, Beam ID\n" +
		"1.5, -0.25, 0, BM0\n" +
		"1.5001, -0.25, 1, BM1\n" +
		"bad, row, 2, BM2\n" +
		"1.5, 0.1, 3\n"
	beams, err := ReadBeamGeometry(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, []sifting.BeamInfo{
		{RA: 1.5, Dec: -0.25, Index: 0, ID: "BM0"},
		{RA: 1.5001, Dec: -0.25, Index: 1, ID: "BM1"},
	}, beams)
}

func TestLoadBeamGeometry_Missing(t *testing.T) {
	_, err := LoadBeamGeometry(fsutil.NewMemoryFileSystem(), "/x/"+GeometryFileName)
	assert.ErrorIs(t, err, sifting.ErrMissingInput)
}
