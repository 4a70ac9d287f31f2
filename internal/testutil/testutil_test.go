package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spotlight-pulseline/pulsift/internal/fsutil"
)

func TestSmallGridConfig_IsComplete(t *testing.T) {
	cfg := SmallGridConfig()
	require.NoError(t, cfg.Validate())

	_, err := cfg.ConsolidationParams()
	assert.NoError(t, err)
	_, err = cfg.HarmonicParams()
	assert.NoError(t, err)
	_, err = cfg.BeamParams()
	assert.NoError(t, err)
}

func TestSmallGridConfig_Independent(t *testing.T) {
	a, b := SmallGridConfig(), SmallGridConfig()
	*a.DMStep = 9
	assert.Equal(t, 1.0, *b.DMStep)
}

func TestAccelerationRow(t *testing.T) {
	assert.Equal(t, "0 2.5 1000 10 1.0 12", AccelerationRow(1000, 10, 2.5, 12))
}

func TestWriteFilesAndReadLines(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()
	WriteFiles(t, mfs, map[string]string{
		"/in/a.txt": "one\n\ntwo\n",
		"/in/b.txt": "",
	})
	assert.True(t, mfs.Exists("/in"))
	assert.Equal(t, []string{"one", "two"}, ReadLines(t, mfs, "/in/a.txt"))
	assert.Nil(t, ReadLines(t, mfs, "/in/b.txt"))
}
