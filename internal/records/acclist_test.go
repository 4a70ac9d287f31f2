package records

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spotlight-pulseline/pulsift/internal/fsutil"
)

func TestAccListDM(t *testing.T) {
	tests := []struct {
		path    string
		want    float64
		wantErr bool
	}{
		{"/s/acc_list_12.5.dat", 12.5, false},
		{"/s/acc_list_harm_3.dat", 3, false},
		{"/s/acc_list_0.00.dat", 0, false},
		{"/s/acc_list_bogus.dat", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := accListDM(tt.path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func accListFS(t *testing.T) *fsutil.MemoryFileSystem {
	t.Helper()
	mfs := fsutil.NewMemoryFileSystem()
	for path, body := range map[string]string{
		"/search/acc_list_10.dat":      "0 0 100 10.0 1.0 7\n",
		"/search/acc_list_10.5.dat":    "0 0 100 10.0 1.0 8\n",
		"/search/acc_list_11.dat":      "",
		"/search/acc_list_x.dat":       "0 0 100 10.0 1.0 9\n",
		"/search/acc_list_harm_10.dat": "0 0 200 20.0 1.0 9\n",
	} {
		require.NoError(t, mfs.WriteFile(path, []byte(body), 0o644))
	}
	return mfs
}

func TestRenameAccelerationLists(t *testing.T) {
	mfs := accListFS(t)

	res, err := RenameAccelerationLists(mfs, "/search", "/trials", "J_BM1", false)
	require.NoError(t, err)
	assert.Empty(t, res.Note)
	assert.Equal(t, []string{"/trials/J_BM1_DM10.00.dat", "/trials/J_BM1_DM10.50.dat"}, res.Files)

	data, err := mfs.ReadFile("/trials/J_BM1_DM10.50.dat")
	require.NoError(t, err)
	assert.Equal(t, "0 0 100 10.0 1.0 8\n", string(data))

	assert.False(t, mfs.Exists("/search/acc_list_10.dat"), "files are moved, not copied")
	assert.True(t, mfs.Exists("/search/acc_list_11.dat"), "empty files stay")
	assert.True(t, mfs.Exists("/search/acc_list_x.dat"), "unparseable DM stays")
	assert.True(t, mfs.Exists("/search/acc_list_harm_10.dat"))
}

func TestRenameAccelerationLists_HarmonicSum(t *testing.T) {
	mfs := accListFS(t)

	res, err := RenameAccelerationLists(mfs, "/search", "/trials", "J_BM1", true)
	require.NoError(t, err)
	assert.Equal(t, []string{"/trials/J_BM1_DM10.00.dat"}, res.Files)

	data, err := mfs.ReadFile("/trials/J_BM1_DM10.00.dat")
	require.NoError(t, err)
	assert.Equal(t, "0 0 200 20.0 1.0 9\n", string(data))
}

func TestRenameAccelerationLists_Notes(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()

	res, err := RenameAccelerationLists(mfs, "/none", "/out", "J", false)
	require.NoError(t, err)
	assert.Equal(t, "No output files found in the input directory.", res.Note)

	require.NoError(t, mfs.WriteFile("/plain/acc_list_5.dat", []byte("0 0 1 1 1 6\n"), 0o644))
	res, err = RenameAccelerationLists(mfs, "/plain", "/out2", "J", true)
	require.NoError(t, err)
	assert.Equal(t, "Matching files not found in the input directory.", res.Note)
	note, err := mfs.ReadFile("/out2/" + InformationFileName)
	require.NoError(t, err)
	assert.Equal(t, res.Note, string(note))
	assert.True(t, mfs.Exists("/plain/acc_list_5.dat"))
}
