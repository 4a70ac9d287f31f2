package fsutil

import (
	"io"
	"io/fs"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOSFileSystem_RoundTrip(t *testing.T) {
	fsys := OSFileSystem{}
	dir := t.TempDir()
	name := filepath.Join(dir, "out", "beam_sorted_candidates.txt")

	require.NoError(t, WriteFileAtomic(fsys, name, []byte("Period(sec)\n"), 0o644))
	assert.True(t, fsys.Exists(name))
	assert.False(t, fsys.Exists(name+".tmp"))

	data, err := fsys.ReadFile(name)
	require.NoError(t, err)
	assert.Equal(t, "Period(sec)\n", string(data))

	matches, err := fsys.Glob(filepath.Join(dir, "out", "*.txt"))
	require.NoError(t, err)
	assert.Equal(t, []string{name}, matches)
}

func TestMemoryFileSystem_WriteAndRead(t *testing.T) {
	mfs := NewMemoryFileSystem()
	require.NoError(t, mfs.WriteFile("/data/a.txt", []byte("hello"), 0o644))

	data, err := mfs.ReadFile("/data/./a.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	// Returned slices are copies.
	data[0] = 'j'
	again, _ := mfs.ReadFile("/data/a.txt")
	assert.Equal(t, "hello", string(again))

	_, err = mfs.ReadFile("/data/missing.txt")
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestMemoryFileSystem_CreateAndOpen(t *testing.T) {
	mfs := NewMemoryFileSystem()

	w, err := mfs.Create("/created.txt")
	require.NoError(t, err)
	_, err = io.WriteString(w, "created content")
	require.NoError(t, err)
	require.NoError(t, w.Close())

	f, err := mfs.Open("/created.txt")
	require.NoError(t, err)
	defer f.Close()

	info, err := f.Stat()
	require.NoError(t, err)
	assert.EqualValues(t, len("created content"), info.Size())

	body, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "created content", string(body))
}

func TestMemoryFileSystem_DirsAndStat(t *testing.T) {
	mfs := NewMemoryFileSystem()
	require.NoError(t, mfs.MkdirAll("/a/b/c", 0o755))

	for _, p := range []string{"/a", "/a/b", "/a/b/c"} {
		assert.True(t, mfs.Exists(p), p)
		info, err := mfs.Stat(p)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
	assert.False(t, mfs.Exists("/a/x"))

	require.NoError(t, mfs.WriteFile("/a/file", []byte("xyz"), 0o644))
	info, err := mfs.Stat("/a/file")
	require.NoError(t, err)
	assert.False(t, info.IsDir())
	assert.EqualValues(t, 3, info.Size())
}

func TestMemoryFileSystem_RenameRemove(t *testing.T) {
	mfs := NewMemoryFileSystem()
	require.NoError(t, mfs.WriteFile("/x.tmp", []byte("1"), 0o644))
	require.NoError(t, mfs.Rename("/x.tmp", "/x"))
	assert.False(t, mfs.Exists("/x.tmp"))
	assert.True(t, mfs.Exists("/x"))

	assert.Error(t, mfs.Rename("/nope", "/y"))
	require.NoError(t, mfs.Remove("/x"))
	assert.Error(t, mfs.Remove("/x"))
}

func TestMemoryFileSystem_GlobAndFiles(t *testing.T) {
	mfs := NewMemoryFileSystem()
	for _, n := range []string{"/run/J1_DM1.00.dat", "/run/J1_DM0.50.dat", "/run/notes.txt", "/other/J1_DM2.00.dat"} {
		require.NoError(t, mfs.WriteFile(n, nil, 0o644))
	}

	got, err := mfs.Glob("/run/*.dat")
	require.NoError(t, err)
	assert.Equal(t, []string{"/run/J1_DM0.50.dat", "/run/J1_DM1.00.dat"}, got)

	_, err = mfs.Glob("[")
	assert.Error(t, err)

	assert.Equal(t, []string{"/run/J1_DM0.50.dat", "/run/J1_DM1.00.dat", "/run/notes.txt"}, mfs.Files("/run"))
}

func TestWriteFileAtomic_Memory(t *testing.T) {
	mfs := NewMemoryFileSystem()
	require.NoError(t, WriteFileAtomic(mfs, "/out/list.txt", []byte("a"), 0o644))
	assert.True(t, mfs.Exists("/out"))
	assert.Equal(t, []string{"/out/list.txt"}, mfs.Files("/out"))
}

func TestMemoryFileSystem_FilesAtRoot(t *testing.T) {
	mfs := NewMemoryFileSystem()
	assert.Empty(t, mfs.Files("/"))
	require.NoError(t, mfs.WriteFile("/a/b.txt", nil, 0o644))
	assert.Equal(t, []string{"/a/b.txt"}, mfs.Files("/"))
}
