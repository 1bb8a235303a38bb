package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDisk(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	disk := NewDisk()

	t.Run("stat", func(t *testing.T) {
		r := require.New(t)

		info, err := disk.Stat(filepath.Join(dir, "missing.mp4"))
		r.NoError(err)
		r.False(info.Exists)

		path := filepath.Join(dir, "a.mp4")
		r.NoError(os.WriteFile(path, []byte("hello"), 0o666))

		info, err = disk.Stat(path)
		r.NoError(err)
		r.True(info.Exists)
		r.False(info.IsDir)
		r.EqualValues(5, info.Size)
		r.False(info.ModTime.IsZero())

		info, err = disk.Stat(dir)
		r.NoError(err)
		r.True(info.Exists)
		r.True(info.IsDir)
	})

	t.Run("make and list directory", func(t *testing.T) {
		r := require.New(t)

		sub := filepath.Join(dir, "videos")

		names, err := disk.ListDirectory(sub)
		r.NoError(err)
		r.Empty(names)

		r.NoError(disk.MakeDirectory(sub))
		// Idempotent.
		r.NoError(disk.MakeDirectory(sub))

		r.NoError(os.WriteFile(filepath.Join(sub, "1.mp4"), []byte("1"), 0o666))
		r.NoError(os.WriteFile(filepath.Join(sub, "2.mp4"), []byte("2"), 0o666))

		names, err = disk.ListDirectory(sub)
		r.NoError(err)
		r.ElementsMatch([]string{"1.mp4", "2.mp4"}, names)
	})

	t.Run("delete", func(t *testing.T) {
		r := require.New(t)

		sub := filepath.Join(dir, "videos")

		r.NoError(disk.Delete(filepath.Join(sub, "1.mp4")))
		names, err := disk.ListDirectory(sub)
		r.NoError(err)
		r.Equal([]string{"2.mp4"}, names)

		r.NoError(disk.Delete(sub))
		info, err := disk.Stat(sub)
		r.NoError(err)
		r.False(info.Exists)

		// Deleting a missing path is not an error.
		r.NoError(disk.Delete(sub))
	})
}
