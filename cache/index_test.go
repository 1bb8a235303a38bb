package cache

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vidcache/vidcache/storage"
	"github.com/vidcache/vidcache/vidcache"
)

func TestIndex(t *testing.T) {
	t.Parallel()

	r := require.New(t)

	dir := filepath.Join(t.TempDir(), "videos")
	index := NewIndex(dir, storage.NewDisk())

	key := vidcache.ResolveKey("https://cdn.example/a/video.mp4")
	r.Equal(filepath.Join(dir, "video.mp4"), index.EntryPath(key))

	// Missing cache dir: no entries, no hits.
	r.ErrorIs(index.Check(key), vidcache.ErrCacheMiss)
	r.False(index.Exists(key))

	entries, err := index.Entries()
	r.NoError(err)
	r.Empty(entries)

	r.NoError(os.MkdirAll(dir, 0o777))
	r.NoError(os.WriteFile(index.EntryPath(key), []byte("video bytes"), 0o666))
	r.NoError(os.MkdirAll(filepath.Join(dir, "subdir"), 0o777))

	r.NoError(index.Check(key))
	r.True(index.Exists(key))

	// Directories are not cache entries.
	entries, err = index.Entries()
	r.NoError(err)
	r.Len(entries, 1)
	r.Equal(index.EntryPath(key), entries[0].Path)
	r.EqualValues(11, entries[0].Size)
	r.False(entries[0].ModTime.IsZero())
}

type brokenStorage struct {
	vidcache.Storage
}

func (brokenStorage) Stat(path string) (vidcache.FileInfo, error) {
	return vidcache.FileInfo{}, errors.New("disk on fire")
}

func (brokenStorage) ListDirectory(path string) ([]string, error) {
	return nil, errors.New("disk on fire")
}

func TestIndex_StorageFaults(t *testing.T) {
	t.Parallel()

	r := require.New(t)

	index := NewIndex(t.TempDir(), brokenStorage{})
	key := vidcache.ResolveKey("https://cdn.example/a/video.mp4")

	// Check propagates the fault, Exists falls back to "not cached".
	err := index.Check(key)
	r.Error(err)
	r.NotErrorIs(err, vidcache.ErrCacheMiss)
	r.False(index.Exists(key))

	_, err = index.Entries()
	r.Error(err)
}
