// Package cache answers which videos are present on disk and keeps the
// total size of the cache directory under the configured limit.
package cache

import (
	"errors"
	"path/filepath"
	"time"

	"github.com/vidcache/vidcache/pkg/metrics"
	"github.com/vidcache/vidcache/pkg/rlog"
	"github.com/vidcache/vidcache/vidcache"
)

// Entry is a single regular file inside the cache directory.
type Entry struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// Index answers whether a video is cached by querying the storage
// gateway. It keeps no in-memory state: the directory on disk is the
// source of truth.
type Index struct {
	dir     string
	storage vidcache.Storage
}

func NewIndex(dir string, storage vidcache.Storage) *Index {
	return &Index{
		dir:     dir,
		storage: storage,
	}
}

// EntryPath returns the path a cached video for this key lives at,
// whether or not it exists yet.
func (i *Index) EntryPath(key vidcache.CacheKey) string {
	return filepath.Join(i.dir, key.Name())
}

// Check returns nil if a valid cache entry exists for the key and
// [vidcache.ErrCacheMiss] if it doesn't. Unlike [Index.Exists] it
// propagates storage faults to the caller.
func (i *Index) Check(key vidcache.CacheKey) error {
	info, err := i.storage.Stat(i.EntryPath(key))
	if err != nil {
		metrics.CacheErrors.Inc()
		return err
	}
	if !info.Exists || info.IsDir {
		metrics.CacheMisses.Inc()
		return vidcache.ErrCacheMiss
	}

	metrics.CacheHits.Inc()
	return nil
}

// Exists is a fail-soft [Index.Check]: any storage fault is logged and
// treated as "not cached", so the caller falls back to the network.
func (i *Index) Exists(key vidcache.CacheKey) bool {
	switch err := i.Check(key); {
	case err == nil:
		return true
	case errors.Is(err, vidcache.ErrCacheMiss):
		return false
	default:
		rlog.Warnf("couldn't check cache entry for %q: %s", key, err)
		return false
	}
}

// Entries returns all regular files in the cache directory. Entries that
// can't be stat-ed are logged and skipped.
func (i *Index) Entries() ([]Entry, error) {
	names, err := i.storage.ListDirectory(i.dir)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(names))
	for _, name := range names {
		path := filepath.Join(i.dir, name)

		info, err := i.storage.Stat(path)
		if err != nil {
			rlog.Warnf("couldn't stat cache entry %q: %s", path, err)
			continue
		}
		if !info.Exists || info.IsDir {
			continue
		}

		entries = append(entries, Entry{
			Path:    path,
			Size:    info.Size,
			ModTime: info.ModTime,
		})
	}
	return entries, nil
}
