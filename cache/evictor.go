package cache

import (
	"slices"

	"github.com/vidcache/vidcache/pkg/metrics"
	"github.com/vidcache/vidcache/pkg/misc"
	"github.com/vidcache/vidcache/pkg/rlog"
	"github.com/vidcache/vidcache/vidcache"
)

// lowWaterFraction is the usage level eviction reduces the cache to.
// Stopping below the limit avoids triggering eviction again on the very
// next download.
const lowWaterFraction = 0.8

// Evictor keeps the total size of the cache directory under a limit by
// removing the least recently modified files first. It runs as a
// pre-flight before every download, not on a timer, so eviction pressure
// is proportional to download frequency.
type Evictor struct {
	index            *Index
	storage          vidcache.Storage
	maxTotalFileSize int64 // in bytes
}

func NewEvictor(index *Index, storage vidcache.Storage, maxTotalFileSize int64) *Evictor {
	return &Evictor{
		index:            index,
		storage:          storage,
		maxTotalFileSize: maxTotalFileSize,
	}
}

// EnforceLimit removes the oldest files until the total size of the cache
// is at most 80% of the limit. Faults are logged, never propagated:
// a stuck file must not block a download.
func (e *Evictor) EnforceLimit() {
	entries, err := e.index.Entries()
	if err != nil {
		rlog.Warnf("couldn't list cache entries for eviction: %s", err)
		return
	}

	entriesToRemove := getEntriesToRemove(entries, e.maxTotalFileSize)
	if len(entriesToRemove) == 0 {
		rlog.Debug("no cache entries to evict")
		return
	}

	removed, freedSpace, errs := e.removeEntries(entriesToRemove)
	for _, err := range errs {
		rlog.Error(err)
	}
	if removed > 0 {
		rlog.Infof(
			"%d files have been evicted from cache for a total of %s freed, got %d errors",
			removed, misc.FormatFileSize(freedSpace), len(errs),
		)
	}
}

// getEntriesToRemove returns the entries to delete, oldest first, such
// that the size of the remaining ones is at most lowWaterFraction of the
// limit. It returns nothing while the total size stays under the limit.
func getEntriesToRemove(entries []Entry, maxTotalFileSize int64) []Entry {
	var totalSize int64
	for _, entry := range entries {
		totalSize += entry.Size
	}
	if totalSize <= maxTotalFileSize {
		return nil
	}

	slices.SortFunc(entries, func(a, b Entry) int {
		return a.ModTime.Compare(b.ModTime)
	})

	lowWater := int64(lowWaterFraction * float64(maxTotalFileSize))

	var index int
	for i, entry := range entries {
		totalSize -= entry.Size
		if totalSize <= lowWater {
			index = i + 1
			break
		}
	}
	if index == 0 {
		// Impossible, just in case, remove all entries.
		index = len(entries)
	}

	return entries[:index]
}

func (e *Evictor) removeEntries(entries []Entry) (removed int, freedSpace int64, errs []error) {
	for _, entry := range entries {
		err := e.storage.Delete(entry.Path)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		removed++
		freedSpace += entry.Size

		metrics.CacheEvictedFiles.Inc()
		metrics.CacheEvictedBytes.Add(float64(entry.Size))
	}
	return removed, freedSpace, errs
}
