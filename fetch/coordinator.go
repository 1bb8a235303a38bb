// Package fetch downloads videos into the cache directory, deduplicating
// concurrent requests for the same key.
package fetch

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/vidcache/vidcache/cache"
	"github.com/vidcache/vidcache/pkg/metrics"
	"github.com/vidcache/vidcache/pkg/rlog"
	"github.com/vidcache/vidcache/vidcache"
)

// Coordinator performs downloads with a single-flight guarantee: at most
// one transfer per cache key is in flight, additional requests for the
// same key attach to it and observe its outcome. Different keys download
// concurrently without restriction.
type Coordinator struct {
	dir        string
	index      *cache.Index
	evictor    *cache.Evictor
	storage    vidcache.Storage
	downloader vidcache.Downloader

	group singleflight.Group

	mu         sync.Mutex
	inProgress map[string]*progressEntry
}

// progressEntry counts the fetches attached to a progress handle. The
// handle stays registered until the last of them returns, so a new fetch
// arriving while an old one unwinds always finds the live handle.
type progressEntry struct {
	progress *Progress
	refs     int
}

func NewCoordinator(
	dir string, index *cache.Index, evictor *cache.Evictor,
	storage vidcache.Storage, downloader vidcache.Downloader,
) *Coordinator {

	return &Coordinator{
		dir:        dir,
		index:      index,
		evictor:    evictor,
		storage:    storage,
		downloader: downloader,
		//
		inProgress: make(map[string]*progressEntry),
	}
}

// Fetch downloads the video behind identifier into the cache entry for
// key and returns the local path. If the entry already exists, it is
// returned without any network access. onProgress, optional, receives
// percentage updates in [0, 100].
//
// All faults are reported as a [*vidcache.DownloadError]. A failed
// download never produces a valid cache entry: partial bytes stay in
// a separate file that [cache.Index] doesn't consider cached.
func (c *Coordinator) Fetch(
	ctx context.Context, key vidcache.CacheKey, identifier string, onProgress func(percent int),
) (string, error) {

	progress := c.trackProgress(key, onProgress)
	defer c.releaseProgress(key)

	// Once started, a transfer runs to completion or failure: a caller
	// going away must not abort a download other callers are attached to.
	ctx = context.WithoutCancel(ctx)

	res, err, _ := c.group.Do(key.Name(), func() (any, error) {
		return c.download(ctx, key, identifier, progress)
	})
	if err != nil {
		metrics.DownloadErrors.Inc()

		var downloadErr *vidcache.DownloadError
		if !errors.As(err, &downloadErr) {
			err = vidcache.NewDownloadError(err, "couldn't cache %q", identifier)
		}
		return "", err
	}
	return res.(string), nil
}

// InFlightProgress returns the progress handle of an in-flight fetch for
// key, or nil if there is none.
func (c *Coordinator) InFlightProgress(key vidcache.CacheKey) *Progress {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.inProgress[key.Name()]
	if !ok {
		return nil
	}
	return entry.progress
}

func (c *Coordinator) download(
	ctx context.Context, key vidcache.CacheKey, identifier string, progress *Progress,
) (string, error) {

	if err := c.storage.MakeDirectory(c.dir); err != nil {
		return "", vidcache.NewDownloadError(err, "couldn't create cache dir")
	}

	c.evictor.EnforceLimit()

	// Re-check the index: the caller may have checked before this fetch
	// started, and another fetch can have completed since.
	destPath := c.index.EntryPath(key)
	if c.index.Exists(key) {
		progress.set(100)
		return destPath, nil
	}

	metrics.DownloadsInFlight.Inc()
	defer metrics.DownloadsInFlight.Dec()

	now := time.Now()

	path, err := c.downloader.DownloadResumable(ctx, identifier, destPath, func(written, expected int64) {
		progress.set(percentOf(written, expected))
	})
	if err != nil {
		return "", err
	}

	dur := time.Since(now)
	metrics.DownloadDuration.Observe(dur.Seconds())

	if info, err := c.storage.Stat(path); err == nil && info.Exists {
		metrics.DownloadedFileSizes.Observe(float64(info.Size))
	}

	rlog.Debugf("%q was cached as %q in %s", identifier, path, dur)

	progress.set(100)
	return path, nil
}

// trackProgress returns the progress handle for key, creating one if
// there is no fetch attached yet, and subscribes onProgress to it. Every
// call must be paired with [Coordinator.releaseProgress].
func (c *Coordinator) trackProgress(key vidcache.CacheKey, onProgress func(percent int)) *Progress {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.inProgress[key.Name()]
	if !ok {
		entry = &progressEntry{progress: newProgress()}
		c.inProgress[key.Name()] = entry
	}
	entry.refs++
	entry.progress.subscribe(onProgress)
	return entry.progress
}

func (c *Coordinator) releaseProgress(key vidcache.CacheKey) {
	c.mu.Lock()
	defer c.mu.Unlock()

	name := key.Name()
	entry, ok := c.inProgress[name]
	if !ok {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(c.inProgress, name)
	}
}

// percentOf converts byte progress to a percentage in [0, 100]. An
// unknown total size is reported as 0.
func percentOf(written, expected int64) int {
	if expected <= 0 {
		return 0
	}
	percent := int(math.Round(float64(written) / float64(expected) * 100))
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	return percent
}
