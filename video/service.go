// Package video decides which path a player should use for a remote
// video: the local cache entry when one exists, the remote url otherwise.
package video

import (
	"context"
	"fmt"

	"github.com/vidcache/vidcache/cache"
	"github.com/vidcache/vidcache/fetch"
	"github.com/vidcache/vidcache/pkg/rlog"
	"github.com/vidcache/vidcache/vidcache"
)

// Service owns the cache directory and the fetch machinery shared by all
// sessions.
type Service struct {
	cfg vidcache.Config

	index       *cache.Index
	coordinator *fetch.Coordinator
	storage     vidcache.Storage
}

func NewService(cfg vidcache.Config, storage vidcache.Storage, downloader vidcache.Downloader) *Service {
	dir := cfg.CacheDir()

	index := cache.NewIndex(dir, storage)
	evictor := cache.NewEvictor(index, storage, cfg.MaxCacheSize.Bytes())
	coordinator := fetch.NewCoordinator(dir, index, evictor, storage, downloader)

	return &Service{
		cfg: cfg,
		//
		index:       index,
		coordinator: coordinator,
		storage:     storage,
	}
}

// NewSession prepares a session for one player. cachingOverride disables
// caching for this session only; it can't enable caching that is globally
// disabled.
func (s *Service) NewSession(identifier string, cachingOverride bool) *Session {
	return newSession(s, identifier, cachingOverride)
}

// Preload downloads a video into the cache without affecting any session.
// It returns the local path, or an error if the video couldn't be cached.
// Preloading is a no-op when caching is disabled.
func (s *Service) Preload(ctx context.Context, identifier string) (string, error) {
	if !s.cfg.EnableCaching {
		return "", nil
	}
	if identifier == "" {
		return "", nil
	}

	key := vidcache.ResolveKey(identifier)
	path, err := s.coordinator.Fetch(ctx, key, identifier, nil)
	if err != nil {
		rlog.Warnf("couldn't preload %q: %s", identifier, err)
		return "", err
	}
	return path, nil
}

// ClearCache removes the entire cache directory with all entries and
// partial downloads.
func (s *Service) ClearCache() error {
	dir := s.cfg.CacheDir()
	if err := s.storage.Delete(dir); err != nil {
		return fmt.Errorf("couldn't clear cache dir %q: %w", dir, err)
	}

	rlog.Infof("cache dir %q was cleared", dir)
	return nil
}
