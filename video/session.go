package video

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/vidcache/vidcache/pkg/rlog"
	"github.com/vidcache/vidcache/vidcache"
)

// State is what a player observes for a session. ServedPath is always
// playable: the local cache path on a hit, the remote identifier in every
// other situation, including errors.
type State struct {
	ServedPath      string
	IsLoading       bool
	ErrorMessage    string
	ProgressPercent int
	IsCached        bool
}

// Session runs the serving decision for one player. It reflects only the
// most recent identifier: changing the identifier supersedes all async
// work started for the previous one, and stale results are discarded.
//
// A cache miss never blocks the caller - the remote identifier is served
// immediately and, with preload enabled, the video is downloaded in the
// background to be served from cache on the next request ("cache for
// next time", no retroactive swap).
type Session struct {
	id              string
	service         *Service
	cachingOverride bool

	mu         sync.Mutex
	identifier string
	// generation tags async work with the identifier it was started
	// for. Results whose generation no longer matches are dropped.
	generation int
	state      State
}

func newSession(service *Service, identifier string, cachingOverride bool) *Session {
	s := &Session{
		id:              uuid.NewString(),
		service:         service,
		cachingOverride: cachingOverride,
	}
	s.SetIdentifier(identifier)
	return s
}

// ID returns a unique id of this session.
func (s *Session) ID() string {
	return s.id
}

// State returns a snapshot of the current session state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

func (s *Session) cachingEnabled() bool {
	return s.service.cfg.EnableCaching && s.cachingOverride
}

// SetIdentifier switches the session to a new remote identifier. The
// served path is updated immediately and never waits for the network:
// the cache existence check and a possible background download run
// asynchronously.
func (s *Session) SetIdentifier(identifier string) {
	s.mu.Lock()

	s.identifier = identifier
	s.generation++
	generation := s.generation

	switch {
	case identifier == "":
		s.state = State{}
		s.mu.Unlock()
		return

	case !s.cachingEnabled():
		s.state = State{ServedPath: identifier}
		s.mu.Unlock()
		return
	}

	s.state = State{
		ServedPath: identifier,
		IsLoading:  true,
	}
	s.mu.Unlock()

	go s.checkCache(generation, identifier)
}

func (s *Session) checkCache(generation int, identifier string) {
	key := vidcache.ResolveKey(identifier)
	err := s.service.index.Check(key)

	s.mu.Lock()
	defer s.mu.Unlock()

	if generation != s.generation {
		rlog.Debugf("session %s: drop stale cache check for %q", s.id, identifier)
		return
	}

	switch {
	case err == nil:
		s.state = State{
			ServedPath: s.service.index.EntryPath(key),
			IsCached:   true,
		}

	case errors.Is(err, vidcache.ErrCacheMiss):
		s.state = State{ServedPath: identifier}
		if s.service.cfg.EnablePreload {
			go s.backgroundFetch(generation, key, identifier)
		}

	default:
		// Serve the remote identifier: an error must not leave the
		// player without a playable source.
		s.state = State{
			ServedPath:   identifier,
			ErrorMessage: err.Error(),
		}
	}
}

// backgroundFetch downloads a video after a cache miss. It is never
// cancelled: even a superseded download runs to completion and populates
// the cache for future requests.
func (s *Session) backgroundFetch(generation int, key vidcache.CacheKey, identifier string) {
	path, err := s.service.coordinator.Fetch(context.Background(), key, identifier, func(percent int) {
		s.mu.Lock()
		defer s.mu.Unlock()

		if generation == s.generation {
			s.state.ProgressPercent = percent
		}
	})

	s.mu.Lock()
	defer s.mu.Unlock()

	if generation != s.generation {
		rlog.Debugf("session %s: drop stale fetch result for %q", s.id, identifier)
		return
	}

	if err != nil {
		s.state.ErrorMessage = err.Error()
		return
	}

	// Cache for next time: the served path is not swapped mid-playback.
	s.state.IsCached = true
	rlog.Debugf("session %s: %q is now cached at %q", s.id, identifier, path)
}

// ClearCache removes all cached videos and resets the cached/progress
// state of this session. The served path is not changed.
func (s *Session) ClearCache() {
	s.CacheCleared(s.service.ClearCache())
}

// CacheCleared resets the cached/progress state after the cache
// directory was removed elsewhere, so the session never advertises an
// entry that no longer exists. A non-nil err becomes the session's
// error message.
func (s *Session) CacheCleared(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.IsCached = false
	s.state.ProgressPercent = 0
	if err != nil {
		s.state.ErrorMessage = err.Error()
	}
}
