// Package web exposes the cache over HTTP for an external UI or player.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vidcache/vidcache/pkg/rlog"
	"github.com/vidcache/vidcache/vidcache"
	"github.com/vidcache/vidcache/video"
)

type Server struct {
	buildInfo vidcache.BuildInfo

	httpServer *http.Server

	service *video.Service

	mu       sync.Mutex
	sessions map[string]*video.Session
}

func NewServer(cfg vidcache.Config, service *video.Service) (s *Server) {
	s = &Server{
		buildInfo: cfg.BuildInfo,
		//
		service: service,
		//
		sessions: make(map[string]*video.Session),
	}

	mux := http.NewServeMux()

	// API
	mux.HandleFunc("/api/sessions", s.handleSessions)
	mux.HandleFunc("/api/sessions/", s.handleSession)
	mux.HandleFunc("/api/preload", s.handlePreload)
	mux.HandleFunc("/api/cache", s.handleCache)
	mux.HandleFunc("/api/version", s.handleVersion)

	// Debug
	mux.Handle("/debug/metrics", promhttp.Handler())

	handler := loggingMiddleware(mux)
	handler = requestIDMiddleware(handler)

	s.httpServer = &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.ServerPort),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

func (s *Server) Start() error {
	rlog.Infof("start web server on %q", s.httpServer.Addr)

	err := s.httpServer.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

type SessionResponse struct {
	ID              string `json:"id"`
	ServedPath      string `json:"served_path"`
	IsLoading       bool   `json:"is_loading"`
	ErrorMessage    string `json:"error_message,omitempty"`
	ProgressPercent int    `json:"progress_percent"`
	IsCached        bool   `json:"is_cached"`
}

func newSessionResponse(session *video.Session) SessionResponse {
	state := session.State()
	return SessionResponse{
		ID:              session.ID(),
		ServedPath:      state.ServedPath,
		IsLoading:       state.IsLoading,
		ErrorMessage:    state.ErrorMessage,
		ProgressPercent: state.ProgressPercent,
		IsCached:        state.IsCached,
	}
}

// handleSessions creates a new playback session. The response contains
// the path the player must use right now - possibly before the cache
// check has finished, in which case the session should be polled.
func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method %q is not allowed", r.Method)
		return
	}

	query := r.URL.Query()

	caching := true
	if rawCaching := query.Get("caching"); rawCaching != "" {
		v, err := strconv.ParseBool(rawCaching)
		if err != nil {
			writeBadRequestError(w, "invalid caching flag: %s", err)
			return
		}
		caching = v
	}

	session := s.service.NewSession(query.Get("url"), caching)

	s.mu.Lock()
	s.sessions[session.ID()] = session
	s.mu.Unlock()

	sendJSON(w, newSessionResponse(session))
}

// handleSession returns the state of a session (GET), switches it to
// a new url (PUT) or forgets it (DELETE).
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/sessions/")

	s.mu.Lock()
	session, ok := s.sessions[id]
	s.mu.Unlock()

	if !ok {
		writeError(w, http.StatusNotFound, "unknown session %q", id)
		return
	}

	switch r.Method {
	case http.MethodGet:
		// Response is sent below.

	case http.MethodPut:
		session.SetIdentifier(r.URL.Query().Get("url"))

	case http.MethodDelete:
		s.mu.Lock()
		delete(s.sessions, id)
		s.mu.Unlock()

		w.WriteHeader(http.StatusNoContent)
		return

	default:
		writeError(w, http.StatusMethodNotAllowed, "method %q is not allowed", r.Method)
		return
	}

	sendJSON(w, newSessionResponse(session))
}

type PreloadResponse struct {
	Path string `json:"path,omitempty"`
}

func (s *Server) handlePreload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method %q is not allowed", r.Method)
		return
	}

	url := r.URL.Query().Get("url")
	if url == "" {
		writeBadRequestError(w, "url can't be empty")
		return
	}

	path, err := s.service.Preload(r.Context(), url)
	if err != nil {
		writeInternalServerError(w, "couldn't preload %q: %s", url, err)
		return
	}

	sendJSON(w, PreloadResponse{Path: path})
}

func (s *Server) handleCache(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		writeError(w, http.StatusMethodNotAllowed, "method %q is not allowed", r.Method)
		return
	}

	err := s.service.ClearCache()

	// Every live session loses its entries, successful removal or not.
	s.mu.Lock()
	for _, session := range s.sessions {
		session.CacheCleared(err)
	}
	s.mu.Unlock()

	if err != nil {
		writeInternalServerError(w, "%s", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	sendJSON(w, map[string]string{
		"commit_hash": s.buildInfo.ShortGitHash,
		"commit_time": s.buildInfo.CommitTime,
	})
}

func sendJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		rlog.Errorf("couldn't encode response: %s", err)
	}
}

func writeBadRequestError(w http.ResponseWriter, format string, a ...any) {
	writeError(w, http.StatusBadRequest, format, a...)
}

func writeInternalServerError(w http.ResponseWriter, format string, a ...any) {
	writeError(w, http.StatusInternalServerError, format, a...)
}

func writeError(w http.ResponseWriter, code int, format string, a ...any) {
	http.Error(w, fmt.Sprintf(format, a...), code)
}
