package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/jcdickinson/ferrisnav/internal/cas"
	"github.com/jcdickinson/ferrisnav/internal/config"
	"github.com/jcdickinson/ferrisnav/internal/db"
	"github.com/jcdickinson/ferrisnav/internal/docs"
	"github.com/jcdickinson/ferrisnav/internal/rpc"
	"github.com/jcdickinson/ferrisnav/internal/sidebar"
	"golang.org/x/sync/singleflight"
)

// ErrAlreadyRunning is returned by Start when another daemon holds the lock.
var ErrAlreadyRunning = errors.New("another daemon is already running")

type versionCacheEntry struct {
	version  string // resolved real version; empty for 404s
	notFound bool
	expiry   time.Time
}

type Server struct {
	db         *db.DB
	cfg        *config.Config
	fetcher    *docs.Fetcher
	socketPath string
	lock       *flock.Flock
	httpServer *http.Server
	listener   net.Listener

	mu         sync.Mutex
	expTimer   *time.Timer
	expiration time.Duration

	versionCache   map[string]versionCacheEntry
	versionCacheMu sync.RWMutex
	fetchGroup     singleflight.Group
	emitGroup      singleflight.Group

	crates *lru.Cache[string, *docs.RustdocCrate]
}

func NewServer(cfg *config.Config, database *db.DB, socketPath string) *Server {
	expSec := cfg.Daemon.ExpirationSeconds
	if expSec <= 0 {
		expSec = 600
	}
	cacheSize := cfg.Daemon.CrateCacheSize
	if cacheSize <= 0 {
		cacheSize = 32
	}
	// lru.New only fails for a non-positive size.
	crates, _ := lru.New[string, *docs.RustdocCrate](cacheSize)

	return &Server{
		db:           database,
		cfg:          cfg,
		fetcher:      docs.NewFetcher(cfg.Docs.BaseURL, cfg.Docs.Timeout()),
		socketPath:   socketPath,
		lock:         flock.New(strings.TrimSuffix(socketPath, filepath.Ext(socketPath)) + ".lock"),
		expiration:   time.Duration(expSec) * time.Second,
		versionCache: make(map[string]versionCacheEntry),
		crates:       crates,
	}
}

// Handler returns the daemon's HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /emit", s.withExpReset(s.handleEmit))
	mux.HandleFunc("POST /get-sidebar", s.withExpReset(s.handleGetSidebar))
	mux.HandleFunc("GET /status", s.withExpReset(s.handleStatus))
	mux.HandleFunc("POST /clear-cache", s.withExpReset(s.handleClearCache))
	mux.HandleFunc("POST /shutdown", s.handleShutdown)
	return mux
}

func (s *Server) acquireLock() error {
	if err := os.MkdirAll(filepath.Dir(s.lock.Path()), 0755); err != nil {
		return fmt.Errorf("creating lock directory: %w", err)
	}
	locked, err := s.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquiring daemon lock: %w", err)
	}
	if !locked {
		return ErrAlreadyRunning
	}
	return nil
}

func (s *Server) Start(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(s.socketPath), 0755); err != nil {
		return fmt.Errorf("creating socket directory: %w", err)
	}
	if err := s.acquireLock(); err != nil {
		return err
	}
	os.Remove(s.socketPath)

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		s.lock.Unlock()
		return fmt.Errorf("listening on socket: %w", err)
	}
	if err := os.Chmod(s.socketPath, 0600); err != nil {
		listener.Close()
		s.lock.Unlock()
		return fmt.Errorf("setting socket permissions: %w", err)
	}
	s.listener = listener

	s.httpServer = &http.Server{
		Handler:     s.Handler(),
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	s.mu.Lock()
	s.expTimer = time.AfterFunc(s.expiration, s.expire)
	s.mu.Unlock()

	slog.Info("daemon listening", "socket", s.socketPath, "expiration", s.expiration)

	if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("serving: %w", err)
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	var errs []error
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			slog.Error("shutdown error", "error", err)
			errs = append(errs, err)
		}
	}
	if s.listener != nil {
		if err := s.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			slog.Error("listener close error", "error", err)
			errs = append(errs, err)
		}
	}
	if err := os.Remove(s.socketPath); err != nil && !os.IsNotExist(err) {
		slog.Error("socket remove error", "error", err)
		errs = append(errs, err)
	}
	if err := s.lock.Unlock(); err != nil {
		slog.Error("lock release error", "error", err)
		errs = append(errs, err)
	}
	if err := s.db.Close(); err != nil {
		slog.Error("db close error", "error", err)
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (s *Server) expire() {
	slog.Info("daemon expiring due to inactivity")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.Stop(ctx)
	os.Exit(0)
}

func (s *Server) resetExpiration() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.expTimer != nil {
		s.expTimer.Stop()
		s.expTimer.Reset(s.expiration)
	}
}

func (s *Server) withExpReset(handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.resetExpiration()
		handler(w, r)
	}
}

func (s *Server) handleEmit(w http.ResponseWriter, r *http.Request) {
	var req rpc.EmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	flusher, _ := w.(http.Flusher)
	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)

	enc := json.NewEncoder(w)
	send := func(line rpc.ProgressLine) bool {
		if line.Message != "" {
			slog.Info(line.Message)
		}
		if err := enc.Encode(line); err != nil {
			slog.Warn("client disconnected", "error", err)
			return false
		}
		if flusher != nil {
			flusher.Flush()
		}
		return true
	}

	for _, spec := range req.Crates {
		progress := func(msg string) {
			send(rpc.ProgressLine{Type: "progress", Message: msg})
		}
		result := s.emit(r.Context(), spec, progress)
		if !send(rpc.ProgressLine{Type: "result", Result: &result}) {
			return
		}
	}
}

const versionCacheTTL = 10 * time.Minute

func (s *Server) getCachedVersion(name string) (versionCacheEntry, bool) {
	s.versionCacheMu.RLock()
	defer s.versionCacheMu.RUnlock()
	entry, ok := s.versionCache[name]
	if !ok || time.Now().After(entry.expiry) {
		return versionCacheEntry{}, false
	}
	return entry, true
}

func (s *Server) setCachedVersion(name, version string, notFound bool) {
	s.versionCacheMu.Lock()
	defer s.versionCacheMu.Unlock()
	s.versionCache[name] = versionCacheEntry{
		version:  version,
		notFound: notFound,
		expiry:   time.Now().Add(versionCacheTTL),
	}
}

func (s *Server) clearCaches() {
	s.versionCacheMu.Lock()
	s.versionCache = make(map[string]versionCacheEntry)
	s.versionCacheMu.Unlock()
	s.crates.Purge()
}

// cachedCrate returns a parsed crate from memory, falling back to the on-disk
// rustdoc JSON cache.
func (s *Server) cachedCrate(name, version string) *docs.RustdocCrate {
	key := name + "@" + version
	if c, ok := s.crates.Get(key); ok {
		return c
	}
	if !docs.HasCrateCache(name, version) {
		return nil
	}
	c, err := docs.LoadCrateCache(name, version)
	if err != nil {
		slog.Warn("discarding unreadable rustdoc cache", "crate", key, "error", err)
		return nil
	}
	s.crates.Add(key, c)
	return c
}

type loadedCrate struct {
	version string
	crate   *docs.RustdocCrate
}

// loadCrate resolves version ("latest" included) and returns the parsed crate,
// fetching from docs.rs when nothing is cached.
func (s *Server) loadCrate(ctx context.Context, name, version string, progress func(string)) (string, *docs.RustdocCrate, error) {
	if version == "latest" {
		if entry, ok := s.getCachedVersion(name); ok {
			if entry.notFound {
				return "", nil, fmt.Errorf("crate %s not found on docs.rs (cached)", name)
			}
			if c := s.cachedCrate(name, entry.version); c != nil {
				return entry.version, c, nil
			}
		}
	} else if c := s.cachedCrate(name, version); c != nil {
		return version, c, nil
	}

	// Singleflight: dedup concurrent fetches for the same crate@version
	v, err, _ := s.fetchGroup.Do(name+"@"+version, func() (interface{}, error) {
		progress(fmt.Sprintf("fetching rustdoc for %s@%s", name, version))
		data, err := s.fetcher.FetchRustdocJSON(ctx, name, version)
		if err != nil {
			if version == "latest" {
				s.setCachedVersion(name, "", true)
			}
			return nil, fmt.Errorf("fetching docs: %w", err)
		}

		progress(fmt.Sprintf("parsing rustdoc for %s@%s", name, version))
		crate, err := docs.Parse(data)
		if err != nil {
			return nil, fmt.Errorf("parsing docs: %w", err)
		}

		realVersion := version
		if v := crate.Version(); v != "" {
			realVersion = v
		}
		if version == "latest" {
			s.setCachedVersion(name, realVersion, false)
		}

		if err := docs.SaveCrateCache(data, name, realVersion); err != nil {
			slog.Warn("failed to cache rustdoc JSON", "crate", name, "version", realVersion, "error", err)
		}
		s.crates.Add(name+"@"+realVersion, crate)
		return loadedCrate{version: realVersion, crate: crate}, nil
	})
	if err != nil {
		return "", nil, err
	}
	lc := v.(loadedCrate)
	return lc.version, lc.crate, nil
}

// emit builds and stores the sidebar index for the requested module(s).
func (s *Server) emit(ctx context.Context, spec rpc.CrateSpec, progress func(string)) rpc.CrateResult {
	version := spec.Version
	if version == "" {
		version = "latest"
	}
	result := rpc.CrateResult{Name: spec.Name, Version: version}
	if spec.Name == "" {
		result.Error = "missing crate name"
		return result
	}

	realVersion, crate, err := s.loadCrate(ctx, spec.Name, version, progress)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.Version = realVersion

	var modules []string
	if spec.All {
		modules = docs.ModulePaths(crate)
	} else {
		modules = []string{normalizeModule(crate, spec.Module)}
	}

	// Singleflight: identical emits for the same crate@version share one build
	key := fmt.Sprintf("%s@%s:%v:%s", spec.Name, realVersion, spec.All, strings.Join(modules, ","))
	v, err, _ := s.emitGroup.Do(key, func() (interface{}, error) {
		return s.emitModules(spec.Name, realVersion, crate, modules, !spec.All, progress)
	})
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.Modules = v.([]rpc.ModuleSidebar)
	return result
}

func (s *Server) emitModules(name, version string, crate *docs.RustdocCrate, modules []string, withSidebar bool, progress func(string)) ([]rpc.ModuleSidebar, error) {
	row, err := s.db.UpsertCrate(name, version)
	if err != nil {
		return nil, fmt.Errorf("upserting crate: %w", err)
	}
	if err := s.db.MarkCrateFetched(row.ID); err != nil {
		slog.Warn("failed to mark crate fetched", "crate", name, "error", err)
	}

	out := make([]rpc.ModuleSidebar, 0, len(modules))
	for _, module := range modules {
		idx, err := docs.BuildSidebar(crate, module)
		if err != nil {
			return nil, err
		}
		hash, err := cas.WriteSidebar(idx)
		if err != nil {
			return nil, fmt.Errorf("storing sidebar for %s: %w", module, err)
		}
		entry := &db.Sidebar{
			CrateID:     row.ID,
			ModulePath:  module,
			ContentHash: hash,
			Categories:  idx.Len(),
			Entries:     idx.EntryCount(),
		}
		if err := s.db.PutSidebar(entry); err != nil {
			return nil, err
		}

		ms := rpc.ModuleSidebar{
			Module:      module,
			ContentHash: hash,
			Categories:  entry.Categories,
			Entries:     entry.Entries,
		}
		if withSidebar {
			ms.Sidebar = idx
		}
		out = append(out, ms)
	}

	if err := s.db.MarkCrateProcessed(row.ID); err != nil {
		slog.Warn("failed to mark crate processed", "crate", name, "error", err)
	}
	progress(fmt.Sprintf("emitted %d sidebar(s) for %s@%s", len(out), name, version))
	return out, nil
}

// normalizeModule maps "" and the bare crate name to the crate root's path.
func normalizeModule(crate *docs.RustdocCrate, module string) string {
	module = strings.TrimSpace(module)
	if module == "" {
		return crate.CrateName()
	}
	return module
}

func (s *Server) handleGetSidebar(w http.ResponseWriter, r *http.Request) {
	var req rpc.GetSidebarRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Crate == "" {
		writeError(w, http.StatusBadRequest, "missing crate")
		return
	}
	if req.Version == "" {
		req.Version = "latest"
	}

	resp, status, err := s.getSidebar(r.Context(), req)
	if err != nil {
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) getSidebar(ctx context.Context, req rpc.GetSidebarRequest) (*rpc.GetSidebarResponse, int, error) {
	opts := []sidebar.Option{sidebar.WithValidation(s.cfg.Sidebar.Validation.Enabled())}

	// Stored sidebars are served without touching rustdoc JSON.
	if stored, version := s.storedSidebar(req); stored != nil {
		idx, err := cas.ReadSidebar(stored.ContentHash, opts...)
		if err == nil {
			return sidebarResponse(req.Crate, version, stored.ModulePath, idx), http.StatusOK, nil
		}
		var verr *sidebar.ValidationError
		if errors.As(err, &verr) {
			return nil, http.StatusUnprocessableEntity, err
		}
		slog.Warn("stored sidebar unreadable, re-emitting", "crate", req.Crate, "module", stored.ModulePath, "error", err)
	}

	// Not stored yet: emit on demand.
	result := s.emit(ctx, rpc.CrateSpec{Name: req.Crate, Version: req.Version, Module: req.Module}, func(msg string) {
		slog.Info("auto-emit", "message", msg)
	})
	if result.Error != "" {
		return nil, http.StatusNotFound, errors.New(result.Error)
	}
	ms := result.Modules[0]
	return sidebarResponse(req.Crate, result.Version, ms.Module, ms.Sidebar), http.StatusOK, nil
}

// storedSidebar looks up the catalog row for req, resolving "latest" to the
// newest processed version.
func (s *Server) storedSidebar(req rpc.GetSidebarRequest) (*db.Sidebar, string) {
	var crate *db.Crate
	var err error
	if req.Version == "latest" {
		crate, err = s.db.GetLatestCrate(req.Crate)
	} else {
		crate, err = s.db.GetCrate(req.Crate, req.Version)
	}
	if err != nil || crate == nil {
		return nil, ""
	}

	module := strings.TrimSpace(req.Module)
	if module == "" {
		module = strings.ReplaceAll(req.Crate, "-", "_")
	}
	stored, err := s.db.GetSidebar(crate.ID, module)
	if err != nil || stored == nil {
		return nil, ""
	}
	if err := s.db.TouchCrate(crate.ID); err != nil {
		slog.Warn("failed to touch crate", "crate", req.Crate, "error", err)
	}
	return stored, crate.Version
}

func sidebarResponse(crate, version, module string, idx *sidebar.Index) *rpc.GetSidebarResponse {
	resp := &rpc.GetSidebarResponse{Crate: crate, Version: version, Module: module, Sidebar: idx}
	for _, w := range sidebar.Warnings(idx) {
		resp.Warnings = append(resp.Warnings, w.String())
	}
	return resp
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	crates, err := s.db.ListCrates()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	stats, err := s.db.Stats()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := rpc.StatusResponse{
		Sidebars: stats.Sidebars,
		Entries:  stats.Entries,
		Cached:   s.crates.Len(),
	}
	for _, c := range crates {
		sidebars, err := s.db.ListSidebars(c.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		resp.Crates = append(resp.Crates, rpc.CrateStatus{
			Name:      c.Name,
			Version:   c.Version,
			Processed: c.ProcessedAt != nil,
			Modules:   len(sidebars),
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleClearCache(w http.ResponseWriter, r *http.Request) {
	s.clearCaches()
	slog.Info("version and crate caches cleared")
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleShutdown(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "shutting down"})
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.Stop(ctx)
		os.Exit(0)
	}()
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
