package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/santinoo1919/medtrixmap/internal/datasource"
	"github.com/santinoo1919/medtrixmap/internal/geojson"
	"github.com/santinoo1919/medtrixmap/internal/metrics"
	"github.com/santinoo1919/medtrixmap/internal/session"
)

// Config configures the HTTP surface.
type Config struct {
	Sources  []datasource.Definition
	Debounce time.Duration
	// OriginPatterns are the websocket origins accepted (default: all).
	OriginPatterns []string
	// CacheControl is sent with proxied source documents.
	CacheControl string
}

// Server exposes map sessions over websocket plus status and proxy endpoints.
type Server struct {
	cfg      Config
	logger   *slog.Logger
	loader   *datasource.Loader
	bindings []session.Binding
	byID     map[string]session.Binding

	activeSessions atomic.Int32
	totalSessions  atomic.Int64
}

// Status is the JSON body of /api/status.
type Status struct {
	Loader         datasource.LoaderStatus `json:"loader"`
	ActiveSessions int                     `json:"active_sessions"`
	TotalSessions  int64                   `json:"total_sessions"`
	Sources        []SourceInfo            `json:"sources"`
}

// SourceInfo describes a configured source.
type SourceInfo struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Kind        string `json:"kind"`
	Enabled     bool   `json:"enabled"`
	Categorized bool   `json:"categorized"`
	Regions     bool   `json:"regions"`
}

// New creates a server for the configured sources.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if len(cfg.OriginPatterns) == 0 {
		cfg.OriginPatterns = []string{"*"}
	}
	if cfg.CacheControl == "" {
		cfg.CacheControl = "no-store"
	}

	bindings, err := session.Bind(cfg.Sources, logger)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]session.Binding, len(bindings))
	for _, b := range bindings {
		byID[b.Def.ID] = b
	}

	return &Server{
		cfg:      cfg,
		logger:   logger,
		loader:   datasource.NewLoader(datasource.LoaderConfig{Logger: logger}),
		bindings: bindings,
		byID:     byID,
	}, nil
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("GET /api/status", s.StatusHandler())
	mux.Handle("GET /api/status/stream", s.StatusStreamHandler())
	mux.HandleFunc("GET /api/sources", s.serveSources)
	mux.HandleFunc("GET /api/sources/{id}", s.serveSource)
	mux.Handle("/ws", NewWSHandler(s, s.logger))
	return mux
}

// Wait blocks until no source load started by this server is in flight.
func (s *Server) Wait() { s.loader.Wait() }

// Status returns the current status.
func (s *Server) Status() Status {
	return Status{
		Loader:         s.loader.Status(),
		ActiveSessions: int(s.activeSessions.Load()),
		TotalSessions:  s.totalSessions.Load(),
		Sources:        s.sourceInfos(),
	}
}

func (s *Server) sourceInfos() []SourceInfo {
	out := make([]SourceInfo, 0, len(s.bindings))
	for _, b := range s.bindings {
		kind := b.Def.Kind
		if kind == "" {
			kind = datasource.KindHTTP
		}
		out = append(out, SourceInfo{
			ID:          b.Def.ID,
			Label:       b.Def.Label,
			Kind:        string(kind),
			Enabled:     b.Def.Enabled,
			Categorized: b.Def.CategoryField != "",
			Regions:     b.Def.RegionField != "",
		})
	}
	return out
}

// newSession creates a session for one client connection.
func (s *Server) newSession(id string) (*session.Session, error) {
	return session.New(session.Config{
		ID:       id,
		Sources:  s.bindings,
		Debounce: s.cfg.Debounce,
		Loader:   s.loader,
		Logger:   s.logger,
	})
}

func (s *Server) sessionStarted() {
	s.activeSessions.Add(1)
	s.totalSessions.Add(1)
	metrics.SessionsActive.Inc()
}

func (s *Server) sessionEnded() {
	s.activeSessions.Add(-1)
	metrics.SessionsActive.Dec()
}

// StatusHandler returns an HTTP handler for the status endpoint (JSON).
func (s *Server) StatusHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Cache-Control", "no-store")
		s.writeJSON(w, http.StatusOK, s.Status())
	})
}

// StatusStreamHandler returns an SSE handler pushing the status once a second.
func (s *Server) StatusStreamHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("Access-Control-Allow-Origin", "*")

		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "SSE not supported", http.StatusInternalServerError)
			return
		}

		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()

		s.sendStatusEvent(w, flusher)
		for {
			select {
			case <-r.Context().Done():
				return
			case <-ticker.C:
				s.sendStatusEvent(w, flusher)
			}
		}
	})
}

func (s *Server) sendStatusEvent(w http.ResponseWriter, flusher http.Flusher) {
	data, err := json.Marshal(s.Status())
	if err != nil {
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", data)
	flusher.Flush()
}

func (s *Server) serveSources(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.sourceInfos())
}

// proxyError is the body of a failed proxy request.
type proxyError struct {
	Error   string `json:"error"`
	Status  int    `json:"status,omitempty"`
	Details string `json:"details,omitempty"`
}

// fetcher is implemented by sources that can return the raw upstream document.
type fetcher interface {
	Fetch(ctx context.Context) ([]byte, error)
}

// serveSource proxies one source's upstream collection. HTTP sources are
// passed through as received; other sources are re-encoded as GeoJSON.
func (s *Server) serveSource(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	b, ok := s.byID[id]
	if !ok {
		s.writeJSON(w, http.StatusNotFound, proxyError{Error: fmt.Sprintf("unknown source %q", id)})
		return
	}
	log := s.logger.With("source", id)

	var body []byte
	var err error
	if f, ok := b.Source.(fetcher); ok {
		body, err = f.Fetch(r.Context())
	} else {
		res := s.loader.Load(r.Context(), b.Source)
		err = res.Err
		if err == nil {
			body, err = geojson.ToGeoJSONBytes(res.Collection.Features)
		}
	}
	if err != nil {
		log.Error("source proxy failed", "error", err)
		pe := proxyError{Error: fmt.Sprintf("Failed to fetch %s", sourceName(b.Def)), Details: err.Error()}
		var ue *datasource.UnavailableError
		if errors.As(err, &ue) {
			pe.Status = ue.Status
			pe.Details = ue.Message
		}
		s.writeJSON(w, http.StatusInternalServerError, pe)
		return
	}

	w.Header().Set("Content-Type", "application/geo+json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Cache-Control", s.cfg.CacheControl)
	_, _ = w.Write(body)
}

func sourceName(def datasource.Definition) string {
	if def.Label != "" {
		return def.Label
	}
	return def.ID
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}
