// Package server is the storage service: a stateless request handler over a
// key-value store, accepting signed writes from the pipeline and serving the
// read API the presentation layer consumes.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"runtime"
	"time"

	"github.com/MrMysteryCode/Friendle/internal/store"
)

// Options configures the storage service.
type Options struct {
	Addr            string
	Secret          string   // shared HMAC secret for signed writes
	StatsToken      string   // optional bearer credential for counter writes
	CORSOrigins     []string
	RateLimitRPS    int
	RateLimitBurst  int
	EnableMetrics   bool
	EnableAccessLog bool
	Build           BuildInfo
}

// BuildInfo describes the compiled binary.
type BuildInfo struct {
	Version  string
	Revision string
	BuiltAt  string
}

type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	kv         store.KV
	opts       Options
	metrics    *Metrics
	limiter    *ipRateLimiter
	cors       *corsPolicy
}

func New(kv store.KV, opts Options) *Server {
	srv := &Server{
		kv:      kv,
		opts:    opts,
		limiter: newIPRateLimiter(opts.RateLimitRPS, opts.RateLimitBurst),
		cors:    newCORSPolicy(opts.CORSOrigins),
	}
	if opts.EnableMetrics {
		srv.metrics = newMetrics()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /ingest", srv.wrap("/ingest", srv.handleIngest))
	mux.HandleFunc("POST /meta", srv.wrap("/meta", srv.handleMeta))
	mux.HandleFunc("GET /puzzles", srv.wrap("/puzzles", srv.handlePuzzles))
	mux.HandleFunc("GET /stats", srv.wrap("/stats", srv.handleStatsGet))
	mux.HandleFunc("POST /stats", srv.wrap("/stats", srv.handleStatsPost))
	mux.HandleFunc("GET /healthz", srv.handleHealthz)
	mux.HandleFunc("GET /info", srv.wrap("/info", srv.handleInfo))
	if srv.metrics != nil {
		mux.Handle("GET /metrics", srv.metrics.Handler())
	}
	mux.HandleFunc("OPTIONS /", func(w http.ResponseWriter, r *http.Request) {
		if handled, _ := srv.cors.handlePreflight(w, r); handled {
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	srv.mux = mux

	srv.httpServer = &http.Server{
		Addr:              opts.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return srv
}

// Mux exposes the route table so callers can register extra handlers.
func (s *Server) Mux() *http.ServeMux { return s.mux }

// wrap applies the shared request plumbing: rate limiting, CORS, gzip,
// access logging and request metrics.
func (s *Server) wrap(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := newResponseRecorder(w)

		if !s.limiter.Allow(remoteIP(r)) {
			s.metrics.IncRateLimited()
			http.Error(rec, "rate limit exceeded", http.StatusTooManyRequests)
			s.observe(route, r, rec, start)
			return
		}

		if !s.cors.applyHeaders(rec, r) {
			http.Error(rec, "origin not allowed", http.StatusForbidden)
			s.observe(route, r, rec, start)
			return
		}

		if gz, ok := maybeGzip(rec, r); ok {
			defer gz.Close()
		}

		next(rec, r)
		s.observe(route, r, rec, start)
	}
}

func (s *Server) observe(route string, r *http.Request, rec *responseRecorder, start time.Time) {
	dur := time.Since(start)
	s.metrics.ObserveRequest(route, r.Method, rec.Status(), dur)
	if s.opts.EnableAccessLog {
		log.Printf("puzzled: %s %s %d %dB %s %s", r.Method, r.URL.RequestURI(), rec.Status(), rec.bytes, dur.Round(time.Millisecond), remoteIP(r))
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

type infoResponse struct {
	Version  string `json:"version"`
	Revision string `json:"rev"`
	BuiltAt  string `json:"built_at,omitempty"`
	Go       string `json:"go"`
}

func (s *Server) handleInfo(w http.ResponseWriter, _ *http.Request) {
	resp := infoResponse{
		Version:  s.opts.Build.Version,
		Revision: s.opts.Build.Revision,
		BuiltAt:  s.opts.Build.BuiltAt,
		Go:       runtime.Version(),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) Start() error {
	log.Printf("puzzled: listening on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
