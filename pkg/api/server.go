package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rh-john/ocp-eip-monitoring-sub002/pkg/collector"
	"github.com/rh-john/ocp-eip-monitoring-sub002/pkg/log"
)

// Server exposes the exporter over HTTP: /metrics for scraping, /health
// for probes, / for service info. Handlers only read published state and
// never touch the cluster API, so they cannot block on upstream latency.
type Server struct {
	engine    *collector.Engine
	mux       *http.ServeMux
	version   string
	maxAge    time.Duration
	startTime time.Time
	http      *http.Server
}

// NewServer creates the HTTP server around an engine. maxAge bounds how
// stale the last full scrape may be before /health reports unhealthy.
func NewServer(engine *collector.Engine, version string, maxAge time.Duration) *Server {
	mux := http.NewServeMux()
	s := &Server{
		engine:    engine,
		mux:       mux,
		version:   version,
		maxAge:    maxAge,
		startTime: time.Now(),
	}

	mux.Handle("/metrics", engine.MetricsHandler())
	mux.HandleFunc("/health", s.healthHandler)
	mux.HandleFunc("/", s.rootHandler)

	return s
}

// Start binds the port and serves until Shutdown. A bind failure is
// returned to the caller; it is the one fatal startup error.
func (s *Server) Start(addr string) error {
	s.http = &http.Server{
		Addr:         addr,
		Handler:      s.mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger := log.WithComponent("api")
	logger.Info().Str("addr", addr).Msg("http server listening")
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown stops the server, draining in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

// Handler returns the mux for embedding in tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// HealthResponse is the /health payload.
type HealthResponse struct {
	Status         string  `json:"status"`
	LastFullScrape string  `json:"lastFullScrape,omitempty"`
	AgeSeconds     float64 `json:"ageSeconds,omitempty"`
	Partial        bool    `json:"partial"`
	Message        string  `json:"message,omitempty"`
}

// InfoResponse is the root endpoint payload.
type InfoResponse struct {
	Service    string            `json:"service"`
	Version    string            `json:"version"`
	InstanceID string            `json:"instanceId"`
	Uptime     string            `json:"uptime"`
	Endpoints  map[string]string `json:"endpoints"`
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	resp := HealthResponse{Status: "healthy"}
	code := http.StatusOK

	state := s.engine.Published()
	switch {
	case state == nil:
		resp.Status = "unhealthy"
		resp.Message = "no poll cycle completed yet"
		code = http.StatusServiceUnavailable
	case state.LastFullScrape.IsZero():
		resp.Status = "unhealthy"
		resp.Message = "no fully successful poll yet"
		resp.Partial = state.Snapshot.Partial
		code = http.StatusServiceUnavailable
	default:
		age := time.Since(state.LastFullScrape)
		resp.LastFullScrape = state.LastFullScrape.UTC().Format(time.RFC3339)
		resp.AgeSeconds = age.Seconds()
		resp.Partial = state.Snapshot.Partial
		if age > s.maxAge {
			resp.Status = "unhealthy"
			resp.Message = "metrics not updated recently"
			code = http.StatusServiceUnavailable
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(resp)
}

func (s *Server) rootHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	resp := InfoResponse{
		Service:    "eip-monitor",
		Version:    s.version,
		InstanceID: s.engine.InstanceID(),
		Uptime:     time.Since(s.startTime).String(),
		Endpoints: map[string]string{
			"metrics": "/metrics",
			"health":  "/health",
		},
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(resp)
}
