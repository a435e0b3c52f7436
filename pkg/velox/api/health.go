package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ReadyCheck reports whether the server is ready to accept sessions; it
// returns a non-nil error describing what isn't ready yet. cmd/veloxd wires
// this to a closure that opens a throwaway read session and runs a trivial
// scan against the engine.
type ReadyCheck func() error

// Server hosts the process's health, readiness, and metrics endpoints.
type Server struct {
	ready   ReadyCheck
	version string
	mux     *http.ServeMux
}

// NewServer builds the HTTP surface. version is reported by /health for
// operators correlating a running process with a build.
func NewServer(version string, ready ReadyCheck) *Server {
	s := &Server{ready: ready, version: version, mux: http.NewServeMux()}
	s.mux.HandleFunc("/health", s.healthHandler)
	s.mux.HandleFunc("/ready", s.readyHandler)
	s.mux.Handle("/metrics", promhttp.Handler())
	return s
}

// Start blocks serving addr until the listener fails.
func (s *Server) Start(addr string) error {
	server := &http.Server{
		Addr:         addr,
		Handler:      s.mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return server.ListenAndServe()
}

// Handler returns the HTTP handler for embedding in another server.
func (s *Server) Handler() http.Handler { return s.mux }

// HealthResponse is the /health body: a bare liveness signal.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version,omitempty"`
}

// ReadyResponse is the /ready body.
type ReadyResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message,omitempty"`
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, HealthResponse{Status: "healthy", Timestamp: time.Now(), Version: s.version})
}

func (s *Server) readyHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	status, code, message := "ready", http.StatusOK, ""
	if s.ready != nil {
		if err := s.ready(); err != nil {
			status, code, message = "not ready", http.StatusServiceUnavailable, err.Error()
		}
	}
	writeJSON(w, code, ReadyResponse{Status: status, Timestamp: time.Now(), Message: message})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
