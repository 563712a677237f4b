// ABOUTME: Demo orchestrator HTTP server: run lookup, stored log/metric history, and live SSE
// ABOUTME: streams over chi, guarded by constant-time bearer token auth.
package demo

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/runboard/runboard/api"
)

// DefaultKeepAlive is how often an idle SSE stream emits a comment frame so
// proxies don't reap the connection.
const DefaultKeepAlive = 15 * time.Second

// Server is the synthetic orchestrator backend. It exists so the dashboard
// can be exercised end to end without a real pipeline executor.
type Server struct {
	token     string
	keepAlive time.Duration

	mu   sync.RWMutex
	runs map[string]*Run
}

// NewServer creates a Server requiring the given bearer token on every /api
// route.
func NewServer(token string) *Server {
	return &Server{
		token:     token,
		keepAlive: DefaultKeepAlive,
		runs:      make(map[string]*Run),
	}
}

// AddRun registers a run so the API can serve it.
func (s *Server) AddRun(r *Run) {
	s.mu.Lock()
	s.runs[r.ID()] = r
	s.mu.Unlock()
}

// Runs returns the registered runs.
func (s *Server) Runs() []*Run {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Run, 0, len(s.runs))
	for _, r := range s.runs {
		out = append(out, r)
	}
	return out
}

func (s *Server) get(runID string) (*Run, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.runs[runID]
	return r, ok
}

// Handler builds the chi router with auth and request logging applied.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestLogger)
	r.Use(authMiddleware(s.token))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api/runs/{runID}", func(r chi.Router) {
		r.Get("/", s.handleRun)
		r.Get("/logs", s.handleLogTail)
		r.Get("/logs/stream", s.handleLogStream)
		r.Get("/metrics", s.handleMetricHistory)
		r.Get("/metrics/stream", s.handleMetricStream)
	})

	return r
}

// authMiddleware validates the bearer token on /api routes; /health passes
// through unprotected.
func authMiddleware(token string) func(http.Handler) http.Handler {
	expected := "Bearer " + token
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !strings.HasPrefix(r.URL.Path, "/api/") {
				next.ServeHTTP(w, r)
				return
			}
			auth := r.Header.Get("Authorization")
			if subtle.ConstantTimeCompare([]byte(auth), []byte(expected)) != 1 {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(p []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(p)
	r.bytes += n
	return n, err
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)

		status := rec.status
		if status == 0 {
			status = http.StatusOK
		}
		log.Printf("demo request method=%s path=%s status=%d bytes=%d duration=%s remote=%s",
			r.Method,
			r.URL.Path,
			status,
			rec.bytes,
			time.Since(start).Round(time.Microsecond),
			r.RemoteAddr,
		)
	})
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	run, ok := s.get(chi.URLParam(r, "runID"))
	if !ok {
		http.Error(w, "run not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(run.Info())
}

// handleLogTail serves the last ?tail=N stored lines as newline-delimited
// plain text.
func (s *Server) handleLogTail(w http.ResponseWriter, r *http.Request) {
	run, ok := s.get(chi.URLParam(r, "runID"))
	if !ok {
		http.Error(w, "run not found", http.StatusNotFound)
		return
	}
	n := 0
	if v := r.URL.Query().Get("tail"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			http.Error(w, "bad tail parameter", http.StatusBadRequest)
			return
		}
		n = parsed
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	for _, line := range run.Tail(n) {
		_, _ = fmt.Fprintln(w, line)
	}
}

func (s *Server) handleMetricHistory(w http.ResponseWriter, r *http.Request) {
	run, ok := s.get(chi.URLParam(r, "runID"))
	if !ok {
		http.Error(w, "run not found", http.StatusNotFound)
		return
	}
	samples := run.Samples()
	if samples == nil {
		samples = []api.MetricSample{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(samples)
}

// handleLogStream streams log events as server-sent frames until the run
// finishes or the client disconnects.
func (s *Server) handleLogStream(w http.ResponseWriter, r *http.Request) {
	run, ok := s.get(chi.URLParam(r, "runID"))
	if !ok {
		http.Error(w, "run not found", http.StatusNotFound)
		return
	}
	ch, cancel := run.SubscribeLogs()
	defer cancel()

	flusher := beginSSE(w)
	keepAlive := time.NewTicker(s.keepAlive)
	defer keepAlive.Stop()

	for {
		select {
		case line, open := <-ch:
			if !open {
				return
			}
			payload, _ := json.Marshal(map[string]string{"line": line})
			_, _ = fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
		case <-keepAlive.C:
			_, _ = fmt.Fprint(w, ": keep-alive\n\n")
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}

// handleMetricStream is the metrics counterpart of handleLogStream.
func (s *Server) handleMetricStream(w http.ResponseWriter, r *http.Request) {
	run, ok := s.get(chi.URLParam(r, "runID"))
	if !ok {
		http.Error(w, "run not found", http.StatusNotFound)
		return
	}
	ch, cancel := run.SubscribeMetrics()
	defer cancel()

	flusher := beginSSE(w)
	keepAlive := time.NewTicker(s.keepAlive)
	defer keepAlive.Stop()

	for {
		select {
		case sample, open := <-ch:
			if !open {
				return
			}
			payload, _ := json.Marshal(sample)
			_, _ = fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
		case <-keepAlive.C:
			_, _ = fmt.Fprint(w, ": keep-alive\n\n")
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}

// beginSSE sets the event-stream headers and returns a flusher. The noop
// fallback keeps handlers simple under writers that can't flush.
func beginSSE(w http.ResponseWriter) http.Flusher {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
		return f
	}
	return noopFlusher{}
}

type noopFlusher struct{}

func (noopFlusher) Flush() {}
