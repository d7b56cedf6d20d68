// Package gateway exposes the HTTP ingress surface: sensor readings can
// be POSTed directly when no broker is reachable, and operators get
// health and metrics endpoints.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/IT22277190/AuraLink-group55/component"
	"github.com/IT22277190/AuraLink-group55/errors"
)

// maxRequestSize bounds the POST /data body. Sensor readings are tiny;
// anything bigger is garbage.
const maxRequestSize = 4096

// Ingestor runs one full enrichment cycle for a sensor payload. The call
// returns after every publish the cycle managed to produce has completed.
type Ingestor interface {
	Process(ctx context.Context, payload []byte) error
}

// Server is the HTTP gateway component
type Server struct {
	port           int
	ingestor       Ingestor
	metricsHandler http.Handler
	components     []component.Component
	logger         *slog.Logger

	server *http.Server

	mu          sync.RWMutex
	lifecycleMu sync.Mutex
	running     atomic.Bool
	startTime   time.Time
	wg          *sync.WaitGroup

	requestsTotal  atomic.Uint64
	requestsFailed atomic.Uint64
	bytesReceived  atomic.Uint64
	lastActivity   atomic.Value // stores time.Time
}

// NewServer creates a gateway on port. ingestor receives accepted sensor
// payloads; components are surfaced through /healthz; metricsHandler, if
// non-nil, is mounted at /metrics.
func NewServer(port int, ingestor Ingestor, metricsHandler http.Handler,
	components []component.Component, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		port:           port,
		ingestor:       ingestor,
		metricsHandler: metricsHandler,
		components:     components,
		logger:         logger,
	}
	s.lastActivity.Store(time.Time{})
	return s
}

// requestID extracts the caller's X-Request-ID or assigns a new one
func requestID(r *http.Request) string {
	if id := r.Header.Get("X-Request-ID"); id != "" {
		return id
	}
	return uuid.NewString()
}

// Meta returns the component metadata
func (s *Server) Meta() component.Metadata {
	return component.Metadata{
		Name:        "http-gateway",
		Type:        "gateway",
		Description: fmt.Sprintf("HTTP ingress and operations endpoints on port %d", s.port),
		Version:     "1.0.0",
	}
}

// Health returns the current health status
func (s *Server) Health() component.HealthStatus {
	s.mu.RLock()
	startTime := s.startTime
	s.mu.RUnlock()

	return component.HealthStatus{
		Healthy:    s.running.Load(),
		LastCheck:  time.Now(),
		ErrorCount: int(s.requestsFailed.Load()),
		Uptime:     time.Since(startTime),
	}
}

// DataFlow returns current data flow metrics
func (s *Server) DataFlow() component.FlowMetrics {
	s.mu.RLock()
	startTime := s.startTime
	s.mu.RUnlock()

	total := s.requestsTotal.Load()
	failed := s.requestsFailed.Load()

	var errorRate float64
	if total > 0 {
		errorRate = float64(failed) / float64(total)
	}

	var perSecond, bytesPerSecond float64
	if uptime := time.Since(startTime).Seconds(); uptime > 0 {
		perSecond = float64(total) / uptime
		bytesPerSecond = float64(s.bytesReceived.Load()) / uptime
	}

	lastActivity, _ := s.lastActivity.Load().(time.Time)
	return component.FlowMetrics{
		MessagesPerSecond: perSecond,
		BytesPerSecond:    bytesPerSecond,
		ErrorRate:         errorRate,
		LastActivity:      lastActivity,
	}
}

// Initialize validates the gateway configuration
func (s *Server) Initialize() error {
	if s.port < 1024 || s.port > 65535 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Server", "Initialize",
			fmt.Sprintf("port %d out of range 1024-65535", s.port))
	}
	if s.ingestor == nil {
		return errors.WrapInvalid(errors.ErrMissingConfig, "Server", "Initialize", "ingestor required")
	}
	return nil
}

// Handler builds the gateway's HTTP routing table
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/data", s.handleData)
	mux.HandleFunc("/healthz", s.handleHealthz)
	if s.metricsHandler != nil {
		mux.Handle("/metrics", s.metricsHandler)
	}
	return mux
}

// Start begins serving the gateway endpoints
func (s *Server) Start(_ context.Context) error {
	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()

	if !s.running.CompareAndSwap(false, true) {
		return errors.Wrap(errors.ErrAlreadyStarted, "Server", "Start", "start")
	}

	s.mu.Lock()
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.startTime = time.Now()
	s.wg = &sync.WaitGroup{}
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("gateway server failed", "error", err)
		}
	}()

	s.logger.Info("gateway started", "port", s.port)
	return nil
}

// Stop shuts the gateway down gracefully
func (s *Server) Stop(timeout time.Duration) error {
	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()

	if !s.running.CompareAndSwap(true, false) {
		return nil
	}

	s.mu.RLock()
	server := s.server
	wg := s.wg
	s.mu.RUnlock()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "Server", "Stop", "shutdown")
	}
	wg.Wait()

	s.logger.Info("gateway stopped", "port", s.port)
	return nil
}

// handleData accepts a sensor reading over HTTP and runs the enrichment
// cycle synchronously, so a 202 means every publish already happened.
// Useful for exercising the pipeline without a live broker feed.
func (s *Server) handleData(w http.ResponseWriter, r *http.Request) {
	reqID := requestID(r)
	w.Header().Set("X-Request-ID", reqID)

	s.requestsTotal.Add(1)
	s.lastActivity.Store(time.Now())

	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestSize+1))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	if len(body) > maxRequestSize {
		s.writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}
	s.bytesReceived.Add(uint64(len(body)))

	if err := s.ingestor.Process(r.Context(), body); err != nil {
		if errors.IsInvalid(err) {
			s.logger.Warn("rejected sensor payload", "request_id", reqID, "error", err)
			s.writeError(w, http.StatusBadRequest, "invalid sensor reading")
			return
		}
		s.logger.Error("processing failed", "request_id", reqID, "error", err)
		s.writeError(w, http.StatusInternalServerError, "processing failed")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"message":    "Data processed successfully",
		"request_id": reqID,
	})
}

// healthEntry is one component's slice of the /healthz response
type healthEntry struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
	Uptime  string `json:"uptime"`
	Errors  int    `json:"errors"`
}

// handleHealthz reports aggregate component health. Any unhealthy
// component turns the whole response into a 503.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-Request-ID", requestID(r))

	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	healthy := true
	entries := make([]healthEntry, 0, len(s.components))
	for _, c := range s.components {
		h := c.Health()
		if !h.Healthy {
			healthy = false
		}
		entries = append(entries, healthEntry{
			Name:    c.Meta().Name,
			Healthy: h.Healthy,
			Uptime:  h.Uptime.Round(time.Second).String(),
			Errors:  h.ErrorCount,
		})
	}

	status := http.StatusOK
	overall := "ok"
	if !healthy {
		status = http.StatusServiceUnavailable
		overall = "degraded"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":     overall,
		"components": entries,
	})
}

func (s *Server) writeError(w http.ResponseWriter, statusCode int, msg string) {
	s.requestsFailed.Add(1)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error":  msg,
		"status": statusCode,
	})
}
