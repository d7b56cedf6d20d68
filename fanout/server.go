package fanout

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/IT22277190/AuraLink-group55/component"
	"github.com/IT22277190/AuraLink-group55/errors"
)

const (
	writeTimeout = 10 * time.Second
	pongTimeout  = 60 * time.Second
	pingInterval = 30 * time.Second
)

// wsViewer adapts a gorilla WebSocket connection to the Sender interface.
// Writes are serialized through writeMu; gorilla connections do not allow
// concurrent writers.
type wsViewer struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
	closed  atomic.Bool
}

func (v *wsViewer) Send(data []byte) error {
	if v.closed.Load() {
		return errors.Wrap(errors.ErrViewerClosed, "wsViewer", "Send", "send")
	}

	v.writeMu.Lock()
	defer v.writeMu.Unlock()

	_ = v.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return v.conn.WriteMessage(websocket.TextMessage, data)
}

func (v *wsViewer) Close() error {
	if !v.closed.CompareAndSwap(false, true) {
		return nil
	}
	return v.conn.Close()
}

func (v *wsViewer) ping() error {
	v.writeMu.Lock()
	defer v.writeMu.Unlock()

	_ = v.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return v.conn.WriteMessage(websocket.PingMessage, nil)
}

// Server exposes the viewer WebSocket endpoint and feeds accepted
// connections into a Registry
type Server struct {
	port     int
	path     string
	registry *Registry
	logger   *slog.Logger

	server   *http.Server
	upgrader websocket.Upgrader

	mu          sync.RWMutex
	lifecycleMu sync.Mutex
	running     bool
	startTime   time.Time
	shutdown    chan struct{}
	wg          *sync.WaitGroup
	// viewerWg tracks read loops separately from the server goroutines.
	// Additions happen under mu while running is still true, so Stop never
	// waits concurrently with a late Add.
	viewerWg *sync.WaitGroup

	connections atomic.Int64
	errCount    atomic.Int64
}

// NewServer creates a viewer server listening on port and serving the
// WebSocket endpoint at path
func NewServer(port int, path string, registry *Registry, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		port:     port,
		path:     path,
		registry: registry,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Viewers connect from browsers served elsewhere.
			CheckOrigin: func(_ *http.Request) bool { return true },
		},
	}
}

// Meta returns the component metadata
func (s *Server) Meta() component.Metadata {
	return component.Metadata{
		Name:        fmt.Sprintf("viewer-server-%d", s.port),
		Type:        "output",
		Description: fmt.Sprintf("WebSocket viewer endpoint at ws://0.0.0.0:%d%s", s.port, s.path),
		Version:     "1.0.0",
	}
}

// Health returns the current health status
func (s *Server) Health() component.HealthStatus {
	s.mu.RLock()
	running := s.running
	s.mu.RUnlock()

	return component.HealthStatus{
		Healthy:    running,
		LastCheck:  time.Now(),
		ErrorCount: int(s.errCount.Load()),
		Uptime:     time.Since(s.startTime),
	}
}

// DataFlow returns current data flow metrics
func (s *Server) DataFlow() component.FlowMetrics {
	stats := s.registry.Stats()

	var perSecond float64
	if uptime := time.Since(s.startTime).Seconds(); uptime > 0 {
		perSecond = float64(stats.Broadcasts) / uptime
	}

	var errorRate float64
	if stats.Broadcasts > 0 {
		errorRate = float64(stats.Evictions) / float64(stats.Broadcasts)
	}

	return component.FlowMetrics{
		MessagesPerSecond: perSecond,
		ErrorRate:         errorRate,
		LastActivity:      stats.AsOf,
	}
}

// Initialize validates the server configuration
func (s *Server) Initialize() error {
	if s.port < 1024 || s.port > 65535 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Server", "Initialize",
			fmt.Sprintf("port %d out of range 1024-65535", s.port))
	}
	if s.path == "" || s.path[0] != '/' {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Server", "Initialize",
			fmt.Sprintf("path %q must start with /", s.path))
	}
	if s.registry == nil {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Server", "Initialize", "registry required")
	}
	return nil
}

// Start begins serving the viewer endpoint
func (s *Server) Start(ctx context.Context) error {
	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.Wrap(errors.ErrAlreadyStarted, "Server", "Start", "start")
	}

	mux := http.NewServeMux()
	mux.HandleFunc(s.path, s.handleViewer)

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.port),
		Handler: mux,
	}
	s.shutdown = make(chan struct{})
	s.wg = &sync.WaitGroup{}
	s.viewerWg = &sync.WaitGroup{}
	s.running = true
	s.startTime = time.Now()
	s.mu.Unlock()

	s.wg.Add(2)
	go s.run()
	go s.pingViewers(ctx)

	s.logger.Info("viewer server started", "port", s.port, "path", s.path)
	return nil
}

func (s *Server) run() {
	defer s.wg.Done()

	s.mu.RLock()
	server := s.server
	s.mu.RUnlock()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		s.errCount.Add(1)
		s.logger.Error("viewer server failed", "error", err)
	}
}

// pingViewers keeps connections alive and prunes dead ones
func (s *Server) pingViewers(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.shutdown:
			return
		case <-ticker.C:
			s.registry.mu.RLock()
			viewers := make(map[string]Sender, len(s.registry.viewers))
			for id, viewer := range s.registry.viewers {
				viewers[id] = viewer
			}
			s.registry.mu.RUnlock()

			for id, viewer := range viewers {
				wv, ok := viewer.(*wsViewer)
				if !ok {
					continue
				}
				if err := wv.ping(); err != nil {
					_ = wv.Close()
					s.registry.Unregister(id)
				}
			}
		}
	}
}

// Stop shuts the server down, disconnecting all viewers
func (s *Server) Stop(timeout time.Duration) error {
	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()

	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.shutdown)
	server := s.server
	wg := s.wg
	viewerWg := s.viewerWg
	s.mu.Unlock()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("viewer server shutdown", "error", err)
	}

	s.registry.CloseAll()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		viewerWg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		s.logger.Warn("viewer server goroutines did not exit in time")
	}

	s.logger.Info("viewer server stopped", "port", s.port)
	return nil
}

// handleViewer upgrades a connection and keeps it registered until the
// read loop observes a close or timeout. Viewers only receive; anything
// they send is discarded, but the read loop doubles as liveness detection.
func (s *Server) handleViewer(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.errCount.Add(1)
		s.logger.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	viewer := &wsViewer{conn: conn}

	// Websocket connections are hijacked, so server.Shutdown does not fence
	// them. Admit the read loop into viewerWg only while still running;
	// an upgrade that lands after Stop began is closed immediately.
	s.mu.RLock()
	if !s.running {
		s.mu.RUnlock()
		_ = viewer.Close()
		return
	}
	viewerWg := s.viewerWg
	viewerWg.Add(1)
	s.mu.RUnlock()

	id := s.registry.Register(viewer)
	s.connections.Add(1)
	s.logger.Info("viewer connected", "viewer_id", id, "remote", r.RemoteAddr)

	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongTimeout))
	})

	go s.readLoop(conn, viewer, id, viewerWg)
}

func (s *Server) readLoop(conn *websocket.Conn, viewer *wsViewer, id string, wg *sync.WaitGroup) {
	defer wg.Done()
	defer func() {
		s.registry.Unregister(id)
		_ = viewer.Close()
		s.logger.Info("viewer disconnected", "viewer_id", id)
	}()

	for {
		select {
		case <-s.shutdown:
			return
		default:
		}

		_ = conn.SetReadDeadline(time.Now().Add(pongTimeout))
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
