package fanout

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IT22277190/AuraLink-group55/message"
)

func TestServer_Initialize(t *testing.T) {
	registry := NewRegistry()

	tests := []struct {
		name    string
		port    int
		path    string
		wantErr bool
	}{
		{"valid", 8081, "/ws", false},
		{"port too low", 80, "/ws", true},
		{"port too high", 70000, "/ws", true},
		{"empty path", 8081, "", true},
		{"path without slash", 8081, "ws", true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			server := NewServer(test.port, test.path, registry, nil)
			err := server.Initialize()
			if test.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestServer_Meta(t *testing.T) {
	server := NewServer(8081, "/ws", NewRegistry(), nil)
	meta := server.Meta()
	assert.Equal(t, "viewer-server-8081", meta.Name)
	assert.Equal(t, "output", meta.Type)
}

// newTestViewerServer wires a Server's handler into an httptest server so
// tests can dial real WebSocket connections without binding a fixed port
func newTestViewerServer(t *testing.T, registry *Registry) (*Server, *httptest.Server) {
	t.Helper()

	server := NewServer(8081, "/ws", registry, slog.Default())
	server.shutdown = make(chan struct{})
	server.wg = &sync.WaitGroup{}
	server.viewerWg = &sync.WaitGroup{}
	server.running = true

	ts := httptest.NewServer(http.HandlerFunc(server.handleViewer))
	t.Cleanup(func() {
		close(server.shutdown)
		registry.CloseAll()
		ts.Close()
	})
	return server, ts
}

func dialViewer(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestServer_ViewerReceivesBroadcast(t *testing.T) {
	registry := NewRegistry()
	_, ts := newTestViewerServer(t, registry)

	conn := dialViewer(t, ts)

	require.Eventually(t, func() bool {
		return registry.Count() == 1
	}, 2*time.Second, 10*time.Millisecond)

	event := message.NewSensorDataEvent(message.SensorReading{
		Temperature:  25.5,
		Humidity:     60,
		LightPercent: 40,
		NOxPercent:   10,
	})
	require.NoError(t, registry.Broadcast(event))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"type":"sensor_data","temperature":25.5,"humidity":60,"light_percent":40,"nox_percent":10}`,
		string(data))
}

func TestServer_MultipleViewers(t *testing.T) {
	registry := NewRegistry()
	_, ts := newTestViewerServer(t, registry)

	conn1 := dialViewer(t, ts)
	conn2 := dialViewer(t, ts)

	require.Eventually(t, func() bool {
		return registry.Count() == 2
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, registry.Broadcast(message.NewQuoteEvent("warm dusk settles")))

	for _, conn := range []*websocket.Conn{conn1, conn2} {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		assert.JSONEq(t,
			`{"type":"display_message","quote":"warm dusk settles","summary":""}`,
			string(data))
	}
}

func TestServer_RejectsViewerDuringShutdown(t *testing.T) {
	registry := NewRegistry()
	server, ts := newTestViewerServer(t, registry)

	// Simulate Stop in progress: running is cleared before the waitgroup
	// is waited on, so an upgrade landing now must not join it.
	server.mu.Lock()
	server.running = false
	server.mu.Unlock()

	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err, "connection is closed by the server")
	assert.Zero(t, registry.Count(), "late viewer is never registered")
}

func TestServer_StopWaitsForReadLoops(t *testing.T) {
	registry := NewRegistry()
	server, ts := newTestViewerServer(t, registry)

	dialViewer(t, ts)
	require.Eventually(t, func() bool {
		return registry.Count() == 1
	}, 2*time.Second, 10*time.Millisecond)

	server.mu.Lock()
	server.running = false
	viewerWg := server.viewerWg
	server.mu.Unlock()
	registry.CloseAll()

	done := make(chan struct{})
	go func() {
		viewerWg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("read loops did not exit after viewers were closed")
	}
}

func TestServer_DisconnectUnregisters(t *testing.T) {
	registry := NewRegistry()
	_, ts := newTestViewerServer(t, registry)

	conn := dialViewer(t, ts)
	require.Eventually(t, func() bool {
		return registry.Count() == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())

	require.Eventually(t, func() bool {
		return registry.Count() == 0
	}, 2*time.Second, 10*time.Millisecond)
}
