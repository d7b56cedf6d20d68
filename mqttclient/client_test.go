package mqttclient

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IT22277190/AuraLink-group55/errors"
)

func TestConnectionStatusString(t *testing.T) {
	tests := []struct {
		status ConnectionStatus
		want   string
	}{
		{StatusDisconnected, "disconnected"},
		{StatusConnecting, "connecting"},
		{StatusConnected, "connected"},
		{StatusReconnecting, "reconnecting"},
		{ConnectionStatus(99), "unknown"},
	}
	for _, test := range tests {
		assert.Equal(t, test.want, test.status.String())
	}
}

func TestNewClient_Validation(t *testing.T) {
	_, err := NewClient("", "client-1")
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))

	_, err = NewClient("tcp://localhost:1883", "")
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}

func TestNewClient_Defaults(t *testing.T) {
	client, err := NewClient("tcp://localhost:1883", "client-1")
	require.NoError(t, err)

	assert.Equal(t, "tcp://localhost:1883", client.URL())
	assert.Equal(t, "client-1", client.ClientID())
	assert.Equal(t, StatusDisconnected, client.Status())
	assert.False(t, client.IsHealthy())
	assert.Zero(t, client.Reconnects())
}

func TestNewClient_Options(t *testing.T) {
	client, err := NewClient("tcp://localhost:1883", "client-1",
		WithCredentials("user", "pass"),
		WithConnectTimeout(2*time.Second),
		WithPublishTimeout(time.Second),
		WithKeepAlive(15*time.Second),
		WithMaxReconnectInterval(30*time.Second),
	)
	require.NoError(t, err)

	opts := client.BuildOptions()
	require.Len(t, opts.Servers, 1)
	assert.Equal(t, "tcp://localhost:1883", opts.Servers[0].String())
	assert.Equal(t, "client-1", opts.ClientID)
	assert.Equal(t, "user", opts.Username)
	assert.Equal(t, "pass", opts.Password)
	assert.Equal(t, 2*time.Second, opts.ConnectTimeout)
	assert.Equal(t, int64(15), opts.KeepAlive)
	assert.Equal(t, 30*time.Second, opts.MaxReconnectInterval)
	assert.True(t, opts.AutoReconnect)
}

func TestSubscribe_RecordsBeforeConnect(t *testing.T) {
	client, err := NewClient("tcp://localhost:1883", "client-1")
	require.NoError(t, err)

	err = client.Subscribe("auralink/sensor/data", 0, func(string, []byte) {})
	require.NoError(t, err)

	client.subsMu.RLock()
	defer client.subsMu.RUnlock()
	_, ok := client.subs["auralink/sensor/data"]
	assert.True(t, ok, "subscription should be recorded for replay on connect")
}

func TestSubscribe_Validation(t *testing.T) {
	client, err := NewClient("tcp://localhost:1883", "client-1")
	require.NoError(t, err)

	err = client.Subscribe("", 0, func(string, []byte) {})
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))

	err = client.Subscribe("auralink/sensor/data", 0, nil)
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}

func TestPublish_NotConnected(t *testing.T) {
	client, err := NewClient("tcp://localhost:1883", "client-1")
	require.NoError(t, err)

	err = client.Publish("auralink/display/quote", []byte("hello"))
	require.Error(t, err)
	assert.True(t, errors.IsTransient(err))
	assert.True(t, stderrors.Is(err, errors.ErrNotConnected))
}

func TestConnect_AfterDisconnect(t *testing.T) {
	client, err := NewClient("tcp://localhost:1883", "client-1")
	require.NoError(t, err)

	client.Disconnect(time.Second)

	err = client.Connect(context.Background())
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrShuttingDown))
}

func TestDisconnect_Idempotent(t *testing.T) {
	client, err := NewClient("tcp://localhost:1883", "client-1")
	require.NoError(t, err)

	client.Disconnect(time.Second)
	client.Disconnect(time.Second)
	assert.Equal(t, StatusDisconnected, client.Status())
}
