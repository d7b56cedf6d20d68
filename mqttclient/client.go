// Package mqttclient provides a client for managing MQTT broker connections
// with automatic resubscription after reconnects.
package mqttclient

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/IT22277190/AuraLink-group55/errors"
)

// ConnectionStatus represents the state of the broker connection
type ConnectionStatus int

// Possible connection statuses
const (
	StatusDisconnected ConnectionStatus = iota
	StatusConnecting
	StatusConnected
	StatusReconnecting
)

// String returns the string representation of ConnectionStatus
func (s ConnectionStatus) String() string {
	switch s {
	case StatusDisconnected:
		return "disconnected"
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusReconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}

// MessageHandler processes an inbound message for a subscribed topic.
// Handlers must not block; slow consumers stall the paho router.
type MessageHandler func(topic string, payload []byte)

// subscription records an active subscription so it can be replayed
// after an automatic reconnect
type subscription struct {
	qos     byte
	handler MessageHandler
}

// Client manages an MQTT broker connection. Subscriptions registered
// through Subscribe survive reconnects: the client replays them on
// every successful connection.
type Client struct {
	url      string
	clientID string
	username string
	password string

	status     atomic.Value // stores ConnectionStatus
	reconnects atomic.Int32
	logger     *slog.Logger

	conn mqtt.Client
	mu   sync.RWMutex

	subs   map[string]subscription
	subsMu sync.RWMutex

	connectTimeout       time.Duration
	publishTimeout       time.Duration
	keepAlive            time.Duration
	maxReconnectInterval time.Duration

	onConnect        func()
	onConnectionLost func(error)

	closed atomic.Bool
}

// NewClient creates a new MQTT client with optional configuration
func NewClient(url, clientID string, opts ...ClientOption) (*Client, error) {
	if url == "" {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "Client", "NewClient", "broker URL required")
	}
	if clientID == "" {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "Client", "NewClient", "client ID required")
	}

	c := &Client{
		url:                  url,
		clientID:             clientID,
		logger:               slog.Default(),
		subs:                 make(map[string]subscription),
		connectTimeout:       10 * time.Second,
		publishTimeout:       5 * time.Second,
		keepAlive:            30 * time.Second,
		maxReconnectInterval: time.Minute,
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, errors.WrapInvalid(err, "Client", "NewClient", "apply option")
		}
	}

	c.status.Store(StatusDisconnected)

	return c, nil
}

// URL returns the broker URL
func (c *Client) URL() string {
	return c.url
}

// ClientID returns the MQTT client identifier
func (c *Client) ClientID() string {
	return c.clientID
}

// Status returns the current connection status
func (c *Client) Status() ConnectionStatus {
	val := c.status.Load()
	if val == nil {
		return StatusDisconnected
	}
	return val.(ConnectionStatus)
}

// IsHealthy returns true if the broker connection is up
func (c *Client) IsHealthy() bool {
	return c.Status() == StatusConnected
}

// Reconnects returns the number of automatic reconnections so far
func (c *Client) Reconnects() int32 {
	return c.reconnects.Load()
}

func (c *Client) setStatus(status ConnectionStatus) {
	c.status.Store(status)
}

// BuildOptions builds paho client options from the client configuration
func (c *Client) BuildOptions() *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions().
		AddBroker(c.url).
		SetClientID(c.clientID).
		SetKeepAlive(c.keepAlive).
		SetConnectTimeout(c.connectTimeout).
		SetAutoReconnect(true).
		SetMaxReconnectInterval(c.maxReconnectInterval).
		SetOnConnectHandler(c.handleConnect).
		SetConnectionLostHandler(c.handleConnectionLost).
		SetReconnectingHandler(c.handleReconnecting)

	if c.username != "" {
		opts.SetUsername(c.username)
		opts.SetPassword(c.password)
	}

	return opts
}

// Connect establishes the broker connection. It blocks until the broker
// acknowledges the connection, the configured connect timeout elapses, or
// ctx is cancelled. A failed initial connection is fatal; callers decide
// whether to retry or abort startup.
func (c *Client) Connect(ctx context.Context) error {
	if c.closed.Load() {
		return errors.Wrap(errors.ErrShuttingDown, "Client", "Connect", "connect")
	}

	c.mu.Lock()
	if c.conn != nil {
		c.mu.Unlock()
		return errors.WrapInvalid(errors.ErrAlreadyStarted, "Client", "Connect", "connect")
	}
	c.setStatus(StatusConnecting)
	conn := mqtt.NewClient(c.BuildOptions())
	c.conn = conn
	c.mu.Unlock()

	c.logger.Info("connecting to MQTT broker", "url", c.url, "client_id", c.clientID)

	token := conn.Connect()
	select {
	case <-ctx.Done():
		c.teardown()
		return errors.WrapTransient(
			fmt.Errorf("%w: %w", errors.ErrConnectionTimeout, ctx.Err()),
			"Client", "Connect", "wait for broker")
	case <-token.Done():
	}
	if err := token.Error(); err != nil {
		c.teardown()
		return errors.WrapFatal(
			fmt.Errorf("broker %s: %w", c.url, err),
			"Client", "Connect", "connect")
	}

	return nil
}

// teardown discards a failed or abandoned connection attempt
func (c *Client) teardown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		c.conn.Disconnect(0)
		c.conn = nil
	}
	c.setStatus(StatusDisconnected)
}

// Subscribe registers a handler for topic. If the client is connected the
// subscription is sent to the broker immediately; either way it is recorded
// and replayed after every reconnect.
func (c *Client) Subscribe(topic string, qos byte, handler MessageHandler) error {
	if topic == "" {
		return errors.WrapInvalid(errors.ErrInvalidData, "Client", "Subscribe", "empty topic")
	}
	if handler == nil {
		return errors.WrapInvalid(errors.ErrInvalidData, "Client", "Subscribe", "nil handler")
	}

	c.subsMu.Lock()
	c.subs[topic] = subscription{qos: qos, handler: handler}
	c.subsMu.Unlock()

	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()

	if conn == nil || !conn.IsConnectionOpen() {
		// Deferred until handleConnect replays the subscription set.
		return nil
	}

	return c.sendSubscribe(conn, topic, qos, handler)
}

func (c *Client) sendSubscribe(conn mqtt.Client, topic string, qos byte, handler MessageHandler) error {
	token := conn.Subscribe(topic, qos, func(_ mqtt.Client, msg mqtt.Message) {
		handler(msg.Topic(), msg.Payload())
	})
	if !token.WaitTimeout(c.publishTimeout) {
		return errors.WrapTransient(
			fmt.Errorf("%w: topic %s", errors.ErrSubscriptionFailed, topic),
			"Client", "Subscribe", "wait for suback")
	}
	if err := token.Error(); err != nil {
		return errors.WrapTransient(
			fmt.Errorf("%w: topic %s: %w", errors.ErrSubscriptionFailed, topic, err),
			"Client", "Subscribe", "subscribe")
	}
	return nil
}

// Publish sends payload to topic at QoS 0 and waits for the client to
// hand it off, bounded by the publish timeout
func (c *Client) Publish(topic string, payload []byte) error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()

	if conn == nil || !conn.IsConnectionOpen() {
		return errors.WrapTransient(
			fmt.Errorf("%w: topic %s", errors.ErrNotConnected, topic),
			"Client", "Publish", "publish")
	}

	token := conn.Publish(topic, 0, false, payload)
	if !token.WaitTimeout(c.publishTimeout) {
		return errors.WrapTransient(
			fmt.Errorf("%w: topic %s", errors.ErrPublishTimeout, topic),
			"Client", "Publish", "wait for handoff")
	}
	if err := token.Error(); err != nil {
		return errors.WrapTransient(
			fmt.Errorf("topic %s: %w", topic, err),
			"Client", "Publish", "publish")
	}
	return nil
}

// Disconnect closes the broker connection, allowing up to timeout for
// in-flight work to complete. Safe to call more than once.
func (c *Client) Disconnect(timeout time.Duration) {
	if !c.closed.CompareAndSwap(false, true) {
		return
	}

	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn != nil && conn.IsConnected() {
		conn.Disconnect(uint(timeout.Milliseconds()))
	}
	c.setStatus(StatusDisconnected)
	c.logger.Info("disconnected from MQTT broker", "url", c.url)
}

// handleConnect runs on every successful connection, including automatic
// reconnects, and replays the recorded subscription set
func (c *Client) handleConnect(conn mqtt.Client) {
	c.setStatus(StatusConnected)

	c.subsMu.RLock()
	subs := make(map[string]subscription, len(c.subs))
	for topic, sub := range c.subs {
		subs[topic] = sub
	}
	c.subsMu.RUnlock()

	for topic, sub := range subs {
		if err := c.sendSubscribe(conn, topic, sub.qos, sub.handler); err != nil {
			c.logger.Error("resubscribe failed", "topic", topic, "error", err)
		}
	}

	c.logger.Info("MQTT connection established", "url", c.url, "subscriptions", len(subs))

	if c.onConnect != nil {
		c.onConnect()
	}
}

func (c *Client) handleConnectionLost(_ mqtt.Client, err error) {
	c.setStatus(StatusDisconnected)
	c.logger.Warn("MQTT connection lost", "url", c.url, "error", err)

	if c.onConnectionLost != nil {
		c.onConnectionLost(fmt.Errorf("%w: %w", errors.ErrConnectionLost, err))
	}
}

func (c *Client) handleReconnecting(_ mqtt.Client, _ *mqtt.ClientOptions) {
	c.setStatus(StatusReconnecting)
	c.reconnects.Add(1)
	c.logger.Info("reconnecting to MQTT broker", "url", c.url, "attempt", c.reconnects.Load())
}
