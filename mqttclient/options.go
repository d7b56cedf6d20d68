package mqttclient

import (
	"log/slog"
	"time"
)

// ClientOption is a functional option for configuring the Client
type ClientOption func(*Client) error

// WithCredentials sets username/password authentication for the broker
func WithCredentials(username, password string) ClientOption {
	return func(c *Client) error {
		c.username = username
		c.password = password
		return nil
	}
}

// WithConnectTimeout sets the timeout for the initial broker connection
func WithConnectTimeout(d time.Duration) ClientOption {
	return func(c *Client) error {
		c.connectTimeout = d
		return nil
	}
}

// WithPublishTimeout sets the maximum time to wait for a publish acknowledgement
func WithPublishTimeout(d time.Duration) ClientOption {
	return func(c *Client) error {
		c.publishTimeout = d
		return nil
	}
}

// WithKeepAlive sets the MQTT keep-alive interval
func WithKeepAlive(d time.Duration) ClientOption {
	return func(c *Client) error {
		c.keepAlive = d
		return nil
	}
}

// WithMaxReconnectInterval caps the backoff between reconnection attempts
func WithMaxReconnectInterval(d time.Duration) ClientOption {
	return func(c *Client) error {
		c.maxReconnectInterval = d
		return nil
	}
}

// WithLogger sets a custom logger for the client
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) error {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger
		return nil
	}
}

// WithConnectCallback sets a callback invoked on every successful
// connection, including automatic reconnects
func WithConnectCallback(fn func()) ClientOption {
	return func(c *Client) error {
		c.onConnect = fn
		return nil
	}
}

// WithConnectionLostCallback sets a callback for lost broker connections
func WithConnectionLostCallback(fn func(error)) ClientOption {
	return func(c *Client) error {
		c.onConnectionLost = fn
		return nil
	}
}
