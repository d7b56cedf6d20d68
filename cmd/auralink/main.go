// Package main implements the entry point for the AuraLink backend.
// The backend bridges an ESP32 ambience device and a generative-text
// backend: sensor readings arrive over MQTT, are enriched with quotes,
// email summaries and urgency levels, and the results are published back
// to the device and streamed to WebSocket viewers.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/IT22277190/AuraLink-group55/component"
	"github.com/IT22277190/AuraLink-group55/config"
	"github.com/IT22277190/AuraLink-group55/email"
	"github.com/IT22277190/AuraLink-group55/enrichment"
	"github.com/IT22277190/AuraLink-group55/fanout"
	"github.com/IT22277190/AuraLink-group55/gateway"
	"github.com/IT22277190/AuraLink-group55/metric"
	"github.com/IT22277190/AuraLink-group55/mqttclient"
	"github.com/IT22277190/AuraLink-group55/pipeline"
)

// Build information constants
const (
	Version = "1.0.0"
	appName = "auralink"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(); err != nil {
		slog.Error("application failed", "error", err, "exit_code", 1)
		os.Exit(1)
	}
}

func run() error {
	cliCfg := parseFlags()
	if err := validateFlags(cliCfg); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	if cliCfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil
	}
	if cliCfg.ShowHelp {
		printDetailedHelp()
		return nil
	}

	logger := setupLogger(cliCfg.LogLevel, cliCfg.LogFormat)
	slog.SetDefault(logger)

	slog.Info("starting AuraLink backend",
		"version", Version,
		"config_path", cliCfg.ConfigPath)

	cfg, err := config.Load(cliCfg.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cliCfg.Validate {
		slog.Info("configuration is valid")
		return nil
	}

	return runWithSignalHandling(cfg, cliCfg, logger)
}

// runWithSignalHandling assembles the components, runs them until a
// shutdown signal arrives, then stops them in reverse start order
func runWithSignalHandling(cfg *config.Config, cliCfg *CLIConfig, logger *slog.Logger) error {
	signalCtx, signalCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer signalCancel()

	metricsRegistry := metric.NewMetricsRegistry()

	broker, err := connectBroker(signalCtx, cfg, logger)
	if err != nil {
		return err
	}
	defer broker.Disconnect(cliCfg.ShutdownTimeout)

	components, err := buildComponents(cfg, broker, metricsRegistry, logger)
	if err != nil {
		return err
	}

	started := make([]component.LifecycleComponent, 0, len(components))
	for _, c := range components {
		if err := c.Initialize(); err != nil {
			return fmt.Errorf("initialize %s: %w", c.Meta().Name, err)
		}
		if err := c.Start(signalCtx); err != nil {
			stopAll(started, cliCfg.ShutdownTimeout)
			return fmt.Errorf("start %s: %w", c.Meta().Name, err)
		}
		started = append(started, c)
		slog.Info("component started", "name", c.Meta().Name)
	}

	slog.Info("AuraLink backend running",
		"broker", cfg.Broker.URL,
		"viewer_port", cfg.Viewer.Port,
		"gateway_enabled", cfg.Gateway.Enabled)

	<-signalCtx.Done()
	slog.Info("received shutdown signal")

	stopAll(started, cliCfg.ShutdownTimeout)
	slog.Info("AuraLink backend shutdown complete")
	return nil
}

// connectBroker creates the MQTT client and establishes the initial
// connection. Failure here is fatal; the device topics are the product.
func connectBroker(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*mqttclient.Client, error) {
	opts := []mqttclient.ClientOption{
		mqttclient.WithLogger(logger),
	}
	if cfg.Broker.Username != "" {
		opts = append(opts, mqttclient.WithCredentials(cfg.Broker.Username, cfg.Broker.Password))
	}

	broker, err := mqttclient.NewClient(cfg.Broker.URL, cfg.Broker.ClientID, opts...)
	if err != nil {
		return nil, fmt.Errorf("create MQTT client: %w", err)
	}

	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := broker.Connect(connectCtx); err != nil {
		return nil, fmt.Errorf("connect to broker %s: %w", cfg.Broker.URL, err)
	}
	return broker, nil
}

// buildComponents wires the pipeline, viewer server and gateway in their
// start order
func buildComponents(cfg *config.Config, broker *mqttclient.Client,
	metricsRegistry *metric.MetricsRegistry, logger *slog.Logger) ([]component.LifecycleComponent, error) {

	enricher, err := enrichment.NewClient(enrichment.Config{
		BaseURL:   cfg.Enrichment.BaseURL,
		APIKey:    cfg.Enrichment.APIKey,
		Model:     cfg.Enrichment.Model,
		Timeout:   cfg.Enrichment.Timeout(),
		RateLimit: cfg.Enrichment.RateLimit,
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create enrichment client: %w", err)
	}

	emails := email.NewSource()
	if cfg.Email.PoolFile != "" {
		emails, err = email.NewSourceFromFile(cfg.Email.PoolFile)
		if err != nil {
			return nil, fmt.Errorf("load email pool %s: %w", cfg.Email.PoolFile, err)
		}
	}

	registry := fanout.NewRegistry(fanout.WithRegistryMetrics(metricsRegistry))
	viewerServer := fanout.NewServer(cfg.Viewer.Port, cfg.Viewer.Path, registry, logger)

	pipe, err := pipeline.New(pipeline.Config{
		Publisher:   broker,
		Subscriber:  broker,
		Enricher:    enricher,
		Broadcaster: registry,
		Emails:      emails,
		Workers:     cfg.Pipeline.Workers,
		QueueSize:   cfg.Pipeline.QueueSize,
		Logger:      logger,
		Metrics:     metricsRegistry,
	})
	if err != nil {
		return nil, fmt.Errorf("create pipeline: %w", err)
	}

	components := []component.LifecycleComponent{viewerServer, pipe}

	if cfg.Gateway.Enabled {
		gw := gateway.NewServer(cfg.Gateway.Port, pipe, metricsRegistry.Handler(),
			[]component.Component{pipe, viewerServer}, logger)
		components = append(components, gw)
	}

	return components, nil
}

// stopAll stops components in reverse start order
func stopAll(components []component.LifecycleComponent, timeout time.Duration) {
	for i := len(components) - 1; i >= 0; i-- {
		c := components[i]
		if err := c.Stop(timeout); err != nil {
			slog.Error("component stop failed", "name", c.Meta().Name, "error", err)
		} else {
			slog.Info("component stopped", "name", c.Meta().Name)
		}
	}
}
