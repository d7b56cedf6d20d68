// Package auralink is the backend service for the AuraLink ambient display,
// an ESP32 desk device that renders sensor readings, AI-generated quotes,
// email summaries and an urgency LED.
//
// # Architecture
//
// The service sits between the device's MQTT topics and an OpenAI-compatible
// chat-completion backend, with a WebSocket fan-out for browser viewers:
//
//	┌──────────┐  auralink/sensor/data   ┌──────────────┐
//	│  ESP32   │ ───────────────────────→ │   Pipeline   │
//	│  device  │                          │ (worker pool)│
//	└──────────┘                          └──────┬───────┘
//	     ↑                                       │
//	     │ auralink/display/quote                │ enrichment calls
//	     │ auralink/display/summary              ↓
//	     │ auralink/urgency/led           ┌──────────────┐
//	     └────────────────────────────────│  Enrichment  │
//	                                      │  (OpenAI)    │
//	                                      └──────────────┘
//	          ┌──────────────┐
//	          │    Fanout    │ ← every reading and enrichment result
//	          │  (WebSocket) │   is also broadcast to connected viewers
//	          └──────────────┘
//
// Each sensor reading fans out into three independent enrichment branches:
// a weather-flavored quote from the raw reading, and a summary plus an
// urgency classification derived from the next mock email. The quote branch
// runs in parallel with the email branches; a failure in one branch never
// blocks the others.
//
// # Packages
//
// Core flow:
//   - pipeline: reading intake, worker pool, branch orchestration
//   - enrichment: OpenAI chat-completion client (quote, summary, urgency)
//   - email: rotating mock inbox feeding the summary and urgency branches
//   - fanout: viewer registry and WebSocket lifecycle server
//
// Transport and ingress:
//   - mqttclient: MQTT connection management with reconnect replay
//   - gateway: HTTP ingress (POST /data), health and metrics endpoints
//
// Infrastructure:
//   - component: component lifecycle contracts
//   - config: configuration loading and validation
//   - message: topics, sensor payloads, broadcast events, thresholds
//   - metric: Prometheus metrics registry
//   - errors: classified error handling
//   - pkg/worker: bounded worker pools
//
// # Binary
//
// Build and run the backend:
//
//	go build -o bin/auralink ./cmd/auralink
//
//	# defaults: public test broker, viewer socket on :8765
//	OPENAI_API_KEY=sk-... ./bin/auralink
//
//	# explicit config file
//	./bin/auralink -config configs/auralink.json
//
// The process connects to the broker, subscribes to the sensor topic,
// serves viewers, and shuts down cleanly on SIGINT/SIGTERM.
package auralink
