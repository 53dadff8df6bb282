// Package bus provides pub/sub messaging between components using
// embedded NATS
package bus

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
)

// SubjectAlertPrefix namespaces alert fan-out subjects; the alert type is
// appended ("alerts.camera_offline").
const SubjectAlertPrefix = "alerts."

// Bus wraps an embedded NATS server and a client connection
type Bus struct {
	server *server.Server
	conn   *nats.Conn
	logger *slog.Logger

	subs   []*nats.Subscription
	subsMu sync.Mutex
}

// Config configures the embedded bus
type Config struct {
	// Host for the NATS server (default: 127.0.0.1)
	Host string
	// Port for the NATS server (0 lets the OS choose)
	Port int
}

// New starts an embedded NATS server and connects to it
func New(cfg Config, logger *slog.Logger) (*Bus, error) {
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == 0 {
		cfg.Port = server.RANDOM_PORT
	}

	opts := &server.Options{
		Host:   cfg.Host,
		Port:   cfg.Port,
		NoSigs: true,
		NoLog:  true,
	}

	ns, err := server.NewServer(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create NATS server: %w", err)
	}

	go ns.Start()

	if !ns.ReadyForConnections(2 * time.Second) {
		ns.Shutdown()
		return nil, fmt.Errorf("NATS server not ready after 2 seconds")
	}

	nc, err := nats.Connect(ns.ClientURL())
	if err != nil {
		ns.Shutdown()
		return nil, fmt.Errorf("failed to connect to embedded NATS: %w", err)
	}

	b := &Bus{
		server: ns,
		conn:   nc,
		logger: logger.With("component", "bus"),
	}
	b.logger.Info("Message bus started", "url", ns.ClientURL())
	return b, nil
}

// Publish marshals data to JSON and publishes it on a subject
func (b *Bus) Publish(subject string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}
	return b.conn.Publish(subject, payload)
}

// Subscribe registers a handler for a subject. Wildcards follow NATS
// semantics ("alerts.>" receives every alert type).
func (b *Bus) Subscribe(subject string, handler func(*nats.Msg)) (*nats.Subscription, error) {
	sub, err := b.conn.Subscribe(subject, handler)
	if err != nil {
		return nil, err
	}
	b.subsMu.Lock()
	b.subs = append(b.subs, sub)
	b.subsMu.Unlock()
	return sub, nil
}

// Stop drains the connection and shuts the server down
func (b *Bus) Stop() {
	_ = b.conn.Drain()
	b.server.Shutdown()
	b.logger.Info("Message bus stopped")
}
