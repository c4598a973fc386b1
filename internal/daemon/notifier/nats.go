package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/grovetools/arcade/internal/daemon/store"
	"github.com/nats-io/nats.go"
)

// publisher is the part of *nats.Conn the sink uses.
type publisher interface {
	Publish(subject string, data []byte) error
	Close()
}

// NATS publishes notifications as JSON to <subject>.<kind>.
type NATS struct {
	conn    publisher
	subject string
}

// NATSConfig configures the NATS connection.
type NATSConfig struct {
	URL            string
	Subject        string
	ConnectTimeout time.Duration
}

// NewNATS connects to the server. The connection retries in the background
// so a NATS outage never blocks the daemon from starting.
func NewNATS(cfg NATSConfig) (*NATS, error) {
	if cfg.URL == "" {
		cfg.URL = nats.DefaultURL
	}
	if cfg.Subject == "" {
		cfg.Subject = "arcade.notifications"
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = 5 * time.Second
	}

	conn, err := nats.Connect(cfg.URL,
		nats.Name("arcaded"),
		nats.Timeout(cfg.ConnectTimeout),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return newNATS(conn, cfg.Subject), nil
}

func newNATS(conn publisher, subject string) *NATS {
	return &NATS{conn: conn, subject: subject}
}

func (n *NATS) Name() string { return "nats" }

// Notify publishes the notification.
func (n *NATS) Notify(_ context.Context, note store.Notification) error {
	data, err := json.Marshal(note)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	return n.conn.Publish(fmt.Sprintf("%s.%s", n.subject, note.Kind), data)
}

// Close closes the NATS connection.
func (n *NATS) Close() error {
	n.conn.Close()
	return nil
}
