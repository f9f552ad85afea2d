// Package audit publishes key mutation events to NATS so other services can
// follow what operators change through the admin UI. Publishing is optional;
// without a NATS URL a no-op publisher is used.
package audit

import (
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// NATS subjects for mutation events.
const (
	SubjectSet    = "kvadmin.audit.set"
	SubjectDelete = "kvadmin.audit.delete"
)

// Action names the mutation.
type Action string

const (
	ActionSet    Action = "set"
	ActionDelete Action = "delete"
)

// Subject returns the NATS subject events of this action are published on.
func (a Action) Subject() string {
	if a == ActionDelete {
		return SubjectDelete
	}
	return SubjectSet
}

// Event describes one mutation. Endpoint is host:port plus the username,
// never the password.
type Event struct {
	Action    Action    `json:"action"`
	SessionID string    `json:"session_id"`
	Endpoint  string    `json:"endpoint"`
	Key       string    `json:"key"`
	Type      string    `json:"type,omitempty"`
	Existed   *bool     `json:"existed,omitempty"`
	Time      time.Time `json:"time"`
}

// Encode renders e as JSON.
func (e Event) Encode() ([]byte, error) {
	data, err := sonic.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("audit: encode %s event: %w", e.Action, err)
	}
	return data, nil
}

// Publisher emits mutation events.
type Publisher interface {
	Publish(e Event) error
	Close()
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(Event) error { return nil }
func (Nop) Close()              {}

// conn is the subset of *nats.Conn the publisher needs.
type conn interface {
	Publish(subject string, data []byte) error
	Drain() error
}

// NATSPublisher publishes events as JSON on the action's subject.
type NATSPublisher struct {
	conn conn
	log  zerolog.Logger
}

// NATSConfig holds NATS connection settings.
type NATSConfig struct {
	URL           string
	Name          string
	ReconnectWait time.Duration
	MaxReconnects int // -1 for infinite
}

// DefaultNATSConfig returns defaults for url.
func DefaultNATSConfig(url string) NATSConfig {
	return NATSConfig{
		URL:           url,
		Name:          "kvadminer",
		ReconnectWait: 2 * time.Second,
		MaxReconnects: -1,
	}
}

// Connect dials NATS and returns a publisher on that connection.
func Connect(cfg NATSConfig, log zerolog.Logger) (*NATSPublisher, error) {
	log = log.With().Str("component", "audit").Logger()
	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn().Err(err).Msg("nats disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("nats reconnected")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("audit: nats connect: %w", err)
	}
	log.Info().Str("url", nc.ConnectedUrl()).Msg("nats connected")
	return &NATSPublisher{conn: nc, log: log}, nil
}

// Publish sends e. Publishing is asynchronous in the NATS client, so an
// error here means the event could not be buffered.
func (p *NATSPublisher) Publish(e Event) error {
	if e.Time.IsZero() {
		e.Time = time.Now().UTC()
	}
	data, err := e.Encode()
	if err != nil {
		return err
	}
	if err := p.conn.Publish(e.Action.Subject(), data); err != nil {
		return fmt.Errorf("audit: publish %s: %w", e.Action.Subject(), err)
	}
	return nil
}

// Close flushes pending events and closes the connection.
func (p *NATSPublisher) Close() {
	if err := p.conn.Drain(); err != nil {
		p.log.Warn().Err(err).Msg("nats drain")
	}
}
