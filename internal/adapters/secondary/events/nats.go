// Package events publishes integrity events to NATS.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"

	"ai-bom-service/internal/core/domain"
	ports "ai-bom-service/internal/core/ports/output"
)

// Envelope wraps every published payload.
type Envelope struct {
	Subject   string          `json:"subject"`
	Actor     string          `json:"actor"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

type conn interface {
	Publish(subject string, data []byte) error
	Drain() error
}

// Publisher sends events over core NATS (fire and forget).
type Publisher struct {
	nc     conn
	prefix string
}

var _ ports.EventPublisher = (*Publisher)(nil)

func Connect(url, prefix string) (*Publisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("ai-bom-service"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.WithError(err).Warn("nats disconnected")
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.WithField("url", c.ConnectedUrl()).Info("nats reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return newPublisher(nc, prefix), nil
}

func newPublisher(nc conn, prefix string) *Publisher {
	return &Publisher{nc: nc, prefix: prefix}
}

// Subject returns the fully qualified subject for a relative one.
func (p *Publisher) Subject(subject string) string {
	if p.prefix == "" {
		return subject
	}
	return p.prefix + "." + subject
}

func (p *Publisher) Publish(ctx context.Context, subject string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode event payload: %w", err)
	}
	full := p.Subject(subject)
	msg, err := json.Marshal(Envelope{
		Subject:   full,
		Actor:     domain.ActorFromContext(ctx),
		Timestamp: time.Now().UTC(),
		Data:      data,
	})
	if err != nil {
		return fmt.Errorf("encode event envelope: %w", err)
	}
	if err := p.nc.Publish(full, msg); err != nil {
		return fmt.Errorf("publish %s: %w", full, err)
	}
	return nil
}

// Close drains pending messages and closes the connection.
func (p *Publisher) Close() error {
	return p.nc.Drain()
}
