package services

import (
	"context"

	log "github.com/sirupsen/logrus"

	ports "ai-bom-service/internal/core/ports/output"
)

// Event subjects, relative to the publisher's prefix.
const (
	SubjectComponentRegistered  = "component.registered"
	SubjectEdgeAdded            = "edge.added"
	SubjectEdgeRetracted        = "edge.retracted"
	SubjectSnapshotCreated      = "snapshot.created"
	SubjectVerificationMismatch = "verification.mismatch"
)

// NoopPublisher drops every event.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, string, any) error { return nil }
func (NoopPublisher) Close() error                               { return nil }

var _ ports.EventPublisher = NoopPublisher{}

func publish(ctx context.Context, pub ports.EventPublisher, subject string, payload any) {
	if pub == nil {
		return
	}
	if err := pub.Publish(ctx, subject, payload); err != nil {
		log.WithError(err).WithField("subject", subject).Warn("failed to publish event")
	}
}
