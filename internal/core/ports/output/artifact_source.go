package ports

import (
	"context"
	"io"
)

// ArtifactSource opens artifact bytes by location. Implementations wrap
// read failures in domain.ErrIOUnavailable.
type ArtifactSource interface {
	Open(ctx context.Context, location string) (io.ReadCloser, error)
}

// EventPublisher emits integrity events. Publishing is best effort.
type EventPublisher interface {
	Publish(ctx context.Context, subject string, payload any) error
	Close() error
}
