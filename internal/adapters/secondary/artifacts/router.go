// Package artifacts opens artifact bytes from local disk, HTTP(S) and
// Google Cloud Storage.
package artifacts

import (
	"context"
	"fmt"
	"io"
	"strings"

	"ai-bom-service/internal/core/domain"
	ports "ai-bom-service/internal/core/ports/output"
)

// Router dispatches a location to the source registered for its scheme.
// Locations without a scheme are local paths.
type Router struct {
	sources map[string]ports.ArtifactSource
}

var _ ports.ArtifactSource = (*Router)(nil)

func NewRouter() *Router {
	return &Router{sources: make(map[string]ports.ArtifactSource)}
}

// Handle registers src for the given schemes ("file", "http", "gs", ...).
func (r *Router) Handle(src ports.ArtifactSource, schemes ...string) *Router {
	for _, s := range schemes {
		r.sources[strings.ToLower(s)] = src
	}
	return r
}

func (r *Router) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	scheme := Scheme(location)
	src, ok := r.sources[scheme]
	if !ok {
		return nil, &domain.IOError{Location: location, Err: fmt.Errorf("no artifact source for scheme %q", scheme)}
	}
	return src.Open(ctx, location)
}

// Scheme returns the lower-cased URI scheme of location, or "file".
func Scheme(location string) string {
	scheme, _, ok := strings.Cut(location, "://")
	if !ok || scheme == "" || strings.ContainsAny(scheme, `/\`) {
		return "file"
	}
	return strings.ToLower(scheme)
}
