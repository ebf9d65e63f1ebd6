package ports

import (
	"context"
)

// KServeModelSource is a model artifact referenced by a KServe
// InferenceService predictor.
type KServeModelSource struct {
	Namespace    string
	Name         string
	UID          string
	StorageURI   string
	ModelFormat  string
	RuntimeImage string
	Labels       map[string]string
}

// KServeClient defines the contract for KServe/K8s discovery
type KServeClient interface {
	// ListModelSources lists InferenceServices and their storage URIs
	ListModelSources(ctx context.Context, namespace string) ([]KServeModelSource, error)

	// IsAvailable checks if KServe integration is enabled and configured
	IsAvailable() bool
}
