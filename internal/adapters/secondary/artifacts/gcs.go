package artifacts

import (
	"context"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"ai-bom-service/internal/core/domain"
)

// GCSSource reads gs://bucket/object locations.
type GCSSource struct {
	client *storage.Client
}

// NewGCSSource creates a client from a service account key file, or from
// application default credentials when the path is empty.
func NewGCSSource(ctx context.Context, credentialsFile string) (*GCSSource, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create GCS storage client: %w", err)
	}
	return &GCSSource{client: client}, nil
}

func (s *GCSSource) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	bucket, object, err := ParseGCSLocation(location)
	if err != nil {
		return nil, &domain.IOError{Location: location, Err: err}
	}
	r, err := s.client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, &domain.IOError{Location: location, Err: err}
	}
	return r, nil
}

func (s *GCSSource) Close() error {
	return s.client.Close()
}

// ParseGCSLocation splits gs://bucket/path/to/object.
func ParseGCSLocation(location string) (bucket, object string, err error) {
	rest, ok := strings.CutPrefix(location, "gs://")
	if !ok {
		return "", "", fmt.Errorf("not a gs:// location: %q", location)
	}
	bucket, object, ok = strings.Cut(rest, "/")
	if !ok || bucket == "" || object == "" {
		return "", "", fmt.Errorf("gs location needs bucket and object: %q", location)
	}
	return bucket, object, nil
}
