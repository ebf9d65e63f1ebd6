package artifacts

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"ai-bom-service/internal/core/domain"
)

// HTTPSource streams artifacts over HTTP(S) GET.
type HTTPSource struct {
	client *http.Client
}

func NewHTTPSource(timeout time.Duration) *HTTPSource {
	return &HTTPSource{client: &http.Client{Timeout: timeout}}
}

func (s *HTTPSource) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, &domain.IOError{Location: location, Err: err}
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &domain.IOError{Location: location, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, &domain.IOError{Location: location, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}
	return resp.Body, nil
}
