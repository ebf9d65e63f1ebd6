package testutil

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/stretchr/testify/mock"

	"ai-bom-service/internal/core/domain"
	ports "ai-bom-service/internal/core/ports/output"
)

// MockKServeClient is a mock of KServeClient.
type MockKServeClient struct {
	mock.Mock
}

func (m *MockKServeClient) ListModelSources(ctx context.Context, namespace string) ([]ports.KServeModelSource, error) {
	args := m.Called(ctx, namespace)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ports.KServeModelSource), args.Error(1)
}

func (m *MockKServeClient) IsAvailable() bool {
	args := m.Called()
	return args.Bool(0)
}

// MockPublisher is a mock of EventPublisher.
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, subject string, payload any) error {
	args := m.Called(ctx, subject, payload)
	return args.Error(0)
}

func (m *MockPublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MemorySource serves artifact bytes from memory. Locations listed in
// Unavailable fail with an IOError until cleared.
type MemorySource struct {
	mu          sync.Mutex
	objects     map[string][]byte
	failures    map[string]int
	opens       map[string]int
	unavailable map[string]bool
}

func NewMemorySource() *MemorySource {
	return &MemorySource{
		objects:     map[string][]byte{},
		failures:    map[string]int{},
		opens:       map[string]int{},
		unavailable: map[string]bool{},
	}
}

func (s *MemorySource) Put(location string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[location] = append([]byte(nil), data...)
}

// FailNext makes the next n opens of location fail.
func (s *MemorySource) FailNext(location string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[location] = n
}

func (s *MemorySource) SetUnavailable(location string, unavailable bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unavailable[location] = unavailable
}

// Opens reports how many times location was opened.
func (s *MemorySource) Opens(location string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opens[location]
}

func (s *MemorySource) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opens[location]++
	if s.unavailable[location] {
		return nil, &domain.IOError{Location: location, Err: fmt.Errorf("source offline")}
	}
	if s.failures[location] > 0 {
		s.failures[location]--
		return nil, &domain.IOError{Location: location, Err: fmt.Errorf("transient read failure")}
	}
	data, ok := s.objects[location]
	if !ok {
		return nil, &domain.IOError{Location: location, Err: fmt.Errorf("no such object")}
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

var (
	_ ports.KServeClient   = (*MockKServeClient)(nil)
	_ ports.EventPublisher = (*MockPublisher)(nil)
	_ ports.ArtifactSource = (*MemorySource)(nil)
)
