package testutil

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/roach88/huntql/internal/ir"
)

// FakeSource is an in-memory schema source that counts reads and can be
// switched between content and failure at runtime.
//
// It satisfies schema.Source.
//
// Thread-safety: all methods are safe for concurrent use.
type FakeSource struct {
	name  string
	reads atomic.Int64

	mu      sync.Mutex
	content ir.SchemaContent
	err     error

	// gate, when non-nil, blocks Read until it is closed.
	gate chan struct{}
}

// NewFakeSource creates a source serving content.
func NewFakeSource(name string, content ir.SchemaContent) *FakeSource {
	return &FakeSource{name: name, content: content}
}

// Name returns the source name.
func (s *FakeSource) Name() string { return s.name }

// Read returns the current content or the configured error.
func (s *FakeSource) Read(ctx context.Context) (ir.SchemaContent, error) {
	s.reads.Add(1)

	s.mu.Lock()
	gate := s.gate
	s.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ir.SchemaContent{}, ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return ir.SchemaContent{}, s.err
	}
	return s.content, nil
}

// Set replaces the content and clears any configured error.
func (s *FakeSource) Set(content ir.SchemaContent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.content = content
	s.err = nil
}

// Fail makes subsequent reads return err.
func (s *FakeSource) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Block makes subsequent reads wait until the returned release function is
// called. Used to hold concurrent loads in flight.
func (s *FakeSource) Block() (release func()) {
	gate := make(chan struct{})
	s.mu.Lock()
	s.gate = gate
	s.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			s.gate = nil
			s.mu.Unlock()
			close(gate)
		})
	}
}

// Reads returns the number of Read calls.
func (s *FakeSource) Reads() int64 { return s.reads.Load() }
