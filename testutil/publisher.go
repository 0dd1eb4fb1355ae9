package testutil

import (
	"fmt"
	"sync"
)

// MockPublisher is an in-memory stand-in for a NATS connection's Publish.
// Thread-safe for concurrent use from multiple goroutines.
type MockPublisher struct {
	mu       sync.RWMutex
	messages map[string][][]byte
	subjects []string
	err      error
	notify   chan struct{}
}

// NewMockPublisher creates a new mock publisher
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{
		messages: make(map[string][][]byte),
		notify:   make(chan struct{}, 1),
	}
}

// FailWith makes every later Publish return err
func (p *MockPublisher) FailWith(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

// Publish records data under subject
func (p *MockPublisher) Publish(subject string, data []byte) error {
	p.mu.Lock()
	if p.err != nil {
		err := p.err
		p.mu.Unlock()
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	p.messages[subject] = append(p.messages[subject], append([]byte(nil), data...))
	p.subjects = append(p.subjects, subject)
	p.mu.Unlock()

	select {
	case p.notify <- struct{}{}:
	default:
	}
	return nil
}

// GetMessages returns all messages for a subject
func (p *MockPublisher) GetMessages(subject string) [][]byte {
	p.mu.RLock()
	defer p.mu.RUnlock()

	msgs := p.messages[subject]
	result := make([][]byte, len(msgs))
	copy(result, msgs)
	return result
}

// Subjects returns every subject published to, in publish order
func (p *MockPublisher) Subjects() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]string(nil), p.subjects...)
}

// Count returns the total number of messages published
func (p *MockPublisher) Count() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.subjects)
}

// Notify is signalled after each successful publish
func (p *MockPublisher) Notify() <-chan struct{} {
	return p.notify
}
