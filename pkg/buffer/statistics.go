package buffer

import (
	"sync"
	"sync/atomic"
	"time"
)

// Statistics tracks queue activity. Always collected.
type Statistics struct {
	puts     int64
	takes    int64
	releases int64
	blocks   int64
	drops    int64

	mu          sync.RWMutex
	startTime   time.Time
	currentSize int64
	maxSize     int64
}

// NewStatistics creates a new statistics tracker.
func NewStatistics() *Statistics {
	return &Statistics{
		startTime: time.Now(),
	}
}

// Put records an enqueue.
func (s *Statistics) Put() {
	atomic.AddInt64(&s.puts, 1)
}

// Take records a dequeue.
func (s *Statistics) Take() {
	atomic.AddInt64(&s.takes, 1)
}

// Release records a returned credit.
func (s *Statistics) Release() {
	atomic.AddInt64(&s.releases, 1)
}

// Block records a put that had to wait for credit.
func (s *Statistics) Block() {
	atomic.AddInt64(&s.blocks, 1)
}

// Drop records an item discarded by Reject.
func (s *Statistics) Drop() {
	atomic.AddInt64(&s.drops, 1)
}

// UpdateSize updates the current queue length.
func (s *Statistics) UpdateSize(size int64) {
	s.mu.Lock()
	s.currentSize = size
	if size > s.maxSize {
		s.maxSize = size
	}
	s.mu.Unlock()
}

// Puts returns the total number of enqueues.
func (s *Statistics) Puts() int64 {
	return atomic.LoadInt64(&s.puts)
}

// Takes returns the total number of dequeues.
func (s *Statistics) Takes() int64 {
	return atomic.LoadInt64(&s.takes)
}

// Releases returns the total number of returned credits.
func (s *Statistics) Releases() int64 {
	return atomic.LoadInt64(&s.releases)
}

// Blocks returns the number of puts that waited for credit.
func (s *Statistics) Blocks() int64 {
	return atomic.LoadInt64(&s.blocks)
}

// Drops returns the number of items discarded by Reject.
func (s *Statistics) Drops() int64 {
	return atomic.LoadInt64(&s.drops)
}

// CurrentSize returns the current queue length.
func (s *Statistics) CurrentSize() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentSize
}

// MaxSize returns the longest the queue has been.
func (s *Statistics) MaxSize() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.maxSize
}

// Throughput returns the average number of puts per second.
func (s *Statistics) Throughput() float64 {
	elapsed := s.Uptime()
	if elapsed == 0 {
		return 0.0
	}
	return float64(s.Puts()) / elapsed.Seconds()
}

// Uptime returns how long the queue has existed.
func (s *Statistics) Uptime() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return time.Since(s.startTime)
}

// StatsSummary is a snapshot of all statistics.
type StatsSummary struct {
	Puts        int64         `json:"puts"`
	Takes       int64         `json:"takes"`
	Releases    int64         `json:"releases"`
	Blocks      int64         `json:"blocks"`
	Drops       int64         `json:"drops"`
	CurrentSize int64         `json:"current_size"`
	MaxSize     int64         `json:"max_size"`
	Throughput  float64       `json:"throughput"`
	Uptime      time.Duration `json:"uptime"`
}

// Summary returns a snapshot of all statistics.
func (s *Statistics) Summary() StatsSummary {
	return StatsSummary{
		Puts:        s.Puts(),
		Takes:       s.Takes(),
		Releases:    s.Releases(),
		Blocks:      s.Blocks(),
		Drops:       s.Drops(),
		CurrentSize: s.CurrentSize(),
		MaxSize:     s.MaxSize(),
		Throughput:  s.Throughput(),
		Uptime:      s.Uptime(),
	}
}
