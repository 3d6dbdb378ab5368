package ratelimit

import (
	"sync"
	"time"
)

const windowMs = 60_000

// bucket holds the counter for one key within one window
type bucket struct {
	windowStart int64 // epoch ms, floored to the window boundary
	count       int
}

// MemoryStore is a process-local Store. All checks for all keys serialize on
// one mutex; the critical section is a map lookup and an integer increment,
// so contention stays negligible next to the scrypt verification that
// precedes every external request.
type MemoryStore struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	stopCh  chan struct{}

	// now is overridable in tests
	now func() time.Time
}

// NewMemoryStore creates a store and starts its stale-bucket sweeper
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{
		buckets: make(map[string]*bucket),
		stopCh:  make(chan struct{}),
		now:     time.Now,
	}
	go s.cleanupLoop()
	return s
}

// Check implements Store. Two simultaneous calls for the same key cannot both
// pass a single remaining slot: the read-modify-write happens under the lock.
func (s *MemoryStore) Check(key string, limit int) Result {
	nowMs := s.now().UnixMilli()
	windowStart := nowMs - nowMs%windowMs
	resetIn := windowStart + windowMs - nowMs

	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.buckets[key]
	if !ok || b.windowStart != windowStart {
		s.buckets[key] = &bucket{windowStart: windowStart, count: 1}
		return Result{Allowed: true, Remaining: limit - 1, ResetInMs: resetIn}
	}

	if b.count >= limit {
		return Result{Allowed: false, Remaining: 0, ResetInMs: resetIn}
	}

	b.count++
	return Result{Allowed: true, Remaining: limit - b.count, ResetInMs: resetIn}
}

// cleanupLoop sweeps buckets from past windows every 5 minutes so keys seen
// once do not accumulate forever
func (s *MemoryStore) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stopCh:
			return
		}
	}
}

func (s *MemoryStore) cleanup() {
	nowMs := s.now().UnixMilli()
	currentWindow := nowMs - nowMs%windowMs

	s.mu.Lock()
	defer s.mu.Unlock()

	for key, b := range s.buckets {
		if b.windowStart != currentWindow {
			delete(s.buckets, key)
		}
	}
}

// Stop terminates the sweeper goroutine
func (s *MemoryStore) Stop() {
	close(s.stopCh)
}
