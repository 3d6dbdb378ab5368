package ratelimit

import (
	"sync"
	"testing"
	"time"
)

// newTestStore returns a store with a controllable clock and no sweeper
func newTestStore(at time.Time) (*MemoryStore, *time.Time) {
	current := at
	s := &MemoryStore{
		buckets: make(map[string]*bucket),
		stopCh:  make(chan struct{}),
	}
	s.now = func() time.Time { return current }
	return s, &current
}

func TestCheck_SequenceWithinWindow(t *testing.T) {
	// Start mid-window so the sequence cannot straddle a boundary
	base := time.UnixMilli(1_700_000_000_000)
	base = base.Add(-time.Duration(base.UnixMilli()%windowMs) * time.Millisecond)
	s, _ := newTestStore(base.Add(5 * time.Second))

	expected := []bool{true, true, true, false}
	for i, want := range expected {
		res := s.Check("ext:msg:key:abc", 3)
		if res.Allowed != want {
			t.Errorf("call %d: expected allowed=%v, got %v", i+1, want, res.Allowed)
		}
	}
}

func TestCheck_RemainingCountsDown(t *testing.T) {
	s, _ := newTestStore(time.UnixMilli(1_700_000_000_000))

	for i, want := range []int{2, 1, 0} {
		res := s.Check("k", 3)
		if !res.Allowed {
			t.Fatalf("call %d: expected allowed", i+1)
		}
		if res.Remaining != want {
			t.Errorf("call %d: expected remaining=%d, got %d", i+1, want, res.Remaining)
		}
	}

	res := s.Check("k", 3)
	if res.Allowed || res.Remaining != 0 {
		t.Errorf("expected denied with remaining=0, got allowed=%v remaining=%d", res.Allowed, res.Remaining)
	}
}

func TestCheck_WindowRollover(t *testing.T) {
	base := time.UnixMilli(1_700_000_040_000) // mid-window
	s, clock := newTestStore(base)

	for i := 0; i < 3; i++ {
		s.Check("k", 3)
	}
	if res := s.Check("k", 3); res.Allowed {
		t.Fatal("expected fourth call to be denied")
	}

	// Advance past the window boundary: counter resets silently
	*clock = base.Add(time.Duration(windowMs) * time.Millisecond)
	res := s.Check("k", 3)
	if !res.Allowed {
		t.Error("expected allowed after window rollover")
	}
	if res.Remaining != 2 {
		t.Errorf("expected remaining=2 in fresh window, got %d", res.Remaining)
	}
}

func TestCheck_ResetInMs(t *testing.T) {
	nowMs := int64(1_700_000_012_345)
	s, _ := newTestStore(time.UnixMilli(nowMs))

	res := s.Check("k", 5)
	windowStart := nowMs - nowMs%windowMs
	want := windowStart + windowMs - nowMs
	if res.ResetInMs != want {
		t.Errorf("expected reset_in_ms=%d, got %d", want, res.ResetInMs)
	}

	// Denied responses report the same rollover time
	for i := 0; i < 5; i++ {
		res = s.Check("k", 5)
	}
	if res.Allowed {
		t.Fatal("expected denial")
	}
	if res.ResetInMs != want {
		t.Errorf("expected reset_in_ms=%d on denial, got %d", want, res.ResetInMs)
	}
}

func TestCheck_IndependentKeys(t *testing.T) {
	s, _ := newTestStore(time.UnixMilli(1_700_000_000_000))

	s.Check("ext:msg:key:a", 1)
	if res := s.Check("ext:msg:key:a", 1); res.Allowed {
		t.Error("expected key a to be exhausted")
	}
	if res := s.Check("ext:msg:ip:203.0.113.7", 1); !res.Allowed {
		t.Error("expected independent bucket for different key")
	}
}

// TestCheck_ConcurrentExactLimit verifies N simultaneous checks at limit N
// yield exactly N allows and never N+1.
func TestCheck_ConcurrentExactLimit(t *testing.T) {
	const n = 64
	base := time.UnixMilli(1_700_000_000_000)
	s, _ := newTestStore(base.Add(time.Second))

	var wg sync.WaitGroup
	results := make([]bool, n)
	start := make(chan struct{})

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			results[i] = s.Check("concurrent", n).Allowed
		}(i)
	}
	close(start)
	wg.Wait()

	allowed := 0
	for _, ok := range results {
		if ok {
			allowed++
		}
	}
	if allowed != n {
		t.Errorf("expected exactly %d allows, got %d", n, allowed)
	}

	if res := s.Check("concurrent", n); res.Allowed {
		t.Error("expected call n+1 to be denied")
	}
}

func TestCleanup_DropsStaleBuckets(t *testing.T) {
	base := time.UnixMilli(1_700_000_000_000)
	s, clock := newTestStore(base)

	s.Check("old", 10)
	*clock = base.Add(3 * time.Duration(windowMs) * time.Millisecond)
	s.Check("fresh", 10)

	s.cleanup()

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.buckets["old"]; ok {
		t.Error("expected stale bucket to be swept")
	}
	if _, ok := s.buckets["fresh"]; !ok {
		t.Error("expected current-window bucket to survive sweep")
	}
}
