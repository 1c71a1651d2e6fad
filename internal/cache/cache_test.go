// StreamCache - IPTV Catalog Cache and Sync Core
// Copyright 2026 Kybers
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kybers/streamcache

package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeClock drives a cache's time by hand.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.t = f.t.Add(d)
}

func newTestCache(cfg Config) (*Cache[string, int], *fakeClock) {
	c := New[string, int]("test", cfg)
	clock := newFakeClock()
	c.now = clock.Now
	return c, clock
}

func TestCacheGetPut(t *testing.T) {
	c, _ := newTestCache(Config{DefaultTTL: time.Minute, MaxSize: 10})

	c.Put("a", 1)
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Errorf("Expected (1, true), got (%d, %v)", v, ok)
	}

	// Overwrite replaces the entry.
	c.Put("a", 2)
	if v, _ := c.Get("a"); v != 2 {
		t.Errorf("Expected overwrite to 2, got %d", v)
	}

	if _, ok := c.Get("missing"); ok {
		t.Error("Expected miss for absent key")
	}
}

func TestCacheGetAfterExpiryRemovesEntry(t *testing.T) {
	c, clock := newTestCache(Config{DefaultTTL: time.Minute, MaxSize: 10})

	c.Put("a", 1)
	clock.Advance(2 * time.Minute)

	if _, ok := c.Get("a"); ok {
		t.Error("Expected expired entry to miss")
	}
	if c.Contains("a") {
		t.Error("Expected expired entry to be removed by the read")
	}
	if c.Len() != 0 {
		t.Errorf("Expected zero storage slots after lazy removal, got %d", c.Len())
	}
	if len(c.accessOrder) != 0 {
		t.Errorf("Expected access order cleared with storage, got %d entries", len(c.accessOrder))
	}
}

func TestCacheHitRateAccounting(t *testing.T) {
	c, _ := newTestCache(Config{DefaultTTL: time.Minute, MaxSize: 10})

	stats := c.GetStats()
	if stats.HitRate != 0 {
		t.Errorf("Expected hit rate 0 with no accesses, got %v", stats.HitRate)
	}

	c.Put("a", 1)
	c.Get("a")     // hit
	c.Get("a")     // hit
	c.Get("a")     // hit
	c.Get("nope")  // miss

	stats = c.GetStats()
	if stats.Hits != 3 || stats.Misses != 1 {
		t.Errorf("Expected 3 hits / 1 miss, got %d / %d", stats.Hits, stats.Misses)
	}
	if stats.HitRate != 0.75 {
		t.Errorf("Expected hit rate 0.75, got %v", stats.HitRate)
	}
}

func TestCacheContainsDoesNotTouchCounters(t *testing.T) {
	c, _ := newTestCache(Config{DefaultTTL: time.Minute, MaxSize: 10})

	c.Put("a", 1)
	c.Contains("a")
	c.Contains("missing")

	stats := c.GetStats()
	if stats.Hits != 0 || stats.Misses != 0 {
		t.Errorf("Contains must not count hits/misses, got %d / %d", stats.Hits, stats.Misses)
	}
}

func TestCacheRemove(t *testing.T) {
	c, _ := newTestCache(Config{DefaultTTL: time.Minute, MaxSize: 10})

	c.Put("a", 7)
	if v, ok := c.Remove("a"); !ok || v != 7 {
		t.Errorf("Expected (7, true), got (%d, %v)", v, ok)
	}
	if _, ok := c.Remove("a"); ok {
		t.Error("Expected second remove to report absence")
	}
}

func TestCacheClearKeepsCounters(t *testing.T) {
	c, _ := newTestCache(Config{DefaultTTL: time.Minute, MaxSize: 10})

	c.Put("a", 1)
	c.Get("a")
	c.Get("b")
	c.Clear()

	if c.Len() != 0 {
		t.Errorf("Expected empty cache after clear, got %d entries", c.Len())
	}
	stats := c.GetStats()
	if stats.Hits != 1 || stats.Misses != 1 {
		t.Errorf("Clear must preserve counters, got %d / %d", stats.Hits, stats.Misses)
	}
}

func TestCacheCleanupExpired(t *testing.T) {
	c, clock := newTestCache(Config{DefaultTTL: time.Minute, MaxSize: 100})

	c.PutTTL("short1", 1, time.Second)
	c.PutTTL("short2", 2, time.Second)
	c.PutTTL("long", 3, time.Hour)
	clock.Advance(time.Minute)

	if removed := c.CleanupExpired(); removed != 2 {
		t.Errorf("Expected 2 removed, got %d", removed)
	}
	if !c.Contains("long") {
		t.Error("Expected unexpired entry to survive cleanup")
	}
	if got := c.GetStats().Evictions; got != 2 {
		t.Errorf("Expected 2 evictions counted, got %d", got)
	}
}

func TestCacheLRUEvictionOrder(t *testing.T) {
	c, clock := newTestCache(Config{DefaultTTL: time.Hour, MaxSize: 10, Strategy: LRU})

	for i := 1; i <= 10; i++ {
		c.Put(fmt.Sprintf("key%02d", i), i)
		clock.Advance(time.Second)
	}

	// Refresh 6..10 so 1..5 are the least recently used.
	for i := 6; i <= 10; i++ {
		c.Get(fmt.Sprintf("key%02d", i))
		clock.Advance(time.Second)
	}

	c.Put("key11", 11)

	// Target is floor(10*0.8)=8, so 3 of the least-recently-used keys go.
	for i := 1; i <= 3; i++ {
		if c.Contains(fmt.Sprintf("key%02d", i)) {
			t.Errorf("Expected key%02d to be evicted", i)
		}
	}
	for i := 6; i <= 10; i++ {
		if !c.Contains(fmt.Sprintf("key%02d", i)) {
			t.Errorf("Expected recently accessed key%02d to survive", i)
		}
	}
	if !c.Contains("key11") {
		t.Error("Expected newly inserted key to survive")
	}
}

func TestCacheEvictionHysteresis(t *testing.T) {
	c, clock := newTestCache(Config{DefaultTTL: time.Hour, MaxSize: 10, Strategy: LRU})

	for i := 0; i <= 10; i++ {
		c.Put(fmt.Sprintf("key%02d", i), i)
		clock.Advance(time.Second)
	}

	// Eviction at size 11 drops to floor(10*0.8)=8, not back to 10.
	if c.Len() != 8 {
		t.Errorf("Expected size 8 after hysteresis eviction, got %d", c.Len())
	}
	if got := c.GetStats().Evictions; got != 3 {
		t.Errorf("Expected 3 evictions, got %d", got)
	}
}

func TestCacheExampleScenario(t *testing.T) {
	c, clock := newTestCache(Config{DefaultTTL: time.Second, MaxSize: 3, Strategy: LRU})

	c.Put("a", 1)
	clock.Advance(time.Millisecond)
	c.Put("b", 2)
	clock.Advance(time.Millisecond)
	c.Put("c", 3)
	clock.Advance(time.Millisecond)

	c.Get("a") // refresh a's access time
	clock.Advance(time.Millisecond)

	c.Put("d", 4) // size 4 > 3: evict down to floor(3*0.8)=2

	if c.Contains("b") || c.Contains("c") {
		t.Error("Expected b and c (least recently accessed) to be evicted")
	}
	if !c.Contains("a") || !c.Contains("d") {
		t.Error("Expected a (just touched) and d (newest) to survive")
	}
	if got := c.GetStats().Evictions; got != 2 {
		t.Errorf("Expected 2 evictions, got %d", got)
	}
}

func TestCacheSizeLimitEvictsOldestInserted(t *testing.T) {
	c, clock := newTestCache(Config{DefaultTTL: time.Hour, MaxSize: 3, Strategy: SizeLimit})

	c.Put("old", 1)
	clock.Advance(time.Second)
	c.Put("mid", 2)
	clock.Advance(time.Second)
	c.Put("new", 3)
	clock.Advance(time.Second)

	// Touching "old" must not save it: SizeLimit ranks by insertion time.
	c.Get("old")
	clock.Advance(time.Second)

	c.Put("newest", 4)

	if c.Contains("old") || c.Contains("mid") {
		t.Error("Expected oldest-inserted entries to be evicted regardless of access")
	}
	if !c.Contains("new") || !c.Contains("newest") {
		t.Error("Expected newest-inserted entries to survive")
	}
}

func TestCacheTTLOnlyMayExceedMaxSize(t *testing.T) {
	c, clock := newTestCache(Config{DefaultTTL: time.Hour, MaxSize: 2, Strategy: TTLOnly})

	c.Put("a", 1)
	c.Put("b", 2)
	c.Put("c", 3)

	// Nothing expired, so the cache is allowed over MaxSize.
	if c.Len() != 3 {
		t.Errorf("Expected TTLOnly to keep all 3 unexpired entries, got %d", c.Len())
	}

	c.PutTTL("d", 4, time.Second)
	clock.Advance(time.Minute)
	c.Put("e", 5) // triggers eviction of the now-expired "d"

	if c.Contains("d") {
		t.Error("Expected expired entry to be evicted by TTLOnly")
	}
	if c.Len() != 4 {
		t.Errorf("Expected 4 entries after expired-only eviction, got %d", c.Len())
	}
}

func TestCacheEvictionTieBreakByKey(t *testing.T) {
	c, _ := newTestCache(Config{DefaultTTL: time.Hour, MaxSize: 4, Strategy: LRU})

	// All inserted at the same fake-clock instant: ties broken by key order.
	c.Put("d", 4)
	c.Put("c", 3)
	c.Put("b", 2)
	c.Put("a", 1)
	c.Put("e", 5) // size 5 > 4: evict down to floor(4*0.8)=3

	if c.Contains("a") || c.Contains("b") {
		t.Error("Expected tie-break to evict lowest keys first")
	}
	if !c.Contains("c") || !c.Contains("d") || !c.Contains("e") {
		t.Error("Expected higher keys to survive the tie-break")
	}
}

func TestGetOrPutCachesProducerResult(t *testing.T) {
	c, _ := newTestCache(Config{DefaultTTL: time.Minute, MaxSize: 10})

	calls := 0
	producer := func(context.Context) (int, error) {
		calls++
		return 42, nil
	}

	v, err := c.GetOrPut(context.Background(), "k", time.Minute, producer)
	if err != nil || v != 42 {
		t.Fatalf("Expected (42, nil), got (%d, %v)", v, err)
	}
	v, err = c.GetOrPut(context.Background(), "k", time.Minute, producer)
	if err != nil || v != 42 {
		t.Fatalf("Expected cached (42, nil), got (%d, %v)", v, err)
	}
	if calls != 1 {
		t.Errorf("Expected producer to run once, ran %d times", calls)
	}
}

func TestGetOrPutErrorNotCached(t *testing.T) {
	c, _ := newTestCache(Config{DefaultTTL: time.Minute, MaxSize: 10})

	wantErr := errors.New("upstream down")
	_, err := c.GetOrPut(context.Background(), "k", time.Minute, func(context.Context) (int, error) {
		return 0, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("Expected producer error, got %v", err)
	}
	if c.Contains("k") {
		t.Error("Expected failed production to cache nothing")
	}

	v, err := c.GetOrPut(context.Background(), "k", time.Minute, func(context.Context) (int, error) {
		return 7, nil
	})
	if err != nil || v != 7 {
		t.Errorf("Expected retry to succeed, got (%d, %v)", v, err)
	}
}

func TestGetOrPutSingleFlight(t *testing.T) {
	c := New[string, int]("singleflight", Config{DefaultTTL: time.Minute, MaxSize: 10})

	var calls atomic.Int32
	release := make(chan struct{})
	producer := func(context.Context) (int, error) {
		calls.Add(1)
		<-release
		return 99, nil
	}

	const waiters = 8
	var wg sync.WaitGroup
	results := make([]int, waiters)
	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := c.GetOrPut(context.Background(), "hot", time.Minute, producer)
			if err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
			results[i] = v
		}(i)
	}

	// Let the leader reach the producer, then release everyone.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := calls.Load(); got != 1 {
		t.Errorf("Expected a single producer invocation, got %d", got)
	}
	for i, v := range results {
		if v != 99 {
			t.Errorf("Waiter %d got %d, want 99", i, v)
		}
	}
}

func TestGetOrPutWaiterCancellation(t *testing.T) {
	c := New[string, int]("cancel", Config{DefaultTTL: time.Minute, MaxSize: 10})

	release := make(chan struct{})
	go func() {
		_, _ = c.GetOrPut(context.Background(), "slow", time.Minute, func(context.Context) (int, error) {
			<-release
			return 1, nil
		})
	}()
	time.Sleep(20 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.GetOrPut(ctx, "slow", time.Minute, func(context.Context) (int, error) {
		return 2, nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled for waiting caller, got %v", err)
	}
	close(release)
}

func TestCacheConcurrentAccess(t *testing.T) {
	c := New[int, int]("concurrent", Config{DefaultTTL: time.Minute, MaxSize: 100, Strategy: LRU})

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := (g*200 + i) % 150
				c.Put(key, i)
				c.Get(key)
				c.Contains(key)
			}
		}(g)
	}
	wg.Wait()

	if c.Len() > 100 {
		t.Errorf("Expected eviction to bound size at 100, got %d", c.Len())
	}
}
