package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubViews counts queries so tests can assert the detector did (or did
// not) recompute
type stubViews struct {
	current    int64
	previous   int64
	monthCalls int
	rangeCalls int
	lastRange  [2]int
}

func (s *stubViews) PostViews(ctx context.Context, postID uint, period string) (int64, error) {
	s.monthCalls++
	return s.current, nil
}

func (s *stubViews) PostViewsInRange(ctx context.Context, postID uint, startDay, endDay int) (int64, error) {
	s.rangeCalls++
	s.lastRange = [2]int{startDay, endDay}
	return s.previous, nil
}

// memCache is an in-memory SignalCache fake
type memCache struct {
	mu      sync.Mutex
	entries map[string]string
}

func newMemCache() *memCache {
	return &memCache{entries: make(map[string]string)}
}

func (c *memCache) Get(ctx context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	if !ok {
		return "", errors.New("key not found in cache")
	}
	return v, nil
}

func (c *memCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch v := value.(type) {
	case []byte:
		c.entries[key] = string(v)
	case string:
		c.entries[key] = v
	}
	return nil
}

func (c *memCache) Delete(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.entries, k)
	}
	return nil
}

func (c *memCache) Keys(ctx context.Context, pattern string) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	prefix := strings.TrimSuffix(pattern, "*")
	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func (c *memCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func newTestSignalService(views ViewQuerier, signalCache SignalCache, now time.Time) *SignalService {
	s := NewSignalService(views, signalCache)
	s.now = func() time.Time { return now }
	return s
}

func TestDetectBelowMinimumCurrentViews(t *testing.T) {
	views := &stubViews{current: 5, previous: 500}
	c := newMemCache()
	s := newTestSignalService(views, c, time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC))

	verdict := s.Detect(context.Background(), 42)
	assert.Nil(t, verdict)
	// the "no signal" conclusion is cached, so the baseline is never queried
	assert.Equal(t, 0, views.rangeCalls)

	verdict = s.Detect(context.Background(), 42)
	assert.Nil(t, verdict)
	assert.Equal(t, 1, views.monthCalls, "cached nil verdict must not recompute")
}

func TestDetectBelowMinimumBaseline(t *testing.T) {
	views := &stubViews{current: 50, previous: 9}
	c := newMemCache()
	s := newTestSignalService(views, c, time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC))

	verdict := s.Detect(context.Background(), 42)
	assert.Nil(t, verdict)
	assert.Equal(t, 1, views.rangeCalls)

	// insufficient baseline is cached like any other nil verdict
	s.Detect(context.Background(), 42)
	assert.Equal(t, 1, views.monthCalls)
}

func TestDetectThreshold(t *testing.T) {
	tests := []struct {
		name        string
		current     int64
		previous    int64
		wantAnomaly bool
		wantPercent int
	}{
		{"doubled", 200, 100, true, 100},
		{"just above threshold", 126, 100, true, 26},
		{"just below threshold", 125, 100, false, 0},
		{"at threshold is not an anomaly", 25, 20, false, 0},
		{"mild drop", 80, 100, false, 0},
		{"sharp drop", 70, 100, true, -30},
		{"rounding", 135, 101, true, 34}, // 33.66 rounds to 34
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			views := &stubViews{current: tt.current, previous: tt.previous}
			s := newTestSignalService(views, newMemCache(), time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC))

			verdict := s.Detect(context.Background(), 1)
			if !tt.wantAnomaly {
				assert.Nil(t, verdict)
				return
			}

			require.NotNil(t, verdict)
			assert.True(t, verdict.Anomaly)
			assert.Equal(t, tt.wantPercent, verdict.ChangePercent)
		})
	}
}

func TestDetectCacheIdempotence(t *testing.T) {
	views := &stubViews{current: 200, previous: 100}
	c := newMemCache()
	s := newTestSignalService(views, c, time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC))

	first := s.Detect(context.Background(), 7)
	second := s.Detect(context.Background(), 7)

	require.NotNil(t, first)
	require.NotNil(t, second)
	assert.Equal(t, *first, *second)
	assert.Equal(t, 1, views.monthCalls, "second call must come from cache")
	assert.Equal(t, 1, views.rangeCalls)
}

func TestDetectRecomputesAfterInvalidation(t *testing.T) {
	views := &stubViews{current: 200, previous: 100}
	c := newMemCache()
	s := newTestSignalService(views, c, time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC))

	s.Detect(context.Background(), 7)
	s.Invalidate(context.Background(), 7)
	s.Detect(context.Background(), 7)

	assert.Equal(t, 2, views.monthCalls)
}

func TestInvalidateOnStatusChange(t *testing.T) {
	views := &stubViews{current: 200, previous: 100}
	c := newMemCache()
	s := newTestSignalService(views, c, time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC))

	s.Detect(context.Background(), 7)

	// unchanged status keeps the cached verdict
	s.InvalidateOnStatusChange(context.Background(), 7, "publish", "publish")
	assert.Equal(t, 1, c.len())

	s.InvalidateOnStatusChange(context.Background(), 7, "publish", "draft")
	assert.Equal(t, 0, c.len())
}

func TestDetectPriorWindowClampedToShortMonth(t *testing.T) {
	// March 31 in a non-leap year: the comparable window is February 1-28
	views := &stubViews{current: 200, previous: 100}
	s := newTestSignalService(views, newMemCache(), time.Date(2023, 3, 31, 9, 0, 0, 0, time.UTC))

	s.Detect(context.Background(), 7)

	assert.Equal(t, 20230201, views.lastRange[0])
	assert.Equal(t, 20230228, views.lastRange[1])
}

func TestDetectPriorWindowSameDay(t *testing.T) {
	// mid-month: the window runs from the 1st to the same day of the
	// previous month
	views := &stubViews{current: 200, previous: 100}
	s := newTestSignalService(views, newMemCache(), time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC))

	s.Detect(context.Background(), 7)

	assert.Equal(t, 20240501, views.lastRange[0])
	assert.Equal(t, 20240515, views.lastRange[1])
}

func TestDetectWithoutCache(t *testing.T) {
	views := &stubViews{current: 200, previous: 100}
	s := newTestSignalService(views, nil, time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC))

	verdict := s.Detect(context.Background(), 7)
	require.NotNil(t, verdict)

	// no cache means every call recomputes
	s.Detect(context.Background(), 7)
	assert.Equal(t, 2, views.monthCalls)
}

func TestFlushAllDropsEveryVerdict(t *testing.T) {
	views := &stubViews{current: 200, previous: 100}
	c := newMemCache()
	s := newTestSignalService(views, c, time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC))

	s.Detect(context.Background(), 1)
	s.Detect(context.Background(), 2)
	require.Equal(t, 2, c.len())

	s.FlushAll(context.Background())

	assert.Eventually(t, func() bool {
		return c.len() == 0
	}, time.Second, 10*time.Millisecond)
}
