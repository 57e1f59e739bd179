package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"
)

const (
	// signalKeyPrefix namespaces cached verdicts in Redis
	signalKeyPrefix = "pvc:signal:"

	// signalMinViews is the minimum period total required before a
	// comparison is attempted. Small absolute swings on low-traffic posts
	// produce large percentage swings.
	signalMinViews = 10

	// signalChangeThreshold is the absolute percent change (up or down)
	// that marks a verdict as an anomaly
	signalChangeThreshold = 25.0

	// signalCacheTTL bounds verdict staleness when no invalidation fires
	signalCacheTTL = time.Hour
)

// Verdict is an anomaly detection result for a post. A nil *Verdict means
// no unusual activity (including the insufficient-data case).
type Verdict struct {
	Anomaly       bool `json:"anomaly"`
	ChangePercent int  `json:"change_percent"`
}

// ViewQuerier is the view-count lookup the detector runs against
type ViewQuerier interface {
	PostViews(ctx context.Context, postID uint, period string) (int64, error)
	PostViewsInRange(ctx context.Context, postID uint, startDay, endDay int) (int64, error)
}

// SignalCache is the subset of cache operations the detector needs.
// Delete and Keys are best-effort; a miss is reported as cache.ErrNotFound.
type SignalCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Keys(ctx context.Context, pattern string) ([]string, error)
}

// SignalService flags posts whose current-month traffic deviates from their
// own prior-month baseline (month-over-month comparison over the same
// day-of-month window). Verdicts are cached for an hour and dropped eagerly
// when counts, post status or post existence change.
type SignalService struct {
	views ViewQuerier
	cache SignalCache // nil disables caching entirely
	now   func() time.Time
}

// NewSignalService creates a new signal service
func NewSignalService(views ViewQuerier, signalCache SignalCache) *SignalService {
	return &SignalService{
		views: views,
		cache: signalCache,
		now:   time.Now,
	}
}

func signalKey(postID uint) string {
	return fmt.Sprintf("%s%d", signalKeyPrefix, postID)
}

// Detect returns the traffic verdict for a post. The detector has no error
// channel: any state where a total cannot be computed resolves to nil.
func (s *SignalService) Detect(ctx context.Context, postID uint) *Verdict {
	key := signalKey(postID)

	// cached verdict, including an explicitly cached "no anomaly"
	if s.cache != nil {
		if raw, err := s.cache.Get(ctx, key); err == nil {
			var verdict *Verdict
			if json.Unmarshal([]byte(raw), &verdict) == nil {
				return verdict
			}
		}
	}

	now := s.now()

	currentTotal, err := s.views.PostViews(ctx, postID, MonthPeriod(now))
	if err != nil || currentTotal < signalMinViews {
		return s.cacheVerdict(ctx, key, nil)
	}

	// same day-of-month range in the previous month, clamped to its last day
	firstOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	prevMonthEnd := firstOfMonth.AddDate(0, 0, -1)
	endDay := now.Day()
	if endDay > prevMonthEnd.Day() {
		endDay = prevMonthEnd.Day()
	}

	prevStart := prevMonthEnd.Year()*10000 + int(prevMonthEnd.Month())*100 + 1
	prevEnd := prevMonthEnd.Year()*10000 + int(prevMonthEnd.Month())*100 + endDay

	prevTotal, err := s.views.PostViewsInRange(ctx, postID, prevStart, prevEnd)
	if err != nil || prevTotal < signalMinViews {
		return s.cacheVerdict(ctx, key, nil)
	}

	changePercent := (float64(currentTotal) - float64(prevTotal)) / float64(prevTotal) * 100

	var verdict *Verdict
	if math.Abs(changePercent) > signalChangeThreshold {
		verdict = &Verdict{
			Anomaly:       true,
			ChangePercent: int(math.Round(changePercent)),
		}
	}

	return s.cacheVerdict(ctx, key, verdict)
}

func (s *SignalService) cacheVerdict(ctx context.Context, key string, verdict *Verdict) *Verdict {
	if s.cache != nil {
		// nil marshals to the JSON literal null, which round-trips back to
		// a nil verdict and is still distinguishable from a cache miss
		if raw, err := json.Marshal(verdict); err == nil {
			_ = s.cache.Set(ctx, key, raw, signalCacheTTL)
		}
	}
	return verdict
}

// Invalidate drops the cached verdict for a post. Called when the post's
// count updates, its status transitions or the post is deleted.
func (s *SignalService) Invalidate(ctx context.Context, postID uint) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Delete(ctx, signalKey(postID))
}

// InvalidateOnStatusChange drops the cached verdict only when the status
// actually changed
func (s *SignalService) InvalidateOnStatusChange(ctx context.Context, postID uint, oldStatus, newStatus string) {
	if oldStatus != newStatus {
		s.Invalidate(ctx, postID)
	}
}

// FlushAll drops every cached verdict. Best-effort and fire-and-forget:
// without a reachable cache backend the hourly TTL handles expiry, so
// callers never block on (or observe) the result.
func (s *SignalService) FlushAll(ctx context.Context) {
	if s.cache == nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		keys, err := s.cache.Keys(ctx, signalKeyPrefix+"*")
		if err != nil || len(keys) == 0 {
			return
		}
		_ = s.cache.Delete(ctx, keys...)
	}()
}
