package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sahilchouksey/post-views-api/model"
	"github.com/sahilchouksey/post-views-api/utils/cache"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PeriodTotal is the pseudo-period selecting the all-time bucket
const PeriodTotal = "total"

// MonthPeriod formats t as a YYYYMM month bucket
func MonthPeriod(t time.Time) string {
	return t.Format("200601")
}

// DayPeriod formats t as a YYYYMMDD day bucket
func DayPeriod(t time.Time) string {
	return t.Format("20060102")
}

// WeekPeriod formats t as a YYYYWW ISO-week bucket
func WeekPeriod(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%04d%02d", year, week)
}

// ViewsService aggregates and records post view counts. Raw events are kept
// in view_events until the retention cron prunes them; all queries run
// against the post_views aggregate buckets.
type ViewsService struct {
	db    *gorm.DB
	cache *cache.RedisCache // nil disables view dedup

	// called after a successful count so cached signal verdicts drop
	invalidator func(ctx context.Context, postID uint)

	now func() time.Time
}

// NewViewsService creates a new views service
func NewViewsService(db *gorm.DB, redisCache *cache.RedisCache) *ViewsService {
	return &ViewsService{
		db:    db,
		cache: redisCache,
		now:   time.Now,
	}
}

// SetInvalidator registers the signal-cache invalidation callback. Set after
// construction because the signal service queries views through this service.
func (s *ViewsService) SetInvalidator(fn func(ctx context.Context, postID uint)) {
	s.invalidator = fn
}

// PostViews returns the view total for a post. Period is either "total" or a
// YYYYMM month bucket. Missing buckets count as zero.
func (s *ViewsService) PostViews(ctx context.Context, postID uint, period string) (int64, error) {
	bucketType := model.PeriodMonth
	if period == PeriodTotal {
		bucketType = model.PeriodTotal
	}

	var total int64
	err := s.db.WithContext(ctx).
		Model(&model.PostView{}).
		Select("COALESCE(SUM(count), 0)").
		Where("post_id = ? AND type = ? AND period = ?", postID, bucketType, period).
		Scan(&total).Error
	if err != nil {
		return 0, err
	}

	return total, nil
}

// PostViewsInRange sums the day buckets in the inclusive [startDay, endDay]
// range, both given as YYYYMMDD integers. Day periods are stored zero-padded,
// so lexicographic BETWEEN matches numeric ordering.
func (s *ViewsService) PostViewsInRange(ctx context.Context, postID uint, startDay, endDay int) (int64, error) {
	var total int64
	err := s.db.WithContext(ctx).
		Model(&model.PostView{}).
		Select("COALESCE(SUM(count), 0)").
		Where("post_id = ? AND type = ? AND period BETWEEN ? AND ?",
			postID, model.PeriodDay, fmt.Sprintf("%08d", startDay), fmt.Sprintf("%08d", endDay)).
		Scan(&total).Error
	if err != nil {
		return 0, err
	}

	return total, nil
}

// MonthlySeries returns day-of-month to view count for one calendar month.
// Days without views are absent from the map.
func (s *ViewsService) MonthlySeries(ctx context.Context, postID uint, year, month int) (map[int]int64, error) {
	prefix := fmt.Sprintf("%04d%02d", year, month)

	var rows []model.PostView
	err := s.db.WithContext(ctx).
		Where("post_id = ? AND type = ? AND period LIKE ?", postID, model.PeriodDay, prefix+"%").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	series := make(map[int]int64, len(rows))
	for _, row := range rows {
		if len(row.Period) != 8 {
			continue
		}
		var day int
		if _, err := fmt.Sscanf(row.Period[6:], "%d", &day); err == nil && day >= 1 && day <= 31 {
			series[day] = row.Count
		}
	}

	return series, nil
}

// RecordView bumps the day/week/month/total buckets for a post and stores a
// raw event. A visitor counts at most once per dedupWindow; zero disables
// dedup. Returns false when the view was suppressed by the dedup window.
func (s *ViewsService) RecordView(ctx context.Context, postID uint, visitorHash string, dedupWindow time.Duration) (bool, error) {
	if s.cache != nil && dedupWindow > 0 && visitorHash != "" {
		key := fmt.Sprintf("pvc:dedup:%d:%s", postID, visitorHash)
		fresh, err := s.cache.SetNX(ctx, key, 1, dedupWindow)
		if err == nil && !fresh {
			return false, nil
		}
		// cache unavailable counts as a fresh view, never a lost one
	}

	now := s.now()
	buckets := []model.PostView{
		{PostID: postID, Type: model.PeriodDay, Period: DayPeriod(now), Count: 1},
		{PostID: postID, Type: model.PeriodWeek, Period: WeekPeriod(now), Count: 1},
		{PostID: postID, Type: model.PeriodMonth, Period: MonthPeriod(now), Count: 1},
		{PostID: postID, Type: model.PeriodTotal, Period: PeriodTotal, Count: 1},
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&model.ViewEvent{
			PostID:      postID,
			VisitorHash: visitorHash,
			ViewedAt:    now,
		}).Error; err != nil {
			return err
		}

		return tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "post_id"}, {Name: "type"}, {Name: "period"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"count": gorm.Expr("post_views.count + 1"),
			}),
		}).Create(&buckets).Error
	})
	if err != nil {
		return false, err
	}

	if s.invalidator != nil {
		s.invalidator(ctx, postID)
	}

	return true, nil
}

// SetViews overwrites the total bucket for a post (admin quick edit)
func (s *ViewsService) SetViews(ctx context.Context, postID uint, views int64) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "post_id"}, {Name: "type"}, {Name: "period"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"count": views}),
	}).Create(&model.PostView{
		PostID: postID,
		Type:   model.PeriodTotal,
		Period: PeriodTotal,
		Count:  views,
	}).Error
	if err != nil {
		return err
	}

	if s.invalidator != nil {
		s.invalidator(ctx, postID)
	}

	return nil
}

// ResetViews removes all view data for a single post
func (s *ViewsService) ResetViews(ctx context.Context, postID uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", postID).Delete(&model.PostView{}).Error; err != nil {
			return err
		}
		return tx.Where("post_id = ?", postID).Delete(&model.ViewEvent{}).Error
	})
	if err != nil {
		return err
	}

	if s.invalidator != nil {
		s.invalidator(ctx, postID)
	}

	return nil
}

// ResetAllViews truncates all view data. Callers are expected to follow up
// with a bulk signal-cache flush.
func (s *ViewsService) ResetAllViews(ctx context.Context) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("TRUNCATE TABLE post_views").Error; err != nil {
			return err
		}
		return tx.Exec("TRUNCATE TABLE view_events").Error
	})
}
